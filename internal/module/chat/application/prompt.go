package application

import (
	"strings"

	"github.com/pkoukk/tiktoken-go"
)

const (
	// maxPromptTokens はプロンプト全体のトークン上限。
	// 超過時はコンテキストの末尾の項目から削る。
	maxPromptTokens = 6000

	promptEncoding = "cl100k_base"

	promptFraming = `You are a health assistant for a patient health record system.
Answer the question using only the patient data provided below. Be concise and factual.
If the data does not contain the answer, say so.
Always recommend consulting a healthcare professional for medical decisions.`
)

// contextBundle はプロンプトに埋め込む種別ごとのコンテキスト
type contextBundle struct {
	Medications []string
	Vitals      []string
	Notes       []string
	Diet        []string
	Exercise    []string
}

type promptSection struct {
	heading string
	items   []string
}

func (b *contextBundle) sections() []promptSection {
	return []promptSection{
		{heading: "Medications", items: b.Medications},
		{heading: "Vitals", items: b.Vitals},
		{heading: "Notes", items: b.Notes},
		{heading: "Diet", items: b.Diet},
		{heading: "Exercise", items: b.Exercise},
	}
}

// buildPrompt はシステム的な前置き・コンテキスト・質問からプロンプトを組み立てる。
// トークン上限を超える場合は末尾のコンテキスト項目から順に落とす。
// この関数自体は失敗せず、最悪でもコンテキストなしのプロンプトを返す。
func buildPrompt(question string, bundle *contextBundle) string {
	sections := bundle.sections()
	for {
		prompt := renderPrompt(question, sections)
		if countTokens(prompt) <= maxPromptTokens {
			return prompt
		}
		if !dropLastItem(sections) {
			return prompt
		}
	}
}

func renderPrompt(question string, sections []promptSection) string {
	var sb strings.Builder
	sb.WriteString(promptFraming)
	sb.WriteString("\n\n[Patient Data]\n")

	hasContext := false
	for _, section := range sections {
		if len(section.items) == 0 {
			continue
		}
		hasContext = true
		sb.WriteString(section.heading)
		sb.WriteString(":\n")
		for _, item := range section.items {
			sb.WriteString("- ")
			sb.WriteString(item)
			sb.WriteString("\n")
		}
	}
	if !hasContext {
		sb.WriteString("(no records available)\n")
	}

	sb.WriteString("\n[Question]\n")
	sb.WriteString(question)
	return sb.String()
}

// dropLastItem は後ろのセクションから順に末尾の項目をひとつ削る。
// 削るものがなければfalseを返す。
func dropLastItem(sections []promptSection) bool {
	for i := len(sections) - 1; i >= 0; i-- {
		if n := len(sections[i].items); n > 0 {
			sections[i].items = sections[i].items[:n-1]
			return true
		}
	}
	return false
}

// countTokens はトークン数を数える。エンコーダが使えない場合は
// 4文字=1トークンの近似にフォールバックする。
func countTokens(text string) int {
	enc, err := tiktoken.GetEncoding(promptEncoding)
	if err != nil {
		return (len(text) + 3) / 4
	}
	return len(enc.Encode(text, nil, nil))
}
