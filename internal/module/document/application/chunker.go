package application

import (
	"strings"
)

const (
	// DefaultChunkSize はチャンクの既定ウィンドウ幅（文字数）
	DefaultChunkSize = 1000
	// DefaultChunkOverlap は隣接チャンク間の既定オーバーラップ（文字数）
	DefaultChunkOverlap = 200
)

// Chunk は分割結果の1チャンク。文字オフセットは元テキストに対するもの。
type Chunk struct {
	Index      int
	Content    string
	TokenCount int
	StartChar  int
	EndChar    int
}

// Chunker はスライディングウィンドウによるテキスト分割器
type Chunker struct {
	size    int
	overlap int
}

// ChunkerOption は Chunker のオプション設定
type ChunkerOption func(*Chunker)

// WithChunkSize はウィンドウ幅を設定する
func WithChunkSize(size int) ChunkerOption {
	return func(c *Chunker) {
		if size > 0 {
			c.size = size
		}
	}
}

// WithChunkOverlap はオーバーラップ幅を設定する
func WithChunkOverlap(overlap int) ChunkerOption {
	return func(c *Chunker) {
		if overlap >= 0 {
			c.overlap = overlap
		}
	}
}

// NewChunker は新しいChunkerを作成する
func NewChunker(opts ...ChunkerOption) *Chunker {
	c := &Chunker{
		size:    DefaultChunkSize,
		overlap: DefaultChunkOverlap,
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.overlap >= c.size {
		c.overlap = c.size / 2
	}

	return c
}

// Split はテキストをオーバーラップ付きのチャンク列に分割する。
// 境界はウィンドウ後半にある文末（`.`）または段落区切り（`\n\n`）へ寄せ、
// 見つからなければウィンドウ端で切る。トリム後に空になったチャンクは捨てる。
// トークン数は ceil(文字数/4) の近似値。
func (c *Chunker) Split(text string) []Chunk {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	var chunks []Chunk
	index := 0
	start := 0
	for start < len(text) {
		end := start + c.size
		if end >= len(text) {
			end = len(text)
		} else {
			end = c.snapBoundary(text, start, end)
		}

		content := strings.TrimSpace(text[start:end])
		if content != "" {
			chunks = append(chunks, Chunk{
				Index:      index,
				Content:    content,
				TokenCount: (len(content) + 3) / 4,
				StartChar:  start,
				EndChar:    end,
			})
			index++
		}

		if end == len(text) {
			break
		}

		next := end - c.overlap
		if next <= start {
			// 境界調整でウィンドウが縮んでも前進は保証する
			next = end
		}
		start = next
	}

	return chunks
}

// snapBoundary はウィンドウ後半（50%以降）にある最後の段落区切りまたは
// 文末を探し、見つかればその直後を境界として返す
func (c *Chunker) snapBoundary(text string, start, hardEnd int) int {
	window := text[start:hardEnd]
	half := len(window) / 2

	if i := strings.LastIndex(window, "\n\n"); i >= half {
		return start + i + 2
	}
	if i := strings.LastIndex(window, "."); i >= half {
		return start + i + 1
	}
	return hardEnd
}
