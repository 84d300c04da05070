package application

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunker_Split_2500CharsYieldsThreeChunks(t *testing.T) {
	chunker := NewChunker()
	text := strings.Repeat("a", 2500)

	chunks := chunker.Split(text)
	require.Len(t, chunks, 3)

	for i, chunk := range chunks {
		assert.Equal(t, i, chunk.Index)
		assert.LessOrEqual(t, len(chunk.Content), DefaultChunkSize)
		if i > 0 {
			assert.Greater(t, chunk.StartChar, chunks[i-1].StartChar)
		}
	}
	assert.Equal(t, 2500, chunks[2].EndChar)
}

func TestChunker_Split_CoversWholeText(t *testing.T) {
	chunker := NewChunker()
	var sb strings.Builder
	for i := 0; i < 60; i++ {
		sb.WriteString("The patient reported mild dizziness after the morning dose. ")
	}
	text := sb.String()

	chunks := chunker.Split(text)
	require.NotEmpty(t, chunks)

	// チャンクのオフセット範囲で元テキストが途切れなく覆われること
	covered := chunks[0].EndChar
	assert.Equal(t, 0, chunks[0].StartChar)
	for _, chunk := range chunks[1:] {
		assert.LessOrEqual(t, chunk.StartChar, covered)
		if chunk.EndChar > covered {
			covered = chunk.EndChar
		}
	}
	assert.Equal(t, len(text), covered)
}

func TestChunker_Split_SnapsToSentenceBoundary(t *testing.T) {
	chunker := NewChunker()
	text := strings.Repeat("a", 700) + "." + strings.Repeat("b", 600)

	chunks := chunker.Split(text)
	require.GreaterOrEqual(t, len(chunks), 2)

	// ウィンドウ後半の文末直後で切れること
	assert.Equal(t, 701, chunks[0].EndChar)
	assert.True(t, strings.HasSuffix(chunks[0].Content, "."))
}

func TestChunker_Split_PrefersParagraphBreak(t *testing.T) {
	chunker := NewChunker()
	text := strings.Repeat("a", 600) + "\n\n" + strings.Repeat("b", 700)

	chunks := chunker.Split(text)
	require.GreaterOrEqual(t, len(chunks), 2)
	assert.Equal(t, 602, chunks[0].EndChar)
}

func TestChunker_Split_DropsEmptyChunks(t *testing.T) {
	chunker := NewChunker(WithChunkSize(10), WithChunkOverlap(2))
	chunks := chunker.Split("   \n\n   ")
	assert.Empty(t, chunks)
}

func TestChunker_Split_ShortTextSingleChunk(t *testing.T) {
	chunker := NewChunker()
	chunks := chunker.Split("Take 5mg of amlodipine daily.")

	require.Len(t, chunks, 1)
	assert.Equal(t, 0, chunks[0].StartChar)
	assert.Equal(t, 29, chunks[0].EndChar)
	assert.Equal(t, (29+3)/4, chunks[0].TokenCount)
}

func TestChunker_Split_TokenCountIsCeilQuarter(t *testing.T) {
	chunker := NewChunker()
	chunks := chunker.Split(strings.Repeat("x", 10))

	require.Len(t, chunks, 1)
	assert.Equal(t, 3, chunks[0].TokenCount)
}
