package corpus

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestContentHashIsPureFunctionOfContent(t *testing.T) {
	doc := "# Title\n\nSome body text.\n"
	require.Equal(t, ContentHash(doc), ContentHash(doc))
	require.NotEqual(t, ContentHash(doc), ContentHash(doc+" "))
	require.Len(t, ContentHash(doc), 32)
}

func TestSplitShortDocumentSingleChunk(t *testing.T) {
	s := NewSplitter(1000, 200)
	chunks := s.Split("# Intro\n\nA short paragraph.\n")
	require.Len(t, chunks, 1)
	require.Contains(t, chunks[0], "# Intro")
	require.Contains(t, chunks[0], "A short paragraph.")
}

func TestSplitBoundsChunkSize(t *testing.T) {
	var sb strings.Builder
	for i := 0; i < 40; i++ {
		sb.WriteString("This is a sentence that fills up the paragraph with some words.\n\n")
	}
	s := NewSplitter(300, 60)
	chunks := s.Split(sb.String())
	require.Greater(t, len(chunks), 1)
	for i, chunk := range chunks {
		require.LessOrEqual(t, len([]rune(chunk)), 300, "chunk %d over budget", i)
		require.NotEmpty(t, chunk)
	}
}

func TestSplitOversizedBlockUsesSlidingWindow(t *testing.T) {
	block := strings.Repeat("x", 950)
	s := NewSplitter(400, 100)
	chunks := s.Split(block)
	require.Greater(t, len(chunks), 1)
	// Consecutive windows share the configured overlap.
	first := []rune(chunks[0])
	second := []rune(chunks[1])
	require.Equal(t, string(first[len(first)-100:]), string(second[:100]))
}

func TestSplitEmptyDocument(t *testing.T) {
	s := NewSplitter(1000, 200)
	require.Empty(t, s.Split(""))
	require.Empty(t, s.Split("\n\n  \n"))
}

func TestSplitKeepsCodeBlocks(t *testing.T) {
	doc := "# Usage\n\nRun it:\n\n```bash\nmake run\n```\n"
	s := NewSplitter(1000, 200)
	chunks := s.Split(doc)
	require.Len(t, chunks, 1)
	require.Contains(t, chunks[0], "make run")
}
