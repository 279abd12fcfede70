// Package corpus turns markdown documents into bounded, overlapping text
// segments for embedding.
package corpus

import (
	"crypto/md5"
	"encoding/hex"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// ContentHash digests the full document text for change detection. Identical
// content always yields the identical hex string; it carries no integrity
// guarantee beyond equality.
func ContentHash(content string) string {
	sum := md5.Sum([]byte(content))
	return hex.EncodeToString(sum[:])
}

type Splitter struct {
	chunkSize int
	overlap   int
}

func NewSplitter(chunkSize, overlap int) *Splitter {
	return &Splitter{chunkSize: chunkSize, overlap: overlap}
}

// Split segments markdown into chunks of at most chunkSize runes, packing
// whole blocks where possible and carrying the tail of each chunk into the
// next so retrieval keeps continuity across boundaries.
func (s *Splitter) Split(markdown string) []string {
	blocks := s.blocks(markdown)

	var chunks []string
	var current []rune
	flush := func() {
		trimmed := strings.TrimSpace(string(current))
		if trimmed != "" {
			chunks = append(chunks, trimmed)
		}
		current = s.overlapTail(current)
	}

	for _, block := range blocks {
		runes := []rune(block)
		if len(runes) > s.chunkSize {
			flush()
			current = nil
			chunks = append(chunks, s.slide(runes)...)
			continue
		}
		if len(current) > 0 && len(current)+1+len(runes) > s.chunkSize {
			flush()
		}
		if len(current) > 0 {
			current = append(current, '\n')
		}
		current = append(current, runes...)
	}
	if trimmed := strings.TrimSpace(string(current)); trimmed != "" {
		chunks = append(chunks, trimmed)
	}
	return chunks
}

// blocks walks the top-level markdown blocks and extracts their text,
// keeping heading markers so section context survives chunking.
func (s *Splitter) blocks(markdown string) []string {
	md := goldmark.New()
	reader := text.NewReader([]byte(markdown))
	doc := md.Parser().Parse(reader)
	source := reader.Source()

	var blocks []string
	for node := doc.FirstChild(); node != nil; node = node.NextSibling() {
		switch n := node.(type) {
		case *ast.Heading:
			heading := string(n.Text(source))
			if heading != "" {
				blocks = append(blocks, strings.Repeat("#", n.Level)+" "+heading)
			}
		case *ast.FencedCodeBlock:
			var sb strings.Builder
			for i := 0; i < n.Lines().Len(); i++ {
				line := n.Lines().At(i)
				sb.Write(line.Value(source))
			}
			if code := strings.TrimRight(sb.String(), "\n"); code != "" {
				blocks = append(blocks, code)
			}
		default:
			if txt := extractText(node, source); txt != "" {
				blocks = append(blocks, txt)
			}
		}
	}
	return blocks
}

// slide splits one oversized block with a fixed-step rune window.
func (s *Splitter) slide(runes []rune) []string {
	var chunks []string
	step := s.chunkSize - s.overlap
	for i := 0; i < len(runes); i += step {
		end := i + s.chunkSize
		if end > len(runes) {
			end = len(runes)
		}
		if chunk := strings.TrimSpace(string(runes[i:end])); chunk != "" {
			chunks = append(chunks, chunk)
		}
		if end == len(runes) {
			break
		}
	}
	return chunks
}

func (s *Splitter) overlapTail(current []rune) []rune {
	if s.overlap <= 0 || len(current) == 0 {
		return nil
	}
	if len(current) <= s.overlap {
		return append([]rune(nil), current...)
	}
	return append([]rune(nil), current[len(current)-s.overlap:]...)
}

func extractText(n ast.Node, source []byte) string {
	var sb strings.Builder
	_ = ast.Walk(n, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if node.Kind() == ast.KindText {
			sb.Write(node.(*ast.Text).Segment.Value(source))
			sb.WriteByte(' ')
		}
		return ast.WalkContinue, nil
	})
	return strings.TrimSpace(sb.String())
}
