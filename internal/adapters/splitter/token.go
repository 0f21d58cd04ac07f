// Package splitter provides the token-budget text splitter.
// Token counts are estimates; no model tokenizer is involved.
package splitter

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/0xcro3dile/docchat-go/internal/domain/ports"
)

// Options bound the produced segments.
type Options struct {
	// ChunkSize is the token budget of one segment.
	ChunkSize int
	// MinChunkSizeChars is the minimum length a segment must keep before
	// it may be cut short at sentence punctuation.
	MinChunkSizeChars int
	// MinChunkLengthToEmbed drops trimmed segments at or below this length.
	MinChunkLengthToEmbed int
	// MaxNumChunks caps the number of full windows per text.
	MaxNumChunks int
	// Overlap is the number of tokens repeated at the start of the next segment.
	Overlap int
}

// DefaultOptions returns the splitter defaults.
func DefaultOptions() Options {
	return Options{
		ChunkSize:             800,
		MinChunkSizeChars:     350,
		MinChunkLengthToEmbed: 5,
		MaxNumChunks:          10000,
		Overlap:               0,
	}
}

// EstimateTokens approximates the token count of s at four characters
// per token, rounded up.
func EstimateTokens(s string) int {
	return (utf8.RuneCountInString(s) + 3) / 4
}

// TokenSplitter implements ports.Splitter.
type TokenSplitter struct {
	opts Options
}

// NewTokenSplitter creates a splitter. Non-positive sizes fall back to the
// defaults and an overlap that does not fit the budget is disabled.
func NewTokenSplitter(opts Options) *TokenSplitter {
	def := DefaultOptions()
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = def.ChunkSize
	}
	if opts.MaxNumChunks <= 0 {
		opts.MaxNumChunks = def.MaxNumChunks
	}
	if opts.MinChunkSizeChars < 0 {
		opts.MinChunkSizeChars = 0
	}
	if opts.MinChunkLengthToEmbed < 0 {
		opts.MinChunkLengthToEmbed = 0
	}
	if opts.Overlap < 0 || opts.Overlap >= opts.ChunkSize {
		opts.Overlap = 0
	}
	return &TokenSplitter{opts: opts}
}

// Split cuts text into segments of at most ChunkSize estimated tokens.
// A window is shortened to its last '.', '?', '!' or newline when that
// keeps more than MinChunkSizeChars characters. Whitespace-only input
// yields no segments.
func (s *TokenSplitter) Split(text string) []ports.Segment {
	var segments []ports.Segment

	start := skipSpace(text, 0)
	windows := 0
	for start < len(text) && windows < s.opts.MaxNumChunks {
		end := s.window(text, start)
		cut := end
		if idx := strings.LastIndexAny(text[start:end], ".?!\n"); idx != -1 && idx > s.opts.MinChunkSizeChars {
			cut = start + idx + 1
		}

		segments = s.appendSegment(segments, text, start, cut)
		windows++

		next := cut
		if s.opts.Overlap > 0 && cut < len(text) {
			next = s.rewind(text, start, cut)
		}
		start = skipSpace(text, next)
	}

	// whatever is left after the last window becomes one final segment
	if start < len(text) {
		segments = s.appendSegment(segments, text, start, len(text))
	}

	return segments
}

func (s *TokenSplitter) appendSegment(segments []ports.Segment, text string, start, end int) []ports.Segment {
	raw := text[start:end]
	content := strings.TrimSpace(raw)
	if utf8.RuneCountInString(content) <= s.opts.MinChunkLengthToEmbed {
		return segments
	}
	return append(segments, ports.Segment{
		Content:    content,
		Offset:     start + strings.Index(raw, content),
		TokenCount: EstimateTokens(content),
	})
}

// window returns the end of the longest run of whole words starting at
// start that fits the token budget. At least one word is always taken.
func (s *TokenSplitter) window(text string, start int) int {
	end := start
	runes := 0
	for end < len(text) {
		next := nextWordEnd(text, end)
		n := runes + utf8.RuneCountInString(text[end:next])
		if (n+3)/4 > s.opts.ChunkSize && end > start {
			break
		}
		runes = n
		end = next
	}
	return end
}

// rewind moves back from cut by roughly Overlap tokens, snapped forward
// to a word start. It always returns a position after start.
func (s *TokenSplitter) rewind(text string, start, cut int) int {
	pos := cut
	for back := s.opts.Overlap * 4; back > 0 && pos > start; back-- {
		_, size := utf8.DecodeLastRuneInString(text[:pos])
		pos -= size
	}
	for pos < cut {
		r, size := utf8.DecodeRuneInString(text[pos:])
		if unicode.IsSpace(r) {
			break
		}
		pos += size
	}
	if pos <= start {
		return cut
	}
	return pos
}

func skipSpace(text string, i int) int {
	for i < len(text) {
		r, size := utf8.DecodeRuneInString(text[i:])
		if !unicode.IsSpace(r) {
			break
		}
		i += size
	}
	return i
}

// nextWordEnd returns the position just after the word that follows i,
// including the whitespace in front of it.
func nextWordEnd(text string, i int) int {
	i = skipSpace(text, i)
	for i < len(text) {
		r, size := utf8.DecodeRuneInString(text[i:])
		if unicode.IsSpace(r) {
			break
		}
		i += size
	}
	return i
}
