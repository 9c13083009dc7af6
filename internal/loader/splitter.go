package loader

import (
	"strings"
	"unicode/utf8"
)

// DefaultChunkSize is the default chunk window in characters.
const DefaultChunkSize = 800

// DefaultChunkOverlap is the default overlap between consecutive chunks.
const DefaultChunkOverlap = 80

// Span is a cut of the source text with its byte offset, so chunks keep
// positional provenance.
type Span struct {
	Text  string
	Start int
}

// Splitter cuts text into fixed-size character windows with overlap,
// snapping window ends to paragraph, sentence or word boundaries where
// one is close enough.
type Splitter struct {
	size    int
	overlap int
}

// NewSplitter creates a splitter. Non-positive size and negative overlap
// fall back to the defaults; overlap is capped below size.
func NewSplitter(size, overlap int) *Splitter {
	if size <= 0 {
		size = DefaultChunkSize
	}
	if overlap < 0 {
		overlap = DefaultChunkOverlap
	}
	if overlap >= size {
		overlap = size / 4
	}
	return &Splitter{size: size, overlap: overlap}
}

// Split cuts the text into spans. Empty or whitespace-only text produces
// no spans. Consecutive spans overlap by the configured amount so context
// crossing a boundary appears in both chunks.
func (s *Splitter) Split(text string) []Span {
	text = normalizeText(text)
	if strings.TrimSpace(text) == "" {
		return nil
	}
	runes := []rune(text)
	// byte offset of each rune position, for provenance
	offsets := make([]int, len(runes)+1)
	for i, r := range runes {
		offsets[i+1] = offsets[i] + utf8.RuneLen(r)
	}

	var spans []Span
	start := 0
	for start < len(runes) {
		end := start + s.size
		if end >= len(runes) {
			end = len(runes)
		} else {
			end = snapToBreak(runes, start, end)
		}
		raw := string(runes[start:end])
		lead := len(raw) - len(strings.TrimLeft(raw, " \t\n"))
		piece := strings.TrimSpace(raw)
		if piece != "" {
			spans = append(spans, Span{Text: piece, Start: offsets[start] + lead})
		}
		if end == len(runes) {
			break
		}
		next := end - s.overlap
		if next <= start {
			next = start + 1
		}
		start = next
	}
	return spans
}

// snapToBreak moves the window end back to the nearest natural boundary:
// paragraph break, sentence end, then whitespace. It looks back at most a
// quarter of the window so short windows are never produced.
func snapToBreak(runes []rune, start, end int) int {
	limit := end - (end-start)/4
	sentence, space := -1, -1
	for i := end - 1; i >= limit; i-- {
		switch runes[i] {
		case '\n':
			if i > 0 && runes[i-1] == '\n' {
				return i + 1
			}
			if space < 0 {
				space = i + 1
			}
		case '.', '!', '?':
			if sentence < 0 && i+1 < len(runes) && isSpaceRune(runes[i+1]) {
				sentence = i + 1
			}
		case ' ', '\t':
			if space < 0 {
				space = i + 1
			}
		}
	}
	if sentence > start {
		return sentence
	}
	if space > start {
		return space
	}
	return end
}

func isSpaceRune(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n'
}

// normalizeText canonicalizes line endings and strips carriage returns so
// offsets are stable across platforms.
func normalizeText(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	return strings.ReplaceAll(text, "\r", "\n")
}
