package loader

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitterEmptyInput(t *testing.T) {
	s := NewSplitter(100, 10)
	assert.Nil(t, s.Split(""))
	assert.Nil(t, s.Split("   \n\t  "))
}

func TestSplitterShortText(t *testing.T) {
	s := NewSplitter(100, 10)
	spans := s.Split("  hello world  ")
	require.Len(t, spans, 1)
	assert.Equal(t, "hello world", spans[0].Text)
	assert.Equal(t, 2, spans[0].Start)
}

func TestSplitterSnapsToWordBoundary(t *testing.T) {
	s := NewSplitter(16, 4)
	spans := s.Split("One two. Three four five.")
	require.NotEmpty(t, spans)
	assert.Equal(t, "One two. Three", spans[0].Text)
}

func TestSplitterOffsetsPointIntoText(t *testing.T) {
	text := strings.Repeat("The quick brown fox jumps over the lazy dog. ", 40)
	s := NewSplitter(120, 20)
	spans := s.Split(text)
	require.Greater(t, len(spans), 1)
	for _, sp := range spans {
		require.LessOrEqual(t, sp.Start+len(sp.Text), len(text))
		assert.Equal(t, sp.Text, text[sp.Start:sp.Start+len(sp.Text)])
	}
	// consecutive spans overlap, so no content falls between them
	for i := 1; i < len(spans); i++ {
		assert.Less(t, spans[i].Start, spans[i-1].Start+len(spans[i-1].Text))
	}
	last := spans[len(spans)-1]
	assert.Contains(t, last.Text, "lazy dog.")
}

func TestSplitterNormalizesLineEndings(t *testing.T) {
	s := NewSplitter(100, 10)
	spans := s.Split("first line\r\nsecond line")
	require.Len(t, spans, 1)
	assert.Equal(t, "first line\nsecond line", spans[0].Text)
}

func TestSplitterParagraphBreak(t *testing.T) {
	para := strings.Repeat("alpha beta gamma delta. ", 4)
	text := para + "\n\n" + para
	s := NewSplitter(len([]rune(para))+4, 8)
	spans := s.Split(text)
	require.GreaterOrEqual(t, len(spans), 2)
	assert.NotContains(t, spans[0].Text, "\n\n")
}

func TestSplitterDefaults(t *testing.T) {
	s := NewSplitter(0, -1)
	assert.Equal(t, DefaultChunkSize, s.size)
	assert.Equal(t, DefaultChunkOverlap, s.overlap)

	// overlap must stay below the window size
	s = NewSplitter(40, 100)
	assert.Less(t, s.overlap, s.size)
}
