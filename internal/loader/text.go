package loader

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/viraj200524/Document-Website-Chat/internal/domain"
)

// Text loads plain text files. Chunks carry the byte offset of their
// start within the normalized file content.
type Text struct {
	splitter *Splitter
}

// NewText creates a plain text loader using the given splitter.
func NewText(splitter *Splitter) *Text {
	return &Text{splitter: splitter}
}

// Kind returns the source kind this loader handles.
func (t *Text) Kind() domain.SourceKind { return domain.KindText }

// Load normalizes and chunks the file content. Identity is the content
// hash, so the same file uploaded twice resolves to the same source.
func (t *Text) Load(ctx context.Context, in Input) (domain.Source, []domain.Chunk, error) {
	if err := ctx.Err(); err != nil {
		return domain.Source{}, nil, err
	}
	if !utf8.Valid(in.Data) {
		return domain.Source{}, nil, fmt.Errorf("%w: %s is not valid UTF-8 text", domain.ErrUnsupportedFormat, in.Name)
	}
	id := hashBytes(in.Data)
	src := domain.Source{
		ID:         id,
		Kind:       domain.KindText,
		Origin:     in.Name,
		Title:      titleFromName(in.Name),
		IngestedAt: time.Now(),
		Status:     domain.StatusPending,
	}
	spans := t.splitter.Split(string(in.Data))
	chunks := make([]domain.Chunk, 0, len(spans))
	for i, sp := range spans {
		chunks = append(chunks, domain.Chunk{
			ID:       chunkID(id, i),
			SourceID: id,
			Text:     sp.Text,
			Index:    i,
			Offset:   sp.Start,
		})
	}
	return src, chunks, nil
}

// titleFromName derives a display title from a file name, dropping the
// extension and separator characters.
func titleFromName(name string) string {
	base := name
	if i := strings.LastIndexAny(base, "/\\"); i >= 0 {
		base = base[i+1:]
	}
	if i := strings.LastIndex(base, "."); i > 0 {
		base = base[:i]
	}
	base = strings.ReplaceAll(base, "_", " ")
	base = strings.ReplaceAll(base, "-", " ")
	return strings.TrimSpace(base)
}
