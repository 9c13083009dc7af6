package loader

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/ledongthuc/pdf"

	"github.com/viraj200524/Document-Website-Chat/internal/domain"
)

// PDF loads PDF files. Chunks carry the 1-based page number their text
// starts on.
type PDF struct {
	splitter *Splitter
}

// NewPDF creates a PDF loader using the given splitter.
func NewPDF(splitter *Splitter) *PDF {
	return &PDF{splitter: splitter}
}

// Kind returns the source kind this loader handles.
func (p *PDF) Kind() domain.SourceKind { return domain.KindPDF }

// Load extracts per-page text and chunks the concatenation. Corrupt and
// encrypted files fail with a parse error.
func (p *PDF) Load(ctx context.Context, in Input) (src domain.Source, chunks []domain.Chunk, err error) {
	// The underlying parser panics on some malformed files.
	defer func() {
		if r := recover(); r != nil {
			src, chunks = domain.Source{}, nil
			err = fmt.Errorf("%w: %s: %v", domain.ErrParse, in.Name, r)
		}
	}()

	if err := ctx.Err(); err != nil {
		return domain.Source{}, nil, err
	}
	reader, err := pdf.NewReader(bytes.NewReader(in.Data), int64(len(in.Data)))
	if err != nil {
		return domain.Source{}, nil, fmt.Errorf("%w: %s: %v", domain.ErrParse, in.Name, err)
	}

	var sb strings.Builder
	type pageMark struct {
		start int // byte offset in the concatenated text
		page  int
	}
	var marks []pageMark
	for i := 1; i <= reader.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return domain.Source{}, nil, err
		}
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return domain.Source{}, nil, fmt.Errorf("%w: %s page %d: %v", domain.ErrParse, in.Name, i, err)
		}
		text = normalizeText(text)
		if strings.TrimSpace(text) == "" {
			continue
		}
		marks = append(marks, pageMark{start: sb.Len(), page: i})
		sb.WriteString(text)
		sb.WriteString("\n")
	}
	if len(marks) == 0 {
		return domain.Source{}, nil, fmt.Errorf("%w: %s has no extractable text", domain.ErrParse, in.Name)
	}

	id := hashBytes(in.Data)
	src = domain.Source{
		ID:         id,
		Kind:       domain.KindPDF,
		Origin:     in.Name,
		Title:      titleFromName(in.Name),
		IngestedAt: time.Now(),
		Status:     domain.StatusPending,
	}
	spans := p.splitter.Split(sb.String())
	chunks = make([]domain.Chunk, 0, len(spans))
	for i, sp := range spans {
		// last page starting at or before the span
		j := sort.Search(len(marks), func(k int) bool { return marks[k].start > sp.Start })
		chunks = append(chunks, domain.Chunk{
			ID:       chunkID(id, i),
			SourceID: id,
			Text:     sp.Text,
			Index:    i,
			Page:     marks[j-1].page,
			Offset:   sp.Start,
		})
	}
	return src, chunks, nil
}
