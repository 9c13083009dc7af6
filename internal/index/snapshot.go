package index

import (
	"context"
	"sort"

	"github.com/viraj200524/Document-Website-Chat/internal/domain"
	"github.com/viraj200524/Document-Website-Chat/internal/embedding"
)

type entry struct {
	chunk  domain.Chunk
	vector []float64
}

// Snapshot is an immutable, versioned view of the index. Entry order is
// source ingestion order then chunk sequence index, which is also the
// tie-break order for equal scores. A snapshot never changes after
// publication; queries in flight keep reading the snapshot they started
// with.
type Snapshot struct {
	version uint64
	entries []entry
	encoder embedding.Encoder
}

// Version returns the snapshot's monotonically increasing version.
// Version 0 is the empty snapshot before any delta was applied.
func (s *Snapshot) Version() uint64 { return s.version }

// Len returns the number of indexed chunks.
func (s *Snapshot) Len() int { return len(s.entries) }

// Chunks returns the indexed chunks in snapshot order.
func (s *Snapshot) Chunks() []domain.Chunk {
	out := make([]domain.Chunk, len(s.entries))
	for i := range s.entries {
		out[i] = s.entries[i].chunk
	}
	return out
}

// EncodeQuery encodes a query against this snapshot's vocabulary.
func (s *Snapshot) EncodeQuery(ctx context.Context, query string) ([]float64, error) {
	if s.encoder == nil {
		return nil, nil
	}
	vec, err := s.encoder.Encode(ctx, query)
	if err != nil {
		return nil, err
	}
	normalize(vec)
	return vec, nil
}

// Search scores every entry against the query vector by cosine
// similarity and returns the top k, ordered by score descending with
// ties broken by snapshot position.
func (s *Snapshot) Search(vec []float64, k int) []domain.SearchResult {
	if k <= 0 || len(s.entries) == 0 {
		return nil
	}
	type scored struct {
		pos   int
		score float64
	}
	scores := make([]scored, len(s.entries))
	for i := range s.entries {
		scores[i] = scored{pos: i, score: dot(s.entries[i].vector, vec)}
	}
	sort.SliceStable(scores, func(i, j int) bool {
		if scores[i].score != scores[j].score {
			return scores[i].score > scores[j].score
		}
		return scores[i].pos < scores[j].pos
	})
	if k > len(scores) {
		k = len(scores)
	}
	out := make([]domain.SearchResult, 0, k)
	for _, sc := range scores[:k] {
		out = append(out, domain.SearchResult{Chunk: s.entries[sc.pos].chunk, Score: sc.score})
	}
	return out
}

func dot(a, b []float64) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	sum := 0.0
	for i := 0; i < n; i++ {
		sum += a[i] * b[i]
	}
	return sum
}
