package memory

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/viraj200524/Document-Website-Chat/internal/domain"
)

type record struct {
	source domain.Source
	chunks []domain.Chunk
}

// Store is an in-memory chunk store. Ordering across sources follows
// ingestion time; replacing a source's content moves it to the end, as a
// re-ingestion is a new ingestion of that identity.
type Store struct {
	mu      sync.RWMutex
	records map[string]*record
	order   []string
	version uint64
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{records: make(map[string]*record)}
}

// Replace installs the chunk set for the source, replacing any prior one
// atomically. An unchanged chunk set is detected and returns an empty
// delta, leaving ordering and ingestion time untouched.
func (s *Store) Replace(src domain.Source, chunks []domain.Chunk) (domain.Delta, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	old, exists := s.records[src.ID]
	if exists && chunksEqual(old.chunks, chunks) {
		return domain.Delta{Source: old.source}, nil
	}
	src.IngestedAt = time.Now()
	delta := domain.Delta{Source: src, Added: cloneChunks(chunks)}
	if exists {
		delta.Removed = old.chunks
		s.dropFromOrder(src.ID)
	}
	s.records[src.ID] = &record{source: src, chunks: cloneChunks(chunks)}
	s.order = append(s.order, src.ID)
	return delta, nil
}

// Remove deletes the source and its chunks.
func (s *Store) Remove(sourceID string) (domain.Delta, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	old, exists := s.records[sourceID]
	if !exists {
		return domain.Delta{}, nil
	}
	delete(s.records, sourceID)
	s.dropFromOrder(sourceID)
	return domain.Delta{Source: old.source, Removed: old.chunks}, nil
}

// BySource returns the chunks of one source in sequence order.
func (s *Store) BySource(sourceID string) []domain.Chunk {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[sourceID]
	if !ok {
		return nil
	}
	return cloneChunks(rec.chunks)
}

// All returns every chunk ordered by source ingestion time then chunk
// sequence index.
func (s *Store) All() []domain.Chunk {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Chunk
	for _, id := range s.order {
		out = append(out, s.records[id].chunks...)
	}
	return out
}

// Sources returns all source records in ingestion order.
func (s *Store) Sources() []domain.Source {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Source, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.records[id].source)
	}
	return out
}

// Source returns one source record.
func (s *Store) Source(id string) (domain.Source, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[id]
	if !ok {
		return domain.Source{}, false
	}
	return rec.source, true
}

// SetStatus records the ingestion outcome for a source. Unknown sources
// get a bare record so failed loads still show up with their error.
func (s *Store) SetStatus(sourceID string, status domain.SourceStatus, detail string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[sourceID]
	if !ok {
		return fmt.Errorf("unknown source %s", sourceID)
	}
	rec.source.Status = status
	rec.source.Error = detail
	return nil
}

// SnapshotVersion returns the last recorded index snapshot version.
func (s *Store) SnapshotVersion() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// SetSnapshotVersion records the index snapshot version.
func (s *Store) SetSnapshotVersion(v uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.version = v
	return nil
}

// Close is a no-op for the in-memory store.
func (s *Store) Close() error { return nil }

// Seed inserts a source with its chunks preserving the recorded
// ingestion time. Used when restoring persisted state; callers must
// seed in ingestion order.
func (s *Store) Seed(src domain.Source, chunks []domain.Chunk) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.records[src.ID]; exists {
		s.dropFromOrder(src.ID)
	}
	s.records[src.ID] = &record{source: src, chunks: cloneChunks(chunks)}
	s.order = append(s.order, src.ID)
	sort.SliceStable(s.order, func(i, j int) bool {
		return s.records[s.order[i]].source.IngestedAt.Before(s.records[s.order[j]].source.IngestedAt)
	})
}

func (s *Store) dropFromOrder(id string) {
	for i, v := range s.order {
		if v == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			return
		}
	}
}

func chunksEqual(a, b []domain.Chunk) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].ID != b[i].ID || a[i].Text != b[i].Text {
			return false
		}
	}
	return true
}

func cloneChunks(chunks []domain.Chunk) []domain.Chunk {
	if chunks == nil {
		return nil
	}
	out := make([]domain.Chunk, len(chunks))
	copy(out, chunks)
	return out
}
