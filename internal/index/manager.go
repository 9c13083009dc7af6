// Package index maintains the searchable vector index as a sequence of
// immutable, versioned snapshots. Writers apply deltas one at a time;
// readers load the current snapshot with a single atomic load and are
// never blocked by an in-progress update or rebuild.
package index

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"

	"github.com/viraj200524/Document-Website-Chat/internal/domain"
	"github.com/viraj200524/Document-Website-Chat/internal/embedding"
)

// Manager owns the current snapshot and applies chunk deltas to it.
type Manager struct {
	embedder embedding.Embedder
	log      *slog.Logger

	mu   sync.Mutex // serializes ApplyDelta and Restore
	enc  embedding.Encoder
	snap atomic.Pointer[Snapshot]
}

// NewManager creates a manager publishing the empty snapshot (version 0).
func NewManager(embedder embedding.Embedder, logger *slog.Logger) *Manager {
	m := &Manager{embedder: embedder, log: logger}
	m.snap.Store(&Snapshot{})
	return m
}

// Current returns the latest published snapshot.
func (m *Manager) Current() *Snapshot {
	return m.snap.Load()
}

// ApplyDelta builds and publishes a new snapshot with the delta applied
// and returns its version. On any error nothing is published: the prior
// snapshot stays current and the version does not move. The new snapshot
// is built off to the side, so readers of the prior one are never
// blocked, even during a full rebuild.
func (m *Manager) ApplyDelta(ctx context.Context, delta domain.Delta) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cur := m.snap.Load()
	if delta.Empty() {
		return cur.version, nil
	}

	kept := remaining(cur.entries, delta.Removed)
	next, err := m.build(ctx, kept, delta.Added)
	if err != nil {
		return 0, err
	}
	next.version = cur.version + 1
	m.snap.Store(next)
	m.log.Debug("published snapshot",
		"version", next.version, "chunks", len(next.entries),
		"added", len(delta.Added), "removed", len(delta.Removed))
	return next.version, nil
}

// Restore rebuilds the index from persisted chunks and publishes the
// result at the recorded version. Used at startup by persistent stores.
func (m *Manager) Restore(ctx context.Context, chunks []domain.Chunk, version uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	added := make([]domain.Chunk, len(chunks))
	copy(added, chunks)
	next, err := m.build(ctx, nil, added)
	if err != nil {
		return err
	}
	next.version = version
	m.snap.Store(next)
	m.log.Debug("restored snapshot", "version", version, "chunks", len(chunks))
	return nil
}

// build produces an unversioned snapshot over kept entries plus added
// chunks. Corpus-dependent embedders re-encode everything against a
// freshly fitted encoder; incremental ones encode only the additions.
func (m *Manager) build(ctx context.Context, kept []entry, added []domain.Chunk) (*Snapshot, error) {
	if len(kept)+len(added) == 0 {
		return &Snapshot{}, nil
	}

	if m.embedder.Incremental() {
		if m.enc == nil {
			enc, err := m.embedder.Fit(ctx, nil)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", domain.ErrEmbedding, err)
			}
			m.enc = enc
		}
		entries := make([]entry, 0, len(kept)+len(added))
		entries = append(entries, kept...)
		for _, ch := range added {
			vec, err := m.enc.Encode(ctx, ch.Text)
			if err != nil {
				return nil, fmt.Errorf("%w: chunk %s: %v", domain.ErrEmbedding, ch.ID, err)
			}
			normalize(vec)
			entries = append(entries, entry{chunk: ch, vector: vec})
		}
		return &Snapshot{entries: entries, encoder: m.enc}, nil
	}

	// Full rebuild: the vocabulary depends on the corpus, so every chunk
	// is re-encoded against a fresh encoder.
	chunks := make([]domain.Chunk, 0, len(kept)+len(added))
	for _, e := range kept {
		chunks = append(chunks, e.chunk)
	}
	chunks = append(chunks, added...)
	corpus := make([]string, len(chunks))
	for i, ch := range chunks {
		corpus[i] = ch.Text
	}
	enc, err := m.embedder.Fit(ctx, corpus)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrRebuild, err)
	}
	entries := make([]entry, 0, len(chunks))
	for _, ch := range chunks {
		vec, err := enc.Encode(ctx, ch.Text)
		if err != nil {
			return nil, fmt.Errorf("%w: chunk %s: %v", domain.ErrEmbedding, ch.ID, err)
		}
		normalize(vec)
		entries = append(entries, entry{chunk: ch, vector: vec})
	}
	return &Snapshot{entries: entries, encoder: enc}, nil
}

// remaining filters out removed chunks, preserving snapshot order.
func remaining(entries []entry, removed []domain.Chunk) []entry {
	if len(removed) == 0 {
		out := make([]entry, len(entries))
		copy(out, entries)
		return out
	}
	drop := make(map[string]struct{}, len(removed))
	for _, ch := range removed {
		drop[ch.ID] = struct{}{}
	}
	out := make([]entry, 0, len(entries))
	for _, e := range entries {
		if _, gone := drop[e.chunk.ID]; gone {
			continue
		}
		out = append(out, e)
	}
	return out
}

func normalize(vec []float64) {
	norm := 0.0
	for _, v := range vec {
		norm += v * v
	}
	norm = math.Sqrt(norm)
	if norm > 0 {
		for i := range vec {
			vec[i] /= norm
		}
	}
}
