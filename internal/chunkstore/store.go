// Package chunkstore holds every chunk ever ingested, keyed by source
// identity, and reports the delta each mutation produces so the index
// can be updated in one atomic step.
package chunkstore

import "github.com/viraj200524/Document-Website-Chat/internal/domain"

// Store persists sources and their chunks.
//
// Replace and Remove return the Delta the mutation produced; the
// ingestion coordinator forwards it to the index manager inside its
// single-writer section. Replace is idempotent per source identity:
// resubmitting an unchanged chunk set returns an empty Delta, and
// changed content replaces the prior chunks atomically.
type Store interface {
	Replace(src domain.Source, chunks []domain.Chunk) (domain.Delta, error)
	Remove(sourceID string) (domain.Delta, error)

	// BySource returns the chunks of one source in sequence order.
	BySource(sourceID string) []domain.Chunk

	// All returns every chunk, ordered by source ingestion time then
	// chunk sequence index.
	All() []domain.Chunk

	Sources() []domain.Source
	Source(id string) (domain.Source, bool)
	SetStatus(sourceID string, status domain.SourceStatus, detail string) error

	// SnapshotVersion bookkeeping lets persistent stores restore the
	// index version across restarts.
	SnapshotVersion() uint64
	SetSnapshotVersion(v uint64) error

	Close() error
}
