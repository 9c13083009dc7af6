// Package sqlite persists the chunk store so sources survive restarts
// without re-fetching URLs or re-parsing PDFs. It is a write-through
// layer over the in-memory store: reads are served from memory, every
// mutation is committed to the database first.
package sqlite

import (
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "modernc.org/sqlite"

	"github.com/viraj200524/Document-Website-Chat/internal/chunkstore/memory"
	"github.com/viraj200524/Document-Website-Chat/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS sources (
	id          TEXT PRIMARY KEY,
	kind        TEXT NOT NULL,
	origin      TEXT NOT NULL,
	title       TEXT NOT NULL,
	ingested_at INTEGER NOT NULL,
	status      TEXT NOT NULL,
	error       TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS chunks (
	id        TEXT PRIMARY KEY,
	source_id TEXT NOT NULL REFERENCES sources(id) ON DELETE CASCADE,
	idx       INTEGER NOT NULL,
	text      TEXT NOT NULL,
	page      INTEGER NOT NULL DEFAULT 0,
	byte_off  INTEGER NOT NULL DEFAULT 0,
	anchor    TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_chunks_source ON chunks(source_id, idx);

CREATE TABLE IF NOT EXISTS meta (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
`

// Store is a sqlite-backed chunk store.
type Store struct {
	db  *sql.DB
	mem *memory.Store
	log *slog.Logger
}

// Open opens (creating if needed) the database at path and loads the
// persisted state into memory.
func Open(path string, logger *slog.Logger) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite store: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	s := &Store{db: db, mem: memory.NewStore(), log: logger}
	if err := s.load(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) load() error {
	rows, err := s.db.Query(`SELECT id, kind, origin, title, ingested_at, status, error
		FROM sources ORDER BY ingested_at`)
	if err != nil {
		return fmt.Errorf("load sources: %w", err)
	}
	defer rows.Close()
	var sources []domain.Source
	for rows.Next() {
		var src domain.Source
		var ingested int64
		if err := rows.Scan(&src.ID, &src.Kind, &src.Origin, &src.Title, &ingested, &src.Status, &src.Error); err != nil {
			return fmt.Errorf("scan source: %w", err)
		}
		src.IngestedAt = time.Unix(0, ingested)
		sources = append(sources, src)
	}
	if err := rows.Err(); err != nil {
		return err
	}
	for _, src := range sources {
		chunks, err := s.loadChunks(src.ID)
		if err != nil {
			return err
		}
		s.mem.Seed(src, chunks)
	}
	if v, err := s.metaVersion(); err == nil {
		_ = s.mem.SetSnapshotVersion(v)
	}
	s.log.Debug("loaded persisted state", "sources", len(sources))
	return nil
}

func (s *Store) loadChunks(sourceID string) ([]domain.Chunk, error) {
	rows, err := s.db.Query(`SELECT id, idx, text, page, byte_off, anchor
		FROM chunks WHERE source_id = ? ORDER BY idx`, sourceID)
	if err != nil {
		return nil, fmt.Errorf("load chunks: %w", err)
	}
	defer rows.Close()
	var chunks []domain.Chunk
	for rows.Next() {
		ch := domain.Chunk{SourceID: sourceID}
		if err := rows.Scan(&ch.ID, &ch.Index, &ch.Text, &ch.Page, &ch.Offset, &ch.Anchor); err != nil {
			return nil, fmt.Errorf("scan chunk: %w", err)
		}
		chunks = append(chunks, ch)
	}
	return chunks, rows.Err()
}

func (s *Store) metaVersion() (uint64, error) {
	var v uint64
	err := s.db.QueryRow(`SELECT value FROM meta WHERE key = 'snapshot_version'`).Scan(&v)
	return v, err
}

// Replace installs the chunk set for the source, committing to the
// database before the change becomes visible in memory.
func (s *Store) Replace(src domain.Source, chunks []domain.Chunk) (domain.Delta, error) {
	prevSrc, existed := s.mem.Source(src.ID)
	prevChunks := s.mem.BySource(src.ID)
	delta, err := s.mem.Replace(src, chunks)
	if err != nil || delta.Empty() {
		return delta, err
	}
	if err := s.persistReplace(delta.Source, chunks); err != nil {
		// memory and disk must not diverge; undo the memory change
		if existed {
			s.mem.Seed(prevSrc, prevChunks)
		} else {
			_, _ = s.mem.Remove(src.ID)
		}
		return domain.Delta{}, err
	}
	return delta, nil
}

func (s *Store) persistReplace(src domain.Source, chunks []domain.Chunk) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()
	if _, err := tx.Exec(`DELETE FROM sources WHERE id = ?`, src.ID); err != nil {
		return fmt.Errorf("delete source: %w", err)
	}
	if _, err := tx.Exec(`INSERT INTO sources (id, kind, origin, title, ingested_at, status, error)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		src.ID, src.Kind, src.Origin, src.Title, src.IngestedAt.UnixNano(), src.Status, src.Error); err != nil {
		return fmt.Errorf("insert source: %w", err)
	}
	for _, ch := range chunks {
		if _, err := tx.Exec(`INSERT INTO chunks (id, source_id, idx, text, page, byte_off, anchor)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			ch.ID, ch.SourceID, ch.Index, ch.Text, ch.Page, ch.Offset, ch.Anchor); err != nil {
			return fmt.Errorf("insert chunk: %w", err)
		}
	}
	return tx.Commit()
}

// Remove deletes the source and its chunks from disk and memory.
func (s *Store) Remove(sourceID string) (domain.Delta, error) {
	if _, err := s.db.Exec(`DELETE FROM sources WHERE id = ?`, sourceID); err != nil {
		return domain.Delta{}, fmt.Errorf("delete source: %w", err)
	}
	return s.mem.Remove(sourceID)
}

// BySource returns the chunks of one source in sequence order.
func (s *Store) BySource(sourceID string) []domain.Chunk { return s.mem.BySource(sourceID) }

// All returns every chunk ordered by source ingestion time then index.
func (s *Store) All() []domain.Chunk { return s.mem.All() }

// Sources returns all source records in ingestion order.
func (s *Store) Sources() []domain.Source { return s.mem.Sources() }

// Source returns one source record.
func (s *Store) Source(id string) (domain.Source, bool) { return s.mem.Source(id) }

// SetStatus records the ingestion outcome for a source.
func (s *Store) SetStatus(sourceID string, status domain.SourceStatus, detail string) error {
	if _, err := s.db.Exec(`UPDATE sources SET status = ?, error = ? WHERE id = ?`,
		status, detail, sourceID); err != nil {
		return fmt.Errorf("update status: %w", err)
	}
	return s.mem.SetStatus(sourceID, status, detail)
}

// SnapshotVersion returns the last recorded index snapshot version.
func (s *Store) SnapshotVersion() uint64 { return s.mem.SnapshotVersion() }

// SetSnapshotVersion records the index snapshot version.
func (s *Store) SetSnapshotVersion(v uint64) error {
	if _, err := s.db.Exec(`INSERT INTO meta (key, value) VALUES ('snapshot_version', ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`, v); err != nil {
		return fmt.Errorf("record snapshot version: %w", err)
	}
	return s.mem.SetSnapshotVersion(v)
}

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }
