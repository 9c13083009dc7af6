// Package service ties the ingestion coordinator, retrieval engine and
// chunk store into the surface the UI consumes.
package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/viraj200524/Document-Website-Chat/internal/chunkstore"
	"github.com/viraj200524/Document-Website-Chat/internal/domain"
	"github.com/viraj200524/Document-Website-Chat/internal/ingest"
	"github.com/viraj200524/Document-Website-Chat/internal/loader"
	"github.com/viraj200524/Document-Website-Chat/internal/retrieval"
)

// Service exposes the core operations: add a source, poll its job, run
// retrieval queries, list sources.
type Service struct {
	coord  *ingest.Coordinator
	engine *retrieval.Engine
	store  chunkstore.Store
	topK   int
}

// New creates the service. topK is the result count used by Query;
// non-positive values fall back to the retrieval default.
func New(coord *ingest.Coordinator, engine *retrieval.Engine, store chunkstore.Store, topK int) *Service {
	if topK <= 0 {
		topK = retrieval.DefaultTopK
	}
	return &Service{coord: coord, engine: engine, store: store, topK: topK}
}

// Add ingests a local file path or an http(s) URL, dispatching on the
// reference shape, and returns the job handle.
func (s *Service) Add(ctx context.Context, ref string) (string, error) {
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		return s.AddURL(ctx, ref)
	}
	return s.AddPath(ctx, ref)
}

// AddPath ingests a local file. PDFs are detected by extension; anything
// else is treated as plain text.
func (s *Service) AddPath(ctx context.Context, path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	kind := domain.KindText
	if strings.EqualFold(filepath.Ext(path), ".pdf") {
		kind = domain.KindPDF
	}
	return s.coord.Submit(ctx, loader.Input{
		Kind: kind,
		Name: filepath.Base(path),
		Data: data,
	})
}

// AddURL ingests a web page.
func (s *Service) AddURL(ctx context.Context, url string) (string, error) {
	return s.coord.Submit(ctx, loader.Input{Kind: domain.KindURL, URL: url})
}

// Status reports the state of an ingestion job.
func (s *Service) Status(handle string) (domain.JobStatus, error) {
	return s.coord.Status(handle)
}

// Await blocks until the job finishes or the context is done.
func (s *Service) Await(ctx context.Context, handle string) (domain.JobStatus, error) {
	return s.coord.Await(ctx, handle)
}

// Cancel aborts a pending ingestion job.
func (s *Service) Cancel(handle string) error {
	return s.coord.Cancel(handle)
}

// Query retrieves the configured number of top chunks for the query.
func (s *Service) Query(ctx context.Context, query string) ([]domain.SearchResult, error) {
	return s.engine.Retrieve(ctx, query, s.topK)
}

// Retrieve retrieves the top k chunks; k must be positive.
func (s *Service) Retrieve(ctx context.Context, query string, k int) ([]domain.SearchResult, error) {
	return s.engine.Retrieve(ctx, query, k)
}

// Sources lists all known sources with their status, in ingestion order.
func (s *Service) Sources() []domain.Source {
	return s.store.Sources()
}

// ChunkCount returns the number of stored chunks.
func (s *Service) ChunkCount() int {
	return len(s.store.All())
}

// Clear removes every source and its chunks from store and index.
func (s *Service) Clear(ctx context.Context) error {
	for _, src := range s.store.Sources() {
		if err := s.coord.Remove(ctx, src.ID); err != nil {
			return err
		}
	}
	return nil
}
