// Package ingest coordinates concurrent "add source" requests. Loading,
// fetching and embedding run concurrently across jobs without holding
// any lock; only the final store-and-publish step is serialized, so
// retrieval never observes a partially updated index.
package ingest

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/viraj200524/Document-Website-Chat/internal/chunkstore"
	"github.com/viraj200524/Document-Website-Chat/internal/domain"
	"github.com/viraj200524/Document-Website-Chat/internal/index"
	"github.com/viraj200524/Document-Website-Chat/internal/loader"
)

type job struct {
	handle   string
	sourceID string
	origin   string
	state    domain.JobState
	err      string
	cancel   context.CancelFunc
	done     chan struct{}
}

// Coordinator runs the load → chunk → store → index pipeline for
// submitted sources and tracks each job's state.
type Coordinator struct {
	loaders *loader.Registry
	store   chunkstore.Store
	index   *index.Manager
	log     *slog.Logger

	mu      sync.Mutex
	jobs    map[string]*job
	pending map[string]string // source ID -> handle of its pending job

	// applyMu is the single-writer section: store mutation plus index
	// publish happen together, one job at a time. It is never held
	// across a fetch or an embedding call for an unrelated job.
	applyMu sync.Mutex

	wg sync.WaitGroup
}

// NewCoordinator creates a coordinator over the given pipeline stages.
func NewCoordinator(loaders *loader.Registry, store chunkstore.Store, mgr *index.Manager, logger *slog.Logger) *Coordinator {
	return &Coordinator{
		loaders: loaders,
		store:   store,
		index:   mgr,
		log:     logger,
		jobs:    make(map[string]*job),
		pending: make(map[string]string),
	}
}

// Submit starts ingesting the source and returns a job handle without
// waiting for completion. A source whose identity already has a pending
// job is rejected with ErrDuplicateSubmission.
func (c *Coordinator) Submit(ctx context.Context, in loader.Input) (string, error) {
	sourceID, err := c.loaders.Identity(in)
	if err != nil {
		return "", err
	}
	origin := in.Name
	if in.Kind == domain.KindURL {
		origin = in.URL
	}

	c.mu.Lock()
	if handle, dup := c.pending[sourceID]; dup {
		c.mu.Unlock()
		return handle, domain.ErrDuplicateSubmission
	}
	jctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	j := &job{
		handle:   uuid.NewString(),
		sourceID: sourceID,
		origin:   origin,
		state:    domain.JobPending,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
	c.jobs[j.handle] = j
	c.pending[sourceID] = j.handle
	c.mu.Unlock()

	c.log.Info("ingestion submitted", "source", sourceID, "origin", origin, "job", j.handle)
	c.wg.Add(1)
	go c.run(jctx, j, in)
	return j.handle, nil
}

// Status reports the state of a job.
func (c *Coordinator) Status(handle string) (domain.JobStatus, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	j, ok := c.jobs[handle]
	if !ok {
		return domain.JobStatus{}, domain.ErrJobNotFound
	}
	return j.status(), nil
}

// Cancel aborts a job that has not reached a terminal state. Cancelling
// a finished job is a no-op.
func (c *Coordinator) Cancel(handle string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	j, ok := c.jobs[handle]
	if !ok {
		return domain.ErrJobNotFound
	}
	j.cancel()
	return nil
}

// Await blocks until the job finishes or the context is done.
func (c *Coordinator) Await(ctx context.Context, handle string) (domain.JobStatus, error) {
	c.mu.Lock()
	j, ok := c.jobs[handle]
	c.mu.Unlock()
	if !ok {
		return domain.JobStatus{}, domain.ErrJobNotFound
	}
	select {
	case <-j.done:
	case <-ctx.Done():
		return domain.JobStatus{}, ctx.Err()
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return j.status(), nil
}

// Jobs returns the status of every job the coordinator has seen.
func (c *Coordinator) Jobs() []domain.JobStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]domain.JobStatus, 0, len(c.jobs))
	for _, j := range c.jobs {
		out = append(out, j.status())
	}
	return out
}

// Remove deletes a source and unpublishes its chunks.
func (c *Coordinator) Remove(ctx context.Context, sourceID string) error {
	c.applyMu.Lock()
	defer c.applyMu.Unlock()
	delta, err := c.store.Remove(sourceID)
	if err != nil {
		return err
	}
	if delta.Empty() {
		return nil
	}
	version, err := c.index.ApplyDelta(ctx, delta)
	if err != nil {
		return err
	}
	return c.store.SetSnapshotVersion(version)
}

// Close waits for in-flight jobs to finish.
func (c *Coordinator) Close() {
	c.wg.Wait()
}

// run executes one ingestion job. The load stage (network fetch, PDF
// parsing) runs without any coordinator lock; only publish serializes.
func (c *Coordinator) run(ctx context.Context, j *job, in loader.Input) {
	defer c.wg.Done()
	defer close(j.done)
	defer func() {
		c.mu.Lock()
		if c.pending[j.sourceID] == j.handle {
			delete(c.pending, j.sourceID)
		}
		c.mu.Unlock()
	}()

	src, chunks, err := c.loaders.Load(ctx, in)
	if err != nil {
		c.failLoad(j, in, err)
		return
	}

	c.applyMu.Lock()
	defer c.applyMu.Unlock()

	if err := ctx.Err(); err != nil {
		// cancelled before publish: store and index untouched
		c.fail(j, err)
		return
	}

	prevSrc, existed := c.store.Source(src.ID)
	prevChunks := c.store.BySource(src.ID)

	delta, err := c.store.Replace(src, chunks)
	if err != nil {
		c.fail(j, err)
		return
	}
	if delta.Empty() {
		// same content already indexed; no new snapshot
		_ = c.store.SetStatus(src.ID, domain.StatusReady, "")
		c.finish(j)
		return
	}

	version, err := c.index.ApplyDelta(ctx, delta)
	if err != nil {
		c.rollback(j, src, prevSrc, prevChunks, existed, err)
		return
	}
	if err := c.store.SetStatus(src.ID, domain.StatusReady, ""); err != nil {
		c.fail(j, err)
		return
	}
	if err := c.store.SetSnapshotVersion(version); err != nil {
		c.log.Warn("failed to persist snapshot version", "version", version, "error", err)
	}
	c.log.Info("source ready", "source", src.ID, "chunks", len(chunks), "snapshot", version)
	c.finish(j)
}

// failLoad records a load failure. The source record is created (empty,
// failed) only when the identity is new; an already-indexed source keeps
// serving its current content when a refetch fails.
func (c *Coordinator) failLoad(j *job, in loader.Input, cause error) {
	c.applyMu.Lock()
	defer c.applyMu.Unlock()
	if _, exists := c.store.Source(j.sourceID); !exists {
		src := domain.Source{
			ID:     j.sourceID,
			Kind:   in.Kind,
			Origin: j.origin,
			Status: domain.StatusFailed,
		}
		if _, err := c.store.Replace(src, nil); err == nil {
			_ = c.store.SetStatus(j.sourceID, domain.StatusFailed, cause.Error())
		}
	}
	c.fail(j, cause)
}

// rollback restores the pre-delta chunk set after an index failure, so
// the store never disagrees with the published snapshot.
func (c *Coordinator) rollback(j *job, src, prevSrc domain.Source, prevChunks []domain.Chunk, existed bool, cause error) {
	if existed {
		if _, err := c.store.Replace(prevSrc, prevChunks); err != nil {
			c.log.Error("rollback failed", "source", src.ID, "error", err)
		}
		_ = c.store.SetStatus(src.ID, prevSrc.Status, prevSrc.Error)
	} else {
		if _, err := c.store.Replace(src, nil); err == nil {
			_ = c.store.SetStatus(src.ID, domain.StatusFailed, cause.Error())
		}
	}
	c.fail(j, cause)
}

func (c *Coordinator) fail(j *job, cause error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	j.state = domain.JobFailed
	j.err = cause.Error()
	c.log.Warn("ingestion failed", "job", j.handle, "source", j.sourceID, "error", cause)
}

func (c *Coordinator) finish(j *job) {
	c.mu.Lock()
	defer c.mu.Unlock()
	j.state = domain.JobReady
}

func (j *job) status() domain.JobStatus {
	return domain.JobStatus{
		Handle:   j.handle,
		SourceID: j.sourceID,
		Origin:   j.origin,
		State:    j.state,
		Error:    j.err,
	}
}
