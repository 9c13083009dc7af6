package ingest

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/viraj200524/Document-Website-Chat/internal/chunkstore/memory"
	"github.com/viraj200524/Document-Website-Chat/internal/domain"
	"github.com/viraj200524/Document-Website-Chat/internal/embedding"
	"github.com/viraj200524/Document-Website-Chat/internal/index"
	"github.com/viraj200524/Document-Website-Chat/internal/loader"
	applog "github.com/viraj200524/Document-Website-Chat/internal/log"
)

// stubEmbedder encodes every text to the same unit vector, except a
// designated poison text that fails.
type stubEmbedder struct {
	failOn string
}

func (s *stubEmbedder) Name() string      { return "stub" }
func (s *stubEmbedder) Incremental() bool { return true }
func (s *stubEmbedder) Fit(ctx context.Context, corpus []string) (embedding.Encoder, error) {
	return s, nil
}
func (s *stubEmbedder) Dimension() int { return 2 }
func (s *stubEmbedder) Encode(ctx context.Context, text string) ([]float64, error) {
	if s.failOn != "" && text == s.failOn {
		return nil, errors.New("embedding backend rejected input")
	}
	return []float64{1, 0}, nil
}

// stubURLLoader serves settable content for any URL, gated if gate is
// non-nil. Content is one chunk per line.
type stubURLLoader struct {
	mu      sync.Mutex
	content string
	loadErr error
	gate    chan struct{}
}

func (s *stubURLLoader) Kind() domain.SourceKind { return domain.KindURL }

func (s *stubURLLoader) set(content string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.content = content
	s.loadErr = err
}

func (s *stubURLLoader) Load(ctx context.Context, in loader.Input) (domain.Source, []domain.Chunk, error) {
	if s.gate != nil {
		select {
		case <-s.gate:
		case <-ctx.Done():
			return domain.Source{}, nil, ctx.Err()
		}
	}
	s.mu.Lock()
	content, loadErr := s.content, s.loadErr
	s.mu.Unlock()
	if loadErr != nil {
		return domain.Source{}, nil, loadErr
	}
	id, err := loader.NewRegistry().Identity(in)
	if err != nil {
		return domain.Source{}, nil, err
	}
	src := domain.Source{
		ID: id, Kind: domain.KindURL, Origin: in.URL,
		IngestedAt: time.Now(), Status: domain.StatusPending,
	}
	var chunks []domain.Chunk
	for i, line := range splitLines(content) {
		chunks = append(chunks, domain.Chunk{
			ID: id + ":" + itoa(i), SourceID: id, Text: line, Index: i,
		})
	}
	return src, chunks, nil
}

func splitLines(s string) []string {
	var out []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			if i > start {
				out = append(out, s[start:i])
			}
			start = i + 1
		}
	}
	if start < len(s) {
		out = append(out, s[start:])
	}
	return out
}

func itoa(i int) string { return string(rune('0' + i)) }

type harness struct {
	store *memory.Store
	mgr   *index.Manager
	coord *Coordinator
	url   *stubURLLoader
}

func newHarness(t *testing.T, emb embedding.Embedder, gate chan struct{}) *harness {
	t.Helper()
	if emb == nil {
		emb = &stubEmbedder{}
	}
	url := &stubURLLoader{gate: gate}
	reg := loader.NewRegistry(loader.NewText(loader.NewSplitter(200, 20)), url)
	store := memory.NewStore()
	mgr := index.NewManager(emb, applog.NewNop())
	coord := NewCoordinator(reg, store, mgr, applog.NewNop())
	t.Cleanup(coord.Close)
	return &harness{store: store, mgr: mgr, coord: coord, url: url}
}

func textInput(name, content string) loader.Input {
	return loader.Input{Kind: domain.KindText, Name: name, Data: []byte(content)}
}

func TestSubmitIngestsTextSource(t *testing.T) {
	h := newHarness(t, nil, nil)
	handle, err := h.coord.Submit(context.Background(), textInput("notes.txt", "some indexed prose"))
	require.NoError(t, err)

	status, err := h.coord.Await(context.Background(), handle)
	require.NoError(t, err)
	assert.Equal(t, domain.JobReady, status.State)
	assert.Empty(t, status.Error)

	src, ok := h.store.Source(status.SourceID)
	require.True(t, ok)
	assert.Equal(t, domain.StatusReady, src.Status)
	assert.Len(t, h.store.BySource(status.SourceID), 1)

	snap := h.mgr.Current()
	assert.EqualValues(t, 1, snap.Version())
	assert.Equal(t, 1, snap.Len())
	assert.EqualValues(t, 1, h.store.SnapshotVersion())
}

func TestDuplicatePendingSubmissionRejected(t *testing.T) {
	gate := make(chan struct{})
	h := newHarness(t, nil, gate)
	h.url.set("page body", nil)

	first, err := h.coord.Submit(context.Background(), loader.Input{Kind: domain.KindURL, URL: "https://example.com/a"})
	require.NoError(t, err)

	second, err := h.coord.Submit(context.Background(), loader.Input{Kind: domain.KindURL, URL: "https://example.com/a"})
	require.ErrorIs(t, err, domain.ErrDuplicateSubmission)
	assert.Equal(t, first, second, "duplicate reports the handle of the pending job")

	close(gate)
	status, err := h.coord.Await(context.Background(), first)
	require.NoError(t, err)
	assert.Equal(t, domain.JobReady, status.State)
}

func TestResubmitAfterCompletionIsIdempotent(t *testing.T) {
	h := newHarness(t, nil, nil)
	h.url.set("stable page body", nil)
	in := loader.Input{Kind: domain.KindURL, URL: "https://example.com/a"}

	h1, err := h.coord.Submit(context.Background(), in)
	require.NoError(t, err)
	_, err = h.coord.Await(context.Background(), h1)
	require.NoError(t, err)
	version := h.mgr.Current().Version()

	h2, err := h.coord.Submit(context.Background(), in)
	require.NoError(t, err)
	status, err := h.coord.Await(context.Background(), h2)
	require.NoError(t, err)
	assert.Equal(t, domain.JobReady, status.State)
	assert.Equal(t, version, h.mgr.Current().Version(), "unchanged content must not publish a new snapshot")
	assert.Len(t, h.store.Sources(), 1)
}

func TestChangedContentReplacesChunks(t *testing.T) {
	h := newHarness(t, nil, nil)
	in := loader.Input{Kind: domain.KindURL, URL: "https://example.com/a"}

	h.url.set("old body", nil)
	h1, err := h.coord.Submit(context.Background(), in)
	require.NoError(t, err)
	_, err = h.coord.Await(context.Background(), h1)
	require.NoError(t, err)

	h.url.set("new body line one\nnew body line two", nil)
	h2, err := h.coord.Submit(context.Background(), in)
	require.NoError(t, err)
	status, err := h.coord.Await(context.Background(), h2)
	require.NoError(t, err)
	require.Equal(t, domain.JobReady, status.State)

	snap := h.mgr.Current()
	assert.EqualValues(t, 2, snap.Version())
	require.Equal(t, 2, snap.Len())
	texts := []string{snap.Chunks()[0].Text, snap.Chunks()[1].Text}
	assert.Equal(t, []string{"new body line one", "new body line two"}, texts)
	assert.Len(t, h.store.Sources(), 1, "same identity must not duplicate the source")
}

func TestLoadFailureRecordsFailedSource(t *testing.T) {
	h := newHarness(t, nil, nil)
	h.url.set("", errors.New("connection refused"))
	in := loader.Input{Kind: domain.KindURL, URL: "https://example.com/down"}

	handle, err := h.coord.Submit(context.Background(), in)
	require.NoError(t, err)
	status, err := h.coord.Await(context.Background(), handle)
	require.NoError(t, err)
	assert.Equal(t, domain.JobFailed, status.State)
	assert.Contains(t, status.Error, "connection refused")

	src, ok := h.store.Source(status.SourceID)
	require.True(t, ok, "failed loads leave a visible failed source record")
	assert.Equal(t, domain.StatusFailed, src.Status)
	assert.Empty(t, h.store.BySource(status.SourceID))
	assert.EqualValues(t, 0, h.mgr.Current().Version(), "a failed load must not touch the index")
}

func TestIndexFailureRollsBackNewSource(t *testing.T) {
	h := newHarness(t, &stubEmbedder{failOn: "poison"}, nil)
	handle, err := h.coord.Submit(context.Background(), textInput("bad.txt", "poison"))
	require.NoError(t, err)
	status, err := h.coord.Await(context.Background(), handle)
	require.NoError(t, err)
	assert.Equal(t, domain.JobFailed, status.State)

	src, ok := h.store.Source(status.SourceID)
	require.True(t, ok)
	assert.Equal(t, domain.StatusFailed, src.Status)
	assert.Empty(t, h.store.BySource(status.SourceID), "store must not keep chunks the index rejected")
	assert.EqualValues(t, 0, h.mgr.Current().Version())
}

func TestIndexFailureRestoresPriorContent(t *testing.T) {
	h := newHarness(t, &stubEmbedder{failOn: "poison"}, nil)
	in := loader.Input{Kind: domain.KindURL, URL: "https://example.com/a"}

	h.url.set("good content", nil)
	h1, err := h.coord.Submit(context.Background(), in)
	require.NoError(t, err)
	st, err := h.coord.Await(context.Background(), h1)
	require.NoError(t, err)
	require.Equal(t, domain.JobReady, st.State)

	h.url.set("poison", nil)
	h2, err := h.coord.Submit(context.Background(), in)
	require.NoError(t, err)
	status, err := h.coord.Await(context.Background(), h2)
	require.NoError(t, err)
	assert.Equal(t, domain.JobFailed, status.State)

	// the earlier content keeps serving queries
	snap := h.mgr.Current()
	assert.EqualValues(t, 1, snap.Version())
	require.Equal(t, 1, snap.Len())
	assert.Equal(t, "good content", snap.Chunks()[0].Text)

	chunks := h.store.BySource(status.SourceID)
	require.Len(t, chunks, 1)
	assert.Equal(t, "good content", chunks[0].Text)
	src, _ := h.store.Source(status.SourceID)
	assert.Equal(t, domain.StatusReady, src.Status)
}

func TestCancelPendingJob(t *testing.T) {
	gate := make(chan struct{})
	defer close(gate)
	h := newHarness(t, nil, gate)
	h.url.set("never published", nil)

	handle, err := h.coord.Submit(context.Background(), loader.Input{Kind: domain.KindURL, URL: "https://example.com/slow"})
	require.NoError(t, err)
	require.NoError(t, h.coord.Cancel(handle))

	status, err := h.coord.Await(context.Background(), handle)
	require.NoError(t, err)
	assert.Equal(t, domain.JobFailed, status.State)
	assert.EqualValues(t, 0, h.mgr.Current().Version(), "cancelled jobs must not publish")
}

func TestConcurrentSubmissionsAllPublish(t *testing.T) {
	h := newHarness(t, nil, nil)
	inputs := []loader.Input{
		textInput("a.txt", "first document body"),
		textInput("b.txt", "second document body"),
		textInput("c.txt", "third document body"),
	}

	handles := make([]string, len(inputs))
	var wg sync.WaitGroup
	for i, in := range inputs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			handle, err := h.coord.Submit(context.Background(), in)
			assert.NoError(t, err)
			handles[i] = handle
		}()
	}
	wg.Wait()

	for _, handle := range handles {
		status, err := h.coord.Await(context.Background(), handle)
		require.NoError(t, err)
		assert.Equal(t, domain.JobReady, status.State)
	}
	snap := h.mgr.Current()
	assert.EqualValues(t, 3, snap.Version())
	assert.Equal(t, 3, snap.Len())
	assert.Len(t, h.store.Sources(), 3)
}

func TestRemoveUnpublishesSource(t *testing.T) {
	h := newHarness(t, nil, nil)
	handle, err := h.coord.Submit(context.Background(), textInput("a.txt", "to be removed"))
	require.NoError(t, err)
	status, err := h.coord.Await(context.Background(), handle)
	require.NoError(t, err)

	require.NoError(t, h.coord.Remove(context.Background(), status.SourceID))
	assert.Empty(t, h.store.All())
	snap := h.mgr.Current()
	assert.EqualValues(t, 2, snap.Version())
	assert.Equal(t, 0, snap.Len())

	// removing again is a no-op and does not bump the version
	require.NoError(t, h.coord.Remove(context.Background(), status.SourceID))
	assert.EqualValues(t, 2, h.mgr.Current().Version())
}

func TestUnknownJobHandle(t *testing.T) {
	h := newHarness(t, nil, nil)
	_, err := h.coord.Status("nope")
	assert.ErrorIs(t, err, domain.ErrJobNotFound)
	_, err = h.coord.Await(context.Background(), "nope")
	assert.ErrorIs(t, err, domain.ErrJobNotFound)
	assert.ErrorIs(t, h.coord.Cancel("nope"), domain.ErrJobNotFound)
}

func TestAwaitHonorsContext(t *testing.T) {
	gate := make(chan struct{})
	defer close(gate)
	h := newHarness(t, nil, gate)
	h.url.set("slow", nil)

	handle, err := h.coord.Submit(context.Background(), loader.Input{Kind: domain.KindURL, URL: "https://example.com/slow"})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = h.coord.Await(ctx, handle)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}
