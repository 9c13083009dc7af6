package memory

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/viraj200524/Document-Website-Chat/internal/domain"
)

func src(id string) domain.Source {
	return domain.Source{ID: id, Kind: domain.KindText, Origin: id + ".txt", Status: domain.StatusPending}
}

func chunksFor(id string, texts ...string) []domain.Chunk {
	out := make([]domain.Chunk, len(texts))
	for i, txt := range texts {
		out[i] = domain.Chunk{ID: id + ":" + string(rune('0'+i)), SourceID: id, Text: txt, Index: i}
	}
	return out
}

func TestReplaceNewSource(t *testing.T) {
	s := NewStore()
	delta, err := s.Replace(src("a"), chunksFor("a", "one", "two"))
	require.NoError(t, err)
	assert.False(t, delta.Empty())
	assert.Len(t, delta.Added, 2)
	assert.Empty(t, delta.Removed)

	got, ok := s.Source("a")
	require.True(t, ok)
	assert.False(t, got.IngestedAt.IsZero())
	assert.Len(t, s.BySource("a"), 2)
}

func TestReplaceUnchangedContentIsIdempotent(t *testing.T) {
	s := NewStore()
	_, err := s.Replace(src("a"), chunksFor("a", "one"))
	require.NoError(t, err)
	_, err = s.Replace(src("b"), chunksFor("b", "two"))
	require.NoError(t, err)
	first, _ := s.Source("a")

	delta, err := s.Replace(src("a"), chunksFor("a", "one"))
	require.NoError(t, err)
	assert.True(t, delta.Empty())

	again, _ := s.Source("a")
	assert.Equal(t, first.IngestedAt, again.IngestedAt, "unchanged replace must not touch ingestion time")
	sources := s.Sources()
	require.Len(t, sources, 2)
	assert.Equal(t, "a", sources[0].ID, "unchanged replace must not reorder")
}

func TestReplaceChangedContentMovesToEnd(t *testing.T) {
	s := NewStore()
	_, err := s.Replace(src("a"), chunksFor("a", "one"))
	require.NoError(t, err)
	_, err = s.Replace(src("b"), chunksFor("b", "two"))
	require.NoError(t, err)

	delta, err := s.Replace(src("a"), chunksFor("a", "one", "extra"))
	require.NoError(t, err)
	assert.Len(t, delta.Added, 2)
	require.Len(t, delta.Removed, 1)
	assert.Equal(t, "one", delta.Removed[0].Text)

	sources := s.Sources()
	require.Len(t, sources, 2)
	assert.Equal(t, "b", sources[0].ID)
	assert.Equal(t, "a", sources[1].ID)
}

func TestRemove(t *testing.T) {
	s := NewStore()
	_, err := s.Replace(src("a"), chunksFor("a", "one", "two"))
	require.NoError(t, err)

	delta, err := s.Remove("a")
	require.NoError(t, err)
	assert.Empty(t, delta.Added)
	assert.Len(t, delta.Removed, 2)
	assert.Empty(t, s.All())
	_, ok := s.Source("a")
	assert.False(t, ok)

	// removing an unknown source is a no-op
	delta, err = s.Remove("ghost")
	require.NoError(t, err)
	assert.True(t, delta.Empty())
}

func TestAllOrderedByIngestion(t *testing.T) {
	s := NewStore()
	_, err := s.Replace(src("a"), chunksFor("a", "a0", "a1"))
	require.NoError(t, err)
	_, err = s.Replace(src("b"), chunksFor("b", "b0"))
	require.NoError(t, err)

	all := s.All()
	require.Len(t, all, 3)
	assert.Equal(t, []string{"a0", "a1", "b0"}, []string{all[0].Text, all[1].Text, all[2].Text})
}

func TestSetStatus(t *testing.T) {
	s := NewStore()
	_, err := s.Replace(src("a"), nil)
	require.NoError(t, err)

	require.NoError(t, s.SetStatus("a", domain.StatusFailed, "boom"))
	got, _ := s.Source("a")
	assert.Equal(t, domain.StatusFailed, got.Status)
	assert.Equal(t, "boom", got.Error)

	assert.Error(t, s.SetStatus("ghost", domain.StatusReady, ""))
}

func TestSnapshotVersionRoundTrip(t *testing.T) {
	s := NewStore()
	assert.EqualValues(t, 0, s.SnapshotVersion())
	require.NoError(t, s.SetSnapshotVersion(7))
	assert.EqualValues(t, 7, s.SnapshotVersion())
}

func TestSeedPreservesIngestionOrder(t *testing.T) {
	s := NewStore()
	older := src("old")
	older.IngestedAt = time.Now().Add(-time.Hour)
	newer := src("new")
	newer.IngestedAt = time.Now()

	s.Seed(newer, chunksFor("new", "n0"))
	s.Seed(older, chunksFor("old", "o0"))

	sources := s.Sources()
	require.Len(t, sources, 2)
	assert.Equal(t, "old", sources[0].ID)
	assert.Equal(t, "new", sources[1].ID)
}

func TestBySourceReturnsCopy(t *testing.T) {
	s := NewStore()
	_, err := s.Replace(src("a"), chunksFor("a", "one"))
	require.NoError(t, err)

	got := s.BySource("a")
	got[0].Text = "mutated"
	assert.Equal(t, "one", s.BySource("a")[0].Text)
}
