package retrieval

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/viraj200524/Document-Website-Chat/internal/domain"
)

// maxCachedQueries bounds the per-snapshot cache size.
const maxCachedQueries = 128

// resultCache memoizes query results per snapshot version. Entries for
// older versions are dropped wholesale when a newer snapshot is queried,
// so a stale result can never be served. Concurrent identical queries
// are collapsed into one computation.
type resultCache struct {
	group singleflight.Group

	mu      sync.Mutex
	version uint64
	entries map[string][]domain.SearchResult
}

func newResultCache() *resultCache {
	return &resultCache{entries: make(map[string][]domain.SearchResult)}
}

func (c *resultCache) get(ctx context.Context, version uint64, query string, k int,
	compute func(context.Context) ([]domain.SearchResult, error)) ([]domain.SearchResult, error) {

	key := fmt.Sprintf("%d\x00%d\x00%s", version, k, query)

	c.mu.Lock()
	if c.version != version {
		c.version = version
		c.entries = make(map[string][]domain.SearchResult)
	}
	if cached, ok := c.entries[key]; ok {
		c.mu.Unlock()
		return cached, nil
	}
	c.mu.Unlock()

	v, err, _ := c.group.Do(key, func() (any, error) {
		results, err := compute(ctx)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		if c.version == version {
			if len(c.entries) >= maxCachedQueries {
				c.entries = make(map[string][]domain.SearchResult)
			}
			c.entries[key] = results
		}
		c.mu.Unlock()
		return results, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]domain.SearchResult), nil
}
