// Package retrieval serves ranked top-k queries against the current
// index snapshot. Queries never block on ingestion: each query reads
// exactly the snapshot that was current when it started.
package retrieval

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"regexp"
	"sort"
	"strings"

	"github.com/viraj200524/Document-Website-Chat/internal/domain"
	"github.com/viraj200524/Document-Website-Chat/internal/index"
)

// DefaultTopK is the result count used when the caller does not set one.
const DefaultTopK = 5

// SourceResolver attaches source records to results so callers can cite
// provenance. The chunk store implements it.
type SourceResolver interface {
	Source(id string) (domain.Source, bool)
}

// Engine answers retrieval queries.
type Engine struct {
	index   *index.Manager
	sources SourceResolver
	cache   *resultCache
	log     *slog.Logger
}

// NewEngine creates a retrieval engine over the index manager.
func NewEngine(mgr *index.Manager, sources SourceResolver, logger *slog.Logger) *Engine {
	return &Engine{index: mgr, sources: sources, cache: newResultCache(), log: logger}
}

// Retrieve returns the k most relevant chunks for the query, ordered by
// score descending with ties broken by snapshot position (source
// ingestion time, then chunk index). k larger than the corpus returns
// everything; an empty index returns an empty result. k <= 0 is a caller
// contract violation.
func (e *Engine) Retrieve(ctx context.Context, query string, k int) ([]domain.SearchResult, error) {
	if k <= 0 {
		return nil, fmt.Errorf("%w: got %d", domain.ErrInvalidTopK, k)
	}
	snap := e.index.Current()
	if snap.Len() == 0 {
		return nil, nil
	}
	results, err := e.cache.get(ctx, snap.Version(), query, k, func(ctx context.Context) ([]domain.SearchResult, error) {
		return e.search(ctx, snap, query, k)
	})
	if err != nil {
		return nil, err
	}
	return e.withSources(results), nil
}

func (e *Engine) search(ctx context.Context, snap *index.Snapshot, query string, k int) ([]domain.SearchResult, error) {
	vec, err := snap.EncodeQuery(ctx, query)
	if err != nil {
		return nil, err
	}
	if isZero(vec) {
		// query shares no vocabulary with the corpus
		e.log.Debug("zero query vector, using lexical fallback", "query", query)
		return lexicalSearch(snap.Chunks(), query, k), nil
	}
	results := snap.Search(vec, k)
	allZero := true
	for _, r := range results {
		if r.Score > 1e-9 {
			allZero = false
			break
		}
	}
	if allZero {
		return lexicalSearch(snap.Chunks(), query, k), nil
	}
	return results, nil
}

func (e *Engine) withSources(results []domain.SearchResult) []domain.SearchResult {
	out := make([]domain.SearchResult, len(results))
	copy(out, results)
	for i := range out {
		if src, ok := e.sources.Source(out[i].Chunk.SourceID); ok {
			out[i].Source = src
		}
	}
	return out
}

func isZero(vec []float64) bool {
	for _, v := range vec {
		if v != 0 {
			return false
		}
	}
	return true
}

var unicodeWordRe = regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*`)

// lexicalSearch ranks chunks by Ochiai token overlap with the query.
// Chunks must be in snapshot order so ties stay deterministic.
func lexicalSearch(chunks []domain.Chunk, query string, k int) []domain.SearchResult {
	qset := toTokenSet(query)
	type pair struct {
		pos   int
		score float64
	}
	scores := make([]pair, len(chunks))
	for i, ch := range chunks {
		scores[i] = pair{i, overlapOchiai(qset, ch.Text)}
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
	for _, p := range scores[:k] {
		out = append(out, domain.SearchResult{Chunk: chunks[p.pos], Score: p.score})
	}
	return out
}

func toTokenSet(s string) map[string]struct{} {
	tokens := unicodeWordRe.FindAllString(strings.ToLower(s), -1)
	m := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		m[t] = struct{}{}
	}
	return m
}

// overlapOchiai computes |A∩B| / sqrt(|A||B|) over token sets.
func overlapOchiai(qset map[string]struct{}, text string) float64 {
	stoks := unicodeWordRe.FindAllString(strings.ToLower(text), -1)
	seen := make(map[string]struct{}, len(stoks))
	inter := 0
	for _, t := range stoks {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		if _, ok := qset[t]; ok {
			inter++
		}
	}
	if len(qset) == 0 || len(seen) == 0 {
		return 0
	}
	return float64(inter) / (math.Sqrt(float64(len(qset))) * math.Sqrt(float64(len(seen))))
}
