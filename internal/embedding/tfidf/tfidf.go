package tfidf

import (
	"context"
	"errors"
	"math"
	"regexp"
	"sort"
	"strings"

	"github.com/viraj200524/Document-Website-Chat/internal/embedding"
)

// Embedder is a TF-IDF vectorizer. Each Fit builds a fresh vocabulary and
// IDF table from the corpus, so the index rebuilds vectors whenever the
// chunk set changes.
type Embedder struct {
	tokenPattern *regexp.Regexp
	stopwords    map[string]struct{}
}

// New creates a TF-IDF embedder.
func New() *Embedder {
	return &Embedder{
		tokenPattern: regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*`),
		stopwords:    defaultStopwords(),
	}
}

// Name returns the identifier of this embedder implementation.
func (e *Embedder) Name() string { return "tfidf" }

// Incremental is false: the vocabulary depends on the whole corpus.
func (e *Embedder) Incremental() bool { return false }

// Fit builds the vocabulary and IDF values from the provided corpus and
// returns an immutable encoder over them.
func (e *Embedder) Fit(ctx context.Context, corpus []string) (embedding.Encoder, error) {
	if len(corpus) == 0 {
		return nil, errors.New("empty corpus for TF-IDF fit")
	}
	// Build vocabulary and document frequencies
	df := make(map[string]int)
	for _, text := range corpus {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		tokens := tokenize(text, e.tokenPattern, e.stopwords)
		seen := make(map[string]struct{})
		for _, tok := range tokens {
			if _, ok := seen[tok]; ok {
				continue
			}
			seen[tok] = struct{}{}
			df[tok]++
		}
	}
	// Create stable ordering for vocabulary
	terms := make([]string, 0, len(df))
	for term := range df {
		terms = append(terms, term)
	}
	sort.Strings(terms)
	if len(terms) == 0 {
		return nil, errors.New("no tokens found in corpus; ensure tokenizer supports your language")
	}
	enc := &Encoder{
		vocabulary:   make(map[string]int, len(terms)),
		idf:          make([]float64, len(terms)),
		dimension:    len(terms),
		tokenPattern: e.tokenPattern,
		stopwords:    e.stopwords,
	}
	N := float64(len(corpus))
	for i, term := range terms {
		enc.vocabulary[term] = i
		// Smoothed IDF
		enc.idf[i] = math.Log((1+N)/(1+float64(df[term]))) + 1.0
	}
	return enc, nil
}

// Encoder holds a fitted vocabulary and IDF table. It is immutable, so
// snapshots built against it keep serving queries during later fits.
type Encoder struct {
	vocabulary   map[string]int
	idf          []float64
	dimension    int
	tokenPattern *regexp.Regexp
	stopwords    map[string]struct{}
}

// Dimension returns the dimensionality of the produced vectors.
func (e *Encoder) Dimension() int { return e.dimension }

// Encode computes the L2-normalized TF-IDF vector for the given text.
// Text sharing no vocabulary with the corpus encodes to the zero vector.
func (e *Encoder) Encode(_ context.Context, text string) ([]float64, error) {
	vec := make([]float64, e.dimension)
	tokens := tokenize(text, e.tokenPattern, e.stopwords)
	tf := make(map[int]int)
	total := 0
	for _, tok := range tokens {
		if idx, ok := e.vocabulary[tok]; ok {
			tf[idx]++
			total++
		}
	}
	if total == 0 {
		return vec, nil
	}
	for idx, count := range tf {
		tfv := float64(count) / float64(total)
		vec[idx] = tfv * e.idf[idx]
	}
	// L2 normalize
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
	return vec, nil
}

func tokenize(text string, pattern *regexp.Regexp, stopwords map[string]struct{}) []string {
	lower := strings.ToLower(text)
	raw := pattern.FindAllString(lower, -1)
	if len(raw) == 0 {
		return nil
	}
	out := raw[:0]
	for _, t := range raw {
		if _, isStop := stopwords[t]; isStop {
			continue
		}
		out = append(out, t)
	}
	return out
}

func defaultStopwords() map[string]struct{} {
	words := []string{
		"a", "an", "the", "and", "or", "but", "if", "then", "else", "for", "to", "of", "in", "on", "at", "by", "with", "as", "is", "are", "was", "were", "be", "been", "being", "it", "this", "that", "these", "those", "from", "up", "down", "over", "under", "again", "further", "than", "so", "such", "into", "about", "between", "through", "during", "before", "after", "above", "below", "out", "off", "own", "same", "too", "very", "can", "will", "just", "don", "should", "now",
	}
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}
