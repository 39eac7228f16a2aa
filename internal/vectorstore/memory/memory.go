package memory

import (
	"math"
	"sort"
	"sync"

	"docsearch/internal/domain"
)

// Scorer computes the similarity between a query vector and a stored vector.
// Higher is more similar.
type Scorer func(query, stored []float32) float64

// Option configures an Index.
type Option func(*Index)

// WithScorer replaces the default cosine similarity.
func WithScorer(fn Scorer) Option {
	return func(ix *Index) { ix.score = fn }
}

type entry struct {
	chunk  domain.Chunk
	vector []float32
}

// Index is an append-only in-memory vector index using brute-force scoring.
// The first successful Add fixes its dimensionality.
type Index struct {
	mu        sync.RWMutex
	dimension int
	entries   []entry
	score     Scorer
}

// NewIndex returns an empty index.
func NewIndex(opts ...Option) *Index {
	ix := &Index{score: Cosine}
	for _, opt := range opts {
		opt(ix)
	}
	return ix
}

// Add appends one entry per (chunk, vector) pair in order and stamps each
// chunk's ID with its insertion rank. The batch is stored entirely or not at all.
func (ix *Index) Add(chunks []domain.Chunk, vectors [][]float32) error {
	if len(chunks) != len(vectors) {
		return domain.ErrMisaligned
	}
	if len(chunks) == 0 {
		return nil
	}
	ix.mu.Lock()
	defer ix.mu.Unlock()
	dim := ix.dimension
	if dim == 0 {
		dim = len(vectors[0])
	}
	for _, v := range vectors {
		if len(v) != dim || dim == 0 {
			return &domain.DimensionMismatchError{Want: dim, Got: len(v)}
		}
	}
	ix.dimension = dim
	for i := range chunks {
		c := chunks[i]
		c.ID = len(ix.entries)
		ix.entries = append(ix.entries, entry{chunk: c, vector: append([]float32(nil), vectors[i]...)})
	}
	return nil
}

// Query returns the k entries most similar to vector, best first. Ties keep
// insertion order. k larger than the index size returns every entry.
func (ix *Index) Query(vector []float32, k int) ([]domain.SearchResult, error) {
	if k <= 0 {
		return nil, domain.ErrInvalidTopK
	}
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	if len(ix.entries) == 0 {
		return nil, domain.ErrEmptyIndex
	}
	if len(vector) != ix.dimension {
		return nil, &domain.DimensionMismatchError{Want: ix.dimension, Got: len(vector)}
	}
	scores := make([]float64, len(ix.entries))
	for i := range ix.entries {
		scores[i] = ix.score(vector, ix.entries[i].vector)
	}
	idxs := rankDesc(scores)
	if k > len(idxs) {
		k = len(idxs)
	}
	results := make([]domain.SearchResult, 0, k)
	for _, j := range idxs[:k] {
		results = append(results, domain.SearchResult{Chunk: ix.entries[j].chunk, Score: scores[j]})
	}
	return results, nil
}

// Len returns the number of stored entries.
func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.entries)
}

// Dimension returns the fixed vector length, or 0 while the index is empty.
func (ix *Index) Dimension() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.dimension
}

// Cosine is the default scorer. A zero vector scores 0 against everything.
func Cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// rankDesc orders positions by descending score; equal scores keep
// ascending position, which is insertion order.
func rankDesc(scores []float64) []int {
	idxs := make([]int, len(scores))
	for i := range idxs {
		idxs[i] = i
	}
	sort.SliceStable(idxs, func(i, j int) bool {
		return scores[idxs[i]] > scores[idxs[j]]
	})
	return idxs
}
