package memory

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docsearch/internal/domain"
)

func chunks(texts ...string) []domain.Chunk {
	out := make([]domain.Chunk, len(texts))
	for i, t := range texts {
		out[i] = domain.Chunk{Text: t, SourceLabel: "doc.txt", Sequence: i}
	}
	return out
}

func TestQueryEmptyIndex(t *testing.T) {
	ix := NewIndex()

	_, err := ix.Query([]float32{1, 0}, 3)

	assert.ErrorIs(t, err, domain.ErrEmptyIndex)
}

func TestQueryRejectsNonPositiveK(t *testing.T) {
	ix := NewIndex()
	require.NoError(t, ix.Add(chunks("a"), [][]float32{{1, 0}}))

	for _, k := range []int{0, -1} {
		_, err := ix.Query([]float32{1, 0}, k)
		assert.ErrorIs(t, err, domain.ErrInvalidTopK)
	}
}

func TestIdenticalVectorRanksFirst(t *testing.T) {
	ix := NewIndex()
	vecs := [][]float32{{0.2, 0.9, 0.1}, {0.7, 0.1, 0.3}, {0.1, 0.1, 0.9}}
	require.NoError(t, ix.Add(chunks("one", "two", "three"), vecs))

	res, err := ix.Query(vecs[1], 1)

	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, "two", res[0].Chunk.Text)
	assert.InDelta(t, 1.0, res[0].Score, 1e-9)
}

func TestQueryKLargerThanIndexReturnsAllRanked(t *testing.T) {
	ix := NewIndex()
	require.NoError(t, ix.Add(chunks("x", "y", "z"), [][]float32{{1, 0}, {0, 1}, {1, 1}}))

	res, err := ix.Query([]float32{1, 0}, 10)

	require.NoError(t, err)
	require.Len(t, res, 3)
	assert.Equal(t, "x", res[0].Chunk.Text)
	assert.Equal(t, "z", res[1].Chunk.Text)
	assert.Equal(t, "y", res[2].Chunk.Text)
	assert.GreaterOrEqual(t, res[0].Score, res[1].Score)
	assert.GreaterOrEqual(t, res[1].Score, res[2].Score)
}

func TestTiesKeepInsertionOrder(t *testing.T) {
	ix := NewIndex()
	same := []float32{0.5, 0.5}
	require.NoError(t, ix.Add(chunks("first", "other"), [][]float32{same, {0, 1}}))
	require.NoError(t, ix.Add(chunks("second", "third"), [][]float32{same, same}))

	res, err := ix.Query([]float32{1, 1}, 3)

	require.NoError(t, err)
	require.Len(t, res, 3)
	assert.Equal(t, []string{"first", "second", "third"}, []string{res[0].Chunk.Text, res[1].Chunk.Text, res[2].Chunk.Text})
	assert.Equal(t, []int{0, 2, 3}, []int{res[0].Chunk.ID, res[1].Chunk.ID, res[2].Chunk.ID})
}

func TestAddAssignsInsertionIDs(t *testing.T) {
	ix := NewIndex()
	require.NoError(t, ix.Add(chunks("a", "b"), [][]float32{{1}, {2}}))
	require.NoError(t, ix.Add(chunks("a", "b"), [][]float32{{1}, {2}}))

	assert.Equal(t, 4, ix.Len())
	res, err := ix.Query([]float32{1}, 4)
	require.NoError(t, err)
	ids := make([]int, 0, len(res))
	for _, r := range res {
		ids = append(ids, r.Chunk.ID)
	}
	assert.ElementsMatch(t, []int{0, 1, 2, 3}, ids)
}

func TestAddDimensionMismatchIsAtomic(t *testing.T) {
	ix := NewIndex()
	require.NoError(t, ix.Add(chunks("a"), [][]float32{{1, 0, 0}}))

	err := ix.Add(chunks("b", "c"), [][]float32{{1, 0, 0}, {1, 0}})

	var dme *domain.DimensionMismatchError
	require.ErrorAs(t, err, &dme)
	assert.Equal(t, 3, dme.Want)
	assert.Equal(t, 2, dme.Got)
	assert.Equal(t, 1, ix.Len())
	assert.Equal(t, 3, ix.Dimension())
}

func TestAddMismatchWithinFirstBatch(t *testing.T) {
	ix := NewIndex()

	err := ix.Add(chunks("a", "b"), [][]float32{{1, 0}, {1}})

	var dme *domain.DimensionMismatchError
	require.ErrorAs(t, err, &dme)
	assert.Equal(t, 0, ix.Len())
	assert.Equal(t, 0, ix.Dimension())
}

func TestAddMisaligned(t *testing.T) {
	ix := NewIndex()

	err := ix.Add(chunks("a", "b"), [][]float32{{1}})

	assert.ErrorIs(t, err, domain.ErrMisaligned)
}

func TestQueryDimensionMismatch(t *testing.T) {
	ix := NewIndex()
	require.NoError(t, ix.Add(chunks("a"), [][]float32{{1, 0}}))

	_, err := ix.Query([]float32{1, 0, 0}, 1)

	var dme *domain.DimensionMismatchError
	assert.ErrorAs(t, err, &dme)
}

func TestAddCopiesVectors(t *testing.T) {
	ix := NewIndex()
	v := []float32{1, 0}
	require.NoError(t, ix.Add(chunks("a"), [][]float32{v}))
	v[0], v[1] = 0, 1

	res, err := ix.Query([]float32{1, 0}, 1)

	require.NoError(t, err)
	assert.InDelta(t, 1.0, res[0].Score, 1e-9)
}

func TestWithScorer(t *testing.T) {
	negDistance := func(q, s []float32) float64 {
		var d float64
		for i := range q {
			diff := float64(q[i] - s[i])
			d += diff * diff
		}
		return -d
	}
	ix := NewIndex(WithScorer(negDistance))
	// cosine would tie these two; euclidean prefers the closer one
	require.NoError(t, ix.Add(chunks("far", "near"), [][]float32{{10, 10}, {1, 1}}))

	res, err := ix.Query([]float32{1, 1}, 1)

	require.NoError(t, err)
	assert.Equal(t, "near", res[0].Chunk.Text)
}

func TestCosine(t *testing.T) {
	assert.InDelta(t, 1.0, Cosine([]float32{1, 0, 0}, []float32{1, 0, 0}), 1e-12)
	assert.InDelta(t, 0.0, Cosine([]float32{1, 0, 0}, []float32{0, 1, 0}), 1e-12)
	assert.InDelta(t, -1.0, Cosine([]float32{1, 0}, []float32{-2, 0}), 1e-12)
	assert.Equal(t, 0.0, Cosine([]float32{0, 0}, []float32{1, 0}))
}

func TestConcurrentQueries(t *testing.T) {
	ix := NewIndex()
	n := 50
	cs := make([]domain.Chunk, n)
	vs := make([][]float32, n)
	for i := 0; i < n; i++ {
		cs[i] = domain.Chunk{Text: fmt.Sprintf("c%d", i)}
		vs[i] = []float32{float32(i), 1}
	}
	require.NoError(t, ix.Add(cs, vs))

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 20; i++ {
				res, err := ix.Query([]float32{0, 1}, 1)
				assert.NoError(t, err)
				assert.Equal(t, "c0", res[0].Chunk.Text)
			}
		}()
	}
	wg.Wait()
}
