package domain

import "context"

// Document is a source file after text extraction.
type Document struct {
	Path  string
	Label string
	Text  string
}

// Chunk is a bounded span of a document used for indexing.
// ID is the insertion rank assigned by the index; Sequence is the position
// of the chunk within its document.
type Chunk struct {
	ID          int
	Text        string
	SourceLabel string
	Sequence    int
}

// SearchResult represents a matching chunk with a relevance score.
type SearchResult struct {
	Chunk Chunk
	Score float64
}

// Extractor converts a source document into normalized plain text.
type Extractor interface {
	Extract(ctx context.Context, path string) (Document, error)
}

// Embedder converts free text into a numeric vector representation.
// EmbedBatch must return vectors aligned positionally with texts.
type Embedder interface {
	Name() string
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// CorpusFitter is implemented by embedders that need to see the corpus
// before they can embed (e.g. TF-IDF). The returned rollback undoes the fit
// and must be called if the vectors it produced are never committed.
type CorpusFitter interface {
	Fit(corpus []string) (rollback func(), err error)
}

// VectorIndex stores chunks with their vectors and answers similarity queries.
type VectorIndex interface {
	Add(chunks []Chunk, vectors [][]float32) error
	Query(vector []float32, k int) ([]SearchResult, error)
	Len() int
}
