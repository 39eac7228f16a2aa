package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"docsearch/internal/chunker"
	"docsearch/internal/domain"
)

const (
	// DefaultTopK is the number of chunks a search returns when unset.
	DefaultTopK = 10
	// DefaultSeparator joins retrieved chunk texts in Search output.
	DefaultSeparator = "\n___\n"
)

// Options tunes search output and logging.
type Options struct {
	TopK      int
	Separator string
	Logger    *slog.Logger
}

// BuildRequest names the document to index and how to split it.
type BuildRequest struct {
	Path     string
	Chunking chunker.Config
}

// BuildReport summarizes a completed build.
type BuildReport struct {
	BuildID   uuid.UUID
	Source    string
	Chunks    int
	Dimension int
	Elapsed   time.Duration
}

// RetrievalService builds an index from a document and answers free-text
// queries against it. Builds are exclusive; searches run concurrently.
type RetrievalService struct {
	mu        sync.RWMutex
	extractor domain.Extractor
	embedder  domain.Embedder
	index     domain.VectorIndex
	topK      int
	separator string
	log       *slog.Logger
}

// New wires a service around the given collaborators.
func New(extractor domain.Extractor, embedder domain.Embedder, index domain.VectorIndex, opts Options) *RetrievalService {
	if opts.TopK <= 0 {
		opts.TopK = DefaultTopK
	}
	if opts.Separator == "" {
		opts.Separator = DefaultSeparator
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &RetrievalService{
		extractor: extractor,
		embedder:  embedder,
		index:     index,
		topK:      opts.TopK,
		separator: opts.Separator,
		log:       opts.Logger,
	}
}

// Build extracts, splits and embeds the document, then adds every chunk to
// the index in a single batch. Any failure leaves the index and the
// embedder's fitted state untouched.
// Repeated builds append; nothing is deduplicated.
func (s *RetrievalService) Build(ctx context.Context, req BuildRequest) (BuildReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	started := time.Now()
	splitter, err := chunker.New(req.Chunking)
	if err != nil {
		return BuildReport{}, err
	}
	doc, err := s.extractor.Extract(ctx, req.Path)
	if err != nil {
		return BuildReport{}, err
	}

	var (
		chunks []domain.Chunk
		texts  []string
	)
	for _, span := range splitter.Split(doc.Text) {
		if strings.TrimSpace(span.Text) == "" {
			continue
		}
		chunks = append(chunks, domain.Chunk{Text: span.Text, SourceLabel: doc.Label, Sequence: len(chunks)})
		texts = append(texts, span.Text)
	}
	if len(chunks) == 0 {
		return BuildReport{}, &domain.ExtractionError{Path: req.Path, Err: domain.ErrNoText}
	}
	s.log.Info("created chunks", "source", doc.Label, "chunks", len(chunks))

	// a fit is undone unless the vectors it produced reach the index
	rollback := func() {}
	if fitter, ok := s.embedder.(domain.CorpusFitter); ok {
		undo, err := fitter.Fit(texts)
		if err != nil {
			return BuildReport{}, err
		}
		rollback = undo
	}
	vectors, err := s.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		rollback()
		return BuildReport{}, err
	}
	if len(vectors) != len(chunks) {
		rollback()
		return BuildReport{}, fmt.Errorf("%w: %d chunks, %d vectors", domain.ErrMisaligned, len(chunks), len(vectors))
	}
	if err := s.index.Add(chunks, vectors); err != nil {
		rollback()
		return BuildReport{}, err
	}

	report := BuildReport{
		BuildID:   uuid.New(),
		Source:    doc.Label,
		Chunks:    len(chunks),
		Dimension: len(vectors[0]),
		Elapsed:   time.Since(started),
	}
	s.log.Info("document indexed",
		"build_id", report.BuildID,
		"source", report.Source,
		"chunks", report.Chunks,
		"dimension", report.Dimension,
		"embedder", s.embedder.Name(),
		"elapsed", report.Elapsed,
	)
	return report, nil
}

// Search returns the texts of the top-ranked chunks for query, trimmed and
// joined with the configured separator. A blank query yields "".
func (s *RetrievalService) Search(ctx context.Context, query string) (string, error) {
	results, err := s.Retrieve(ctx, query, s.topK)
	if err != nil || len(results) == 0 {
		return "", err
	}
	parts := make([]string, len(results))
	for i, r := range results {
		parts[i] = strings.TrimSpace(r.Chunk.Text)
	}
	return strings.Join(parts, s.separator), nil
}

// Retrieve returns the k best-matching chunks for query ordered by
// descending score. A blank query yields no results.
func (s *RetrievalService) Retrieve(ctx context.Context, query string, k int) ([]domain.SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.index.Len() == 0 {
		return nil, domain.ErrNotIndexed
	}
	vec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}
	results, err := s.index.Query(vec, k)
	if err != nil {
		return nil, err
	}
	s.log.Debug("retrieved chunks", "count", len(results), "top_k", k)
	return results, nil
}
