package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors shared across components.
var (
	ErrEmptyIndex        = errors.New("vector index is empty")
	ErrNotIndexed        = errors.New("no document has been indexed")
	ErrInvalidTopK       = errors.New("top-k must be positive")
	ErrMisaligned        = errors.New("chunks and vectors length mismatch")
	ErrSplitConfig       = errors.New("invalid split configuration")
	ErrUnsupportedFormat = errors.New("unsupported document format")
	ErrNoText            = errors.New("document produced no text")
)

// ExtractionError reports a failure to turn a source file into text.
type ExtractionError struct {
	Path string
	Err  error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extract %s: %v", e.Path, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// SplitConfigError is returned when chunk size and overlap cannot work together.
type SplitConfigError struct {
	ChunkSize int
	Overlap   int
	Reason    string
}

func (e *SplitConfigError) Error() string {
	return fmt.Sprintf("invalid split configuration (chunk_size=%d, overlap=%d): %s", e.ChunkSize, e.Overlap, e.Reason)
}

func (e *SplitConfigError) Is(target error) bool { return target == ErrSplitConfig }

// DimensionMismatchError is returned when a vector's length differs from the
// dimensionality fixed by the index.
type DimensionMismatchError struct {
	Want int
	Got  int
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("vector dimension mismatch: want %d, got %d", e.Want, e.Got)
}
