// Package tool exposes document search as a callable tool for agent frameworks.
package tool

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// ErrInvalidRequest is returned when tool arguments do not decode into a Request.
var ErrInvalidRequest = errors.New("invalid tool request")

// Searcher answers a free-text query with formatted passages.
type Searcher interface {
	Search(ctx context.Context, query string) (string, error)
}

// Request is the argument object of a document_search call.
type Request struct {
	Query string `json:"query"`
}

// Definition describes a tool to clients that list available tools.
type Definition struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema json.RawMessage `json:"inputSchema"`
}

const searchSchema = `{
	"type": "object",
	"properties": {
		"query": {"type": "string", "description": "Query to search the document."}
	},
	"required": ["query"],
	"additionalProperties": false
}`

// DocumentSearchTool searches the indexed document for a query string.
type DocumentSearchTool struct {
	searcher Searcher
}

// NewDocumentSearchTool returns a tool backed by searcher.
func NewDocumentSearchTool(searcher Searcher) *DocumentSearchTool {
	return &DocumentSearchTool{searcher: searcher}
}

// Definition returns the tool's name, description and input schema.
func (t *DocumentSearchTool) Definition() Definition {
	return Definition{
		Name:        "document_search",
		Description: "Search the document for the given query string.",
		InputSchema: json.RawMessage(searchSchema),
	}
}

// Call decodes args and runs the search.
func (t *DocumentSearchTool) Call(ctx context.Context, args json.RawMessage) (string, error) {
	req, err := DecodeRequest(args)
	if err != nil {
		return "", err
	}
	return t.searcher.Search(ctx, req.Query)
}

// DecodeRequest strictly decodes raw into a Request. Unknown fields, a
// missing query, non-string queries and trailing values are rejected.
func DecodeRequest(raw json.RawMessage) (Request, error) {
	var wire struct {
		Query *string `json:"query"`
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&wire); err != nil {
		return Request{}, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return Request{}, fmt.Errorf("%w: unexpected data after request object", ErrInvalidRequest)
	}
	if wire.Query == nil {
		return Request{}, fmt.Errorf("%w: query is required", ErrInvalidRequest)
	}
	return Request{Query: *wire.Query}, nil
}
