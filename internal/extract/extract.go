// Package extract turns source documents into normalized plain text.
package extract

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"

	"docsearch/internal/domain"
)

type converter func(ctx context.Context, path string) (string, error)

// Extractor dispatches on file extension to a format converter and
// normalizes the result. It implements domain.Extractor.
type Extractor struct {
	converters map[string]converter
	log        *slog.Logger
}

// New returns an extractor for plain text, Markdown, HTML and PDF files.
func New(log *slog.Logger) *Extractor {
	if log == nil {
		log = slog.Default()
	}
	return &Extractor{
		converters: map[string]converter{
			".txt":      readPlain,
			".text":     readPlain,
			".log":      readPlain,
			".md":       readMarkdown,
			".markdown": readMarkdown,
			".html":     readHTML,
			".htm":      readHTML,
			".pdf":      readPDF,
		},
		log: log,
	}
}

// SupportedExtensions lists the handled extensions in sorted order.
func (e *Extractor) SupportedExtensions() []string {
	exts := make([]string, 0, len(e.converters))
	for ext := range e.converters {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// Extract reads the document at path and returns its normalized text.
// All failures are reported as *domain.ExtractionError.
func (e *Extractor) Extract(ctx context.Context, path string) (doc domain.Document, err error) {
	fail := func(err error) (domain.Document, error) {
		return domain.Document{}, &domain.ExtractionError{Path: path, Err: err}
	}
	if err := ctx.Err(); err != nil {
		return fail(err)
	}
	ext := strings.ToLower(filepath.Ext(path))
	conv, ok := e.converters[ext]
	if !ok {
		return fail(fmt.Errorf("%w: %q", domain.ErrUnsupportedFormat, ext))
	}
	if _, err := os.Stat(path); err != nil {
		return fail(err)
	}

	defer func() {
		if r := recover(); r != nil {
			doc, err = fail(fmt.Errorf("converter panic: %v", r))
		}
	}()
	raw, err := conv(ctx, path)
	if err != nil {
		return fail(err)
	}
	text := Normalize(raw)
	if text == "" {
		return fail(domain.ErrNoText)
	}
	e.log.Debug("extracted document", "path", path, "format", ext, "raw_bytes", len(raw), "text_bytes", len(text))
	return domain.Document{Path: path, Label: filepath.Base(path), Text: text}, nil
}

func readPlain(_ context.Context, path string) (string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

var (
	blankRuns   = regexp.MustCompile(`[ \t]+`)
	newlineRuns = regexp.MustCompile(`\n{3,}`)
)

// Normalize applies NFC, unifies line endings, drops control characters,
// collapses horizontal whitespace and excess blank lines, and trims.
func Normalize(s string) string {
	s = norm.NFC.String(s)
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r == '\n' || r == '\t':
			b.WriteRune(r)
		case r == '\u00a0':
			b.WriteByte(' ')
		case r == '\ufeff' || unicode.IsControl(r):
		default:
			b.WriteRune(r)
		}
	}

	lines := strings.Split(b.String(), "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(blankRuns.ReplaceAllString(line, " "), " ")
	}
	s = newlineRuns.ReplaceAllString(strings.Join(lines, "\n"), "\n\n")
	return strings.TrimSpace(s)
}
