package chunker

import (
	"strings"
	"unicode/utf8"

	"docsearch/internal/domain"
)

// DefaultSeparators go from paragraph breaks down to single characters.
var DefaultSeparators = []string{"\n\n", "\n", " ", ""}

// Config controls chunk size, overlap and the separator cascade.
// Sizes are measured in runes.
type Config struct {
	ChunkSize  int
	Overlap    int
	Separators []string
}

// Validate reports a *domain.SplitConfigError for unusable size/overlap pairs.
func (c Config) Validate() error {
	var reason string
	switch {
	case c.ChunkSize <= 0:
		reason = "chunk size must be positive"
	case c.Overlap < 0:
		reason = "overlap must not be negative"
	case c.Overlap >= c.ChunkSize:
		reason = "overlap must be smaller than chunk size"
	default:
		return nil
	}
	return &domain.SplitConfigError{ChunkSize: c.ChunkSize, Overlap: c.Overlap, Reason: reason}
}

// Span is a chunk of text together with its byte offsets in the source.
type Span struct {
	Text  string
	Start int
	End   int
}

// Splitter cuts text on the coarsest separator that works, recursing into
// finer separators only for pieces that are still too long, then merges the
// pieces back into overlapping windows.
type Splitter struct {
	size       int
	overlap    int
	separators []string
}

// New validates cfg and returns a Splitter.
func New(cfg Config) (*Splitter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	seps := cfg.Separators
	if len(seps) == 0 {
		seps = DefaultSeparators
	}
	return &Splitter{
		size:       cfg.ChunkSize,
		overlap:    cfg.Overlap,
		separators: append([]string(nil), seps...),
	}, nil
}

type piece struct {
	start int
	end   int
	runes int
}

// Split returns the chunks of text in document order. Every span is an exact
// slice of text; consecutive spans touch or overlap, so dropping the shared
// prefix of each span and concatenating gives back text.
func (s *Splitter) Split(text string) []Span {
	if text == "" {
		return nil
	}
	pieces := s.split(text, 0, s.separators, nil)
	return s.merge(text, pieces)
}

// SplitText is Split without offsets.
func (s *Splitter) SplitText(text string) []string {
	spans := s.Split(text)
	out := make([]string, len(spans))
	for i, sp := range spans {
		out[i] = sp.Text
	}
	return out
}

func (s *Splitter) split(text string, offset int, seps []string, out []piece) []piece {
	n := utf8.RuneCountInString(text)
	if n <= s.size {
		return append(out, piece{start: offset, end: offset + len(text), runes: n})
	}
	sep, rest, ok := pickSeparator(text, seps)
	if !ok {
		return append(out, piece{start: offset, end: offset + len(text), runes: n})
	}
	for _, b := range splitKeep(text, sep) {
		part := text[b[0]:b[1]]
		pn := utf8.RuneCountInString(part)
		switch {
		case pn <= s.size:
			out = append(out, piece{start: offset + b[0], end: offset + b[1], runes: pn})
		case len(rest) > 0:
			out = s.split(part, offset+b[0], rest, out)
		default:
			// nothing finer to cut on
			out = append(out, piece{start: offset + b[0], end: offset + b[1], runes: pn})
		}
	}
	return out
}

func (s *Splitter) merge(text string, pieces []piece) []Span {
	var spans []Span
	var window []piece
	total := 0
	for _, p := range pieces {
		if len(window) > 0 && total+p.runes > s.size {
			spans = append(spans, spanOf(text, window))
			for len(window) > 0 && (total > s.overlap || total+p.runes > s.size) {
				total -= window[0].runes
				window = window[1:]
			}
		}
		window = append(window, p)
		total += p.runes
	}
	if len(window) > 0 {
		spans = append(spans, spanOf(text, window))
	}
	return spans
}

func spanOf(text string, window []piece) Span {
	start, end := window[0].start, window[len(window)-1].end
	return Span{Text: text[start:end], Start: start, End: end}
}

// pickSeparator returns the first separator present in text and the finer
// separators that follow it. The empty separator always matches.
func pickSeparator(text string, seps []string) (string, []string, bool) {
	for i, sep := range seps {
		if sep == "" {
			return "", nil, true
		}
		if strings.Contains(text, sep) {
			return sep, seps[i+1:], true
		}
	}
	return "", nil, false
}

// splitKeep returns byte ranges of text split on sep, with each separator
// kept at the start of the range that follows it.
func splitKeep(text, sep string) [][2]int {
	var bounds [][2]int
	if sep == "" {
		for i := 0; i < len(text); {
			_, w := utf8.DecodeRuneInString(text[i:])
			bounds = append(bounds, [2]int{i, i + w})
			i += w
		}
		return bounds
	}
	start, search := 0, 0
	for {
		i := strings.Index(text[search:], sep)
		if i < 0 {
			break
		}
		at := search + i
		if at > start {
			bounds = append(bounds, [2]int{start, at})
			start = at
		}
		search = at + len(sep)
	}
	return append(bounds, [2]int{start, len(text)})
}
