package tui

import (
	"context"
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docsearch/internal/domain"
)

type stubRetriever struct {
	results []domain.SearchResult
	err     error
	gotK    int
}

func (s *stubRetriever) Retrieve(_ context.Context, _ string, k int) ([]domain.SearchResult, error) {
	s.gotK = k
	return s.results, s.err
}

func sized(m Model) Model {
	next, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 30})
	return next.(Model)
}

func typeQuery(t *testing.T, m Model, q string) (Model, tea.Cmd) {
	t.Helper()
	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(q)})
	next, cmd := next.(Model).Update(tea.KeyMsg{Type: tea.KeyEnter})
	return next.(Model), cmd
}

func TestSearchFlow(t *testing.T) {
	stub := &stubRetriever{results: []domain.SearchResult{
		{Chunk: domain.Chunk{ID: 4, Text: "LoRA adds low rank adapters.", SourceLabel: "paper.pdf", Sequence: 2}, Score: 0.91},
		{Chunk: domain.Chunk{ID: 1, Text: "Other text.", SourceLabel: "paper.pdf"}, Score: 0.2},
	}}
	m := sized(New(stub, "paper.pdf: 12 chunks", 5))

	m, cmd := typeQuery(t, m, "lora")
	require.NotNil(t, cmd)
	assert.True(t, m.searching)

	next, _ := m.Update(cmd())
	m = next.(Model)

	assert.Equal(t, 5, stub.gotK)
	assert.False(t, m.searching)
	assert.Len(t, m.results, 2)
	assert.Contains(t, m.status, `2 results for "lora"`)
	view := m.View()
	assert.Contains(t, view, "chunk #4")
	assert.Contains(t, view, "paper.pdf (part 3)")
	assert.Contains(t, view, "paper.pdf: 12 chunks")
}

func TestCursorWraps(t *testing.T) {
	m := sized(New(&stubRetriever{}, "", 0))
	next, _ := m.Update(resultsMsg{query: "q", results: []domain.SearchResult{{}, {}, {}}})
	m = next.(Model)

	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyUp})
	assert.Equal(t, 2, next.(Model).cursor)
	next, _ = next.(Model).Update(tea.KeyMsg{Type: tea.KeyDown})
	assert.Equal(t, 0, next.(Model).cursor)
}

func TestSearchErrorShownInStatus(t *testing.T) {
	m := sized(New(&stubRetriever{}, "", 0))

	next, _ := m.Update(resultsMsg{query: "q", err: errors.New("index unavailable")})

	assert.Equal(t, "Error: index unavailable", next.(Model).status)
	assert.Contains(t, next.(Model).View(), "No results yet.")
}

func TestBlankQueryDoesNotSearch(t *testing.T) {
	m := sized(New(&stubRetriever{}, "", 0))

	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyEnter})

	assert.False(t, next.(Model).searching)
}

func TestViewBeforeResize(t *testing.T) {
	assert.Equal(t, "Loading...", New(&stubRetriever{}, "", 0).View())
}

func TestQuitKeys(t *testing.T) {
	m := New(&stubRetriever{}, "", 0)
	for _, k := range []tea.KeyType{tea.KeyCtrlC, tea.KeyCtrlD, tea.KeyEsc} {
		_, cmd := m.Update(tea.KeyMsg{Type: k})
		require.NotNil(t, cmd)
		assert.IsType(t, tea.QuitMsg{}, cmd())
	}
}

func TestTokenOverlapScore(t *testing.T) {
	q := toTokenSet("Low rank adapters")

	assert.Equal(t, 2, tokenOverlapScore(q, "Adapters are low cost."))
	assert.Equal(t, 0, tokenOverlapScore(q, "Nothing relevant here."))
}

func TestHighlightKeepsUnterminatedTail(t *testing.T) {
	out := highlightBestSentence("Adapters are cheap. The rank decomposition keeps memory low", "rank")

	assert.Contains(t, out, "Adapters are cheap.")
	assert.Contains(t, out, "The rank decomposition keeps memory low")
}

func TestSplitSentences(t *testing.T) {
	assert.Equal(t, []string{"One.", " Two!", " three"}, splitSentences("One. Two! three"))
	assert.Equal(t, []string{"no punctuation at all"}, splitSentences("no punctuation at all"))
	assert.Equal(t, []string{"Done."}, splitSentences("Done.  "))
}

func TestHighlightPicksUnterminatedTail(t *testing.T) {
	out := highlightBestSentence("Adapters are cheap. The rank decomposition keeps memory low", "rank decomposition")

	assert.Equal(t, "Adapters are cheap. "+highlightStyle.Render("The rank decomposition keeps memory low"), out)
}

func TestHighlightKeepsAllSentences(t *testing.T) {
	out := highlightBestSentence("First one. Second about lora. Third.", "lora")

	assert.Contains(t, out, "First one.")
	assert.Contains(t, out, "Second about lora.")
	assert.Contains(t, out, "Third.")
}
