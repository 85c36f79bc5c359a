package tui

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lepinkainen/novelseek/internal/aggregate"
	"github.com/lepinkainen/novelseek/internal/book"
	"github.com/lepinkainen/novelseek/internal/errors"
)

func testResult(page int, hasMore bool) *aggregate.Result {
	return &aggregate.Result{
		Keyword: "斗罗",
		Page:    page,
		HasMore: hasMore,
		Items: []aggregate.Item{
			{Index: 11, ScoredCandidate: book.ScoredCandidate{
				Candidate: book.Candidate{Origin: "qidian", Name: "斗罗大陆", Author: "唐家三少", WordCount: "298万字"},
				Score:     110,
			}},
			{Index: 12, ScoredCandidate: book.ScoredCandidate{
				Candidate: book.Candidate{Origin: "sfacg", Name: "斗罗之二", Author: "某人"},
				Score:     70,
			}},
		},
	}
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// stubProgram feeds keys to the model instead of running a terminal program.
func stubProgram(t *testing.T, keys ...tea.KeyMsg) {
	t.Helper()
	orig := runProgram
	t.Cleanup(func() { runProgram = orig })

	runProgram = func(m tea.Model) (tea.Model, error) {
		for _, k := range keys {
			m, _ = m.Update(k)
		}
		return m, nil
	}
}

func TestSelect_EnterPicksHighlighted(t *testing.T) {
	stubProgram(t, tea.KeyMsg{Type: tea.KeyDown}, tea.KeyMsg{Type: tea.KeyEnter})

	res, err := Select(testResult(2, true))
	require.NoError(t, err)
	assert.Equal(t, ActionSelected, res.Action)
	require.NotNil(t, res.Selection)
	assert.Equal(t, 12, res.Selection.Index)
	assert.Equal(t, "斗罗之二", res.Selection.Name)
}

func TestSelect_Paging(t *testing.T) {
	tests := []struct {
		name    string
		page    int
		hasMore bool
		keys    []tea.KeyMsg
		want    SelectionAction
	}{
		{name: "next", page: 1, hasMore: true, keys: []tea.KeyMsg{runes("n")}, want: ActionNextPage},
		{name: "prev", page: 2, hasMore: false, keys: []tea.KeyMsg{runes("p")}, want: ActionPrevPage},
		{name: "next ignored on last page", page: 2, hasMore: false, keys: []tea.KeyMsg{runes("n")}, want: ActionNone},
		{name: "prev ignored on first page", page: 1, hasMore: true, keys: []tea.KeyMsg{runes("p")}, want: ActionNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stubProgram(t, tt.keys...)
			res, err := Select(testResult(tt.page, tt.hasMore))
			require.NoError(t, err)
			assert.Equal(t, tt.want, res.Action)
		})
	}
}

func TestSelect_QuitStopsProcessing(t *testing.T) {
	stubProgram(t, runes("q"))

	res, err := Select(testResult(1, true))
	require.Error(t, err)
	assert.True(t, errors.IsStopProcessingError(err))
	assert.Equal(t, ActionStopped, res.Action)
}

func TestSelect_EmptyResult(t *testing.T) {
	res, err := Select(&aggregate.Result{Keyword: "x"})
	require.NoError(t, err)
	assert.Equal(t, ActionNone, res.Action)
}

func TestModelView(t *testing.T) {
	m := newModel(testResult(2, true))
	view := m.View()

	assert.Contains(t, view, `Results for "斗罗", page 2`)
	assert.Contains(t, view, "Prev (p)")
	assert.Contains(t, view, "Next (n)")
	assert.Contains(t, view, "斗罗大陆")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "a b", truncate("  a \n b ", 10))
	assert.Equal(t, "abcd...", truncate("abcdefghij", 7))
	assert.Equal(t, "斗罗...", truncate("斗罗大陆斗罗大陆", 7), "wide runes count two cells")
	assert.Equal(t, "abc", truncate("abcdef", 3))
}

func TestFormatMetadata(t *testing.T) {
	item := testResult(1, false).Items[0]
	item.Tags = []string{"玄幻", "热血"}
	assert.Equal(t, "唐家三少 | 298万字 | 玄幻, 热血", formatMetadata(item))
	assert.Equal(t, "No metadata available", formatMetadata(aggregate.Item{}))
}
