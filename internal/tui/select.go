// Package tui provides interactive terminal UI components.
package tui

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/lepinkainen/novelseek/internal/aggregate"
	"github.com/lepinkainen/novelseek/internal/errors"
)

const (
	defaultListWidth  = 72
	defaultListHeight = 20
)

var runProgram = func(m tea.Model) (tea.Model, error) {
	return tea.NewProgram(m).Run()
}

// SelectionAction represents the user's action in the picker.
type SelectionAction int

const (
	// ActionNone indicates no action was taken.
	ActionNone SelectionAction = iota
	// ActionSelected indicates the user selected a book.
	ActionSelected
	// ActionNextPage asks for the following result page.
	ActionNextPage
	// ActionPrevPage asks for the preceding result page.
	ActionPrevPage
	// ActionStopped indicates the user closed the picker.
	ActionStopped
)

// SelectionResult holds the result of one picker run.
type SelectionResult struct {
	Action    SelectionAction
	Selection *aggregate.Item
}

type bookItem struct {
	aggregate.Item
}

func (i bookItem) Title() string {
	return fmt.Sprintf("%d. %s", i.Index, i.Name)
}

func (i bookItem) FilterValue() string {
	return i.Name
}

func (i bookItem) Description() string {
	return i.Intro
}

type itemStyles struct {
	normal      lipgloss.Style
	selected    lipgloss.Style
	originStyle lipgloss.Style
	titleStyle  lipgloss.Style
	scoreStyle  lipgloss.Style
	authorStyle lipgloss.Style
	introStyle  lipgloss.Style
}

func newItemStyles() itemStyles {
	asciiBorder := lipgloss.Border{
		Top:         "-",
		Bottom:      "-",
		Left:        "|",
		Right:       "|",
		TopLeft:     "+",
		TopRight:    "+",
		BottomLeft:  "+",
		BottomRight: "+",
	}

	container := lipgloss.NewStyle().
		Border(asciiBorder).
		BorderForeground(lipgloss.Color("62")).
		Padding(0, 1).
		Foreground(lipgloss.Color("252"))

	selected := container.
		BorderForeground(lipgloss.Color("214")).
		Foreground(lipgloss.Color("230")).
		Background(lipgloss.Color("237"))

	return itemStyles{
		normal:   container,
		selected: selected,
		originStyle: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("110")),
		titleStyle: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("254")),
		scoreStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("178")),
		authorStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("247")).
			Faint(true),
		introStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("248")),
	}
}

type bookDelegate struct {
	styles itemStyles
}

func newDelegate() bookDelegate {
	return bookDelegate{styles: newItemStyles()}
}

func (d bookDelegate) Height() int                         { return 4 }
func (d bookDelegate) Spacing() int                        { return 1 }
func (d bookDelegate) Update(tea.Msg, *list.Model) tea.Cmd { return nil }

func (d bookDelegate) Render(w io.Writer, m list.Model, idx int, item list.Item) {
	b, ok := item.(bookItem)
	if !ok {
		return
	}
	width := m.Width() - 4

	originLine := d.styles.originStyle.Render(fmt.Sprintf("[%s]", strings.ToUpper(b.Origin))) +
		" " + d.styles.scoreStyle.Render(formatScore(b.Score))
	titleLine := d.styles.titleStyle.Render(truncate(b.Title(), width))
	authorLine := d.styles.authorStyle.Render(truncate(formatMetadata(b.Item), width))
	introLine := d.styles.introStyle.Render(truncate(b.Intro, width))

	content := lipgloss.JoinVertical(lipgloss.Left, originLine, titleLine, authorLine, introLine)

	container := d.styles.normal
	if idx == m.Index() {
		container = d.styles.selected
	}
	_, _ = fmt.Fprint(w, container.Render(content))
}

type model struct {
	list    list.Model
	heading string
	hasPrev bool
	hasNext bool
	result  SelectionResult
}

func newModel(res *aggregate.Result) *model {
	listItems := make([]list.Item, len(res.Items))
	for i, item := range res.Items {
		listItems[i] = bookItem{Item: item}
	}

	l := list.New(listItems, newDelegate(), defaultListWidth, defaultListHeight)
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(false)
	l.SetShowHelp(false)
	l.SetShowTitle(false)
	l.SetShowPagination(false)
	l.DisableQuitKeybindings()
	l.Styles.NoItems = lipgloss.NewStyle()

	heading := fmt.Sprintf("Results for %q, page %d", res.Keyword, res.Page)
	if res.Platform != "" {
		heading = fmt.Sprintf("%s results for %q, page %d", res.Platform, res.Keyword, res.Page)
	}

	return &model{
		list:    l,
		heading: heading,
		hasPrev: res.Page > 1,
		hasNext: res.HasMore,
		result:  SelectionResult{Action: ActionNone},
	}
}

func (m *model) Init() tea.Cmd { return nil }

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "enter":
			if selected, ok := m.list.SelectedItem().(bookItem); ok {
				item := selected.Item
				m.result = SelectionResult{Action: ActionSelected, Selection: &item}
				return m, tea.Quit
			}
		case "n", "right":
			if m.hasNext {
				m.result = SelectionResult{Action: ActionNextPage}
				return m, tea.Quit
			}
			return m, nil
		case "p", "left":
			if m.hasPrev {
				m.result = SelectionResult{Action: ActionPrevPage}
				return m, tea.Quit
			}
			return m, nil
		case "ctrl+c", "q", "esc":
			m.result = SelectionResult{Action: ActionStopped}
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		width := clamp(defaultListWidth, msg.Width-4, 40)
		height := clamp(defaultListHeight, msg.Height-6, 5)
		m.list.SetSize(width, height)
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m *model) View() string {
	header := headerStyle.Render(m.heading)
	listView := m.list.View()

	var nav []string
	if m.hasPrev {
		nav = append(nav, pageButtonStyle.Render(" Prev (p) "))
	}
	if m.hasNext {
		nav = append(nav, pageButtonStyle.Render(" Next (n) "))
	}
	nav = append(nav, stopButtonStyle.Render(" Quit (q) "))
	buttons := lipgloss.JoinHorizontal(lipgloss.Left, nav...)

	help := helpStyle.Render("Up/Down navigate | Enter select | n/p page | q quit")
	return lipgloss.JoinVertical(lipgloss.Left, header, listView, buttons, help)
}

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("214")).
			MarginBottom(1)

	pageButtonStyle = lipgloss.NewStyle().
			MarginTop(1).
			MarginRight(2).
			Padding(0, 2).
			Background(lipgloss.Color("178")).
			Foreground(lipgloss.Color("0")).
			Bold(true)

	stopButtonStyle = lipgloss.NewStyle().
			MarginTop(1).
			Padding(0, 2).
			Background(lipgloss.Color("161")).
			Foreground(lipgloss.Color("230")).
			Bold(true)

	helpStyle = lipgloss.NewStyle().
			MarginTop(1).
			Foreground(lipgloss.Color("244"))
)

// Select shows one result page and reports what the user chose. Closing the
// picker returns a StopProcessingError.
func Select(res *aggregate.Result) (SelectionResult, error) {
	if res == nil || len(res.Items) == 0 {
		return SelectionResult{Action: ActionNone}, nil
	}

	finalModel, err := runProgram(newModel(res))
	if err != nil {
		return SelectionResult{}, err
	}

	typed, ok := finalModel.(*model)
	if !ok {
		return SelectionResult{}, fmt.Errorf("unexpected program result")
	}
	if typed.result.Action == ActionStopped {
		return typed.result, errors.NewStopProcessingError("picker closed")
	}
	return typed.result, nil
}

// truncate collapses whitespace and cuts value to width terminal cells.
func truncate(value string, width int) string {
	value = strings.Join(strings.Fields(value), " ")
	if width <= 0 || runewidth.StringWidth(value) <= width {
		return value
	}
	if width <= 3 {
		return runewidth.Truncate(value, width, "")
	}
	return runewidth.Truncate(value, width, "...")
}

func formatScore(score float64) string {
	if score <= 0 {
		return ""
	}
	return fmt.Sprintf("%.1f", score)
}

// formatMetadata builds the author line with word count and tags.
func formatMetadata(item aggregate.Item) string {
	var parts []string
	if item.Author != "" {
		parts = append(parts, item.Author)
	}
	if item.WordCount != "" {
		parts = append(parts, item.WordCount)
	}
	if len(item.Tags) > 0 {
		parts = append(parts, strings.Join(item.Tags, ", "))
	}
	if len(parts) == 0 {
		return "No metadata available"
	}
	return strings.Join(parts, " | ")
}

func clamp(defaultValue, available, minimum int) int {
	width := defaultValue
	if available > 0 && available < defaultValue {
		width = available
	}
	if width < minimum {
		width = minimum
	}
	return width
}
