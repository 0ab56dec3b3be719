// Package board implements the interactive task list: a scrollable list of
// tasks, a search panel with autocomplete from the index, and a markdown
// detail view.
package board

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"

	"taskdeck/cmd/deck/ui"
	"taskdeck/internal/config"
	"taskdeck/internal/logging"
	"taskdeck/internal/query"
	"taskdeck/internal/store"
	"taskdeck/internal/task"
	"taskdeck/internal/view"
)

// Config holds what the board needs from the caller.
type Config struct {
	Workspace string
	Settings  *config.Config
	Refresher *view.Refresher
	Index     *store.Index // optional; nil disables autocomplete
	Now       func() time.Time
}

// Model is the bubbletea model for the board.
type Model struct {
	workspace string
	settings  *config.Config
	refresher *view.Refresher
	index     *store.Index
	now       func() time.Time

	styles   ui.Styles
	keys     keyMap
	help     help.Model
	list     viewport.Model
	detailVP viewport.Model
	search   textinput.Model
	renderer *glamour.TermRenderer

	width  int
	height int

	tasks   []*task.Task
	visible []*task.Task
	cursor  int

	query    *query.Query
	queryErr error

	searchActive  bool
	suggestions   []store.Suggestion
	suggestionIdx int

	showDetail bool

	status    string
	err       error
	loading   bool
	lastRunID string
}

// Messages produced by commands.
type (
	tasksLoadedMsg struct {
		tasks  []*task.Task
		result *view.RefreshResult
		err    error
	}

	suggestionsMsg struct {
		input       string
		suggestions []store.Suggestion
	}

	toggledMsg struct {
		title string
		done  bool
		err   error
	}
)

// New creates a board model.
func New(cfg Config) Model {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	styles := ui.NewStyles(ui.ThemeFor(cfg.Settings.UI.Theme))

	ti := textinput.New()
	ti.Placeholder = "status:open area:home words..."
	ti.Prompt = "/ "
	ti.PromptStyle = styles.Prompt
	ti.CharLimit = 256

	m := Model{
		workspace: cfg.Workspace,
		settings:  cfg.Settings,
		refresher: cfg.Refresher,
		index:     cfg.Index,
		now:       now,
		styles:    styles,
		keys:      defaultKeyMap(),
		help:      help.New(),
		list:      viewport.New(0, 0),
		detailVP:  viewport.New(0, 0),
		search:    ti,
		query:     &query.Query{},
		loading:   true,
	}
	m.help.ShowAll = true

	if cfg.Settings.UI.SearchOnStart {
		m.searchActive = true
		m.search.Focus()
	}
	return m
}

// Init loads tasks.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.reload()}
	if m.searchActive {
		cmds = append(cmds, textinput.Blink)
	}
	return tea.Batch(cmds...)
}

// Tasks returns the tasks currently listed.
func (m Model) Tasks() []*task.Task {
	return m.visible
}

// Selected returns the task under the cursor, or nil.
func (m Model) Selected() *task.Task {
	if m.cursor < 0 || m.cursor >= len(m.visible) {
		return nil
	}
	return m.visible[m.cursor]
}

// SearchActive reports whether the search panel is open.
func (m Model) SearchActive() bool {
	return m.searchActive
}

// reload refreshes views (which also rebuilds the index) and reloads sources.
func (m Model) reload() tea.Cmd {
	r := m.refresher
	return func() tea.Msg {
		ctx := context.Background()
		res, err := r.Refresh(ctx)
		if err != nil {
			logging.Get(logging.CategoryUI).Warn("refresh: %v", err)
		}
		docs, loadErr := r.LoadSources()
		if loadErr != nil {
			return tasksLoadedMsg{result: res, err: loadErr}
		}
		return tasksLoadedMsg{tasks: task.All(docs), result: res, err: err}
	}
}

func (m Model) suggest(input string) tea.Cmd {
	if m.index == nil {
		return nil
	}
	idx := m.index
	token := lastToken(input)
	return func() tea.Msg {
		list, err := idx.Suggest(context.Background(), token, ui.SuggestionRows)
		if err != nil {
			logging.Get(logging.CategoryUI).Warn("suggest %q: %v", token, err)
		}
		return suggestionsMsg{input: input, suggestions: list}
	}
}

func toggle(t *task.Task) tea.Cmd {
	path, line, done, title := t.File, t.Line, !t.Done, t.Title
	return func() tea.Msg {
		return toggledMsg{title: title, done: done, err: task.SetDone(path, line, done)}
	}
}
