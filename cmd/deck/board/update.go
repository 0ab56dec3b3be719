package board

import (
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"taskdeck/cmd/deck/ui"
	"taskdeck/internal/logging"
)

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.resize()
		return m, nil

	case tasksLoadedMsg:
		m.loading = false
		m.tasks = msg.tasks
		m.err = msg.err
		if msg.result != nil {
			m.lastRunID = msg.result.RunID
			m.status = fmt.Sprintf("%d tasks, %d views updated", msg.result.Tasks, msg.result.Written())
		}
		m.applyFilter()
		return m, nil

	case suggestionsMsg:
		// Drop answers for input that has since changed.
		if msg.input != m.search.Value() {
			return m, nil
		}
		m.suggestions = msg.suggestions
		if m.suggestionIdx >= len(m.suggestions) {
			m.suggestionIdx = 0
		}
		return m, nil

	case toggledMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		state := "reopened"
		if msg.done {
			state = "done"
		}
		m.status = fmt.Sprintf("%s: %s", state, msg.title)
		logging.UI("toggled %q done=%v", msg.title, msg.done)
		m.loading = true
		return m, m.reload()

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyCtrlC {
		return m, tea.Quit
	}

	if m.showDetail {
		switch {
		case key.Matches(msg, m.keys.Close), key.Matches(msg, m.keys.Detail), msg.String() == "q":
			m.showDetail = false
			return m, nil
		}
		var cmd tea.Cmd
		m.detailVP, cmd = m.detailVP.Update(msg)
		return m, cmd
	}

	if m.searchActive {
		return m.handleSearchKey(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Search):
		m.openSearch()
		return m, tea.Batch(textinput.Blink, m.suggest(m.search.Value()))
	case key.Matches(msg, m.keys.Close):
		if len(m.query.Terms) > 0 {
			m.search.SetValue("")
			m.setQuery("")
		}
		return m, nil
	case key.Matches(msg, m.keys.Down):
		m.moveCursor(1)
		return m, nil
	case key.Matches(msg, m.keys.Up):
		m.moveCursor(-1)
		return m, nil
	case key.Matches(msg, m.keys.Toggle):
		if t := m.Selected(); t != nil {
			return m, toggle(t)
		}
		return m, nil
	case key.Matches(msg, m.keys.Refresh):
		if m.loading {
			return m, nil
		}
		m.loading = true
		m.status = "refreshing..."
		return m, m.reload()
	case key.Matches(msg, m.keys.Detail):
		if t := m.Selected(); t != nil {
			m.openDetail(t)
		}
		return m, nil
	}
	return m, nil
}

func (m Model) handleSearchKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.closeSearch()
		return m, nil
	case tea.KeyEnter:
		m.setQuery(m.search.Value())
		m.closeSearch()
		return m, nil
	case tea.KeyTab:
		if len(m.suggestions) == 0 {
			return m, nil
		}
		value := completeInput(m.search.Value(), m.suggestions[m.suggestionIdx].Text())
		m.search.SetValue(value)
		m.search.CursorEnd()
		m.setQuery(value)
		m.suggestions = nil
		m.suggestionIdx = 0
		return m, m.suggest(value)
	case tea.KeyUp:
		if m.suggestionIdx > 0 {
			m.suggestionIdx--
		}
		return m, nil
	case tea.KeyDown:
		if m.suggestionIdx < len(m.suggestions)-1 {
			m.suggestionIdx++
		}
		return m, nil
	}

	before := m.search.Value()
	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	if after := m.search.Value(); after != before {
		m.setQuery(after)
		m.suggestionIdx = 0
		return m, tea.Batch(cmd, m.suggest(after))
	}
	return m, cmd
}

func (m *Model) openSearch() {
	m.searchActive = true
	m.search.Focus()
	m.resize()
}

func (m *Model) closeSearch() {
	m.searchActive = false
	m.search.Blur()
	m.suggestions = nil
	m.suggestionIdx = 0
	m.resize()
}

func (m *Model) moveCursor(delta int) {
	if len(m.visible) == 0 {
		return
	}
	m.cursor += delta
	if m.cursor < 0 {
		m.cursor = 0
	}
	if m.cursor >= len(m.visible) {
		m.cursor = len(m.visible) - 1
	}
	m.syncList()
}

// resize recomputes component sizes from the terminal size and footer state.
func (m *Model) resize() {
	layout := ui.NewLayoutConfig(m.width, m.height)
	body := ui.BodyHeight(m.height, m.footerOptions())

	m.list.Width = layout.ContentWidth()
	m.list.Height = body
	m.detailVP.Width = layout.ContentWidth()
	m.detailVP.Height = max(m.height-ui.HeaderHeight-1, 0)
	m.search.Width = max(ui.PanelContentWidth(m.width)-len(m.search.Prompt)-2, 1)
	m.help.Width = m.width
	m.renderer = nil
	m.syncList()
}

func (m Model) footerOptions() ui.FooterOptions {
	return ui.FooterOptions{SearchActive: m.searchActive}
}
