package board

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"taskdeck/cmd/deck/ui"
	"taskdeck/internal/task"
)

// View renders the screen.
func (m Model) View() string {
	if m.width == 0 {
		return "loading..."
	}

	if ui.NewLayoutConfig(m.width, m.height).IsTooSmall {
		return m.renderTooSmall()
	}

	header := m.renderHeader()
	if m.showDetail {
		return lipgloss.JoinVertical(lipgloss.Left,
			header,
			m.detailVP.View(),
			m.styles.Footer.Render("esc/enter/q: back"),
		)
	}

	parts := []string{header}
	if m.list.Height > 0 {
		parts = append(parts, m.styles.Body.Render(m.list.View()))
	}
	if m.searchActive {
		parts = append(parts, m.renderSearchPanel())
	}
	parts = append(parts, m.renderFooter())
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (m Model) renderTooSmall() string {
	msg := fmt.Sprintf("terminal too small: %dx%d, need %dx%d",
		m.width, m.height, ui.MinimumTerminalWidth, ui.MinimumTerminalHeight)
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center,
		m.styles.Warning.Render(msg))
}

func (m Model) renderHeader() string {
	title := fmt.Sprintf("taskdeck  %d/%d tasks", len(m.visible), len(m.tasks))
	if q := m.query.String(); q != "" {
		title += "  " + q
	}
	bar := m.styles.Header.Width(m.width).MaxHeight(1).Render(title)
	return lipgloss.JoinVertical(lipgloss.Left, bar, m.styles.RenderDivider(m.width))
}

// renderSearchPanel renders the bordered input plus suggestion rows,
// exactly SearchPanelHeight rows tall.
func (m Model) renderSearchPanel() string {
	rows := []string{m.search.View()}
	for i := 0; i < ui.SuggestionRows; i++ {
		if i >= len(m.suggestions) {
			rows = append(rows, "")
			continue
		}
		s := m.suggestions[i]
		text := fmt.Sprintf("%s (%d)", s.Text(), s.Count)
		if i == m.suggestionIdx {
			rows = append(rows, m.styles.SuggestionSelected.Render("› "+text))
		} else {
			rows = append(rows, m.styles.Suggestion.Render("  "+text))
		}
	}
	width := m.width - ui.PanelBorderWidth*2
	if width < 0 {
		width = 0
	}
	return m.styles.SearchPanel.Width(width).Render(strings.Join(rows, "\n"))
}

// renderFooter renders FooterBaseHeight rows: status, divider and key help.
func (m Model) renderFooter() string {
	var status string
	switch {
	case m.err != nil:
		status = m.styles.Error.Render("error: " + m.err.Error())
	case m.queryErr != nil:
		status = m.styles.Warning.Render(m.queryErr.Error())
	case m.loading:
		status = m.styles.Muted.Render("loading...")
	default:
		status = m.styles.Muted.Render(m.status)
	}

	body := lipgloss.JoinVertical(lipgloss.Left,
		m.styles.RenderDivider(m.width),
		status,
		"",
		m.help.View(m.keys),
	)
	return m.styles.Footer.
		Height(ui.FooterBaseHeight).
		MaxHeight(ui.FooterBaseHeight).
		Render(body)
}

// syncList renders the task rows into the list viewport and keeps the
// cursor row visible.
func (m *Model) syncList() {
	if len(m.visible) == 0 {
		msg := "No tasks."
		if len(m.tasks) > 0 {
			msg = "No tasks match the current filter."
		}
		m.list.SetContent(m.styles.Muted.Render(msg))
		m.list.GotoTop()
		return
	}

	rows := make([]string, len(m.visible))
	for i, t := range m.visible {
		rows[i] = m.renderRow(t, i == m.cursor)
	}
	m.list.SetContent(strings.Join(rows, "\n"))

	if m.list.Height <= 0 {
		return
	}
	switch {
	case m.cursor < m.list.YOffset:
		m.list.SetYOffset(m.cursor)
	case m.cursor >= m.list.YOffset+m.list.Height:
		m.list.SetYOffset(m.cursor - m.list.Height + 1)
	}
}

func (m Model) renderRow(t *task.Task, selected bool) string {
	box := "[ ]"
	style := m.styles.Task
	if t.Done {
		box = "[x]"
		style = m.styles.TaskDone
	}
	line := box + " " + t.Title
	if t.ID != "" {
		line = fmt.Sprintf("%s  #%s", line, t.ID)
	}
	if s := t.SectionName(); s != "" {
		line += "  " + m.styles.Section.Render(s)
	}
	if selected {
		return m.styles.TaskSelected.Render("> " + line)
	}
	return style.Render("  " + line)
}

func (m *Model) openDetail(t *task.Task) {
	if m.renderer == nil {
		style := "light"
		if m.styles.Theme.IsDark {
			style = "dark"
		}
		wrap := m.detailVP.Width - 2
		if wrap < 20 {
			wrap = 20
		}
		r, err := glamour.NewTermRenderer(
			glamour.WithStandardStyle(style),
			glamour.WithWordWrap(wrap),
		)
		if err != nil {
			m.err = err
			return
		}
		m.renderer = r
	}

	md := m.detailMarkdown(t)
	out, err := m.renderer.Render(md)
	if err != nil {
		out = md
	}
	m.detailVP.SetContent(out)
	m.detailVP.GotoTop()
	m.showDetail = true
}

// detailMarkdown describes a task as markdown: title, location and a table
// of its effective metadata.
func (m Model) detailMarkdown(t *task.Task) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n\n", t.Title)

	rel := t.File
	if r, err := filepath.Rel(m.workspace, t.File); err == nil {
		rel = r
	}
	fmt.Fprintf(&sb, "`%s:%d`", filepath.ToSlash(rel), t.Line)
	if s := t.SectionName(); s != "" {
		fmt.Fprintf(&sb, " in **%s**", s)
	}
	sb.WriteString("\n\n")

	sb.WriteString("| key | value |\n|---|---|\n")
	fmt.Fprintf(&sb, "| status | %s |\n", t.Status())
	if b := t.Bucket(m.now()); b != "" {
		fmt.Fprintf(&sb, "| bucket | %s |\n", b)
	}
	for _, p := range t.Meta {
		if p.Key == "status" || p.Key == "bucket" {
			continue
		}
		fmt.Fprintf(&sb, "| %s | %s |\n", p.Key, p.Value)
	}
	if t.Section != nil {
		for _, p := range t.Section.Meta {
			if _, own := t.Meta.Get(p.Key); own || p.Key == "status" || p.Key == "bucket" {
				continue
			}
			fmt.Fprintf(&sb, "| %s | %s *(section)* |\n", p.Key, p.Value)
		}
	}
	return sb.String()
}
