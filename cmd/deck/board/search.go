package board

import (
	"strings"

	"taskdeck/internal/query"
	"taskdeck/internal/task"
)

// lastToken returns the term being typed, without a negation prefix.
// Input ending in whitespace has no current token.
func lastToken(input string) string {
	if input == "" || strings.HasSuffix(input, " ") {
		return ""
	}
	fields := strings.Fields(input)
	if len(fields) == 0 {
		return ""
	}
	return strings.TrimPrefix(fields[len(fields)-1], "-")
}

// completeInput replaces the last token of input with completion, keeping
// a leading '-' and appending a space for the next term.
func completeInput(input, completion string) string {
	if input == "" || strings.HasSuffix(input, " ") {
		return input + completion + " "
	}
	cut := strings.LastIndexAny(input, " \t") + 1
	prefix, last := input[:cut], input[cut:]
	if strings.HasPrefix(last, "-") {
		completion = "-" + completion
	}
	return prefix + completion + " "
}

// setQuery parses input into the active filter. A parse error keeps the
// previous filter and is shown in the footer.
func (m *Model) setQuery(input string) {
	q, err := query.Parse(input)
	if err != nil {
		m.queryErr = err
		return
	}
	m.queryErr = nil
	m.query = q
	m.applyFilter()
}

// applyFilter recomputes the visible tasks and clamps the cursor.
func (m *Model) applyFilter() {
	hideDone := !m.settings.UI.ShowDone && !mentionsStatus(m.query)
	out := make([]*task.Task, 0, len(m.tasks))
	now := m.now()
	for _, t := range m.tasks {
		if hideDone && t.Done {
			continue
		}
		if m.query.Match(t, now) {
			out = append(out, t)
		}
	}
	m.visible = out
	if m.cursor >= len(m.visible) {
		m.cursor = len(m.visible) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
	m.syncList()
}

func mentionsStatus(q *query.Query) bool {
	for _, t := range q.Terms {
		if t.Key == "status" {
			return true
		}
	}
	return false
}
