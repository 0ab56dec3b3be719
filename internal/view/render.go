package view

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"taskdeck/internal/query"
	"taskdeck/internal/task"
)

// EmptyPlaceholder fills blocks whose query matches nothing.
const EmptyPlaceholder = "_No matching tasks._"

// Render replaces the interior of every block in content with the tasks
// matching the block's query. It reports whether the content changed.
// Rendering already-rendered content with the same tasks is a no-op.
func Render(content string, tasks []*task.Task, now time.Time) (string, bool, error) {
	lines := strings.Split(content, "\n")
	blocks, err := FindBlocks(lines)
	if err != nil {
		return content, false, err
	}
	if len(blocks) == 0 {
		return content, false, nil
	}

	out := make([]string, 0, len(lines))
	prev := 0
	for _, b := range blocks {
		q, err := query.Parse(b.Query)
		if err != nil {
			return content, false, fmt.Errorf("view %q: %w", b.Name, err)
		}
		out = append(out, lines[prev:b.Start+1]...)
		out = append(out, RenderLines(query.Filter(tasks, q, now))...)
		prev = b.End
	}
	out = append(out, lines[prev:]...)

	rendered := strings.Join(out, "\n")
	return rendered, rendered != content, nil
}

// RenderLines formats matching tasks in display order.
func RenderLines(matched []*task.Task) []string {
	if len(matched) == 0 {
		return []string{EmptyPlaceholder}
	}
	sorted := make([]*task.Task, len(matched))
	copy(sorted, matched)
	SortTasks(sorted)

	lines := make([]string, len(sorted))
	for i, t := range sorted {
		lines[i] = t.Format()
	}
	return lines
}

// SortTasks orders tasks by numeric id, then title, then position.
// Tasks without a numeric id sort last.
func SortTasks(ts []*task.Task) {
	sort.SliceStable(ts, func(i, j int) bool {
		a, b := ts[i], ts[j]
		ai, bi := a.NumericID(), b.NumericID()
		if (ai < 0) != (bi < 0) {
			return ai >= 0
		}
		if ai != bi {
			return ai < bi
		}
		if a.Title != b.Title {
			return a.Title < b.Title
		}
		if a.File != b.File {
			return a.File < b.File
		}
		return a.Line < b.Line
	})
}
