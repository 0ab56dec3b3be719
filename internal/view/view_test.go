package view

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskdeck/internal/config"
	"taskdeck/internal/store"
	"taskdeck/internal/task"
)

var now = time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)

const tasksDoc = `# Tasks

## Inbox [project:inbox area:inbox]

- [ ] Try taskdeck [id:1 energy:normal est:30m area:inbox bucket:today]
- [x] Done already [id:2 bucket:today]
- [ ] Due today [id:10 due:2026-10-19]
- [ ] Someday [id:3]
`

const dailyDoc = `# Daily

<!-- view:start name="daily" query="bucket:today status:open" -->
<!-- view:end name="daily" -->
`

func parseTasks(t *testing.T) []*task.Task {
	t.Helper()
	d, err := task.Parse("tasks.md", strings.NewReader(tasksDoc))
	require.NoError(t, err)
	return d.Tasks
}

func TestMarkers(t *testing.T) {
	assert.Equal(t, `<!-- view:start name="daily" query="bucket:today status:open" -->`,
		StartMarker("daily", "bucket:today status:open"))
	assert.Equal(t, `<!-- view:end name="daily" -->`, EndMarker("daily"))
}

func TestFindBlocks(t *testing.T) {
	blocks, err := FindBlocks(strings.Split(dailyDoc, "\n"))
	require.NoError(t, err)
	require.Len(t, blocks, 1)
	assert.Equal(t, Block{Name: "daily", Query: "bucket:today status:open", Start: 2, End: 3}, blocks[0])
}

func TestFindBlocks_Errors(t *testing.T) {
	start := StartMarker("a", "status:open")
	tests := []struct {
		name  string
		lines []string
		want  error
	}{
		{"unterminated", []string{start, "x"}, ErrUnterminated},
		{"nested", []string{start, StartMarker("b", "status:open"), EndMarker("b")}, ErrNested},
		{"mismatched", []string{start, EndMarker("b")}, ErrMismatchedEnd},
		{"orphan", []string{EndMarker("a")}, ErrOrphanEnd},
		{"no query", []string{`<!-- view:start name="a" -->`, EndMarker("a")}, ErrMissingQuery},
		{"no name", []string{`<!-- view:start query="x" -->`, EndMarker("a")}, ErrMissingName},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FindBlocks(tt.lines)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}
}

func TestFindBlocks_EndWithoutNameCloses(t *testing.T) {
	blocks, err := FindBlocks([]string{StartMarker("a", "status:open"), "<!-- view:end -->"})
	require.NoError(t, err)
	assert.Len(t, blocks, 1)
}

func TestRender(t *testing.T) {
	out, changed, err := Render(dailyDoc, parseTasks(t), now)
	require.NoError(t, err)
	assert.True(t, changed)

	want := `# Daily

<!-- view:start name="daily" query="bucket:today status:open" -->
- [ ] Try taskdeck [id:1 energy:normal est:30m area:inbox bucket:today]
- [ ] Due today [id:10 due:2026-10-19]
<!-- view:end name="daily" -->
`
	assert.Equal(t, want, out)
}

func TestRender_Idempotent(t *testing.T) {
	tasks := parseTasks(t)
	first, _, err := Render(dailyDoc, tasks, now)
	require.NoError(t, err)

	second, changed, err := Render(first, tasks, now)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, first, second)
}

func TestRender_ReplacesStaleContentAndEmpty(t *testing.T) {
	stale := strings.Replace(dailyDoc, "-->\n<!-- view:end", "-->\n- [ ] old line\n<!-- view:end", 1)
	out, changed, err := Render(stale, nil, now)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.NotContains(t, out, "old line")
	assert.Contains(t, out, EmptyPlaceholder)
}

func TestRender_MultipleBlocksKeepSurroundingText(t *testing.T) {
	content := strings.Join([]string{
		"intro",
		StartMarker("open", "status:open"),
		EndMarker("open"),
		"middle",
		StartMarker("done", "status:done"),
		"junk",
		EndMarker("done"),
		"outro",
	}, "\n")

	out, _, err := Render(content, parseTasks(t), now)
	require.NoError(t, err)

	lines := strings.Split(out, "\n")
	assert.Equal(t, "intro", lines[0])
	assert.Equal(t, "- [ ] Try taskdeck [id:1 energy:normal est:30m area:inbox bucket:today]", lines[2])
	assert.Equal(t, "- [ ] Someday [id:3]", lines[3])
	assert.Equal(t, "- [ ] Due today [id:10 due:2026-10-19]", lines[4])
	assert.Equal(t, "middle", lines[6])
	assert.Equal(t, "- [x] Done already [id:2 bucket:today]", lines[8])
	assert.Equal(t, "outro", lines[len(lines)-1])
}

func TestRender_BadQuery(t *testing.T) {
	content := StartMarker("bad", "status:") + "\n" + EndMarker("bad")
	_, _, err := Render(content, nil, now)
	assert.Error(t, err)
}

func TestSortTasks(t *testing.T) {
	ts := []*task.Task{
		{Title: "b"},
		{ID: "10", Title: "x"},
		{ID: "2", Title: "y"},
		{Title: "a"},
	}
	SortTasks(ts)
	got := make([]string, len(ts))
	for i, t := range ts {
		got[i] = t.Title
	}
	assert.Equal(t, []string{"y", "x", "a", "b"}, got)
}

func writeWorkspace(t *testing.T) string {
	t.Helper()
	ws := t.TempDir()
	files := map[string]string{
		"tasks.md":            tasksDoc,
		"work/extra.tasks.md": "- [ ] Extra [id:20 bucket:today]\n",
		"daily.md":            dailyDoc,
		"views/done.md":       StartMarker("done", "status:done") + "\n" + EndMarker("done") + "\n",
		"views/plain.md":      "no blocks here\n",
	}
	for name, body := range files {
		p := filepath.Join(ws, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0755))
		require.NoError(t, os.WriteFile(p, []byte(body), 0644))
	}
	return ws
}

func TestRefresher_Refresh(t *testing.T) {
	ws := writeWorkspace(t)
	r := NewRefresher(ws, config.DefaultConfig())
	r.Now = func() time.Time { return now }

	idx, err := store.Open(":memory:")
	require.NoError(t, err)
	defer idx.Close()
	r.Index = idx

	res, err := r.Refresh(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, res.RunID)
	assert.Equal(t, 2, res.Sources)
	assert.Equal(t, 5, res.Tasks)
	require.Len(t, res.Files, 3)
	assert.Equal(t, 2, res.Written())

	daily, err := os.ReadFile(filepath.Join(ws, "daily.md"))
	require.NoError(t, err)
	assert.Contains(t, string(daily), "- [ ] Extra [id:20 bucket:today]")
	assert.Contains(t, string(daily), "- [ ] Try taskdeck")

	n, err := idx.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	// Second run writes nothing.
	res, err = r.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, res.Written())
}

func TestRefresher_BrokenViewDoesNotBlockOthers(t *testing.T) {
	ws := writeWorkspace(t)
	broken := filepath.Join(ws, "views", "broken.md")
	require.NoError(t, os.WriteFile(broken, []byte(StartMarker("x", "status:open")+"\n"), 0644))

	r := NewRefresher(ws, config.DefaultConfig())
	r.Now = func() time.Time { return now }

	res, err := r.Refresh(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnterminated))
	assert.Equal(t, 2, res.Written())
}

func TestRefresher_SourcesAreNotViews(t *testing.T) {
	ws := writeWorkspace(t)
	cfg := config.DefaultConfig()
	cfg.Views = append(cfg.Views, "*.md")

	r := NewRefresher(ws, cfg)
	views, err := r.ViewFiles()
	require.NoError(t, err)
	assert.NotContains(t, views, "tasks.md")
	assert.Contains(t, views, "daily.md")
}

func TestRefresher_Cancelled(t *testing.T) {
	ws := writeWorkspace(t)
	r := NewRefresher(ws, config.DefaultConfig())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := r.Refresh(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRefresher_ConcurrentRefreshes(t *testing.T) {
	ws := writeWorkspace(t)
	daily := filepath.Join(ws, "daily.md")

	for i := 0; i < 50; i++ {
		require.NoError(t, os.WriteFile(daily, []byte(dailyDoc), 0644))

		var wg sync.WaitGroup
		errs := make([]error, 2)
		for j := range errs {
			wg.Add(1)
			go func(j int) {
				defer wg.Done()
				r := NewRefresher(ws, config.DefaultConfig())
				r.Now = func() time.Time { return now }
				_, errs[j] = r.Refresh(context.Background())
			}(j)
		}
		wg.Wait()
		for _, err := range errs {
			require.NoError(t, err)
		}
	}

	got, err := os.ReadFile(daily)
	require.NoError(t, err)
	assert.Contains(t, string(got), "- [ ] Extra [id:20 bucket:today]")

	leftovers, err := filepath.Glob(filepath.Join(ws, "*.tmp"))
	require.NoError(t, err)
	assert.Empty(t, leftovers)
}
