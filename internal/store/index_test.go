package store

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskdeck/internal/task"
)

const doc = `## Inbox [project:inbox area:inbox]
- [ ] Try taskdeck [id:1 energy:normal est:30m area:inbox]
- [ ] Call plumber [id:2 energy:low area:home]
- [x] Pay rent [id:3 energy:low area:home]
- [ ] Under_score [id:4 tag:50%_off]
`

func newIndex(t *testing.T) *Index {
	t.Helper()
	idx, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { idx.Close() })

	d, err := task.Parse("tasks.md", strings.NewReader(doc))
	require.NoError(t, err)
	require.NoError(t, idx.Replace(context.Background(), d.Tasks))
	return idx
}

func TestOpen_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".deck", "index.db")
	idx, err := Open(path)
	require.NoError(t, err)
	defer idx.Close()

	n, err := idx.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestReplace_Count(t *testing.T) {
	idx := newIndex(t)
	ctx := context.Background()

	n, err := idx.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	// Replace drops stale rows.
	d, err := task.Parse("tasks.md", strings.NewReader("- [ ] Only one [id:9]\n"))
	require.NoError(t, err)
	require.NoError(t, idx.Replace(ctx, d.Tasks))

	n, err = idx.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestValueCount(t *testing.T) {
	idx := newIndex(t)

	n, err := idx.ValueCount(context.Background())
	require.NoError(t, err)
	// project:inbox, area:inbox, area:home, energy:normal, energy:low,
	// est:30m, tag:50%_off, status:open, status:done
	assert.Equal(t, 9, n)
}

func TestSuggest_ValuesOfKey(t *testing.T) {
	idx := newIndex(t)

	got, err := idx.Suggest(context.Background(), "area:", 10)
	require.NoError(t, err)
	require.Len(t, got, 2)
	// Both values count 2 (task 4 inherits area:inbox from its section),
	// so ties break alphabetically.
	assert.Equal(t, Suggestion{Key: "area", Value: "home", Count: 2}, got[0])
	assert.Equal(t, Suggestion{Key: "area", Value: "inbox", Count: 2}, got[1])

	got, err = idx.Suggest(context.Background(), "AREA:ho", 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "area:home", got[0].Text())
}

func TestSuggest_RankedByCount(t *testing.T) {
	idx := newIndex(t)

	got, err := idx.Suggest(context.Background(), "energy:", 10)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, Suggestion{Key: "energy", Value: "low", Count: 2}, got[0])
	assert.Equal(t, Suggestion{Key: "energy", Value: "normal", Count: 1}, got[1])
}

func TestSuggest_KeyPrefix(t *testing.T) {
	idx := newIndex(t)

	got, err := idx.Suggest(context.Background(), "sta", 10)
	require.NoError(t, err)
	var texts []string
	for _, s := range got {
		texts = append(texts, s.Text())
	}
	assert.Equal(t, []string{"status:open", "status:done"}, texts)
}

func TestSuggest_EscapesLike(t *testing.T) {
	idx := newIndex(t)

	got, err := idx.Suggest(context.Background(), "tag:50%", 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "50%_off", got[0].Value)

	got, err = idx.Suggest(context.Background(), "tag:5_", 10)
	require.NoError(t, err)
	assert.Empty(t, got, "underscore is literal")
}

func TestSuggest_Limit(t *testing.T) {
	idx := newIndex(t)

	got, err := idx.Suggest(context.Background(), "", 3)
	require.NoError(t, err)
	assert.Len(t, got, 3)

	got, err = idx.Suggest(context.Background(), "", 0)
	require.NoError(t, err)
	assert.Empty(t, got)
}
