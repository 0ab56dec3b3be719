package task

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `# Tasks

## Inbox [project:inbox area:inbox]

- [ ] Try taskdeck [id:1 energy:normal est:30m area:inbox]
- [x] Unpack boxes [id:2]
Some free text [not meta]

## Work [area:work]

- [ ] Write report [id:3 due:2026-10-19 status:waiting]
  - [ ] Nested step [id:4 area:desk]
- [ ] No metadata here

<!-- view:start name="daily" query="status:open" -->
- [ ] Rendered copy [id:1]
<!-- view:end name="daily" -->
`

func parseSample(t *testing.T) *Document {
	t.Helper()
	doc, err := Parse("tasks.md", strings.NewReader(sample))
	require.NoError(t, err)
	return doc
}

func TestParseMeta(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want Meta
		ok   bool
	}{
		{"single", "id:1", Meta{{"id", "1"}}, true},
		{"several", "id:1 energy:normal est:30m", Meta{{"id", "1"}, {"energy", "normal"}, {"est", "30m"}}, true},
		{"colon in value", "at:10:30", Meta{{"at", "10:30"}}, true},
		{"key lowercased", "Area:Home", Meta{{"area", "Home"}}, true},
		{"plain text", "not meta", nil, false},
		{"empty value", "id:", nil, false},
		{"bad key", "1x:y", nil, false},
		{"empty", "   ", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseMeta(tt.in)
			assert.Equal(t, tt.ok, ok)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("ParseMeta(%q) mismatch (-want +got):\n%s", tt.in, diff)
			}
		})
	}
}

func TestMeta_SetGetString(t *testing.T) {
	m := Meta{{"id", "1"}}
	m.Set("area", "home")
	m.Set("id", "7")

	v, ok := m.Get("id")
	assert.True(t, ok)
	assert.Equal(t, "7", v)
	assert.Equal(t, "id:7 area:home", m.String())
	assert.Equal(t, []string{"id", "area"}, m.Keys())
}

func TestParse_Structure(t *testing.T) {
	doc := parseSample(t)

	assert.Equal(t, "Tasks", doc.Title)
	require.Len(t, doc.Sections, 2)
	assert.Equal(t, "Inbox", doc.Sections[0].Name)
	assert.Equal(t, "project:inbox area:inbox", doc.Sections[0].Meta.String())

	// The rendered copy inside the view block must not be read back.
	require.Len(t, doc.Tasks, 5)

	first := doc.Tasks[0]
	assert.Equal(t, "1", first.ID)
	assert.Equal(t, "Try taskdeck", first.Title)
	assert.Equal(t, 5, first.Line)
	assert.False(t, first.Done)
	assert.Equal(t, "Inbox", first.SectionName())

	assert.True(t, doc.Tasks[1].Done)
	assert.Equal(t, "4", doc.Tasks[3].ID, "indented tasks are parsed")
	assert.Equal(t, "No metadata here", doc.Tasks[4].Title)
	assert.Empty(t, doc.Tasks[4].ID)
}

func TestTask_InheritsSectionMeta(t *testing.T) {
	doc := parseSample(t)

	v, ok := doc.Tasks[1].Get("project")
	assert.True(t, ok)
	assert.Equal(t, "inbox", v)

	v, _ = doc.Tasks[3].Get("area")
	assert.Equal(t, "desk", v, "own metadata overrides the section")
}

func TestTask_Status(t *testing.T) {
	doc := parseSample(t)
	assert.Equal(t, StatusOpen, doc.Tasks[0].Status())
	assert.Equal(t, StatusDone, doc.Tasks[1].Status())
	assert.Equal(t, "waiting", doc.Tasks[2].Status())
}

func TestTask_Bucket(t *testing.T) {
	now := time.Date(2026, 10, 19, 15, 0, 0, 0, time.UTC)
	mk := func(meta string) *Task {
		m, _ := ParseMeta(meta)
		return &Task{Meta: m}
	}

	assert.Equal(t, "today", mk("bucket:today").Bucket(now))
	assert.Equal(t, "someday", mk("bucket:someday due:2026-10-01").Bucket(now), "explicit wins")
	assert.Equal(t, BucketToday, mk("due:2026-10-19").Bucket(now))
	assert.Equal(t, BucketToday, mk("due:2026-10-01").Bucket(now), "overdue")
	assert.Equal(t, BucketWeek, mk("due:2026-10-25").Bucket(now))
	assert.Equal(t, BucketLater, mk("due:2026-10-26").Bucket(now))
	assert.Equal(t, "", mk("due:someday").Bucket(now))
	assert.Equal(t, "", (&Task{}).Bucket(now))
}

func TestTask_FormatRoundTrip(t *testing.T) {
	lines := []string{
		"- [ ] Try taskdeck [id:1 energy:normal est:30m area:inbox]",
		"- [x] Unpack boxes [id:2]",
		"- [ ] No metadata here",
	}
	for _, line := range lines {
		doc, err := Parse("x.md", strings.NewReader(line))
		require.NoError(t, err)
		require.Len(t, doc.Tasks, 1)
		assert.Equal(t, line, doc.Tasks[0].Format())
	}
}

func TestFindByID(t *testing.T) {
	doc := parseSample(t)
	docs := []*Document{doc}

	require.NotNil(t, FindByID(docs, "3"))
	assert.Equal(t, "Write report", FindByID(docs, "3").Title)
	assert.Nil(t, FindByID(docs, "99"))
	assert.Len(t, All(docs), 5)
}

func TestSetDone(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tasks.md")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0644))

	require.NoError(t, SetDone(path, 5, true))

	doc, err := ParseFile(path)
	require.NoError(t, err)
	assert.True(t, doc.Tasks[0].Done)
	assert.Equal(t, "1", doc.Tasks[0].ID)

	require.NoError(t, SetDone(path, 6, false))
	doc, err = ParseFile(path)
	require.NoError(t, err)
	assert.False(t, doc.Tasks[1].Done)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(string(data), "-->\n"), "trailing newline preserved")
}

func TestSetDone_NotATask(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tasks.md")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0644))

	err := SetDone(path, 1, true)
	assert.True(t, errors.Is(err, ErrNotTask))

	err = SetDone(path, 500, true)
	assert.True(t, errors.Is(err, ErrNotTask))
}

func TestParseFile_Missing(t *testing.T) {
	_, err := ParseFile(filepath.Join(t.TempDir(), "missing.md"))
	assert.Error(t, err)
}

func TestWriteFileAtomic_ConcurrentWriters(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "daily.md")

	var wg sync.WaitGroup
	errs := make(chan error, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs <- WriteFileAtomic(path, []byte(strings.Repeat("x", i+1)))
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1, "no temp files left behind")
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0644), info.Mode().Perm())
}
