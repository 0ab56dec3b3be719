// Package task parses markdown task files.
//
// A task file is plain markdown. Level-two headings open sections and may
// carry a trailing metadata block that tasks in the section inherit:
//
//	## Inbox [project:inbox area:inbox]
//
//	- [ ] Try taskdeck [id:1 energy:normal est:30m area:inbox]
//
// Everything that is not a heading or a checkbox item is kept verbatim and
// otherwise ignored. Lines inside view blocks are generated output and are
// never read back as tasks.
package task

import (
	"strconv"
	"strings"
	"time"
)

// Marker prefixes shared with the view renderer.
const (
	ViewStartPrefix = "<!-- view:start"
	ViewEndPrefix   = "<!-- view:end"
)

// Status values derived from the checkbox when no status metadata is set.
const (
	StatusOpen = "open"
	StatusDone = "done"
)

// Bucket values derived from due dates.
const (
	BucketToday = "today"
	BucketWeek  = "week"
	BucketLater = "later"
)

// DateLayout is the format of due:/scheduled: values.
const DateLayout = "2006-01-02"

// Section is a level-two heading and its inherited metadata.
type Section struct {
	Name string
	Line int
	Meta Meta
}

// Task is one checkbox item.
type Task struct {
	File    string
	Line    int // 1-based
	ID      string
	Title   string
	Done    bool
	Meta    Meta
	Section *Section
}

// Get returns the task's own value for key, falling back to its section.
func (t *Task) Get(key string) (string, bool) {
	if v, ok := t.Meta.Get(key); ok {
		return v, true
	}
	if t.Section != nil {
		return t.Section.Meta.Get(key)
	}
	return "", false
}

// Status returns explicit status metadata, else open/done from the checkbox.
func (t *Task) Status() string {
	if v, ok := t.Get("status"); ok {
		return v
	}
	if t.Done {
		return StatusDone
	}
	return StatusOpen
}

// Bucket returns explicit bucket metadata, else a bucket derived from due:
// relative to now. Tasks with neither have no bucket.
func (t *Task) Bucket(now time.Time) string {
	if v, ok := t.Get("bucket"); ok {
		return v
	}
	due, ok := t.Get("due")
	if !ok {
		return ""
	}
	d, err := time.ParseInLocation(DateLayout, due, now.Location())
	if err != nil {
		return ""
	}
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	switch {
	case !d.After(today):
		return BucketToday
	case d.Before(today.AddDate(0, 0, 7)):
		return BucketWeek
	default:
		return BucketLater
	}
}

// SectionName returns the section heading or "".
func (t *Task) SectionName() string {
	if t.Section == nil {
		return ""
	}
	return t.Section.Name
}

// NumericID returns the id as an integer, or -1 when it is absent or not numeric.
func (t *Task) NumericID() int {
	n, err := strconv.Atoi(t.ID)
	if err != nil {
		return -1
	}
	return n
}

// Format renders the task as a checkbox line with its own metadata.
func (t *Task) Format() string {
	var sb strings.Builder
	if t.Done {
		sb.WriteString("- [x] ")
	} else {
		sb.WriteString("- [ ] ")
	}
	sb.WriteString(t.Title)
	if len(t.Meta) > 0 {
		sb.WriteString(" [")
		sb.WriteString(t.Meta.String())
		sb.WriteString("]")
	}
	return sb.String()
}

// Document is a parsed task file.
type Document struct {
	Path     string
	Title    string
	Sections []*Section
	Tasks    []*Task
}

// FindByID returns the first task with the given id across documents.
func FindByID(docs []*Document, id string) *Task {
	for _, d := range docs {
		for _, t := range d.Tasks {
			if t.ID == id {
				return t
			}
		}
	}
	return nil
}

// All flattens the tasks of several documents.
func All(docs []*Document) []*Task {
	var out []*Task
	for _, d := range docs {
		out = append(out, d.Tasks...)
	}
	return out
}
