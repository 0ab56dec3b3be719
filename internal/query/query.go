// Package query implements the task filter language used by view blocks,
// the list command and the TUI search panel.
//
//	bucket:today status:open      all terms must hold
//	status:open,waiting           comma lists mean any of
//	-area:home                    negation
//	report                        bare words match the title
package query

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/cases"

	"taskdeck/internal/task"
)

var (
	// ErrEmptyValue is returned for "key:" terms.
	ErrEmptyValue = errors.New("empty value")
	// ErrEmptyKey is returned for ":value" terms.
	ErrEmptyKey = errors.New("empty key")
)

// folder is stateless and safe for concurrent use.
var folder = cases.Fold()

func fold(s string) string {
	return folder.String(s)
}

// Term is one condition.
type Term struct {
	Key    string   // empty for title words
	Values []string // folded; any may match
	Negate bool
}

func (t Term) String() string {
	var sb strings.Builder
	if t.Negate {
		sb.WriteByte('-')
	}
	if t.Key != "" {
		sb.WriteString(t.Key)
		sb.WriteByte(':')
	}
	sb.WriteString(strings.Join(t.Values, ","))
	return sb.String()
}

// Query is a conjunction of terms.
type Query struct {
	Terms []Term
}

// Parse parses a query string. The empty string matches every task.
func Parse(s string) (*Query, error) {
	q := &Query{}
	for _, field := range strings.Fields(s) {
		term := Term{}
		if strings.HasPrefix(field, "-") && len(field) > 1 {
			term.Negate = true
			field = field[1:]
		}

		key, value, hasKey := strings.Cut(field, ":")
		if !hasKey {
			term.Values = []string{fold(field)}
			q.Terms = append(q.Terms, term)
			continue
		}
		if key == "" {
			return nil, fmt.Errorf("query term %q: %w", field, ErrEmptyKey)
		}
		if value == "" {
			return nil, fmt.Errorf("query term %q: %w", field, ErrEmptyValue)
		}

		term.Key = strings.ToLower(key)
		for _, v := range strings.Split(value, ",") {
			if v == "" {
				return nil, fmt.Errorf("query term %q: %w", field, ErrEmptyValue)
			}
			term.Values = append(term.Values, fold(v))
		}
		q.Terms = append(q.Terms, term)
	}
	return q, nil
}

// MustParse is Parse for literals known to be valid.
func MustParse(s string) *Query {
	q, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return q
}

// String returns the canonical form of the query.
func (q *Query) String() string {
	parts := make([]string, len(q.Terms))
	for i, t := range q.Terms {
		parts[i] = t.String()
	}
	return strings.Join(parts, " ")
}

// Match reports whether t satisfies every term. now anchors derived buckets.
func (q *Query) Match(t *task.Task, now time.Time) bool {
	for _, term := range q.Terms {
		if matchTerm(term, t, now) == term.Negate {
			return false
		}
	}
	return true
}

func matchTerm(term Term, t *task.Task, now time.Time) bool {
	if term.Key == "" {
		title := fold(t.Title)
		for _, v := range term.Values {
			if strings.Contains(title, v) {
				return true
			}
		}
		return false
	}

	actual, ok := value(term.Key, t, now)
	if !ok {
		return false
	}
	actual = fold(actual)
	for _, v := range term.Values {
		if actual == v {
			return true
		}
	}
	return false
}

func value(key string, t *task.Task, now time.Time) (string, bool) {
	switch key {
	case "status":
		return t.Status(), true
	case "bucket":
		b := t.Bucket(now)
		return b, b != ""
	case "section":
		return t.SectionName(), t.Section != nil
	default:
		return t.Get(key)
	}
}

// Filter returns the tasks matching q, preserving order.
func Filter(tasks []*task.Task, q *Query, now time.Time) []*task.Task {
	var out []*task.Task
	for _, t := range tasks {
		if q.Match(t, now) {
			out = append(out, t)
		}
	}
	return out
}
