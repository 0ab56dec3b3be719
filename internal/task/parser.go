package task

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"taskdeck/internal/logging"
)

// ErrNotTask is returned when a line expected to hold a task does not.
var ErrNotTask = errors.New("line is not a task")

var (
	taskLineRe = regexp.MustCompile(`^(\s*[-*] \[)([ xX])(\] )(.*)$`)
	titleRe    = regexp.MustCompile(`^#\s+(.+)$`)
	sectionRe  = regexp.MustCompile(`^##\s+(.+)$`)
)

// Parse reads a task document from r.
func Parse(path string, r io.Reader) (*Document, error) {
	doc := &Document{Path: path}

	var current *Section
	inView := false
	lineNo := 0

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		trimmed := strings.TrimSpace(line)

		switch {
		case strings.HasPrefix(trimmed, ViewStartPrefix):
			inView = true
			continue
		case strings.HasPrefix(trimmed, ViewEndPrefix):
			inView = false
			continue
		case inView:
			continue
		}

		if m := sectionRe.FindStringSubmatch(line); m != nil {
			name, meta := splitTrailingMeta(m[1])
			current = &Section{Name: name, Line: lineNo, Meta: meta}
			doc.Sections = append(doc.Sections, current)
			continue
		}
		if m := titleRe.FindStringSubmatch(line); m != nil {
			if doc.Title == "" {
				doc.Title = strings.TrimSpace(m[1])
			}
			continue
		}
		if m := taskLineRe.FindStringSubmatch(line); m != nil {
			title, meta := splitTrailingMeta(m[4])
			t := &Task{
				File:    path,
				Line:    lineNo,
				Title:   title,
				Done:    m[2] != " ",
				Meta:    meta,
				Section: current,
			}
			t.ID, _ = meta.Get("id")
			doc.Tasks = append(doc.Tasks, t)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	logging.ParseDebug("parsed %s: %d sections, %d tasks", path, len(doc.Sections), len(doc.Tasks))
	return doc, nil
}

// ParseFile opens and parses a task file.
func ParseFile(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open task file: %w", err)
	}
	defer f.Close()
	return Parse(path, f)
}

// SetDone rewrites the checkbox of the task at line (1-based) in path.
// It returns ErrNotTask when that line is not a checkbox item.
func SetDone(path string, line int, done bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read task file: %w", err)
	}

	lines := strings.Split(string(data), "\n")
	if line < 1 || line > len(lines) {
		return fmt.Errorf("%s:%d: %w", path, line, ErrNotTask)
	}
	m := taskLineRe.FindStringSubmatch(lines[line-1])
	if m == nil {
		return fmt.Errorf("%s:%d: %w", path, line, ErrNotTask)
	}

	mark := " "
	if done {
		mark = "x"
	}
	lines[line-1] = m[1] + mark + m[3] + m[4]

	return WriteFileAtomic(path, []byte(strings.Join(lines, "\n")))
}

// WriteFileAtomic writes data to a uniquely named sibling temp file and
// renames it over path. Concurrent writers never share a temp file.
func WriteFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Chmod(0644); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to chmod temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}
