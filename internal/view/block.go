// Package view renders view blocks: regions of a markdown file delimited by
//
//	<!-- view:start name="daily" query="bucket:today status:open" -->
//	<!-- view:end name="daily" -->
//
// whose interior is replaced with the tasks matching the query.
package view

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"taskdeck/internal/task"
)

var (
	ErrUnterminated  = errors.New("view block has no end marker")
	ErrNested        = errors.New("view blocks cannot be nested")
	ErrMismatchedEnd = errors.New("end marker name does not match start")
	ErrOrphanEnd     = errors.New("end marker without start")
	ErrMissingName   = errors.New("view block has no name")
	ErrMissingQuery  = errors.New("view block has no query")
)

var attrRe = regexp.MustCompile(`([A-Za-z_][\w-]*)="([^"]*)"`)

// Block is one view region. Start and End are 0-based indexes of the marker lines.
type Block struct {
	Name  string
	Query string
	Start int
	End   int
}

// StartMarker returns the opening marker line for a block.
func StartMarker(name, query string) string {
	return fmt.Sprintf(`%s name="%s" query="%s" -->`, task.ViewStartPrefix, name, query)
}

// EndMarker returns the closing marker line for a block.
func EndMarker(name string) string {
	return fmt.Sprintf(`%s name="%s" -->`, task.ViewEndPrefix, name)
}

func parseAttrs(line string) map[string]string {
	attrs := make(map[string]string)
	for _, m := range attrRe.FindAllStringSubmatch(line, -1) {
		attrs[m[1]] = m[2]
	}
	return attrs
}

// FindBlocks locates the view blocks in lines.
func FindBlocks(lines []string) ([]Block, error) {
	var blocks []Block
	var open *Block

	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(trimmed, task.ViewStartPrefix):
			if open != nil {
				return nil, fmt.Errorf("line %d: %w", i+1, ErrNested)
			}
			attrs := parseAttrs(trimmed)
			if attrs["name"] == "" {
				return nil, fmt.Errorf("line %d: %w", i+1, ErrMissingName)
			}
			if strings.TrimSpace(attrs["query"]) == "" {
				return nil, fmt.Errorf("line %d: %w", i+1, ErrMissingQuery)
			}
			open = &Block{Name: attrs["name"], Query: attrs["query"], Start: i}

		case strings.HasPrefix(trimmed, task.ViewEndPrefix):
			if open == nil {
				return nil, fmt.Errorf("line %d: %w", i+1, ErrOrphanEnd)
			}
			if name, ok := parseAttrs(trimmed)["name"]; ok && name != open.Name {
				return nil, fmt.Errorf("line %d: %q closes %q: %w", i+1, name, open.Name, ErrMismatchedEnd)
			}
			open.End = i
			blocks = append(blocks, *open)
			open = nil
		}
	}

	if open != nil {
		return nil, fmt.Errorf("line %d: %q: %w", open.Start+1, open.Name, ErrUnterminated)
	}
	return blocks, nil
}
