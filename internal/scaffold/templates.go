// Package scaffold seeds a new taskdeck workspace.
package scaffold

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

const tasksTemplate = `# Tasks

## Inbox [project:inbox area:inbox]

- [ ] Try taskdeck [id:1 energy:normal est:30m area:inbox]
`

const dailyViewTemplate = `# Daily

<!-- view:start name="daily" query="bucket:today status:open" -->
<!-- view:end name="daily" -->
`

// TasksTemplate returns the seed content for tasks.md.
func TasksTemplate() string {
	return tasksTemplate
}

// DailyViewTemplate returns the seed content for daily.md: one view block
// listing open tasks bucketed for today.
func DailyViewTemplate() string {
	return dailyViewTemplate
}

// EnsureFile writes content to path unless the file already exists.
// It reports whether the file was created.
func EnsureFile(path, content string) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return false, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return false, fmt.Errorf("failed to create directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return false, fmt.Errorf("failed to write %s: %w", path, err)
	}
	return true, nil
}
