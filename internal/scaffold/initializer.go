package scaffold

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"taskdeck/internal/config"
	"taskdeck/internal/logging"
	"taskdeck/internal/store"
	"taskdeck/internal/task"
	"taskdeck/internal/view"
)

// Seed file names, relative to the workspace.
const (
	TasksFile = "tasks.md"
	DailyFile = "daily.md"
)

// InitProgress represents a progress update during initialization.
type InitProgress struct {
	Phase   string
	Message string
	Percent float64
}

// InitConfig holds configuration for workspace initialization.
type InitConfig struct {
	Workspace    string
	Force        bool // Overwrite existing seed files
	SkipRender   bool // Skip the initial view render
	ProgressChan chan InitProgress
}

// ErrNoWorkspace is returned by Initialize when no workspace path is set.
var ErrNoWorkspace = errors.New("workspace path required")

// DefaultInitConfig returns defaults for workspace. Callers resolve the
// workspace themselves; an empty one makes Initialize fail.
func DefaultInitConfig(workspace string) InitConfig {
	return InitConfig{Workspace: workspace}
}

// InitResult describes what Initialize did.
type InitResult struct {
	DeckDir      string
	FilesCreated []string
	FilesSkipped []string
	Warnings     []string
	Duration     time.Duration
}

// Initializer seeds a workspace with starter files.
type Initializer struct {
	config InitConfig
}

// NewInitializer creates an initializer.
func NewInitializer(cfg InitConfig) *Initializer {
	return &Initializer{config: cfg}
}

// Initialize creates the .deck directory, the seed task and view files and
// a default config, then renders views once. Existing files are kept unless
// Force is set.
func (i *Initializer) Initialize(ctx context.Context) (*InitResult, error) {
	start := time.Now()
	result := &InitResult{
		FilesCreated: make([]string, 0),
		FilesSkipped: make([]string, 0),
		Warnings:     make([]string, 0),
	}
	ws := i.config.Workspace
	if ws == "" {
		return result, ErrNoWorkspace
	}

	i.sendProgress("setup", "Creating directory structure...", 0.0)
	result.DeckDir = filepath.Join(ws, config.DirName)
	if err := os.MkdirAll(result.DeckDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", config.DirName, err)
	}

	cfgData, err := config.DefaultConfig().Marshal()
	if err != nil {
		return nil, err
	}
	seeds := []struct {
		rel     string
		content string
	}{
		{TasksFile, TasksTemplate()},
		{DailyFile, DailyViewTemplate()},
		{filepath.Join(config.DirName, "config.yaml"), string(cfgData)},
	}

	i.sendProgress("seed", "Writing seed files...", 0.3)
	for _, s := range seeds {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		path := filepath.Join(ws, s.rel)
		created, err := i.writeSeed(path, s.content)
		if err != nil {
			return nil, err
		}
		if created {
			result.FilesCreated = append(result.FilesCreated, s.rel)
			logging.Init("Created %s", s.rel)
		} else {
			result.FilesSkipped = append(result.FilesSkipped, s.rel)
			logging.Init("Kept existing %s", s.rel)
		}
	}

	if !i.config.SkipRender {
		i.sendProgress("render", "Rendering views...", 0.7)
		if err := i.render(ctx); err != nil {
			result.Warnings = append(result.Warnings, fmt.Sprintf("initial render: %v", err))
		}
	}

	result.Duration = time.Since(start)
	i.sendProgress("done", "Workspace ready", 1.0)
	logging.Init("Initialized %s in %v (%d created, %d kept)",
		ws, result.Duration, len(result.FilesCreated), len(result.FilesSkipped))
	return result, nil
}

func (i *Initializer) writeSeed(path, content string) (bool, error) {
	if !i.config.Force {
		return EnsureFile(path, content)
	}
	if err := task.WriteFileAtomic(path, []byte(content)); err != nil {
		return false, err
	}
	return true, nil
}

func (i *Initializer) render(ctx context.Context) error {
	cfg, err := config.Load(config.Path(i.config.Workspace))
	if err != nil {
		return err
	}
	r := view.NewRefresher(i.config.Workspace, cfg)

	idx, err := store.Open(cfg.ResolveIndexPath(i.config.Workspace))
	if err != nil {
		logging.Get(logging.CategoryInit).Warn("index unavailable: %v", err)
	} else {
		defer idx.Close()
		r.Index = idx
	}

	_, err = r.Refresh(ctx)
	return err
}

func (i *Initializer) sendProgress(phase, message string, percent float64) {
	if i.config.ProgressChan == nil {
		return
	}
	select {
	case i.config.ProgressChan <- InitProgress{Phase: phase, Message: message, Percent: percent}:
	default:
	}
}
