package view

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"taskdeck/internal/config"
	"taskdeck/internal/logging"
	"taskdeck/internal/store"
	"taskdeck/internal/task"
)

// maxParallelRenders bounds concurrent view file rewrites.
const maxParallelRenders = 4

// FileResult describes one rendered view file.
type FileResult struct {
	Path    string
	Blocks  int
	Changed bool
	Err     error
}

// RefreshResult summarizes one refresh run.
type RefreshResult struct {
	RunID    string
	Sources  int
	Tasks    int
	Files    []FileResult
	Duration time.Duration
}

// Written returns the number of view files rewritten.
func (r *RefreshResult) Written() int {
	n := 0
	for _, f := range r.Files {
		if f.Changed {
			n++
		}
	}
	return n
}

// Refresher loads task sources and re-renders every view file in a workspace.
type Refresher struct {
	Workspace string
	Config    *config.Config

	// Index, when set, is rebuilt from the loaded tasks on every refresh.
	Index *store.Index

	// Now anchors derived buckets. Defaults to time.Now.
	Now func() time.Time
}

// NewRefresher creates a refresher for workspace.
func NewRefresher(workspace string, cfg *config.Config) *Refresher {
	return &Refresher{Workspace: workspace, Config: cfg, Now: time.Now}
}

// Glob expands workspace-relative patterns into sorted, de-duplicated
// workspace-relative paths of regular files.
func Glob(workspace string, patterns []string) ([]string, error) {
	fsys := os.DirFS(workspace)
	seen := make(map[string]bool)
	var out []string
	for _, p := range patterns {
		matches, err := doublestar.Glob(fsys, filepath.ToSlash(p), doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("bad pattern %q: %w", p, err)
		}
		for _, m := range matches {
			if !seen[m] {
				seen[m] = true
				out = append(out, m)
			}
		}
	}
	sort.Strings(out)
	return out, nil
}

// LoadSources parses every task source of the workspace.
func (r *Refresher) LoadSources() ([]*task.Document, error) {
	paths, err := Glob(r.Workspace, r.Config.Sources)
	if err != nil {
		return nil, err
	}
	docs := make([]*task.Document, 0, len(paths))
	for _, p := range paths {
		doc, err := task.ParseFile(filepath.Join(r.Workspace, filepath.FromSlash(p)))
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// ViewFiles lists view files, excluding anything that is also a source.
func (r *Refresher) ViewFiles() ([]string, error) {
	sources, err := Glob(r.Workspace, r.Config.Sources)
	if err != nil {
		return nil, err
	}
	isSource := make(map[string]bool, len(sources))
	for _, s := range sources {
		isSource[s] = true
	}

	views, err := Glob(r.Workspace, r.Config.Views)
	if err != nil {
		return nil, err
	}
	out := views[:0]
	for _, v := range views {
		if !isSource[v] {
			out = append(out, v)
		}
	}
	return out, nil
}

// Refresh renders every view file once. Per-file failures are recorded in
// the result and joined into the returned error; other files still render.
func (r *Refresher) Refresh(ctx context.Context) (*RefreshResult, error) {
	start := time.Now()
	result := &RefreshResult{RunID: uuid.NewString()}
	log := logging.Get(logging.CategoryView)

	docs, err := r.LoadSources()
	if err != nil {
		return result, fmt.Errorf("failed to load sources: %w", err)
	}
	tasks := task.All(docs)
	result.Sources = len(docs)
	result.Tasks = len(tasks)

	if r.Index != nil {
		if err := r.Index.Replace(ctx, tasks); err != nil {
			log.Warn("run %s: index update failed: %v", result.RunID, err)
		}
	}

	views, err := r.ViewFiles()
	if err != nil {
		return result, err
	}

	now := time.Now()
	if r.Now != nil {
		now = r.Now()
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelRenders)
	for _, rel := range views {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			fr := r.renderFile(rel, tasks, now)
			mu.Lock()
			result.Files = append(result.Files, fr)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return result, err
	}

	sort.Slice(result.Files, func(i, j int) bool { return result.Files[i].Path < result.Files[j].Path })
	var errs []error
	for _, f := range result.Files {
		if f.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", f.Path, f.Err))
		}
	}

	result.Duration = time.Since(start)
	log.StructuredLog("info", result.RunID, "refresh complete", map[string]interface{}{
		"sources": result.Sources,
		"tasks":   result.Tasks,
		"views":   len(result.Files),
		"written": result.Written(),
		"errors":  len(errs),
	})
	return result, errors.Join(errs...)
}

func (r *Refresher) renderFile(rel string, tasks []*task.Task, now time.Time) FileResult {
	fr := FileResult{Path: rel}
	path := filepath.Join(r.Workspace, filepath.FromSlash(rel))

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fr
		}
		fr.Err = err
		return fr
	}

	content := string(data)
	blocks, err := FindBlocks(strings.Split(content, "\n"))
	if err != nil {
		fr.Err = err
		return fr
	}
	fr.Blocks = len(blocks)
	if len(blocks) == 0 {
		return fr
	}

	rendered, changed, err := Render(content, tasks, now)
	if err != nil {
		fr.Err = err
		return fr
	}
	if changed {
		if err := task.WriteFileAtomic(path, []byte(rendered)); err != nil {
			fr.Err = err
			return fr
		}
		fr.Changed = true
		logging.ViewDebug("rewrote %s (%d blocks)", rel, len(blocks))
	}
	return fr
}
