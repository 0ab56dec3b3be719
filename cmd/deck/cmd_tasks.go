package main

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"taskdeck/internal/query"
	"taskdeck/internal/store"
	"taskdeck/internal/task"
	"taskdeck/internal/view"
)

var undoDone bool

// runList prints tasks matching the query formed by args.
func runList(cmd *cobra.Command, args []string) error {
	ws, cfg, err := loadWorkspace()
	if err != nil {
		return err
	}
	q, err := query.Parse(joinArgs(args))
	if err != nil {
		return err
	}

	docs, err := view.NewRefresher(ws, cfg).LoadSources()
	if err != nil {
		return err
	}
	matched := query.Filter(task.All(docs), q, time.Now())
	logger.Debug("List", zap.String("query", q.String()), zap.Int("matched", len(matched)))

	for _, line := range view.RenderLines(matched) {
		fmt.Println(line)
	}
	return nil
}

// runDone sets the checkbox of the task with the given id.
func runDone(cmd *cobra.Command, args []string) error {
	ws, cfg, err := loadWorkspace()
	if err != nil {
		return err
	}
	r := view.NewRefresher(ws, cfg)
	docs, err := r.LoadSources()
	if err != nil {
		return err
	}

	t := task.FindByID(docs, args[0])
	if t == nil {
		return fmt.Errorf("no task with id %q", args[0])
	}
	done := !undoDone
	if t.Done == done {
		fmt.Printf("Already %s: %s\n", t.Status(), t.Title)
		return nil
	}
	if err := task.SetDone(t.File, t.Line, done); err != nil {
		return err
	}

	rel, _ := filepath.Rel(ws, t.File)
	logger.Info("Task updated", zap.String("id", t.ID), zap.Bool("done", done), zap.String("file", rel))
	t.Done = done
	fmt.Println(t.Format())

	// Keep views in step with the edit.
	if _, err := r.Refresh(context.Background()); err != nil {
		logger.Warn("View refresh failed", zap.Error(err))
	}
	return nil
}

// runIndex rebuilds the SQLite index and prints counts.
func runIndex(cmd *cobra.Command, args []string) error {
	ws, cfg, err := loadWorkspace()
	if err != nil {
		return err
	}
	r := view.NewRefresher(ws, cfg)
	docs, err := r.LoadSources()
	if err != nil {
		return err
	}

	idx, err := store.Open(cfg.ResolveIndexPath(ws))
	if err != nil {
		return err
	}
	defer idx.Close()

	ctx := context.Background()
	if err := idx.Replace(ctx, task.All(docs)); err != nil {
		return err
	}
	n, err := idx.Count(ctx)
	if err != nil {
		return err
	}
	values, err := idx.ValueCount(ctx)
	if err != nil {
		return err
	}
	byStatus, err := idx.CountByStatus(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Indexed %d tasks from %d files (%d distinct values)\n", n, len(docs), values)
	statuses := make([]string, 0, len(byStatus))
	for s := range byStatus {
		statuses = append(statuses, s)
	}
	sort.Strings(statuses)
	for _, s := range statuses {
		fmt.Printf("  %-8s %d\n", s, byStatus[s])
	}
	return nil
}
