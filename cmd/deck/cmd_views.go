package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"taskdeck/internal/view"
	"taskdeck/internal/watch"
)

// runRefresh renders every view once.
func runRefresh(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	ws, cfg, err := loadWorkspace()
	if err != nil {
		return err
	}
	r, idx := newRefresher(ws, cfg)
	if idx != nil {
		defer idx.Close()
	}

	res, err := r.Refresh(ctx)
	printRefresh(res)
	return err
}

func printRefresh(res *view.RefreshResult) {
	if res == nil {
		return
	}
	for _, f := range res.Files {
		switch {
		case f.Err != nil:
			fmt.Printf("  error   %s: %v\n", f.Path, f.Err)
		case f.Changed:
			fmt.Printf("  updated %s (%d views)\n", f.Path, f.Blocks)
		}
	}
	fmt.Printf("%d tasks from %d sources, %d of %d view files updated\n",
		res.Tasks, res.Sources, res.Written(), len(res.Files))
}

// runWatch refreshes once, then on every change until interrupted.
func runWatch(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	ws, cfg, err := loadWorkspace()
	if err != nil {
		return err
	}
	r, idx := newRefresher(ws, cfg)
	if idx != nil {
		defer idx.Close()
	}

	res, err := r.Refresh(ctx)
	printRefresh(res)
	if err != nil {
		logger.Warn("Initial refresh failed", zap.Error(err))
	}

	patterns := append(append([]string{}, cfg.Sources...), cfg.Views...)
	w, err := watch.New(ws, patterns, cfg.GetDebounce(), r)
	if err != nil {
		return err
	}
	w.OnRefresh = func(res *view.RefreshResult, err error) {
		if err != nil {
			logger.Warn("Refresh failed", zap.Error(err))
		}
		if res != nil && res.Written() > 0 {
			printRefresh(res)
		}
	}
	if err := w.Start(ctx); err != nil {
		return err
	}
	defer w.Stop()

	fmt.Printf("Watching %s (ctrl+c to stop)\n", ws)
	<-ctx.Done()

	stats := w.Stats()
	logger.Info("Watch stopped",
		zap.Int("events", stats.Events),
		zap.Int("refreshes", stats.Refreshes),
		zap.Int("errors", stats.Errors))
	if errors.Is(ctx.Err(), context.Canceled) {
		return nil
	}
	return ctx.Err()
}
