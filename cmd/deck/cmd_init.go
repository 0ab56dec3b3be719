package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"taskdeck/internal/scaffold"
)

var forceInit bool

// runInit seeds the workspace.
func runInit(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	ws, err := resolveWorkspace()
	if err != nil {
		return err
	}

	cfg := scaffold.DefaultInitConfig(ws)
	cfg.Force = forceInit
	if forceInit {
		fmt.Println("Force reinitializing workspace...")
	}

	result, err := scaffold.NewInitializer(cfg).Initialize(ctx)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}
	logger.Info("Workspace initialized",
		zap.String("workspace", ws),
		zap.Int("created", len(result.FilesCreated)),
		zap.Duration("duration", result.Duration))

	for _, f := range result.FilesCreated {
		fmt.Printf("  created %s\n", filepath.ToSlash(f))
	}
	for _, f := range result.FilesSkipped {
		fmt.Printf("  kept    %s\n", filepath.ToSlash(f))
	}
	for _, w := range result.Warnings {
		fmt.Printf("  warning: %s\n", w)
	}
	fmt.Printf("Workspace ready: %s\n", ws)
	return nil
}
