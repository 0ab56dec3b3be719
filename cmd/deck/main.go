package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"taskdeck/internal/config"
	"taskdeck/internal/logging"
	"taskdeck/internal/store"
	"taskdeck/internal/view"
)

var (
	// Global flags
	verbose   bool
	workspace string

	// Logger
	logger *zap.Logger
)

// rootCmd opens the board when run without a subcommand.
var rootCmd = &cobra.Command{
	Use:   "deck",
	Short: "taskdeck - plain-text tasks with live markdown views",
	Long: `taskdeck keeps tasks in markdown files with bracketed key:value metadata.

View files hold marker comments carrying a query:

  <!-- view:start name="daily" query="bucket:today status:open" -->
  <!-- view:end name="daily" -->

and taskdeck fills the region between them with the matching tasks.

Run without arguments to open the interactive board.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		ws, err := resolveWorkspace()
		if err != nil {
			return err
		}
		if err := logging.Initialize(ws); err != nil {
			return fmt.Errorf("failed to initialize file logging: %w", err)
		}

		// The board owns the terminal, so it gets a silent logger.
		if cmd.Use == "deck" && cmd.CalledAs() == "deck" {
			logger = zap.NewNop()
			return nil
		}

		zapCfg := zap.NewProductionConfig()
		zapCfg.Encoding = "console"
		zapCfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		if verbose {
			zapCfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		logger, err = zapCfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
		logging.CloseAll()
	},
	RunE: runBoard,
}

// initCmd seeds the workspace
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create tasks.md, daily.md and .deck/ in the workspace",
	Long: `Seeds a workspace with a starter task file, a daily view and a default
config at .deck/config.yaml. Existing files are kept unless --force is given.`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

// listCmd prints matching tasks
var listCmd = &cobra.Command{
	Use:   "list [query...]",
	Short: "Print tasks matching a query",
	Long: `Prints tasks from all sources that match the query.

Examples:
  deck list status:open
  deck list area:home -energy:high
  deck list bucket:today,week plumber`,
	RunE: runList,
}

// refreshCmd renders views once
var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Render every view file once",
	Args:  cobra.NoArgs,
	RunE:  runRefresh,
}

// watchCmd keeps views rendered
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Re-render views whenever sources or views change",
	Args:  cobra.NoArgs,
	RunE:  runWatch,
}

// indexCmd rebuilds the search index
var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Rebuild the SQLite index used for search completion",
	Args:  cobra.NoArgs,
	RunE:  runIndex,
}

// doneCmd toggles completion
var doneCmd = &cobra.Command{
	Use:   "done <id>",
	Short: "Mark the task with the given id done (or open with --undo)",
	Args:  cobra.ExactArgs(1),
	RunE:  runDone,
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&workspace, "workspace", "w", "", "Workspace directory (default: current)")

	initCmd.Flags().BoolVar(&forceInit, "force", false, "Overwrite existing seed files")
	doneCmd.Flags().BoolVar(&undoDone, "undo", false, "Reopen the task instead")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(refreshCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(indexCmd)
	rootCmd.AddCommand(doneCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// resolveWorkspace returns the --workspace flag or the current directory.
func resolveWorkspace() (string, error) {
	if workspace != "" {
		return workspace, nil
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to resolve workspace: %w", err)
	}
	return cwd, nil
}

// loadWorkspace loads and validates the workspace config.
func loadWorkspace() (string, *config.Config, error) {
	ws, err := resolveWorkspace()
	if err != nil {
		return "", nil, err
	}
	cfg, err := config.Load(config.Path(ws))
	if err != nil {
		return "", nil, err
	}
	if err := cfg.Validate(); err != nil {
		return "", nil, fmt.Errorf("invalid config: %w", err)
	}
	return ws, cfg, nil
}

// newRefresher builds a refresher with the workspace index attached. The
// index is optional: when it cannot be opened the refresher runs without it
// and the returned index is nil.
func newRefresher(ws string, cfg *config.Config) (*view.Refresher, *store.Index) {
	r := view.NewRefresher(ws, cfg)
	idx, err := store.Open(cfg.ResolveIndexPath(ws))
	if err != nil {
		logger.Warn("Index unavailable", zap.Error(err))
		return r, nil
	}
	r.Index = idx
	return r, idx
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func joinArgs(args []string) string {
	return strings.Join(args, " ")
}
