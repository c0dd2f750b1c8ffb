package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"memsqlite/internal/core/changelog"
	"memsqlite/internal/core/config"
	"memsqlite/internal/core/engine"
	"memsqlite/internal/core/lock"
	"memsqlite/internal/core/watcher"
)

var watchCmd = &cobra.Command{
	Use:   "watch [path]",
	Short: "Watch for session log changes and sync continuously",
	Long: `Perform an initial full sync, then watch the projects directory and
sync each session log as it changes. Runs until interrupted.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	watchPath := cfg.WatchDir
	if len(args) > 0 {
		watchPath = args[0]
	}

	logger, err := changelog.New(logPath)
	if err != nil {
		return fmt.Errorf("failed to create change log: %w", err)
	}

	eng := engine.New(dbPath, logger, lock.NewMutex())

	w, err := watcher.New(eng, watchPath)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return w.Start(ctx)
}
