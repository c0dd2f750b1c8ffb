package cli

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"memsqlite/internal/core/changelog"
	"memsqlite/internal/core/config"
	"memsqlite/internal/core/db"
	"memsqlite/internal/core/engine"
	"memsqlite/internal/core/lock"
	"memsqlite/internal/core/watcher"
)

var syncCmd = &cobra.Command{
	Use:   "sync [path]",
	Short: "Sync session logs once",
	Long: `Sync all session logs from ~/.claude/projects/ or a specified directory.

Safe to run repeatedly - previously synced messages are recognized by id
and skipped.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSync,
}

func init() {
	rootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	sourcePath := cfg.WatchDir
	if len(args) > 0 {
		sourcePath = args[0]
	}

	fmt.Printf("Syncing sessions from: %s\n", sourcePath)
	fmt.Printf("Database: %s\n\n", dbPath)

	logger, err := changelog.New(logPath)
	if err != nil {
		return fmt.Errorf("failed to create change log: %w", err)
	}

	eng := engine.New(dbPath, logger, lock.NewMutex())

	w, err := watcher.New(eng, sourcePath)
	if err != nil {
		return err
	}

	if err := w.SyncAll(); err != nil {
		return fmt.Errorf("sync failed: %w", err)
	}

	total, err := countMessages(dbPath)
	if err != nil {
		return err
	}
	fmt.Printf("Done. Store holds %s messages.\n", humanize.Comma(total))

	return nil
}

func countMessages(path string) (int64, error) {
	store, err := db.Open(path)
	if err != nil {
		return 0, err
	}
	defer func() { _ = store.Close() }()

	var count int64
	if err := store.QueryRow("SELECT COUNT(*) FROM messages").Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}
