package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"memsqlite/internal/core/config"
)

var (
	dbPath      string
	logPath     string
	versionInfo string
)

// SetVersion sets the version information from build-time ldflags
func SetVersion(version, commit, date string) {
	versionInfo = fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date)
	rootCmd.Version = versionInfo
}

// Execute runs the CLI
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "memsqlite",
	Short: "Claude Code session log to SQLite sync",
	Long: `memsqlite - sync Claude Code JSONL session logs into SQLite

Ingests append-only session logs into a relational store shared with a
read-only MCP query server. Writes are idempotent: re-processing a session
never duplicates rows.`,
}

func init() {
	cfg, err := config.Load()
	if err != nil {
		cfg = &config.Config{}
	}

	rootCmd.PersistentFlags().StringVar(&dbPath, "db", cfg.DatabasePath, "Database path")
	rootCmd.PersistentFlags().StringVar(&logPath, "change-log", cfg.ChangeLogPath, "Change log path")
}
