package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"memsqlite/internal/core/db"
	"memsqlite/internal/core/query"
)

var queryLimit int

var queryCmd = &cobra.Command{
	Use:   "query <sql>",
	Short: "Run a read-only SELECT against the store",
	Args:  cobra.ExactArgs(1),
	RunE:  runQuery,
}

func init() {
	queryCmd.Flags().IntVar(&queryLimit, "limit", query.DefaultLimit, "Max rows to return")
	rootCmd.AddCommand(queryCmd)
}

func runQuery(cmd *cobra.Command, args []string) error {
	store, err := db.OpenReadOnly(dbPath)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	result, err := query.Execute(store, args[0], queryLimit)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		return fmt.Errorf("failed to encode results: %w", err)
	}

	return nil
}
