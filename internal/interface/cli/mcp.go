package cli

import (
	"github.com/spf13/cobra"

	"memsqlite/cmd/memsqlite/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run the read-only MCP query server",
	Long: `Start an MCP server on stdio exposing the store to MCP clients.

The server only ever reads: queries pass through a SELECT-only filter and
the database is opened read-only.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return mcp.StartServer(dbPath)
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
