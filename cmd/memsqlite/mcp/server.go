// Package mcp exposes the read-only query gateway to MCP clients over
// stdio.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"memsqlite/internal/core/db"
	"memsqlite/internal/core/query"
)

// QueryArgs defines arguments for the query tool
type QueryArgs struct {
	SQL   string `json:"sql"`
	Limit int    `json:"limit,omitempty"`
}

// StartServer opens the store read-only and serves MCP over stdio
func StartServer(dbPath string) error {
	store, err := db.OpenReadOnly(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() {
		if closeErr := store.Close(); closeErr != nil {
			log.Printf("Error closing database: %v", closeErr)
		}
	}()

	s := server.NewMCPServer(
		"memsqlite",
		"1.0.0",
	)

	queryTool := mcp.NewTool("query",
		mcp.WithDescription("Run a read-only SELECT statement against the Claude Code session store. Mutation and DDL statements are rejected; results are capped at 1000 rows."),
		mcp.WithString("sql",
			mcp.Required(),
			mcp.Description("SELECT statement to execute")),
		mcp.WithNumber("limit",
			mcp.Description(fmt.Sprintf("Max rows to return (default: %d, max: %d)", query.DefaultLimit, query.MaxLimit))),
	)
	s.AddTool(queryTool, makeQueryHandler(store))

	schemaTool := mcp.NewTool("schema",
		mcp.WithDescription("List the session store's table definitions"),
	)
	s.AddTool(schemaTool, makeSchemaHandler(store))

	return server.ServeStdio(s)
}

func makeQueryHandler(store *db.DB) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var args QueryArgs
		argsBytes, _ := json.Marshal(request.Params.Arguments)
		if err := json.Unmarshal(argsBytes, &args); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("invalid arguments: %v", err)), nil
		}

		result, err := query.Execute(store, args.SQL, args.Limit)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("query failed: %v", err)), nil
		}

		resultJSON, err := json.Marshal(result)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to marshal results: %v", err)), nil
		}

		return mcp.NewToolResultText(string(resultJSON)), nil
	}
}

func makeSchemaHandler(store *db.DB) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		result, err := query.SchemaInfo(store)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("schema query failed: %v", err)), nil
		}

		resultJSON, err := json.Marshal(result)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to marshal results: %v", err)), nil
		}

		return mcp.NewToolResultText(string(resultJSON)), nil
	}
}
