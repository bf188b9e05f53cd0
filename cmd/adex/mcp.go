package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	"github.com/jward/adex"
	"github.com/jward/adex/internal/lint"
)

const version = "0.3.0"

var mcpCmd = &cobra.Command{
	Use:   "mcp [path]",
	Short: "Serve the index and linter over the Model Context Protocol",
	Long:  "Runs an MCP server over stdin/stdout exposing symbol search, cross-reference and lint tools to AI clients.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runMCP,
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(cmd *cobra.Command, args []string) error {
	engine, root, err := openEngine(args)
	if err != nil {
		return err
	}
	defer engine.Close()

	server := mcp.NewServer(&mcp.Implementation{
		Name:    "adex",
		Version: version,
	}, nil)

	registerMCPTools(server, engine, root)

	return server.Run(cmd.Context(), mcp.NewStdioTransport())
}

type searchParams struct {
	Query string `json:"query" jsonschema:"full-text query over symbol names and docs"`
	Limit int    `json:"limit,omitempty" jsonschema:"maximum results (default 20)"`
}

type symbolParams struct {
	SymbolID int64 `json:"symbol_id" jsonschema:"numeric symbol id"`
}

type lintParams struct {
	Files []string `json:"files,omitempty" jsonschema:"files to lint; empty lints the whole project"`
}

type textResult struct {
	Text string `json:"text"`
}

func registerMCPTools(server *mcp.Server, engine *adex.Engine, root string) {
	q := engine.Query()

	mcp.AddTool(server, &mcp.Tool{
		Name:        "search_symbols",
		Description: "Full-text search over indexed symbols",
	}, func(ctx context.Context, ss *mcp.ServerSession, params *mcp.CallToolParamsFor[searchParams]) (*mcp.CallToolResultFor[textResult], error) {
		symbols, err := q.SearchSymbols(params.Arguments.Query, params.Arguments.Limit)
		if err != nil {
			return nil, err
		}
		return jsonResult(symbols)
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_callers",
		Description: "Symbols that reference the given symbol",
	}, func(ctx context.Context, ss *mcp.ServerSession, params *mcp.CallToolParamsFor[symbolParams]) (*mcp.CallToolResultFor[textResult], error) {
		symbols, err := q.Callers(params.Arguments.SymbolID)
		if err != nil {
			return nil, err
		}
		return jsonResult(symbols)
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_callees",
		Description: "Symbols the given symbol references",
	}, func(ctx context.Context, ss *mcp.ServerSession, params *mcp.CallToolParamsFor[symbolParams]) (*mcp.CallToolResultFor[textResult], error) {
		symbols, err := q.Callees(params.Arguments.SymbolID)
		if err != nil {
			return nil, err
		}
		return jsonResult(symbols)
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "find_references",
		Description: "Raw reference edges pointing at the given symbol",
	}, func(ctx context.Context, ss *mcp.ServerSession, params *mcp.CallToolParamsFor[symbolParams]) (*mcp.CallToolResultFor[textResult], error) {
		refs, err := q.ReferencesTo(params.Arguments.SymbolID)
		if err != nil {
			return nil, err
		}
		return jsonResult(refs)
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_status",
		Description: "Index counters and metadata",
	}, func(ctx context.Context, ss *mcp.ServerSession, params *mcp.CallToolParamsFor[struct{}]) (*mcp.CallToolResultFor[textResult], error) {
		status, err := q.Status()
		if err != nil {
			return nil, err
		}
		return jsonResult(status)
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "lint_project",
		Description: "Run the project's lint rules and return the issues",
	}, func(ctx context.Context, ss *mcp.ServerSession, params *mcp.CallToolParamsFor[lintParams]) (*mcp.CallToolResultFor[textResult], error) {
		reg, err := lint.LoadRegistry(root, nil)
		if err != nil {
			return nil, err
		}
		files := params.Arguments.Files
		if len(files) == 0 {
			files, err = adex.ListProjectFiles(root)
			if err != nil {
				return nil, err
			}
		}
		runner := lint.NewRunner(reg, reg.Config().RunnerConfig(root), q)
		return jsonResult(runner.Run(ctx, files))
	})
}

func jsonResult(v any) (*mcp.CallToolResultFor[textResult], error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal result: %w", err)
	}
	return &mcp.CallToolResultFor[textResult]{
		Content: []mcp.Content{&mcp.TextContent{Text: string(data)}},
	}, nil
}
