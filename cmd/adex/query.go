package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/jward/adex"
)

var flagLimit int

func init() {
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(symbolCmd)
	rootCmd.AddCommand(callersCmd)
	rootCmd.AddCommand(calleesCmd)
	rootCmd.AddCommand(treeCmd)
	rootCmd.AddCommand(statusCmd)

	searchCmd.Flags().IntVar(&flagLimit, "limit", 20, "maximum results")
}

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Full-text search over indexed symbols",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		engine, _, err := openEngine(nil)
		if err != nil {
			return err
		}
		defer engine.Close()

		symbols, err := engine.Query().SearchSymbols(args[0], flagLimit)
		if err != nil {
			return err
		}
		return outputSymbols(symbols)
	},
}

var symbolCmd = &cobra.Command{
	Use:   "symbol <id|name>",
	Short: "Show a symbol with its usage graph",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		engine, _, err := openEngine(nil)
		if err != nil {
			return err
		}
		defer engine.Close()
		q := engine.Query()

		id, err := resolveSymbolArg(q, args[0])
		if err != nil {
			return err
		}
		usage, err := q.Usage(id)
		if err != nil {
			return err
		}
		return output(usage, func() {
			printSymbol(usage.Symbol)
			fmt.Printf("references: %d\n", usage.ReferenceCount)
			fmt.Printf("callers: %d  callees: %d\n", len(usage.Callers), len(usage.Callees))
		})
	},
}

var callersCmd = &cobra.Command{
	Use:   "callers <id|name>",
	Short: "List the symbols referencing a symbol",
	Args:  cobra.ExactArgs(1),
	RunE:  xrefCommand((*adex.QueryBuilder).Callers),
}

var calleesCmd = &cobra.Command{
	Use:   "callees <id|name>",
	Short: "List the symbols a symbol references",
	Args:  cobra.ExactArgs(1),
	RunE:  xrefCommand((*adex.QueryBuilder).Callees),
}

func xrefCommand(query func(*adex.QueryBuilder, int64) ([]adex.Symbol, error)) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		engine, _, err := openEngine(nil)
		if err != nil {
			return err
		}
		defer engine.Close()
		q := engine.Query()

		id, err := resolveSymbolArg(q, args[0])
		if err != nil {
			return err
		}
		symbols, err := query(q, id)
		if err != nil {
			return err
		}
		return outputSymbols(symbols)
	}
}

var treeCmd = &cobra.Command{
	Use:   "tree",
	Short: "Show files with their top-level symbols",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		engine, _, err := openEngine(nil)
		if err != nil {
			return err
		}
		defer engine.Close()

		tree, err := engine.Query().Tree()
		if err != nil {
			return err
		}
		return output(tree, func() {
			for _, file := range tree.Files {
				fmt.Printf("%s (%s)\n", file.Path, file.Language)
				for _, sym := range file.Symbols {
					fmt.Printf("  %s %s\n", sym.Kind, sym.Name)
				}
			}
		})
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show index counters and metadata",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		engine, _, err := openEngine(nil)
		if err != nil {
			return err
		}
		defer engine.Close()

		status, err := engine.Query().Status()
		if err != nil {
			return err
		}
		return output(status, func() {
			fmt.Printf("files: %d\nsymbols: %d\n", status.IndexedFiles, status.IndexedSymbols)
			if status.LastIndexed != "" {
				fmt.Printf("last indexed: %s\n", status.LastIndexed)
			}
			fmt.Printf("storage: %d bytes\n", status.StorageSizeBytes)
		})
	},
}

// resolveSymbolArg accepts a numeric symbol id or a name; ambiguous
// names list the candidates instead of guessing.
func resolveSymbolArg(q *adex.QueryBuilder, arg string) (int64, error) {
	if id, err := strconv.ParseInt(arg, 10, 64); err == nil {
		return id, nil
	}
	symbols, err := q.SymbolsByName(arg)
	if err != nil {
		return 0, err
	}
	switch len(symbols) {
	case 0:
		return 0, fmt.Errorf("no symbol named %q", arg)
	case 1:
		return symbols[0].ID, nil
	default:
		fmt.Fprintf(os.Stderr, "symbol %q is ambiguous:\n", arg)
		for _, sym := range symbols {
			fmt.Fprintf(os.Stderr, "  %d  %s %s (%s)\n", sym.ID, sym.Kind, sym.Name, sym.FilePath)
		}
		return 0, fmt.Errorf("pass a symbol id")
	}
}
