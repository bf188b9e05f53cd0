package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jward/adex"
)

var (
	flagDB     string
	flagFormat string
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "adex",
	Short:         "Polyglot source indexer and linter orchestrator",
	Long:          "Adex indexes source code with tree-sitter into a SQLite symbol graph and runs per-project lint rules with autofix.",
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return validateFormat(flagFormat)
	},
	// No Run — prints help by default.
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagDB, "db", "", "database path (default: .adi/index.db relative to project root)")
	rootCmd.PersistentFlags().StringVar(&flagFormat, "format", "text", "output format: json|text")

	rootCmd.AddCommand(indexCmd)
}

var (
	flagForce     bool
	flagLanguages string
	flagWorkers   int
)

var indexCmd = &cobra.Command{
	Use:   "index [path]",
	Short: "Index a project for symbol and reference queries",
	Long:  "Parses source files with tree-sitter, extracts symbols and references, and writes them to the SQLite database.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runIndex,
}

func init() {
	indexCmd.Flags().BoolVar(&flagForce, "force", false, "delete database and reindex from scratch")
	indexCmd.Flags().StringVar(&flagLanguages, "languages", "", "comma-separated language filter (e.g. go,python)")
	indexCmd.Flags().IntVar(&flagWorkers, "workers", 0, "parse worker count (default: CPU count)")
}

func runIndex(cmd *cobra.Command, args []string) error {
	start := time.Now()

	root, err := resolveRoot(args)
	if err != nil {
		return err
	}
	dbPath := resolveDBPath(root)

	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", filepath.Dir(dbPath), err)
	}

	if flagForce {
		if err := os.Remove(dbPath); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("removing database for --force: %w", err)
		}
		fmt.Fprintf(os.Stderr, "Cleared database: %s\n", dbPath)
	}

	opts := []adex.Option{adex.WithWorkers(flagWorkers)}
	if flagLanguages != "" {
		langs := strings.Split(flagLanguages, ",")
		for i := range langs {
			langs[i] = strings.TrimSpace(langs[i])
		}
		opts = append(opts, adex.WithLanguages(langs...))
	}

	engine, err := adex.New(dbPath, opts...)
	if err != nil {
		return fmt.Errorf("creating engine: %w", err)
	}
	defer engine.Close()

	report, err := engine.IndexDirectory(cmd.Context(), root)
	if err != nil {
		return fmt.Errorf("indexing: %w", err)
	}

	fmt.Fprintf(os.Stderr, "Indexed %s in %s (processed: %d, skipped: %d, failed: %d)\n",
		root, time.Since(start).Round(time.Millisecond),
		report.Processed, report.Skipped, report.Failed)
	fmt.Fprintf(os.Stderr, "Database: %s\n", dbPath)
	return nil
}

// resolveRoot returns the absolute target directory from args.
func resolveRoot(args []string) (string, error) {
	dir := "."
	if len(args) > 0 {
		dir = args[0]
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolving path: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", err
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%s is not a directory", abs)
	}
	return abs, nil
}

// resolveDBPath honors --db, defaulting to .adi/index.db under root.
func resolveDBPath(root string) string {
	if flagDB != "" {
		return flagDB
	}
	return filepath.Join(root, ".adi", "index.db")
}

func validateFormat(format string) error {
	switch format {
	case "json", "text":
		return nil
	default:
		return fmt.Errorf("invalid format %q (want json or text)", format)
	}
}

// openEngine opens the index database for query commands.
func openEngine(args []string) (*adex.Engine, string, error) {
	root, err := resolveRoot(args)
	if err != nil {
		return nil, "", err
	}
	dbPath := resolveDBPath(root)
	if _, err := os.Stat(dbPath); err != nil {
		return nil, "", fmt.Errorf("no index at %s (run `adex index` first)", dbPath)
	}
	engine, err := adex.New(dbPath)
	if err != nil {
		return nil, "", err
	}
	return engine, root, nil
}
