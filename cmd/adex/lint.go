package main

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/jward/adex"
	"github.com/jward/adex/internal/lint"
)

var (
	flagFailFast bool
	flagNoIndex  bool
)

func init() {
	rootCmd.AddCommand(lintCmd)
	rootCmd.AddCommand(fixCmd)

	lintCmd.Flags().BoolVar(&flagFailFast, "fail-fast", false, "stop at the first error-severity issue")
	lintCmd.Flags().BoolVar(&flagNoIndex, "no-index", false, "skip symbol-table-backed checks")
	fixCmd.Flags().BoolVar(&flagNoIndex, "no-index", false, "skip symbol-table-backed checks")
}

var lintCmd = &cobra.Command{
	Use:   "lint [path] [files...]",
	Short: "Run the project's lint rules",
	Long:  "Loads rules from <root>/.adi/linters/ and runs them against the given files, or every file under the root.",
	RunE: func(cmd *cobra.Command, args []string) error {
		runner, files, err := buildRunner(args)
		if err != nil {
			return err
		}

		result := runner.Run(cmd.Context(), files)
		if err := outputResult(result); err != nil {
			return err
		}
		if result.Outcome == lint.OutcomeFailed {
			return fmt.Errorf("lint failed")
		}
		return nil
	},
}

var fixCmd = &cobra.Command{
	Use:   "fix [path] [files...]",
	Short: "Run lint rules and apply fixes until stable",
	RunE: func(cmd *cobra.Command, args []string) error {
		runner, files, err := buildRunner(args)
		if err != nil {
			return err
		}

		reg, err := loadRegistry(args)
		if err != nil {
			return err
		}
		autofixCfg := reg.Config().Autofix
		if !autofixCfg.Enabled {
			return fmt.Errorf("autofix is disabled in config.toml")
		}

		fixer := lint.NewAutofixer(runner, lint.AutofixConfig{
			MaxIterations: autofixCfg.MaxIterations,
			Interactive:   autofixCfg.Interactive,
			Confirm:       promptConfirm,
		})
		result, err := fixer.Run(cmd.Context(), files)
		if err != nil {
			return err
		}
		if err := outputResult(result); err != nil {
			return err
		}
		if result.Outcome == lint.OutcomePartial {
			fmt.Fprintln(os.Stderr, "iteration ceiling reached with fixes outstanding")
		}
		return nil
	},
}

// buildRunner loads the registry and assembles the scheduler plus the
// file list (explicit files after the root, or a full discovery walk).
func buildRunner(args []string) (*lint.Runner, []string, error) {
	reg, err := loadRegistry(args)
	if err != nil {
		return nil, nil, err
	}

	var rootArgs []string
	if len(args) > 0 {
		rootArgs = args[:1]
	}
	root, err := resolveRoot(rootArgs)
	if err != nil {
		return nil, nil, err
	}

	var files []string
	if len(args) > 1 {
		files = args[1:]
	} else {
		files, err = discoverLintFiles(root)
		if err != nil {
			return nil, nil, err
		}
	}

	cfg := reg.Config().RunnerConfig(root)
	if flagFailFast {
		cfg.FailFast = true
	}

	var spans lint.SpanSource
	if !flagNoIndex {
		if engine, _, err := openEngine(rootArgs); err == nil {
			// Leaked until process exit; lint runs are one-shot.
			spans = engine.Query()
		}
	}

	return lint.NewRunner(reg, cfg, spans), files, nil
}

func loadRegistry(args []string) (*lint.Registry, error) {
	var rootArgs []string
	if len(args) > 0 {
		rootArgs = args[:1]
	}
	root, err := resolveRoot(rootArgs)
	if err != nil {
		return nil, err
	}
	return lint.LoadRegistry(root, slog.Default())
}

// discoverLintFiles lists every lintable file under root using the
// same ignore rules as the indexer, without the language filter.
func discoverLintFiles(root string) ([]string, error) {
	return adex.ListProjectFiles(root)
}

func outputResult(result *lint.Result) error {
	return output(result, func() {
		for _, is := range result.Issues {
			loc := is.FilePath
			if is.Start != nil {
				loc = fmt.Sprintf("%s:%d", is.FilePath, is.Start.Line)
			}
			fmt.Printf("%s %s [%s] %s (%s)\n", is.Severity, loc, is.Category, is.Message, is.RuleID)
		}
		fmt.Printf("%d issue(s), outcome: %s\n", len(result.Issues), result.Outcome)
	})
}

// promptConfirm gates interactive fixes on a y/N answer.
func promptConfirm(path string, edits []lint.TextEdit) bool {
	fmt.Fprintf(os.Stderr, "apply %d fix(es) to %s? [y/N] ", len(edits), path)
	reader := bufio.NewReader(os.Stdin)
	answer, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	return answer == "y\n" || answer == "Y\n" || answer == "yes\n"
}
