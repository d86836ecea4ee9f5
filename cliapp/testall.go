package cliapp

import (
	"github.com/spf13/cobra"

	"kaizen/config"
)

func newTestAllCmd() *cobra.Command {
	var (
		configPath string
		autoFix    bool
		createPR   bool
		maxRetries int
		baseBranch string
		prStrategy string
		betterAI   bool
		verbose    bool
		persistDB  string
	)

	cmd := &cobra.Command{
		Use:   "test-all",
		Short: "Run the configured test suite, optionally repairing and opening a PR on failure",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return &ExitError{Code: ExitConfigurationError, Err: err}
			}

			opts := runOptions{
				CreatePR: createPR, BaseBranch: baseBranch, PRStrategy: prStrategy,
				BetterAI: betterAI, PersistMemoryPath: persistDB,
			}
			retries := maxRetries
			if !autoFix {
				retries = 0
			}
			opts.MaxRetries = &retries

			if verbose {
				cmd.Println("running", cfg.Name)
			}

			if code := executeRun(cfg, opts); code != ExitSuccess {
				return &ExitError{Code: code}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "path to the test suite configuration file (required)")
	cmd.Flags().BoolVar(&autoFix, "auto-fix", false, "attempt LLM repair on failing cases")
	cmd.Flags().BoolVar(&createPR, "create-pr", false, "open a pull request when the run's outcome satisfies the PR strategy")
	cmd.Flags().IntVar(&maxRetries, "max-retries", 1, "maximum fix attempts")
	cmd.Flags().StringVar(&baseBranch, "base-branch", "", "base branch for the pull request")
	cmd.Flags().StringVar(&prStrategy, "pr-strategy", "", "ALL_PASSING | ANY_IMPROVEMENT | NONE")
	cmd.Flags().BoolVar(&betterAI, "better-ai", false, "select a higher-capability model")
	cmd.Flags().BoolVar(&verbose, "verbose", false, "print progress to stdout")
	cmd.Flags().StringVar(&persistDB, "persist-memory", "", "append this run's fix attempts to a durable SQLite journal at this path")
	_ = cmd.MarkFlagRequired("config")

	return cmd
}
