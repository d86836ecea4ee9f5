package cliapp

import (
	"fmt"

	"github.com/spf13/cobra"

	"kaizen/config"
)

func newFixTestsCmd() *cobra.Command {
	var (
		projectConfig string
		makePR        bool
		maxRetries    int
		baseBranch    string
		persistDB     string
	)

	cmd := &cobra.Command{
		Use:   "fix-tests <files...>",
		Short: "Repair the named files against the project's configured test suite",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(projectConfig)
			if err != nil {
				return &ExitError{Code: ExitConfigurationError, Err: err}
			}
			if len(args) == 0 {
				return &ExitError{Code: ExitConfigurationError, Err: fmt.Errorf("at least one file to fix is required")}
			}
			cfg.FilesToFix = args

			retries := maxRetries
			opts := runOptions{CreatePR: makePR, BaseBranch: baseBranch, PersistMemoryPath: persistDB}
			opts.MaxRetries = &retries

			if code := executeRun(cfg, opts); code != ExitSuccess {
				return &ExitError{Code: code}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&projectConfig, "project", "", "path to the project's test suite configuration file (required)")
	cmd.Flags().BoolVar(&makePR, "make-pr", false, "open a pull request when the run's outcome satisfies the PR strategy")
	cmd.Flags().IntVar(&maxRetries, "max-retries", 1, "maximum fix attempts")
	cmd.Flags().StringVar(&baseBranch, "base-branch", "", "base branch for the pull request")
	cmd.Flags().StringVar(&persistDB, "persist-memory", "", "append this run's fix attempts to a durable SQLite journal at this path")
	_ = cmd.MarkFlagRequired("project")

	return cmd
}
