package cliapp

import (
	"github.com/spf13/cobra"
)

// NewRootCmd builds the full command tree: test-all, fix-tests, augment,
// setup (check-env, create-env-example), analyze-logs.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "kaizen",
		Short:         "Run a configured test suite against an agent and, on failure, repair it",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newTestAllCmd())
	root.AddCommand(newFixTestsCmd())
	root.AddCommand(newAugmentCmd())
	root.AddCommand(newSetupCmd())
	root.AddCommand(newAnalyzeLogsCmd())

	return root
}
