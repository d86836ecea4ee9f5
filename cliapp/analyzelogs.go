package cliapp

import (
	"github.com/spf13/cobra"

	"kaizen/runlog"
)

func newAnalyzeLogsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze-logs <log-file>",
		Short: "Print a human-readable summary of a persisted run log",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			log, err := runlog.ReadJSON(args[0])
			if err != nil {
				return &ExitError{Code: ExitConfigurationError, Err: err}
			}
			cmd.Print(runlog.Analyze(log))
			return nil
		},
	}
	return cmd
}
