package cliapp

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const envExampleTemplate = `# Required for evaluation and repair.
GOOGLE_API_KEY=

# Required only when create_pr/--create-pr is used.
GITHUB_TOKEN=
`

func newSetupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "setup",
		Short: "Environment setup helpers",
	}
	cmd.AddCommand(newCheckEnvCmd())
	cmd.AddCommand(newCreateEnvExampleCmd())
	return cmd
}

func newCheckEnvCmd() *cobra.Command {
	var requirePR bool

	cmd := &cobra.Command{
		Use:   "check-env",
		Short: "Verify required environment variables are set",
		RunE: func(cmd *cobra.Command, args []string) error {
			var missing []string
			if os.Getenv("GOOGLE_API_KEY") == "" {
				missing = append(missing, "GOOGLE_API_KEY")
			}
			if requirePR && os.Getenv("GITHUB_TOKEN") == "" {
				missing = append(missing, "GITHUB_TOKEN")
			}
			if len(missing) > 0 {
				return &ExitError{Code: ExitConfigurationError, Err: fmt.Errorf("missing required environment variables: %v", missing)}
			}
			cmd.Println("environment OK")
			return nil
		},
	}
	cmd.Flags().BoolVar(&requirePR, "create-pr", false, "also require GITHUB_TOKEN")
	return cmd
}

func newCreateEnvExampleCmd() *cobra.Command {
	var outputPath string

	cmd := &cobra.Command{
		Use:   "create-env-example",
		Short: "Write a .env.example template",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := os.WriteFile(outputPath, []byte(envExampleTemplate), 0o644); err != nil {
				return &ExitError{Code: ExitUnexpected, Err: err}
			}
			cmd.Println("wrote", outputPath)
			return nil
		},
	}
	cmd.Flags().StringVar(&outputPath, "output", ".env.example", "output file path")
	return cmd
}
