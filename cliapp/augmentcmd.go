package cliapp

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"kaizen/augment"
	"kaizen/config"
	"kaizen/suite"
)

func newAugmentCmd() *cobra.Command {
	var (
		total    int
		betterAI bool
	)

	cmd := &cobra.Command{
		Use:   "augment <config>",
		Short: "Ask the configured LLM to grow a suite to --total cases and persist them",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			configPath := args[0]
			cfg, err := config.Load(configPath)
			if err != nil {
				return &ExitError{Code: ExitConfigurationError, Err: err}
			}

			llmMgr, err := buildLLMManager(betterAI || cfg.BetterAI)
			if err != nil {
				return &ExitError{Code: ExitConfigurationError, Err: err}
			}

			s, err := suite.FromConfig(cfg)
			if err != nil {
				return &ExitError{Code: ExitConfigurationError, Err: err}
			}

			grown, err := augment.Suite(context.Background(), llmMgr, s, total)
			if err != nil {
				return &ExitError{Code: ExitAutoFixFailed, Err: err}
			}

			cfg.Steps = suite.ToStepConfigs(grown.Cases)
			if err := config.Save(cfg, configPath); err != nil {
				return &ExitError{Code: ExitUnexpected, Err: err}
			}

			cmd.Println(fmt.Sprintf("suite %q now has %d cases", grown.Name, len(grown.Cases)))
			return nil
		},
	}

	cmd.Flags().IntVar(&total, "total", 0, "target number of test cases (required)")
	cmd.Flags().BoolVar(&betterAI, "better-ai", false, "select a higher-capability model")
	_ = cmd.MarkFlagRequired("total")

	return cmd
}
