package cliapp

import (
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"

	"kaizen/config"
	"kaizen/entrypoint"
	"kaizen/gitutil"
	"kaizen/memory"
	"kaizen/orchestrator"
	"kaizen/prcomposer"
	"kaizen/runlog"
)

// runOptions carries the CLI flag overrides common to test-all and
// fix-tests onto the loaded configuration.
type runOptions struct {
	CreatePR          bool
	MaxRetries        *int
	BaseBranch        string
	PRStrategy        string
	BetterAI          bool
	PersistMemoryPath string
}

func applyOverrides(cfg *config.Config, opts runOptions) {
	if opts.MaxRetries != nil {
		cfg.MaxRetries = *opts.MaxRetries
	}
	if opts.BaseBranch != "" {
		cfg.BaseBranch = opts.BaseBranch
	}
	if opts.PRStrategy != "" {
		cfg.PRStrategy = opts.PRStrategy
	}
	if opts.CreatePR {
		cfg.CreatePR = true
	}
	if opts.BetterAI {
		cfg.BetterAI = true
	}
}

// executeRun drives one full baseline-through-PR run for an already loaded
// configuration and returns the process exit code.
func executeRun(cfg *config.Config, opts runOptions) int {
	applyOverrides(cfg, opts)

	llmMgr, err := buildLLMManager(cfg.BetterAI)
	if err != nil {
		fmt.Fprintln(os.Stderr, "configuration error:", err)
		return ExitConfigurationError
	}

	resolver := entrypoint.NewResolver()
	runner, err := buildRunner(cfg, resolver, llmMgr)
	if err != nil {
		fmt.Fprintln(os.Stderr, "configuration error:", err)
		return ExitConfigurationError
	}

	orch := buildOrchestrator(cfg, runner, llmMgr)
	result, err := orch.Run(context.Background())
	if err != nil {
		fmt.Fprintln(os.Stderr, "run failed:", err)
		return ExitUnexpected
	}

	workDir, err := os.Getwd()
	if err != nil {
		fmt.Fprintln(os.Stderr, "could not resolve working directory:", err)
		return ExitUnexpected
	}

	log := buildRunLog(cfg, result)

	if opts.PersistMemoryPath != "" {
		if err := persistMemory(opts.PersistMemoryPath, log.RunID, result); err != nil {
			fmt.Fprintln(os.Stderr, "failed to persist memory journal:", err)
		}
	}

	if path, err := runlog.WriteJSON(workDir, log); err != nil {
		fmt.Fprintln(os.Stderr, "failed to write run log:", err)
	} else {
		fmt.Fprintln(os.Stdout, "wrote", path)
	}
	if path, err := runlog.WriteReport(workDir, log); err != nil {
		fmt.Fprintln(os.Stderr, "failed to write report:", err)
	} else {
		fmt.Fprintln(os.Stdout, "wrote", path)
	}

	exitCode := exitCodeFor(cfg, result.Outcome)

	if cfg.CreatePR && result.ShouldOpenPR {
		prURL, prErr := openPullRequest(cfg, result)
		if prErr != nil {
			fmt.Fprintln(os.Stderr, "pull request creation failed:", prErr)
			return ExitPRFailed
		}
		fmt.Fprintln(os.Stdout, "opened pull request:", prURL)
		log.PRURL = prURL
		_, _ = runlog.WriteJSON(workDir, log)
	}

	return exitCode
}

// persistMemory appends one run's fix-attempt records to a durable,
// cross-run SQLite journal, opened fresh for each run so the file can be
// shared by concurrent invocations without holding a long-lived handle.
func persistMemory(dbPath, runID string, result *orchestrator.Result) error {
	journal, err := memory.OpenJournal(dbPath)
	if err != nil {
		return err
	}
	defer journal.Close()
	return journal.Append(runID, result.Memory.All())
}

func exitCodeFor(cfg *config.Config, outcome orchestrator.Outcome) int {
	switch outcome {
	case orchestrator.OutcomeSuccess:
		return ExitSuccess
	case orchestrator.OutcomeFailed, orchestrator.OutcomeImproved, orchestrator.OutcomeCancelled:
		if cfg.MaxRetries == 0 {
			return ExitNoImprovement
		}
		return ExitAutoFixFailed
	default:
		return ExitUnexpected
	}
}

func buildRunLog(cfg *config.Config, result *orchestrator.Result) runlog.RunLog {
	entries := result.History.Entries()
	log := runlog.RunLog{
		RunID:      uuid.NewString(),
		Name:       cfg.Name,
		ConfigPath: cfg.ConfigDir(),
		Memory:     result.Memory.All(),
		Entries:    entries,
	}
	if len(entries) > 0 {
		log.StartTime = entries[0].Result.StartTime
		log.EndTime = entries[len(entries)-1].Result.EndTime
	}
	return log
}

func openPullRequest(cfg *config.Config, result *orchestrator.Result) (string, error) {
	token := os.Getenv("GITHUB_TOKEN")
	if token == "" {
		return "", fmt.Errorf("GITHUB_TOKEN is required to create a pull request")
	}

	repoRoot, err := gitutil.FindRoot(cfg.ConfigDir())
	if err != nil {
		return "", err
	}

	composer := prcomposer.New(context.Background(), prcomposer.Config{
		RepoRoot:    repoRoot,
		BaseBranch:  cfg.BaseBranch,
		GitHubToken: token,
	})

	changedFiles := resolveAll(cfg, cfg.FilesToFix)
	agent := prcomposer.AgentSummary{Name: cfg.Name}
	return composer.Compose(context.Background(), agent, result.History, result.Memory, changedFiles)
}
