// Package orchestrator drives the closed-loop state machine: baseline run,
// N fix attempts with per-attempt rollback, best-attempt selection, and the
// PR decision. It is the sole owner of a run's mutable
// state: history, memory, and filesystem snapshots.
package orchestrator

import (
	"context"
	"fmt"
	"os"

	"kaizen/compat"
	"kaizen/fixer"
	"kaizen/history"
	"kaizen/memory"
	"kaizen/statemgr"
	"kaizen/testrunner"
)

// Outcome is the terminal state of a run.
type Outcome string

const (
	OutcomeSuccess   Outcome = "success"   // a passing attempt was reached, or baseline already passed
	OutcomeImproved  Outcome = "improved"  // no attempt passed everything, but at least one improved
	OutcomeFailed    Outcome = "failed"    // no attempt improved on the baseline
	OutcomeError     Outcome = "error"     // the run itself could not complete
	OutcomeCancelled Outcome = "cancelled"
)

// PRStrategy mirrors config.PRStrategy* without importing the config
// package, keeping the orchestrator's dependency surface narrow.
type PRStrategy string

const (
	PRStrategyAllPassing     PRStrategy = "ALL_PASSING"
	PRStrategyAnyImprovement PRStrategy = "ANY_IMPROVEMENT"
	PRStrategyNone           PRStrategy = "NONE"
)

// RunConfig is everything the orchestrator needs beyond the Runner itself.
type RunConfig struct {
	FilesToFix          []string
	ReferencedFiles     []string
	RequiredDependencies []string
	MaxRetries          int
	PRStrategy          PRStrategy
	UserGoal            string
}

// Outcome of a completed run, handed to the CLI and to the PR composer.
type Result struct {
	Outcome     Outcome
	History     *history.History
	Memory      *memory.Store
	Best        history.Entry
	ShouldOpenPR bool
}

// Orchestrator wires the Runner plus the repair-loop collaborators.
type Orchestrator struct {
	Runner *testrunner.Runner
	Fixer  *fixer.Fixer
	Compat *compat.Checker
	Config RunConfig
}

// New creates an Orchestrator.
func New(runner *testrunner.Runner, fx *fixer.Fixer, checker *compat.Checker, cfg RunConfig) *Orchestrator {
	return &Orchestrator{Runner: runner, Fixer: fx, Compat: checker, Config: cfg}
}

// Run executes the full state machine.
func (o *Orchestrator) Run(ctx context.Context) (*Result, error) {
	hist := history.New()
	mem := memory.New()

	baseline := o.Runner.Execute(ctx, "baseline")
	if err := hist.AddBaseline(*baseline); err != nil {
		return nil, fmt.Errorf("orchestrator: %w", err)
	}

	if baseline.Status == testrunner.RunStatusPassed {
		return &Result{Outcome: OutcomeSuccess, History: hist, Memory: mem, Best: firstEntry(hist), ShouldOpenPR: false}, nil
	}

	if o.Config.MaxRetries == 0 {
		return o.finish(hist, mem, OutcomeFailed)
	}

	bestPassed := baseline.Summary.Passed

	for attemptNum := 1; attemptNum <= o.Config.MaxRetries; attemptNum++ {
		select {
		case <-ctx.Done():
			return o.finish(hist, mem, OutcomeCancelled)
		default:
		}

		attemptResult, committed, err := o.runAttempt(ctx, attemptNum, hist, mem, bestPassed)
		if err != nil {
			return nil, fmt.Errorf("orchestrator: attempt %d: %w", attemptNum, err)
		}

		hist.AddFixAttempt(attemptNum, *attemptResult)

		if attemptResult.Status == testrunner.RunStatusPassed {
			return o.finish(hist, mem, OutcomeSuccess)
		}
		if committed && attemptResult.Summary.Passed > bestPassed {
			bestPassed = attemptResult.Summary.Passed
		}
	}

	if bestPassed > baseline.Summary.Passed {
		return o.finish(hist, mem, OutcomeImproved)
	}
	return o.finish(hist, mem, OutcomeFailed)
}

// runAttempt performs PROMPT → PATCH → COMPAT_CHECK → WRITE → RE_RUN,
// rolling back on failure. It returns the re-run result
// and whether the attempt's disk state was committed (kept).
func (o *Orchestrator) runAttempt(ctx context.Context, attemptNum int, hist *history.History, mem *memory.Store, bestPassed int) (*testrunner.TestExecutionResult, bool, error) {
	sm, err := statemgr.New()
	if err != nil {
		return nil, false, err
	}
	defer sm.Close()

	if err := sm.Backup(o.Config.FilesToFix); err != nil {
		return nil, false, err
	}

	originals := make(map[string]string, len(o.Config.FilesToFix))
	for _, path := range o.Config.FilesToFix {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, false, fmt.Errorf("read %q: %w", path, err)
		}
		originals[path] = string(data)
	}

	failures := latestFailures(hist)
	auxContext := o.loadAuxiliaryContext()
	fixed := make(map[string]string, len(o.Config.FilesToFix))

	for _, path := range o.Config.FilesToFix {
		candidate, err := o.promptAndPatch(ctx, path, originals[path], failures, mem, auxContext, nil)
		if err != nil {
			return o.abortAttempt(ctx, sm, mem, attemptNum, path, originals[path], bestPassed, []string{err.Error()})
		}

		siblingContext := withoutKey(auxContext, path)
		issues, err := o.Compat.Check(candidate, path, siblingContext)
		if err != nil {
			return o.abortAttempt(ctx, sm, mem, attemptNum, path, originals[path], bestPassed, []string{err.Error()})
		}
		if len(issues) > 0 {
			candidate, err = o.promptAndPatch(ctx, path, originals[path], failures, mem, auxContext, formatIssues(issues))
			if err != nil {
				return o.abortAttempt(ctx, sm, mem, attemptNum, path, originals[path], bestPassed, []string{err.Error()})
			}
			issues, _ = o.Compat.Check(candidate, path, siblingContext)
			if len(issues) > 0 {
				return o.abortAttempt(ctx, sm, mem, attemptNum, path, originals[path], bestPassed, formatIssues(issues))
			}
		}

		if err := os.WriteFile(path, []byte(candidate), 0o644); err != nil {
			return nil, false, fmt.Errorf("write %q: %w", path, err)
		}
		fixed[path] = candidate
	}

	rerun := o.Runner.Execute(ctx, runTypeFor(attemptNum))
	improved := rerun.Summary.Passed > bestPassed

	for _, path := range o.Config.FilesToFix {
		mem.Record(memory.Record{
			AttemptNumber:       attemptNum,
			FilePath:            path,
			OriginalCode:        originals[path],
			FixedCode:           fixed[path],
			Success:             improved,
			ResultsBefore:       bestPassed,
			ResultsAfter:        rerun.Summary.Passed,
			ApproachDescription: o.Config.UserGoal,
		})
	}

	if improved {
		sm.Commit()
		return rerun, true, nil
	}

	if err := sm.Restore(); err != nil {
		return nil, false, fmt.Errorf("rollback after no improvement: %w", err)
	}
	return rerun, false, nil
}

func (o *Orchestrator) promptAndPatch(ctx context.Context, path, original string, failures []testrunner.TestCaseResult, mem *memory.Store, auxContext map[string]string, compatIssues []string) (string, error) {
	res, err := o.Fixer.Fix(ctx, fixer.Request{
		FilePath:            path,
		OriginalCode:        original,
		Failures:            failures,
		MemorySnippets:      mem.ForFile(path),
		AuxiliaryContext:    withoutKey(auxContext, path),
		CompatibilityIssues: compatIssues,
		UserGoal:            o.Config.UserGoal,
	})
	if err != nil {
		return "", err
	}
	return res.FixedCode, nil
}

// abortAttempt rolls the snapshot back, records why the attempt failed for
// this file, and re-runs the suite so the caller always has a result to put
// in history, even when no candidate was ever written to disk.
func (o *Orchestrator) abortAttempt(ctx context.Context, sm *statemgr.StateManager, mem *memory.Store, attemptNum int, path, original string, bestPassed int, reasons []string) (*testrunner.TestExecutionResult, bool, error) {
	if err := sm.Restore(); err != nil {
		return nil, false, fmt.Errorf("rollback after attempt failure: %w", err)
	}
	mem.Record(memory.Record{
		AttemptNumber: attemptNum,
		FilePath:      path,
		OriginalCode:  original,
		Success:       false,
		ResultsBefore: bestPassed,
		ResultsAfter:  bestPassed,
		Insights:      reasons,
	})
	rerun := o.Runner.Execute(ctx, runTypeFor(attemptNum))
	return rerun, false, nil
}

func (o *Orchestrator) loadAuxiliaryContext() map[string]string {
	ctx := make(map[string]string)
	for _, path := range o.Config.ReferencedFiles {
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		ctx[path] = string(data)
	}
	for _, path := range o.Config.FilesToFix {
		if _, ok := ctx[path]; ok {
			continue
		}
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		ctx[path] = string(data)
	}
	return ctx
}

func (o *Orchestrator) finish(hist *history.History, mem *memory.Store, outcome Outcome) (*Result, error) {
	best, _ := hist.Best()
	if err := hist.SetFinal(best.Result); err != nil {
		return nil, fmt.Errorf("orchestrator: %w", err)
	}

	shouldOpenPR := false
	switch o.Config.PRStrategy {
	case PRStrategyAllPassing:
		shouldOpenPR = outcome == OutcomeSuccess && best.Kind != history.KindBaseline
	case PRStrategyAnyImprovement:
		shouldOpenPR = (outcome == OutcomeSuccess || outcome == OutcomeImproved) && best.Kind != history.KindBaseline
	case PRStrategyNone:
		shouldOpenPR = false
	}

	return &Result{Outcome: outcome, History: hist, Memory: mem, Best: best, ShouldOpenPR: shouldOpenPR}, nil
}

func firstEntry(hist *history.History) history.Entry {
	entries := hist.Entries()
	if len(entries) == 0 {
		return history.Entry{}
	}
	return entries[0]
}

func latestFailures(hist *history.History) []testrunner.TestCaseResult {
	latest, ok := hist.Latest()
	if !ok {
		return nil
	}
	var failures []testrunner.TestCaseResult
	for _, c := range latest.Result.Cases {
		if c.Status != testrunner.CaseStatusPassed {
			failures = append(failures, c)
		}
	}
	return failures
}

func runTypeFor(attemptNum int) string {
	return fmt.Sprintf("fix_attempt_%d", attemptNum)
}

func withoutKey(m map[string]string, key string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		if k == key {
			continue
		}
		out[k] = v
	}
	return out
}

func formatIssues(issues []compat.Issue) []string {
	out := make([]string, len(issues))
	for i, issue := range issues {
		out[i] = fmt.Sprintf("%s:%d %s: %s", issue.Path, issue.Line, issue.Kind, issue.Message)
	}
	return out
}

