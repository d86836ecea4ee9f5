// Package testrunner executes a declarative test suite against a resolved
// entry point: for each case, materialize arguments, execute, evaluate,
// and accumulate a TestExecutionResult.
package testrunner

import (
	"context"
	"time"

	"kaizen/entrypoint"
	"kaizen/evaluator"
	"kaizen/execengine"
	"kaizen/materialize"
)

// CaseStatus is a TestCaseResult's outcome.
type CaseStatus string

const (
	CaseStatusPassed  CaseStatus = "passed"
	CaseStatusFailed  CaseStatus = "failed"
	CaseStatusError   CaseStatus = "error"
	CaseStatusSkipped CaseStatus = "skipped"
)

// RunStatus is a TestExecutionResult's overall outcome.
type RunStatus string

const (
	RunStatusPassed RunStatus = "passed"
	RunStatusFailed RunStatus = "failed"
	RunStatusError  RunStatus = "error"
)

// TestCase is the declarative, immutable-after-load unit of a suite.
type TestCase struct {
	Name              string
	Region            string
	Input             []materialize.InputDef
	ExpectedOutput    any
	EvaluationTargets []evaluator.Target
}

// TrackedVariableNames returns the distinct variable-source target names,
// the set the execution engine must capture for this case.
func (c TestCase) TrackedVariableNames() []string {
	seen := make(map[string]bool)
	var names []string
	for _, t := range c.EvaluationTargets {
		if t.Source == evaluator.SourceVariable && !seen[t.Name] {
			seen[t.Name] = true
			names = append(names, t.Name)
		}
	}
	return names
}

// TestCaseResult is created once per test execution and never mutated.
type TestCaseResult struct {
	Name            string
	Status          CaseStatus
	Region          string
	Input           []materialize.InputDef
	ExpectedOutput  any
	ActualOutput    any
	Evaluation      []evaluator.Verdict
	EvaluationScore float64
	ErrorMessage    string
	ErrorDetails    string
	ExecutionTime   time.Duration
	Timestamp       time.Time
	Metadata        map[string]any
}

// Summary aggregates a TestExecutionResult's case outcomes.
type Summary struct {
	Total       int
	Passed      int
	Failed      int
	Error       int
	SuccessRate float64
}

// TestExecutionResult is the ordered, owned collection of case results
// plus run metadata.
type TestExecutionResult struct {
	Name       string
	FilePath   string
	ConfigPath string
	Status     RunStatus
	RunType    string
	StartTime  time.Time
	EndTime    time.Time
	Cases      []TestCaseResult
	Summary    Summary
}

// Runner executes a suite against one resolved entry point.
type Runner struct {
	Name       string
	FilePath   string
	ConfigPath string
	Resolved   *entrypoint.Resolved
	Materializer *materialize.Materializer
	Engine     *execengine.Engine
	Evaluator  *evaluator.Evaluator
	Cases      []TestCase
}

// Execute runs every case in declaration order and returns one
// TestExecutionResult stamped with runType. A single case failure never
// aborts the run.
func (r *Runner) Execute(ctx context.Context, runType string) *TestExecutionResult {
	start := time.Now()
	result := &TestExecutionResult{
		Name:       r.Name,
		FilePath:   r.FilePath,
		ConfigPath: r.ConfigPath,
		RunType:    runType,
		StartTime:  start,
		Cases:      make([]TestCaseResult, 0, len(r.Cases)),
	}

	for _, tc := range r.Cases {
		result.Cases = append(result.Cases, r.executeCase(ctx, tc))
	}

	result.EndTime = time.Now()
	result.Summary = summarize(result.Cases)
	result.Status = overallStatus(result.Summary)
	return result
}

func (r *Runner) executeCase(ctx context.Context, tc TestCase) TestCaseResult {
	timestamp := time.Now()
	base := TestCaseResult{
		Name:           tc.Name,
		Region:         tc.Region,
		Input:          tc.Input,
		ExpectedOutput: tc.ExpectedOutput,
		Timestamp:      timestamp,
	}

	caseStart := time.Now()

	args, err := r.Materializer.Materialize(tc.Input)
	if err != nil {
		return withError(base, caseStart, "input materialization failed", err)
	}

	execResult, err := r.Engine.Execute(ctx, r.Resolved, args, tc.TrackedVariableNames())
	if err != nil {
		return withError(base, caseStart, "execution failed", err)
	}

	base.ActualOutput = execResult.ReturnValue
	base.ExecutionTime = time.Since(caseStart)

	observed := evaluator.Observed{ReturnValue: execResult.ReturnValue, TrackedValues: execResult.TrackedValues}
	verdicts, passed := r.Evaluator.EvaluateCase(ctx, tc.Name, tc.ExpectedOutput, tc.EvaluationTargets, observed)

	base.Evaluation = verdicts
	base.EvaluationScore = evaluator.WeightedScore(verdicts, tc.EvaluationTargets)
	if passed {
		base.Status = CaseStatusPassed
	} else {
		base.Status = CaseStatusFailed
	}
	return base
}

func withError(base TestCaseResult, caseStart time.Time, message string, err error) TestCaseResult {
	base.Status = CaseStatusError
	base.ErrorMessage = message
	base.ErrorDetails = err.Error()
	base.ExecutionTime = time.Since(caseStart)
	return base
}

func summarize(cases []TestCaseResult) Summary {
	s := Summary{Total: len(cases)}
	for _, c := range cases {
		switch c.Status {
		case CaseStatusPassed:
			s.Passed++
		case CaseStatusFailed:
			s.Failed++
		case CaseStatusError:
			s.Error++
		}
	}
	if s.Total > 0 {
		s.SuccessRate = float64(s.Passed) / float64(s.Total)
	}
	return s
}

func overallStatus(s Summary) RunStatus {
	if s.Passed == s.Total && s.Total > 0 {
		return RunStatusPassed
	}
	return RunStatusFailed
}
