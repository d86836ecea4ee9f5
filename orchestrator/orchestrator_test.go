package orchestrator

import (
	"context"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kaizen/compat"
	"kaizen/entrypoint"
	"kaizen/evaluator"
	"kaizen/execengine"
	"kaizen/fixer"
	"kaizen/history"
	"kaizen/materialize"
	"kaizen/testrunner"
)

// staticAgent always returns the same value, so the baseline run's pass/fail
// outcome is fixed without ever needing a real fix attempt.
type staticAgent struct {
	value string
}

func (a *staticAgent) Echo(s string) (string, error) { return a.value, nil }

func newTestRunner(agentValue string) *testrunner.Runner {
	agent := &staticAgent{value: agentValue}
	v := reflect.ValueOf(agent)
	resolved := &entrypoint.Resolved{Instance: v, Callable: v.MethodByName("Echo"), IsMethod: true}

	return &testrunner.Runner{
		Name:         "suite",
		Resolved:     resolved,
		Materializer: materialize.New(materialize.NewRegistry()),
		Engine:       execengine.New(),
		Evaluator:    evaluator.New(nil),
		Cases: []testrunner.TestCase{
			{
				Name:           "greets",
				Input:          []materialize.InputDef{{Type: materialize.TagString, Value: "hi"}},
				ExpectedOutput: "right",
				EvaluationTargets: []evaluator.Target{
					{Name: "exact", Source: evaluator.SourceReturn, Criteria: `equals("right")`, Weight: 1},
				},
			},
		},
	}
}

// newTestOrchestrator builds an Orchestrator whose Fixer is never invoked in
// the test's code path, since llm.Manager's client registry can only be
// populated from within the llm package itself.
func newTestOrchestrator(runner *testrunner.Runner, maxRetries int, strategy PRStrategy) *Orchestrator {
	return New(runner, fixer.New(nil), compat.New(), RunConfig{
		MaxRetries: maxRetries,
		PRStrategy: strategy,
		UserGoal:   "make it pass",
	})
}

func TestRun_BaselinePasses_ReturnsSuccessWithoutAttempts(t *testing.T) {
	runner := newTestRunner("right")
	orch := newTestOrchestrator(runner, 3, PRStrategyAllPassing)

	result, err := orch.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, OutcomeSuccess, result.Outcome)
	assert.False(t, result.ShouldOpenPR, "a passing baseline is never itself a PR candidate")
	assert.Len(t, result.History.Entries(), 1)
	assert.Empty(t, result.Memory.All())
}

func TestRun_MaxRetriesZero_FailsImmediatelyWithoutAttempts(t *testing.T) {
	runner := newTestRunner("wrong")
	orch := newTestOrchestrator(runner, 0, PRStrategyAllPassing)

	result, err := orch.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, OutcomeFailed, result.Outcome)
	assert.False(t, result.ShouldOpenPR)
	assert.Len(t, result.History.Entries(), 1, "only the baseline, no fix attempts")
	assert.Empty(t, result.Memory.All())
}

func TestRun_CancelledContext_StopsBeforeAnyAttempt(t *testing.T) {
	runner := newTestRunner("wrong")
	orch := newTestOrchestrator(runner, 2, PRStrategyAllPassing)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := orch.Run(ctx)
	require.NoError(t, err)

	assert.Equal(t, OutcomeCancelled, result.Outcome)
	assert.Empty(t, result.Memory.All(), "cancellation must happen before any fix attempt touches memory")
}

func TestRun_PRStrategyNone_NeverOpensPR(t *testing.T) {
	runner := newTestRunner("right")
	orch := newTestOrchestrator(runner, 0, PRStrategyNone)

	result, err := orch.Run(context.Background())
	require.NoError(t, err)

	assert.False(t, result.ShouldOpenPR)
}

func TestLatestFailures_ReturnsOnlyNonPassingCases(t *testing.T) {
	hist := newHistoryWithBaseline(t, testrunner.TestExecutionResult{
		RunType: "baseline",
		Cases: []testrunner.TestCaseResult{
			{Name: "a", Status: testrunner.CaseStatusPassed},
			{Name: "b", Status: testrunner.CaseStatusFailed},
			{Name: "c", Status: testrunner.CaseStatusError},
		},
		Summary: testrunner.Summary{Total: 3, Passed: 1, Failed: 1, Error: 1},
	})

	failures := latestFailures(hist)
	require.Len(t, failures, 2)
	assert.Equal(t, "b", failures[0].Name)
	assert.Equal(t, "c", failures[1].Name)
}

func TestWithoutKey_RemovesOnlyNamedKey(t *testing.T) {
	m := map[string]string{"a.go": "A", "b.go": "B"}
	out := withoutKey(m, "a.go")

	assert.Len(t, out, 1)
	_, ok := out["a.go"]
	assert.False(t, ok)
	assert.Equal(t, "B", out["b.go"])
}

func TestFormatIssues_FormatsPathLineKindMessage(t *testing.T) {
	issues := []compat.Issue{
		{Path: "sibling.go", Line: 12, Kind: compat.IssueMissingSymbol, Message: "Foo is gone"},
	}
	formatted := formatIssues(issues)

	require.Len(t, formatted, 1)
	assert.Contains(t, formatted[0], "sibling.go:12")
	assert.Contains(t, formatted[0], "missing_symbol")
	assert.Contains(t, formatted[0], "Foo is gone")
}

func newHistoryWithBaseline(t *testing.T, result testrunner.TestExecutionResult) *history.History {
	t.Helper()
	hist := history.New()
	require.NoError(t, hist.AddBaseline(result))
	return hist
}
