package prcomposer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kaizen/history"
	"kaizen/memory"
	"kaizen/testrunner"
)

func result(runType string, cases ...testrunner.TestCaseResult) testrunner.TestExecutionResult {
	passed := 0
	for _, c := range cases {
		if c.Status == testrunner.CaseStatusPassed {
			passed++
		}
	}
	return testrunner.TestExecutionResult{
		RunType: runType,
		Cases:   cases,
		Summary: testrunner.Summary{Total: len(cases), Passed: passed},
	}
}

func buildHistory(t *testing.T) *history.History {
	t.Helper()
	h := history.New()
	require.NoError(t, h.AddBaseline(result("baseline",
		testrunner.TestCaseResult{Name: "greets", Status: testrunner.CaseStatusFailed},
		testrunner.TestCaseResult{Name: "echoes", Status: testrunner.CaseStatusPassed},
	)))
	h.AddFixAttempt(1, result("fix_attempt_1",
		testrunner.TestCaseResult{Name: "greets", Status: testrunner.CaseStatusPassed},
		testrunner.TestCaseResult{Name: "echoes", Status: testrunner.CaseStatusPassed},
	))
	require.NoError(t, h.SetFinal(result("final",
		testrunner.TestCaseResult{Name: "greets", Status: testrunner.CaseStatusPassed},
		testrunner.TestCaseResult{Name: "echoes", Status: testrunner.CaseStatusPassed},
	)))
	return h
}

func TestRenderBody_SectionOrderAndTable(t *testing.T) {
	h := buildHistory(t)
	mem := memory.New()
	mem.Record(memory.Record{AttemptNumber: 1, FilePath: "agent.go", ApproachDescription: "uppercased the greeting"})

	body := RenderBody(AgentSummary{Name: "greeter", Version: "1.0", Description: "says hello"}, h, mem, []string{"agent.go"})

	agentIdx := indexOf(t, body, "## Agent Summary")
	tableIdx := indexOf(t, body, "## Test Results Summary")
	detailIdx := indexOf(t, body, "## Detailed Results")
	changesIdx := indexOf(t, body, "## Code Changes")
	summaryIdx := indexOf(t, body, "## Additional Summary")

	assert.True(t, agentIdx < tableIdx)
	assert.True(t, tableIdx < detailIdx)
	assert.True(t, detailIdx < changesIdx)
	assert.True(t, changesIdx < summaryIdx)

	assert.Contains(t, body, "| greets | failed |")
	assert.Contains(t, body, "| echoes | passed |")
	assert.Contains(t, body, "uppercased the greeting")
}

func TestRenderBody_ImprovementColumn(t *testing.T) {
	h := buildHistory(t)
	body := RenderBody(AgentSummary{Name: "greeter"}, h, memory.New(), nil)

	assert.Contains(t, body, "| greets | failed | passed | passed | passed | Yes |")
	assert.Contains(t, body, "| echoes | passed | passed | passed | passed | No |")
}

func TestTitle_ReportsBestAttemptCounts(t *testing.T) {
	h := buildHistory(t)
	best, ok := h.Best()
	require.True(t, ok)

	title := Title(AgentSummary{Name: "greeter"}, best)
	assert.Contains(t, title, "greeter")
	assert.Contains(t, title, "2/2")
}

func indexOf(t *testing.T, s, substr string) int {
	t.Helper()
	idx := -1
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			idx = i
			break
		}
	}
	require.GreaterOrEqual(t, idx, 0, "expected to find %q in body", substr)
	return idx
}
