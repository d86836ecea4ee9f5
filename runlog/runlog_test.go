package runlog

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kaizen/history"
	"kaizen/testrunner"
)

func sampleLog() RunLog {
	return RunLog{
		RunID:      "run-1",
		Name:       "suite",
		ConfigPath: "config.yaml",
		StartTime:  time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		EndTime:    time.Date(2026, 1, 1, 0, 1, 0, 0, time.UTC),
		Entries: []history.Entry{
			{Kind: history.KindBaseline, Result: testrunner.TestExecutionResult{
				RunType: "baseline",
				Cases:   []testrunner.TestCaseResult{{Name: "a", Status: testrunner.CaseStatusPassed}},
				Summary: testrunner.Summary{Total: 1, Passed: 1},
			}},
		},
	}
}

func TestWriteJSON_RoundTrips(t *testing.T) {
	dir := t.TempDir()
	log := sampleLog()

	path, err := WriteJSON(dir, log)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "test-logs", "run-1.json"), path)

	loaded, err := ReadJSON(path)
	require.NoError(t, err)
	assert.Equal(t, log.RunID, loaded.RunID)
	assert.Equal(t, log.Entries[0].Result.Summary.Passed, loaded.Entries[0].Result.Summary.Passed)
}

func TestWriteReport_ContainsCaseNames(t *testing.T) {
	dir := t.TempDir()
	log := sampleLog()

	path, err := WriteReport(dir, log)
	require.NoError(t, err)

	report := RenderReport(log)
	assert.Contains(t, report, "run-1")
	assert.Contains(t, report, "a")
	assert.FileExists(t, path)
}

func TestAnalyze_NoRegressions(t *testing.T) {
	log := sampleLog()
	out := Analyze(&log)
	assert.Contains(t, out, "No regressions")
}
