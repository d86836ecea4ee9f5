// Package runlog persists one run's history and memory as a JSON document
// and a plain-text report, and renders a human-readable summary back from
// a persisted log.
package runlog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"kaizen/history"
	"kaizen/memory"
	"kaizen/testrunner"
)

// RunLog is the full structured dump of one run: metadata, every attempt's
// test results, and every attempt's memory record.
type RunLog struct {
	RunID      string           `json:"run_id"`
	Name       string           `json:"name"`
	ConfigPath string           `json:"config_path"`
	StartTime  time.Time        `json:"start_time"`
	EndTime    time.Time        `json:"end_time"`
	Entries    []history.Entry  `json:"entries"`
	Memory     []memory.Record  `json:"memory"`
	PRURL      string           `json:"pr_url,omitempty"`
}

// WriteJSON writes dir/test-logs/<run-id>.json, the full structured dump.
func WriteJSON(dir string, log RunLog) (string, error) {
	logsDir := filepath.Join(dir, "test-logs")
	if err := os.MkdirAll(logsDir, 0o755); err != nil {
		return "", fmt.Errorf("runlog: create test-logs dir: %w", err)
	}

	path := filepath.Join(logsDir, log.RunID+".json")
	data, err := json.MarshalIndent(log, "", "  ")
	if err != nil {
		return "", fmt.Errorf("runlog: marshal run log: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("runlog: write %q: %w", path, err)
	}
	return path, nil
}

// WriteReport writes dir/test-results/<run-id>.txt, a plain-text summary.
func WriteReport(dir string, log RunLog) (string, error) {
	resultsDir := filepath.Join(dir, "test-results")
	if err := os.MkdirAll(resultsDir, 0o755); err != nil {
		return "", fmt.Errorf("runlog: create test-results dir: %w", err)
	}

	path := filepath.Join(resultsDir, log.RunID+".txt")
	if err := os.WriteFile(path, []byte(RenderReport(log)), 0o644); err != nil {
		return "", fmt.Errorf("runlog: write %q: %w", path, err)
	}
	return path, nil
}

// RenderReport builds the plain-text report body that WriteReport writes.
// The analyze-logs CLI command prints Analyze's summary instead.
func RenderReport(log RunLog) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Run: %s (%s)\n", log.RunID, log.Name)
	fmt.Fprintf(&b, "Config: %s\n", log.ConfigPath)
	fmt.Fprintf(&b, "Started: %s  Ended: %s\n\n", log.StartTime.Format(time.RFC3339), log.EndTime.Format(time.RFC3339))

	for _, e := range log.Entries {
		fmt.Fprintf(&b, "[%s", e.Kind)
		if e.Kind == history.KindAttempt {
			fmt.Fprintf(&b, " %d", e.AttemptNumber)
		}
		fmt.Fprintf(&b, "] %s — %d/%d passed\n", e.Result.RunType, e.Result.Summary.Passed, e.Result.Summary.Total)
		for _, c := range e.Result.Cases {
			fmt.Fprintf(&b, "    %-6s %s", c.Status, c.Name)
			if c.ErrorMessage != "" {
				fmt.Fprintf(&b, " — %s", c.ErrorMessage)
			}
			b.WriteString("\n")
		}
	}

	if len(log.Memory) > 0 {
		b.WriteString("\nMemory:\n")
		for _, m := range log.Memory {
			fmt.Fprintf(&b, "  attempt %d (%s): success=%v insights=%v\n", m.AttemptNumber, m.FilePath, m.Success, m.Insights)
		}
	}

	if log.PRURL != "" {
		fmt.Fprintf(&b, "\nPull request: %s\n", log.PRURL)
	}

	return b.String()
}

// ReadJSON loads a persisted run log back, for analyze-logs and for P7's
// round-trip property.
func ReadJSON(path string) (*RunLog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("runlog: read %q: %w", path, err)
	}
	var log RunLog
	if err := json.Unmarshal(data, &log); err != nil {
		return nil, fmt.Errorf("runlog: unmarshal %q: %w", path, err)
	}
	return &log, nil
}

// Analyze renders the human-readable summary the analyze-logs CLI command
// prints: pass/fail counts per attempt and the regression list
// (SUPPLEMENTED FEATURES #2).
func Analyze(log *RunLog) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Run %s: %d entries\n", log.RunID, len(log.Entries))

	baseline, hasBaseline := findBaseline(log.Entries)
	for _, e := range log.Entries {
		fmt.Fprintf(&b, "- %-12s %-18s %d/%d passed\n", e.Kind, e.Result.RunType, e.Result.Summary.Passed, e.Result.Summary.Total)
	}

	if hasBaseline {
		final := log.Entries[len(log.Entries)-1].Result
		deltas := history.ImprovementSummary(baseline, final)
		var regressions []string
		for name, delta := range deltas {
			if delta == history.DeltaRegressed {
				regressions = append(regressions, name)
			}
		}
		if len(regressions) > 0 {
			fmt.Fprintf(&b, "\nRegressions: %s\n", strings.Join(regressions, ", "))
		} else {
			b.WriteString("\nNo regressions.\n")
		}
	}

	return b.String()
}

func findBaseline(entries []history.Entry) (testrunner.TestExecutionResult, bool) {
	for _, e := range entries {
		if e.Kind == history.KindBaseline {
			return e.Result, true
		}
	}
	return testrunner.TestExecutionResult{}, false
}
