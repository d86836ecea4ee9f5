// Package memory journals one record per fix attempt: prompt, response,
// and outcome, supplying context to the next prompt and to the PR
// narrative. Memory never reads code from disk — it only
// records what the orchestrator hands it.
package memory

import (
	"fmt"
	"strings"
	"sync"
)

// LLMInteraction captures the exact exchange with the provider for one
// attempt.
type LLMInteraction struct {
	Prompt    string
	Response  string
	Reasoning string
	Model     string
	Tokens    int
}

// Record is one attempt's journal entry.
type Record struct {
	AttemptNumber       int
	FilePath            string
	OriginalCode        string
	FixedCode           string
	Success             bool
	ResultsBefore        int // passed count before this attempt
	ResultsAfter         int // passed count after this attempt
	ApproachDescription string
	CodeChanges         string // textual diff summary
	LLMInteraction      LLMInteraction
	Insights            []string
}

// Store is the per-run journal.
type Store struct {
	mu      sync.RWMutex
	records []Record
}

// New creates an empty Store.
func New() *Store {
	return &Store{}
}

// Record appends a journal entry, merging derived insight tags into
// whatever the caller already supplied (e.g. the orchestrator's abort
// reasons) rather than replacing them.
func (s *Store) Record(r Record) Record {
	seen := make(map[string]bool, len(r.Insights))
	for _, tag := range r.Insights {
		seen[tag] = true
	}
	for _, tag := range deriveInsights(r) {
		if !seen[tag] {
			r.Insights = append(r.Insights, tag)
			seen[tag] = true
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, r)
	return r
}

// All returns every recorded entry in append order.
func (s *Store) All() []Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Record, len(s.records))
	copy(out, s.records)
	return out
}

// ForFile returns every record for filePath, in attempt order.
func (s *Store) ForFile(filePath string) []Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Record
	for _, r := range s.records {
		if r.FilePath == filePath {
			out = append(out, r)
		}
	}
	return out
}

// LastForFile returns the most recent record for filePath, if any.
func (s *Store) LastForFile(filePath string) (Record, bool) {
	records := s.ForFile(filePath)
	if len(records) == 0 {
		return Record{}, false
	}
	return records[len(records)-1], true
}

// PassDelta reports the passed-count change for filePath's last attempt.
func (s *Store) PassDelta(filePath string) int {
	last, ok := s.LastForFile(filePath)
	if !ok {
		return 0
	}
	return last.ResultsAfter - last.ResultsBefore
}

// deriveInsights produces short human-readable tags describing the
// attempt's effect.
func deriveInsights(r Record) []string {
	var insights []string

	if r.FixedCode == r.OriginalCode {
		insights = append(insights, "no_effective_change")
		return insights
	}

	if strings.Contains(r.FixedCode, "recover(") && !strings.Contains(r.OriginalCode, "recover(") {
		insights = append(insights, "introduced_exception_handling")
	}
	if strings.Contains(r.FixedCode, "err != nil") && !strings.Contains(r.OriginalCode, "err != nil") {
		insights = append(insights, "introduced_error_handling")
	}
	if promptTextChanged(r.OriginalCode, r.FixedCode) {
		insights = append(insights, "changed_prompt_text")
	}
	if r.ResultsAfter > r.ResultsBefore {
		insights = append(insights, fmt.Sprintf("improved_by_%d", r.ResultsAfter-r.ResultsBefore))
	} else if r.ResultsAfter < r.ResultsBefore {
		insights = append(insights, "regressed")
	}

	if len(insights) == 0 {
		insights = append(insights, "minor_change")
	}
	return insights
}

func promptTextChanged(original, fixed string) bool {
	return strings.Contains(original, `"`) && strings.Contains(fixed, `"`) && original != fixed &&
		strings.Count(original, `"`) != strings.Count(fixed, `"`)
}
