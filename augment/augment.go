// Package augment asks the configured LLM to propose additional test cases
// shaped like the ones already in a suite, parses them back into runtime
// TestCase values, and appends them. It is deliberately thin: the
// synthesis prompt and parsing are the whole of it, not a case-generation
// engine in their own right.
package augment

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"kaizen/evaluator"
	"kaizen/llm"
	"kaizen/materialize"
	"kaizen/suite"
	"kaizen/testrunner"
)

// generatedCase is the required JSON shape for one LLM-proposed case.
type generatedCase struct {
	Name              string                      `json:"name"`
	Input             []materialize.InputDef      `json:"input"`
	ExpectedOutput    any                         `json:"expected_output"`
	EvaluationTargets []evaluator.Target          `json:"evaluation_targets"`
}

// Suite asks the LLM to bring s up to total cases, appending
// total-len(s.Cases) synthesized cases shaped like the existing ones. A
// total at or below the current count is a no-op.
func Suite(ctx context.Context, llmMgr *llm.Manager, s suite.TestSuite, total int) (suite.TestSuite, error) {
	need := total - len(s.Cases)
	if need <= 0 {
		return s, nil
	}

	prompt := buildPrompt(s, need)
	resp, err := llmMgr.Generate(ctx, llm.PurposeCode, llm.Request{
		Messages: []llm.Message{
			{Role: "system", Content: "You generate test cases for a test suite. Respond with a JSON array only."},
			{Role: "user", Content: prompt},
		},
		Temperature: 0.4,
	})
	if err != nil {
		return s, fmt.Errorf("augment: %w", err)
	}

	generated, err := parseGenerated(resp.Content)
	if err != nil {
		return s, fmt.Errorf("augment: %w", err)
	}

	out := s
	out.Cases = append(append([]testrunner.TestCase{}, s.Cases...), generated...)
	return out, nil
}

func buildPrompt(s suite.TestSuite, need int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Suite %q currently has %d test cases:\n\n", s.Name, len(s.Cases))
	for _, c := range s.Cases {
		fmt.Fprintf(&b, "- %s: input=%v expected=%v\n", c.Name, c.Input, c.ExpectedOutput)
	}
	fmt.Fprintf(&b, "\nPropose %d additional test cases in the same style, covering edge cases the above do not.\n", need)
	b.WriteString(`Respond with a JSON array of objects: [{"name": "...", "input": [...], "expected_output": ..., "evaluation_targets": [...]}]`)
	return b.String()
}

func parseGenerated(content string) ([]testrunner.TestCase, error) {
	cleaned := stripFences(content)
	var raw []generatedCase
	if err := json.Unmarshal([]byte(cleaned), &raw); err != nil {
		return nil, fmt.Errorf("malformed generated cases: %w", err)
	}

	cases := make([]testrunner.TestCase, 0, len(raw))
	for _, g := range raw {
		cases = append(cases, testrunner.TestCase{
			Name:              g.Name,
			Input:             g.Input,
			ExpectedOutput:    g.ExpectedOutput,
			EvaluationTargets: g.EvaluationTargets,
		})
	}
	return cases, nil
}

func stripFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
