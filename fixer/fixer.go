// Package fixer builds a repair prompt from failures and memory, calls
// the configured provider, and returns a candidate replacement file.
package fixer

import (
	"context"
	"fmt"
	"strings"

	"github.com/cenkalti/backoff/v4"

	"kaizen/llm"
	"kaizen/memory"
	"kaizen/testrunner"
)

// Request bundles everything the fixer needs to build one prompt.
type Request struct {
	FilePath          string
	OriginalCode      string
	Failures          []testrunner.TestCaseResult
	MemorySnippets    []memory.Record
	AuxiliaryContext  map[string]string // sibling file path -> source
	CompatibilityIssues []string        // appended when re-prompting after a compat failure
	UserGoal          string
}

// Result is the fixer's output.
type Result struct {
	FixedCode   string
	Explanation string
	Confidence  float64
}

// Kind enumerates fixer failure categories.
type Kind string

const (
	KindProviderError Kind = "provider_error"
	KindEmptyResponse Kind = "empty_response"
)

// Error is the fixer's error kind.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string { return fmt.Sprintf("fixer: %s: %v", e.Kind, e.Err) }
func (e *Error) Unwrap() error { return e.Err }

// Fixer calls the configured LLM to produce a candidate replacement file.
type Fixer struct {
	LLM *llm.Manager
}

// New creates a Fixer.
func New(llmMgr *llm.Manager) *Fixer {
	return &Fixer{LLM: llmMgr}
}

// Fix builds the repair prompt and calls the provider, retrying transient
// provider errors with a bounded exponential backoff.
func (f *Fixer) Fix(ctx context.Context, req Request) (*Result, error) {
	prompt := buildPrompt(req)

	var resp *llm.Response
	attempt := func() error {
		r, err := f.LLM.Generate(ctx, llm.PurposeCode, llm.Request{
			Messages: []llm.Message{
				{Role: "system", Content: "You are a precise code-repair agent. Respond with the complete replacement file contents only — no prose, no markdown fences."},
				{Role: "user", Content: prompt},
			},
			Temperature: 0.1,
			MaxTokens:   4096,
		})
		if err != nil {
			return err
		}
		resp = r
		return nil
	}

	bo := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 3)
	if err := backoff.Retry(attempt, backoff.WithContext(bo, ctx)); err != nil {
		return nil, &Error{Kind: KindProviderError, Err: err}
	}

	fixedCode := stripFences(resp.Content)
	if strings.TrimSpace(fixedCode) == "" {
		return nil, &Error{Kind: KindEmptyResponse, Err: fmt.Errorf("provider returned empty content")}
	}

	return &Result{
		FixedCode:   fixedCode,
		Explanation: extractExplanation(resp.Content),
		Confidence:  0.8,
	}, nil
}

func buildPrompt(req Request) string {
	var b strings.Builder

	fmt.Fprintf(&b, "File to repair: %s\n\n", req.FilePath)
	if req.UserGoal != "" {
		fmt.Fprintf(&b, "Goal: %s\n\n", req.UserGoal)
	}

	b.WriteString("Current contents:\n```go\n")
	b.WriteString(req.OriginalCode)
	b.WriteString("\n```\n\n")

	b.WriteString("Failing test cases:\n")
	for _, c := range req.Failures {
		fmt.Fprintf(&b, "- %s: status=%s input=%v expected=%v actual=%v error=%s\n",
			c.Name, c.Status, c.Input, c.ExpectedOutput, c.ActualOutput, c.ErrorMessage)
	}
	b.WriteString("\n")

	if len(req.MemorySnippets) > 0 {
		b.WriteString("Prior attempts on this file:\n")
		for _, m := range req.MemorySnippets {
			fmt.Fprintf(&b, "- attempt %d: success=%v insights=%v\n", m.AttemptNumber, m.Success, m.Insights)
		}
		b.WriteString("\n")
	}

	if len(req.CompatibilityIssues) > 0 {
		b.WriteString("The previous candidate broke compatibility with sibling files:\n")
		for _, issue := range req.CompatibilityIssues {
			fmt.Fprintf(&b, "- %s\n", issue)
		}
		b.WriteString("Keep every symbol referenced by sibling files intact.\n\n")
	}

	for path, src := range req.AuxiliaryContext {
		fmt.Fprintf(&b, "Sibling file %s (for reference, do not repeat it in your answer):\n```go\n%s\n```\n\n", path, src)
	}

	b.WriteString("Return the complete replacement contents of the file to repair. No explanation, no markdown fences.")
	return b.String()
}

// stripFences removes accidental markdown code fences and leading prose
// the model may still emit despite instructions.
func stripFences(content string) string {
	s := strings.TrimSpace(content)
	if idx := strings.Index(s, "```"); idx > 0 {
		s = s[idx:]
	}
	if strings.HasPrefix(s, "```") {
		lines := strings.SplitN(s, "\n", 2)
		if len(lines) == 2 {
			s = lines[1]
		}
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	return strings.TrimSpace(s)
}

func extractExplanation(content string) string {
	if idx := strings.Index(content, "```"); idx > 0 {
		return strings.TrimSpace(content[:idx])
	}
	return ""
}
