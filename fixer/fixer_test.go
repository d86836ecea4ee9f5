package fixer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStripFences_RemovesLanguageFencedBlock(t *testing.T) {
	raw := "```go\npackage main\n\nfunc main() {}\n```"
	assert.Equal(t, "package main\n\nfunc main() {}", stripFences(raw))
}

func TestStripFences_PlainContentUnchanged(t *testing.T) {
	raw := "package main\n\nfunc main() {}"
	assert.Equal(t, raw, stripFences(raw))
}

func TestBuildPrompt_IncludesCompatibilityIssues(t *testing.T) {
	prompt := buildPrompt(Request{
		FilePath:             "agent.go",
		OriginalCode:         "package agent",
		CompatibilityIssues:  []string{"agent.Summarize no longer exists"},
	})
	assert.Contains(t, prompt, "agent.Summarize no longer exists")
	assert.Contains(t, prompt, "Keep every symbol referenced by sibling files intact")
}

func TestExtractExplanation_BeforeFence(t *testing.T) {
	raw := "Here is the fix.\n```go\npackage main\n```"
	assert.Equal(t, "Here is the fix.", extractExplanation(raw))
}
