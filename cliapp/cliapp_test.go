package cliapp

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"kaizen/config"
	"kaizen/materialize"
	"kaizen/orchestrator"
	"kaizen/suite"
	"kaizen/testrunner"
)

func TestApplyOverrides_OnlySetsProvidedFields(t *testing.T) {
	cfg := &config.Config{MaxRetries: 1, BaseBranch: "main", PRStrategy: "ALL_PASSING"}

	retries := 5
	applyOverrides(cfg, runOptions{MaxRetries: &retries, BaseBranch: "release", CreatePR: true, BetterAI: true})

	assert.Equal(t, 5, cfg.MaxRetries)
	assert.Equal(t, "release", cfg.BaseBranch)
	assert.True(t, cfg.CreatePR)
	assert.True(t, cfg.BetterAI)
}

func TestApplyOverrides_LeavesConfigAloneWhenOptionsAreZeroValue(t *testing.T) {
	cfg := &config.Config{MaxRetries: 2, BaseBranch: "main", PRStrategy: "ANY_IMPROVEMENT"}

	applyOverrides(cfg, runOptions{})

	assert.Equal(t, 2, cfg.MaxRetries)
	assert.Equal(t, "main", cfg.BaseBranch)
	assert.Equal(t, "ANY_IMPROVEMENT", cfg.PRStrategy)
	assert.False(t, cfg.CreatePR)
}

func TestExitCodeFor_Success(t *testing.T) {
	cfg := &config.Config{MaxRetries: 1}
	assert.Equal(t, ExitSuccess, exitCodeFor(cfg, orchestrator.OutcomeSuccess))
}

func TestExitCodeFor_NoRetriesAllowedReturnsNoImprovement(t *testing.T) {
	cfg := &config.Config{MaxRetries: 0}
	assert.Equal(t, ExitNoImprovement, exitCodeFor(cfg, orchestrator.OutcomeFailed))
}

func TestExitCodeFor_RetriesAttemptedButNeverFullySucceededReturnsAutoFixFailed(t *testing.T) {
	cfg := &config.Config{MaxRetries: 3}
	assert.Equal(t, ExitAutoFixFailed, exitCodeFor(cfg, orchestrator.OutcomeFailed))
	assert.Equal(t, ExitAutoFixFailed, exitCodeFor(cfg, orchestrator.OutcomeImproved))
	assert.Equal(t, ExitAutoFixFailed, exitCodeFor(cfg, orchestrator.OutcomeCancelled))
}

func TestExitCodeFor_UnexpectedOrchestratorError(t *testing.T) {
	cfg := &config.Config{MaxRetries: 1}
	assert.Equal(t, ExitUnexpected, exitCodeFor(cfg, orchestrator.OutcomeError))
}

func TestResolveAll_JoinsRelativePathsAgainstConfigDir(t *testing.T) {
	cfg := &config.Config{}
	out := resolveAll(cfg, []string{"a.go", "/abs/b.go"})

	require_ := assert.New(t)
	require_.Equal("a.go", out[0])
	require_.Equal("/abs/b.go", out[1])
}

func TestClassPathsOf_CollectsDistinctObjectClassPaths(t *testing.T) {
	s := suite.TestSuite{
		Cases: []testrunner.TestCase{
			{Input: []materialize.InputDef{
				{Type: materialize.TagObject, ClassPath: "Widget"},
				{Type: materialize.TagInlineObject, ClassPath: "Gadget"},
				{Type: materialize.TagString, Value: "ignored"},
			}},
			{Input: []materialize.InputDef{
				{Type: materialize.TagObject, ClassPath: "Widget"},
			}},
		},
	}

	paths := classPathsOf(s)
	assert.ElementsMatch(t, []string{"Widget", "Gadget"}, paths)
}

func TestClassPathsOf_NoObjectInputsReturnsEmpty(t *testing.T) {
	s := suite.TestSuite{Cases: []testrunner.TestCase{
		{Input: []materialize.InputDef{{Type: materialize.TagString, Value: "x"}}},
	}}

	assert.Empty(t, classPathsOf(s))
}
