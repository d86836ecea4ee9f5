package suite

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kaizen/config"
)

func TestFromConfig_ConvertsStepsAndTargets(t *testing.T) {
	cfg := &config.Config{
		Name: "greeter-suite",
		Steps: []config.StepConfig{
			{
				Name: "greets",
				Input: []config.InputDefConfig{
					{Type: "string", Value: "hello"},
				},
				ExpectedOutput: "HELLO",
				EvaluationTargets: []config.EvaluationTarget{
					{Name: "return_value", Source: "return", Criteria: `equals("HELLO")`, Weight: 1},
				},
			},
		},
	}

	s, err := FromConfig(cfg)
	require.NoError(t, err)
	assert.Equal(t, "greeter-suite", s.Name)
	require.Len(t, s.Cases, 1)

	tc := s.Cases[0]
	assert.Equal(t, "greets", tc.Name)
	require.Len(t, tc.Input, 1)
	assert.Equal(t, "hello", tc.Input[0].Value)
	require.Len(t, tc.EvaluationTargets, 1)
	assert.Equal(t, `equals("HELLO")`, tc.EvaluationTargets[0].Criteria)
}

func TestToStepConfigs_RoundTrips(t *testing.T) {
	cfg := &config.Config{
		Name: "s",
		Steps: []config.StepConfig{
			{
				Name:           "echoes",
				Input:          []config.InputDefConfig{{Type: "string", Value: "x"}},
				ExpectedOutput: "x",
			},
		},
	}

	s, err := FromConfig(cfg)
	require.NoError(t, err)

	steps := ToStepConfigs(s.Cases)
	require.Len(t, steps, 1)
	assert.Equal(t, cfg.Steps[0].Name, steps[0].Name)
	assert.Equal(t, cfg.Steps[0].Input[0].Value, steps[0].Input[0].Value)
}
