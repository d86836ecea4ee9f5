package augment

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kaizen/suite"
	"kaizen/testrunner"
)

func TestBuildPrompt_NamesExistingCasesAndNeededCount(t *testing.T) {
	s := suite.TestSuite{
		Name: "greeter",
		Cases: []testrunner.TestCase{
			{Name: "greets", ExpectedOutput: "HELLO"},
		},
	}

	prompt := buildPrompt(s, 3)
	assert.Contains(t, prompt, "greeter")
	assert.Contains(t, prompt, "greets")
	assert.Contains(t, prompt, "Propose 3 additional test cases")
}

func TestParseGenerated_StripsFencesAndParsesCases(t *testing.T) {
	raw := "```json\n[{\"name\": \"edge_empty_input\", \"input\": [], \"expected_output\": \"\"}]\n```"

	cases, err := parseGenerated(raw)
	require.NoError(t, err)
	require.Len(t, cases, 1)
	assert.Equal(t, "edge_empty_input", cases[0].Name)
}

func TestParseGenerated_RejectsMalformedJSON(t *testing.T) {
	_, err := parseGenerated("not json")
	assert.Error(t, err)
}
