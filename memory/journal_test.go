package memory

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestJournal(t *testing.T) (*Journal, string) {
	t.Helper()
	tempDir := t.TempDir()
	dbPath := filepath.Join(tempDir, "journal.db")

	journal, err := OpenJournal(dbPath)
	require.NoError(t, err)
	require.NotNil(t, journal)

	return journal, dbPath
}

func TestOpenJournal_CreatesDatabaseFile(t *testing.T) {
	journal, dbPath := setupTestJournal(t)
	defer journal.Close()

	_, err := os.Stat(dbPath)
	assert.NoError(t, err)
}

func TestJournal_AppendAndForFile(t *testing.T) {
	journal, _ := setupTestJournal(t)
	defer journal.Close()

	records := []Record{
		{
			AttemptNumber:       1,
			FilePath:            "agent.py",
			Success:             false,
			ResultsBefore:       1,
			ResultsAfter:        2,
			ApproachDescription: "added error handling",
			LLMInteraction:      LLMInteraction{Model: "gemini-1.5-pro", Tokens: 512},
			Insights:            []string{"introduced_error_handling", "improved_by_1"},
		},
		{
			AttemptNumber: 2,
			FilePath:      "agent.py",
			Success:       true,
			ResultsBefore: 2,
			ResultsAfter:  3,
			Insights:      []string{"improved_by_1"},
		},
	}

	require.NoError(t, journal.Append("run-1", records))

	found, err := journal.ForFile("agent.py")
	require.NoError(t, err)
	require.Len(t, found, 2)

	assert.Equal(t, 1, found[0].AttemptNumber)
	assert.False(t, found[0].Success)
	assert.Equal(t, "added error handling", found[0].ApproachDescription)
	assert.Equal(t, "gemini-1.5-pro", found[0].LLMInteraction.Model)
	assert.ElementsMatch(t, []string{"introduced_error_handling", "improved_by_1"}, found[0].Insights)

	assert.Equal(t, 2, found[1].AttemptNumber)
	assert.True(t, found[1].Success)
}

func TestJournal_ForFile_AccumulatesAcrossRuns(t *testing.T) {
	journal, _ := setupTestJournal(t)
	defer journal.Close()

	require.NoError(t, journal.Append("run-1", []Record{{AttemptNumber: 1, FilePath: "x.py"}}))
	require.NoError(t, journal.Append("run-2", []Record{{AttemptNumber: 1, FilePath: "x.py"}}))

	found, err := journal.ForFile("x.py")
	require.NoError(t, err)
	assert.Len(t, found, 2)
}

func TestJournal_ForFile_NoRecordsReturnsEmpty(t *testing.T) {
	journal, _ := setupTestJournal(t)
	defer journal.Close()

	found, err := journal.ForFile("unseen.py")
	require.NoError(t, err)
	assert.Empty(t, found)
}
