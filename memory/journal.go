package memory

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

// Journal is a durable, cross-run record of fix attempts, opened with
// --persist-memory. Unlike Store, which lives only for the one run that
// created it, Journal accumulates rows across every run against the same
// database file, so a later run can see what past attempts on a file
// looked like even after the process that made them has exited.
type Journal struct {
	db *sql.DB
}

// OpenJournal opens (creating if necessary) a SQLite-backed journal at
// dbPath.
func OpenJournal(dbPath string) (*Journal, error) {
	if dir := filepath.Dir(dbPath); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("memory: create journal directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("memory: open journal: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("memory: ping journal: %w", err)
	}

	j := &Journal{db: db}
	if err := j.initSchema(); err != nil {
		return nil, err
	}
	return j, nil
}

func (j *Journal) initSchema() error {
	const schema = `
	CREATE TABLE IF NOT EXISTS fix_attempts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		attempt_number INTEGER NOT NULL,
		file_path TEXT NOT NULL,
		success INTEGER NOT NULL,
		results_before INTEGER NOT NULL,
		results_after INTEGER NOT NULL,
		approach_description TEXT,
		code_changes TEXT,
		model TEXT,
		tokens INTEGER,
		insights TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_fix_attempts_file ON fix_attempts(file_path);
	CREATE INDEX IF NOT EXISTS idx_fix_attempts_run ON fix_attempts(run_id);
	`
	_, err := j.db.Exec(schema)
	return err
}

// Close closes the underlying database connection.
func (j *Journal) Close() error {
	return j.db.Close()
}

// Append persists runID's records.
func (j *Journal) Append(runID string, records []Record) error {
	for _, r := range records {
		insights, err := json.Marshal(r.Insights)
		if err != nil {
			return fmt.Errorf("memory: marshal insights: %w", err)
		}
		_, err = j.db.Exec(`
			INSERT INTO fix_attempts
				(run_id, attempt_number, file_path, success, results_before, results_after,
				 approach_description, code_changes, model, tokens, insights)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, runID, r.AttemptNumber, r.FilePath, r.Success, r.ResultsBefore, r.ResultsAfter,
			r.ApproachDescription, r.CodeChanges, r.LLMInteraction.Model, r.LLMInteraction.Tokens, string(insights))
		if err != nil {
			return fmt.Errorf("memory: insert record: %w", err)
		}
	}
	return nil
}

// ForFile returns every past record for filePath across all runs, oldest
// first, so a new run's fix prompt can be seeded with prior attempts.
func (j *Journal) ForFile(filePath string) ([]Record, error) {
	rows, err := j.db.Query(`
		SELECT attempt_number, file_path, success, results_before, results_after,
		       approach_description, code_changes, model, tokens, insights
		FROM fix_attempts WHERE file_path = ? ORDER BY created_at ASC, id ASC
	`, filePath)
	if err != nil {
		return nil, fmt.Errorf("memory: query journal: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var r Record
		var insights string
		if err := rows.Scan(&r.AttemptNumber, &r.FilePath, &r.Success, &r.ResultsBefore, &r.ResultsAfter,
			&r.ApproachDescription, &r.CodeChanges, &r.LLMInteraction.Model, &r.LLMInteraction.Tokens, &insights); err != nil {
			return nil, fmt.Errorf("memory: scan journal row: %w", err)
		}
		_ = json.Unmarshal([]byte(insights), &r.Insights)
		out = append(out, r)
	}
	return out, rows.Err()
}
