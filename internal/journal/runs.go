package journal

import (
	"database/sql"
)

// Item outcomes recorded per paper.
const (
	OutcomeWritten        = "written"
	OutcomeDuplicate      = "duplicate"
	OutcomeAnalysisFailed = "analysis_failed"
	OutcomeWriteFailed    = "write_failed"
)

// RunReport holds the recorded counters of one run.
type RunReport struct {
	ID         int64
	StartedAt  string
	FinishedAt *string
	Queries    int
	Found      int
	NewPapers  int
	Written    int
	Failed     int
}

// Stats contains aggregate journal statistics.
type Stats struct {
	TotalRuns    int
	TotalWritten int
	TotalFailed  int
	LastStarted  string
}

// BeginRun inserts a new run row and returns its ID.
func (db *DB) BeginRun(queries int) (int64, error) {
	result, err := db.conn.Exec("INSERT INTO runs (queries) VALUES (?)", queries)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

// FinishRun stamps the run's completion time and final counters.
func (db *DB) FinishRun(runID int64, found, newPapers, written, failed int) error {
	_, err := db.conn.Exec(
		`UPDATE runs SET finished_at = datetime('now'), found = ?, new_papers = ?, written = ?, failed = ?
		WHERE id = ?`,
		found, newPapers, written, failed, runID,
	)
	return err
}

// RecordItem appends one per-paper outcome row.
func (db *DB) RecordItem(runID int64, query, url, title, outcome, detail string) error {
	_, err := db.conn.Exec(
		`INSERT INTO run_items (run_id, query, url, title, outcome, detail)
		VALUES (?, ?, ?, ?, ?, ?)`,
		runID, query, url, title, outcome, detail,
	)
	return err
}

// GetRun returns one run report, or nil when absent.
func (db *DB) GetRun(runID int64) (*RunReport, error) {
	row := db.conn.QueryRow(
		`SELECT id, started_at, finished_at, queries, found, new_papers, written, failed
		FROM runs WHERE id = ?`, runID,
	)

	var r RunReport
	err := row.Scan(&r.ID, &r.StartedAt, &r.FinishedAt, &r.Queries, &r.Found, &r.NewPapers, &r.Written, &r.Failed)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// GetItemOutcomes returns outcome counts for one run.
func (db *DB) GetItemOutcomes(runID int64) (map[string]int, error) {
	rows, err := db.conn.Query(
		"SELECT outcome, COUNT(*) FROM run_items WHERE run_id = ? GROUP BY outcome", runID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	outcomes := make(map[string]int)
	for rows.Next() {
		var outcome string
		var count int
		if err := rows.Scan(&outcome, &count); err != nil {
			return nil, err
		}
		outcomes[outcome] = count
	}
	return outcomes, rows.Err()
}

// GetStats returns aggregate statistics across all runs.
func (db *DB) GetStats() (*Stats, error) {
	var s Stats
	err := db.conn.QueryRow(
		`SELECT COUNT(*), COALESCE(SUM(written), 0), COALESCE(SUM(failed), 0), COALESCE(MAX(started_at), '')
		FROM runs`,
	).Scan(&s.TotalRuns, &s.TotalWritten, &s.TotalFailed, &s.LastStarted)
	if err != nil {
		return nil, err
	}
	return &s, nil
}
