package ledger

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/mkwei/folio/internal/ingest"
	"github.com/rs/zerolog"
)

// ProcessingLog records how each statement file moved through the pipeline,
// grouped by run. One run covers one batch (a directory scan or an API
// trigger).
type ProcessingLog struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewProcessingLog creates a processing log repository.
func NewProcessingLog(db *sql.DB, log zerolog.Logger) *ProcessingLog {
	return &ProcessingLog{
		db:  db,
		log: log.With().Str("repo", "processing_log").Logger(),
	}
}

// RunEntry is one file's outcome within a processing run.
type RunEntry struct {
	RunID            string `json:"run_id"`
	FileName         string `json:"file_name"`
	Broker           string `json:"broker"`
	Stage            string `json:"stage"`
	TransactionCount int    `json:"transaction_count"`
	Error            string `json:"error,omitempty"`
	ProcessedAt      string `json:"processed_at"`
}

// NewRunID mints the identifier shared by every file in one batch.
func (p *ProcessingLog) NewRunID() string {
	return uuid.NewString()
}

// Record stores one pipeline outcome under the given run.
func (p *ProcessingLog) Record(runID string, out ingest.Outcome) error {
	errText := ""
	if out.Err != nil {
		errText = out.Err.Error()
	}

	query := `
		INSERT OR REPLACE INTO processing_log (
			run_id, file_name, broker, stage, transaction_count, error
		) VALUES (?, ?, ?, ?, ?, ?)
	`
	_, err := p.db.Exec(query,
		runID,
		out.File,
		string(out.Broker),
		string(out.Stage),
		out.TransactionCount,
		errText,
	)
	if err != nil {
		return fmt.Errorf("failed to record processing outcome for %s: %w", out.File, err)
	}
	return nil
}

// GetRecent retrieves the most recent entries across all runs.
func (p *ProcessingLog) GetRecent(limit int) ([]RunEntry, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := p.db.Query(`
		SELECT run_id, file_name, broker, stage, transaction_count,
		       COALESCE(error, ''), processed_at
		FROM processing_log
		ORDER BY processed_at DESC, run_id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query processing log: %w", err)
	}
	defer rows.Close()

	var entries []RunEntry
	for rows.Next() {
		var e RunEntry
		if err := rows.Scan(&e.RunID, &e.FileName, &e.Broker, &e.Stage,
			&e.TransactionCount, &e.Error, &e.ProcessedAt); err != nil {
			return nil, fmt.Errorf("failed to scan processing log entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating processing log: %w", err)
	}
	return entries, nil
}
