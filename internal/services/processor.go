// Package services holds the application services that coordinate modules:
// the statement processor ties the ingest pipeline to the ledger.
package services

import (
	"context"
	"fmt"

	"github.com/mkwei/folio/internal/ingest"
	"github.com/mkwei/folio/internal/modules/ledger"
	"github.com/mkwei/folio/internal/utils"
	"github.com/rs/zerolog"
)

// Processor runs the full import cycle: scan the statements directory, push
// every file through the pipeline, persist what parsed, log every outcome,
// then run the maintenance passes over the stored ledger.
type Processor struct {
	pipeline      *ingest.Pipeline
	repo          *ledger.Repository
	plog          *ledger.ProcessingLog
	maintenance   *ledger.Maintenance
	statementsDir string
	log           zerolog.Logger
}

// NewProcessor creates the statement processor.
func NewProcessor(
	pipeline *ingest.Pipeline,
	repo *ledger.Repository,
	plog *ledger.ProcessingLog,
	maintenance *ledger.Maintenance,
	statementsDir string,
	log zerolog.Logger,
) *Processor {
	return &Processor{
		pipeline:      pipeline,
		repo:          repo,
		plog:          plog,
		maintenance:   maintenance,
		statementsDir: statementsDir,
		log:           log.With().Str("service", "processor").Logger(),
	}
}

// BatchResult summarizes one import run.
type BatchResult struct {
	RunID        string           `json:"run_id"`
	Processed    int              `json:"processed"`
	Failed       int              `json:"failed"`
	Transactions int              `json:"transactions"`
	Outcomes     []OutcomeSummary `json:"outcomes"`
}

// OutcomeSummary is the JSON-safe view of one file's outcome.
type OutcomeSummary struct {
	File             string `json:"file"`
	Broker           string `json:"broker"`
	Stage            string `json:"stage"`
	TransactionCount int    `json:"transaction_count"`
	Error            string `json:"error,omitempty"`
}

// Run executes one full import cycle. A file that fails never aborts the
// batch; only directory-level and persistence errors do.
func (p *Processor) Run(ctx context.Context) (*BatchResult, error) {
	defer utils.OperationTimer("statement_import", p.log)()

	runID := p.plog.NewRunID()
	p.log.Info().Str("run_id", runID).Str("dir", p.statementsDir).Msg("Import run starting")

	outcomes, err := p.pipeline.ProcessDir(ctx, p.statementsDir)
	if err != nil {
		return nil, fmt.Errorf("scanning statements directory: %w", err)
	}

	result := &BatchResult{RunID: runID}
	for _, out := range outcomes {
		if out.Stage == ingest.StageDone && out.Statement != nil {
			written, err := p.repo.SaveStatement(out.Statement, out.File)
			if err != nil {
				return nil, fmt.Errorf("saving statement %s: %w", out.File, err)
			}
			result.Processed++
			result.Transactions += written
		} else {
			result.Failed++
		}

		if err := p.plog.Record(runID, out); err != nil {
			p.log.Error().Err(err).Str("file", out.File).Msg("Failed to record outcome")
		}
		result.Outcomes = append(result.Outcomes, summarize(out))
	}

	// Maintenance keeps older rows aligned with the current conventions.
	if _, err := p.maintenance.BackfillNetAmounts(); err != nil {
		return nil, fmt.Errorf("net amount backfill: %w", err)
	}
	if _, err := p.maintenance.RecategorizeSchwabDebits(); err != nil {
		return nil, fmt.Errorf("debit recategorization: %w", err)
	}

	p.log.Info().
		Str("run_id", runID).
		Int("processed", result.Processed).
		Int("failed", result.Failed).
		Int("transactions", result.Transactions).
		Msg("Import run finished")
	return result, nil
}

func summarize(out ingest.Outcome) OutcomeSummary {
	s := OutcomeSummary{
		File:             out.File,
		Broker:           string(out.Broker),
		Stage:            string(out.Stage),
		TransactionCount: out.TransactionCount,
	}
	if out.Err != nil {
		s.Error = out.Err.Error()
	}
	return s
}
