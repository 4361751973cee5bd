package scheduler

import (
	"context"
	"time"

	"github.com/mkwei/folio/internal/clients/exchangerate"
	"github.com/mkwei/folio/internal/domain"
	"github.com/mkwei/folio/internal/services"
	"github.com/rs/zerolog"
)

// rescanTimeout bounds one directory rescan, including pdftotext calls.
const rescanTimeout = 10 * time.Minute

// RescanJob re-imports the statements directory on schedule so files dropped
// in while the server runs show up without a manual trigger.
type RescanJob struct {
	processor *services.Processor
	log       zerolog.Logger
}

// NewRescanJob creates the statement rescan job.
func NewRescanJob(processor *services.Processor, log zerolog.Logger) *RescanJob {
	return &RescanJob{
		processor: processor,
		log:       log.With().Str("job", "statement_rescan").Logger(),
	}
}

// Name returns the job name.
func (j *RescanJob) Name() string {
	return "statement_rescan"
}

// Run executes one import cycle.
func (j *RescanJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), rescanTimeout)
	defer cancel()

	result, err := j.processor.Run(ctx)
	if err != nil {
		return err
	}

	j.log.Info().
		Int("processed", result.Processed).
		Int("failed", result.Failed).
		Int("transactions", result.Transactions).
		Msg("Scheduled rescan finished")
	return nil
}

// RatesJob refreshes the USD to TWD exchange rate so analytics requests hit a
// warm cache instead of waiting on the rate provider.
type RatesJob struct {
	rates *exchangerate.Client
	log   zerolog.Logger
}

// NewRatesJob creates the exchange-rate refresh job.
func NewRatesJob(rates *exchangerate.Client, log zerolog.Logger) *RatesJob {
	return &RatesJob{
		rates: rates,
		log:   log.With().Str("job", "rates_refresh").Logger(),
	}
}

// Name returns the job name.
func (j *RatesJob) Name() string {
	return "rates_refresh"
}

// Run fetches the USD to TWD rate, refreshing the client's cache.
func (j *RatesJob) Run() error {
	rate, err := j.rates.Rate(domain.USD, domain.TWD)
	if err != nil {
		return err
	}

	j.log.Debug().Float64("usd_twd", rate).Msg("Exchange rate refreshed")
	return nil
}
