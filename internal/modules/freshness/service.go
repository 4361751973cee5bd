// Package freshness reports how stale each broker's data is, based on the
// most recent transaction date in the ledger. Statements arrive monthly, so
// a quiet few weeks is normal and a quiet quarter means a missing import.
package freshness

import (
	"fmt"
	"sort"
	"time"

	"github.com/mkwei/folio/internal/modules/ledger"
	"github.com/rs/zerolog"
)

// Staleness classification thresholds, in days since the latest transaction.
const (
	currentWithinDays = 45
	agingWithinDays   = 90
)

// Status values for a broker's data age.
const (
	StatusCurrent = "current"
	StatusAging   = "aging"
	StatusStale   = "stale"
)

// Service computes the freshness report.
type Service struct {
	repo *ledger.Repository
	log  zerolog.Logger
	now  func() time.Time
}

// NewService creates the freshness monitor.
func NewService(repo *ledger.Repository, log zerolog.Logger) *Service {
	return &Service{
		repo: repo,
		log:  log.With().Str("service", "freshness").Logger(),
		now:  time.Now,
	}
}

// BrokerFreshness is one broker's data age.
type BrokerFreshness struct {
	Broker     string `json:"broker"`
	LatestDate string `json:"latest_transaction_date"`
	DaysOld    int    `json:"days_old"`
	Status     string `json:"status"`
}

// Report is the full freshness picture.
type Report struct {
	Brokers     []BrokerFreshness `json:"brokers"`
	StaleCount  int               `json:"stale_count"`
	GeneratedAt string            `json:"generated_at"`
}

// Check classifies every broker present in the ledger by data age.
func (s *Service) Check() (*Report, error) {
	latest, err := s.repo.LatestTransactionDates()
	if err != nil {
		return nil, fmt.Errorf("loading latest transaction dates: %w", err)
	}

	today := s.now().UTC()
	report := &Report{GeneratedAt: today.Format(time.RFC3339)}

	for broker, date := range latest {
		bf := BrokerFreshness{Broker: broker, LatestDate: date}

		d, err := time.Parse("2006-01-02", date)
		if err != nil {
			s.log.Warn().Str("broker", broker).Str("date", date).
				Msg("Unparseable latest transaction date")
			bf.Status = StatusStale
			report.Brokers = append(report.Brokers, bf)
			report.StaleCount++
			continue
		}

		bf.DaysOld = int(today.Sub(d).Hours() / 24)
		switch {
		case bf.DaysOld <= currentWithinDays:
			bf.Status = StatusCurrent
		case bf.DaysOld <= agingWithinDays:
			bf.Status = StatusAging
		default:
			bf.Status = StatusStale
			report.StaleCount++
		}
		report.Brokers = append(report.Brokers, bf)
	}

	sort.Slice(report.Brokers, func(i, j int) bool {
		return report.Brokers[i].Broker < report.Brokers[j].Broker
	})

	if report.StaleCount > 0 {
		s.log.Warn().Int("stale", report.StaleCount).Msg("Brokers with stale data")
	}
	return report, nil
}
