package portfolio

import (
	"fmt"
	"sort"

	"github.com/mkwei/folio/internal/domain"
	"github.com/mkwei/folio/internal/modules/ledger"
	"gonum.org/v1/gonum/stat"
)

// YearPerformance aggregates one calendar year's activity in TWD.
type YearPerformance struct {
	Year        string  `json:"year"`
	Invested    float64 `json:"invested_twd"`
	Received    float64 `json:"received_twd"`
	Dividends   float64 `json:"dividends_twd"`
	RealizedPL  float64 `json:"realized_pl_twd"`
	NetCashFlow float64 `json:"net_cash_flow_twd"`
	Trades      int     `json:"trades"`
}

// PerformanceReport is the year-by-year view plus distribution statistics
// over the yearly net flows.
type PerformanceReport struct {
	Years         []YearPerformance `json:"years"`
	MeanNetFlow   float64           `json:"mean_net_flow_twd"`
	StdDevNetFlow float64           `json:"stddev_net_flow_twd"`
	BestYear      string            `json:"best_year,omitempty"`
	WorstYear     string            `json:"worst_year,omitempty"`
}

// GetPerformance aggregates activity per calendar year, all in TWD.
func (s *Service) GetPerformance() (*PerformanceReport, error) {
	records, err := s.repo.GetTransactions(ledger.Filter{})
	if err != nil {
		return nil, fmt.Errorf("loading transactions for performance: %w", err)
	}

	byYear := make(map[string]*YearPerformance)
	for _, rec := range records {
		if len(rec.Date) < 4 {
			continue
		}
		year := rec.Date[:4]

		yp, ok := byYear[year]
		if !ok {
			yp = &YearPerformance{Year: year}
			byYear[year] = yp
		}

		rate, err := s.toTWD(rec.Currency)
		if err != nil {
			return nil, err
		}
		amountTWD := rec.Amount * rate

		switch rec.Type {
		case domain.TypeBuy:
			yp.Invested += -amountTWD
			yp.Trades++
		case domain.TypeSell:
			yp.Received += amountTWD
			yp.RealizedPL += rec.RealizedGainLoss * rate
			yp.Trades++
		case domain.TypeDividend:
			yp.Dividends += amountTWD
		}
		yp.NetCashFlow += rec.NetAmount * rate
	}

	report := &PerformanceReport{}
	for _, yp := range byYear {
		report.Years = append(report.Years, *yp)
	}
	sort.Slice(report.Years, func(i, j int) bool {
		return report.Years[i].Year < report.Years[j].Year
	})

	if len(report.Years) > 0 {
		flows := make([]float64, len(report.Years))
		best, worst := 0, 0
		for i, yp := range report.Years {
			flows[i] = yp.NetCashFlow
			if yp.NetCashFlow > report.Years[best].NetCashFlow {
				best = i
			}
			if yp.NetCashFlow < report.Years[worst].NetCashFlow {
				worst = i
			}
		}
		report.MeanNetFlow = stat.Mean(flows, nil)
		if len(flows) > 1 {
			report.StdDevNetFlow = stat.StdDev(flows, nil)
		}
		report.BestYear = report.Years[best].Year
		report.WorstYear = report.Years[worst].Year
	}

	return report, nil
}
