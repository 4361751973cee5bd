package portfolio

import (
	"fmt"
	"sort"

	"github.com/mkwei/folio/internal/domain"
	"github.com/mkwei/folio/internal/modules/ledger"
)

// Position status after matching sells against buys.
const (
	StatusClosed  = "CLOSED"  // every bought share has been sold
	StatusPartial = "PARTIAL" // shares remain in the position
)

// RealizedEntry is one symbol's matched buy/sell aggregate.
//
// The realized figure uses proportional cost attribution: selling half the
// bought shares realizes half the invested cost, regardless of purchase
// order. Statements carry no lot identifiers, so lot methods (FIFO/LIFO)
// cannot be applied.
type RealizedEntry struct {
	Symbol       string  `json:"symbol"`
	LocalName    string  `json:"local_name,omitempty"`
	Currency     string  `json:"currency"`
	BoughtQty    float64 `json:"bought_quantity"`
	SoldQty      float64 `json:"sold_quantity"`
	RemainingQty float64 `json:"remaining_quantity"`
	Invested     float64 `json:"invested"`
	Received     float64 `json:"received"`
	CostOfSold   float64 `json:"cost_of_sold"`
	RealizedPL   float64 `json:"realized_pl"`
	Status       string  `json:"status"`
}

// RealizedReport is the per-symbol breakdown plus portfolio totals in TWD.
type RealizedReport struct {
	Entries      []RealizedEntry `json:"entries"`
	TotalPLTWD   float64         `json:"total_realized_pl_twd"`
	ClosedCount  int             `json:"closed_count"`
	PartialCount int             `json:"partial_count"`
}

// symbolFlows accumulates one symbol's trade legs.
type symbolFlows struct {
	localName string
	currency  domain.Currency
	boughtQty float64
	soldQty   float64
	invested  float64
	received  float64
	splitQty  float64
}

// GetRealized computes realized profit/loss for every symbol with at least
// one sell.
func (s *Service) GetRealized() (*RealizedReport, error) {
	records, err := s.repo.GetTransactions(ledger.Filter{})
	if err != nil {
		return nil, fmt.Errorf("loading transactions for realized report: %w", err)
	}

	flows := collectFlows(records)

	report := &RealizedReport{}
	for symbol, f := range flows {
		if f.soldQty < epsilon {
			continue
		}

		entry := RealizedEntry{
			Symbol:    symbol,
			LocalName: f.localName,
			Currency:  string(f.currency),
			BoughtQty: f.boughtQty,
			SoldQty:   f.soldQty,
			Invested:  f.invested,
			Received:  f.received,
		}

		if f.boughtQty > epsilon {
			soldFraction := f.soldQty / f.boughtQty
			if soldFraction > 1 {
				soldFraction = 1
			}
			entry.CostOfSold = f.invested * soldFraction
		}
		entry.RealizedPL = entry.Received - entry.CostOfSold
		entry.RemainingQty = f.boughtQty + f.splitQty - f.soldQty
		if entry.RemainingQty < epsilon {
			entry.RemainingQty = 0
			entry.Status = StatusClosed
			report.ClosedCount++
		} else {
			entry.Status = StatusPartial
			report.PartialCount++
		}

		rate, err := s.toTWD(f.currency)
		if err != nil {
			return nil, err
		}
		report.TotalPLTWD += entry.RealizedPL * rate
		report.Entries = append(report.Entries, entry)
	}

	sort.Slice(report.Entries, func(i, j int) bool {
		return report.Entries[i].Symbol < report.Entries[j].Symbol
	})
	return report, nil
}

// collectFlows aggregates trade legs per symbol. Split quantity adjustments
// change the share count without touching cost.
func collectFlows(records []ledger.Record) map[string]*symbolFlows {
	flows := make(map[string]*symbolFlows)
	for _, rec := range records {
		if rec.Symbol == "" {
			continue
		}

		f, ok := flows[rec.Symbol]
		if !ok {
			f = &symbolFlows{localName: rec.LocalName, currency: rec.Currency}
			flows[rec.Symbol] = f
		}
		if f.localName == "" && rec.LocalName != "" {
			f.localName = rec.LocalName
		}

		switch rec.Type {
		case domain.TypeBuy:
			f.boughtQty += abs(rec.Quantity)
			f.invested += abs(rec.Amount)
		case domain.TypeSell:
			f.soldQty += abs(rec.Quantity)
			f.received += rec.Amount
		case domain.TypeSplit:
			f.splitQty += rec.Quantity
		}
	}
	return flows
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
