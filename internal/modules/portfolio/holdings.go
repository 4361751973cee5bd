package portfolio

import (
	"fmt"
	"sort"

	"github.com/mkwei/folio/internal/modules/ledger"
)

// Holding is one symbol still held, valued at average cost.
type Holding struct {
	Symbol    string  `json:"symbol"`
	LocalName string  `json:"local_name,omitempty"`
	Currency  string  `json:"currency"`
	Quantity  float64 `json:"quantity"`
	AvgCost   float64 `json:"avg_cost"`
	CostBasis float64 `json:"cost_basis"`
}

// Valuation is a holding marked to its current price. When no quote is
// available the average cost stands in, making the unrealized figure zero
// rather than absent.
type Valuation struct {
	Holding
	Price          float64 `json:"price"`
	PriceSource    string  `json:"price_source"` // "quote" or "avg_cost"
	MarketValue    float64 `json:"market_value"`
	UnrealizedPL   float64 `json:"unrealized_pl"`
	UnrealizedPLPc float64 `json:"unrealized_pl_pct"`
}

// UnrealizedReport is all valuations plus the TWD total.
type UnrealizedReport struct {
	Positions  []Valuation `json:"positions"`
	TotalPLTWD float64     `json:"total_unrealized_pl_twd"`
}

// GetHoldings derives current positions from the ledger: per symbol, shares
// bought plus split adjustments minus shares sold. Positions at or below
// zero shares are dropped.
func (s *Service) GetHoldings() ([]Holding, error) {
	records, err := s.repo.GetTransactions(ledger.Filter{})
	if err != nil {
		return nil, fmt.Errorf("loading transactions for holdings: %w", err)
	}

	flows := collectFlows(records)

	var holdings []Holding
	for symbol, f := range flows {
		qty := f.boughtQty + f.splitQty - f.soldQty
		if qty < epsilon {
			continue
		}

		h := Holding{
			Symbol:    symbol,
			LocalName: f.localName,
			Currency:  string(f.currency),
			Quantity:  qty,
		}

		// Cost basis of the remaining shares: invested cost minus the
		// proportional cost already realized by sells. Splits change the
		// share count but never the cost.
		h.CostBasis = f.invested
		if f.boughtQty > epsilon && f.soldQty > epsilon {
			soldFraction := f.soldQty / f.boughtQty
			if soldFraction > 1 {
				soldFraction = 1
			}
			h.CostBasis = f.invested * (1 - soldFraction)
		}
		h.AvgCost = h.CostBasis / qty
		holdings = append(holdings, h)
	}

	sort.Slice(holdings, func(i, j int) bool {
		return holdings[i].Symbol < holdings[j].Symbol
	})
	return holdings, nil
}

// GetUnrealized values every holding at its quoted last close. Quote
// failures degrade to average cost per position, never fail the report.
func (s *Service) GetUnrealized() (*UnrealizedReport, error) {
	holdings, err := s.GetHoldings()
	if err != nil {
		return nil, err
	}

	report := &UnrealizedReport{}
	for _, h := range holdings {
		v := Valuation{Holding: h, Price: h.AvgCost, PriceSource: "avg_cost"}

		price, err := s.quotes.LastClose(quoteSymbol(h.Symbol, domainCurrency(h.Currency)))
		if err != nil {
			s.log.Warn().Err(err).Str("symbol", h.Symbol).
				Msg("No quote available, valuing at average cost")
		} else if price > 0 {
			v.Price = price
			v.PriceSource = "quote"
		}

		v.MarketValue = v.Price * h.Quantity
		v.UnrealizedPL = v.MarketValue - h.CostBasis
		if h.CostBasis > epsilon {
			v.UnrealizedPLPc = v.UnrealizedPL / h.CostBasis * 100
		}

		rate, err := s.toTWD(domainCurrency(h.Currency))
		if err != nil {
			return nil, err
		}
		report.TotalPLTWD += v.UnrealizedPL * rate
		report.Positions = append(report.Positions, v)
	}
	return report, nil
}
