// Package portfolio computes analytics over the stored transaction ledger:
// cash-flow summaries, realized and unrealized profit/loss, current holdings
// and per-year performance. All cross-currency figures are reported in TWD.
package portfolio

import (
	"fmt"

	"github.com/mkwei/folio/internal/domain"
	"github.com/mkwei/folio/internal/modules/ledger"
	"github.com/rs/zerolog"
)

// epsilon below which a share count is treated as zero.
const epsilon = 1e-6

// RateProvider supplies exchange rates for currency conversion.
type RateProvider interface {
	Rate(from, to domain.Currency) (float64, error)
}

// QuoteProvider supplies last close prices for valuation.
type QuoteProvider interface {
	LastClose(symbol string) (float64, error)
}

// Service computes portfolio analytics from the ledger.
type Service struct {
	repo   *ledger.Repository
	rates  RateProvider
	quotes QuoteProvider
	log    zerolog.Logger
}

// NewService creates the analytics service.
func NewService(repo *ledger.Repository, rates RateProvider, quotes QuoteProvider, log zerolog.Logger) *Service {
	return &Service{
		repo:   repo,
		rates:  rates,
		quotes: quotes,
		log:    log.With().Str("service", "portfolio").Logger(),
	}
}

// BrokerSummary aggregates one broker's activity, converted to TWD.
type BrokerSummary struct {
	Transactions int     `json:"transactions"`
	NetAmountTWD float64 `json:"net_amount_twd"`
}

// Summary is the portfolio-wide cash-flow picture, all figures in TWD.
type Summary struct {
	TotalInvested    float64                  `json:"total_invested_twd"`
	TotalReceived    float64                  `json:"total_received_twd"`
	TotalDividends   float64                  `json:"total_dividends_twd"`
	TotalInterest    float64                  `json:"total_interest_twd"`
	TotalFees        float64                  `json:"total_fees_twd"`
	TotalTaxes       float64                  `json:"total_taxes_twd"`
	NetCashFlow      float64                  `json:"net_cash_flow_twd"`
	TransactionCount int                      `json:"transaction_count"`
	ByBroker         map[string]BrokerSummary `json:"by_broker"`
}

// GetSummary aggregates every stored transaction into a single TWD view.
// Invested and received are magnitudes; the net cash flow keeps its sign.
func (s *Service) GetSummary() (*Summary, error) {
	records, err := s.repo.GetTransactions(ledger.Filter{})
	if err != nil {
		return nil, fmt.Errorf("loading transactions for summary: %w", err)
	}

	summary := &Summary{ByBroker: make(map[string]BrokerSummary)}
	for _, rec := range records {
		rate, err := s.toTWD(rec.Currency)
		if err != nil {
			return nil, err
		}

		amountTWD := rec.Amount * rate
		switch rec.Type {
		case domain.TypeBuy:
			summary.TotalInvested += -amountTWD
		case domain.TypeSell:
			summary.TotalReceived += amountTWD
		case domain.TypeDividend:
			summary.TotalDividends += amountTWD
		case domain.TypeInterest:
			summary.TotalInterest += amountTWD
		}
		summary.TotalFees += rec.Fee * rate
		summary.TotalTaxes += rec.Tax * rate
		summary.NetCashFlow += rec.NetAmount * rate
		summary.TransactionCount++

		bs := summary.ByBroker[string(rec.Broker)]
		bs.Transactions++
		bs.NetAmountTWD += rec.NetAmount * rate
		summary.ByBroker[string(rec.Broker)] = bs
	}

	return summary, nil
}

// toTWD returns the multiplier converting the given currency to TWD.
func (s *Service) toTWD(currency domain.Currency) (float64, error) {
	if currency == domain.TWD || currency == "" {
		return 1, nil
	}
	rate, err := s.rates.Rate(currency, domain.TWD)
	if err != nil {
		return 0, fmt.Errorf("getting %s/TWD rate: %w", currency, err)
	}
	return rate, nil
}

// quoteSymbol maps a ledger symbol to the quote service's notation: Taiwan
// exchange codes get the .TW suffix.
func quoteSymbol(symbol string, currency domain.Currency) string {
	if currency == domain.TWD && isNumeric(symbol) {
		return symbol + ".TW"
	}
	return symbol
}

func domainCurrency(s string) domain.Currency {
	if s == "" {
		return domain.USD
	}
	return domain.Currency(s)
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
