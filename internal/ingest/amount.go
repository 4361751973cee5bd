package ingest

import (
	"math"

	"github.com/mkwei/folio/internal/domain"
	"github.com/rs/zerolog"
)

// outflowTypes force a negative amount: cash leaves the account.
var outflowTypes = map[domain.TransactionType]bool{
	domain.TypeBuy:        true,
	domain.TypeWithdrawal: true,
	domain.TypeTax:        true,
}

// inflowTypes force a positive amount: cash enters the account.
var inflowTypes = map[domain.TransactionType]bool{
	domain.TypeSell:     true,
	domain.TypeDeposit:  true,
	domain.TypeDividend: true,
	domain.TypeInterest: true,
	domain.TypeJournal:  true,
	domain.TypeOther:    true,
}

// Standardizer rewrites transaction amounts to the canonical cash-flow sign
// convention and derives the net amount. It is the last step a record passes
// through before leaving a parser, and it may run a second time during a
// maintenance backfill over previously stored records; the operation is
// idempotent.
type Standardizer struct {
	log zerolog.Logger
}

// NewStandardizer creates an amount standardizer.
func NewStandardizer(log zerolog.Logger) *Standardizer {
	return &Standardizer{log: log.With().Str("component", "standardizer").Logger()}
}

// Standardize enforces the canonical sign of Amount from the transaction type,
// forces Fee and Tax to non-negative magnitudes, and recomputes NetAmount.
// The sign carried by the source text is discarded.
//
// Unrecognized types with a nonzero amount are left untouched and logged;
// partial structured data is preferred over dropping the record.
func (s *Standardizer) Standardize(tx *domain.Transaction) {
	// TAX lines are a fee-like deduction, not a standalone cash movement:
	// the extracted magnitude belongs in Tax, and Amount must be zero.
	if tx.Type == domain.TypeTax && tx.Amount != 0 {
		tx.Tax = math.Abs(tx.Amount)
		tx.Amount = 0
	}

	switch {
	case outflowTypes[tx.Type]:
		tx.Amount = -math.Abs(tx.Amount)
	case inflowTypes[tx.Type]:
		tx.Amount = math.Abs(tx.Amount)
	case tx.Type == domain.TypeSplit:
		// Splits carry no monetary fields.
	case tx.Type != "" && tx.Amount != 0:
		s.log.Warn().
			Str("type", string(tx.Type)).
			Float64("amount", tx.Amount).
			Msg("Unknown transaction type, amount not standardized")
	}

	tx.Fee = math.Abs(tx.Fee)
	tx.Tax = math.Abs(tx.Tax)
	tx.NetAmount = tx.Amount - tx.Fee - tx.Tax
}
