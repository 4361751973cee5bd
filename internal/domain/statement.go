// Package domain defines the shared entities produced by the statement
// normalization pipeline and consumed by the persistence and analytics layers.
// The domain layer is pure: no database, HTTP, or logging dependencies.
package domain

// Broker identifies one supported brokerage statement profile.
type Broker string

const (
	// BrokerTDA - legacy TD Ameritrade statements before the Schwab merger.
	BrokerTDA Broker = "TDA"
	// BrokerSchwab - modern Charles Schwab statements after the TDA merger.
	BrokerSchwab Broker = "SCHWAB"
	// BrokerCathay - Cathay Securities (國泰證券) CSV exports.
	BrokerCathay Broker = "CATHAY"
	// BrokerUnknown - file matched no known broker profile.
	BrokerUnknown Broker = "UNKNOWN"
)

// DisplayName returns the human-readable institution name for a broker code.
func (b Broker) DisplayName() string {
	switch b {
	case BrokerTDA:
		return "TD Ameritrade"
	case BrokerSchwab:
		return "Charles Schwab"
	case BrokerCathay:
		return "國泰證券"
	default:
		return string(b)
	}
}

// Currency returns the currency all records from this broker are denominated
// in. Currency is a property of the broker family, never parsed per row.
func (b Broker) Currency() Currency {
	if b == BrokerCathay {
		return TWD
	}
	return USD
}

// Currency is an ISO-4217 style currency code.
type Currency string

const (
	USD Currency = "USD"
	TWD Currency = "TWD"
)

// TransactionType classifies a normalized transaction record.
type TransactionType string

const (
	TypeBuy        TransactionType = "BUY"
	TypeSell       TransactionType = "SELL"
	TypeDeposit    TransactionType = "DEPOSIT"
	TypeWithdrawal TransactionType = "WITHDRAWAL"
	TypeDividend   TransactionType = "DIVIDEND"
	TypeInterest   TransactionType = "INTEREST"
	TypeTax        TransactionType = "TAX"
	TypeJournal    TransactionType = "JOURNAL"
	TypeSplit      TransactionType = "SPLIT"
	TypeOther      TransactionType = "OTHER"
)

// Transaction is the central entity produced by the normalization core.
//
// Sign conventions (enforced by the amount standardizer, never trusted from
// source text):
//   - Amount: negative for BUY/WITHDRAWAL/TAX, positive for all inflow types.
//   - Quantity: positive when acquiring shares, negative when disposing.
//   - Fee, Tax: always non-negative magnitudes.
//   - NetAmount: always Amount − |Fee| − |Tax|, derived, never sourced.
type Transaction struct {
	Date             string          `json:"transaction_date"` // YYYY-MM-DD
	SettleDate       string          `json:"settle_date,omitempty"`
	Symbol           string          `json:"symbol,omitempty"`
	LocalName        string          `json:"local_name,omitempty"` // original broker-local security name
	Type             TransactionType `json:"transaction_type"`
	Quantity         float64         `json:"quantity"`
	Price            float64         `json:"price"`
	Amount           float64         `json:"amount"`
	Fee              float64         `json:"fee"`
	Tax              float64         `json:"tax"`
	NetAmount        float64         `json:"net_amount"`
	RealizedGainLoss float64         `json:"realized_gain_loss,omitempty"`
	SplitRatio       string          `json:"split_ratio,omitempty"` // only on SPLIT records
	Currency         Currency        `json:"currency"`
	Broker           Broker          `json:"broker"`
	OrderID          string          `json:"order_id,omitempty"`
	Description      string          `json:"description"` // original line text, kept for audit
}

// AccountInfo describes the account a statement belongs to. One per file.
type AccountInfo struct {
	AccountID     string `json:"account_id"`
	Institution   string `json:"institution"`
	Broker        Broker `json:"broker"`
	AccountType   string `json:"account_type"`
	AccountHolder string `json:"account_holder"`
	StatementDate string `json:"statement_date,omitempty"` // YYYY-MM-DD
	Currency      Currency
}

// Balances holds the optional summary figures a statement may carry.
type Balances struct {
	CashBalance       float64 `json:"cash_balance,omitempty"`
	TotalInvestments  float64 `json:"total_investments,omitempty"`
	TotalAccountValue float64 `json:"total_account_value,omitempty"`
	BeginningValue    float64 `json:"beginning_account_value,omitempty"`
	Deposits          float64 `json:"deposits,omitempty"`
	Withdrawals       float64 `json:"withdrawals,omitempty"`
}

// Statement is the full normalized output of parsing one statement file.
// Transactions are ordered as encountered, not guaranteed sorted.
type Statement struct {
	Account      AccountInfo
	Transactions []Transaction
	Balances     Balances
}
