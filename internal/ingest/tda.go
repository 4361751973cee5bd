package ingest

import (
	"fmt"
	"hash/fnv"
	"math"
	"regexp"
	"strings"

	"github.com/mkwei/folio/internal/domain"
	"github.com/rs/zerolog"
)

// TDAParser parses legacy TD Ameritrade statement text. TDA rows carry two
// full short dates (trade date and settle date) plus an account-type column,
// so no year inference is needed.
type TDAParser struct {
	std *Standardizer
	log zerolog.Logger
}

// NewTDAParser creates a TD Ameritrade statement parser.
func NewTDAParser(std *Standardizer, log zerolog.Logger) *TDAParser {
	return &TDAParser{
		std: std,
		log: log.With().Str("parser", "tda").Logger(),
	}
}

var (
	tdaRowPattern     = regexp.MustCompile(`^(\d{2}/\d{2}/\d{2})\s+(\d{2}/\d{2}/\d{2})\s+(Cash|Margin)\s+(.+)`)
	tdaAccountPattern = regexp.MustCompile(`Account\s*(?:Number|#)[:\s]+(\d{3}-\d{6}|\d{9})`)
	tdaDollarPattern  = regexp.MustCompile(`\(?\$\s*([\d,]+\.?\d*)\)?`)
	tdaQtyPriceRe     = regexp.MustCompile(`([A-Z]{1,5})\s+\(?([\d,]+\.?\d*)\)?\s+@?\s*([\d,]+\.\d+)`)
)

// tdaCategories maps the statement's category column phrases onto types.
// Ordered slice: longer phrases are matched before their prefixes.
var tdaCategories = []struct {
	phrase string
	txType domain.TransactionType
}{
	{"Div/Int - Income", domain.TypeDividend},
	{"Buy - Securities Purchased", domain.TypeBuy},
	{"Sell - Securities Sold", domain.TypeSell},
	{"Journal - Other", domain.TypeJournal},
	{"Delivered - Securities", domain.TypeJournal},
	{"Funds Disbursed", domain.TypeWithdrawal},
	{"Funds Received", domain.TypeDeposit},
	{"W-8 Withholding", domain.TypeTax},
}

// Parse extracts account info and transactions from extracted TDA statement
// text. fileName feeds the fallback account identifier.
func (p *TDAParser) Parse(text, fileName string) (*domain.Statement, error) {
	st := &domain.Statement{
		Account: domain.AccountInfo{
			Institution: domain.BrokerTDA.DisplayName(),
			Broker:      domain.BrokerTDA,
			AccountType: "Individual Brokerage",
			Currency:    domain.USD,
		},
	}
	p.parseAccountInfo(text, fileName, &st.Account)

	cur := newLineCursor(text)
	for !cur.done() {
		line := strings.TrimSpace(cur.current())
		cur.advance(1)

		m := tdaRowPattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		tx := p.parseRow(m)
		if tx != nil {
			st.Transactions = append(st.Transactions, *tx)
		}
	}
	return st, nil
}

func (p *TDAParser) parseAccountInfo(text, fileName string, acct *domain.AccountInfo) {
	if m := tdaAccountPattern.FindStringSubmatch(text); m != nil {
		acct.AccountID = "TDA-" + m[1]
		return
	}
	h := fnv.New32a()
	h.Write([]byte(fileName))
	acct.AccountID = fmt.Sprintf("TDA-%08X", h.Sum32())
	p.log.Warn().Str("file", fileName).Str("account_id", acct.AccountID).
		Msg("Account number not found, using file-derived pseudo identifier")
}

// parseRow builds one record from a matched dual-date row. The first date is
// the trade date, the second the settlement date.
func (p *TDAParser) parseRow(m []string) *domain.Transaction {
	date, ok1 := parseShortDate(m[1])
	settle, ok2 := parseShortDate(m[2])
	if !ok1 || !ok2 {
		return nil
	}
	rest := strings.TrimSpace(m[4])

	tx := &domain.Transaction{
		Date:        date,
		SettleDate:  settle,
		Type:        classifyTDA(rest),
		Currency:    domain.USD,
		Broker:      domain.BrokerTDA,
		Description: rest,
	}

	if qm := tdaQtyPriceRe.FindStringSubmatch(rest); qm != nil && (tx.Type == domain.TypeBuy || tx.Type == domain.TypeSell) {
		if !nonSymbolWords[qm[1]] {
			tx.Symbol = qm[1]
		}
		if v, ok := parseNumber(qm[2]); ok {
			tx.Quantity = v
		}
		if v, ok := parseNumber(qm[3]); ok {
			tx.Price = v
		}
		if tx.Type == domain.TypeSell {
			tx.Quantity = -math.Abs(tx.Quantity)
		}
	} else if tx.Symbol == "" && (tx.Type == domain.TypeDividend || tx.Type == domain.TypeTax) {
		tx.Symbol = extractSymbol(rest)
	}

	tx.Amount = extractTDAAmount(rest)
	if tx.Amount == 0 && tx.Quantity == 0 {
		return nil
	}
	p.std.Standardize(tx)
	return tx
}

func classifyTDA(rest string) domain.TransactionType {
	for _, c := range tdaCategories {
		if strings.Contains(rest, c.phrase) {
			return c.txType
		}
	}
	return domain.TypeOther
}

// extractTDAAmount picks the last dollar-prefixed figure on the row; a
// parenthesized figure is negative.
func extractTDAAmount(rest string) float64 {
	ms := tdaDollarPattern.FindAllStringSubmatch(rest, -1)
	if len(ms) == 0 {
		return 0
	}
	last := ms[len(ms)-1]
	v, ok := parseNumber(last[1])
	if !ok {
		return 0
	}
	if strings.HasPrefix(last[0], "(") {
		v = -v
	}
	return v
}
