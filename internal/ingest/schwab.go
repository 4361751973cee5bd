package ingest

import (
	"fmt"
	"hash/fnv"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/mkwei/folio/internal/domain"
	"github.com/rs/zerolog"
)

// SchwabParser parses modern (post-merger) Charles Schwab statement text.
// A statement carries either the detailed trade layout (per-security buys and
// sells with quantity, price, fee and realized gain/loss columns) or the
// simple cash-flow layout (deposits, withdrawals, interest, dividends); the
// layout is detected from the Transaction Details header.
type SchwabParser struct {
	std *Standardizer
	log zerolog.Logger
	now func() time.Time // injectable for year-rollback tests
}

// NewSchwabParser creates a Schwab statement parser.
func NewSchwabParser(std *Standardizer, log zerolog.Logger) *SchwabParser {
	return &SchwabParser{
		std: std,
		log: log.With().Str("parser", "schwab").Logger(),
		now: time.Now,
	}
}

var (
	schwabAccountPattern  = regexp.MustCompile(`Account Number\s+Statement Period\s*([A-Z\s]+?)\s+(\d{4}-\d{4})`)
	schwabAccountFallback = regexp.MustCompile(`(\d{4}-\d{4})\s+[A-Za-z]+\s+\d+[-–]\d+,\s+\d{4}`)
	schwabPeriodPattern   = regexp.MustCompile(`Statement Period\s*([A-Za-z]+)\s+(\d+)[-–](\d+),\s*(\d{4})`)
	fileDatePattern       = regexp.MustCompile(`(\d{4}-\d{2}-\d{2})`)
	fileYearPattern       = regexp.MustCompile(`(\d{4})`)

	summarySection = regexp.MustCompile(`(?s)Account Summary(.*?)(?:Transaction Details|Manage Your Account|$)`)
	detailsSection = regexp.MustCompile(`(?s)Transaction Details(.*?)(?:Total Transactions|$)`)

	endingValuePattern    = regexp.MustCompile(`Ending Account Value.*?\$\s*([\d,]+\.?\d*)`)
	beginningValuePattern = regexp.MustCompile(`Beginning Account Value.*?\$\s*([\d,]+\.?\d*)`)
	depositsPattern       = regexp.MustCompile(`Deposits\s*([\d,]+\.?\d*)`)
	withdrawalsPattern    = regexp.MustCompile(`Withdrawals\s*\(([\d,]+\.?\d*)\)`)

	dateLinePattern = regexp.MustCompile(`^(\d{1,2}/\d{1,2})\s+(.+)`)
	symbolPattern   = regexp.MustCompile(`\b([A-Z]{2,5})\b`)
	splitRatioRe    = regexp.MustCompile(`(\d+)\s*for\s*(\d+)`)
)

// nonSymbolWords are uppercase tokens that match the ticker pattern but never
// name a security.
var nonSymbolWords = map[string]bool{
	"CORP": true, "INC": true, "LLC": true, "CLASS": true, "FUND": true,
	"SCHWAB": true, "BANK": true, "TFRD": true, "AMEX": true, "COM": true,
	"ETF": true, "ADR": true, "PLC": true, "CO": true, "LT": true, "ST": true,
	"NRA": true, "TDA": true, "CUSIP": true, "FROM": true, "TO": true,
	"THE": true, "AND": true, "OF": true,
}

// headerDenylist marks column-title and banner lines inside the transaction
// section that must never be read as data.
var headerDenylist = []string{
	"Date", "Category", "Symbol", "Total Transactions", "Industry Fee",
	"CUSIP", "Quantity", "Page ",
}

// multiLineTriggers are category phrases whose quantity/price continuation
// arrives on the following line(s).
var multiLineTriggers = []string{
	"Account Transfer", "Journaled Shares", "Security Transfer",
}

// Parse extracts account info, balances and transactions from extracted
// Schwab statement text. fileName is used only for fallback account and date
// derivation.
func (p *SchwabParser) Parse(text, fileName string) (*domain.Statement, error) {
	st := &domain.Statement{
		Account: domain.AccountInfo{
			Institution: domain.BrokerSchwab.DisplayName(),
			Broker:      domain.BrokerSchwab,
			AccountType: "Schwab One International",
			Currency:    domain.USD,
		},
	}

	p.parseAccountInfo(text, fileName, &st.Account)
	st.Account.StatementDate = p.StatementDate(text, fileName)
	p.parseBalances(text, &st.Balances)

	year := p.statementYear(text, fileName)

	m := detailsSection.FindStringSubmatch(text)
	if m == nil {
		p.log.Debug().Str("file", fileName).Msg("No Transaction Details section")
		return st, nil
	}
	detailsText := m[1]

	// Layout detection: the detailed trade format carries Symbol/CUSIP
	// column headers, the simple cash-flow format does not.
	if strings.Contains(detailsText, "Symbol/") && strings.Contains(detailsText, "CUSIP") {
		st.Transactions = p.parseDetailed(detailsText, year)
	} else {
		st.Transactions = p.parseSimple(detailsText, year)
	}
	return st, nil
}

// parseAccountInfo extracts the account id and holder. When the structured
// patterns fail the fallback is a stable pseudo-identifier hashed from the
// file name, never a synthesized real-looking account number.
func (p *SchwabParser) parseAccountInfo(text, fileName string, acct *domain.AccountInfo) {
	if m := schwabAccountPattern.FindStringSubmatch(text); m != nil {
		acct.AccountHolder = strings.TrimSpace(m[1])
		acct.AccountID = "SCHWAB-" + m[2]
		return
	}
	if m := schwabAccountFallback.FindStringSubmatch(text); m != nil {
		acct.AccountID = "SCHWAB-" + m[1]
		return
	}

	h := fnv.New32a()
	h.Write([]byte(fileName))
	acct.AccountID = fmt.Sprintf("SCHWAB-%08X", h.Sum32())
	p.log.Warn().Str("file", fileName).Str("account_id", acct.AccountID).
		Msg("Account number not found, using file-derived pseudo identifier")
}

func (p *SchwabParser) parseBalances(text string, b *domain.Balances) {
	m := summarySection.FindStringSubmatch(text)
	if m == nil {
		return
	}
	summary := m[1]

	if v := matchAmount(endingValuePattern, summary); v != 0 {
		b.TotalAccountValue = v
	}
	if v := matchAmount(beginningValuePattern, summary); v != 0 {
		b.BeginningValue = v
	}
	if v := matchAmount(depositsPattern, summary); v != 0 {
		b.Deposits = v
	}
	if v := matchAmount(withdrawalsPattern, summary); v != 0 {
		b.Withdrawals = -v
	}
}

// statementYear resolves the year transactions belong to: statement period
// first, then the file name, then the current year.
func (p *SchwabParser) statementYear(text, fileName string) int {
	if m := schwabPeriodPattern.FindStringSubmatch(text); m != nil {
		year, _ := strconv.Atoi(m[4])
		return year
	}
	if m := fileYearPattern.FindStringSubmatch(fileName); m != nil {
		if y, err := strconv.Atoi(m[1]); err == nil {
			return y
		}
	}
	return p.now().Year()
}

// StatementDate extracts the period end date ("May 1-31, 2025" → 2025-05-31),
// falling back to an ISO date embedded in the file name.
func (p *SchwabParser) StatementDate(text, fileName string) string {
	if m := schwabPeriodPattern.FindStringSubmatch(text); m != nil {
		t, err := time.Parse("January 2 2006", fmt.Sprintf("%s %s %s", m[1], m[3], m[4]))
		if err == nil {
			return t.Format("2006-01-02")
		}
	}
	if m := fileDatePattern.FindStringSubmatch(fileName); m != nil {
		return m[1]
	}
	return ""
}

// parseSimple scans the cash-flow layout: one transaction per dated line,
// continuation lines inherit the last seen date.
func (p *SchwabParser) parseSimple(text string, year int) []domain.Transaction {
	var txs []domain.Transaction
	cur := newLineCursor(text)
	today := p.now()

	for !cur.done() {
		line := strings.TrimSpace(cur.current())
		if line == "" || isHeaderLine(line) {
			cur.advance(1)
			continue
		}

		if m := dateLinePattern.FindStringSubmatch(line); m != nil {
			if d, ok := InferYearDate(m[1], year, today); ok {
				cur.currentDate = d
			}
			if tx := p.parseSimpleLine(strings.TrimSpace(m[2]), cur.currentDate); tx != nil {
				txs = append(txs, *tx)
			}
		} else if cur.currentDate != "" && containsAny(line, "Deposit", "Interest", "Withdrawal", "Dividend") {
			// Continuation line without a fresh date.
			if tx := p.parseSimpleLine(line, cur.currentDate); tx != nil {
				txs = append(txs, *tx)
			}
		}
		cur.advance(1)
	}
	return txs
}

// parseSimpleLine builds one cash-event record from a line with its date
// already stripped. Lines with no extractable amount are dropped.
func (p *SchwabParser) parseSimpleLine(line, date string) *domain.Transaction {
	if date == "" {
		return nil
	}
	tx := &domain.Transaction{
		Date:        date,
		Type:        classifyCashEvent(line),
		Currency:    domain.USD,
		Broker:      domain.BrokerSchwab,
		Description: line,
	}

	amount := extractTrailingAmount(line)
	if amount == 0 {
		return nil
	}
	tx.Amount = amount
	p.std.Standardize(tx)
	return tx
}

// parseDetailed scans the trade layout. Dated lines are classified and
// tokenized; multi-line transfer transactions are stitched together by
// look-ahead before tokenizing.
func (p *SchwabParser) parseDetailed(text string, year int) []domain.Transaction {
	var txs []domain.Transaction
	cur := newLineCursor(text)
	today := p.now()

	for !cur.done() {
		line := strings.TrimSpace(cur.current())
		if line == "" || isHeaderLine(line) || isBannerLine(line) {
			cur.advance(1)
			continue
		}

		m := dateLinePattern.FindStringSubmatch(line)
		if m == nil {
			// Continuation without a date: only trade-like lines count.
			if cur.currentDate != "" && containsAny(line, "Sale", "Purchase", "Buy", "Withdrawal", "Deposit", "Interest", "Dividend") {
				if tx := p.parseDetailedLine(line, cur.currentDate); tx != nil {
					txs = append(txs, *tx)
				}
			}
			cur.advance(1)
			continue
		}

		if d, ok := InferYearDate(m[1], year, today); ok {
			cur.currentDate = d
		}
		rest := strings.TrimSpace(m[2])
		consumed := 1

		// Multi-line transactions: the trigger line names the category and
		// the actual quantity/price arrives on the next line or two.
		if containsAny(rest, multiLineTriggers...) {
			joined := rest
			for k := 1; k <= 2; k++ {
				next := strings.TrimSpace(cur.peek(k))
				if next == "" || dateLinePattern.MatchString(next) {
					break
				}
				joined += " " + next
				consumed++
				if _, ok := TokenizeNumeric(joined); ok {
					break
				}
			}
			rest = joined
		}

		if tx := p.parseDetailedLine(rest, cur.currentDate); tx != nil {
			txs = append(txs, *tx)
		}
		cur.advance(consumed)
	}
	return txs
}

// parseDetailedLine builds one record from a detailed-layout line fragment
// (date stripped). Returns nil when the line carries nothing meaningful.
func (p *SchwabParser) parseDetailedLine(line, date string) *domain.Transaction {
	tx := &domain.Transaction{
		Date:        date,
		Type:        classifyDetailed(line),
		Currency:    domain.USD,
		Broker:      domain.BrokerSchwab,
		Description: line,
	}

	switch tx.Type {
	case domain.TypeSplit:
		p.parseSplit(line, tx)
		return tx

	case domain.TypeBuy, domain.TypeSell:
		tx.Symbol = extractSymbol(line)
		fields, ok := TokenizeNumeric(line)
		if !ok {
			p.log.Debug().Str("line", line).Msg("Trade line with no numeric fields, skipped")
			return nil
		}
		tx.Quantity = fields.Quantity
		tx.Price = fields.Price
		tx.Fee = fields.Fee
		tx.Amount = fields.Amount
		tx.RealizedGainLoss = fields.RealizedGainLoss

		// Quantity sign follows the trade direction, applied after parsing.
		if tx.Type == domain.TypeSell {
			tx.Quantity = -math.Abs(tx.Quantity)
		} else {
			tx.Quantity = math.Abs(tx.Quantity)
		}
		p.std.Standardize(tx)
		return tx

	default:
		amount := extractTrailingAmount(line)
		tx.Amount = amount
		p.std.Standardize(tx)
		if tx.Amount == 0 && tx.Tax == 0 && tx.Symbol == "" {
			return nil
		}
		return tx
	}
}

// parseSplit records a share-count adjustment: quantity as printed (negative
// for shares removed), no monetary fields, ratio kept as a tag when present.
func (p *SchwabParser) parseSplit(line string, tx *domain.Transaction) {
	tx.Symbol = extractSymbol(line)
	if m := splitRatioRe.FindStringSubmatch(line); m != nil {
		tx.SplitRatio = m[1] + ":" + m[2]
		// The ratio digits are not the share adjustment.
		line = strings.Replace(line, m[0], "", 1)
	}
	for _, word := range strings.Fields(line) {
		trimmed := strings.TrimSuffix(strings.TrimPrefix(word, "("), ")")
		if v, ok := parseNumber(trimmed); ok {
			if strings.HasPrefix(word, "(") {
				v = -v
			}
			tx.Quantity = v
			break
		}
	}
	p.std.Standardize(tx)
}

// classifyDetailed maps keyword matches across category and action text to a
// transaction type. Order matters: the more specific phrases are tested
// before their substrings ("Dividend Reinvestment" before "Dividend").
func classifyDetailed(line string) domain.TransactionType {
	switch {
	case strings.Contains(line, "Split"):
		return domain.TypeSplit
	case strings.Contains(line, "NRA Tax"):
		return domain.TypeTax
	case strings.Contains(line, "Reinvest"):
		return domain.TypeBuy
	case containsAny(line, "Sale", "Sold", "Redemption"):
		return domain.TypeSell
	case containsAny(line, "Purchase", "Buy", "Bought", "Subscription"):
		return domain.TypeBuy
	case containsAny(line, multiLineTriggers...):
		// Inbound share transfers carry a quantity and price; they enter the
		// book as buys.
		return domain.TypeBuy
	case strings.Contains(line, "Withdrawal"):
		return domain.TypeWithdrawal
	case strings.Contains(line, "Deposit"):
		return domain.TypeDeposit
	case strings.Contains(line, "Credit Interest"):
		return domain.TypeInterest
	case strings.Contains(line, "Dividend"):
		return domain.TypeDividend
	case strings.Contains(line, "Journal"):
		return domain.TypeJournal
	default:
		return domain.TypeOther
	}
}

// classifyCashEvent maps simple-layout keywords to a type.
func classifyCashEvent(line string) domain.TransactionType {
	switch {
	case strings.Contains(line, "Withdrawal"):
		return domain.TypeWithdrawal
	case strings.Contains(line, "Deposit"):
		return domain.TypeDeposit
	case strings.Contains(line, "NRA Tax"):
		return domain.TypeTax
	case strings.Contains(line, "Credit Interest"):
		return domain.TypeInterest
	case strings.Contains(line, "Dividend"):
		return domain.TypeDividend
	default:
		return domain.TypeOther
	}
}

// extractSymbol finds the first ticker-shaped token that is not a corporate
// stopword.
func extractSymbol(line string) string {
	for _, m := range symbolPattern.FindAllStringSubmatch(line, -1) {
		if !nonSymbolWords[m[1]] {
			return m[1]
		}
	}
	return ""
}

// isHeaderLine filters column-title and banner lines by keyword.
func isHeaderLine(line string) bool {
	return containsAny(line, headerDenylist...)
}

// isBannerLine is the structural check: a short line of letters and
// punctuation with no digits (account-holder names, page markers) is never
// transaction data.
func isBannerLine(line string) bool {
	if strings.ContainsAny(line, "0123456789") {
		return false
	}
	return len(strings.Fields(line)) <= 6
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func matchAmount(re *regexp.Regexp, text string) float64 {
	if m := re.FindStringSubmatch(text); m != nil {
		if v, ok := parseNumber(m[1]); ok {
			return v
		}
	}
	return 0
}
