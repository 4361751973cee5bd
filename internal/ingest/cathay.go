package ingest

import (
	"encoding/csv"
	"fmt"
	"math"
	"strings"

	"github.com/mkwei/folio/internal/domain"
	"github.com/rs/zerolog"
)

// CathayParser parses Cathay Securities (國泰證券) trade-history CSV exports.
// The export is UTF-8 with Chinese column headers and an optional leading
// summary row describing the filter that produced it.
type CathayParser struct {
	std     *Standardizer
	symbols *SymbolMapper
	log     zerolog.Logger
}

// NewCathayParser creates a Cathay CSV parser.
func NewCathayParser(std *Standardizer, symbols *SymbolMapper, log zerolog.Logger) *CathayParser {
	return &CathayParser{
		std:     std,
		symbols: symbols,
		log:     log.With().Str("parser", "cathay").Logger(),
	}
}

// Column headers in the Cathay export. Indices are resolved from the header
// row rather than hardcoded, so column reordering does not break parsing.
const (
	colName     = "股名"
	colDate     = "日期"
	colSide     = "買賣別"
	colQuantity = "成交股數"
	colPrice    = "成交價"
	colCost     = "成本"
	colFee      = "手續費"
	colTax      = "交易稅"
	colNet      = "淨收付金額"
	colOrderID  = "委託書號"
)

// summaryRowMarker starts the filter-description row Cathay prepends to some
// exports. It is not data.
const summaryRowMarker = "根據您篩選的結果"

// Parse reads the CSV export. fileName is recorded as the account source; the
// export carries no account number, so the account identifier is derived from
// the broker profile alone.
func (p *CathayParser) Parse(text, fileName string) (*domain.Statement, error) {
	st := &domain.Statement{
		Account: domain.AccountInfo{
			AccountID:   "CATHAY-TW",
			Institution: domain.BrokerCathay.DisplayName(),
			Broker:      domain.BrokerCathay,
			AccountType: "證券交易帳戶",
			Currency:    domain.TWD,
		},
	}

	text = strings.TrimPrefix(text, "\ufeff")
	r := csv.NewReader(strings.NewReader(text))
	r.FieldsPerRecord = -1

	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading cathay csv: %w", err)
	}

	var cols map[string]int
	for _, row := range rows {
		if len(row) == 0 {
			continue
		}
		if strings.Contains(row[0], summaryRowMarker) {
			continue
		}
		if cols == nil {
			if containsHeader(row) {
				cols = indexColumns(row)
			}
			continue
		}
		tx := p.parseRow(row, cols)
		if tx != nil {
			st.Transactions = append(st.Transactions, *tx)
		}
	}

	if cols == nil {
		return nil, fmt.Errorf("cathay csv %s: header row not found", fileName)
	}
	return st, nil
}

func containsHeader(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) == colName {
			return true
		}
	}
	return false
}

func indexColumns(row []string) map[string]int {
	cols := make(map[string]int, len(row))
	for i, cell := range row {
		cols[strings.TrimSpace(cell)] = i
	}
	return cols
}

// parseRow builds one record from a data row. Rows missing the security name
// or date are skipped with a warning; a bad row never fails the file.
func (p *CathayParser) parseRow(row []string, cols map[string]int) *domain.Transaction {
	get := func(name string) string {
		i, ok := cols[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	name := get(colName)
	date, dateOK := normalizeSlashDate(get(colDate))
	if name == "" || !dateOK || date == "" {
		p.log.Warn().Strs("row", row).Msg("Row missing security name or date, skipped")
		return nil
	}

	symbol, localName := p.symbols.Map(name, domain.BrokerCathay)

	tx := &domain.Transaction{
		Date:      date,
		Symbol:    symbol,
		LocalName: localName,
		Type:      classifyCathay(get(colSide)),
		Currency:  domain.TWD,
		Broker:    domain.BrokerCathay,
		OrderID:   get(colOrderID),
	}

	if v, ok := parseNumber(get(colQuantity)); ok {
		tx.Quantity = v
	}
	if v, ok := parseNumber(get(colPrice)); ok {
		tx.Price = v
	}
	if v, ok := parseNumber(get(colCost)); ok {
		tx.Amount = v
	}
	if v, ok := parseNumber(get(colFee)); ok {
		tx.Fee = v
	}
	if v, ok := parseNumber(get(colTax)); ok {
		tx.Tax = v
	}

	// Sold share counts are stored negative regardless of how the export
	// prints them.
	if tx.Type == domain.TypeSell {
		tx.Quantity = -math.Abs(tx.Quantity)
	}

	p.std.Standardize(tx)
	return tx
}

// classifyCathay maps the 買賣別 column to a type: any cash-purchase marker
// (現買) is a buy, everything else in a trade export is a sell.
func classifyCathay(side string) domain.TransactionType {
	if strings.Contains(side, "現買") || strings.Contains(side, "買") {
		return domain.TypeBuy
	}
	return domain.TypeSell
}
