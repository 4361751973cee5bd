package ingest

import (
	"testing"

	"github.com/mkwei/folio/internal/domain"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tdaFixture = `TD Ameritrade Clearing, Inc.
Account Number: 123-456789

Account Activity
12/08/22 12/08/22 Cash Div/Int - Income MSFT ORDINARY DIVIDEND $12.34
12/09/22 12/13/22 Cash Buy - Securities Purchased AAPL 10 @ 150.2500 ($1,502.50)
12/15/22 12/19/22 Cash Sell - Securities Sold AAPL 10 @ 155.0000 $1,550.00
12/20/22 12/20/22 Cash Journal - Other INTRA-ACCOUNT TRANSFER $300.00
12/28/22 12/28/22 Cash W-8 Withholding MSFT ($1.85)
This line is not a transaction row
`

func TestTDAParse(t *testing.T) {
	p := NewTDAParser(newTestStandardizer(), zerolog.Nop())

	st, err := p.Parse(tdaFixture, "TDA_Statement_2022-12.pdf")
	require.NoError(t, err)

	assert.Equal(t, "TDA-123-456789", st.Account.AccountID)
	assert.Equal(t, domain.BrokerTDA, st.Account.Broker)
	require.Len(t, st.Transactions, 5)

	div := st.Transactions[0]
	assert.Equal(t, "2022-12-08", div.Date)
	assert.Equal(t, "2022-12-08", div.SettleDate)
	assert.Equal(t, domain.TypeDividend, div.Type)
	assert.Equal(t, "MSFT", div.Symbol)
	assert.Equal(t, 12.34, div.Amount)
	assert.Equal(t, domain.USD, div.Currency)

	buy := st.Transactions[1]
	assert.Equal(t, "2022-12-09", buy.Date)
	assert.Equal(t, "2022-12-13", buy.SettleDate, "settlement lags the trade date")
	assert.Equal(t, domain.TypeBuy, buy.Type)
	assert.Equal(t, "AAPL", buy.Symbol)
	assert.Equal(t, 10.0, buy.Quantity)
	assert.Equal(t, 150.25, buy.Price)
	assert.Equal(t, -1502.50, buy.Amount)

	sell := st.Transactions[2]
	assert.Equal(t, domain.TypeSell, sell.Type)
	assert.Equal(t, -10.0, sell.Quantity, "sold shares are negative")
	assert.Equal(t, 1550.00, sell.Amount)

	journal := st.Transactions[3]
	assert.Equal(t, domain.TypeJournal, journal.Type)
	assert.Equal(t, 300.00, journal.Amount)

	tax := st.Transactions[4]
	assert.Equal(t, domain.TypeTax, tax.Type)
	assert.Equal(t, 0.0, tax.Amount)
	assert.Equal(t, 1.85, tax.Tax)
	assert.Equal(t, -1.85, tax.NetAmount)
}

func TestTDAAccountFallbackIsDeterministic(t *testing.T) {
	p := NewTDAParser(newTestStandardizer(), zerolog.Nop())

	var a, b domain.AccountInfo
	p.parseAccountInfo("no account line", "TDA_2022.pdf", &a)
	p.parseAccountInfo("no account line", "TDA_2022.pdf", &b)

	assert.Equal(t, a.AccountID, b.AccountID)
	assert.Regexp(t, `^TDA-[0-9A-F]{8}$`, a.AccountID)
}

func TestExtractTDAAmount(t *testing.T) {
	tests := []struct {
		name string
		rest string
		want float64
	}{
		{"plain dollar amount", "Div/Int - Income MSFT $12.34", 12.34},
		{"parenthesized is negative", "Buy - Securities Purchased ($1,502.50)", -1502.50},
		{"last dollar figure wins", "Sell AAPL 10 @ $155.00 $1,550.00", 1550.00},
		{"no dollar amount", "Journal - Other memo", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, extractTDAAmount(tt.rest))
		})
	}
}
