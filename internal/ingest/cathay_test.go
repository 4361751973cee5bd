package ingest

import (
	"testing"

	"github.com/mkwei/folio/internal/domain"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCathayParser() *CathayParser {
	return NewCathayParser(newTestStandardizer(), NewSymbolMapper(), zerolog.Nop())
}

const cathayFixture = `根據您篩選的結果,共 3 筆交易
股名,日期,買賣別,成交股數,成交價,成本,手續費,交易稅,淨收付金額,委託書號
台積電,2024/5/7,現買,1000,800,800000,1140,0,-801140,A1234
台積電,2024/6/3,現賣,100,850,85000,121,255,84624,B5678
,2024/6/4,現買,10,100,1000,20,0,-1020,C9999
`

func TestCathayParse(t *testing.T) {
	p := newTestCathayParser()

	st, err := p.Parse(cathayFixture, "cathay_trades_2024.csv")
	require.NoError(t, err)

	assert.Equal(t, domain.BrokerCathay, st.Account.Broker)
	assert.Equal(t, domain.TWD, st.Account.Currency)
	require.Len(t, st.Transactions, 2, "the row without a security name is skipped")

	buy := st.Transactions[0]
	assert.Equal(t, "2024-05-07", buy.Date)
	assert.Equal(t, "2330", buy.Symbol, "local name is mapped to the exchange code")
	assert.Equal(t, "台積電", buy.LocalName)
	assert.Equal(t, domain.TypeBuy, buy.Type)
	assert.Equal(t, 1000.0, buy.Quantity)
	assert.Equal(t, 800.0, buy.Price)
	assert.Equal(t, -800000.0, buy.Amount)
	assert.Equal(t, 1140.0, buy.Fee)
	assert.Equal(t, -801140.0, buy.NetAmount, "matches the export's net payable column")
	assert.Equal(t, domain.TWD, buy.Currency)
	assert.Equal(t, "A1234", buy.OrderID)

	sell := st.Transactions[1]
	assert.Equal(t, "2024-06-03", sell.Date)
	assert.Equal(t, domain.TypeSell, sell.Type)
	assert.Equal(t, -100.0, sell.Quantity, "sold shares are stored negative")
	assert.Equal(t, 85000.0, sell.Amount)
	assert.Equal(t, 121.0, sell.Fee)
	assert.Equal(t, 255.0, sell.Tax)
	assert.Equal(t, 84624.0, sell.NetAmount)
}

func TestCathayParseReorderedColumns(t *testing.T) {
	// Column indices come from the header row, not fixed positions.
	csv := `日期,股名,買賣別,成交股數,成交價,成本,手續費,交易稅,淨收付金額,委託書號
2024/5/7,鴻海,現買,500,100,50000,71,0,-50071,D1111
`
	p := newTestCathayParser()

	st, err := p.Parse(csv, "trades.csv")
	require.NoError(t, err)
	require.Len(t, st.Transactions, 1)
	assert.Equal(t, "2317", st.Transactions[0].Symbol)
	assert.Equal(t, "2024-05-07", st.Transactions[0].Date)
}

func TestCathayParseNoHeader(t *testing.T) {
	p := newTestCathayParser()

	_, err := p.Parse("just,some,cells\n1,2,3\n", "bad.csv")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "header row not found")
}

func TestClassifyCathay(t *testing.T) {
	assert.Equal(t, domain.TypeBuy, classifyCathay("現買"))
	assert.Equal(t, domain.TypeBuy, classifyCathay("融資買進"))
	assert.Equal(t, domain.TypeSell, classifyCathay("現賣"))
	assert.Equal(t, domain.TypeSell, classifyCathay("融券"))
}
