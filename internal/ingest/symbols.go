package ingest

import "github.com/mkwei/folio/internal/domain"

// taiwanNames translates Cathay statement security names to exchange codes.
// The table is static by design: symbol mapping must be reproducible with no
// network calls. Unmapped names pass through as-is.
var taiwanNames = map[string]string{
	"台積電":   "2330",
	"聯發科":   "2454",
	"鴻海":    "2317",
	"中鋼":    "2002",
	"富邦台50":  "0050",
	"元大台灣50": "0050",
	"台塑":    "1301",
	"台化":    "1326",
	"中華電":   "2412",
	"台達電":   "2308",
	"國泰金":   "2882",
	"玉山金":   "2884",
	"兆豐金":   "2886",
	"富邦金":   "2881",
	"台泥":    "1101",
	"遠傳":    "4904",
	"中信金":   "2891",
	"永豐金":   "2890",
	"南亞":    "1303",
	"華碩":    "2357",
	"廣達":    "2382",
	"仁寶":    "2324",
	"和碩":    "4938",
	"英業達":   "2356",
	"宏碁":    "2353",
	"緯創":    "3231",
	"光寶科":   "2301",
	"統一":    "1216",
	"味全":    "1201",
	"長榮":    "2603",
	"陽明":    "2609",
	"萬海":    "2615",
}

// SymbolMapper maps broker-local security identifiers to canonical tickers.
// Only the Cathay profile has a real mapping; for all other brokers the
// mapping is identity with no local-name annotation.
type SymbolMapper struct{}

// NewSymbolMapper creates the static symbol mapper.
func NewSymbolMapper() *SymbolMapper {
	return &SymbolMapper{}
}

// Map resolves a broker-local symbol to (canonical ticker, local name).
// localName is empty unless a translation happened, so callers can store the
// original statement label as auxiliary metadata.
func (m *SymbolMapper) Map(localSymbol string, broker domain.Broker) (symbol, localName string) {
	if broker != domain.BrokerCathay {
		return localSymbol, ""
	}
	if code, ok := taiwanNames[localSymbol]; ok {
		return code, localSymbol
	}
	return localSymbol, ""
}
