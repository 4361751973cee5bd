package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkwei/folio/internal/database"
	"github.com/mkwei/folio/internal/domain"
	"github.com/mkwei/folio/internal/ingest"
	"github.com/mkwei/folio/internal/modules/freshness"
	"github.com/mkwei/folio/internal/modules/ledger"
	"github.com/mkwei/folio/internal/modules/portfolio"
	"github.com/mkwei/folio/internal/services"
)

type fixedRates struct{ usdTWD float64 }

func (f fixedRates) Rate(from, to domain.Currency) (float64, error) {
	if from == to {
		return 1, nil
	}
	if from == domain.USD && to == domain.TWD {
		return f.usdTWD, nil
	}
	return 0, fmt.Errorf("rate %s/%s not found", from, to)
}

type fixedQuotes struct{ prices map[string]float64 }

func (f fixedQuotes) LastClose(symbol string) (float64, error) {
	if p, ok := f.prices[symbol]; ok {
		return p, nil
	}
	return 0, fmt.Errorf("no quote for %s", symbol)
}

type readFileExtractor struct{}

func (readFileExtractor) ExtractText(_ context.Context, path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func setupServer(t *testing.T) (*Server, *ledger.Repository, string) {
	t.Helper()

	dataDir := t.TempDir()
	statementsDir := filepath.Join(dataDir, "statements")
	require.NoError(t, os.MkdirAll(statementsDir, 0o755))

	db, err := database.New(database.Config{
		Path:    filepath.Join(dataDir, "test.db"),
		Profile: database.ProfileLedger,
		Name:    "test",
	})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.Migrate())

	log := zerolog.Nop()
	repo := ledger.NewRepository(db.Conn(), log)
	plog := ledger.NewProcessingLog(db.Conn(), log)
	maintenance := ledger.NewMaintenance(db.Conn(), log)
	pipeline := ingest.NewPipelineWithExtractor(readFileExtractor{}, log)
	processor := services.NewProcessor(pipeline, repo, plog, maintenance, statementsDir, log)

	portfolioSvc := portfolio.NewService(repo,
		fixedRates{usdTWD: 31.5},
		fixedQuotes{prices: map[string]float64{"GOOGL": 150}},
		log)
	freshnessSvc := freshness.NewService(repo, log)

	s := New(Config{
		Port:      0,
		Log:       log,
		DB:        db,
		Repo:      repo,
		PLog:      plog,
		Portfolio: portfolioSvc,
		Freshness: freshnessSvc,
		Processor: processor,
		DevMode:   true,
	})
	return s, repo, statementsDir
}

func seedStatement(t *testing.T, repo *ledger.Repository) {
	t.Helper()

	st := &domain.Statement{
		Account: domain.AccountInfo{
			AccountID:     "SCHWAB-00000001",
			Institution:   "Charles Schwab",
			Broker:        domain.BrokerSchwab,
			AccountType:   "Brokerage",
			StatementDate: "2025-05-31",
			Currency:      domain.USD,
		},
		Transactions: []domain.Transaction{
			{
				Date: "2025-05-05", Symbol: "GOOGL", Type: domain.TypeBuy,
				Quantity: 10, Price: 100, Amount: -1000, NetAmount: -1000,
				Currency: domain.USD, Broker: domain.BrokerSchwab,
				Description: "Bought GOOGL",
			},
			{
				Date: "2025-05-20", Type: domain.TypeDeposit,
				Amount: 500, NetAmount: 500,
				Currency: domain.USD, Broker: domain.BrokerSchwab,
				Description: "Wire received",
			},
		},
	}
	_, err := repo.SaveStatement(st, "schwab_may.pdf")
	require.NoError(t, err)
}

func doRequest(s *Server, method, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestHandleHealth(t *testing.T) {
	s, _, _ := setupServer(t)

	rec := doRequest(s, http.MethodGet, "/health")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "healthy", decodeBody(t, rec)["status"])
}

func TestHandleTransactionsWithFilters(t *testing.T) {
	s, repo, _ := setupServer(t)
	seedStatement(t, repo)

	rec := doRequest(s, http.MethodGet, "/api/transactions")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, float64(2), body["count"])

	rec = doRequest(s, http.MethodGet, "/api/transactions?symbol=GOOGL")
	body = decodeBody(t, rec)
	assert.Equal(t, float64(1), body["count"])

	rec = doRequest(s, http.MethodGet, "/api/transactions?type=DEPOSIT")
	body = decodeBody(t, rec)
	assert.Equal(t, float64(1), body["count"])

	rec = doRequest(s, http.MethodGet, "/api/transactions?limit=banana")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleTransactionsEmptyLedger(t *testing.T) {
	s, _, _ := setupServer(t)

	rec := doRequest(s, http.MethodGet, "/api/transactions")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, float64(0), body["count"])
	assert.NotNil(t, body["transactions"])
}

func TestHandleDistinctLists(t *testing.T) {
	s, repo, _ := setupServer(t)
	seedStatement(t, repo)

	rec := doRequest(s, http.MethodGet, "/api/brokers")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, []interface{}{"SCHWAB"}, body["brokers"])

	rec = doRequest(s, http.MethodGet, "/api/symbols")
	body = decodeBody(t, rec)
	assert.Equal(t, []interface{}{"GOOGL"}, body["symbols"])
}

func TestHandleAccounts(t *testing.T) {
	s, repo, _ := setupServer(t)
	seedStatement(t, repo)

	rec := doRequest(s, http.MethodGet, "/api/accounts")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	accounts, ok := body["accounts"].([]interface{})
	require.True(t, ok)
	require.Len(t, accounts, 1)
}

func TestHandlePortfolioSummary(t *testing.T) {
	s, repo, _ := setupServer(t)
	seedStatement(t, repo)

	rec := doRequest(s, http.MethodGet, "/api/portfolio/summary")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Contains(t, body, "total_invested_twd")
}

func TestHandleHoldingsAndUnrealized(t *testing.T) {
	s, repo, _ := setupServer(t)
	seedStatement(t, repo)

	rec := doRequest(s, http.MethodGet, "/api/portfolio/holdings")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, float64(1), body["count"])

	rec = doRequest(s, http.MethodGet, "/api/portfolio/unrealized")
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestHandleProcessAndProcessingLog(t *testing.T) {
	s, _, statementsDir := setupServer(t)

	fixture := "根據您篩選的結果,共 1 筆交易\n" +
		"股名,日期,買賣別,成交股數,成交價,成本,手續費,交易稅,淨收付金額,委託書號\n" +
		"台積電,2024/5/7,現買,1000,800,800000,1140,0,-801140,A1234\n"
	require.NoError(t, os.WriteFile(
		filepath.Join(statementsDir, "cathay_trades.csv"), []byte(fixture), 0o644))

	rec := doRequest(s, http.MethodPost, "/api/process")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, float64(1), body["processed"])
	assert.Equal(t, float64(1), body["transactions"])

	rec = doRequest(s, http.MethodGet, "/api/processing-log")
	require.Equal(t, http.StatusOK, rec.Code)
	body = decodeBody(t, rec)
	assert.Equal(t, float64(1), body["count"])
}

func TestHandleFreshness(t *testing.T) {
	s, repo, _ := setupServer(t)
	seedStatement(t, repo)

	rec := doRequest(s, http.MethodGet, "/api/freshness")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Contains(t, body, "brokers")
}

func TestHandleSystemStatus(t *testing.T) {
	s, repo, _ := setupServer(t)
	seedStatement(t, repo)

	rec := doRequest(s, http.MethodGet, "/api/system/status")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "running", body["status"])
	assert.Equal(t, float64(2), body["transaction_count"])
}
