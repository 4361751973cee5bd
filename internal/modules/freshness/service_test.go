package freshness

import (
	"database/sql"
	"testing"
	"time"

	"github.com/mkwei/folio/internal/database"
	"github.com/mkwei/folio/internal/domain"
	"github.com/mkwei/folio/internal/modules/ledger"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

func TestCheckClassifiesByAge(t *testing.T) {
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	defer db.Close()
	_, err = db.Exec(database.LedgerSchema)
	require.NoError(t, err)

	repo := ledger.NewRepository(db, zerolog.Nop())
	require.NoError(t, repo.UpsertAccount(&domain.AccountInfo{
		AccountID: "A1", Institution: "X", Broker: domain.BrokerSchwab, Currency: domain.USD,
	}))

	now := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)
	seed := []struct {
		broker domain.Broker
		date   string
	}{
		{domain.BrokerSchwab, "2025-06-01"}, // 14 days old
		{domain.BrokerTDA, "2025-04-01"},    // 75 days old
		{domain.BrokerCathay, "2024-12-01"}, // half a year old
	}
	for _, s := range seed {
		tx := domain.Transaction{
			Date: s.date, Type: domain.TypeBuy, Amount: -100,
			Currency: s.broker.Currency(), Broker: s.broker,
		}
		require.NoError(t, repo.InsertTransaction("A1", &tx, "seed"))
	}

	svc := NewService(repo, zerolog.Nop())
	svc.now = func() time.Time { return now }

	report, err := svc.Check()
	require.NoError(t, err)
	require.Len(t, report.Brokers, 3)

	byBroker := map[string]BrokerFreshness{}
	for _, bf := range report.Brokers {
		byBroker[bf.Broker] = bf
	}

	assert.Equal(t, StatusCurrent, byBroker["SCHWAB"].Status)
	assert.Equal(t, 14, byBroker["SCHWAB"].DaysOld)
	assert.Equal(t, StatusAging, byBroker["TDA"].Status)
	assert.Equal(t, StatusStale, byBroker["CATHAY"].Status)
	assert.Equal(t, 1, report.StaleCount)
	assert.NotEmpty(t, report.GeneratedAt)
}

func TestCheckEmptyLedger(t *testing.T) {
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	defer db.Close()
	_, err = db.Exec(database.LedgerSchema)
	require.NoError(t, err)

	svc := NewService(ledger.NewRepository(db, zerolog.Nop()), zerolog.Nop())

	report, err := svc.Check()
	require.NoError(t, err)
	assert.Empty(t, report.Brokers)
	assert.Equal(t, 0, report.StaleCount)
}
