package ledger

import (
	"testing"

	"github.com/mkwei/folio/internal/domain"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackfillNetAmounts(t *testing.T) {
	db := setupLedgerDB(t)
	repo := NewRepository(db, zerolog.Nop())

	// A record stored before net amounts were derived: wrong sign, no net.
	require.NoError(t, repo.UpsertAccount(&domain.AccountInfo{
		AccountID: "A1", Institution: "X", Broker: domain.BrokerSchwab, Currency: domain.USD,
	}))
	_, err := db.Exec(`
		INSERT INTO transactions (
			account_id, transaction_date, transaction_type, amount, fee, tax,
			net_amount, currency, broker
		) VALUES
			('A1', '2025-01-10', 'BUY', 1000, 5, 0, 0, 'USD', 'SCHWAB'),
			('A1', '2025-01-11', 'SELL', 500, 2, 1, 497, 'USD', 'SCHWAB')
	`)
	require.NoError(t, err)

	m := NewMaintenance(db, zerolog.Nop())
	updated, err := m.BackfillNetAmounts()
	require.NoError(t, err)
	assert.Equal(t, 1, updated, "only the drifted row is rewritten")

	records, err := repo.GetTransactions(Filter{Type: "BUY"})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, -1000.0, records[0].Amount)
	assert.Equal(t, -1005.0, records[0].NetAmount)

	// Second pass finds nothing to fix.
	updated, err = m.BackfillNetAmounts()
	require.NoError(t, err)
	assert.Equal(t, 0, updated)
}

func TestRecategorizeSchwabDebits(t *testing.T) {
	db := setupLedgerDB(t)

	_, err := db.Exec(`
		INSERT INTO transactions (
			account_id, transaction_date, transaction_type, amount, currency,
			broker, description
		) VALUES
			('A1', '2025-01-05', 'DEBIT', -100, 'USD', 'SCHWAB', 'AMEX ePayment'),
			('A1', '2025-01-06', 'DEBIT', -200, 'USD', 'SCHWAB', 'Capital One Payment'),
			('A1', '2025-01-07', 'DEBIT', -300, 'USD', 'SCHWAB', 'Wire to external account'),
			('A1', '2025-01-08', 'DEBIT', -400, 'USD', 'CATHAY', 'AMEX something')
	`)
	require.NoError(t, err)

	m := NewMaintenance(db, zerolog.Nop())
	counts, err := m.RecategorizeSchwabDebits()
	require.NoError(t, err)

	assert.Equal(t, 1, counts["AMEX_DEBIT"])
	assert.Equal(t, 1, counts["C1_DEBIT"])
	assert.Equal(t, 1, counts["TRANSFER_DEBIT"])

	// Only Schwab rows are touched.
	var cathayType string
	require.NoError(t, db.QueryRow(
		"SELECT transaction_type FROM transactions WHERE broker = 'CATHAY'").Scan(&cathayType))
	assert.Equal(t, "DEBIT", cathayType)

	// Re-running finds no remaining DEBIT rows.
	counts, err = m.RecategorizeSchwabDebits()
	require.NoError(t, err)
	assert.Empty(t, counts)
}

func TestEnsureColumns(t *testing.T) {
	db := setupLedgerDB(t)

	// Simulate a database from before the currency column existed.
	_, err := db.Exec(`
		CREATE TABLE transactions_old (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			account_id TEXT NOT NULL,
			transaction_date TEXT NOT NULL,
			transaction_type TEXT NOT NULL,
			quantity REAL, price REAL, amount REAL, fee REAL, tax REAL,
			net_amount REAL, realized_gain_loss REAL,
			symbol TEXT, broker TEXT, order_id TEXT, description TEXT
		);
		DROP TABLE transactions;
		ALTER TABLE transactions_old RENAME TO transactions;
	`)
	require.NoError(t, err)

	require.NoError(t, EnsureColumns(db, zerolog.Nop()))

	cols, err := tableColumns(db, "transactions")
	require.NoError(t, err)
	for _, want := range []string{"currency", "local_name", "settle_date", "split_ratio", "source_file"} {
		assert.True(t, cols[want], "column %s should exist", want)
	}

	// Idempotent.
	require.NoError(t, EnsureColumns(db, zerolog.Nop()))
}
