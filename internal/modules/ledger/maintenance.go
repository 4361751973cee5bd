package ledger

import (
	"database/sql"
	"fmt"
	"math"
	"strings"

	"github.com/mkwei/folio/internal/domain"
	"github.com/mkwei/folio/internal/ingest"
	"github.com/rs/zerolog"
)

// Maintenance runs data-repair passes over stored transactions. Both passes
// are safe to re-run: the standardizer is idempotent and recategorization
// only touches rows still carrying the legacy type.
type Maintenance struct {
	db  *sql.DB
	std *ingest.Standardizer
	log zerolog.Logger
}

// NewMaintenance creates the maintenance runner.
func NewMaintenance(db *sql.DB, log zerolog.Logger) *Maintenance {
	return &Maintenance{
		db:  db,
		std: ingest.NewStandardizer(log),
		log: log.With().Str("component", "maintenance").Logger(),
	}
}

// BackfillNetAmounts re-runs amount standardization over every stored
// transaction and rewrites rows whose signs or net amount drifted from the
// canonical convention. Returns the number of rows updated.
func (m *Maintenance) BackfillNetAmounts() (int, error) {
	rows, err := m.db.Query(`
		SELECT id, transaction_type, amount, fee, tax, net_amount
		FROM transactions
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to query transactions for backfill: %w", err)
	}

	type fix struct {
		id                    int64
		amount, fee, tax, net float64
	}
	var fixes []fix

	for rows.Next() {
		var id int64
		var txType string
		var amount, fee, tax, net float64
		if err := rows.Scan(&id, &txType, &amount, &fee, &tax, &net); err != nil {
			rows.Close()
			return 0, fmt.Errorf("failed to scan transaction for backfill: %w", err)
		}

		tx := domain.Transaction{
			Type:   domain.TransactionType(txType),
			Amount: amount,
			Fee:    fee,
			Tax:    tax,
		}
		m.std.Standardize(&tx)

		if !closeEnough(tx.Amount, amount) || !closeEnough(tx.Fee, fee) ||
			!closeEnough(tx.Tax, tax) || !closeEnough(tx.NetAmount, net) {
			fixes = append(fixes, fix{id, tx.Amount, tx.Fee, tx.Tax, tx.NetAmount})
		}
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return 0, fmt.Errorf("error iterating transactions for backfill: %w", err)
	}
	rows.Close()

	for _, f := range fixes {
		_, err := m.db.Exec(`
			UPDATE transactions
			SET amount = ?, fee = ?, tax = ?, net_amount = ?
			WHERE id = ?
		`, f.amount, f.fee, f.tax, f.net, f.id)
		if err != nil {
			return 0, fmt.Errorf("failed to update transaction %d: %w", f.id, err)
		}
	}

	if len(fixes) > 0 {
		m.log.Info().Int("updated", len(fixes)).Msg("Net amount backfill applied")
	}
	return len(fixes), nil
}

// debitCategories map description markers on legacy Schwab DEBIT rows to
// their specific categories. Checked in order; the first match wins.
var debitCategories = []struct {
	marker   string
	category string
}{
	{"AMEX", "AMEX_DEBIT"},
	{"CAPITAL ONE", "C1_DEBIT"},
	{"C1 ", "C1_DEBIT"},
}

// RecategorizeSchwabDebits rewrites legacy Schwab DEBIT rows into specific
// debit categories based on the payee in the description. Rows matching no
// marker become TRANSFER_DEBIT. Returns updates per resulting category.
func (m *Maintenance) RecategorizeSchwabDebits() (map[string]int, error) {
	rows, err := m.db.Query(`
		SELECT id, COALESCE(description, '')
		FROM transactions
		WHERE broker = ? AND transaction_type = 'DEBIT'
	`, string(domain.BrokerSchwab))
	if err != nil {
		return nil, fmt.Errorf("failed to query debit rows: %w", err)
	}

	updates := make(map[int64]string)
	for rows.Next() {
		var id int64
		var description string
		if err := rows.Scan(&id, &description); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan debit row: %w", err)
		}
		updates[id] = categorizeDebit(description)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("error iterating debit rows: %w", err)
	}
	rows.Close()

	counts := make(map[string]int)
	for id, category := range updates {
		_, err := m.db.Exec(
			"UPDATE transactions SET transaction_type = ? WHERE id = ?",
			category, id,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to recategorize transaction %d: %w", id, err)
		}
		counts[category]++
	}

	if len(updates) > 0 {
		m.log.Info().Interface("counts", counts).Msg("Schwab debit recategorization applied")
	}
	return counts, nil
}

func categorizeDebit(description string) string {
	upper := strings.ToUpper(description)
	for _, dc := range debitCategories {
		if strings.Contains(upper, dc.marker) {
			return dc.category
		}
	}
	return "TRANSFER_DEBIT"
}

func closeEnough(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}
