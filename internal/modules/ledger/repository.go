// Package ledger provides persistence for normalized statement data: accounts,
// transactions, balance snapshots and the processing log. All tables live in
// portfolio.db, the immutable record of what the statements said.
package ledger

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/mkwei/folio/internal/database"
	"github.com/mkwei/folio/internal/domain"
	"github.com/rs/zerolog"
)

// Repository handles account, transaction and balance persistence.
//
// Transaction writes are idempotent: the table carries a content-based unique
// key and inserts use INSERT OR REPLACE, so re-processing the same statement
// file never duplicates records.
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a ledger repository.
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "ledger").Logger(),
	}
}

// Record is a stored transaction: the normalized record plus its row identity.
type Record struct {
	ID         int64  `json:"id"`
	AccountID  string `json:"account_id"`
	SourceFile string `json:"source_file,omitempty"`
	domain.Transaction
}

// Filter narrows transaction queries. Zero values mean "no constraint".
type Filter struct {
	AccountID string
	Symbol    string
	Broker    string
	Type      string
	StartDate string // inclusive, YYYY-MM-DD
	EndDate   string // inclusive, YYYY-MM-DD
	Limit     int
}

// execer is satisfied by both *sql.DB and *sql.Tx, so the write helpers can
// serve the transactional statement save and the standalone methods alike.
type execer interface {
	Exec(query string, args ...interface{}) (sql.Result, error)
}

// SaveStatement persists one parsed statement: the account, its balance
// snapshot if present, and every transaction. The whole statement is written
// in one transaction; a failure on any row leaves the ledger untouched.
// Returns the number of transaction rows written.
func (r *Repository) SaveStatement(st *domain.Statement, sourceFile string) (int, error) {
	written := 0
	err := database.WithTransaction(r.db, func(tx *sql.Tx) error {
		if err := upsertAccount(tx, &st.Account); err != nil {
			return err
		}

		if st.Balances != (domain.Balances{}) && st.Account.StatementDate != "" {
			if err := saveBalances(tx, st.Account.AccountID, st.Account.StatementDate, &st.Balances); err != nil {
				return err
			}
		}

		for i := range st.Transactions {
			if err := insertTransaction(tx, st.Account.AccountID, &st.Transactions[i], sourceFile); err != nil {
				return err
			}
			written++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to save statement %s: %w", sourceFile, err)
	}

	r.log.Info().
		Str("account_id", st.Account.AccountID).
		Str("source_file", sourceFile).
		Int("transactions", written).
		Msg("Statement saved")
	return written, nil
}

// UpsertAccount inserts or refreshes an account row.
func (r *Repository) UpsertAccount(acct *domain.AccountInfo) error {
	return upsertAccount(r.db, acct)
}

func upsertAccount(db execer, acct *domain.AccountInfo) error {
	query := `
		INSERT OR REPLACE INTO accounts (
			account_id, institution, broker, account_type, account_holder,
			statement_date, currency, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, datetime('now'))
	`
	_, err := db.Exec(query,
		acct.AccountID,
		acct.Institution,
		string(acct.Broker),
		acct.AccountType,
		acct.AccountHolder,
		acct.StatementDate,
		string(acct.Currency),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert account %s: %w", acct.AccountID, err)
	}
	return nil
}

// InsertTransaction writes one normalized transaction. The content-based
// unique key plus INSERT OR REPLACE makes the write idempotent.
func (r *Repository) InsertTransaction(accountID string, tx *domain.Transaction, sourceFile string) error {
	return insertTransaction(r.db, accountID, tx, sourceFile)
}

func insertTransaction(db execer, accountID string, tx *domain.Transaction, sourceFile string) error {
	query := `
		INSERT OR REPLACE INTO transactions (
			account_id, transaction_date, settle_date, symbol, local_name,
			transaction_type, quantity, price, amount, fee, tax, net_amount,
			realized_gain_loss, split_ratio, currency, broker, order_id,
			description, source_file
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := db.Exec(query,
		accountID,
		tx.Date,
		tx.SettleDate,
		tx.Symbol,
		tx.LocalName,
		string(tx.Type),
		tx.Quantity,
		tx.Price,
		tx.Amount,
		tx.Fee,
		tx.Tax,
		tx.NetAmount,
		tx.RealizedGainLoss,
		tx.SplitRatio,
		string(tx.Currency),
		string(tx.Broker),
		tx.OrderID,
		tx.Description,
		sourceFile,
	)
	if err != nil {
		return fmt.Errorf("failed to insert transaction: %w", err)
	}
	return nil
}

// SaveBalances stores one balance snapshot keyed by account and statement
// date. Re-processing the same statement replaces the snapshot.
func (r *Repository) SaveBalances(accountID, statementDate string, b *domain.Balances) error {
	return saveBalances(r.db, accountID, statementDate, b)
}

func saveBalances(db execer, accountID, statementDate string, b *domain.Balances) error {
	query := `
		INSERT OR REPLACE INTO account_balances (
			account_id, statement_date, cash_balance, total_investments,
			total_account_value, beginning_account_value, deposits, withdrawals
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := db.Exec(query,
		accountID,
		statementDate,
		b.CashBalance,
		b.TotalInvestments,
		b.TotalAccountValue,
		b.BeginningValue,
		b.Deposits,
		b.Withdrawals,
	)
	if err != nil {
		return fmt.Errorf("failed to save balances for %s: %w", accountID, err)
	}
	return nil
}

// GetTransactions retrieves stored transactions matching the filter, newest
// first.
func (r *Repository) GetTransactions(f Filter) ([]Record, error) {
	query := `
		SELECT id, account_id, transaction_date, settle_date, symbol, local_name,
		       transaction_type, quantity, price, amount, fee, tax, net_amount,
		       realized_gain_loss, split_ratio, currency, broker, order_id,
		       description, source_file
		FROM transactions
	`
	var conds []string
	var args []interface{}

	add := func(cond, val string) {
		if val != "" {
			conds = append(conds, cond)
			args = append(args, val)
		}
	}
	add("account_id = ?", f.AccountID)
	add("symbol = ?", f.Symbol)
	add("broker = ?", f.Broker)
	add("transaction_type = ?", f.Type)
	add("transaction_date >= ?", f.StartDate)
	add("transaction_date <= ?", f.EndDate)

	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY transaction_date DESC, id DESC"
	if f.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", f.Limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

// GetAccounts retrieves all known accounts.
func (r *Repository) GetAccounts() ([]domain.AccountInfo, error) {
	rows, err := r.db.Query(`
		SELECT account_id, institution, broker, account_type, account_holder,
		       COALESCE(statement_date, ''), currency
		FROM accounts
		ORDER BY account_id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query accounts: %w", err)
	}
	defer rows.Close()

	var accounts []domain.AccountInfo
	for rows.Next() {
		var a domain.AccountInfo
		var broker, currency string
		if err := rows.Scan(&a.AccountID, &a.Institution, &broker, &a.AccountType,
			&a.AccountHolder, &a.StatementDate, &currency); err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		a.Broker = domain.Broker(broker)
		a.Currency = domain.Currency(currency)
		accounts = append(accounts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating accounts: %w", err)
	}
	return accounts, nil
}

// ListSymbols returns the distinct traded symbols, alphabetically.
func (r *Repository) ListSymbols() ([]string, error) {
	return r.listDistinct("symbol", "symbol != ''")
}

// ListBrokers returns the distinct brokers present in the ledger.
func (r *Repository) ListBrokers() ([]string, error) {
	return r.listDistinct("broker", "")
}

// ListCurrencies returns the distinct currencies present in the ledger.
func (r *Repository) ListCurrencies() ([]string, error) {
	return r.listDistinct("currency", "")
}

func (r *Repository) listDistinct(column, cond string) ([]string, error) {
	query := fmt.Sprintf("SELECT DISTINCT %s FROM transactions", column)
	if cond != "" {
		query += " WHERE " + cond
	}
	query += fmt.Sprintf(" ORDER BY %s", column)

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query distinct %s: %w", column, err)
	}
	defer rows.Close()

	var values []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", column, err)
		}
		values = append(values, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating %s: %w", column, err)
	}
	return values, nil
}

// LatestTransactionDates returns the most recent transaction date per broker.
// Used by the data freshness monitor.
func (r *Repository) LatestTransactionDates() (map[string]string, error) {
	rows, err := r.db.Query(`
		SELECT broker, MAX(transaction_date)
		FROM transactions
		GROUP BY broker
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query latest dates: %w", err)
	}
	defer rows.Close()

	latest := make(map[string]string)
	for rows.Next() {
		var broker string
		var date sql.NullString
		if err := rows.Scan(&broker, &date); err != nil {
			return nil, fmt.Errorf("failed to scan latest date: %w", err)
		}
		if date.Valid {
			latest[broker] = date.String
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating latest dates: %w", err)
	}
	return latest, nil
}

// CountTransactions returns the total number of stored transactions.
func (r *Repository) CountTransactions() (int, error) {
	var count int
	if err := r.db.QueryRow("SELECT COUNT(*) FROM transactions").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count transactions: %w", err)
	}
	return count, nil
}

func scanRecords(rows *sql.Rows) ([]Record, error) {
	var records []Record
	for rows.Next() {
		var rec Record
		var settleDate, symbol, localName, splitRatio, orderID, description, sourceFile sql.NullString
		var txType, currency, broker string

		err := rows.Scan(
			&rec.ID,
			&rec.AccountID,
			&rec.Date,
			&settleDate,
			&symbol,
			&localName,
			&txType,
			&rec.Quantity,
			&rec.Price,
			&rec.Amount,
			&rec.Fee,
			&rec.Tax,
			&rec.NetAmount,
			&rec.RealizedGainLoss,
			&splitRatio,
			&currency,
			&broker,
			&orderID,
			&description,
			&sourceFile,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}

		rec.SettleDate = settleDate.String
		rec.Symbol = symbol.String
		rec.LocalName = localName.String
		rec.SplitRatio = splitRatio.String
		rec.OrderID = orderID.String
		rec.Description = description.String
		rec.SourceFile = sourceFile.String
		rec.Type = domain.TransactionType(txType)
		rec.Currency = domain.Currency(currency)
		rec.Broker = domain.Broker(broker)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transactions: %w", err)
	}
	return records, nil
}
