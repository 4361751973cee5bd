package ledger

import (
	"database/sql"
	"fmt"

	"github.com/rs/zerolog"
)

// transactionColumns are columns added to the transactions table after the
// initial release. EnsureColumns adds any that are missing, so a database
// created by an older build keeps working without a manual migration.
var transactionColumns = map[string]string{
	"currency":    "TEXT NOT NULL DEFAULT 'USD'",
	"local_name":  "TEXT",
	"settle_date": "TEXT",
	"split_ratio": "TEXT",
	"source_file": "TEXT",
}

// EnsureColumns brings an existing transactions table up to the current
// column set. Idempotent: existing columns are left alone.
func EnsureColumns(db *sql.DB, log zerolog.Logger) error {
	existing, err := tableColumns(db, "transactions")
	if err != nil {
		return err
	}

	for name, ddl := range transactionColumns {
		if existing[name] {
			continue
		}
		stmt := fmt.Sprintf("ALTER TABLE transactions ADD COLUMN %s %s", name, ddl)
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to add column %s: %w", name, err)
		}
		log.Info().Str("column", name).Msg("Added missing transactions column")
	}
	return nil
}

func tableColumns(db *sql.DB, table string) (map[string]bool, error) {
	rows, err := db.Query(fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return nil, fmt.Errorf("failed to read table info for %s: %w", table, err)
	}
	defer rows.Close()

	cols := make(map[string]bool)
	for rows.Next() {
		var cid int
		var name, colType string
		var notNull, pk int
		var dflt sql.NullString
		if err := rows.Scan(&cid, &name, &colType, &notNull, &dflt, &pk); err != nil {
			return nil, fmt.Errorf("failed to scan table info: %w", err)
		}
		cols[name] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating table info: %w", err)
	}
	return cols, nil
}
