package database

// LedgerSchema is the portfolio ledger schema. Every statement is IF NOT
// EXISTS so Migrate can run on every start. Columns added after the initial
// release are handled by the ledger repository's column migration, not here.
// Exported so repository tests can build the same schema in memory.
const LedgerSchema = `
CREATE TABLE IF NOT EXISTS accounts (
    account_id      TEXT PRIMARY KEY,
    institution     TEXT NOT NULL,
    broker          TEXT NOT NULL,
    account_type    TEXT,
    account_holder  TEXT,
    statement_date  TEXT,
    currency        TEXT NOT NULL DEFAULT 'USD',
    updated_at      TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS transactions (
    id                  INTEGER PRIMARY KEY AUTOINCREMENT,
    account_id          TEXT NOT NULL,
    transaction_date    TEXT NOT NULL,
    settle_date         TEXT,
    symbol              TEXT,
    local_name          TEXT,
    transaction_type    TEXT NOT NULL,
    quantity            REAL NOT NULL DEFAULT 0,
    price               REAL NOT NULL DEFAULT 0,
    amount              REAL NOT NULL DEFAULT 0,
    fee                 REAL NOT NULL DEFAULT 0,
    tax                 REAL NOT NULL DEFAULT 0,
    net_amount          REAL NOT NULL DEFAULT 0,
    realized_gain_loss  REAL NOT NULL DEFAULT 0,
    split_ratio         TEXT,
    currency            TEXT NOT NULL DEFAULT 'USD',
    broker              TEXT NOT NULL,
    order_id            TEXT,
    description         TEXT,
    source_file         TEXT,
    created_at          TEXT NOT NULL DEFAULT (datetime('now')),
    UNIQUE (account_id, transaction_date, transaction_type, symbol,
            quantity, price, amount, order_id, description)
);

CREATE INDEX IF NOT EXISTS idx_transactions_symbol
    ON transactions (symbol);
CREATE INDEX IF NOT EXISTS idx_transactions_date
    ON transactions (transaction_date);

CREATE TABLE IF NOT EXISTS account_balances (
    id                      INTEGER PRIMARY KEY AUTOINCREMENT,
    account_id              TEXT NOT NULL,
    statement_date          TEXT NOT NULL,
    cash_balance            REAL NOT NULL DEFAULT 0,
    total_investments       REAL NOT NULL DEFAULT 0,
    total_account_value     REAL NOT NULL DEFAULT 0,
    beginning_account_value REAL NOT NULL DEFAULT 0,
    deposits                REAL NOT NULL DEFAULT 0,
    withdrawals             REAL NOT NULL DEFAULT 0,
    created_at              TEXT NOT NULL DEFAULT (datetime('now')),
    UNIQUE (account_id, statement_date)
);

CREATE TABLE IF NOT EXISTS processing_log (
    run_id             TEXT NOT NULL,
    file_name          TEXT NOT NULL,
    broker             TEXT NOT NULL,
    stage              TEXT NOT NULL,
    transaction_count  INTEGER NOT NULL DEFAULT 0,
    error              TEXT,
    processed_at       TEXT NOT NULL DEFAULT (datetime('now')),
    PRIMARY KEY (run_id, file_name)
);
`
