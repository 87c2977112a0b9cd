package sqlite

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// Open opens (creating if needed) the tracker database at path and applies
// the schema. WAL mode keeps concurrent account syncs from blocking reads.
func Open(path string) (*sql.DB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}
	return db, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS orders (
	account_id        TEXT NOT NULL,
	broker_order_id   TEXT NOT NULL,
	broker_order_step INTEGER NOT NULL DEFAULT 0,
	symbol            TEXT NOT NULL,
	executed_time     TEXT NOT NULL,
	action            TEXT NOT NULL,
	quantity          TEXT NOT NULL,
	executed_price    TEXT NOT NULL,
	fees              TEXT NOT NULL,
	order_amount      TEXT NOT NULL,
	trade_id          TEXT NOT NULL DEFAULT '',
	incomplete_trade  INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (account_id, broker_order_id, broker_order_step)
);

CREATE INDEX IF NOT EXISTS idx_orders_account_time
	ON orders(account_id, executed_time);

CREATE TABLE IF NOT EXISTS trades (
	account_id       TEXT NOT NULL,
	id               TEXT NOT NULL,
	symbol           TEXT NOT NULL,
	is_long          INTEGER NOT NULL,
	closed           INTEGER NOT NULL,
	open_date        TEXT NOT NULL,
	close_date       TEXT NOT NULL DEFAULT '',
	open_quantity    TEXT NOT NULL,
	cost_basis       TEXT NOT NULL,
	open_amount      TEXT NOT NULL,
	close_amount     TEXT NOT NULL,
	realized_gain    TEXT NOT NULL,
	unrealized_gain  TEXT NOT NULL,
	total_gain       TEXT NOT NULL,
	break_even_price TEXT NOT NULL,
	fees             TEXT NOT NULL,
	order_count      INTEGER NOT NULL,
	PRIMARY KEY (account_id, id)
);

CREATE INDEX IF NOT EXISTS idx_trades_account_symbol
	ON trades(account_id, symbol);

CREATE TABLE IF NOT EXISTS account_history (
	account_id            TEXT NOT NULL,
	period                TEXT NOT NULL,
	period_end            TEXT NOT NULL,
	balance               TEXT NOT NULL,
	balance_change_amount TEXT NOT NULL,
	balance_change_pct    TEXT NOT NULL,
	invested_amount       TEXT NOT NULL,
	net_gain              TEXT NOT NULL,
	net_gain_pct          TEXT NOT NULL,
	transfer_amount       TEXT NOT NULL,
	transfer_description  TEXT NOT NULL DEFAULT '',
	orders_executed       INTEGER NOT NULL DEFAULT 0,
	comment               TEXT NOT NULL DEFAULT '',
	balance_update_time   TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (account_id, period, period_end)
);

CREATE TABLE IF NOT EXISTS quotes (
	symbol TEXT PRIMARY KEY,
	last   TEXT NOT NULL,
	time   TEXT NOT NULL
);
`
