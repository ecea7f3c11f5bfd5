// journal/schema.go
package journal

const Schema = `
CREATE TABLE IF NOT EXISTS settlements (
	position_id TEXT PRIMARY KEY,
	transaction_id TEXT NOT NULL,
	side TEXT NOT NULL,
	size_grams REAL NOT NULL,
	entry_price REAL NOT NULL,
	exit_price REAL NOT NULL,
	open_time DATETIME NOT NULL,
	close_time DATETIME NOT NULL,
	realized_pl REAL NOT NULL,
	reason TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS transactions (
	id TEXT PRIMARY KEY,
	kind TEXT NOT NULL,
	wallet TEXT NOT NULL,
	amount_grams REAL NOT NULL,
	amount_usd REAL NOT NULL,
	time DATETIME NOT NULL,
	status TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_settlements_close_time ON settlements(close_time);
CREATE INDEX IF NOT EXISTS idx_transactions_time ON transactions(time);
`
