package ledger

import (
	"database/sql"

	_ "github.com/mattn/go-sqlite3"
)

const schema = `
CREATE TABLE IF NOT EXISTS closed_trades (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	recorded_at DATETIME NOT NULL,
	copy_id TEXT NOT NULL,
	source_name TEXT,
	source_account TEXT NOT NULL,
	symbol TEXT NOT NULL,
	profit TEXT NOT NULL,
	source_file TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_closed_trades_recorded_at ON closed_trades(recorded_at);
`

// SQLite appends closed trades over one connection opened at startup.
type SQLite struct {
	db *sql.DB
}

func OpenSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, err
	}
	return &SQLite{db: db}, nil
}

func (l *SQLite) Append(r Record) error {
	sourceName := sql.NullString{String: r.SourceName, Valid: r.SourceName != ""}
	// Profit is stored as decimal text to keep P/L exact.
	_, err := l.db.Exec(`
		INSERT INTO closed_trades
		(recorded_at, copy_id, source_name, source_account, symbol, profit, source_file)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.RecordedAt, r.CopyID, sourceName, r.SourceAccount, r.Symbol,
		r.Profit.String(), r.SourceFile,
	)
	return err
}

func (l *SQLite) Close() error {
	return l.db.Close()
}
