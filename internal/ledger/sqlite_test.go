package ledger

import (
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSQLite(t *testing.T) (*SQLite, string) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "trades.db")
	l, err := OpenSQLite(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = l.Close() })

	return l, path
}

func TestSQLiteSchemaCreated(t *testing.T) {
	t.Parallel()

	_, path := newTestSQLite(t)

	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	var name string
	err = db.QueryRow(`SELECT name FROM sqlite_master WHERE type='table' AND name='closed_trades'`).Scan(&name)
	require.NoError(t, err)
	assert.Equal(t, "closed_trades", name)
}

func TestSQLiteAppend(t *testing.T) {
	t.Parallel()

	l, path := newTestSQLite(t)

	rec := Record{
		RecordedAt:    time.Date(2025, 6, 1, 10, 2, 3, 0, time.UTC),
		CopyID:        "copy_A",
		SourceName:    "Alpha Feed",
		SourceAccount: "55512",
		Symbol:        "XAUUSD",
		Profit:        decimal.RequireFromString("-5.06"),
		SourceFile:    "SourceA.log",
	}
	require.NoError(t, l.Append(rec))

	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	var (
		id         int64
		copyID     string
		sourceName sql.NullString
		symbol     string
		profit     string
	)
	err = db.QueryRow(`SELECT id, copy_id, source_name, symbol, profit FROM closed_trades`).
		Scan(&id, &copyID, &sourceName, &symbol, &profit)
	require.NoError(t, err)

	assert.Equal(t, int64(1), id)
	assert.Equal(t, "copy_A", copyID)
	assert.True(t, sourceName.Valid)
	assert.Equal(t, "Alpha Feed", sourceName.String)
	assert.Equal(t, "XAUUSD", symbol)
	assert.Equal(t, "-5.06", profit)
}

func TestSQLiteAppendUnknownSource(t *testing.T) {
	t.Parallel()

	l, path := newTestSQLite(t)

	require.NoError(t, l.Append(Record{
		RecordedAt:    time.Now().UTC(),
		CopyID:        "copy_B",
		SourceAccount: "55513",
		Symbol:        "EURUSD",
		Profit:        decimal.Zero,
		SourceFile:    "SourceB.log",
	}))

	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	var sourceName sql.NullString
	require.NoError(t, db.QueryRow(`SELECT source_name FROM closed_trades`).Scan(&sourceName))
	assert.False(t, sourceName.Valid, "lost correlation must persist as NULL, not empty string")
}
