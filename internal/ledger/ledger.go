package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// Record is one closed trade. Rows are append-only; the reporting side reads
// them, the watcher never does.
type Record struct {
	RecordedAt    time.Time
	CopyID        string
	SourceName    string // empty when the correlation entry was lost
	SourceAccount string
	Symbol        string
	Profit        decimal.Decimal
	SourceFile    string
}

type Writer interface {
	Append(Record) error
	Close() error
}
