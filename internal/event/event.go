package event

import (
	"time"

	"github.com/shopspring/decimal"
)

// Kind discriminates the event union. One kind per log-line marker plus the
// connectivity and internal-error kinds the watcher raises itself.
type Kind string

const (
	KindTradeOpened         Kind = "trade_opened"
	KindTradeClosed         Kind = "trade_closed"
	KindDrawdownAlert       Kind = "drawdown_alert"
	KindDrawdownStop        Kind = "drawdown_stop"
	KindDrawdownReset       Kind = "drawdown_reset"
	KindLimitMaxLot         Kind = "limit_max_lot"
	KindLimitMaxTrades      Kind = "limit_max_trades"
	KindLimitSourceDrawdown Kind = "limit_source_drawdown"
	KindExpertError         Kind = "expert_error"
	KindParseError          Kind = "parse_error"
	KindSourceStale         Kind = "source_stale"
	KindSourceRecovered     Kind = "source_recovered"
	KindSourceMissing       Kind = "source_missing"
	KindWatcherError        Kind = "watcher_error"
)

// Event is a closed union: every variant carries everything needed to render
// its notification, except TradeClosed.SourceName which the tailer resolves
// through the correlation store before dispatch.
type Event interface {
	Kind() Kind
}

type TradeOpened struct {
	CopyID        string
	Symbol        string
	Volume        string
	OpenPrice     decimal.Decimal
	SourceTicket  string
	SourceFile    string
	SourceAccount string
}

type TradeClosed struct {
	CopyID        string
	Symbol        string
	SourceTicket  string
	Profit        decimal.Decimal
	HasProfit     bool   // the profit field decoded as a number
	Reason        string // set when the profit field was not numeric
	SourceFile    string
	SourceAccount string
	SourceName    string // resolved by the tailer, not the parser
}

type DrawdownAlert struct {
	CopyID         string
	DDPercent      float64
	DollarLoss     decimal.Decimal
	DayStartEquity decimal.Decimal
	DayPeakEquity  decimal.Decimal
}

type DrawdownStop struct {
	CopyID         string
	DDPercent      float64
	DDLimit        float64
	DollarLoss     decimal.Decimal
	DayStartEquity decimal.Decimal
	DayPeakEquity  decimal.Decimal
}

type DrawdownReset struct {
	CopyID string
	Detail string
}

type LimitMaxLot struct {
	CopyID          string
	SourceFile      string
	AttemptedVolume string
	LimitVolume     string
}

type LimitMaxTrades struct {
	CopyID     string
	SourceFile string
	OpenCount  int
	LimitCount int
}

type LimitSourceDrawdown struct {
	CopyID      string
	SourceFile  string
	FloatingPL  decimal.Decimal
	LimitPL     decimal.Decimal
	ClosedCount int
}

type ExpertError struct {
	Message   string
	Benign    bool
	BenignKey string // throttle key, set only when Benign
}

type ParseError struct {
	RawLine string
}

// SourceStale reports a source log whose mtime stopped advancing. Reminder
// marks a re-alert after the cooldown, not a fresh transition.
type SourceStale struct {
	SourceFile string
	SourceName string
	LastWrite  time.Time
	Reminder   bool
}

type SourceRecovered struct {
	SourceFile string
	SourceName string
}

type SourceMissing struct {
	SourceFile string
	SourceName string
}

// WatcherError is an internal failure of the watcher itself, named by task
// and file so the operator can tell which follower died.
type WatcherError struct {
	Task string
	File string
	Err  string
}

func (TradeOpened) Kind() Kind         { return KindTradeOpened }
func (TradeClosed) Kind() Kind         { return KindTradeClosed }
func (DrawdownAlert) Kind() Kind       { return KindDrawdownAlert }
func (DrawdownStop) Kind() Kind        { return KindDrawdownStop }
func (DrawdownReset) Kind() Kind       { return KindDrawdownReset }
func (LimitMaxLot) Kind() Kind         { return KindLimitMaxLot }
func (LimitMaxTrades) Kind() Kind      { return KindLimitMaxTrades }
func (LimitSourceDrawdown) Kind() Kind { return KindLimitSourceDrawdown }
func (ExpertError) Kind() Kind         { return KindExpertError }
func (ParseError) Kind() Kind          { return KindParseError }
func (SourceStale) Kind() Kind         { return KindSourceStale }
func (SourceRecovered) Kind() Kind     { return KindSourceRecovered }
func (SourceMissing) Kind() Kind       { return KindSourceMissing }
func (WatcherError) Kind() Kind        { return KindWatcherError }
