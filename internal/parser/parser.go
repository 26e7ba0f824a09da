package parser

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/MehdiGhouryani/tradecopier-watch/internal/event"
)

// The expert advisor writes one bracketed marker per line followed by a
// comma-separated payload. Markers are matched in order; the first hit wins.
// [ERROR] is special-cased because its payload is free text, not fields.

const errorMarker = "[ERROR]"

type rule struct {
	marker string
	decode func(fields []string) (event.Event, error)
}

var rules = []rule{
	{"[TRADE_OPEN]", decodeTradeOpen},
	{"[TRADE_CLOSE]", decodeTradeClose},
	{"[DD_ALERT]", decodeDrawdownAlert},
	{"[DD_STOP]", decodeDrawdownStop},
	{"[DD_RESET]", decodeDrawdownReset},
	{"[LIMIT_MAX_LOT]", decodeLimitMaxLot},
	{"[LIMIT_MAX_TRADES]", decodeLimitMaxTrades},
	{"[LIMIT_SOURCE_DD]", decodeLimitSourceDrawdown},
}

// Parse classifies one raw log line. It returns (nil, false) for lines that
// carry no marker at all; lines with a marker but a broken payload come back
// as a ParseError event so malformed input stays visible.
func Parse(line string) (event.Event, bool) {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil, false
	}

	if idx := strings.Index(line, errorMarker); idx >= 0 {
		return decodeError(line[idx+len(errorMarker):]), true
	}

	for _, r := range rules {
		idx := strings.Index(line, r.marker)
		if idx < 0 {
			continue
		}
		payload := strings.TrimSpace(line[idx+len(r.marker):])
		ev, err := r.decode(splitFields(payload))
		if err != nil {
			return event.ParseError{RawLine: line}, true
		}
		return ev, true
	}
	return nil, false
}

func splitFields(payload string) []string {
	parts := strings.Split(payload, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

func decodeTradeOpen(f []string) (event.Event, error) {
	if len(f) != 7 {
		return nil, fmt.Errorf("want 7 fields, got %d", len(f))
	}
	price, err := decimal.NewFromString(f[3])
	if err != nil {
		return nil, fmt.Errorf("open price %q: %w", f[3], err)
	}
	return event.TradeOpened{
		CopyID:        f[0],
		Symbol:        f[1],
		Volume:        f[2],
		OpenPrice:     price,
		SourceTicket:  f[4],
		SourceFile:    f[5],
		SourceAccount: f[6],
	}, nil
}

// decodeTradeClose accepts either a numeric profit or a free-text close
// reason in the fourth field. A trailing parenthetical field, when present,
// is appended to the reason in both branches.
func decodeTradeClose(f []string) (event.Event, error) {
	var extra string
	if len(f) == 7 && isParenthetical(f[6]) {
		extra = strings.TrimSuffix(strings.TrimPrefix(f[6], "("), ")")
		f = f[:6]
	}
	if len(f) != 6 {
		return nil, fmt.Errorf("want 6 fields, got %d", len(f))
	}

	ev := event.TradeClosed{
		CopyID:        f[0],
		Symbol:        f[1],
		SourceTicket:  f[2],
		SourceFile:    f[4],
		SourceAccount: f[5],
	}
	if profit, err := decimal.NewFromString(f[3]); err == nil {
		ev.Profit = profit
		ev.HasProfit = true
		ev.Reason = extra
	} else {
		ev.Profit = decimal.Zero
		ev.Reason = f[3]
		if extra != "" {
			ev.Reason += " " + extra
		}
	}
	return ev, nil
}

func isParenthetical(s string) bool {
	return len(s) >= 2 && strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")")
}

func decodeDrawdownAlert(f []string) (event.Event, error) {
	if len(f) != 5 {
		return nil, fmt.Errorf("want 5 fields, got %d", len(f))
	}
	pct, err := parsePercent(f[1])
	if err != nil {
		return nil, err
	}
	money, err := parseMoney(f[2], f[3], f[4])
	if err != nil {
		return nil, err
	}
	return event.DrawdownAlert{
		CopyID:         f[0],
		DDPercent:      pct,
		DollarLoss:     money[0],
		DayStartEquity: money[1],
		DayPeakEquity:  money[2],
	}, nil
}

func decodeDrawdownStop(f []string) (event.Event, error) {
	if len(f) != 6 {
		return nil, fmt.Errorf("want 6 fields, got %d", len(f))
	}
	pct, err := parsePercent(f[1])
	if err != nil {
		return nil, err
	}
	limit, err := parsePercent(f[2])
	if err != nil {
		return nil, err
	}
	money, err := parseMoney(f[3], f[4], f[5])
	if err != nil {
		return nil, err
	}
	return event.DrawdownStop{
		CopyID:         f[0],
		DDPercent:      pct,
		DDLimit:        limit,
		DollarLoss:     money[0],
		DayStartEquity: money[1],
		DayPeakEquity:  money[2],
	}, nil
}

func decodeDrawdownReset(f []string) (event.Event, error) {
	switch len(f) {
	case 1:
		return event.DrawdownReset{CopyID: f[0]}, nil
	case 2:
		return event.DrawdownReset{CopyID: f[0], Detail: f[1]}, nil
	}
	return nil, fmt.Errorf("want 1 or 2 fields, got %d", len(f))
}

func decodeLimitMaxLot(f []string) (event.Event, error) {
	if len(f) != 4 {
		return nil, fmt.Errorf("want 4 fields, got %d", len(f))
	}
	return event.LimitMaxLot{
		CopyID:          f[0],
		SourceFile:      f[1],
		AttemptedVolume: f[2],
		LimitVolume:     f[3],
	}, nil
}

func decodeLimitMaxTrades(f []string) (event.Event, error) {
	if len(f) != 4 {
		return nil, fmt.Errorf("want 4 fields, got %d", len(f))
	}
	open, err := strconv.Atoi(f[2])
	if err != nil {
		return nil, fmt.Errorf("open count %q: %w", f[2], err)
	}
	limit, err := strconv.Atoi(f[3])
	if err != nil {
		return nil, fmt.Errorf("limit count %q: %w", f[3], err)
	}
	return event.LimitMaxTrades{
		CopyID:     f[0],
		SourceFile: f[1],
		OpenCount:  open,
		LimitCount: limit,
	}, nil
}

func decodeLimitSourceDrawdown(f []string) (event.Event, error) {
	if len(f) != 5 {
		return nil, fmt.Errorf("want 5 fields, got %d", len(f))
	}
	floating, err := decimal.NewFromString(f[2])
	if err != nil {
		return nil, fmt.Errorf("floating P/L %q: %w", f[2], err)
	}
	limit, err := decimal.NewFromString(f[3])
	if err != nil {
		return nil, fmt.Errorf("limit P/L %q: %w", f[3], err)
	}
	closed, err := strconv.Atoi(f[4])
	if err != nil {
		return nil, fmt.Errorf("closed count %q: %w", f[4], err)
	}
	return event.LimitSourceDrawdown{
		CopyID:      f[0],
		SourceFile:  f[1],
		FloatingPL:  floating,
		LimitPL:     limit,
		ClosedCount: closed,
	}, nil
}

func parsePercent(s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSuffix(s, "%"), 64)
	if err != nil {
		return 0, fmt.Errorf("percent %q: %w", s, err)
	}
	return v, nil
}

func parseMoney(fields ...string) ([]decimal.Decimal, error) {
	out := make([]decimal.Decimal, len(fields))
	for i, s := range fields {
		v, err := decimal.NewFromString(strings.TrimPrefix(s, "$"))
		if err != nil {
			return nil, fmt.Errorf("amount %q: %w", s, err)
		}
		out[i] = v
	}
	return out, nil
}
