package parser

import (
	"strings"

	"github.com/MehdiGhouryani/tradecopier-watch/internal/event"
)

// Benign expert errors are transient terminal conditions that recur in
// bursts. They get a throttle key instead of an always-alert; the dispatcher
// owns the per-key cooldowns. Fixed table, matched case-insensitively.
var benignSubstrings = []struct {
	substr string
	key    string
}{
	{"no connection", "no_connection"},
	{"trade context is busy", "trade_context_busy"},
	{"market is closed", "market_closed"},
	{"requote", "requote"},
	{"price changed", "price_changed"},
	{"not enough money", "not_enough_money"},
}

func decodeError(payload string) event.Event {
	msg := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(payload), "-"))
	lower := strings.ToLower(msg)
	for _, b := range benignSubstrings {
		if strings.Contains(lower, b.substr) {
			return event.ExpertError{Message: msg, Benign: true, BenignKey: b.key}
		}
	}
	return event.ExpertError{Message: msg}
}
