package dispatch

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/MehdiGhouryani/tradecopier-watch/internal/event"
	"github.com/MehdiGhouryani/tradecopier-watch/internal/observ"
)

// Sender is the one contract consumed from the messaging platform.
type Sender interface {
	SendMessage(ctx context.Context, chatID, text string) error
}

const (
	maxRetries    = 3
	backoffBase   = time.Second
	defaultBenign = 30 * time.Minute
	limiterRate   = 20 // messages per second, under Bot API flood control
	limiterBurst  = 5
)

// Per-key cooldowns for benign expert errors. The keys are assigned by the
// parser's benign table. Fixed at build time; this is the preserved contract.
var benignCooldowns = map[string]time.Duration{
	"no_connection":      30 * time.Minute,
	"trade_context_busy": 15 * time.Minute,
	"market_closed":      60 * time.Minute,
	"requote":            15 * time.Minute,
	"price_changed":      15 * time.Minute,
	"not_enough_money":   30 * time.Minute,
}

// Dispatcher turns events into channel messages: exact-repeat dedupe,
// per-key throttling of benign errors, then best-effort delivery with
// retries and an admin fallback. The admission bookkeeping runs under its
// own short-lived lock so a slow or retrying send never stalls the callers
// deciding whether to send at all; delivery itself is serialized separately
// to keep channel messages in admission order.
type Dispatcher struct {
	sender       Sender
	channelID    string
	adminID      string
	dedupeWindow time.Duration
	limiter      *rate.Limiter

	now   func() time.Time
	sleep func(context.Context, time.Duration)

	mu         sync.Mutex // admission bookkeeping only
	lastText   string
	lastSentAt time.Time
	benignLast map[string]time.Time

	sendMu sync.Mutex
}

func New(sender Sender, channelID, adminID string, dedupeWindow time.Duration) *Dispatcher {
	return &Dispatcher{
		sender:       sender,
		channelID:    channelID,
		adminID:      adminID,
		dedupeWindow: dedupeWindow,
		limiter:      rate.NewLimiter(rate.Limit(limiterRate), limiterBurst),
		now:          time.Now,
		sleep:        sleepCtx,
		benignLast:   map[string]time.Time{},
	}
}

// Dispatch sends one event to the operator channel. It never returns an
// error: alerting is best-effort and every failure mode ends in a local log.
// Suppressed events return immediately even while another delivery is
// mid-retry.
func (d *Dispatcher) Dispatch(ctx context.Context, ev event.Event) {
	text, ok := d.admit(ev)
	if !ok {
		return
	}

	d.sendMu.Lock()
	defer d.sendMu.Unlock()
	d.deliver(ctx, text)
}

// admit runs the dedupe and benign-throttle checks and records the event as
// the most recent admitted message. Dedupe compares against the last text
// admitted, not the last delivered, so a retrying send does not reopen the
// window for its own duplicates.
func (d *Dispatcher) admit(ev event.Event) (string, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()

	text := Format(ev)
	if text == d.lastText && now.Sub(d.lastSentAt) < d.dedupeWindow {
		observ.IncCounter("alerts_deduped_total", nil)
		return "", false
	}

	if ee, ok := ev.(event.ExpertError); ok && ee.Benign {
		cooldown, known := benignCooldowns[ee.BenignKey]
		if !known {
			cooldown = defaultBenign
		}
		if last, seen := d.benignLast[ee.BenignKey]; seen && now.Sub(last) < cooldown {
			observ.IncCounter("alerts_throttled_total", map[string]string{"key": ee.BenignKey})
			return "", false
		}
		d.benignLast[ee.BenignKey] = now
	}

	d.lastText = text
	d.lastSentAt = now
	return text, true
}

// NotifyAdmin sends a single message straight to the admin chat, one
// attempt, failures logged. Used for watcher lifecycle notes.
func (d *Dispatcher) NotifyAdmin(ctx context.Context, text string) {
	_ = d.limiter.Wait(ctx)
	if err := d.sender.SendMessage(ctx, d.adminID, text); err != nil {
		observ.Log("admin_notify_error", map[string]any{"error": err.Error()})
	}
}

func (d *Dispatcher) deliver(ctx context.Context, text string) {
	var lastErr error
	for attempt := 0; ; attempt++ {
		if err := d.limiter.Wait(ctx); err != nil {
			return
		}
		lastErr = d.sender.SendMessage(ctx, d.channelID, text)
		if lastErr == nil {
			observ.IncCounter("alerts_sent_total", nil)
			return
		}
		if attempt >= maxRetries {
			break
		}
		observ.IncCounter("alert_send_retries_total", nil)
		d.sleep(ctx, backoffBase<<attempt)
		if ctx.Err() != nil {
			return
		}
	}

	// Primary exhausted: one-shot fallback to the admin chat, noting why.
	observ.Log("alert_primary_failed", map[string]any{"error": lastErr.Error()})
	fallback := "⚠️ *Primary delivery failed*: `" + lastErr.Error() + "`\n\n" + text
	if err := d.sender.SendMessage(ctx, d.adminID, fallback); err != nil {
		observ.IncCounter("alerts_dropped_total", nil)
		observ.Log("alert_dropped", map[string]any{
			"primary_error":  lastErr.Error(),
			"fallback_error": err.Error(),
		})
		return
	}
	observ.IncCounter("alerts_fallback_total", nil)
}

func sleepCtx(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
