package tail

import (
	"bufio"
	"context"
	"errors"
	"io"
	"os"
	"strings"
	"time"

	"github.com/MehdiGhouryani/tradecopier-watch/internal/correlate"
	"github.com/MehdiGhouryani/tradecopier-watch/internal/event"
	"github.com/MehdiGhouryani/tradecopier-watch/internal/ledger"
	"github.com/MehdiGhouryani/tradecopier-watch/internal/observ"
	"github.com/MehdiGhouryani/tradecopier-watch/internal/parser"
	"github.com/MehdiGhouryani/tradecopier-watch/internal/registry"
)

// Notifier is the dispatcher surface the tailer needs.
type Notifier interface {
	Dispatch(ctx context.Context, ev event.Event)
}

const pollInterval = time.Second

// Tailer follows one copy account's log file from its current end and pushes
// every classified line through the pipeline. The rotation manager owns its
// lifecycle; cancellation via ctx is the only way it stops on a healthy file.
type Tailer struct {
	ID   string
	Path string

	Registry *registry.Registry
	Store    *correlate.Store
	Ledger   ledger.Writer
	Notifier Notifier
}

// Run blocks until ctx is cancelled or the file goes away. A vanished file
// is expected rotation cleanup and ends the tailer silently; any other
// failure raises a critical alert naming the task and file.
func (t *Tailer) Run(ctx context.Context) {
	err := t.follow(ctx)
	if err == nil || errors.Is(err, context.Canceled) {
		return
	}
	if os.IsNotExist(err) {
		observ.Log("tailer_file_gone", map[string]any{"id": t.ID, "file": t.Path})
		return
	}
	observ.IncCounter("tailer_failures_total", map[string]string{"id": t.ID})
	observ.Log("tailer_failed", map[string]any{"id": t.ID, "file": t.Path, "error": err.Error()})
	t.Notifier.Dispatch(ctx, event.WatcherError{Task: "tail:" + t.ID, File: t.Path, Err: err.Error()})
}

func (t *Tailer) follow(ctx context.Context) error {
	f, err := os.Open(t.Path)
	if err != nil {
		return err
	}
	defer f.Close()

	// No historical replay: only lines appended after the tailer starts.
	if _, err := f.Seek(0, io.SeekEnd); err != nil {
		return err
	}

	observ.Log("tailer_started", map[string]any{"id": t.ID, "file": t.Path})
	reader := bufio.NewReader(f)
	var pending strings.Builder

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		chunk, err := reader.ReadString('\n')
		pending.WriteString(chunk)
		switch {
		case err == nil:
			line := strings.TrimRight(pending.String(), "\r\n")
			pending.Reset()
			t.handleLine(ctx, line)
		case errors.Is(err, io.EOF):
			// Idle file: wait for the writer, keeping any partial line.
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(pollInterval):
			}
		default:
			return err
		}
	}
}

func (t *Tailer) handleLine(ctx context.Context, line string) {
	ev, ok := parser.Parse(line)
	if !ok {
		return
	}
	observ.IncCounter("lines_classified_total", map[string]string{"kind": string(ev.Kind())})

	switch e := ev.(type) {
	case event.TradeOpened:
		t.Store.Put(e.SourceTicket, t.Registry.NameForFile(e.SourceFile))
		t.Notifier.Dispatch(ctx, e)
	case event.TradeClosed:
		name, found := t.Store.Resolve(e.SourceTicket)
		if !found {
			// Expected after a restart that lost open-side state.
			name = e.SourceFile
		}
		e.SourceName = name
		t.Notifier.Dispatch(ctx, e)
		t.appendLedger(e, found)
		t.Store.Delete(e.SourceTicket)
	case event.ParseError:
		observ.IncCounter("parse_errors_total", nil)
		t.Notifier.Dispatch(ctx, e)
	default:
		t.Notifier.Dispatch(ctx, ev)
	}
}

// appendLedger records the closed trade. Ledger failures are logged with
// context and never fed back into the read path.
func (t *Tailer) appendLedger(e event.TradeClosed, resolved bool) {
	rec := ledger.Record{
		RecordedAt:    time.Now().UTC(),
		CopyID:        e.CopyID,
		SourceAccount: e.SourceAccount,
		Symbol:        e.Symbol,
		Profit:        e.Profit,
		SourceFile:    e.SourceFile,
	}
	if resolved {
		rec.SourceName = e.SourceName
	}
	if err := t.Ledger.Append(rec); err != nil {
		observ.IncCounter("ledger_failures_total", nil)
		observ.Log("ledger_append_error", map[string]any{
			"id":     t.ID,
			"ticket": e.SourceTicket,
			"symbol": e.Symbol,
			"error":  err.Error(),
		})
	}
}
