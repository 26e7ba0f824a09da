package dispatch

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/MehdiGhouryani/tradecopier-watch/internal/event"
)

// Format renders one event as a Telegram Markdown message. Every variant is
// rendered from its own fields only; TradeClosed.SourceName is resolved by
// the tailer before the event reaches the dispatcher.
func Format(ev event.Event) string {
	switch e := ev.(type) {
	case event.TradeOpened:
		return lines(
			"✅ *Trade opened*",
			"",
			"Copy account: `"+e.CopyID+"`",
			"Symbol: `"+e.Symbol+"`",
			"Volume: `"+e.Volume+"`",
			"Open price: `"+e.OpenPrice.String()+"`",
			"Source ticket: `"+e.SourceTicket+"`",
			"Source: "+e.SourceFile,
			"Source account: `"+e.SourceAccount+"`",
		)
	case event.TradeClosed:
		out := []string{
			"☑️ *Trade closed*",
			"",
			"Copy account: `" + e.CopyID + "`",
			"Symbol: `" + e.Symbol + "`",
			"Source ticket: `" + e.SourceTicket + "`",
			"Source: " + e.SourceName,
		}
		if e.HasProfit {
			out = append(out, "Profit/Loss: "+money(e.Profit))
		}
		if e.Reason != "" {
			out = append(out, "Result: "+e.Reason)
		}
		out = append(out, "Source account: `"+e.SourceAccount+"`")
		return lines(out...)
	case event.DrawdownAlert:
		return lines(
			"🟡 *Daily drawdown warning*",
			"",
			"Account: `"+e.CopyID+"`",
			fmt.Sprintf("Drawdown: %.2f%%", e.DDPercent),
			"Loss: "+money(e.DollarLoss),
			"Day start equity: "+money(e.DayStartEquity),
			"Day peak equity: "+money(e.DayPeakEquity),
		)
	case event.DrawdownStop:
		return lines(
			"🔴 *Copying stopped: daily drawdown limit*",
			"",
			"Account: `"+e.CopyID+"`",
			fmt.Sprintf("Drawdown: %.2f%%", e.DDPercent),
			fmt.Sprintf("Stop threshold: %.2f%%", e.DDLimit),
			"Loss: "+money(e.DollarLoss),
			"Day start equity: "+money(e.DayStartEquity),
			"Day peak equity: "+money(e.DayPeakEquity),
		)
	case event.DrawdownReset:
		out := []string{
			"🟢 *Daily drawdown reset*",
			"",
			"Account: `" + e.CopyID + "`",
		}
		if e.Detail != "" {
			out = append(out, "Detail: "+e.Detail)
		}
		return lines(out...)
	case event.LimitMaxLot:
		return lines(
			"⛔ *Volume limit reached*",
			"",
			"Account: `"+e.CopyID+"`",
			"Source: "+e.SourceFile,
			"Attempted volume: `"+e.AttemptedVolume+"`",
			"Volume limit: `"+e.LimitVolume+"`",
		)
	case event.LimitMaxTrades:
		return lines(
			"⛔ *Open-trades limit reached*",
			"",
			"Account: `"+e.CopyID+"`",
			"Source: "+e.SourceFile,
			fmt.Sprintf("Open trades: %d", e.OpenCount),
			fmt.Sprintf("Limit: %d", e.LimitCount),
		)
	case event.LimitSourceDrawdown:
		return lines(
			"⛔ *Source drawdown limit reached*",
			"",
			"Account: `"+e.CopyID+"`",
			"Source: "+e.SourceFile,
			"Floating P/L: "+money(e.FloatingPL),
			"Limit: "+money(e.LimitPL),
			fmt.Sprintf("Positions closed: %d", e.ClosedCount),
		)
	case event.ExpertError:
		return lines(
			"🚨 *Expert error*",
			"",
			"`"+e.Message+"`",
		)
	case event.ParseError:
		return lines(
			"⚠️ *Unparsable log line*",
			"",
			"`"+e.RawLine+"`",
		)
	case event.SourceStale:
		head := "📴 *Source disconnected*"
		if e.Reminder {
			head = "📴 *Source still disconnected*"
		}
		return lines(
			head,
			"",
			"Source: "+e.SourceName,
			"File: `"+e.SourceFile+"`",
			"Last write: "+e.LastWrite.UTC().Format("2006-01-02 15:04:05")+" UTC",
		)
	case event.SourceRecovered:
		return lines(
			"📶 *Source reconnected*",
			"",
			"Source: "+e.SourceName,
			"File: `"+e.SourceFile+"`",
		)
	case event.SourceMissing:
		return lines(
			"❓ *Source log file missing*",
			"",
			"Source: "+e.SourceName,
			"File: `"+e.SourceFile+"`",
		)
	case event.WatcherError:
		return lines(
			"🚨 *Watcher failure*",
			"",
			"Task: `"+e.Task+"`",
			"File: `"+e.File+"`",
			"Error: `"+e.Err+"`",
		)
	default:
		return fmt.Sprintf("⚠️ unrenderable event %T", ev)
	}
}

func lines(ss ...string) string {
	return strings.Join(ss, "\n")
}

func money(d decimal.Decimal) string {
	if d.IsNegative() {
		return "-$" + d.Neg().StringFixed(2)
	}
	return "$" + d.StringFixed(2)
}
