package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/MehdiGhouryani/tradecopier-watch/internal/config"
	"github.com/MehdiGhouryani/tradecopier-watch/internal/correlate"
	"github.com/MehdiGhouryani/tradecopier-watch/internal/dispatch"
	"github.com/MehdiGhouryani/tradecopier-watch/internal/health"
	"github.com/MehdiGhouryani/tradecopier-watch/internal/ledger"
	"github.com/MehdiGhouryani/tradecopier-watch/internal/observ"
	"github.com/MehdiGhouryani/tradecopier-watch/internal/registry"
	"github.com/MehdiGhouryani/tradecopier-watch/internal/tail"
	"github.com/MehdiGhouryani/tradecopier-watch/internal/telegram"
	"github.com/MehdiGhouryani/tradecopier-watch/internal/watcher"
)

func main() {
	cfgPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	// .env is optional; a real environment wins over it either way.
	_ = godotenv.Load()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config %s: %v\n", *cfgPath, err)
		os.Exit(1)
	}
	token := os.Getenv("BOT_TOKEN")
	switch {
	case token == "":
		fatal("BOT_TOKEN is not set")
	case cfg.Telegram.AdminID == "":
		fatal("telegram admin_id is not set")
	case cfg.Telegram.ChannelID == "":
		fatal("telegram channel_id is not set")
	case cfg.LogDir == "":
		fatal("log_dir is not set")
	case cfg.EcosystemPath == "":
		fatal("ecosystem_path is not set")
	}

	if err := os.MkdirAll(cfg.StateDir, 0755); err != nil {
		fatal(fmt.Sprintf("create state dir: %v", err))
	}
	observ.SetLogFile(cfg.WatcherLogPath)

	reg := registry.New(cfg.EcosystemPath)
	store := correlate.Open(filepath.Join(cfg.StateDir, "correlation.json"))

	led, err := ledger.OpenSQLite(cfg.LedgerPath)
	if err != nil {
		fatal(fmt.Sprintf("open trade ledger: %v", err))
	}
	defer led.Close()

	sender := telegram.New(cfg.Telegram.APIBase, token, time.Duration(cfg.Telegram.TimeoutMs)*time.Millisecond)
	disp := dispatch.New(sender, cfg.Telegram.ChannelID, cfg.Telegram.AdminID,
		time.Duration(cfg.DedupeWindowSecs)*time.Second)

	mon := health.NewMonitor(reg, disp, cfg.LogDir,
		filepath.Join(cfg.StateDir, "source_status.json"),
		time.Duration(cfg.Health.StaleAfterSeconds)*time.Second,
		time.Duration(cfg.Health.RealertSeconds)*time.Second)

	runTail := func(ctx context.Context, id, path string) {
		t := &tail.Tailer{
			ID:       id,
			Path:     path,
			Registry: reg,
			Store:    store,
			Ledger:   led,
			Notifier: disp,
		}
		t.Run(ctx)
	}
	mgr := watcher.NewManager(cfg.LogDir, cfg.FilePrefix, reg, runTail)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var wg sync.WaitGroup
	background(&wg, func() { store.Run(ctx, time.Duration(cfg.Intervals.FlushSeconds)*time.Second) })
	background(&wg, func() { mon.Run(ctx, time.Duration(cfg.Intervals.HealthSeconds)*time.Second) })
	background(&wg, func() { mon.RunSnapshots(ctx, time.Duration(cfg.Intervals.SnapshotSeconds)*time.Second) })
	background(&wg, func() { heartbeat(ctx, time.Duration(cfg.Intervals.HeartbeatSeconds)*time.Second) })

	observ.Log("watcher_started", map[string]any{
		"log_dir":   cfg.LogDir,
		"prefix":    cfg.FilePrefix,
		"ecosystem": cfg.EcosystemPath,
	})
	disp.NotifyAdmin(ctx, "👁 *Watcher online*\n\nWatching: `"+cfg.LogDir+"`")

	mgr.Run(ctx, time.Duration(cfg.Intervals.RescanSeconds)*time.Second)
	wg.Wait()

	observ.Log("watcher_stopped", nil)
}

func background(wg *sync.WaitGroup, fn func()) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		fn()
	}()
}

// heartbeat proves liveness in the local log and carries the counter
// snapshot so a quick grep answers "is it doing anything".
func heartbeat(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			kv := map[string]any{}
			for name, v := range observ.Counters() {
				kv[name] = v
			}
			observ.Log("watcher_heartbeat", kv)
		}
	}
}

func fatal(msg string) {
	fmt.Fprintln(os.Stderr, "fatal: "+msg)
	os.Exit(1)
}
