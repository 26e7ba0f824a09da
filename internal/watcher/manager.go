package watcher

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"time"

	"github.com/MehdiGhouryani/tradecopier-watch/internal/observ"
	"github.com/MehdiGhouryani/tradecopier-watch/internal/registry"
)

// TailFunc follows one file until ctx is cancelled. The manager owns the
// goroutine and cancellation bookkeeping around it.
type TailFunc func(ctx context.Context, id, path string)

type activeTail struct {
	path   string
	cancel context.CancelFunc
	done   chan struct{}
}

// Manager is the top-level rescan loop: it groups log files by copy id,
// elects the newest file per id and keeps exactly one tailer per id running
// on it, cancelling a superseded tailer before starting its replacement.
type Manager struct {
	logDir  string
	pattern *regexp.Regexp
	glob    string
	reg     *registry.Registry
	runTail TailFunc

	active map[string]*activeTail
}

func NewManager(logDir, filePrefix string, reg *registry.Registry, runTail TailFunc) *Manager {
	return &Manager{
		logDir:  logDir,
		pattern: regexp.MustCompile(`^` + regexp.QuoteMeta(filePrefix) + `_(.+)_\d{4}\.\d{2}\.\d{2}\.log$`),
		glob:    filepath.Join(logDir, filePrefix+"_*.log"),
		reg:     reg,
		runTail: runTail,
		active:  map[string]*activeTail{},
	}
}

// Rescan runs one discovery cycle: reload the registry, list log files,
// elect the newest file per id and reconcile running tailers against the
// election. A cycle with no file changes starts and stops nothing.
func (m *Manager) Rescan(ctx context.Context) {
	m.reg.Reload()

	matches, err := filepath.Glob(m.glob)
	if err != nil {
		observ.Log("rescan_glob_error", map[string]any{"glob": m.glob, "error": err.Error()})
		return
	}

	byID := map[string][]string{}
	for _, path := range matches {
		sub := m.pattern.FindStringSubmatch(filepath.Base(path))
		if sub == nil {
			continue
		}
		byID[sub[1]] = append(byID[sub[1]], path)
	}

	for id, files := range byID {
		newest := electNewest(files)
		if newest == "" {
			continue
		}
		cur, ok := m.active[id]
		if ok && cur.path == newest {
			continue
		}
		if ok {
			observ.Log("tailer_switching", map[string]any{
				"id":   id,
				"from": filepath.Base(cur.path),
				"to":   filepath.Base(newest),
			})
			cur.cancel()
			<-cur.done
		}
		m.start(ctx, id, newest)
	}
	observ.SetGauge("active_tailers", float64(len(m.active)), nil)
}

func (m *Manager) start(ctx context.Context, id, path string) {
	tailCtx, cancel := context.WithCancel(ctx)
	at := &activeTail{path: path, cancel: cancel, done: make(chan struct{})}
	m.active[id] = at
	observ.IncCounter("tailer_starts_total", map[string]string{"id": id})
	go func() {
		defer close(at.done)
		m.runTail(tailCtx, id, path)
	}()
}

// electNewest picks the file with the latest mtime; ties go to the
// lexicographically larger name, which for the dated naming scheme is the
// later day.
func electNewest(files []string) string {
	sort.Strings(files)
	var newest string
	var newestMod time.Time
	for _, f := range files {
		info, err := os.Stat(f)
		if err != nil {
			continue
		}
		if newest == "" || !info.ModTime().Before(newestMod) {
			newest = f
			newestMod = info.ModTime()
		}
	}
	return newest
}

// ActiveFiles reports the file each id is currently assigned to.
func (m *Manager) ActiveFiles() map[string]string {
	out := make(map[string]string, len(m.active))
	for id, at := range m.active {
		out[id] = at.path
	}
	return out
}

// Run rescans on a fixed interval until ctx is cancelled, then stops every
// tailer. Each cycle is panic-isolated: whatever goes wrong is logged and
// the loop retries on the next tick rather than exiting.
func (m *Manager) Run(ctx context.Context, interval time.Duration) {
	for {
		m.safeRescan(ctx)
		select {
		case <-ctx.Done():
			m.stopAll()
			return
		case <-time.After(interval):
		}
	}
}

func (m *Manager) safeRescan(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			observ.IncCounter("rescan_panics_total", nil)
			observ.Log("rescan_panic", map[string]any{"panic": r})
		}
	}()
	m.Rescan(ctx)
}

func (m *Manager) stopAll() {
	for id, at := range m.active {
		at.cancel()
		<-at.done
		delete(m.active, id)
	}
}
