package health

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/MehdiGhouryani/tradecopier-watch/internal/event"
	"github.com/MehdiGhouryani/tradecopier-watch/internal/observ"
	"github.com/MehdiGhouryani/tradecopier-watch/internal/registry"
)

type State string

const (
	StateConnected    State = "connected"
	StateDisconnected State = "disconnected"
	StateFileNotFound State = "file_not_found"
)

// Notifier is the dispatcher surface the monitor needs.
type Notifier interface {
	Dispatch(ctx context.Context, ev event.Event)
}

type sourceStatus struct {
	state     State
	lastAlert time.Time
}

// Monitor watches each registered source file's mtime and alerts on state
// transitions only: going stale, staying stale past the re-alert cooldown,
// recovering, or disappearing. A periodic snapshot of the status map is
// published for the external status display.
type Monitor struct {
	reg          *registry.Registry
	notifier     Notifier
	logDir       string
	snapshotPath string
	staleAfter   time.Duration
	realertAfter time.Duration

	now func() time.Time

	mu       sync.Mutex
	statuses map[string]*sourceStatus
}

func NewMonitor(reg *registry.Registry, notifier Notifier, logDir, snapshotPath string, staleAfter, realertAfter time.Duration) *Monitor {
	return &Monitor{
		reg:          reg,
		notifier:     notifier,
		logDir:       logDir,
		snapshotPath: snapshotPath,
		staleAfter:   staleAfter,
		realertAfter: realertAfter,
		now:          time.Now,
		statuses:     map[string]*sourceStatus{},
	}
}

// Check runs one inspection pass over all registered sources.
func (m *Monitor) Check(ctx context.Context) {
	sources := m.reg.Sources()
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	seen := map[string]bool{}
	for _, src := range sources {
		seen[src.FilePath] = true
		st, ok := m.statuses[src.FilePath]
		if !ok {
			st = &sourceStatus{state: StateConnected}
			m.statuses[src.FilePath] = st
		}

		info, err := os.Stat(m.resolve(src.FilePath))
		if err != nil {
			if st.state != StateFileNotFound {
				st.state = StateFileNotFound
				st.lastAlert = now
				m.transition(src, StateFileNotFound)
				m.notifier.Dispatch(ctx, event.SourceMissing{SourceFile: src.FilePath, SourceName: src.Name})
			}
			continue
		}

		stale := now.Sub(info.ModTime()) > m.staleAfter
		switch {
		case stale && st.state == StateConnected:
			st.state = StateDisconnected
			st.lastAlert = now
			m.transition(src, StateDisconnected)
			m.notifier.Dispatch(ctx, event.SourceStale{
				SourceFile: src.FilePath,
				SourceName: src.Name,
				LastWrite:  info.ModTime(),
			})
		case stale && st.state == StateDisconnected && now.Sub(st.lastAlert) >= m.realertAfter:
			st.lastAlert = now
			m.notifier.Dispatch(ctx, event.SourceStale{
				SourceFile: src.FilePath,
				SourceName: src.Name,
				LastWrite:  info.ModTime(),
				Reminder:   true,
			})
		case stale && st.state == StateFileNotFound:
			// The file came back but nobody is writing yet; treat it as
			// disconnected without repeating the missing-file alert.
			st.state = StateDisconnected
		case !stale && st.state != StateConnected:
			st.state = StateConnected
			st.lastAlert = now
			m.transition(src, StateConnected)
			m.notifier.Dispatch(ctx, event.SourceRecovered{SourceFile: src.FilePath, SourceName: src.Name})
		}
	}

	// Sources removed from the ecosystem drop out of the status map.
	for file := range m.statuses {
		if !seen[file] {
			delete(m.statuses, file)
		}
	}
}

func (m *Monitor) transition(src registry.Source, to State) {
	observ.IncCounter("source_state_transitions_total", map[string]string{"to": string(to)})
	observ.Log("source_state_changed", map[string]any{
		"source": src.FilePath,
		"name":   src.Name,
		"state":  string(to),
	})
}

func (m *Monitor) resolve(file string) string {
	if filepath.IsAbs(file) {
		return file
	}
	return filepath.Join(m.logDir, file)
}

// Run inspects sources on a fixed interval until ctx is cancelled.
func (m *Monitor) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Check(ctx)
		}
	}
}

// Snapshot returns the current file→state view.
func (m *Monitor) Snapshot() map[string]State {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]State, len(m.statuses))
	for file, st := range m.statuses {
		out[file] = st.state
	}
	return out
}
