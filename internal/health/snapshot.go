package health

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/MehdiGhouryani/tradecopier-watch/internal/observ"
)

type snapshotFile struct {
	UpdatedAt string           `json:"updated_at"`
	Sources   map[string]State `json:"sources"`
}

// WriteSnapshot publishes the status map as an eventually-consistent read
// model for the external status display. Same temp-then-rename discipline as
// the correlation store: a reader never observes a half-written file.
func (m *Monitor) WriteSnapshot() error {
	snap := snapshotFile{
		UpdatedAt: m.now().UTC().Format(time.RFC3339),
		Sources:   m.Snapshot(),
	}
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal status snapshot: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(m.snapshotPath), 0755); err != nil {
		return fmt.Errorf("create snapshot dir: %w", err)
	}
	tmp := m.snapshotPath + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("write temp snapshot: %w", err)
	}
	if err := os.Rename(tmp, m.snapshotPath); err != nil {
		return fmt.Errorf("rename snapshot: %w", err)
	}
	return nil
}

// RunSnapshots writes the snapshot on a fixed interval until ctx is
// cancelled, then once more so the last state survives shutdown.
func (m *Monitor) RunSnapshots(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			if err := m.WriteSnapshot(); err != nil {
				observ.Log("snapshot_write_error", map[string]any{"error": err.Error()})
			}
			return
		case <-ticker.C:
			if err := m.WriteSnapshot(); err != nil {
				observ.Log("snapshot_write_error", map[string]any{"error": err.Error()})
			}
		}
	}
}
