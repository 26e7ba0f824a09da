package correlate

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/MehdiGhouryani/tradecopier-watch/internal/observ"
)

// Store maps a broker ticket to the display name of the source it was opened
// for, so the close notification can still name the source after a restart.
// Entries are written on TRADE_OPEN and consumed on the matching TRADE_CLOSE.
//
// The map lives in memory and is mirrored to disk by a low-frequency flush;
// losing the last few seconds of entries on a crash is acceptable, a corrupt
// file is not, hence write-to-temp plus atomic rename.
type Store struct {
	path string

	mu      sync.Mutex
	entries map[string]string
	dirty   bool
	gen     uint64
}

// Open loads the store from path. A file that does not decode as a flat
// string-to-string map is discarded and the store starts empty.
func Open(path string) *Store {
	s := &Store{path: path, entries: map[string]string{}}

	b, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			observ.Log("correlation_read_error", map[string]any{"path": path, "error": err.Error()})
		}
		return s
	}
	var entries map[string]string
	if err := json.Unmarshal(b, &entries); err != nil {
		observ.Log("correlation_state_invalid", map[string]any{"path": path, "error": err.Error()})
		return s
	}
	if entries == nil {
		// JSON null decodes into a nil map without error; keep the empty map
		// so Put never writes into nil.
		observ.Log("correlation_state_invalid", map[string]any{"path": path, "error": "document is null"})
		return s
	}
	s.entries = entries
	observ.Log("correlation_state_loaded", map[string]any{"path": path, "entries": len(entries)})
	return s
}

func (s *Store) Put(ticket, sourceName string) {
	s.mu.Lock()
	s.entries[ticket] = sourceName
	s.dirty = true
	s.gen++
	s.mu.Unlock()
}

func (s *Store) Resolve(ticket string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	name, ok := s.entries[ticket]
	return name, ok
}

func (s *Store) Delete(ticket string) {
	s.mu.Lock()
	if _, ok := s.entries[ticket]; ok {
		delete(s.entries, ticket)
		s.dirty = true
		s.gen++
	}
	s.mu.Unlock()
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Flush mirrors the map to disk if it changed since the last flush.
func (s *Store) Flush() error {
	s.mu.Lock()
	if !s.dirty {
		s.mu.Unlock()
		return nil
	}
	data, err := json.MarshalIndent(s.entries, "", "  ")
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("marshal correlation state: %w", err)
	}
	gen := s.gen
	s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("write temp correlation state: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("rename correlation state: %w", err)
	}

	// Clear dirty only once the rename landed, so a failed write is retried
	// on the next flush tick even without new mutations. A mutation that
	// raced the write keeps the store dirty.
	s.mu.Lock()
	if s.gen == gen {
		s.dirty = false
	}
	s.mu.Unlock()
	return nil
}

// Run flushes on a fixed interval until ctx is cancelled, then once more.
func (s *Store) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			if err := s.Flush(); err != nil {
				observ.Log("correlation_flush_error", map[string]any{"error": err.Error()})
			}
			return
		case <-ticker.C:
			if err := s.Flush(); err != nil {
				observ.Log("correlation_flush_error", map[string]any{"error": err.Error()})
			}
		}
	}
}
