package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/MehdiGhouryani/tradecopier-watch/internal/registry"
)

type fakeTails struct {
	mu     sync.Mutex
	starts []string // "id:basename" in start order
}

func (f *fakeTails) run(ctx context.Context, id, path string) {
	f.mu.Lock()
	f.starts = append(f.starts, id+":"+filepath.Base(path))
	f.mu.Unlock()
	<-ctx.Done()
}

func (f *fakeTails) started() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.starts...)
}

// waitStarts polls until at least n starts have been recorded (or a deadline
// passes), since the manager records starts from the spawned tailer goroutine
// asynchronously to Rescan returning.
func (f *fakeTails) waitStarts(t *testing.T, n int) []string {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		got := f.started()
		if len(got) >= n || time.Now().After(deadline) {
			return got
		}
		time.Sleep(time.Millisecond)
	}
}

func newTestManager(t *testing.T) (*Manager, *fakeTails, string) {
	t.Helper()
	dir := t.TempDir()
	tails := &fakeTails{}
	reg := registry.New(filepath.Join(dir, "ecosystem.json")) // absent doc, empty registry
	return NewManager(dir, "TradeCopier", reg, tails.run), tails, dir
}

func writeLog(t *testing.T, dir, name string, mtime time.Time) {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("x\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.Chtimes(path, mtime, mtime); err != nil {
		t.Fatal(err)
	}
}

func TestRescanElectsNewestFilePerID(t *testing.T) {
	m, tails, dir := newTestManager(t)
	now := time.Now()

	writeLog(t, dir, "TradeCopier_copy_A_2025.05.31.log", now.Add(-24*time.Hour))
	writeLog(t, dir, "TradeCopier_copy_A_2025.06.01.log", now)
	writeLog(t, dir, "TradeCopier_copy_B_2025.06.01.log", now)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m.Rescan(ctx)

	active := m.ActiveFiles()
	if len(active) != 2 {
		t.Fatalf("active tailers = %d, want 2", len(active))
	}
	if got := filepath.Base(active["copy_A"]); got != "TradeCopier_copy_A_2025.06.01.log" {
		t.Errorf("copy_A tails %q, want the newer file", got)
	}
	if got := len(tails.waitStarts(t, 2)); got != 2 {
		t.Errorf("starts = %d, want 2", got)
	}
	m.stopAll()
}

func TestRescanIsIdempotent(t *testing.T) {
	m, tails, dir := newTestManager(t)
	writeLog(t, dir, "TradeCopier_copy_A_2025.06.01.log", time.Now())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m.Rescan(ctx)
	m.Rescan(ctx)
	m.Rescan(ctx)

	if got := len(tails.waitStarts(t, 1)); got != 1 {
		t.Fatalf("rescans with no file change restarted tailers: %d starts", got)
	}
	m.stopAll()
}

func TestRescanSwitchesToRotatedFile(t *testing.T) {
	m, tails, dir := newTestManager(t)
	now := time.Now()

	writeLog(t, dir, "TradeCopier_copy_A_2025.05.31.log", now.Add(-24*time.Hour))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m.Rescan(ctx)

	writeLog(t, dir, "TradeCopier_copy_A_2025.06.01.log", now)
	m.Rescan(ctx)

	want := []string{
		"copy_A:TradeCopier_copy_A_2025.05.31.log",
		"copy_A:TradeCopier_copy_A_2025.06.01.log",
	}
	got := tails.waitStarts(t, 2)
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("starts = %v, want %v", got, want)
	}
	if len(m.ActiveFiles()) != 1 {
		t.Fatalf("active tailers = %d, want exactly 1 per id", len(m.ActiveFiles()))
	}
	m.stopAll()
}

func TestRescanIgnoresUncapturableNames(t *testing.T) {
	m, tails, dir := newTestManager(t)
	now := time.Now()

	writeLog(t, dir, "TradeCopier_nodate.log", now)
	writeLog(t, dir, "Other_copy_A_2025.06.01.log", now)
	writeLog(t, dir, "TradeCopier_copy_A_2025.06.01.log.bak", now)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m.Rescan(ctx)

	if got := len(tails.started()); got != 0 {
		t.Fatalf("starts = %d, want 0 (no capturable names)", got)
	}
}
