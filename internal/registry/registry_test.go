package registry

import (
	"os"
	"path/filepath"
	"testing"
)

func writeEcosystem(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ecosystem.json")
	if err := os.WriteFile(path, []byte(contents), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRegistryResolvesNames(t *testing.T) {
	path := writeEcosystem(t, `{
		"sources": [
			{"id": "src_a", "name": "Alpha Feed", "file_path": "SourceA.log", "account_number": "55512"},
			{"id": "src_b", "name": "Beta Feed", "file_path": "SourceB.log"}
		]
	}`)

	r := New(path)
	if got := r.NameForFile("SourceA.log"); got != "Alpha Feed" {
		t.Errorf("NameForFile(SourceA.log) = %q", got)
	}
	if got := len(r.Sources()); got != 2 {
		t.Errorf("Sources() len = %d, want 2", got)
	}
}

func TestRegistryFallsBackToRawFilename(t *testing.T) {
	path := writeEcosystem(t, `{"sources": []}`)

	r := New(path)
	if got := r.NameForFile("Unknown.log"); got != "Unknown.log" {
		t.Errorf("fallback = %q, want raw filename", got)
	}
}

func TestRegistryToleratesMissingDocument(t *testing.T) {
	r := New(filepath.Join(t.TempDir(), "missing.json"))
	if got := len(r.Sources()); got != 0 {
		t.Errorf("Sources() len = %d, want 0", got)
	}
	if got := r.NameForFile("SourceA.log"); got != "SourceA.log" {
		t.Errorf("fallback = %q", got)
	}
}

func TestRegistryToleratesMalformedDocument(t *testing.T) {
	path := writeEcosystem(t, "{broken")
	r := New(path)
	if got := len(r.Sources()); got != 0 {
		t.Errorf("Sources() len = %d, want 0", got)
	}
}

func TestRegistryReloadPicksUpChanges(t *testing.T) {
	path := writeEcosystem(t, `{"sources": [{"id": "src_a", "name": "Alpha Feed", "file_path": "SourceA.log"}]}`)
	r := New(path)

	if err := os.WriteFile(path, []byte(`{"sources": [{"id": "src_a", "name": "Renamed Feed", "file_path": "SourceA.log"}]}`), 0644); err != nil {
		t.Fatal(err)
	}
	r.Reload()

	if got := r.NameForFile("SourceA.log"); got != "Renamed Feed" {
		t.Errorf("after reload = %q", got)
	}
}
