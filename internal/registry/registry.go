package registry

import (
	"encoding/json"
	"os"
	"sync"

	"github.com/MehdiGhouryani/tradecopier-watch/internal/observ"
)

// Source is one upstream account in the ecosystem document. FilePath is the
// source's own log file, which is also the key events use to refer to it.
type Source struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	FilePath string `json:"file_path"`
	Account  string `json:"account_number"`
}

type document struct {
	Sources []Source `json:"sources"`
}

// Registry resolves source display names from the ecosystem document. The
// document is owned by the admin bot; the watcher only ever reads it, once
// per rescan cycle.
type Registry struct {
	path string

	mu     sync.RWMutex
	byFile map[string]Source
}

func New(path string) *Registry {
	r := &Registry{path: path, byFile: map[string]Source{}}
	r.Reload()
	return r
}

// Reload re-reads the ecosystem document. A missing or malformed document
// empties the registry and is logged; it never fails the caller.
func (r *Registry) Reload() {
	byFile := map[string]Source{}

	b, err := os.ReadFile(r.path)
	if err != nil {
		observ.Log("ecosystem_read_error", map[string]any{"path": r.path, "error": err.Error()})
	} else {
		var doc document
		if err := json.Unmarshal(b, &doc); err != nil {
			observ.Log("ecosystem_decode_error", map[string]any{"path": r.path, "error": err.Error()})
		} else {
			for _, s := range doc.Sources {
				if s.FilePath == "" {
					continue
				}
				byFile[s.FilePath] = s
			}
		}
	}

	r.mu.Lock()
	r.byFile = byFile
	r.mu.Unlock()
}

// NameForFile resolves a source file to its display name, falling back to
// the raw filename for sources the document does not know.
func (r *Registry) NameForFile(file string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if s, ok := r.byFile[file]; ok && s.Name != "" {
		return s.Name
	}
	return file
}

// Sources returns a snapshot of all registered sources.
func (r *Registry) Sources() []Source {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Source, 0, len(r.byFile))
	for _, s := range r.byFile {
		out = append(out, s)
	}
	return out
}
