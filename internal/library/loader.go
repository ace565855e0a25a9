// Package library materializes macro path files from a directory into the
// mapping the engine consumes. Loading is the only I/O in front of the
// engine; the engine itself never touches the filesystem.
package library

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/pedro-visualizer/backend/internal/engine"
	"github.com/pedro-visualizer/backend/internal/models"
)

// maxConcurrentLoads bounds the parallel initial directory load.
const maxConcurrentLoads = 8

// Loader reads macro path files into an engine Library keyed by file name.
type Loader struct {
	mu   sync.RWMutex
	dir  string
	data map[string]models.PathData
}

// NewLoader creates a loader over dir. Call LoadAll to populate it.
func NewLoader(dir string) *Loader {
	return &Loader{
		dir:  dir,
		data: make(map[string]models.PathData),
	}
}

// Dir returns the directory the loader reads from.
func (l *Loader) Dir() string {
	return l.dir
}

// IsPathFile reports whether name is a macro path file. Only the .pp family
// is accepted, so unrelated JSON or YAML in the directory never enters the
// macro list.
func IsPathFile(name string) bool {
	n := strings.ToLower(name)
	return strings.HasSuffix(n, ".pp") ||
		strings.HasSuffix(n, ".pp.json") ||
		strings.HasSuffix(n, ".pp.yaml") ||
		strings.HasSuffix(n, ".pp.yml")
}

// LoadAll populates the loader from its directory. Unreadable files are
// logged and skipped: missing macro data is the engine's salvage case, not a
// load failure.
func (l *Loader) LoadAll(ctx context.Context) error {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		return fmt.Errorf("reading paths directory: %w", err)
	}

	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentLoads)
	for _, e := range entries {
		if e.IsDir() || !IsPathFile(e.Name()) {
			continue
		}
		name := e.Name()
		g.Go(func() error {
			if err := l.Reload(name); err != nil {
				fmt.Printf("[Library] skipping %s: %v\n", name, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	l.mu.RLock()
	n := len(l.data)
	l.mu.RUnlock()
	fmt.Printf("[Library] loaded %d path file(s) from %s\n", n, l.dir)
	return nil
}

// Reload reads one file from disk into the library.
func (l *Loader) Reload(name string) error {
	raw, err := os.ReadFile(filepath.Join(l.dir, name))
	if err != nil {
		return fmt.Errorf("reading %s: %w", name, err)
	}

	data, err := Decode(name, raw)
	if err != nil {
		return err
	}

	l.mu.Lock()
	l.data[name] = data
	l.mu.Unlock()
	return nil
}

// Forget drops a file from the library. The engine's salvage policy keeps
// already-placed instances alive until the data returns.
func (l *Loader) Forget(name string) {
	l.mu.Lock()
	delete(l.data, name)
	l.mu.Unlock()
}

// Get returns one macro's data.
func (l *Loader) Get(name string) (models.PathData, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	d, ok := l.data[name]
	return d, ok
}

// Names returns the loaded file names.
func (l *Loader) Names() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	names := make([]string, 0, len(l.data))
	for n := range l.data {
		names = append(names, n)
	}
	return names
}

// Snapshot returns an isolated copy of the library for one engine call, so
// concurrent reloads cannot mutate data mid-reconciliation.
func (l *Loader) Snapshot() engine.Library {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make(engine.Library, len(l.data))
	for name, d := range l.data {
		out[name] = d.Clone()
	}
	return out
}

// Decode parses a path file body. YAML files are decoded through their
// generic form so the JSON union types apply to both formats.
func Decode(name string, raw []byte) (models.PathData, error) {
	var data models.PathData
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml":
		var generic interface{}
		if err := yaml.Unmarshal(raw, &generic); err != nil {
			return data, fmt.Errorf("parsing %s: %w", name, err)
		}
		jsonRaw, err := json.Marshal(normalizeYAML(generic))
		if err != nil {
			return data, fmt.Errorf("converting %s: %w", name, err)
		}
		if err := json.Unmarshal(jsonRaw, &data); err != nil {
			return data, fmt.Errorf("parsing %s: %w", name, err)
		}
	default:
		if err := json.Unmarshal(raw, &data); err != nil {
			return data, fmt.Errorf("parsing %s: %w", name, err)
		}
	}
	return data, nil
}

// normalizeYAML rewrites yaml.v3's map[string]interface{} trees into
// json-marshalable values. yaml.v3 already uses string keys for mappings, but
// nested map[interface{}]interface{} can still appear for non-string keys.
func normalizeYAML(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		for k, val := range t {
			t[k] = normalizeYAML(val)
		}
		return t
	case map[interface{}]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, val := range t {
			out[fmt.Sprintf("%v", k)] = normalizeYAML(val)
		}
		return out
	case []interface{}:
		for i, val := range t {
			t[i] = normalizeYAML(val)
		}
		return t
	default:
		return v
	}
}
