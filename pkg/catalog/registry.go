package catalog

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

const (
	manifestFile = "catalog.yaml"
	snapshotFile = "catalog.gob"
)

// Registry holds the active catalog and swaps it atomically on reload.
type Registry struct {
	mu         sync.RWMutex
	catalog    *Catalog
	catalogDir string
}

// NewRegistry creates a registry for catalogDir. An empty directory means the
// embedded default catalog.
func NewRegistry(catalogDir string) *Registry {
	return &Registry{catalogDir: catalogDir}
}

// Load reads the catalog. A catalog.gob snapshot takes priority over
// catalog.yaml.
func (r *Registry) Load() error {
	var (
		c   *Catalog
		err error
	)
	if r.catalogDir == "" {
		c, err = Default()
	} else {
		c, err = loadDir(r.catalogDir)
	}
	if err != nil {
		return err
	}

	r.mu.Lock()
	r.catalog = c
	r.mu.Unlock()
	return nil
}

// Reload reloads the catalog from disk (hot reload).
func (r *Registry) Reload() error {
	return r.Load()
}

func loadDir(dir string) (*Catalog, error) {
	gobPath := filepath.Join(dir, snapshotFile)
	if _, err := os.Stat(gobPath); err == nil {
		m, err := loadGob(gobPath)
		if err != nil {
			return nil, fmt.Errorf("catalog %s: %w", dir, err)
		}
		if err := m.Validate(); err != nil {
			return nil, fmt.Errorf("catalog %s: snapshot: %w", dir, err)
		}
		return Compile(m), nil
	}

	m, err := LoadManifest(filepath.Join(dir, manifestFile))
	if err != nil {
		return nil, err
	}
	return Compile(m), nil
}

// Current returns the active catalog. Callers may keep it; a reload never
// mutates a published catalog.
func (r *Registry) Current() *Catalog {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.catalog
}

// Info is the public summary of the loaded catalog.
type Info struct {
	ID       string `json:"id"`
	Version  string `json:"version"`
	Locale   string `json:"locale"`
	Subjects int    `json:"subjects"`
	Topics   int    `json:"topics"`
	Palettes int    `json:"palettes"`
}

// Info summarizes the active catalog.
func (r *Registry) Info() Info {
	c := r.Current()
	if c == nil {
		return Info{}
	}
	return Info{
		ID:       c.Manifest.ID,
		Version:  c.Manifest.Version,
		Locale:   c.Manifest.Locale,
		Subjects: len(c.subjects),
		Topics:   c.TopicCount(),
		Palettes: len(c.Manifest.Palettes),
	}
}
