package catalog

import (
	"encoding/gob"
	"fmt"
	"os"
)

// loadGob deserializes a manifest snapshot.
func loadGob(path string) (*Manifest, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open gob file: %w", err)
	}
	defer f.Close()

	var m Manifest
	if err := gob.NewDecoder(f).Decode(&m); err != nil {
		return nil, fmt.Errorf("decode gob: %w", err)
	}
	return &m, nil
}

// SaveGob serializes a validated manifest to path.
func SaveGob(m *Manifest, path string) error {
	if err := m.Validate(); err != nil {
		return fmt.Errorf("snapshot: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create gob file: %w", err)
	}
	defer f.Close()

	if err := gob.NewEncoder(f).Encode(m); err != nil {
		return fmt.Errorf("encode gob: %w", err)
	}
	return nil
}
