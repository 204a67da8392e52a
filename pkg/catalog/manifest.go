package catalog

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// Manifest is the on-disk catalog: subjects with their topics, color
// palettes, and the abbreviation table used by topic search.
type Manifest struct {
	ID            string         `yaml:"id" json:"id"`
	Version       string         `yaml:"version" json:"version"`
	Locale        string         `yaml:"locale" json:"locale"`
	Normalize     string         `yaml:"normalize" json:"normalize,omitempty"`
	Subjects      []SubjectSpec  `yaml:"subjects" json:"subjects"`
	Palettes      []Palette      `yaml:"palettes" json:"palettes"`
	Abbreviations []Abbreviation `yaml:"abbreviations" json:"abbreviations"`
}

// SubjectSpec is a subject as written in the manifest.
type SubjectSpec struct {
	ID     string   `yaml:"id" json:"id"`
	Name   string   `yaml:"name" json:"name"`
	Topics []string `yaml:"topics" json:"topics"`
}

// Palette is a named color set whose description is quoted verbatim in
// rendered prompts.
type Palette struct {
	ID          string   `yaml:"id" json:"id"`
	Name        string   `yaml:"name" json:"name"`
	Colors      []string `yaml:"colors" json:"colors"`
	Description string   `yaml:"description" json:"description"`
}

// Abbreviation is one search shortcut and its expansions.
type Abbreviation struct {
	Key        string   `yaml:"key" json:"key"`
	Expansions []string `yaml:"expansions" json:"expansions"`
}

var hexColor = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

// LoadManifest reads and validates a catalog YAML file.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest %s: %w", path, err)
	}
	m, err := ParseManifest(data)
	if err != nil {
		return nil, fmt.Errorf("manifest %s: %w", path, err)
	}
	return m, nil
}

// ParseManifest decodes and validates catalog YAML.
func ParseManifest(data []byte) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Validate checks identifier uniqueness and non-empty content.
func (m *Manifest) Validate() error {
	if m.ID == "" {
		return fmt.Errorf("missing id")
	}

	seen := make(map[string]bool, len(m.Subjects))
	for i, s := range m.Subjects {
		if s.ID == "" {
			return fmt.Errorf("subject #%d: missing id", i)
		}
		if seen[s.ID] {
			return fmt.Errorf("subject %q: duplicate id", s.ID)
		}
		seen[s.ID] = true
		if len(s.Topics) == 0 {
			return fmt.Errorf("subject %q: no topics", s.ID)
		}
	}

	seen = make(map[string]bool, len(m.Palettes))
	for i, p := range m.Palettes {
		if p.ID == "" {
			return fmt.Errorf("palette #%d: missing id", i)
		}
		if seen[p.ID] {
			return fmt.Errorf("palette %q: duplicate id", p.ID)
		}
		seen[p.ID] = true
		for _, c := range p.Colors {
			if !hexColor.MatchString(c) {
				return fmt.Errorf("palette %q: invalid color %q", p.ID, c)
			}
		}
	}

	seen = make(map[string]bool, len(m.Abbreviations))
	for _, a := range m.Abbreviations {
		if strings.TrimSpace(a.Key) == "" {
			return fmt.Errorf("abbreviation: empty key")
		}
		if seen[a.Key] {
			return fmt.Errorf("abbreviation %q: duplicate key", a.Key)
		}
		seen[a.Key] = true
		if len(a.Expansions) == 0 {
			return fmt.Errorf("abbreviation %q: no expansions", a.Key)
		}
		for _, e := range a.Expansions {
			if strings.TrimSpace(e) == "" {
				return fmt.Errorf("abbreviation %q: empty expansion", a.Key)
			}
		}
	}
	return nil
}

// abbreviationTable converts the manifest list into a lookup table.
func (m *Manifest) abbreviationTable() Abbreviations {
	abbr := make(Abbreviations, len(m.Abbreviations))
	for _, a := range m.Abbreviations {
		abbr[a.Key] = a.Expansions
	}
	return abbr
}
