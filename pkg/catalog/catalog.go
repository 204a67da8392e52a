package catalog

import (
	_ "embed"
	"errors"
	"fmt"
)

//go:embed default.yaml
var defaultManifest []byte

var (
	ErrUnknownSubject = errors.New("unknown subject")
	ErrUnknownPalette = errors.New("unknown palette")
)

// Subject is a loaded subject with the normalized key of each topic.
type Subject struct {
	ID     string   `json:"id"`
	Name   string   `json:"name"`
	Topics []string `json:"topics"`
	keys   []string
}

// HasTopic reports whether t is one of the subject's catalog topics.
func (s *Subject) HasTopic(t string) bool {
	for _, topic := range s.Topics {
		if topic == t {
			return true
		}
	}
	return false
}

// Catalog is a compiled, immutable manifest ready for lookups and search.
type Catalog struct {
	Manifest *Manifest
	subjects []*Subject
	byID     map[string]*Subject
	palettes map[string]*Palette
	matcher  *Matcher
}

// Compile builds lookup tables and precomputes topic keys.
func Compile(m *Manifest) *Catalog {
	norm := GetNormalizer(m.Normalize)
	c := &Catalog{
		Manifest: m,
		subjects: make([]*Subject, 0, len(m.Subjects)),
		byID:     make(map[string]*Subject, len(m.Subjects)),
		palettes: make(map[string]*Palette, len(m.Palettes)),
		matcher:  NewMatcher(norm, m.abbreviationTable()),
	}
	for _, def := range m.Subjects {
		s := &Subject{
			ID:     def.ID,
			Name:   def.Name,
			Topics: def.Topics,
			keys:   make([]string, len(def.Topics)),
		}
		for i, t := range def.Topics {
			s.keys[i] = norm(t)
		}
		c.subjects = append(c.subjects, s)
		c.byID[s.ID] = s
	}
	for i := range m.Palettes {
		p := &m.Palettes[i]
		c.palettes[p.ID] = p
	}
	return c
}

// Default returns the embedded catalog.
func Default() (*Catalog, error) {
	m, err := ParseManifest(defaultManifest)
	if err != nil {
		return nil, fmt.Errorf("default catalog: %w", err)
	}
	return Compile(m), nil
}

// Subjects returns subjects in catalog order.
func (c *Catalog) Subjects() []*Subject {
	return c.subjects
}

// Subject returns the subject with the given id.
func (c *Catalog) Subject(id string) (*Subject, bool) {
	s, ok := c.byID[id]
	return s, ok
}

// SubjectByName returns the first subject whose display name is name.
func (c *Catalog) SubjectByName(name string) (*Subject, bool) {
	for _, s := range c.subjects {
		if s.Name == name {
			return s, true
		}
	}
	return nil, false
}

// Palettes returns palettes in catalog order.
func (c *Catalog) Palettes() []Palette {
	return c.Manifest.Palettes
}

// Palette returns the palette with the given id.
func (c *Catalog) Palette(id string) (*Palette, bool) {
	p, ok := c.palettes[id]
	return p, ok
}

// PaletteByName returns the first palette whose display name is name.
func (c *Catalog) PaletteByName(name string) (*Palette, bool) {
	for i := range c.Manifest.Palettes {
		if c.Manifest.Palettes[i].Name == name {
			return &c.Manifest.Palettes[i], true
		}
	}
	return nil, false
}

// Abbreviations returns the manifest's abbreviation table.
func (c *Catalog) Abbreviations() Abbreviations {
	return c.Manifest.abbreviationTable()
}

// Search filters a subject's topics with q.
func (c *Catalog) Search(subjectID, q string) ([]string, error) {
	s, ok := c.byID[subjectID]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSubject, subjectID)
	}
	return c.matcher.filter(s.Topics, s.keys, q), nil
}

// Matcher returns the catalog's matcher.
func (c *Catalog) Matcher() *Matcher {
	return c.matcher
}

// TopicCount returns the number of topics across all subjects.
func (c *Catalog) TopicCount() int {
	total := 0
	for _, s := range c.subjects {
		total += len(s.Topics)
	}
	return total
}
