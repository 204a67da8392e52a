package catalog

import (
	"log/slog"
	"strings"
)

// Abbreviations maps an abbreviation ("pt") to the phrases it stands for
// ("phương trình").
type Abbreviations map[string][]string

// Matcher filters topic lists against a typed query. It holds the
// abbreviation table with keys and expansions already normalized.
type Matcher struct {
	normalize Normalizer
	abbr      map[string][]string
}

// NewMatcher prepares abbr for lookups with the given normalizer.
// A nil normalizer means Normalize.
func NewMatcher(normalize Normalizer, abbr Abbreviations) *Matcher {
	if normalize == nil {
		normalize = Normalize
	}
	m := &Matcher{normalize: normalize, abbr: make(map[string][]string, len(abbr))}
	var collisions int
	for key, phrases := range abbr {
		k := normalize(key)
		if k == "" {
			continue
		}
		if _, exists := m.abbr[k]; exists {
			collisions++
		}
		for _, p := range phrases {
			if n := normalize(p); n != "" {
				m.abbr[k] = append(m.abbr[k], n)
			}
		}
	}
	if collisions > 0 {
		slog.Warn("abbreviation collisions after normalization", "collisions", collisions)
	}
	return m
}

// Expansions returns the normalized phrases for an already-normalized query.
func (m *Matcher) Expansions(normalizedQuery string) []string {
	return m.abbr[normalizedQuery]
}

// Normalize applies the matcher's normalizer.
func (m *Matcher) Normalize(s string) string {
	return m.normalize(s)
}

// query is a search string prepared once per keystroke.
type query struct {
	text      string
	words     []string
	expansion []string
}

func (m *Matcher) prepare(q string) (query, bool) {
	text := strings.TrimSpace(m.normalize(q))
	if text == "" {
		return query{}, false
	}
	return query{
		text:      text,
		words:     strings.Fields(text),
		expansion: m.abbr[text],
	}, true
}

// matches reports whether a normalized topic satisfies any of the three
// predicates: substring, abbreviation expansion, or every query word.
func (q query) matches(topic string) bool {
	if strings.Contains(topic, q.text) {
		return true
	}
	for _, e := range q.expansion {
		if strings.Contains(topic, e) {
			return true
		}
	}
	if len(q.words) == 0 {
		return false
	}
	for _, w := range q.words {
		if !strings.Contains(topic, w) {
			return false
		}
	}
	return true
}

// Filter returns the topics matching q, in input order. A blank query
// returns topics itself.
func (m *Matcher) Filter(topics []string, q string) []string {
	return m.filter(topics, nil, q)
}

// filter is Filter with optional precomputed keys; keys[i] must be the
// normalized form of topics[i].
func (m *Matcher) filter(topics, keys []string, q string) []string {
	prepared, ok := m.prepare(q)
	if !ok {
		return topics
	}
	out := []string{}
	for i, t := range topics {
		var key string
		if keys != nil {
			key = keys[i]
		} else {
			key = m.normalize(t)
		}
		if prepared.matches(key) {
			out = append(out, t)
		}
	}
	return out
}

// FilterTopics is the stateless form of Matcher.Filter using Normalize.
func FilterTopics(topics []string, q string, abbr Abbreviations) []string {
	return NewMatcher(Normalize, abbr).Filter(topics, q)
}
