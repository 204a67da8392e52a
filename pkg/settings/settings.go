// Package settings manages the stored list of AI service credentials.
package settings

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/hazyhaar/promptpalette/pkg/kvstore"
)

// Credentials reads and writes the key list under kvstore.KeyCredentials.
//
// The list is user-managed configuration only; generation uses the single
// key from the process environment.
type Credentials struct {
	store  kvstore.Store
	logger *slog.Logger
}

func NewCredentials(store kvstore.Store, logger *slog.Logger) *Credentials {
	if logger == nil {
		logger = slog.Default()
	}
	return &Credentials{store: store, logger: logger}
}

// Keys returns the stored keys. A malformed value is logged and reads as empty.
func (c *Credentials) Keys() []string {
	raw, ok, err := c.store.Get(kvstore.KeyCredentials)
	if err != nil {
		c.logger.Warn("settings: read credentials failed", "error", err)
		return nil
	}
	if !ok || raw == "" {
		return nil
	}
	var keys []string
	if err := json.Unmarshal([]byte(raw), &keys); err != nil {
		c.logger.Warn("settings: malformed credentials, ignoring", "error", err)
		return nil
	}
	return keys
}

// ParseKeys splits text into one key per line, trimming and dropping blanks.
func ParseKeys(text string) []string {
	var keys []string
	for _, line := range strings.Split(text, "\n") {
		if k := strings.TrimSpace(line); k != "" {
			keys = append(keys, k)
		}
	}
	return keys
}

// SetFromText replaces the stored list with the keys in text. An empty list
// removes the entry.
func (c *Credentials) SetFromText(text string) ([]string, error) {
	keys := ParseKeys(text)
	if len(keys) == 0 {
		if err := c.store.Remove(kvstore.KeyCredentials); err != nil {
			return nil, fmt.Errorf("remove credentials: %w", err)
		}
		return nil, nil
	}
	data, err := json.Marshal(keys)
	if err != nil {
		return nil, fmt.Errorf("encode credentials: %w", err)
	}
	if err := c.store.Set(kvstore.KeyCredentials, string(data)); err != nil {
		return nil, fmt.Errorf("save credentials: %w", err)
	}
	return keys, nil
}

// Text renders the stored keys one per line, as SetFromText accepts them.
func (c *Credentials) Text() string {
	return strings.Join(c.Keys(), "\n")
}

// Masked returns the stored keys shortened for display.
func (c *Credentials) Masked() []string {
	keys := c.Keys()
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = Mask(k)
	}
	return out
}

// Mask keeps the first six characters of k.
func Mask(k string) string {
	r := []rune(k)
	if len(r) <= 6 {
		return string(r) + "…"
	}
	return string(r[:6]) + "…"
}
