// Package history keeps the list of saved prompts and AI results, most
// recent first, persisted as one JSON array in a kvstore.Store.
package history

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hazyhaar/promptpalette/pkg/kvstore"
	"github.com/hazyhaar/promptpalette/pkg/prompt"
)

// MaxEntries is the number of entries kept; older ones are evicted.
const MaxEntries = 50

// Entry is one saved prompt or AI result.
type Entry struct {
	ID          string            `json:"id"`
	Topic       string            `json:"topic"`
	SubjectName string            `json:"subjectName"`
	PaletteName string            `json:"paletteName"`
	Content     string            `json:"content"`
	Timestamp   int64             `json:"timestamp"`
	IsAIResult  bool              `json:"isAiResult"`
	DesignMode  prompt.DesignMode `json:"designMode,omitempty"`
}

// Time returns the entry timestamp.
func (e Entry) Time() time.Time {
	return time.UnixMilli(e.Timestamp)
}

// History is the in-memory list backed by a store. The in-memory list is
// authoritative: a failed write is logged and the next write retries.
type History struct {
	mu      sync.RWMutex
	store   kvstore.Store
	logger  *slog.Logger
	entries []Entry
	now     func() time.Time
	newID   func() string
}

// Option configures a History.
type Option func(*History)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(h *History) { h.now = now }
}

// WithIDs overrides entry id generation.
func WithIDs(newID func() string) Option {
	return func(h *History) { h.newID = newID }
}

// Open loads the history from store. A missing or malformed value yields an
// empty history; it is never an error.
func Open(store kvstore.Store, logger *slog.Logger, opts ...Option) *History {
	if logger == nil {
		logger = slog.Default()
	}
	h := &History{
		store:  store,
		logger: logger,
		now:    time.Now,
		newID:  timeOrderedID,
	}
	for _, o := range opts {
		o(h)
	}
	h.entries = h.load()
	return h
}

func timeOrderedID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

func (h *History) load() []Entry {
	raw, ok, err := h.store.Get(kvstore.KeyHistory)
	if err != nil {
		h.logger.Warn("history: read failed, starting empty", "error", err)
		return nil
	}
	if !ok || raw == "" {
		return nil
	}
	var entries []Entry
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		h.logger.Warn("history: malformed data, starting empty", "error", err)
		return nil
	}
	if len(entries) > MaxEntries {
		entries = entries[:MaxEntries]
	}
	return entries
}

func (h *History) persist() {
	data, err := json.Marshal(h.entries)
	if err != nil {
		h.logger.Error("history: encode failed", "error", err)
		return
	}
	if err := h.store.Set(kvstore.KeyHistory, string(data)); err != nil {
		h.logger.Error("history: write failed", "error", err, "entries", len(h.entries))
	}
}

// Add inserts e at the head, assigning its ID and Timestamp. It returns false
// without changes when the current head has the same content.
func (h *History) Add(e Entry) (Entry, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.entries) > 0 && h.entries[0].Content == e.Content {
		return h.entries[0], false
	}

	now := h.now()
	e.ID = h.newID()
	e.Timestamp = now.UnixMilli()

	next := make([]Entry, 0, min(len(h.entries)+1, MaxEntries))
	next = append(next, e)
	next = append(next, h.entries...)
	if len(next) > MaxEntries {
		next = next[:MaxEntries]
	}
	h.entries = next
	h.persist()
	return e, true
}

// List returns a copy of the entries, most recent first.
func (h *History) List() []Entry {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]Entry, len(h.entries))
	copy(out, h.entries)
	return out
}

// Len returns the number of entries.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.entries)
}

// Get returns the entry with the given id.
func (h *History) Get(id string) (Entry, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, e := range h.entries {
		if e.ID == id {
			return e, true
		}
	}
	return Entry{}, false
}

// Delete removes the entry with the given id.
func (h *History) Delete(id string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	for i, e := range h.entries {
		if e.ID != id {
			continue
		}
		next := make([]Entry, 0, len(h.entries)-1)
		next = append(next, h.entries[:i]...)
		next = append(next, h.entries[i+1:]...)
		h.entries = next
		h.persist()
		return true
	}
	return false
}

// Clear removes every entry.
func (h *History) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries = nil
	if err := h.store.Remove(kvstore.KeyHistory); err != nil {
		h.logger.Error("history: clear failed", "error", err)
	}
}
