// Package session holds one user's selection state and drives rendering,
// history and AI generation from it.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/hazyhaar/promptpalette/pkg/catalog"
	"github.com/hazyhaar/promptpalette/pkg/generate"
	"github.com/hazyhaar/promptpalette/pkg/history"
	"github.com/hazyhaar/promptpalette/pkg/prompt"
)

var (
	ErrBusy         = errors.New("generation already in progress")
	ErrGeneration   = errors.New("có lỗi xảy ra khi kết nối với AI. Vui lòng thử lại sau")
	ErrStale        = errors.New("selection changed during generation; result discarded")
	ErrUnknownTopic = errors.New("unknown topic")
	ErrUnknownEntry = errors.New("unknown history entry")

	ErrConflictingTopic = errors.New("topic and customTopic are mutually exclusive")
)

// Deps are the collaborators of a Session.
type Deps struct {
	Catalog   *catalog.Registry
	History   *history.History
	Generator generate.Generator
	// APIKey is the single credential passed to Generator.
	APIKey string
	Logger *slog.Logger
}

// selectionKey is what the rendered prompt depends on.
type selectionKey struct {
	subjectID string
	topic     string
	paletteID string
	mode      prompt.DesignMode
}

// Session is safe for concurrent use.
type Session struct {
	deps   Deps
	logger *slog.Logger

	mu        sync.Mutex
	subjectID string
	topic     TopicChoice
	paletteID string
	mode      prompt.DesignMode
	search    string

	key      selectionKey
	rendered string
	aiResult string
	copied   bool
	saved    bool
	busy     bool
	// sel increments whenever the selection key moves. An in-flight
	// generation compares it to tell whether its answer is stale.
	sel uint64
}

// New starts a session on the first subject and palette of the catalog in
// 2D mode.
func New(deps Deps) *Session {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	s := &Session{deps: deps, logger: logger, mode: prompt.TwoD}
	c := deps.Catalog.Current()
	if c != nil {
		if subjects := c.Subjects(); len(subjects) > 0 {
			s.subjectID = subjects[0].ID
		}
		if palettes := c.Palettes(); len(palettes) > 0 {
			s.paletteID = palettes[0].ID
		}
	}
	s.mu.Lock()
	s.refresh()
	s.mu.Unlock()
	return s
}

// subject resolves the current subject, falling back to the first one when
// the id vanished on reload.
func (s *Session) subject(c *catalog.Catalog) *catalog.Subject {
	if c == nil {
		return nil
	}
	if subj, ok := c.Subject(s.subjectID); ok {
		return subj
	}
	if subjects := c.Subjects(); len(subjects) > 0 {
		return subjects[0]
	}
	return nil
}

func (s *Session) palette(c *catalog.Catalog) *catalog.Palette {
	if c == nil {
		return nil
	}
	if p, ok := c.Palette(s.paletteID); ok {
		return p
	}
	if palettes := c.Palettes(); len(palettes) > 0 {
		return &palettes[0]
	}
	return nil
}

// input resolves the selection. ok is false when there is no effective topic.
func (s *Session) input(c *catalog.Catalog) (prompt.Input, bool) {
	topic := s.topic.Effective()
	subj := s.subject(c)
	if topic == "" || subj == nil {
		return prompt.Input{}, false
	}
	in := prompt.Input{SubjectName: subj.Name, TopicName: topic, Mode: s.mode}
	if p := s.palette(c); p != nil {
		in.PaletteName = p.Name
		in.PaletteDescription = p.Description
	}
	return in, true
}

// render builds the prompt for the current selection, or "" without an
// effective topic. Callers hold mu.
func (s *Session) render() string {
	if in, ok := s.input(s.deps.Catalog.Current()); ok {
		return prompt.Render(in)
	}
	return ""
}

// refresh re-renders after a selection change. When the selection key moved,
// the AI result and acknowledgment flags are cleared. Callers hold mu.
func (s *Session) refresh() {
	key := selectionKey{s.subjectID, s.topic.Effective(), s.paletteID, s.mode}
	if key == s.key && s.sel > 0 {
		return
	}
	s.key = key
	s.invalidate()
	s.rendered = s.render()
}

// invalidate marks the displayed output as belonging to a previous
// selection. Callers hold mu.
func (s *Session) invalidate() {
	s.sel++
	s.aiResult = ""
	s.copied = false
	s.saved = false
}

// CatalogReloaded re-renders against the active catalog after a reload.
// The AI result and flags survive when the rendered prompt is unchanged.
func (s *Session) CatalogReloaded() {
	s.mu.Lock()
	defer s.mu.Unlock()
	rendered := s.render()
	if rendered == s.rendered {
		return
	}
	s.invalidate()
	s.rendered = rendered
}

// Update is a batch of selection changes. Nil fields are left alone.
type Update struct {
	Subject     *string
	Topic       *string
	CustomTopic *string
	Palette     *string
	Mode        *prompt.DesignMode
	Search      *string
}

// Apply validates every field of u against the active catalog, then applies
// them together. On error nothing changes. A Subject change clears the topic
// and the search query before the other fields apply, so Topic is looked up
// in the target subject.
func (s *Session) Apply(u Update) error {
	if u.Topic != nil && u.CustomTopic != nil {
		return ErrConflictingTopic
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.deps.Catalog.Current()

	subj := s.subject(c)
	if u.Subject != nil {
		target, ok := c.Subject(*u.Subject)
		if !ok {
			return fmt.Errorf("%w: %q", catalog.ErrUnknownSubject, *u.Subject)
		}
		subj = target
	}
	if u.Topic != nil && (subj == nil || !subj.HasTopic(*u.Topic)) {
		return fmt.Errorf("%w: %q", ErrUnknownTopic, *u.Topic)
	}
	if u.Palette != nil {
		if _, ok := c.Palette(*u.Palette); !ok {
			return fmt.Errorf("%w: %q", catalog.ErrUnknownPalette, *u.Palette)
		}
	}

	if u.Subject != nil {
		s.subjectID = *u.Subject
		s.topic = TopicChoice{}
		s.search = ""
	}
	if u.Topic != nil {
		s.topic = SelectedTopic(*u.Topic)
	}
	if u.CustomTopic != nil {
		s.topic = CustomTopic(*u.CustomTopic)
	}
	if u.Palette != nil {
		s.paletteID = *u.Palette
	}
	if u.Mode != nil {
		s.mode = prompt.TwoD
		if *u.Mode == prompt.ThreeD {
			s.mode = prompt.ThreeD
		}
	}
	if u.Search != nil {
		s.search = *u.Search
	}
	s.refresh()
	return nil
}

// SetSubject switches subject and clears the topic and the search query.
func (s *Session) SetSubject(id string) error {
	return s.Apply(Update{Subject: &id})
}

// SelectTopic chooses a topic of the current subject.
func (s *Session) SelectTopic(topic string) error {
	return s.Apply(Update{Topic: &topic})
}

// SetCustomTopic replaces any selected topic with free text.
func (s *Session) SetCustomTopic(text string) {
	_ = s.Apply(Update{CustomTopic: &text})
}

func (s *Session) SetPalette(id string) error {
	return s.Apply(Update{Palette: &id})
}

func (s *Session) SetDesignMode(m prompt.DesignMode) {
	_ = s.Apply(Update{Mode: &m})
}

// SetSearch updates the topic filter. It does not touch the rendered output.
func (s *Session) SetSearch(q string) {
	_ = s.Apply(Update{Search: &q})
}

// Topics returns the current subject's topics filtered by the search query.
func (s *Session) Topics() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.deps.Catalog.Current()
	subj := s.subject(c)
	if subj == nil {
		return nil
	}
	topics, err := c.Search(subj.ID, s.search)
	if err != nil {
		return nil
	}
	return topics
}

// State is a point-in-time copy of the session.
type State struct {
	SubjectID      string            `json:"subjectId"`
	SubjectName    string            `json:"subjectName"`
	Topic          TopicChoice       `json:"topic"`
	EffectiveTopic string            `json:"effectiveTopic"`
	PaletteID      string            `json:"paletteId"`
	PaletteName    string            `json:"paletteName"`
	DesignMode     prompt.DesignMode `json:"designMode"`
	Search         string            `json:"search"`
	Prompt         string            `json:"prompt"`
	AIResult       string            `json:"aiResult"`
	Copied         bool              `json:"copied"`
	Saved          bool              `json:"saved"`
	Busy           bool              `json:"busy"`
}

// Display is the text the results pane shows: the AI result when present,
// else the rendered prompt.
func (st State) Display() string {
	if st.AIResult != "" {
		return st.AIResult
	}
	return st.Prompt
}

func (s *Session) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot()
}

func (s *Session) snapshot() State {
	c := s.deps.Catalog.Current()
	st := State{
		Topic:          s.topic,
		EffectiveTopic: s.topic.Effective(),
		DesignMode:     s.mode,
		Search:         s.search,
		Prompt:         s.rendered,
		AIResult:       s.aiResult,
		Copied:         s.copied,
		Saved:          s.saved,
		Busy:           s.busy,
	}
	if subj := s.subject(c); subj != nil {
		st.SubjectID, st.SubjectName = subj.ID, subj.Name
	}
	if p := s.palette(c); p != nil {
		st.PaletteID, st.PaletteName = p.ID, p.Name
	}
	return st
}

// record adds text to history under the current selection. Callers hold mu.
func (s *Session) record(text string, aiResult bool) (history.Entry, bool) {
	if s.deps.History == nil {
		return history.Entry{}, false
	}
	st := s.snapshot()
	return s.deps.History.Add(history.Entry{
		Topic:       st.EffectiveTopic,
		SubjectName: st.SubjectName,
		PaletteName: st.PaletteName,
		Content:     text,
		IsAIResult:  aiResult,
		DesignMode:  s.mode,
	})
}

// Copy returns the displayed text and marks it copied. Copying the rendered
// prompt (not an AI result) also records it in history. ok is false when
// there is nothing to copy; the caller writes the text to its clipboard.
func (s *Session) Copy() (text string, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rendered == "" {
		return "", false
	}
	text = s.aiResult
	if text == "" {
		text = s.rendered
		s.record(text, false)
	}
	s.copied = true
	return text, true
}

// Save records the displayed text in history.
func (s *Session) Save() (history.Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rendered == "" {
		return history.Entry{}, false
	}
	text, isAI := s.aiResult, true
	if text == "" {
		text, isAI = s.rendered, false
	}
	e, _ := s.record(text, isAI)
	s.saved = true
	return e, true
}

// Generate sends the rendered prompt to the generator and displays the
// answer. With no effective topic it does nothing. A failure leaves the
// state untouched and returns ErrGeneration. If the selection changed while
// the call was outstanding the answer is recorded in history under the
// selection it was generated for, not displayed, and ErrStale is returned.
func (s *Session) Generate(ctx context.Context) (string, error) {
	s.mu.Lock()
	if s.rendered == "" {
		s.mu.Unlock()
		return "", nil
	}
	if s.busy {
		s.mu.Unlock()
		return "", ErrBusy
	}
	s.busy = true
	sel := s.sel
	text := s.rendered
	at := s.snapshot()
	s.mu.Unlock()

	s.logger.Info("generating", "subject", at.SubjectID, "topic", at.EffectiveTopic, "mode", at.DesignMode)
	result, err := s.deps.Generator.Generate(ctx, text, s.deps.APIKey)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.busy = false
	if err != nil {
		s.logger.Error("generation failed", "error", err, "topic", at.EffectiveTopic)
		return "", ErrGeneration
	}

	if s.sel != sel {
		s.logger.Warn("discarding stale generation result", "topic", at.EffectiveTopic)
		if s.deps.History != nil {
			s.deps.History.Add(history.Entry{
				Topic:       at.EffectiveTopic,
				SubjectName: at.SubjectName,
				PaletteName: at.PaletteName,
				Content:     result,
				IsAIResult:  true,
				DesignMode:  at.DesignMode,
			})
		}
		return "", ErrStale
	}

	s.aiResult = result
	s.copied = false
	s.saved = false
	s.record(result, true)
	return result, nil
}

// Reset drops the AI result and the acknowledgment flags, showing the
// rendered prompt again. The selection is unchanged, so a generation still
// outstanding will display its answer.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.aiResult = ""
	s.copied = false
	s.saved = false
}

// Restore reapplies a history entry: subject and palette by display name,
// the topic as a catalog topic when the subject has it (else as custom text),
// the design mode when recorded, and the AI result when the entry is one.
// Names no longer in the catalog leave the corresponding field unchanged.
func (s *Session) Restore(entryID string) error {
	if s.deps.History == nil {
		return fmt.Errorf("%w: %q", ErrUnknownEntry, entryID)
	}
	e, ok := s.deps.History.Get(entryID)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownEntry, entryID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.deps.Catalog.Current()
	if subj, ok := c.SubjectByName(e.SubjectName); ok {
		if subj.ID != s.subjectID {
			s.search = ""
		}
		s.subjectID = subj.ID
		if subj.HasTopic(e.Topic) {
			s.topic = SelectedTopic(e.Topic)
		} else {
			s.topic = CustomTopic(e.Topic)
		}
	}
	if p, ok := c.PaletteByName(e.PaletteName); ok {
		s.paletteID = p.ID
	}
	switch e.DesignMode {
	case prompt.TwoD, prompt.ThreeD:
		s.mode = e.DesignMode
	}
	s.refresh()

	s.copied = false
	s.saved = false
	if e.IsAIResult {
		s.aiResult = e.Content
	} else {
		s.aiResult = ""
	}
	return nil
}
