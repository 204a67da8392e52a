package session

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/hazyhaar/promptpalette/pkg/catalog"
	"github.com/hazyhaar/promptpalette/pkg/generate"
	"github.com/hazyhaar/promptpalette/pkg/history"
	"github.com/hazyhaar/promptpalette/pkg/kvstore"
	"github.com/hazyhaar/promptpalette/pkg/prompt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

// gate is a generator that blocks until release is called.
type gate struct {
	started chan struct{}
	release chan struct{}
	text    string
	err     error

	mu      sync.Mutex
	prompts []string
	keys    []string
}

func newGate(text string, err error) *gate {
	return &gate{started: make(chan struct{}, 1), release: make(chan struct{}), text: text, err: err}
}

func (g *gate) Generate(ctx context.Context, p, apiKey string) (string, error) {
	g.mu.Lock()
	g.prompts = append(g.prompts, p)
	g.keys = append(g.keys, apiKey)
	g.mu.Unlock()
	g.started <- struct{}{}
	select {
	case <-g.release:
	case <-ctx.Done():
		return "", ctx.Err()
	}
	return g.text, g.err
}

func instant(text string) generate.Generator {
	return generate.Func(func(context.Context, string, string) (string, error) { return text, nil })
}

func setup(t *testing.T, gen generate.Generator) (*Session, *history.History) {
	t.Helper()
	reg := catalog.NewRegistry("")
	require.NoError(t, reg.Load())
	h := history.Open(kvstore.NewMemory(), quiet)
	return New(Deps{Catalog: reg, History: h, Generator: gen, APIKey: "AIza-test", Logger: quiet}), h
}

func TestNew_Defaults(t *testing.T) {
	s, _ := setup(t, instant("x"))
	st := s.Snapshot()
	assert.Equal(t, "math", st.SubjectID)
	assert.Equal(t, "default", st.PaletteID)
	assert.Equal(t, prompt.TwoD, st.DesignMode)
	assert.Equal(t, NoTopic, st.Topic.Kind())
	assert.Empty(t, st.Prompt, "no effective topic renders nothing")
}

func TestTopicChoice(t *testing.T) {
	assert.Empty(t, TopicChoice{}.Effective())
	assert.Equal(t, "Phân số", SelectedTopic("Phân số").Effective())
	assert.Equal(t, "Lũy thừa", CustomTopic("  Lũy thừa ").Effective())
	assert.Empty(t, CustomTopic("   ").Effective())
}

func TestSelectionRendersPrompt(t *testing.T) {
	s, _ := setup(t, instant("x"))
	require.NoError(t, s.SelectTopic("Hàm số bậc nhất"))

	want := prompt.Render(prompt.Input{
		SubjectName:        "Toán",
		TopicName:          "Hàm số bậc nhất",
		PaletteName:        "Mặc định (Hài hòa)",
		PaletteDescription: "Màu pastel hài hòa, đa dạng, nhẹ nhàng, tạo cảm giác thân thiện",
		Mode:               prompt.TwoD,
	})
	assert.Equal(t, want, s.Snapshot().Prompt)

	s.SetCustomTopic("Lũy thừa")
	st := s.Snapshot()
	assert.Equal(t, Custom, st.Topic.Kind())
	assert.Contains(t, st.Prompt, `"Lũy thừa"`)

	assert.ErrorIs(t, s.SelectTopic("Quang hợp"), ErrUnknownTopic, "topic of another subject")
	assert.ErrorIs(t, s.SetPalette("neon"), catalog.ErrUnknownPalette)
	assert.ErrorIs(t, s.SetSubject("astronomy"), catalog.ErrUnknownSubject)
}

func TestSetSubject_ResetsTopicAndSearch(t *testing.T) {
	s, _ := setup(t, instant("x"))
	require.NoError(t, s.SelectTopic("Phân số"))
	s.SetSearch("pt")
	require.NoError(t, s.SetSubject("biology"))

	st := s.Snapshot()
	assert.Equal(t, NoTopic, st.Topic.Kind())
	assert.Empty(t, st.Search)
	assert.Empty(t, st.Prompt)
}

func TestApply_InvalidFieldChangesNothing(t *testing.T) {
	s, _ := setup(t, instant("ai answer"))
	require.NoError(t, s.SelectTopic("Hàm số bậc nhất"))
	_, err := s.Generate(context.Background())
	require.NoError(t, err)
	s.Copy()
	before := s.Snapshot()

	physics, missing, warm, neon := "physics", "does not exist", "warm", "neon"
	mode := prompt.ThreeD
	tests := []struct {
		name string
		u    Update
		want error
	}{
		{"topic not in target subject", Update{Subject: &physics, Topic: &missing}, ErrUnknownTopic},
		{"topic of old subject", Update{Subject: &physics, Topic: &before.EffectiveTopic}, ErrUnknownTopic},
		{"unknown palette", Update{Mode: &mode, Palette: &neon}, catalog.ErrUnknownPalette},
		{"both topic kinds", Update{Palette: &warm, Topic: &missing, CustomTopic: &missing}, ErrConflictingTopic},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, s.Apply(tt.u), tt.want)
			assert.Equal(t, before, s.Snapshot())
		})
	}
}

func TestApply_TopicResolvedInTargetSubject(t *testing.T) {
	s, _ := setup(t, instant("x"))
	require.NoError(t, s.SelectTopic("Hàm số bậc nhất"))

	physics, topic, warm := "physics", "Vận tốc", "warm"
	require.NoError(t, s.Apply(Update{Subject: &physics, Topic: &topic, Palette: &warm}))
	st := s.Snapshot()
	assert.Equal(t, "physics", st.SubjectID)
	assert.Equal(t, Selected, st.Topic.Kind())
	assert.Equal(t, "Vận tốc", st.EffectiveTopic)
	assert.Equal(t, "warm", st.PaletteID)
	assert.Contains(t, st.Prompt, "Vận tốc")
}

func TestTopics_FiltersCurrentSubject(t *testing.T) {
	s, _ := setup(t, instant("x"))
	all := s.Topics()
	s.SetSearch("pt")
	filtered := s.Topics()
	assert.Contains(t, filtered, "Hệ phương trình")
	assert.Less(t, len(filtered), len(all))

	s.SetSearch("   ")
	assert.Equal(t, all, s.Topics())
}

func TestInvalidation(t *testing.T) {
	changes := map[string]func(s *Session){
		"subject": func(s *Session) { require.NoError(t, s.SetSubject("physics")) },
		"topic":   func(s *Session) { require.NoError(t, s.SelectTopic("Phân số")) },
		"custom":  func(s *Session) { s.SetCustomTopic("Lũy thừa") },
		"palette": func(s *Session) { require.NoError(t, s.SetPalette("warm")) },
		"mode":    func(s *Session) { s.SetDesignMode(prompt.ThreeD) },
	}
	for name, change := range changes {
		t.Run(name, func(t *testing.T) {
			s, _ := setup(t, instant("tạo ảnh infographic 2d phẳng với {}"))
			require.NoError(t, s.SelectTopic("Hàm số bậc nhất"))
			_, err := s.Generate(context.Background())
			require.NoError(t, err)
			s.Copy()
			s.Save()
			require.NotEmpty(t, s.Snapshot().AIResult)

			change(s)
			st := s.Snapshot()
			assert.Empty(t, st.AIResult)
			assert.False(t, st.Copied)
			assert.False(t, st.Saved)
		})
	}
}

func TestInvalidation_SearchAndSameValueKeepResult(t *testing.T) {
	s, _ := setup(t, instant("answer"))
	require.NoError(t, s.SelectTopic("Hàm số bậc nhất"))
	_, err := s.Generate(context.Background())
	require.NoError(t, err)

	s.SetSearch("ham")
	require.NoError(t, s.SelectTopic("Hàm số bậc nhất"))
	s.SetDesignMode(prompt.TwoD)
	assert.Equal(t, "answer", s.Snapshot().AIResult)
}

func TestCopyAndSave(t *testing.T) {
	s, h := setup(t, instant("answer"))

	_, ok := s.Copy()
	assert.False(t, ok, "nothing to copy without a topic")
	_, ok = s.Save()
	assert.False(t, ok)
	assert.Zero(t, h.Len())

	require.NoError(t, s.SelectTopic("Phân số"))
	text, ok := s.Copy()
	require.True(t, ok)
	assert.Equal(t, s.Snapshot().Prompt, text)
	assert.True(t, s.Snapshot().Copied)
	require.Equal(t, 1, h.Len())
	assert.False(t, h.List()[0].IsAIResult)

	_, ok = s.Save()
	require.True(t, ok)
	assert.Equal(t, 1, h.Len(), "same content at head is not recorded twice")
	assert.True(t, s.Snapshot().Saved)

	_, err := s.Generate(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, h.Len(), "successful generation is recorded")
	head := h.List()[0]
	assert.True(t, head.IsAIResult)
	assert.Equal(t, "answer", head.Content)
	assert.Equal(t, "Phân số", head.Topic)
	assert.Equal(t, "Toán", head.SubjectName)
	assert.Equal(t, prompt.TwoD, head.DesignMode)

	text, _ = s.Copy()
	assert.Equal(t, "answer", text)
	assert.Equal(t, 2, h.Len(), "copying an AI result does not record it")
}

func TestGenerate_NoTopicIsNoop(t *testing.T) {
	g := newGate("x", nil)
	s, _ := setup(t, g)
	out, err := s.Generate(context.Background())
	assert.NoError(t, err)
	assert.Empty(t, out)
	assert.Empty(t, g.prompts)
}

func TestGenerate_FailureKeepsState(t *testing.T) {
	g := newGate("", errors.New("quota exceeded"))
	close(g.release)
	s, h := setup(t, g)
	require.NoError(t, s.SelectTopic("Phân số"))
	before := s.Snapshot()

	_, err := s.Generate(context.Background())
	assert.ErrorIs(t, err, ErrGeneration)
	assert.Equal(t, before, s.Snapshot())
	assert.Zero(t, h.Len())
	assert.Equal(t, []string{"AIza-test"}, g.keys, "single credential, no retry")
}

func TestGenerate_Busy(t *testing.T) {
	g := newGate("answer", nil)
	s, _ := setup(t, g)
	require.NoError(t, s.SelectTopic("Phân số"))

	done := make(chan error, 1)
	go func() {
		_, err := s.Generate(context.Background())
		done <- err
	}()
	<-g.started
	assert.True(t, s.Snapshot().Busy)

	_, err := s.Generate(context.Background())
	assert.ErrorIs(t, err, ErrBusy)

	close(g.release)
	require.NoError(t, <-done)
	st := s.Snapshot()
	assert.False(t, st.Busy)
	assert.Equal(t, "answer", st.AIResult)
	assert.Len(t, g.prompts, 1)
	assert.True(t, strings.HasPrefix(g.prompts[0], prompt.LeadPhrase(prompt.TwoD)))
}

func TestGenerate_StaleResultDiscarded(t *testing.T) {
	g := newGate("old answer", nil)
	s, h := setup(t, g)
	require.NoError(t, s.SelectTopic("Phân số"))

	done := make(chan error, 1)
	go func() {
		_, err := s.Generate(context.Background())
		done <- err
	}()
	<-g.started
	s.SetDesignMode(prompt.ThreeD)
	close(g.release)

	assert.ErrorIs(t, <-done, ErrStale)
	st := s.Snapshot()
	assert.Empty(t, st.AIResult, "stale result never shown")
	assert.Equal(t, prompt.ThreeD, st.DesignMode)

	require.Equal(t, 1, h.Len())
	e := h.List()[0]
	assert.Equal(t, "old answer", e.Content)
	assert.Equal(t, prompt.TwoD, e.DesignMode, "recorded under the selection it was generated for")
}

func TestGenerate_ResetDuringGenerationKeepsAnswer(t *testing.T) {
	g := newGate("answer", nil)
	s, h := setup(t, g)
	require.NoError(t, s.SelectTopic("Phân số"))

	done := make(chan error, 1)
	go func() {
		_, err := s.Generate(context.Background())
		done <- err
	}()
	<-g.started
	s.Reset()
	close(g.release)

	require.NoError(t, <-done)
	assert.Equal(t, "answer", s.Snapshot().AIResult)
	require.Equal(t, 1, h.Len())
	assert.True(t, h.List()[0].IsAIResult)
}

const reloadManifest = `id: reload-test
version: "1"
locale: vi-VN
subjects:
  - id: math
    name: Toán
    topics: ["Phân số"]
palettes:
  - id: default
    name: Mặc định
    colors: ["#FCA5A5"]
    description: Màu pastel
`

func TestCatalogReloaded(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(reloadManifest), 0o644))
	reg := catalog.NewRegistry(dir)
	require.NoError(t, reg.Load())
	s := New(Deps{Catalog: reg, Generator: instant("answer"), Logger: quiet})
	require.NoError(t, s.SelectTopic("Phân số"))
	_, err := s.Generate(context.Background())
	require.NoError(t, err)

	require.NoError(t, reg.Reload())
	s.CatalogReloaded()
	assert.Equal(t, "answer", s.Snapshot().AIResult, "same prompt keeps the result")

	updated := strings.Replace(reloadManifest, "Màu pastel", "Màu tươi sáng", 1)
	require.NoError(t, os.WriteFile(path, []byte(updated), 0o644))
	require.NoError(t, reg.Reload())
	s.CatalogReloaded()
	st := s.Snapshot()
	assert.Contains(t, st.Prompt, "Màu tươi sáng")
	assert.Empty(t, st.AIResult)
}

func TestReset(t *testing.T) {
	s, _ := setup(t, instant("answer"))
	require.NoError(t, s.SelectTopic("Phân số"))
	_, err := s.Generate(context.Background())
	require.NoError(t, err)
	s.Copy()

	s.Reset()
	st := s.Snapshot()
	assert.Empty(t, st.AIResult)
	assert.False(t, st.Copied)
	assert.NotEmpty(t, st.Prompt)
	assert.Equal(t, st.Prompt, st.Display())
}

func TestRestore(t *testing.T) {
	s, h := setup(t, instant("x"))

	catalogTopic, _ := h.Add(history.Entry{Topic: "Quang hợp", SubjectName: "Sinh học", PaletteName: "Ấm áp (Warm)",
		Content: "ai text", IsAIResult: true, DesignMode: prompt.ThreeD})
	customTopic, _ := h.Add(history.Entry{Topic: "Tế bào gốc", SubjectName: "Sinh học", PaletteName: "Không tồn tại",
		Content: "meta", IsAIResult: false})

	require.NoError(t, s.Restore(catalogTopic.ID))
	st := s.Snapshot()
	assert.Equal(t, "biology", st.SubjectID)
	assert.Equal(t, SelectedTopic("Quang hợp"), st.Topic)
	assert.Equal(t, "warm", st.PaletteID)
	assert.Equal(t, prompt.ThreeD, st.DesignMode)
	assert.Equal(t, "ai text", st.AIResult)
	assert.Equal(t, "ai text", st.Display())
	assert.True(t, strings.HasPrefix(st.Prompt, prompt.LeadPhrase(prompt.ThreeD)))

	require.NoError(t, s.Restore(customTopic.ID))
	st = s.Snapshot()
	assert.Equal(t, CustomTopic("Tế bào gốc"), st.Topic)
	assert.Equal(t, "warm", st.PaletteID, "unknown palette name leaves palette unchanged")
	assert.Equal(t, prompt.ThreeD, st.DesignMode, "no recorded mode leaves mode unchanged")
	assert.Empty(t, st.AIResult)

	assert.ErrorIs(t, s.Restore("missing"), ErrUnknownEntry)
}
