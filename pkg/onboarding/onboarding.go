// Package onboarding tracks the first-run tour: whether it has been shown and
// which step is displayed.
package onboarding

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/hazyhaar/promptpalette/pkg/kvstore"
)

// State is the persisted tour state.
type State int

const (
	NotShown State = iota
	Shown
)

func (s State) String() string {
	if s == Shown {
		return "shown"
	}
	return "not_shown"
}

const shownValue = "true"

// Step is one tour card. Target names the UI element it points at; empty
// means a centered dialog.
type Step struct {
	Target      string `json:"target,omitempty"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// Steps is the tour, in display order.
var Steps = []Step{
	{
		Title:       "Chào mừng bạn đến với PromptPalette Edu!",
		Description: "Ứng dụng hỗ trợ tạo prompt infographic giáo dục chuyên nghiệp. Hãy cùng dành 30 giây để tìm hiểu cách sử dụng nhé.",
	},
	{
		Target:      "subject",
		Title:       "Bước 1: Chọn Môn Học",
		Description: "Bắt đầu bằng việc chọn môn học bạn quan tâm từ danh sách các môn học hỗ trợ.",
	},
	{
		Target:      "topic",
		Title:       "Bước 2: Chọn Chủ Đề",
		Description: "Bạn có thể nhập chủ đề tùy chỉnh hoặc chọn nhanh từ danh sách gợi ý phía dưới.",
	},
	{
		Target:      "palette",
		Title:       "Bước 3: Chọn Màu Sắc",
		Description: "Lựa chọn tông màu pastel phù hợp để infographic của bạn trông thật đẹp mắt và hài hòa.",
	},
	{
		Target:      "generate",
		Title:       "Bước 4: Tạo Prompt AI",
		Description: "Cuối cùng, nhấn nút này để AI phân tích và tạo ra prompt chi tiết cho bạn. Sau đó bạn có thể sao chép và sử dụng!",
	},
}

// Tour is the tour state machine. The zero step index is the welcome card.
type Tour struct {
	mu     sync.Mutex
	store  kvstore.Store
	logger *slog.Logger
	state  State
	step   int
	// ready is set once the host signalled its first render; no step is
	// displayed before that.
	ready bool
}

// Open reads the persisted flag. Any value other than "true" reads as
// NotShown.
func Open(store kvstore.Store, logger *slog.Logger) *Tour {
	if logger == nil {
		logger = slog.Default()
	}
	t := &Tour{store: store, logger: logger}
	v, ok, err := store.Get(kvstore.KeyOnboarding)
	switch {
	case err != nil:
		logger.Warn("onboarding: read flag failed", "error", err)
	case ok && v == shownValue:
		t.state = Shown
	}
	return t
}

// State returns the persisted state.
func (t *Tour) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Await blocks until ready is closed (the host finished its first render),
// unlocks Current and reports whether the tour must be shown. It returns
// immediately when the tour was already shown.
func (t *Tour) Await(ctx context.Context, ready <-chan struct{}) (bool, error) {
	if t.State() == Shown {
		return false, nil
	}
	select {
	case <-ready:
	case <-ctx.Done():
		return false, ctx.Err()
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.ready = true
	return t.state == NotShown, nil
}

// Current returns the displayed step and its index. ok is false before Await
// saw the host ready and once the tour is complete.
func (t *Tour) Current() (step Step, index int, ok bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.ready || t.state == Shown {
		return Step{}, -1, false
	}
	return Steps[t.step], t.step, true
}

// Next advances one step. Next on the last step completes the tour.
func (t *Tour) Next() error {
	t.mu.Lock()
	if t.state == Shown {
		t.mu.Unlock()
		return nil
	}
	if t.step < len(Steps)-1 {
		t.step++
		t.mu.Unlock()
		return nil
	}
	t.mu.Unlock()
	return t.Complete()
}

// Prev goes back one step; it stays on the first.
func (t *Tour) Prev() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state == NotShown && t.step > 0 {
		t.step--
	}
}

// Complete ends the tour (finish or skip) and persists the flag. The tour
// is marked shown even when persisting fails.
func (t *Tour) Complete() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state = Shown
	t.step = 0
	if err := t.store.Set(kvstore.KeyOnboarding, shownValue); err != nil {
		return fmt.Errorf("persist onboarding flag: %w", err)
	}
	return nil
}
