package api

import (
	"net/http"

	"github.com/hazyhaar/promptpalette/pkg/history"
	"github.com/hazyhaar/promptpalette/pkg/onboarding"
	"github.com/hazyhaar/promptpalette/pkg/prompt"
	"github.com/hazyhaar/promptpalette/pkg/session"
)

// --- session ---

type sessionResponse struct {
	session.State
	Display string   `json:"display"`
	Topics  []string `json:"topics"`
}

func (h *handler) sessionState() sessionResponse {
	st := h.deps.Session.Snapshot()
	return sessionResponse{State: st, Display: st.Display(), Topics: h.deps.Session.Topics()}
}

func (h *handler) handleGetSession(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.sessionState())
}

// sessionPatch is validated as a whole and applied atomically: a rejected
// field leaves the session untouched. A subject change clears the topic
// first, so topic is looked up in the new subject.
type sessionPatch struct {
	Subject     *string            `json:"subject"`
	Topic       *string            `json:"topic"`
	CustomTopic *string            `json:"customTopic"`
	Palette     *string            `json:"palette"`
	Mode        *prompt.DesignMode `json:"mode"`
	Search      *string            `json:"search"`
}

func (h *handler) handlePatchSession(w http.ResponseWriter, r *http.Request) {
	var p sessionPatch
	if !decodeBody(w, r, &p) {
		return
	}
	err := h.deps.Session.Apply(session.Update{
		Subject:     p.Subject,
		Topic:       p.Topic,
		CustomTopic: p.CustomTopic,
		Palette:     p.Palette,
		Mode:        p.Mode,
		Search:      p.Search,
	})
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, h.sessionState())
}

type copyResponse struct {
	Text string `json:"text"`
}

// handleCopy returns the text to place on the client's clipboard. 204 means
// there is nothing to copy.
func (h *handler) handleCopy(w http.ResponseWriter, r *http.Request) {
	text, ok := h.deps.Session.Copy()
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, copyResponse{Text: text})
}

func (h *handler) handleSave(w http.ResponseWriter, r *http.Request) {
	e, ok := h.deps.Session.Save()
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (h *handler) handleGenerate(w http.ResponseWriter, r *http.Request) {
	if _, err := h.deps.Session.Generate(r.Context()); err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, h.sessionState())
}

func (h *handler) handleReset(w http.ResponseWriter, r *http.Request) {
	h.deps.Session.Reset()
	writeJSON(w, http.StatusOK, h.sessionState())
}

// --- history ---

type historyResponse struct {
	Entries []history.Entry `json:"entries"`
}

func (h *handler) handleListHistory(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, historyResponse{Entries: h.deps.History.List()})
}

func (h *handler) handleDeleteHistory(w http.ResponseWriter, r *http.Request) {
	if !h.deps.History.Delete(r.PathValue("id")) {
		writeError(w, http.StatusNotFound, session.ErrUnknownEntry.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) handleClearHistory(w http.ResponseWriter, r *http.Request) {
	h.deps.History.Clear()
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) handleRestore(w http.ResponseWriter, r *http.Request) {
	if err := h.deps.Session.Restore(r.PathValue("id")); err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, h.sessionState())
}

// --- settings ---

type keysResponse struct {
	Count int      `json:"count"`
	Keys  []string `json:"keys"`
}

type keysRequest struct {
	Text string `json:"text"`
}

func (h *handler) handleGetKeys(w http.ResponseWriter, r *http.Request) {
	masked := h.deps.Credentials.Masked()
	writeJSON(w, http.StatusOK, keysResponse{Count: len(masked), Keys: masked})
}

func (h *handler) handlePutKeys(w http.ResponseWriter, r *http.Request) {
	var req keysRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if _, err := h.deps.Credentials.SetFromText(req.Text); err != nil {
		h.deps.Logger.Error("save credentials", "error", err)
		writeError(w, http.StatusInternalServerError, "could not save keys")
		return
	}
	h.handleGetKeys(w, r)
}

// --- onboarding ---

type onboardingResponse struct {
	State string           `json:"state"`
	Show  bool             `json:"show"`
	Index int              `json:"index"`
	Total int              `json:"total"`
	Step  *onboarding.Step `json:"step,omitempty"`
}

func (h *handler) onboardingState() onboardingResponse {
	t := h.deps.Tour
	resp := onboardingResponse{State: t.State().String(), Index: -1, Total: len(onboarding.Steps)}
	if step, idx, ok := t.Current(); ok {
		resp.Show, resp.Index, resp.Step = true, idx, &step
	}
	return resp
}

func (h *handler) handleGetOnboarding(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.onboardingState())
}

func (h *handler) handleOnboardingNext(w http.ResponseWriter, r *http.Request) {
	h.finishOnboarding(w, h.deps.Tour.Next())
}

func (h *handler) handleOnboardingPrev(w http.ResponseWriter, r *http.Request) {
	h.deps.Tour.Prev()
	writeJSON(w, http.StatusOK, h.onboardingState())
}

func (h *handler) handleOnboardingComplete(w http.ResponseWriter, r *http.Request) {
	h.finishOnboarding(w, h.deps.Tour.Complete())
}

// finishOnboarding reports the tour state. A failure to persist the flag is
// logged only; the tour is already marked shown for this process.
func (h *handler) finishOnboarding(w http.ResponseWriter, err error) {
	if err != nil {
		h.deps.Logger.Warn("onboarding flag not persisted", "error", err)
	}
	writeJSON(w, http.StatusOK, h.onboardingState())
}
