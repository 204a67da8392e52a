package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/hazyhaar/promptpalette/pkg/catalog"
	"github.com/hazyhaar/promptpalette/pkg/history"
	"github.com/hazyhaar/promptpalette/pkg/kit"
	"github.com/hazyhaar/promptpalette/pkg/onboarding"
	"github.com/hazyhaar/promptpalette/pkg/session"
	"github.com/hazyhaar/promptpalette/pkg/settings"
	"github.com/mark3labs/mcp-go/server"
)

var errMissingTopic = errors.New("missing topic")

// Deps are the components the HTTP API serves. MCP is optional; when set it
// is mounted at /mcp over streamable HTTP.
type Deps struct {
	Catalog     *catalog.Registry
	Session     *session.Session
	History     *history.History
	Credentials *settings.Credentials
	Tour        *onboarding.Tour
	MCP         *server.MCPServer
	Logger      *slog.Logger
}

// NewRouter returns an http.Handler with all PromptPalette API routes.
func NewRouter(d Deps) http.Handler {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	mux := http.NewServeMux()
	mw := func(op string) kit.Middleware {
		return kit.Chain(kit.RequestID(), kit.Logging(d.Logger, op))
	}
	h := &handler{
		listSubjects: mw("list_subjects")(listSubjectsEndpoint(d.Catalog)),
		searchTopics: mw("search_topics")(searchTopicsEndpoint(d.Catalog)),
		listPalettes: mw("list_palettes")(listPalettesEndpoint(d.Catalog)),
		render:       mw("render_prompt")(renderEndpoint(d.Catalog)),
		deps:         d,
	}

	mux.HandleFunc("GET /v1/health", h.handleHealth)
	mux.HandleFunc("GET /v1/subjects", h.handleListSubjects)
	mux.HandleFunc("GET /v1/subjects/{id}/topics", h.handleSearchTopics)
	mux.HandleFunc("GET /v1/palettes", h.handleListPalettes)
	mux.HandleFunc("POST /v1/render", h.handleRender)

	mux.HandleFunc("GET /v1/session", h.handleGetSession)
	mux.HandleFunc("PATCH /v1/session", h.handlePatchSession)
	mux.HandleFunc("POST /v1/session/copy", h.handleCopy)
	mux.HandleFunc("POST /v1/session/save", h.handleSave)
	mux.HandleFunc("POST /v1/session/generate", h.handleGenerate)
	mux.HandleFunc("POST /v1/session/reset", h.handleReset)

	mux.HandleFunc("GET /v1/history", h.handleListHistory)
	mux.HandleFunc("DELETE /v1/history", h.handleClearHistory)
	mux.HandleFunc("DELETE /v1/history/{id}", h.handleDeleteHistory)
	mux.HandleFunc("POST /v1/history/{id}/restore", h.handleRestore)

	mux.HandleFunc("GET /v1/settings/keys", h.handleGetKeys)
	mux.HandleFunc("PUT /v1/settings/keys", h.handlePutKeys)

	mux.HandleFunc("GET /v1/onboarding", h.handleGetOnboarding)
	mux.HandleFunc("POST /v1/onboarding/next", h.handleOnboardingNext)
	mux.HandleFunc("POST /v1/onboarding/prev", h.handleOnboardingPrev)
	mux.HandleFunc("POST /v1/onboarding/complete", h.handleOnboardingComplete)

	if d.MCP != nil {
		mux.Handle("/mcp", server.NewStreamableHTTPServer(d.MCP))
	}

	c := cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "X-Request-ID", "Mcp-Session-Id"},
		ExposedHeaders: []string{"X-Request-ID", "Mcp-Session-Id"},
		MaxAge:         300,
	})
	return c(requestID(mux))
}

type handler struct {
	listSubjects kit.Endpoint
	searchTopics kit.Endpoint
	listPalettes kit.Endpoint
	render       kit.Endpoint
	deps         Deps
}

// --- catalog ---

type healthResponse struct {
	Status  string       `json:"status"`
	Catalog catalog.Info `json:"catalog"`
}

func (h *handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok", Catalog: h.deps.Catalog.Info()})
}

func (h *handler) handleListSubjects(w http.ResponseWriter, r *http.Request) {
	h.serveEndpoint(w, r, h.listSubjects, nil)
}

func (h *handler) handleSearchTopics(w http.ResponseWriter, r *http.Request) {
	h.serveEndpoint(w, r, h.searchTopics, &searchReq{
		Subject: r.PathValue("id"),
		Query:   r.URL.Query().Get("q"),
	})
}

func (h *handler) handleListPalettes(w http.ResponseWriter, r *http.Request) {
	h.serveEndpoint(w, r, h.listPalettes, nil)
}

func (h *handler) handleRender(w http.ResponseWriter, r *http.Request) {
	var req renderReq
	if !decodeBody(w, r, &req) {
		return
	}
	h.serveEndpoint(w, r, h.render, &req)
}

func (h *handler) serveEndpoint(w http.ResponseWriter, r *http.Request, ep kit.Endpoint, req any) {
	resp, err := ep(r.Context(), req)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// --- helpers ---

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, catalog.ErrUnknownSubject),
		errors.Is(err, catalog.ErrUnknownPalette),
		errors.Is(err, session.ErrUnknownTopic),
		errors.Is(err, session.ErrUnknownEntry):
		return http.StatusNotFound
	case errors.Is(err, errMissingTopic), errors.Is(err, session.ErrConflictingTopic):
		return http.StatusBadRequest
	case errors.Is(err, session.ErrBusy), errors.Is(err, session.ErrStale):
		return http.StatusConflict
	case errors.Is(err, session.ErrGeneration):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 64*1024) // 64 KiB max
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

// requestID propagates X-Request-ID into the context, generating one when
// absent, and echoes it on the response.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		ctx := kit.WithTransport(kit.WithRequestID(r.Context(), id), kit.TransportHTTP)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
