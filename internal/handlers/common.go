// Package handlers is the local JSON gateway over capture sessions and the
// record browser.
package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/neuranote/neuranote/internal/browse"
	"github.com/neuranote/neuranote/internal/capture"
	"github.com/neuranote/neuranote/internal/storage"
)

type Handler struct {
	sessionStore *storage.SessionStore
	deps         capture.Deps
	browser      *browse.Browser
}

func New(deps capture.Deps, browser *browse.Browser) *Handler {
	return &Handler{
		sessionStore: storage.New(),
		deps:         deps,
		browser:      browser,
	}
}

// Routes builds the gateway router
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthcheck", func(w http.ResponseWriter, r *http.Request) {
		if _, err := w.Write([]byte("OK")); err != nil {
			slog.Error("Unable to write healthcheck", "err", err)
		}
	})

	r.Route("/api/sessions", func(r chi.Router) {
		r.Get("/", h.HandleListSessions)
		r.Post("/", h.HandleCreateSession)
		r.Route("/{sessionID}", func(r chi.Router) {
			r.Get("/", h.HandleGetSession)
			r.Patch("/", h.HandleUpdateSession)
			r.Delete("/", h.HandleDeleteSession)
			r.Post("/files", h.HandleAddFiles)
			r.Post("/frames", h.HandleAddFrame)
			r.Delete("/pages/{pageID}", h.HandleRemovePage)
			r.Post("/submit", h.HandleSubmit)
			r.Post("/prompts/import", h.HandleImportPrompts)
			r.Post("/prompts/select", h.HandleSelectImportedPrompt)
			r.Post("/prompts/dismiss", h.HandleDismissImportedPrompts)
			r.Post("/prompts/save", h.HandleSavePrompt)
		})
	})

	r.Get("/api/prompts", h.HandleListPrompts)

	r.Route("/api/browser", func(r chi.Router) {
		r.Get("/", h.HandleBrowserView)
		r.Get("/tree", h.HandleBrowserTree)
		r.Post("/tree/years/{year}", h.HandleToggleYear)
		r.Post("/tree/months/{month}", h.HandleToggleMonth)
		r.Post("/refresh", h.HandleBrowserRefresh)
		r.Post("/open", h.HandleBrowserOpen)
		r.Put("/query", h.HandleBrowserQuery)
		r.Post("/selection/all", h.HandleToggleAll)
		r.Post("/selection/{id}", h.HandleToggleSelection)
		r.Delete("/selection", h.HandleClearSelection)
		r.Post("/delete", h.HandleDeleteSelected)
		r.Post("/folders/{id}/favorite", h.HandleToggleFavorite)
		r.Delete("/folders/{id}", h.HandleDeleteFolder)
		r.Delete("/notes/{id}", h.HandleDeleteNote)
	})

	return r
}

func (h *Handler) newSession() *capture.Session {
	session := capture.NewSession(uuid.NewString(), h.deps)
	h.sessionStore.Set(session)
	slog.Info("Capture session created", "session_id", session.ID, "sessions", h.sessionStore.Len())
	return session
}

// Response helpers
func (h *Handler) writeJSON(w http.ResponseWriter, data interface{}) {
	h.writeJSONStatus(w, http.StatusOK, data)
}

func (h *Handler) writeJSONStatus(w http.ResponseWriter, code int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("Unable to encode JSON response", "err", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, message string, code int) {
	slog.Error(message, "status", code)
	h.writeJSONStatus(w, code, map[string]string{"error": message})
}

// writeCaptureError maps the capture error taxonomy onto status codes
func (h *Handler) writeCaptureError(w http.ResponseWriter, err error) {
	var (
		validationErr *capture.ValidationError
		resolutionErr *capture.FolderResolutionError
		submissionErr *capture.SubmissionError
	)
	switch {
	case errors.Is(err, capture.ErrBusy), errors.Is(err, capture.ErrSubmitInProgress):
		h.writeError(w, err.Error(), http.StatusConflict)
	case errors.Is(err, capture.ErrNoInput), errors.As(err, &validationErr):
		h.writeError(w, err.Error(), http.StatusBadRequest)
	case errors.As(err, &resolutionErr), errors.As(err, &submissionErr):
		h.writeError(w, capture.UserMessage(err), http.StatusBadGateway)
	default:
		h.writeError(w, err.Error(), http.StatusInternalServerError)
	}
}

// Session helpers
func (h *Handler) getSessionOrError(w http.ResponseWriter, r *http.Request) (*capture.Session, bool) {
	session, exists := h.sessionStore.Get(chi.URLParam(r, "sessionID"))
	if !exists {
		h.writeError(w, "Session not found", http.StatusNotFound)
		return nil, false
	}
	return session, true
}

func (h *Handler) decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		h.writeError(w, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
		return false
	}
	return true
}
