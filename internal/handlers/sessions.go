package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/neuranote/neuranote/internal/capture"
	"github.com/neuranote/neuranote/internal/models"
)

// sessionUpdate carries the editable session fields. Absent fields are left
// unchanged.
type sessionUpdate struct {
	Mode        *models.CaptureMode `json:"mode"`
	TextContent *string             `json:"text_content"`
	PromptKey   *string             `json:"prompt_key"`
	Freeform    *string             `json:"freeform_prompt"`
	Merge       *bool               `json:"merge"`
	FolderID    *int64              `json:"folder_id"`
	ClearFolder bool                `json:"clear_folder"`
}

func (h *Handler) HandleListSessions(w http.ResponseWriter, r *http.Request) {
	sessions := h.sessionStore.List()
	states := make([]capture.State, 0, len(sessions))
	for _, session := range sessions {
		states = append(states, session.State())
	}
	h.writeJSON(w, states)
}

func (h *Handler) HandleCreateSession(w http.ResponseWriter, r *http.Request) {
	session := h.newSession()
	h.writeJSONStatus(w, http.StatusCreated, session.State())
}

func (h *Handler) HandleGetSession(w http.ResponseWriter, r *http.Request) {
	session, ok := h.getSessionOrError(w, r)
	if !ok {
		return
	}
	h.writeJSON(w, session.State())
}

func (h *Handler) HandleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if !h.sessionStore.Delete(chi.URLParam(r, "sessionID")) {
		h.writeError(w, "Session not found", http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) HandleUpdateSession(w http.ResponseWriter, r *http.Request) {
	session, ok := h.getSessionOrError(w, r)
	if !ok {
		return
	}
	var update sessionUpdate
	if !h.decodeJSON(w, r, &update) {
		return
	}

	var edits []func() error
	if update.Mode != nil {
		edits = append(edits, func() error { return session.SetMode(*update.Mode) })
	}
	if update.TextContent != nil {
		edits = append(edits, func() error { return session.SetText(*update.TextContent) })
	}
	if update.PromptKey != nil {
		edits = append(edits, func() error { return session.SetPromptKey(*update.PromptKey) })
	}
	if update.Freeform != nil {
		edits = append(edits, func() error { return session.SetFreeform(*update.Freeform) })
	}
	if update.Merge != nil {
		edits = append(edits, func() error { return session.SetMerge(*update.Merge) })
	}
	if update.FolderID != nil || update.ClearFolder {
		edits = append(edits, func() error { return session.SetFolder(update.FolderID) })
	}

	for _, edit := range edits {
		if err := edit(); err != nil {
			h.writeCaptureError(w, err)
			return
		}
	}
	h.writeJSON(w, session.State())
}

func (h *Handler) HandleRemovePage(w http.ResponseWriter, r *http.Request) {
	session, ok := h.getSessionOrError(w, r)
	if !ok {
		return
	}
	if err := session.RemovePage(chi.URLParam(r, "pageID")); err != nil {
		h.writeCaptureError(w, err)
		return
	}
	h.writeJSON(w, session.State())
}

func (h *Handler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	session, ok := h.getSessionOrError(w, r)
	if !ok {
		return
	}
	note, err := session.Submit(r.Context())
	if err != nil {
		h.writeCaptureError(w, err)
		return
	}
	h.writeJSON(w, map[string]any{
		"note":    note,
		"session": session.State(),
	})
}

func (h *Handler) HandleSelectImportedPrompt(w http.ResponseWriter, r *http.Request) {
	session, ok := h.getSessionOrError(w, r)
	if !ok {
		return
	}
	var request struct {
		Name string `json:"name"`
	}
	if !h.decodeJSON(w, r, &request) {
		return
	}
	if err := session.SelectImportedPrompt(request.Name); err != nil {
		h.writeCaptureError(w, err)
		return
	}
	h.writeJSON(w, session.State())
}

func (h *Handler) HandleDismissImportedPrompts(w http.ResponseWriter, r *http.Request) {
	session, ok := h.getSessionOrError(w, r)
	if !ok {
		return
	}
	if err := session.DismissImportedPrompts(); err != nil {
		h.writeCaptureError(w, err)
		return
	}
	h.writeJSON(w, session.State())
}

func (h *Handler) HandleSavePrompt(w http.ResponseWriter, r *http.Request) {
	session, ok := h.getSessionOrError(w, r)
	if !ok {
		return
	}
	var request struct {
		Name string `json:"name"`
	}
	if !h.decodeJSON(w, r, &request) {
		return
	}
	if err := session.SavePrompt(r.Context(), request.Name); err != nil {
		h.writeCaptureError(w, err)
		return
	}
	h.writeJSON(w, session.State())
}

func (h *Handler) HandleListPrompts(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, map[string]any{
		"report_types": capture.BuiltinReportTypes,
		"saved":        h.deps.Prompts.Saved(),
	})
}

// HandleImportPrompts reads a prompt spreadsheet into the session's
// imported pool. Other sessions keep their own pools.
func (h *Handler) HandleImportPrompts(w http.ResponseWriter, r *http.Request) {
	session, ok := h.getSessionOrError(w, r)
	if !ok {
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		h.writeError(w, "Failed to read file: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer file.Close()

	name := strings.ToLower(header.Filename)
	if !strings.HasSuffix(name, ".xlsx") && !strings.HasSuffix(name, ".xls") {
		h.writeError(w, "Unsupported spreadsheet type", http.StatusBadRequest)
		return
	}

	n, err := session.ImportPrompts(r.Context(), header.Filename, file)
	if err != nil {
		if errors.Is(err, capture.ErrBusy) {
			h.writeCaptureError(w, err)
			return
		}
		h.writeError(w, "Failed to import prompts: "+capture.UserMessage(err), http.StatusBadGateway)
		return
	}
	h.writeJSON(w, map[string]any{
		"imported": n,
		"session":  session.State(),
	})
}
