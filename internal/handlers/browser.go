package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/neuranote/neuranote/internal/browse"
)

func (h *Handler) HandleBrowserView(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, h.browser.View())
}

func (h *Handler) HandleBrowserTree(w http.ResponseWriter, r *http.Request) {
	expand := h.browser.Expand()
	type monthView struct {
		browse.MonthGroup
		Expanded bool `json:"expanded"`
	}
	type yearView struct {
		Year     int         `json:"year"`
		Expanded bool        `json:"expanded"`
		Months   []monthView `json:"months"`
	}

	var years []yearView
	for _, y := range h.browser.Tree() {
		yv := yearView{Year: y.Year, Expanded: expand.YearExpanded(y.Year)}
		for _, m := range y.Months {
			yv.Months = append(yv.Months, monthView{MonthGroup: m, Expanded: expand.MonthExpanded(m.Key)})
		}
		years = append(years, yv)
	}
	h.writeJSON(w, years)
}

func (h *Handler) HandleToggleYear(w http.ResponseWriter, r *http.Request) {
	year, err := strconv.Atoi(chi.URLParam(r, "year"))
	if err != nil || year < 1 {
		h.writeError(w, "Invalid year", http.StatusBadRequest)
		return
	}
	expanded := h.browser.Expand().ToggleYear(year)
	h.writeJSON(w, map[string]any{"year": year, "expanded": expanded})
}

func (h *Handler) HandleToggleMonth(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "month")
	expanded, err := h.browser.Expand().ToggleMonth(key)
	if err != nil {
		h.writeError(w, err.Error(), http.StatusBadRequest)
		return
	}
	h.writeJSON(w, map[string]any{"month": key, "expanded": expanded})
}

func (h *Handler) HandleBrowserRefresh(w http.ResponseWriter, r *http.Request) {
	if err := h.browser.Refresh(r.Context()); err != nil {
		h.writeBrowseError(w, err)
		return
	}
	h.writeJSON(w, h.browser.View())
}

func (h *Handler) HandleBrowserOpen(w http.ResponseWriter, r *http.Request) {
	var request struct {
		FolderID *int64 `json:"folder_id"`
	}
	if !h.decodeJSON(w, r, &request) {
		return
	}
	if err := h.browser.Open(r.Context(), request.FolderID); err != nil {
		h.writeBrowseError(w, err)
		return
	}
	h.writeJSON(w, h.browser.View())
}

func (h *Handler) HandleBrowserQuery(w http.ResponseWriter, r *http.Request) {
	q := h.browser.Query()
	if !h.decodeJSON(w, r, &q) {
		return
	}
	if err := h.browser.SetQuery(q); err != nil {
		h.writeError(w, err.Error(), http.StatusBadRequest)
		return
	}
	h.writeJSON(w, h.browser.View())
}

func (h *Handler) HandleToggleSelection(w http.ResponseWriter, r *http.Request) {
	id, ok := h.idParam(w, r)
	if !ok {
		return
	}
	if _, err := h.browser.Toggle(id); err != nil {
		h.writeError(w, err.Error(), http.StatusNotFound)
		return
	}
	h.writeJSON(w, map[string]any{"selected": h.browser.Selected()})
}

func (h *Handler) HandleToggleAll(w http.ResponseWriter, r *http.Request) {
	h.browser.ToggleAll()
	h.writeJSON(w, map[string]any{"selected": h.browser.Selected()})
}

func (h *Handler) HandleClearSelection(w http.ResponseWriter, r *http.Request) {
	h.browser.ClearSelection()
	h.writeJSON(w, map[string]any{"selected": h.browser.Selected()})
}

func (h *Handler) HandleDeleteSelected(w http.ResponseWriter, r *http.Request) {
	result, err := h.browser.DeleteSelected(r.Context())
	response := map[string]any{
		"deleted":  result.Deleted,
		"notice":   result.Notice(),
		"selected": h.browser.Selected(),
	}

	var deleteErr *browse.DeleteError
	switch {
	case errors.As(err, &deleteErr):
		response["failed"] = deleteErr.FailedIDs()
		h.writeJSONStatus(w, http.StatusMultiStatus, response)
	case err != nil:
		h.writeError(w, err.Error(), http.StatusBadRequest)
	default:
		h.writeJSON(w, response)
	}
}

func (h *Handler) HandleToggleFavorite(w http.ResponseWriter, r *http.Request) {
	id, ok := h.idParam(w, r)
	if !ok {
		return
	}
	favorite, err := h.browser.ToggleFavorite(r.Context(), id)
	if err != nil {
		h.writeError(w, "Failed to update favorite: "+err.Error(), http.StatusBadGateway)
		return
	}
	h.writeJSON(w, map[string]any{"id": id, "is_favorite": favorite})
}

func (h *Handler) HandleDeleteFolder(w http.ResponseWriter, r *http.Request) {
	id, ok := h.idParam(w, r)
	if !ok {
		return
	}
	if err := h.browser.DeleteFolder(r.Context(), id); err != nil {
		h.writeError(w, "Failed to delete folder: "+err.Error(), http.StatusBadGateway)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) HandleDeleteNote(w http.ResponseWriter, r *http.Request) {
	id, ok := h.idParam(w, r)
	if !ok {
		return
	}
	if err := h.browser.DeleteNote(r.Context(), id); err != nil {
		h.writeError(w, "Failed to delete note: "+err.Error(), http.StatusBadGateway)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) idParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		h.writeError(w, "Invalid id", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

// writeBrowseError reports a failed listing. The view is still returned so
// the caller sees the emptied index.
func (h *Handler) writeBrowseError(w http.ResponseWriter, err error) {
	var fetchErr *browse.FetchError
	if errors.As(err, &fetchErr) {
		h.writeJSONStatus(w, http.StatusBadGateway, map[string]any{
			"error": err.Error(),
			"view":  h.browser.View(),
		})
		return
	}
	h.writeError(w, err.Error(), http.StatusInternalServerError)
}
