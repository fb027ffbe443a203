package handlers

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/neuranote/neuranote/internal/capture"
)

// maxUploadMemory is the multipart size kept in memory; larger parts spill
// to temporary files
const maxUploadMemory = 32 << 20

func (h *Handler) HandleAddFiles(w http.ResponseWriter, r *http.Request) {
	session, ok := h.getSessionOrError(w, r)
	if !ok {
		return
	}
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		h.writeError(w, "Failed to read upload: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer func() {
		_ = r.MultipartForm.RemoveAll()
	}()

	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		headers = r.MultipartForm.File["file"]
	}
	if len(headers) == 0 {
		h.writeError(w, "No files in upload", http.StatusBadRequest)
		return
	}

	inputs := make([]capture.FileInput, 0, len(headers))
	for _, fh := range headers {
		inputs = append(inputs, multipartInput(fh))
	}

	summary, err := session.AddFiles(r.Context(), inputs)
	if err != nil {
		h.writeCaptureError(w, err)
		return
	}
	h.writeJSON(w, map[string]any{
		"accepted":  summary.Accepted,
		"skipped":   summary.Skipped,
		"truncated": summary.Truncated,
		"notices":   summary.Notices(),
		"session":   session.State(),
	})
}

func (h *Handler) HandleAddFrame(w http.ResponseWriter, r *http.Request) {
	session, ok := h.getSessionOrError(w, r)
	if !ok {
		return
	}
	var request struct {
		Frame string `json:"frame"`
	}
	if !h.decodeJSON(w, r, &request) {
		return
	}

	page, err := session.AddCapturedFrame(request.Frame)
	if err != nil {
		var validationErr *capture.ValidationError
		if errors.As(err, &validationErr) {
			h.writeError(w, "Invalid camera frame: "+err.Error(), http.StatusBadRequest)
			return
		}
		h.writeCaptureError(w, err)
		return
	}
	h.writeJSONStatus(w, http.StatusCreated, map[string]any{
		"page_id": page.ID,
		"session": session.State(),
	})
}

func multipartInput(fh *multipart.FileHeader) capture.FileInput {
	return capture.FileInput{
		Name:      fh.Filename,
		MediaType: fh.Header.Get("Content-Type"),
		Open: func() (io.ReadCloser, error) {
			return fh.Open()
		},
	}
}
