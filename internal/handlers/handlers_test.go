package handlers

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"sync"
	"testing"

	"github.com/neuranote/neuranote/internal/browse"
	"github.com/neuranote/neuranote/internal/capture"
	"github.com/neuranote/neuranote/internal/events"
	"github.com/neuranote/neuranote/internal/models"
)

// fakeBackend stands in for the analysis backend
type fakeBackend struct {
	mu      sync.Mutex
	folders []models.Folder
	notes   map[int64][]models.Note
	failIDs map[int64]bool
	nextID  int64
}

func (f *fakeBackend) ListFolders(ctx context.Context) ([]models.Folder, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.Folder(nil), f.folders...), nil
}

func (f *fakeBackend) CreateFolder(ctx context.Context, name, color string) (models.Folder, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	folder := models.Folder{ID: f.nextID, Name: name, Color: color, CreatedAt: "2024-05-01T10:00:00"}
	f.folders = append(f.folders, folder)
	return folder, nil
}

func (f *fakeBackend) ListNotes(ctx context.Context, folderID int64) ([]models.Note, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.Note(nil), f.notes[folderID]...), nil
}

func (f *fakeBackend) Analyze(ctx context.Context, req *models.AnalysisRequest) (*models.Note, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	note := models.Note{ID: 500, FolderID: req.FolderID, CreatedAt: "2024-05-01T10:00:00"}
	if f.notes == nil {
		f.notes = map[int64][]models.Note{}
	}
	f.notes[req.FolderID] = append(f.notes[req.FolderID], note)
	return &note, nil
}

func (f *fakeBackend) DeleteFolder(ctx context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failIDs[id] {
		return errors.New("backend refused")
	}
	for i, folder := range f.folders {
		if folder.ID == id {
			f.folders = append(f.folders[:i], f.folders[i+1:]...)
			break
		}
	}
	return nil
}

func (f *fakeBackend) DeleteNote(ctx context.Context, id int64) error {
	return nil
}

func (f *fakeBackend) SetFavorite(ctx context.Context, id int64, favorite bool) error {
	return nil
}

func (f *fakeBackend) ListPrompts(ctx context.Context) (map[string]string, error) {
	return map[string]string{}, nil
}

func (f *fakeBackend) SavePrompt(ctx context.Context, name, content string) error {
	return nil
}

func (f *fakeBackend) ImportPrompts(ctx context.Context, filename string, r io.Reader) (map[string]string, error) {
	return map[string]string{"Audit": "Audit the line"}, nil
}

func newTestServer(t *testing.T, backend *fakeBackend) (*httptest.Server, *browse.Browser) {
	t.Helper()
	bus := events.NewBus()
	browser := browse.NewBrowser(backend, bus, 2)
	detach := browser.Attach(context.Background())
	t.Cleanup(detach)

	deps := capture.Deps{
		Resolver: capture.NewFolderResolver(backend, "Meeting_", "#0EA5E9"),
		Prompts:  capture.NewPromptBook(backend),
		Analyzer: backend,
		Bus:      bus,
		MaxBatch: 5,
		Workers:  2,
	}
	server := httptest.NewServer(New(deps, browser).Routes())
	t.Cleanup(server.Close)
	return server, browser
}

func doJSON(t *testing.T, method, url string, body any, out any) int {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("Failed to marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("Failed to create request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("Failed to decode response: %v", err)
		}
	}
	return resp.StatusCode
}

func TestHealthcheck(t *testing.T) {
	server, _ := newTestServer(t, &fakeBackend{})
	resp, err := http.Get(server.URL + "/healthcheck")
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected 200, got %d", resp.StatusCode)
	}
}

func TestCaptureFlow(t *testing.T) {
	backend := &fakeBackend{}
	server, browser := newTestServer(t, backend)

	var state capture.State
	if code := doJSON(t, http.MethodPost, server.URL+"/api/sessions", nil, &state); code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d", code)
	}
	base := server.URL + "/api/sessions/" + state.ID

	// submitting with nothing staged is rejected
	if code := doJSON(t, http.MethodPost, base+"/submit", nil, nil); code != http.StatusBadRequest {
		t.Errorf("Expected 400 for empty submit, got %d", code)
	}

	// upload two files, one unsupported
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for _, f := range []struct{ name, mediaType, body string }{
		{"scan.png", "image/png", "\x89PNG\r\n\x1a\n0000IHDR"},
		{"virus.exe", "application/x-msdownload", "MZ"},
	} {
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition", `form-data; name="files"; filename="`+f.name+`"`)
		header.Set("Content-Type", f.mediaType)
		part, err := writer.CreatePart(header)
		if err != nil {
			t.Fatalf("Failed to create part: %v", err)
		}
		if _, err := part.Write([]byte(f.body)); err != nil {
			t.Fatalf("Failed to write part: %v", err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("Failed to close writer: %v", err)
	}
	resp, err := http.Post(base+"/files", writer.FormDataContentType(), &buf)
	if err != nil {
		t.Fatalf("Upload failed: %v", err)
	}
	var upload struct {
		Accepted int      `json:"accepted"`
		Skipped  int      `json:"skipped"`
		Notices  []string `json:"notices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&upload); err != nil {
		t.Fatalf("Failed to decode upload response: %v", err)
	}
	resp.Body.Close()
	if upload.Accepted != 1 || upload.Skipped != 1 {
		t.Errorf("Expected 1 accepted and 1 skipped, got %+v", upload)
	}

	// add a camera frame; two pages force merge
	frame := "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString([]byte("frame"))
	if code := doJSON(t, http.MethodPost, base+"/frames", map[string]string{"frame": frame}, &struct{}{}); code != http.StatusCreated {
		t.Fatalf("Expected 201 for frame, got %d", code)
	}
	if code := doJSON(t, http.MethodPatch, base, map[string]any{"merge": false, "freeform_prompt": "pricing"}, &state); code != http.StatusOK {
		t.Fatalf("Expected 200 for update, got %d", code)
	}
	if !state.Merge || len(state.Pages) != 2 || state.Freeform != "pricing" {
		t.Errorf("Unexpected session state %+v", state)
	}

	var submitted struct {
		Note    models.Note   `json:"note"`
		Session capture.State `json:"session"`
	}
	if code := doJSON(t, http.MethodPost, base+"/submit", nil, &submitted); code != http.StatusOK {
		t.Fatalf("Expected 200 for submit, got %d", code)
	}
	if submitted.Session.Status != models.StatusSucceeded || len(submitted.Session.Pages) != 0 {
		t.Errorf("Expected cleared succeeded session, got %+v", submitted.Session)
	}
	if !strings.HasPrefix(backend.folders[0].Name, "Meeting_") {
		t.Errorf("Expected dated folder, got %s", backend.folders[0].Name)
	}

	// the completion events refreshed the browser and opened the folder
	view := browser.View()
	if view.ActiveFolder == nil || *view.ActiveFolder != submitted.Note.FolderID {
		t.Fatalf("Expected browser to open folder %d, got %v", submitted.Note.FolderID, view.ActiveFolder)
	}
	if len(view.Notes) != 1 {
		t.Errorf("Expected 1 note in view, got %d", len(view.Notes))
	}
}

func TestBulkDeleteReportsPartialFailure(t *testing.T) {
	backend := &fakeBackend{
		folders: []models.Folder{{ID: 1, Name: "a"}, {ID: 2, Name: "b"}, {ID: 3, Name: "c"}},
		failIDs: map[int64]bool{3: true},
	}
	server, _ := newTestServer(t, backend)

	if code := doJSON(t, http.MethodPost, server.URL+"/api/browser/refresh", nil, &struct{}{}); code != http.StatusOK {
		t.Fatalf("Expected 200 for refresh, got %d", code)
	}
	var selection struct {
		Selected []int64 `json:"selected"`
	}
	doJSON(t, http.MethodPost, server.URL+"/api/browser/selection/all", nil, &selection)
	if len(selection.Selected) != 3 {
		t.Fatalf("Expected 3 selected, got %v", selection.Selected)
	}

	var result struct {
		Deleted  []int64 `json:"deleted"`
		Failed   []int64 `json:"failed"`
		Notice   string  `json:"notice"`
		Selected []int64 `json:"selected"`
	}
	code := doJSON(t, http.MethodPost, server.URL+"/api/browser/delete", nil, &result)
	if code != http.StatusMultiStatus {
		t.Errorf("Expected 207, got %d", code)
	}
	if result.Notice != "Deleted 2 of 3 projects (1 failed)" {
		t.Errorf("Unexpected notice %q", result.Notice)
	}
	if len(result.Failed) != 1 || result.Failed[0] != 3 {
		t.Errorf("Expected failed [3], got %v", result.Failed)
	}
	if len(result.Selected) != 1 || result.Selected[0] != 3 {
		t.Errorf("Expected failed id to stay selected, got %v", result.Selected)
	}
}

func TestBrowserQueryValidation(t *testing.T) {
	server, _ := newTestServer(t, &fakeBackend{})
	code := doJSON(t, http.MethodPut, server.URL+"/api/browser/query", map[string]string{"sort": "size"}, &struct{}{})
	if code != http.StatusBadRequest {
		t.Errorf("Expected 400 for unknown sort key, got %d", code)
	}
}

func TestUnknownSession(t *testing.T) {
	server, _ := newTestServer(t, &fakeBackend{})
	code := doJSON(t, http.MethodGet, server.URL+"/api/sessions/missing", nil, &struct{}{})
	if code != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", code)
	}
}

func TestSelectionRejectsHiddenIDs(t *testing.T) {
	backend := &fakeBackend{folders: []models.Folder{{ID: 1, Name: "alpha"}, {ID: 2, Name: "beta"}}}
	server, browser := newTestServer(t, backend)

	if code := doJSON(t, http.MethodPost, server.URL+"/api/browser/refresh", nil, &struct{}{}); code != http.StatusOK {
		t.Fatalf("Expected 200 for refresh, got %d", code)
	}
	if code := doJSON(t, http.MethodPut, server.URL+"/api/browser/query", map[string]string{"search": "alp"}, &struct{}{}); code != http.StatusOK {
		t.Fatalf("Expected 200 for query, got %d", code)
	}

	tests := []struct {
		id       string
		expected int
	}{
		{"1", http.StatusOK},
		{"2", http.StatusNotFound},
		{"999", http.StatusNotFound},
	}
	for _, tt := range tests {
		if code := doJSON(t, http.MethodPost, server.URL+"/api/browser/selection/"+tt.id, nil, &struct{}{}); code != tt.expected {
			t.Errorf("Expected %d selecting %s, got %d", tt.expected, tt.id, code)
		}
	}
	if got := browser.Selected(); len(got) != 1 || got[0] != 1 {
		t.Errorf("Expected only folder 1 selected, got %v", got)
	}

	var result struct {
		Deleted []int64 `json:"deleted"`
	}
	if code := doJSON(t, http.MethodPost, server.URL+"/api/browser/delete", nil, &result); code != http.StatusOK {
		t.Fatalf("Expected 200 for delete, got %d", code)
	}
	if len(result.Deleted) != 1 || result.Deleted[0] != 1 {
		t.Errorf("Expected only folder 1 deleted, got %v", result.Deleted)
	}
	if len(backend.folders) != 1 || backend.folders[0].ID != 2 {
		t.Errorf("Expected folder 2 to survive, got %v", backend.folders)
	}
}

func TestTreeToggles(t *testing.T) {
	server, browser := newTestServer(t, &fakeBackend{})

	tests := []struct {
		path     string
		expected int
		open     bool
	}{
		{"/api/browser/tree/years/2019", http.StatusOK, true},
		{"/api/browser/tree/years/2019", http.StatusOK, false},
		{"/api/browser/tree/years/abc", http.StatusBadRequest, false},
		{"/api/browser/tree/months/2019-03", http.StatusOK, true},
		{"/api/browser/tree/months/March", http.StatusBadRequest, false},
	}
	for _, tt := range tests {
		var body struct {
			Expanded bool `json:"expanded"`
		}
		code := doJSON(t, http.MethodPost, server.URL+tt.path, nil, &body)
		if code != tt.expected {
			t.Errorf("Expected %d for %s, got %d", tt.expected, tt.path, code)
			continue
		}
		if code == http.StatusOK && body.Expanded != tt.open {
			t.Errorf("Expected expanded=%v for %s, got %v", tt.open, tt.path, body.Expanded)
		}
	}

	expand := browser.Expand()
	if expand.YearExpanded(2019) {
		t.Error("Expected 2019 to be collapsed after two toggles")
	}
	if !expand.MonthExpanded("2019-03") {
		t.Error("Expected 2019-03 to be expanded")
	}
}

func TestImportedPromptsStayInTheirSession(t *testing.T) {
	server, _ := newTestServer(t, &fakeBackend{})

	var first, second capture.State
	doJSON(t, http.MethodPost, server.URL+"/api/sessions", nil, &first)
	doJSON(t, http.MethodPost, server.URL+"/api/sessions", nil, &second)

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", "prompts.xlsx")
	if err != nil {
		t.Fatalf("Failed to create part: %v", err)
	}
	if _, err := part.Write([]byte("PK")); err != nil {
		t.Fatalf("Failed to write part: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("Failed to close writer: %v", err)
	}
	resp, err := http.Post(server.URL+"/api/sessions/"+first.ID+"/prompts/import", writer.FormDataContentType(), &buf)
	if err != nil {
		t.Fatalf("Import failed: %v", err)
	}
	var imported struct {
		Imported int           `json:"imported"`
		Session  capture.State `json:"session"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&imported); err != nil {
		t.Fatalf("Failed to decode import response: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || imported.Imported != 1 {
		t.Fatalf("Expected 1 imported prompt, got %d (status %d)", imported.Imported, resp.StatusCode)
	}
	if keys := imported.Session.ImportedKeys; len(keys) != 1 || keys[0] != "Audit" {
		t.Errorf("Expected [Audit] in the importing session, got %v", keys)
	}

	var other capture.State
	doJSON(t, http.MethodGet, server.URL+"/api/sessions/"+second.ID, nil, &other)
	if len(other.ImportedKeys) != 0 {
		t.Errorf("Expected no imported prompts in another session, got %v", other.ImportedKeys)
	}

	var dismissed capture.State
	doJSON(t, http.MethodPost, server.URL+"/api/sessions/"+second.ID+"/prompts/dismiss", nil, &dismissed)
	doJSON(t, http.MethodGet, server.URL+"/api/sessions/"+first.ID, nil, &first)
	if len(first.ImportedKeys) != 1 {
		t.Errorf("Expected dismissing elsewhere to keep this session's prompts, got %v", first.ImportedKeys)
	}
}
