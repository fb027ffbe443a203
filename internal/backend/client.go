// Package backend is the HTTP client for the note analysis backend.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strconv"
	"strings"
	"time"

	"github.com/neuranote/neuranote/internal/models"
)

// Client talks to the backend. CRUD calls use a short timeout; analysis
// submissions get their own, much longer one.
type Client struct {
	BaseURL       string
	httpClient    *http.Client
	analyzeClient *http.Client
}

// NewClient creates a new backend client
func NewClient(baseURL string, timeout, analyzeTimeout time.Duration) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		analyzeClient: &http.Client{
			Timeout: analyzeTimeout,
		},
	}
}

// GetUser fetches the identity of the current operator
func (c *Client) GetUser(ctx context.Context) (models.User, error) {
	var user models.User
	body, err := c.do(ctx, c.httpClient, http.MethodGet, "/user", nil, "")
	if err != nil {
		return user, fmt.Errorf("failed to fetch user: %w", err)
	}
	if err := json.Unmarshal(body, &user); err != nil {
		return user, fmt.Errorf("failed to decode user: %w", err)
	}
	return user, nil
}

// ListFolders fetches every folder
func (c *Client) ListFolders(ctx context.Context) ([]models.Folder, error) {
	body, err := c.do(ctx, c.httpClient, http.MethodGet, "/folders", nil, "")
	if err != nil {
		return nil, fmt.Errorf("failed to list folders: %w", err)
	}
	return DecodeFolders(body)
}

// CreateFolder creates a folder and returns it with its assigned id
func (c *Client) CreateFolder(ctx context.Context, name, color string) (models.Folder, error) {
	body, err := c.doJSON(ctx, http.MethodPost, "/folders", map[string]string{"name": name, "color": color})
	if err != nil {
		return models.Folder{}, fmt.Errorf("failed to create folder: %w", err)
	}
	folder, err := DecodeCreatedFolder(body)
	if err != nil {
		return models.Folder{}, err
	}
	if folder.Name == "" {
		folder.Name = name
	}
	if folder.Color == "" {
		folder.Color = color
	}
	slog.Debug("Folder created", "id", folder.ID, "name", folder.Name)
	return folder, nil
}

// DeleteFolder deletes a folder and, on the backend, its notes
func (c *Client) DeleteFolder(ctx context.Context, id int64) error {
	if _, err := c.do(ctx, c.httpClient, http.MethodDelete, "/folders/"+strconv.FormatInt(id, 10), nil, ""); err != nil {
		return fmt.Errorf("failed to delete folder %d: %w", id, err)
	}
	return nil
}

// SetFavorite marks or unmarks a folder as favorite
func (c *Client) SetFavorite(ctx context.Context, id int64, favorite bool) error {
	path := fmt.Sprintf("/folders/%d/favorite", id)
	if _, err := c.doJSON(ctx, http.MethodPatch, path, map[string]bool{"is_favorite": favorite}); err != nil {
		return fmt.Errorf("failed to update favorite for folder %d: %w", id, err)
	}
	return nil
}

// ListNotes fetches the notes of one folder
func (c *Client) ListNotes(ctx context.Context, folderID int64) ([]models.Note, error) {
	body, err := c.do(ctx, c.httpClient, http.MethodGet, "/notes/"+strconv.FormatInt(folderID, 10), nil, "")
	if err != nil {
		return nil, fmt.Errorf("failed to list notes for folder %d: %w", folderID, err)
	}
	return DecodeNotes(body)
}

// DeleteNote deletes a single note
func (c *Client) DeleteNote(ctx context.Context, id int64) error {
	if _, err := c.do(ctx, c.httpClient, http.MethodDelete, "/notes/"+strconv.FormatInt(id, 10), nil, ""); err != nil {
		return fmt.Errorf("failed to delete note %d: %w", id, err)
	}
	return nil
}

// ListPrompts fetches the saved prompts as a name to content mapping
func (c *Client) ListPrompts(ctx context.Context) (map[string]string, error) {
	body, err := c.do(ctx, c.httpClient, http.MethodGet, "/prompts", nil, "")
	if err != nil {
		return nil, fmt.Errorf("failed to list prompts: %w", err)
	}
	return DecodePrompts(body)
}

// SavePrompt persists a named prompt
func (c *Client) SavePrompt(ctx context.Context, name, content string) error {
	if _, err := c.doJSON(ctx, http.MethodPost, "/prompts", map[string]string{"name": name, "content": content}); err != nil {
		return fmt.Errorf("failed to save prompt %q: %w", name, err)
	}
	return nil
}

// ImportPrompts uploads a spreadsheet and returns the prompts the backend
// read from it. Nothing is persisted by this call.
func (c *Client) ImportPrompts(ctx context.Context, filename string, r io.Reader) (map[string]string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return nil, fmt.Errorf("failed to read spreadsheet: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to finish multipart body: %w", err)
	}

	body, err := c.do(ctx, c.httpClient, http.MethodPost, "/import_prompts", &buf, writer.FormDataContentType())
	if err != nil {
		return nil, fmt.Errorf("failed to import prompts: %w", err)
	}
	return DecodePrompts(body)
}

// Analyze submits one capture for analysis and returns the created note
func (c *Client) Analyze(ctx context.Context, req *models.AnalysisRequest) (*models.Note, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	fields := [][2]string{
		{"folder_id", strconv.FormatInt(req.FolderID, 10)},
		{"mode", req.Mode},
		{"merge", strconv.FormatBool(req.Merge)},
	}
	if req.TextContent != "" {
		fields = append(fields, [2]string{"text_content", req.TextContent})
	}
	if req.CustomPrompt != "" {
		fields = append(fields, [2]string{"custom_prompt", req.CustomPrompt})
	}
	for _, f := range fields {
		if err := writer.WriteField(f[0], f[1]); err != nil {
			return nil, fmt.Errorf("failed to write field %s: %w", f[0], err)
		}
	}

	for _, file := range req.Files {
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="files"; filename=%q`, file.Name))
		mediaType := file.MediaType
		if mediaType == "" {
			mediaType = "application/octet-stream"
		}
		header.Set("Content-Type", mediaType)
		part, err := writer.CreatePart(header)
		if err != nil {
			return nil, fmt.Errorf("failed to create file part: %w", err)
		}
		if _, err := part.Write(file.Data); err != nil {
			return nil, fmt.Errorf("failed to write file part: %w", err)
		}
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to finish multipart body: %w", err)
	}

	slog.Info("Submitting analysis", "folder_id", req.FolderID, "mode", req.Mode, "merge", req.Merge, "files", len(req.Files))
	start := time.Now()
	body, err := c.do(ctx, c.analyzeClient, http.MethodPost, "/analyze", &buf, writer.FormDataContentType())
	if err != nil {
		return nil, err
	}
	slog.Info("Analysis finished", "folder_id", req.FolderID, "duration", time.Since(start))

	note, err := DecodeNote(body)
	if err != nil {
		return nil, err
	}
	if note.FolderID == 0 {
		note.FolderID = req.FolderID
	}
	return note, nil
}

// GeneratePDF renders a note to PDF on the backend
func (c *Client) GeneratePDF(ctx context.Context, noteID int64) ([]byte, error) {
	body, err := c.doJSON(ctx, http.MethodPost, "/generate_pdf", map[string]int64{"note_id": noteID})
	if err != nil {
		return nil, fmt.Errorf("failed to generate PDF for note %d: %w", noteID, err)
	}
	return body, nil
}

// GenerateCSV renders note data to CSV on the backend
func (c *Client) GenerateCSV(ctx context.Context, data models.NoteData) ([]byte, error) {
	body, err := c.doJSON(ctx, http.MethodPost, "/generate_csv", data)
	if err != nil {
		return nil, fmt.Errorf("failed to generate CSV: %w", err)
	}
	return body, nil
}

// SendEmail asks the backend to open a mail draft for a note. mode is
// "text" or "pdf".
func (c *Client) SendEmail(ctx context.Context, noteID int64, mode string) error {
	payload := map[string]any{"note_id": noteID, "mode": mode}
	if _, err := c.doJSON(ctx, http.MethodPost, "/send_email", payload); err != nil {
		return fmt.Errorf("failed to send email for note %d: %w", noteID, err)
	}
	return nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, payload any) ([]byte, error) {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	return c.do(ctx, c.httpClient, method, path, bytes.NewReader(jsonData), "application/json")
}

func (c *Client) do(ctx context.Context, client *http.Client, method, path string, body io.Reader, contentType string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, newAPIError(resp.StatusCode, respBody)
	}
	return respBody, nil
}
