package capture

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"github.com/neuranote/neuranote/internal/models"
)

// maxFileSize bounds a single staged file
const maxFileSize = 25 * 1024 * 1024

// osArtifacts are file names operating systems drop into folders
var osArtifacts = map[string]bool{
	"thumbs.db":   true,
	"desktop.ini": true,
	"ehthumbs.db": true,
	"icon\r":      true,
}

// FileInput is one candidate file for AddFiles
type FileInput struct {
	Name string
	// MediaType is the declared type. When empty it is sniffed from content.
	MediaType string
	Open      func() (io.ReadCloser, error)
}

// PathInput returns a FileInput reading from a local path
func PathInput(path string) FileInput {
	return FileInput{
		Name:      filepath.Base(path),
		MediaType: mime.TypeByExtension(strings.ToLower(filepath.Ext(path))),
		Open: func() (io.ReadCloser, error) {
			return os.Open(path)
		},
	}
}

// BytesInput returns a FileInput over an in-memory payload
func BytesInput(name, mediaType string, data []byte) FileInput {
	return FileInput{
		Name:      name,
		MediaType: mediaType,
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(data)), nil
		},
	}
}

// AddSummary reports the outcome of one AddFiles batch
type AddSummary struct {
	Accepted int
	// Skipped counts unsupported or unreadable files. Hidden files and OS
	// artifacts are dropped silently and not counted.
	Skipped   int
	Truncated int
	MaxBatch  int
	Pages     []models.StagedPage
	inputs    int
}

// Notices returns the user-facing messages for this batch, in display order
func (a AddSummary) Notices() []string {
	var notices []string
	if a.Truncated > 0 {
		notices = append(notices, fmt.Sprintf("Limited to %d files for performance.", a.MaxBatch))
	}
	switch {
	case a.Accepted == 0 && a.inputs > 0:
		notices = append(notices, "No valid images found.")
	case a.Skipped > 0:
		notices = append(notices, fmt.Sprintf("Imported %d files (%d skipped)", a.Accepted, a.Skipped))
	case a.Accepted > 0:
		notices = append(notices, fmt.Sprintf("Imported %d files", a.Accepted))
	}
	return notices
}

// Notice joins Notices into a single line
func (a AddSummary) Notice() string {
	return strings.Join(a.Notices(), " ")
}

// Err returns a *ValidationError when part of the batch was rejected
func (a AddSummary) Err() error {
	if a.Skipped == 0 && a.Truncated == 0 {
		return nil
	}
	return &ValidationError{Skipped: a.Skipped, Truncated: a.Truncated, Reason: a.Notice()}
}

// PageStore is the ordered collection of staged pages
type PageStore struct {
	mu       sync.Mutex
	pages    []models.StagedPage
	maxBatch int
	workers  int
	now      func() time.Time
}

// NewPageStore creates a store accepting at most maxBatch files per batch and
// decoding them with up to workers goroutines
func NewPageStore(maxBatch, workers int) *PageStore {
	if maxBatch <= 0 {
		maxBatch = 5
	}
	if workers <= 0 {
		workers = 1
	}
	return &PageStore{
		maxBatch: maxBatch,
		workers:  workers,
		now:      time.Now,
	}
}

type decodeResult struct {
	page models.StagedPage
	err  error
}

// AddFiles stages a batch of files. Only the first maxBatch entries are
// considered; decoding failures are skipped and counted, never fatal.
func (s *PageStore) AddFiles(ctx context.Context, files []FileInput) AddSummary {
	summary := s.Decode(ctx, files)
	s.Append(summary.Pages...)
	return summary
}

// Decode reads and checks a batch of files without staging them. The
// decoded pages are returned in summary.Pages in input order.
func (s *PageStore) Decode(ctx context.Context, files []FileInput) AddSummary {
	summary := AddSummary{MaxBatch: s.maxBatch, inputs: len(files)}
	if len(files) > s.maxBatch {
		summary.Truncated = len(files) - s.maxBatch
		files = files[:s.maxBatch]
	}

	var candidates []FileInput
	for _, f := range files {
		if isHiddenOrArtifact(f.Name) {
			slog.Debug("Ignoring hidden file", "name", f.Name)
			continue
		}
		candidates = append(candidates, f)
	}

	results := make([]decodeResult, len(candidates))
	var wg sync.WaitGroup
	semaphore := make(chan struct{}, s.workers)

	for i, f := range candidates {
		wg.Add(1)
		go func(idx int, f FileInput) {
			defer wg.Done()
			semaphore <- struct{}{}
			defer func() { <-semaphore }()

			if err := ctx.Err(); err != nil {
				results[idx] = decodeResult{err: err}
				return
			}
			page, err := s.decode(f)
			results[idx] = decodeResult{page: page, err: err}
		}(i, f)
	}
	wg.Wait()

	for i, r := range results {
		if r.err != nil {
			slog.Warn("Skipping file", "name", candidates[i].Name, "error", r.err)
			summary.Skipped++
			continue
		}
		summary.Pages = append(summary.Pages, r.page)
	}
	summary.Accepted = len(summary.Pages)

	slog.Info("Files decoded", "accepted", summary.Accepted, "skipped", summary.Skipped, "truncated", summary.Truncated)
	return summary
}

// Append stages already decoded pages
func (s *PageStore) Append(pages ...models.StagedPage) {
	s.mu.Lock()
	s.pages = append(s.pages, pages...)
	s.mu.Unlock()
}

func (s *PageStore) decode(f FileInput) (models.StagedPage, error) {
	if f.Open == nil {
		return models.StagedPage{}, fmt.Errorf("no content for %s", f.Name)
	}
	rc, err := f.Open()
	if err != nil {
		return models.StagedPage{}, fmt.Errorf("failed to open %s: %w", f.Name, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(io.LimitReader(rc, maxFileSize+1))
	if err != nil {
		return models.StagedPage{}, fmt.Errorf("failed to read %s: %w", f.Name, err)
	}
	if len(data) > maxFileSize {
		return models.StagedPage{}, fmt.Errorf("%s is larger than %d bytes", f.Name, maxFileSize)
	}

	mediaType := baseMediaType(f.MediaType)
	if mediaType == "" || mediaType == "application/octet-stream" {
		mediaType = baseMediaType(mimetype.Detect(data).String())
	}
	if !SupportedMediaType(mediaType) {
		return models.StagedPage{}, fmt.Errorf("unsupported media type %q", mediaType)
	}

	return models.StagedPage{
		ID:         NewPageID("file"),
		SourceKind: models.SourceImage,
		Data:       data,
		OriginFile: &models.FileRef{
			Name:      f.Name,
			MediaType: mediaType,
			Size:      int64(len(data)),
		},
		AddedAt: s.now(),
	}, nil
}

// AddCapturedFrame appends one camera frame. frame is a data URL or bare
// base64 JPEG data.
func (s *PageStore) AddCapturedFrame(frame string) (models.StagedPage, error) {
	frame = strings.TrimSpace(frame)
	if frame == "" {
		return models.StagedPage{}, &ValidationError{Reason: "empty camera frame"}
	}
	if !strings.HasPrefix(frame, "data:") {
		frame = "data:image/jpeg;base64," + frame
	}
	if _, _, err := DecodeDataURL(frame); err != nil {
		return models.StagedPage{}, &ValidationError{Reason: err.Error()}
	}

	page := models.StagedPage{
		ID:         NewPageID("webcam"),
		SourceKind: models.SourceImage,
		Frame:      frame,
		AddedAt:    s.now(),
	}
	s.mu.Lock()
	s.pages = append(s.pages, page)
	s.mu.Unlock()
	return page, nil
}

// Remove drops the page with the given id. Removing an unknown id is a no-op.
func (s *PageStore) Remove(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, p := range s.pages {
		if p.ID == id {
			s.pages = append(s.pages[:i], s.pages[i+1:]...)
			return true
		}
	}
	return false
}

// Pages returns a copy of the staged pages in order
func (s *PageStore) Pages() []models.StagedPage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.StagedPage(nil), s.pages...)
}

// Len returns the number of staged pages
func (s *PageStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pages)
}

// Clear drops every staged page
func (s *PageStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pages = nil
}

// SupportedMediaType reports whether pages of this type can be analyzed
func SupportedMediaType(mediaType string) bool {
	return strings.HasPrefix(mediaType, "image/") || mediaType == "application/pdf"
}

// NewPageID returns a session-unique page id: prefix, millisecond timestamp
// and a random suffix
func NewPageID(prefix string) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	return fmt.Sprintf("%s-%d-%s", prefix, time.Now().UnixMilli(), suffix)
}

// DecodeDataURL splits a base64 data URL into its media type and bytes
func DecodeDataURL(dataURL string) (string, []byte, error) {
	rest, ok := strings.CutPrefix(dataURL, "data:")
	if !ok {
		return "", nil, fmt.Errorf("not a data URL")
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return "", nil, fmt.Errorf("malformed data URL")
	}
	mediaType, isBase64 := strings.CutSuffix(meta, ";base64")
	if !isBase64 {
		return "", nil, fmt.Errorf("data URL is not base64 encoded")
	}
	if mediaType == "" {
		mediaType = "image/jpeg"
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, fmt.Errorf("failed to decode frame: %w", err)
	}
	if len(data) == 0 {
		return "", nil, fmt.Errorf("camera frame is empty")
	}
	return mediaType, data, nil
}

func isHiddenOrArtifact(name string) bool {
	base := filepath.Base(name)
	return strings.HasPrefix(base, ".") || osArtifacts[strings.ToLower(base)]
}

func baseMediaType(mediaType string) string {
	if mediaType == "" {
		return ""
	}
	parsed, _, err := mime.ParseMediaType(mediaType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(mediaType))
	}
	return parsed
}
