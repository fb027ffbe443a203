package capture

import (
	"context"
	"encoding/base64"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

var pngHeader = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0x0d, 'I', 'H', 'D', 'R'}

func TestAddFilesCountsSkipped(t *testing.T) {
	store := NewPageStore(5, 2)
	files := []FileInput{
		BytesInput("a.png", "image/png", pngHeader),
		BytesInput("b.jpg", "image/jpeg", []byte("jpeg bytes")),
		BytesInput("c.pdf", "application/pdf", []byte("%PDF-1.4")),
		BytesInput("setup.exe", "application/x-msdownload", []byte("MZ")),
	}

	summary := store.AddFiles(context.Background(), files)

	if summary.Accepted != 3 {
		t.Errorf("Expected 3 accepted, got %d", summary.Accepted)
	}
	if summary.Skipped != 1 {
		t.Errorf("Expected 1 skipped, got %d", summary.Skipped)
	}
	if store.Len() != 3 {
		t.Errorf("Expected 3 staged pages, got %d", store.Len())
	}
	if got := summary.Notice(); got != "Imported 3 files (1 skipped)" {
		t.Errorf("Expected notice %q, got %q", "Imported 3 files (1 skipped)", got)
	}

	var vErr *ValidationError
	if !errors.As(summary.Err(), &vErr) {
		t.Fatalf("Expected ValidationError, got %v", summary.Err())
	}
	if vErr.Skipped != 1 {
		t.Errorf("Expected Skipped=1, got %d", vErr.Skipped)
	}
}

func TestAddFilesPreservesOrder(t *testing.T) {
	store := NewPageStore(5, 4)
	names := []string{"1.png", "2.png", "3.png", "4.png", "5.png"}
	var files []FileInput
	for _, n := range names {
		files = append(files, BytesInput(n, "image/png", pngHeader))
	}

	store.AddFiles(context.Background(), files)

	pages := store.Pages()
	if len(pages) != len(names) {
		t.Fatalf("Expected %d pages, got %d", len(names), len(pages))
	}
	for i, p := range pages {
		if p.OriginFile.Name != names[i] {
			t.Errorf("Expected page %d to be %s, got %s", i, names[i], p.OriginFile.Name)
		}
	}
}

func TestAddFilesTruncatesBatch(t *testing.T) {
	store := NewPageStore(5, 2)
	var files []FileInput
	for i := 0; i < 8; i++ {
		files = append(files, BytesInput("scan.png", "image/png", pngHeader))
	}

	summary := store.AddFiles(context.Background(), files)

	if summary.Accepted != 5 {
		t.Errorf("Expected 5 accepted, got %d", summary.Accepted)
	}
	if summary.Truncated != 3 {
		t.Errorf("Expected 3 truncated, got %d", summary.Truncated)
	}
	notices := summary.Notices()
	if len(notices) != 2 || notices[0] != "Limited to 5 files for performance." || notices[1] != "Imported 5 files" {
		t.Errorf("Unexpected notices: %v", notices)
	}
}

func TestAddFilesIgnoresHiddenAndArtifacts(t *testing.T) {
	tests := []struct {
		name     string
		files    []FileInput
		accepted int
		skipped  int
		notice   string
	}{
		{
			name: "hidden and artifacts are not counted",
			files: []FileInput{
				BytesInput(".DS_Store", "", []byte("junk")),
				BytesInput("Thumbs.db", "", []byte("junk")),
				BytesInput("desktop.ini", "", []byte("junk")),
				BytesInput("page.png", "image/png", pngHeader),
			},
			accepted: 1,
			skipped:  0,
			notice:   "Imported 1 files",
		},
		{
			name: "only hidden files",
			files: []FileInput{
				BytesInput("._page.png", "image/png", pngHeader),
			},
			accepted: 0,
			skipped:  0,
			notice:   "No valid images found.",
		},
		{
			name:     "empty batch",
			files:    nil,
			accepted: 0,
			skipped:  0,
			notice:   "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := NewPageStore(5, 1)
			summary := store.AddFiles(context.Background(), tt.files)
			if summary.Accepted != tt.accepted {
				t.Errorf("Expected %d accepted, got %d", tt.accepted, summary.Accepted)
			}
			if summary.Skipped != tt.skipped {
				t.Errorf("Expected %d skipped, got %d", tt.skipped, summary.Skipped)
			}
			if got := summary.Notice(); got != tt.notice {
				t.Errorf("Expected notice %q, got %q", tt.notice, got)
			}
		})
	}
}

func TestAddFilesSniffsMissingType(t *testing.T) {
	store := NewPageStore(5, 1)
	summary := store.AddFiles(context.Background(), []FileInput{
		BytesInput("scan", "", pngHeader),
		BytesInput("notes", "application/octet-stream", []byte("just some text")),
	})

	if summary.Accepted != 1 || summary.Skipped != 1 {
		t.Fatalf("Expected 1 accepted and 1 skipped, got %d and %d", summary.Accepted, summary.Skipped)
	}
	if got := summary.Pages[0].OriginFile.MediaType; got != "image/png" {
		t.Errorf("Expected sniffed type image/png, got %s", got)
	}
}

func TestAddFilesFromDisk(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "whiteboard.png")
	if err := os.WriteFile(path, pngHeader, 0644); err != nil {
		t.Fatalf("Failed to write fixture: %v", err)
	}

	store := NewPageStore(5, 1)
	summary := store.AddFiles(context.Background(), []FileInput{
		PathInput(path),
		PathInput(filepath.Join(dir, "missing.png")),
	})

	if summary.Accepted != 1 {
		t.Errorf("Expected 1 accepted, got %d", summary.Accepted)
	}
	if summary.Skipped != 1 {
		t.Errorf("Expected unreadable file to be skipped, got %d skipped", summary.Skipped)
	}
}

func TestAddCapturedFrame(t *testing.T) {
	store := NewPageStore(5, 1)
	raw := base64.StdEncoding.EncodeToString([]byte("frame"))

	page, err := store.AddCapturedFrame(raw)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !strings.HasPrefix(page.Frame, "data:image/jpeg;base64,") {
		t.Errorf("Expected bare base64 to become a JPEG data URL, got %s", page.Frame)
	}
	if !strings.HasPrefix(page.ID, "webcam-") {
		t.Errorf("Expected webcam id prefix, got %s", page.ID)
	}

	if _, err := store.AddCapturedFrame("data:image/png;base64,@@@"); err == nil {
		t.Error("Expected error for malformed frame")
	}
	if _, err := store.AddCapturedFrame("  "); err == nil {
		t.Error("Expected error for empty frame")
	}
	if store.Len() != 1 {
		t.Errorf("Expected 1 staged page, got %d", store.Len())
	}
}

func TestRemoveIsIdempotent(t *testing.T) {
	store := NewPageStore(5, 1)
	summary := store.AddFiles(context.Background(), []FileInput{
		BytesInput("a.png", "image/png", pngHeader),
		BytesInput("b.png", "image/png", pngHeader),
	})
	id := summary.Pages[0].ID

	if !store.Remove(id) {
		t.Error("Expected first remove to succeed")
	}
	if store.Remove(id) {
		t.Error("Expected second remove to be a no-op")
	}
	if store.Len() != 1 {
		t.Errorf("Expected 1 page left, got %d", store.Len())
	}
	if store.Pages()[0].OriginFile.Name != "b.png" {
		t.Errorf("Expected b.png to remain, got %s", store.Pages()[0].OriginFile.Name)
	}
}

func TestNewPageIDUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id := NewPageID("file")
		if seen[id] {
			t.Fatalf("Duplicate id %s", id)
		}
		seen[id] = true
	}
}

func TestDecodeDataURL(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		mediaType string
		wantErr   bool
	}{
		{"jpeg", "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString([]byte("x")), "image/jpeg", false},
		{"png", "data:image/png;base64," + base64.StdEncoding.EncodeToString([]byte("x")), "image/png", false},
		{"not a data url", "http://example.com/a.jpg", "", true},
		{"not base64", "data:text/plain,hello", "", true},
		{"empty payload", "data:image/jpeg;base64,", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mediaType, _, err := DecodeDataURL(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Expected error=%v, got %v", tt.wantErr, err)
			}
			if mediaType != tt.mediaType {
				t.Errorf("Expected media type %q, got %q", tt.mediaType, mediaType)
			}
		})
	}
}
