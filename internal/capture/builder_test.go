package capture

import (
	"encoding/base64"
	"testing"

	"github.com/neuranote/neuranote/internal/models"
)

func TestBuildRequestTextMode(t *testing.T) {
	snap := Snapshot{
		Mode:        models.ModeText,
		TextContent: "Met with the plant manager",
		Pages: []models.StagedPage{
			{ID: "file-1", OriginFile: &models.FileRef{Name: "a.png", MediaType: "image/png"}, Data: []byte("x")},
		},
	}

	req, err := BuildRequest(snap, 7, "Standard Meeting: ")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if req.Mode != "text" {
		t.Errorf("Expected mode text, got %s", req.Mode)
	}
	if req.TextContent != "Met with the plant manager" {
		t.Errorf("Unexpected text content %q", req.TextContent)
	}
	if len(req.Files) != 0 {
		t.Errorf("Expected no files in text mode, got %d", len(req.Files))
	}
	if req.FolderID != 7 {
		t.Errorf("Expected folder 7, got %d", req.FolderID)
	}
}

func TestBuildRequestNormalizesPages(t *testing.T) {
	frame := "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString([]byte("frame bytes"))
	snap := Snapshot{
		Mode:  models.ModeWebcam,
		Merge: true,
		Pages: []models.StagedPage{
			{ID: "file-1", SourceKind: models.SourceImage, Data: []byte("png bytes"), OriginFile: &models.FileRef{Name: "scan.png", MediaType: "image/png"}},
			{ID: "webcam-2", SourceKind: models.SourceImage, Frame: frame},
		},
	}

	req, err := BuildRequest(snap, 3, "Site Inspection: roof")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if req.Mode != "image" {
		t.Errorf("Expected mode image, got %s", req.Mode)
	}
	if !req.Merge {
		t.Error("Expected merge flag to be carried")
	}
	if req.CustomPrompt != "Site Inspection: roof" {
		t.Errorf("Unexpected prompt %q", req.CustomPrompt)
	}
	if len(req.Files) != 2 {
		t.Fatalf("Expected 2 files, got %d", len(req.Files))
	}

	upload := req.Files[0]
	if upload.Name != "scan.png" || upload.MediaType != "image/png" || string(upload.Data) != "png bytes" {
		t.Errorf("Expected uploaded file unchanged, got %+v", upload)
	}

	captured := req.Files[1]
	if captured.Name != "page-webcam-2.jpg" {
		t.Errorf("Expected page-webcam-2.jpg, got %s", captured.Name)
	}
	if captured.MediaType != "image/jpeg" {
		t.Errorf("Expected image/jpeg, got %s", captured.MediaType)
	}
	if string(captured.Data) != "frame bytes" {
		t.Errorf("Expected decoded frame bytes, got %q", captured.Data)
	}
}

func TestBuildRequestRejectsEmptyPage(t *testing.T) {
	snap := Snapshot{
		Mode:  models.ModeUpload,
		Pages: []models.StagedPage{{ID: "broken", SourceKind: models.SourceImage}},
	}
	if _, err := BuildRequest(snap, 1, ""); err == nil {
		t.Error("Expected error for a page without content")
	}
}
