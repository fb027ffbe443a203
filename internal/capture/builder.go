package capture

import (
	"fmt"

	"github.com/neuranote/neuranote/internal/models"
)

// Snapshot is the part of a capture session a submission is built from
type Snapshot struct {
	Mode        models.CaptureMode
	Pages       []models.StagedPage
	TextContent string
	Merge       bool
}

// BuildRequest turns a session snapshot into the single analysis request for
// folderID. Camera frames are decoded into uniformly named JPEG files so the
// backend always receives a homogeneous file list. No I/O happens here.
func BuildRequest(snap Snapshot, folderID int64, instruction string) (*models.AnalysisRequest, error) {
	req := &models.AnalysisRequest{
		FolderID:     folderID,
		Mode:         snap.Mode.APIMode(),
		Merge:        snap.Merge,
		CustomPrompt: instruction,
	}

	if snap.Mode == models.ModeText {
		req.TextContent = snap.TextContent
		return req, nil
	}

	for _, page := range snap.Pages {
		file, err := uploadFile(page)
		if err != nil {
			return nil, err
		}
		req.Files = append(req.Files, file)
	}
	return req, nil
}

func uploadFile(page models.StagedPage) (models.UploadFile, error) {
	switch {
	case page.OriginFile != nil:
		return models.UploadFile{
			Name:      page.OriginFile.Name,
			MediaType: page.OriginFile.MediaType,
			Data:      page.Data,
		}, nil
	case page.Frame != "":
		_, data, err := DecodeDataURL(page.Frame)
		if err != nil {
			return models.UploadFile{}, fmt.Errorf("failed to decode page %s: %w", page.ID, err)
		}
		return models.UploadFile{
			Name:      fmt.Sprintf("page-%s.jpg", page.ID),
			MediaType: "image/jpeg",
			Data:      data,
		}, nil
	case page.SourceKind == models.SourceText:
		return models.UploadFile{
			Name:      fmt.Sprintf("page-%s.txt", page.ID),
			MediaType: "text/plain",
			Data:      []byte(page.Text),
		}, nil
	}
	return models.UploadFile{}, fmt.Errorf("page %s has no content", page.ID)
}
