package backend

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/neuranote/neuranote/internal/models"
)

// List endpoints answer either with a bare array or with the array wrapped in
// an object under a named key. These adapters are applied right after each
// fetch so callers only ever see the canonical shape.

// DecodeFolders normalizes a folder listing body.
func DecodeFolders(body []byte) ([]models.Folder, error) {
	var folders []models.Folder
	if err := decodeList(body, "folders", &folders); err != nil {
		return nil, fmt.Errorf("failed to decode folders: %w", err)
	}
	return folders, nil
}

// DecodeNotes normalizes a note listing body.
func DecodeNotes(body []byte) ([]models.Note, error) {
	var notes []models.Note
	if err := decodeList(body, "notes", &notes); err != nil {
		return nil, fmt.Errorf("failed to decode notes: %w", err)
	}
	return notes, nil
}

// DecodeCreatedFolder reads a created folder that may be returned directly or
// nested under "data". A response without an id is an error.
func DecodeCreatedFolder(body []byte) (models.Folder, error) {
	var folder models.Folder
	if err := decodeMaybeNested(body, []string{"data"}, &folder); err != nil {
		return models.Folder{}, fmt.Errorf("failed to decode created folder: %w", err)
	}
	if folder.ID == 0 {
		return models.Folder{}, fmt.Errorf("created folder response carries no id")
	}
	return folder, nil
}

// DecodeNote reads a single note that may be returned directly or nested
// under "data" or "note".
func DecodeNote(body []byte) (*models.Note, error) {
	var note models.Note
	if err := decodeMaybeNested(body, []string{"data", "note"}, &note); err != nil {
		return nil, fmt.Errorf("failed to decode note: %w", err)
	}
	return &note, nil
}

// DecodePrompts reads a name to content mapping, bare or under "prompts".
func DecodePrompts(body []byte) (map[string]string, error) {
	var envelope struct {
		Prompts map[string]string `json:"prompts"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Prompts != nil {
		return envelope.Prompts, nil
	}

	prompts := map[string]string{}
	if isNull(body) {
		return prompts, nil
	}
	if err := json.Unmarshal(body, &prompts); err != nil {
		return nil, fmt.Errorf("failed to decode prompts: %w", err)
	}
	return prompts, nil
}

func decodeList(body []byte, key string, out any) error {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || isNull(trimmed) {
		return nil
	}

	if trimmed[0] == '[' {
		return json.Unmarshal(trimmed, out)
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &envelope); err != nil {
		return err
	}
	inner, ok := envelope[key]
	if !ok || isNull(inner) {
		return nil
	}
	return json.Unmarshal(inner, out)
}

func decodeMaybeNested(body []byte, keys []string, out any) error {
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(body, &envelope); err != nil {
		return err
	}
	if _, hasID := envelope["id"]; !hasID {
		for _, key := range keys {
			if inner, ok := envelope[key]; ok && len(inner) > 0 && inner[0] == '{' {
				return json.Unmarshal(inner, out)
			}
		}
	}
	return json.Unmarshal(body, out)
}

func isNull(b []byte) bool {
	return string(bytes.TrimSpace(b)) == "null"
}
