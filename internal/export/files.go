// Package export writes notes to local files: backend-rendered PDF and CSV
// blobs, and Parquet snapshots of note lists.
package export

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/neuranote/neuranote/internal/models"
)

// SafeFilename replaces every character that is not an ASCII letter or digit
// with an underscore
func SafeFilename(name string) string {
	var b strings.Builder
	for _, r := range name {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			b.WriteRune(r)
			continue
		}
		b.WriteByte('_')
	}
	return b.String()
}

// NoteFilename returns "<safe customer info>.<ext>" for a note
func NoteFilename(note models.Note, ext string) string {
	return SafeFilename(note.Data.Customer()) + "." + strings.TrimPrefix(ext, ".")
}

// WriteBlob saves data under dir using the note's filename and returns the
// path written
func WriteBlob(dir string, note models.Note, ext string, data []byte) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("backend returned an empty %s", ext)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create export directory: %w", err)
	}
	path := filepath.Join(dir, NoteFilename(note, ext))
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	slog.Info("Export written", "path", path, "bytes", len(data))
	return path, nil
}
