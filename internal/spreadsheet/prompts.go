// Package spreadsheet reads prompt sheets locally, so an import can be
// previewed before it is sent to the backend.
package spreadsheet

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/xuri/excelize/v2"
)

// headerNames are first-column values that mark a header row
var headerNames = map[string]bool{
	"name":        true,
	"prompt":      true,
	"prompt name": true,
	"title":       true,
}

// Prompt is one named prompt read from a sheet
type Prompt struct {
	Name    string
	Content string
	Row     int
}

// ReadPrompts reads name/content pairs from the first sheet of a workbook:
// column A holds the name and column B the content. A header row is
// skipped, as are rows missing either cell. Later rows win on duplicate
// names.
func ReadPrompts(r io.Reader) ([]Prompt, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read workbook: %w", err)
	}
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to get rows for sheet %q: %w", sheets[0], err)
	}

	var prompts []Prompt
	index := make(map[string]int)
	for i, row := range rows {
		if len(row) < 2 {
			continue
		}
		name := strings.TrimSpace(row[0])
		body := strings.TrimSpace(row[1])
		if i == 0 && headerNames[strings.ToLower(name)] {
			continue
		}
		if name == "" || body == "" {
			continue
		}
		p := Prompt{Name: name, Content: body, Row: i + 1}
		if at, ok := index[name]; ok {
			prompts[at] = p
			continue
		}
		index[name] = len(prompts)
		prompts = append(prompts, p)
	}

	slog.Debug("Read prompt sheet", "sheet", sheets[0], "rows", len(rows), "prompts", len(prompts))
	return prompts, nil
}

// ToMap converts prompts into the name to content mapping the backend uses
func ToMap(prompts []Prompt) map[string]string {
	out := make(map[string]string, len(prompts))
	for _, p := range prompts {
		out[p.Name] = p.Content
	}
	return out
}
