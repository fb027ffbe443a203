package export

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/parquet-go/parquet-go"

	"github.com/neuranote/neuranote/internal/models"
)

// NoteRow is the flattened, columnar form of a note
type NoteRow struct {
	ID                 int64  `parquet:"id"`
	FolderID           int64  `parquet:"folder_id"`
	CreatedAt          string `parquet:"created_at"`
	Customer           string `parquet:"customer"`
	ExecutiveSummary   string `parquet:"executive_summary"`
	ProductDetails     string `parquet:"product_details"`
	PricingInformation string `parquet:"pricing_information"`
	ActionItemCount    int32  `parquet:"action_item_count"`
	ActionItems        string `parquet:"action_items"`
	AdditionalNotes    string `parquet:"additional_notes"`
}

// NoteRows flattens notes, keeping their order
func NoteRows(notes []models.Note) []NoteRow {
	rows := make([]NoteRow, 0, len(notes))
	for _, n := range notes {
		rows = append(rows, NoteRow{
			ID:                 n.ID,
			FolderID:           n.FolderID,
			CreatedAt:          n.CreatedAt,
			Customer:           n.Data.Customer(),
			ExecutiveSummary:   models.SafeString(n.Data.ExecutiveSummary),
			ProductDetails:     models.SafeString(n.Data.ProductDetails),
			PricingInformation: models.SafeString(n.Data.PricingInformation),
			ActionItemCount:    int32(n.Data.ActionItemCount()),
			ActionItems:        models.SafeString(n.Data.ActionItems),
			AdditionalNotes:    models.SafeString(n.Data.AdditionalNotes),
		})
	}
	return rows
}

// WriteParquet writes notes as Parquet rows to w
func WriteParquet(w io.Writer, notes []models.Note) error {
	writer := parquet.NewGenericWriter[NoteRow](w)
	if _, err := writer.Write(NoteRows(notes)); err != nil {
		return fmt.Errorf("failed to write parquet rows: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to close parquet writer: %w", err)
	}
	return nil
}

// WriteParquetFile writes notes to a Parquet file at path
func WriteParquetFile(path string, notes []models.Note) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create parquet file: %w", err)
	}
	defer file.Close()

	if err := WriteParquet(file, notes); err != nil {
		return err
	}
	slog.Info("Parquet export written", "path", path, "rows", len(notes))
	return file.Close()
}

// ReadParquetFile reads the note rows of a Parquet export
func ReadParquetFile(path string) ([]NoteRow, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}
	pf, err := parquet.OpenFile(file, info.Size())
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet: %w", err)
	}

	reader := parquet.NewGenericReader[NoteRow](pf)
	defer reader.Close()

	var records []NoteRow
	rows := make([]NoteRow, 128)
	for {
		n, err := reader.Read(rows)
		records = append(records, rows[:n]...)
		if err != nil {
			if err == io.EOF {
				break
			}
			return nil, fmt.Errorf("failed to read parquet rows: %w", err)
		}
	}
	return records, nil
}
