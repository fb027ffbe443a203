package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/neuranote/neuranote/internal/browse"
	"github.com/neuranote/neuranote/internal/export"
	"github.com/neuranote/neuranote/internal/models"
)

func newNotesCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "notes",
		Short: "List, export, email and delete the notes of a folder",
	}

	cmd.AddCommand(newNotesListCmd(opts))
	cmd.AddCommand(newNotesDeleteCmd(opts))
	cmd.AddCommand(newNotesExportCmd(opts))
	cmd.AddCommand(newNotesEmailCmd(opts))
	cmd.AddCommand(newNotesInspectCmd())

	return cmd
}

func addNoteQueryFlags(cmd *cobra.Command, q *browse.Query) {
	addQueryFlags(cmd, q)
	cmd.Flags().StringVar((*string)(&q.Type), "type", string(browse.FilterAll), "Only notes with: all, pricing, specs or action")
}

// openFolder makes folderID the active folder and applies q to its notes
func openFolder(ctx context.Context, a *app, folderID int64, q browse.Query) ([]models.Note, error) {
	if err := a.browser.Refresh(ctx); err != nil {
		return nil, err
	}
	if err := a.browser.Open(ctx, &folderID); err != nil {
		return nil, err
	}
	if err := a.browser.SetQuery(q); err != nil {
		return nil, err
	}
	return a.browser.VisibleNotes(), nil
}

func newNotesListCmd(opts *rootOptions) *cobra.Command {
	q := browse.DefaultQuery()

	cmd := &cobra.Command{
		Use:   "list <folder-id>",
		Short: "List the notes of a folder",
		Example: `  # Notes with action items, oldest first
  neuranote notes list 12 --type action --order asc`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			a, err := opts.load()
			if err != nil {
				return err
			}
			notes, err := openFolder(cmd.Context(), a, ids[0], q)
			if err != nil {
				return err
			}

			fmt.Printf("%s\n", a.browser.Index().ActiveFolderName())
			if len(notes) == 0 {
				fmt.Println("No notes found")
				return nil
			}
			fmt.Printf("%-6s %-13s %-7s %-7s %s\n", "ID", "DATE", "PRICING", "ACTIONS", "CUSTOMER")
			for _, n := range notes {
				pricing := "-"
				if n.Data.HasPricing() {
					pricing = "yes"
				}
				fmt.Printf("%-6d %-13s %-7s %-7d %s\n", n.ID, n.DisplayDate(), pricing, n.Data.ActionItemCount(), n.Data.Customer())
			}
			return nil
		},
	}

	addNoteQueryFlags(cmd, &q)

	return cmd
}

func newNotesDeleteCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <folder-id> <note-id>...",
		Short: "Delete notes from a folder",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			a, err := opts.load()
			if err != nil {
				return err
			}
			if _, err := openFolder(cmd.Context(), a, ids[0], browse.DefaultQuery()); err != nil {
				return err
			}
			return deleteSelected(cmd, a.browser, ids[1:])
		},
	}
	return cmd
}

func newNotesExportCmd(opts *rootOptions) *cobra.Command {
	q := browse.DefaultQuery()
	var format string
	var out string
	var noteIDs []int64

	cmd := &cobra.Command{
		Use:   "export <folder-id>",
		Short: "Export notes as PDF, CSV or Parquet",
		Long: `Exports the visible notes of a folder. PDF and CSV are rendered by the
backend and written one file per note, named after the customer. Parquet
writes every note into a single local file.`,
		Example: `  # One PDF per note into ./reports
  neuranote notes export 12 --format pdf --out ./reports

  # Two specific notes as CSV
  neuranote notes export 12 --format csv --note 40 --note 41

  # All pricing notes into a Parquet file
  neuranote notes export 12 --format parquet --type pricing --out pricing.parquet`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			a, err := opts.load()
			if err != nil {
				return err
			}
			notes, err := openFolder(cmd.Context(), a, ids[0], q)
			if err != nil {
				return err
			}
			notes = pickNotes(notes, noteIDs)
			if len(notes) == 0 {
				return fmt.Errorf("no notes to export")
			}

			switch format {
			case "parquet":
				if out == "" {
					out = "notes.parquet"
				}
				if err := export.WriteParquetFile(out, notes); err != nil {
					return err
				}
				fmt.Printf("Exported %d notes to %s\n", len(notes), out)
				return nil
			case "pdf", "csv":
				if out == "" {
					out = "."
				}
				return exportBlobs(cmd.Context(), a, notes, format, out)
			default:
				return fmt.Errorf("unknown format %q (want pdf, csv or parquet)", format)
			}
		},
	}

	addNoteQueryFlags(cmd, &q)
	cmd.Flags().StringVar(&format, "format", "pdf", "Export format: pdf, csv or parquet")
	cmd.Flags().StringVar(&out, "out", "", "Output directory (pdf, csv) or file (parquet)")
	cmd.Flags().Int64SliceVar(&noteIDs, "note", nil, "Only export these note ids")

	return cmd
}

func pickNotes(notes []models.Note, ids []int64) []models.Note {
	if len(ids) == 0 {
		return notes
	}
	want := make(map[int64]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	var picked []models.Note
	for _, n := range notes {
		if want[n.ID] {
			picked = append(picked, n)
		}
	}
	return picked
}

func exportBlobs(ctx context.Context, a *app, notes []models.Note, format, dir string) error {
	failed := 0
	for _, note := range notes {
		var data []byte
		var err error
		if format == "pdf" {
			data, err = a.client.GeneratePDF(ctx, note.ID)
		} else {
			data, err = a.client.GenerateCSV(ctx, note.Data)
		}
		if err != nil {
			slog.Error("Export failed", "note_id", note.ID, "format", format, "err", err)
			failed++
			continue
		}
		path, err := export.WriteBlob(dir, note, format, data)
		if err != nil {
			slog.Error("Failed to save export", "note_id", note.ID, "err", err)
			failed++
			continue
		}
		fmt.Printf("Saved %s\n", path)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d exports failed", failed, len(notes))
	}
	return nil
}

func newNotesInspectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect <file.parquet>",
		Short: "Print the notes stored in a Parquet export",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rows, err := export.ReadParquetFile(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%d notes in %s\n", len(rows), args[0])
			if len(rows) == 0 {
				return nil
			}
			fmt.Fprintf(out, "%-6s %-7s %-20s %-7s %s\n", "ID", "FOLDER", "CREATED", "ACTIONS", "CUSTOMER")
			for _, row := range rows {
				fmt.Fprintf(out, "%-6d %-7d %-20s %-7d %s\n", row.ID, row.FolderID, row.CreatedAt, row.ActionItemCount, row.Customer)
			}
			return nil
		},
	}
	return cmd
}

func newNotesEmailCmd(opts *rootOptions) *cobra.Command {
	var mode string

	cmd := &cobra.Command{
		Use:   "email <note-id>",
		Short: "Open an email draft for a note",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if mode != "text" && mode != "pdf" {
				return fmt.Errorf("unknown mode %q (want text or pdf)", mode)
			}
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			a, err := opts.load()
			if err != nil {
				return err
			}
			if err := a.client.SendEmail(cmd.Context(), ids[0], mode); err != nil {
				return err
			}
			fmt.Printf("Email draft opened for note %d\n", ids[0])
			return nil
		},
	}

	cmd.Flags().StringVar(&mode, "mode", "text", "Email body: text or pdf attachment")

	return cmd
}
