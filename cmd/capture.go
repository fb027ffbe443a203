package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/neuranote/neuranote/internal/capture"
	"github.com/neuranote/neuranote/internal/events"
	"github.com/neuranote/neuranote/internal/models"
)

type captureFlags struct {
	text     string
	folderID int64
	prompt   string
	freeform string
	merge    bool
}

func newCaptureCmd(opts *rootOptions) *cobra.Command {
	var flags captureFlags

	cmd := &cobra.Command{
		Use:   "capture [files...]",
		Short: "Submit images or text for analysis",
		Long: `Stages the given images (or a block of text) and submits them as one
capture. Without --folder the note is filed in today's dated folder, which
is created when it does not exist yet.`,
		Example: `  # Analyze two photographed pages as one merged note
  neuranote capture page1.jpg page2.png

  # Analyze typed notes with a site inspection report
  neuranote capture --text "Walked the east wing..." --prompt "Site Inspection"

  # Read text from stdin into an existing folder
  cat minutes.txt | neuranote capture --text - --folder 12`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 && flags.text == "" {
				return fmt.Errorf("provide files to upload or --text")
			}
			if len(args) > 0 && flags.text != "" {
				return fmt.Errorf("files and --text cannot be combined")
			}

			a, err := opts.load()
			if err != nil {
				return err
			}
			if flags.text == "-" {
				data, err := io.ReadAll(os.Stdin)
				if err != nil {
					return fmt.Errorf("failed to read stdin: %w", err)
				}
				flags.text = string(data)
			}
			return runCapture(cmd.Context(), a, args, flags, cmd.Flags().Changed("merge"))
		},
	}

	cmd.Flags().StringVar(&flags.text, "text", "", "Analyze this text instead of files (- reads stdin)")
	cmd.Flags().Int64Var(&flags.folderID, "folder", 0, "Destination folder id (default: today's dated folder)")
	cmd.Flags().StringVar(&flags.prompt, "prompt", capture.ReportStandardMeeting, "Report type or saved prompt name")
	cmd.Flags().StringVar(&flags.freeform, "freeform", "", "Extra instructions appended to the prompt")
	cmd.Flags().BoolVar(&flags.merge, "merge", false, "Merge pages into one note (forced with two or more pages)")

	return cmd
}

func runCapture(ctx context.Context, a *app, files []string, flags captureFlags, mergeSet bool) error {
	session, err := newCLISession(ctx, a, flags.folderID, flags.prompt, flags.freeform)
	if err != nil {
		return err
	}

	if flags.text != "" {
		if err := session.SetMode(models.ModeText); err != nil {
			return err
		}
		if err := session.SetText(flags.text); err != nil {
			return err
		}
	} else {
		inputs := make([]capture.FileInput, 0, len(files))
		for _, f := range files {
			inputs = append(inputs, capture.PathInput(f))
		}
		summary, err := session.AddFiles(ctx, inputs)
		if err != nil {
			return err
		}
		for _, notice := range summary.Notices() {
			fmt.Println(notice)
		}
	}
	if mergeSet {
		if err := session.SetMerge(flags.merge); err != nil {
			return err
		}
	}

	off := a.bus.Subscribe(events.FolderResolved, func(e events.Event) {
		slog.Info("Destination folder resolved", "folder_id", e.FolderID)
	})
	defer off()

	note, err := session.Submit(ctx)
	if err != nil {
		fmt.Printf("Analysis failed: %s\n", capture.UserMessage(err))
		return err
	}
	printNote(note)
	return nil
}

// newCLISession creates a session with prompts loaded and the capture flags
// applied
func newCLISession(ctx context.Context, a *app, folderID int64, prompt, freeform string) (*capture.Session, error) {
	if err := a.deps.Prompts.Load(ctx); err != nil {
		slog.Warn("Failed to load saved prompts", "err", err)
	}

	session := capture.NewSession(capture.NewPageID("cli"), a.deps)
	if err := session.SetPromptKey(prompt); err != nil {
		return nil, err
	}
	if err := session.SetFreeform(freeform); err != nil {
		return nil, err
	}
	if folderID > 0 {
		id := folderID
		if err := session.SetFolder(&id); err != nil {
			return nil, err
		}
	}
	return session, nil
}

func printNote(note *models.Note) {
	fmt.Printf("Note %d saved to folder %d\n", note.ID, note.FolderID)
	fmt.Printf("Customer:     %s\n", note.Data.Customer())
	if summary := models.SafeString(note.Data.ExecutiveSummary); summary != "N/A" {
		fmt.Printf("Summary:      %s\n", summary)
	}
	fmt.Printf("Action items: %d\n", note.Data.ActionItemCount())
}
