package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/neuranote/neuranote/internal/capture"
	"github.com/neuranote/neuranote/internal/watcher"
)

func newWatchCmd(opts *rootOptions) *cobra.Command {
	var folderID int64
	var prompt string
	var freeform string
	var idle time.Duration

	cmd := &cobra.Command{
		Use:   "watch <dir>",
		Short: "Submit scans as they arrive in a directory",
		Long: `Watches a directory for new images, for example a scanner's output
folder. Files that arrive close together are staged into one capture and
submitted once the directory has been quiet for the idle period or the
batch limit is reached.`,
		Example: `  # Watch the scanner inbox, filing into today's folder
  neuranote watch ~/Scans

  # Wait longer between pages of a slow feeder
  neuranote watch ~/Scans --idle 20s --prompt "Visitor Report"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := args[0]
			if info, err := os.Stat(dir); err != nil || !info.IsDir() {
				return fmt.Errorf("not a directory: %s", dir)
			}

			a, err := opts.load()
			if err != nil {
				return err
			}
			if idle <= 0 {
				idle = a.cfg.Watch.Idle
			}

			session, err := newCLISession(cmd.Context(), a, folderID, prompt, freeform)
			if err != nil {
				return err
			}

			w := watcher.New(dir, idle, a.cfg.Capture.MaxBatch, session, watcher.WithResultHandler(func(r watcher.Result) {
				for _, notice := range r.Summary.Notices() {
					fmt.Println(notice)
				}
				if r.Err != nil {
					fmt.Printf("Analysis failed: %s\n", capture.UserMessage(r.Err))
					if r.Summary.Accepted > 0 {
						fmt.Printf("Batch dropped; copy %s into the folder again to retry\n", strings.Join(r.Files, ", "))
					}
					return
				}
				if r.Note != nil {
					printNote(r.Note)
				}
			}))

			slog.Info("Watching for scans", "dir", dir, "idle", idle, "max_batch", a.cfg.Capture.MaxBatch)
			return w.Run(cmd.Context())
		},
	}

	cmd.Flags().Int64Var(&folderID, "folder", 0, "Destination folder id (default: today's dated folder)")
	cmd.Flags().StringVar(&prompt, "prompt", capture.ReportStandardMeeting, "Report type or saved prompt name")
	cmd.Flags().StringVar(&freeform, "freeform", "", "Extra instructions appended to the prompt")
	cmd.Flags().DurationVar(&idle, "idle", 0, "Quiet period before a batch is submitted (default from config)")

	return cmd
}
