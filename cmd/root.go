package cmd

import (
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/neuranote/neuranote/internal/config"
)

type rootOptions struct {
	configPath string
	verbose    bool
}

func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "neuranote",
		Short: "Capture meeting notes and send them for structured analysis",
		Long: `NeuraNote turns photographed or scanned meeting notes, whiteboards and
plain text into structured notes filed under dated project folders.

Captures are submitted to the analysis backend; the folder and note
commands browse, export and tidy up what it produced.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Load .env file if present (ignore errors)
			_ = godotenv.Load()

			level := slog.LevelInfo
			if opts.verbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
		},
	}

	cmd.PersistentFlags().StringVar(&opts.configPath, "config", config.DefaultPath, "Path to YAML config file")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Enable debug logging")

	cmd.AddCommand(newCaptureCmd(opts))
	cmd.AddCommand(newWatchCmd(opts))
	cmd.AddCommand(newFoldersCmd(opts))
	cmd.AddCommand(newNotesCmd(opts))
	cmd.AddCommand(newPromptsCmd(opts))
	cmd.AddCommand(newServeCmd(opts))
	cmd.AddCommand(newWhoamiCmd(opts))
	cmd.AddCommand(newConfigCmd(opts))

	return cmd
}
