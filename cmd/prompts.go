package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/neuranote/neuranote/internal/capture"
	"github.com/neuranote/neuranote/internal/spreadsheet"
)

func newPromptsCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prompts",
		Short: "Manage saved analysis prompts",
	}

	cmd.AddCommand(newPromptsListCmd(opts))
	cmd.AddCommand(newPromptsSaveCmd(opts))
	cmd.AddCommand(newPromptsImportCmd(opts))

	return cmd
}

func newPromptsListCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List report types and saved prompts",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.load()
			if err != nil {
				return err
			}
			if err := a.deps.Prompts.Load(cmd.Context()); err != nil {
				return err
			}

			fmt.Println("Report types:")
			for _, name := range capture.BuiltinReportTypes {
				fmt.Printf("  %s\n", name)
			}
			saved := a.deps.Prompts.Saved()
			names := a.deps.Prompts.SavedNames()
			if len(names) == 0 {
				return nil
			}
			fmt.Println("Saved prompts:")
			for _, name := range names {
				fmt.Printf("  %s: %s\n", name, saved[name])
			}
			return nil
		},
	}
	return cmd
}

func newPromptsSaveCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "save <name> <content>",
		Short: "Save a named prompt on the backend",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.load()
			if err != nil {
				return err
			}
			if err := a.deps.Prompts.Save(cmd.Context(), args[0], args[1]); err != nil {
				return err
			}
			fmt.Printf("Saved prompt %q\n", strings.TrimSpace(args[0]))
			return nil
		},
	}
	return cmd
}

func newPromptsImportCmd(opts *rootOptions) *cobra.Command {
	var local bool

	cmd := &cobra.Command{
		Use:   "import <file.xlsx>",
		Short: "Read prompts from a spreadsheet",
		Long: `Reads prompts from a spreadsheet with the prompt name in column A and its
content in column B. By default the file is sent to the backend; --local
reads it here without contacting the backend. Imported prompts are not
saved; pick one with "capture --freeform" or store it with "prompts save".`,
		Example: `  neuranote prompts import prompts.xlsx
  neuranote prompts import prompts.xlsx --local`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			ext := strings.ToLower(filepath.Ext(path))
			if ext != ".xlsx" && ext != ".xls" {
				return fmt.Errorf("unsupported spreadsheet %q (want .xlsx or .xls)", path)
			}
			f, err := os.Open(path)
			if err != nil {
				return fmt.Errorf("failed to open spreadsheet: %w", err)
			}
			defer f.Close()

			var prompts map[string]string
			if local {
				rows, err := spreadsheet.ReadPrompts(f)
				if err != nil {
					return err
				}
				prompts = spreadsheet.ToMap(rows)
			} else {
				a, err := opts.load()
				if err != nil {
					return err
				}
				prompts, err = a.deps.Prompts.Import(cmd.Context(), filepath.Base(path), f)
				if err != nil {
					return err
				}
			}

			names := capture.PromptNames(prompts)
			fmt.Printf("Imported %d prompts\n", len(names))
			for _, name := range names {
				fmt.Printf("  %s: %s\n", name, prompts[name])
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&local, "local", false, "Read the spreadsheet locally instead of on the backend")

	return cmd
}
