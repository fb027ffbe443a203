package cmd

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/neuranote/neuranote/internal/browse"
	"github.com/neuranote/neuranote/internal/capture"
	"github.com/neuranote/neuranote/internal/models"
)

func newFoldersCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "folders",
		Short: "List, create and delete project folders",
	}

	cmd.AddCommand(newFoldersListCmd(opts))
	cmd.AddCommand(newFoldersTreeCmd(opts))
	cmd.AddCommand(newFoldersCreateCmd(opts))
	cmd.AddCommand(newFoldersDeleteCmd(opts))
	cmd.AddCommand(newFoldersFavoriteCmd(opts))

	return cmd
}

func addQueryFlags(cmd *cobra.Command, q *browse.Query) {
	cmd.Flags().StringVar(&q.Search, "search", "", "Case-insensitive substring filter")
	cmd.Flags().StringVar((*string)(&q.Sort), "sort", string(browse.SortDate), "Sort key: date or name")
	cmd.Flags().StringVar((*string)(&q.Order), "order", string(browse.Desc), "Sort order: asc or desc")
}

func newFoldersListCmd(opts *rootOptions) *cobra.Command {
	q := browse.DefaultQuery()
	var favorites bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List folders",
		Example: `  # Newest folders first
  neuranote folders list

  # Folders matching "acme", A to Z
  neuranote folders list --search acme --sort name --order asc`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.load()
			if err != nil {
				return err
			}
			if err := a.browser.Refresh(cmd.Context()); err != nil {
				return err
			}

			folders := a.browser.Index().Favorites()
			if !favorites {
				if err := a.browser.SetQuery(q); err != nil {
					return err
				}
				folders = a.browser.VisibleFolders()
			}
			if len(folders) == 0 {
				fmt.Println("No folders found")
				return nil
			}
			fmt.Printf("%-6s %-32s %-9s %s\n", "ID", "NAME", "COLOR", "CREATED")
			for _, f := range folders {
				fmt.Printf("%-6d %-32s %-9s %s%s\n", f.ID, f.Name, f.Color, f.CreatedAt, favoriteMark(f))
			}
			return nil
		},
	}

	addQueryFlags(cmd, &q)
	cmd.Flags().BoolVar(&favorites, "favorites", false, "Only list favorite folders")

	return cmd
}

func favoriteMark(f models.Folder) string {
	if f.IsFavorite {
		return "  *"
	}
	return ""
}

func newFoldersTreeCmd(opts *rootOptions) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "tree",
		Short: "Show folders grouped by year, month and week",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.load()
			if err != nil {
				return err
			}
			if err := a.browser.Refresh(cmd.Context()); err != nil {
				return err
			}

			expand := a.browser.Expand()
			for _, year := range a.browser.Tree() {
				fmt.Printf("%d\n", year.Year)
				if !all && !expand.YearExpanded(year.Year) {
					continue
				}
				for _, month := range year.Months {
					fmt.Printf("  %s (%d)\n", month.Name, month.Count)
					if !all && !expand.MonthExpanded(month.Key) {
						continue
					}
					for _, week := range month.Weeks {
						fmt.Printf("    %s\n", week.Label)
						for _, f := range week.Folders {
							fmt.Printf("      [%d] %s%s\n", f.ID, f.Name, favoriteMark(f))
						}
					}
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "Expand every year and month, not only the current ones")

	return cmd
}

func newFoldersCreateCmd(opts *rootOptions) *cobra.Command {
	var color string

	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a folder",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.load()
			if err != nil {
				return err
			}
			if color == "" {
				color = a.cfg.Capture.DefaultColor
			}
			folder, err := a.client.CreateFolder(cmd.Context(), args[0], color)
			if err != nil {
				return err
			}
			fmt.Printf("Created folder %d %s (%s)\n", folder.ID, folder.Name, folder.Color)
			return nil
		},
	}

	cmd.Flags().StringVar(&color, "color", "", fmt.Sprintf("Folder color, one of %v (default from config)", capture.FolderPalette))

	return cmd
}

func newFoldersDeleteCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <id>...",
		Short: "Delete folders and their notes",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			a, err := opts.load()
			if err != nil {
				return err
			}
			if err := a.browser.Refresh(cmd.Context()); err != nil {
				return err
			}
			return deleteSelected(cmd, a.browser, ids)
		},
	}
	return cmd
}

func newFoldersFavoriteCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "favorite <id>",
		Short: "Toggle the favorite flag of a folder",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			a, err := opts.load()
			if err != nil {
				return err
			}
			if err := a.browser.Refresh(cmd.Context()); err != nil {
				return err
			}
			favorite, err := a.browser.ToggleFavorite(cmd.Context(), ids[0])
			if err != nil {
				return err
			}
			if favorite {
				fmt.Printf("Folder %d marked as favorite\n", ids[0])
			} else {
				fmt.Printf("Folder %d removed from favorites\n", ids[0])
			}
			return nil
		},
	}
	return cmd
}

// deleteSelected selects ids in the browser and bulk deletes them. Nothing
// is deleted when any id is not in the current view.
func deleteSelected(cmd *cobra.Command, browser *browse.Browser, ids []int64) error {
	if err := browser.Select(ids...); err != nil {
		var notVisible *browse.NotVisibleError
		if errors.As(err, &notVisible) {
			for _, id := range notVisible.IDs {
				fmt.Printf("  %d: not found here\n", id)
			}
		}
		return err
	}
	result, err := browser.DeleteSelected(cmd.Context())
	fmt.Println(result.Notice())

	var deleteErr *browse.DeleteError
	if errors.As(err, &deleteErr) {
		for _, id := range deleteErr.FailedIDs() {
			fmt.Printf("  %d: %v\n", id, deleteErr.Failed[id])
		}
	}
	return err
}

func parseIDs(args []string) ([]int64, error) {
	ids := make([]int64, 0, len(args))
	for _, arg := range args {
		id, err := strconv.ParseInt(arg, 10, 64)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("invalid id %q", arg)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
