package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/neuranote/neuranote/internal/models"
)

func newWhoamiCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the operator the backend knows you as",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.load()
			if err != nil {
				return err
			}
			user, err := a.client.GetUser(cmd.Context())
			if err != nil || user.Username == "" {
				slog.Debug("Falling back to guest user", "err", err)
				user = models.GuestUser
			}
			fmt.Printf("%s (%s)\n", user.Username, user.Initials())
			return nil
		},
	}
}
