package auth

import (
	"fmt"

	"github.com/spf13/cobra"

	"todoctl/cmd/client/cmd/types"
)

var LogoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Log out and forget the stored session",
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, err := types.AppFrom(cmd.Context())
		if err != nil {
			return err
		}

		if err := app.Logout(cmd.Context()); err != nil {
			return fmt.Errorf("logout: %w", err)
		}

		fmt.Fprintln(cmd.OutOrStdout(), "Logged out successfully")
		return nil
	},
}
