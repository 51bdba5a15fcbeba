package todo

import (
	"fmt"

	"github.com/spf13/cobra"

	"todoctl/internal/app/client"
)

var DeleteCmd = &cobra.Command{
	Use:     "delete ID",
	Aliases: []string{"rm"},
	Short:   "Delete a todo",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := authorizedApp(cmd)
		if err != nil {
			return err
		}
		id, err := parseID(args[0])
		if err != nil {
			return err
		}

		ctx, cancel := requestContext(cmd, app)
		defer cancel()

		if err := app.Todos().Delete(ctx, id); err != nil {
			return failure(err, client.MsgDeleteFailed)
		}

		fmt.Fprintln(cmd.OutOrStdout(), "✅ Todo deleted successfully!")
		return nil
	},
}
