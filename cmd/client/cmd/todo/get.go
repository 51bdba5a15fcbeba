package todo

import (
	"github.com/spf13/cobra"

	"todoctl/cmd/client/cmd/types"
	"todoctl/internal/app/client"
)

var GetCmd = &cobra.Command{
	Use:   "get ID",
	Short: "Show one todo",
	Args:  cobra.ExactArgs(1),
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

		t, err := app.Todos().Get(ctx, id)
		if err != nil {
			return failure(err, client.MsgLoadFailed)
		}

		if types.OptionsFrom(cmd.Context()).JSON {
			return printJSON(cmd.OutOrStdout(), t)
		}
		printTodo(cmd.OutOrStdout(), t)
		return nil
	},
}
