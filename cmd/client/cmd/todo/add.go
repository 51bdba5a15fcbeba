package todo

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"todoctl/cmd/client/cmd/types"
	"todoctl/internal/app/client"
	"todoctl/internal/domain/todo"
)

var (
	addDescription string
	addDone        bool
)

var AddCmd = &cobra.Command{
	Use:   "add TITLE",
	Short: "Create a todo",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := authorizedApp(cmd)
		if err != nil {
			return err
		}

		req := todo.CreateRequest{Title: strings.Join(args, " ")}
		if cmd.Flags().Changed("description") {
			req.Description = todo.String(addDescription)
		}
		if addDone {
			req.Completed = todo.Bool(true)
		}

		ctx, cancel := requestContext(cmd, app)
		defer cancel()

		t, err := app.Todos().Create(ctx, req)
		if err != nil {
			return failure(err, client.MsgCreateFailed)
		}

		if types.OptionsFrom(cmd.Context()).JSON {
			return printJSON(cmd.OutOrStdout(), t)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✅ Todo created successfully! ID: %d\n", t.ID)
		return nil
	},
}

func init() {
	AddCmd.Flags().StringVarP(&addDescription, "description", "d", "", "description")
	AddCmd.Flags().BoolVar(&addDone, "done", false, "create as completed")
}
