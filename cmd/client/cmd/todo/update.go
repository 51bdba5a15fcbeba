package todo

import (
	"fmt"

	"github.com/spf13/cobra"

	"todoctl/cmd/client/cmd/types"
	"todoctl/internal/app/client"
	"todoctl/internal/domain/todo"
)

var (
	updateTitle       string
	updateDescription string
	updateCompleted   bool
)

var UpdateCmd = &cobra.Command{
	Use:   "update ID",
	Short: "Change a todo",
	Long: `Изменение задачи. Отправляются только указанные флаги,
остальные поля сервер не трогает.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := authorizedApp(cmd)
		if err != nil {
			return err
		}
		id, err := parseID(args[0])
		if err != nil {
			return err
		}

		var req todo.UpdateRequest
		if cmd.Flags().Changed("title") {
			req.Title = todo.String(updateTitle)
		}
		if cmd.Flags().Changed("description") {
			req.Description = todo.String(updateDescription)
		}
		if cmd.Flags().Changed("completed") {
			req.Completed = todo.Bool(updateCompleted)
		}

		ctx, cancel := requestContext(cmd, app)
		defer cancel()

		t, err := app.Todos().Update(ctx, id, req)
		if err != nil {
			return failure(err, client.MsgUpdateFailed)
		}

		if types.OptionsFrom(cmd.Context()).JSON {
			return printJSON(cmd.OutOrStdout(), t)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "✅ Todo updated successfully!")
		return nil
	},
}

func init() {
	UpdateCmd.Flags().StringVarP(&updateTitle, "title", "t", "", "new title")
	UpdateCmd.Flags().StringVarP(&updateDescription, "description", "d", "", "new description")
	UpdateCmd.Flags().BoolVarP(&updateCompleted, "completed", "c", false, "completion flag (--completed=false to reopen)")
}
