package todo

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"todoctl/internal/app/client"
	"todoctl/internal/domain/todo"
)

var (
	exportFilters filterFlags
	exportOutput  string
)

var ExportCmd = &cobra.Command{
	Use:   "export json|csv",
	Short: "Export todos to a file",
	Long: `Экспорт всех задач, подходящих под фильтры, без постраничного деления.

По умолчанию файл называется todos.<format>; -o - пишет в stdout.`,
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{string(todo.ExportJSON), string(todo.ExportCSV)},
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := authorizedApp(cmd)
		if err != nil {
			return err
		}

		format := todo.ExportFormat(strings.ToLower(args[0]))
		q, err := exportFilters.query()
		if err != nil {
			return err
		}

		ctx, cancel := requestContext(cmd, app)
		defer cancel()

		data, err := app.Todos().Export(ctx, format, q)
		if err != nil {
			return failure(err, client.MsgExportFailed)
		}

		out := exportOutput
		if out == "" {
			out = "todos" + format.Extension()
		}
		if out == "-" {
			_, err = cmd.OutOrStdout().Write(data)
			return err
		}

		if err := os.WriteFile(out, data, 0600); err != nil {
			return fmt.Errorf("write %s: %w", out, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Todos exported as %s: %s\n", strings.ToUpper(string(format)), out)
		return nil
	},
}

func init() {
	exportFilters.register(ExportCmd)
	ExportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "output file, - for stdout (default todos.<format>)")
}
