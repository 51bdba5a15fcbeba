package todo

import (
	"github.com/spf13/cobra"

	"todoctl/cmd/client/cmd/types"
	"todoctl/internal/app/client"
)

var AnalyticsCmd = &cobra.Command{
	Use:   "analytics",
	Short: "Show completion statistics",
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, err := authorizedApp(cmd)
		if err != nil {
			return err
		}

		ctx, cancel := requestContext(cmd, app)
		defer cancel()

		a, err := app.Todos().Analytics(ctx)
		if err != nil {
			return failure(err, client.MsgLoadFailed)
		}

		if types.OptionsFrom(cmd.Context()).JSON {
			return printJSON(cmd.OutOrStdout(), a)
		}
		printAnalytics(cmd.OutOrStdout(), a)
		return nil
	},
}
