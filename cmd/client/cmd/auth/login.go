// cmd/client/cmd/auth/login.go
package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"todoctl/cmd/client/cmd/types"
	"todoctl/internal/app/client"
	"todoctl/internal/domain/user"
)

var loginUsername string

var LoginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in",
	Long: `Аутентификация на сервере.

После входа токен сохраняется локально для последующих команд.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, err := types.AppFrom(cmd.Context())
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		p := newPrompter(cmd)

		username := loginUsername
		if username == "" {
			if username, err = p.Line("Username: "); err != nil {
				return err
			}
		}
		password, err := p.Secret("Password: ")
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), app.Config().RequestTimeout)
		defer cancel()

		err = app.Login(ctx, user.Credentials{Username: username, Password: password})
		if err != nil {
			return errors.New(client.UserMessage(err, client.MsgLoginFailed))
		}

		if !app.Durable() {
			fmt.Fprintln(out, "⚠️  Session storage unavailable, the session ends with this process")
		}
		fmt.Fprintln(out, "✅ Login successful!")
		return nil
	},
}

func init() {
	LoginCmd.Flags().StringVarP(&loginUsername, "username", "u", "", "username (prompted when empty)")
}
