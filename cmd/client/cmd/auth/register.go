// cmd/client/cmd/auth/register.go
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

var RegisterCmd = &cobra.Command{
	Use:   "register",
	Short: "Create an account",
	Long: `Регистрация нового пользователя на сервере.

Регистрация не выполняет вход: после нее нужен todoctl auth login.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		// Получаем приложение из контекста
		app, err := types.AppFrom(cmd.Context())
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		p := newPrompter(cmd)

		fmt.Fprintln(out, "=== Register ===")
		fmt.Fprintln(out)

		username, err := p.Line("Username: ")
		if err != nil {
			return err
		}
		email, err := p.Line("Email: ")
		if err != nil {
			return err
		}
		password, err := p.Secret("Password: ")
		if err != nil {
			return err
		}
		confirm, err := p.Secret("Confirm password: ")
		if err != nil {
			return err
		}

		if password != confirm {
			return fmt.Errorf("passwords do not match")
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), app.Config().RequestTimeout)
		defer cancel()

		u, err := app.Register(ctx, user.RegisterRequest{
			Username: username,
			Email:    email,
			Password: password,
		})
		if err != nil {
			return errors.New(client.UserMessage(err, client.MsgRegistrationFailed))
		}

		fmt.Fprintln(out)
		fmt.Fprintln(out, "✅ Registration successful! Please login.")
		fmt.Fprintf(out, "todoctl auth login --username %s\n", u.Username)
		return nil
	},
}
