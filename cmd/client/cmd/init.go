// cmd/client/cmd/init.go
package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"todoctl/cmd/client/cmd/auth"
	"todoctl/cmd/client/cmd/todo"
	"todoctl/internal/app/client/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Prepare the local configuration",
	Long: `Команда init выполняет первоначальную настройку клиента:
	1. Записывает config.yaml с текущими настройками (существующий файл не трогает)
	2. Проверяет локальное хранилище сессии
	3. Проверяет соединение с сервером`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		out := cmd.OutOrStdout()

		fmt.Fprintln(out, "=== todoctl init ===")
		fmt.Fprintln(out)

		path, err := cfg.Save()
		switch {
		case errors.Is(err, config.ErrConfigExists):
			fmt.Fprintf(out, "Config already exists: %s\n", path)
		case err != nil:
			return err
		default:
			fmt.Fprintf(out, "✓ Config written: %s\n", path)
		}

		if app.Durable() {
			fmt.Fprintf(out, "✓ Session storage: %s\n", cfg.DataPath)
		} else {
			fmt.Fprintln(out, "⚠️  Session storage unavailable, sessions will not survive restart")
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), cfg.RequestTimeout)
		defer cancel()

		if err := app.Health(ctx); err != nil {
			fmt.Fprintf(out, "⚠️  Server %s is not reachable: %v\n", cfg.ServerURL, err)
		} else {
			fmt.Fprintf(out, "✓ Server %s is reachable\n", cfg.ServerURL)
		}

		fmt.Fprintln(out)
		fmt.Fprintln(out, "Next:")
		fmt.Fprintln(out, "1. Create an account: todoctl auth register")
		fmt.Fprintln(out, "2. Log in:            todoctl auth login")
		fmt.Fprintln(out, "3. Add a todo:        todoctl todo add \"Buy milk\"")

		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)

	// Добавляем команды аутентификации
	rootCmd.AddCommand(auth.AuthCmd)
	auth.AuthCmd.AddCommand(auth.RegisterCmd)
	auth.AuthCmd.AddCommand(auth.LoginCmd)
	auth.AuthCmd.AddCommand(auth.LogoutCmd)
	auth.AuthCmd.AddCommand(auth.StatusCmd)

	// Добавляем команды работы с задачами
	rootCmd.AddCommand(todo.TodoCmd)
	todo.TodoCmd.AddCommand(todo.ListCmd)
	todo.TodoCmd.AddCommand(todo.GetCmd)
	todo.TodoCmd.AddCommand(todo.AddCmd)
	todo.TodoCmd.AddCommand(todo.UpdateCmd)
	todo.TodoCmd.AddCommand(todo.DeleteCmd)
	todo.TodoCmd.AddCommand(todo.ExportCmd)
	todo.TodoCmd.AddCommand(todo.AnalyticsCmd)
	todo.TodoCmd.AddCommand(todo.BrowseCmd)
}
