package todo

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"todoctl/cmd/client/cmd/types"
	"todoctl/internal/app/client"
)

// TodoCmd - родительская команда для всех операций с задачами
var TodoCmd = &cobra.Command{
	Use:   "todo",
	Short: "Manage todos",
	Long: `Просмотр, создание, изменение, удаление и экспорт задач.

Все команды требуют входа: todoctl auth login.`,
}

var errNotLoggedIn = errors.New("not logged in, run: todoctl auth login")

// authorizedApp возвращает приложение, если сессии доступны защищенные страницы.
func authorizedApp(cmd *cobra.Command) (*client.App, error) {
	app, err := types.AppFrom(cmd.Context())
	if err != nil {
		return nil, err
	}
	if err := app.RequireAuth(); err != nil {
		return nil, errNotLoggedIn
	}
	return app, nil
}

func requestContext(cmd *cobra.Command, app *client.App) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), app.Config().RequestTimeout)
}

// failure переводит ошибку в сообщение для пользователя.
func failure(err error, fallback string) error {
	msg := client.UserMessage(err, fallback)
	if errors.Is(err, client.ErrUnauthorized) {
		return fmt.Errorf("%s (run: todoctl auth login)", msg)
	}
	return errors.New(msg)
}

func parseID(arg string) (int, error) {
	id, err := strconv.Atoi(arg)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid todo id %q", arg)
	}
	return id, nil
}
