package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"todoctl/cmd/client/cmd/types"
	"todoctl/internal/app/client"
)

type statusView struct {
	Authenticated   bool       `json:"authenticated"`
	Username        string     `json:"username,omitempty"`
	Email           string     `json:"email,omitempty"`
	ProfileError    string     `json:"profile_error,omitempty"`
	TokenSubject    string     `json:"token_subject,omitempty"`
	TokenExpiresAt  *time.Time `json:"token_expires_at,omitempty"`
	TokenExpired    bool       `json:"token_expired"`
	Location        string     `json:"location"`
	Server          string     `json:"server"`
	ServerReachable bool       `json:"server_reachable"`
	DurableStorage  bool       `json:"durable_storage"`
}

var StatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the session state",
	Long: `Показывает состояние сессии: пользователя, срок действия токена,
доступность сервера и хранилища. Профиль пользователя обновляется с сервера;
ошибка обновления не завершает сессию.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, err := types.AppFrom(cmd.Context())
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), app.Config().RequestTimeout)
		defer cancel()

		view := collectStatus(ctx, app)

		if types.OptionsFrom(cmd.Context()).JSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(view)
		}
		printStatus(cmd.OutOrStdout(), view)
		return nil
	},
}

func collectStatus(ctx context.Context, app *client.App) statusView {
	st := app.Session().State()
	view := statusView{
		Authenticated:  st.IsAuthenticated,
		Location:       app.Router().Current(),
		Server:         app.Config().ServerURL,
		DurableStorage: app.Durable(),
	}

	view.ServerReachable = app.Health(ctx) == nil

	if !st.IsAuthenticated {
		return view
	}

	if claims, ok := app.Claims(); ok {
		view.TokenSubject = claims.Subject
		if !claims.ExpiresAt.IsZero() {
			exp := claims.ExpiresAt
			view.TokenExpiresAt = &exp
			view.TokenExpired = claims.Expired(time.Now())
		}
	}

	u, err := app.CurrentUser(ctx)
	if err != nil {
		view.ProfileError = client.UserMessage(err, "Failed to load profile")
		// остается профиль, сохраненный при прошлом обновлении
		u = st.User
	}
	if u != nil {
		view.Username = u.Username
		view.Email = u.Email
	}
	return view
}

func printStatus(w io.Writer, v statusView) {
	if !v.Authenticated {
		fmt.Fprintln(w, "Not logged in. Run: todoctl auth login")
	} else {
		name := v.Username
		if name == "" {
			name = v.TokenSubject
		}
		fmt.Fprintf(w, "Logged in as: %s\n", name)
		if v.Email != "" {
			fmt.Fprintf(w, "Email:        %s\n", v.Email)
		}
		if v.ProfileError != "" {
			fmt.Fprintf(w, "⚠️  Profile not refreshed: %s\n", v.ProfileError)
		}
		if v.TokenExpiresAt != nil {
			state := "valid"
			if v.TokenExpired {
				state = "expired, log in again"
			}
			fmt.Fprintf(w, "Token:        %s until %s\n", state, v.TokenExpiresAt.Local().Format("2006-01-02 15:04"))
		}
	}

	reach := "reachable"
	if !v.ServerReachable {
		reach = "unreachable"
	}
	fmt.Fprintf(w, "Server:       %s (%s)\n", v.Server, reach)

	storage := "durable"
	if !v.DurableStorage {
		storage = "memory only"
	}
	fmt.Fprintf(w, "Storage:      %s\n", storage)
}
