package client

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"todoctl/internal/domain/session"
	"todoctl/internal/domain/todo"
	"todoctl/internal/domain/user"
	"todoctl/internal/infrastructure/storage/memory"
	"todoctl/internal/testutil/fakeapi"
	"todoctl/internal/utils/logger"
)

func newTestApp(t *testing.T, mem *memory.Storage) (*App, *fakeapi.Server) {
	t.Helper()
	srv := fakeapi.NewServer()
	t.Cleanup(srv.Close)

	if mem == nil {
		mem = memory.New()
	}
	cfg := testConfig(srv.URL)
	cfg.DataPath = "memory"

	app, err := NewWithStorage(cfg, mem, false, logger.Discard())
	require.NoError(t, err)
	t.Cleanup(app.Shutdown)
	return app, srv
}

func TestNewWithStorage_InvalidConfig(t *testing.T) {
	cfg := testConfig("")
	cfg.DataPath = "memory"

	_, err := NewWithStorage(cfg, memory.New(), false, logger.Discard())
	require.Error(t, err)
}

func TestApp_Login(t *testing.T) {
	app, srv := newTestApp(t, nil)
	srv.AddUser("alice", "alice@example.com", "password123")

	assert.Equal(t, session.PathLogin, app.Router().Current())

	err := app.Login(context.Background(), user.Credentials{Username: "alice", Password: "password123"})
	require.NoError(t, err)

	assert.True(t, app.Session().IsAuthenticated())
	assert.NotEmpty(t, app.Session().Token())
	assert.Equal(t, session.PathRoot, app.Router().Current())
	assert.NoError(t, app.RequireAuth())

	// профиль догружается в фоне
	app.wg.Wait()
	u := app.Session().User()
	require.NotNil(t, u)
	assert.Equal(t, "alice", u.Username)
	assert.Equal(t, 1, srv.Calls("GET /auth/me"))

	claims, ok := app.Claims()
	require.True(t, ok)
	assert.Equal(t, "alice", claims.Subject)
}

func TestApp_LoginFailure(t *testing.T) {
	tests := []struct {
		name    string
		creds   user.Credentials
		message string
		calls   int
	}{
		{
			name:    "wrong password",
			creds:   user.Credentials{Username: "alice", Password: "nope-nope"},
			message: "Incorrect username or password",
			calls:   1,
		},
		{
			name:  "empty password never reaches server",
			creds: user.Credentials{Username: "alice"},
			calls: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app, srv := newTestApp(t, nil)
			srv.AddUser("alice", "alice@example.com", "password123")

			err := app.Login(context.Background(), tt.creds)
			require.Error(t, err)

			assert.False(t, app.Session().IsAuthenticated())
			assert.Equal(t, session.PathLogin, app.Router().Current())
			assert.Equal(t, tt.calls, srv.Calls("POST /auth/token"))
			assert.ErrorIs(t, app.RequireAuth(), ErrUnauthorized)
			if tt.message != "" {
				assert.Equal(t, tt.message, UserMessage(err, MsgLoginFailed))
			}
		})
	}
}

func TestApp_LoginServerErrorFallsBackToGenericMessage(t *testing.T) {
	app, srv := newTestApp(t, nil)
	srv.AddUser("alice", "alice@example.com", "password123")
	srv.Fail("POST /auth/token", http.StatusInternalServerError, 1, nil)

	err := app.Login(context.Background(), user.Credentials{Username: "alice", Password: "password123"})
	require.Error(t, err)
	assert.Equal(t, MsgLoginFailed, UserMessage(err, MsgLoginFailed))
	assert.Equal(t, 1, srv.Calls("POST /auth/token"))
}

func TestApp_Register(t *testing.T) {
	app, srv := newTestApp(t, nil)

	app.Router().Navigate(session.PathRegister)
	assert.Equal(t, session.PathRegister, app.Router().Current())

	u, err := app.Register(context.Background(), user.RegisterRequest{
		Username: "bob",
		Email:    "bob@example.com",
		Password: "password123",
	})
	require.NoError(t, err)
	assert.Equal(t, "bob", u.Username)

	assert.False(t, app.Session().IsAuthenticated())
	assert.Equal(t, session.PathLogin, app.Router().Current())
	assert.Equal(t, 0, srv.Calls("POST /auth/token"))

	_, err = app.Register(context.Background(), user.RegisterRequest{
		Username: "bob",
		Email:    "bob2@example.com",
		Password: "password123",
	})
	require.Error(t, err)
	assert.Equal(t, "Username already registered", UserMessage(err, MsgRegistrationFailed))
}

func TestApp_RegisterValidation(t *testing.T) {
	app, srv := newTestApp(t, nil)

	_, err := app.Register(context.Background(), user.RegisterRequest{
		Username: "b",
		Email:    "bob@example.com",
		Password: "password123",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, user.ErrInvalidInput)
	assert.NotEqual(t, MsgRegistrationFailed, UserMessage(err, MsgRegistrationFailed))
	assert.Equal(t, 0, srv.Calls("POST /auth/register"))
}

func TestApp_Logout(t *testing.T) {
	mem := memory.New()
	app, srv := newTestApp(t, mem)
	srv.AddUser("alice", "alice@example.com", "password123")
	srv.AddTodo("alice", "milk", false)

	ctx := context.Background()
	require.NoError(t, app.Login(ctx, user.Credentials{Username: "alice", Password: "password123"}))
	app.wg.Wait()

	q := todo.DefaultQuery()
	_, err := app.Todos().List(ctx, q)
	require.NoError(t, err)
	_, ok := app.Todos().CachedList(q)
	require.True(t, ok)

	require.NoError(t, app.Logout(ctx))

	assert.False(t, app.Session().IsAuthenticated())
	assert.Nil(t, app.Session().User())
	assert.Equal(t, session.PathLogin, app.Router().Current())

	_, ok = app.Todos().CachedList(q)
	assert.False(t, ok)

	_, err = mem.Get(ctx, session.KeyToken)
	assert.ErrorIs(t, err, session.ErrNotFound)
	_, err = mem.Get(ctx, session.KeyUser)
	assert.ErrorIs(t, err, session.ErrNotFound)
}

func TestApp_CurrentUserWithoutToken(t *testing.T) {
	app, srv := newTestApp(t, nil)

	_, err := app.CurrentUser(context.Background())
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.Equal(t, 0, srv.Calls("GET /auth/me"))
}

func TestApp_CurrentUserFailureKeepsSession(t *testing.T) {
	app, srv := newTestApp(t, nil)
	srv.AddUser("alice", "alice@example.com", "password123")
	// первый вызов и оба повтора падают
	srv.Fail("GET /auth/me", http.StatusServiceUnavailable, 3, nil)

	ctx := context.Background()
	require.NoError(t, app.Login(ctx, user.Credentials{Username: "alice", Password: "password123"}))
	app.wg.Wait()

	assert.True(t, app.Session().IsAuthenticated())
	assert.Nil(t, app.Session().User())
	assert.Equal(t, 3, srv.Calls("GET /auth/me"))

	u, err := app.CurrentUser(ctx)
	require.NoError(t, err)
	assert.Equal(t, "alice", u.Username)
	assert.Equal(t, "alice", app.Session().User().Username)
}

func TestApp_CurrentUserUnauthorizedKeepsToken(t *testing.T) {
	app, srv := newTestApp(t, nil)
	srv.AddUser("alice", "alice@example.com", "password123")
	srv.Fail("GET /auth/me", http.StatusUnauthorized, 1, "Could not validate credentials")

	ctx := context.Background()
	require.NoError(t, app.Login(ctx, user.Credentials{Username: "alice", Password: "password123"}))
	app.wg.Wait()

	assert.True(t, app.Session().IsAuthenticated())
	assert.Equal(t, session.PathRoot, app.Router().Current())
}

func TestApp_CurrentUserIsCached(t *testing.T) {
	app, srv := newTestApp(t, nil)
	srv.AddUser("alice", "alice@example.com", "password123")

	ctx := context.Background()
	require.NoError(t, app.Login(ctx, user.Credentials{Username: "alice", Password: "password123"}))
	app.wg.Wait()

	for i := 0; i < 3; i++ {
		_, err := app.CurrentUser(ctx)
		require.NoError(t, err)
	}
	assert.Equal(t, 1, srv.Calls("GET /auth/me"))
}

func TestApp_RehydratedSessionRefreshesUser(t *testing.T) {
	srv := fakeapi.NewServer()
	t.Cleanup(srv.Close)
	srv.AddUser("alice", "alice@example.com", "password123")

	mem := memory.New()
	require.NoError(t, mem.Put(context.Background(), map[string][]byte{
		session.KeyToken: []byte(srv.Token("alice")),
	}))

	cfg := testConfig(srv.URL)
	cfg.DataPath = "memory"
	app, err := NewWithStorage(cfg, mem, false, logger.Discard())
	require.NoError(t, err)
	defer app.Shutdown()

	assert.True(t, app.Session().IsAuthenticated())
	assert.Equal(t, session.PathRoot, app.Router().Current())

	app.Start(context.Background())
	app.wg.Wait()

	require.NotNil(t, app.Session().User())
	assert.Equal(t, "alice", app.Session().User().Username)

	stored, err := mem.Get(context.Background(), session.KeyUser)
	require.NoError(t, err)
	assert.Contains(t, string(stored), `"username":"alice"`)
}

func TestApp_MutationsLeaveUserCache(t *testing.T) {
	app, srv := newTestApp(t, nil)
	srv.AddUser("alice", "alice@example.com", "password123")

	ctx := context.Background()
	require.NoError(t, app.Login(ctx, user.Credentials{Username: "alice", Password: "password123"}))
	app.wg.Wait()

	_, err := app.Todos().Create(ctx, todo.CreateRequest{Title: "milk"})
	require.NoError(t, err)

	_, err = app.CurrentUser(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, srv.Calls("GET /auth/me"))
}

func TestApp_ShutdownIsIdempotent(t *testing.T) {
	app, _ := newTestApp(t, nil)

	app.Shutdown()
	app.Shutdown()

	// после остановки фоновые обновления не запускаются
	app.refreshUserAsync()
	app.wg.Wait()
}

func TestApp_Health(t *testing.T) {
	app, srv := newTestApp(t, nil)
	require.NoError(t, app.Health(context.Background()))

	srv.Close()
	err := app.Health(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnavailable))
}
