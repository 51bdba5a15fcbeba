package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"todoctl/internal/testutil/fakeapi"
)

// execute runs one CLI invocation the way main does.
func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()

	cfgFile, debug, jsonOutput, serverURL = "", false, false, ""

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetIn(strings.NewReader(stdin))
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetIn(nil)
	})

	err := run(context.Background(), args)
	return out.String(), err
}

func TestCLI_SessionLifecycle(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("CONFIG_DIR", dir)
	t.Setenv("APP_ENV", "prod")

	srv := fakeapi.NewServer()
	defer srv.Close()
	srv.AddUser("alice", "alice@example.com", "password123")

	out, err := execute(t, "", "todo", "list", "--server", srv.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not logged in")
	assert.Equal(t, 0, srv.Calls("GET /todos/"))

	out, err = execute(t, "wrong-password\n", "auth", "login", "--username", "alice", "--server", srv.URL)
	require.Error(t, err)
	assert.Equal(t, "Incorrect username or password", err.Error())

	out, err = execute(t, "password123\n", "auth", "login", "--username", "alice", "--server", srv.URL)
	require.NoError(t, err)
	assert.Contains(t, out, "Login successful!")

	// сессия пережила перезапуск
	out, err = execute(t, "", "todo", "add", "buy", "milk", "--description", "two liters", "--server", srv.URL)
	require.NoError(t, err)
	assert.Contains(t, out, "Todo created successfully!")

	out, err = execute(t, "", "todo", "list", "--json", "--server", srv.URL)
	require.NoError(t, err)
	assert.Contains(t, out, `"title": "buy milk"`)
	assert.Contains(t, out, `"total": 1`)

	out, err = execute(t, "", "todo", "update", "1", "--completed", "--server", srv.URL)
	require.NoError(t, err)
	assert.Contains(t, out, "Todo updated successfully!")

	out, err = execute(t, "", "todo", "analytics", "--server", srv.URL)
	require.NoError(t, err)
	assert.Contains(t, out, "Completion rate: 100.00%")

	out, err = execute(t, "", "auth", "status", "--server", srv.URL)
	require.NoError(t, err)
	assert.Contains(t, out, "Logged in as: alice")
	assert.Contains(t, out, "Storage:      durable")

	out, err = execute(t, "", "todo", "export", "csv", "-o", "-", "--server", srv.URL)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "ID,Title,Description,Completed,Created At,Updated At"))

	out, err = execute(t, "", "todo", "delete", "1", "--server", srv.URL)
	require.NoError(t, err)
	assert.Contains(t, out, "Todo deleted successfully!")

	out, err = execute(t, "", "auth", "logout", "--server", srv.URL)
	require.NoError(t, err)
	assert.Contains(t, out, "Logged out successfully")

	out, err = execute(t, "", "auth", "status", "--server", srv.URL)
	require.NoError(t, err)
	assert.Contains(t, out, "Not logged in")
}

func TestCLI_Register(t *testing.T) {
	t.Setenv("CONFIG_DIR", t.TempDir())
	t.Setenv("APP_ENV", "prod")

	srv := fakeapi.NewServer()
	defer srv.Close()

	out, err := execute(t, "bob\nbob@example.com\npassword123\npassword123\n", "auth", "register", "--server", srv.URL)
	require.NoError(t, err)
	assert.Contains(t, out, "Registration successful! Please login.")

	_, err = execute(t, "bob\nbob@example.com\npassword123\npassword321\n", "auth", "register", "--server", srv.URL)
	require.Error(t, err)
	assert.Equal(t, "passwords do not match", err.Error())

	_, err = execute(t, "bob\nbob2@example.com\npassword123\npassword123\n", "auth", "register", "--server", srv.URL)
	require.Error(t, err)
	assert.Equal(t, "Username already registered", err.Error())
}

func TestCLI_Init(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("CONFIG_DIR", dir)
	t.Setenv("APP_ENV", "prod")

	srv := fakeapi.NewServer()
	defer srv.Close()

	out, err := execute(t, "", "init", "--server", srv.URL)
	require.NoError(t, err)
	assert.Contains(t, out, "Config written")
	assert.Contains(t, out, "is reachable")

	data, err := os.ReadFile(filepath.Join(dir, "config.yaml"))
	require.NoError(t, err)
	assert.Contains(t, string(data), srv.URL)

	out, err = execute(t, "", "init")
	require.NoError(t, err)
	assert.Contains(t, out, "Config already exists")
}
