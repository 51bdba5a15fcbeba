package fakeapi

import (
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"todoctl/internal/domain/todo"
)

func get(t *testing.T, s *Server, path, token string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, s.URL+path, nil)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestServer_LoginAndList(t *testing.T) {
	s := NewServer()
	defer s.Close()

	s.AddUser("alice", "alice@example.com", "password123")
	s.AddTodo("alice", "b", true)
	s.AddTodo("alice", "a", false)

	resp, err := http.PostForm(s.URL+"/auth/token", url.Values{"username": {"alice"}, "password": {"password123"}})
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var tok struct {
		AccessToken string `json:"access_token"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&tok))

	list := get(t, s, "/todos/?sort_by=title&sort_order=asc&skip=0&limit=10", tok.AccessToken)
	require.Equal(t, http.StatusOK, list.StatusCode)

	var res todo.ListResult
	require.NoError(t, json.NewDecoder(list.Body).Decode(&res))
	require.Len(t, res.Items, 2)
	assert.Equal(t, "a", res.Items[0].Title)
	assert.Equal(t, 2, res.Total)

	assert.Equal(t, 1, s.Calls("GET /todos/"))
	assert.Equal(t, []string{"sort_by=title&sort_order=asc&skip=0&limit=10"}, s.Queries("GET /todos/"))
}

func TestServer_RejectsMissingToken(t *testing.T) {
	s := NewServer()
	defer s.Close()

	resp := get(t, s, "/todos/", "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestServer_FailInjection(t *testing.T) {
	s := NewServer()
	defer s.Close()
	s.AddUser("alice", "alice@example.com", "password123")
	token := s.Token("alice")

	s.Fail("GET /todos/{id}", http.StatusServiceUnavailable, 1, "try later")

	resp := get(t, s, "/todos/1", token)
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.True(t, strings.Contains(string(body), "try later"))

	resp = get(t, s, "/todos/1", token)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, 2, s.Calls("GET /todos/{id}"))
}

func TestServer_RouteKeys(t *testing.T) {
	tests := []struct {
		name   string
		method string
		path   string
		route  string
	}{
		{name: "list root", method: http.MethodGet, path: "/todos/", route: "GET /todos/"},
		{name: "create root", method: http.MethodPost, path: "/todos/", route: "POST /todos/"},
		{name: "analytics", method: http.MethodGet, path: "/todos/analytics", route: "GET /todos/analytics"},
		{name: "item", method: http.MethodPut, path: "/todos/3", route: "PUT /todos/{id}"},
		{name: "export", method: http.MethodGet, path: "/todos/export/csv", route: "GET /todos/export/{format}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewServer()
			defer s.Close()
			s.AddUser("alice", "alice@example.com", "password123")
			s.Fail(tt.route, http.StatusInternalServerError, 1, "boom")

			req, err := http.NewRequest(tt.method, s.URL+tt.path, strings.NewReader(`{"title":"x"}`))
			require.NoError(t, err)
			req.Header.Set("Authorization", "Bearer "+s.Token("alice"))
			req.Header.Set("Content-Type", "application/json")
			resp, err := http.DefaultClient.Do(req)
			require.NoError(t, err)
			defer resp.Body.Close()

			assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
			assert.Equal(t, 1, s.Calls(tt.route))
			assert.Zero(t, s.TodoCount())
		})
	}
}

func TestServer_Health(t *testing.T) {
	s := NewServer()
	defer s.Close()

	resp := get(t, s, "/health", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Status string `json:"status"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "healthy", body.Status)
	assert.Equal(t, 1, s.Calls("GET /health"))
}
