package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
	"golang.org/x/exp/slog"

	"todoctl/internal/app/client/config"
	"todoctl/internal/app/client/metrics"
	"todoctl/internal/domain/todo"
	"todoctl/internal/domain/user"
)

const userAgent = "todoctl/1.0"

// TokenSource отдает bearer-токен в момент запроса. Пустая строка - анонимный запрос.
type TokenSource func() string

type httpClient struct {
	client    *http.Client
	log       *slog.Logger
	metrics   *metrics.Metrics
	baseURL   string
	userAgent string
	token     TokenSource
	retries   uint64
	retryBase time.Duration
}

// request описывает один вызов API. Повторяются только запросы с retry.
type request struct {
	method      string
	route       string
	path        string
	query       url.Values
	body        []byte
	contentType string
	retry       bool
}

func NewHTTPClient(cfg *config.Config, token TokenSource, m *metrics.Metrics, log *slog.Logger) *httpClient {
	client := &http.Client{
		Timeout: cfg.RequestTimeout,
		Transport: &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConns:        100,
			IdleConnTimeout:     90 * time.Second,
			MaxIdleConnsPerHost: 10,
		},
	}

	if token == nil {
		token = func() string { return "" }
	}

	retryBase := cfg.RetryBaseDelay
	if retryBase <= 0 {
		retryBase = time.Millisecond
	}

	retries := uint64(0)
	if cfg.QueryRetries > 0 {
		retries = uint64(cfg.QueryRetries)
	}

	return &httpClient{
		client:    client,
		log:       log.With(slog.String("component", "http_client")),
		metrics:   m,
		baseURL:   cfg.ServerURL,
		userAgent: userAgent,
		token:     token,
		retries:   retries,
		retryBase: retryBase,
	}
}

// HealthCheck проверяет доступность сервера
func (h *httpClient) HealthCheck(ctx context.Context) error {
	_, err := h.send(ctx, request{method: http.MethodGet, route: "/health", path: "/health"})
	return err
}

// Login обменивает логин и пароль на токен (form-encoded, как требует OAuth2 password flow).
func (h *httpClient) Login(ctx context.Context, creds user.Credentials) (user.Token, error) {
	form := url.Values{}
	form.Set("username", creds.Username)
	form.Set("password", creds.Password)

	var token user.Token
	err := h.call(ctx, request{
		method:      http.MethodPost,
		route:       "/auth/token",
		path:        "/auth/token",
		body:        []byte(form.Encode()),
		contentType: "application/x-www-form-urlencoded",
	}, &token)
	if err != nil {
		return user.Token{}, err
	}
	if token.AccessToken == "" {
		return user.Token{}, fmt.Errorf("login: empty access token in response")
	}
	return token, nil
}

func (h *httpClient) Register(ctx context.Context, req user.RegisterRequest) (*user.User, error) {
	r, err := jsonRequest(http.MethodPost, "/auth/register", "/auth/register", req)
	if err != nil {
		return nil, err
	}

	var u user.User
	if err := h.call(ctx, r, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// Me возвращает текущего пользователя по токену
func (h *httpClient) Me(ctx context.Context) (*user.User, error) {
	var u user.User
	err := h.call(ctx, request{method: http.MethodGet, route: "/auth/me", path: "/auth/me", retry: true}, &u)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (h *httpClient) ListTodos(ctx context.Context, q todo.Query) (todo.ListResult, error) {
	var res todo.ListResult
	err := h.call(ctx, request{
		method: http.MethodGet,
		route:  "/todos/",
		path:   "/todos/",
		query:  q.Values(),
		retry:  true,
	}, &res)
	return res, err
}

func (h *httpClient) GetTodo(ctx context.Context, id int) (todo.Todo, error) {
	var t todo.Todo
	err := h.call(ctx, request{
		method: http.MethodGet,
		route:  "/todos/{id}",
		path:   "/todos/" + strconv.Itoa(id),
		retry:  true,
	}, &t)
	return t, err
}

func (h *httpClient) CreateTodo(ctx context.Context, req todo.CreateRequest) (todo.Todo, error) {
	r, err := jsonRequest(http.MethodPost, "/todos/", "/todos/", req)
	if err != nil {
		return todo.Todo{}, err
	}

	var t todo.Todo
	err = h.call(ctx, r, &t)
	return t, err
}

func (h *httpClient) UpdateTodo(ctx context.Context, id int, req todo.UpdateRequest) (todo.Todo, error) {
	r, err := jsonRequest(http.MethodPut, "/todos/{id}", "/todos/"+strconv.Itoa(id), req)
	if err != nil {
		return todo.Todo{}, err
	}

	var t todo.Todo
	err = h.call(ctx, r, &t)
	return t, err
}

func (h *httpClient) DeleteTodo(ctx context.Context, id int) error {
	_, err := h.send(ctx, request{
		method: http.MethodDelete,
		route:  "/todos/{id}",
		path:   "/todos/" + strconv.Itoa(id),
	})
	return err
}

func (h *httpClient) GetAnalytics(ctx context.Context) (todo.Analytics, error) {
	var a todo.Analytics
	err := h.call(ctx, request{
		method: http.MethodGet,
		route:  "/todos/analytics",
		path:   "/todos/analytics",
		retry:  true,
	}, &a)
	return a, err
}

// ExportTodos скачивает все задачи по фильтру. Пагинация не передается.
func (h *httpClient) ExportTodos(ctx context.Context, format todo.ExportFormat, q todo.Query) ([]byte, error) {
	return h.send(ctx, request{
		method: http.MethodGet,
		route:  "/todos/export/{format}",
		path:   "/todos/export/" + url.PathEscape(string(format)),
		query:  q.FilterValues(),
	})
}

func jsonRequest(method, route, path string, body interface{}) (request, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return request{}, fmt.Errorf("marshal request body: %w", err)
	}
	return request{
		method:      method,
		route:       route,
		path:        path,
		body:        data,
		contentType: "application/json",
	}, nil
}

func (h *httpClient) call(ctx context.Context, r request, result interface{}) error {
	body, err := h.send(ctx, r)
	if err != nil {
		return err
	}
	return h.parseResponse(r, body, result)
}

func (h *httpClient) parseResponse(r request, body []byte, result interface{}) error {
	if result == nil {
		return nil
	}
	if err := json.Unmarshal(body, result); err != nil {
		return fmt.Errorf("decode %s %s response: %w", r.method, r.route, err)
	}
	return nil
}

// send выполняет запрос; запросы-чтения повторяются при 5xx и сетевых ошибках
// с экспоненциальной задержкой.
func (h *httpClient) send(ctx context.Context, r request) ([]byte, error) {
	if !r.retry || h.retries == 0 {
		return h.doRequest(ctx, r)
	}

	var (
		body    []byte
		attempt int
	)
	backoff := retry.WithMaxRetries(h.retries, retry.NewExponential(h.retryBase))

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		if attempt > 0 {
			h.metrics.Retry(r.route)
			h.log.Debug("retrying request",
				"method", r.method,
				"route", r.route,
				"attempt", attempt+1,
			)
		}
		attempt++

		data, err := h.doRequest(ctx, r)
		if err != nil {
			if retryable(ctx, err) {
				return retry.RetryableError(err)
			}
			return err
		}
		body = data
		return nil
	})

	return body, err
}

func retryable(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Temporary()
	}
	return errors.Is(err, ErrUnavailable)
}

func (h *httpClient) doRequest(ctx context.Context, r request) ([]byte, error) {
	target := h.baseURL + r.path
	if len(r.query) > 0 {
		target += "?" + r.query.Encode()
	}

	var reqBody io.Reader
	if r.body != nil {
		reqBody = bytes.NewReader(r.body)
	}

	req, err := http.NewRequestWithContext(ctx, r.method, target, reqBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	// Добавляем заголовки
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", h.userAgent)
	req.Header.Set("X-Request-ID", uuid.NewString())
	if r.contentType != "" {
		req.Header.Set("Content-Type", r.contentType)
	}
	if token := h.token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	h.log.Debug("Отправка запроса",
		"method", r.method,
		"url", req.URL.String(),
		"request_id", req.Header.Get("X-Request-ID"),
	)

	start := time.Now()
	resp, err := h.client.Do(req)
	if err != nil {
		h.metrics.ObserveRequest(r.method, r.route, 0, time.Since(start))
		return nil, &TransportError{Op: r.method + " " + r.route, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	h.metrics.ObserveRequest(r.method, r.route, resp.StatusCode, time.Since(start))
	if err != nil {
		return nil, &TransportError{Op: r.method + " " + r.route, Err: fmt.Errorf("read response: %w", err)}
	}

	h.log.Debug("Получен ответ",
		"method", r.method,
		"route", r.route,
		"status", resp.StatusCode,
		"bytes", len(body),
		"duration", time.Since(start),
	)

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, newAPIError(resp.StatusCode, body)
	}

	return body, nil
}
