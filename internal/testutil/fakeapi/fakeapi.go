// Package fakeapi is an in-memory todo backend speaking the same REST
// dialect as the real server. It is used by tests only.
package fakeapi

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/exp/slog"

	"todoctl/internal/domain/todo"
	"todoctl/internal/domain/user"
	"todoctl/internal/utils/logger"
)

const (
	exportLimit = 1000
	tokenTTL    = 30 * time.Minute
)

var secret = []byte("fakeapi-secret")

type account struct {
	user user.User
	hash []byte
}

type failure struct {
	status int
	detail interface{}
	left   int
}

// Server is a running fake backend.
type Server struct {
	*httptest.Server

	log *slog.Logger

	mu       sync.Mutex
	accounts map[string]*account
	todos    map[int]*todo.Todo
	nextUser int
	nextTodo int
	clock    time.Time
	calls    map[string]int
	queries  map[string][]string
	failures map[string]*failure
	gate     map[string]chan struct{}
}

func NewServer() *Server {
	s := &Server{
		log:      logger.Discard(),
		accounts: make(map[string]*account),
		todos:    make(map[int]*todo.Todo),
		nextUser: 1,
		nextTodo: 1,
		clock:    time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC),
		calls:    make(map[string]int),
		queries:  make(map[string][]string),
		failures: make(map[string]*failure),
		gate:     make(map[string]chan struct{}),
	}
	s.Server = httptest.NewServer(s.routes())
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.record)

	api := humachi.New(r, huma.DefaultConfig("fakeapi", "1.0.0"))
	s.registerHealth(api)

	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", s.register)
		r.Post("/token", s.login)
		r.With(s.auth).Get("/me", s.me)
	})

	r.Route("/todos", func(r chi.Router) {
		r.Use(s.auth)
		r.Get("/", s.list)
		r.Post("/", s.create)
		r.Get("/analytics", s.analytics)
		r.Get("/export/{format}", s.export)
		r.Get("/{id}", s.get)
		r.Put("/{id}", s.update)
		r.Delete("/{id}", s.delete)
	})

	return r
}

// Calls returns how many requests hit "METHOD /route/pattern".
func (s *Server) Calls(route string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[route]
}

// Queries returns the raw query strings seen for route, oldest first.
func (s *Server) Queries(route string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.queries[route]...)
}

// Fail makes the next n requests to route answer status with the given detail.
// detail may be a string, a list (FastAPI validation style) or nil.
func (s *Server) Fail(route string, status, n int, detail interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[route] = &failure{status: status, detail: detail, left: n}
}

// Hold blocks requests to route until the returned func is called.
func (s *Server) Hold(route string) (release func()) {
	ch := make(chan struct{})
	s.mu.Lock()
	s.gate[route] = ch
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.gate, route)
			s.mu.Unlock()
			close(ch)
		})
	}
}

// AddUser registers an account directly.
func (s *Server) AddUser(username, email, password string) user.User {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		panic(err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	u := user.User{
		ID:        s.nextUser,
		Username:  username,
		Email:     email,
		IsActive:  true,
		CreatedAt: todo.NewTime(s.tick()),
		Todos:     []todo.Todo{},
	}
	s.nextUser++
	s.accounts[username] = &account{user: u, hash: hash}
	return u
}

// AddTodo stores a todo for username with increasing creation times.
func (s *Server) AddTodo(username, title string, completed bool) todo.Todo {
	s.mu.Lock()
	defer s.mu.Unlock()

	acc, ok := s.accounts[username]
	if !ok {
		panic("fakeapi: unknown user " + username)
	}
	return s.insertLocked(acc.user.ID, todo.CreateRequest{Title: title, Completed: todo.Bool(completed)})
}

// Token issues a valid bearer token for username.
func (s *Server) Token(username string) string {
	token, err := issueToken(username)
	if err != nil {
		panic(err)
	}
	return token
}

// TodoCount returns the number of stored todos across users.
func (s *Server) TodoCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.todos)
}

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rctx := chi.NewRouteContext()
		pattern := r.URL.Path
		if routes := chi.RouteContext(r.Context()).Routes; routes != nil && routes.Match(rctx, r.Method, r.URL.Path) {
			pattern = rctx.RoutePattern()
		}
		// chi trims the slash of a subrouter root: "/todos/" -> "/todos"
		if strings.HasSuffix(r.URL.Path, "/") && !strings.HasSuffix(pattern, "/") {
			pattern += "/"
		}
		route := r.Method + " " + pattern

		s.mu.Lock()
		s.calls[route]++
		s.queries[route] = append(s.queries[route], r.URL.RawQuery)
		gate := s.gate[route]
		f := s.failures[route]
		var fail *failure
		if f != nil && f.left > 0 {
			f.left--
			fail = f
		}
		s.mu.Unlock()

		if gate != nil {
			select {
			case <-gate:
			case <-r.Context().Done():
				return
			}
		}

		if fail != nil {
			writeJSON(w, fail.status, map[string]interface{}{"detail": fail.detail})
			return
		}
		next.ServeHTTP(w, r)
	})
}

type ctxKey struct{}

func (s *Server) auth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || raw == "" {
			writeDetail(w, http.StatusUnauthorized, "Not authenticated")
			return
		}

		claims := &jwt.RegisteredClaims{}
		_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
			return secret, nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
		if err != nil {
			writeDetail(w, http.StatusUnauthorized, "Could not validate credentials")
			return
		}

		s.mu.Lock()
		acc, ok := s.accounts[claims.Subject]
		s.mu.Unlock()
		if !ok {
			writeDetail(w, http.StatusUnauthorized, "Could not validate credentials")
			return
		}
		if !acc.user.IsActive {
			writeDetail(w, http.StatusBadRequest, "Inactive user")
			return
		}

		next.ServeHTTP(w, r.WithContext(withUser(r, acc.user)))
	})
}

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var req user.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeValidation(w, "body", "Invalid JSON")
		return
	}
	if err := user.NewPasswordValidator().ValidateRegister(req); err != nil {
		writeValidation(w, "body", err.Error())
		return
	}

	s.mu.Lock()
	if _, exists := s.accounts[req.Username]; exists {
		s.mu.Unlock()
		writeDetail(w, http.StatusBadRequest, "Username already registered")
		return
	}
	for _, acc := range s.accounts {
		if strings.EqualFold(acc.user.Email, req.Email) {
			s.mu.Unlock()
			writeDetail(w, http.StatusBadRequest, "Email already registered")
			return
		}
	}
	s.mu.Unlock()

	u := s.AddUser(req.Username, req.Email, req.Password)
	writeJSON(w, http.StatusOK, u)
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeValidation(w, "body", "Invalid form")
		return
	}
	username := r.PostForm.Get("username")
	password := r.PostForm.Get("password")
	if username == "" || password == "" {
		writeValidation(w, "body", "Field required")
		return
	}

	s.mu.Lock()
	acc, ok := s.accounts[username]
	s.mu.Unlock()
	if !ok || bcrypt.CompareHashAndPassword(acc.hash, []byte(password)) != nil {
		w.Header().Set("WWW-Authenticate", "Bearer")
		writeDetail(w, http.StatusUnauthorized, "Incorrect username or password")
		return
	}

	token, err := issueToken(username)
	if err != nil {
		writeDetail(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeJSON(w, http.StatusOK, user.Token{AccessToken: token, TokenType: "bearer"})
}

func (s *Server) me(w http.ResponseWriter, r *http.Request) {
	u := currentUser(r)

	s.mu.Lock()
	u.Todos = s.userTodosLocked(u.ID)
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, u)
}

func (s *Server) list(w http.ResponseWriter, r *http.Request) {
	u := currentUser(r)
	q := r.URL.Query()

	skip, err := intParam(q.Get("skip"), 0)
	if err != nil || skip < 0 {
		writeValidation(w, "skip", "Input should be greater than or equal to 0")
		return
	}
	limit, err := intParam(q.Get("limit"), todo.DefaultLimit)
	if err != nil || limit < 1 || limit > todo.MaxLimit {
		writeValidation(w, "limit", "Input should be between 1 and 100")
		return
	}

	items, ok := s.filtered(w, u.ID, q)
	if !ok {
		return
	}

	total := len(items)
	page := []todo.Todo{}
	if skip < total {
		end := skip + limit
		if end > total {
			end = total
		}
		page = items[skip:end]
	}

	writeJSON(w, http.StatusOK, todo.ListResult{Items: page, Total: total, Skip: skip, Limit: limit})
}

func (s *Server) create(w http.ResponseWriter, r *http.Request) {
	u := currentUser(r)

	var req todo.CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeValidation(w, "body", "Invalid JSON")
		return
	}
	if _, err := todo.NormalizeCreate(req); err != nil {
		writeValidation(w, "title", err.Error())
		return
	}

	s.mu.Lock()
	t := s.insertLocked(u.ID, req)
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, t)
}

func (s *Server) get(w http.ResponseWriter, r *http.Request) {
	t, ok := s.owned(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (s *Server) update(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.owned(w, r); !ok {
		return
	}
	id, _ := strconv.Atoi(chi.URLParam(r, "id"))

	var req todo.UpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeValidation(w, "body", "Invalid JSON")
		return
	}
	if req.Title != nil && strings.TrimSpace(*req.Title) == "" {
		writeValidation(w, "title", "Title cannot be empty")
		return
	}

	s.mu.Lock()
	t := s.todos[id]
	if req.Title != nil {
		t.Title = strings.TrimSpace(*req.Title)
	}
	if req.Description != nil {
		t.Description = req.Description
	}
	if req.Completed != nil {
		t.Completed = *req.Completed
	}
	updated := todo.NewTime(s.tick())
	t.UpdatedAt = &updated
	res := *t
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, res)
}

func (s *Server) delete(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.owned(w, r); !ok {
		return
	}
	id, _ := strconv.Atoi(chi.URLParam(r, "id"))

	s.mu.Lock()
	delete(s.todos, id)
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]string{"message": "Todo deleted successfully"})
}

func (s *Server) analytics(w http.ResponseWriter, r *http.Request) {
	u := currentUser(r)

	s.mu.Lock()
	items := s.userTodosLocked(u.ID)
	s.mu.Unlock()

	a := todo.Analytics{Total: len(items)}
	for _, t := range items {
		if t.Completed {
			a.Completed++
		}
	}
	a.Pending = a.Total - a.Completed
	if a.Total > 0 {
		rate := float64(a.Completed) / float64(a.Total) * 100
		a.CompletionRate = float64(int(rate*100+0.5)) / 100
	}
	writeJSON(w, http.StatusOK, a)
}

func (s *Server) export(w http.ResponseWriter, r *http.Request) {
	u := currentUser(r)
	format := chi.URLParam(r, "format")
	if format != string(todo.ExportJSON) && format != string(todo.ExportCSV) {
		writeDetail(w, http.StatusBadRequest, "Invalid format. Use 'json' or 'csv'.")
		return
	}

	items, ok := s.filtered(w, u.ID, r.URL.Query())
	if !ok {
		return
	}
	if len(items) > exportLimit {
		items = items[:exportLimit]
	}

	if format == string(todo.ExportJSON) {
		w.Header().Set("Content-Disposition", "attachment; filename=todos.json")
		writeJSON(w, http.StatusOK, items)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", "attachment; filename=todos.csv")
	w.WriteHeader(http.StatusOK)

	cw := csv.NewWriter(w)
	_ = cw.Write([]string{"ID", "Title", "Description", "Completed", "Created At", "Updated At"})
	for _, t := range items {
		updated := ""
		if t.UpdatedAt != nil {
			updated = t.UpdatedAt.Format(time.RFC3339)
		}
		_ = cw.Write([]string{
			strconv.Itoa(t.ID),
			t.Title,
			t.DescriptionText(),
			strconv.FormatBool(t.Completed),
			t.CreatedAt.Format(time.RFC3339),
			updated,
		})
	}
	cw.Flush()
}

func (s *Server) owned(w http.ResponseWriter, r *http.Request) (todo.Todo, bool) {
	u := currentUser(r)
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		writeValidation(w, "todo_id", "Input should be a valid integer")
		return todo.Todo{}, false
	}

	s.mu.Lock()
	t, ok := s.todos[id]
	var res todo.Todo
	if ok {
		res = *t
	}
	s.mu.Unlock()

	if !ok || res.UserID != u.ID {
		writeDetail(w, http.StatusNotFound, "Todo not found")
		return todo.Todo{}, false
	}
	return res, true
}

func (s *Server) filtered(w http.ResponseWriter, userID int, q map[string][]string) ([]todo.Todo, bool) {
	get := func(k string) string {
		if v := q[k]; len(v) > 0 {
			return v[0]
		}
		return ""
	}

	var completed *bool
	if c := get("completed"); c != "" {
		b, err := strconv.ParseBool(c)
		if err != nil {
			writeValidation(w, "completed", "Input should be a valid boolean")
			return nil, false
		}
		completed = &b
	}

	sortBy := todo.SortField(get("sort_by"))
	if sortBy == "" {
		sortBy = todo.SortByCreatedAt
	}
	order := todo.SortOrder(get("sort_order"))
	if order == "" {
		order = todo.SortDesc
	}
	if order.Validate() != nil {
		writeValidation(w, "sort_order", "String should match pattern '^(asc|desc)$'")
		return nil, false
	}

	search := strings.ToLower(get("search"))

	s.mu.Lock()
	all := s.userTodosLocked(userID)
	s.mu.Unlock()

	items := make([]todo.Todo, 0, len(all))
	for _, t := range all {
		if completed != nil && t.Completed != *completed {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(t.Title), search) &&
			!strings.Contains(strings.ToLower(t.DescriptionText()), search) {
			continue
		}
		items = append(items, t)
	}

	less := lessFunc(sortBy)
	sort.SliceStable(items, func(i, j int) bool {
		if order == todo.SortAsc {
			return less(items[i], items[j])
		}
		return less(items[j], items[i])
	})
	return items, true
}

func lessFunc(f todo.SortField) func(a, b todo.Todo) bool {
	switch f {
	case todo.SortByTitle:
		return func(a, b todo.Todo) bool { return a.Title < b.Title }
	case todo.SortByCompleted:
		return func(a, b todo.Todo) bool { return !a.Completed && b.Completed }
	case todo.SortByUpdatedAt:
		return func(a, b todo.Todo) bool { return updatedAt(a).Before(updatedAt(b)) }
	default:
		return func(a, b todo.Todo) bool { return a.CreatedAt.Before(b.CreatedAt.Time) }
	}
}

func updatedAt(t todo.Todo) time.Time {
	if t.UpdatedAt != nil {
		return t.UpdatedAt.Time
	}
	return t.CreatedAt.Time
}

func (s *Server) insertLocked(userID int, req todo.CreateRequest) todo.Todo {
	t := &todo.Todo{
		ID:          s.nextTodo,
		Title:       strings.TrimSpace(req.Title),
		Description: req.Description,
		CreatedAt:   todo.NewTime(s.tick()),
		UserID:      userID,
	}
	if req.Completed != nil {
		t.Completed = *req.Completed
	}
	s.nextTodo++
	s.todos[t.ID] = t
	return *t
}

func (s *Server) userTodosLocked(userID int) []todo.Todo {
	items := make([]todo.Todo, 0)
	for _, t := range s.todos {
		if t.UserID == userID {
			items = append(items, *t)
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	return items
}

func (s *Server) tick() time.Time {
	s.clock = s.clock.Add(time.Minute)
	return s.clock
}

func issueToken(username string) (string, error) {
	claims := jwt.RegisteredClaims{
		Subject:   username,
		IssuedAt:  jwt.NewNumericDate(time.Now()),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(tokenTTL)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

func withUser(r *http.Request, u user.User) context.Context {
	return context.WithValue(r.Context(), ctxKey{}, u)
}

func currentUser(r *http.Request) user.User {
	u, _ := r.Context().Value(ctxKey{}).(user.User)
	return u
}

func intParam(s string, def int) (int, error) {
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, errors.New("not an integer")
	}
	return n, nil
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

// writeValidation answers 422 with a list-valued detail, as FastAPI does.
func writeValidation(w http.ResponseWriter, field, msg string) {
	writeJSON(w, http.StatusUnprocessableEntity, map[string]interface{}{
		"detail": []map[string]interface{}{
			{"loc": []string{"body", field}, "msg": msg, "type": "value_error"},
		},
	})
}
