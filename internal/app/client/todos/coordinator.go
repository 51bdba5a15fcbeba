package todos

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/exp/slog"

	"todoctl/internal/app/client/cache"
	"todoctl/internal/app/client/metrics"
	"todoctl/internal/domain/todo"
)

// Cache keys. Every list query lives under ListPrefix.
const (
	ListPrefix   = "todos?"
	AnalyticsKey = "todos-analytics"
)

// Op names a mutation kind tracked by Pending.
type Op string

const (
	OpCreate Op = "create"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
	OpExport Op = "export"
)

// API is the subset of the REST client the coordinator needs.
type API interface {
	ListTodos(ctx context.Context, q todo.Query) (todo.ListResult, error)
	GetTodo(ctx context.Context, id int) (todo.Todo, error)
	CreateTodo(ctx context.Context, req todo.CreateRequest) (todo.Todo, error)
	UpdateTodo(ctx context.Context, id int, req todo.UpdateRequest) (todo.Todo, error)
	DeleteTodo(ctx context.Context, id int) error
	GetAnalytics(ctx context.Context) (todo.Analytics, error)
	ExportTodos(ctx context.Context, format todo.ExportFormat, q todo.Query) ([]byte, error)
}

// Coordinator reads todos through the cache and invalidates it after every
// successful mutation. It never edits cached pages in place.
type Coordinator struct {
	api       API
	lists     *cache.Cache[todo.ListResult]
	analytics *cache.Cache[todo.Analytics]
	metrics   *metrics.Metrics
	log       *slog.Logger

	pending map[Op]*atomic.Int32
}

// NewCoordinator builds the coordinator. fetchTimeout bounds a cached read
// shared by several callers; zero leaves it to the API.
func NewCoordinator(api API, staleTime, fetchTimeout time.Duration, m *metrics.Metrics, log *slog.Logger) *Coordinator {
	return &Coordinator{
		api: api,
		lists: cache.New[todo.ListResult]("todos", staleTime,
			cache.WithMetrics[todo.ListResult](m),
			cache.WithFetchTimeout[todo.ListResult](fetchTimeout),
		),
		analytics: cache.New[todo.Analytics]("analytics", staleTime,
			cache.WithMetrics[todo.Analytics](m),
			cache.WithFetchTimeout[todo.Analytics](fetchTimeout),
		),
		metrics:   m,
		log:       log.With(slog.String("component", "todos")),
		pending: map[Op]*atomic.Int32{
			OpCreate: {},
			OpUpdate: {},
			OpDelete: {},
			OpExport: {},
		},
	}
}

// ListKey is the cache key of q.
func ListKey(q todo.Query) string {
	return ListPrefix + q.Key()
}

func (c *Coordinator) List(ctx context.Context, q todo.Query) (todo.ListResult, error) {
	if err := q.Validate(); err != nil {
		return todo.ListResult{}, err
	}

	return c.lists.Get(ctx, ListKey(q), func(ctx context.Context) (todo.ListResult, error) {
		res, err := c.api.ListTodos(ctx, q)
		if err != nil {
			return todo.ListResult{}, fmt.Errorf("list todos: %w", err)
		}
		return res, nil
	})
}

func (c *Coordinator) Analytics(ctx context.Context) (todo.Analytics, error) {
	return c.analytics.Get(ctx, AnalyticsKey, func(ctx context.Context) (todo.Analytics, error) {
		a, err := c.api.GetAnalytics(ctx)
		if err != nil {
			return todo.Analytics{}, fmt.Errorf("get analytics: %w", err)
		}
		return a, nil
	})
}

// Get reads one todo directly; single items are not cached.
func (c *Coordinator) Get(ctx context.Context, id int) (todo.Todo, error) {
	t, err := c.api.GetTodo(ctx, id)
	if err != nil {
		return todo.Todo{}, fmt.Errorf("get todo %d: %w", id, err)
	}
	return t, nil
}

// Create validates req locally; an invalid request never reaches the server.
func (c *Coordinator) Create(ctx context.Context, req todo.CreateRequest) (todo.Todo, error) {
	req, err := todo.NormalizeCreate(req)
	if err != nil {
		return todo.Todo{}, err
	}

	done := c.begin(OpCreate)
	defer done()

	t, err := c.api.CreateTodo(ctx, req)
	c.metrics.Mutation(string(OpCreate), err)
	if err != nil {
		return todo.Todo{}, fmt.Errorf("create todo: %w", err)
	}

	c.log.Debug("todo created", "id", t.ID)
	c.Invalidate()
	return t, nil
}

func (c *Coordinator) Update(ctx context.Context, id int, req todo.UpdateRequest) (todo.Todo, error) {
	req, err := todo.NormalizeUpdate(req)
	if err != nil {
		return todo.Todo{}, err
	}

	done := c.begin(OpUpdate)
	defer done()

	t, err := c.api.UpdateTodo(ctx, id, req)
	c.metrics.Mutation(string(OpUpdate), err)
	if err != nil {
		return todo.Todo{}, fmt.Errorf("update todo %d: %w", id, err)
	}

	c.log.Debug("todo updated", "id", id)
	c.Invalidate()
	return t, nil
}

func (c *Coordinator) Delete(ctx context.Context, id int) error {
	done := c.begin(OpDelete)
	defer done()

	err := c.api.DeleteTodo(ctx, id)
	c.metrics.Mutation(string(OpDelete), err)
	if err != nil {
		return fmt.Errorf("delete todo %d: %w", id, err)
	}

	c.log.Debug("todo deleted", "id", id)
	c.Invalidate()
	return nil
}

// Export downloads every todo matching q's filters. The cache is not touched.
func (c *Coordinator) Export(ctx context.Context, format todo.ExportFormat, q todo.Query) ([]byte, error) {
	if err := format.Validate(); err != nil {
		return nil, err
	}

	done := c.begin(OpExport)
	defer done()

	data, err := c.api.ExportTodos(ctx, format, q)
	c.metrics.Mutation(string(OpExport), err)
	if err != nil {
		return nil, fmt.Errorf("export todos: %w", err)
	}
	return data, nil
}

// Pending reports whether a call of kind op is in flight.
func (c *Coordinator) Pending(op Op) bool {
	counter, ok := c.pending[op]
	return ok && counter.Load() > 0
}

// Invalidate marks every list page and the analytics stale.
func (c *Coordinator) Invalidate() {
	c.lists.InvalidatePrefix(ListPrefix)
	c.analytics.Invalidate(AnalyticsKey)
}

// Reset drops all cached todo data, used on logout.
func (c *Coordinator) Reset() {
	c.lists.Clear()
	c.analytics.Clear()
}

// ListStale reports whether the next List(q) will hit the server.
func (c *Coordinator) ListStale(q todo.Query) bool {
	return c.lists.Stale(ListKey(q))
}

func (c *Coordinator) AnalyticsStale() bool {
	return c.analytics.Stale(AnalyticsKey)
}

// CachedList returns the last fetched page for q, fresh or not.
func (c *Coordinator) CachedList(q todo.Query) (todo.ListResult, bool) {
	return c.lists.Peek(ListKey(q))
}

func (c *Coordinator) begin(op Op) func() {
	counter := c.pending[op]
	counter.Add(1)
	return func() { counter.Add(-1) }
}
