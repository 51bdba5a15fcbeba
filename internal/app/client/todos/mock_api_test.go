package todos

import (
	"context"

	"github.com/stretchr/testify/mock"

	"todoctl/internal/domain/todo"
)

// MockAPI is a mock implementation of the API interface for testing
type MockAPI struct {
	mock.Mock
}

func (m *MockAPI) ListTodos(ctx context.Context, q todo.Query) (todo.ListResult, error) {
	args := m.Called(ctx, q)
	return args.Get(0).(todo.ListResult), args.Error(1)
}

func (m *MockAPI) GetTodo(ctx context.Context, id int) (todo.Todo, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(todo.Todo), args.Error(1)
}

func (m *MockAPI) CreateTodo(ctx context.Context, req todo.CreateRequest) (todo.Todo, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(todo.Todo), args.Error(1)
}

func (m *MockAPI) UpdateTodo(ctx context.Context, id int, req todo.UpdateRequest) (todo.Todo, error) {
	args := m.Called(ctx, id, req)
	return args.Get(0).(todo.Todo), args.Error(1)
}

func (m *MockAPI) DeleteTodo(ctx context.Context, id int) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockAPI) GetAnalytics(ctx context.Context) (todo.Analytics, error) {
	args := m.Called(ctx)
	return args.Get(0).(todo.Analytics), args.Error(1)
}

func (m *MockAPI) ExportTodos(ctx context.Context, format todo.ExportFormat, q todo.Query) ([]byte, error) {
	args := m.Called(ctx, format, q)
	data, _ := args.Get(0).([]byte)
	return data, args.Error(1)
}

func withSearch(s string) interface{} {
	return mock.MatchedBy(func(q todo.Query) bool { return q.Search == s })
}

func page(skip, limit, total int, titles ...string) todo.ListResult {
	items := make([]todo.Todo, 0, len(titles))
	for i, title := range titles {
		items = append(items, todo.Todo{ID: skip + i + 1, Title: title})
	}
	return todo.ListResult{Items: items, Total: total, Skip: skip, Limit: limit}
}
