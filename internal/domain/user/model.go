package user

import (
	"todoctl/internal/domain/todo"
)

// User - снимок пользователя, принадлежащего серверу
type User struct {
	ID        int         `json:"id"`
	Username  string      `json:"username"`
	Email     string      `json:"email"`
	IsActive  bool        `json:"is_active"`
	CreatedAt todo.Time   `json:"created_at"`
	UpdatedAt *todo.Time  `json:"updated_at,omitempty"`
	Todos     []todo.Todo `json:"todos"`
}
