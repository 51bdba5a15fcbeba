package session

import (
	"context"
	"errors"
)

// Ключи хранилища. Больше клиент ничего не сохраняет.
const (
	KeyToken = "token"
	KeyUser  = "user"
)

var (
	ErrNotFound = errors.New("key not found")
	ErrNoToken  = errors.New("no token in session")
)

// Storage - долговременное хранилище состояния сессии.
// Put, Delete и Replace применяют все ключи атомарно.
type Storage interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, entries map[string][]byte) error
	Delete(ctx context.Context, keys ...string) error
	// Replace записывает entries и удаляет drop одной операцией.
	Replace(ctx context.Context, entries map[string][]byte, drop ...string) error
}
