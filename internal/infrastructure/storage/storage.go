// Package storage holds the durable backends for the client session.
package storage

import (
	"golang.org/x/exp/slog"

	"todoctl/internal/domain/session"
	"todoctl/internal/infrastructure/storage/memory"
	"todoctl/internal/infrastructure/storage/sqlite"
)

// Backend is a session.Storage that owns resources.
type Backend interface {
	session.Storage
	Close() error
}

var (
	_ Backend = (*sqlite.Storage)(nil)
	_ Backend = (*memory.Storage)(nil)
)

// Open returns the SQLite storage at path. If it cannot be opened the
// session falls back to memory and durable reports false.
func Open(path string, log *slog.Logger) (b Backend, durable bool) {
	s, err := sqlite.New(path)
	if err != nil {
		log.Warn("session storage unavailable, session will not survive restart",
			slog.String("path", path),
			slog.String("error", err.Error()),
		)
		return memory.New(), false
	}
	return s, true
}
