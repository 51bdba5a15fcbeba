package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/exp/slog"

	"todoctl/internal/domain/user"
)

// State is an immutable view of the session.
type State struct {
	Token           string
	User            *user.User
	IsAuthenticated bool
}

// Store owns authentication state: token, current user and the derived flag.
// IsAuthenticated always equals Token != "", and User is never set without a token.
type Store struct {
	storage Storage
	log     *slog.Logger

	mu        sync.RWMutex
	token     string
	user      *user.User
	listeners map[int]func(State)
	nextID    int
}

// NewStore rehydrates the session from storage. It never fails: unreadable
// or malformed entries are logged and treated as absent.
func NewStore(ctx context.Context, storage Storage, log *slog.Logger) *Store {
	s := &Store{
		storage:   storage,
		log:       log.With(slog.String("component", "session_store")),
		listeners: make(map[int]func(State)),
	}
	s.rehydrate(ctx)
	return s
}

func (s *Store) rehydrate(ctx context.Context) {
	token, err := s.storage.Get(ctx, KeyToken)
	switch {
	case errors.Is(err, ErrNotFound):
	case err != nil:
		s.log.Warn("failed to read stored token", "error", err)
	default:
		s.token = string(token)
	}

	raw, err := s.storage.Get(ctx, KeyUser)
	switch {
	case errors.Is(err, ErrNotFound):
		return
	case err != nil:
		s.log.Warn("failed to read stored user", "error", err)
		return
	}

	if s.token == "" {
		s.log.Debug("stored user without token ignored")
		return
	}

	var u user.User
	if err := json.Unmarshal(raw, &u); err != nil {
		s.log.Warn("stored user is malformed, ignoring", "error", err)
		return
	}
	s.user = &u
}

// SetAuth persists the token (and user, when given) and only then marks the
// session authenticated. A nil user also removes any previously stored user.
func (s *Store) SetAuth(ctx context.Context, token string, u *user.User) error {
	if token == "" {
		return ErrNoToken
	}

	entries := map[string][]byte{KeyToken: []byte(token)}
	var drop []string
	if u != nil {
		data, err := json.Marshal(u)
		if err != nil {
			return fmt.Errorf("marshal user: %w", err)
		}
		entries[KeyUser] = data
	} else {
		drop = append(drop, KeyUser)
	}

	// the token and the drop of an old user land together
	if err := s.storage.Replace(ctx, entries, drop...); err != nil {
		return fmt.Errorf("persist session: %w", err)
	}

	s.mu.Lock()
	s.token = token
	s.user = cloneUser(u)
	state := s.stateLocked()
	s.mu.Unlock()

	s.notify(state)
	return nil
}

// SetUser persists and replaces the user only.
func (s *Store) SetUser(ctx context.Context, u *user.User) error {
	if u == nil {
		return fmt.Errorf("set user: nil user")
	}

	s.mu.RLock()
	hasToken := s.token != ""
	s.mu.RUnlock()
	if !hasToken {
		return ErrNoToken
	}

	data, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("marshal user: %w", err)
	}
	if err := s.storage.Put(ctx, map[string][]byte{KeyUser: data}); err != nil {
		return fmt.Errorf("persist user: %w", err)
	}

	s.mu.Lock()
	// a concurrent ClearAuth wins
	if s.token == "" {
		s.mu.Unlock()
		if err := s.storage.Delete(ctx, KeyUser); err != nil {
			s.log.Warn("failed to drop user stored after logout", "error", err)
		}
		return ErrNoToken
	}
	s.user = cloneUser(u)
	state := s.stateLocked()
	s.mu.Unlock()

	s.notify(state)
	return nil
}

// ClearAuth removes token and user from storage and memory. The in-memory
// reset always happens; a storage failure is returned afterwards.
func (s *Store) ClearAuth(ctx context.Context) error {
	storageErr := s.storage.Delete(ctx, KeyToken, KeyUser)

	s.mu.Lock()
	s.token = ""
	s.user = nil
	state := s.stateLocked()
	s.mu.Unlock()

	s.notify(state)

	if storageErr != nil {
		return fmt.Errorf("clear stored session: %w", storageErr)
	}
	return nil
}

func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stateLocked()
}

func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

func (s *Store) User() *user.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneUser(s.user)
}

func (s *Store) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token != ""
}

// Subscribe registers fn to be called after every session change.
func (s *Store) Subscribe(fn func(State)) (cancel func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

func (s *Store) stateLocked() State {
	return State{
		Token:           s.token,
		User:            cloneUser(s.user),
		IsAuthenticated: s.token != "",
	}
}

func (s *Store) notify(state State) {
	s.mu.RLock()
	fns := make([]func(State), 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.mu.RUnlock()

	for _, fn := range fns {
		fn(state)
	}
}

func cloneUser(u *user.User) *user.User {
	if u == nil {
		return nil
	}
	c := *u
	return &c
}
