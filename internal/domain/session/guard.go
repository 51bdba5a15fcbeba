package session

import (
	"sync"
)

const (
	PathRoot     = "/"
	PathLogin    = "/login"
	PathRegister = "/register"
)

// Guard decides where a session may be. It depends only on the authenticated flag.
func Guard(path string, authenticated bool) (target string, redirect bool) {
	public := path == PathLogin || path == PathRegister

	switch {
	case !authenticated && !public:
		return PathLogin, true
	case authenticated && public:
		return PathRoot, true
	}
	return path, false
}

// Router tracks the current location and re-applies Guard on every session
// change and every navigation.
type Router struct {
	auth       func() bool
	onNavigate func(path string)

	mu      sync.Mutex
	current string
}

// NewRouter starts at start (after guarding it). onNavigate may be nil.
func NewRouter(store *Store, start string, onNavigate func(path string)) *Router {
	r := &Router{
		auth:       store.IsAuthenticated,
		onNavigate: onNavigate,
	}
	r.current, _ = Guard(start, store.IsAuthenticated())

	store.Subscribe(func(st State) {
		r.apply(r.Current(), st.IsAuthenticated)
	})
	return r
}

// Navigate requests a location; the guard may redirect it.
func (r *Router) Navigate(path string) string {
	return r.apply(path, r.auth())
}

func (r *Router) Current() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current
}

func (r *Router) apply(path string, authenticated bool) string {
	target, _ := Guard(path, authenticated)

	r.mu.Lock()
	changed := r.current != target
	r.current = target
	r.mu.Unlock()

	if changed && r.onNavigate != nil {
		r.onNavigate(target)
	}
	return target
}
