// Package session holds the signed-in state (token and API base URL) that every request reads.
package session

import (
	"sync"
)

// State is the slice of application state the client depends on.
type State struct {
	Token  string `yaml:"token" json:"token"`
	AppURL string `yaml:"app_url" json:"app_url"`
}

// SignedIn reports whether a token is present.
func (s State) SignedIn() bool {
	return s.Token != ""
}

// Store is a concurrency-safe holder of State with change and logout notifications.
// Change listeners see updates one at a time, in the order they were applied. A listener
// may read the store but must not modify it.
type Store struct {
	notifyMu sync.Mutex
	mu       sync.RWMutex
	state    State
	nextID   int
	onChange map[int]func(State)
	onLogout map[int]func(reason string)
}

// NewStore creates a Store seeded with initial.
func NewStore(initial State) *Store {
	return &Store{
		state:    initial,
		onChange: make(map[int]func(State)),
		onLogout: make(map[int]func(string)),
	}
}

// State returns a copy of the current state.
func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Select applies fn to the current state under the read lock.
func Select[T any](s *Store, fn func(State) T) T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(s.state)
}

// SetToken replaces the token and notifies subscribers.
func (s *Store) SetToken(token string) {
	s.update(func(st *State) { st.Token = token })
}

// SetAppURL replaces the API base URL and notifies subscribers.
func (s *Store) SetAppURL(appURL string) {
	s.update(func(st *State) { st.AppURL = appURL })
}

// Replace swaps in a whole new state.
func (s *Store) Replace(next State) {
	s.update(func(st *State) { *st = next })
}

// Logout clears the token, notifies change subscribers, then logout listeners.
// The app URL is kept so the next sign-in targets the same server.
func (s *Store) Logout(reason string) {
	s.update(func(st *State) { st.Token = "" })

	s.mu.RLock()
	listeners := make([]func(string), 0, len(s.onLogout))
	for _, fn := range s.onLogout {
		listeners = append(listeners, fn)
	}
	s.mu.RUnlock()

	for _, fn := range listeners {
		fn(reason)
	}
}

// Subscribe registers fn to run after every state change. The returned func unsubscribes.
func (s *Store) Subscribe(fn func(State)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.onChange[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.onChange, id)
	}
}

// OnLogout registers fn to run when the session is ended. The returned func unsubscribes.
func (s *Store) OnLogout(fn func(reason string)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.onLogout[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.onLogout, id)
	}
}

func (s *Store) update(mutate func(*State)) {
	// held across mutation and notification so a later update cannot notify first
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	s.mu.Lock()
	mutate(&s.state)
	next := s.state
	listeners := make([]func(State), 0, len(s.onChange))
	for _, fn := range s.onChange {
		listeners = append(listeners, fn)
	}
	s.mu.Unlock()

	// listeners run outside mu so they may read the store
	for _, fn := range listeners {
		fn(next)
	}
}
