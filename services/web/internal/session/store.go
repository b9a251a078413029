package session

import (
	"sync"

	"dailyreport/pkg/domain"
)

// State is a snapshot of what is known about the visitor's session.
type State struct {
	User          *domain.User
	IsLoading     bool
	IsInitialized bool
	Error         string
}

// IsAuthenticated reports whether a user is signed in.
func (s State) IsAuthenticated() bool {
	return s.User != nil
}

// Store holds the session state of one visitor. Only Bootstrapper and
// Authenticator write it. Every identity fetch is tagged with the generation
// it started in; login and logout bump the generation so late results are
// dropped instead of resurrecting a previous user.
type Store struct {
	mu         sync.Mutex
	state      State
	generation uint64
}

func NewStore() *Store {
	return &Store{}
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.state
	if out.User != nil {
		u := *out.User
		out.User = &u
	}
	return out
}

func (s *Store) currentGeneration() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generation
}

// beginFetch marks a fetch in flight. It returns false when the store was
// initialized or moved to another generation in the meantime.
func (s *Store) beginFetch(gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.generation || s.state.IsInitialized {
		return false
	}
	s.state.IsLoading = true
	return true
}

// finishFetch records a fetch result and flips IsInitialized, unless the
// generation moved on while the fetch was in flight.
func (s *Store) finishFetch(gen uint64, user *domain.User, errMsg string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.generation {
		return false
	}
	s.state = State{User: user, Error: errMsg, IsInitialized: true}
	return true
}

func (s *Store) signIn(user *domain.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generation++
	s.state = State{User: user, IsInitialized: true}
}

// signOut clears the user and returns the store to its pre-bootstrap state.
func (s *Store) signOut() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generation++
	s.state = State{}
}
