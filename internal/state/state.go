// Package state holds the process-wide client session: the bearer token and
// the identity it resolved to. It is created once at startup, loaded from
// persistent storage with Load and torn down with Clear.
package state

import (
	"context"
	"sync"

	"storefront/internal/domain"

	"github.com/sirupsen/logrus"
)

type Phase string

const (
	PhaseUninitialized Phase = "uninitialized"
	PhaseRestoring     Phase = "restoring"
	PhaseAuthenticated Phase = "authenticated"
	PhaseAnonymous     Phase = "anonymous"
)

type Snapshot struct {
	Phase   Phase
	Token   string
	User    *domain.User
	Loading bool
}

// IsAuthenticated needs both a token and a confirmed user.
func (s Snapshot) IsAuthenticated() bool {
	return s.Token != "" && s.User != nil
}

// Listener observes every state change. It runs after the change is
// committed, outside the state lock, on the goroutine that made the change.
type Listener func(ctx context.Context, prev, next Snapshot)

// TokenPersister is the storage behind the token.
type TokenPersister interface {
	Load(ctx context.Context) (string, error)
	Save(ctx context.Context, token string) error
	Delete(ctx context.Context) error
}

type State struct {
	mu        sync.RWMutex
	snap      Snapshot
	tokens    TokenPersister
	listeners map[int]Listener
	nextID    int
	log       *logrus.Logger
}

func New(tokens TokenPersister, logger *logrus.Logger) *State {
	return &State{
		snap:      Snapshot{Phase: PhaseUninitialized},
		tokens:    tokens,
		listeners: make(map[int]Listener),
		log:       logger,
	}
}

// Load reads the persisted token. With a token the state moves to restoring
// and the caller is expected to resolve the identity; without one it moves
// to anonymous.
func (s *State) Load(ctx context.Context) (string, error) {
	token, err := s.tokens.Load(ctx)
	if err != nil {
		s.log.Errorf("State: Failed to read persisted token: %v", err)
		token = ""
	}

	s.update(ctx, func(snap *Snapshot) {
		snap.Token = token
		snap.User = nil
		if token != "" {
			snap.Phase = PhaseRestoring
			snap.Loading = true
		} else {
			snap.Phase = PhaseAnonymous
			snap.Loading = false
		}
	})
	if token != "" {
		s.log.Info("State: Found persisted token, restoring session")
	} else {
		s.log.Info("State: No persisted token, starting anonymous")
	}
	return token, err
}

func (s *State) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := s.snap
	if snap.User != nil {
		u := *snap.User
		snap.User = &u
	}
	return snap
}

// Token is read by the gateway on every request.
func (s *State) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap.Token
}

func (s *State) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap.IsAuthenticated()
}

func (s *State) SetLoading(ctx context.Context, loading bool) {
	s.update(ctx, func(snap *Snapshot) {
		snap.Loading = loading
	})
}

// SetToken persists a freshly issued token. The user is reset until the
// identity for the new token is confirmed with SetUser.
func (s *State) SetToken(ctx context.Context, token string) error {
	if err := s.tokens.Save(ctx, token); err != nil {
		s.log.Errorf("State: Failed to persist token: %v", err)
		return err
	}
	s.update(ctx, func(snap *Snapshot) {
		snap.Token = token
		snap.User = nil
		snap.Phase = PhaseRestoring
	})
	return nil
}

// SetUser records the identity resolved for token. It is ignored, returning
// false, when the session has moved on to another token meanwhile.
func (s *State) SetUser(ctx context.Context, token string, user *domain.User) bool {
	applied := false
	s.update(ctx, func(snap *Snapshot) {
		if token == "" || snap.Token != token || user == nil {
			return
		}
		u := *user
		snap.User = &u
		snap.Phase = PhaseAuthenticated
		snap.Loading = false
		applied = true
	})
	if !applied {
		s.log.Warn("State: Dropped identity for a token that is no longer current")
	}
	return applied
}

// Clear removes the token, persisted and in memory, and the user. It never
// fails and reports whether anything was cleared.
func (s *State) Clear(ctx context.Context) bool {
	return s.clear(ctx, func(Snapshot) bool { return true })
}

// ClearIfToken clears the session only while token is still the current one.
func (s *State) ClearIfToken(ctx context.Context, token string) bool {
	return s.clear(ctx, func(snap Snapshot) bool { return snap.Token == token })
}

// HandleUnauthorized lets the gateway report a 401 for a request that carried token.
func (s *State) HandleUnauthorized(ctx context.Context, token string) {
	if s.ClearIfToken(ctx, token) {
		s.log.Warn("State: Session cleared after authorization failure")
	}
}

func (s *State) clear(ctx context.Context, match func(Snapshot) bool) bool {
	cleared := false
	s.update(ctx, func(snap *Snapshot) {
		if !match(*snap) {
			return
		}
		if snap.Token == "" && snap.User == nil && snap.Phase == PhaseAnonymous {
			snap.Loading = false
			return
		}
		if err := s.tokens.Delete(ctx); err != nil {
			s.log.Errorf("State: Failed to remove persisted token: %v", err)
		}
		snap.Token = ""
		snap.User = nil
		snap.Phase = PhaseAnonymous
		snap.Loading = false
		cleared = true
	})
	return cleared
}

// Subscribe registers l and returns a function that removes it.
func (s *State) Subscribe(l Listener) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = l
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

func (s *State) update(ctx context.Context, mutate func(*Snapshot)) {
	s.mu.Lock()
	prev := s.snap
	mutate(&s.snap)
	next := s.snap
	listeners := make([]Listener, 0, len(s.listeners))
	for id := 0; id < s.nextID; id++ {
		if l, ok := s.listeners[id]; ok {
			listeners = append(listeners, l)
		}
	}
	s.mu.Unlock()

	if prev == next {
		return
	}
	s.log.Debugf("State: %s -> %s (authenticated: %t)", prev.Phase, next.Phase, next.IsAuthenticated())
	for _, l := range listeners {
		l(ctx, prev, next)
	}
}
