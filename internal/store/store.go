// Package store holds the client-wide session list and the active session id.
// State changes go through pure reducers; observers subscribe for snapshots.
package store

import (
	"context"
	"sync"

	"github.com/joao-cainglet/fss-va-2025/internal"
)

// State is the session state shared by the sidebar, search and chat views.
// ActiveSession is "" when no session is open (new chat).
type State struct {
	Sessions      []internal.ChatSession
	ActiveSession string
}

// Clone returns a copy that shares no memory with s
func (s State) Clone() State {
	sessions := make([]internal.ChatSession, len(s.Sessions))
	copy(sessions, s.Sessions)
	return State{Sessions: sessions, ActiveSession: s.ActiveSession}
}

// Action is a state transition understood by Reduce
type Action interface {
	isAction()
}

// SetSessions replaces the session list wholesale
type SetSessions struct{ Sessions []internal.ChatSession }

// SetActive records the active session; "" clears it
type SetActive struct{ ID string }

// RemoveSession drops a session, clearing ActiveSession if it was the one removed
type RemoveSession struct{ ID string }

// UpdateSession replaces an existing entry in place; unknown ids are ignored
type UpdateSession struct{ Session internal.ChatSession }

func (SetSessions) isAction()   {}
func (SetActive) isAction()     {}
func (RemoveSession) isAction() {}
func (UpdateSession) isAction() {}

// Reduce returns the state after applying action. It never mutates state.
func Reduce(state State, action Action) State {
	next := state.Clone()
	switch a := action.(type) {
	case SetSessions:
		next.Sessions = make([]internal.ChatSession, len(a.Sessions))
		copy(next.Sessions, a.Sessions)
	case SetActive:
		next.ActiveSession = a.ID
	case RemoveSession:
		kept := next.Sessions[:0]
		for _, s := range next.Sessions {
			if s.ID != a.ID {
				kept = append(kept, s)
			}
		}
		next.Sessions = kept
		if next.ActiveSession == a.ID {
			next.ActiveSession = ""
		}
	case UpdateSession:
		for i := range next.Sessions {
			if next.Sessions[i].ID == a.Session.ID {
				next.Sessions[i] = a.Session
				break
			}
		}
	}
	return next
}

// Lister fetches the authoritative session list
type Lister interface {
	ListSessions(ctx context.Context) ([]internal.ChatSession, error)
}

// Store is an injectable container for State
type Store struct {
	lister Lister

	mu     sync.Mutex
	state  State
	subs   map[int]func(State)
	nextID int
}

// New creates an empty store that hydrates from lister
func New(lister Lister) *Store {
	return &Store{
		lister: lister,
		state:  State{Sessions: []internal.ChatSession{}},
		subs:   make(map[int]func(State)),
	}
}

// State returns a snapshot of the current state
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// Sessions returns a snapshot of the session list
func (s *Store) Sessions() []internal.ChatSession {
	return s.State().Sessions
}

// Active returns the active session id, or ""
func (s *Store) Active() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.ActiveSession
}

// Find looks up a session by id in the cached list
func (s *Store) Find(id string) (internal.ChatSession, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, session := range s.state.Sessions {
		if session.ID == id {
			return session, true
		}
	}
	return internal.ChatSession{}, false
}

// Dispatch applies action and notifies subscribers
func (s *Store) Dispatch(action Action) {
	s.mu.Lock()
	s.state = Reduce(s.state, action)
	snapshot := s.state.Clone()
	subs := make([]func(State), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.mu.Unlock()

	for _, fn := range subs {
		fn(snapshot)
	}
}

// SetActive records id as the active session without validating it
func (s *Store) SetActive(id string) {
	s.Dispatch(SetActive{ID: id})
}

// Remove drops a session from the cached list
func (s *Store) Remove(id string) {
	s.Dispatch(RemoveSession{ID: id})
}

// Update replaces a session in the cached list
func (s *Store) Update(session internal.ChatSession) {
	s.Dispatch(UpdateSession{Session: session})
}

// FetchAll replaces the session list with the server's. On failure the
// previous list is kept and the error is logged and returned.
func (s *Store) FetchAll(ctx context.Context) error {
	sessions, err := s.lister.ListSessions(ctx)
	if err != nil {
		internal.LogWarn("Failed to fetch sessions: %v", err)
		return err
	}
	s.Dispatch(SetSessions{Sessions: sessions})
	internal.LogDebug("Fetched %d session(s)", len(sessions))
	return nil
}

// Subscribe registers fn to receive a snapshot after every change.
// The returned func removes the subscription.
func (s *Store) Subscribe(fn func(State)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, id)
	}
}
