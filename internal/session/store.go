package session

import (
	"fmt"
	"sync"
	"time"
)

// entry pairs a session with the mutex that serializes operations on it.
type entry struct {
	mu sync.Mutex
	s  *Session
}

// Store maps session ids to sessions. The map itself is guarded by mu;
// each session is guarded by its own entry mutex so operations on different
// sessions proceed in parallel.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*entry
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{sessions: make(map[string]*entry)}
}

// Put adds a new session. Ids are never reused within a store's lifetime.
func (st *Store) Put(s *Session) error {
	st.mu.Lock()
	defer st.mu.Unlock()

	if _, exists := st.sessions[s.ID]; exists {
		return fmt.Errorf("session: id %q already in use", s.ID)
	}
	st.sessions[s.ID] = &entry{s: s}
	return nil
}

func (st *Store) lookup(id string) (*entry, error) {
	st.mu.RLock()
	defer st.mu.RUnlock()

	e, ok := st.sessions[id]
	if !ok {
		return nil, fmt.Errorf("session %q: %w", id, ErrNotFound)
	}
	return e, nil
}

// With runs fn with exclusive access to the session. fn may block (for
// example on a generator call); other sessions are unaffected.
func (st *Store) With(id string, fn func(*Session) error) error {
	e, err := st.lookup(id)
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return fn(e.s)
}

// Snapshot returns a deep copy of the session.
func (st *Store) Snapshot(id string) (*Session, error) {
	var c *Session
	err := st.With(id, func(s *Session) error {
		c = s.Clone()
		return nil
	})
	return c, err
}

// IDs returns all stored session ids.
func (st *Store) IDs() []string {
	st.mu.RLock()
	defer st.mu.RUnlock()

	ids := make([]string, 0, len(st.sessions))
	for id := range st.sessions {
		ids = append(ids, id)
	}
	return ids
}

// Len returns the number of stored sessions.
func (st *Store) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}

// Reap evicts finished sessions that ended more than retention ago and
// returns their ids. A non-positive retention keeps everything.
func (st *Store) Reap(now time.Time, retention time.Duration) []string {
	if retention <= 0 {
		return nil
	}

	var reaped []string
	for _, id := range st.IDs() {
		e, err := st.lookup(id)
		if err != nil {
			continue
		}
		e.mu.Lock()
		expired := e.s.Ended && now.Sub(e.s.EndedAt) > retention
		e.mu.Unlock()
		if !expired {
			continue
		}

		st.mu.Lock()
		delete(st.sessions, id)
		st.mu.Unlock()
		reaped = append(reaped, id)
	}
	return reaped
}

// Delete removes a session. Deleting an unknown id is a no-op.
func (st *Store) Delete(id string) {
	st.mu.Lock()
	defer st.mu.Unlock()
	delete(st.sessions, id)
}

// Range calls fn with a snapshot of every session until fn returns false.
func (st *Store) Range(fn func(*Session) bool) {
	for _, id := range st.IDs() {
		c, err := st.Snapshot(id)
		if err != nil {
			continue
		}
		if !fn(c) {
			return
		}
	}
}
