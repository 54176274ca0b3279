package session

import "sync"

// Store maps user ids to their sessions. Map access is internally
// guarded, but sessions themselves are mutated by callers; LockUser
// gives the per-user exclusive region the workflow runs events under.
type Store struct {
	mu       sync.RWMutex
	sessions map[int64]*Session

	lockMu sync.Mutex
	locks  map[int64]*sync.Mutex
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		sessions: make(map[int64]*Session),
		locks:    make(map[int64]*sync.Mutex),
	}
}

// Get returns the session for userID, if any.
func (s *Store) Get(userID int64) (*Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[userID]
	return sess, ok
}

// GetOrCreate returns the session for userID, creating a default one
// if none exists.
func (s *Store) GetOrCreate(userID int64) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[userID]; ok {
		return sess
	}
	sess := New()
	s.sessions[userID] = sess
	return sess
}

// Replace installs a fresh session for userID, discarding any prior one.
func (s *Store) Replace(userID int64, sess *Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[userID] = sess
}

// Remove drops the session for userID.
func (s *Store) Remove(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, userID)
}

// Len returns the number of live sessions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// LockUser acquires the per-user mutation lock and returns its release
// function. Events for one user are processed under this lock so
// out-of-order delivery from the transport cannot race a session.
func (s *Store) LockUser(userID int64) func() {
	s.lockMu.Lock()
	lock, ok := s.locks[userID]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[userID] = lock
	}
	s.lockMu.Unlock()

	lock.Lock()
	return lock.Unlock
}
