package registry

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/The-Tech-Idea/Beep.Python-sub006/internal/logging"
	"github.com/The-Tech-Idea/Beep.Python-sub006/internal/types"
)

// Sessions tracks active sessions. A session binds one user to exactly one
// environment; asking for a different environment mints a new session
// rather than re-binding the old one.
type Sessions struct {
	mu       sync.RWMutex
	byID     map[string]*types.Session
	byUser   map[string]string // user -> active session id
	maxCount int
}

// NewSessions creates an empty session registry.
func NewSessions() *Sessions {
	return &Sessions{
		byID:     make(map[string]*types.Session),
		byUser:   make(map[string]string),
		maxCount: 100,
	}
}

// Create mints a new Active session for user against the environment.
func (s *Sessions) Create(user, environmentID string) (*types.Session, error) {
	if user == "" {
		return nil, types.NewConfigurationError("session user is required")
	}
	if environmentID == "" {
		return nil, types.NewConfigurationError("session environment id is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.byID) >= s.maxCount {
		return nil, types.NewConfigurationError("session limit reached: %d", s.maxCount)
	}

	sess := &types.Session{
		ID:            uuid.NewString(),
		User:          user,
		EnvironmentID: environmentID,
		Status:        types.SessionActive,
		CreatedAt:     time.Now(),
	}
	s.byID[sess.ID] = sess
	s.byUser[user] = sess.ID

	logging.Session("Created session %s for user %s (env %s)", sess.ID, user, environmentID)
	return sess, nil
}

// Get returns a session by id.
func (s *Sessions) Get(id string) (*types.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.byID[id]
	return sess, ok
}

// ForUser returns the user's active session bound to environmentID, minting
// one when the user has none or the existing one is closed or bound
// elsewhere.
func (s *Sessions) ForUser(user, environmentID string) (*types.Session, error) {
	s.mu.RLock()
	id, ok := s.byUser[user]
	var existing *types.Session
	if ok {
		existing = s.byID[id]
	}
	s.mu.RUnlock()

	if existing != nil &&
		existing.Status == types.SessionActive &&
		existing.EnvironmentID == environmentID {
		logging.SessionDebug("Reusing session %s for user %s", existing.ID, user)
		return existing, nil
	}
	return s.Create(user, environmentID)
}

// Close marks a session Closed. Closed sessions stay queryable by id but are
// never reused.
func (s *Sessions) Close(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.byID[id]
	if !ok {
		return
	}
	sess.Status = types.SessionClosed
	if s.byUser[sess.User] == id {
		delete(s.byUser, sess.User)
	}
	logging.Session("Closed session %s", id)
}

// ActiveCount returns how many sessions are currently Active.
func (s *Sessions) ActiveCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, sess := range s.byID {
		if sess.Status == types.SessionActive {
			count++
		}
	}
	return count
}
