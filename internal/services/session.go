package services

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/oshinlather/image-to-excel-converter/internal/table"
	"github.com/oshinlather/image-to-excel-converter/pkg/contracts/domain"
)

// Session is one editing session and the table it owns. All fields after mu
// are guarded by it.
type Session struct {
	ID        string
	Name      string
	CreatedAt time.Time

	mu          sync.Mutex
	table       *table.Table
	source      string
	imageSize   string
	extractedAt time.Time
	revision    int64
	updatedAt   time.Time
	lastSeen    time.Time
}

func newSession(name string, now time.Time) *Session {
	t, _ := table.New(nil, nil, true)
	return &Session{
		ID:        uuid.New().String(),
		Name:      name,
		CreatedAt: now,
		table:     t,
		updatedAt: now,
		lastSeen:  now,
	}
}

// touch records a change; callers hold mu
func (s *Session) touch(now time.Time) {
	s.revision++
	s.updatedAt = now
	s.lastSeen = now
}

// see records a read; callers hold mu
func (s *Session) see(now time.Time) {
	s.lastSeen = now
}

func (s *Session) lastUsed() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

// SessionStore keeps sessions in memory, keyed by id
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	max      int
	now      func() time.Time
}

// NewSessionStore creates a store holding at most max sessions
func NewSessionStore(max int) *SessionStore {
	if max <= 0 {
		max = 1000
	}
	return &SessionStore{
		sessions: make(map[string]*Session),
		max:      max,
		now:      time.Now,
	}
}

// Create opens a new session with an empty table
func (st *SessionStore) Create(name string) (*Session, error) {
	st.mu.Lock()
	defer st.mu.Unlock()

	if len(st.sessions) >= st.max {
		return nil, ErrSessionLimit
	}
	s := newSession(name, st.now())
	st.sessions[s.ID] = s
	return s, nil
}

// Get returns the session or a session-not-found error
func (st *SessionStore) Get(id string) (*Session, error) {
	st.mu.RLock()
	defer st.mu.RUnlock()

	s, ok := st.sessions[id]
	if !ok {
		return nil, domain.NewSessionNotFoundError(id)
	}
	return s, nil
}

// Delete removes the session and returns it
func (st *SessionStore) Delete(id string) (*Session, error) {
	st.mu.Lock()
	defer st.mu.Unlock()

	s, ok := st.sessions[id]
	if !ok {
		return nil, domain.NewSessionNotFoundError(id)
	}
	delete(st.sessions, id)
	return s, nil
}

// Len returns the number of open sessions
func (st *SessionStore) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}

// Expire removes sessions not used for longer than idle and returns their
// ids, oldest first
func (st *SessionStore) Expire(idle time.Duration) []string {
	cutoff := st.now().Add(-idle)

	st.mu.Lock()
	defer st.mu.Unlock()

	type expired struct {
		id   string
		last time.Time
	}
	var gone []expired
	for id, s := range st.sessions {
		if last := s.lastUsed(); last.Before(cutoff) {
			gone = append(gone, expired{id, last})
			delete(st.sessions, id)
		}
	}
	sort.Slice(gone, func(i, j int) bool { return gone[i].last.Before(gone[j].last) })

	ids := make([]string, len(gone))
	for i, e := range gone {
		ids[i] = e.id
	}
	return ids
}
