package session

import (
	"sync"
	"time"
)

// State tags where a guardian is in the conversation.
type State string

const (
	StateMainMenu         State = "MENU_PRINCIPAL"
	StateAwaitingID       State = "REGISTRO_ID"
	StateAwaitingPIN      State = "REGISTRO_PIN"
	StateSelectingStudent State = "SELECCION_ALUMNO"
	StateRemovingStudent  State = "ELIMINAR_ALUMNO"
)

// Data is the state-specific payload carried between messages: the id being
// registered while a PIN is pending, or the candidate list a numeric reply
// indexes into.
type Data struct {
	StudentID  string
	Candidates []string
}

// Session is one guardian's conversation position.
type Session struct {
	State     State
	Data      Data
	UpdatedAt time.Time
}

// DefaultTTL is how long an idle conversation keeps its state.
const DefaultTTL = 10 * time.Minute

// Store holds one session per sender. Idle sessions expire lazily on read —
// no background sweep, no timers held for idle senders. The clock is
// injected so tests control time.
type Store struct {
	mu       sync.Mutex
	sessions map[string]Session
	ttl      time.Duration
	now      func() time.Time
}

func NewStore(ttl time.Duration, now func() time.Time) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if now == nil {
		now = time.Now
	}
	return &Store{
		sessions: make(map[string]Session),
		ttl:      ttl,
		now:      now,
	}
}

// Get returns the sender's session. A session idle for longer than the TTL
// is discarded and comes back as a fresh main-menu session with empty data.
func (s *Store) Get(senderID string) Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[senderID]
	if ok && s.now().Sub(sess.UpdatedAt) > s.ttl {
		delete(s.sessions, senderID)
		ok = false
	}
	if !ok {
		return Session{State: StateMainMenu}
	}
	return sess
}

// Set overwrites the sender's session and stamps it with the current time.
func (s *Store) Set(senderID string, state State, data Data) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions[senderID] = Session{
		State:     state,
		Data:      data,
		UpdatedAt: s.now(),
	}
}
