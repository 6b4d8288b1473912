package bot

import (
	"sync"
	"time"

	"github.com/moritahq/clinic-reserve-bot/internal/reservations"
)

// Step identifies where a multi-turn dialog currently is.
type Step string

const (
	StepAwaitingDate            Step = "awaiting_date"
	StepAwaitingSlotSelection   Step = "awaiting_slot_selection"
	StepAwaitingName            Step = "awaiting_name"
	StepAwaitingNote            Step = "awaiting_note"
	StepAwaitingCancelDate      Step = "awaiting_cancel_date"
	StepAwaitingCancelSelection Step = "awaiting_cancel_selection"
)

// Session is the per-user dialog state. The slot options and cancel
// candidates are pinned at the moment the numbered list was shown: a
// store that changes underneath must not shift which ordinal maps to
// which entry.
type Session struct {
	Step        Step
	Date        string
	Slot        string
	SlotOptions []string
	Candidates  []reservations.Reservation
	Name        string

	touchedAt time.Time
}

// SessionStore owns the in-memory session map. Sessions are dropped when
// their TTL elapses, either lazily on access or by Sweep. State is not
// persisted: a restart only forces users to start their dialog over.
type SessionStore struct {
	ttl time.Duration
	now func() time.Time

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewSessionStore creates a store evicting sessions ttl after last touch.
func NewSessionStore(ttl time.Duration) *SessionStore {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &SessionStore{
		ttl:      ttl,
		now:      time.Now,
		sessions: make(map[string]*Session),
	}
}

// Get returns the live session for a user, refreshing its TTL. Expired
// sessions are removed and reported as absent.
func (s *SessionStore) Get(userID string) (*Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[userID]
	if !ok {
		return nil, false
	}
	if s.now().Sub(sess.touchedAt) > s.ttl {
		delete(s.sessions, userID)
		return nil, false
	}
	sess.touchedAt = s.now()
	return sess, true
}

// Put stores (or replaces) a user's session and stamps its TTL.
func (s *SessionStore) Put(userID string, sess *Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess.touchedAt = s.now()
	s.sessions[userID] = sess
}

// Delete removes a user's session if present.
func (s *SessionStore) Delete(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, userID)
}

// Sweep drops every expired session and returns how many were removed.
func (s *SessionStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	cutoff := s.now().Add(-s.ttl)
	removed := 0
	for userID, sess := range s.sessions {
		if sess.touchedAt.Before(cutoff) {
			delete(s.sessions, userID)
			removed++
		}
	}
	return removed
}

// Len reports the number of live sessions (expired ones included until
// swept).
func (s *SessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}
