package storage

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"chatcart/internal/cart"
	"chatcart/internal/logger"
	"chatcart/pkg"

	"github.com/google/uuid"
)

// ErrSessionNotFound is returned for unknown or expired session ids.
var ErrSessionNotFound = errors.New("session not found")

// MaxTranscript bounds the per-session UI log.
const MaxTranscript = 200

// TranscriptEntry is one line of the session's UI log.
type TranscriptEntry struct {
	Role string    `json:"role"`
	Text string    `json:"text"`
	At   time.Time `json:"at"`
}

// State is the ephemeral session context of one conversation.
type State struct {
	Cart               *cart.Cart
	LastUserUtterance  string
	LastAssistantReply string
	LastDisplayed      []pkg.Product
	ActiveFilters      pkg.Filters
	CurrentCategory    string
	CurrentTopic       pkg.Intent
	TurnCount          int
	Transcript         []TranscriptEntry
}

func (s State) clone() State {
	out := s
	if s.Cart != nil {
		out.Cart = cart.New(s.Cart.Lines())
	}
	out.LastDisplayed = append([]pkg.Product(nil), s.LastDisplayed...)
	out.ActiveFilters = s.ActiveFilters.Clone()
	out.Transcript = append([]TranscriptEntry(nil), s.Transcript...)
	return out
}

// AppendTranscript adds a UI log line, dropping the oldest beyond MaxTranscript.
func (s *State) AppendTranscript(role, text string, at time.Time) {
	s.Transcript = append(s.Transcript, TranscriptEntry{Role: role, Text: text, At: at.UTC()})
	if n := len(s.Transcript); n > MaxTranscript {
		s.Transcript = append([]TranscriptEntry(nil), s.Transcript[n-MaxTranscript:]...)
	}
}

// Session is one active conversation. Its state is guarded by an internal
// mutex; the busy flag admits a single turn at a time.
type Session struct {
	ID        string
	UserID    string
	CreatedAt time.Time

	mu           sync.Mutex
	state        State
	lastActivity time.Time
	busy         atomic.Bool
}

// Snapshot returns a deep copy of the session state.
func (s *Session) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.clone()
}

// Update mutates the state under the session lock.
func (s *Session) Update(fn func(st *State)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.state)
	s.lastActivity = time.Now().UTC()
}

// TryBegin claims the session for one turn. It returns false when a turn is
// already in flight.
func (s *Session) TryBegin() bool {
	return s.busy.CompareAndSwap(false, true)
}

// End releases the turn claim.
func (s *Session) End() {
	s.busy.Store(false)
}

// Busy reports whether a turn is in flight.
func (s *Session) Busy() bool {
	return s.busy.Load()
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActivity
}

// SessionManager owns the active sessions and expires idle ones.
type SessionManager struct {
	mu                sync.RWMutex
	sessions          map[string]*Session
	inactivityTimeout time.Duration
	now               func() time.Time
}

func NewSessionManager(inactivityTimeout time.Duration) *SessionManager {
	return &SessionManager{
		sessions:          make(map[string]*Session),
		inactivityTimeout: inactivityTimeout,
		now:               time.Now,
	}
}

// Create starts a session for userID seeded with state.
func (m *SessionManager) Create(userID string, state State) *Session {
	now := m.now().UTC()
	if state.Cart == nil {
		state.Cart = cart.New(nil)
	}
	s := &Session{
		ID:           uuid.NewString(),
		UserID:       userID,
		CreatedAt:    now,
		state:        state,
		lastActivity: now,
	}

	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()
	return s
}

func (m *SessionManager) Get(id string) (*Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

func (m *SessionManager) Delete(id string) {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
}

// ForUser returns the active sessions of userID.
func (m *SessionManager) ForUser(userID string) []*Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*Session
	for _, s := range m.sessions {
		if s.UserID == userID {
			out = append(out, s)
		}
	}
	return out
}

func (m *SessionManager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// StartJanitor expires idle sessions every interval until ctx is done.
func (m *SessionManager) StartJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 || m.inactivityTimeout <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.expireInactive()
			}
		}
	}()
}

// expireInactive removes sessions idle longer than the inactivity timeout.
// Sessions with a turn in flight are kept.
func (m *SessionManager) expireInactive() int {
	cutoff := m.now().UTC().Add(-m.inactivityTimeout)

	m.mu.Lock()
	defer m.mu.Unlock()
	expired := 0
	for id, s := range m.sessions {
		if s.Busy() || s.idleSince().After(cutoff) {
			continue
		}
		delete(m.sessions, id)
		expired++
	}
	if expired > 0 {
		logger.Info().Int("expired", expired).Msg("Expired idle sessions")
	}
	return expired
}
