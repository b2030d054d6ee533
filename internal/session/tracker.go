package session

import (
	"context"
	"errors"
	"sync"
	"time"
)

type Status string

const (
	StatusActive Status = "active"
	StatusEnded  Status = "ended"
)

var ErrNotFound = errors.New("session not found")

// Session describes one visitor conversation. IDs are supplied by the chat
// client (or minted by the HTTP layer), so Touch creates on first sight.
type Session struct {
	ID             string    `json:"session_id"`
	Status         Status    `json:"status"`
	TurnCount      int       `json:"turn_count"`
	StartedAt      time.Time `json:"started_at"`
	LastActivityAt time.Time `json:"last_activity_at"`
}

// Tracker keeps activity timestamps per session and expires idle ones so the
// service can release their conversation history.
type Tracker struct {
	mu                sync.RWMutex
	sessions          map[string]*Session
	inactivityTimeout time.Duration
	onExpire          func(*Session)
}

func NewTracker(inactivityTimeout time.Duration) *Tracker {
	if inactivityTimeout <= 0 {
		inactivityTimeout = 30 * time.Minute
	}
	return &Tracker{
		sessions:          make(map[string]*Session),
		inactivityTimeout: inactivityTimeout,
	}
}

func (t *Tracker) SetExpireHook(hook func(*Session)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onExpire = hook
}

// Touch records activity on a session, creating it if unseen. It returns the
// current session snapshot.
func (t *Tracker) Touch(sessionID string) *Session {
	now := time.Now().UTC()

	t.mu.Lock()
	defer t.mu.Unlock()
	s, ok := t.sessions[sessionID]
	if !ok || s.Status != StatusActive {
		s = &Session{
			ID:        sessionID,
			Status:    StatusActive,
			StartedAt: now,
		}
		t.sessions[sessionID] = s
	}
	s.TurnCount++
	s.LastActivityAt = now
	return clone(s)
}

func (t *Tracker) Get(sessionID string) (*Session, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	s, ok := t.sessions[sessionID]
	if !ok {
		return nil, ErrNotFound
	}
	return clone(s), nil
}

// End closes a session explicitly, e.g. when a websocket disconnects.
func (t *Tracker) End(sessionID string) (*Session, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, ok := t.sessions[sessionID]
	if !ok {
		return nil, ErrNotFound
	}
	s.Status = StatusEnded
	s.LastActivityAt = time.Now().UTC()
	return clone(s), nil
}

func (t *Tracker) StartJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				t.expireInactive()
			}
		}
	}()
}

func (t *Tracker) ActiveCount() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	count := 0
	for _, s := range t.sessions {
		if s.Status == StatusActive {
			count++
		}
	}
	return count
}

func (t *Tracker) expireInactive() {
	now := time.Now().UTC()
	var expired []*Session

	t.mu.Lock()
	for id, s := range t.sessions {
		if s.Status != StatusActive {
			delete(t.sessions, id)
			continue
		}
		if now.Sub(s.LastActivityAt) < t.inactivityTimeout {
			continue
		}
		s.Status = StatusEnded
		s.LastActivityAt = now
		expired = append(expired, clone(s))
		delete(t.sessions, id)
	}
	hook := t.onExpire
	t.mu.Unlock()

	if hook != nil {
		for _, s := range expired {
			hook(s)
		}
	}
}

func clone(s *Session) *Session {
	c := *s
	return &c
}
