package history

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemoryStore is a simple in-process store for local/dev use. Histories are
// capped at maxMessages per session, oldest turns dropped first.
type InMemoryStore struct {
	mu          sync.RWMutex
	maxMessages int
	turns       map[string][]TurnRecord
	leads       map[string]LeadState
}

func NewInMemoryStore(maxMessages int) *InMemoryStore {
	if maxMessages <= 0 {
		maxMessages = 50
	}
	return &InMemoryStore{
		maxMessages: maxMessages,
		turns:       make(map[string][]TurnRecord),
		leads:       make(map[string]LeadState),
	}
}

func (s *InMemoryStore) AppendTurns(_ context.Context, sessionID string, turns []TurnRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	arr := s.turns[sessionID]
	for _, t := range turns {
		if t.ID == "" {
			t.ID = uuid.NewString()
		}
		if t.CreatedAt.IsZero() {
			t.CreatedAt = time.Now().UTC()
		}
		t.SessionID = sessionID
		arr = append(arr, t)
	}
	if over := len(arr) - s.maxMessages; over > 0 {
		arr = arr[over:]
	}
	s.turns[sessionID] = arr
	return nil
}

func (s *InMemoryStore) RecentTurns(_ context.Context, sessionID string, limit int) ([]TurnRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	arr := s.turns[sessionID]
	if len(arr) == 0 {
		return nil, nil
	}
	if limit <= 0 || limit > len(arr) {
		limit = len(arr)
	}
	out := make([]TurnRecord, 0, limit)
	for i := len(arr) - limit; i < len(arr); i++ {
		out = append(out, arr[i])
	}
	return out, nil
}

func (s *InMemoryStore) LeadState(_ context.Context, sessionID string) (LeadState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.leads[sessionID]
	if !ok {
		return LeadState{Lead: map[string]string{}}, nil
	}
	return cloneLeadState(st), nil
}

func (s *InMemoryStore) SaveLeadState(_ context.Context, sessionID string, state LeadState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if state.UpdatedAt.IsZero() {
		state.UpdatedAt = time.Now().UTC()
	}
	s.leads[sessionID] = cloneLeadState(state)
	return nil
}

func (s *InMemoryStore) Forget(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.turns, sessionID)
	delete(s.leads, sessionID)
}

func (s *InMemoryStore) Close() error { return nil }

func cloneLeadState(st LeadState) LeadState {
	out := st
	out.Lead = make(map[string]string, len(st.Lead))
	for k, v := range st.Lead {
		out.Lead[k] = v
	}
	out.ProposedTimes = append([]string(nil), st.ProposedTimes...)
	return out
}
