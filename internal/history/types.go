package history

import (
	"context"
	"time"
)

// TurnRecord stores a single conversational turn for a widget session.
type TurnRecord struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// LeadState is the per-session qualification record. The capture and
// scheduling flags are monotonic for the lifetime of a session.
type LeadState struct {
	Lead             map[string]string `json:"lead"`
	LeadCaptured     bool              `json:"lead_captured"`
	MeetingScheduled bool              `json:"meeting_scheduled"`
	ProposedTimes    []string          `json:"proposed_times"`
	ConfirmedTime    string            `json:"confirmed_time"`
	InviteReference  string            `json:"invite_reference"`
	UpdatedAt        time.Time         `json:"updated_at"`
}

// Store persists conversation history and lead state per session.
type Store interface {
	AppendTurns(ctx context.Context, sessionID string, turns []TurnRecord) error
	RecentTurns(ctx context.Context, sessionID string, limit int) ([]TurnRecord, error)
	LeadState(ctx context.Context, sessionID string) (LeadState, error)
	SaveLeadState(ctx context.Context, sessionID string, state LeadState) error
	Close() error
}

// Forgetter is implemented by stores that can drop a session outright.
// The in-memory store uses it when the session tracker expires a session.
type Forgetter interface {
	Forget(sessionID string)
}
