package chat

import (
	"errors"
	"strings"
)

// Role identifies the author of a conversation message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

var (
	ErrEmptyContent = errors.New("message content is required")
	ErrInvalidRole  = errors.New("invalid message role")
)

// Message is a single conversational turn. Ordered oldest-first in history.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// TurnRequest is the payload the widget posts for one conversation turn.
type TurnRequest struct {
	SessionID string  `json:"session_id"`
	Message   Message `json:"message"`
}

// AgentResponse is returned to the widget after a completed turn.
type AgentResponse struct {
	SessionID        string    `json:"session_id"`
	Messages         []Message `json:"messages"`
	LeadCaptured     bool      `json:"lead_captured"`
	MeetingScheduled bool      `json:"meeting_scheduled"`
	SuggestedSlots   []string  `json:"suggested_slots,omitempty"`
}

// Validate checks that a message is usable as turn input. A blank role
// defaults to user so minimal widget payloads stay valid.
func (m *Message) Validate() error {
	if strings.TrimSpace(m.Content) == "" {
		return ErrEmptyContent
	}
	switch m.Role {
	case "":
		m.Role = RoleUser
	case RoleUser, RoleAssistant, RoleSystem:
	default:
		return ErrInvalidRole
	}
	return nil
}
