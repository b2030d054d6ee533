package brain

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// NextAction is the structured action requested by the decision provider.
type NextAction string

const (
	ActionNone        NextAction = "none"
	ActionCaptureLead NextAction = "capture_lead"
	ActionSchedule    NextAction = "schedule"
	ActionHandoff     NextAction = "handoff"
)

// DecisionRequest carries the rendered conversation window plus retrieved
// context to the decision provider.
type DecisionRequest struct {
	SessionID string   `json:"session_id"`
	TurnID    string   `json:"turn_id"`
	History   []string `json:"history"`
	Context   string   `json:"context,omitempty"`
}

// LeadFields is a partial lead record; empty fields mean "no update".
type LeadFields struct {
	Name    string `json:"name,omitempty"`
	Email   string `json:"email,omitempty"`
	Company string `json:"company,omitempty"`
	Phone   string `json:"phone,omitempty"`
	Notes   string `json:"notes,omitempty"`
}

// Map returns the non-empty fields keyed by their wire names.
func (l LeadFields) Map() map[string]string {
	out := make(map[string]string, 5)
	for k, v := range map[string]string{
		"name":    l.Name,
		"email":   l.Email,
		"company": l.Company,
		"phone":   l.Phone,
		"notes":   l.Notes,
	} {
		if strings.TrimSpace(v) != "" {
			out[k] = strings.TrimSpace(v)
		}
	}
	return out
}

// MeetingFields is a partial meeting record returned by the provider.
type MeetingFields struct {
	ProposedTimes []string `json:"proposed_times,omitempty"`
	ConfirmedTime string   `json:"confirmed_time,omitempty"`
}

// Decision is the structured per-turn output of the provider. Reply is
// mandatory; everything else defaults to "no update".
type Decision struct {
	Reply      string         `json:"reply"`
	NextAction NextAction     `json:"next_action"`
	Lead       *LeadFields    `json:"lead,omitempty"`
	Meeting    *MeetingFields `json:"meeting,omitempty"`
}

// Adapter is the opaque decision capability. One atomic call per turn, no
// retries here; a failure fails the turn.
type Adapter interface {
	Decide(ctx context.Context, req DecisionRequest) (Decision, error)
}

var errMalformedDecision = errors.New("malformed decision payload")

// Validate normalizes a provider payload and rejects malformed output before
// it can reach the state machine.
func (d *Decision) Validate() error {
	if strings.TrimSpace(d.Reply) == "" {
		return fmt.Errorf("%w: reply is required", errMalformedDecision)
	}
	switch d.NextAction {
	case "":
		d.NextAction = ActionNone
	case ActionNone, ActionCaptureLead, ActionSchedule, ActionHandoff:
	default:
		return fmt.Errorf("%w: unknown next_action %q", errMalformedDecision, d.NextAction)
	}
	return nil
}
