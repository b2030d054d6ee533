package agent

import (
	"github.com/marcofaedo/leadflow/internal/brain"
	"github.com/marcofaedo/leadflow/internal/chat"
)

// MeetingDetails tracks scheduling progress for a session.
type MeetingDetails struct {
	ProposedTimes   []string
	ConfirmedTime   string
	InviteReference string
}

// turnState is the mutable per-turn working set. It is owned exclusively by
// one Process call and discarded after the response is built; flags and lead
// fields are persisted through the history store between turns.
type turnState struct {
	sessionID string
	turnID    string

	// messages grows monotonically during the turn: prior history first,
	// then the incoming messages, then any assistant output.
	messages []chat.Message
	priorLen int

	lead             map[string]string
	leadCaptured     bool
	meetingScheduled bool
	meeting          MeetingDetails

	// nextAction is transient; it is cleared before Process returns and
	// never persisted.
	nextAction brain.NextAction

	// offeredSlots holds slots surfaced to the visitor during this turn
	// only, feeding AgentResponse.SuggestedSlots.
	offeredSlots []string
}

// mergeLeadFields folds non-empty incoming fields into the lead record.
// Existing non-empty values are never overwritten by empty ones; incoming
// non-empty values win so later turns can correct earlier typos.
func mergeLeadFields(dst, src map[string]string) {
	for k, v := range src {
		if v != "" {
			dst[k] = v
		}
	}
}
