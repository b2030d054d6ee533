package agent

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/marcofaedo/leadflow/internal/brain"
	"github.com/marcofaedo/leadflow/internal/chat"
	"github.com/marcofaedo/leadflow/internal/history"
	"github.com/marcofaedo/leadflow/internal/notify"
	"github.com/marcofaedo/leadflow/internal/observability"
	"github.com/marcofaedo/leadflow/internal/policy"
	"github.com/marcofaedo/leadflow/internal/retrieval"
	"github.com/marcofaedo/leadflow/internal/scheduling"
)

var (
	// ErrInvalidInput marks caller mistakes (empty or malformed turn input).
	ErrInvalidInput = errors.New("invalid turn input")
	// ErrDecision marks a failed or malformed decision provider call. The
	// turn fails atomically: no assistant message, nothing persisted.
	ErrDecision = errors.New("decision provider failure")
)

// state enumerates the turn pipeline. Every turn starts in stateResponding
// and ends in stateDone; the side-effecting states run at most once per turn.
type state int

const (
	stateResponding state = iota
	stateCapturingLead
	stateSchedulingMeeting
	stateDone
)

// Engine is the per-turn state machine. It owns no persistent state itself;
// history and lead state live in the store, and every collaborator is
// injected at construction.
type Engine struct {
	store     history.Store
	retriever retrieval.Retriever
	decider   brain.Adapter
	notifier  notify.Notifier
	scheduler scheduling.Service
	metrics   *observability.Metrics

	topK         int
	promptWindow int
}

func New(
	store history.Store,
	retriever retrieval.Retriever,
	decider brain.Adapter,
	notifier notify.Notifier,
	scheduler scheduling.Service,
	metrics *observability.Metrics,
	topK int,
	promptWindow int,
) *Engine {
	if topK <= 0 {
		topK = 3
	}
	if promptWindow <= 0 {
		promptWindow = 10
	}
	return &Engine{
		store:        store,
		retriever:    retriever,
		decider:      decider,
		notifier:     notifier,
		scheduler:    scheduler,
		metrics:      metrics,
		topK:         topK,
		promptWindow: promptWindow,
	}
}

// Process runs one conversation turn: append the incoming messages, produce
// a reply via the decision provider, then route through the side-effecting
// steps. Only ErrInvalidInput and ErrDecision ever reach the caller; every
// other collaborator fault degrades with a logged best-effort continuation.
func (e *Engine) Process(ctx context.Context, sessionID string, newMessages []chat.Message) (chat.AgentResponse, error) {
	if len(newMessages) == 0 {
		e.metrics.Turns.WithLabelValues("input_error").Inc()
		return chat.AgentResponse{}, fmt.Errorf("%w: at least one message is required", ErrInvalidInput)
	}
	for i := range newMessages {
		if err := newMessages[i].Validate(); err != nil {
			e.metrics.Turns.WithLabelValues("input_error").Inc()
			return chat.AgentResponse{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
	}

	st := e.newTurnState(ctx, sessionID, newMessages)

	cur := stateResponding
	for cur != stateDone {
		switch cur {
		case stateResponding:
			if err := e.respond(ctx, st); err != nil {
				e.metrics.Turns.WithLabelValues("decision_error").Inc()
				return chat.AgentResponse{}, err
			}
			cur = route(st.nextAction, st.leadCaptured, st.meetingScheduled)
			if cur == stateDone && st.nextAction == brain.ActionHandoff {
				e.notifyHandoff(ctx, st)
			}
		case stateCapturingLead:
			// Lead capture chains into scheduling so a turn that collects
			// contact details can also confirm a pending meeting.
			e.captureLead(ctx, st)
			cur = stateSchedulingMeeting
		case stateSchedulingMeeting:
			e.scheduleMeeting(ctx, st)
			cur = stateDone
		}
	}
	st.nextAction = brain.ActionNone

	e.persist(ctx, st)
	e.metrics.Turns.WithLabelValues("ok").Inc()

	resp := chat.AgentResponse{
		SessionID:        sessionID,
		Messages:         st.messages,
		LeadCaptured:     st.leadCaptured,
		MeetingScheduled: st.meetingScheduled,
	}
	if len(st.offeredSlots) > 0 {
		resp.SuggestedSlots = st.offeredSlots
	}
	return resp, nil
}

// newTurnState builds the fresh per-turn state from stored history and lead
// state. Store read failures degrade to an empty session rather than failing
// the turn.
func (e *Engine) newTurnState(ctx context.Context, sessionID string, newMessages []chat.Message) *turnState {
	st := &turnState{
		sessionID:  sessionID,
		turnID:     uuid.NewString(),
		lead:       map[string]string{},
		nextAction: brain.ActionNone,
	}

	prior, err := e.store.RecentTurns(ctx, sessionID, 0)
	if err != nil {
		log.Printf("history load failed for session %s: %v", sessionID, err)
		e.metrics.ProviderErrors.WithLabelValues("history", "load").Inc()
		prior = nil
	}
	st.messages = make([]chat.Message, 0, len(prior)+len(newMessages)+2)
	for _, r := range prior {
		st.messages = append(st.messages, chat.Message{Role: chat.Role(r.Role), Content: r.Content})
	}
	st.priorLen = len(st.messages)
	st.messages = append(st.messages, newMessages...)

	ls, err := e.store.LeadState(ctx, sessionID)
	if err != nil {
		log.Printf("lead state load failed for session %s: %v", sessionID, err)
		e.metrics.ProviderErrors.WithLabelValues("history", "lead_state").Inc()
		return st
	}
	if ls.Lead != nil {
		st.lead = ls.Lead
	}
	st.leadCaptured = ls.LeadCaptured
	st.meetingScheduled = ls.MeetingScheduled
	st.meeting = MeetingDetails{
		ProposedTimes:   ls.ProposedTimes,
		ConfirmedTime:   ls.ConfirmedTime,
		InviteReference: ls.InviteReference,
	}
	return st
}

// respond retrieves context, calls the decision provider, and applies the
// decision to the turn state. Retrieval faults degrade to empty context;
// a decision fault is fatal for the turn.
func (e *Engine) respond(ctx context.Context, st *turnState) error {
	query := st.messages[len(st.messages)-1].Content

	snippets, err := e.retriever.Search(ctx, query, e.topK)
	if err != nil {
		redacted, _ := policy.RedactPII(query)
		log.Printf("retrieval failed for session %s (query %q): %v", st.sessionID, redacted, err)
		e.metrics.ProviderErrors.WithLabelValues("retrieval", "search").Inc()
		snippets = nil
	}

	req := brain.DecisionRequest{
		SessionID: st.sessionID,
		TurnID:    st.turnID,
		History:   renderHistory(st.messages, e.promptWindow),
		Context:   retrieval.FormatContext(snippets),
	}

	start := time.Now()
	decision, err := e.decider.Decide(ctx, req)
	e.metrics.ObserveDecisionLatency(time.Since(start))
	if err != nil {
		e.metrics.ProviderErrors.WithLabelValues("brain", "decide").Inc()
		return fmt.Errorf("%w: %v", ErrDecision, err)
	}

	st.messages = append(st.messages, chat.Message{Role: chat.RoleAssistant, Content: decision.Reply})
	if decision.Lead != nil {
		mergeLeadFields(st.lead, decision.Lead.Map())
	}
	if decision.Meeting != nil {
		// Wholesale replacement: the provider owns the meeting record when
		// it returns one. The invite reference is only set on confirmation.
		st.meeting = MeetingDetails{
			ProposedTimes: append([]string(nil), decision.Meeting.ProposedTimes...),
			ConfirmedTime: decision.Meeting.ConfirmedTime,
		}
		if len(decision.Meeting.ProposedTimes) > 0 {
			st.offeredSlots = append([]string(nil), decision.Meeting.ProposedTimes...)
		}
	}
	st.nextAction = decision.NextAction
	return nil
}

// route is the pure transition function out of stateResponding. Guarding on
// the monotonic flags makes each side-effecting step run at most once per
// turn no matter how often the provider requests it.
func route(action brain.NextAction, leadCaptured, meetingScheduled bool) state {
	switch {
	case action == brain.ActionCaptureLead && !leadCaptured:
		return stateCapturingLead
	case action == brain.ActionSchedule && !meetingScheduled:
		return stateSchedulingMeeting
	default:
		return stateDone
	}
}

// captureLead notifies operators about a new lead exactly once per session.
// The flag only flips when an email is present.
func (e *Engine) captureLead(ctx context.Context, st *turnState) {
	email := st.lead["email"]
	if email == "" || st.leadCaptured {
		return
	}

	fields := make(map[string]string, len(st.lead))
	for k, v := range st.lead {
		fields[k] = v
	}
	if err := e.notifier.Notify(ctx, "New Website Lead", "Captured contact information from web chat.", fields); err != nil {
		log.Printf("lead notification failed for session %s: %v", st.sessionID, err)
		e.metrics.ProviderErrors.WithLabelValues("notify", "lead").Inc()
	}

	st.leadCaptured = true
	e.metrics.LeadsCaptured.Inc()
	log.Printf("lead captured session=%s email=%s", st.sessionID, policy.MaskEmail(email))
}

// scheduleMeeting either offers candidate slots or confirms a chosen one.
// Confirmation provider failures degrade to "no invite reference": the
// meeting intent is recorded and operators reconcile via the notification
// log. next_action is always cleared on exit.
func (e *Engine) scheduleMeeting(ctx context.Context, st *turnState) {
	defer func() { st.nextAction = brain.ActionNone }()

	if st.meeting.ConfirmedTime == "" {
		if st.nextAction != brain.ActionSchedule {
			return
		}
		slots, err := e.scheduler.ProposeSlots(ctx)
		if err != nil {
			log.Printf("slot proposal failed for session %s: %v", st.sessionID, err)
			e.metrics.ProviderErrors.WithLabelValues("scheduling", "propose").Inc()
			return
		}
		if len(slots) == 0 {
			return
		}
		st.meeting.ProposedTimes = slots
		st.offeredSlots = append([]string(nil), slots...)
		st.messages = append(st.messages, chat.Message{Role: chat.RoleAssistant, Content: formatSlotOffer(slots)})
		e.metrics.SlotsProposed.Inc()
		return
	}

	if st.meetingScheduled {
		return
	}
	if st.lead["email"] == "" {
		// Recoverable: wait for the visitor to share contact details.
		log.Printf("cannot schedule meeting without lead email (session=%s)", st.sessionID)
		return
	}

	attendee := make(map[string]string, len(st.lead))
	for k, v := range st.lead {
		attendee[k] = v
	}
	ref, err := e.scheduler.Confirm(ctx, attendee, st.meeting.ConfirmedTime)
	if err != nil {
		log.Printf("meeting confirmation failed for session %s: %v", st.sessionID, err)
		e.metrics.ProviderErrors.WithLabelValues("scheduling", "confirm").Inc()
		ref = ""
	}

	note := fmt.Sprintf("Great! I've scheduled the meeting for %s.", st.meeting.ConfirmedTime)
	if ref != "" {
		note += " Here is the invite: " + ref
	}
	st.messages = append(st.messages, chat.Message{Role: chat.RoleAssistant, Content: note})
	st.meeting.InviteReference = ref
	st.meetingScheduled = true
	e.metrics.MeetingsScheduled.Inc()

	inviteRef := ref
	if inviteRef == "" {
		inviteRef = "manual follow-up required"
	}
	if err := e.notifier.Notify(ctx, "Meeting Scheduled", "A visitor booked a meeting via the web chat.", map[string]string{
		"time":             st.meeting.ConfirmedTime,
		"invite_reference": inviteRef,
	}); err != nil {
		log.Printf("meeting notification failed for session %s: %v", st.sessionID, err)
		e.metrics.ProviderErrors.WithLabelValues("notify", "meeting").Inc()
	}
}

func (e *Engine) notifyHandoff(ctx context.Context, st *turnState) {
	fields := map[string]string{"session_id": st.sessionID}
	if email := st.lead["email"]; email != "" {
		fields["email"] = email
	}
	if err := e.notifier.Notify(ctx, "Human Handoff Requested", "A visitor asked to continue with a person.", fields); err != nil {
		log.Printf("handoff notification failed for session %s: %v", st.sessionID, err)
		e.metrics.ProviderErrors.WithLabelValues("notify", "handoff").Inc()
	}
}

// persist appends the turn's new messages and saves lead state. The reply
// was already produced, so store faults are logged rather than failing the
// turn.
func (e *Engine) persist(ctx context.Context, st *turnState) {
	delta := st.messages[st.priorLen:]
	records := make([]history.TurnRecord, 0, len(delta))
	for _, m := range delta {
		records = append(records, history.TurnRecord{Role: string(m.Role), Content: m.Content})
	}
	if err := e.store.AppendTurns(ctx, st.sessionID, records); err != nil {
		log.Printf("history append failed for session %s: %v", st.sessionID, err)
		e.metrics.ProviderErrors.WithLabelValues("history", "append").Inc()
	}

	ls := history.LeadState{
		Lead:             st.lead,
		LeadCaptured:     st.leadCaptured,
		MeetingScheduled: st.meetingScheduled,
		ProposedTimes:    st.meeting.ProposedTimes,
		ConfirmedTime:    st.meeting.ConfirmedTime,
		InviteReference:  st.meeting.InviteReference,
	}
	if err := e.store.SaveLeadState(ctx, st.sessionID, ls); err != nil {
		log.Printf("lead state save failed for session %s: %v", st.sessionID, err)
		e.metrics.ProviderErrors.WithLabelValues("history", "save_lead_state").Inc()
	}
}

// renderHistory formats the most recent turns as role-labeled lines for the
// decision provider.
func renderHistory(messages []chat.Message, window int) []string {
	if window > 0 && len(messages) > window {
		messages = messages[len(messages)-window:]
	}
	lines := make([]string, 0, len(messages))
	for _, m := range messages {
		role := string(m.Role)
		if role != "" {
			role = strings.ToUpper(role[:1]) + role[1:]
		}
		lines = append(lines, role+": "+m.Content)
	}
	return lines
}

func formatSlotOffer(slots []string) string {
	var b strings.Builder
	b.WriteString("Here are a few time slots that could work:\n")
	for _, slot := range slots {
		b.WriteString("- ")
		b.WriteString(slot)
		b.WriteString("\n")
	}
	b.WriteString("Let me know which one you prefer.")
	return b.String()
}
