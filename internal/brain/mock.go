package brain

import (
	"context"
	"regexp"
	"strings"
)

var mockEmailPattern = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)

// MockAdapter produces deterministic decisions so the service can run
// without a reasoning backend.
type MockAdapter struct{}

func NewMockAdapter() *MockAdapter { return &MockAdapter{} }

func (a *MockAdapter) Decide(ctx context.Context, req DecisionRequest) (Decision, error) {
	select {
	case <-ctx.Done():
		return Decision{}, ctx.Err()
	default:
	}

	latest := latestVisitorLine(req.History)
	lower := strings.ToLower(latest)

	if email := mockEmailPattern.FindString(latest); email != "" {
		return Decision{
			Reply:      "Thanks! I've noted your contact details and someone from our team will follow up shortly.",
			NextAction: ActionCaptureLead,
			Lead:       &LeadFields{Email: email},
		}, nil
	}

	if containsAny(lower, "human", "representative", "real person", "sales rep") {
		return Decision{
			Reply:      "Of course, I'll loop in a member of our team to continue this conversation.",
			NextAction: ActionHandoff,
		}, nil
	}

	if containsAny(lower, "meeting", "schedule", "book", "demo", "call") {
		return Decision{
			Reply:      "Happy to set that up. Let me pull a few time slots that could work.",
			NextAction: ActionSchedule,
		}, nil
	}

	reply := "Thanks for reaching out! Ask me anything about our services."
	if strings.TrimSpace(req.Context) != "" {
		reply = "Here's what I found for you:\n" + firstLine(req.Context)
	}
	return Decision{Reply: reply, NextAction: ActionNone}, nil
}

func latestVisitorLine(history []string) string {
	for i := len(history) - 1; i >= 0; i-- {
		line := history[i]
		if strings.HasPrefix(line, "User: ") {
			return strings.TrimPrefix(line, "User: ")
		}
	}
	if len(history) > 0 {
		return history[len(history)-1]
	}
	return ""
}

func containsAny(s string, needles ...string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}

func firstLine(s string) string {
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		return s[:idx]
	}
	return s
}
