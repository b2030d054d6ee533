package brain

import (
	"context"
	"testing"
)

func TestMockAdapterCapturesEmail(t *testing.T) {
	a := NewMockAdapter()
	d, err := a.Decide(context.Background(), DecisionRequest{
		History: []string{"Assistant: may I have your email?", "User: sure, jane@example.com"},
	})
	if err != nil {
		t.Fatalf("Decide() error = %v", err)
	}
	if d.NextAction != ActionCaptureLead {
		t.Fatalf("NextAction = %q, want capture_lead", d.NextAction)
	}
	if d.Lead == nil || d.Lead.Email != "jane@example.com" {
		t.Fatalf("Lead = %+v", d.Lead)
	}
}

func TestMockAdapterRequestsScheduling(t *testing.T) {
	a := NewMockAdapter()
	d, err := a.Decide(context.Background(), DecisionRequest{
		History: []string{"User: can we book a demo next week?"},
	})
	if err != nil {
		t.Fatalf("Decide() error = %v", err)
	}
	if d.NextAction != ActionSchedule {
		t.Fatalf("NextAction = %q, want schedule", d.NextAction)
	}
}

func TestMockAdapterRequestsHandoff(t *testing.T) {
	a := NewMockAdapter()
	d, err := a.Decide(context.Background(), DecisionRequest{
		History: []string{"User: I want to talk to a human please"},
	})
	if err != nil {
		t.Fatalf("Decide() error = %v", err)
	}
	if d.NextAction != ActionHandoff {
		t.Fatalf("NextAction = %q, want handoff", d.NextAction)
	}
}

func TestMockAdapterDefaultsToNone(t *testing.T) {
	a := NewMockAdapter()
	d, err := a.Decide(context.Background(), DecisionRequest{
		History: []string{"User: tell me about your services"},
	})
	if err != nil {
		t.Fatalf("Decide() error = %v", err)
	}
	if d.NextAction != ActionNone || d.Reply == "" {
		t.Fatalf("decision = %+v", d)
	}
}

func TestNewAdapterAutoFallsBackToMock(t *testing.T) {
	a, err := NewAdapter(Config{Mode: "auto"})
	if err != nil {
		t.Fatalf("NewAdapter() error = %v", err)
	}
	if _, ok := a.(*MockAdapter); !ok {
		t.Fatalf("adapter = %T, want *MockAdapter", a)
	}
}

func TestNewAdapterHTTPRequiresURL(t *testing.T) {
	if _, err := NewAdapter(Config{Mode: "http"}); err == nil {
		t.Fatalf("NewAdapter() error = nil, want missing url failure")
	}
}

func TestLeadFieldsMapDropsEmpties(t *testing.T) {
	m := LeadFields{Name: " Jane ", Email: "a@b.com", Phone: ""}.Map()
	if len(m) != 2 || m["name"] != "Jane" || m["email"] != "a@b.com" {
		t.Fatalf("Map() = %v", m)
	}
}
