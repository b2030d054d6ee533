package brain

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestHTTPAdapterDecodesDecision(t *testing.T) {
	var got DecisionRequest
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_ = json.NewEncoder(w).Encode(Decision{
			Reply:      "Thanks!",
			NextAction: ActionCaptureLead,
			Lead:       &LeadFields{Email: "a@b.com"},
		})
	}))
	defer ts.Close()

	a := NewHTTPAdapter(ts.URL, 5*time.Second)
	decision, err := a.Decide(context.Background(), DecisionRequest{
		SessionID: "s1",
		TurnID:    "t1",
		History:   []string{"User: my email is a@b.com"},
	})
	if err != nil {
		t.Fatalf("Decide() error = %v", err)
	}
	if decision.NextAction != ActionCaptureLead || decision.Lead == nil || decision.Lead.Email != "a@b.com" {
		t.Fatalf("decision = %+v", decision)
	}
	if got.SessionID != "s1" || len(got.History) != 1 {
		t.Fatalf("request seen by server = %+v", got)
	}
}

func TestHTTPAdapterRejectsErrorStatus(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer ts.Close()

	a := NewHTTPAdapter(ts.URL, 5*time.Second)
	if _, err := a.Decide(context.Background(), DecisionRequest{}); err == nil {
		t.Fatalf("Decide() error = nil, want status failure")
	}
}

func TestHTTPAdapterRejectsMalformedPayload(t *testing.T) {
	cases := map[string]string{
		"not json":    `this is not json`,
		"empty reply": `{"reply":"  ","next_action":"none"}`,
		"bad action":  `{"reply":"hi","next_action":"launch_rocket"}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(body))
			}))
			defer ts.Close()

			a := NewHTTPAdapter(ts.URL, 5*time.Second)
			if _, err := a.Decide(context.Background(), DecisionRequest{}); err == nil {
				t.Fatalf("Decide() error = nil, want malformed payload failure")
			}
		})
	}
}

func TestHTTPAdapterDefaultsMissingAction(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"reply":"hello there"}`))
	}))
	defer ts.Close()

	a := NewHTTPAdapter(ts.URL, 5*time.Second)
	decision, err := a.Decide(context.Background(), DecisionRequest{})
	if err != nil {
		t.Fatalf("Decide() error = %v", err)
	}
	if decision.NextAction != ActionNone {
		t.Fatalf("NextAction = %q, want %q", decision.NextAction, ActionNone)
	}
}
