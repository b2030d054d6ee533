package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

func TestDiscordNotifierSendsEmbed(t *testing.T) {
	var got webhookPayload
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode payload: %v", err)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer ts.Close()

	n := NewDiscordNotifier(ts.URL)
	err := n.Notify(context.Background(), "New Website Lead", "Captured contact information from web chat.", map[string]string{
		"name":  "Jane",
		"email": "jane@example.com",
	})
	if err != nil {
		t.Fatalf("Notify() error = %v", err)
	}

	if len(got.Embeds) != 1 {
		t.Fatalf("embeds = %d, want 1", len(got.Embeds))
	}
	e := got.Embeds[0]
	if e.Title != "New Website Lead" {
		t.Fatalf("title = %q", e.Title)
	}
	if len(e.Fields) != 2 || e.Fields[0].Name != "email" || e.Fields[1].Name != "name" {
		t.Fatalf("fields not sorted by name: %+v", e.Fields)
	}
}

func TestDiscordNotifierRetriesRetryableStatus(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer ts.Close()

	n := NewDiscordNotifier(ts.URL)
	if err := n.Notify(context.Background(), "t", "d", nil); err != nil {
		t.Fatalf("Notify() error = %v", err)
	}
	if calls.Load() != 2 {
		t.Fatalf("calls = %d, want 2", calls.Load())
	}
}

func TestDiscordNotifierDoesNotRetryClientError(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer ts.Close()

	n := NewDiscordNotifier(ts.URL)
	if err := n.Notify(context.Background(), "t", "d", nil); err == nil {
		t.Fatalf("Notify() error = nil, want failure")
	}
	if calls.Load() != 1 {
		t.Fatalf("calls = %d, want 1", calls.Load())
	}
}

func TestNewNotifierFallsBackToNoop(t *testing.T) {
	n := NewNotifier("  ")
	if _, ok := n.(Noop); !ok {
		t.Fatalf("NewNotifier(blank) = %T, want Noop", n)
	}
	if err := n.Notify(context.Background(), "t", "d", nil); err != nil {
		t.Fatalf("Noop Notify() error = %v", err)
	}
}
