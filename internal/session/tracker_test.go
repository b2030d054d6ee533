package session

import (
	"context"
	"testing"
	"time"
)

func TestTrackerTouchCreatesAndCounts(t *testing.T) {
	tr := NewTracker(time.Minute)
	s := tr.Touch("s1")
	if s.Status != StatusActive || s.TurnCount != 1 {
		t.Fatalf("unexpected session state: %+v", s)
	}

	s = tr.Touch("s1")
	if s.TurnCount != 2 {
		t.Fatalf("TurnCount = %d, want 2", s.TurnCount)
	}
	if tr.ActiveCount() != 1 {
		t.Fatalf("ActiveCount() = %d, want 1", tr.ActiveCount())
	}

	tr.Touch("s2")
	if tr.ActiveCount() != 2 {
		t.Fatalf("ActiveCount() = %d, want 2", tr.ActiveCount())
	}
}

func TestTrackerEnd(t *testing.T) {
	tr := NewTracker(time.Minute)
	tr.Touch("s1")

	ended, err := tr.End("s1")
	if err != nil {
		t.Fatalf("End() error = %v", err)
	}
	if ended.Status != StatusEnded {
		t.Fatalf("ended status = %q, want %q", ended.Status, StatusEnded)
	}
	if tr.ActiveCount() != 0 {
		t.Fatalf("ActiveCount() = %d, want 0", tr.ActiveCount())
	}

	if _, err := tr.End("missing"); err != ErrNotFound {
		t.Fatalf("End(missing) error = %v, want ErrNotFound", err)
	}
}

func TestTrackerJanitorExpiresInactive(t *testing.T) {
	tr := NewTracker(30 * time.Millisecond)

	var expired []string
	done := make(chan struct{})
	tr.SetExpireHook(func(s *Session) {
		expired = append(expired, s.ID)
		close(done)
	})
	tr.Touch("s1")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	tr.StartJanitor(ctx, 10*time.Millisecond)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("expire hook never fired")
	}
	if len(expired) != 1 || expired[0] != "s1" {
		t.Fatalf("expired = %v, want [s1]", expired)
	}
	if _, err := tr.Get("s1"); err != ErrNotFound {
		t.Fatalf("Get() after expiry error = %v, want ErrNotFound", err)
	}
}
