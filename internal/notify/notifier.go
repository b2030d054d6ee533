package notify

import (
	"context"
	"log"
	"strings"
)

// Notifier delivers operator-facing events (new lead, meeting booked) to an
// external channel. Delivery is best-effort: callers log failures and move on.
type Notifier interface {
	Notify(ctx context.Context, title, description string, fields map[string]string) error
}

// Noop is used when no webhook is configured so the pipeline keeps working in
// local setups.
type Noop struct{}

func (Noop) Notify(_ context.Context, title, _ string, _ map[string]string) error {
	log.Printf("notifier not configured; skipping notification %q", title)
	return nil
}

// NewNotifier returns a Discord webhook sink when a URL is configured,
// otherwise a no-op sink.
func NewNotifier(webhookURL string) Notifier {
	if strings.TrimSpace(webhookURL) == "" {
		return Noop{}
	}
	return NewDiscordNotifier(webhookURL)
}
