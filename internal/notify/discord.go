package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/marcofaedo/leadflow/internal/reliability"
)

const maxNotifyAttempts = 2

// DiscordNotifier posts embeds to a Discord webhook.
type DiscordNotifier struct {
	url    string
	client *http.Client
}

func NewDiscordNotifier(url string) *DiscordNotifier {
	return &DiscordNotifier{
		url: strings.TrimSpace(url),
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type embedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

type embed struct {
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Fields      []embedField `json:"fields"`
}

type webhookPayload struct {
	Embeds []embed `json:"embeds"`
}

func (n *DiscordNotifier) Notify(ctx context.Context, title, description string, fields map[string]string) error {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	embedFields := make([]embedField, 0, len(keys))
	for _, k := range keys {
		embedFields = append(embedFields, embedField{Name: k, Value: fields[k]})
	}

	payload, err := json.Marshal(webhookPayload{
		Embeds: []embed{{Title: title, Description: description, Fields: embedFields}},
	})
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt < maxNotifyAttempts; attempt++ {
		if attempt > 0 {
			backoff := reliability.ExponentialBackoff(attempt, 250*time.Millisecond, 2*time.Second)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
		}

		retryable, err := n.post(ctx, payload)
		if err == nil {
			return nil
		}
		lastErr = err
		if !retryable {
			break
		}
	}
	return lastErr
}

func (n *DiscordNotifier) post(ctx context.Context, payload []byte) (retryable bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(payload))
	if err != nil {
		return false, fmt.Errorf("create webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := n.client.Do(req)
	if err != nil {
		return true, fmt.Errorf("send webhook: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 4<<10))
		return reliability.IsRetryableHTTPStatus(res.StatusCode),
			fmt.Errorf("webhook status %d: %s", res.StatusCode, string(body))
	}
	return false, nil
}
