package brain

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// HTTPAdapter forwards decision requests to an external reasoning endpoint
// that returns the structured decision payload as JSON.
type HTTPAdapter struct {
	url    string
	client *http.Client
}

func NewHTTPAdapter(url string, timeout time.Duration) *HTTPAdapter {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPAdapter{
		url: strings.TrimSpace(url),
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

func (a *HTTPAdapter) Decide(ctx context.Context, req DecisionRequest) (Decision, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return Decision{}, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.url, bytes.NewReader(payload))
	if err != nil {
		return Decision{}, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	res, err := a.client.Do(httpReq)
	if err != nil {
		return Decision{}, fmt.Errorf("send request: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 4<<10))
		return Decision{}, fmt.Errorf("brain http status %d: %s", res.StatusCode, string(body))
	}

	var decision Decision
	if err := json.NewDecoder(res.Body).Decode(&decision); err != nil {
		return Decision{}, fmt.Errorf("decode decision: %w", err)
	}
	if err := decision.Validate(); err != nil {
		return Decision{}, err
	}
	return decision, nil
}
