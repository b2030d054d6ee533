package scheduling

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"
)

const (
	proposedSlotCount  = 3
	meetingLength      = 30 * time.Minute
	scheduledEventsURL = "https://api.calendly.com/scheduled_events"
)

// CalendlyService books meetings through the Calendly API. Without
// credentials it degrades to offering fallback slots and, on confirmation,
// the configured fallback meeting link.
type CalendlyService struct {
	apiToken     string
	userURI      string
	fallbackLink string
	baseURL      string
	client       *http.Client
	now          func() time.Time
}

type Option func(*CalendlyService)

// WithBaseURL overrides the Calendly endpoint (tests).
func WithBaseURL(url string) Option {
	return func(s *CalendlyService) { s.baseURL = url }
}

// WithClock overrides the time source (tests).
func WithClock(now func() time.Time) Option {
	return func(s *CalendlyService) { s.now = now }
}

func NewCalendlyService(apiToken, userURI, fallbackLink string, opts ...Option) *CalendlyService {
	s := &CalendlyService{
		apiToken:     strings.TrimSpace(apiToken),
		userURI:      strings.TrimSpace(userURI),
		fallbackLink: strings.TrimSpace(fallbackLink),
		baseURL:      scheduledEventsURL,
		client:       &http.Client{Timeout: 10 * time.Second},
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ProposeSlots offers the next three days at 15:00 UTC.
func (s *CalendlyService) ProposeSlots(_ context.Context) ([]string, error) {
	now := s.now().UTC()
	slots := make([]string, 0, proposedSlotCount)
	for i := 1; i <= proposedSlotCount; i++ {
		day := now.AddDate(0, 0, i)
		slot := time.Date(day.Year(), day.Month(), day.Day(), 15, 0, 0, 0, time.UTC)
		slots = append(slots, slot.Format(time.RFC3339))
	}
	return slots, nil
}

type inviteePayload struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

type bookingPayload struct {
	Invitees  []inviteePayload  `json:"invitees"`
	StartTime string            `json:"start_time"`
	EndTime   string            `json:"end_time"`
	Location  map[string]string `json:"location"`
}

type bookingResponse struct {
	Resource struct {
		URI string `json:"uri"`
	} `json:"resource"`
}

func (s *CalendlyService) Confirm(ctx context.Context, attendee map[string]string, slot string) (string, error) {
	if s.apiToken == "" || s.userURI == "" {
		log.Printf("calendly not configured; using fallback meeting link")
		return s.fallbackLink, nil
	}

	name := attendee["name"]
	if name == "" {
		name = "Website Visitor"
	}

	endTime := slot
	if start, err := time.Parse(time.RFC3339, slot); err == nil {
		endTime = start.Add(meetingLength).Format(time.RFC3339)
	}

	payload, err := json.Marshal(bookingPayload{
		Invitees:  []inviteePayload{{Email: attendee["email"], Name: name}},
		StartTime: slot,
		EndTime:   endTime,
		Location:  map[string]string{"type": "zoom"},
	})
	if err != nil {
		return "", fmt.Errorf("marshal booking payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("create booking request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.apiToken)
	req.Header.Set("Content-Type", "application/json")

	res, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("send booking request: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 4<<10))
		return "", fmt.Errorf("calendly status %d: %s", res.StatusCode, string(body))
	}

	var parsed bookingResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decode booking response: %w", err)
	}
	return parsed.Resource.URI, nil
}
