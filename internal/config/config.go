package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config contains all runtime settings for the lead-qualification service.
type Config struct {
	BindAddr         string
	ShutdownTimeout  time.Duration
	MetricsNamespace string

	AllowAnyOrigin bool
	CORSOrigins    []string

	SessionInactivityTimeout time.Duration
	HistoryMaxMessages       int
	HistoryPromptWindow      int

	RetrievalProvider string
	RetrievalTopK     int
	KnowledgeDir      string

	BrainAdapterMode string
	BrainHTTPURL     string
	DecisionTimeout  time.Duration

	DatabaseURL string

	DiscordWebhookURL   string
	CalendlyAPIToken    string
	CalendlyUserURI     string
	FallbackMeetingLink string
}

// Load reads environment variables and applies safe defaults.
func Load() (Config, error) {
	cfg := Config{
		BindAddr:         envOrDefault("APP_BIND_ADDR", ":8080"),
		MetricsNamespace: envOrDefault("APP_METRICS_NAMESPACE", "leadflow"),
		AllowAnyOrigin:   false,
		CORSOrigins:      splitList(os.Getenv("APP_CORS_ORIGINS")),
		// Widget sessions idle out after half an hour of silence.
		SessionInactivityTimeout: 30 * time.Minute,
		HistoryMaxMessages:       50,
		HistoryPromptWindow:      10,
		RetrievalProvider:        envOrDefault("RETRIEVAL_PROVIDER", "auto"),
		RetrievalTopK:            3,
		KnowledgeDir:             stringsTrimSpace("KNOWLEDGE_DIR"),
		BrainAdapterMode:         envOrDefault("BRAIN_ADAPTER_MODE", "auto"),
		BrainHTTPURL:             stringsTrimSpace("BRAIN_HTTP_URL"),
		DecisionTimeout:          10 * time.Second,
		DatabaseURL:              stringsTrimSpace("DATABASE_URL"),
		DiscordWebhookURL:        stringsTrimSpace("DISCORD_WEBHOOK_URL"),
		CalendlyAPIToken:         stringsTrimSpace("CALENDLY_API_TOKEN"),
		CalendlyUserURI:          stringsTrimSpace("CALENDLY_USER_URI"),
		FallbackMeetingLink:      stringsTrimSpace("FALLBACK_MEETING_LINK"),
		ShutdownTimeout:          15 * time.Second,
	}

	var err error
	cfg.ShutdownTimeout, err = durationFromEnv("APP_SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.SessionInactivityTimeout, err = durationFromEnv("APP_SESSION_INACTIVITY_TIMEOUT", cfg.SessionInactivityTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.DecisionTimeout, err = durationFromEnv("BRAIN_DECISION_TIMEOUT", cfg.DecisionTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.AllowAnyOrigin, err = boolFromEnv("APP_ALLOW_ANY_ORIGIN", cfg.AllowAnyOrigin)
	if err != nil {
		return Config{}, err
	}
	cfg.HistoryMaxMessages, err = intFromEnv("HISTORY_MAX_MESSAGES", cfg.HistoryMaxMessages)
	if err != nil {
		return Config{}, err
	}
	cfg.HistoryPromptWindow, err = intFromEnv("HISTORY_PROMPT_WINDOW", cfg.HistoryPromptWindow)
	if err != nil {
		return Config{}, err
	}
	cfg.RetrievalTopK, err = intFromEnv("RETRIEVAL_TOP_K", cfg.RetrievalTopK)
	if err != nil {
		return Config{}, err
	}

	if cfg.SessionInactivityTimeout < 5*time.Second {
		return Config{}, fmt.Errorf("APP_SESSION_INACTIVITY_TIMEOUT must be at least 5s")
	}
	if cfg.HistoryMaxMessages <= 0 {
		return Config{}, fmt.Errorf("HISTORY_MAX_MESSAGES must be positive")
	}
	if cfg.HistoryPromptWindow <= 0 || cfg.HistoryPromptWindow > cfg.HistoryMaxMessages {
		return Config{}, fmt.Errorf("HISTORY_PROMPT_WINDOW must be in 1..HISTORY_MAX_MESSAGES")
	}
	if cfg.RetrievalTopK <= 0 {
		return Config{}, fmt.Errorf("RETRIEVAL_TOP_K must be positive")
	}
	if cfg.DecisionTimeout <= 0 {
		return Config{}, fmt.Errorf("BRAIN_DECISION_TIMEOUT must be positive")
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func stringsTrimSpace(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func durationFromEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return d, nil
}

func intFromEnv(key string, fallback int) (int, error) {
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return n, nil
}

func boolFromEnv(key string, fallback bool) (bool, error) {
	v := strings.ToLower(stringsTrimSpace(key))
	if v == "" {
		return fallback, nil
	}
	switch v {
	case "1", "true", "t", "yes", "y", "on":
		return true, nil
	case "0", "false", "f", "no", "n", "off":
		return false, nil
	default:
		return false, fmt.Errorf("%s parse error: expected bool", key)
	}
}
