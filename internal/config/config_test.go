package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	setCoreEnvEmpty(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.BindAddr != ":8080" {
		t.Fatalf("BindAddr = %q, want %q", cfg.BindAddr, ":8080")
	}
	if cfg.BrainAdapterMode != "auto" {
		t.Fatalf("BrainAdapterMode = %q, want %q", cfg.BrainAdapterMode, "auto")
	}
	if cfg.BrainHTTPURL != "" {
		t.Fatalf("BrainHTTPURL = %q, want empty default", cfg.BrainHTTPURL)
	}
	if cfg.RetrievalTopK != 3 {
		t.Fatalf("RetrievalTopK = %d, want 3", cfg.RetrievalTopK)
	}
	if cfg.HistoryMaxMessages != 50 || cfg.HistoryPromptWindow != 10 {
		t.Fatalf("history defaults = %d/%d, want 50/10", cfg.HistoryMaxMessages, cfg.HistoryPromptWindow)
	}
}

func TestLoadUsesExplicitBrainHTTPURL(t *testing.T) {
	setCoreEnvEmpty(t)
	t.Setenv("BRAIN_HTTP_URL", "http://localhost:7777/decide")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.BrainHTTPURL != "http://localhost:7777/decide" {
		t.Fatalf("BrainHTTPURL = %q, want explicit value", cfg.BrainHTTPURL)
	}
}

func TestLoadParsesCORSOrigins(t *testing.T) {
	setCoreEnvEmpty(t)
	t.Setenv("APP_CORS_ORIGINS", "https://example.com, https://www.example.com ,")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(cfg.CORSOrigins) != 2 || cfg.CORSOrigins[0] != "https://example.com" {
		t.Fatalf("CORSOrigins = %v", cfg.CORSOrigins)
	}
}

func TestLoadRejectsInvalidPromptWindow(t *testing.T) {
	setCoreEnvEmpty(t)
	t.Setenv("HISTORY_PROMPT_WINDOW", "0")

	if _, err := Load(); err == nil {
		t.Fatalf("Load() error = nil, want validation failure")
	}
}

func TestLoadRejectsBadDuration(t *testing.T) {
	setCoreEnvEmpty(t)
	t.Setenv("BRAIN_DECISION_TIMEOUT", "not-a-duration")

	if _, err := Load(); err == nil {
		t.Fatalf("Load() error = nil, want parse failure")
	}
}

func setCoreEnvEmpty(t *testing.T) {
	t.Helper()
	keys := []string{
		"APP_BIND_ADDR",
		"APP_SHUTDOWN_TIMEOUT",
		"APP_METRICS_NAMESPACE",
		"APP_ALLOW_ANY_ORIGIN",
		"APP_CORS_ORIGINS",
		"APP_SESSION_INACTIVITY_TIMEOUT",
		"HISTORY_MAX_MESSAGES",
		"HISTORY_PROMPT_WINDOW",
		"RETRIEVAL_PROVIDER",
		"RETRIEVAL_TOP_K",
		"KNOWLEDGE_DIR",
		"BRAIN_ADAPTER_MODE",
		"BRAIN_HTTP_URL",
		"BRAIN_DECISION_TIMEOUT",
		"DATABASE_URL",
		"DISCORD_WEBHOOK_URL",
		"CALENDLY_API_TOKEN",
		"CALENDLY_USER_URI",
		"FALLBACK_MEETING_LINK",
	}
	for _, key := range keys {
		t.Setenv(key, "")
	}
}
