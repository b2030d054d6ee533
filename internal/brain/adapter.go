package brain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Config controls adapter construction.
type Config struct {
	Mode    string
	HTTPURL string
	Timeout time.Duration
}

// NewAdapter builds the configured decision adapter. "auto" prefers the HTTP
// backend when a URL is configured and falls back to the deterministic mock.
func NewAdapter(cfg Config) (Adapter, error) {
	mode := strings.ToLower(strings.TrimSpace(cfg.Mode))
	if mode == "" {
		mode = "auto"
	}

	switch mode {
	case "auto":
		if strings.TrimSpace(cfg.HTTPURL) != "" {
			return NewHTTPAdapter(cfg.HTTPURL, cfg.Timeout), nil
		}
		return NewMockAdapter(), nil
	case "http":
		if strings.TrimSpace(cfg.HTTPURL) == "" {
			return nil, errors.New("brain HTTP url is required for http mode")
		}
		return NewHTTPAdapter(cfg.HTTPURL, cfg.Timeout), nil
	case "mock":
		return NewMockAdapter(), nil
	default:
		return nil, fmt.Errorf("unsupported brain adapter mode %q", cfg.Mode)
	}
}
