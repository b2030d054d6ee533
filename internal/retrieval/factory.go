package retrieval

import (
	"context"
	"fmt"
	"strings"
)

// NewRetriever selects a provider. "auto" prefers postgres when a database is
// configured, then the static index when a knowledge dir is set, and finally
// an empty static index so the service always answers (with no context).
func NewRetriever(ctx context.Context, provider, databaseURL, knowledgeDir string) (Retriever, string, error) {
	mode := strings.ToLower(strings.TrimSpace(provider))
	if mode == "" {
		mode = "auto"
	}

	switch mode {
	case "postgres":
		if strings.TrimSpace(databaseURL) == "" {
			return nil, "", fmt.Errorf("RETRIEVAL_PROVIDER=postgres requires DATABASE_URL")
		}
		r, err := NewPostgresRetriever(ctx, databaseURL)
		return r, "postgres", err
	case "static":
		r, err := NewStaticRetriever(knowledgeDir)
		return r, "static", err
	case "none":
		r, err := NewStaticRetriever("")
		return r, "none", err
	case "auto":
		if strings.TrimSpace(databaseURL) != "" {
			r, err := NewPostgresRetriever(ctx, databaseURL)
			return r, "postgres", err
		}
		if strings.TrimSpace(knowledgeDir) != "" {
			r, err := NewStaticRetriever(knowledgeDir)
			return r, "static", err
		}
		r, err := NewStaticRetriever("")
		return r, "none", err
	default:
		return nil, "", fmt.Errorf("unsupported retrieval provider %q", provider)
	}
}
