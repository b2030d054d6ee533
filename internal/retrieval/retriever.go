package retrieval

import (
	"context"
	"fmt"
	"strings"
)

// Snippet is one retrieved knowledge-base fragment, best matches first.
type Snippet struct {
	Source string `json:"source"`
	Text   string `json:"text"`
}

// Retriever fetches context snippets for a visitor query. An empty result is
// a valid, non-error outcome; callers decide how to degrade on failure.
type Retriever interface {
	Search(ctx context.Context, query string, topK int) ([]Snippet, error)
}

// FormatContext renders snippets into the context block sent to the decision
// provider.
func FormatContext(snippets []Snippet) string {
	if len(snippets) == 0 {
		return ""
	}
	chunks := make([]string, 0, len(snippets))
	for _, s := range snippets {
		source := s.Source
		if source == "" {
			source = "unknown"
		}
		chunks = append(chunks, fmt.Sprintf("[%s] %s", source, strings.TrimSpace(s.Text)))
	}
	return strings.Join(chunks, "\n\n")
}
