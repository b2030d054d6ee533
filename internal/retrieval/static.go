package retrieval

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

type staticChunk struct {
	source string
	text   string
	terms  map[string]int
}

// StaticRetriever serves keyword-ranked snippets from a directory of plain
// text / markdown documents loaded once at startup. It backs local and dev
// deployments where no database is configured.
type StaticRetriever struct {
	chunks []staticChunk
}

// NewStaticRetriever loads every .md and .txt file under dir. A blank dir
// yields an empty index, which is a valid deployment (no knowledge base yet).
func NewStaticRetriever(dir string) (*StaticRetriever, error) {
	r := &StaticRetriever{}
	if strings.TrimSpace(dir) == "" {
		return r, nil
	}

	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(path))
		if ext != ".md" && ext != ".txt" {
			return nil
		}
		raw, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		rel, relErr := filepath.Rel(dir, path)
		if relErr != nil {
			rel = filepath.Base(path)
		}
		for _, text := range ChunkDocument(string(raw)) {
			r.chunks = append(r.chunks, staticChunk{
				source: rel,
				text:   text,
				terms:  termFrequencies(text),
			})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load knowledge dir: %w", err)
	}
	return r, nil
}

func (r *StaticRetriever) Search(_ context.Context, query string, topK int) ([]Snippet, error) {
	if topK <= 0 {
		topK = 3
	}
	queryTerms := tokenize(query)
	if len(queryTerms) == 0 || len(r.chunks) == 0 {
		return nil, nil
	}

	type scored struct {
		idx   int
		score int
	}
	matches := make([]scored, 0, len(r.chunks))
	for i, c := range r.chunks {
		score := 0
		for _, term := range queryTerms {
			score += c.terms[term]
		}
		if score > 0 {
			matches = append(matches, scored{idx: i, score: score})
		}
	}
	sort.SliceStable(matches, func(a, b int) bool { return matches[a].score > matches[b].score })

	if len(matches) > topK {
		matches = matches[:topK]
	}
	out := make([]Snippet, 0, len(matches))
	for _, m := range matches {
		out = append(out, Snippet{Source: r.chunks[m.idx].source, Text: r.chunks[m.idx].text})
	}
	return out, nil
}

// Len reports how many chunks are indexed.
func (r *StaticRetriever) Len() int { return len(r.chunks) }

// ChunkDocument splits a document into paragraph-level chunks. Shared with
// the kbload ingestion tool so both retrievers index the same units.
func ChunkDocument(raw string) []string {
	paragraphs := strings.Split(strings.ReplaceAll(raw, "\r\n", "\n"), "\n\n")
	out := make([]string, 0, len(paragraphs))
	for _, p := range paragraphs {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}

func termFrequencies(text string) map[string]int {
	freq := make(map[string]int)
	for _, t := range tokenize(text) {
		freq[t]++
	}
	return freq
}

func tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !('a' <= r && r <= 'z') && !('0' <= r && r <= '9')
	})
	out := fields[:0]
	for _, f := range fields {
		if len(f) >= 3 {
			out = append(out, f)
		}
	}
	return out
}
