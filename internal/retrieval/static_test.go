package retrieval

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func writeKnowledgeDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	docs := map[string]string{
		"services.md": "We offer consulting services for data platforms.\n\nOur pricing starts at a fixed monthly retainer.",
		"company.txt": "The company was founded in 2019 and is fully remote.",
	}
	for name, content := range docs {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatalf("write doc: %v", err)
		}
	}
	return dir
}

func TestStaticRetrieverRanksMatches(t *testing.T) {
	r, err := NewStaticRetriever(writeKnowledgeDir(t))
	if err != nil {
		t.Fatalf("NewStaticRetriever() error = %v", err)
	}
	if r.Len() != 3 {
		t.Fatalf("indexed chunks = %d, want 3", r.Len())
	}

	got, err := r.Search(context.Background(), "what consulting services do you offer", 3)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(got) == 0 {
		t.Fatalf("Search() returned no snippets")
	}
	if got[0].Source != "services.md" {
		t.Fatalf("best match source = %q, want services.md", got[0].Source)
	}
}

func TestStaticRetrieverTopKLimit(t *testing.T) {
	r, err := NewStaticRetriever(writeKnowledgeDir(t))
	if err != nil {
		t.Fatalf("NewStaticRetriever() error = %v", err)
	}
	got, err := r.Search(context.Background(), "company services pricing", 1)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(got) > 1 {
		t.Fatalf("Search() returned %d snippets, want at most 1", len(got))
	}
}

func TestStaticRetrieverEmptyIndexIsValid(t *testing.T) {
	r, err := NewStaticRetriever("")
	if err != nil {
		t.Fatalf("NewStaticRetriever() error = %v", err)
	}
	got, err := r.Search(context.Background(), "anything", 3)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if got != nil {
		t.Fatalf("Search() = %v, want nil", got)
	}
}

func TestChunkDocumentSplitsParagraphs(t *testing.T) {
	chunks := ChunkDocument("first paragraph\r\n\r\nsecond paragraph\n\n\n\nthird")
	if len(chunks) != 3 {
		t.Fatalf("chunks = %d, want 3: %v", len(chunks), chunks)
	}
}

func TestFormatContext(t *testing.T) {
	if got := FormatContext(nil); got != "" {
		t.Fatalf("FormatContext(nil) = %q, want empty", got)
	}
	got := FormatContext([]Snippet{{Source: "a.md", Text: " hello "}, {Text: "world"}})
	want := "[a.md] hello\n\n[unknown] world"
	if got != want {
		t.Fatalf("FormatContext() = %q, want %q", got, want)
	}
}
