// Command kbload ingests knowledge base documents into the PostgreSQL
// full-text index used by the chat service. It walks a directory of .md and
// .txt files, splits each into paragraph chunks, and stores them in kb_chunks.
package main

import (
	"context"
	"flag"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/marcofaedo/leadflow/internal/retrieval"
)

type options struct {
	docsDir     string
	databaseURL string
	truncate    bool
	timeout     time.Duration
}

func main() {
	cfg := parseFlags()
	if err := run(cfg); err != nil {
		log.Fatalf("kbload: %v", err)
	}
}

func parseFlags() options {
	var cfg options
	var timeoutSec int
	flag.StringVar(&cfg.docsDir, "docs", "knowledge", "directory of .md/.txt documents to ingest")
	flag.StringVar(&cfg.databaseURL, "database-url", os.Getenv("DATABASE_URL"), "postgres connection string (defaults to DATABASE_URL)")
	flag.BoolVar(&cfg.truncate, "truncate", false, "delete existing chunks before ingesting")
	flag.IntVar(&timeoutSec, "timeout-sec", 60, "overall timeout in seconds")
	flag.Parse()
	cfg.timeout = time.Duration(timeoutSec) * time.Second
	return cfg
}

func run(cfg options) error {
	if strings.TrimSpace(cfg.databaseURL) == "" {
		return fmt.Errorf("database url is required (set -database-url or DATABASE_URL)")
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.timeout)
	defer cancel()

	r, err := retrieval.NewPostgresRetriever(ctx, cfg.databaseURL)
	if err != nil {
		return err
	}
	defer r.Close()

	if cfg.truncate {
		if err := r.Reset(ctx); err != nil {
			return err
		}
		log.Printf("cleared existing chunks")
	}

	files := 0
	chunks := 0
	err = filepath.WalkDir(cfg.docsDir, func(path string, d fs.DirEntry, err error) error {
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
		source := filepath.Base(path)
		for _, chunk := range retrieval.ChunkDocument(string(raw)) {
			if err := r.Ingest(ctx, source, chunk); err != nil {
				return fmt.Errorf("ingest %s: %w", source, err)
			}
			chunks++
		}
		files++
		log.Printf("ingested %s", source)
		return nil
	})
	if err != nil {
		return err
	}

	log.Printf("done: %d files, %d chunks", files, chunks)
	return nil
}
