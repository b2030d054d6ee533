package retrieval

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRetriever ranks knowledge chunks with PostgreSQL full-text search.
type PostgresRetriever struct {
	pool *pgxpool.Pool
}

func NewPostgresRetriever(ctx context.Context, databaseURL string) (*PostgresRetriever, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	if err := initKnowledgeSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}

	return &PostgresRetriever{pool: pool}, nil
}

func initKnowledgeSchema(ctx context.Context, pool *pgxpool.Pool) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS kb_chunks (
			id TEXT PRIMARY KEY,
			source TEXT NOT NULL,
			content TEXT NOT NULL,
			tsv tsvector GENERATED ALWAYS AS (to_tsvector('english', content)) STORED,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);`,
		`CREATE INDEX IF NOT EXISTS idx_kb_chunks_tsv ON kb_chunks USING GIN (tsv);`,
	}

	for _, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("init knowledge schema failed on %q: %w", stmt, err)
		}
	}
	return nil
}

func (r *PostgresRetriever) Search(ctx context.Context, query string, topK int) ([]Snippet, error) {
	if topK <= 0 {
		topK = 3
	}

	rows, err := r.pool.Query(ctx,
		`SELECT source, content
		 FROM kb_chunks
		 WHERE tsv @@ websearch_to_tsquery('english', $1)
		 ORDER BY ts_rank(tsv, websearch_to_tsquery('english', $1)) DESC
		 LIMIT $2`,
		query, topK,
	)
	if err != nil {
		return nil, fmt.Errorf("search knowledge base: %w", err)
	}
	defer rows.Close()

	out := make([]Snippet, 0, topK)
	for rows.Next() {
		var s Snippet
		if err := rows.Scan(&s.Source, &s.Text); err != nil {
			return nil, fmt.Errorf("scan knowledge row: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate knowledge rows: %w", err)
	}
	return out, nil
}

// Ingest stores one chunk. Used by the kbload tool.
func (r *PostgresRetriever) Ingest(ctx context.Context, source, content string) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO kb_chunks (id, source, content) VALUES ($1, $2, $3)`,
		uuid.NewString(), source, content,
	)
	if err != nil {
		return fmt.Errorf("ingest chunk: %w", err)
	}
	return nil
}

// Reset removes all stored chunks. Used by kbload -truncate before a full
// re-ingest.
func (r *PostgresRetriever) Reset(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM kb_chunks`); err != nil {
		return fmt.Errorf("reset knowledge base: %w", err)
	}
	return nil
}

func (r *PostgresRetriever) Close() error {
	r.pool.Close()
	return nil
}
