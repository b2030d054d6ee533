package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore persists conversation history and lead state in PostgreSQL.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	if err := initSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}

	return &PostgresStore{pool: pool}, nil
}

func initSchema(ctx context.Context, pool *pgxpool.Pool) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS chat_turns (
			id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL,
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);`,
		`CREATE INDEX IF NOT EXISTS idx_chat_turns_session_created ON chat_turns (session_id, created_at);`,
		`CREATE TABLE IF NOT EXISTS lead_sessions (
			session_id TEXT PRIMARY KEY,
			lead JSONB NOT NULL DEFAULT '{}'::jsonb,
			lead_captured BOOLEAN NOT NULL DEFAULT FALSE,
			meeting_scheduled BOOLEAN NOT NULL DEFAULT FALSE,
			proposed_times JSONB NOT NULL DEFAULT '[]'::jsonb,
			confirmed_time TEXT NOT NULL DEFAULT '',
			invite_reference TEXT NOT NULL DEFAULT '',
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);`,
	}

	for _, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("init schema failed on %q: %w", stmt, err)
		}
	}
	return nil
}

func (s *PostgresStore) AppendTurns(ctx context.Context, sessionID string, turns []TurnRecord) error {
	for _, t := range turns {
		if t.ID == "" {
			t.ID = uuid.NewString()
		}
		if t.CreatedAt.IsZero() {
			t.CreatedAt = time.Now().UTC()
		}
		_, err := s.pool.Exec(ctx,
			`INSERT INTO chat_turns (id, session_id, role, content, created_at)
			 VALUES ($1, $2, $3, $4, $5)`,
			t.ID, sessionID, t.Role, t.Content, t.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("append turn: %w", err)
		}
	}
	return nil
}

func (s *PostgresStore) RecentTurns(ctx context.Context, sessionID string, limit int) ([]TurnRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.pool.Query(ctx,
		`SELECT id, session_id, role, content, created_at
		 FROM chat_turns WHERE session_id=$1 ORDER BY created_at DESC LIMIT $2`,
		sessionID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query recent turns: %w", err)
	}
	defer rows.Close()

	items := make([]TurnRecord, 0, limit)
	for rows.Next() {
		var r TurnRecord
		if err := rows.Scan(&r.ID, &r.SessionID, &r.Role, &r.Content, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan turn row: %w", err)
		}
		items = append(items, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate turn rows: %w", err)
	}

	// Reverse into chronological order for prompt coherence.
	for i, j := 0, len(items)-1; i < j; i, j = i+1, j-1 {
		items[i], items[j] = items[j], items[i]
	}

	return items, nil
}

func (s *PostgresStore) LeadState(ctx context.Context, sessionID string) (LeadState, error) {
	var (
		st       LeadState
		leadRaw  []byte
		slotsRaw []byte
	)
	err := s.pool.QueryRow(ctx,
		`SELECT lead, lead_captured, meeting_scheduled, proposed_times, confirmed_time, invite_reference, updated_at
		 FROM lead_sessions WHERE session_id=$1`,
		sessionID,
	).Scan(&leadRaw, &st.LeadCaptured, &st.MeetingScheduled, &slotsRaw, &st.ConfirmedTime, &st.InviteReference, &st.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return LeadState{Lead: map[string]string{}}, nil
		}
		return LeadState{}, fmt.Errorf("query lead state: %w", err)
	}

	st.Lead = map[string]string{}
	if len(leadRaw) > 0 {
		if err := json.Unmarshal(leadRaw, &st.Lead); err != nil {
			return LeadState{}, fmt.Errorf("decode lead fields: %w", err)
		}
	}
	if len(slotsRaw) > 0 {
		if err := json.Unmarshal(slotsRaw, &st.ProposedTimes); err != nil {
			return LeadState{}, fmt.Errorf("decode proposed times: %w", err)
		}
	}
	return st, nil
}

func (s *PostgresStore) SaveLeadState(ctx context.Context, sessionID string, state LeadState) error {
	if state.Lead == nil {
		state.Lead = map[string]string{}
	}
	if state.ProposedTimes == nil {
		state.ProposedTimes = []string{}
	}
	leadRaw, err := json.Marshal(state.Lead)
	if err != nil {
		return fmt.Errorf("encode lead fields: %w", err)
	}
	slotsRaw, err := json.Marshal(state.ProposedTimes)
	if err != nil {
		return fmt.Errorf("encode proposed times: %w", err)
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO lead_sessions (session_id, lead, lead_captured, meeting_scheduled, proposed_times, confirmed_time, invite_reference, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, now())
		 ON CONFLICT (session_id) DO UPDATE SET
			lead = EXCLUDED.lead,
			lead_captured = EXCLUDED.lead_captured,
			meeting_scheduled = EXCLUDED.meeting_scheduled,
			proposed_times = EXCLUDED.proposed_times,
			confirmed_time = EXCLUDED.confirmed_time,
			invite_reference = EXCLUDED.invite_reference,
			updated_at = now()`,
		sessionID, leadRaw, state.LeadCaptured, state.MeetingScheduled, slotsRaw, state.ConfirmedTime, state.InviteReference,
	)
	if err != nil {
		return fmt.Errorf("save lead state: %w", err)
	}
	return nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
