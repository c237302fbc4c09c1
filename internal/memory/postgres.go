package memory

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore persists conversation turns in PostgreSQL.
type PostgresStore struct {
	pool      *pgxpool.Pool
	retention int
}

func NewPostgresStore(ctx context.Context, databaseURL string, retention int) (*PostgresStore, error) {
	if retention <= 0 {
		retention = 48
	}
	pool, err := pgxpool.New(ctx, strings.TrimSpace(databaseURL))
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := initMemorySchema(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	return &PostgresStore{pool: pool, retention: retention}, nil
}

func initMemorySchema(ctx context.Context, pool *pgxpool.Pool) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS chat_turns (
			seq BIGSERIAL PRIMARY KEY,
			user_id BIGINT NOT NULL,
			role TEXT NOT NULL,
			text TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);`,
		`CREATE INDEX IF NOT EXISTS idx_chat_turns_user_seq ON chat_turns (user_id, seq DESC);`,
	}
	for _, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("init memory schema failed on %q: %w", stmt, err)
		}
	}
	return nil
}

// Append inserts a turn and trims the user's excess history in one
// transaction, so concurrent appends for the same user cannot leave the log
// over the retention cap.
func (s *PostgresStore) Append(ctx context.Context, userID int64, role, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx,
		`INSERT INTO chat_turns (user_id, role, text, created_at) VALUES ($1, $2, $3, $4)`,
		userID, role, text, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert turn: %w", err)
	}

	_, err = tx.Exec(ctx,
		`DELETE FROM chat_turns
		  WHERE user_id=$1 AND seq NOT IN (
			SELECT seq FROM chat_turns WHERE user_id=$1 ORDER BY seq DESC LIMIT $2
		  )`,
		userID, s.retention,
	)
	if err != nil {
		return fmt.Errorf("trim turns: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (s *PostgresStore) Recent(ctx context.Context, userID int64, limit int) ([]Turn, error) {
	if limit <= 0 {
		limit = 24
	}

	rows, err := s.pool.Query(ctx,
		`SELECT seq, user_id, role, text, created_at
		   FROM chat_turns WHERE user_id=$1 ORDER BY seq DESC LIMIT $2`,
		userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query recent turns: %w", err)
	}
	defer rows.Close()

	items := make([]Turn, 0, limit)
	for rows.Next() {
		var t Turn
		if err := rows.Scan(&t.Seq, &t.UserID, &t.Role, &t.Text, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan turn row: %w", err)
		}
		items = append(items, t)
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

func (s *PostgresStore) Clear(ctx context.Context, userID int64) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM chat_turns WHERE user_id=$1`, userID); err != nil {
		return fmt.Errorf("clear turns: %w", err)
	}
	return nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
