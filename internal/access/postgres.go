package access

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore persists entitlement records in PostgreSQL. Every mutation is
// a single upsert statement touching only its own column, so concurrent admin
// actions on the same user cannot clobber each other's fields.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, strings.TrimSpace(databaseURL))
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := initAccessSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	return &PostgresStore{pool: pool}, nil
}

func initAccessSchema(ctx context.Context, pool *pgxpool.Pool) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS access (
			user_id BIGINT PRIMARY KEY,
			is_free BOOLEAN NOT NULL DEFAULT FALSE,
			is_paid BOOLEAN NOT NULL DEFAULT FALSE,
			is_blocked BOOLEAN NOT NULL DEFAULT FALSE,
			free_until BIGINT NOT NULL DEFAULT 0,
			blocked_until BIGINT NOT NULL DEFAULT 0,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);`,
	}
	for _, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("init access schema failed on %q: %w", stmt, err)
		}
	}
	return nil
}

// Get returns the stored record, or the default-deny record when the row is
// absent or the read fails. Read failures are logged, never propagated: an
// end-user request must not fail because of a storage hiccup.
func (s *PostgresStore) Get(ctx context.Context, userID int64) Record {
	row := s.pool.QueryRow(ctx,
		`SELECT user_id, is_free, is_paid, is_blocked, free_until, blocked_until, updated_at
		   FROM access WHERE user_id=$1`,
		userID,
	)
	var r Record
	if err := row.Scan(&r.UserID, &r.IsFree, &r.IsPaid, &r.IsBlocked, &r.FreeUntil, &r.BlockedUntil, &r.UpdatedAt); err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			log.Printf("access: read user %d failed, denying: %v", userID, err)
		}
		return Record{UserID: userID}
	}
	return r
}

// SetFree grants or revokes the open-ended free flag. Revoking also clears
// any pending expiry.
func (s *PostgresStore) SetFree(ctx context.Context, userID int64, enabled bool) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO access (user_id, is_free, free_until, updated_at) VALUES ($1, $2, 0, $3)
		 ON CONFLICT (user_id) DO UPDATE SET is_free=EXCLUDED.is_free, free_until=0, updated_at=EXCLUDED.updated_at`,
		userID, enabled, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("set free: %w", err)
	}
	return nil
}

func (s *PostgresStore) SetPaid(ctx context.Context, userID int64, enabled bool) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO access (user_id, is_paid, updated_at) VALUES ($1, $2, $3)
		 ON CONFLICT (user_id) DO UPDATE SET is_paid=EXCLUDED.is_paid, updated_at=EXCLUDED.updated_at`,
		userID, enabled, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("set paid: %w", err)
	}
	return nil
}

func (s *PostgresStore) SetBlocked(ctx context.Context, userID int64, enabled bool) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO access (user_id, is_blocked, blocked_until, updated_at) VALUES ($1, $2, 0, $3)
		 ON CONFLICT (user_id) DO UPDATE SET is_blocked=EXCLUDED.is_blocked, blocked_until=0, updated_at=EXCLUDED.updated_at`,
		userID, enabled, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("set blocked: %w", err)
	}
	return nil
}

// SetFreeUntil grants free access until the given epoch second. Forever (-1)
// means the grant never lapses.
func (s *PostgresStore) SetFreeUntil(ctx context.Context, userID int64, until int64) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO access (user_id, is_free, free_until, updated_at) VALUES ($1, TRUE, $2, $3)
		 ON CONFLICT (user_id) DO UPDATE SET is_free=TRUE, free_until=EXCLUDED.free_until, updated_at=EXCLUDED.updated_at`,
		userID, until, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("set free until: %w", err)
	}
	return nil
}

func (s *PostgresStore) SetBlockedUntil(ctx context.Context, userID int64, until int64) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO access (user_id, is_blocked, blocked_until, updated_at) VALUES ($1, TRUE, $2, $3)
		 ON CONFLICT (user_id) DO UPDATE SET is_blocked=TRUE, blocked_until=EXCLUDED.blocked_until, updated_at=EXCLUDED.updated_at`,
		userID, until, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("set blocked until: %w", err)
	}
	return nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
