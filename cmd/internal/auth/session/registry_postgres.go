package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// pgxPool is the subset of *pgxpool.Pool used by PostgresRegistry.
type pgxPool interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresRegistry implements Registry over lms.user_sessions (one row per account).
type PostgresRegistry struct {
	pool pgxPool
}

// NewPostgresRegistry creates a Postgres-backed registry.
func NewPostgresRegistry(pool pgxPool) *PostgresRegistry {
	return &PostgresRegistry{pool: pool}
}

// Supersede implements Registry.
//
// A fresh account gets its row from the INSERT. Otherwise the INSERT is a no-op,
// the row is locked with FOR UPDATE, and the previous values are read before the
// UPDATE, all inside one transaction. Concurrent first inserts for the same user
// serialize on the primary key, so only one of them sees an empty slot.
func (r *PostgresRegistry) Supersede(ctx context.Context, next UserSession) (UserSession, bool, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return UserSession{}, false, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx, `
		INSERT INTO lms.user_sessions (user_id, token_hash, issued_at, expires_at, updated_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (user_id) DO NOTHING
	`, next.UserID, next.TokenHash, next.IssuedAt, next.ExpiresAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.ForeignKeyViolation {
			return UserSession{}, false, ErrUnknownUser
		}
		return UserSession{}, false, fmt.Errorf("session: insert slot: %w", err)
	}

	if tag.RowsAffected() == 1 {
		if err := tx.Commit(ctx); err != nil {
			return UserSession{}, false, err
		}
		return UserSession{}, false, nil
	}

	prev := UserSession{UserID: next.UserID}
	err = tx.QueryRow(ctx, `
		SELECT token_hash, issued_at, expires_at
		FROM lms.user_sessions
		WHERE user_id = $1
		FOR UPDATE
	`, next.UserID).Scan(&prev.TokenHash, &prev.IssuedAt, &prev.ExpiresAt)
	if err != nil {
		return UserSession{}, false, fmt.Errorf("session: lock slot: %w", err)
	}

	if _, err := tx.Exec(ctx, `
		UPDATE lms.user_sessions
		SET token_hash = $2, issued_at = $3, expires_at = $4, updated_at = now()
		WHERE user_id = $1
	`, next.UserID, next.TokenHash, next.IssuedAt, next.ExpiresAt); err != nil {
		return UserSession{}, false, fmt.Errorf("session: replace slot: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return UserSession{}, false, err
	}
	return prev, true, nil
}

// Current implements Registry.
func (r *PostgresRegistry) Current(ctx context.Context, userID string) (UserSession, error) {
	cur := UserSession{UserID: userID}
	err := r.pool.QueryRow(ctx, `
		SELECT token_hash, issued_at, expires_at
		FROM lms.user_sessions
		WHERE user_id = $1
	`, userID).Scan(&cur.TokenHash, &cur.IssuedAt, &cur.ExpiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return UserSession{}, ErrNoSession
	}
	if err != nil {
		return UserSession{}, err
	}
	return cur, nil
}
