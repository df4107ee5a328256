package identity

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// pgxPool is the subset of *pgxpool.Pool used by PostgresStore.
type pgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore implements Store over the LMS schema.
//
// The pool is owned by the caller; this store never closes it.
// Tables: <schema>.users and <schema>.student_fees.
type PostgresStore struct {
	pool   pgxPool
	schema string
}

// PostgresOption configures the store.
type PostgresOption func(*PostgresStore) error

var pgIdentRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// WithSchema sets the Postgres schema (default "lms").
func WithSchema(schema string) PostgresOption {
	return func(s *PostgresStore) error {
		schema = strings.TrimSpace(schema)
		if !pgIdentRe.MatchString(schema) {
			return fmt.Errorf("identity: invalid schema identifier %q", schema)
		}
		s.schema = schema
		return nil
	}
}

// NewPostgresStore constructs a PostgresStore.
func NewPostgresStore(pool pgxPool, opts ...PostgresOption) (*PostgresStore, error) {
	if pool == nil {
		return nil, errors.New("identity: nil pool")
	}
	st := &PostgresStore{pool: pool, schema: "lms"}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(st); err != nil {
			return nil, err
		}
	}
	return st, nil
}

// LookupForLogin reads identity, credential hash, role and the overdue-fee flag
// with one statement, so the fee decision and the credential come from the same snapshot.
func (s *PostgresStore) LookupForLogin(ctx context.Context, username string) (Account, error) {
	const op = "identity.LookupForLogin"

	norm := NormalizeUsername(username)
	if norm == "" {
		return Account{}, invalid(op, "username is required")
	}

	users := pgIdent(s.schema, "users")
	fees := pgIdent(s.schema, "student_fees")

	var a Account
	err := s.pool.QueryRow(ctx, `
		SELECT
			u.id, u.username, COALESCE(u.display_name, u.username), u.password_hash, u.role,
			EXISTS (
				SELECT 1 FROM `+fees+` f
				WHERE f.user_id = u.id
				  AND f.paid_at IS NULL
				  AND f.due_date < CURRENT_DATE
			) AS has_overdue_fees
		FROM `+users+` u
		WHERE u.username_norm = $1
	`, norm).Scan(
		&a.UserID,
		&a.Username,
		&a.DisplayName,
		&a.PasswordHash,
		&a.Role,
		&a.HasOverdueFees,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Account{}, notFound(op, "user")
	}
	if err != nil {
		return Account{}, fmt.Errorf("%s: %w", op, err)
	}
	return a, nil
}

// CredentialHash returns the stored password hash for userID.
func (s *PostgresStore) CredentialHash(ctx context.Context, userID string) (string, error) {
	const op = "identity.CredentialHash"

	var hash string
	err := s.pool.QueryRow(ctx,
		`SELECT password_hash FROM `+pgIdent(s.schema, "users")+` WHERE id = $1`,
		userID,
	).Scan(&hash)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", notFound(op, "user")
	}
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return hash, nil
}

// UpdateCredentialHash replaces the stored password hash for userID.
func (s *PostgresStore) UpdateCredentialHash(ctx context.Context, userID, hash string) error {
	const op = "identity.UpdateCredentialHash"

	if strings.TrimSpace(hash) == "" {
		return invalid(op, "hash is required")
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE `+pgIdent(s.schema, "users")+` SET password_hash = $2, password_changed_at = now() WHERE id = $1`,
		userID, hash,
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if tag.RowsAffected() == 0 {
		return notFound(op, "user")
	}
	return nil
}

// Exists reports whether userID names an account.
func (s *PostgresStore) Exists(ctx context.Context, userID string) (bool, error) {
	var ok bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM `+pgIdent(s.schema, "users")+` WHERE id = $1)`,
		userID,
	).Scan(&ok)
	if err != nil {
		return false, fmt.Errorf("identity.Exists: %w", err)
	}
	return ok, nil
}

// pgIdent safely quotes a schema-qualified identifier: "schema"."name".
func pgIdent(schema, name string) string {
	return pgx.Identifier{schema, name}.Sanitize()
}
