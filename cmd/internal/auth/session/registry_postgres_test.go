package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgresRegistry_Supersede(t *testing.T) {
	now := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	next := UserSession{UserID: "u-1", TokenHash: "new", IssuedAt: now, ExpiresAt: now.Add(240 * time.Hour)}

	tests := []struct {
		name         string
		setupMock    func(mock pgxmock.PgxPoolIface)
		wantPrev     UserSession
		wantReplaced bool
		wantErr      error
	}{
		{
			name: "fresh slot",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectBegin()
				mock.ExpectExec(`INSERT INTO lms.user_sessions`).
					WithArgs("u-1", "new", pgxmock.AnyArg(), pgxmock.AnyArg()).
					WillReturnResult(pgxmock.NewResult("INSERT", 1))
				mock.ExpectCommit()
			},
		},
		{
			name: "existing slot is replaced",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectBegin()
				mock.ExpectExec(`INSERT INTO lms.user_sessions`).
					WithArgs("u-1", "new", pgxmock.AnyArg(), pgxmock.AnyArg()).
					WillReturnResult(pgxmock.NewResult("INSERT", 0))
				mock.ExpectQuery(`SELECT token_hash, issued_at, expires_at\s+FROM lms.user_sessions\s+WHERE user_id = \$1\s+FOR UPDATE`).
					WithArgs("u-1").
					WillReturnRows(pgxmock.NewRows([]string{"token_hash", "issued_at", "expires_at"}).
						AddRow("old", now.Add(-time.Hour), now.Add(239*time.Hour)))
				mock.ExpectExec(`UPDATE lms.user_sessions`).
					WithArgs("u-1", "new", pgxmock.AnyArg(), pgxmock.AnyArg()).
					WillReturnResult(pgxmock.NewResult("UPDATE", 1))
				mock.ExpectCommit()
			},
			wantPrev:     UserSession{UserID: "u-1", TokenHash: "old", IssuedAt: now.Add(-time.Hour), ExpiresAt: now.Add(239 * time.Hour)},
			wantReplaced: true,
		},
		{
			name: "unknown user",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectBegin()
				mock.ExpectExec(`INSERT INTO lms.user_sessions`).
					WithArgs("u-1", "new", pgxmock.AnyArg(), pgxmock.AnyArg()).
					WillReturnError(&pgconn.PgError{Code: pgerrcode.ForeignKeyViolation})
				mock.ExpectRollback()
			},
			wantErr: ErrUnknownUser,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock, err := pgxmock.NewPool()
			require.NoError(t, err)
			defer mock.Close()

			tt.setupMock(mock)

			r := NewPostgresRegistry(mock)
			prev, replaced, err := r.Supersede(context.Background(), next)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.wantReplaced, replaced)
				assert.Equal(t, tt.wantPrev, prev)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestPostgresRegistry_SupersedeBeginFails(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin().WillReturnError(errors.New("pool exhausted"))

	_, _, err = NewPostgresRegistry(mock).Supersede(context.Background(), UserSession{UserID: "u-1", TokenHash: "h"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pool exhausted")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRegistry_Current(t *testing.T) {
	now := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery(`SELECT token_hash, issued_at, expires_at\s+FROM lms.user_sessions`).
		WithArgs("u-1").
		WillReturnRows(pgxmock.NewRows([]string{"token_hash", "issued_at", "expires_at"}).
			AddRow("h", now, now.Add(time.Hour)))
	mock.ExpectQuery(`SELECT token_hash, issued_at, expires_at\s+FROM lms.user_sessions`).
		WithArgs("u-2").
		WillReturnError(pgx.ErrNoRows)

	r := NewPostgresRegistry(mock)

	cur, err := r.Current(context.Background(), "u-1")
	require.NoError(t, err)
	assert.Equal(t, UserSession{UserID: "u-1", TokenHash: "h", IssuedAt: now, ExpiresAt: now.Add(time.Hour)}, cur)

	_, err = r.Current(context.Background(), "u-2")
	assert.ErrorIs(t, err, ErrNoSession)

	assert.NoError(t, mock.ExpectationsWereMet())
}
