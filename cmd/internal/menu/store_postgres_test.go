package menu

import (
	"context"
	"errors"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgresStore_RowsForRole(t *testing.T) {
	tests := []struct {
		name      string
		setupMock func(mock pgxmock.PgxPoolIface)
		want      []Row
		wantErr   bool
	}{
		{
			name: "rows with duplicates and null path",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				rows := pgxmock.NewRows([]string{"id", "name", "text", "icon", "path", "sort_order"}).
					AddRow(1, "Dashboard", "Home", "home", strPtr("/dashboard"), 1).
					AddRow(2, "Courses", "Courses", "book", nil, 2).
					AddRow(2, "Courses", "Courses", "book", nil, 2)
				mock.ExpectQuery(`FROM lms.role_menus rm`).
					WithArgs("Student").
					WillReturnRows(rows)
			},
			want: []Row{
				{MainMenuID: 1, MainMenuName: "Dashboard", Text: "Home", Icon: "home", Path: strPtr("/dashboard"), Order: 1},
				{MainMenuID: 2, MainMenuName: "Courses", Text: "Courses", Icon: "book", Order: 2},
				{MainMenuID: 2, MainMenuName: "Courses", Text: "Courses", Icon: "book", Order: 2},
			},
		},
		{
			name: "role without menus",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`FROM lms.role_menus rm`).
					WithArgs("Student").
					WillReturnRows(pgxmock.NewRows([]string{"id", "name", "text", "icon", "path", "sort_order"}))
			},
			want: nil,
		},
		{
			name: "query error",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`FROM lms.role_menus rm`).
					WithArgs("Student").
					WillReturnError(errors.New("connection refused"))
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock, err := pgxmock.NewPool()
			require.NoError(t, err)
			defer mock.Close()

			tt.setupMock(mock)

			got, err := NewPostgresStore(mock).RowsForRole(context.Background(), "Student")
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "connection refused")
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.want, got)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}
