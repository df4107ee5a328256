package menu

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

type pgxQuerier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// PostgresStore reads menus from lms.role_menus, lms.main_menus and lms.sub_menus.
type PostgresStore struct {
	pool pgxQuerier
}

// NewPostgresStore creates a Postgres-backed menu store.
func NewPostgresStore(pool pgxQuerier) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// RowsForRole implements Store. Main menus repeat once per sub-menu.
func (s *PostgresStore) RowsForRole(ctx context.Context, role string) ([]Row, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT mm.id, mm.name, COALESCE(mm.text, ''), COALESCE(mm.icon, ''), mm.path, COALESCE(mm.sort_order, 0)
		FROM lms.role_menus rm
		JOIN lms.main_menus mm ON mm.id = rm.main_menu_id
		LEFT JOIN lms.sub_menus sm ON sm.main_menu_id = mm.id
		WHERE rm.role = $1
		ORDER BY mm.sort_order, mm.id, sm.sort_order
	`, role)
	if err != nil {
		return nil, fmt.Errorf("menu: query rows for role: %w", err)
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		var r Row
		if err := rows.Scan(&r.MainMenuID, &r.MainMenuName, &r.Text, &r.Icon, &r.Path, &r.Order); err != nil {
			return nil, fmt.Errorf("menu: scan row: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("menu: iterate rows: %w", err)
	}
	return out, nil
}
