// Package menu resolves the navigation menus a role may see after login.
package menu

import (
	"cmp"
	"context"
	"slices"
)

// Row is one raw line from the menu lookup. A main menu repeats once per
// sub-menu it owns, so the same MainMenuID can appear several times.
type Row struct {
	MainMenuID   int
	MainMenuName string
	Text         string
	Icon         string
	Path         *string
	Order        int
}

// Entry is one main menu as returned to clients.
type Entry struct {
	MenuID   int     `json:"menuId"`
	MenuName string  `json:"menuName"`
	Text     string  `json:"text"`
	Icon     string  `json:"icon"`
	Path     *string `json:"path"`
	Order    int     `json:"order"`
}

// Store returns the raw menu rows granted to a role.
type Store interface {
	RowsForRole(ctx context.Context, role string) ([]Row, error)
}

// Dedupe keeps the first row seen for each main menu id and orders the
// result by Order. Ties keep their first-seen order.
func Dedupe(rows []Row) []Entry {
	seen := make(map[int]struct{}, len(rows))
	out := make([]Entry, 0, len(rows))

	for _, r := range rows {
		if _, dup := seen[r.MainMenuID]; dup {
			continue
		}
		seen[r.MainMenuID] = struct{}{}
		out = append(out, Entry{
			MenuID:   r.MainMenuID,
			MenuName: r.MainMenuName,
			Text:     r.Text,
			Icon:     r.Icon,
			Path:     r.Path,
			Order:    r.Order,
		})
	}

	slices.SortStableFunc(out, func(a, b Entry) int { return cmp.Compare(a.Order, b.Order) })
	return out
}
