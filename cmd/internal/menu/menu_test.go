package menu

import (
	"math"
	"reflect"
	"testing"
)

func strPtr(s string) *string { return &s }

func TestDedupe(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		rows []Row
		want []int
	}{
		{name: "empty", rows: nil, want: []int{}},
		{
			name: "first row wins per menu",
			rows: []Row{
				{MainMenuID: 1, Text: "first", Order: 2},
				{MainMenuID: 1, Text: "second", Order: 2},
				{MainMenuID: 2, Order: 1},
			},
			want: []int{2, 1},
		},
		{
			name: "stable on equal order",
			rows: []Row{
				{MainMenuID: 7, Order: 1},
				{MainMenuID: 3, Order: 1},
				{MainMenuID: 5, Order: 0},
				{MainMenuID: 3, Order: 9},
			},
			want: []int{5, 7, 3},
		},
		{
			name: "extreme orders",
			rows: []Row{
				{MainMenuID: 1, Order: math.MaxInt},
				{MainMenuID: 2, Order: math.MinInt},
				{MainMenuID: 3, Order: 0},
			},
			want: []int{2, 3, 1},
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := Dedupe(tc.rows)
			ids := make([]int, 0, len(got))
			for _, e := range got {
				ids = append(ids, e.MenuID)
			}
			if !reflect.DeepEqual(ids, tc.want) {
				t.Fatalf("Dedupe ids=%v want %v", ids, tc.want)
			}
		})
	}
}

func TestDedupe_KeepsFirstRowFields(t *testing.T) {
	t.Parallel()

	got := Dedupe([]Row{
		{MainMenuID: 1, MainMenuName: "Courses", Text: "first", Icon: "book", Path: strPtr("/courses"), Order: 1},
		{MainMenuID: 1, MainMenuName: "Courses", Text: "second", Icon: "x", Path: nil, Order: 1},
	})
	if len(got) != 1 {
		t.Fatalf("expected one entry, got %d", len(got))
	}
	e := got[0]
	if e.Text != "first" || e.Icon != "book" || e.Path == nil || *e.Path != "/courses" {
		t.Fatalf("unexpected entry: %+v", e)
	}
}
