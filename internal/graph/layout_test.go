package graph

import (
	"reflect"
	"testing"
)

func TestLayoutLinear(t *testing.T) {
	t.Parallel()

	rows := Layout([]Node{
		{ID: "c", Parents: []string{"b"}},
		{ID: "b", Parents: []string{"a"}},
		{ID: "a"},
	})
	want := []Row{
		{Column: 0, HasChild: false, Paths: []Path{{0, 0, Straight}}},
		{Column: 0, HasChild: true, Paths: []Path{{0, 0, Straight}}},
		{Column: 0, HasChild: true},
	}
	if !reflect.DeepEqual(rows, want) {
		t.Fatalf("Layout() = %+v, want %+v", rows, want)
	}
}

func TestLayoutMergeAndFork(t *testing.T) {
	t.Parallel()

	// m merges l and r, which both come from base.
	rows := Layout([]Node{
		{ID: "m", Parents: []string{"l", "r"}},
		{ID: "r", Parents: []string{"base"}},
		{ID: "l", Parents: []string{"base"}},
		{ID: "base"},
	})
	want := []Row{
		{Column: 0, Paths: []Path{{0, 0, Straight}, {0, 1, Fork}}},
		{Column: 1, HasChild: true, Paths: []Path{{0, 0, Straight}, {1, 1, Straight}}},
		{Column: 0, HasChild: true, Paths: []Path{{1, 1, Straight}, {0, 1, Merge}}},
		{Column: 1, HasChild: true},
	}
	if !reflect.DeepEqual(rows, want) {
		t.Fatalf("Layout() = %+v, want %+v", rows, want)
	}
	if got := Width(rows); got != 2 {
		t.Fatalf("Width() = %d, want 2", got)
	}
}

func TestLayoutSeparateHeadsReuseFreeLanes(t *testing.T) {
	t.Parallel()

	rows := Layout([]Node{
		{ID: "x", Parents: []string{"root"}},
		{ID: "y", Parents: []string{"root"}},
		{ID: "root"},
		{ID: "orphan"},
	})
	cols := make([]int, len(rows))
	for i, r := range rows {
		cols[i] = r.Column
	}
	if want := []int{0, 1, 0, 0}; !reflect.DeepEqual(cols, want) {
		t.Fatalf("columns = %v, want %v", cols, want)
	}
	if rows[3].HasChild {
		t.Fatalf("orphan HasChild = true, want false")
	}
	if want := []Path{{0, 0, Straight}, {1, 0, Merge}}; !reflect.DeepEqual(rows[1].Paths, want) {
		t.Fatalf("y paths = %+v, want %+v", rows[1].Paths, want)
	}
}

func TestRender(t *testing.T) {
	t.Parallel()

	tests := []struct {
		row  Row
		want string
	}{
		{Row{Column: 0}, "@"},
		{Row{Column: 0, Paths: []Path{{0, 0, Straight}, {0, 1, Fork}}}, "@ ╮"},
		{Row{Column: 1, Paths: []Path{{0, 0, Straight}, {1, 1, Straight}}}, "│ @"},
		{Row{Column: 1, Paths: []Path{{1, 0, Merge}}}, "╭ @"},
		{Row{Column: 0, Paths: []Path{{2, 2, Straight}}}, "@   │"},
	}
	for _, tc := range tests {
		if got := Render(tc.row, "@"); got != tc.want {
			t.Fatalf("Render(%+v) = %q, want %q", tc.row, got, tc.want)
		}
	}
}

func TestPathKindString(t *testing.T) {
	t.Parallel()

	for kind, want := range map[PathKind]string{Straight: "straight", Merge: "merge", Fork: "fork", PathKind(9): "unknown"} {
		if got := kind.String(); got != want {
			t.Fatalf("PathKind(%d).String() = %q, want %q", kind, got, want)
		}
	}
}
