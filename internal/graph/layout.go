package graph

import "slices"

type PathKind int

const (
	Straight PathKind = iota
	// Merge connects a commit to a parent that already owns a lane.
	Merge
	// Fork opens a new lane for a parent.
	Fork
)

func (k PathKind) String() string {
	switch k {
	case Straight:
		return "straight"
	case Merge:
		return "merge"
	case Fork:
		return "fork"
	default:
		return "unknown"
	}
}

type Path struct {
	From int
	To   int
	Kind PathKind
}

// Node is the part of a commit the layout needs.
type Node struct {
	ID      string
	Parents []string
}

type Row struct {
	Column int
	// HasChild is set when a row above already expected this commit.
	HasChild bool
	Paths    []Path
}

// Layout assigns every node a lane. nodes must be ordered children first;
// the result has one row per node, in the same order.
func Layout(nodes []Node) []Row {
	rows := make([]Row, 0, len(nodes))
	// lanes[i] is the commit expected next in lane i, or "" when free.
	var lanes []string
	freeLane := func() int {
		if i := slices.Index(lanes, ""); i >= 0 {
			return i
		}
		lanes = append(lanes, "")
		return len(lanes) - 1
	}

	for _, n := range nodes {
		column := slices.Index(lanes, n.ID)
		hasChild := column >= 0
		if !hasChild {
			column = freeLane()
		}
		lanes[column] = ""

		var paths []Path
		for i, expected := range lanes {
			if expected != "" {
				paths = append(paths, Path{From: i, To: i, Kind: Straight})
			}
		}

		for i, parent := range n.Parents {
			if col := slices.Index(lanes, parent); col >= 0 {
				paths = append(paths, Path{From: column, To: col, Kind: Merge})
				continue
			}
			col := column
			if i > 0 || lanes[column] != "" {
				col = freeLane()
			}
			lanes[col] = parent
			kind := Fork
			if col == column {
				kind = Straight
			}
			paths = append(paths, Path{From: column, To: col, Kind: kind})
		}

		rows = append(rows, Row{Column: column, HasChild: hasChild, Paths: paths})
	}
	return rows
}

// Width is the number of lanes any row uses.
func Width(rows []Row) int {
	w := 0
	for _, r := range rows {
		w = max(w, r.Column+1)
		for _, p := range r.Paths {
			w = max(w, p.From+1, p.To+1)
		}
	}
	return w
}
