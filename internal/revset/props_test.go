package revset

import (
	"fmt"
	"testing"

	"pgregory.net/rapid"

	"github.com/thiagokokada/vizjj-go/internal/git"
)

var (
	atoms = []string{
		"main", "feature", "topic", "tip", "v1", "@", "main@origin",
		"root()", "all()", "none()", "visible_heads()", "merges()", "conflicts()",
		"bookmarks()", "tracked_remote_bookmarks()", "files(src)",
	}
	unaryForms  = []string{"::(%s)", "(%s)::", "(%s)-", "(%s)+", "heads(%s)", "roots(%s)", "~(%s)", "latest(%s, 2)", "ancestors(%s, 2)"}
	binaryForms = []string{"(%s) | (%s)", "(%s) & (%s)", "(%s) ~ (%s)", "(%s)..(%s)", "(%s)::(%s)"}
)

func genExpr(t *rapid.T, depth int) string {
	if depth == 0 || rapid.IntRange(0, 2).Draw(t, "leaf") == 0 {
		return rapid.SampledFrom(atoms).Draw(t, "atom")
	}
	if rapid.Bool().Draw(t, "unary") {
		return fmt.Sprintf(rapid.SampledFrom(unaryForms).Draw(t, "op"), genExpr(t, depth-1))
	}
	return fmt.Sprintf(rapid.SampledFrom(binaryForms).Draw(t, "op"), genExpr(t, depth-1), genExpr(t, depth-1))
}

func collectIDs(t *rapid.T, f *fixture, text string) []git.CommitID {
	expr, err := Parse(text, f.ctx)
	if err != nil {
		t.Fatalf("Parse(%q) error = %v", text, err)
	}
	rs, err := expr.Evaluate(f.repo)
	if err != nil {
		t.Fatalf("Evaluate(%q) error = %v", text, err)
	}
	var out []git.CommitID
	for id, err := range rs.Iter() {
		if err != nil {
			t.Fatalf("Iter(%q) error = %v", text, err)
		}
		out = append(out, id)
	}
	return out
}

func idSet(ids []git.CommitID) map[git.CommitID]bool {
	out := make(map[git.CommitID]bool, len(ids))
	for _, id := range ids {
		out[id] = true
	}
	return out
}

func TestEvaluateOrderAndMembershipProperties(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ix := f.repo.Index()

	rapid.Check(t, func(t *rapid.T) {
		text := genExpr(t, 3)
		ids := collectIDs(t, f, text)

		last := ix.Len()
		for _, id := range ids {
			pos, ok := ix.Position(id)
			if !ok {
				t.Fatalf("%q yielded unindexed commit %s", text, id)
			}
			if pos >= last {
				t.Fatalf("%q yielded position %d after %d", text, pos, last)
			}
			last = pos
		}

		expr, err := Parse(text, f.ctx)
		if err != nil {
			t.Fatalf("Parse(%q) error = %v", text, err)
		}
		rs, err := expr.Evaluate(f.repo)
		if err != nil {
			t.Fatalf("Evaluate(%q) error = %v", text, err)
		}
		contains := rs.ContainingFn()
		members := idSet(ids)
		for pos := range ix.Len() {
			id := ix.ID(pos)
			got, err := contains(id)
			if err != nil {
				t.Fatalf("contains(%s) error = %v", id, err)
			}
			if got != members[id] {
				t.Fatalf("%q: contains(%s) = %v, iteration says %v", text, id, got, members[id])
			}
		}
	})
}

func TestEvaluateSetAlgebraProperties(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ix := f.repo.Index()

	rapid.Check(t, func(t *rapid.T) {
		x := genExpr(t, 2)
		y := genExpr(t, 2)
		xs := idSet(collectIDs(t, f, x))
		ys := idSet(collectIDs(t, f, y))
		union := idSet(collectIDs(t, f, fmt.Sprintf("(%s) | (%s)", x, y)))
		inter := idSet(collectIDs(t, f, fmt.Sprintf("(%s) & (%s)", x, y)))
		diff := idSet(collectIDs(t, f, fmt.Sprintf("(%s) ~ (%s)", x, y)))
		anc := idSet(collectIDs(t, f, fmt.Sprintf("::(%s)", x)))

		for pos := range ix.Len() {
			id := ix.ID(pos)
			if union[id] != (xs[id] || ys[id]) {
				t.Fatalf("union membership of %s wrong for %q, %q", id, x, y)
			}
			if inter[id] != (xs[id] && ys[id]) {
				t.Fatalf("intersection membership of %s wrong for %q, %q", id, x, y)
			}
			if diff[id] != (xs[id] && !ys[id]) {
				t.Fatalf("difference membership of %s wrong for %q, %q", id, x, y)
			}
			if xs[id] && !anc[id] {
				t.Fatalf("%s in %q but not in its ancestors", id, x)
			}
		}
	})
}
