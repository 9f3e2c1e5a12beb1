package revset

import (
	"fmt"
	"iter"
	"slices"
	"sync"

	"github.com/thiagokokada/vizjj-go/internal/git"
)

// posSet is a set of index positions. positions yields them in descending
// order, which puts children before their parents.
type posSet interface {
	positions() iter.Seq2[int, error]
	has(pos int) (bool, error)
}

// eagerSet is a fully materialized set.
type eagerSet struct {
	desc   []int
	member []bool
}

func newEagerSet(size int, positions []int) *eagerSet {
	s := &eagerSet{member: make([]bool, size)}
	for _, pos := range positions {
		if !s.member[pos] {
			s.member[pos] = true
			s.desc = append(s.desc, pos)
		}
	}
	slices.SortFunc(s.desc, func(a, b int) int { return b - a })
	return s
}

// eagerFromMarks builds a set from a membership bitmap.
func eagerFromMarks(marks []bool) *eagerSet {
	s := &eagerSet{member: marks}
	for pos := len(marks) - 1; pos >= 0; pos-- {
		if marks[pos] {
			s.desc = append(s.desc, pos)
		}
	}
	return s
}

func (s *eagerSet) positions() iter.Seq2[int, error] {
	return func(yield func(int, error) bool) {
		for _, pos := range s.desc {
			if !yield(pos, nil) {
				return
			}
		}
	}
}

func (s *eagerSet) has(pos int) (bool, error) { return s.member[pos], nil }

type allSet struct{ size int }

func (s allSet) positions() iter.Seq2[int, error] {
	return func(yield func(int, error) bool) {
		for pos := s.size - 1; pos >= 0; pos-- {
			if !yield(pos, nil) {
				return
			}
		}
	}
}

func (allSet) has(int) (bool, error) { return true, nil }

// filterSet is the subset of candidates matching pred. It is evaluated
// lazily so predicates only load the commits that are actually visited.
type filterSet struct {
	repo       *git.Repo
	candidates posSet
	pred       predicate
}

func (s *filterSet) positions() iter.Seq2[int, error] {
	return func(yield func(int, error) bool) {
		for pos, err := range s.candidates.positions() {
			if err != nil {
				yield(0, err)
				return
			}
			ok, err := s.pred.match(s.repo, pos)
			if err != nil {
				yield(0, err)
				return
			}
			if ok && !yield(pos, nil) {
				return
			}
		}
	}
}

func (s *filterSet) has(pos int) (bool, error) {
	ok, err := s.candidates.has(pos)
	if err != nil || !ok {
		return false, err
	}
	return s.pred.match(s.repo, pos)
}

type unionSet struct{ a, b posSet }

func (s *unionSet) positions() iter.Seq2[int, error] {
	return func(yield func(int, error) bool) {
		nextA, stopA := iter.Pull2(s.a.positions())
		defer stopA()
		nextB, stopB := iter.Pull2(s.b.positions())
		defer stopB()
		a, errA, okA := nextA()
		b, errB, okB := nextB()
		for okA || okB {
			if okA && errA != nil {
				yield(0, errA)
				return
			}
			if okB && errB != nil {
				yield(0, errB)
				return
			}
			var pos int
			switch {
			case okA && (!okB || a > b):
				pos = a
				a, errA, okA = nextA()
			case okB && (!okA || b > a):
				pos = b
				b, errB, okB = nextB()
			default:
				pos = a
				a, errA, okA = nextA()
				b, errB, okB = nextB()
			}
			if !yield(pos, nil) {
				return
			}
		}
	}
}

func (s *unionSet) has(pos int) (bool, error) {
	ok, err := s.a.has(pos)
	if err != nil || ok {
		return ok, err
	}
	return s.b.has(pos)
}

// intersectionSet walks a and checks membership in b; keep makes it a
// difference when false.
type intersectionSet struct {
	a, b posSet
	keep bool
}

func (s *intersectionSet) positions() iter.Seq2[int, error] {
	return func(yield func(int, error) bool) {
		for pos, err := range s.a.positions() {
			if err != nil {
				yield(0, err)
				return
			}
			in, err := s.b.has(pos)
			if err != nil {
				yield(0, err)
				return
			}
			if in == s.keep && !yield(pos, nil) {
				return
			}
		}
	}
}

func (s *intersectionSet) has(pos int) (bool, error) {
	ok, err := s.a.has(pos)
	if err != nil || !ok {
		return false, err
	}
	in, err := s.b.has(pos)
	if err != nil {
		return false, err
	}
	return in == s.keep, nil
}

type evaluator struct {
	repo *git.Repo
	ix   *git.Index
}

func (ev *evaluator) eval(e expr) (posSet, error) {
	size := ev.ix.Len()
	switch e := e.(type) {
	case noneExpr:
		return newEagerSet(size, nil), nil
	case allExpr:
		return allSet{size: size}, nil
	case visibleHeadsExpr:
		return newEagerSet(size, ev.ix.Heads()), nil
	case rootExpr:
		return newEagerSet(size, ev.ix.Roots()), nil
	case commitsExpr:
		positions := make([]int, 0, len(e.ids))
		for _, id := range e.ids {
			pos, ok := ev.ix.Position(id)
			if !ok {
				return nil, fmt.Errorf("%w: %s", git.ErrUnknownCommit, id)
			}
			positions = append(positions, pos)
		}
		return newEagerSet(size, positions), nil
	case filterExpr:
		return &filterSet{repo: ev.repo, candidates: allSet{size: size}, pred: e.pred}, nil
	case ancestorsExpr:
		heads, err := ev.evalPositions(e.heads)
		if err != nil {
			return nil, err
		}
		if e.gen.unbounded() {
			return eagerFromMarks(ev.ancestorMarks(heads, nil)), nil
		}
		return ev.walkGenerations(heads, e.gen, ev.ix.Parents), nil
	case descendantsExpr:
		roots, err := ev.evalPositions(e.roots)
		if err != nil {
			return nil, err
		}
		if e.gen.unbounded() {
			return eagerFromMarks(ev.descendantMarks(roots, nil)), nil
		}
		return ev.walkGenerations(roots, e.gen, ev.ix.Children), nil
	case rangeExpr:
		roots, err := ev.evalPositions(e.roots)
		if err != nil {
			return nil, err
		}
		heads, err := ev.evalPositions(e.heads)
		if err != nil {
			return nil, err
		}
		excluded := ev.ancestorMarks(roots, nil)
		included := ev.ancestorMarks(heads, nil)
		for pos, ex := range excluded {
			if ex {
				included[pos] = false
			}
		}
		return eagerFromMarks(included), nil
	case dagRangeExpr:
		roots, err := ev.evalPositions(e.roots)
		if err != nil {
			return nil, err
		}
		heads, err := ev.evalPositions(e.heads)
		if err != nil {
			return nil, err
		}
		return eagerFromMarks(ev.descendantMarks(roots, ev.ancestorMarks(heads, nil))), nil
	case headsExpr:
		xs, err := ev.evalPositions(e.x)
		if err != nil {
			return nil, err
		}
		var parents []int
		for _, pos := range xs {
			parents = append(parents, ev.ix.Parents(pos)...)
		}
		covered := ev.ancestorMarks(parents, nil)
		return ev.without(xs, covered), nil
	case rootsExpr:
		xs, err := ev.evalPositions(e.x)
		if err != nil {
			return nil, err
		}
		var children []int
		for _, pos := range xs {
			children = append(children, ev.ix.Children(pos)...)
		}
		covered := ev.descendantMarks(children, nil)
		return ev.without(xs, covered), nil
	case latestExpr:
		xs, err := ev.evalPositions(e.x)
		if err != nil {
			return nil, err
		}
		slices.SortStableFunc(xs, func(a, b int) int {
			if c := ev.ix.CommitterTime(b).Compare(ev.ix.CommitterTime(a)); c != 0 {
				return c
			}
			return b - a
		})
		return newEagerSet(size, xs[:min(e.n, len(xs))]), nil
	case unionExpr:
		a, b, err := ev.evalPair(e.a, e.b)
		if err != nil {
			return nil, err
		}
		return &unionSet{a: a, b: b}, nil
	case intersectionExpr:
		a, b, err := ev.evalPair(e.a, e.b)
		if err != nil {
			return nil, err
		}
		if isFilter(a) && !isFilter(b) {
			a, b = b, a
		}
		return &intersectionSet{a: a, b: b, keep: true}, nil
	case differenceExpr:
		a, b, err := ev.evalPair(e.a, e.b)
		if err != nil {
			return nil, err
		}
		return &intersectionSet{a: a, b: b, keep: false}, nil
	}
	return nil, fmt.Errorf("revset: cannot evaluate unresolved %T", e)
}

func (ev *evaluator) evalPair(a, b expr) (posSet, posSet, error) {
	sa, err := ev.eval(a)
	if err != nil {
		return nil, nil, err
	}
	sb, err := ev.eval(b)
	if err != nil {
		return nil, nil, err
	}
	return sa, sb, nil
}

// evalPositions evaluates e and collects its positions in descending order.
func (ev *evaluator) evalPositions(e expr) ([]int, error) {
	s, err := ev.eval(e)
	if err != nil {
		return nil, err
	}
	if eager, ok := s.(*eagerSet); ok {
		return slices.Clone(eager.desc), nil
	}
	var out []int
	for pos, err := range s.positions() {
		if err != nil {
			return nil, err
		}
		out = append(out, pos)
	}
	return out, nil
}

// ancestorMarks marks heads and all their ancestors. Parents have lower
// positions, so one descending sweep reaches every ancestor. When within is
// non-nil the walk never leaves it.
func (ev *evaluator) ancestorMarks(heads []int, within []bool) []bool {
	marks := make([]bool, ev.ix.Len())
	top := -1
	for _, pos := range heads {
		if within == nil || within[pos] {
			marks[pos] = true
			top = max(top, pos)
		}
	}
	for pos := top; pos >= 0; pos-- {
		if !marks[pos] {
			continue
		}
		for _, p := range ev.ix.Parents(pos) {
			if within == nil || within[p] {
				marks[p] = true
			}
		}
	}
	return marks
}

// descendantMarks is the mirror of ancestorMarks, sweeping upwards.
func (ev *evaluator) descendantMarks(roots []int, within []bool) []bool {
	size := ev.ix.Len()
	marks := make([]bool, size)
	bottom := size
	for _, pos := range roots {
		if within == nil || within[pos] {
			marks[pos] = true
			bottom = min(bottom, pos)
		}
	}
	for pos := bottom; pos < size; pos++ {
		if !marks[pos] {
			continue
		}
		for _, c := range ev.ix.Children(pos) {
			if within == nil || within[c] {
				marks[c] = true
			}
		}
	}
	return marks
}

// walkGenerations collects everything reachable through step in at least
// gen.lo and fewer than gen.hi steps.
func (ev *evaluator) walkGenerations(start []int, gen genRange, step func(int) []int) *eagerSet {
	size := ev.ix.Len()
	var found []int
	frontier := slices.Clone(start)
	for g := 0; g < gen.hi && len(frontier) > 0; g++ {
		if g >= gen.lo {
			found = append(found, frontier...)
		}
		seen := make(map[int]struct{}, len(frontier))
		var next []int
		for _, pos := range frontier {
			for _, n := range step(pos) {
				if _, ok := seen[n]; !ok {
					seen[n] = struct{}{}
					next = append(next, n)
				}
			}
		}
		frontier = next
	}
	return newEagerSet(size, found)
}

func (ev *evaluator) without(xs []int, covered []bool) *eagerSet {
	var keep []int
	for _, pos := range xs {
		if !covered[pos] {
			keep = append(keep, pos)
		}
	}
	return newEagerSet(ev.ix.Len(), keep)
}

func isFilter(s posSet) bool {
	_, ok := s.(*filterSet)
	return ok
}

// Revset is an evaluated expression.
type Revset struct {
	repo *git.Repo
	set  posSet
}

// Evaluate resolves the symbols of e against repo and evaluates it.
// Predicates are applied lazily while iterating.
func (e *Expression) Evaluate(repo *git.Repo) (*Revset, error) {
	r := &resolver{repo: repo, workspace: e.workspace}
	resolved, err := r.resolve(e.root)
	if err != nil {
		return nil, err
	}
	ev := &evaluator{repo: repo, ix: repo.Index()}
	set, err := ev.eval(resolved)
	if err != nil {
		return nil, err
	}
	return &Revset{repo: repo, set: set}, nil
}

// Iter yields the commits of the set, children before parents. Iteration
// stops after the first error.
func (r *Revset) Iter() iter.Seq2[git.CommitID, error] {
	ix := r.repo.Index()
	return func(yield func(git.CommitID, error) bool) {
		for pos, err := range r.set.positions() {
			if err != nil {
				yield(git.CommitID{}, err)
				return
			}
			if !yield(ix.ID(pos), nil) {
				return
			}
		}
	}
}

// ContainingFn returns a membership test. Results are memoized, so the
// function can be called repeatedly for the same commit.
func (r *Revset) ContainingFn() func(git.CommitID) (bool, error) {
	ix := r.repo.Index()
	var (
		mu    sync.Mutex
		cache = map[int]bool{}
	)
	return func(id git.CommitID) (bool, error) {
		pos, ok := ix.Position(id)
		if !ok {
			return false, fmt.Errorf("%w: %s", git.ErrUnknownCommit, id)
		}
		mu.Lock()
		defer mu.Unlock()
		if in, ok := cache[pos]; ok {
			return in, nil
		}
		in, err := r.set.has(pos)
		if err != nil {
			return false, err
		}
		cache[pos] = in
		return in, nil
	}
}
