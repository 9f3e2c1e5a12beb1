package git

import (
	"bytes"
	"container/heap"
	"sort"
	"strings"
	"time"
)

type PrefixResolution int

const (
	NoMatch PrefixResolution = iota
	SingleMatch
	AmbiguousMatch
)

// Index holds the commit graph by position. Parents always have a lower
// position than their children; commits that are not ordered by the graph are
// ordered by committer time, then by commit id.
type Index struct {
	ids       []CommitID
	changeIDs []ChangeID
	positions map[CommitID]int
	parents   [][]int
	children  [][]int
	committed []time.Time

	commitHex   []string
	changeHex   []string
	byCommitHex []int
	byChangeHex []int
}

type indexEntry struct {
	id        CommitID
	parents   []CommitID
	committed time.Time
}

func buildIndex(entries []indexEntry) *Index {
	n := len(entries)
	known := make(map[CommitID]int, n)
	for i, e := range entries {
		known[e.id] = i
	}

	// Edges between entries only; parents outside the set were cut off.
	parentsOf := make([][]int, n)
	childrenOf := make([][]int, n)
	indegree := make([]int, n)
	for i, e := range entries {
		for _, p := range e.parents {
			j, ok := known[p]
			if !ok || containsInt(parentsOf[i], j) {
				continue
			}
			parentsOf[i] = append(parentsOf[i], j)
			childrenOf[j] = append(childrenOf[j], i)
			indegree[i]++
		}
	}

	ready := &readyQueue{entries: entries}
	for i := range entries {
		if indegree[i] == 0 {
			heap.Push(ready, i)
		}
	}
	order := make([]int, 0, n)
	for ready.Len() > 0 {
		i := heap.Pop(ready).(int)
		order = append(order, i)
		for _, c := range childrenOf[i] {
			indegree[c]--
			if indegree[c] == 0 {
				heap.Push(ready, c)
			}
		}
	}

	posOf := make([]int, n)
	for pos, i := range order {
		posOf[i] = pos
	}
	ix := &Index{
		ids:       make([]CommitID, len(order)),
		changeIDs: make([]ChangeID, len(order)),
		positions: make(map[CommitID]int, len(order)),
		parents:   make([][]int, len(order)),
		children:  make([][]int, len(order)),
		committed: make([]time.Time, len(order)),
		commitHex: make([]string, len(order)),
		changeHex: make([]string, len(order)),
	}
	for pos, i := range order {
		e := entries[i]
		ix.ids[pos] = e.id
		ix.changeIDs[pos] = ChangeIDFromCommit(e.id)
		ix.positions[e.id] = pos
		ix.committed[pos] = e.committed
		ix.commitHex[pos] = e.id.Hex()
		ix.changeHex[pos] = ix.changeIDs[pos].String()
		for _, p := range parentsOf[i] {
			ix.parents[pos] = append(ix.parents[pos], posOf[p])
		}
		for _, c := range childrenOf[i] {
			ix.children[pos] = append(ix.children[pos], posOf[c])
		}
		sort.Ints(ix.children[pos])
	}
	ix.byCommitHex = sortedByKey(ix.commitHex)
	ix.byChangeHex = sortedByKey(ix.changeHex)
	return ix
}

func (ix *Index) Len() int { return len(ix.ids) }

func (ix *Index) Position(id CommitID) (int, bool) {
	pos, ok := ix.positions[id]
	return pos, ok
}

func (ix *Index) Has(id CommitID) bool {
	_, ok := ix.positions[id]
	return ok
}

func (ix *Index) ID(pos int) CommitID { return ix.ids[pos] }

func (ix *Index) ChangeID(pos int) ChangeID { return ix.changeIDs[pos] }

// Parents returns parent positions in recorded order.
func (ix *Index) Parents(pos int) []int { return ix.parents[pos] }

// Children returns child positions in ascending order.
func (ix *Index) Children(pos int) []int { return ix.children[pos] }

func (ix *Index) CommitterTime(pos int) time.Time { return ix.committed[pos] }

// Heads returns the positions without children, highest first.
func (ix *Index) Heads() []int {
	var out []int
	for pos := len(ix.ids) - 1; pos >= 0; pos-- {
		if len(ix.children[pos]) == 0 {
			out = append(out, pos)
		}
	}
	return out
}

// Roots returns the positions without parents, highest first.
func (ix *Index) Roots() []int {
	var out []int
	for pos := len(ix.ids) - 1; pos >= 0; pos-- {
		if len(ix.parents[pos]) == 0 {
			out = append(out, pos)
		}
	}
	return out
}

// ResolveCommitPrefix resolves a lowercase hex prefix of a commit id.
func (ix *Index) ResolveCommitPrefix(prefix string) (int, PrefixResolution) {
	if !isHexPrefix(prefix) {
		return 0, NoMatch
	}
	return resolvePrefix(ix.commitHex, ix.byCommitHex, prefix)
}

// ResolveChangePrefix resolves a reverse-hex prefix of a change id.
func (ix *Index) ResolveChangePrefix(prefix string) (int, PrefixResolution) {
	if !isReverseHexPrefix(prefix) {
		return 0, NoMatch
	}
	return resolvePrefix(ix.changeHex, ix.byChangeHex, prefix)
}

// ShortestUniqueChangePrefixLen is the number of change-id characters needed
// to identify pos unambiguously.
func (ix *Index) ShortestUniqueChangePrefixLen(pos int) int {
	key := ix.changeHex[pos]
	i := sort.Search(len(ix.byChangeHex), func(k int) bool { return ix.changeHex[ix.byChangeHex[k]] >= key })
	n := 1
	for _, k := range []int{i - 1, i + 1} {
		if k < 0 || k >= len(ix.byChangeHex) {
			continue
		}
		n = max(n, commonPrefixLen(key, ix.changeHex[ix.byChangeHex[k]])+1)
	}
	return min(n, len(key))
}

func resolvePrefix(keys []string, sorted []int, prefix string) (int, PrefixResolution) {
	i := sort.Search(len(sorted), func(k int) bool { return keys[sorted[k]] >= prefix })
	if i == len(sorted) || !strings.HasPrefix(keys[sorted[i]], prefix) {
		return 0, NoMatch
	}
	if i+1 < len(sorted) && strings.HasPrefix(keys[sorted[i+1]], prefix) {
		return 0, AmbiguousMatch
	}
	return sorted[i], SingleMatch
}

func sortedByKey(keys []string) []int {
	out := make([]int, len(keys))
	for i := range out {
		out[i] = i
	}
	sort.Slice(out, func(a, b int) bool { return keys[out[a]] < keys[out[b]] })
	return out
}

func commonPrefixLen(a, b string) int {
	n := 0
	for n < len(a) && n < len(b) && a[n] == b[n] {
		n++
	}
	return n
}

func containsInt(s []int, v int) bool {
	for _, x := range s {
		if x == v {
			return true
		}
	}
	return false
}

// readyQueue pops the oldest commit first, breaking ties by commit id.
type readyQueue struct {
	entries []indexEntry
	items   []int
}

func (q *readyQueue) Len() int { return len(q.items) }
func (q *readyQueue) Less(a, b int) bool {
	ea, eb := q.entries[q.items[a]], q.entries[q.items[b]]
	if !ea.committed.Equal(eb.committed) {
		return ea.committed.Before(eb.committed)
	}
	return bytes.Compare(ea.id[:], eb.id[:]) < 0
}
func (q *readyQueue) Swap(a, b int) { q.items[a], q.items[b] = q.items[b], q.items[a] }
func (q *readyQueue) Push(x any)    { q.items = append(q.items, x.(int)) }
func (q *readyQueue) Pop() any {
	last := q.items[len(q.items)-1]
	q.items = q.items[:len(q.items)-1]
	return last
}
