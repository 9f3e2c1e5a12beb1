package revset

import (
	"errors"
	"slices"
	"strings"

	"github.com/thiagokokada/vizjj-go/internal/git"
)

// resolver replaces symbolic expressions with the commits they name.
type resolver struct {
	repo      *git.Repo
	workspace string
}

func (r *resolver) resolve(e expr) (expr, error) {
	view := r.repo.View()
	switch e := e.(type) {
	case symbolExpr:
		id, err := r.resolveSymbol(e.name)
		if err != nil {
			return nil, err
		}
		return commitsExpr{ids: []git.CommitID{id}}, nil
	case remoteSymbolExpr:
		if e.remote == "git" {
			if id, ok := view.LocalBookmarks[e.name]; ok {
				return commitsExpr{ids: []git.CommitID{id}}, nil
			}
		} else if id, ok := view.RemoteBookmark(e.name, e.remote); ok {
			return commitsExpr{ids: []git.CommitID{id}}, nil
		}
		return nil, resolutionErrorf("revision %q doesn't exist", e.name+"@"+e.remote)
	case workingCopyExpr:
		ws := e.workspace
		if ws == "" {
			ws = r.workspace
		}
		id, ok := view.WorkingCopy(ws)
		if !ok {
			return nil, resolutionErrorf("workspace %q doesn't have a working-copy commit", ws)
		}
		return commitsExpr{ids: []git.CommitID{id}}, nil
	case bookmarksExpr:
		var ids []git.CommitID
		for _, name := range sortedNames(view.LocalBookmarks) {
			if e.pattern.Match(name) {
				ids = append(ids, view.LocalBookmarks[name])
			}
		}
		return commitsExpr{ids: ids}, nil
	case tagsExpr:
		var ids []git.CommitID
		for _, name := range sortedNames(view.Tags) {
			if e.pattern.Match(name) {
				ids = append(ids, view.Tags[name])
			}
		}
		return commitsExpr{ids: ids}, nil
	case remoteBookmarksExpr:
		var ids []git.CommitID
		for _, rb := range view.RemoteBookmarks {
			if !e.name.Match(rb.Name) || !e.remote.Match(rb.Remote) {
				continue
			}
			_, tracked := view.LocalBookmarks[rb.Name]
			if e.tracked == trackTracked && !tracked || e.tracked == trackUntracked && tracked {
				continue
			}
			ids = append(ids, rb.Target)
		}
		return commitsExpr{ids: ids}, nil
	case gitHeadExpr:
		if !view.HasGitHead {
			return noneExpr{}, nil
		}
		return commitsExpr{ids: []git.CommitID{view.GitHead}}, nil
	case gitRefsExpr:
		var ids []git.CommitID
		for _, name := range sortedNames(view.LocalBookmarks) {
			ids = append(ids, view.LocalBookmarks[name])
		}
		for _, rb := range view.RemoteBookmarks {
			ids = append(ids, rb.Target)
		}
		for _, name := range sortedNames(view.Tags) {
			ids = append(ids, view.Tags[name])
		}
		return commitsExpr{ids: ids}, nil
	case workingCopiesExpr:
		var ids []git.CommitID
		for _, name := range sortedNames(view.WorkingCopies) {
			ids = append(ids, view.WorkingCopies[name])
		}
		return commitsExpr{ids: ids}, nil
	case presentExpr:
		x, err := r.resolve(e.x)
		if errors.Is(err, ErrResolution) {
			return noneExpr{}, nil
		}
		if err != nil {
			return nil, err
		}
		return x, nil
	case ancestorsExpr:
		heads, err := r.resolve(e.heads)
		if err != nil {
			return nil, err
		}
		return ancestorsExpr{heads: heads, gen: e.gen}, nil
	case descendantsExpr:
		roots, err := r.resolve(e.roots)
		if err != nil {
			return nil, err
		}
		return descendantsExpr{roots: roots, gen: e.gen}, nil
	case rangeExpr:
		roots, heads, err := r.resolvePair(e.roots, e.heads)
		if err != nil {
			return nil, err
		}
		return rangeExpr{roots: roots, heads: heads}, nil
	case dagRangeExpr:
		roots, heads, err := r.resolvePair(e.roots, e.heads)
		if err != nil {
			return nil, err
		}
		return dagRangeExpr{roots: roots, heads: heads}, nil
	case headsExpr:
		x, err := r.resolve(e.x)
		if err != nil {
			return nil, err
		}
		return headsExpr{x: x}, nil
	case rootsExpr:
		x, err := r.resolve(e.x)
		if err != nil {
			return nil, err
		}
		return rootsExpr{x: x}, nil
	case latestExpr:
		x, err := r.resolve(e.x)
		if err != nil {
			return nil, err
		}
		return latestExpr{x: x, n: e.n}, nil
	case unionExpr:
		a, b, err := r.resolvePair(e.a, e.b)
		if err != nil {
			return nil, err
		}
		return unionExpr{a: a, b: b}, nil
	case intersectionExpr:
		a, b, err := r.resolvePair(e.a, e.b)
		if err != nil {
			return nil, err
		}
		return intersectionExpr{a: a, b: b}, nil
	case differenceExpr:
		a, b, err := r.resolvePair(e.a, e.b)
		if err != nil {
			return nil, err
		}
		return differenceExpr{a: a, b: b}, nil
	}
	return e, nil
}

func (r *resolver) resolvePair(a, b expr) (expr, expr, error) {
	ra, err := r.resolve(a)
	if err != nil {
		return nil, nil, err
	}
	rb, err := r.resolve(b)
	if err != nil {
		return nil, nil, err
	}
	return ra, rb, nil
}

// resolveSymbol tries, in order: tags, local bookmarks, git refs, commit id
// prefixes and change id prefixes.
func (r *resolver) resolveSymbol(name string) (git.CommitID, error) {
	view := r.repo.View()
	if id, ok := view.Tags[name]; ok {
		return id, nil
	}
	if id, ok := view.LocalBookmarks[name]; ok {
		return id, nil
	}
	if id, ok := r.resolveGitRef(name); ok {
		return id, nil
	}
	ix := r.repo.Index()
	switch pos, res := ix.ResolveCommitPrefix(name); res {
	case git.SingleMatch:
		return ix.ID(pos), nil
	case git.AmbiguousMatch:
		return git.CommitID{}, resolutionErrorf("commit id prefix %q is ambiguous", name)
	}
	switch pos, res := ix.ResolveChangePrefix(name); res {
	case git.SingleMatch:
		return ix.ID(pos), nil
	case git.AmbiguousMatch:
		return git.CommitID{}, resolutionErrorf("change id prefix %q is ambiguous", name)
	}
	return git.CommitID{}, resolutionErrorf("revision %q doesn't exist", name)
}

func (r *resolver) resolveGitRef(name string) (git.CommitID, bool) {
	view := r.repo.View()
	switch {
	case name == "HEAD":
		return view.GitHead, view.HasGitHead
	case strings.HasPrefix(name, "refs/heads/"):
		id, ok := view.LocalBookmarks[strings.TrimPrefix(name, "refs/heads/")]
		return id, ok
	case strings.HasPrefix(name, "refs/tags/"):
		id, ok := view.Tags[strings.TrimPrefix(name, "refs/tags/")]
		return id, ok
	case strings.HasPrefix(name, "refs/remotes/"):
		remote, bookmark, ok := strings.Cut(strings.TrimPrefix(name, "refs/remotes/"), "/")
		if !ok {
			return git.CommitID{}, false
		}
		return view.RemoteBookmark(bookmark, remote)
	}
	return git.CommitID{}, false
}

func sortedNames(m map[string]git.CommitID) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
