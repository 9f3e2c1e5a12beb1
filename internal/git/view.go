package git

import (
	"bytes"
	"fmt"
	"log/slog"
	"slices"
	"sort"
	"strings"

	gitbackend "github.com/thiagokokada/vizjj-go/internal/git/backend"
)

type RemoteBookmark struct {
	Name   string
	Remote string
	Target CommitID
}

// View is the named-reference state of a repository at load time.
type View struct {
	LocalBookmarks  map[string]CommitID
	RemoteBookmarks []RemoteBookmark // sorted by remote, then name
	Tags            map[string]CommitID

	// GitHead is the commit HEAD resolves to; HeadName is its branch or "HEAD".
	GitHead    CommitID
	HasGitHead bool
	HeadName   string

	// WorkingCopies maps workspace names to their working-copy commit.
	WorkingCopies map[string]CommitID

	// KeepTargets are the commits refs/jj/keep/* hold on to, sorted.
	KeepTargets []CommitID

	bookmarksByTarget map[CommitID][]string
	tagsByTarget      map[CommitID][]string
}

// newView builds the view from the listed refs. When headIsParent is set, HEAD
// is the parent of the working-copy commit rather than the commit itself, and
// the working copy is picked later by adoptKeptChild.
func newView(refs []gitbackend.Ref, headHash, headName string, headOK, headIsParent bool, workspace string) (*View, error) {
	v := &View{
		LocalBookmarks:    map[string]CommitID{},
		Tags:              map[string]CommitID{},
		WorkingCopies:     map[string]CommitID{},
		bookmarksByTarget: map[CommitID][]string{},
		tagsByTarget:      map[CommitID][]string{},
	}
	for _, ref := range refs {
		if ref.Hash == "" || ref.Name == "" {
			continue
		}
		id, err := ParseCommitID(ref.Hash)
		if err != nil {
			return nil, fmt.Errorf("%s %s: %w", ref.Kind, ref.Name, err)
		}
		switch ref.Kind {
		case gitbackend.RefKindBranch:
			v.LocalBookmarks[ref.Name] = id
			v.bookmarksByTarget[id] = append(v.bookmarksByTarget[id], ref.Name)
		case gitbackend.RefKindRemoteBranch:
			remote, name, ok := strings.Cut(ref.Name, "/")
			if !ok || name == "HEAD" {
				continue
			}
			v.RemoteBookmarks = append(v.RemoteBookmarks, RemoteBookmark{Name: name, Remote: remote, Target: id})
		case gitbackend.RefKindTag:
			v.Tags[ref.Name] = id
			v.tagsByTarget[id] = append(v.tagsByTarget[id], ref.Name)
		case gitbackend.RefKindKeep:
			v.KeepTargets = append(v.KeepTargets, id)
		}
	}
	slices.SortFunc(v.KeepTargets, func(a, b CommitID) int { return bytes.Compare(a[:], b[:]) })
	v.KeepTargets = slices.Compact(v.KeepTargets)
	sort.Slice(v.RemoteBookmarks, func(i, j int) bool {
		a, b := v.RemoteBookmarks[i], v.RemoteBookmarks[j]
		if a.Remote != b.Remote {
			return a.Remote < b.Remote
		}
		return a.Name < b.Name
	})
	for _, names := range v.bookmarksByTarget {
		sort.Strings(names)
	}
	for _, names := range v.tagsByTarget {
		sort.Strings(names)
	}
	if headOK {
		id, err := ParseCommitID(headHash)
		if err != nil {
			return nil, fmt.Errorf("HEAD: %w", err)
		}
		v.GitHead, v.HasGitHead, v.HeadName = id, true, headName
		if !headIsParent {
			v.WorkingCopies[workspace] = id
		}
	} else {
		slog.Debug("HEAD is unborn; no working-copy commit", slog.String("workspace", workspace))
	}
	return v, nil
}

// BookmarksFor returns the local bookmarks whose target is exactly id.
func (v *View) BookmarksFor(id CommitID) []string { return v.bookmarksByTarget[id] }

// TagsFor returns the tags whose target is exactly id.
func (v *View) TagsFor(id CommitID) []string { return v.tagsByTarget[id] }

func (v *View) WorkingCopy(workspace string) (CommitID, bool) {
	id, ok := v.WorkingCopies[workspace]
	return id, ok
}

// RemoteBookmark looks up name@remote.
func (v *View) RemoteBookmark(name, remote string) (CommitID, bool) {
	for _, rb := range v.RemoteBookmarks {
		if rb.Name == name && rb.Remote == remote {
			return rb.Target, true
		}
	}
	return CommitID{}, false
}

// adoptKeptChild makes the kept commit whose first parent is HEAD the working
// copy of workspace. Among several, a commit without children wins, then the
// most recently committed one.
func (v *View) adoptKeptChild(ix *Index, workspace string) {
	if !v.HasGitHead {
		return
	}
	best := -1
	for _, id := range v.KeepTargets {
		pos, ok := ix.Position(id)
		if !ok {
			continue
		}
		parents := ix.Parents(pos)
		if len(parents) == 0 || ix.ID(parents[0]) != v.GitHead {
			continue
		}
		if best < 0 || preferWorkingCopy(ix, pos, best) {
			best = pos
		}
	}
	if best < 0 {
		slog.Debug("no kept child of HEAD; no working-copy commit", slog.String("workspace", workspace))
		return
	}
	v.WorkingCopies[workspace] = ix.ID(best)
}

func preferWorkingCopy(ix *Index, pos, than int) bool {
	posHead, thanHead := len(ix.Children(pos)) == 0, len(ix.Children(than)) == 0
	if posHead != thanHead {
		return posHead
	}
	if !ix.CommitterTime(pos).Equal(ix.CommitterTime(than)) {
		return ix.CommitterTime(pos).After(ix.CommitterTime(than))
	}
	return pos > than
}

// headCandidates lists every ref target plus HEAD, deduplicated, in a stable order.
func (v *View) headCandidates() []CommitID {
	seen := map[CommitID]struct{}{}
	var out []CommitID
	add := func(id CommitID) {
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	if v.HasGitHead {
		add(v.GitHead)
	}
	for _, name := range sortedKeys(v.LocalBookmarks) {
		add(v.LocalBookmarks[name])
	}
	for _, rb := range v.RemoteBookmarks {
		add(rb.Target)
	}
	for _, name := range sortedKeys(v.Tags) {
		add(v.Tags[name])
	}
	for _, id := range v.KeepTargets {
		add(id)
	}
	return out
}

func sortedKeys(m map[string]CommitID) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
