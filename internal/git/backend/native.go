package backend

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"

	gitlib "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

type native struct {
	path string
	repo *gitlib.Repository
}

// OpenNative opens path with go-git. path may be a worktree root, a .git
// directory or a bare repository.
func OpenNative(path string) (Backend, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	repo, err := gitlib.PlainOpenWithOptions(abs, &gitlib.PlainOpenOptions{EnableDotGitCommonDir: true})
	if err != nil {
		return nil, fmt.Errorf("open repository: %w", err)
	}
	return &native{path: abs, repo: repo}, nil
}

func (n *native) RepoPath() string {
	return n.path
}

func (n *native) HeadState() (hash string, headName string, ok bool, err error) {
	ref, err := n.repo.Head()
	if err != nil {
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			return "", "", false, nil
		}
		return "", "", false, fmt.Errorf("resolve HEAD: %w", err)
	}
	headName = "HEAD"
	if ref.Name().IsBranch() {
		headName = ref.Name().Short()
	}
	return ref.Hash().String(), headName, true, nil
}

func (n *native) ListRefs() ([]Ref, error) {
	iter, err := n.repo.References()
	if err != nil {
		return nil, fmt.Errorf("list references: %w", err)
	}
	defer iter.Close()
	var refs []Ref
	err = iter.ForEach(func(ref *plumbing.Reference) error {
		if ref.Type() != plumbing.HashReference {
			return nil
		}
		name := ref.Name()
		switch {
		case name.IsBranch():
			refs = append(refs, Ref{Hash: ref.Hash().String(), Kind: RefKindBranch, Name: name.Short()})
		case name.IsRemote():
			refs = append(refs, Ref{Hash: ref.Hash().String(), Kind: RefKindRemoteBranch, Name: name.Short()})
		case name.IsTag():
			peeled, ok := n.peelTagCommitHash(ref.Hash())
			if !ok {
				slog.Debug("skipping tag without commit target", slog.String("tag", name.Short()))
				return nil
			}
			refs = append(refs, Ref{Hash: peeled.String(), Kind: RefKindTag, Name: name.Short()})
		default:
			if short, ok := strings.CutPrefix(name.String(), keepRefPrefix); ok && short != "" {
				refs = append(refs, Ref{Hash: ref.Hash().String(), Kind: RefKindKeep, Name: short})
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list references: %w", err)
	}
	sort.Slice(refs, func(i, j int) bool {
		if refs[i].Kind != refs[j].Kind {
			return refs[i].Kind < refs[j].Kind
		}
		return refs[i].Name < refs[j].Name
	})
	return refs, nil
}

func (n *native) peelTagCommitHash(hash plumbing.Hash) (plumbing.Hash, bool) {
	if hash == plumbing.ZeroHash {
		return plumbing.ZeroHash, false
	}
	// Lightweight tags point directly at a commit; annotated tags point at a tag object.
	if _, err := n.repo.CommitObject(hash); err == nil {
		return hash, true
	}
	cur := hash
	for range 8 {
		tag, err := n.repo.TagObject(cur)
		if err != nil {
			return plumbing.ZeroHash, false
		}
		switch tag.TargetType {
		case plumbing.CommitObject:
			return tag.Target, true
		case plumbing.TagObject:
			cur = tag.Target
		default:
			return plumbing.ZeroHash, false
		}
	}
	return plumbing.ZeroHash, false
}

func (n *native) StartLogStream(heads []string) (LogStream, error) {
	stream := &nativeLogStream{repo: n.repo, seen: make(map[plumbing.Hash]struct{})}
	// Push in reverse so the first head is visited first.
	for i := len(heads) - 1; i >= 0; i-- {
		h := plumbing.NewHash(heads[i])
		if h.IsZero() {
			return nil, fmt.Errorf("invalid head %q", heads[i])
		}
		stream.stack = append(stream.stack, pending{hash: h, head: true})
	}
	return stream, nil
}

func (n *native) ReadCommit(hash string) (*Commit, error) {
	c, err := n.commitObject(hash)
	if err != nil {
		return nil, err
	}
	commit := toCommit(c)
	tree, err := c.Tree()
	if err != nil {
		return nil, fmt.Errorf("read tree of %s: %w", hash, err)
	}
	for _, entry := range tree.Entries {
		if isConflictTreeEntry(entry.Name) {
			commit.Conflict = true
			break
		}
	}
	return commit, nil
}

func (n *native) ChangedPaths(hash string) ([]string, error) {
	c, err := n.commitObject(hash)
	if err != nil {
		return nil, err
	}
	tree, err := c.Tree()
	if err != nil {
		return nil, fmt.Errorf("read tree of %s: %w", hash, err)
	}
	var parentTree *object.Tree
	if c.NumParents() > 0 {
		parent, err := c.Parent(0)
		if err != nil {
			return nil, fmt.Errorf("read parent of %s: %w", hash, err)
		}
		if parentTree, err = parent.Tree(); err != nil {
			return nil, fmt.Errorf("read tree of %s: %w", parent.Hash, err)
		}
	}
	changes, err := object.DiffTree(parentTree, tree)
	if err != nil {
		return nil, fmt.Errorf("diff %s: %w", hash, err)
	}
	paths := make([]string, 0, len(changes))
	for _, ch := range changes {
		name := ch.To.Name
		if name == "" {
			name = ch.From.Name
		}
		if name != "" {
			paths = append(paths, name)
		}
	}
	sort.Strings(paths)
	return paths, nil
}

func (n *native) commitObject(hash string) (*object.Commit, error) {
	c, err := n.repo.CommitObject(plumbing.NewHash(hash))
	if err != nil {
		if errors.Is(err, plumbing.ErrObjectNotFound) {
			return nil, fmt.Errorf("commit %s: %w", hash, ErrObjectNotFound)
		}
		return nil, fmt.Errorf("read commit %s: %w", hash, err)
	}
	return c, nil
}

type pending struct {
	hash plumbing.Hash
	head bool
}

type nativeLogStream struct {
	repo  *gitlib.Repository
	stack []pending
	seen  map[plumbing.Hash]struct{}
}

func (s *nativeLogStream) Next() (*Commit, error) {
	for len(s.stack) > 0 {
		next := s.stack[len(s.stack)-1]
		s.stack = s.stack[:len(s.stack)-1]
		if _, ok := s.seen[next.hash]; ok {
			continue
		}
		s.seen[next.hash] = struct{}{}
		c, err := s.repo.CommitObject(next.hash)
		if err != nil {
			if !next.head && errors.Is(err, plumbing.ErrObjectNotFound) {
				// Parents cut off by a shallow clone.
				slog.Debug("log stream: missing parent", slog.String("commit", next.hash.String()))
				continue
			}
			return nil, fmt.Errorf("read commit %s: %w", next.hash, err)
		}
		for i := len(c.ParentHashes) - 1; i >= 0; i-- {
			if _, ok := s.seen[c.ParentHashes[i]]; !ok {
				s.stack = append(s.stack, pending{hash: c.ParentHashes[i]})
			}
		}
		return toCommit(c), nil
	}
	return nil, io.EOF
}

func (s *nativeLogStream) Close() error {
	s.stack = nil
	return nil
}

func toCommit(c *object.Commit) *Commit {
	parents := make([]string, len(c.ParentHashes))
	for i, p := range c.ParentHashes {
		parents[i] = p.String()
	}
	return &Commit{
		Hash:         c.Hash.String(),
		ParentHashes: parents,
		Author:       Signature{Name: c.Author.Name, Email: c.Author.Email, When: c.Author.When},
		Committer:    Signature{Name: c.Committer.Name, Email: c.Committer.Email, When: c.Committer.When},
		Message:      c.Message,
	}
}
