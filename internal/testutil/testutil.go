// Package testutil builds throwaway git repositories for tests by writing
// objects straight into the go-git storer, so tests need no git executable.
package testutil

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"

	gitlib "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// BaseTime is the author and committer time of the first commit made by a Repo.
var BaseTime = time.Date(2024, 3, 1, 9, 30, 0, 0, time.FixedZone("", 2*60*60))

type Repo struct {
	T   testing.TB
	Dir string
	Git *gitlib.Repository

	clock time.Time
}

// CommitSpec describes a commit to write. Zero values get defaults.
type CommitSpec struct {
	Message  string
	Parents  []plumbing.Hash
	Email    string
	When     time.Time
	Files    map[string]string
	Conflict bool
}

func NewRepo(t testing.TB) *Repo {
	t.Helper()
	dir := t.TempDir()
	repo, err := gitlib.PlainInit(dir, false)
	if err != nil {
		t.Fatalf("PlainInit: %v", err)
	}
	return &Repo{T: t, Dir: dir, Git: repo, clock: BaseTime}
}

// Commit writes a commit with the given parents and moves nothing.
func (r *Repo) Commit(message string, parents ...plumbing.Hash) plumbing.Hash {
	r.T.Helper()
	return r.CommitWith(CommitSpec{Message: message, Parents: parents})
}

func (r *Repo) CommitWith(spec CommitSpec) plumbing.Hash {
	r.T.Helper()
	when := spec.When
	if when.IsZero() {
		when = r.clock
		r.clock = r.clock.Add(time.Minute)
	}
	email := spec.Email
	if email == "" {
		email = "test@example.com"
	}
	message := spec.Message
	if message != "" && !strings.HasSuffix(message, "\n") {
		message += "\n"
	}
	files := spec.Files
	if spec.Conflict {
		files = make(map[string]string, len(spec.Files)+2)
		for k, v := range spec.Files {
			files[k] = v
		}
		files[".jjconflict-base-0/file"] = "base\n"
		files[".jjconflict-side-0/file"] = "side\n"
	}
	sig := object.Signature{Name: "Test Author", Email: email, When: when}
	commit := &object.Commit{
		Author:       sig,
		Committer:    sig,
		Message:      message,
		TreeHash:     r.writeTree(files),
		ParentHashes: spec.Parents,
	}
	obj := r.Git.Storer.NewEncodedObject()
	if err := commit.Encode(obj); err != nil {
		r.T.Fatalf("encode commit: %v", err)
	}
	hash, err := r.Git.Storer.SetEncodedObject(obj)
	if err != nil {
		r.T.Fatalf("store commit: %v", err)
	}
	return hash
}

func (r *Repo) Branch(name string, target plumbing.Hash) {
	r.T.Helper()
	r.setRef(plumbing.NewHashReference(plumbing.NewBranchReferenceName(name), target))
}

func (r *Repo) RemoteBranch(remote, name string, target plumbing.Hash) {
	r.T.Helper()
	r.setRef(plumbing.NewHashReference(plumbing.NewRemoteReferenceName(remote, name), target))
}

// Keep adds the refs/jj/keep ref jj writes for every commit it creates.
func (r *Repo) Keep(target plumbing.Hash) {
	r.T.Helper()
	r.setRef(plumbing.NewHashReference(plumbing.ReferenceName("refs/jj/keep/"+target.String()), target))
}

func (r *Repo) Tag(name string, target plumbing.Hash) {
	r.T.Helper()
	if _, err := r.Git.CreateTag(name, target, nil); err != nil {
		r.T.Fatalf("CreateTag(%s): %v", name, err)
	}
}

func (r *Repo) AnnotatedTag(name string, target plumbing.Hash) {
	r.T.Helper()
	opts := &gitlib.CreateTagOptions{
		Tagger:  &object.Signature{Name: "Test Author", Email: "test@example.com", When: BaseTime},
		Message: "release " + name,
	}
	if _, err := r.Git.CreateTag(name, target, opts); err != nil {
		r.T.Fatalf("CreateTag(%s): %v", name, err)
	}
}

// Checkout points HEAD at the named branch.
func (r *Repo) Checkout(branch string) {
	r.T.Helper()
	r.setRef(plumbing.NewSymbolicReference(plumbing.HEAD, plumbing.NewBranchReferenceName(branch)))
}

func (r *Repo) Detach(target plumbing.Hash) {
	r.T.Helper()
	r.setRef(plumbing.NewHashReference(plumbing.HEAD, target))
}

// WriteFile writes a file relative to the repository root, creating parents.
func (r *Repo) WriteFile(rel, content string) string {
	r.T.Helper()
	path := filepath.Join(r.Dir, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		r.T.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		r.T.Fatalf("write %s: %v", rel, err)
	}
	return path
}

// Colocate turns the repository into a jj-colocated workspace.
func (r *Repo) Colocate() {
	r.T.Helper()
	r.WriteFile(".jj/repo/store/git_target", "../../../.git")
	r.WriteFile(".jj/repo/store/type", "git")
	r.WriteFile(".jj/working_copy/checkout", "")
}

func (r *Repo) setRef(ref *plumbing.Reference) {
	r.T.Helper()
	if err := r.Git.Storer.SetReference(ref); err != nil {
		r.T.Fatalf("SetReference(%s): %v", ref.Name(), err)
	}
}

func (r *Repo) writeTree(files map[string]string) plumbing.Hash {
	r.T.Helper()
	type dirEntry struct {
		name  string
		isDir bool
	}
	direct := map[string]string{}
	nested := map[string]map[string]string{}
	for path, content := range files {
		head, rest, ok := strings.Cut(path, "/")
		if !ok {
			direct[path] = content
			continue
		}
		if nested[head] == nil {
			nested[head] = map[string]string{}
		}
		nested[head][rest] = content
	}
	var names []dirEntry
	for name := range direct {
		names = append(names, dirEntry{name: name})
	}
	for name := range nested {
		names = append(names, dirEntry{name: name, isDir: true})
	}
	// git orders tree entries as if directory names carried a trailing slash.
	sortKey := func(e dirEntry) string {
		if e.isDir {
			return e.name + "/"
		}
		return e.name
	}
	sort.Slice(names, func(i, j int) bool { return sortKey(names[i]) < sortKey(names[j]) })

	tree := &object.Tree{}
	for _, e := range names {
		if e.isDir {
			tree.Entries = append(tree.Entries, object.TreeEntry{Name: e.name, Mode: filemode.Dir, Hash: r.writeTree(nested[e.name])})
			continue
		}
		tree.Entries = append(tree.Entries, object.TreeEntry{Name: e.name, Mode: filemode.Regular, Hash: r.writeBlob(direct[e.name])})
	}
	obj := r.Git.Storer.NewEncodedObject()
	if err := tree.Encode(obj); err != nil {
		r.T.Fatalf("encode tree: %v", err)
	}
	hash, err := r.Git.Storer.SetEncodedObject(obj)
	if err != nil {
		r.T.Fatalf("store tree: %v", err)
	}
	return hash
}

func (r *Repo) writeBlob(content string) plumbing.Hash {
	r.T.Helper()
	obj := r.Git.Storer.NewEncodedObject()
	obj.SetType(plumbing.BlobObject)
	w, err := obj.Writer()
	if err != nil {
		r.T.Fatalf("blob writer: %v", err)
	}
	if _, err := w.Write([]byte(content)); err != nil {
		r.T.Fatalf("write blob: %v", err)
	}
	if err := w.Close(); err != nil {
		r.T.Fatalf("close blob: %v", err)
	}
	hash, err := r.Git.Storer.SetEncodedObject(obj)
	if err != nil {
		r.T.Fatalf("store blob: %v", err)
	}
	return hash
}
