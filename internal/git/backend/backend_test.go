package backend

import (
	"errors"
	"io"
	"os/exec"
	"path/filepath"
	"reflect"
	"sort"
	"testing"
	"time"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/thiagokokada/vizjj-go/internal/testutil"
)

type fixture struct {
	repo                   *testutil.Repo
	root, left, right, mrg string
	conflicted             string
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	r := testutil.NewRepo(t)
	root := r.CommitWith(testutil.CommitSpec{Message: "root", Files: map[string]string{"README": "hi\n"}})
	left := r.CommitWith(testutil.CommitSpec{Message: "left", Parents: []plumbing.Hash{root}, Files: map[string]string{"README": "hi\n", "src/a.go": "package a\n"}})
	right := r.CommitWith(testutil.CommitSpec{Message: "right", Parents: []plumbing.Hash{root}, Files: map[string]string{"README": "hello\n"}})
	mrg := r.CommitWith(testutil.CommitSpec{Message: "merge", Parents: []plumbing.Hash{left, right}, Files: map[string]string{"README": "hello\n", "src/a.go": "package a\n"}})
	conflicted := r.CommitWith(testutil.CommitSpec{Message: "conflict", Parents: []plumbing.Hash{mrg}, Conflict: true})

	r.Branch("main", mrg)
	r.Branch("feature", conflicted)
	r.RemoteBranch("origin", "main", left)
	r.Tag("light", root)
	r.AnnotatedTag("v1", right)
	r.Keep(conflicted)
	r.Checkout("main")

	return fixture{
		repo:       r,
		root:       root.String(),
		left:       left.String(),
		right:      right.String(),
		mrg:        mrg.String(),
		conflicted: conflicted.String(),
	}
}

func openers(t *testing.T) map[Kind]Opener {
	t.Helper()
	out := map[Kind]Opener{KindNative: OpenNative}
	if _, err := exec.LookPath("git"); err == nil {
		out[KindGitCLI] = OpenCLI
	}
	return out
}

func TestBackendsAgree(t *testing.T) {
	t.Parallel()
	fx := newFixture(t)

	for kind, open := range openers(t) {
		t.Run(string(kind), func(t *testing.T) {
			b, err := open(filepath.Join(fx.repo.Dir, ".git"))
			if err != nil {
				t.Fatalf("open(%s) error = %v", kind, err)
			}

			hash, headName, ok, err := b.HeadState()
			if err != nil {
				t.Fatalf("HeadState() error = %v", err)
			}
			if !ok || hash != fx.mrg || headName != "main" {
				t.Fatalf("HeadState() = %q, %q, %v; want %q, main, true", hash, headName, ok, fx.mrg)
			}

			refs, err := b.ListRefs()
			if err != nil {
				t.Fatalf("ListRefs() error = %v", err)
			}
			sortRefs(refs)
			wantRefs := []Ref{
				{Hash: fx.conflicted, Kind: RefKindBranch, Name: "feature"},
				{Hash: fx.mrg, Kind: RefKindBranch, Name: "main"},
				{Hash: fx.left, Kind: RefKindRemoteBranch, Name: "origin/main"},
				{Hash: fx.root, Kind: RefKindTag, Name: "light"},
				{Hash: fx.right, Kind: RefKindTag, Name: "v1"},
				{Hash: fx.conflicted, Kind: RefKindKeep, Name: fx.conflicted},
			}
			if !reflect.DeepEqual(refs, wantRefs) {
				t.Fatalf("ListRefs() = %+v\nwant %+v", refs, wantRefs)
			}

			seen := drain(t, b, []string{fx.conflicted, fx.left})
			want := []string{fx.conflicted, fx.left, fx.mrg, fx.right, fx.root}
			sort.Strings(want)
			if !reflect.DeepEqual(seen, want) {
				t.Fatalf("log stream = %v, want %v", seen, want)
			}

			c, err := b.ReadCommit(fx.mrg)
			if err != nil {
				t.Fatalf("ReadCommit() error = %v", err)
			}
			if !reflect.DeepEqual(c.ParentHashes, []string{fx.left, fx.right}) {
				t.Fatalf("merge parents = %v, want [left right]", c.ParentHashes)
			}
			if c.Message != "merge\n" || c.Author.Email != "test@example.com" || c.Conflict {
				t.Fatalf("ReadCommit() = %+v", c)
			}
			if !c.Author.When.Equal(testutil.BaseTime.Add(3 * time.Minute)) {
				t.Fatalf("author time = %v", c.Author.When)
			}

			conflicted, err := b.ReadCommit(fx.conflicted)
			if err != nil {
				t.Fatalf("ReadCommit(conflicted) error = %v", err)
			}
			if !conflicted.Conflict {
				t.Fatalf("expected conflict flag on %s", fx.conflicted)
			}

			paths, err := b.ChangedPaths(fx.left)
			if err != nil {
				t.Fatalf("ChangedPaths() error = %v", err)
			}
			if !reflect.DeepEqual(paths, []string{"src/a.go"}) {
				t.Fatalf("ChangedPaths(left) = %v", paths)
			}
			paths, err = b.ChangedPaths(fx.root)
			if err != nil {
				t.Fatalf("ChangedPaths(root) error = %v", err)
			}
			if !reflect.DeepEqual(paths, []string{"README"}) {
				t.Fatalf("ChangedPaths(root) = %v", paths)
			}

			if _, err := b.ReadCommit("0123456789012345678901234567890123456789"); !errors.Is(err, ErrObjectNotFound) {
				t.Fatalf("ReadCommit(missing) error = %v, want ErrObjectNotFound", err)
			}
		})
	}
}

func TestHeadStateUnborn(t *testing.T) {
	t.Parallel()
	r := testutil.NewRepo(t)
	r.Commit("orphan")

	for kind, open := range openers(t) {
		t.Run(string(kind), func(t *testing.T) {
			b, err := open(r.Dir)
			if err != nil {
				t.Fatalf("open() error = %v", err)
			}
			_, _, ok, err := b.HeadState()
			if err != nil {
				t.Fatalf("HeadState() error = %v", err)
			}
			if ok {
				t.Fatalf("HeadState() ok = true for unborn HEAD")
			}
		})
	}
}

func TestDetachedHead(t *testing.T) {
	t.Parallel()
	r := testutil.NewRepo(t)
	h := r.Commit("only")
	r.Detach(h)

	b, err := OpenNative(r.Dir)
	if err != nil {
		t.Fatalf("OpenNative() error = %v", err)
	}
	hash, name, ok, err := b.HeadState()
	if err != nil || !ok {
		t.Fatalf("HeadState() = %v, %v", ok, err)
	}
	if hash != h.String() || name != "HEAD" {
		t.Fatalf("HeadState() = %q, %q", hash, name)
	}
}

func TestParseKind(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    Kind
		wantErr bool
	}{
		{in: "", want: KindNative},
		{in: "native", want: KindNative},
		{in: " GitCLI ", want: KindGitCLI},
		{in: "libgit2", wantErr: true},
	}
	for _, tt := range tests {
		got, err := ParseKind(tt.in)
		if (err != nil) != tt.wantErr {
			t.Fatalf("ParseKind(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Fatalf("ParseKind(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFactoriesOpenUnknown(t *testing.T) {
	t.Parallel()
	if _, err := (Factories{}).Open(KindNative, t.TempDir()); err == nil {
		t.Fatalf("expected error for empty factory set")
	}
}

func drain(t *testing.T, b Backend, heads []string) []string {
	t.Helper()
	stream, err := b.StartLogStream(heads)
	if err != nil {
		t.Fatalf("StartLogStream() error = %v", err)
	}
	defer stream.Close()
	var out []string
	for {
		c, err := stream.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatalf("Next() error = %v", err)
		}
		out = append(out, c.Hash)
	}
	sort.Strings(out)
	return out
}

func sortRefs(refs []Ref) {
	sort.Slice(refs, func(i, j int) bool {
		if refs[i].Kind != refs[j].Kind {
			return refs[i].Kind < refs[j].Kind
		}
		return refs[i].Name < refs[j].Name
	})
}
