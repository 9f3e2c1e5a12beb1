package revset

import (
	"errors"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/go-git/go-git/v5/plumbing"

	"github.com/thiagokokada/vizjj-go/internal/git"
	"github.com/thiagokokada/vizjj-go/internal/testutil"
)

// fixture is the graph
//
//	E        tip (conflicted)
//	M        topic (merge of C and D)
//	| \
//	C  D     main, feature
//	B  |     v1, main@origin
//	| /
//	A        old@origin
//
// with HEAD on main.
type fixture struct {
	repo  *git.Repo
	ids   map[string]git.CommitID
	names map[git.CommitID]string
	ctx   *ParseContext
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	r := testutil.NewRepo(t)
	readme := map[string]string{"README.md": "hello\n"}
	with := func(base map[string]string, extra ...string) map[string]string {
		out := map[string]string{}
		for k, v := range base {
			out[k] = v
		}
		for _, p := range extra {
			out[p] = p + "\n"
		}
		return out
	}

	a := r.CommitWith(testutil.CommitSpec{Message: "A", Files: readme})
	b := r.CommitWith(testutil.CommitSpec{Message: "B", Parents: []plumbing.Hash{a}, Files: with(readme, "src/b.go")})
	c := r.CommitWith(testutil.CommitSpec{Message: "C", Parents: []plumbing.Hash{b}, Files: with(readme, "src/b.go", "src/c.go")})
	d := r.CommitWith(testutil.CommitSpec{Message: "D", Parents: []plumbing.Hash{a}, Files: with(readme, "docs/d.md"), Email: "other@example.com"})
	m := r.CommitWith(testutil.CommitSpec{Message: "M", Parents: []plumbing.Hash{c, d}, Files: with(readme, "src/b.go", "src/c.go", "docs/d.md")})
	e := r.CommitWith(testutil.CommitSpec{Message: "E", Parents: []plumbing.Hash{m}, Files: with(readme, "src/b.go", "src/c.go", "docs/d.md"), Conflict: true})

	r.Branch("main", c)
	r.Branch("feature", d)
	r.Branch("topic", m)
	r.Branch("tip", e)
	r.RemoteBranch("origin", "main", b)
	r.RemoteBranch("origin", "feature", d)
	r.RemoteBranch("origin", "old", a)
	r.Tag("v1", b)
	r.Checkout("main")

	repo, err := git.Load(git.LoadOptions{GitDir: filepath.Join(r.Dir, ".git")})
	if err != nil {
		t.Fatalf("git.Load() error = %v", err)
	}

	f := &fixture{
		repo:  repo,
		ids:   map[string]git.CommitID{},
		names: map[git.CommitID]string{},
		ctx: &ParseContext{
			UserEmail: "TEST@example.com",
			Now:       testutil.BaseTime.Add(time.Hour),
			PathConverter: &PathConverter{
				Cwd:  r.Dir,
				Root: r.Dir,
			},
		},
	}
	for name, h := range map[string]plumbing.Hash{"A": a, "B": b, "C": c, "D": d, "M": m, "E": e} {
		f.ids[name] = git.CommitID(h)
		f.names[git.CommitID(h)] = name
	}
	return f
}

func (f *fixture) eval(t *testing.T, text string) ([]string, error) {
	t.Helper()
	expr, err := Parse(text, f.ctx)
	if err != nil {
		return nil, err
	}
	rs, err := expr.Evaluate(f.repo)
	if err != nil {
		return nil, err
	}
	out := []string{}
	for id, err := range rs.Iter() {
		if err != nil {
			return nil, err
		}
		out = append(out, f.names[id])
	}
	return out, nil
}

func TestEvaluate(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	tests := []struct {
		input string
		want  string
	}{
		{"all()", "E M D C B A"},
		{"::", "E M D C B A"},
		{"..", "E M D C B"},
		{"none()", ""},
		{"root()", "A"},
		{"visible_heads()", "E"},
		{"@", "C"},
		{"@-", "B"},
		{"default@", "C"},
		{"main", "C"},
		{"v1", "B"},
		{"main@origin", "B"},
		{"main@git", "C"},
		{"HEAD", "C"},
		{"refs/heads/feature", "D"},
		{"refs/remotes/origin/old", "A"},
		{"::main", "C B A"},
		{"main::", "E M C"},
		{"feature..main", "C B"},
		{"main..", "E M D"},
		{"..main", "C B"},
		{"feature::tip", "E M D"},
		{"topic-", "D C"},
		{"topic--", "B A"},
		{"topic+", "E"},
		{"parents(topic)", "D C"},
		{"children(root())", "D B"},
		{"ancestors(tip, 2)", "E M"},
		{"descendants(root(), depth=2)", "D B A"},
		{"heads(::main | feature)", "D C"},
		{"roots(main::)", "C"},
		{"connected(main | tip)", "E M C"},
		{"latest(all(), 2)", "E M"},
		{"latest(all())", "E"},
		{"~main", "E M D B A"},
		{"main | feature", "D C"},
		{"::tip & ~::main", "E M D"},
		{"::tip ~ ::main", "E M D"},
		{"present(nope)", ""},
		{"present(nope) | main", "C"},
		{"git_head()", "C"},
		{"git_refs()", "E M D C B A"},
		{"working_copies()", "C"},
		{"merges()", "M"},
		{"conflicts()", "E"},
		{"bookmarks()", "E M D C"},
		{"bookmarks(exact:main)", "C"},
		{`bookmarks(glob:"t*")`, "E M"},
		{"tags()", "B"},
		{"remote_bookmarks()", "D B A"},
		{"remote_bookmarks(remote=origin)", "D B A"},
		{"remote_bookmarks(old)", "A"},
		{"tracked_remote_bookmarks()", "D B"},
		{"untracked_remote_bookmarks()", "A"},
		{"description(C)", "C"},
		{`subject(exact:"M")`, "M"},
		{"author(other)", "D"},
		{`author_email(exact:"test@example.com")`, "E M C B A"},
		{"mine()", "E M C B A"},
		{"committer_date(after:'2024-03-01 09:34')", "E M"},
		{"author_date(before:'2024-03-01 09:31')", "A"},
		{"files(src)", "C B"},
		{"files(docs | README.md)", "M D A"},
		{"files(glob:'src/*.go') & ::main", "C B"},
		{"files(root-file:src/c.go)", "C"},
		{"mine() & merges()", "M"},
		{"merges() & mine()", "M"},
	}
	for _, tc := range tests {
		t.Run(tc.input, func(t *testing.T) {
			t.Parallel()
			got, err := f.eval(t, tc.input)
			if err != nil {
				t.Fatalf("eval(%q) error = %v", tc.input, err)
			}
			if strings.Join(got, " ") != tc.want {
				t.Fatalf("eval(%q) = %q, want %q", tc.input, strings.Join(got, " "), tc.want)
			}
		})
	}
}

func TestEvaluateErrors(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	tests := []struct {
		input string
		want  error
	}{
		{"nope", ErrResolution},
		{"nope@origin", ErrResolution},
		{"main@upstream", ErrResolution},
		{"other@", ErrResolution},
		{"main | nope", ErrResolution},
		{"nosuch()", ErrSyntax},
		{"ancestors()", ErrSyntax},
		{"ancestors(main, depth=a)", ErrSyntax},
		{"ancestors(main, 1, 2)", ErrSyntax},
		{"latest(all(), foo=1)", ErrSyntax},
		{`glob:"x"`, ErrSyntax},
		{"description()", ErrSyntax},
		{"author_date(today)", ErrSyntax},
		{"author_date(during:today)", ErrSyntax},
		{"bookmarks(regex:'(')", ErrSyntax},
		{"files(a & b)", ErrSyntax},
		{"files('../../outside')", ErrSyntax},
	}
	for _, tc := range tests {
		t.Run(tc.input, func(t *testing.T) {
			t.Parallel()
			_, err := f.eval(t, tc.input)
			if !errors.Is(err, tc.want) {
				t.Fatalf("eval(%q) error = %v, want %v", tc.input, err, tc.want)
			}
		})
	}
}

func TestResolveIDPrefixes(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	for name, id := range f.ids {
		for _, prefix := range []string{id.Hex()[:12], id.Hex(), git.ChangeIDFromCommit(id).String()[:12]} {
			got, err := f.eval(t, prefix)
			if err != nil {
				t.Fatalf("eval(%q) error = %v", prefix, err)
			}
			if !reflect.DeepEqual(got, []string{name}) {
				t.Fatalf("eval(%q) = %v, want [%s]", prefix, got, name)
			}
		}
	}

	// Single-character hex prefixes are ambiguous exactly when two
	// commits share them.
	for _, c := range "0123456789abcdef" {
		prefix := string(c)
		var matches []string
		for name, id := range f.ids {
			if strings.HasPrefix(id.Hex(), prefix) {
				matches = append(matches, name)
			}
		}
		got, err := f.eval(t, prefix)
		switch len(matches) {
		case 1:
			if err != nil || !reflect.DeepEqual(got, matches) {
				t.Fatalf("eval(%q) = %v, %v; want %v", prefix, got, err, matches)
			}
		default:
			if !errors.Is(err, ErrResolution) {
				t.Fatalf("eval(%q) error = %v, want ErrResolution (%d matches)", prefix, err, len(matches))
			}
		}
	}
}

func TestContainingFn(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	expr, err := Parse("::main | conflicts()", f.ctx)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	rs, err := expr.Evaluate(f.repo)
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	contains := rs.ContainingFn()
	want := map[string]bool{"A": true, "B": true, "C": true, "D": false, "M": false, "E": true}
	for range 2 {
		for name, in := range want {
			got, err := contains(f.ids[name])
			if err != nil {
				t.Fatalf("contains(%s) error = %v", name, err)
			}
			if got != in {
				t.Fatalf("contains(%s) = %v, want %v", name, got, in)
			}
		}
	}

	if _, err := contains(git.CommitID{0xde, 0xad}); !errors.Is(err, git.ErrUnknownCommit) {
		t.Fatalf("contains(unknown) error = %v, want ErrUnknownCommit", err)
	}
}

func TestExpressionCombinators(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	parse := func(text string) *Expression {
		e, err := Parse(text, f.ctx)
		if err != nil {
			t.Fatalf("Parse(%q) error = %v", text, err)
		}
		return e
	}

	tests := []struct {
		expr *Expression
		want []string
	}{
		{parse("main").Ancestors().Union(parse("feature")), []string{"D", "C", "B", "A"}},
		{parse("none()").Union(Root()).Ancestors(), []string{"A"}},
		{parse("feature").Union(Root()).Ancestors(), []string{"D", "A"}},
	}
	for i, tc := range tests {
		rs, err := tc.expr.Evaluate(f.repo)
		if err != nil {
			t.Fatalf("#%d Evaluate() error = %v", i, err)
		}
		var got []string
		for id, err := range rs.Iter() {
			if err != nil {
				t.Fatalf("#%d Iter() error = %v", i, err)
			}
			got = append(got, f.names[id])
		}
		if !reflect.DeepEqual(got, tc.want) {
			t.Fatalf("#%d = %v, want %v", i, got, tc.want)
		}
	}
}

func TestParseWithAliases(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	aliases := mustAliases(t, map[string]string{
		"trunk()":         "latest(remote_bookmarks(exact:main, exact:origin) | root())",
		"immutable_heads": "trunk() | tags()",
		"mutable()":       "~::immutable_heads",
	})
	ctx := *f.ctx
	ctx.Aliases = aliases
	expr, err := Parse("mutable() & ::@", &ctx)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	rs, err := expr.Evaluate(f.repo)
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	var got []string
	for id, err := range rs.Iter() {
		if err != nil {
			t.Fatalf("Iter() error = %v", err)
		}
		got = append(got, f.names[id])
	}
	if want := []string{"C"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("mutable() & ::@ = %v, want %v", got, want)
	}
}
