package revset

import (
	"path/filepath"
	"testing"
	"time"
)

func TestStringPatternMatch(t *testing.T) {
	t.Parallel()

	tests := []struct {
		kind, text, input string
		want              bool
	}{
		{"substring", "fix", "bugfix-1", true},
		{"substring", "Fix", "bugfix-1", false},
		{"substring-i", "Fix", "bugfix-1", true},
		{"exact", "main", "main", true},
		{"exact", "main", "main2", false},
		{"exact-i", "MAIN", "main", true},
		{"glob", "release/*", "release/1.0", true},
		{"glob", "release/*", "release/1.0/hotfix", false},
		{"glob", "release/**", "release/1.0/hotfix", true},
		{"glob-i", "REL*", "release", true},
		{"regex", "^v[0-9]+$", "v12", true},
		{"regex", "^v[0-9]+$", "v12a", false},
		{"regex-i", "^V", "v1", true},
	}
	for _, tc := range tests {
		p, err := ParseStringPattern(tc.kind, tc.text)
		if err != nil {
			t.Fatalf("ParseStringPattern(%q, %q) error = %v", tc.kind, tc.text, err)
		}
		if got := p.Match(tc.input); got != tc.want {
			t.Fatalf("%s.Match(%q) = %v, want %v", p, tc.input, got, tc.want)
		}
	}
}

func TestStringPatternErrors(t *testing.T) {
	t.Parallel()

	for _, tc := range []struct{ kind, text string }{
		{"fuzzy", "x"},
		{"regex", "("},
		{"glob", "[a"},
	} {
		if _, err := ParseStringPattern(tc.kind, tc.text); err == nil {
			t.Fatalf("ParseStringPattern(%q, %q) error = nil, want error", tc.kind, tc.text)
		}
	}
}

func TestStringPatternExact(t *testing.T) {
	t.Parallel()

	if got, ok := ExactPattern("main").Exact(); !ok || got != "main" {
		t.Fatalf("Exact() = %q, %v; want main, true", got, ok)
	}
	if _, ok := SubstringPattern("main").Exact(); ok {
		t.Fatalf("SubstringPattern.Exact() ok = true, want false")
	}
	if got := ExactPattern("a b").String(); got != `exact:"a b"` {
		t.Fatalf("String() = %s", got)
	}
}

func TestParseDatePattern(t *testing.T) {
	t.Parallel()

	loc := time.FixedZone("", -3*60*60)
	now := time.Date(2024, 5, 10, 15, 4, 5, 0, loc)

	tests := []struct {
		kind, value string
		want        time.Time
	}{
		{"after", "now", now},
		{"after", "today", time.Date(2024, 5, 10, 0, 0, 0, 0, loc)},
		{"before", "yesterday", time.Date(2024, 5, 9, 0, 0, 0, 0, loc)},
		{"after", "2024-01-02", time.Date(2024, 1, 2, 0, 0, 0, 0, loc)},
		{"after", "2024-01-02 03:04", time.Date(2024, 1, 2, 3, 4, 0, 0, loc)},
		{"after", "2024-01-02T03:04:05Z", time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)},
		{"after", "2 days ago", now.AddDate(0, 0, -2)},
		{"after", "1 hour ago", now.Add(-time.Hour)},
		{"after", "3 weeks ago", now.AddDate(0, 0, -21)},
	}
	for _, tc := range tests {
		got, err := ParseDatePattern(tc.kind, tc.value, now)
		if err != nil {
			t.Fatalf("ParseDatePattern(%q, %q) error = %v", tc.kind, tc.value, err)
		}
		if !got.At.Equal(tc.want) || got.Before != (tc.kind == "before") {
			t.Fatalf("ParseDatePattern(%q, %q) = %+v, want %v", tc.kind, tc.value, got, tc.want)
		}
	}

	for _, tc := range []struct{ kind, value string }{
		{"during", "today"},
		{"after", "next tuesday"},
		{"after", "-1 days ago"},
	} {
		if _, err := ParseDatePattern(tc.kind, tc.value, now); err == nil {
			t.Fatalf("ParseDatePattern(%q, %q) error = nil, want error", tc.kind, tc.value)
		}
	}
}

func TestDatePatternBoundaries(t *testing.T) {
	t.Parallel()

	at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	after := DatePattern{At: at}
	before := DatePattern{Before: true, At: at}
	if !after.Match(at) || before.Match(at) {
		t.Fatalf("boundary instant: after=%v before=%v, want true false", after.Match(at), before.Match(at))
	}
	earlier := at.Add(-time.Second)
	if after.Match(earlier) || !before.Match(earlier) {
		t.Fatalf("earlier instant: after=%v before=%v, want false true", after.Match(earlier), before.Match(earlier))
	}
}

func TestFileMatchers(t *testing.T) {
	t.Parallel()

	root := filepath.FromSlash("/work/repo")
	conv := &PathConverter{Cwd: filepath.Join(root, "src"), Root: root}

	tests := []struct {
		kind, value string
		match       []string
		noMatch     []string
	}{
		{"", "lib", []string{"src/lib", "src/lib/a.go"}, []string{"src/library", "lib"}},
		{"", ".", []string{"src/x.go"}, []string{"docs/x.md"}},
		{"", "..", []string{"docs/x.md", ".github/ci.yml"}, nil},
		{"file", "main.go", []string{"src/main.go"}, []string{"src/main.go/x"}},
		{"glob", "*.go", []string{"src/a.go"}, []string{"src/pkg/a.go", "a.go"}},
		{"glob", "**/*.go", []string{"src/pkg/a.go"}, []string{"docs/a.go"}},
		{"root", "docs", []string{"docs/a.md"}, []string{"src/docs/a.md"}},
		{"root-file", "/.github/ci.yml", []string{".github/ci.yml"}, nil},
		{"root-glob", "*.md", []string{"README.md"}, []string{"docs/a.md"}},
	}
	for _, tc := range tests {
		m, err := newFileMatcher(tc.kind, tc.value, conv)
		if err != nil {
			t.Fatalf("newFileMatcher(%q, %q) error = %v", tc.kind, tc.value, err)
		}
		for _, p := range tc.match {
			if !m.Match(p) {
				t.Fatalf("%s:%s should match %q", tc.kind, tc.value, p)
			}
		}
		for _, p := range tc.noMatch {
			if m.Match(p) {
				t.Fatalf("%s:%s should not match %q", tc.kind, tc.value, p)
			}
		}
	}

	if _, err := newFileMatcher("", "../..", conv); err == nil {
		t.Fatalf("newFileMatcher outside workspace error = nil, want error")
	}
	if _, err := newFileMatcher("regex", "x", conv); err == nil {
		t.Fatalf("newFileMatcher(regex) error = nil, want error")
	}
}
