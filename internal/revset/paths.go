package revset

import (
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// PathConverter turns user-supplied paths, relative to Cwd, into
// slash-separated paths relative to the workspace Root.
type PathConverter struct {
	Cwd  string
	Root string
}

func (c *PathConverter) RepoPath(input string) (string, error) {
	if c == nil {
		return path.Clean(filepath.ToSlash(input)), nil
	}
	abs := input
	if !filepath.IsAbs(abs) {
		abs = filepath.Join(c.Cwd, input)
	}
	rel, err := filepath.Rel(c.Root, abs)
	if err != nil {
		return "", fmt.Errorf("path %q: %w", input, err)
	}
	rel = filepath.ToSlash(rel)
	if rel == ".." || strings.HasPrefix(rel, "../") {
		return "", fmt.Errorf("path %q is outside the workspace", input)
	}
	if rel == "." {
		rel = ""
	}
	return rel, nil
}

type fileMatchKind int

const (
	filePrefix fileMatchKind = iota // a file or everything below a directory
	fileExact
	fileGlob
)

// fileMatcher selects repository paths for files().
type fileMatcher struct {
	kind fileMatchKind
	path string // repository-relative; the pattern for globs
}

// newFileMatcher builds a matcher from a fileset atom. kind is "" for a bare
// path; "cwd:", "file:", "glob:" and "root:" forms are supported, with
// "root-file:" and "root-glob:" taking paths relative to the workspace root.
func newFileMatcher(kind, value string, conv *PathConverter) (fileMatcher, error) {
	rootRelative := strings.HasPrefix(kind, "root")
	toRepo := func(p string) (string, error) {
		if rootRelative {
			p = strings.TrimPrefix(path.Clean(filepath.ToSlash(p)), "/")
			if p == "." {
				p = ""
			}
			return p, nil
		}
		return conv.RepoPath(p)
	}
	switch kind {
	case "", "cwd", "root":
		p, err := toRepo(value)
		return fileMatcher{kind: filePrefix, path: p}, err
	case "file", "cwd-file", "root-file":
		p, err := toRepo(value)
		return fileMatcher{kind: fileExact, path: p}, err
	case "glob", "cwd-glob", "root-glob":
		dir, err := toRepo(".")
		if err != nil {
			return fileMatcher{}, err
		}
		pattern := path.Join(dir, filepath.ToSlash(value))
		if !doublestar.ValidatePattern(pattern) {
			return fileMatcher{}, fmt.Errorf("invalid glob pattern %q", value)
		}
		return fileMatcher{kind: fileGlob, path: pattern}, nil
	}
	return fileMatcher{}, fmt.Errorf("invalid file pattern kind %q", kind)
}

func (m fileMatcher) Match(p string) bool {
	switch m.kind {
	case filePrefix:
		return m.path == "" || p == m.path || strings.HasPrefix(p, m.path+"/")
	case fileExact:
		return p == m.path
	case fileGlob:
		ok, err := doublestar.Match(m.path, p)
		return err == nil && ok
	}
	return false
}
