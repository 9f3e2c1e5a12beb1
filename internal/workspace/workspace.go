// Package workspace locates the repository enclosing a filesystem path.
package workspace

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

var (
	// ErrNotFound reports that a path cannot be canonicalized or has no
	// enclosing workspace.
	ErrNotFound = errors.New("no workspace found")
	// ErrUnsupportedStore reports a jj repository whose store is not git-backed.
	ErrUnsupportedStore = errors.New("unsupported repository store")
)

const (
	DefaultName = "default"

	jjDirName  = ".jj"
	gitDirName = ".git"
)

type Kind int

const (
	KindGit Kind = iota
	KindColocated
	KindJJ
)

func (k Kind) String() string {
	switch k {
	case KindGit:
		return "git"
	case KindColocated:
		return "jj-colocated"
	case KindJJ:
		return "jj"
	default:
		return "unknown"
	}
}

type Workspace struct {
	// Root is the canonical workspace root.
	Root string
	Name string
	// RepoDir holds repository-level metadata: .jj/repo for jj workspaces and
	// the git directory otherwise.
	RepoDir string
	GitDir  string
	Kind    Kind
}

// Find resolves the workspace enclosing path. path does not need to be the
// workspace root and may point at a file.
func Find(path string) (*Workspace, error) {
	start, err := canonicalize(path)
	if err != nil {
		return nil, err
	}
	for dir := start; ; {
		if isDir(filepath.Join(dir, jjDirName)) {
			return openJJ(dir)
		}
		if exists(filepath.Join(dir, gitDirName)) {
			return openGit(dir)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return nil, fmt.Errorf("%w: %s (or any parent directory)", ErrNotFound, start)
		}
		dir = parent
	}
}

func canonicalize(path string) (string, error) {
	if path == "" {
		path = "."
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrNotFound, err)
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrNotFound, err)
	}
	info, err := os.Stat(resolved)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrNotFound, err)
	}
	if !info.IsDir() {
		resolved = filepath.Dir(resolved)
	}
	return resolved, nil
}

func openGit(root string) (*Workspace, error) {
	gitDir, err := resolveDotGit(filepath.Join(root, gitDirName))
	if err != nil {
		return nil, err
	}
	slog.Debug("found git workspace", slog.String("root", root), slog.String("git_dir", gitDir))
	return &Workspace{Root: root, Name: DefaultName, RepoDir: gitDir, GitDir: gitDir, Kind: KindGit}, nil
}

func openJJ(root string) (*Workspace, error) {
	jjDir := filepath.Join(root, jjDirName)
	repoDir, err := resolvePointer(filepath.Join(jjDir, "repo"), jjDir)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNotFound, err)
	}
	storeDir := filepath.Join(repoDir, "store")
	target, err := os.ReadFile(filepath.Join(storeDir, "git_target"))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s has no git_target", ErrUnsupportedStore, storeDir)
		}
		return nil, fmt.Errorf("%w: %w", ErrNotFound, err)
	}
	gitDir := strings.TrimSpace(string(target))
	if !filepath.IsAbs(gitDir) {
		gitDir = filepath.Join(storeDir, gitDir)
	}
	if gitDir, err = filepath.EvalSymlinks(filepath.Clean(gitDir)); err != nil {
		return nil, fmt.Errorf("%w: git target: %w", ErrNotFound, err)
	}

	kind := KindJJ
	if colocated, err := filepath.EvalSymlinks(filepath.Join(root, gitDirName)); err == nil && colocated == gitDir {
		kind = KindColocated
	}
	slog.Debug("found jj workspace",
		slog.String("root", root),
		slog.String("repo_dir", repoDir),
		slog.String("git_dir", gitDir),
		slog.String("kind", kind.String()),
	)
	return &Workspace{Root: root, Name: DefaultName, RepoDir: repoDir, GitDir: gitDir, Kind: kind}, nil
}

// resolveDotGit returns the git directory for a .git entry, following
// "gitdir:" files used by linked worktrees and submodules.
func resolveDotGit(dotGit string) (string, error) {
	info, err := os.Stat(dotGit)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrNotFound, err)
	}
	if info.IsDir() {
		return dotGit, nil
	}
	data, err := os.ReadFile(dotGit)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrNotFound, err)
	}
	target, ok := strings.CutPrefix(strings.TrimSpace(string(data)), "gitdir:")
	if !ok {
		return "", fmt.Errorf("%w: malformed gitfile %s", ErrNotFound, dotGit)
	}
	target = strings.TrimSpace(target)
	if !filepath.IsAbs(target) {
		target = filepath.Join(filepath.Dir(dotGit), target)
	}
	if !isDir(target) {
		return "", fmt.Errorf("%w: gitfile %s points at missing %s", ErrNotFound, dotGit, target)
	}
	return filepath.Clean(target), nil
}

// resolvePointer returns path if it is a directory, or the directory named by
// its contents (relative to base) if it is a file.
func resolvePointer(path, base string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", err
	}
	if info.IsDir() {
		return path, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	target := strings.TrimSpace(string(data))
	if !filepath.IsAbs(target) {
		target = filepath.Join(base, target)
	}
	if !isDir(target) {
		return "", fmt.Errorf("%s points at missing directory %s", path, target)
	}
	return filepath.Clean(target), nil
}

// WatchPaths lists the metadata directories whose changes can alter a query
// result.
func (w *Workspace) WatchPaths() []string {
	var paths []string
	add := func(p string) {
		if isDir(p) {
			paths = append(paths, p)
		}
	}
	add(w.GitDir)
	add(filepath.Join(w.GitDir, "refs", "heads"))
	add(filepath.Join(w.GitDir, "refs", "tags"))
	if w.Kind != KindGit {
		add(filepath.Join(w.RepoDir, "op_heads", "heads"))
	}
	return paths
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
