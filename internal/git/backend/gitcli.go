package backend

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
)

type gitCLI struct {
	path string
	// locate is either "-C <worktree>" or "--git-dir=<dir>".
	locate []string
}

// OpenCLI opens path with the git executable. path may be a worktree root,
// a .git directory or a bare repository.
func OpenCLI(path string) (Backend, error) {
	if err := ensureMinGitVersion(); err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	g := &gitCLI{path: abs, locate: []string{"--git-dir=" + abs}}
	if _, err := os.Stat(filepath.Join(abs, ".git")); err == nil {
		g.locate = []string{"-C", abs}
	}
	if _, err := g.runGitCommand([]string{"rev-parse", "--git-dir"}, false, "git rev-parse"); err != nil {
		return nil, fmt.Errorf("open repository: %w", err)
	}
	return g, nil
}

func (g *gitCLI) RepoPath() string {
	if g == nil {
		return ""
	}
	return g.path
}

func (g *gitCLI) command(ctx context.Context, args ...string) *exec.Cmd {
	cmdArgs := append([]string{"--no-pager"}, g.locate...)
	cmdArgs = append(cmdArgs, args...)
	cmd := exec.CommandContext(ctx, "git", cmdArgs...)
	// Keep output stable regardless of the user's locale and pager settings.
	cmd.Env = append(os.Environ(), "LC_ALL=C", "GIT_TERMINAL_PROMPT=0")
	return cmd
}

func (g *gitCLI) runGitCommand(args []string, allowExit1 bool, label string) (string, error) {
	return g.runGitCommandInput(nil, args, allowExit1, label)
}

func (g *gitCLI) runGitCommandInput(stdin io.Reader, args []string, allowExit1 bool, label string) (string, error) {
	if g == nil || g.path == "" {
		return "", fmt.Errorf("repository root not set")
	}
	cmd := g.command(context.Background(), args...)
	cmd.Stdin = stdin
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	if err != nil {
		var exitErr *exec.ExitError
		if allowExit1 && errors.As(err, &exitErr) && exitErr.ExitCode() == 1 && stderr.Len() == 0 {
			// show-ref and rev-parse -q signal "nothing found" via exit code 1
		} else {
			if stderr.Len() > 0 {
				return "", fmt.Errorf("%s: %v: %s", label, err, strings.TrimSpace(stderr.String()))
			}
			return "", fmt.Errorf("%s: %w", label, err)
		}
	}
	return stdout.String(), nil
}

func (g *gitCLI) HeadState() (hash string, headName string, ok bool, err error) {
	out, err := g.runGitCommand([]string{"rev-parse", "-q", "--verify", "HEAD^{commit}"}, true, "git rev-parse")
	if err != nil {
		return "", "", false, err
	}
	hash = strings.TrimSpace(out)
	if hash == "" {
		return "", "", false, nil
	}
	ref, err := g.runGitCommand([]string{"symbolic-ref", "-q", "--short", "HEAD"}, true, "git symbolic-ref")
	if err != nil {
		return "", "", false, err
	}
	headName = strings.TrimSpace(ref)
	if headName == "" {
		headName = "HEAD"
	}
	return hash, headName, true, nil
}

func (g *gitCLI) ListRefs() ([]Ref, error) {
	out, err := g.runGitCommand([]string{"show-ref", "--dereference"}, true, "git show-ref")
	if err != nil {
		return nil, err
	}
	return parseRefsFromShowRef(out)
}

func (g *gitCLI) ReadCommit(hash string) (*Commit, error) {
	hash = strings.TrimSpace(hash)
	if err := g.ensureCommit(hash); err != nil {
		return nil, err
	}
	out, err := g.runGitCommand(
		[]string{"log", "-1", "--no-color", "--no-decorate", "--no-patch", "--pretty=tformat:" + logRecordFormat, hash},
		false,
		"git log",
	)
	if err != nil {
		return nil, err
	}
	commit, err := parseGitLogRecord([]byte(strings.TrimSuffix(strings.TrimRight(out, "\n"), "\x00")))
	if err != nil {
		return nil, err
	}
	names, err := g.runGitCommand([]string{"ls-tree", "--name-only", hash}, false, "git ls-tree")
	if err != nil {
		return nil, err
	}
	for _, name := range strings.Split(names, "\n") {
		if isConflictTreeEntry(name) {
			commit.Conflict = true
			break
		}
	}
	return commit, nil
}

func (g *gitCLI) ChangedPaths(hash string) ([]string, error) {
	hash = strings.TrimSpace(hash)
	if err := g.ensureCommit(hash); err != nil {
		return nil, err
	}
	out, err := g.runGitCommand(
		[]string{"diff-tree", "--no-commit-id", "--name-only", "-r", "--root", hash},
		false,
		"git diff-tree",
	)
	if err != nil {
		return nil, err
	}
	var paths []string
	for _, line := range strings.Split(out, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			paths = append(paths, line)
		}
	}
	sort.Strings(paths)
	return paths, nil
}

func (g *gitCLI) ensureCommit(hash string) error {
	if hash == "" {
		return fmt.Errorf("commit not specified")
	}
	// batch-check reports a missing object on stdout and still exits 0, so any
	// command failure is a real error rather than an absent commit.
	out, err := g.runGitCommandInput(strings.NewReader(hash+"\n"), []string{"cat-file", "--batch-check=%(objecttype)"}, false, "git cat-file")
	if err != nil {
		return fmt.Errorf("commit %s: %w", hash, err)
	}
	switch typ := strings.TrimSpace(out); {
	case typ == "commit":
		return nil
	case strings.HasSuffix(typ, " missing"):
		return fmt.Errorf("commit %s: %w", hash, ErrObjectNotFound)
	case strings.HasSuffix(typ, " ambiguous"):
		return fmt.Errorf("commit %s: ambiguous object name", hash)
	default:
		return fmt.Errorf("commit %s: %w: object is a %s", hash, ErrObjectNotFound, typ)
	}
}

func parseRefsFromShowRef(out string) ([]Ref, error) {
	type refEntry struct {
		hash string
		ref  string
	}

	peeledByTagRef := map[string]string{}
	var entries []refEntry

	for _, rawLine := range strings.Split(out, "\n") {
		line := strings.TrimRight(rawLine, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		parts := strings.Fields(line)
		if len(parts) != 2 {
			return nil, fmt.Errorf("unexpected show-ref output line: %q", rawLine)
		}
		hash, refName := parts[0], parts[1]
		if base, ok := strings.CutSuffix(refName, "^{}"); ok {
			if base != "" {
				peeledByTagRef[base] = hash
			}
			continue
		}
		entries = append(entries, refEntry{hash: hash, ref: refName})
	}

	var refs []Ref
	for _, entry := range entries {
		if short, ok := strings.CutPrefix(entry.ref, "refs/tags/"); ok && short != "" {
			hash := entry.hash
			if peeled, ok := peeledByTagRef[entry.ref]; ok && peeled != "" {
				hash = peeled
			}
			refs = append(refs, Ref{Hash: hash, Kind: RefKindTag, Name: short})
		} else if short, ok := strings.CutPrefix(entry.ref, "refs/heads/"); ok && short != "" {
			refs = append(refs, Ref{Hash: entry.hash, Kind: RefKindBranch, Name: short})
		} else if short, ok := strings.CutPrefix(entry.ref, "refs/remotes/"); ok && short != "" {
			refs = append(refs, Ref{Hash: entry.hash, Kind: RefKindRemoteBranch, Name: short})
		} else if short, ok := strings.CutPrefix(entry.ref, keepRefPrefix); ok && short != "" {
			refs = append(refs, Ref{Hash: entry.hash, Kind: RefKindKeep, Name: short})
		}
	}
	return refs, nil
}
