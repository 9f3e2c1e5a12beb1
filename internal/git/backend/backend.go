package backend

import (
	"errors"
	"fmt"
	"strings"
)

// ErrObjectNotFound is returned when a requested object is absent from the store.
var ErrObjectNotFound = errors.New("object not found")

// Backend abstracts read-only access to a git object store.
//
// The default implementation uses go-git; the git CLI implementation shells out
// to the git executable. Both accept the git directory (bare or not).
type Backend interface {
	RepoPath() string

	HeadState() (hash string, headName string, ok bool, err error)
	ListRefs() ([]Ref, error)

	// StartLogStream yields every commit reachable from heads, each exactly once.
	StartLogStream(heads []string) (LogStream, error)
	ReadCommit(hash string) (*Commit, error)
	ChangedPaths(hash string) ([]string, error)
}

type LogStream interface {
	Next() (*Commit, error)
	Close() error
}

type Kind string

const (
	KindNative Kind = "native"
	KindGitCLI Kind = "gitcli"
)

// Opener opens a backend over a git directory.
type Opener func(gitDir string) (Backend, error)

// Factories maps backend kinds to their openers.
type Factories map[Kind]Opener

func DefaultFactories() Factories {
	return Factories{
		KindNative: OpenNative,
		KindGitCLI: OpenCLI,
	}
}

func ParseKind(raw string) (Kind, error) {
	switch Kind(strings.ToLower(strings.TrimSpace(raw))) {
	case "", KindNative:
		return KindNative, nil
	case KindGitCLI:
		return KindGitCLI, nil
	default:
		return "", fmt.Errorf("unknown backend %q (want %s or %s)", raw, KindNative, KindGitCLI)
	}
}

func (f Factories) Open(kind Kind, gitDir string) (Backend, error) {
	if kind == "" {
		kind = KindNative
	}
	open, ok := f[kind]
	if !ok || open == nil {
		return nil, fmt.Errorf("no backend registered for %q", kind)
	}
	return open(gitDir)
}

func isConflictTreeEntry(name string) bool {
	return strings.HasPrefix(name, conflictEntryPrefix)
}
