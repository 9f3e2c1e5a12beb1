package git

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	gitbackend "github.com/thiagokokada/vizjj-go/internal/git/backend"
)

const DefaultWorkspace = "default"

type LoadOptions struct {
	GitDir        string
	WorkspaceName string
	Backend       gitbackend.Kind
	// HeadIsParent is set for repositories jj manages, where git HEAD is the
	// parent of the working-copy commit and a keep ref holds the commit itself.
	HeadIsParent bool
	// Factories defaults to gitbackend.DefaultFactories().
	Factories gitbackend.Factories
}

// Repo is a read-only snapshot of a repository: its view as of load time and
// an index of every commit reachable from it.
type Repo struct {
	backend gitbackend.Backend
	view    *View
	index   *Index

	mu      sync.Mutex
	commits map[CommitID]*Commit
}

// Load opens the repository at opts.GitDir and indexes every commit reachable
// from its refs and HEAD.
func Load(opts LoadOptions) (*Repo, error) {
	factories := opts.Factories
	if factories == nil {
		factories = gitbackend.DefaultFactories()
	}
	workspace := opts.WorkspaceName
	if workspace == "" {
		workspace = DefaultWorkspace
	}
	b, err := factories.Open(opts.Backend, opts.GitDir)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoad, err)
	}

	headHash, headName, headOK, err := b.HeadState()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoad, err)
	}
	refs, err := b.ListRefs()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoad, err)
	}
	view, err := newView(refs, headHash, headName, headOK, opts.HeadIsParent, workspace)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoad, err)
	}

	heads := view.headCandidates()
	entries, err := readGraph(b, heads)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoad, err)
	}
	index := buildIndex(entries)
	if opts.HeadIsParent {
		view.adoptKeptChild(index, workspace)
	}
	slog.Debug("repository loaded",
		slog.String("path", b.RepoPath()),
		slog.Int("refs", len(refs)),
		slog.Int("commits", index.Len()),
		slog.Bool("has_head", headOK),
	)
	return &Repo{
		backend: b,
		view:    view,
		index:   index,
		commits: map[CommitID]*Commit{},
	}, nil
}

func readGraph(b gitbackend.Backend, heads []CommitID) ([]indexEntry, error) {
	hashes := make([]string, len(heads))
	for i, h := range heads {
		hashes[i] = h.Hex()
	}
	stream, err := b.StartLogStream(hashes)
	if err != nil {
		return nil, err
	}
	defer stream.Close()

	var entries []indexEntry
	for {
		raw, err := stream.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("iterate commits: %w", err)
		}
		c, err := commitFromBackend(raw)
		if err != nil {
			return nil, fmt.Errorf("iterate commits: %w", err)
		}
		entries = append(entries, indexEntry{id: c.ID, parents: c.Parents, committed: c.Committer.When})
	}
	return entries, nil
}

func (r *Repo) RepoPath() string { return r.backend.RepoPath() }

func (r *Repo) View() *View { return r.view }

func (r *Repo) Index() *Index { return r.index }

// Commit loads the full commit. The result is cached for the life of the Repo.
func (r *Repo) Commit(id CommitID) (*Commit, error) {
	r.mu.Lock()
	c, ok := r.commits[id]
	r.mu.Unlock()
	if ok {
		return c, nil
	}
	raw, err := r.backend.ReadCommit(id.Hex())
	if err != nil {
		if errors.Is(err, gitbackend.ErrObjectNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrUnknownCommit, id)
		}
		return nil, fmt.Errorf("%w: %w", ErrGraphRead, err)
	}
	c, err = commitFromBackend(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrGraphRead, err)
	}
	r.mu.Lock()
	r.commits[id] = c
	r.mu.Unlock()
	return c, nil
}

// ChangedPaths returns the repository-relative paths id changes against its
// first parent, sorted.
func (r *Repo) ChangedPaths(id CommitID) ([]string, error) {
	paths, err := r.backend.ChangedPaths(id.Hex())
	if err != nil {
		if errors.Is(err, gitbackend.ErrObjectNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrUnknownCommit, id)
		}
		return nil, fmt.Errorf("%w: %w", ErrGraphRead, err)
	}
	return paths, nil
}
