package query

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/thiagokokada/vizjj-go/internal/config"
	"github.com/thiagokokada/vizjj-go/internal/git"
	gitbackend "github.com/thiagokokada/vizjj-go/internal/git/backend"
	"github.com/thiagokokada/vizjj-go/internal/revset"
	"github.com/thiagokokada/vizjj-go/internal/workspace"
)

// DefaultRevset selects every ancestor of the visible heads.
const DefaultRevset = "::"

type Options struct {
	// Revset is the filter expression; empty means DefaultRevset.
	Revset string
	// Limit lowers the result cap further; zero keeps the configured one.
	Limit int
	// Backend picks the git data source; empty means native.
	Backend   gitbackend.Kind
	Factories gitbackend.Factories
	// Env is the environment configuration is read from; the zero value
	// means the process environment.
	Env    config.Env
	Logger *slog.Logger
	Now    func() time.Time
}

// Engine runs queries. Every call opens a fresh snapshot of the repository,
// so concurrent calls share no state.
type Engine struct {
	opts Options
}

func New(opts Options) *Engine {
	if opts.Revset == "" {
		opts.Revset = DefaultRevset
	}
	if opts.Backend == "" {
		opts.Backend = gitbackend.KindNative
	}
	if opts.Env.Getenv == nil && opts.Env.HomeDir == nil {
		opts.Env = config.OSEnv()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Engine{opts: opts}
}

// Result is a query outcome together with the workspace it was run in.
type Result struct {
	Workspace *workspace.Workspace
	Commits   []CommitRecord
	// Truncated is set when the cap cut the result short.
	Truncated bool
	// ChangeIDPrefixLens holds, per record, how many change-id characters
	// tell it apart from every other commit in the repository.
	ChangeIDPrefixLens []int
}

// GetCommits runs the default query for the workspace enclosing cwd.
func GetCommits(cwd string) ([]CommitRecord, error) {
	res, err := New(Options{}).Run(cwd)
	if err != nil {
		return nil, err
	}
	return res.Commits, nil
}

// Run resolves the workspace enclosing cwd, evaluates the filter expression
// and returns at most the configured number of enriched commits in
// evaluation order. Any failure aborts the whole query.
func (e *Engine) Run(cwd string) (*Result, error) {
	logger := e.opts.Logger.With(slog.String("query_id", uuid.NewString()))
	start := time.Now()

	ws, err := workspace.Find(cwd)
	if err != nil {
		return nil, fmt.Errorf("resolve workspace: %w", err)
	}
	settings, err := config.Load(ws.RepoDir, e.opts.Env)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	repo, err := git.Load(git.LoadOptions{
		GitDir:        ws.GitDir,
		WorkspaceName: ws.Name,
		Backend:       e.opts.Backend,
		HeadIsParent:  ws.Kind != workspace.KindGit,
		Factories:     e.opts.Factories,
	})
	if err != nil {
		return nil, err
	}

	aliases, err := revset.NewAliasMapFrom(settings.RevsetAliases)
	if err != nil {
		return nil, fmt.Errorf("load config: %w: revset-aliases: %w", config.ErrConfig, err)
	}
	parseCtx := &revset.ParseContext{
		Aliases:   aliases,
		UserEmail: settings.UserEmail,
		Now:       e.opts.Now(),
		Workspace: ws.Name,
		PathConverter: &revset.PathConverter{
			Cwd:  absCwd(cwd, ws.Root),
			Root: ws.Root,
		},
	}

	filter, err := revset.Parse(e.opts.Revset, parseCtx)
	if err != nil {
		return nil, fmt.Errorf("parse revset %q: %w", e.opts.Revset, err)
	}
	immutable, err := newClassifier(repo, parseCtx, logger)
	if err != nil {
		return nil, err
	}
	rs, err := filter.Evaluate(repo)
	if err != nil {
		return nil, fmt.Errorf("evaluate revset %q: %w", e.opts.Revset, err)
	}

	maxCommits := settings.LogLimit
	if e.opts.Limit > 0 {
		maxCommits = min(maxCommits, e.opts.Limit)
	}
	enr := &enricher{repo: repo, immutable: immutable, workspace: ws.Name}
	res := &Result{Workspace: ws}
	// One extra item is pulled to tell whether the cap truncated the result.
	for id, err := range limit(rs.Iter(), maxCommits+1) {
		if len(res.Commits) == maxCommits {
			res.Truncated = true
			break
		}
		if err != nil {
			return nil, fmt.Errorf("evaluate revset %q: %w", e.opts.Revset, err)
		}
		rec, err := enr.enrich(id)
		if err != nil {
			return nil, err
		}
		res.Commits = append(res.Commits, rec)
		if pos, ok := repo.Index().Position(id); ok {
			res.ChangeIDPrefixLens = append(res.ChangeIDPrefixLens, repo.Index().ShortestUniqueChangePrefixLen(pos))
		} else {
			res.ChangeIDPrefixLens = append(res.ChangeIDPrefixLens, 0)
		}
	}

	logger.Debug("query finished",
		slog.String("root", ws.Root),
		slog.String("revset", e.opts.Revset),
		slog.Int("commits", len(res.Commits)),
		slog.Bool("truncated", res.Truncated),
		slog.Duration("elapsed", time.Since(start)),
	)
	return res, nil
}

// absCwd canonicalizes cwd the way the workspace resolver does, so paths in
// files() are relative to the same root.
func absCwd(cwd, root string) string {
	abs, err := filepath.Abs(cwd)
	if err != nil {
		return root
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		abs = resolved
	}
	if info, err := os.Stat(abs); err == nil && !info.IsDir() {
		abs = filepath.Dir(abs)
	}
	return abs
}
