package query

import (
	"fmt"
	"log/slog"

	"github.com/thiagokokada/vizjj-go/internal/git"
	"github.com/thiagokokada/vizjj-go/internal/revset"
)

// ImmutableHeadsExpr names the protected heads; users redefine it through
// revset-aliases.
const ImmutableHeadsExpr = "immutable_heads()"

// classifier answers whether a commit is in ::(immutable_heads() | root()).
// The root commit is always protected, whatever the alias says. The closure is
// evaluated once and memoized.
type classifier struct {
	contains func(git.CommitID) (bool, error)
	logger   *slog.Logger
}

func newClassifier(repo *git.Repo, ctx *revset.ParseContext, logger *slog.Logger) (*classifier, error) {
	heads, err := revset.Parse(ImmutableHeadsExpr, ctx)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", ImmutableHeadsExpr, err)
	}
	rs, err := heads.Union(revset.Root()).Ancestors().Evaluate(repo)
	if err != nil {
		return nil, fmt.Errorf("evaluate %s: %w", ImmutableHeadsExpr, err)
	}
	return &classifier{contains: rs.ContainingFn(), logger: logger}, nil
}

// IsImmutable never fails: when membership cannot be decided the commit is
// treated as immutable.
func (c *classifier) IsImmutable(id git.CommitID) bool {
	in, err := c.contains(id)
	if err != nil {
		c.logger.Debug("immutability undecidable, assuming immutable",
			slog.String("commit_id", id.Hex()),
			slog.Any("error", err),
		)
		return true
	}
	return in
}
