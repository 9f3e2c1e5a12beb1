package revset

import (
	"math"
	"time"

	"github.com/thiagokokada/vizjj-go/internal/git"
)

// expr is a lowered expression. Symbolic nodes (symbolExpr and friends) are
// replaced with commitsExpr during resolution.
type expr interface {
	isExpr()
}

// genRange is a half-open range of generations; parents are generation 1.
type genRange struct {
	lo, hi int
}

var allGenerations = genRange{lo: 0, hi: math.MaxInt}

func (g genRange) unbounded() bool { return g.lo == 0 && g.hi == math.MaxInt }

type trackFilter int

const (
	trackAny trackFilter = iota
	trackTracked
	trackUntracked
)

type (
	noneExpr         struct{}
	allExpr          struct{}
	visibleHeadsExpr struct{}
	rootExpr         struct{}
	symbolExpr       struct {
		name string
		span Span
	}
	remoteSymbolExpr struct {
		name, remote string
	}
	// workingCopyExpr with an empty workspace means the current workspace.
	workingCopyExpr struct {
		workspace string
	}
	commitsExpr struct {
		ids []git.CommitID
	}
	bookmarksExpr struct {
		pattern StringPattern
	}
	remoteBookmarksExpr struct {
		name, remote StringPattern
		tracked      trackFilter
	}
	tagsExpr struct {
		pattern StringPattern
	}
	gitRefsExpr       struct{}
	gitHeadExpr       struct{}
	workingCopiesExpr struct{}
	ancestorsExpr     struct {
		heads expr
		gen   genRange
	}
	descendantsExpr struct {
		roots expr
		gen   genRange
	}
	// rangeExpr is roots..heads: ancestors of heads that are not ancestors of roots.
	rangeExpr struct {
		roots, heads expr
	}
	// dagRangeExpr is roots::heads: descendants of roots that are ancestors of heads.
	dagRangeExpr struct {
		roots, heads expr
	}
	headsExpr struct {
		x expr
	}
	rootsExpr struct {
		x expr
	}
	latestExpr struct {
		x expr
		n int
	}
	presentExpr struct {
		x expr
	}
	filterExpr struct {
		pred predicate
	}
	unionExpr struct {
		a, b expr
	}
	intersectionExpr struct {
		a, b expr
	}
	differenceExpr struct {
		a, b expr
	}
)

func (noneExpr) isExpr()            {}
func (allExpr) isExpr()             {}
func (visibleHeadsExpr) isExpr()    {}
func (rootExpr) isExpr()            {}
func (symbolExpr) isExpr()          {}
func (remoteSymbolExpr) isExpr()    {}
func (workingCopyExpr) isExpr()     {}
func (commitsExpr) isExpr()         {}
func (bookmarksExpr) isExpr()       {}
func (remoteBookmarksExpr) isExpr() {}
func (tagsExpr) isExpr()            {}
func (gitRefsExpr) isExpr()         {}
func (gitHeadExpr) isExpr()         {}
func (workingCopiesExpr) isExpr()   {}
func (ancestorsExpr) isExpr()       {}
func (descendantsExpr) isExpr()     {}
func (rangeExpr) isExpr()           {}
func (dagRangeExpr) isExpr()        {}
func (headsExpr) isExpr()           {}
func (rootsExpr) isExpr()           {}
func (latestExpr) isExpr()          {}
func (presentExpr) isExpr()         {}
func (filterExpr) isExpr()          {}
func (unionExpr) isExpr()           {}
func (intersectionExpr) isExpr()    {}
func (differenceExpr) isExpr()      {}

// ParseContext carries everything parsing needs besides the text itself.
type ParseContext struct {
	Aliases *AliasMap
	// UserEmail backs mine().
	UserEmail string
	// Now anchors relative dates such as "2 days ago".
	Now time.Time
	// Workspace names the workspace "@" refers to.
	Workspace string
	// PathConverter converts files() arguments; nil treats them as
	// repository-relative.
	PathConverter *PathConverter
}

// Expression is a parsed and alias-expanded revset that still has to be
// resolved against a repository.
type Expression struct {
	root      expr
	workspace string
}

// Parse parses text, expands aliases and checks function usage.
func Parse(text string, ctx *ParseContext) (*Expression, error) {
	if ctx == nil {
		ctx = &ParseContext{}
	}
	tree, err := parseProgram(text)
	if err != nil {
		return nil, err
	}
	expanded, err := expandAliases(tree, ctx.Aliases)
	if err != nil {
		return nil, err
	}
	root, err := lower(expanded, ctx)
	if err != nil {
		return nil, err
	}
	workspace := ctx.Workspace
	if workspace == "" {
		workspace = git.DefaultWorkspace
	}
	return &Expression{root: root, workspace: workspace}, nil
}

// Root is root(), the virtual parent of every parentless commit.
func Root() *Expression {
	return &Expression{root: rootExpr{}, workspace: git.DefaultWorkspace}
}

// Ancestors returns ::e.
func (e *Expression) Ancestors() *Expression {
	return &Expression{root: ancestorsExpr{heads: e.root, gen: allGenerations}, workspace: e.workspace}
}

// Union returns e | other.
func (e *Expression) Union(other *Expression) *Expression {
	return &Expression{root: unionExpr{a: e.root, b: other.root}, workspace: e.workspace}
}
