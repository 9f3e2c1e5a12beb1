package query

import (
	"errors"

	"github.com/thiagokokada/vizjj-go/internal/config"
	"github.com/thiagokokada/vizjj-go/internal/git"
	"github.com/thiagokokada/vizjj-go/internal/revset"
	"github.com/thiagokokada/vizjj-go/internal/workspace"
)

// ErrorKind names the failure category of a query error, for callers that
// report it next to the message. Unknown errors map to "internal".
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, workspace.ErrNotFound), errors.Is(err, workspace.ErrUnsupportedStore):
		return "path-resolution"
	case errors.Is(err, config.ErrConfig):
		return "config"
	case errors.Is(err, revset.ErrSyntax):
		return "expression-syntax"
	case errors.Is(err, revset.ErrResolution):
		return "symbol-resolution"
	case errors.Is(err, git.ErrUnknownCommit):
		return "unknown-commit"
	case errors.Is(err, git.ErrGraphRead):
		return "graph-read"
	case errors.Is(err, git.ErrLoad):
		return "load"
	}
	return "internal"
}
