package query

import (
	"fmt"
	"slices"
	"strings"

	"github.com/thiagokokada/vizjj-go/internal/git"
)

type enricher struct {
	repo      *git.Repo
	immutable interface{ IsImmutable(git.CommitID) bool }
	// workspace whose working-copy commit gets IsWorkingCopy.
	workspace string
}

func (e *enricher) enrich(id git.CommitID) (CommitRecord, error) {
	c, err := e.repo.Commit(id)
	if err != nil {
		return CommitRecord{}, fmt.Errorf("read commit %s: %w", id.Short(), err)
	}
	view := e.repo.View()

	parents := make([]string, len(c.Parents))
	for i, p := range c.Parents {
		parents[i] = p.Hex()
	}
	wc, hasWC := view.WorkingCopy(e.workspace)

	return CommitRecord{
		ChangeID:      c.ChangeID.String(),
		CommitID:      c.ID.Hex(),
		AuthorEmail:   c.Author.Email,
		Timestamp:     c.Author.When.Format(TimestampLayout),
		Parents:       parents,
		IsImmutable:   e.immutable.IsImmutable(id),
		IsConflict:    c.Conflict,
		Description:   c.Description,
		Bookmarks:     joinNames(view.BookmarksFor(id)),
		Tags:          joinNames(view.TagsFor(id)),
		IsWorkingCopy: hasWC && wc == id,
	}, nil
}

func joinNames(names []string) string {
	sorted := slices.Clone(names)
	slices.Sort(sorted)
	return strings.Join(sorted, " ")
}
