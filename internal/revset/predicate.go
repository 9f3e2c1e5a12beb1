package revset

import (
	"errors"
	"fmt"
	"strings"

	"github.com/thiagokokada/vizjj-go/internal/git"
)

// predicate filters commits by their contents. Predicates that need more
// than the index load the commit, so they can fail with git.ErrGraphRead.
type predicate interface {
	match(repo *git.Repo, pos int) (bool, error)
}

type commitField int

const (
	fieldDescription commitField = iota
	fieldSubject
	fieldAuthorName
	fieldAuthorEmail
	fieldCommitterName
	fieldCommitterEmail
)

func (f commitField) value(c *git.Commit) string {
	switch f {
	case fieldDescription:
		return c.Description
	case fieldSubject:
		subject, _, _ := strings.Cut(c.Description, "\n")
		return subject
	case fieldAuthorName:
		return c.Author.Name
	case fieldAuthorEmail:
		return c.Author.Email
	case fieldCommitterName:
		return c.Committer.Name
	case fieldCommitterEmail:
		return c.Committer.Email
	}
	return ""
}

// textPredicate matches when any of fields matches pattern.
type textPredicate struct {
	fields  []commitField
	pattern StringPattern
}

func (p textPredicate) match(repo *git.Repo, pos int) (bool, error) {
	c, err := loadCommit(repo, pos)
	if err != nil {
		return false, err
	}
	for _, f := range p.fields {
		if p.pattern.Match(f.value(c)) {
			return true, nil
		}
	}
	return false, nil
}

type datePredicate struct {
	committer bool
	pattern   DatePattern
}

func (p datePredicate) match(repo *git.Repo, pos int) (bool, error) {
	if p.committer {
		return p.pattern.Match(repo.Index().CommitterTime(pos)), nil
	}
	c, err := loadCommit(repo, pos)
	if err != nil {
		return false, err
	}
	return p.pattern.Match(c.Author.When), nil
}

type mergesPredicate struct{}

func (mergesPredicate) match(repo *git.Repo, pos int) (bool, error) {
	c, err := loadCommit(repo, pos)
	if err != nil {
		return false, err
	}
	return c.IsMerge(), nil
}

type conflictsPredicate struct{}

func (conflictsPredicate) match(repo *git.Repo, pos int) (bool, error) {
	c, err := loadCommit(repo, pos)
	if err != nil {
		return false, err
	}
	return c.Conflict, nil
}

type filesPredicate struct {
	matchers []fileMatcher
}

func (p filesPredicate) match(repo *git.Repo, pos int) (bool, error) {
	paths, err := repo.ChangedPaths(repo.Index().ID(pos))
	if err != nil {
		return false, graphReadError(err)
	}
	for _, path := range paths {
		for _, m := range p.matchers {
			if m.Match(path) {
				return true, nil
			}
		}
	}
	return false, nil
}

func loadCommit(repo *git.Repo, pos int) (*git.Commit, error) {
	c, err := repo.Commit(repo.Index().ID(pos))
	if err != nil {
		return nil, graphReadError(err)
	}
	return c, nil
}

// graphReadError marks a load failure during evaluation as a graph read
// error. A commit vanishing mid-walk is a storage failure too.
func graphReadError(err error) error {
	if errors.Is(err, git.ErrGraphRead) {
		return err
	}
	return fmt.Errorf("%w: %w", git.ErrGraphRead, err)
}
