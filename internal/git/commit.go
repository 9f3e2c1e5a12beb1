package git

import (
	"time"

	gitbackend "github.com/thiagokokada/vizjj-go/internal/git/backend"
)

type Signature struct {
	Name  string
	Email string
	When  time.Time
}

type Commit struct {
	ID          CommitID
	ChangeID    ChangeID
	Parents     []CommitID // in recorded order
	Author      Signature
	Committer   Signature
	Description string
	Conflict    bool
}

// IsMerge reports whether the commit has more than one parent.
func (c *Commit) IsMerge() bool { return len(c.Parents) > 1 }

func commitFromBackend(raw *gitbackend.Commit) (*Commit, error) {
	id, err := ParseCommitID(raw.Hash)
	if err != nil {
		return nil, err
	}
	parents := make([]CommitID, 0, len(raw.ParentHashes))
	for _, p := range raw.ParentHashes {
		pid, err := ParseCommitID(p)
		if err != nil {
			return nil, err
		}
		parents = append(parents, pid)
	}
	return &Commit{
		ID:          id,
		ChangeID:    ChangeIDFromCommit(id),
		Parents:     parents,
		Author:      Signature(raw.Author),
		Committer:   Signature(raw.Committer),
		Description: raw.Message,
		Conflict:    raw.Conflict,
	}, nil
}
