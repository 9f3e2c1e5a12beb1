package backend

import "time"

type Signature struct {
	Name  string
	Email string
	When  time.Time
}

// Commit is the raw commit data read from the store. Conflict is only
// populated by ReadCommit; log streams leave it false.
type Commit struct {
	Hash         string
	ParentHashes []string
	Author       Signature
	Committer    Signature
	Message      string
	Conflict     bool
}

type RefKind uint8

const (
	RefKindBranch RefKind = iota
	RefKindRemoteBranch
	RefKindTag
	// RefKindKeep refs stop git from collecting commits jj still needs,
	// including the working-copy commit, which no branch points at.
	RefKindKeep
)

const keepRefPrefix = "refs/jj/keep/"

func (k RefKind) String() string {
	switch k {
	case RefKindBranch:
		return "branch"
	case RefKindRemoteBranch:
		return "remote-branch"
	case RefKindTag:
		return "tag"
	case RefKindKeep:
		return "keep"
	default:
		return "unknown"
	}
}

type Ref struct {
	Hash string // peeled commit hash for tags
	Kind RefKind
	Name string // short name: main, origin/main, v1; the ref suffix for keep refs
}

// conflictEntryPrefix marks the extra trees jj writes into the root tree of a
// conflicted commit when it is stored in a git backend.
const conflictEntryPrefix = ".jjconflict"
