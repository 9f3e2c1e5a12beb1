package git

import "errors"

var (
	// ErrLoad reports that the repository could not be opened or indexed.
	ErrLoad = errors.New("load repository")
	// ErrUnknownCommit reports a commit id absent from the store.
	ErrUnknownCommit = errors.New("unknown commit")
	// ErrGraphRead reports a storage failure while walking the graph.
	ErrGraphRead = errors.New("read commit graph")
)
