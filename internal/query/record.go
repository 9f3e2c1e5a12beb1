package query

// CommitRecord is one row of a query result, in the shape the presentation
// layer consumes.
type CommitRecord struct {
	ChangeID      string   `json:"change_id"`
	CommitID      string   `json:"commit_id"`
	AuthorEmail   string   `json:"author_email"`
	Timestamp     string   `json:"timestamp"`
	Parents       []string `json:"parents"`
	IsImmutable   bool     `json:"is_immutable"`
	IsConflict    bool     `json:"is_conflict"`
	Description   string   `json:"description"`
	Bookmarks     string   `json:"bookmarks"`
	Tags          string   `json:"tags"`
	IsWorkingCopy bool     `json:"is_working_copy"`
}

// TimestampLayout is the fixed, locale-independent format of
// CommitRecord.Timestamp. Times keep the author's own offset.
const TimestampLayout = "2006-01-02 15:04:05.000 -07:00"
