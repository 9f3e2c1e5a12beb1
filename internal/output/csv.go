package output

import (
	"encoding/csv"
	"io"
	"strconv"
	"strings"

	"github.com/thiagokokada/vizjj-go/internal/query"
)

// CSVWriter writes one header row and one row per commit. Parents are
// space-separated.
type CSVWriter struct{}

var csvHeader = []string{
	"change_id", "commit_id", "author_email", "timestamp", "parents",
	"is_immutable", "is_conflict", "description", "bookmarks", "tags",
	"is_working_copy",
}

func (w *CSVWriter) Write(out io.Writer, res *query.Result) error {
	writer := csv.NewWriter(out)
	if err := writer.Write(csvHeader); err != nil {
		return err
	}
	for _, rec := range commitsOf(res) {
		row := []string{
			rec.ChangeID,
			rec.CommitID,
			rec.AuthorEmail,
			rec.Timestamp,
			strings.Join(rec.Parents, " "),
			strconv.FormatBool(rec.IsImmutable),
			strconv.FormatBool(rec.IsConflict),
			rec.Description,
			rec.Bookmarks,
			rec.Tags,
			strconv.FormatBool(rec.IsWorkingCopy),
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}
