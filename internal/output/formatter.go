package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/thiagokokada/vizjj-go/internal/query"
)

var (
	_ Writer = (*ConsoleWriter)(nil)
	_ Writer = (*JSONWriter)(nil)
	_ Writer = (*CSVWriter)(nil)
)

// Format is the output format of the log command.
type Format string

const (
	FormatConsole Format = "console"
	FormatJSON    Format = "json"
	FormatCSV     Format = "csv"
)

// Formats lists every supported format, in help order.
var Formats = []Format{FormatConsole, FormatJSON, FormatCSV}

func ParseFormat(raw string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(raw)))
	switch f {
	case FormatConsole, FormatJSON, FormatCSV:
		return f, nil
	case "":
		return FormatConsole, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want console, json or csv)", raw)
	}
}

type Options struct {
	// Color enables ANSI colors in the console and JSON writers.
	Color bool
	// Theme picks the highlighting style when Color is set.
	Theme Theme
}

// Writer renders a query result.
type Writer interface {
	Write(w io.Writer, res *query.Result) error
}

func NewWriter(format Format, opts Options) Writer {
	switch format {
	case FormatJSON:
		return &JSONWriter{opts: opts}
	case FormatCSV:
		return &CSVWriter{}
	default:
		return &ConsoleWriter{opts: opts}
	}
}

// subject is the first line of a description.
func subject(description string) string {
	line, _, _ := strings.Cut(description, "\n")
	return strings.TrimSpace(line)
}

func shortID(id string, n int) string {
	if len(id) <= n {
		return id
	}
	return id[:n]
}

func commitsOf(res *query.Result) []query.CommitRecord {
	if res == nil || res.Commits == nil {
		return []query.CommitRecord{}
	}
	return res.Commits
}
