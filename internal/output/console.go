package output

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"

	"github.com/thiagokokada/vizjj-go/internal/graph"
	"github.com/thiagokokada/vizjj-go/internal/query"
)

const (
	glyphWorkingCopy = "@"
	glyphImmutable   = "◆"
	glyphConflict    = "×"
	glyphMutable     = "○"

	shortIDLen    = 8
	noDescription = "(no description set)"
)

// ConsoleWriter prints one row per commit with the lane graph on the left.
type ConsoleWriter struct {
	opts Options
}

type palette struct {
	workingCopy *color.Color
	immutable   *color.Color
	conflict    *color.Color
	mutable     *color.Color
	changeID    *color.Color
	commitID    *color.Color
	author      *color.Color
	timestamp   *color.Color
	labels      *color.Color
	dim         *color.Color
}

func newPalette(enabled bool) palette {
	p := palette{
		workingCopy: color.New(color.FgGreen, color.Bold),
		immutable:   color.New(color.FgCyan),
		conflict:    color.New(color.FgRed, color.Bold),
		mutable:     color.New(color.FgWhite),
		changeID:    color.New(color.FgMagenta, color.Bold),
		commitID:    color.New(color.FgBlue),
		author:      color.New(color.FgYellow),
		timestamp:   color.New(color.FgCyan),
		labels:      color.New(color.FgMagenta),
		dim:         color.New(color.Faint),
	}
	for _, c := range []*color.Color{
		p.workingCopy, p.immutable, p.conflict, p.mutable, p.changeID,
		p.commitID, p.author, p.timestamp, p.labels, p.dim,
	} {
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

// Glyph is the graph node marker of a commit.
func Glyph(rec query.CommitRecord) string {
	switch {
	case rec.IsWorkingCopy:
		return glyphWorkingCopy
	case rec.IsConflict:
		return glyphConflict
	case rec.IsImmutable:
		return glyphImmutable
	default:
		return glyphMutable
	}
}

func (p palette) glyph(rec query.CommitRecord) string {
	g := Glyph(rec)
	switch g {
	case glyphWorkingCopy:
		return p.workingCopy.Sprint(g)
	case glyphConflict:
		return p.conflict.Sprint(g)
	case glyphImmutable:
		return p.immutable.Sprint(g)
	default:
		return p.mutable.Sprint(g)
	}
}

func (w *ConsoleWriter) Write(out io.Writer, res *query.Result) error {
	commits := commitsOf(res)
	p := newPalette(w.opts.Color)

	nodes := make([]graph.Node, len(commits))
	for i, rec := range commits {
		nodes[i] = graph.Node{ID: rec.CommitID, Parents: rec.Parents}
	}
	rows := graph.Layout(nodes)

	var prefixLens []int
	if res != nil && len(res.ChangeIDPrefixLens) == len(commits) {
		prefixLens = res.ChangeIDPrefixLens
	}

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	for i, rec := range commits {
		unique := 0
		if prefixLens != nil {
			unique = prefixLens[i]
		}
		prefix, rest := changeIDParts(rec.ChangeID, unique)
		desc := subject(rec.Description)
		if desc == "" {
			desc = p.dim.Sprint(noDescription)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			graph.Render(rows[i], p.glyph(rec)),
			p.changeID.Sprint(prefix)+p.dim.Sprint(rest),
			p.commitID.Sprint(shortID(rec.CommitID, shortIDLen)),
			p.author.Sprint(rec.AuthorEmail),
			p.timestamp.Sprint(rec.Timestamp),
			p.labels.Sprint(labels(rec)),
			desc,
		)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	if res != nil && res.Truncated {
		if _, err := fmt.Fprintln(out, p.dim.Sprintf("(showing the first %d commits)", len(commits))); err != nil {
			return err
		}
	}
	return nil
}

// changeIDParts splits the displayed change id into the prefix that
// identifies the commit and the remainder. The display grows past shortIDLen
// when the prefix needs it; unique <= 0 means the prefix is unknown.
func changeIDParts(id string, unique int) (prefix, rest string) {
	shown := shortID(id, max(shortIDLen, unique))
	if unique <= 0 || unique >= len(shown) {
		return shown, ""
	}
	return shown[:unique], shown[unique:]
}

func labels(rec query.CommitRecord) string {
	var parts []string
	if rec.Bookmarks != "" {
		parts = append(parts, rec.Bookmarks)
	}
	if rec.Tags != "" {
		parts = append(parts, rec.Tags)
	}
	return strings.Join(parts, " ")
}
