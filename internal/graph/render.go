package graph

import "strings"

// Render draws one row as text: glyph in the commit's lane, a bar for
// every lane passing through and a corner where a merge or fork lands.
// Lanes are separated by a space.
func Render(row Row, glyph string) string {
	width := row.Column + 1
	for _, p := range row.Paths {
		width = max(width, p.From+1, p.To+1)
	}
	cells := make([]string, width)
	for i := range cells {
		cells[i] = " "
	}
	for _, p := range row.Paths {
		switch {
		case p.To == row.Column:
		case p.Kind == Straight && p.From == p.To:
			cells[p.To] = "│"
		case p.To > row.Column:
			cells[p.To] = "╮"
		default:
			cells[p.To] = "╭"
		}
	}
	cells[row.Column] = glyph
	return strings.TrimRight(strings.Join(cells, " "), " ")
}
