package output

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"

	"github.com/thiagokokada/vizjj-go/internal/query"
)

// JSONWriter prints the records as an indented JSON array, highlighted when
// color is on.
type JSONWriter struct {
	opts Options
}

func (w *JSONWriter) Write(out io.Writer, res *query.Result) error {
	data, err := json.MarshalIndent(commitsOf(res), "", "  ")
	if err != nil {
		return fmt.Errorf("marshal commits: %w", err)
	}
	data = append(data, '\n')
	if !w.opts.Color {
		_, err := out.Write(data)
		return err
	}
	return highlightJSON(out, string(data), w.opts.Theme)
}

func highlightJSON(out io.Writer, source string, theme Theme) error {
	lexer := lexers.Get("json")
	if lexer == nil {
		lexer = lexers.Fallback
	}
	formatter := formatters.Get("terminal256")
	if formatter == nil {
		formatter = formatters.Fallback
	}
	iterator, err := chroma.Coalesce(lexer).Tokenise(nil, source)
	if err != nil {
		return fmt.Errorf("highlight json: %w", err)
	}
	return formatter.Format(out, styleForTheme(theme), iterator)
}
