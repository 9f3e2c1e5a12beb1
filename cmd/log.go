package cmd

import (
	"bytes"
	"fmt"
	"log/slog"
	"strings"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"

	gitbackend "github.com/thiagokokada/vizjj-go/internal/git/backend"
	"github.com/thiagokokada/vizjj-go/internal/output"
	"github.com/thiagokokada/vizjj-go/internal/query"
	"github.com/thiagokokada/vizjj-go/internal/watch"
	"github.com/thiagokokada/vizjj-go/internal/workspace"
)

// LogCmd returns the log command.
func LogCmd() *cli.Command {
	return &cli.Command{
		Name:      "log",
		Usage:     "Show the commits selected by a revset",
		ArgsUsage: "[path]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "revisions",
				Aliases: []string{"r"},
				Usage:   "revset selecting the commits to show",
				Value:   query.DefaultRevset,
			},
			&cli.IntFlag{
				Name:    "limit",
				Aliases: []string{"n"},
				Usage:   "show at most this many commits (0 keeps the configured limit)",
			},
			&cli.StringFlag{
				Name:  "format",
				Usage: "output format (console, json, csv)",
				Value: string(output.FormatConsole),
			},
			&cli.StringFlag{
				Name:  "color",
				Usage: "when to use colors (auto, always, never)",
				Value: "auto",
			},
			&cli.StringFlag{
				Name:  "backend",
				Usage: "git data source (native, gitcli)",
				Value: string(gitbackend.KindNative),
			},
			&cli.BoolFlag{
				Name:  "watch",
				Usage: "keep running and print a diff whenever the repository changes",
			},
		},
		Action: logAction,
	}
}

func logAction(c *cli.Context) error {
	path := "."
	if c.NArg() > 1 {
		return fmt.Errorf("log takes at most one path, got %d", c.NArg())
	}
	if c.NArg() == 1 {
		path = c.Args().First()
	}
	format, err := output.ParseFormat(c.String("format"))
	if err != nil {
		return err
	}
	useColor, err := colorEnabled(c.String("color"))
	if err != nil {
		return err
	}
	backend, err := gitbackend.ParseKind(c.String("backend"))
	if err != nil {
		return err
	}
	if c.Int("limit") < 0 {
		return fmt.Errorf("--limit must not be negative, got %d", c.Int("limit"))
	}

	writer := output.NewWriter(format, output.Options{
		Color: useColor,
		Theme: theme(c),
	})
	engine := query.New(query.Options{
		Revset:  c.String("revisions"),
		Limit:   c.Int("limit"),
		Backend: backend,
		Logger:  slog.Default(),
	})
	render := func() (string, error) {
		res, err := engine.Run(path)
		if err != nil {
			return "", queryError(err)
		}
		var buf bytes.Buffer
		if err := writer.Write(&buf, res); err != nil {
			return "", err
		}
		return buf.String(), nil
	}

	if !c.Bool("watch") {
		text, err := render()
		if err != nil {
			return err
		}
		_, err = fmt.Fprint(c.App.Writer, text)
		return err
	}

	ws, err := workspace.Find(path)
	if err != nil {
		return queryError(fmt.Errorf("resolve workspace: %w", err))
	}
	return watch.Run(c.Context, render, watch.Options{
		Paths:  ws.WatchPaths(),
		Out:    c.App.Writer,
		Logger: slog.Default(),
	})
}

// queryError prefixes a query failure with its category.
func queryError(err error) error {
	return fmt.Errorf("%s error: %w", query.ErrorKind(err), err)
}

func colorEnabled(mode string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "always":
		return true, nil
	case "never":
		return false, nil
	case "auto", "":
		return !color.NoColor, nil
	default:
		return false, fmt.Errorf("unknown color mode %q (want auto, always or never)", mode)
	}
}

// theme reads the theme preference. A broken settings file only costs the
// preference.
func theme(c *cli.Context) output.Theme {
	store, err := settingsStore(c)
	if err != nil {
		slog.Warn("settings unavailable", slog.Any("error", err))
		return output.ThemeSystem
	}
	settings, err := store.Load()
	if err != nil {
		slog.Warn("settings unavailable", slog.Any("error", err))
		return output.ThemeSystem
	}
	t, err := output.ParseTheme(settings.Theme)
	if err != nil {
		return output.ThemeSystem
	}
	return t
}
