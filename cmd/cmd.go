package cmd

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/signal"

	"github.com/urfave/cli/v2"

	"github.com/thiagokokada/vizjj-go/internal/buildinfo"
	"github.com/thiagokokada/vizjj-go/internal/prefs"
)

const appName = "vizjj-go"

func Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	return run(ctx, os.Args, os.Stdout, os.Stderr)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	return App(stdout, stderr).RunContext(ctx, args)
}

// App builds the command line application writing to stdout and stderr.
func App(stdout, stderr io.Writer) *cli.App {
	return &cli.App{
		Name:                 appName,
		Usage:                "Browse the commit graph of a jj workspace",
		Version:              buildinfo.VersionWithTags(),
		Writer:               stdout,
		ErrWriter:            stderr,
		EnableBashCompletion: true,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "enable verbose logging",
			},
			&cli.StringFlag{
				Name:    "settings-file",
				Usage:   "path of the UI settings file",
				EnvVars: []string{"VIZJJ_SETTINGS"},
			},
		},
		Before: func(c *cli.Context) error {
			configureLogging(c.App.ErrWriter, c.Bool("verbose"))
			return nil
		},
		Commands: []*cli.Command{
			LogCmd(),
			SettingsCmd(),
		},
		DefaultCommand: "log",
	}
}

func configureLogging(w io.Writer, verbose bool) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})))
}

func settingsStore(c *cli.Context) (*prefs.Store, error) {
	if path := c.String("settings-file"); path != "" {
		return &prefs.Store{Path: path}, nil
	}
	path, err := prefs.DefaultPath()
	if err != nil {
		return nil, err
	}
	return &prefs.Store{Path: path}, nil
}
