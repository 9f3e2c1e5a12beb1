// Package watch re-runs a rendering whenever the repository metadata changes
// and reports what changed as a unified diff.
package watch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/pmezard/go-difflib/difflib"

	"github.com/thiagokokada/vizjj-go/internal/debounce"
)

// DefaultDelay is how long the metadata must stay quiet before a reload.
const DefaultDelay = 350 * time.Millisecond

// Render produces the text whose changes are reported.
type Render func() (string, error)

type Options struct {
	// Paths are the directories to watch. Subdirectories are not followed.
	Paths  []string
	Delay  time.Duration
	Out    io.Writer
	Logger *slog.Logger
}

// Run prints the first rendering in full, then a diff after every change
// that alters it. A failed reload is reported and watching continues; only
// the first rendering's error is returned. Run returns nil once ctx is done.
func Run(ctx context.Context, render Render, opts Options) error {
	if opts.Delay <= 0 {
		opts.Delay = DefaultDelay
	}
	if opts.Out == nil {
		opts.Out = io.Discard
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	prev, err := render()
	if err != nil {
		return err
	}
	if _, err := io.WriteString(opts.Out, prev); err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("fsnotify: %w", err)
	}
	defer func() {
		if err := watcher.Close(); err != nil {
			logger.Error("watcher close", slog.Any("error", err))
		}
	}()
	for _, path := range opts.Paths {
		logger.Debug("adding path to FS watcher", slog.String("path", path))
		if err := watcher.Add(path); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
	}

	reload := make(chan struct{}, 1)
	d := debounce.New(opts.Delay, func() {
		select {
		case reload <- struct{}{}:
		default:
		}
	})
	defer d.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !relevant(ev) {
				continue
			}
			logger.Debug("fsnotify event",
				slog.String("op", ev.Op.String()),
				slog.String("path", ev.Name),
			)
			d.Trigger()
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Error("fsnotify error", slog.Any("error", err))
		case <-reload:
			next, err := render()
			if err != nil {
				logger.Error("reload failed", slog.Any("error", err))
				if _, werr := fmt.Fprintf(opts.Out, "reload failed: %v\n", err); werr != nil {
					return werr
				}
				continue
			}
			diff, err := Diff(prev, next)
			if err != nil {
				return err
			}
			prev = next
			if diff == "" {
				logger.Debug("reload produced no changes")
				continue
			}
			if _, err := io.WriteString(opts.Out, diff); err != nil {
				return err
			}
		}
	}
}

func relevant(ev fsnotify.Event) bool {
	if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return false
	}
	return !shouldIgnorePath(ev.Name)
}

// shouldIgnorePath skips lock and IPC files, which change on every command
// without changing what a query sees.
func shouldIgnorePath(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".lock" || ext == ".ipc"
}

// Diff is the unified diff from prev to next, or "" when they are equal.
func Diff(prev, next string) (string, error) {
	if prev == next {
		return "", nil
	}
	text, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(prev),
		B:        difflib.SplitLines(next),
		FromFile: "previous",
		ToFile:   "current",
		Context:  3,
	})
	if err != nil {
		return "", fmt.Errorf("diff renderings: %w", err)
	}
	if text != "" && !strings.HasSuffix(text, "\n") {
		text += "\n"
	}
	return text, nil
}
