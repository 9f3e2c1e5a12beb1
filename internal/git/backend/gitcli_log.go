package backend

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

// NUL-delimited records; commit message cannot contain NUL.
const logRecordFormat = "%H%n%P%n%an%n%ae%n%aI%n%cn%n%ce%n%cI%n%B%x00"

type gitLogStream struct {
	cancel context.CancelFunc
	wait   func() error
	stdout io.ReadCloser
	stderr bytes.Buffer
	r      *bufio.Reader

	waitOnce sync.Once
	waitErr  error
}

func (g *gitCLI) StartLogStream(heads []string) (LogStream, error) {
	if len(heads) == 0 {
		return emptyLogStream{}, nil
	}
	ctx, cancel := context.WithCancel(context.Background())
	cmd := g.command(
		ctx,
		"log",
		"--no-color",
		"--no-decorate",
		"--no-patch",
		// Use tformat to avoid git log adding an extra newline after each record.
		"--pretty=tformat:"+logRecordFormat,
		"--stdin",
	)
	// Heads go through stdin so large ref sets do not hit argv limits.
	cmd.Stdin = strings.NewReader(strings.Join(heads, "\n") + "\n")

	stream := &gitLogStream{cancel: cancel, wait: cmd.Wait}
	cmd.Stderr = &stream.stderr
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return nil, fmt.Errorf("git log stdout: %w", err)
	}
	stream.stdout = stdout
	stream.r = bufio.NewReader(stdout)
	if err := cmd.Start(); err != nil {
		cancel()
		_ = stdout.Close()
		if stream.stderr.Len() > 0 {
			return nil, fmt.Errorf("git log start: %v: %s", err, strings.TrimSpace(stream.stderr.String()))
		}
		return nil, fmt.Errorf("git log start: %w", err)
	}
	return stream, nil
}

func (s *gitLogStream) Next() (*Commit, error) {
	rec, err := s.r.ReadBytes(0)
	if err != nil {
		if err == io.EOF {
			if waitErr := s.finish(); waitErr != nil {
				return nil, waitErr
			}
			return nil, io.EOF
		}
		return nil, err
	}
	// Strip trailing NUL.
	rec = rec[:len(rec)-1]
	// git log prints a newline between commits even when the format ends with NUL,
	// so subsequent records can start with '\n'.
	rec = bytes.TrimLeft(rec, "\r\n")
	if len(rec) == 0 {
		return nil, fmt.Errorf("unexpected empty git log record")
	}
	return parseGitLogRecord(rec)
}

func (s *gitLogStream) Close() error {
	if s.cancel != nil {
		s.cancel()
	}
	if s.stdout != nil {
		_ = s.stdout.Close()
	}
	// Wait reports the kill from cancel; an early Close is not a failure.
	_ = s.finish()
	return nil
}

func (s *gitLogStream) finish() error {
	s.waitOnce.Do(func() {
		s.waitErr = s.wait()
	})
	if s.waitErr == nil {
		return nil
	}
	if s.stderr.Len() > 0 {
		return fmt.Errorf("git log: %v: %s", s.waitErr, strings.TrimSpace(s.stderr.String()))
	}
	return fmt.Errorf("git log: %w", s.waitErr)
}

type emptyLogStream struct{}

func (emptyLogStream) Next() (*Commit, error) { return nil, io.EOF }
func (emptyLogStream) Close() error           { return nil }

func parseGitLogRecord(rec []byte) (*Commit, error) {
	parts := strings.Split(string(rec), "\n")
	if len(parts) < 8 {
		return nil, fmt.Errorf("unexpected git log record: got %d lines", len(parts))
	}
	hashStr := strings.TrimSpace(parts[0])
	if hashStr == "" {
		return nil, fmt.Errorf("missing commit hash")
	}
	authorWhen, err := parseRecordTime(parts[4])
	if err != nil {
		return nil, fmt.Errorf("commit %s: author date: %w", hashStr, err)
	}
	committerWhen, err := parseRecordTime(parts[7])
	if err != nil {
		return nil, fmt.Errorf("commit %s: committer date: %w", hashStr, err)
	}
	message := ""
	if len(parts) > 8 {
		message = strings.Join(parts[8:], "\n")
	}
	return &Commit{
		Hash:         hashStr,
		ParentHashes: strings.Fields(parts[1]),
		Author:       Signature{Name: parts[2], Email: parts[3], When: authorWhen},
		Committer:    Signature{Name: parts[5], Email: parts[6], When: committerWhen},
		Message:      message,
	}, nil
}

func parseRecordTime(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339, raw)
}
