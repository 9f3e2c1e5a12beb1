package cmd

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/thiagokokada/vizjj-go/internal/query"
	"github.com/thiagokokada/vizjj-go/internal/testutil"
)

// isolate keeps user-level jj config and UI settings out of the test.
func isolate(t *testing.T) string {
	t.Helper()
	t.Setenv("JJ_CONFIG", t.TempDir())
	settings := filepath.Join(t.TempDir(), "settings.json")
	t.Setenv("VIZJJ_SETTINGS", settings)
	return settings
}

func runCLI(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	err := run(context.Background(), append([]string{appName}, args...), &stdout, &stderr)
	return stdout.String(), stderr.String(), err
}

func sampleRepo(t *testing.T) (*testutil.Repo, string, string) {
	t.Helper()
	r := testutil.NewRepo(t)
	a := r.Commit("root commit")
	b := r.Commit("second commit\n\nbody", a)
	r.Branch("main", b)
	r.Checkout("main")
	return r, a.String(), b.String()
}

func TestLogCSV(t *testing.T) {
	isolate(t)
	r, a, b := sampleRepo(t)

	out, _, err := runCLI(t, "log", "--format", "csv", "--color", "never", r.Dir)
	if err != nil {
		t.Fatalf("log error = %v", err)
	}
	rows, err := csv.NewReader(strings.NewReader(out)).ReadAll()
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("got %d rows, want 3: %q", len(rows), out)
	}
	if rows[1][1] != b || rows[2][1] != a {
		t.Fatalf("commit order = %s, %s; want %s, %s", rows[1][1], rows[2][1], b, a)
	}
	if rows[1][8] != "main" || rows[1][10] != "true" {
		t.Fatalf("head row = %q", rows[1])
	}
}

func TestLogJSONWithRevset(t *testing.T) {
	isolate(t)
	r, _, b := sampleRepo(t)

	out, _, err := runCLI(t, "log", "-r", "main", "--format", "json", "--color", "never", r.Dir)
	if err != nil {
		t.Fatalf("log error = %v", err)
	}
	var recs []query.CommitRecord
	if err := json.Unmarshal([]byte(out), &recs); err != nil {
		t.Fatalf("json.Unmarshal() error = %v, output %q", err, out)
	}
	if len(recs) != 1 || recs[0].CommitID != b {
		t.Fatalf("records = %+v", recs)
	}
	if recs[0].Description != "second commit\n\nbody" {
		t.Fatalf("description = %q", recs[0].Description)
	}
}

func TestLogConsoleIsDefault(t *testing.T) {
	isolate(t)
	r, _, b := sampleRepo(t)

	out, _, err := runCLI(t, "log", "--color", "never", "-n", "1", r.Dir)
	if err != nil {
		t.Fatalf("log error = %v", err)
	}
	lines := strings.Split(strings.TrimSuffix(out, "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want a row and a truncation note: %q", len(lines), out)
	}
	if !strings.HasPrefix(lines[0], "@ ") || !strings.Contains(lines[0], b[:8]) || !strings.HasSuffix(lines[0], "second commit") {
		t.Fatalf("row = %q", lines[0])
	}
	if strings.Contains(out, "\x1b[") {
		t.Fatalf("--color never printed escape codes")
	}
}

func TestLogErrors(t *testing.T) {
	isolate(t)
	r, _, _ := sampleRepo(t)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"syntax", []string{"log", "-r", "main(", r.Dir}, "expression-syntax error"},
		{"unknown symbol", []string{"log", "-r", "nope", r.Dir}, "symbol-resolution error"},
		{"not a workspace", []string{"log", t.TempDir()}, "path-resolution error"},
		{"bad format", []string{"log", "--format", "xml", r.Dir}, "unknown output format"},
		{"bad color", []string{"log", "--color", "sometimes", r.Dir}, "unknown color mode"},
		{"bad backend", []string{"log", "--backend", "svn", r.Dir}, "svn"},
		{"negative limit", []string{"log", "-n", "-1", r.Dir}, "must not be negative"},
		{"two paths", []string{"log", r.Dir, r.Dir}, "at most one path"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := runCLI(t, tc.args...)
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("error = %v, want it to contain %q", err, tc.want)
			}
		})
	}
}

func TestVerboseLogsQuery(t *testing.T) {
	isolate(t)
	r, _, _ := sampleRepo(t)

	_, stderr, err := runCLI(t, "--verbose", "log", "--color", "never", r.Dir)
	if err != nil {
		t.Fatalf("log error = %v", err)
	}
	if !strings.Contains(stderr, "query finished") || !strings.Contains(stderr, "query_id=") {
		t.Fatalf("stderr = %q, want the debug query log", stderr)
	}

	_, stderr, err = runCLI(t, "log", "--color", "never", r.Dir)
	if err != nil {
		t.Fatalf("log error = %v", err)
	}
	if strings.Contains(stderr, "query finished") {
		t.Fatalf("debug log printed without --verbose: %q", stderr)
	}
}

func TestSettingsCommands(t *testing.T) {
	path := isolate(t)

	if _, _, err := runCLI(t, "settings", "set", "theme", "dark"); err != nil {
		t.Fatalf("settings set error = %v", err)
	}
	out, _, err := runCLI(t, "--settings-file", path, "settings", "get", "theme")
	if err != nil {
		t.Fatalf("settings get error = %v", err)
	}
	if out != "dark\n" {
		t.Fatalf("settings get = %q, want %q", out, "dark\n")
	}
	out, _, err = runCLI(t, "settings", "list")
	if err != nil {
		t.Fatalf("settings list error = %v", err)
	}
	if want := "theme = dark\nfont_size = 18\n"; out != want {
		t.Fatalf("settings list = %q, want %q", out, want)
	}
	if _, _, err := runCLI(t, "settings", "set", "zoom", "2"); err == nil || !strings.Contains(err.Error(), "unknown setting") {
		t.Fatalf("settings set zoom error = %v", err)
	}
	if _, _, err := runCLI(t, "settings", "get"); err == nil {
		t.Fatalf("settings get without a key succeeded")
	}
}

func TestVersion(t *testing.T) {
	out, _, err := runCLI(t, "--version")
	if err != nil {
		t.Fatalf("--version error = %v", err)
	}
	if !strings.HasPrefix(out, appName+" version ") {
		t.Fatalf("--version = %q", out)
	}
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestLogWatchStopsOnCancel(t *testing.T) {
	isolate(t)
	r, _, b := sampleRepo(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	stdout := &syncBuffer{}
	done := make(chan error, 1)
	go func() {
		done <- run(ctx, []string{appName, "log", "--watch", "--format", "csv", r.Dir}, stdout, &bytes.Buffer{})
	}()

	deadline := time.Now().Add(5 * time.Second)
	for !strings.Contains(stdout.String(), b) {
		if time.Now().After(deadline) {
			t.Fatalf("no initial rendering: %q", stdout.String())
		}
		time.Sleep(10 * time.Millisecond)
	}
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("log --watch error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("log --watch did not stop")
	}
}
