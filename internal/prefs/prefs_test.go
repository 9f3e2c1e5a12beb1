package prefs

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	return &Store{Path: filepath.Join(t.TempDir(), "nested", FileName)}
}

func TestLoadMissingFileGivesDefaults(t *testing.T) {
	t.Parallel()

	got, err := newStore(t).Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got != Defaults() {
		t.Fatalf("Load() = %+v, want %+v", got, Defaults())
	}
	if got.Theme != "system" || got.FontSize != 18 {
		t.Fatalf("Defaults() = %+v", got)
	}
}

func TestUpdateRoundTrip(t *testing.T) {
	t.Parallel()

	s := newStore(t)
	if _, err := s.Update("theme", "Dark"); err != nil {
		t.Fatalf("Update(theme) error = %v", err)
	}
	if _, err := s.Update("font_size", "22"); err != nil {
		t.Fatalf("Update(font_size) error = %v", err)
	}
	got, err := s.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if want := (Settings{Theme: "dark", FontSize: 22}); got != want {
		t.Fatalf("Load() = %+v, want %+v", got, want)
	}
	data, err := os.ReadFile(s.Path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if !strings.Contains(string(data), `"font_size": 22`) {
		t.Fatalf("settings file = %s", data)
	}
}

func TestPartialFileKeepsDefaults(t *testing.T) {
	t.Parallel()

	s := newStore(t)
	if err := os.MkdirAll(filepath.Dir(s.Path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(s.Path, []byte(`{"theme": "light"}`), 0o644); err != nil {
		t.Fatal(err)
	}
	got, err := s.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if want := (Settings{Theme: "light", FontSize: DefaultFontSize}); got != want {
		t.Fatalf("Load() = %+v, want %+v", got, want)
	}
}

func TestLoadRejectsBadFiles(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"unknown key": `{"theme": "light", "window": {"w": 3}}`,
		"bad theme":   `{"theme": "sepia"}`,
		"bad size":    `{"font_size": 1000}`,
		"wrong type":  `{"font_size": "big"}`,
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			s := newStore(t)
			if err := os.MkdirAll(filepath.Dir(s.Path), 0o755); err != nil {
				t.Fatal(err)
			}
			if err := os.WriteFile(s.Path, []byte(content), 0o644); err != nil {
				t.Fatal(err)
			}
			_, err := s.Load()
			if !errors.Is(err, ErrInvalidValue) {
				t.Fatalf("Load() error = %v, want ErrInvalidValue", err)
			}
		})
	}
}

func TestGetSet(t *testing.T) {
	t.Parallel()

	s := Defaults()
	if got, err := s.Get("font_size"); err != nil || got != "18" {
		t.Fatalf("Get(font_size) = %q, %v", got, err)
	}
	if _, err := s.Get("zoom"); !errors.Is(err, ErrUnknownKey) {
		t.Fatalf("Get(zoom) error = %v, want ErrUnknownKey", err)
	}
	if err := s.Set("zoom", "2"); !errors.Is(err, ErrUnknownKey) {
		t.Fatalf("Set(zoom) error = %v, want ErrUnknownKey", err)
	}
	for _, bad := range []string{"5", "73", "x", ""} {
		if err := s.Set("font_size", bad); !errors.Is(err, ErrInvalidValue) {
			t.Fatalf("Set(font_size, %q) error = %v, want ErrInvalidValue", bad, err)
		}
	}
	if s != Defaults() {
		t.Fatalf("failed Set changed settings: %+v", s)
	}
	if err := s.Set("theme", " light "); err != nil || s.Theme != "light" {
		t.Fatalf("Set(theme) = %+v, %v", s, err)
	}
}

func TestUpdateDoesNotWriteInvalidValue(t *testing.T) {
	t.Parallel()

	s := newStore(t)
	if _, err := s.Update("theme", "neon"); err == nil {
		t.Fatalf("Update(theme, neon) error = nil")
	}
	if _, err := os.Stat(s.Path); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("settings file written after a failed update: %v", err)
	}
}
