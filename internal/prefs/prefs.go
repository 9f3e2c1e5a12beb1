// Package prefs stores the viewer's UI preferences. The query core never
// reads them.
package prefs

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
)

const (
	FileName = "vizjj-settings.json"
	appDir   = "vizjj-go"

	DefaultTheme    = "system"
	DefaultFontSize = 18

	minFontSize = 6
	maxFontSize = 72
)

var (
	ErrUnknownKey   = errors.New("unknown setting")
	ErrInvalidValue = errors.New("invalid setting value")
)

var themes = []string{"system", "light", "dark"}

// Settings is the content of the settings file.
type Settings struct {
	Theme    string `json:"theme"`
	FontSize int    `json:"font_size"`
}

func Defaults() Settings {
	return Settings{Theme: DefaultTheme, FontSize: DefaultFontSize}
}

// Keys lists the setting names in file order.
func Keys() []string {
	return []string{"theme", "font_size"}
}

func (s Settings) Get(key string) (string, error) {
	switch key {
	case "theme":
		return s.Theme, nil
	case "font_size":
		return strconv.Itoa(s.FontSize), nil
	default:
		return "", fmt.Errorf("%w %q", ErrUnknownKey, key)
	}
}

func (s *Settings) Set(key, value string) error {
	value = strings.TrimSpace(value)
	switch key {
	case "theme":
		theme := strings.ToLower(value)
		if !slices.Contains(themes, theme) {
			return fmt.Errorf("%w: theme must be one of %s, got %q", ErrInvalidValue, strings.Join(themes, ", "), value)
		}
		s.Theme = theme
	case "font_size":
		n, err := strconv.Atoi(value)
		if err != nil || n < minFontSize || n > maxFontSize {
			return fmt.Errorf("%w: font_size must be an integer in [%d, %d], got %q", ErrInvalidValue, minFontSize, maxFontSize, value)
		}
		s.FontSize = n
	default:
		return fmt.Errorf("%w %q", ErrUnknownKey, key)
	}
	return nil
}

func (s Settings) validate() error {
	for _, key := range Keys() {
		v, _ := s.Get(key)
		trial := s
		if err := trial.Set(key, v); err != nil {
			return err
		}
	}
	return nil
}

// Store reads and writes one settings file.
type Store struct {
	Path string
}

// DefaultPath is the settings file in the user config dir.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("locate config dir: %w", err)
	}
	return filepath.Join(dir, appDir, FileName), nil
}

// Load returns the stored settings over the defaults. A missing file yields
// the defaults.
func (s *Store) Load() (Settings, error) {
	settings := Defaults()
	data, err := os.ReadFile(s.Path)
	if errors.Is(err, os.ErrNotExist) {
		return settings, nil
	}
	if err != nil {
		return Settings{}, fmt.Errorf("read settings: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&settings); err != nil {
		return Settings{}, fmt.Errorf("parse settings %s: %w: %w", s.Path, ErrInvalidValue, err)
	}
	if err := settings.validate(); err != nil {
		return Settings{}, fmt.Errorf("parse settings %s: %w", s.Path, err)
	}
	return settings, nil
}

// Save writes the settings atomically, creating the directory if needed.
func (s *Store) Save(settings Settings) error {
	if err := settings.validate(); err != nil {
		return err
	}
	data, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}
	data = append(data, '\n')
	if err := os.MkdirAll(filepath.Dir(s.Path), 0o755); err != nil {
		return fmt.Errorf("create settings dir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.Path), FileName+".*")
	if err != nil {
		return fmt.Errorf("write settings: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		err = errors.Join(err, tmp.Close(), os.Remove(tmp.Name()))
		return fmt.Errorf("write settings: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write settings: %w", errors.Join(err, os.Remove(tmp.Name())))
	}
	if err := os.Rename(tmp.Name(), s.Path); err != nil {
		return fmt.Errorf("write settings: %w", errors.Join(err, os.Remove(tmp.Name())))
	}
	return nil
}

// Update loads the settings, sets one key and saves the result.
func (s *Store) Update(key, value string) (Settings, error) {
	settings, err := s.Load()
	if err != nil {
		return Settings{}, err
	}
	if err := settings.Set(key, value); err != nil {
		return Settings{}, err
	}
	if err := s.Save(settings); err != nil {
		return Settings{}, err
	}
	return settings, nil
}
