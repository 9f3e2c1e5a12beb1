package output

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/styles"
	darkmode "github.com/thiagokokada/dark-mode-go"
)

// Theme is the color theme preference. ThemeSystem follows the desktop.
type Theme string

const (
	ThemeSystem Theme = "system"
	ThemeLight  Theme = "light"
	ThemeDark   Theme = "dark"
)

var detectDarkMode = darkmode.IsDarkMode

func ParseTheme(raw string) (Theme, error) {
	switch t := Theme(strings.ToLower(strings.TrimSpace(raw))); t {
	case ThemeSystem, ThemeLight, ThemeDark:
		return t, nil
	case "", "auto":
		return ThemeSystem, nil
	default:
		return "", fmt.Errorf("unknown theme %q (want system, light or dark)", raw)
	}
}

// IsDark resolves the preference. Detection failures fall back to light.
func (t Theme) IsDark() bool {
	switch t {
	case ThemeDark:
		return true
	case ThemeLight:
		return false
	}
	if detectDarkMode == nil {
		return false
	}
	dark, err := detectDarkMode()
	if err != nil {
		slog.Debug("detect dark-mode", slog.Any("error", err))
		return false
	}
	return dark
}

func styleForTheme(t Theme) *chroma.Style {
	name := "github"
	if t.IsDark() {
		name = "github-dark"
	}
	if st := styles.Get(name); st != nil {
		return st
	}
	return styles.Fallback
}
