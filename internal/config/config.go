// Package config loads jj-style layered TOML configuration.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
)

// MaxLogLimit is the hard upper bound on the number of commits a query returns.
const MaxLogLimit = 3000

// ErrConfig reports a malformed or unreadable configuration layer.
var ErrConfig = errors.New("invalid configuration")

//go:embed defaults.toml
var defaultsTOML string

// Env abstracts the process environment so tests can inject their own.
type Env struct {
	Getenv  func(string) string
	HomeDir func() (string, error)
}

func OSEnv() Env {
	return Env{Getenv: os.Getenv, HomeDir: os.UserHomeDir}
}

func (e Env) getenv(key string) string {
	if e.Getenv == nil {
		return ""
	}
	return e.Getenv(key)
}

func (e Env) homeDir() string {
	if e.HomeDir == nil {
		return ""
	}
	home, err := e.HomeDir()
	if err != nil {
		return ""
	}
	return home
}

// Settings is the merged view of every configuration layer.
type Settings struct {
	UserName  string
	UserEmail string
	// RevsetAliases maps alias declarations such as "trunk()" or "f(x)" to
	// their definitions.
	RevsetAliases map[string]string
	// LogLimit caps query results; it never exceeds MaxLogLimit.
	LogLimit int
	// Sources lists the files that contributed, lowest precedence first.
	Sources []string
}

type layer struct {
	User struct {
		Name  *string `toml:"name"`
		Email *string `toml:"email"`
	} `toml:"user"`
	UI struct {
		LogLimit *int `toml:"log-limit"`
	} `toml:"ui"`
	RevsetAliases map[string]string `toml:"revset-aliases"`
}

// Load merges the built-in defaults, the user config, the repository config
// at <repoDir>/config.toml and the environment, in that order.
func Load(repoDir string, env Env) (*Settings, error) {
	s := &Settings{RevsetAliases: map[string]string{}, LogLimit: MaxLogLimit}
	if err := s.applyTOML("<defaults>", defaultsTOML); err != nil {
		return nil, err
	}
	userFiles, err := userConfigFiles(env)
	if err != nil {
		return nil, err
	}
	for _, path := range userFiles {
		if err := s.applyFile(path); err != nil {
			return nil, err
		}
	}
	if repoDir != "" {
		if err := s.applyFile(filepath.Join(repoDir, "config.toml")); err != nil {
			return nil, err
		}
	}
	if v := env.getenv("JJ_USER"); v != "" {
		s.UserName = v
	}
	if v := env.getenv("JJ_EMAIL"); v != "" {
		s.UserEmail = v
	}
	slog.Debug("configuration loaded",
		slog.Any("sources", s.Sources),
		slog.String("user_email", s.UserEmail),
		slog.Int("aliases", len(s.RevsetAliases)),
		slog.Int("log_limit", s.LogLimit),
	)
	return s, nil
}

// userConfigFiles returns the user-level config files: every entry of
// $JJ_CONFIG (files, or directories of *.toml), or else the first existing of
// $XDG_CONFIG_HOME/jj/config.toml and ~/.jjconfig.toml.
func userConfigFiles(env Env) ([]string, error) {
	if raw := env.getenv("JJ_CONFIG"); raw != "" {
		var files []string
		for _, p := range filepath.SplitList(raw) {
			if p == "" {
				continue
			}
			info, err := os.Stat(p)
			if err != nil {
				if errors.Is(err, os.ErrNotExist) {
					continue
				}
				return nil, fmt.Errorf("%w: %s: %w", ErrConfig, p, err)
			}
			if !info.IsDir() {
				files = append(files, p)
				continue
			}
			matches, err := filepath.Glob(filepath.Join(p, "*.toml"))
			if err != nil {
				return nil, fmt.Errorf("%w: %s: %w", ErrConfig, p, err)
			}
			sort.Strings(matches)
			files = append(files, matches...)
		}
		return files, nil
	}

	home := env.homeDir()
	var candidates []string
	if xdg := env.getenv("XDG_CONFIG_HOME"); xdg != "" {
		candidates = append(candidates, filepath.Join(xdg, "jj", "config.toml"))
	} else if home != "" {
		candidates = append(candidates, filepath.Join(home, ".config", "jj", "config.toml"))
	}
	if home != "" {
		candidates = append(candidates, filepath.Join(home, ".jjconfig.toml"))
	}
	for _, p := range candidates {
		if _, err := os.Stat(p); err == nil {
			return []string{p}, nil
		}
	}
	return nil, nil
}

func (s *Settings) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("%w: %s: %w", ErrConfig, path, err)
	}
	return s.applyTOML(path, string(data))
}

func (s *Settings) applyTOML(source, data string) error {
	var l layer
	md, err := toml.Decode(data, &l)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrConfig, source, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		slog.Debug("ignoring unknown config keys", slog.String("source", source), slog.String("keys", strings.Join(keys, ", ")))
	}
	if l.User.Name != nil {
		s.UserName = *l.User.Name
	}
	if l.User.Email != nil {
		s.UserEmail = *l.User.Email
	}
	if l.UI.LogLimit != nil {
		if *l.UI.LogLimit <= 0 {
			return fmt.Errorf("%w: %s: ui.log-limit must be positive, got %d", ErrConfig, source, *l.UI.LogLimit)
		}
		s.LogLimit = min(*l.UI.LogLimit, MaxLogLimit)
	}
	for decl, def := range l.RevsetAliases {
		s.RevsetAliases[decl] = def
	}
	s.Sources = append(s.Sources, source)
	return nil
}
