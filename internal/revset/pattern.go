package revset

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

type patternKind int

const (
	patternSubstring patternKind = iota
	patternExact
	patternGlob
	patternRegex
)

var patternKinds = map[string]patternKind{
	"substring": patternSubstring,
	"exact":     patternExact,
	"glob":      patternGlob,
	"regex":     patternRegex,
}

// StringPattern matches names and text. Every kind has a case-insensitive
// variant spelled with an "-i" suffix, e.g. "glob-i:".
type StringPattern struct {
	kind       patternKind
	text       string
	ignoreCase bool
	re         *regexp.Regexp
}

// SubstringPattern is the pattern used when no kind is given.
func SubstringPattern(text string) StringPattern {
	return StringPattern{kind: patternSubstring, text: text}
}

func ExactPattern(text string) StringPattern {
	return StringPattern{kind: patternExact, text: text}
}

func ParseStringPattern(kind, text string) (StringPattern, error) {
	name, ignoreCase := strings.CutSuffix(kind, "-i")
	k, ok := patternKinds[name]
	if !ok {
		return StringPattern{}, fmt.Errorf("invalid string pattern kind %q", kind)
	}
	p := StringPattern{kind: k, text: text, ignoreCase: ignoreCase}
	switch k {
	case patternGlob:
		if !doublestar.ValidatePattern(p.folded(text)) {
			return StringPattern{}, fmt.Errorf("invalid glob pattern %q", text)
		}
	case patternRegex:
		expr := text
		if ignoreCase {
			expr = "(?i)" + expr
		}
		re, err := regexp.Compile(expr)
		if err != nil {
			return StringPattern{}, fmt.Errorf("invalid regex pattern %q: %w", text, err)
		}
		p.re = re
	}
	return p, nil
}

func (p StringPattern) folded(s string) string {
	if p.ignoreCase {
		return strings.ToLower(s)
	}
	return s
}

// Exact returns the literal this pattern matches when it matches exactly one
// string.
func (p StringPattern) Exact() (string, bool) {
	if p.kind == patternExact && !p.ignoreCase {
		return p.text, true
	}
	return "", false
}

func (p StringPattern) Match(s string) bool {
	switch p.kind {
	case patternExact:
		if p.ignoreCase {
			return strings.EqualFold(p.text, s)
		}
		return p.text == s
	case patternSubstring:
		return strings.Contains(p.folded(s), p.folded(p.text))
	case patternGlob:
		ok, err := doublestar.Match(p.folded(p.text), p.folded(s))
		return err == nil && ok
	case patternRegex:
		return p.re.MatchString(s)
	}
	return false
}

func (p StringPattern) String() string {
	var name string
	for k, v := range patternKinds {
		if v == p.kind {
			name = k
		}
	}
	if p.ignoreCase {
		name += "-i"
	}
	return name + ":" + quote(p.text)
}
