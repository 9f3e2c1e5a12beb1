package revset

import (
	"errors"
	"fmt"
)

var (
	// ErrSyntax reports malformed expression text, including misuse of
	// functions and aliases.
	ErrSyntax = errors.New("revset syntax error")
	// ErrResolution reports a symbol that names no commit or more than one.
	ErrResolution = errors.New("revset resolution error")
)

// Span is a half-open byte range into the expression text.
type Span struct {
	Start int
	End   int
}

func (s Span) String() string { return fmt.Sprintf("%d..%d", s.Start, s.End) }

// SyntaxError describes where parsing failed. Alias names the alias whose
// definition contains the error, if any; Span is then relative to that
// definition.
type SyntaxError struct {
	Kind  error
	Span  Span
	Msg   string
	Alias string
}

func (e *SyntaxError) Error() string {
	if e == nil {
		return ""
	}
	msg := fmt.Sprintf("%s: %s (at %s)", e.Kind.Error(), e.Msg, e.Span)
	if e.Alias != "" {
		msg += fmt.Sprintf(" in alias %q", e.Alias)
	}
	return msg
}

func (e *SyntaxError) Unwrap() error { return e.Kind }

func syntaxErrorf(span Span, format string, args ...any) error {
	return &SyntaxError{Kind: ErrSyntax, Span: span, Msg: fmt.Sprintf(format, args...)}
}

func resolutionErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrResolution, fmt.Sprintf(format, args...))
}
