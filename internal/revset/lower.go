package revset

import (
	"sort"
	"strconv"
	"strings"
)

type builtin func(fn *node, ctx *ParseContext) (expr, error)

var builtins map[string]builtin

func init() {
	nullary := func(e expr) builtin {
		return func(fn *node, _ *ParseContext) (expr, error) {
			if _, err := bindArgs(fn, nil, nil); err != nil {
				return nil, err
			}
			return e, nil
		}
	}
	unary := func(wrap func(x expr) expr) builtin {
		return func(fn *node, ctx *ParseContext) (expr, error) {
			args, err := bindArgs(fn, []string{"x"}, nil)
			if err != nil {
				return nil, err
			}
			x, err := lower(args[0], ctx)
			if err != nil {
				return nil, err
			}
			return wrap(x), nil
		}
	}
	text := func(fields ...commitField) builtin {
		return func(fn *node, _ *ParseContext) (expr, error) {
			args, err := bindArgs(fn, []string{"pattern"}, nil)
			if err != nil {
				return nil, err
			}
			p, err := stringPatternArg(args[0])
			if err != nil {
				return nil, err
			}
			return filterExpr{pred: textPredicate{fields: fields, pattern: p}}, nil
		}
	}
	date := func(committer bool) builtin {
		return func(fn *node, ctx *ParseContext) (expr, error) {
			args, err := bindArgs(fn, []string{"pattern"}, nil)
			if err != nil {
				return nil, err
			}
			a := args[0]
			if a.kind != nodePattern {
				return nil, syntaxErrorf(a.span, "expected a date pattern such as after:\"2024-01-01\"")
			}
			p, err := ParseDatePattern(a.name, a.value, ctx.Now)
			if err != nil {
				return nil, syntaxErrorf(a.span, "%v", err)
			}
			return filterExpr{pred: datePredicate{committer: committer, pattern: p}}, nil
		}
	}
	remoteBookmarks := func(tracked trackFilter) builtin {
		return func(fn *node, _ *ParseContext) (expr, error) {
			args, err := bindArgs(fn, nil, []string{"bookmark_pattern", "remote"})
			if err != nil {
				return nil, err
			}
			out := remoteBookmarksExpr{name: SubstringPattern(""), remote: SubstringPattern(""), tracked: tracked}
			if args[0] != nil {
				if out.name, err = stringPatternArg(args[0]); err != nil {
					return nil, err
				}
			}
			if args[1] != nil {
				if out.remote, err = stringPatternArg(args[1]); err != nil {
					return nil, err
				}
			}
			return out, nil
		}
	}
	namePattern := func(build func(StringPattern) expr) builtin {
		return func(fn *node, _ *ParseContext) (expr, error) {
			args, err := bindArgs(fn, nil, []string{"pattern"})
			if err != nil {
				return nil, err
			}
			p := SubstringPattern("")
			if args[0] != nil {
				if p, err = stringPatternArg(args[0]); err != nil {
					return nil, err
				}
			}
			return build(p), nil
		}
	}
	generations := func(descendants bool) builtin {
		return func(fn *node, ctx *ParseContext) (expr, error) {
			args, err := bindArgs(fn, []string{"x"}, []string{"depth"})
			if err != nil {
				return nil, err
			}
			x, err := lower(args[0], ctx)
			if err != nil {
				return nil, err
			}
			gen := allGenerations
			if args[1] != nil {
				depth, err := intArg(args[1])
				if err != nil {
					return nil, err
				}
				gen = genRange{lo: 0, hi: depth}
			}
			if descendants {
				return descendantsExpr{roots: x, gen: gen}, nil
			}
			return ancestorsExpr{heads: x, gen: gen}, nil
		}
	}

	builtins = map[string]builtin{
		"all":            nullary(allExpr{}),
		"none":           nullary(noneExpr{}),
		"visible_heads":  nullary(visibleHeadsExpr{}),
		"root":           nullary(rootExpr{}),
		"git_head":       nullary(gitHeadExpr{}),
		"git_refs":       nullary(gitRefsExpr{}),
		"working_copies": nullary(workingCopiesExpr{}),
		"merges":         nullary(filterExpr{pred: mergesPredicate{}}),
		"conflicts":      nullary(filterExpr{pred: conflictsPredicate{}}),

		"heads":     unary(func(x expr) expr { return headsExpr{x: x} }),
		"roots":     unary(func(x expr) expr { return rootsExpr{x: x} }),
		"parents":   unary(func(x expr) expr { return ancestorsExpr{heads: x, gen: genRange{lo: 1, hi: 2}} }),
		"children":  unary(func(x expr) expr { return descendantsExpr{roots: x, gen: genRange{lo: 1, hi: 2}} }),
		"connected": unary(func(x expr) expr { return dagRangeExpr{roots: x, heads: x} }),
		"present":   unary(func(x expr) expr { return presentExpr{x: x} }),

		"ancestors":   generations(false),
		"descendants": generations(true),

		"latest": func(fn *node, ctx *ParseContext) (expr, error) {
			args, err := bindArgs(fn, []string{"x"}, []string{"count"})
			if err != nil {
				return nil, err
			}
			x, err := lower(args[0], ctx)
			if err != nil {
				return nil, err
			}
			n := 1
			if args[1] != nil {
				if n, err = intArg(args[1]); err != nil {
					return nil, err
				}
			}
			return latestExpr{x: x, n: n}, nil
		},

		"bookmarks":                  namePattern(func(p StringPattern) expr { return bookmarksExpr{pattern: p} }),
		"tags":                       namePattern(func(p StringPattern) expr { return tagsExpr{pattern: p} }),
		"remote_bookmarks":           remoteBookmarks(trackAny),
		"tracked_remote_bookmarks":   remoteBookmarks(trackTracked),
		"untracked_remote_bookmarks": remoteBookmarks(trackUntracked),

		"description":     text(fieldDescription),
		"subject":         text(fieldSubject),
		"author":          text(fieldAuthorName, fieldAuthorEmail),
		"author_name":     text(fieldAuthorName),
		"author_email":    text(fieldAuthorEmail),
		"committer":       text(fieldCommitterName, fieldCommitterEmail),
		"committer_name":  text(fieldCommitterName),
		"committer_email": text(fieldCommitterEmail),
		"author_date":     date(false),
		"committer_date":  date(true),

		"mine": func(fn *node, ctx *ParseContext) (expr, error) {
			if _, err := bindArgs(fn, nil, nil); err != nil {
				return nil, err
			}
			p, _ := ParseStringPattern("exact-i", ctx.UserEmail)
			return filterExpr{pred: textPredicate{fields: []commitField{fieldAuthorEmail}, pattern: p}}, nil
		},

		"files": func(fn *node, ctx *ParseContext) (expr, error) {
			args, err := bindArgs(fn, []string{"fileset"}, nil)
			if err != nil {
				return nil, err
			}
			var matchers []fileMatcher
			if err := collectFileMatchers(args[0], ctx.PathConverter, &matchers); err != nil {
				return nil, err
			}
			return filterExpr{pred: filesPredicate{matchers: matchers}}, nil
		},
	}
}

// lower converts an expanded parse tree into an expression.
func lower(n *node, ctx *ParseContext) (expr, error) {
	switch n.kind {
	case nodeIdentifier:
		return symbolExpr{name: n.name, span: n.span}, nil
	case nodeString:
		return symbolExpr{name: n.value, span: n.span}, nil
	case nodePattern:
		return nil, syntaxErrorf(n.span, "string pattern %s:%s is only valid as a function argument", n.name, quote(n.value))
	case nodeRemoteSymbol:
		return remoteSymbolExpr{name: n.name, remote: n.value}, nil
	case nodeWorkspaceAt:
		return workingCopyExpr{workspace: n.name}, nil
	case nodeCurrentWorkspace:
		return workingCopyExpr{}, nil
	case nodeDagRangeAll:
		return ancestorsExpr{heads: visibleHeadsExpr{}, gen: allGenerations}, nil
	case nodeRangeAll:
		return rangeExpr{roots: rootExpr{}, heads: visibleHeadsExpr{}}, nil
	case nodeFunction:
		build, ok := builtins[n.name]
		if !ok {
			return nil, syntaxErrorf(n.span, "function %q doesn't exist%s", n.name, suggestFunction(n.name))
		}
		return build(n, ctx)
	case nodeUnary:
		x, err := lower(n.left, ctx)
		if err != nil {
			return nil, err
		}
		switch n.unary {
		case opNegate:
			return differenceExpr{a: allExpr{}, b: x}, nil
		case opDagRangePre:
			return ancestorsExpr{heads: x, gen: allGenerations}, nil
		case opDagRangePost:
			return descendantsExpr{roots: x, gen: allGenerations}, nil
		case opRangePre:
			return rangeExpr{roots: rootExpr{}, heads: x}, nil
		case opRangePost:
			return rangeExpr{roots: x, heads: visibleHeadsExpr{}}, nil
		case opParents:
			return ancestorsExpr{heads: x, gen: genRange{lo: 1, hi: 2}}, nil
		case opChildren:
			return descendantsExpr{roots: x, gen: genRange{lo: 1, hi: 2}}, nil
		}
	case nodeBinary:
		a, err := lower(n.left, ctx)
		if err != nil {
			return nil, err
		}
		b, err := lower(n.right, ctx)
		if err != nil {
			return nil, err
		}
		switch n.binary {
		case opUnion:
			return unionExpr{a: a, b: b}, nil
		case opIntersection:
			return intersectionExpr{a: a, b: b}, nil
		case opDifference:
			return differenceExpr{a: a, b: b}, nil
		case opDagRange:
			return dagRangeExpr{roots: a, heads: b}, nil
		case opRange:
			return rangeExpr{roots: a, heads: b}, nil
		}
	}
	return nil, syntaxErrorf(n.span, "unsupported expression %s", n)
}

// bindArgs matches positional and keyword arguments to the named
// parameters. Missing optional parameters are nil in the result.
func bindArgs(fn *node, required, optional []string) ([]*node, error) {
	params := append(append([]string{}, required...), optional...)
	out := make([]*node, len(params))
	if len(fn.args) > len(params) {
		return nil, syntaxErrorf(fn.span, "function %q: expected %s, got %d", fn.name, arityText(len(required), len(params)), len(fn.args))
	}
	copy(out, fn.args)
	for _, kw := range fn.kwargs {
		i := indexOf(params, kw.name)
		if i < 0 {
			return nil, syntaxErrorf(kw.span, "function %q: unexpected keyword argument %q", fn.name, kw.name)
		}
		if out[i] != nil {
			return nil, syntaxErrorf(kw.span, "function %q: got multiple values for %q", fn.name, kw.name)
		}
		out[i] = kw.value
	}
	for i := range required {
		if out[i] == nil {
			return nil, syntaxErrorf(fn.span, "function %q: expected %s, got %d", fn.name, arityText(len(required), len(params)), len(fn.args))
		}
	}
	return out, nil
}

func arityText(lo, hi int) string {
	switch {
	case lo == hi && lo == 1:
		return "1 argument"
	case lo == hi:
		return strconv.Itoa(lo) + " arguments"
	default:
		return strconv.Itoa(lo) + " to " + strconv.Itoa(hi) + " arguments"
	}
}

func indexOf(s []string, v string) int {
	for i, x := range s {
		if x == v {
			return i
		}
	}
	return -1
}

func stringPatternArg(n *node) (StringPattern, error) {
	switch n.kind {
	case nodeIdentifier:
		return SubstringPattern(n.name), nil
	case nodeString:
		return SubstringPattern(n.value), nil
	case nodePattern:
		p, err := ParseStringPattern(n.name, n.value)
		if err != nil {
			return StringPattern{}, syntaxErrorf(n.span, "%v", err)
		}
		return p, nil
	}
	return StringPattern{}, syntaxErrorf(n.span, "expected a string pattern, found %s", n)
}

func intArg(n *node) (int, error) {
	var text string
	switch n.kind {
	case nodeIdentifier:
		text = n.name
	case nodeString:
		text = n.value
	default:
		return 0, syntaxErrorf(n.span, "expected a non-negative integer, found %s", n)
	}
	v, err := strconv.Atoi(text)
	if err != nil || v < 0 {
		return 0, syntaxErrorf(n.span, "expected a non-negative integer, found %q", text)
	}
	return v, nil
}

func collectFileMatchers(n *node, conv *PathConverter, out *[]fileMatcher) error {
	var (
		m   fileMatcher
		err error
	)
	switch n.kind {
	case nodeBinary:
		if n.binary != opUnion {
			return syntaxErrorf(n.span, "only '|' is supported between file patterns")
		}
		if err := collectFileMatchers(n.left, conv, out); err != nil {
			return err
		}
		return collectFileMatchers(n.right, conv, out)
	case nodeIdentifier:
		m, err = newFileMatcher("", n.name, conv)
	case nodeString:
		m, err = newFileMatcher("", n.value, conv)
	case nodePattern:
		m, err = newFileMatcher(n.name, n.value, conv)
	default:
		return syntaxErrorf(n.span, "expected a file pattern, found %s", n)
	}
	if err != nil {
		return syntaxErrorf(n.span, "%v", err)
	}
	*out = append(*out, m)
	return nil
}

// suggestFunction names close builtin functions, if any.
func suggestFunction(name string) string {
	var near []string
	for candidate := range builtins {
		if strings.Contains(candidate, name) || strings.Contains(name, candidate) {
			near = append(near, candidate)
		}
	}
	if len(near) == 0 {
		return ""
	}
	sort.Strings(near)
	return " (did you mean " + strings.Join(near, ", ") + "?)"
}
