package revset

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

type functionAlias struct {
	params     []string
	definition string
}

// AliasMap holds symbol and function aliases, as configured in the
// revset-aliases table. Function aliases are overloaded by arity.
type AliasMap struct {
	symbols   map[string]string
	functions map[string][]functionAlias
}

func NewAliasMap() *AliasMap {
	return &AliasMap{symbols: map[string]string{}, functions: map[string][]functionAlias{}}
}

// NewAliasMapFrom declares every entry of table, in sorted order so errors
// are reported deterministically.
func NewAliasMapFrom(table map[string]string) (*AliasMap, error) {
	m := NewAliasMap()
	decls := make([]string, 0, len(table))
	for decl := range table {
		decls = append(decls, decl)
	}
	sort.Strings(decls)
	for _, decl := range decls {
		if err := m.Insert(decl, table[decl]); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Insert declares an alias. decl is either "name" or "name(p1, p2, ...)".
// A later declaration with the same name and arity replaces an earlier one.
func (m *AliasMap) Insert(decl, definition string) error {
	name, params, isFunc, err := parseDeclaration(decl)
	if err != nil {
		return err
	}
	if !isFunc {
		m.symbols[name] = definition
		return nil
	}
	overloads := m.functions[name]
	for i, fa := range overloads {
		if len(fa.params) == len(params) {
			overloads[i] = functionAlias{params: params, definition: definition}
			return nil
		}
	}
	m.functions[name] = append(overloads, functionAlias{params: params, definition: definition})
	return nil
}

func (m *AliasMap) symbol(name string) (string, bool) {
	def, ok := m.symbols[name]
	return def, ok
}

func (m *AliasMap) function(name string, arity int) (functionAlias, bool, bool) {
	overloads, declared := m.functions[name]
	for _, fa := range overloads {
		if len(fa.params) == arity {
			return fa, true, true
		}
	}
	return functionAlias{}, false, declared
}

func parseDeclaration(decl string) (name string, params []string, isFunc bool, err error) {
	toks, err := tokenize(decl)
	if err != nil {
		return "", nil, false, fmt.Errorf("alias declaration %q: %w", decl, err)
	}
	bad := func() (string, []string, bool, error) {
		return "", nil, false, &SyntaxError{Kind: ErrSyntax, Span: Span{0, len(decl)}, Msg: fmt.Sprintf("invalid alias declaration %q", decl)}
	}
	if len(toks) < 2 || toks[0].kind != tokIdent {
		return bad()
	}
	name = toks[0].text
	if toks[1].kind == tokEOF {
		return name, nil, false, nil
	}
	if toks[1].kind != tokLParen {
		return bad()
	}
	seen := map[string]bool{}
	i := 2
	for toks[i].kind != tokRParen {
		if toks[i].kind != tokIdent || seen[toks[i].text] {
			return bad()
		}
		seen[toks[i].text] = true
		params = append(params, toks[i].text)
		i++
		if toks[i].kind == tokComma {
			i++
			continue
		}
		if toks[i].kind != tokRParen {
			return bad()
		}
	}
	if toks[i+1].kind != tokEOF {
		return bad()
	}
	return name, params, true, nil
}

// expander rewrites alias references into their definitions.
type expander struct {
	aliases *AliasMap
	// stack holds the aliases being expanded, to detect recursion.
	stack []string
}

func expandAliases(n *node, aliases *AliasMap) (*node, error) {
	if aliases == nil {
		return n, nil
	}
	e := &expander{aliases: aliases}
	return e.expand(n, nil)
}

func (e *expander) expand(n *node, locals map[string]*node) (*node, error) {
	switch n.kind {
	case nodeIdentifier:
		if local, ok := locals[n.name]; ok {
			return local, nil
		}
		def, ok := e.aliases.symbol(n.name)
		if !ok {
			return n, nil
		}
		return e.expandDefinition(n.name, n.span, def, nil)

	case nodeFunction:
		args := make([]*node, len(n.args))
		for i, a := range n.args {
			expanded, err := e.expand(a, locals)
			if err != nil {
				return nil, err
			}
			args[i] = expanded
		}
		kwargs := make([]kwarg, len(n.kwargs))
		for i, kw := range n.kwargs {
			expanded, err := e.expand(kw.value, locals)
			if err != nil {
				return nil, err
			}
			kwargs[i] = kwarg{name: kw.name, value: expanded, span: kw.span}
		}
		fa, ok, declared := e.aliases.function(n.name, len(n.args))
		if !ok {
			if declared {
				return nil, syntaxErrorf(n.span, "function alias %q does not take %d arguments", n.name, len(n.args))
			}
			out := *n
			out.args, out.kwargs = args, kwargs
			return &out, nil
		}
		if len(kwargs) > 0 {
			return nil, syntaxErrorf(kwargs[0].span, "function alias %q does not accept keyword arguments", n.name)
		}
		params := make(map[string]*node, len(fa.params))
		for i, name := range fa.params {
			params[name] = args[i]
		}
		label := fmt.Sprintf("%s(%s)", n.name, strings.Join(fa.params, ", "))
		return e.expandDefinition(label, n.span, fa.definition, params)

	case nodeUnary:
		operand, err := e.expand(n.left, locals)
		if err != nil {
			return nil, err
		}
		out := *n
		out.left = operand
		return &out, nil

	case nodeBinary:
		left, err := e.expand(n.left, locals)
		if err != nil {
			return nil, err
		}
		right, err := e.expand(n.right, locals)
		if err != nil {
			return nil, err
		}
		out := *n
		out.left, out.right = left, right
		return &out, nil
	}
	return n, nil
}

func (e *expander) expandDefinition(label string, callSpan Span, definition string, params map[string]*node) (*node, error) {
	for _, active := range e.stack {
		if active == label {
			return nil, syntaxErrorf(callSpan, "alias %q expanded recursively", label)
		}
	}
	body, err := parseProgram(definition)
	if err != nil {
		return nil, inAlias(err, label)
	}
	e.stack = append(e.stack, label)
	defer func() { e.stack = e.stack[:len(e.stack)-1] }()
	expanded, err := e.expand(body, params)
	if err != nil {
		return nil, inAlias(err, label)
	}
	// Report later errors against the call site.
	widened := *expanded
	widened.span = callSpan
	return &widened, nil
}

// inAlias attributes a syntax error to the innermost alias definition.
func inAlias(err error, label string) error {
	var se *SyntaxError
	if errors.As(err, &se) && se.Alias == "" {
		out := *se
		out.Alias = label
		return &out
	}
	return err
}
