package revset

import (
	"fmt"
	"strings"
)

type nodeKind int

const (
	nodeIdentifier nodeKind = iota
	nodeString
	nodePattern          // kind:value
	nodeRemoteSymbol     // name@remote
	nodeWorkspaceAt      // ws@
	nodeCurrentWorkspace // @
	nodeFunction
	nodeUnary
	nodeBinary
	nodeDagRangeAll // ::
	nodeRangeAll    // ..
)

type unaryOp int

const (
	opNegate       unaryOp = iota // ~x
	opDagRangePre                 // ::x
	opDagRangePost                // x::
	opRangePre                    // ..x
	opRangePost                   // x..
	opParents                     // x-
	opChildren                    // x+
)

type binaryOp int

const (
	opUnion        binaryOp = iota // x | y
	opIntersection                 // x & y
	opDifference                   // x ~ y
	opDagRange                     // x::y
	opRange                        // x..y
)

var binaryOpText = map[binaryOp]string{
	opUnion:        "|",
	opIntersection: "&",
	opDifference:   "~",
	opDagRange:     "::",
	opRange:        "..",
}

// node is the parse tree before alias expansion.
type node struct {
	kind nodeKind
	span Span

	// name holds the identifier, function name, symbol, pattern kind or
	// workspace name.
	name string
	// value holds a string literal, pattern value or remote name.
	value string

	unary  unaryOp
	binary binaryOp
	left   *node // operand of unary operators
	right  *node

	args   []*node
	kwargs []kwarg
}

type kwarg struct {
	name  string
	value *node
	span  Span
}

// String renders the node back as expression text. It is used in error
// messages and tests.
func (n *node) String() string {
	switch n.kind {
	case nodeIdentifier:
		return n.name
	case nodeString:
		return quote(n.value)
	case nodePattern:
		return n.name + ":" + quote(n.value)
	case nodeRemoteSymbol:
		return quoteSymbol(n.name) + "@" + quoteSymbol(n.value)
	case nodeWorkspaceAt:
		return quoteSymbol(n.name) + "@"
	case nodeCurrentWorkspace:
		return "@"
	case nodeDagRangeAll:
		return "::"
	case nodeRangeAll:
		return ".."
	case nodeFunction:
		parts := make([]string, 0, len(n.args)+len(n.kwargs))
		for _, a := range n.args {
			parts = append(parts, a.String())
		}
		for _, kw := range n.kwargs {
			parts = append(parts, kw.name+"="+kw.value.String())
		}
		return n.name + "(" + strings.Join(parts, ", ") + ")"
	case nodeUnary:
		operand := n.left.String()
		switch n.unary {
		case opNegate:
			return "~(" + operand + ")"
		case opDagRangePre:
			return "::(" + operand + ")"
		case opDagRangePost:
			return "(" + operand + ")::"
		case opRangePre:
			return "..(" + operand + ")"
		case opRangePost:
			return "(" + operand + ").."
		case opParents:
			return "(" + operand + ")-"
		case opChildren:
			return "(" + operand + ")+"
		}
	case nodeBinary:
		return "(" + n.left.String() + " " + binaryOpText[n.binary] + " " + n.right.String() + ")"
	}
	return fmt.Sprintf("<node %d>", n.kind)
}

func quote(s string) string {
	return fmt.Sprintf("%q", s)
}

func quoteSymbol(s string) string {
	if s != "" && lexIdentifier(s, 0) == len(s) {
		return s
	}
	return quote(s)
}
