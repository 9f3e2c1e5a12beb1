package revset

type parser struct {
	toks []token
	pos  int
}

// parseProgram parses a complete expression.
func parseProgram(input string) (*node, error) {
	toks, err := tokenize(input)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks}
	if p.peek().kind == tokEOF {
		return nil, syntaxErrorf(p.peek().span, "empty expression")
	}
	n, err := p.parseUnion()
	if err != nil {
		return nil, err
	}
	if tok := p.peek(); tok.kind != tokEOF {
		return nil, syntaxErrorf(tok.span, "unexpected %s", tok.kind)
	}
	return n, nil
}

func (p *parser) peek() token { return p.toks[p.pos] }

func (p *parser) peekAt(offset int) token {
	if p.pos+offset >= len(p.toks) {
		return p.toks[len(p.toks)-1]
	}
	return p.toks[p.pos+offset]
}

func (p *parser) next() token {
	tok := p.toks[p.pos]
	if tok.kind != tokEOF {
		p.pos++
	}
	return tok
}

func (p *parser) expect(kind tokenKind) (token, error) {
	tok := p.peek()
	if tok.kind != kind {
		return tok, syntaxErrorf(tok.span, "expected %s, found %s", kind, tok.kind)
	}
	return p.next(), nil
}

func (p *parser) parseUnion() (*node, error) {
	left, err := p.parseIntersection()
	if err != nil {
		return nil, err
	}
	for p.peek().kind == tokUnion {
		p.next()
		right, err := p.parseIntersection()
		if err != nil {
			return nil, err
		}
		left = binaryNode(opUnion, left, right)
	}
	return left, nil
}

func (p *parser) parseIntersection() (*node, error) {
	left, err := p.parseNegate()
	if err != nil {
		return nil, err
	}
	for {
		var op binaryOp
		switch p.peek().kind {
		case tokIntersection:
			op = opIntersection
		case tokTilde:
			op = opDifference
		default:
			return left, nil
		}
		p.next()
		right, err := p.parseNegate()
		if err != nil {
			return nil, err
		}
		left = binaryNode(op, left, right)
	}
}

func (p *parser) parseNegate() (*node, error) {
	if tok := p.peek(); tok.kind == tokTilde {
		p.next()
		operand, err := p.parseNegate()
		if err != nil {
			return nil, err
		}
		return &node{kind: nodeUnary, unary: opNegate, left: operand, span: Span{tok.span.Start, operand.span.End}}, nil
	}
	return p.parseRange()
}

// parseRange handles the non-associative range operators in their prefix,
// infix, postfix and bare forms.
func (p *parser) parseRange() (*node, error) {
	if tok := p.peek(); tok.kind == tokDagRange || tok.kind == tokRange {
		p.next()
		if !p.startsOperand() {
			kind := nodeDagRangeAll
			if tok.kind == tokRange {
				kind = nodeRangeAll
			}
			return &node{kind: kind, span: tok.span}, nil
		}
		operand, err := p.parseNeighbors()
		if err != nil {
			return nil, err
		}
		op := opDagRangePre
		if tok.kind == tokRange {
			op = opRangePre
		}
		n := &node{kind: nodeUnary, unary: op, left: operand, span: Span{tok.span.Start, operand.span.End}}
		return n, p.rejectChainedRange()
	}

	left, err := p.parseNeighbors()
	if err != nil {
		return nil, err
	}
	tok := p.peek()
	if tok.kind != tokDagRange && tok.kind != tokRange {
		return left, nil
	}
	p.next()
	if !p.startsOperand() {
		op := opDagRangePost
		if tok.kind == tokRange {
			op = opRangePost
		}
		return &node{kind: nodeUnary, unary: op, left: left, span: Span{left.span.Start, tok.span.End}}, p.rejectChainedRange()
	}
	right, err := p.parseNeighbors()
	if err != nil {
		return nil, err
	}
	op := opDagRange
	if tok.kind == tokRange {
		op = opRange
	}
	return binaryNode(op, left, right), p.rejectChainedRange()
}

func (p *parser) rejectChainedRange() error {
	if tok := p.peek(); tok.kind == tokDagRange || tok.kind == tokRange {
		return syntaxErrorf(tok.span, "range operators cannot be chained; use parentheses")
	}
	return nil
}

// startsOperand reports whether the next token can begin a primary expression.
func (p *parser) startsOperand() bool {
	switch p.peek().kind {
	case tokIdent, tokString, tokLParen, tokAt:
		return true
	}
	return false
}

func (p *parser) parseNeighbors() (*node, error) {
	n, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for {
		tok := p.peek()
		switch tok.kind {
		case tokMinus:
			n = &node{kind: nodeUnary, unary: opParents, left: n, span: Span{n.span.Start, tok.span.End}}
		case tokPlus:
			n = &node{kind: nodeUnary, unary: opChildren, left: n, span: Span{n.span.Start, tok.span.End}}
		default:
			return n, nil
		}
		p.next()
	}
}

func (p *parser) parsePrimary() (*node, error) {
	tok := p.peek()
	switch tok.kind {
	case tokLParen:
		p.next()
		inner, err := p.parseUnion()
		if err != nil {
			return nil, err
		}
		closing, err := p.expect(tokRParen)
		if err != nil {
			return nil, err
		}
		// Keep the inner node but widen the span to include the parentheses.
		widened := *inner
		widened.span = Span{tok.span.Start, closing.span.End}
		return &widened, nil
	case tokAt:
		p.next()
		return &node{kind: nodeCurrentWorkspace, span: tok.span}, nil
	case tokIdent:
		switch p.peekAt(1).kind {
		case tokLParen:
			return p.parseFunction()
		case tokColon:
			return p.parsePattern()
		}
		return p.parseSymbol()
	case tokString:
		return p.parseSymbol()
	case tokEOF:
		return nil, syntaxErrorf(tok.span, "unexpected end of expression")
	default:
		return nil, syntaxErrorf(tok.span, "unexpected %s", tok.kind)
	}
}

// parseSymbol parses an identifier or string, optionally followed by
// "@remote" or a bare "@" naming a workspace.
func (p *parser) parseSymbol() (*node, error) {
	tok := p.next()
	kind := nodeIdentifier
	if tok.kind == tokString {
		kind = nodeString
	}
	if p.peek().kind != tokAt {
		n := &node{kind: kind, span: tok.span, name: tok.text}
		if kind == nodeString {
			n.name, n.value = "", tok.text
		}
		return n, nil
	}
	at := p.next()
	if remote := p.peek(); remote.kind == tokIdent || remote.kind == tokString {
		p.next()
		return &node{kind: nodeRemoteSymbol, name: tok.text, value: remote.text, span: Span{tok.span.Start, remote.span.End}}, nil
	}
	return &node{kind: nodeWorkspaceAt, name: tok.text, span: Span{tok.span.Start, at.span.End}}, nil
}

func (p *parser) parsePattern() (*node, error) {
	kindTok := p.next()
	p.next() // ':'
	val := p.peek()
	if val.kind != tokIdent && val.kind != tokString {
		return nil, syntaxErrorf(val.span, "expected pattern value after %q", kindTok.text+":")
	}
	p.next()
	return &node{kind: nodePattern, name: kindTok.text, value: val.text, span: Span{kindTok.span.Start, val.span.End}}, nil
}

func (p *parser) parseFunction() (*node, error) {
	nameTok := p.next()
	p.next() // '('
	fn := &node{kind: nodeFunction, name: nameTok.text}
	for p.peek().kind != tokRParen {
		if p.peek().kind == tokIdent && p.peekAt(1).kind == tokEquals {
			nameTok := p.next()
			p.next() // '='
			value, err := p.parseUnion()
			if err != nil {
				return nil, err
			}
			fn.kwargs = append(fn.kwargs, kwarg{name: nameTok.text, value: value, span: Span{nameTok.span.Start, value.span.End}})
		} else {
			if len(fn.kwargs) > 0 {
				return nil, syntaxErrorf(p.peek().span, "positional argument follows keyword argument")
			}
			arg, err := p.parseUnion()
			if err != nil {
				return nil, err
			}
			fn.args = append(fn.args, arg)
		}
		if p.peek().kind != tokComma {
			break
		}
		p.next()
	}
	closing, err := p.expect(tokRParen)
	if err != nil {
		return nil, err
	}
	fn.span = Span{nameTok.span.Start, closing.span.End}
	return fn, nil
}

func binaryNode(op binaryOp, left, right *node) *node {
	return &node{kind: nodeBinary, binary: op, left: left, right: right, span: Span{left.span.Start, right.span.End}}
}
