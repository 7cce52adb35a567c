package parser

import (
	"github.com/takc-lang/tak/internal/ast"
	"github.com/takc-lang/tak/internal/diagnostics"
	"github.com/takc-lang/tak/internal/token"
)

// parseExpression is the Pratt-precedence entry point (spec §9's
// precedence table, driven by token.Precedence/RightAssociative).
// single and insideCall are accepted from the call sites but do not
// change how the expression is parsed: a comma has no binary
// precedence, so it always ends an expression, and a `{...}` braced
// initializer is accepted wherever a primary expression may start.
func (p *Parser) parseExpression(single, _insideCall bool) ast.Node {
	return p.parseBinary(p.parseUnary(), 0)
}

func (p *Parser) parseBinary(left ast.Node, minPrec int) ast.Node {
	for {
		op := p.cur().Type
		prec := token.Precedence(op)
		if prec < 0 || prec < minPrec {
			return left
		}
		opTok := p.cur()
		p.advance()

		right := p.parseUnary()
		for {
			nextOp := p.cur().Type
			nextPrec := token.Precedence(nextOp)
			if nextPrec < 0 {
				break
			}
			if nextPrec > prec || (nextPrec == prec && token.RightAssociative(nextOp)) {
				right = p.parseBinary(right, nextPrec)
				continue
			}
			break
		}

		n := &ast.BinExpr{Op: opTok.Type, Left: left, Right: right}
		n.Location = ast.Range{File: p.file, StartLine: opTok.Line, EndLine: p.cur().Line}
		ast.Attach(n, left)
		ast.Attach(n, right)
		left = n

		if token.RightAssociative(op) {
			return left
		}
	}
}

func (p *Parser) parseUnary() ast.Node {
	t := p.cur()

	if t.Type == token.KwCast {
		return p.parseCast()
	}
	if t.Type == token.KwSizeof {
		return p.parseSizeof()
	}
	if token.ValidUnaryOperator(t.Type) {
		p.advance()
		operand := p.parseUnary()
		n := &ast.UnaryExpr{Op: t.Type, Operand: operand}
		n.Location = p.loc(t.Line)
		ast.Attach(n, operand)
		return n
	}

	return p.parsePostfix(p.parsePrimary())
}

// parseCast implements the reference implementation's corrected
// (non-fallthrough) `parse_cast` chain from codegen/expressions.cpp,
// resolving the Open Question the distilled grammar left ambiguous:
// `cast(TYPE) expr`, always a prefix operator binding tighter than any
// binary operator, applied once to the immediately following unary
// expression.
func (p *Parser) parseCast() ast.Node {
	startLine := p.cur().Line
	p.advance() // 'cast'
	p.expect(token.LParen)
	td, ok := p.parseType()
	p.expect(token.RParen)
	if !ok {
		return nil
	}
	value := p.parseUnary()
	n := &ast.Cast{Target: td, Value: value}
	n.Location = p.loc(startLine)
	ast.Attach(n, value)
	return n
}

// parseSizeof disambiguates `sizeof(TYPE)` from `sizeof(expr)` via
// lexer save/restore speculative parsing (spec §4.1's resolved
// `sizeof` ambiguity): try parsing a type first; if that fails to
// consume up to a matching `)`, or the type's name resolves to a
// declared symbol (a variable, not a type), rewind and parse an
// expression instead.
func (p *Parser) parseSizeof() ast.Node {
	startLine := p.cur().Line
	p.advance() // 'sizeof'
	p.expect(token.LParen)

	saved := p.lex.Save()
	trial := &discardingReporter{}
	real := p.reporter
	p.reporter = trial

	td, typeOK := p.parseType()
	closedOK := typeOK && p.cur().Type == token.RParen
	if closedOK && td.UserName != "" {
		if _, isSym := p.tab.LookupSymbol(p.tab.GetCanonicalSymName(td.UserName)); isSym {
			closedOK = false
		}
	}
	p.reporter = real

	if closedOK {
		p.advance()
		n := &ast.Sizeof{TypeOperand: &td}
		n.Location = p.loc(startLine)
		return n
	}

	p.lex.Restore(saved)
	expr := p.parseExpression(false, false)
	p.expect(token.RParen)
	n := &ast.Sizeof{ExprOperand: expr}
	n.Location = p.loc(startLine)
	if expr != nil {
		ast.Attach(n, expr)
	}
	return n
}

// discardingReporter swallows diagnostics produced during a
// speculative parse attempt that may be abandoned (sizeof's
// type-vs-expression lookahead).
type discardingReporter struct{}

func (*discardingReporter) Report(diagnostics.Diagnostic)    {}
func (*discardingReporter) HasErrors() bool                  { return false }
func (*discardingReporter) HasWarnings() bool                { return false }
func (*discardingReporter) Errors() []diagnostics.Diagnostic   { return nil }
func (*discardingReporter) Warnings() []diagnostics.Diagnostic { return nil }
func (*discardingReporter) Clear()                            {}

func (p *Parser) parsePostfix(n ast.Node) ast.Node {
	for {
		switch p.cur().Type {
		case token.LBracket:
			p.advance()
			idx := p.parseExpression(false, false)
			p.expect(token.RBracket)
			sub := &ast.Subscript{Target: n, Index: idx}
			sub.Location = n.Loc()
			ast.Attach(sub, n)
			ast.Attach(sub, idx)
			n = sub

		case token.Dot:
			p.advance()
			var path []string
			for {
				memberTok, ok := p.expect(token.Identifier)
				if !ok {
					break
				}
				path = append(path, memberTok.Text)
				if p.cur().Type != token.Dot {
					break
				}
				p.advance()
			}
			m := &ast.MemberAccess{Target: n, Path: path}
			m.Location = n.Loc()
			ast.Attach(m, n)
			n = m

		case token.LParen:
			p.advance()
			var args []ast.Node
			for p.cur().Type != token.RParen && p.cur().Type != token.EOF {
				arg := p.parseExpression(true, true)
				if arg != nil {
					args = append(args, arg)
				}
				if p.cur().Type == token.Comma {
					p.advance()
				} else {
					break
				}
			}
			p.expect(token.RParen)
			call := &ast.Call{Callee: n, Args: args}
			call.Location = n.Loc()
			ast.Attach(call, n)
			for _, a := range args {
				ast.Attach(call, a)
			}
			n = call

		case token.Increment, token.Decrement:
			opTok := p.cur()
			p.advance()
			u := &ast.UnaryExpr{Op: opTok.Type, Postfix: true, Operand: n}
			u.Location = n.Loc()
			ast.Attach(u, n)
			n = u

		default:
			return n
		}
	}
}

func (p *Parser) parsePrimary() ast.Node {
	t := p.cur()

	switch t.Type {
	case token.IntLiteral, token.FloatLiteral, token.HexLiteral, token.StringLiteral,
		token.CharLiteral, token.BoolLiteral, token.Nullptr:
		p.advance()
		n := &ast.Literal{Kind: literalKindOf(t.Type), Raw: t.Text}
		n.Location = p.loc(t.Line)
		return n

	case token.Identifier, token.NamespaceAccess:
		return p.parseIdentifierPath()

	case token.LParen:
		p.advance()
		p.insideParens++
		inner := p.parseExpression(false, false)
		p.insideParens--
		p.expect(token.RParen)
		return inner

	case token.LBrace:
		return p.parseBracedExpr()

	default:
		p.errorf(diagnostics.Syntactic, t.Pos, "unexpected token %s in expression", t.Type)
		p.advance()
		return nil
	}
}

func (p *Parser) parseIdentifierPath() ast.Node {
	startLine := p.cur().Line
	var b []rune
	if p.cur().Type == token.NamespaceAccess {
		b = append(b, '\\')
		p.advance()
	}
	nameTok, ok := p.expect(token.Identifier)
	if !ok {
		return nil
	}
	b = append(b, []rune(nameTok.Text)...)
	for p.cur().Type == token.NamespaceAccess {
		p.advance()
		b = append(b, '\\')
		next, ok := p.expect(token.Identifier)
		if !ok {
			break
		}
		b = append(b, []rune(next.Text)...)
	}

	name := string(b)
	n := &ast.Identifier{Name: name}
	n.Location = p.loc(startLine)

	canon := p.tab.GetCanonicalSymName(name)
	if sym, ok := p.tab.LookupSymbol(canon); ok {
		n.SymbolIndex = sym.Index
	} else if sym, ok := p.tab.LookupSymbol(name); ok {
		n.SymbolIndex = sym.Index
	} else {
		p.reportUnresolvedName(nameTok, name)
	}
	return n
}

func (p *Parser) reportUnresolvedName(tok token.Token, name string) {
	if suggestion, ok := p.tab.SuggestName(name); ok {
		p.reporter.Report(diagnostics.Diagnostic{
			Category: diagnostics.NameResolution,
			Severity: diagnostics.SeverityError,
			Message:  "use of undeclared identifier '" + name + "'",
			Location: diagnostics.Range{
				Start: diagnostics.Position{File: p.file, Line: tok.Line, Offset: tok.Pos.Offset},
				End:   diagnostics.Position{File: p.file, Line: tok.Line, Offset: tok.Pos.Offset},
			},
			Hints: []string{"did you mean '" + suggestion + "'?"},
		})
		return
	}
	p.errorf(diagnostics.NameResolution, tok.Pos, "use of undeclared identifier '%s'", name)
}

// parseBracedExpr parses `{ e1, e2, ... }`, an array- or
// struct-literal initializer (spec §4.4/§4.6: the checker decides
// which, once it knows the target type).
func (p *Parser) parseBracedExpr() ast.Node {
	startLine := p.cur().Line
	p.expect(token.LBrace)
	n := &ast.BracedExpr{}
	for p.cur().Type != token.RBrace && p.cur().Type != token.EOF {
		el := p.parseExpression(true, false)
		if el != nil {
			n.Elements = append(n.Elements, ast.Attach(n, el))
		}
		if p.cur().Type == token.Comma {
			p.advance()
		} else {
			break
		}
	}
	p.expect(token.RBrace)
	n.Location = p.loc(startLine)
	return n
}

func literalKindOf(t token.Type) ast.LiteralKind {
	switch t {
	case token.IntLiteral:
		return ast.LitInt
	case token.FloatLiteral:
		return ast.LitFloat
	case token.HexLiteral:
		return ast.LitHex
	case token.StringLiteral:
		return ast.LitString
	case token.CharLiteral:
		return ast.LitChar
	case token.BoolLiteral:
		return ast.LitBool
	case token.Nullptr:
		return ast.LitNullptr
	default:
		return ast.LitInt
	}
}
