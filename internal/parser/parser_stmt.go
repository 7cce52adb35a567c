package parser

import (
	"github.com/takc-lang/tak/internal/ast"
	"github.com/takc-lang/tak/internal/diagnostics"
	"github.com/takc-lang/tak/internal/token"
)

// parseBlock parses a `{ stmt* }` block, pushing/popping a table scope
// for the duration (spec §8 "push/pop balanced").
func (p *Parser) parseBlock() *ast.Block {
	startLine := p.cur().Line
	if _, ok := p.expect(token.LBrace); !ok {
		return nil
	}

	p.tab.PushScope()
	n := &ast.Block{}
	for p.cur().Type != token.RBrace && p.cur().Type != token.EOF {
		before := p.cur()
		stmt := p.parseStatement()
		if stmt != nil {
			n.Children = append(n.Children, ast.Attach(n, stmt))
		}
		if p.cur() == before {
			p.advance()
		}
	}
	p.tab.PopScope()

	p.expect(token.RBrace)
	n.Location = p.loc(startLine)
	return n
}

func (p *Parser) parseStatement() ast.Node {
	t := p.cur()
	switch t.Type {
	case token.LBrace:
		return p.parseBlock()
	case token.KwIf:
		return p.parseBranch()
	case token.KwFor:
		return p.parseFor()
	case token.KwWhile:
		return p.parseWhile()
	case token.KwDo:
		return p.parseDoWhile()
	case token.KwSwitch:
		return p.parseSwitch()
	case token.KwRet:
		return p.parseRet()
	case token.KwBrk:
		p.advance()
		n := &ast.Brk{}
		n.Location = p.loc(t.Line)
		p.expect(token.Semicolon)
		if p.loopDepth == 0 && p.switchDepth == 0 {
			p.errorf(diagnostics.ControlFlow, t.Pos, "'brk' outside of a loop or switch")
		}
		return n
	case token.KwCont:
		p.advance()
		n := &ast.Cont{}
		n.Location = p.loc(t.Line)
		p.expect(token.Semicolon)
		if p.loopDepth == 0 {
			p.errorf(diagnostics.ControlFlow, t.Pos, "'cont' outside of a loop")
		}
		return n
	case token.KwDefer:
		return p.parseDefer()
	case token.KwDeferIf:
		return p.parseDeferIf()
	case token.KwStruct:
		return p.parseStructDef()
	case token.KwEnum:
		return p.parseEnumDef()
	case token.Semicolon:
		p.advance()
		return nil
	default:
		if token.IdentStart(t.Type) && p.declarationFollows() {
			return p.parseVarDeclStatement()
		}
		expr := p.parseExpression(false, false)
		p.expect(token.Semicolon)
		return expr
	}
}

// declarationFollows performs one token of lookahead to distinguish
// `name : T` / `name :: T` / `name :=` (a declaration) from an
// expression statement beginning with an identifier (spec §6.2: both
// start with IDENT, disambiguated by whether `:` or `::` follows).
func (p *Parser) declarationFollows() bool {
	if p.cur().Type != token.Identifier {
		return false
	}
	return p.peek().Type == token.Colon || p.peek().Type == token.DoubleColon
}

func (p *Parser) parseBranch() ast.Node {
	startLine := p.cur().Line
	p.advance() // 'if'
	cond := p.parseExpression(false, false)
	body := p.parseBlock()

	n := &ast.Branch{If: ast.IfArm{Cond: cond, Body: body}}
	if cond != nil {
		ast.Attach(n, cond)
	}
	if body != nil {
		ast.Attach(n, body)
	}

	if p.cur().Type == token.KwElse {
		p.advance()
		if p.cur().Type == token.KwIf {
			n.Else = ast.Attach(n, p.parseBranch())
		} else {
			n.Else = ast.Attach(n, p.parseBlock())
		}
	}
	n.Location = p.loc(startLine)
	return n
}

func (p *Parser) parseFor() ast.Node {
	startLine := p.cur().Line
	p.advance() // 'for'

	p.tab.PushScope()
	n := &ast.For{}

	if p.cur().Type != token.Semicolon {
		if p.declarationFollows() {
			n.Init = p.parseVarDeclStatement()
		} else {
			n.Init = p.parseExpression(false, false)
			p.expect(token.Semicolon)
		}
	} else {
		p.advance()
	}

	if p.cur().Type != token.Semicolon {
		n.Cond = p.parseExpression(false, false)
	}
	p.expect(token.Semicolon)

	if p.cur().Type != token.LBrace {
		n.Update = p.parseExpression(false, false)
	}

	p.loopDepth++
	n.Body = p.parseBlock()
	p.loopDepth--
	p.tab.PopScope()

	for _, c := range []ast.Node{n.Init, n.Cond, n.Update, n.Body} {
		if c != nil {
			ast.Attach(n, c)
		}
	}
	n.Location = p.loc(startLine)
	return n
}

func (p *Parser) parseWhile() ast.Node {
	startLine := p.cur().Line
	p.advance() // 'while'
	cond := p.parseExpression(false, false)
	p.loopDepth++
	body := p.parseBlock()
	p.loopDepth--
	n := &ast.While{Cond: cond, Body: body}
	if cond != nil {
		ast.Attach(n, cond)
	}
	if body != nil {
		ast.Attach(n, body)
	}
	n.Location = p.loc(startLine)
	return n
}

func (p *Parser) parseDoWhile() ast.Node {
	startLine := p.cur().Line
	p.advance() // 'do'
	p.loopDepth++
	body := p.parseBlock()
	p.loopDepth--
	p.expect(token.KwWhile)
	cond := p.parseExpression(false, false)
	p.expect(token.Semicolon)
	n := &ast.DoWhile{Body: body, Cond: cond}
	if body != nil {
		ast.Attach(n, body)
	}
	if cond != nil {
		ast.Attach(n, cond)
	}
	n.Location = p.loc(startLine)
	return n
}

// parseSwitch implements the reference implementation's
// controlflow.cpp switch lowering (resolved Open Question: switches
// ARE implemented here), including duplicate-case-value rejection
// (spec §4.6) and `fallthrough`.
func (p *Parser) parseSwitch() ast.Node {
	startLine := p.cur().Line
	p.advance() // 'switch'
	target := p.parseExpression(false, false)
	n := &ast.Switch{Target: target}
	if target != nil {
		ast.Attach(n, target)
	}

	if _, ok := p.expect(token.LBrace); !ok {
		n.Location = p.loc(startLine)
		return n
	}

	seenValues := make(map[string]bool)
	sawDefault := false
	p.switchDepth++
	for p.cur().Type != token.RBrace && p.cur().Type != token.EOF {
		c := p.parseCase(seenValues, &sawDefault)
		if c != nil {
			n.Cases = append(n.Cases, c)
			ast.Attach(n, c)
		}
	}
	p.switchDepth--
	p.expect(token.RBrace)
	if !sawDefault {
		p.errorf(diagnostics.ControlFlow, p.cur().Pos, "switch requires a 'default' case")
	}
	n.Location = p.loc(startLine)
	return n
}

func (p *Parser) parseCase(seenValues map[string]bool, sawDefault *bool) *ast.Case {
	startLine := p.cur().Line
	c := &ast.Case{}

	switch p.cur().Type {
	case token.KwCase:
		p.advance()
		val := p.parseExpression(false, false)
		c.Value = val
		if val != nil {
			ast.Attach(c, val)
		}
		if lit, ok := val.(*ast.Literal); ok {
			if seenValues[lit.Raw] {
				p.errorf(diagnostics.TypeError, p.cur().Pos, "duplicate case value '%s'", lit.Raw)
			}
			seenValues[lit.Raw] = true
		}
	case token.KwDefault:
		p.advance()
		if *sawDefault {
			p.errorf(diagnostics.Syntactic, p.cur().Pos, "switch may have only one 'default' case")
		}
		*sawDefault = true
		c.IsDefault = true
	default:
		p.errorf(diagnostics.Syntactic, p.cur().Pos, "expected 'case' or 'default', found %s", p.cur().Type)
		p.advance()
		return nil
	}

	p.expect(token.Colon)

	p.tab.PushScope()
	body := &ast.Block{}
	for p.cur().Type != token.KwCase && p.cur().Type != token.KwDefault &&
		p.cur().Type != token.RBrace && p.cur().Type != token.EOF {
		if p.cur().Type == token.KwFallthrough {
			p.advance()
			p.expect(token.Semicolon)
			c.Fallthrough = true
			continue
		}
		before := p.cur()
		stmt := p.parseStatement()
		if stmt != nil {
			body.Children = append(body.Children, ast.Attach(body, stmt))
		}
		if p.cur() == before {
			p.advance()
		}
	}
	p.tab.PopScope()

	c.Body = body
	ast.Attach(c, body)
	c.Location = p.loc(startLine)
	return c
}

func (p *Parser) parseRet() ast.Node {
	startLine := p.cur().Line
	p.advance() // 'ret'
	n := &ast.Ret{}
	if p.cur().Type != token.Semicolon {
		n.Value = p.parseExpression(false, false)
		if n.Value != nil {
			ast.Attach(n, n.Value)
		}
	}
	p.expect(token.Semicolon)
	n.Location = p.loc(startLine)

	if p.procDepth == 0 {
		p.errorf(diagnostics.ControlFlow, token.Position{Line: startLine}, "'ret' outside of a procedure body")
	}
	return n
}

// parseDefer/parseDeferIf require the deferred expression to be a
// call (spec §4.6): `defer f(args);` / `defer_if cond, f(args);`.
func (p *Parser) parseDefer() ast.Node {
	startLine := p.cur().Line
	p.advance() // 'defer'
	expr := p.parseExpression(false, false)
	p.expect(token.Semicolon)

	n := &ast.Defer{}
	if call, ok := expr.(*ast.Call); ok {
		n.Call = call
		ast.Attach(n, call)
	} else if expr != nil {
		p.errorf(diagnostics.Syntactic, token.Position{Line: startLine}, "'defer' operand must be a call expression")
	}
	n.Location = p.loc(startLine)
	return n
}

func (p *Parser) parseDeferIf() ast.Node {
	startLine := p.cur().Line
	p.advance() // 'defer_if'
	cond := p.parseExpression(false, false)
	p.expect(token.Comma)
	expr := p.parseExpression(false, false)
	p.expect(token.Semicolon)

	n := &ast.DeferIf{Cond: cond}
	if cond != nil {
		ast.Attach(n, cond)
	}
	if call, ok := expr.(*ast.Call); ok {
		n.Call = call
		ast.Attach(n, call)
	} else if expr != nil {
		p.errorf(diagnostics.Syntactic, token.Position{Line: startLine}, "'defer_if' operand must be a call expression")
	}
	n.Location = p.loc(startLine)
	return n
}
