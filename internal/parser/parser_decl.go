package parser

import (
	"github.com/takc-lang/tak/internal/ast"
	"github.com/takc-lang/tak/internal/diagnostics"
	"github.com/takc-lang/tak/internal/entity"
	"github.com/takc-lang/tak/internal/token"
	"github.com/takc-lang/tak/internal/types"
)

// parseVarDeclStatement parses `name : T [= e];`, `name :: T [= e];`,
// `name := e;`, `name ::= e;` (spec §6.2 decl forms). Usable at top
// level and inside a block.
func (p *Parser) parseVarDeclStatement() ast.Node {
	startLine := p.cur().Line
	nameTok, ok := p.expect(token.Identifier)
	if !ok {
		return nil
	}

	constant := false
	var declaredType *types.TypeData

	switch p.cur().Type {
	case token.DoubleColon:
		p.advance()
		constant = true
	case token.Colon:
		p.advance()
	default:
		p.errorf(diagnostics.Syntactic, p.cur().Pos, "expected ':' or '::' after identifier in declaration")
		return nil
	}

	if p.cur().Type != token.ValueAssignment {
		td, ok := p.parseType()
		if !ok {
			return nil
		}
		declaredType = &td
	}

	var init ast.Node
	if p.cur().Type == token.ValueAssignment {
		p.advance()
		init = p.parseExpression(false, false)
	}
	p.expect(token.Semicolon)

	n := &ast.VarDecl{Name: nameTok.Text, Constant: constant, Init: init, DeclaredType: declaredType}
	n.Location = p.loc(startLine)

	flags := entity.SymbolFlag(0)
	if p.tab.ScopeDepth() == 1 {
		flags |= entity.SymGlobal
	}
	symType := types.TypeData{Flags: types.FlagInferred}
	if declaredType != nil {
		symType = *declaredType
	}
	if constant {
		symType.Flags |= types.FlagConstant
	}

	sym, err := p.tab.CreateSymbol(nameTok.Text, symType, flags, p.file, nameTok.Line, nameTok.Pos.Offset)
	if err != nil {
		p.errorf(diagnostics.NameResolution, nameTok.Pos, "%v", err)
	} else {
		n.SymbolIndex = sym.Index
		n.CanonicalName = sym.CanonicalName
	}

	if init != nil {
		ast.Attach(n, init)
	}
	return n
}

// parseProcDecl parses `proc Name [generics] (params) -> T { body }`.
// A non-empty generics header marks the symbol generic-base and the
// body is skipped verbatim without attempting to build statement
// nodes for it (spec §4.4): generic procedures are not monomorphized
// by C6 in this implementation (only generic structs are, matching
// the testable properties in spec §8, which exercise struct
// instantiation exclusively).
func (p *Parser) parseProcDecl() ast.Node {
	startLine := p.cur().Line
	p.advance() // 'proc'
	nameTok, ok := p.expect(token.Identifier)
	if !ok {
		return nil
	}

	generics := p.parseGenericParams()

	params := p.parseParamList()

	var retType *types.TypeData
	if p.cur().Type == token.Arrow {
		p.advance()
		if td, ok := p.parseType(); ok {
			retType = &td
		}
	}

	procTd := types.TypeData{Kind: types.KindProcedure, NameKind: types.NameIsNone, ReturnType: retType}
	for _, prm := range params {
		procTd.Parameters = append(procTd.Parameters, prm.Type)
	}

	flags := entity.SymGlobal
	if len(generics) > 0 {
		flags |= entity.SymGenericBase
	}
	sym, err := p.tab.CreateSymbol(nameTok.Text, procTd, flags, p.file, nameTok.Line, nameTok.Pos.Offset)
	if err != nil {
		p.errorf(diagnostics.NameResolution, nameTok.Pos, "%v", err)
	}

	n := &ast.ProcDecl{
		Name: nameTok.Text, Constant: true, Generics: generics, Params: params, ReturnType: retType,
	}
	if sym != nil {
		n.SymbolIndex = sym.Index
		n.CanonicalName = sym.CanonicalName
	}

	if len(generics) > 0 {
		p.skipBalancedBlock()
		n.Location = p.loc(startLine)
		return n
	}

	// A body-less prototype (`proc foo(a: i32) -> i32;`) ends at its
	// semicolon; this is the form foreign-function declarations under
	// `@extern`/`@extern ["C"]` take. The parser accepts it with or
	// without a directive, and no later stage rejects it.
	if p.cur().Type == token.Semicolon {
		p.advance()
		n.Location = p.loc(startLine)
		return n
	}

	p.tab.PushScope()
	for i, prm := range params {
		if sym, err := p.tab.CreateSymbol(prm.Name, prm.Type, 0, p.file, nameTok.Line, nameTok.Pos.Offset); err == nil {
			params[i].SymbolIndex = sym.Index
		}
	}
	n.Params = params
	p.procDepth++
	body := p.parseBlock()
	p.procDepth--
	p.tab.PopScope()

	n.Body = body
	if body != nil {
		ast.Attach(n, body)
	}
	n.Location = p.loc(startLine)
	return n
}

func (p *Parser) parseParamList() []ast.Param {
	var params []ast.Param
	p.expect(token.LParen)
	for p.cur().Type != token.RParen && p.cur().Type != token.EOF {
		if p.cur().Type == token.ThreeDots {
			p.advance()
			break
		}
		nameTok, ok := p.expect(token.Identifier)
		if !ok {
			break
		}
		p.expect(token.Colon)
		td, ok := p.parseType()
		if !ok {
			break
		}
		td.Flags |= types.FlagProcArg
		params = append(params, ast.Param{Name: nameTok.Text, Type: td})
		if p.cur().Type == token.Comma {
			p.advance()
		}
	}
	p.expect(token.RParen)
	return params
}

// skipBalancedBlock consumes a `{ ... }` body by counting matched
// braces, without building AST nodes (used for generic-base proc
// bodies, spec §4.4 "skipped verbatim").
func (p *Parser) skipBalancedBlock() {
	if _, ok := p.expect(token.LBrace); !ok {
		return
	}
	depth := 1
	for depth > 0 && p.cur().Type != token.EOF {
		switch p.cur().Type {
		case token.LBrace:
			depth++
		case token.RBrace:
			depth--
		}
		p.advance()
	}
}

func (p *Parser) parseStructDef() ast.Node {
	startLine := p.cur().Line
	p.advance() // 'struct'
	nameTok, ok := p.expect(token.Identifier)
	if !ok {
		return nil
	}
	generics := p.parseGenericParams()

	n := &ast.StructDef{Name: nameTok.Text, Generics: generics}
	n.Location = p.loc(startLine)

	if _, ok := p.expect(token.LBrace); ok {
		for p.cur().Type != token.RBrace && p.cur().Type != token.EOF {
			fieldTok, ok := p.expect(token.Identifier)
			if !ok {
				break
			}
			p.expect(token.Colon)
			td, ok := p.parseType()
			if !ok {
				break
			}
			n.Fields = append(n.Fields, ast.StructField{Name: fieldTok.Text, Type: td})
			if p.cur().Type == token.Comma {
				p.advance()
			}
		}
		p.expect(token.RBrace)
	}

	ut := &entity.UserType{CanonicalName: p.canonicalUserTypeName(nameTok.Text), GenericParams: generics, File: p.file, Line: nameTok.Line}
	for _, f := range n.Fields {
		ut.Fields = append(ut.Fields, entity.Field{Name: f.Name, Type: f.Type})
	}
	n.CanonicalName = ut.CanonicalName
	if err := p.tab.CreateType(ut); err != nil {
		p.errorf(diagnostics.NameResolution, nameTok.Pos, "%v", err)
	}
	return n
}

func (p *Parser) canonicalUserTypeName(name string) string {
	if ns := p.tab.NamespaceAsString(); ns != "" {
		return ns + `\` + name
	}
	return name
}

// parseEnumDef parses `enum Name : underlying { A, B = 4, C };` (spec
// §4.4/§4.6 enum desugaring): members lacking an explicit value take
// the previous member's value plus one, starting at 0.
func (p *Parser) parseEnumDef() ast.Node {
	startLine := p.cur().Line
	p.advance() // 'enum'
	nameTok, ok := p.expect(token.Identifier)
	if !ok {
		return nil
	}

	underlying := types.PrimitiveI32
	if p.cur().Type == token.Colon {
		p.advance()
		t := p.cur()
		if prim, ok := primitiveOf[t.Type]; ok {
			p.advance()
			underlying = prim
		} else {
			p.errorf(diagnostics.Syntactic, t.Pos, "expected a primitive underlying type, found %s", t.Type)
		}
	}

	n := &ast.EnumDef{Name: nameTok.Text, Underlying: underlying}

	if _, ok := p.expect(token.LBrace); ok {
		var next int64
		for p.cur().Type != token.RBrace && p.cur().Type != token.EOF {
			memberTok, ok := p.expect(token.Identifier)
			if !ok {
				break
			}
			value := next
			if p.cur().Type == token.ValueAssignment {
				p.advance()
				if lit := p.cur(); lit.Type == token.IntLiteral {
					if v, err := parseUintLiteral(lit.Text); err == nil {
						value = int64(v)
					}
					p.advance()
				} else if lit.Type == token.Minus && p.peek().Type == token.IntLiteral {
					p.advance()
					if v, err := parseUintLiteral(p.cur().Text); err == nil {
						value = -int64(v)
					}
					p.advance()
				}
			}
			n.Members = append(n.Members, ast.Enumerator{Name: memberTok.Text, Value: value})
			next = value + 1

			td := types.TypeData{Kind: types.KindPrimitive, NameKind: types.NameIsPrimitive, Primitive: underlying, Flags: types.FlagConstant}
			if _, err := p.tab.CreateSymbol(memberTok.Text, td, entity.SymGlobal, p.file, memberTok.Line, memberTok.Pos.Offset); err != nil {
				p.errorf(diagnostics.NameResolution, memberTok.Pos, "%v", err)
			}

			if p.cur().Type == token.Comma {
				p.advance()
			}
		}
		p.expect(token.RBrace)
	}
	p.expect(token.Semicolon)

	n.Location = p.loc(startLine)
	return n
}
