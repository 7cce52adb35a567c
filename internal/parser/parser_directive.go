package parser

import (
	"path/filepath"

	"github.com/takc-lang/tak/internal/ast"
	"github.com/takc-lang/tak/internal/diagnostics"
	"github.com/takc-lang/tak/internal/entity"
	"github.com/takc-lang/tak/internal/lexer"
	"github.com/takc-lang/tak/internal/token"
)

// parseDirective dispatches on the identifier following `@` (spec
// §4.4/§6.2): include, alias, intern, extern.
func (p *Parser) parseDirective() ast.Node {
	startLine := p.cur().Line
	p.advance() // '@'
	nameTok, ok := p.expect(token.Identifier)
	if !ok {
		return nil
	}

	switch nameTok.Text {
	case "include":
		return p.parseIncludeDirective(startLine)
	case "alias":
		return p.parseAliasDirective(startLine)
	case "intern":
		return p.parseVisibilityWrappedDecl(startLine, entity.SymInternal)
	case "extern":
		return p.parseExternDirective(startLine)
	default:
		p.errorf(diagnostics.Syntactic, nameTok.Pos, "unknown directive '@%s'", nameTok.Text)
		return nil
	}
}

// parseIncludeDirective handles `@include "path/to/file.tak";`:
// resolves the path relative to the including file's directory,
// validates it against the `*.tak` glob (doublestar), and recursively
// parses it (with `parseInclude`'s cycle tracking) before continuing —
// included declarations splice directly into the current
// toplevel-declarations list, matching C-style textual inclusion
// (spec §4.4).
func (p *Parser) parseIncludeDirective(startLine int) ast.Node {
	pathTok, ok := p.expect(token.StringLiteral)
	if !ok {
		return nil
	}
	p.expect(token.Semicolon)

	raw, err := lexer.ResolveEscapes(pathTok.Text)
	if err != nil {
		p.errorf(diagnostics.Lexical, pathTok.Pos, "%v", err)
		return nil
	}

	if !p.includePathAllowed(raw) {
		p.errorf(diagnostics.IO, pathTok.Pos, "@include path %q must name a '.tak' source file", raw)
		return nil
	}

	dir := filepath.Dir(p.file)
	resolved := filepath.Join(dir, raw)
	abs, err := filepath.Abs(resolved)
	if err != nil {
		p.errorf(diagnostics.IO, pathTok.Pos, "cannot resolve @include path %q: %v", raw, err)
		return nil
	}

	n := &ast.IncludeStmt{Path: raw, ResolvedPath: abs}
	n.Location = p.loc(startLine)

	if _, err := p.parseInclude(abs); err != nil {
		p.errorf(diagnostics.IO, pathTok.Pos, "%v", err)
	}
	return n
}

// parseAliasDirective handles `@alias Name = TYPE;` (spec §4.3's type
// alias table).
func (p *Parser) parseAliasDirective(startLine int) ast.Node {
	nameTok, ok := p.expect(token.Identifier)
	if !ok {
		return nil
	}
	p.expect(token.ValueAssignment)
	td, ok := p.parseType()
	if !ok {
		return nil
	}
	p.expect(token.Semicolon)

	p.tab.CreateTypeAlias(nameTok.Text, td)

	n := &ast.TypeAlias{Name: nameTok.Text, Target: td}
	n.Location = p.loc(startLine)
	return n
}

// parseVisibilityWrappedDecl handles `@intern <decl>` (and is reused
// by the plain-`@extern` arm below): the directive must wrap exactly
// one declaration (spec SUPPLEMENTED FEATURES #7), never a block of
// several.
func (p *Parser) parseVisibilityWrappedDecl(startLine int, flag entity.SymbolFlag) ast.Node {
	inner := p.parseTopLevelForm()
	applyVisibilityFlag(inner, flag)
	return inner
}

// parseExternDirective handles bare `@extern <decl>` and
// `@extern ["C"] <decl>`. The `["C"]` form additionally marks the decl
// SymForeignC and is only legal at namespace depth 0 (spec §4.4's
// "namespace-depth restriction").
func (p *Parser) parseExternDirective(startLine int) ast.Node {
	externC := false
	if p.cur().Type == token.LBracket {
		p.advance()
		if tagTok, ok := p.expect(token.StringLiteral); ok {
			raw, _ := lexer.ResolveEscapes(tagTok.Text)
			if raw != "C" {
				p.errorf(diagnostics.Syntactic, tagTok.Pos, `unsupported @extern linkage tag %q, only "C" is supported`, raw)
			}
			externC = true
		}
		p.expect(token.RBracket)
		if externC && p.tab.NamespaceAsString() != "" {
			p.errorf(diagnostics.Syntactic, p.cur().Pos, `@extern ["C"] is only legal at global namespace depth`)
		}
	}

	flag := entity.SymForeign
	if externC {
		flag |= entity.SymForeignC
	}
	inner := p.parseTopLevelForm()
	applyVisibilityFlag(inner, flag)
	return inner
}

func applyVisibilityFlag(n ast.Node, flag entity.SymbolFlag) {
	switch d := n.(type) {
	case *ast.ProcDecl:
		if flag&entity.SymInternal != 0 {
			d.Internal = true
		}
		if flag&entity.SymForeign != 0 {
			d.External = true
		}
		if flag&entity.SymForeignC != 0 {
			d.ExternC = true
		}
	case *ast.VarDecl:
		if flag&entity.SymInternal != 0 {
			d.Internal = true
		}
		if flag&entity.SymForeign != 0 {
			d.External = true
		}
	}
}
