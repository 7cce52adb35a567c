package parser

import (
	"github.com/takc-lang/tak/internal/diagnostics"
	"github.com/takc-lang/tak/internal/token"
	"github.com/takc-lang/tak/internal/types"
)

var primitiveOf = map[token.Type]types.Primitive{
	token.KwU8: types.PrimitiveU8, token.KwI8: types.PrimitiveI8,
	token.KwU16: types.PrimitiveU16, token.KwI16: types.PrimitiveI16,
	token.KwU32: types.PrimitiveU32, token.KwI32: types.PrimitiveI32,
	token.KwU64: types.PrimitiveU64, token.KwI64: types.PrimitiveI64,
	token.KwF32: types.PrimitiveF32, token.KwF64: types.PrimitiveF64,
	token.KwBool: types.PrimitiveBool, token.KwVoid: types.PrimitiveVoid,
}

// parseType parses a TYPE per spec §4.4: a primitive keyword, a user
// type name (optionally followed by a generic argument list `[T,U]`),
// or a procedure signature `proc(...) -> T`, followed by pointer `^`
// and array `[N]` postfixes (0 or empty brackets = inferred dimension).
func (p *Parser) parseType() (types.TypeData, bool) {
	t := p.cur()
	var td types.TypeData

	switch {
	case token.PrimitiveKeywords[t.Type]:
		p.advance()
		td = types.TypeData{Kind: types.KindPrimitive, NameKind: types.NameIsPrimitive, Primitive: primitiveOf[t.Type]}

	case t.Type == token.KwProc:
		p.advance()
		td = p.parseProcType()

	case t.Type == token.Identifier:
		p.advance()
		name := t.Text
		var args []types.TypeData
		if p.cur().Type == token.LBracket && p.looksLikeGenericArgs() {
			p.advance()
			for p.cur().Type != token.RBracket && p.cur().Type != token.EOF {
				argTd, ok := p.parseType()
				if !ok {
					break
				}
				args = append(args, argTd)
				if p.cur().Type == token.Comma {
					p.advance()
				}
			}
			p.expect(token.RBracket)
		}
		if alias, ok := p.tab.LookupTypeAlias(name); ok && len(args) == 0 {
			td = alias
		} else {
			td = types.TypeData{Kind: types.KindStruct, NameKind: types.NameIsUserType, UserName: name, Parameters: args}
		}

	default:
		p.errorf(diagnostics.Syntactic, t.Pos, "expected a type, found %s", t.Type)
		return types.TypeData{}, false
	}

	for {
		switch p.cur().Type {
		case token.Caret:
			p.advance()
			td.PointerDepth++
			td.Flags |= types.FlagPointer
		case token.LBracket:
			p.advance()
			var n uint32
			if p.cur().Type == token.IntLiteral {
				if v, err := parseUintLiteral(p.cur().Text); err == nil {
					n = uint32(v)
				}
				p.advance()
			}
			p.expect(token.RBracket)
			td.ArrayLengths = append(td.ArrayLengths, n)
			td.Flags |= types.FlagArray
		default:
			return td, true
		}
	}
}

// looksLikeGenericArgs speculatively checks whether `[` begins a
// generic-argument list (vs. an array-postfix on the preceding
// identifier used as a value, which cannot happen in a type position,
// but also vs. an empty-array postfix `[]`). A non-empty bracket whose
// first token can start a type is treated as generic args.
func (p *Parser) looksLikeGenericArgs() bool {
	saved := p.lex.Save()
	p.advance() // '['
	result := p.cur().Type != token.RBracket && (token.PrimitiveKeywords[p.cur().Type] || p.cur().Type == token.Identifier || p.cur().Type == token.KwProc)
	p.lex.Restore(saved)
	return result
}

func (p *Parser) parseProcType() types.TypeData {
	td := types.TypeData{Kind: types.KindProcedure, NameKind: types.NameIsNone}
	p.expect(token.LParen)
	for p.cur().Type != token.RParen && p.cur().Type != token.EOF {
		if p.cur().Type == token.ThreeDots {
			p.advance()
			td.Flags |= types.FlagProcVarargs
			break
		}
		argTd, ok := p.parseType()
		if !ok {
			break
		}
		argTd.Flags |= types.FlagProcArg
		td.Parameters = append(td.Parameters, argTd)
		if p.cur().Type == token.Comma {
			p.advance()
		}
	}
	p.expect(token.RParen)

	if p.cur().Type == token.Arrow {
		p.advance()
		if ret, ok := p.parseType(); ok {
			td.ReturnType = &ret
		}
	}
	return td
}

func parseUintLiteral(s string) (uint64, error) {
	var v uint64
	for _, r := range s {
		if r < '0' || r > '9' {
			break
		}
		v = v*10 + uint64(r-'0')
	}
	return v, nil
}

// parseGenericParams parses an optional `[T1, T2, ...]` header of
// generic parameter names (spec §4.4).
func (p *Parser) parseGenericParams() []string {
	if p.cur().Type != token.LBracket {
		return nil
	}
	p.advance()
	var names []string
	for p.cur().Type != token.RBracket && p.cur().Type != token.EOF {
		if t, ok := p.expect(token.Identifier); ok {
			names = append(names, t.Text)
		}
		if p.cur().Type == token.Comma {
			p.advance()
		}
	}
	p.expect(token.RBracket)
	return names
}
