package lexer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/takc-lang/tak/internal/token"
)

func tokenize(t *testing.T, src string) []token.Token {
	t.Helper()
	l := New("t.tak", src)
	var toks []token.Token
	for {
		toks = append(toks, l.Current())
		if l.Current().Type == token.EOF {
			break
		}
		l.NextToken()
	}
	return toks
}

func types(toks []token.Token) []token.Type {
	out := make([]token.Type, len(toks))
	for i, tk := range toks {
		out[i] = tk.Type
	}
	return out
}

func TestLexKeywordsAndIdentifiers(t *testing.T) {
	toks := tokenize(t, "proc main for counter")
	assert.Equal(t, []token.Type{token.KwProc, token.Identifier, token.KwFor, token.Identifier, token.EOF}, types(toks))
}

func TestLexOperatorsMaximalMunch(t *testing.T) {
	toks := tokenize(t, "<<= <= << < = ==")
	assert.Equal(t, []token.Type{
		token.LShiftEq, token.Lte, token.LShift, token.Lt, token.ValueAssignment, token.Eq, token.EOF,
	}, types(toks))
}

func TestLexNumberLiterals(t *testing.T) {
	toks := tokenize(t, "42 3.14 0xFF 0x10")
	assert.Equal(t, []token.Type{
		token.IntLiteral, token.FloatLiteral, token.HexLiteral, token.HexLiteral, token.EOF,
	}, types(toks))
	assert.Equal(t, "42", toks[0].Text)
	assert.Equal(t, "3.14", toks[1].Text)
	assert.Equal(t, "0xFF", toks[2].Text)
}

func TestLexStringAndCharLiterals(t *testing.T) {
	toks := tokenize(t, `"hello\n" 'a' '\t'`)
	assert.Equal(t, []token.Type{token.StringLiteral, token.CharLiteral, token.CharLiteral, token.EOF}, types(toks))
	assert.Equal(t, `"hello\n"`, toks[0].Text)
}

func TestLexUnterminatedStringReportsDiagnostic(t *testing.T) {
	l := New("t.tak", `"unterminated`)
	require.Equal(t, token.StringLiteral, l.Current().Type)
	require.NotEmpty(t, l.Errors())
	assert.Contains(t, l.Errors()[0].Message, "unterminated string")
}

func TestLexBoolAndNullptrKeywords(t *testing.T) {
	toks := tokenize(t, "true false nullptr")
	assert.Equal(t, []token.Type{token.BoolLiteral, token.BoolLiteral, token.Nullptr, token.EOF}, types(toks))
}

func TestLexSkipsCommentsAndWhitespace(t *testing.T) {
	toks := tokenize(t, "a // line comment\nb /* block\ncomment */ c")
	assert.Equal(t, []token.Type{token.Identifier, token.Identifier, token.Identifier, token.EOF}, types(toks))
}

func TestLexSaveRestoreRoundTrips(t *testing.T) {
	l := New("t.tak", "a b c")
	save := l.Save()
	l.NextToken()
	l.NextToken()
	assert.Equal(t, "c", l.Current().Text)

	l.Restore(save)
	assert.Equal(t, "a", l.Current().Text)
	assert.Equal(t, "b", l.Peek().Text)
}

func TestLexPeekNLooksAhead(t *testing.T) {
	l := New("t.tak", "a b c d")
	assert.Equal(t, "a", l.PeekN(0).Text)
	assert.Equal(t, "b", l.PeekN(1).Text)
	assert.Equal(t, "c", l.PeekN(2).Text)
}

// The round-trip invariant from spec §8: concatenating the source
// slices of all non-NONE tokens in order reproduces the original
// source up to comment and whitespace elision.
func TestLexRoundTripReproducesNonWhitespaceSource(t *testing.T) {
	src := "proc add(a: i32, b: i32) -> i32 { ret a + b; }"
	toks := tokenize(t, src)

	var rebuilt string
	for _, tk := range toks {
		if tk.Type == token.EOF || tk.Type == token.None {
			continue
		}
		rebuilt += tk.Text
	}
	assert.Equal(t, "procadd(a:i32,b:i32)->i32{reta+b;}", rebuilt)
}

func TestResolveEscapes(t *testing.T) {
	out, err := ResolveEscapes(`"a\nb\tc"`)
	require.NoError(t, err)
	assert.Equal(t, "a\nb\tc", out)

	_, err = ResolveEscapes(`"bad\q"`)
	assert.Error(t, err)

	_, err = ResolveEscapes(`"trailing\"`)
	assert.Error(t, err)
}

func TestHexLiteralToInt(t *testing.T) {
	v, err := HexLiteralToInt("0xFF")
	require.NoError(t, err)
	assert.EqualValues(t, 255, v)
}
