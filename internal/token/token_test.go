package token

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDerivesKind(t *testing.T) {
	tests := []struct {
		name string
		typ  Type
		want Kind
	}{
		{"int literal", IntLiteral, KindLiteral},
		{"identifier", Identifier, KindUnspecific},
		{"primitive keyword", KwI32, KindTypeIdentifier},
		{"struct keyword is type identifier", KwStruct, KindTypeIdentifier},
		{"control keyword", KwIf, KindKeyword},
		{"binary operator", Plus, KindBinaryOperator},
		{"assignment is binary operator", ValueAssignment, KindBinaryOperator},
		{"unary-only operator", Tilde, KindUnaryOperator},
		{"punctuator", LParen, KindPunctuator},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tok := New(tt.typ, Position{Offset: 0, Line: 1}, "x", "f.tak")
			assert.Equal(t, tt.want, tok.Kind)
		})
	}
}

func TestTokenEqualIgnoresText(t *testing.T) {
	a := New(Identifier, Position{Line: 1}, "foo", "f.tak")
	b := New(Identifier, Position{Line: 2}, "bar", "f.tak")
	assert.True(t, a.Equal(b))

	c := New(Identifier, Position{Line: 1}, "foo", "f.tak")
	d := New(IntLiteral, Position{Line: 1}, "foo", "f.tak")
	assert.False(t, c.Equal(d))
}

func TestPrecedenceTable(t *testing.T) {
	require.Greater(t, Precedence(Star), Precedence(Plus))
	require.Greater(t, Precedence(Plus), Precedence(Lt))
	require.Greater(t, Precedence(Lt), Precedence(Eq))
	require.Greater(t, Precedence(Eq), Precedence(Amp))
	require.Equal(t, -1, Precedence(LParen))
	require.Equal(t, 0, Precedence(ValueAssignment))
}

func TestRightAssociativeIsAssignmentFamilyOnly(t *testing.T) {
	assert.True(t, RightAssociative(ValueAssignment))
	assert.True(t, RightAssociative(PlusEq))
	assert.True(t, RightAssociative(AndEq))
	assert.False(t, RightAssociative(Plus))
	assert.False(t, RightAssociative(Eq))
}

func TestOperatorClassificationPredicates(t *testing.T) {
	assert.True(t, IsArithAssign(PlusEq))
	assert.False(t, IsArithAssign(AndEq))

	assert.True(t, IsBWAssign(AndEq))
	assert.True(t, IsBWAssign(OrEq))
	assert.False(t, IsBWAssign(PlusEq))

	assert.True(t, IsValidPointerArith(Plus))
	assert.True(t, IsValidPointerArith(Increment))
	assert.False(t, IsValidPointerArith(Star))

	assert.True(t, IsBitwise(Amp))
	assert.True(t, IsBitwise(Xor))
	assert.False(t, IsBitwise(Plus))

	assert.True(t, IsComparison(Eq))
	assert.True(t, IsComparison(Gte))
	assert.False(t, IsComparison(LogicalAnd))

	assert.True(t, IsLogical(Eq))
	assert.True(t, IsLogical(LogicalAnd))
	assert.True(t, IsLogical(LogicalNot))
	assert.False(t, IsLogical(Plus))
}

func TestIdentStartAndUnaryOperator(t *testing.T) {
	assert.True(t, IdentStart(Identifier))
	assert.True(t, IdentStart(NamespaceAccess))
	assert.False(t, IdentStart(Dot))

	assert.True(t, ValidUnaryOperator(Minus))
	assert.True(t, ValidUnaryOperator(Caret))
	assert.False(t, ValidUnaryOperator(Star))
}

func TestTypeStringFallsBackForUnknown(t *testing.T) {
	assert.Equal(t, "+", Plus.String())
	assert.Contains(t, Type(9999).String(), "token(")
}
