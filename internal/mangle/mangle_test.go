package mangle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/takc-lang/tak/internal/types"
)

func TestParsePlainName(t *testing.T) {
	n, err := Parse("Point")
	require.NoError(t, err)
	assert.Equal(t, "Point", n.Base)
	assert.False(t, n.IsGeneric())
	assert.Equal(t, "Point", n.String())
}

func TestParseSingleArgGeneric(t *testing.T) {
	n, err := Parse("Box[i32]")
	require.NoError(t, err)
	require.True(t, n.IsGeneric())
	assert.Equal(t, "Box", n.Base)
	require.Len(t, n.Args, 1)
	assert.Equal(t, "i32", n.Args[0].Base)
	assert.Equal(t, "Box[i32]", n.String())
}

func TestParseMultiArgGeneric(t *testing.T) {
	n, err := Parse("Pair[i32,f64]")
	require.NoError(t, err)
	require.Len(t, n.Args, 2)
	assert.Equal(t, "i32", n.Args[0].Base)
	assert.Equal(t, "f64", n.Args[1].Base)
}

func TestParseNestedGeneric(t *testing.T) {
	n, err := Parse("Pair[Box[i32],f64]")
	require.NoError(t, err)
	require.Len(t, n.Args, 2)
	assert.True(t, n.Args[0].IsGeneric())
	assert.Equal(t, "Box", n.Args[0].Base)
	assert.Equal(t, "i32", n.Args[0].Args[0].Base)
	assert.Equal(t, "Pair[Box[i32],f64]", n.String())
}

func TestParsePointerAndArrayPostfixArg(t *testing.T) {
	n, err := Parse("Box[i32^]")
	require.NoError(t, err)
	require.Len(t, n.Args, 1)
	assert.Equal(t, 1, n.Args[0].Stars)
	assert.Equal(t, "i32^", n.Args[0].String())
}

func TestParseInvalidNameErrors(t *testing.T) {
	_, err := Parse("Box[")
	assert.Error(t, err)

	_, err = Parse("Box[,]")
	assert.Error(t, err)
}

// Round trips every MangledName this package's own types tests would
// produce, matching the grounding contract: Parse(types.MangledName(...))
// renders back to the exact input.
func TestRoundTripsTypesMangledName(t *testing.T) {
	i32 := types.TypeData{Kind: types.KindPrimitive, NameKind: types.NameIsPrimitive, Primitive: types.PrimitiveI32}
	f64 := types.TypeData{Kind: types.KindPrimitive, NameKind: types.NameIsPrimitive, Primitive: types.PrimitiveF64}
	mangled := types.MangledName("Pair", []types.TypeData{i32, f64})

	n, err := Parse(mangled)
	require.NoError(t, err)
	assert.Equal(t, mangled, n.String())
}
