package postparser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/takc-lang/tak/internal/diagnostics"
	"github.com/takc-lang/tak/internal/entity"
	"github.com/takc-lang/tak/internal/types"
)

func i32() types.TypeData {
	return types.TypeData{Kind: types.KindPrimitive, NameKind: types.NameIsPrimitive, Primitive: types.PrimitiveI32}
}

// spec §4.5 Pass A/B: a generic struct field referencing Box[i32]
// instantiates a concrete UserType named "Box[i32]".
func TestRunInstantiatesGenericStructField(t *testing.T) {
	tab := entity.New()
	require.NoError(t, tab.CreateType(&entity.UserType{
		CanonicalName: "Box",
		GenericParams: []string{"T"},
		Fields:        []entity.Field{{Name: "value", Type: types.TypeData{Kind: types.KindStruct, NameKind: types.NameIsUserType, UserName: "T"}}},
	}))
	boxI32 := types.TypeData{Kind: types.KindStruct, NameKind: types.NameIsUserType, UserName: "Box", Parameters: []types.TypeData{i32()}}
	require.NoError(t, tab.CreateType(&entity.UserType{
		CanonicalName: "Holder",
		Fields:        []entity.Field{{Name: "box", Type: boxI32}},
	}))

	rep := diagnostics.NewConsoleReporter(nil, false)
	Run(tab, rep)

	assert.False(t, rep.HasErrors())
	assert.True(t, tab.TypeExists("Box[i32]"))

	inst, ok := tab.LookupType("Box[i32]")
	require.True(t, ok)
	require.Len(t, inst.Fields, 1)
	assert.True(t, types.Identical(inst.Fields[0].Type, i32()))

	holder, _ := tab.LookupType("Holder")
	assert.Equal(t, "Box[i32]", holder.Fields[0].Type.UserName)
}

func TestRunReportsGenericArityMismatch(t *testing.T) {
	tab := entity.New()
	require.NoError(t, tab.CreateType(&entity.UserType{CanonicalName: "Pair", GenericParams: []string{"A", "B"}}))
	require.NoError(t, tab.CreateType(&entity.UserType{
		CanonicalName: "Holder",
		Fields: []entity.Field{{Name: "p", Type: types.TypeData{
			Kind: types.KindStruct, NameKind: types.NameIsUserType, UserName: "Pair", Parameters: []types.TypeData{i32()},
		}}},
	}))

	rep := diagnostics.NewConsoleReporter(nil, false)
	Run(tab, rep)

	require.True(t, rep.HasErrors())
	assert.Equal(t, diagnostics.Generics, rep.Errors()[0].Category)
}

func TestRunFoldsPointerOverGenericParam(t *testing.T) {
	tab := entity.New()
	ptrT := types.TypeData{Kind: types.KindStruct, NameKind: types.NameIsUserType, UserName: "T", PointerDepth: 1, Flags: types.FlagPointer}
	require.NoError(t, tab.CreateType(&entity.UserType{
		CanonicalName: "Box",
		GenericParams: []string{"T"},
		Fields:        []entity.Field{{Name: "ptr", Type: ptrT}},
	}))
	boxI32 := types.TypeData{Kind: types.KindStruct, NameKind: types.NameIsUserType, UserName: "Box", Parameters: []types.TypeData{i32()}}
	require.NoError(t, tab.CreateType(&entity.UserType{
		CanonicalName: "Holder",
		Fields:        []entity.Field{{Name: "box", Type: boxI32}},
	}))

	rep := diagnostics.NewConsoleReporter(nil, false)
	Run(tab, rep)
	require.False(t, rep.HasErrors())

	inst, ok := tab.LookupType("Box[i32]")
	require.True(t, ok)
	assert.EqualValues(t, 1, inst.Fields[0].Type.PointerDepth)
}

func TestRunRejectsProcedureSubstitutionIntoNonPointer(t *testing.T) {
	tab := entity.New()
	procField := types.TypeData{Kind: types.KindStruct, NameKind: types.NameIsUserType, UserName: "T"}
	require.NoError(t, tab.CreateType(&entity.UserType{
		CanonicalName: "Box",
		GenericParams: []string{"T"},
		Fields:        []entity.Field{{Name: "fn", Type: procField}},
	}))
	ret := i32()
	procArg := types.TypeData{Kind: types.KindProcedure, ReturnType: &ret}
	boxProc := types.TypeData{Kind: types.KindStruct, NameKind: types.NameIsUserType, UserName: "Box", Parameters: []types.TypeData{procArg}}
	require.NoError(t, tab.CreateType(&entity.UserType{
		CanonicalName: "Holder",
		Fields:        []entity.Field{{Name: "box", Type: boxProc}},
	}))

	rep := diagnostics.NewConsoleReporter(nil, false)
	Run(tab, rep)

	require.True(t, rep.HasErrors())
	assert.Equal(t, diagnostics.Generics, rep.Errors()[0].Category)
}

func TestRunIsIdempotentAtFixedPoint(t *testing.T) {
	tab := entity.New()
	require.NoError(t, tab.CreateType(&entity.UserType{CanonicalName: "Box", GenericParams: []string{"T"}}))
	boxI32 := types.TypeData{Kind: types.KindStruct, NameKind: types.NameIsUserType, UserName: "Box", Parameters: []types.TypeData{i32()}}
	require.NoError(t, tab.CreateType(&entity.UserType{CanonicalName: "Holder", Fields: []entity.Field{{Name: "box", Type: boxI32}}}))

	rep := diagnostics.NewConsoleReporter(nil, false)
	Run(tab, rep)
	countAfterFirst := len(tab.AllTypes())

	Run(tab, rep)
	assert.Equal(t, countAfterFirst, len(tab.AllTypes()), "re-running postparser over already-instantiated types adds nothing new")
}
