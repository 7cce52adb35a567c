// Package postparser implements Tak's post-parser (C6, spec §4.5):
// two-pass generic-struct monomorphization over the entity table built
// by C5. Grounded on the two-pass description in spec §4.5 and on
// `_examples/original_source/tak/src/postparser/*.cpp` for the
// substitution-failure edge cases the distilled spec only sketches.
package postparser

import (
	"fmt"

	"github.com/takc-lang/tak/internal/diagnostics"
	"github.com/takc-lang/tak/internal/entity"
	"github.com/takc-lang/tak/internal/types"
)

// Run performs Pass A (symbols) then Pass B (types, to a fixed point),
// reporting generics-category diagnostics for arity mismatches and
// substitution failures.
func Run(tab *entity.Table, reporter diagnostics.Reporter) {
	p := &postparser{tab: tab, reporter: reporter, instantiated: make(map[string]bool)}
	p.passA()
	p.passBToFixedPoint()
}

type postparser struct {
	tab          *entity.Table
	reporter     diagnostics.Reporter
	instantiated map[string]bool // mangled names already produced, across both passes
}

func (p *postparser) errorf(format string, args ...interface{}) {
	p.reporter.Report(diagnostics.Diagnostic{
		Category: diagnostics.Generics,
		Severity: diagnostics.SeverityError,
		Message:  fmt.Sprintf(format, args...),
	})
}

// passA walks every symbol whose type is a procedure or struct, per
// spec §4.5 Pass A, instantiating any struct generic usages it finds.
func (p *postparser) passA() {
	for _, sym := range p.tab.AllSymbols() {
		if sym.Flags.Has(entity.SymGenericBase) {
			continue // the base itself is never instantiated directly
		}
		if sym.Type.Kind != types.KindProcedure && sym.Type.Kind != types.KindStruct {
			continue
		}
		newType, changed := p.visitAndInstantiate(sym.Type)
		if changed {
			sym.Type = newType
		}
	}
}

// passBToFixedPoint repeats the walk over all non-generic user types
// until an iteration produces no new instantiations (spec §4.5 Pass B:
// "new instantiations discovered during a pass are handled in
// subsequent iterations until fixed point").
func (p *postparser) passBToFixedPoint() {
	for {
		before := len(p.instantiated)
		for _, ut := range p.tab.AllTypes() {
			if len(ut.GenericParams) > 0 {
				continue // templates themselves are never walked directly
			}
			for i := range ut.Fields {
				newType, changed := p.visitAndInstantiate(ut.Fields[i].Type)
				if changed {
					ut.Fields[i].Type = newType
				}
			}
		}
		if len(p.instantiated) == before {
			return
		}
	}
}

// visitAndInstantiate recursively walks td looking for struct usages
// that carry generic arguments (`TypeData.Parameters` non-empty on a
// struct-kind type), instantiating each into a concrete `UserType` and
// rewriting the occurrence's `UserName` to the mangled name. Also
// recurses into procedure parameter/return-type subtrees.
func (p *postparser) visitAndInstantiate(td types.TypeData) (types.TypeData, bool) {
	changed := false

	if td.Kind == types.KindStruct && len(td.Parameters) > 0 {
		base, ok := p.tab.LookupType(td.UserName)
		if !ok {
			p.errorf("unknown generic struct base '%s'", td.UserName)
			return td, false
		}
		if len(base.GenericParams) != len(td.Parameters) {
			p.errorf("generic arity mismatch for '%s': expected %d argument(s), got %d",
				td.UserName, len(base.GenericParams), len(td.Parameters))
			return td, false
		}

		mangled := types.MangledName(td.UserName, td.Parameters)
		if !p.tab.TypeExists(mangled) {
			if err := p.instantiateStruct(base, td.Parameters, mangled); err != nil {
				p.errorf("%v", err)
				return td, false
			}
			p.instantiated[mangled] = true
		}

		td.UserName = mangled
		td.Parameters = nil
		changed = true
	}

	if td.Kind == types.KindProcedure {
		for i := range td.Parameters {
			if newParam, ch := p.visitAndInstantiate(td.Parameters[i]); ch {
				td.Parameters[i] = newParam
				changed = true
			}
		}
		if td.ReturnType != nil {
			if newRet, ch := p.visitAndInstantiate(*td.ReturnType); ch {
				*td.ReturnType = newRet
				changed = true
			}
		}
	}

	return td, changed
}

// instantiateStruct builds a concrete UserType from a generic base and
// a fully-resolved argument list, substituting each field's occurrences
// of the base's generic parameter names (spec §4.5 Pass A step 3).
func (p *postparser) instantiateStruct(base *entity.UserType, args []types.TypeData, mangled string) error {
	subst := make(map[string]types.TypeData, len(base.GenericParams))
	for i, name := range base.GenericParams {
		subst[name] = args[i]
	}

	inst := &entity.UserType{
		CanonicalName: mangled,
		File:          base.File,
		Line:          base.Line,
		Flags:         base.Flags,
	}
	for _, f := range base.Fields {
		sub, err := substitute(f.Type, subst)
		if err != nil {
			return fmt.Errorf("instantiating '%s': field '%s': %w", mangled, f.Name, err)
		}
		inst.Fields = append(inst.Fields, entity.Field{Name: f.Name, Type: sub})
	}

	return p.tab.CreateType(inst)
}

// substitute replaces bare occurrences of a generic parameter name
// (NameIsUserType whose UserName matches a key in subst) with the
// corresponding argument type, folding the occurrence's own pointer
// depth and array dimensions on top of the argument's. Recurses into
// nested procedure and generic-struct-argument subtrees.
func substitute(td types.TypeData, subst map[string]types.TypeData) (types.TypeData, error) {
	if td.Kind == types.KindStruct && td.NameKind == types.NameIsUserType {
		if arg, ok := subst[td.UserName]; len(td.Parameters) == 0 && ok {
			return foldOccurrence(td, arg)
		}
		for i := range td.Parameters {
			sub, err := substitute(td.Parameters[i], subst)
			if err != nil {
				return types.TypeData{}, err
			}
			td.Parameters[i] = sub
		}
		return td, nil
	}

	if td.Kind == types.KindProcedure {
		for i := range td.Parameters {
			sub, err := substitute(td.Parameters[i], subst)
			if err != nil {
				return types.TypeData{}, err
			}
			td.Parameters[i] = sub
		}
		if td.ReturnType != nil {
			sub, err := substitute(*td.ReturnType, subst)
			if err != nil {
				return types.TypeData{}, err
			}
			ret := sub
			td.ReturnType = &ret
		}
		return td, nil
	}

	return td, nil
}

// foldOccurrence combines a bare generic-parameter occurrence's own
// pointer/array modifiers (e.g. a field declared `x: T^`) with the
// concrete argument type substituted in for T. A procedure-kind
// argument may only be combined with a non-zero resulting pointer
// depth (spec's example failure: "trying to substitute a pointer for
// a non-pointer").
func foldOccurrence(occurrence, arg types.TypeData) (types.TypeData, error) {
	result := arg
	result.PointerDepth += occurrence.PointerDepth
	result.ArrayLengths = append(append([]uint32{}, arg.ArrayLengths...), occurrence.ArrayLengths...)
	result.Flags |= occurrence.Flags & (types.FlagConstant | types.FlagProcArg | types.FlagRValue)
	if result.PointerDepth > 0 {
		result.Flags |= types.FlagPointer
	}
	if len(result.ArrayLengths) > 0 {
		result.Flags |= types.FlagArray
	}

	if result.Kind == types.KindProcedure && result.PointerDepth == 0 {
		return types.TypeData{}, fmt.Errorf("cannot substitute procedure-typed argument into a non-pointer context")
	}
	return result, nil
}
