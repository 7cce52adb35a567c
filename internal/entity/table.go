// Package entity implements Tak's entity table (C4, spec §3.6/§4.3):
// the scoped symbol table, user-type registry, type-alias table, and
// namespace stack, generalized from the teacher's
// infrastructure.DefaultSymbolTable (pointer-scope-chain discipline)
// to spec's dense 32-bit symbol indices and canonical-name resolution.
package entity

import (
	"errors"
	"strings"

	"github.com/xrash/smetrics"

	"github.com/takc-lang/tak/internal/types"
)

// SymbolFlag mirrors spec §3.3's entity flags.
type SymbolFlag uint16

const (
	SymGlobal SymbolFlag = 1 << iota
	SymForeign
	SymForeignC
	SymInternal
	SymPlaceholder
	SymGenericBase
	SymPostParseNoRecheck
)

func (f SymbolFlag) Has(bit SymbolFlag) bool { return f&bit != 0 }

// Symbol is one entry in the dense symbol table.
type Symbol struct {
	Index         uint32 // 1-based; 0 is invalid
	CanonicalName string
	File          string
	Line          int
	Offset        int
	Type          types.TypeData
	Flags         SymbolFlag
	GenericParams []string
}

const InvalidIndex uint32 = 0

// UserType represents a struct definition, including monomorphized
// instances keyed by mangled name (spec §3.4, §6.4).
type Field struct {
	Name string
	Type types.TypeData
}

type UserType struct {
	CanonicalName string
	Fields        []Field
	GenericParams []string
	Flags         SymbolFlag
	File          string
	Line          int
}

// scope is one level of the symbol-table stack: a plain name->index map.
type scope map[string]uint32

// Table is the entity table: C4's full state.
type Table struct {
	symbols      map[uint32]*Symbol
	nextIndex    uint32
	userTypes    map[string]*UserType
	typeAliases  map[string]types.TypeData
	scopeStack   []scope
	namespaceStack []string
}

func New() *Table {
	t := &Table{
		symbols:     make(map[uint32]*Symbol),
		nextIndex:   1,
		userTypes:   make(map[string]*UserType),
		typeAliases: make(map[string]types.TypeData),
	}
	t.scopeStack = []scope{make(scope)} // index 0: global scope
	return t
}

// PushScope enters a new nested scope.
func (t *Table) PushScope() { t.scopeStack = append(t.scopeStack, make(scope)) }

// PopScope exits the innermost scope. No-op at global scope.
func (t *Table) PopScope() {
	if len(t.scopeStack) > 1 {
		t.scopeStack = t.scopeStack[:len(t.scopeStack)-1]
	}
}

// ScopeDepth returns the current nesting depth, for scope-discipline
// assertions (spec §8 "push/pop balanced").
func (t *Table) ScopeDepth() int { return len(t.scopeStack) }

func (t *Table) currentScope() scope { return t.scopeStack[len(t.scopeStack)-1] }

// canonicalize prepends the current namespace prefix unless name is
// already absolute (contains a leading `\`-qualified path we recognize
// as already canonical — callers pass already-dotted/backslash names
// through unchanged).
func (t *Table) canonicalize(name string) string {
	if strings.Contains(name, `\`) || len(t.namespaceStack) == 0 {
		return name
	}
	return t.NamespaceAsString() + `\` + name
}

// CreateSymbol installs a new symbol in the innermost scope. Returns
// an error string (not a typed error — this is entity-table-internal
// bookkeeping; callers translate to a diagnostics.Diagnostic) unless
// the existing entry at this scope is a placeholder, in which case it
// is overwritten in place and its index reused.
func (t *Table) CreateSymbol(name string, typ types.TypeData, flags SymbolFlag, file string, line, offset int) (*Symbol, error) {
	canon := t.canonicalize(name)
	cur := t.currentScope()

	if existingIdx, ok := cur[name]; ok {
		existing := t.symbols[existingIdx]
		if existing != nil && existing.Flags.Has(SymPlaceholder) {
			existing.Type = typ
			existing.Flags = flags
			existing.File, existing.Line, existing.Offset = file, line, offset
			return existing, nil
		}
		return nil, errors.New("duplicate declaration of '" + name + "' in this scope")
	}

	sym := &Symbol{
		Index: t.nextIndex, CanonicalName: canon, File: file, Line: line, Offset: offset,
		Type: typ, Flags: flags,
	}
	t.symbols[sym.Index] = sym
	cur[name] = sym.Index
	t.nextIndex++
	return sym, nil
}

// LookupSymbol walks the scope stack from innermost outward.
func (t *Table) LookupSymbol(name string) (*Symbol, bool) {
	for i := len(t.scopeStack) - 1; i >= 0; i-- {
		if idx, ok := t.scopeStack[i][name]; ok {
			return t.symbols[idx], true
		}
	}
	return nil, false
}

func (t *Table) SymbolByIndex(idx uint32) (*Symbol, bool) {
	s, ok := t.symbols[idx]
	return s, ok
}

func (t *Table) AllSymbols() []*Symbol {
	out := make([]*Symbol, 0, len(t.symbols))
	for _, s := range t.symbols {
		out = append(out, s)
	}
	return out
}

// ---- User types -----------------------------------------------------

func (t *Table) CreateType(ut *UserType) error {
	if _, exists := t.userTypes[ut.CanonicalName]; exists {
		return errors.New("duplicate type '" + ut.CanonicalName + "'")
	}
	t.userTypes[ut.CanonicalName] = ut
	return nil
}

func (t *Table) TypeExists(name string) bool {
	_, ok := t.userTypes[name]
	return ok
}

func (t *Table) LookupType(name string) (*UserType, bool) {
	ut, ok := t.userTypes[name]
	return ut, ok
}

func (t *Table) AllTypes() map[string]*UserType { return t.userTypes }

// ---- Type aliases -----------------------------------------------------

func (t *Table) CreateTypeAlias(name string, target types.TypeData) {
	t.typeAliases[t.canonicalize(name)] = target
}

func (t *Table) LookupTypeAlias(name string) (types.TypeData, bool) {
	td, ok := t.typeAliases[name]
	if ok {
		return td, true
	}
	td, ok = t.typeAliases[t.canonicalize(name)]
	return td, ok
}

// ---- Namespaces -----------------------------------------------------

// EnterNamespace pushes a component; rejects re-entering the same
// component at the same depth (prevents nested shadowing, spec §4.3).
func (t *Table) EnterNamespace(name string) error {
	if len(t.namespaceStack) > 0 && t.namespaceStack[len(t.namespaceStack)-1] == name {
		return errors.New("cannot re-enter namespace '" + name + "' at the same depth")
	}
	t.namespaceStack = append(t.namespaceStack, name)
	return nil
}

func (t *Table) LeaveNamespace() {
	if len(t.namespaceStack) > 0 {
		t.namespaceStack = t.namespaceStack[:len(t.namespaceStack)-1]
	}
}

func (t *Table) NamespaceAsString() string { return strings.Join(t.namespaceStack, `\`) }

// GetCanonicalSymName resolves name against progressively shorter
// namespace prefixes of the current stack, then the bare name; the
// first that exists in any scope wins (spec §4.3's get_canonical_sym_name).
func (t *Table) GetCanonicalSymName(name string) string {
	for i := len(t.namespaceStack); i > 0; i-- {
		prefix := strings.Join(t.namespaceStack[:i], `\`)
		candidate := prefix + `\` + name
		if _, ok := t.LookupSymbol(candidate); ok {
			return candidate
		}
	}
	if _, ok := t.LookupSymbol(name); ok {
		return name
	}
	return name
}

// SuggestName returns the closest known symbol/type name to name by
// Jaro-Winkler similarity, for a "did you mean?" diagnostic hint. ok
// is false if nothing is close enough to be a useful suggestion.
func (t *Table) SuggestName(name string) (suggestion string, ok bool) {
	best := 0.0
	for _, s := range t.symbols {
		short := lastComponent(s.CanonicalName)
		if sim := smetrics.JaroWinkler(name, short, 0.7, 4); sim > best {
			best, suggestion = sim, short
		}
	}
	for tn := range t.userTypes {
		short := lastComponent(tn)
		if sim := smetrics.JaroWinkler(name, short, 0.7, 4); sim > best {
			best, suggestion = sim, short
		}
	}
	return suggestion, best >= 0.82 && suggestion != name
}

func lastComponent(canonical string) string {
	if i := strings.LastIndex(canonical, `\`); i >= 0 {
		return canonical[i+1:]
	}
	return canonical
}
