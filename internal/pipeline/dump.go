package pipeline

import (
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/takc-lang/tak/internal/ast"
	"github.com/takc-lang/tak/internal/entity"
	"github.com/takc-lang/tak/internal/mangle"
	"github.com/takc-lang/tak/internal/types"
)

// DumpAST renders the toplevel node list for --dump-ast (spec §6.1).
// There is no existing pack-provided AST pretty-printer grounded on
// this project's own Node shape, and none of the reviewed example
// repos' dump tooling fits a tagged-interface tree with parent
// back-references (a library dumper would either stack-overflow on
// the Parent cycle or need per-type registration we'd still have to
// hand-write) — so this walks the tree with reflect directly,
// skipping the embedded Base/Typed plumbing fields, which keeps the
// output to the grammar-meaningful fields a reader actually wants.
func DumpAST(nodes []ast.Node) string {
	var b strings.Builder
	for _, n := range nodes {
		dumpValue(&b, reflect.ValueOf(n), 0)
	}
	return b.String()
}

var skipFields = map[string]bool{
	"Base": true, "Typed": true, "ParentRef": true, "Location": true,
}

func dumpValue(b *strings.Builder, v reflect.Value, depth int) {
	indent := strings.Repeat("  ", depth)
	if !v.IsValid() {
		fmt.Fprintf(b, "%snil\n", indent)
		return
	}
	switch v.Kind() {
	case reflect.Ptr, reflect.Interface:
		if v.IsNil() {
			fmt.Fprintf(b, "%s<nil>\n", indent)
			return
		}
		dumpValue(b, v.Elem(), depth)
	case reflect.Struct:
		fmt.Fprintf(b, "%s%s\n", indent, v.Type().Name())
		t := v.Type()
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			if skipFields[f.Name] || !f.IsExported() {
				continue
			}
			fv := v.Field(i)
			switch fv.Kind() {
			case reflect.Ptr, reflect.Interface, reflect.Struct, reflect.Slice:
				fmt.Fprintf(b, "%s  %s:\n", indent, f.Name)
				dumpValue(b, fv, depth+2)
			default:
				fmt.Fprintf(b, "%s  %s: %v\n", indent, f.Name, fv.Interface())
			}
		}
	case reflect.Slice, reflect.Array:
		if v.Len() == 0 {
			fmt.Fprintf(b, "%s[]\n", indent)
			return
		}
		for i := 0; i < v.Len(); i++ {
			dumpValue(b, v.Index(i), depth)
		}
	default:
		fmt.Fprintf(b, "%s%v\n", indent, v.Interface())
	}
}

// DumpSymbols renders the entity table's dense symbol list for
// --dump-symbols, ordered by index (spec §8's "symbol indices are
// dense and unique" invariant makes index order the natural,
// deterministic listing order).
func DumpSymbols(tab *entity.Table) string {
	syms := tab.AllSymbols()
	sorted := make([]*entity.Symbol, len(syms))
	copy(sorted, syms)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Index < sorted[j].Index })

	var b strings.Builder
	for _, s := range sorted {
		fmt.Fprintf(&b, "#%d %s : %s", s.Index, s.CanonicalName, types.ToString(s.Type, true, true))
		if s.Flags.Has(entity.SymGlobal) {
			b.WriteString(" [global]")
		}
		if s.Flags.Has(entity.SymForeign) {
			b.WriteString(" [foreign]")
		}
		if s.Flags.Has(entity.SymForeignC) {
			b.WriteString(" [foreign-c]")
		}
		if s.Flags.Has(entity.SymInternal) {
			b.WriteString(" [internal]")
		}
		if s.Flags.Has(entity.SymGenericBase) {
			b.WriteString(" [generic-base]")
		}
		fmt.Fprintf(&b, " (%s:%d)\n", s.File, s.Line)
	}
	return b.String()
}

// DumpTypes renders the user-type registry for --dump-types (spec
// §6.1), re-parsing every monomorphized entry's mangled name through
// internal/mangle so nested generic instantiations print with their
// argument structure spelled out rather than as an opaque bracket
// string — the one place that package is actually exercised outside
// its own tests.
func DumpTypes(tab *entity.Table) string {
	all := tab.AllTypes()
	names := make([]string, 0, len(all))
	for name := range all {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	for _, name := range names {
		ut := all[name]
		fmt.Fprintf(&b, "struct %s", name)
		if parsed, err := mangle.Parse(name); err == nil && parsed.IsGeneric() {
			fmt.Fprintf(&b, " (generic instantiation: base=%s args=%d)", parsed.Base, len(parsed.Args))
		}
		b.WriteString(" {\n")
		for _, f := range ut.Fields {
			fmt.Fprintf(&b, "  %s: %s\n", f.Name, types.ToString(f.Type, false, true))
		}
		b.WriteString("}\n")
	}
	return b.String()
}
