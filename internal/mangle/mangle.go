// Package mangle parses and validates the mangled names generic
// struct instantiations are registered and emitted under (spec §6.4):
// `Name[arg1,arg2,...]`, where each arg recursively follows the same
// grammar for nested parameterized structs. This is a small auxiliary
// grammar, built with participle/v2 the way gaarutyunov-guix and
// golangee-dyml lean on participle for secondary grammars alongside a
// hand-written primary parser — it is never used for Tak's own source
// grammar (internal/parser stays hand-written recursive descent per
// spec §4.4). Its only caller is --dump-types rendering
// (pipeline.DumpTypes), which re-derives a readable structure from an
// already-mangled registry key.
package mangle

import (
	"fmt"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// Name is a parsed mangled name: a base identifier optionally followed
// by a bracketed, comma-separated argument list. Each argument is
// itself a Name, which is how `Pair[Box[i32^],f64]`-style nesting is
// represented.
type Name struct {
	Pos   lexer.Position
	Base  string  `@Ident`
	Stars int     `@("^")*`
	Dims  []int   `("[" @Int? "]")*`
	Args  []*Name `("[" @@ ("," @@)* "]")?`
}

// String renders a Name back to its mangled form: base, carets,
// dimensions, then the argument list, as `types.MangledName` writes
// them. Parse accepts only names built from identifiers, `^`, `[N]`
// and nested argument lists, so a registry name with a procedure-typed
// argument (`proc(...) -> T`) or a postfix after a nested argument
// list (`Box[i32]^`) does not parse and has no round trip.
func (n *Name) String() string {
	var b strings.Builder
	b.WriteString(n.Base)
	for i := 0; i < n.Stars; i++ {
		b.WriteString("^")
	}
	for _, d := range n.Dims {
		if d == 0 {
			b.WriteString("[]")
		} else {
			fmt.Fprintf(&b, "[%d]", d)
		}
	}
	if len(n.Args) > 0 {
		b.WriteString("[")
		for i, a := range n.Args {
			if i > 0 {
				b.WriteString(",")
			}
			b.WriteString(a.String())
		}
		b.WriteString("]")
	}
	return b.String()
}

// IsGeneric reports whether this name carries an argument list, i.e.
// whether it names a monomorphized instantiation rather than a plain
// type.
func (n *Name) IsGeneric() bool { return len(n.Args) > 0 }

var nameLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Whitespace", Pattern: `\s+`},
	{Name: "Ident", Pattern: `[A-Za-z_][A-Za-z0-9_]*`},
	{Name: "Int", Pattern: `[0-9]+`},
	{Name: "Caret", Pattern: `\^`},
	{Name: "Punct", Pattern: `[\[\],]`},
})

var nameParser = participle.MustBuild[Name](
	participle.Lexer(nameLexer),
	participle.Elide("Whitespace"),
	participle.UseLookahead(2),
)

// Parse parses a single mangled name, recursively validating every
// nested generic argument. A malformed name (unbalanced brackets,
// empty argument, stray token) is reported as an error rather than
// panicking — this runs on registry keys at dump/diagnostic time, not
// in a hot compilation path, so participle's own error is surfaced
// directly.
func Parse(mangled string) (*Name, error) {
	n, err := nameParser.ParseString("", mangled)
	if err != nil {
		return nil, fmt.Errorf("mangle: invalid mangled name %q: %w", mangled, err)
	}
	return n, nil
}

// MustParse is Parse but panics on error; used only where the caller
// already knows the name came from the entity table's own registry
// (and is therefore well-formed by construction).
func MustParse(mangled string) *Name {
	n, err := Parse(mangled)
	if err != nil {
		panic(err)
	}
	return n
}
