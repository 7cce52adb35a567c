// Package parser implements Tak's recursive-descent parser (C5, spec
// §4.4): source tokens to an AST, consulting and populating the
// entity table as it goes. Generalized from the teacher's
// staticlang/grammar.RecursiveDescentParser skeleton (two-token
// lookahead, expectToken helper) to Tak's full grammar: directives,
// namespaces, generics deferral, Pratt-precedence expressions, and
// every statement form in spec §6.2.
package parser

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/jpillora/backoff"

	"github.com/takc-lang/tak/internal/ast"
	"github.com/takc-lang/tak/internal/diagnostics"
	"github.com/takc-lang/tak/internal/entity"
	"github.com/takc-lang/tak/internal/lexer"
	"github.com/takc-lang/tak/internal/token"
)

type includeStatus uint8

const (
	includePending includeStatus = iota
	includeDone
)

// FileLoader abstracts include-file resolution so tests can substitute
// an in-memory source set without touching the filesystem.
type FileLoader interface {
	Read(path string) (string, error)
}

// OSFileLoader reads from the real filesystem, retrying transient
// reads with capped exponential backoff — spec §7's IO category calls
// for "filesystem error with embedded native diagnostic", which is
// only worth reporting after ruling out a transient failure.
type OSFileLoader struct{}

func (OSFileLoader) Read(path string) (string, error) {
	b := &backoff.Backoff{Min: 2 * time.Millisecond, Max: 50 * time.Millisecond, Factor: 2, Jitter: true}
	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		data, err := os.ReadFile(path)
		if err == nil {
			return string(data), nil
		}
		lastErr = err
		if os.IsNotExist(err) {
			break // not transient, don't retry
		}
		time.Sleep(b.Duration())
	}
	return "", lastErr
}

// Parser holds all C5 state for one compilation (possibly spanning
// multiple files via @include).
type Parser struct {
	lex      *lexer.Lexer
	tab      *entity.Table
	reporter diagnostics.Reporter
	loader   FileLoader
	file     string

	insideParens int
	includes     map[string]includeStatus

	procDepth   int
	loopDepth   int
	switchDepth int

	toplevel []ast.Node
}

func New(tab *entity.Table, reporter diagnostics.Reporter, loader FileLoader) *Parser {
	if loader == nil {
		loader = OSFileLoader{}
	}
	return &Parser{tab: tab, reporter: reporter, loader: loader, includes: make(map[string]includeStatus)}
}

func (p *Parser) errorf(cat diagnostics.Category, pos token.Position, format string, args ...interface{}) {
	p.reporter.Report(diagnostics.Diagnostic{
		Category: cat,
		Severity: diagnostics.SeverityError,
		Message:  fmt.Sprintf(format, args...),
		Location: diagnostics.Range{
			Start: diagnostics.Position{File: p.file, Line: pos.Line, Offset: pos.Offset},
			End:   diagnostics.Position{File: p.file, Line: pos.Line, Offset: pos.Offset},
		},
	})
}

func (p *Parser) cur() token.Token  { return p.lex.Current() }
func (p *Parser) peek() token.Token { return p.lex.Peek() }

func (p *Parser) advance() token.Token { return p.lex.NextToken() }

// expect consumes the current token if it matches typ, else reports a
// syntax error and returns ok=false without advancing (so the parser
// can attempt recovery at statement boundaries).
func (p *Parser) expect(typ token.Type) (token.Token, bool) {
	t := p.cur()
	if t.Type != typ {
		p.errorf(diagnostics.Syntactic, t.Pos, "expected %s, found %s", typ, t.Type)
		return t, false
	}
	p.advance()
	return t, true
}

func (p *Parser) loc(startLine int) ast.Range {
	return ast.Range{File: p.file, StartLine: startLine, EndLine: p.cur().Line}
}

// ParseFile is the top-level entry: lexes and parses one root source
// file (and transitively any @include targets) into a flat
// toplevel-declarations list (spec §3.5: "tree ownership is from the
// toplevel-declarations list downward").
func (p *Parser) ParseFile(path string) ([]ast.Node, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	return p.parseInclude(abs)
}

func (p *Parser) parseInclude(abs string) ([]ast.Node, error) {
	if status, seen := p.includes[abs]; seen {
		if status == includePending {
			return nil, fmt.Errorf("circular @include of %q", abs)
		}
		return nil, nil // already fully parsed; idempotent re-include
	}

	src, err := p.loader.Read(abs)
	if err != nil {
		p.errorf(diagnostics.IO, token.Position{}, "cannot read include %q: %v", abs, err)
		return nil, err
	}

	p.includes[abs] = includePending

	savedLex, savedFile := p.lex, p.file
	p.file = abs
	p.lex = lexer.New(abs, src)
	if sourced, ok := p.reporter.(diagnostics.SourceSetter); ok {
		sourced.SetSource(abs, []byte(src))
	}

	p.parseProgram()

	p.lex, p.file = savedLex, savedFile
	p.includes[abs] = includeDone
	return p.toplevel, nil
}

func (p *Parser) parseProgram() {
	for p.cur().Type != token.EOF {
		before := p.cur()
		node := p.parseTopLevelForm()
		if node != nil {
			p.toplevel = append(p.toplevel, node)
		}
		if p.cur() == before {
			// Guard against an unconsumed error token looping forever.
			p.advance()
		}
	}
}

func (p *Parser) parseTopLevelForm() ast.Node {
	t := p.cur()
	switch t.Type {
	case token.At:
		return p.parseDirective()
	case token.KwNamespace:
		return p.parseNamespaceDecl()
	case token.KwStruct:
		return p.parseStructDef()
	case token.KwEnum:
		return p.parseEnumDef()
	case token.KwProc:
		return p.parseProcDecl()
	default:
		if token.IdentStart(t.Type) {
			return p.parseVarDeclStatement()
		}
		p.errorf(diagnostics.Syntactic, t.Pos, "unexpected token %s at top level", t.Type)
		p.advance()
		return nil
	}
}

func (p *Parser) parseNamespaceDecl() ast.Node {
	startLine := p.cur().Line
	p.advance() // 'namespace'
	nameTok, ok := p.expect(token.Identifier)
	if !ok {
		return nil
	}
	if err := p.tab.EnterNamespace(nameTok.Text); err != nil {
		p.errorf(diagnostics.NameResolution, nameTok.Pos, "%v", err)
	}

	n := &ast.NamespaceDecl{Name: nameTok.Text}
	n.Location = p.loc(startLine)

	if _, ok := p.expect(token.LBrace); ok {
		for p.cur().Type != token.RBrace && p.cur().Type != token.EOF {
			child := p.parseTopLevelForm()
			if child != nil {
				n.Children = append(n.Children, ast.Attach(n, child))
			}
		}
		p.expect(token.RBrace)
	}

	p.tab.LeaveNamespace()
	return n
}

func (p *Parser) includePathAllowed(path string) bool {
	ok, _ := doublestar.Match("**/*.tak", filepath.ToSlash(path))
	return ok
}
