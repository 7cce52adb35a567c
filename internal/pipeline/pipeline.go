// Package pipeline is the factory/wiring layer that assembles C2-C8
// into one compilation, analogous to the teacher's
// staticlang/internal/application.DefaultCompilerPipeline (lexer ->
// parser -> semantic analyzer -> code generator, each stage wired to
// one shared error reporter). Tak's stages resolve their own lexing
// internally (the parser owns a FileLoader, per spec §4.4's
// @include-handling design), so this package's phase sequence is
// parse -> post-parse -> check -> generate, each phase gated on the
// shared reporter being error-free before the next runs (spec §7's
// "stage completes as much work as possible, then fails atomically").
package pipeline

import (
	"fmt"

	"github.com/takc-lang/tak/internal/ast"
	"github.com/takc-lang/tak/internal/checker"
	"github.com/takc-lang/tak/internal/codegen"
	"github.com/takc-lang/tak/internal/config"
	"github.com/takc-lang/tak/internal/diagnostics"
	"github.com/takc-lang/tak/internal/entity"
	"github.com/takc-lang/tak/internal/parser"
	"github.com/takc-lang/tak/internal/postparser"
)

// Pipeline owns the one entity table and reporter shared by every
// stage of a single compilation, mirroring the teacher's pattern of
// propagating a single error reporter to every component as it's set.
type Pipeline struct {
	cfg      config.Config
	tab      *entity.Table
	reporter diagnostics.Reporter
	loader   parser.FileLoader
}

// New wires a pipeline around a config and a reporter. loader is
// optional; nil uses parser.OSFileLoader, the production default.
func New(cfg config.Config, reporter diagnostics.Reporter, loader parser.FileLoader) *Pipeline {
	return &Pipeline{cfg: cfg, reporter: reporter, tab: entity.New(), loader: loader}
}

// Result is everything a successful (or partially successful, for
// dump purposes) compilation produced, returned so cmd/takc can decide
// what to print and what exit code to use.
type Result struct {
	IR       string
	Toplevel []ast.Node
}

// Run executes the full pipeline over the file at path: parse,
// post-parse (generic monomorphization to a fixed point), check, then
// generate IR. Each phase is skipped once the reporter already holds
// errors, matching spec §7's atomic per-stage failure policy; dump
// flags are honored regardless of downstream failure, since a partial
// AST/symbol/type dump is still useful for diagnosing why a later
// stage failed.
func (p *Pipeline) Run(path string) (Result, error) {
	var res Result

	pr := parser.New(p.tab, p.reporter, p.loader)
	toplevel, err := pr.ParseFile(path)
	if err != nil {
		return res, fmt.Errorf("pipeline: parse: %w", err)
	}
	res.Toplevel = toplevel

	if p.reporter.HasErrors() {
		return res, fmt.Errorf("pipeline: compilation failed during parsing")
	}

	postparser.Run(p.tab, p.reporter)
	if p.reporter.HasErrors() {
		return res, fmt.Errorf("pipeline: compilation failed during post-parsing")
	}

	chk := checker.New(p.tab, p.reporter)
	chk.Check(path, toplevel)
	if p.reporter.HasErrors() {
		return res, fmt.Errorf("pipeline: compilation failed during type checking")
	}

	gen := codegen.New(p.tab, p.reporter, "")
	res.IR = gen.Generate(path, toplevel)
	if p.reporter.HasErrors() {
		return res, fmt.Errorf("pipeline: compilation failed during code generation")
	}

	return res, nil
}

// Table exposes the entity table built up over the course of Run, for
// --dump-symbols/--dump-types rendering.
func (p *Pipeline) Table() *entity.Table { return p.tab }
