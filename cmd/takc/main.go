// Package main provides the CLI interface for the Tak compiler.
package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/takc-lang/tak/internal/config"
	"github.com/takc-lang/tak/internal/diagnostics"
	"github.com/takc-lang/tak/internal/pipeline"
)

const version = "0.1.0"

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// newApp builds the CLI description separately from main so tests can
// drive it with app.Run(args) against temp files instead of os.Args.
func newApp() *cli.App {
	return &cli.App{
		Name:    "takc",
		Usage:   "compile a Tak source file to LLVM-flavoured IR",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "input",
				Aliases:  []string{"i"},
				Usage:    "path to the root source file",
				Required: true,
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "path for the emitted IR",
				Value:   "a.out",
			},
			&cli.IntFlag{
				Name:    "opt",
				Aliases: []string{"O"},
				Usage:   "optimization hint 0..3 (passed through; core does not use it)",
				Value:   0,
			},
			&cli.BoolFlag{
				Name:    "warn-is-error",
				Aliases: []string{"we"},
				Usage:   "promote warnings to errors",
			},
			&cli.BoolFlag{
				Name:    "dump-ast",
				Aliases: []string{"da"},
				Usage:   "print the AST after parsing",
			},
			&cli.BoolFlag{
				Name:    "dump-symbols",
				Aliases: []string{"ds"},
				Usage:   "print the symbol table",
			},
			&cli.BoolFlag{
				Name:    "dump-types",
				Aliases: []string{"dt"},
				Usage:   "print the user-type registry",
			},
		},
		Action: run,
	}
}

// run implements spec §6.1: unknown/duplicate/type-mismatched flags
// are already rejected by urfave/cli before Action runs (it exits 1
// and prints its own usage diagnostic); everything from here on is
// the actual compilation and is gated on the opt level's declared
// 0..3 range and the reporter's accumulated diagnostics.
func run(c *cli.Context) error {
	optLevel := c.Int("opt")
	if optLevel < 0 || optLevel > 3 {
		return cli.Exit(fmt.Sprintf("--opt must be in 0..3, got %d", optLevel), 1)
	}

	cfg := config.Config{
		InputPath:   c.String("input"),
		OutputPath:  c.String("output"),
		OptLevel:    optLevel,
		WarnIsError: c.Bool("warn-is-error"),
		DumpAST:     c.Bool("dump-ast"),
		DumpSymbols: c.Bool("dump-symbols"),
		DumpTypes:   c.Bool("dump-types"),
	}

	reporter := diagnostics.NewConsoleReporter(os.Stderr, cfg.WarnIsError)
	if src, err := os.ReadFile(cfg.InputPath); err == nil {
		reporter.SetSource(cfg.InputPath, src)
	}

	pl := pipeline.New(cfg, reporter, nil)
	result, compileErr := pl.Run(cfg.InputPath)

	if cfg.DumpAST {
		fmt.Println(pipeline.DumpAST(result.Toplevel))
	}
	if cfg.DumpSymbols {
		fmt.Println(pipeline.DumpSymbols(pl.Table()))
	}
	if cfg.DumpTypes {
		fmt.Println(pipeline.DumpTypes(pl.Table()))
	}

	if compileErr != nil {
		return cli.Exit(compileErr.Error(), 1)
	}
	if reporter.HasErrors() {
		return cli.Exit(fmt.Sprintf("compilation failed with %d error(s)", len(reporter.Errors())), 1)
	}

	if err := os.WriteFile(cfg.OutputPath, []byte(result.IR), 0o644); err != nil {
		return cli.Exit(fmt.Sprintf("failed to write output: %v", err), 1)
	}

	return nil
}
