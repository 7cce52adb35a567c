// Package config holds Tak's single immutable configuration value,
// constructed once from CLI flags and threaded through every pipeline
// stage by value (spec Design Notes: "no global mutable state beyond
// the explicit Config object").
package config

// Config is the pipeline's sole configuration input.
type Config struct {
	InputPath    string
	OutputPath   string
	OptLevel     int
	WarnIsError  bool
	DumpAST      bool
	DumpSymbols  bool
	DumpTypes    bool
}

// Default matches spec §6.1's stated defaults.
func Default() Config {
	return Config{
		OutputPath: "a.out",
		OptLevel:   0,
	}
}
