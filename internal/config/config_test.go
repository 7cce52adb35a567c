package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultMatchesSpecDefaults(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "a.out", cfg.OutputPath)
	assert.Equal(t, 0, cfg.OptLevel)
	assert.Empty(t, cfg.InputPath)
	assert.False(t, cfg.WarnIsError)
	assert.False(t, cfg.DumpAST)
	assert.False(t, cfg.DumpSymbols)
	assert.False(t, cfg.DumpTypes)
}
