package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunCompilesWellTypedFileToOutput(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "in.tak")
	output := filepath.Join(dir, "out.ll")
	require.NoError(t, os.WriteFile(input, []byte(`proc add(a: i32, b: i32) -> i32 { ret a + b; }`), 0o644))

	err := newApp().Run([]string{"takc", "-i", input, "-o", output})
	require.NoError(t, err)

	ir, err := os.ReadFile(output)
	require.NoError(t, err)
	assert.Contains(t, string(ir), "@add")
}

func TestRunRejectsOptLevelOutOfRange(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "in.tak")
	require.NoError(t, os.WriteFile(input, []byte(`proc f() -> i32 { ret 1; }`), 0o644))

	err := newApp().Run([]string{"takc", "-i", input, "-O", "9"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--opt must be in 0..3")
}

func TestRunReportsCompileErrorWithoutWritingOutput(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "in.tak")
	output := filepath.Join(dir, "out.ll")
	require.NoError(t, os.WriteFile(input, []byte(`proc f() { ret 1; }`), 0o644))

	err := newApp().Run([]string{"takc", "-i", input, "-o", output})
	require.Error(t, err)

	_, statErr := os.Stat(output)
	assert.True(t, os.IsNotExist(statErr), "no output file should be written once checking fails")
}

func TestRunRequiresInputFlag(t *testing.T) {
	err := newApp().Run([]string{"takc"})
	require.Error(t, err)
}

func TestRunMissingInputFileReportsError(t *testing.T) {
	dir := t.TempDir()
	err := newApp().Run([]string{"takc", "-i", filepath.Join(dir, "does-not-exist.tak")})
	require.Error(t, err)
}
