package diagnostics

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCategoryString(t *testing.T) {
	tests := map[Category]string{
		Lexical:        "lexical",
		Syntactic:      "syntax",
		NameResolution: "name-resolution",
		TypeError:      "type",
		ControlFlow:    "control-flow",
		Generics:       "generics",
		IO:             "io",
		Internal:       "internal",
	}
	for cat, want := range tests {
		assert.Equal(t, want, cat.String())
	}
}

func TestPositionString(t *testing.T) {
	p := Position{File: "f.tak", Line: 3, Column: 7}
	assert.Equal(t, "f.tak:3:7", p.String())
}

func TestConsoleReporterAccumulatesErrorsAndWarnings(t *testing.T) {
	var buf bytes.Buffer
	r := NewConsoleReporter(&buf, false)

	r.Report(Diagnostic{Category: TypeError, Severity: SeverityError, Message: "bad type"})
	r.Report(Diagnostic{Category: Lexical, Severity: SeverityWarning, Message: "unused"})

	assert.True(t, r.HasErrors())
	assert.True(t, r.HasWarnings())
	require.Len(t, r.Errors(), 1)
	require.Len(t, r.Warnings(), 1)
	assert.Contains(t, buf.String(), "bad type")
	assert.Contains(t, buf.String(), "unused")
}

// spec §7: WarnIsError promotes warnings to errors.
func TestConsoleReporterWarnIsErrorPromotes(t *testing.T) {
	var buf bytes.Buffer
	r := NewConsoleReporter(&buf, true)

	r.Report(Diagnostic{Category: Syntactic, Severity: SeverityWarning, Message: "promoted"})

	assert.True(t, r.HasErrors())
	assert.False(t, r.HasWarnings())
	require.Len(t, r.Errors(), 1)
	assert.Equal(t, SeverityError, r.Errors()[0].Severity)
}

func TestConsoleReporterClearResetsState(t *testing.T) {
	var buf bytes.Buffer
	r := NewConsoleReporter(&buf, false)
	r.Report(Diagnostic{Severity: SeverityError, Message: "x"})
	require.True(t, r.HasErrors())

	r.Clear()
	assert.False(t, r.HasErrors())
	assert.Empty(t, r.Errors())
}

func TestConsoleReporterRespectsMaxLimits(t *testing.T) {
	var buf bytes.Buffer
	r := NewConsoleReporter(&buf, false)
	r.SetMaxErrors(1)

	r.Report(Diagnostic{Severity: SeverityError, Message: "first"})
	r.Report(Diagnostic{Severity: SeverityError, Message: "second"})

	assert.Len(t, r.Errors(), 1)
}

func TestConsoleReporterPrintsSourceContext(t *testing.T) {
	var buf bytes.Buffer
	r := NewConsoleReporter(&buf, false)
	r.SetSource("f.tak", []byte("proc main() {\n  ret 1;\n}\n"))

	r.Report(Diagnostic{
		Severity: SeverityError,
		Message:  "bad statement",
		Location: Range{
			Start: Position{File: "f.tak", Line: 2, Column: 3},
			End:   Position{File: "f.tak", Line: 2, Column: 6},
		},
	})

	out := buf.String()
	assert.Contains(t, out, "ret 1;")
	assert.Contains(t, out, "^")
}

func TestSortedReporterFlushesInSourceOrder(t *testing.T) {
	var buf bytes.Buffer
	underlying := NewConsoleReporter(&buf, false)
	s := NewSortedReporter(underlying)

	s.Report(Diagnostic{Severity: SeverityError, Message: "second", Location: Range{Start: Position{File: "f.tak", Line: 5}}})
	s.Report(Diagnostic{Severity: SeverityError, Message: "first", Location: Range{Start: Position{File: "f.tak", Line: 1}}})

	require.True(t, s.HasErrors())
	s.Flush()

	assert.False(t, s.HasErrors(), "Flush clears the sorted reporter's own buffer")
	errs := underlying.Errors()
	require.Len(t, errs, 2)
	assert.Equal(t, "first", errs[0].Message)
	assert.Equal(t, "second", errs[1].Message)
}

func TestSortedReporterWarningsFlushAfterErrors(t *testing.T) {
	var buf bytes.Buffer
	underlying := NewConsoleReporter(&buf, false)
	s := NewSortedReporter(underlying)

	s.Report(Diagnostic{Severity: SeverityWarning, Message: "warn", Location: Range{Start: Position{File: "f.tak", Line: 1}}})
	s.Report(Diagnostic{Severity: SeverityError, Message: "err", Location: Range{Start: Position{File: "f.tak", Line: 2}}})

	s.Flush()

	errs := underlying.Errors()
	warns := underlying.Warnings()
	require.Len(t, errs, 1)
	require.Len(t, warns, 1)
	assert.Equal(t, "err", errs[0].Message)
	assert.Equal(t, "warn", warns[0].Message)
}
