package report

import (
	"strings"
	"testing"

	"github.com/structviz/godsl/internal/testutil"
	"github.com/structviz/godsl/internal/types"
)

func diag(sev types.Severity, start types.ByteOffset, msg string) types.SpanDiagnostic {
	return types.SpanDiagnostic{
		Severity: sev,
		Code:     types.DiagParseError,
		Span:     types.NewSpan(start, start+1),
		Message:  msg,
	}
}

func TestPosition(t *testing.T) {
	source := []byte("abc\ndef\nghi")
	r := New(source, types.DefaultConfig())

	tests := []struct {
		offset types.ByteOffset
		line   int
		column int
	}{
		{0, 1, 1},
		{2, 1, 3},
		{4, 2, 1},
		{6, 2, 3},
		{8, 3, 1},
		{10, 3, 3},
	}
	for _, tc := range tests {
		line, column := r.Position(tc.offset)
		testutil.Equal(t, tc.line, line, "line at offset %d", tc.offset)
		testutil.Equal(t, tc.column, column, "column at offset %d", tc.offset)
	}
}

func TestPositionPastEnd(t *testing.T) {
	r := New([]byte("ab"), types.DefaultConfig())
	line, column := r.Position(99)
	testutil.Equal(t, 1, line, "line clamps to end")
	testutil.Equal(t, 3, column, "column clamps to end")
}

func TestHasErrors(t *testing.T) {
	r := New([]byte("x"), types.DefaultConfig())
	testutil.False(t, r.HasErrors(), "empty reporter")

	r.Record(diag(types.SeverityWarning, 0, "a warning"))
	testutil.False(t, r.HasErrors(), "warnings are not errors")

	r.Record(diag(types.SeverityError, 0, "an error"))
	testutil.True(t, r.HasErrors(), "error recorded")
	testutil.False(t, r.HasFatalErrors(), "no fatal yet")

	r.Record(diag(types.SeverityFatal, 0, "fatal"))
	testutil.True(t, r.HasFatalErrors(), "fatal recorded")
}

func TestErrorCount(t *testing.T) {
	r := New([]byte("x"), types.DefaultConfig())
	r.Record(diag(types.SeverityError, 0, "e1"))
	r.Record(diag(types.SeverityWarning, 0, "w1"))
	r.Record(diag(types.SeverityError, 0, "e2"))

	testutil.Equal(t, 2, r.ErrorCount(), "error count excludes warnings")
	testutil.Equal(t, 3, r.Count(), "total count")
}

func TestArrivalOrderPreserved(t *testing.T) {
	r := New([]byte("abcdef"), types.DefaultConfig())
	r.Record(diag(types.SeverityError, 4, "second in source"))
	r.Record(diag(types.SeverityError, 1, "first in source"))

	diags := r.Diagnostics()
	testutil.Equal(t, "second in source", diags[0].Message, "arrival order")

	sorted := r.Sorted()
	testutil.Equal(t, "first in source", sorted[0].Message, "sorted order")
}

func TestReportFiltering(t *testing.T) {
	cfg := types.DiagnosticConfig{Level: types.SeverityError, FailAt: types.SeverityFatal}
	r := New([]byte("x"), cfg)

	r.Report(types.SeverityInfo, "some-code", types.NewSpan(0, 1), "suppressed")
	testutil.Equal(t, 0, r.Count(), "info suppressed below level")

	r.Report(types.SeverityError, "some-code", types.NewSpan(0, 1), "kept")
	testutil.Equal(t, 1, r.Count(), "error reported")

	// Record bypasses filtering entirely.
	r2 := New([]byte("x"), types.DiagnosticConfig{Level: types.SeverityFatal})
	r2.Record(diag(types.SeverityInfo, 0, "forced"))
	testutil.Equal(t, 1, r2.Count(), "Record bypasses config")
}

func TestIgnoreByCode(t *testing.T) {
	cfg := types.DefaultConfig()
	cfg.Ignore = []string{"missing-*"}
	r := New([]byte("x"), cfg)

	r.Report(types.SeverityError, types.DiagMissingQuotes, types.NewSpan(0, 1), "ignored")
	r.Report(types.SeverityError, types.DiagParseError, types.NewSpan(0, 1), "kept")

	testutil.Equal(t, 1, r.Count(), "glob-ignored codes suppressed")
}

func TestFormatMessageAndPosition(t *testing.T) {
	source := []byte("workspace \"W\" {\n  model {\n    person\n  }\n}")
	r := New(source, types.DefaultConfig())

	offset := strings.Index(string(source), "person")
	r.Record(diag(types.SeverityError, types.ByteOffset(offset), "expected name"))

	out := r.Format()
	testutil.Contains(t, out, "[error] expected name at line 3, column 5", "header line")
	testutil.Contains(t, out, "person", "snippet shows source line")
	testutil.Contains(t, out, "^", "caret present")
}

func TestFormatCaretColumn(t *testing.T) {
	source := []byte("abc def")
	r := New(source, types.DefaultConfig())
	r.Record(diag(types.SeverityError, 4, "boom"))

	out := r.Format()
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	caretLine := lines[len(lines)-1]
	testutil.Equal(t, strings.Index(caretLine, "^"), strings.Index(lines[len(lines)-2], "d"), "caret under column")
}

func TestFormatSortsByPosition(t *testing.T) {
	source := []byte("one two three")
	r := New(source, types.DefaultConfig())
	r.Record(diag(types.SeverityError, 8, "later"))
	r.Record(diag(types.SeverityError, 0, "earlier"))

	out := r.Format()
	testutil.True(t, strings.Index(out, "earlier") < strings.Index(out, "later"),
		"output sorted by source position")
}
