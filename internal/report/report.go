// Package report accumulates and formats parse diagnostics.
//
// Diagnostics are kept in arrival order; formatting sorts by source
// position so output is reproducible regardless of the order error
// recovery discovered the problems.
package report

import (
	"fmt"
	"slices"
	"strings"

	"github.com/structviz/godsl/internal/types"
)

// Reporter collects diagnostics against one source text.
type Reporter struct {
	source []byte
	cfg    types.DiagnosticConfig
	diags  []types.SpanDiagnostic
}

// New returns a Reporter for the given source.
func New(source []byte, cfg types.DiagnosticConfig) *Reporter {
	return &Reporter{source: source, cfg: cfg}
}

// Report records a diagnostic if the configuration reports it.
func (r *Reporter) Report(sev types.Severity, code string, span types.Span, message string) {
	if !r.cfg.ShouldReport(code, sev) {
		return
	}
	r.Record(types.SpanDiagnostic{Severity: sev, Code: code, Span: span, Message: message})
}

// Record appends a diagnostic unconditionally, bypassing config
// filtering. Structural parse errors use this: they must surface at any
// strictness level.
func (r *Reporter) Record(diag types.SpanDiagnostic) {
	r.diags = append(r.diags, diag)
}

// Extend appends a batch of diagnostics (e.g. lexer output) in order.
func (r *Reporter) Extend(diags []types.SpanDiagnostic) {
	r.diags = append(r.diags, diags...)
}

// Diagnostics returns a copy of all diagnostics in arrival order.
func (r *Reporter) Diagnostics() []types.SpanDiagnostic {
	return slices.Clone(r.diags)
}

// Sorted returns diagnostics ordered by source position, then severity.
func (r *Reporter) Sorted() []types.SpanDiagnostic {
	sorted := slices.Clone(r.diags)
	slices.SortStableFunc(sorted, func(a, b types.SpanDiagnostic) int {
		if a.Span.Start != b.Span.Start {
			if a.Span.Start < b.Span.Start {
				return -1
			}
			return 1
		}
		return int(a.Severity) - int(b.Severity)
	})
	return sorted
}

// HasErrors reports whether any diagnostic is error severity or worse.
func (r *Reporter) HasErrors() bool {
	return slices.ContainsFunc(r.diags, func(d types.SpanDiagnostic) bool {
		return d.Severity <= types.SeverityError
	})
}

// HasFatalErrors reports whether any diagnostic is fatal.
func (r *Reporter) HasFatalErrors() bool {
	return slices.ContainsFunc(r.diags, func(d types.SpanDiagnostic) bool {
		return d.Severity == types.SeverityFatal
	})
}

// ErrorCount returns the number of error-or-worse diagnostics.
func (r *Reporter) ErrorCount() int {
	count := 0
	for _, d := range r.diags {
		if d.Severity <= types.SeverityError {
			count++
		}
	}
	return count
}

// Count returns the total number of diagnostics.
func (r *Reporter) Count() int {
	return len(r.diags)
}

// Position computes the 1-based line and column for a byte offset by
// scanning the source. O(n) per call is fine: diagnostics are rare
// relative to tokens.
func (r *Reporter) Position(offset types.ByteOffset) (line, column int) {
	return Position(r.source, offset)
}

// Position computes the 1-based line and column for a byte offset in
// the given source.
func Position(source []byte, offset types.ByteOffset) (line, column int) {
	line, column = 1, 1
	end := int(offset)
	if end > len(source) {
		end = len(source)
	}
	for _, b := range source[:end] {
		if b == '\n' {
			line++
			column = 1
		} else {
			column++
		}
	}
	return line, column
}

// Format renders all diagnostics sorted by position, each with a source
// snippet and a caret under the offending column.
func (r *Reporter) Format() string {
	var b strings.Builder
	for i, d := range r.Sorted() {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(r.FormatDiagnostic(d))
	}
	return b.String()
}

// FormatDiagnostic renders one diagnostic as
//
//	[severity] <message> at line <L>, column <C>
//	    <context line>
//	    <source line>
//	    <caret>
func (r *Reporter) FormatDiagnostic(d types.SpanDiagnostic) string {
	line, column := r.Position(d.Span.Start)

	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s at line %d, column %d\n", d.Severity, d.Message, line, column)

	lines := sourceLines(r.source)
	gutter := len(fmt.Sprintf("%d", line))

	// Up to two lines of leading context.
	for n := max(1, line-2); n < line; n++ {
		fmt.Fprintf(&b, "  %*d | %s\n", gutter, n, lines[n-1])
	}
	if line-1 < len(lines) {
		fmt.Fprintf(&b, "  %*d | %s\n", gutter, line, lines[line-1])
		fmt.Fprintf(&b, "  %s | %s^\n", strings.Repeat(" ", gutter), caretPad(lines[line-1], column))
	}
	return b.String()
}

// caretPad builds the whitespace run that positions the caret under the
// given column, preserving tabs so alignment survives tab-indented
// source.
func caretPad(line string, column int) string {
	var b strings.Builder
	for i := 0; i < column-1 && i < len(line); i++ {
		if line[i] == '\t' {
			b.WriteByte('\t')
		} else {
			b.WriteByte(' ')
		}
	}
	for i := len(line); i < column-1; i++ {
		b.WriteByte(' ')
	}
	return b.String()
}

func sourceLines(source []byte) []string {
	return strings.Split(string(source), "\n")
}
