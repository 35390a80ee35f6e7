package types

import (
	"slices"
	"strings"
)

// Severity classifies a diagnostic. Lower values are more severe.
//
//go:generate stringer -type=Severity
type Severity int

const (
	// SeverityFatal aborts the parse (error budget exceeded).
	SeverityFatal Severity = iota
	// SeverityError is a grammar or resolution violation.
	SeverityError
	// SeverityWarning is a tolerated authoring mistake (missing quotes, etc.).
	SeverityWarning
	// SeverityInfo is advisory.
	SeverityInfo
)

// String returns the lowercase severity name.
func (s Severity) String() string {
	switch s {
	case SeverityFatal:
		return "fatal"
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	case SeverityInfo:
		return "info"
	default:
		return "unknown"
	}
}

// SpanDiagnostic is a message from the lexer, parser, or resolver,
// positioned by byte span. It gets converted to workspace.Diagnostic
// with line/column info when handed to the caller.
type SpanDiagnostic struct {
	Severity Severity
	Code     string // e.g., "missing-quotes", "circular-include"
	Span     Span
	Message  string
}

// DiagnosticConfig controls diagnostic filtering and failure thresholds.
type DiagnosticConfig struct {
	// Level sets the reporting threshold. Diagnostics with severity
	// greater than Level are suppressed. Default reports everything.
	Level Severity

	// FailAt sets the severity threshold for failure.
	// Default (0) means fail on Fatal only.
	FailAt Severity

	// Overrides change severity for specific diagnostic codes.
	Overrides map[string]Severity

	// Ignore lists diagnostic codes to suppress entirely.
	// Supports glob patterns (e.g., "identifier-*").
	Ignore []string
}

// DefaultConfig returns the default diagnostic configuration:
// everything reported, failure on fatal only.
func DefaultConfig() DiagnosticConfig {
	return DiagnosticConfig{
		Level:  SeverityInfo,
		FailAt: SeverityFatal,
	}
}

// StrictConfig returns a configuration where warnings fail the parse.
func StrictConfig() DiagnosticConfig {
	return DiagnosticConfig{
		Level:  SeverityInfo,
		FailAt: SeverityWarning,
	}
}

// ShouldReport returns true if a diagnostic with the given code and
// severity should be reported under this configuration.
func (c DiagnosticConfig) ShouldReport(code string, sev Severity) bool {
	if slices.ContainsFunc(c.Ignore, func(pattern string) bool {
		return MatchGlob(pattern, code)
	}) {
		return false
	}

	if override, ok := c.Overrides[code]; ok {
		sev = override
	}

	return sev <= c.Level
}

// ShouldFail returns true if a diagnostic with the given severity should
// cause the parse to be considered failed.
func (c DiagnosticConfig) ShouldFail(sev Severity) bool {
	return sev <= c.FailAt
}

// MatchGlob performs simple glob matching with * wildcard.
func MatchGlob(pattern, s string) bool {
	if prefix, ok := strings.CutSuffix(pattern, "*"); ok {
		return strings.HasPrefix(s, prefix)
	}
	if suffix, ok := strings.CutPrefix(pattern, "*"); ok {
		return strings.HasSuffix(s, suffix)
	}
	return pattern == s
}
