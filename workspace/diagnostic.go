package workspace

import (
	"fmt"
)

// Severity classifies a diagnostic. Lower values are more severe.
type Severity int

const (
	// SeverityFatal aborted processing (error budget exceeded).
	SeverityFatal Severity = iota
	// SeverityError is a grammar or resolution violation.
	SeverityError
	// SeverityWarning is a tolerated authoring mistake.
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

// Diagnostic is one message produced while processing a workspace,
// positioned by line and column (both 1-based; 0 means no position).
type Diagnostic struct {
	Severity Severity `json:"severity" yaml:"severity"`
	Code     string   `json:"code" yaml:"code"`
	Line     int      `json:"line,omitempty" yaml:"line,omitempty"`
	Column   int      `json:"column,omitempty" yaml:"column,omitempty"`
	Message  string   `json:"message" yaml:"message"`
}

// String renders the diagnostic in the canonical form
// "[severity] <message> at line <L>, column <C>".
func (d Diagnostic) String() string {
	if d.Line == 0 {
		return fmt.Sprintf("[%s] %s", d.Severity, d.Message)
	}
	return fmt.Sprintf("[%s] %s at line %d, column %d", d.Severity, d.Message, d.Line, d.Column)
}
