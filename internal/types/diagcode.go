package types

// Diagnostic codes emitted by the lexer, parser, include resolver, and
// view builders. Centralizing these prevents silent breakage from typos
// in string literals.

// Lexer diagnostic codes.
const (
	DiagUnterminatedString  = "unterminated-string"
	DiagUnterminatedComment = "unterminated-comment"
	DiagUnexpectedCharacter = "unexpected-character"
	DiagMalformedNumber     = "malformed-number"
	DiagMalformedDirective  = "malformed-directive"
)

// Parser diagnostic codes.
const (
	DiagParseError      = "parse-error"
	DiagMissingQuotes   = "missing-quotes"
	DiagMissingBrace    = "missing-brace"
	DiagStrayToken      = "stray-token"
	DiagErrorBudget     = "error-budget-exceeded"
	DiagDuplicateID     = "duplicate-identifier"
	DiagEmptyName       = "empty-element-name"
	DiagUnknownKeyword  = "unknown-keyword"
	DiagUnknownStyleKey = "unknown-style-key"
)

// Include resolver diagnostic codes.
const (
	DiagIncludeNotFound = "include-not-found"
	DiagCircularInclude = "circular-include"
)

// Resolver and view builder diagnostic codes.
const (
	DiagUnresolvedReference = "unresolved-reference"
	DiagDuplicateViewKey    = "duplicate-view-key"
	DiagMissingAnchor       = "missing-view-anchor"
	DiagBadPropertyKey      = "bad-property-key"
)

// DiagCodeInfo describes a diagnostic code and the phase that emits it.
type DiagCodeInfo struct {
	Code  string
	Phase string
}

// AllDiagnosticCodes returns all known diagnostic codes grouped by phase.
func AllDiagnosticCodes() []DiagCodeInfo {
	return []DiagCodeInfo{
		// Lexer
		{Code: DiagUnterminatedString, Phase: "lexer"},
		{Code: DiagUnterminatedComment, Phase: "lexer"},
		{Code: DiagUnexpectedCharacter, Phase: "lexer"},
		{Code: DiagMalformedNumber, Phase: "lexer"},
		{Code: DiagMalformedDirective, Phase: "lexer"},
		// Parser
		{Code: DiagParseError, Phase: "parser"},
		{Code: DiagMissingQuotes, Phase: "parser"},
		{Code: DiagMissingBrace, Phase: "parser"},
		{Code: DiagStrayToken, Phase: "parser"},
		{Code: DiagErrorBudget, Phase: "parser"},
		{Code: DiagDuplicateID, Phase: "parser"},
		{Code: DiagEmptyName, Phase: "parser"},
		{Code: DiagUnknownKeyword, Phase: "parser"},
		{Code: DiagUnknownStyleKey, Phase: "parser"},
		// Includes
		{Code: DiagIncludeNotFound, Phase: "include"},
		{Code: DiagCircularInclude, Phase: "include"},
		// Resolver
		{Code: DiagUnresolvedReference, Phase: "resolver"},
		{Code: DiagDuplicateViewKey, Phase: "resolver"},
		{Code: DiagMissingAnchor, Phase: "resolver"},
		{Code: DiagBadPropertyKey, Phase: "resolver"},
	}
}
