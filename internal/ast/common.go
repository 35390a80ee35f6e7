// Package ast provides Abstract Syntax Tree types for parsed DSL workspaces.
//
// Nodes are built once during a single top-to-bottom parse and never
// mutated afterward. Parsers accumulate into scratch builders and freeze
// the node when the enclosing block closes; updates are
// construct-and-replace, not in-place mutation.
package ast

import (
	"strings"

	"github.com/structviz/godsl/internal/types"
)

// Ident is an identifier with source location.
type Ident struct {
	Name string
	Span types.Span
}

// NewIdent creates a new identifier.
func NewIdent(name string, span types.Span) Ident {
	return Ident{Name: name, Span: span}
}

// StringLit is a string value with source location. The value is
// unquoted; when the parser accepted a bare identifier in string
// position the value is the identifier's lexeme.
type StringLit struct {
	Value string
	Span  types.Span
}

// NewStringLit creates a new string literal.
func NewStringLit(value string, span types.Span) StringLit {
	return StringLit{Value: value, Span: span}
}

// DeriveID computes the canonical element ID from a display name by
// stripping spaces. Re-deriving from the same name always yields the
// same ID.
func DeriveID(name string) string {
	return strings.ReplaceAll(name, " ", "")
}
