package ast

import (
	"github.com/structviz/godsl/internal/types"
)

// WorkspaceNode is the AST root. A parse always produces exactly one
// workspace node, possibly a placeholder when the error budget aborts
// the parse.
type WorkspaceNode struct {
	Name        string
	Description string

	Model       *ModelNode
	Views       *ViewsNode
	Styles      *StylesNode
	Themes      []ThemeNode
	Branding    *BrandingNode
	Terminology *TerminologyNode

	Properties    map[string]string
	Configuration map[string]string

	// Includes lists every !include directive found at any nesting
	// depth, in source order. File includes participate in the include
	// graph used for cycle detection.
	Includes []IncludeFileNode

	// Placeholder marks a best-effort workspace returned after a fatal
	// abort. All other fields may be partially populated.
	Placeholder bool

	Span types.Span
}

// NewWorkspaceNode creates a workspace node with empty collections.
func NewWorkspaceNode(name, description string, span types.Span) *WorkspaceNode {
	return &WorkspaceNode{
		Name:          name,
		Description:   description,
		Properties:    make(map[string]string),
		Configuration: make(map[string]string),
		Span:          span,
	}
}

// PlaceholderWorkspace returns the minimal workspace produced when the
// parse aborts. Callers get a usable (empty) AST plus diagnostics,
// never an error.
func PlaceholderWorkspace(span types.Span) *WorkspaceNode {
	w := NewWorkspaceNode("", "", span)
	w.Placeholder = true
	return w
}

// IncludeFileNode records a !include directive.
type IncludeFileNode struct {
	Path string
	Span types.Span
}

// ThemeNode is a theme URL reference from a 'theme'/'themes' declaration.
type ThemeNode struct {
	URL  string
	Span types.Span
}

// BrandingNode carries workspace branding settings.
type BrandingNode struct {
	Logo string
	Font string
	Span types.Span
}

// TerminologyNode overrides display terminology per element kind.
type TerminologyNode struct {
	Overrides map[string]string // element kind -> display term
	Span      types.Span
}
