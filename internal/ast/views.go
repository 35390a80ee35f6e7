package ast

import (
	"github.com/structviz/godsl/internal/types"
)

// ViewKind tags the view variants. All variants share one ViewNode
// struct so the common body grammar (include, exclude, autoLayout,
// animation, title, description) updates a single set of fields
// regardless of kind, instead of type-switching per variant.
//
//go:generate stringer -type=ViewKind
type ViewKind int

const (
	ViewKindSystemLandscape ViewKind = iota
	ViewKindSystemContext
	ViewKindContainer
	ViewKindComponent
	ViewKindDynamic
	ViewKindDeployment
	ViewKindFiltered
)

// String returns the DSL keyword for the view kind.
func (k ViewKind) String() string {
	switch k {
	case ViewKindSystemLandscape:
		return "systemLandscape"
	case ViewKindSystemContext:
		return "systemContext"
	case ViewKindContainer:
		return "container"
	case ViewKindComponent:
		return "component"
	case ViewKindDynamic:
		return "dynamic"
	case ViewKindDeployment:
		return "deployment"
	case ViewKindFiltered:
		return "filtered"
	default:
		return "unknown"
	}
}

// ViewsNode owns every view declared in the views block. Key uniqueness
// is not enforced here; the view builders validate it.
type ViewsNode struct {
	Views []*ViewNode
	Span  types.Span
}

// ViewNode is one view declaration of any kind.
type ViewNode struct {
	Kind ViewKind

	// AnchorID references the anchor element (software system for
	// systemContext/container views, container for component views).
	// Empty for landscape views. Unresolved until the resolver pass.
	AnchorID string

	// Environment names the deployment environment for deployment views.
	Environment string

	Key         string
	Title       string
	Description string

	Includes []IncludeExpr
	Excludes []IncludeExpr

	AutoLayout *AutoLayoutNode
	Animations []AnimationNode

	// Filtered views reference a base view by key (held in AnchorID)
	// and filter it by tag set.
	FilterMode string // "include" or "exclude"
	FilterTags []string

	// Dynamic views carry an ordered list of relationship steps.
	Steps []DynamicStepNode

	Properties map[string]string

	Span types.Span
}

// DynamicStepNode is one ordered interaction in a dynamic view.
type DynamicStepNode struct {
	SourceID      string
	DestinationID string
	Description   string
	Span          types.Span
}

// IncludeExpr is one include/exclude rule inside a view body.
type IncludeExpr struct {
	// Expr is the tag, identifier, or name to match. Empty when
	// Wildcard is set.
	Expr     string
	Wildcard bool
	Span     types.Span
}

// AutoLayoutNode configures automatic layout for a view.
type AutoLayoutNode struct {
	Direction string // tb, bt, lr, rl
	RankSep   int
	NodeSep   int
	Span      types.Span
}

// AnimationNode is one animation step listing element references.
type AnimationNode struct {
	ElementIDs []string
	Span       types.Span
}

// StylesNode owns element and relationship style declarations.
type StylesNode struct {
	Elements      []*ElementStyleNode
	Relationships []*RelationshipStyleNode
	Span          types.Span
}

// ElementStyleNode styles elements matching a tag. Keys outside the
// fixed vocabulary are captured in Metadata so new style keys pass
// through without parser changes.
type ElementStyleNode struct {
	Tag        string
	Shape      string
	Icon       string
	Width      int
	Height     int
	Background string
	Stroke     string
	Color      string
	FontSize   int
	Border     string
	Opacity    int
	Metadata   map[string]string
	Span       types.Span
}

// RelationshipStyleNode styles relationships matching a tag.
type RelationshipStyleNode struct {
	Tag       string
	Thickness int
	Color     string
	Style     string // solid, dashed, dotted
	Routing   string // direct, orthogonal, curved
	FontSize  int
	Width     int
	Position  int
	Opacity   int
	Metadata  map[string]string
	Span      types.Span
}
