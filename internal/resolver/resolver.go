// Package resolver turns a parsed workspace AST into the resolved
// workspace model.
//
// Resolution runs in phases, each depending on the previous:
//
//  1. Registration: every declared element gets a workspace entry,
//     indexed by ID and by name.
//  2. Relationships: textual source/destination references resolve to
//     element IDs; unresolvable relationships are dropped with a
//     diagnostic.
//  3. Implied relationships: a container-to-container relationship
//     contributes a system-to-system one unless the two systems are
//     already connected.
//  4. Views: include/exclude rules populate each view's element and
//     relationship sets; duplicate keys and unresolvable anchors are
//     diagnosed here.
//  5. Overrides: dotted property keys apply per-element and
//     per-relationship property overrides.
package resolver

import (
	"log/slog"

	"github.com/structviz/godsl/internal/ast"
	"github.com/structviz/godsl/internal/types"
	"github.com/structviz/godsl/workspace"
)

type resolver struct {
	logger *types.Logger

	in  *ast.WorkspaceNode
	out *workspace.Workspace

	// byName maps element names to elements; the first declaration of
	// a name wins so name lookups stay deterministic.
	byName map[string]*workspace.Element

	diags []types.SpanDiagnostic
}

// Resolve builds the resolved workspace for a parsed AST. It never
// fails: unresolvable constructs are dropped and reported through the
// returned diagnostics.
func Resolve(w *ast.WorkspaceNode, logger *slog.Logger) (*workspace.Workspace, []types.SpanDiagnostic) {
	var componentLogger *slog.Logger
	if logger != nil {
		componentLogger = logger.With(slog.String("component", "resolver"))
	}
	r := &resolver{
		logger: &types.Logger{L: componentLogger},
		in:     w,
		out: &workspace.Workspace{
			Name:        w.Name,
			Description: w.Description,
		},
		byName: make(map[string]*workspace.Element),
	}

	r.phase("register", r.registerElements)
	r.phase("relationships", r.resolveRelationships)
	r.phase("implied", r.addImpliedRelationships)
	r.phase("views", r.buildViews)
	r.copyDecorations()
	r.phase("overrides", r.applyOverrides)

	return r.out, r.diags
}

func (r *resolver) phase(name string, fn func()) {
	r.logger.Log(slog.LevelDebug, "starting phase", slog.String("phase", name))
	fn()
}

func (r *resolver) report(sev types.Severity, code, msg string, span types.Span) {
	r.diags = append(r.diags, types.SpanDiagnostic{
		Severity: sev,
		Code:     code,
		Message:  msg,
		Span:     span,
	})
}

// resolveReference looks up an element by ID first, then by exact name.
// Name lookup is gated on an expected kind so a name shared across
// kinds cannot resolve to the wrong one.
func (r *resolver) resolveReference(ref string, expected workspace.ElementKind, byName bool) *workspace.Element {
	if e := r.out.Element(ref); e != nil {
		return e
	}
	if !byName {
		return nil
	}
	if e, ok := r.byName[ref]; ok && e.Kind == expected {
		return e
	}
	return nil
}

// resolveAny is reference lookup without a kind expectation: ID first,
// then name. Used where any element kind is acceptable (relationship
// endpoints, view include rules).
func (r *resolver) resolveAny(ref string) *workspace.Element {
	if e := r.out.Element(ref); e != nil {
		return e
	}
	if e, ok := r.byName[ref]; ok {
		return e
	}
	return nil
}

// copyDecorations carries the non-model sections over unchanged.
func (r *resolver) copyDecorations() {
	w := r.in
	if w.Styles != nil {
		for _, es := range w.Styles.Elements {
			r.out.Styles.Elements = append(r.out.Styles.Elements, &workspace.ElementStyle{
				Tag:        es.Tag,
				Shape:      es.Shape,
				Icon:       es.Icon,
				Width:      es.Width,
				Height:     es.Height,
				Background: es.Background,
				Stroke:     es.Stroke,
				Color:      es.Color,
				FontSize:   es.FontSize,
				Border:     es.Border,
				Opacity:    es.Opacity,
				Metadata:   es.Metadata,
			})
		}
		for _, rs := range w.Styles.Relationships {
			r.out.Styles.Relationships = append(r.out.Styles.Relationships, &workspace.RelationshipStyle{
				Tag:       rs.Tag,
				Thickness: rs.Thickness,
				Color:     rs.Color,
				Style:     rs.Style,
				Routing:   rs.Routing,
				FontSize:  rs.FontSize,
				Width:     rs.Width,
				Position:  rs.Position,
				Opacity:   rs.Opacity,
				Metadata:  rs.Metadata,
			})
		}
	}
	for _, t := range w.Themes {
		r.out.Themes = append(r.out.Themes, t.URL)
	}
	if w.Branding != nil {
		r.out.Branding = &workspace.Branding{Logo: w.Branding.Logo, Font: w.Branding.Font}
	}
	if w.Terminology != nil {
		r.out.Terminology = w.Terminology.Overrides
	}
	if len(w.Properties) > 0 {
		r.out.Properties = w.Properties
	}
	if len(w.Configuration) > 0 {
		r.out.Configuration = w.Configuration
	}
}
