package resolver

import (
	"fmt"
	"log/slog"

	"github.com/structviz/godsl/internal/ast"
	"github.com/structviz/godsl/internal/types"
	"github.com/structviz/godsl/workspace"
)

// buildViews populates every declared view. Views are built in
// declaration order; filtered views may therefore reference any base
// view declared before them.
func (r *resolver) buildViews() {
	if r.in.Views == nil {
		return
	}
	seen := make(map[string]bool)
	for i, v := range r.in.Views.Views {
		key := v.Key
		if key == "" {
			key = fmt.Sprintf("%s-%03d", v.Kind, i+1)
		}
		if seen[key] {
			r.report(types.SeverityError, types.DiagDuplicateViewKey,
				fmt.Sprintf("duplicate view key %q", key), v.Span)
			continue
		}
		built := r.buildView(v, key)
		if built == nil {
			continue
		}
		seen[key] = true
		r.out.Views = append(r.out.Views, built)
		r.logger.Trace("built view",
			slog.String("key", key), slog.Int("elements", len(built.ElementIDs)))
	}
	r.logger.Log(slog.LevelDebug, "built views", slog.Int("count", len(r.out.Views)))
}

func (r *resolver) buildView(v *ast.ViewNode, key string) *workspace.View {
	out := &workspace.View{
		Kind:        v.Kind.String(),
		Key:         key,
		Environment: v.Environment,
		Title:       v.Title,
		Description: v.Description,
		Properties:  v.Properties,
	}
	if v.AutoLayout != nil {
		out.AutoLayout = &workspace.AutoLayout{
			Direction: v.AutoLayout.Direction,
			RankSep:   v.AutoLayout.RankSep,
			NodeSep:   v.AutoLayout.NodeSep,
		}
	}

	switch v.Kind {
	case ast.ViewKindSystemLandscape:
		r.populate(out, v, nil, r.landscapeCandidates())
	case ast.ViewKindSystemContext:
		anchor := r.viewAnchor(v, workspace.KindSoftwareSystem)
		if anchor == nil {
			return nil
		}
		out.AnchorID = anchor.ID
		r.populate(out, v, anchor, r.contextCandidates(anchor))
	case ast.ViewKindContainer:
		anchor := r.viewAnchor(v, workspace.KindSoftwareSystem)
		if anchor == nil {
			return nil
		}
		out.AnchorID = anchor.ID
		r.populate(out, v, anchor, r.scopedCandidates(anchor, workspace.KindContainer))
	case ast.ViewKindComponent:
		anchor := r.viewAnchor(v, workspace.KindContainer)
		if anchor == nil {
			return nil
		}
		out.AnchorID = anchor.ID
		r.populate(out, v, anchor, r.scopedCandidates(anchor, workspace.KindComponent))
	case ast.ViewKindDeployment:
		r.buildDeploymentView(out, v)
	case ast.ViewKindDynamic:
		r.buildDynamicView(out, v)
	case ast.ViewKindFiltered:
		if !r.buildFilteredView(out, v) {
			return nil
		}
	}

	r.resolveAnimations(out, v)
	return out
}

// viewAnchor resolves the view's anchor element, ID first then name.
// A missing anchor drops the view.
func (r *resolver) viewAnchor(v *ast.ViewNode, kind workspace.ElementKind) *workspace.Element {
	if v.AnchorID == "" {
		r.report(types.SeverityError, types.DiagMissingAnchor,
			fmt.Sprintf("%s view requires an anchor element", v.Kind), v.Span)
		return nil
	}
	anchor := r.resolveReference(v.AnchorID, kind, true)
	if anchor == nil {
		r.report(types.SeverityError, types.DiagUnresolvedReference,
			fmt.Sprintf("unresolved view anchor %q", v.AnchorID), v.Span)
		return nil
	}
	return anchor
}

// populate applies the view's include/exclude rules over the candidate
// set. A wildcard include pulls in every candidate; explicit rules
// match tag, ID, or name across the whole model; no rules at all fall
// back to the candidates already related to the anchor. Excludes run
// after includes and veto them; the anchor survives exclusion.
func (r *resolver) populate(out *workspace.View, v *ast.ViewNode, anchor *workspace.Element, candidates []*workspace.Element) {
	included := make(map[string]bool)

	if len(v.Includes) == 0 {
		for _, e := range candidates {
			if anchor == nil || e.ID == anchor.ID || r.related(e.ID, anchor.ID) {
				included[e.ID] = true
			}
		}
	}
	for _, inc := range v.Includes {
		if inc.Wildcard {
			for _, e := range candidates {
				included[e.ID] = true
			}
			continue
		}
		matched := false
		for _, e := range r.out.Elements {
			if matchElement(e, inc.Expr) {
				included[e.ID] = true
				matched = true
			}
		}
		if !matched {
			r.report(types.SeverityWarning, types.DiagUnresolvedReference,
				fmt.Sprintf("include expression %q matches no element", inc.Expr), inc.Span)
		}
	}
	for _, exc := range v.Excludes {
		if exc.Wildcard {
			included = make(map[string]bool)
			continue
		}
		for _, e := range r.out.Elements {
			if matchElement(e, exc.Expr) {
				delete(included, e.ID)
			}
		}
	}
	if anchor != nil {
		included[anchor.ID] = true
	}

	// Declaration order keeps the element list deterministic.
	for _, e := range r.out.Elements {
		if included[e.ID] {
			out.ElementIDs = append(out.ElementIDs, e.ID)
		}
	}
	out.Relationships = r.connecting(included)
}

// landscapeCandidates is every person and software system.
func (r *resolver) landscapeCandidates() []*workspace.Element {
	var set []*workspace.Element
	for _, e := range r.out.Elements {
		if e.Kind == workspace.KindPerson || e.Kind == workspace.KindSoftwareSystem {
			set = append(set, e)
		}
	}
	return set
}

// contextCandidates is the anchor plus every person and system with a
// relationship to it.
func (r *resolver) contextCandidates(anchor *workspace.Element) []*workspace.Element {
	set := []*workspace.Element{anchor}
	for _, e := range r.out.Elements {
		if e.ID == anchor.ID {
			continue
		}
		if e.Kind != workspace.KindPerson && e.Kind != workspace.KindSoftwareSystem {
			continue
		}
		if r.related(e.ID, anchor.ID) {
			set = append(set, e)
		}
	}
	return set
}

// scopedCandidates is the anchor's children of the given kind plus
// every element related to one of them.
func (r *resolver) scopedCandidates(anchor *workspace.Element, child workspace.ElementKind) []*workspace.Element {
	inScope := make(map[string]bool)
	var set []*workspace.Element
	for _, e := range r.out.Elements {
		if e.Kind == child && e.ParentID == anchor.ID {
			inScope[e.ID] = true
			set = append(set, e)
		}
	}
	for _, e := range r.out.Elements {
		if inScope[e.ID] || e.ID == anchor.ID {
			continue
		}
		for id := range inScope {
			if r.related(e.ID, id) {
				set = append(set, e)
				break
			}
		}
	}
	return set
}

func (r *resolver) buildDeploymentView(out *workspace.View, v *ast.ViewNode) {
	var candidates []*workspace.Element
	for _, e := range r.out.Elements {
		if e.Environment == v.Environment {
			candidates = append(candidates, e)
		}
	}
	if len(candidates) == 0 {
		r.report(types.SeverityWarning, types.DiagUnresolvedReference,
			fmt.Sprintf("deployment environment %q has no elements", v.Environment), v.Span)
	}
	var anchor *workspace.Element
	if v.AnchorID != "" && v.AnchorID != "*" {
		anchor = r.resolveReference(v.AnchorID, workspace.KindSoftwareSystem, true)
		if anchor == nil {
			r.report(types.SeverityError, types.DiagUnresolvedReference,
				fmt.Sprintf("unresolved view anchor %q", v.AnchorID), v.Span)
			return
		}
		out.AnchorID = anchor.ID
	}
	included := make(map[string]bool)
	for _, e := range candidates {
		included[e.ID] = true
	}
	for _, exc := range v.Excludes {
		for _, e := range candidates {
			if !exc.Wildcard && matchElement(e, exc.Expr) {
				delete(included, e.ID)
			}
		}
	}
	for _, e := range r.out.Elements {
		if included[e.ID] {
			out.ElementIDs = append(out.ElementIDs, e.ID)
		}
	}
	out.Relationships = r.connecting(included)
}

// buildDynamicView resolves each ordered step. The element set is
// exactly the elements the steps touch.
func (r *resolver) buildDynamicView(out *workspace.View, v *ast.ViewNode) {
	if v.AnchorID != "" && v.AnchorID != "*" {
		if anchor := r.resolveAny(v.AnchorID); anchor != nil {
			out.AnchorID = anchor.ID
		} else {
			r.report(types.SeverityError, types.DiagUnresolvedReference,
				fmt.Sprintf("unresolved view anchor %q", v.AnchorID), v.Span)
		}
	}
	included := make(map[string]bool)
	for _, step := range v.Steps {
		src := r.resolveAny(step.SourceID)
		if src == nil {
			r.reportUnresolved(step.SourceID, "dynamic step source", step.Span)
			continue
		}
		dst := r.resolveAny(step.DestinationID)
		if dst == nil {
			r.reportUnresolved(step.DestinationID, "dynamic step destination", step.Span)
			continue
		}
		included[src.ID] = true
		included[dst.ID] = true
		out.Relationships = append(out.Relationships, &workspace.Relationship{
			SourceID:      src.ID,
			DestinationID: dst.ID,
			Description:   step.Description,
			Tags:          []string{"Relationship"},
		})
	}
	for _, e := range r.out.Elements {
		if included[e.ID] {
			out.ElementIDs = append(out.ElementIDs, e.ID)
		}
	}
}

// buildFilteredView projects a base view through a tag filter. The
// base view must already be built, so filtered views follow their base
// in declaration order.
func (r *resolver) buildFilteredView(out *workspace.View, v *ast.ViewNode) bool {
	base := r.out.View(v.AnchorID)
	if base == nil {
		r.report(types.SeverityError, types.DiagUnresolvedReference,
			fmt.Sprintf("filtered view references unknown base view %q", v.AnchorID), v.Span)
		return false
	}
	out.AnchorID = base.Key
	keep := make(map[string]bool)
	for _, id := range base.ElementIDs {
		e := r.out.Element(id)
		if e == nil {
			continue
		}
		matches := hasAnyTag(e.Tags, v.FilterTags)
		if (v.FilterMode == "exclude") != matches {
			keep[id] = true
			out.ElementIDs = append(out.ElementIDs, id)
		}
	}
	for _, rel := range base.Relationships {
		if keep[rel.SourceID] && keep[rel.DestinationID] {
			out.Relationships = append(out.Relationships, rel)
		}
	}
	return true
}

func (r *resolver) resolveAnimations(out *workspace.View, v *ast.ViewNode) {
	for _, anim := range v.Animations {
		var step []string
		for _, ref := range anim.ElementIDs {
			e := r.resolveAny(ref)
			if e == nil {
				r.report(types.SeverityWarning, types.DiagUnresolvedReference,
					fmt.Sprintf("animation step references unknown element %q", ref), anim.Span)
				continue
			}
			step = append(step, e.ID)
		}
		if len(step) > 0 {
			out.Animations = append(out.Animations, step)
		}
	}
}

// connecting returns the relationships whose endpoints are both in the
// id set.
func (r *resolver) connecting(ids map[string]bool) []*workspace.Relationship {
	var rels []*workspace.Relationship
	for _, rel := range r.out.Relationships {
		if ids[rel.SourceID] && ids[rel.DestinationID] {
			rels = append(rels, rel)
		}
	}
	return rels
}

// related reports whether a relationship connects the two elements, in
// either direction.
func (r *resolver) related(a, b string) bool {
	for _, rel := range r.out.Relationships {
		if (rel.SourceID == a && rel.DestinationID == b) ||
			(rel.SourceID == b && rel.DestinationID == a) {
			return true
		}
	}
	return false
}

func matchElement(e *workspace.Element, expr string) bool {
	return e.ID == expr || e.Name == expr || e.HasTag(expr)
}

func hasAnyTag(tags, wanted []string) bool {
	for _, w := range wanted {
		for _, t := range tags {
			if t == w {
				return true
			}
		}
	}
	return false
}
