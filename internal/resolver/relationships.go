package resolver

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/structviz/godsl/internal/ast"
	"github.com/structviz/godsl/internal/types"
	"github.com/structviz/godsl/workspace"
)

// resolveRelationships turns every declared relationship into a
// resolved one. A relationship with an unresolvable endpoint is
// dropped, not kept half-resolved.
func (r *resolver) resolveRelationships() {
	for _, rel := range r.collectRelationships() {
		src := r.resolveAny(rel.SourceID)
		if src == nil {
			r.reportUnresolved(rel.SourceID, "relationship source", rel.Span)
			continue
		}
		dst := r.resolveAny(rel.DestinationID)
		if dst == nil {
			r.reportUnresolved(rel.DestinationID, "relationship destination", rel.Span)
			continue
		}
		tags := []string{"Relationship"}
		tags = append(tags, rel.Tags...)
		r.out.Relationships = append(r.out.Relationships, &workspace.Relationship{
			SourceID:      src.ID,
			DestinationID: dst.ID,
			Description:   rel.Description,
			Technology:    rel.Technology,
			Tags:          tags,
			Properties:    rel.Properties,
		})
	}
	r.logger.Log(slog.LevelDebug, "resolved relationships",
		slog.Int("count", len(r.out.Relationships)))
}

// collectRelationships gathers relationship nodes from the model block
// and from every element body, in declaration order.
func (r *resolver) collectRelationships() []*ast.RelationshipNode {
	m := r.in.Model
	if m == nil {
		return nil
	}
	var rels []*ast.RelationshipNode
	add := func(base *ast.ElementBase) {
		rels = append(rels, base.Relationships...)
	}
	for _, p := range m.People {
		add(&p.ElementBase)
	}
	for _, s := range m.SoftwareSystems {
		add(&s.ElementBase)
		for _, c := range s.Containers {
			add(&c.ElementBase)
			for _, comp := range c.Components {
				add(&comp.ElementBase)
			}
		}
	}
	rels = append(rels, m.Relationships...)
	for _, env := range m.DeploymentEnvironments {
		for _, node := range env.Nodes {
			rels = append(rels, deploymentRelationships(node)...)
		}
	}
	return rels
}

func deploymentRelationships(node *ast.DeploymentNodeNode) []*ast.RelationshipNode {
	rels := append([]*ast.RelationshipNode(nil), node.Relationships...)
	for _, infra := range node.InfrastructureNodes {
		rels = append(rels, infra.Relationships...)
	}
	for _, child := range node.Children {
		rels = append(rels, deploymentRelationships(child)...)
	}
	return rels
}

// addImpliedRelationships propagates container-level relationships to
// the owning software systems. Skipped entirely when the workspace
// configuration sets impliedrelationships to false.
func (r *resolver) addImpliedRelationships() {
	for k, v := range r.in.Configuration {
		// The key arrives lowercased from the !impliedRelationships
		// directive but as written from a configuration block.
		if strings.EqualFold(k, "impliedrelationships") && v == "false" {
			r.logger.Log(slog.LevelDebug, "implied relationships disabled by configuration")
			return
		}
	}
	explicit := len(r.out.Relationships)
	for _, rel := range r.out.Relationships[:explicit] {
		srcSys := r.owningSystem(rel.SourceID)
		dstSys := r.owningSystem(rel.DestinationID)
		if srcSys == nil || dstSys == nil || srcSys.ID == dstSys.ID {
			continue
		}
		// The original relationship already connects the systems when
		// both endpoints are systems themselves.
		if srcSys.ID == rel.SourceID && dstSys.ID == rel.DestinationID {
			continue
		}
		if r.relationshipExists(srcSys.ID, dstSys.ID) {
			continue
		}
		r.out.Relationships = append(r.out.Relationships, &workspace.Relationship{
			SourceID:      srcSys.ID,
			DestinationID: dstSys.ID,
			Description:   rel.Description,
			Technology:    rel.Technology,
			Tags:          []string{"Relationship", "Implied"},
			Implied:       true,
		})
		r.logger.Trace("implied relationship",
			slog.String("source", srcSys.ID), slog.String("destination", dstSys.ID))
	}
}

// owningSystem walks the parent chain up to the enclosing software
// system. A software system owns itself; people and deployment
// elements have none.
func (r *resolver) owningSystem(id string) *workspace.Element {
	for e := r.out.Element(id); e != nil; e = r.out.Element(e.ParentID) {
		if e.Kind == workspace.KindSoftwareSystem {
			return e
		}
		if e.ParentID == "" {
			return nil
		}
	}
	return nil
}

func (r *resolver) relationshipExists(srcID, dstID string) bool {
	for _, rel := range r.out.Relationships {
		if rel.SourceID == srcID && rel.DestinationID == dstID {
			return true
		}
	}
	return false
}

func (r *resolver) reportUnresolved(ref, role string, span types.Span) {
	r.report(types.SeverityError, types.DiagUnresolvedReference,
		fmt.Sprintf("unresolved %s %q", role, ref), span)
}
