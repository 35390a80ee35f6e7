package resolver

import (
	"log/slog"

	"github.com/structviz/godsl/internal/ast"
	"github.com/structviz/godsl/workspace"
)

// Default tags mirror the tag vocabulary the style grammar matches
// against. Every element carries its kind tag in addition to the tags
// declared in its body.
func defaultTags(kind workspace.ElementKind) []string {
	switch kind {
	case workspace.KindPerson:
		return []string{"Element", "Person"}
	case workspace.KindSoftwareSystem:
		return []string{"Element", "Software System"}
	case workspace.KindContainer:
		return []string{"Element", "Container"}
	case workspace.KindComponent:
		return []string{"Element", "Component"}
	case workspace.KindDeploymentNode:
		return []string{"Element", "Deployment Node"}
	case workspace.KindInfrastructureNode:
		return []string{"Element", "Infrastructure Node"}
	case workspace.KindContainerInstance:
		return []string{"Element", "Container Instance"}
	default:
		return []string{"Element"}
	}
}

func mergeTags(kind workspace.ElementKind, declared []string) []string {
	tags := defaultTags(kind)
	for _, t := range declared {
		found := false
		for _, have := range tags {
			if have == t {
				found = true
				break
			}
		}
		if !found {
			tags = append(tags, t)
		}
	}
	return tags
}

// registerElements walks the model and creates one workspace element
// per declaration. IDs were assigned at parse time; registration only
// indexes them.
func (r *resolver) registerElements() {
	m := r.in.Model
	if m == nil {
		return
	}
	for _, p := range m.People {
		e := r.register(&p.ElementBase, workspace.KindPerson, "")
		e.Location = locationString(p.Location)
	}
	for _, s := range m.SoftwareSystems {
		e := r.register(&s.ElementBase, workspace.KindSoftwareSystem, "")
		e.Location = locationString(s.Location)
		for _, c := range s.Containers {
			r.register(&c.ElementBase, workspace.KindContainer, s.ID)
			for _, comp := range c.Components {
				r.register(&comp.ElementBase, workspace.KindComponent, c.ID)
			}
		}
	}
	for _, env := range m.DeploymentEnvironments {
		for _, node := range env.Nodes {
			r.registerDeploymentNode(node, env.Name, "")
		}
	}
	r.logger.Log(slog.LevelDebug, "registered elements", slog.Int("count", len(r.out.Elements)))
}

func (r *resolver) register(base *ast.ElementBase, kind workspace.ElementKind, parentID string) *workspace.Element {
	e := &workspace.Element{
		ID:           base.ID,
		Kind:         kind,
		Name:         base.Name,
		Description:  base.Description,
		Technology:   base.Technology,
		Tags:         mergeTags(kind, base.Tags),
		URL:          base.URL,
		ParentID:     parentID,
		Properties:   base.Properties,
		Perspectives: base.Perspectives,
	}
	r.out.AddElement(e)
	if _, ok := r.byName[e.Name]; !ok && e.Name != "" {
		r.byName[e.Name] = e
	}
	r.logger.Trace("registered element",
		slog.String("id", e.ID), slog.String("kind", kind.String()))
	return e
}

func (r *resolver) registerDeploymentNode(node *ast.DeploymentNodeNode, env, parentID string) {
	e := r.register(&node.ElementBase, workspace.KindDeploymentNode, parentID)
	e.Environment = env
	e.Instances = node.Instances

	for _, infra := range node.InfrastructureNodes {
		ie := r.register(&infra.ElementBase, workspace.KindInfrastructureNode, e.ID)
		ie.Environment = env
	}
	for _, inst := range node.ContainerInstances {
		r.registerContainerInstance(inst, env, e.ID)
	}
	for _, child := range node.Children {
		r.registerDeploymentNode(child, env, e.ID)
	}
}

// registerContainerInstance resolves the referenced container now so
// the instance can inherit its name, technology and tags. Containers
// always register before deployment environments because the model
// grammar lists software systems first.
func (r *resolver) registerContainerInstance(inst *ast.ContainerInstanceNode, env, parentID string) {
	c := r.resolveReference(inst.ContainerID, workspace.KindContainer, true)
	if c == nil {
		r.reportUnresolved(inst.ContainerID, "container instance", inst.Span)
		return
	}
	e := &workspace.Element{
		ID:          c.ID + "." + sanitizeID(env),
		Kind:        workspace.KindContainerInstance,
		Name:        c.Name,
		Description: c.Description,
		Technology:  c.Technology,
		Tags:        append(mergeTags(workspace.KindContainerInstance, c.Tags), inst.Tags...),
		ParentID:    parentID,
		Environment: env,
		Instances:   1,
	}
	// The instance points back at its container through properties so
	// exports keep the association.
	e.Properties = map[string]string{"container": c.ID}
	r.out.AddElement(e)
	r.logger.Trace("registered container instance",
		slog.String("id", e.ID), slog.String("container", c.ID))
}

func locationString(l ast.Location) string {
	if l == ast.LocationUnspecified {
		return ""
	}
	return l.String()
}

// sanitizeID strips spaces the same way element ID derivation does.
func sanitizeID(s string) string {
	return ast.DeriveID(s)
}
