package ast

import (
	"github.com/structviz/godsl/internal/types"
)

// ModelNode owns every element and relationship declared in the model
// block.
type ModelNode struct {
	Enterprise             *EnterpriseNode
	People                 []*PersonNode
	SoftwareSystems        []*SoftwareSystemNode
	Relationships          []*RelationshipNode
	DeploymentEnvironments []*DeploymentEnvironmentNode
	Span                   types.Span
}

// ElementBase carries the fields shared by every element node. The ID
// is assigned at construction (variable name if bound, otherwise
// derived from the name by stripping spaces) and never recomputed.
type ElementBase struct {
	ID           string
	Name         string
	Description  string
	Technology   string
	Tags         []string
	URL          string
	Properties   map[string]string
	Perspectives map[string]string

	// Relationships declared inside this element's block.
	Relationships []*RelationshipNode

	Span types.Span
}

// Location classifies a person or software system relative to the
// enterprise boundary.
type Location int

const (
	LocationUnspecified Location = iota
	LocationInternal
	LocationExternal
)

// String returns the DSL spelling of the location.
func (l Location) String() string {
	switch l {
	case LocationInternal:
		return "internal"
	case LocationExternal:
		return "external"
	default:
		return "unspecified"
	}
}

// EnterpriseNode names the enterprise boundary.
type EnterpriseNode struct {
	Name string
	Span types.Span
}

// PersonNode is a person element.
type PersonNode struct {
	ElementBase
	Location Location
}

// SoftwareSystemNode is a software system element owning containers.
type SoftwareSystemNode struct {
	ElementBase
	Location   Location
	Containers []*ContainerNode
}

// ContainerNode is a container element owning components.
type ContainerNode struct {
	ElementBase
	Components []*ComponentNode
}

// ComponentNode is a component element.
type ComponentNode struct {
	ElementBase
}

// RelationshipNode records a relationship between two elements. Source
// and destination are unresolved textual identifiers at parse time;
// the resolver turns them into element handles.
type RelationshipNode struct {
	SourceID      string
	DestinationID string
	Description   string
	Technology    string
	Tags          []string
	Properties    map[string]string
	Span          types.Span
}

// DeploymentEnvironmentNode groups deployment nodes for one environment.
type DeploymentEnvironmentNode struct {
	Name  string
	Nodes []*DeploymentNodeNode
	Span  types.Span
}

// DeploymentNodeNode is a deployment node, possibly nested.
type DeploymentNodeNode struct {
	ElementBase
	Instances           int
	Children            []*DeploymentNodeNode
	InfrastructureNodes []*InfrastructureNodeNode
	ContainerInstances  []*ContainerInstanceNode
}

// InfrastructureNodeNode is an infrastructure node within a deployment
// node.
type InfrastructureNodeNode struct {
	ElementBase
}

// ContainerInstanceNode places a container instance on a deployment
// node. ContainerID is unresolved until the resolver pass.
type ContainerInstanceNode struct {
	ContainerID string
	Tags        []string
	Span        types.Span
}
