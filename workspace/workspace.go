// Package workspace defines the resolved workspace model returned to
// callers: elements, relationships, views and styles with all
// references resolved to element IDs.
package workspace

// ElementKind classifies a resolved element.
//
//go:generate stringer -type=ElementKind
type ElementKind int

const (
	KindPerson ElementKind = iota
	KindSoftwareSystem
	KindContainer
	KindComponent
	KindDeploymentNode
	KindInfrastructureNode
	KindContainerInstance
)

// String returns the DSL spelling of the element kind.
func (k ElementKind) String() string {
	switch k {
	case KindPerson:
		return "person"
	case KindSoftwareSystem:
		return "softwareSystem"
	case KindContainer:
		return "container"
	case KindComponent:
		return "component"
	case KindDeploymentNode:
		return "deploymentNode"
	case KindInfrastructureNode:
		return "infrastructureNode"
	case KindContainerInstance:
		return "containerInstance"
	default:
		return "unknown"
	}
}

// Element is a resolved model element. ParentID is empty for top-level
// elements (people, software systems, deployment nodes at environment
// root).
type Element struct {
	ID           string            `json:"id" yaml:"id"`
	Kind         ElementKind       `json:"kind" yaml:"kind"`
	Name         string            `json:"name" yaml:"name"`
	Description  string            `json:"description,omitempty" yaml:"description,omitempty"`
	Technology   string            `json:"technology,omitempty" yaml:"technology,omitempty"`
	Tags         []string          `json:"tags,omitempty" yaml:"tags,omitempty"`
	URL          string            `json:"url,omitempty" yaml:"url,omitempty"`
	Location     string            `json:"location,omitempty" yaml:"location,omitempty"`
	ParentID     string            `json:"parent,omitempty" yaml:"parent,omitempty"`
	Environment  string            `json:"environment,omitempty" yaml:"environment,omitempty"`
	Instances    int               `json:"instances,omitempty" yaml:"instances,omitempty"`
	Properties   map[string]string `json:"properties,omitempty" yaml:"properties,omitempty"`
	Perspectives map[string]string `json:"perspectives,omitempty" yaml:"perspectives,omitempty"`
}

// HasTag reports whether the element carries the given tag.
func (e *Element) HasTag(tag string) bool {
	for _, t := range e.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// Relationship is a resolved relationship between two elements.
// Implied marks relationships synthesized from lower-level ones
// (a container-to-container relationship implies one between the
// owning systems).
type Relationship struct {
	SourceID      string            `json:"source" yaml:"source"`
	DestinationID string            `json:"destination" yaml:"destination"`
	Description   string            `json:"description,omitempty" yaml:"description,omitempty"`
	Technology    string            `json:"technology,omitempty" yaml:"technology,omitempty"`
	Tags          []string          `json:"tags,omitempty" yaml:"tags,omitempty"`
	Properties    map[string]string `json:"properties,omitempty" yaml:"properties,omitempty"`
	Implied       bool              `json:"implied,omitempty" yaml:"implied,omitempty"`
}

// HasTag reports whether the relationship carries the given tag.
func (r *Relationship) HasTag(tag string) bool {
	for _, t := range r.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// AutoLayout configures automatic layout for a view.
type AutoLayout struct {
	Direction string `json:"direction" yaml:"direction"`
	RankSep   int    `json:"rankSep,omitempty" yaml:"rankSep,omitempty"`
	NodeSep   int    `json:"nodeSep,omitempty" yaml:"nodeSep,omitempty"`
}

// View is a resolved view: the element and relationship sets are fully
// populated from the view's include/exclude rules.
type View struct {
	Kind        string `json:"kind" yaml:"kind"`
	Key         string `json:"key" yaml:"key"`
	AnchorID    string `json:"anchor,omitempty" yaml:"anchor,omitempty"`
	Environment string `json:"environment,omitempty" yaml:"environment,omitempty"`
	Title       string `json:"title,omitempty" yaml:"title,omitempty"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`

	ElementIDs    []string        `json:"elements,omitempty" yaml:"elements,omitempty"`
	Relationships []*Relationship `json:"relationships,omitempty" yaml:"relationships,omitempty"`
	Animations    [][]string      `json:"animations,omitempty" yaml:"animations,omitempty"`
	AutoLayout    *AutoLayout     `json:"autoLayout,omitempty" yaml:"autoLayout,omitempty"`

	Properties map[string]string `json:"properties,omitempty" yaml:"properties,omitempty"`
}

// ContainsElement reports whether the view includes the element.
func (v *View) ContainsElement(id string) bool {
	for _, e := range v.ElementIDs {
		if e == id {
			return true
		}
	}
	return false
}

// ElementStyle styles elements matching a tag.
type ElementStyle struct {
	Tag        string            `json:"tag" yaml:"tag"`
	Shape      string            `json:"shape,omitempty" yaml:"shape,omitempty"`
	Icon       string            `json:"icon,omitempty" yaml:"icon,omitempty"`
	Width      int               `json:"width,omitempty" yaml:"width,omitempty"`
	Height     int               `json:"height,omitempty" yaml:"height,omitempty"`
	Background string            `json:"background,omitempty" yaml:"background,omitempty"`
	Stroke     string            `json:"stroke,omitempty" yaml:"stroke,omitempty"`
	Color      string            `json:"color,omitempty" yaml:"color,omitempty"`
	FontSize   int               `json:"fontSize,omitempty" yaml:"fontSize,omitempty"`
	Border     string            `json:"border,omitempty" yaml:"border,omitempty"`
	Opacity    int               `json:"opacity,omitempty" yaml:"opacity,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// RelationshipStyle styles relationships matching a tag.
type RelationshipStyle struct {
	Tag       string            `json:"tag" yaml:"tag"`
	Thickness int               `json:"thickness,omitempty" yaml:"thickness,omitempty"`
	Color     string            `json:"color,omitempty" yaml:"color,omitempty"`
	Style     string            `json:"style,omitempty" yaml:"style,omitempty"`
	Routing   string            `json:"routing,omitempty" yaml:"routing,omitempty"`
	FontSize  int               `json:"fontSize,omitempty" yaml:"fontSize,omitempty"`
	Width     int               `json:"width,omitempty" yaml:"width,omitempty"`
	Position  int               `json:"position,omitempty" yaml:"position,omitempty"`
	Opacity   int               `json:"opacity,omitempty" yaml:"opacity,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// Styles holds all style declarations, merged across the workspace and
// views sections.
type Styles struct {
	Elements      []*ElementStyle      `json:"elements,omitempty" yaml:"elements,omitempty"`
	Relationships []*RelationshipStyle `json:"relationships,omitempty" yaml:"relationships,omitempty"`
}

// Branding carries workspace branding settings.
type Branding struct {
	Logo string `json:"logo,omitempty" yaml:"logo,omitempty"`
	Font string `json:"font,omitempty" yaml:"font,omitempty"`
}

// Workspace is the fully resolved model.
type Workspace struct {
	Name        string `json:"name,omitempty" yaml:"name,omitempty"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`

	Elements      []*Element      `json:"elements,omitempty" yaml:"elements,omitempty"`
	Relationships []*Relationship `json:"relationships,omitempty" yaml:"relationships,omitempty"`
	Views         []*View         `json:"views,omitempty" yaml:"views,omitempty"`
	Styles        Styles          `json:"styles,omitempty" yaml:"styles,omitempty"`

	Themes      []string          `json:"themes,omitempty" yaml:"themes,omitempty"`
	Branding    *Branding         `json:"branding,omitempty" yaml:"branding,omitempty"`
	Terminology map[string]string `json:"terminology,omitempty" yaml:"terminology,omitempty"`

	Properties    map[string]string `json:"properties,omitempty" yaml:"properties,omitempty"`
	Configuration map[string]string `json:"configuration,omitempty" yaml:"configuration,omitempty"`

	byID map[string]*Element
}

// AddElement registers an element and indexes it by ID.
func (w *Workspace) AddElement(e *Element) {
	if w.byID == nil {
		w.byID = make(map[string]*Element)
	}
	w.Elements = append(w.Elements, e)
	if e.ID != "" {
		w.byID[e.ID] = e
	}
}

// Element returns the element with the given ID, or nil.
func (w *Workspace) Element(id string) *Element {
	return w.byID[id]
}

// ElementByName returns the first element with the given name, or nil.
// ID lookup takes priority everywhere; name lookup is the fallback the
// resolver uses for unbound references.
func (w *Workspace) ElementByName(name string) *Element {
	for _, e := range w.Elements {
		if e.Name == name {
			return e
		}
	}
	return nil
}

// ElementsOfKind returns all elements of one kind, in declaration order.
func (w *Workspace) ElementsOfKind(kind ElementKind) []*Element {
	var out []*Element
	for _, e := range w.Elements {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

// Children returns the direct children of an element, in declaration
// order.
func (w *Workspace) Children(id string) []*Element {
	var out []*Element
	for _, e := range w.Elements {
		if e.ParentID == id {
			out = append(out, e)
		}
	}
	return out
}

// View returns the view with the given key, or nil.
func (w *Workspace) View(key string) *View {
	for _, v := range w.Views {
		if v.Key == key {
			return v
		}
	}
	return nil
}

// RelationshipsInvolving returns every relationship with the element as
// source or destination.
func (w *Workspace) RelationshipsInvolving(id string) []*Relationship {
	var out []*Relationship
	for _, r := range w.Relationships {
		if r.SourceID == id || r.DestinationID == id {
			out = append(out, r)
		}
	}
	return out
}
