package resolver_test

import (
	"testing"

	"github.com/structviz/godsl/internal/parser"
	"github.com/structviz/godsl/internal/resolver"
	"github.com/structviz/godsl/internal/testutil"
	"github.com/structviz/godsl/internal/types"
	"github.com/structviz/godsl/workspace"
)

func resolveSource(t *testing.T, source string) (*workspace.Workspace, []types.SpanDiagnostic) {
	t.Helper()
	p := parser.New([]byte(source), nil, types.DefaultConfig())
	root := p.Parse()
	testutil.True(t, !p.Reporter().HasErrors(), "unexpected parse errors: %v", p.Diagnostics())
	return resolver.Resolve(root, nil)
}

func hasCode(diags []types.SpanDiagnostic, code string) bool {
	for _, d := range diags {
		if d.Code == code {
			return true
		}
	}
	return false
}

func TestResolveMinimalWorkspace(t *testing.T) {
	ws, diags := resolveSource(t, `workspace "W" "D" {
		model {
			u = person "User"
			s = softwareSystem "Sys"
			u -> s "Uses"
		}
		views {
			systemContext s "ctx" "title" {
				include *
			}
		}
	}`)
	testutil.Len(t, diags, 0)
	testutil.Equal(t, "W", ws.Name)

	people := ws.ElementsOfKind(workspace.KindPerson)
	testutil.Len(t, people, 1)
	testutil.Equal(t, "User", people[0].Name)
	systems := ws.ElementsOfKind(workspace.KindSoftwareSystem)
	testutil.Len(t, systems, 1)
	testutil.Equal(t, "Sys", systems[0].Name)

	testutil.Len(t, ws.Relationships, 1)
	testutil.Equal(t, "u", ws.Relationships[0].SourceID)
	testutil.Equal(t, "s", ws.Relationships[0].DestinationID)
	testutil.Equal(t, "Uses", ws.Relationships[0].Description)

	v := ws.View("ctx")
	testutil.True(t, v != nil, "view ctx not built")
	testutil.Equal(t, "title", v.Description)
	testutil.True(t, v.ContainsElement("u"), "person missing from context view")
	testutil.True(t, v.ContainsElement("s"), "anchor missing from context view")
	testutil.Len(t, v.Relationships, 1)
}

func TestResolveRelationshipByName(t *testing.T) {
	ws, diags := resolveSource(t, `workspace "W" {
		model {
			person "Web User"
			softwareSystem "Sys"
			"Web User" -> "Sys" "Uses"
		}
	}`)
	testutil.Len(t, diags, 0)
	testutil.Len(t, ws.Relationships, 1)
	testutil.Equal(t, "WebUser", ws.Relationships[0].SourceID)
	testutil.Equal(t, "Sys", ws.Relationships[0].DestinationID)
}

func TestUnresolvedRelationshipDropped(t *testing.T) {
	ws, diags := resolveSource(t, `workspace "W" {
		model {
			u = person "User"
			u -> ghost "Talks to"
		}
	}`)
	testutil.Len(t, ws.Relationships, 0)
	testutil.True(t, hasCode(diags, types.DiagUnresolvedReference),
		"expected unresolved-reference, got %v", diags)
}

func TestDefaultTags(t *testing.T) {
	ws, _ := resolveSource(t, `workspace "W" {
		model {
			u = person "User" {
				tags "VIP"
			}
		}
	}`)
	u := ws.Element("u")
	testutil.True(t, u.HasTag("Element"), "missing Element tag")
	testutil.True(t, u.HasTag("Person"), "missing Person tag")
	testutil.True(t, u.HasTag("VIP"), "missing declared tag")
}

func TestImpliedRelationship(t *testing.T) {
	ws, diags := resolveSource(t, `workspace "W" {
		model {
			a = softwareSystem "A" {
				ac = container "AC"
			}
			b = softwareSystem "B" {
				bc = container "BC"
			}
			ac -> bc "Calls"
		}
	}`)
	testutil.Len(t, diags, 0)
	testutil.Len(t, ws.Relationships, 2)
	implied := ws.Relationships[1]
	testutil.True(t, implied.Implied, "second relationship should be implied")
	testutil.Equal(t, "a", implied.SourceID)
	testutil.Equal(t, "b", implied.DestinationID)
	testutil.Equal(t, "Calls", implied.Description)
}

func TestImpliedRelationshipSkipsExisting(t *testing.T) {
	ws, _ := resolveSource(t, `workspace "W" {
		model {
			a = softwareSystem "A" {
				ac = container "AC"
			}
			b = softwareSystem "B" {
				bc = container "BC"
			}
			a -> b "Already"
			ac -> bc "Calls"
		}
	}`)
	testutil.Len(t, ws.Relationships, 2)
	for _, rel := range ws.Relationships {
		testutil.True(t, !rel.Implied, "no relationship should be implied: %+v", rel)
	}
}

func TestImpliedRelationshipsDisabled(t *testing.T) {
	ws, _ := resolveSource(t, `workspace "W" {
		model {
			!impliedRelationships false
			a = softwareSystem "A" {
				ac = container "AC"
			}
			b = softwareSystem "B" {
				bc = container "BC"
			}
			ac -> bc "Calls"
		}
	}`)
	testutil.Len(t, ws.Relationships, 1)
}

func TestExcludeWinsOverInclude(t *testing.T) {
	ws, _ := resolveSource(t, `workspace "W" {
		model {
			u = person "User" {
				tags "Keep,Drop"
			}
			s = softwareSystem "Sys"
			u -> s "Uses"
		}
		views {
			systemContext s "ctx" {
				include "Keep"
				exclude "Drop"
			}
		}
	}`)
	v := ws.View("ctx")
	testutil.True(t, v != nil, "view not built")
	testutil.True(t, !v.ContainsElement("u"), "exclude must veto include")
	testutil.True(t, v.ContainsElement("s"), "anchor must survive exclusion")
}

func TestDefaultIncludeRelatedToAnchor(t *testing.T) {
	ws, _ := resolveSource(t, `workspace "W" {
		model {
			u = person "User"
			s = softwareSystem "Sys"
			x = softwareSystem "Unrelated"
			u -> s "Uses"
		}
		views {
			systemContext s "ctx"
		}
	}`)
	v := ws.View("ctx")
	testutil.True(t, v != nil, "view not built")
	testutil.True(t, v.ContainsElement("u"), "related person missing")
	testutil.True(t, !v.ContainsElement("x"), "unrelated system must stay out")
}

func TestWildcardIncludeLimitedToRelated(t *testing.T) {
	ws, _ := resolveSource(t, `workspace "W" {
		model {
			u = person "User"
			s = softwareSystem "Sys"
			x = softwareSystem "Unrelated"
			u -> s "Uses"
		}
		views {
			systemContext s "ctx" {
				include *
			}
		}
	}`)
	v := ws.View("ctx")
	testutil.True(t, v.ContainsElement("u"), "related person missing")
	testutil.True(t, !v.ContainsElement("x"), "wildcard must not pull unrelated systems")
}

func TestContainerView(t *testing.T) {
	ws, _ := resolveSource(t, `workspace "W" {
		model {
			u = person "User"
			s = softwareSystem "Sys" {
				web = container "Web"
				db = container "DB"
			}
			u -> web "Uses"
		}
		views {
			container s "cv" {
				include *
			}
		}
	}`)
	v := ws.View("cv")
	testutil.True(t, v != nil, "view not built")
	testutil.True(t, v.ContainsElement("web"), "container missing")
	testutil.True(t, v.ContainsElement("db"), "container missing")
	testutil.True(t, v.ContainsElement("u"), "related person missing")
	testutil.Equal(t, "s", v.AnchorID)
}

func TestComponentView(t *testing.T) {
	ws, _ := resolveSource(t, `workspace "W" {
		model {
			s = softwareSystem "Sys" {
				web = container "Web" {
					api = component "API"
					auth = component "Auth"
				}
			}
		}
		views {
			component web "comp" {
				include *
			}
		}
	}`)
	v := ws.View("comp")
	testutil.True(t, v != nil, "view not built")
	testutil.True(t, v.ContainsElement("api"), "component missing")
	testutil.True(t, v.ContainsElement("auth"), "component missing")
}

func TestDuplicateViewKeyReported(t *testing.T) {
	ws, diags := resolveSource(t, `workspace "W" {
		model {
			s = softwareSystem "Sys"
		}
		views {
			systemLandscape "k"
			systemLandscape "k"
		}
	}`)
	testutil.Len(t, ws.Views, 1)
	testutil.True(t, hasCode(diags, types.DiagDuplicateViewKey),
		"expected duplicate-view-key, got %v", diags)
}

func TestViewKeyGeneratedWhenOmitted(t *testing.T) {
	ws, _ := resolveSource(t, `workspace "W" {
		model {
			s = softwareSystem "Sys"
		}
		views {
			systemLandscape
		}
	}`)
	testutil.Len(t, ws.Views, 1)
	testutil.Equal(t, "systemLandscape-001", ws.Views[0].Key)
}

func TestMissingViewAnchorDropsView(t *testing.T) {
	ws, diags := resolveSource(t, `workspace "W" {
		model {
			s = softwareSystem "Sys"
		}
		views {
			systemContext ghost "ctx"
		}
	}`)
	testutil.Len(t, ws.Views, 0)
	testutil.True(t, hasCode(diags, types.DiagUnresolvedReference),
		"expected unresolved-reference, got %v", diags)
}

func TestFilteredView(t *testing.T) {
	ws, diags := resolveSource(t, `workspace "W" {
		model {
			a = softwareSystem "A" {
				tags "External"
			}
			b = softwareSystem "B"
		}
		views {
			systemLandscape "all"
			filtered all include "External" "ext"
		}
	}`)
	testutil.Len(t, diags, 0)
	v := ws.View("ext")
	testutil.True(t, v != nil, "filtered view not built")
	testutil.True(t, v.ContainsElement("a"), "tagged element missing")
	testutil.True(t, !v.ContainsElement("b"), "untagged element must be filtered out")
}

func TestFilteredViewExcludeMode(t *testing.T) {
	ws, _ := resolveSource(t, `workspace "W" {
		model {
			a = softwareSystem "A" {
				tags "External"
			}
			b = softwareSystem "B"
		}
		views {
			systemLandscape "all"
			filtered all exclude "External" "internal"
		}
	}`)
	v := ws.View("internal")
	testutil.True(t, !v.ContainsElement("a"), "excluded tag must be filtered out")
	testutil.True(t, v.ContainsElement("b"), "untagged element missing")
}

func TestFilteredViewUnknownBase(t *testing.T) {
	ws, diags := resolveSource(t, `workspace "W" {
		model {
			s = softwareSystem "Sys"
		}
		views {
			filtered ghost include "X" "f"
		}
	}`)
	testutil.Len(t, ws.Views, 0)
	testutil.True(t, hasCode(diags, types.DiagUnresolvedReference),
		"expected unresolved-reference, got %v", diags)
}

func TestDynamicViewSteps(t *testing.T) {
	ws, diags := resolveSource(t, `workspace "W" {
		model {
			u = person "User"
			s = softwareSystem "Sys"
			u -> s "Uses"
		}
		views {
			dynamic * "dyn" {
				u -> s "Signs in"
				s -> u "Responds"
			}
		}
	}`)
	testutil.Len(t, diags, 0)
	v := ws.View("dyn")
	testutil.True(t, v != nil, "dynamic view not built")
	testutil.Len(t, v.Relationships, 2)
	testutil.Equal(t, "Signs in", v.Relationships[0].Description)
	testutil.Equal(t, "Responds", v.Relationships[1].Description)
	testutil.True(t, v.ContainsElement("u"), "step source missing")
	testutil.True(t, v.ContainsElement("s"), "step destination missing")
}

func TestDeploymentViewAndContainerInstance(t *testing.T) {
	ws, diags := resolveSource(t, `workspace "W" {
		model {
			s = softwareSystem "Sys" {
				web = container "Web"
			}
			deploymentEnvironment "Production" {
				aws = deploymentNode "AWS" {
					containerInstance web
				}
			}
		}
		views {
			deployment * "Production" "deploy"
		}
	}`)
	testutil.Len(t, diags, 0)

	inst := ws.Element("web.Production")
	testutil.True(t, inst != nil, "container instance not registered")
	testutil.Equal(t, workspace.KindContainerInstance, inst.Kind)
	testutil.Equal(t, "Web", inst.Name)
	testutil.Equal(t, "aws", inst.ParentID)
	testutil.Equal(t, "web", inst.Properties["container"])

	v := ws.View("deploy")
	testutil.True(t, v != nil, "deployment view not built")
	testutil.True(t, v.ContainsElement("aws"), "deployment node missing")
	testutil.True(t, v.ContainsElement("web.Production"), "instance missing")
	testutil.True(t, !v.ContainsElement("web"), "model container must stay out of deployment view")
}

func TestAnimationStepsResolved(t *testing.T) {
	ws, _ := resolveSource(t, `workspace "W" {
		model {
			u = person "User"
			s = softwareSystem "Sys"
			u -> s "Uses"
		}
		views {
			systemContext s "ctx" {
				include *
				animation {
					u
				}
				animation {
					s
				}
			}
		}
	}`)
	v := ws.View("ctx")
	testutil.Len(t, v.Animations, 2)
	testutil.SliceEqual(t, []string{"u"}, v.Animations[0])
	testutil.SliceEqual(t, []string{"s"}, v.Animations[1])
}

func TestElementPropertyOverride(t *testing.T) {
	ws, diags := resolveSource(t, `workspace "W" {
		model {
			s = softwareSystem "Sys"
		}
		properties {
			"element.s.owner" "platform"
		}
	}`)
	testutil.Len(t, diags, 0)
	testutil.Equal(t, "platform", ws.Element("s").Properties["owner"])
	_, still := ws.Properties["element.s.owner"]
	testutil.True(t, !still, "applied override must leave the bag")
}

func TestRelationshipPropertyOverride(t *testing.T) {
	ws, diags := resolveSource(t, `workspace "W" {
		model {
			u = person "User"
			s = softwareSystem "Sys"
			u -> s "Uses"
		}
		properties {
			"relationship.u.s.channel" "https"
		}
	}`)
	testutil.Len(t, diags, 0)
	testutil.Equal(t, "https", ws.Relationships[0].Properties["channel"])
}

func TestMalformedOverrideKey(t *testing.T) {
	ws, diags := resolveSource(t, `workspace "W" {
		model {
			s = softwareSystem "Sys"
		}
		properties {
			"element.bad" "x"
		}
	}`)
	testutil.True(t, hasCode(diags, types.DiagBadPropertyKey),
		"expected bad-property-key, got %v", diags)
	testutil.Equal(t, "x", ws.Properties["element.bad"])
}

func TestOverrideUnknownElementWarns(t *testing.T) {
	_, diags := resolveSource(t, `workspace "W" {
		model {
			s = softwareSystem "Sys"
		}
		properties {
			"element.ghost.owner" "nobody"
		}
	}`)
	testutil.True(t, hasCode(diags, types.DiagUnresolvedReference),
		"expected unresolved-reference, got %v", diags)
	for _, d := range diags {
		testutil.Equal(t, types.SeverityWarning, d.Severity)
	}
}

func TestStylesAndThemesCarriedOver(t *testing.T) {
	ws, _ := resolveSource(t, `workspace "W" {
		model {
			s = softwareSystem "Sys"
		}
		views {
			styles {
				element "Person" {
					shape person
				}
			}
		}
		themes "https://example.com/theme.json"
	}`)
	testutil.Len(t, ws.Styles.Elements, 1)
	testutil.Equal(t, "Person", ws.Styles.Elements[0].Tag)
	testutil.SliceEqual(t, []string{"https://example.com/theme.json"}, ws.Themes)
}
