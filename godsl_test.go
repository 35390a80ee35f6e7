package godsl_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/structviz/godsl"
	"github.com/structviz/godsl/internal/testutil"
	"github.com/structviz/godsl/workspace"
)

const minimalSource = `workspace "W" "D" {
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
}`

func TestParseMinimalRoundTrip(t *testing.T) {
	res := godsl.ParseString(minimalSource)
	testutil.True(t, !res.HasErrors(), "unexpected errors: %v", res.Diagnostics)

	ws := res.Workspace
	people := ws.ElementsOfKind(workspace.KindPerson)
	testutil.Len(t, people, 1)
	testutil.Equal(t, "User", people[0].Name)
	systems := ws.ElementsOfKind(workspace.KindSoftwareSystem)
	testutil.Len(t, systems, 1)
	testutil.Equal(t, "Sys", systems[0].Name)

	testutil.Len(t, ws.Relationships, 1)
	rel := ws.Relationships[0]
	testutil.Equal(t, people[0].ID, rel.SourceID)
	testutil.Equal(t, systems[0].ID, rel.DestinationID)
	testutil.Equal(t, "Uses", rel.Description)

	v := ws.View("ctx")
	testutil.True(t, v != nil, "system context view missing")
	testutil.Equal(t, "systemContext", v.Kind)
}

func TestIDDerivationIdempotent(t *testing.T) {
	source := `workspace "W" {
		model {
			softwareSystem "Payment Gateway Service"
		}
	}`
	first := godsl.ParseString(source)
	second := godsl.ParseString(source)

	a := first.Workspace.ElementsOfKind(workspace.KindSoftwareSystem)
	b := second.Workspace.ElementsOfKind(workspace.KindSoftwareSystem)
	testutil.Len(t, a, 1)
	testutil.Equal(t, "PaymentGatewayService", a[0].ID)
	testutil.Equal(t, a[0].ID, b[0].ID)
}

func TestMissingBraceTerminates(t *testing.T) {
	res := godsl.ParseString(`workspace "W" {
		model {
			u = person "User"
		views {
			systemLandscape "k"
		}
	}`)
	testutil.True(t, res.Workspace != nil, "workspace must not be nil")
	testutil.True(t, res.HasErrors(), "missing brace must produce an error")
}

func TestIncludeCycleReported(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.dsl")
	b := filepath.Join(dir, "b.dsl")
	writeFile(t, a, "!include b.dsl\nworkspace \"W\" {\n\tmodel {\n\t}\n}\n")
	writeFile(t, b, "!include a.dsl\n")

	res, err := godsl.ParseFile(a)
	testutil.NoError(t, err)

	var cycle *workspace.Diagnostic
	for i, d := range res.Diagnostics {
		if d.Code == "circular-include" {
			cycle = &res.Diagnostics[i]
		}
	}
	testutil.True(t, cycle != nil, "expected a circular-include diagnostic, got %v", res.Diagnostics)
	testutil.Contains(t, cycle.Message, "a.dsl")
	testutil.Contains(t, cycle.Message, "b.dsl")
}

func TestMissingQuotesIsWarning(t *testing.T) {
	res := godsl.ParseString(`workspace "W" {
		model {
			person User
		}
	}`)
	testutil.True(t, !res.HasErrors(), "bare identifier name must not be an error: %v", res.Diagnostics)

	found := false
	for _, d := range res.Diagnostics {
		if d.Code == "missing-quotes" {
			found = true
			testutil.Equal(t, workspace.SeverityWarning, d.Severity)
		}
	}
	testutil.True(t, found, "expected a missing-quotes warning")

	people := res.Workspace.ElementsOfKind(workspace.KindPerson)
	testutil.Len(t, people, 1)
	testutil.Equal(t, "User", people[0].Name)
}

func TestExcludeWinsOverInclude(t *testing.T) {
	res := godsl.ParseString(`workspace "W" {
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
	v := res.Workspace.View("ctx")
	testutil.True(t, v != nil, "view missing")
	testutil.True(t, !v.ContainsElement("u"), "exclude must win over include")
}

func TestErrorBudgetAborts(t *testing.T) {
	res := godsl.ParseString("workspace \"W\" {\n" + strings.Repeat("@\n", 40) + "}")
	testutil.True(t, res.Placeholder, "expected a placeholder workspace")
	testutil.True(t, res.HasFatalErrors(), "expected a fatal diagnostic")
}

func TestIncludeExpansion(t *testing.T) {
	dir := t.TempDir()
	main := filepath.Join(dir, "main.dsl")
	writeFile(t, main, `workspace "W" {
	model {
		!include people.dsl
		s = softwareSystem "Sys"
	}
}`)
	writeFile(t, filepath.Join(dir, "people.dsl"), "u = person \"User\"\n")

	res, err := godsl.ParseFile(main)
	testutil.NoError(t, err)
	testutil.True(t, !res.HasErrors(), "unexpected errors: %v", res.Diagnostics)
	testutil.Len(t, res.Workspace.ElementsOfKind(workspace.KindPerson), 1)
}

func TestParseStringIncludesAnchorAtSourceRoot(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "people.dsl"), "u = person \"User\"\n")

	res := godsl.ParseString(`workspace "W" {
	model {
		!include people.dsl
		s = softwareSystem "Sys"
	}
}`, godsl.WithSource(godsl.Dir(dir)))
	testutil.True(t, !res.HasErrors(), "unexpected errors: %v", res.Diagnostics)
	testutil.Len(t, res.Workspace.ElementsOfKind(workspace.KindPerson), 1)
}

func TestParseStringNestedIncludeRelativeToIncludingFile(t *testing.T) {
	dir := t.TempDir()
	testutil.NoError(t, os.MkdirAll(filepath.Join(dir, "shared"), 0o755))
	writeFile(t, filepath.Join(dir, "shared", "people.dsl"), "!include extra.dsl\n")
	writeFile(t, filepath.Join(dir, "shared", "extra.dsl"), "u = person \"User\"\n")

	res := godsl.ParseString(`workspace "W" {
	model {
		!include shared/people.dsl
	}
}`, godsl.WithSource(godsl.Dir(dir)))
	testutil.True(t, !res.HasErrors(), "unexpected errors: %v", res.Diagnostics)
	testutil.Len(t, res.Workspace.ElementsOfKind(workspace.KindPerson), 1)
}

func TestIncludeWithoutSourceDiagnosed(t *testing.T) {
	res := godsl.ParseString(`workspace "W" {
	model {
		!include people.dsl
	}
}`)
	found := false
	for _, d := range res.Diagnostics {
		if d.Code == "include-not-found" {
			found = true
		}
	}
	testutil.True(t, found, "expected include-not-found without a source, got %v", res.Diagnostics)
}

func TestWithIgnoreSuppressesCodes(t *testing.T) {
	res := godsl.ParseString(`workspace "W" {
		model {
			person User
		}
	}`, godsl.WithIgnore("missing-*"))
	for _, d := range res.Diagnostics {
		testutil.True(t, d.Code != "missing-quotes", "ignored code leaked: %v", d)
	}
}

func TestWithMinSeverityDropsWarnings(t *testing.T) {
	res := godsl.ParseString(`workspace "W" {
		model {
			person User
		}
	}`, godsl.WithMinSeverity(workspace.SeverityError))
	testutil.Len(t, res.Diagnostics, 0)
}

func TestWithMaxErrors(t *testing.T) {
	res := godsl.ParseString("workspace \"W\" {\n@ @ @ @ @\n}", godsl.WithMaxErrors(3))
	testutil.True(t, res.HasFatalErrors(), "expected budget abort at 3 errors")
}

func TestDiagnosticsOrderedByPosition(t *testing.T) {
	res := godsl.ParseString(`workspace "W" {
		model {
			person User
			softwareSystem Sys
		}
	}`)
	for i := 1; i < len(res.Diagnostics); i++ {
		prev, cur := res.Diagnostics[i-1], res.Diagnostics[i]
		testutil.True(t, prev.Line <= cur.Line, "diagnostics out of order: %v before %v", prev, cur)
	}
}

func TestParseFileMissing(t *testing.T) {
	_, err := godsl.ParseFile(filepath.Join(t.TempDir(), "absent.dsl"))
	testutil.Error(t, err)
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	testutil.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}
