package include

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/structviz/godsl/internal/testutil"
	"github.com/structviz/godsl/internal/types"
)

func writeFiles(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		path := filepath.Join(dir, name)
		testutil.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		testutil.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return dir
}

func TestExpandSingleInclude(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"people.dsl": `u = person "User"`,
	})

	r := NewResolver(Dir(dir), nil)
	out, diags := r.Expand("", []byte("workspace {\n\tmodel {\n\t\t!include people.dsl\n\t}\n}\n"))

	testutil.Len(t, diags, 0)
	testutil.True(t, strings.Contains(string(out), `u = person "User"`))
	testutil.True(t, !strings.Contains(string(out), "!include"))
}

func TestExpandNestedIncludes(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"model.dsl":          "!include shared/systems.dsl\n",
		"shared/systems.dsl": `s = softwareSystem "Sys"`,
	})

	r := NewResolver(Dir(dir), nil)
	out, diags := r.Expand("", []byte("workspace {\n\tmodel {\n\t\t!include model.dsl\n\t}\n}\n"))

	testutil.Len(t, diags, 0)
	testutil.True(t, strings.Contains(string(out), `softwareSystem "Sys"`))
}

func TestExpandRelativeToIncludingFile(t *testing.T) {
	// sub/a.dsl includes b.dsl, which lives next to it, not at the root.
	dir := writeFiles(t, map[string]string{
		"sub/a.dsl": "!include b.dsl\n",
		"sub/b.dsl": `p = person "Nested"`,
	})

	r := NewResolver(Dir(dir), nil)
	out, diags := r.Expand("", []byte("!include sub/a.dsl\n"))

	testutil.Len(t, diags, 0)
	testutil.True(t, strings.Contains(string(out), `person "Nested"`))
}

func TestExpandMissingFile(t *testing.T) {
	dir := writeFiles(t, nil)

	r := NewResolver(Dir(dir), nil)
	out, diags := r.Expand("", []byte("workspace {\n\t!include nope.dsl\n}\n"))

	testutil.Len(t, diags, 1)
	testutil.Equal(t, diags[0].Code, types.DiagIncludeNotFound)
	// The unresolvable directive is removed from the output.
	testutil.True(t, !strings.Contains(string(out), "!include"))
}

func TestExpandNoSourceConfigured(t *testing.T) {
	r := NewResolver(nil, nil)
	_, diags := r.Expand("", []byte("!include anything.dsl\n"))

	testutil.Len(t, diags, 1)
	testutil.Equal(t, diags[0].Code, types.DiagIncludeNotFound)
	testutil.True(t, strings.Contains(diags[0].Message, ErrNoSource.Error()))
}

func TestExpandSelfIncludeTerminates(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"loop.dsl": "!include loop.dsl\np = person \"Looper\"\n",
	})

	r := NewResolver(Dir(dir), nil)
	out, diags := r.Expand("", []byte("!include loop.dsl\n"))

	codes := make([]string, 0, len(diags))
	for _, d := range diags {
		codes = append(codes, d.Code)
	}
	testutil.ContainsElement(t, codes, types.DiagCircularInclude)
	// Content still appears exactly once.
	testutil.Equal(t, strings.Count(string(out), `person "Looper"`), 1)
}

func TestExpandMutualIncludeTerminates(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"a.dsl": "!include b.dsl\nfrom_a = person \"A\"\n",
		"b.dsl": "!include a.dsl\nfrom_b = person \"B\"\n",
	})

	r := NewResolver(Dir(dir), nil)
	out, diags := r.Expand("", []byte("!include a.dsl\n"))

	found := false
	for _, d := range diags {
		if d.Code == types.DiagCircularInclude {
			found = true
			testutil.True(t, strings.Contains(d.Message, "a.dsl"))
			testutil.True(t, strings.Contains(d.Message, "b.dsl"))
		}
	}
	testutil.True(t, found)
	testutil.Equal(t, strings.Count(string(out), `person "A"`), 1)
	testutil.Equal(t, strings.Count(string(out), `person "B"`), 1)
}

func TestExpandDeduplicatesSharedInclude(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"a.dsl":      "!include shared.dsl\n",
		"b.dsl":      "!include shared.dsl\n",
		"shared.dsl": `common = person "Common"`,
	})

	r := NewResolver(Dir(dir), nil)
	out, diags := r.Expand("", []byte("!include a.dsl\n!include b.dsl\n"))

	testutil.Len(t, diags, 0)
	testutil.Equal(t, strings.Count(string(out), `person "Common"`), 1)
}

func TestExpandNoIncludesPassthrough(t *testing.T) {
	source := "workspace \"X\" {\n\tmodel {\n\t}\n}\n"
	r := NewResolver(nil, nil)
	out, diags := r.Expand("", []byte(source))

	testutil.Len(t, diags, 0)
	testutil.Equal(t, string(out), source)
}

func TestFSSource(t *testing.T) {
	fsys := fstest.MapFS{
		"workspace.dsl":     {Data: []byte("!include model/people.dsl\n")},
		"model/people.dsl":  {Data: []byte("u = person \"User\"\n")},
		"model/ignored.dsl": {Data: []byte("never included\n")},
	}

	r := NewResolver(FS("embedded", fsys), nil)
	out, diags := r.Expand("", []byte("!include workspace.dsl\n"))

	testutil.Len(t, diags, 0)
	testutil.True(t, strings.Contains(string(out), `person "User"`))
	testutil.True(t, !strings.Contains(string(out), "never included"))
}

func TestMultiSourceFirstHitWins(t *testing.T) {
	primary := fstest.MapFS{
		"x.dsl": {Data: []byte("from_primary = person \"Primary\"\n")},
	}
	fallback := fstest.MapFS{
		"x.dsl": {Data: []byte("from_fallback = person \"Fallback\"\n")},
		"y.dsl": {Data: []byte("only_here = person \"Only\"\n")},
	}

	src := Multi(FS("primary", primary), FS("fallback", fallback))
	r := NewResolver(src, nil)
	out, diags := r.Expand("", []byte("!include x.dsl\n!include y.dsl\n"))

	testutil.Len(t, diags, 0)
	testutil.True(t, strings.Contains(string(out), `person "Primary"`))
	testutil.True(t, !strings.Contains(string(out), `person "Fallback"`))
	testutil.True(t, strings.Contains(string(out), `person "Only"`))
}

func TestGraphRecordsEdges(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"a.dsl": "x = person \"X\"\n",
	})

	r := NewResolver(Dir(dir), nil)
	r.Expand("", []byte("!include a.dsl\n"))

	g := r.Graph()
	testutil.Equal(t, g.Len(), 2)
	testutil.True(t, g.HasNode("<input>"))
	testutil.Len(t, g.Includes("<input>"), 1)
}
