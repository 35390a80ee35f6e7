package lexer

import (
	"sort"
	"strings"
)

// keywords is the sorted keyword table for binary search. Lookup is
// case-insensitive, so entries are stored lowercase.
// IMPORTANT: This slice MUST remain sorted alphabetically by text.
var keywords = []struct {
	text string
	kind TokenKind
}{
	{"animation", TokKwAnimation},
	{"autolayout", TokKwAutoLayout},
	{"branding", TokKwBranding},
	{"component", TokKwComponent},
	{"configuration", TokKwConfiguration},
	{"container", TokKwContainer},
	{"containerinstance", TokKwContainerInstance},
	{"deployment", TokKwDeployment},
	{"deploymentenvironment", TokKwDeploymentEnvironment},
	{"deploymentnode", TokKwDeploymentNode},
	{"description", TokKwDescription},
	{"dynamic", TokKwDynamic},
	{"element", TokKwElement},
	{"enterprise", TokKwEnterprise},
	{"exclude", TokKwExclude},
	{"filtered", TokKwFiltered},
	{"font", TokKwFont},
	{"group", TokKwGroup},
	{"include", TokKwInclude},
	{"infrastructurenode", TokKwInfrastructureNode},
	{"location", TokKwLocation},
	{"logo", TokKwLogo},
	{"model", TokKwModel},
	{"person", TokKwPerson},
	{"perspectives", TokKwPerspectives},
	{"properties", TokKwProperties},
	{"relationship", TokKwRelationship},
	{"softwaresystem", TokKwSoftwareSystem},
	{"styles", TokKwStyles},
	{"systemcontext", TokKwSystemContext},
	{"systemlandscape", TokKwSystemLandscape},
	{"tags", TokKwTags},
	{"technology", TokKwTechnology},
	{"terminology", TokKwTerminology},
	{"theme", TokKwTheme},
	{"themes", TokKwThemes},
	{"title", TokKwTitle},
	{"url", TokKwURL},
	{"views", TokKwViews},
	{"workspace", TokKwWorkspace},
}

// LookupKeyword returns the TokenKind for a keyword, or (TokError, false)
// if not found. Keywords are case-insensitive per the DSL grammar.
func LookupKeyword(text string) (TokenKind, bool) {
	lower := strings.ToLower(text)
	idx := sort.Search(len(keywords), func(i int) bool {
		return keywords[i].text >= lower
	})
	if idx < len(keywords) && keywords[idx].text == lower {
		return keywords[idx].kind, true
	}
	return TokError, false
}

// KeywordNames returns all keyword texts in their canonical (camelCase)
// spelling, for use by the suggestion engine.
func KeywordNames() []string {
	names := make([]string, len(keywords))
	for i, kw := range keywords {
		names[i] = kw.kind.Name()
	}
	return names
}
