package parser

import (
	"fmt"
	"strings"

	"github.com/agext/levenshtein"

	"github.com/structviz/godsl/internal/lexer"
)

// maxSuggestionDistance bounds how far a misspelling may be from a
// keyword before we stop suggesting it.
const maxSuggestionDistance = 2

// suggestKeyword returns a "did you mean" fragment when text is a close
// misspelling of a DSL keyword, or "" when nothing is close enough.
// Very short inputs never suggest: nearly everything is within edit
// distance 2 of a three-letter word.
func suggestKeyword(text string) string {
	if len(text) < 4 {
		return ""
	}

	best := ""
	bestDist := maxSuggestionDistance + 1
	lower := strings.ToLower(text)

	for _, name := range lexer.KeywordNames() {
		d := levenshtein.Distance(lower, strings.ToLower(name), nil)
		if d < bestDist {
			bestDist = d
			best = name
		}
	}

	if best == "" || bestDist > maxSuggestionDistance {
		return ""
	}
	return fmt.Sprintf("did you mean %q?", best)
}

// mismatchSuggestion builds a suggestion specific to the kind of token
// mismatch, independent of parse context.
func mismatchSuggestion(expected, found lexer.TokenKind, foundText string) string {
	switch {
	case expected == lexer.TokString && found == lexer.TokIdent:
		return fmt.Sprintf("enclose %q in double quotes", foundText)
	case expected == lexer.TokString && found.IsKeyword():
		return fmt.Sprintf("%q is a keyword here; quote it to use it as a value", foundText)
	case expected == lexer.TokLBrace && found == lexer.TokEquals:
		return "element blocks open with '{', not '='"
	case expected == lexer.TokRBrace && found == lexer.TokEOF:
		return "a '}' is missing before end of input"
	case found == lexer.TokIdent:
		return suggestKeyword(foundText)
	default:
		return ""
	}
}

// contextHint returns advice tied to the current parse context, shown
// alongside the primary message.
func contextHint(ctx string) string {
	switch ctx {
	case ctxWorkspace:
		return "workspace sections are model, views, styles, themes, branding, terminology, properties and configuration"
	case ctxModel:
		return "model blocks declare people, software systems, relationships and deployment environments"
	case ctxElement:
		return "element properties often require string values in quotes"
	case ctxViews:
		return "views blocks declare systemLandscape, systemContext, container, component, dynamic, deployment and filtered views"
	case ctxView:
		return "view bodies accept include, exclude, autoLayout, animation, title and description"
	case ctxStyles, ctxStyle:
		return "styles declare 'element \"Tag\"' and 'relationship \"Tag\"' blocks with property values"
	case ctxBranding:
		return "branding accepts logo and font"
	case ctxTerminology:
		return "terminology maps element kinds to display terms"
	case ctxConfiguration:
		return "configuration holds key/value pairs"
	default:
		return ""
	}
}
