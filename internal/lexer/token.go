// Package lexer provides tokenization for Structurizr DSL source text.
package lexer

import (
	"github.com/structviz/godsl/internal/types"
)

// Token is a token with kind and source span. The lexeme is recovered
// from the source text via the span; tokens are never mutated.
type Token struct {
	Kind TokenKind
	Span types.Span
}

// NewToken creates a new token.
func NewToken(kind TokenKind, span types.Span) Token {
	return Token{Kind: kind, Span: span}
}

// TokenKind identifies a token type.
//
//go:generate stringer -type=TokenKind
type TokenKind int

const (
	// === Special ===

	// TokError is a lexical error.
	TokError TokenKind = iota
	// TokEOF is end of input.
	TokEOF

	// === Identifiers and literals ===

	// TokIdent is an identifier (variable names, unquoted references).
	TokIdent
	// TokString is a double-quoted string literal.
	TokString
	// TokInteger is a decimal integer literal.
	TokInteger
	// TokDouble is a decimal floating-point literal.
	TokDouble
	// TokBoolean is 'true' or 'false'.
	TokBoolean
	// TokDirective is a bang directive ('!include', '!identifiers', ...).
	TokDirective

	// === Punctuation ===

	// TokLBrace is '{'.
	TokLBrace
	// TokRBrace is '}'.
	TokRBrace
	// TokEquals is '='.
	TokEquals
	// TokArrow is '->'.
	TokArrow
	// TokComma is ','.
	TokComma
	// TokColon is ':'.
	TokColon
	// TokSemicolon is ';'.
	TokSemicolon
	// TokStar is '*' (wildcard in include/exclude expressions).
	TokStar

	// === Structural keywords ===

	// TokKwWorkspace is 'workspace'.
	TokKwWorkspace
	// TokKwModel is 'model'.
	TokKwModel
	// TokKwViews is 'views'.
	TokKwViews
	// TokKwStyles is 'styles'.
	TokKwStyles
	// TokKwTheme is 'theme'.
	TokKwTheme
	// TokKwThemes is 'themes'.
	TokKwThemes
	// TokKwBranding is 'branding'.
	TokKwBranding
	// TokKwTerminology is 'terminology'.
	TokKwTerminology
	// TokKwConfiguration is 'configuration'.
	TokKwConfiguration
	// TokKwProperties is 'properties'.
	TokKwProperties

	// === Element keywords ===

	// TokKwPerson is 'person'.
	TokKwPerson
	// TokKwSoftwareSystem is 'softwareSystem'.
	TokKwSoftwareSystem
	// TokKwContainer is 'container' (element or view, by context).
	TokKwContainer
	// TokKwComponent is 'component' (element or view, by context).
	TokKwComponent
	// TokKwEnterprise is 'enterprise'.
	TokKwEnterprise
	// TokKwGroup is 'group'.
	TokKwGroup
	// TokKwRelationship is 'relationship'.
	TokKwRelationship
	// TokKwDeploymentEnvironment is 'deploymentEnvironment'.
	TokKwDeploymentEnvironment
	// TokKwDeploymentNode is 'deploymentNode'.
	TokKwDeploymentNode
	// TokKwInfrastructureNode is 'infrastructureNode'.
	TokKwInfrastructureNode
	// TokKwContainerInstance is 'containerInstance'.
	TokKwContainerInstance

	// === View keywords ===

	// TokKwSystemLandscape is 'systemLandscape'.
	TokKwSystemLandscape
	// TokKwSystemContext is 'systemContext'.
	TokKwSystemContext
	// TokKwDynamic is 'dynamic'.
	TokKwDynamic
	// TokKwDeployment is 'deployment'.
	TokKwDeployment
	// TokKwFiltered is 'filtered'.
	TokKwFiltered

	// === View body keywords ===

	// TokKwInclude is 'include' (view inclusion rule).
	TokKwInclude
	// TokKwExclude is 'exclude'.
	TokKwExclude
	// TokKwAutoLayout is 'autoLayout'.
	TokKwAutoLayout
	// TokKwAnimation is 'animation'.
	TokKwAnimation
	// TokKwTitle is 'title'.
	TokKwTitle
	// TokKwDescription is 'description'.
	TokKwDescription

	// === Property keywords ===

	// TokKwTechnology is 'technology'.
	TokKwTechnology
	// TokKwTags is 'tags'.
	TokKwTags
	// TokKwURL is 'url'.
	TokKwURL
	// TokKwLocation is 'location'.
	TokKwLocation
	// TokKwPerspectives is 'perspectives'.
	TokKwPerspectives

	// === Style keywords ===

	// TokKwElement is 'element' (style selector).
	TokKwElement
	// TokKwLogo is 'logo'.
	TokKwLogo
	// TokKwFont is 'font'.
	TokKwFont
)

// Name returns a stable display name for this token kind, used in
// diagnostics ("expected STRING, found IDENTIFIER").
func (k TokenKind) Name() string {
	switch k {
	case TokError:
		return "ERROR"
	case TokEOF:
		return "EOF"
	case TokIdent:
		return "IDENTIFIER"
	case TokString:
		return "STRING"
	case TokInteger:
		return "INTEGER"
	case TokDouble:
		return "DOUBLE"
	case TokBoolean:
		return "BOOLEAN"
	case TokDirective:
		return "DIRECTIVE"
	case TokLBrace:
		return "LBRACE"
	case TokRBrace:
		return "RBRACE"
	case TokEquals:
		return "EQUALS"
	case TokArrow:
		return "ARROW"
	case TokComma:
		return "COMMA"
	case TokColon:
		return "COLON"
	case TokSemicolon:
		return "SEMICOLON"
	case TokStar:
		return "STAR"
	case TokKwWorkspace:
		return "workspace"
	case TokKwModel:
		return "model"
	case TokKwViews:
		return "views"
	case TokKwStyles:
		return "styles"
	case TokKwTheme:
		return "theme"
	case TokKwThemes:
		return "themes"
	case TokKwBranding:
		return "branding"
	case TokKwTerminology:
		return "terminology"
	case TokKwConfiguration:
		return "configuration"
	case TokKwProperties:
		return "properties"
	case TokKwPerson:
		return "person"
	case TokKwSoftwareSystem:
		return "softwareSystem"
	case TokKwContainer:
		return "container"
	case TokKwComponent:
		return "component"
	case TokKwEnterprise:
		return "enterprise"
	case TokKwGroup:
		return "group"
	case TokKwRelationship:
		return "relationship"
	case TokKwDeploymentEnvironment:
		return "deploymentEnvironment"
	case TokKwDeploymentNode:
		return "deploymentNode"
	case TokKwInfrastructureNode:
		return "infrastructureNode"
	case TokKwContainerInstance:
		return "containerInstance"
	case TokKwSystemLandscape:
		return "systemLandscape"
	case TokKwSystemContext:
		return "systemContext"
	case TokKwDynamic:
		return "dynamic"
	case TokKwDeployment:
		return "deployment"
	case TokKwFiltered:
		return "filtered"
	case TokKwInclude:
		return "include"
	case TokKwExclude:
		return "exclude"
	case TokKwAutoLayout:
		return "autoLayout"
	case TokKwAnimation:
		return "animation"
	case TokKwTitle:
		return "title"
	case TokKwDescription:
		return "description"
	case TokKwTechnology:
		return "technology"
	case TokKwTags:
		return "tags"
	case TokKwURL:
		return "url"
	case TokKwLocation:
		return "location"
	case TokKwPerspectives:
		return "perspectives"
	case TokKwElement:
		return "element"
	case TokKwLogo:
		return "logo"
	case TokKwFont:
		return "font"
	default:
		return "UNKNOWN"
	}
}

// IsKeyword returns true if this token is a DSL keyword.
func (k TokenKind) IsKeyword() bool {
	return k >= TokKwWorkspace && k <= TokKwFont
}

// IsSectionKeyword returns true if this token opens a workspace-level section.
func (k TokenKind) IsSectionKeyword() bool {
	switch k {
	case TokKwModel, TokKwViews, TokKwStyles, TokKwTheme, TokKwThemes,
		TokKwBranding, TokKwTerminology, TokKwConfiguration, TokKwProperties:
		return true
	default:
		return false
	}
}

// IsElementKeyword returns true if this token declares a model element.
func (k TokenKind) IsElementKeyword() bool {
	switch k {
	case TokKwPerson, TokKwSoftwareSystem, TokKwContainer, TokKwComponent,
		TokKwEnterprise, TokKwGroup, TokKwDeploymentEnvironment,
		TokKwDeploymentNode, TokKwInfrastructureNode, TokKwContainerInstance:
		return true
	default:
		return false
	}
}

// IsViewKeyword returns true if this token declares a view.
// container and component double as element keywords; the parser
// disambiguates by context.
func (k TokenKind) IsViewKeyword() bool {
	switch k {
	case TokKwSystemLandscape, TokKwSystemContext, TokKwContainer,
		TokKwComponent, TokKwDynamic, TokKwDeployment, TokKwFiltered:
		return true
	default:
		return false
	}
}

// IsViewBodyKeyword returns true if this token is valid inside a view body.
func (k TokenKind) IsViewBodyKeyword() bool {
	switch k {
	case TokKwInclude, TokKwExclude, TokKwAutoLayout, TokKwAnimation,
		TokKwTitle, TokKwDescription, TokKwProperties:
		return true
	default:
		return false
	}
}

// IsNameLike returns true if the token can stand in for a string value
// (identifier-for-string fallback and keyword-as-name tolerance).
func (k TokenKind) IsNameLike() bool {
	return k == TokIdent || k == TokString || k.IsKeyword()
}
