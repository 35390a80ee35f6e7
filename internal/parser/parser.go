// Package parser implements a recursive-descent parser for the
// Structurizr DSL with panic-mode error recovery.
//
// The parser never returns an error: it always produces a workspace
// node (a placeholder when the error budget aborts the parse) plus a
// list of diagnostics. Syntax errors set panic mode, which suppresses
// cascading reports until the parser resynchronizes at a context-
// specific token set.
package parser

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/structviz/godsl/internal/ast"
	"github.com/structviz/godsl/internal/lexer"
	"github.com/structviz/godsl/internal/report"
	"github.com/structviz/godsl/internal/types"
)

// Parse context names. These select synchronization token sets and
// error-message hints.
const (
	ctxWorkspace     = "workspace"
	ctxModel         = "model"
	ctxElement       = "element"
	ctxViews         = "views"
	ctxView          = "view"
	ctxStyles        = "styles"
	ctxStyle         = "style"
	ctxBranding      = "branding"
	ctxTerminology   = "terminology"
	ctxConfiguration = "configuration"
)

// defaultMaxErrors is the error budget. Once this many error-or-worse
// diagnostics have been recorded the parse aborts with a fatal
// diagnostic and returns a placeholder workspace.
const defaultMaxErrors = 25

// budgetAbort is the panic payload used to unwind the parser when the
// error budget is exhausted. It never escapes Parse.
type budgetAbort struct{}

// Parser parses a single DSL source into a workspace AST.
type Parser struct {
	source  []byte
	slogger *slog.Logger
	logger  *types.Logger

	tokens []lexer.Token
	pos    int

	reporter  *report.Reporter
	contexts  *ContextStack
	maxErrors int
	panicMode bool

	ws      *ast.WorkspaceNode
	seenIDs map[string]types.Span
}

// New creates a parser for the given source. logger may be nil.
func New(source []byte, logger *slog.Logger, cfg types.DiagnosticConfig) *Parser {
	var componentLogger *slog.Logger
	if logger != nil {
		componentLogger = logger.With(slog.String("component", "parser"))
	}
	return &Parser{
		source:    source,
		slogger:   logger,
		logger:    &types.Logger{L: componentLogger},
		reporter:  report.New(source, cfg),
		contexts:  NewContextStack(),
		maxErrors: defaultMaxErrors,
		seenIDs:   make(map[string]types.Span),
	}
}

// SetMaxErrors overrides the error budget. n <= 0 disables the budget.
func (p *Parser) SetMaxErrors(n int) {
	p.maxErrors = n
}

// Reporter returns the diagnostic reporter.
func (p *Parser) Reporter() *report.Reporter {
	return p.reporter
}

// Diagnostics returns all diagnostics recorded so far, in arrival order.
func (p *Parser) Diagnostics() []types.SpanDiagnostic {
	return p.reporter.Diagnostics()
}

// Parse tokenizes the source and parses a workspace. It always returns
// a non-nil workspace; consult Diagnostics for what went wrong.
func (p *Parser) Parse() (w *ast.WorkspaceNode) {
	defer func() {
		if r := recover(); r != nil {
			if _, ok := r.(budgetAbort); ok {
				w = ast.PlaceholderWorkspace(types.Synthetic)
				return
			}
			panic(r)
		}
	}()

	tokens, lexDiags := lexer.New(p.source, p.slogger).Tokenize()
	p.tokens = tokens
	for _, d := range lexDiags {
		p.reporter.Report(d.Severity, d.Code, d.Span, d.Message)
	}
	p.checkBudget()

	w = p.parseWorkspace()
	p.logger.Log(slog.LevelDebug, "parse complete",
		slog.Int("diagnostics", p.reporter.Count()),
		slog.Int("errors", p.reporter.ErrorCount()))
	return w
}

// === Token access ===

func (p *Parser) peek() lexer.Token {
	return p.peekNth(0)
}

func (p *Parser) peekNth(n int) lexer.Token {
	i := p.pos + n
	if i >= len(p.tokens) {
		end := types.ByteOffset(len(p.source))
		return lexer.NewToken(lexer.TokEOF, types.NewSpan(end, end))
	}
	return p.tokens[i]
}

func (p *Parser) previous() lexer.Token {
	if p.pos == 0 {
		return p.peek()
	}
	return p.tokens[p.pos-1]
}

func (p *Parser) advance() lexer.Token {
	tok := p.peek()
	if tok.Kind != lexer.TokEOF {
		p.pos++
	}
	if p.logger.TraceEnabled() {
		p.logger.Trace("token",
			slog.String("kind", tok.Kind.Name()),
			slog.String("text", p.tokenText(tok)))
	}
	return tok
}

func (p *Parser) check(kind lexer.TokenKind) bool {
	return p.peek().Kind == kind
}

func (p *Parser) isEOF() bool {
	return p.peek().Kind == lexer.TokEOF
}

// text returns the source text covered by a span, clamped to the source.
func (p *Parser) text(span types.Span) string {
	start, end := int(span.Start), int(span.End)
	if start > len(p.source) {
		start = len(p.source)
	}
	if end > len(p.source) {
		end = len(p.source)
	}
	if start >= end {
		return ""
	}
	return string(p.source[start:end])
}

func (p *Parser) tokenText(tok lexer.Token) string {
	return p.text(tok.Span)
}

// stringText returns the unquoted value of a string token. The closing
// quote may be missing (unterminated string, already diagnosed by the
// lexer).
func (p *Parser) stringText(tok lexer.Token) string {
	text := p.tokenText(tok)
	text = strings.TrimPrefix(text, `"`)
	text = strings.TrimSuffix(text, `"`)
	return text
}

// refTokenText returns the element-reference text of a token: unquoted
// for strings, the raw lexeme otherwise.
func (p *Parser) refTokenText(tok lexer.Token) string {
	if tok.Kind == lexer.TokString {
		return p.stringText(tok)
	}
	return p.tokenText(tok)
}

// resolveRefToken maps an element-reference token to an element ID when
// the reference is a bound variable, and passes the text through
// otherwise for the resolver to handle by ID or name.
func (p *Parser) resolveRefToken(tok lexer.Token, bindings map[string]string) string {
	text := p.refTokenText(tok)
	if tok.Kind == lexer.TokIdent && bindings != nil {
		if id, ok := bindings[text]; ok {
			return id
		}
	}
	return text
}

// sameLine reports whether the current token is on the same source
// line as the previous one.
func (p *Parser) sameLine() bool {
	if p.pos == 0 {
		return true
	}
	return !lexer.HasNewlineBetween(p.source, p.previous().Span, p.peek().Span)
}

func (p *Parser) describe(tok lexer.Token) string {
	switch {
	case tok.Kind == lexer.TokEOF:
		return "end of input"
	case tok.Kind == lexer.TokIdent, tok.Kind == lexer.TokString,
		tok.Kind == lexer.TokInteger, tok.Kind == lexer.TokDouble,
		tok.Kind == lexer.TokDirective:
		return fmt.Sprintf("%s %q", tok.Kind.Name(), p.tokenText(tok))
	case tok.Kind.IsKeyword():
		return fmt.Sprintf("keyword %q", p.tokenText(tok))
	default:
		return tok.Kind.Name()
	}
}

// === Error machinery ===

func (p *Parser) report(sev types.Severity, code string, span types.Span, msg string) {
	p.reporter.Report(sev, code, span, msg)
	if sev <= types.SeverityError {
		p.checkBudget()
	}
}

func (p *Parser) checkBudget() {
	if p.maxErrors > 0 && p.reporter.ErrorCount() >= p.maxErrors {
		p.reporter.Report(types.SeverityFatal, types.DiagErrorBudget, p.peek().Span,
			fmt.Sprintf("too many errors (%d); aborting parse", p.maxErrors))
		p.logger.Log(slog.LevelWarn, "error budget exhausted",
			slog.Int("budget", p.maxErrors))
		panic(budgetAbort{})
	}
}

// syntaxError reports a syntax error unless panic mode is active, and
// enters panic mode. The current context hint is appended when present.
func (p *Parser) syntaxError(code string, span types.Span, msg string) {
	if p.panicMode {
		return
	}
	p.panicMode = true
	if hint := p.currentHint(); hint != "" {
		msg = msg + " (" + hint + ")"
	}
	p.report(types.SeverityError, code, span, msg)
}

func (p *Parser) currentHint() string {
	c, err := p.contexts.Current()
	if err != nil {
		return ""
	}
	return contextHint(c.Name)
}

// consume expects the given token kind. On mismatch it reports a
// syntax error and attempts recovery in order: insert a synthetic token
// when the expected token is structurally implied, skip a single stray
// punctuation token and retry, otherwise synchronize.
func (p *Parser) consume(kind lexer.TokenKind, what string) (lexer.Token, bool) {
	if p.check(kind) {
		p.panicMode = false
		return p.advance(), true
	}

	tok := p.peek()
	msg := fmt.Sprintf("expected %s for %s, found %s", kind.Name(), what, p.describe(tok))
	if s := mismatchSuggestion(kind, tok.Kind, p.refTokenText(tok)); s != "" {
		msg += "; " + s
	}
	code := types.DiagParseError
	if kind == lexer.TokRBrace {
		code = types.DiagMissingBrace
	}
	p.syntaxError(code, tok.Span, msg)

	switch {
	case kind == lexer.TokRBrace && (tok.Kind.IsSectionKeyword() || tok.Kind == lexer.TokEOF):
		// The brace is structurally implied; insert it and continue.
		p.panicMode = false
		return lexer.NewToken(lexer.TokRBrace, types.Synthetic), true
	case kind == lexer.TokLBrace && tok.Kind.IsSectionKeyword():
		p.panicMode = false
		return lexer.NewToken(lexer.TokLBrace, types.Synthetic), true
	case tok.Kind == lexer.TokComma || tok.Kind == lexer.TokColon || tok.Kind == lexer.TokSemicolon:
		p.advance()
		if p.check(kind) {
			p.panicMode = false
			return p.advance(), true
		}
	}

	p.synchronize()
	return lexer.NewToken(lexer.TokError, tok.Span), false
}

// synchronize advances to the nearest token in the current context's
// synchronization set and leaves panic mode.
func (p *Parser) synchronize() {
	inSet := p.syncPredicate()
	for !p.isEOF() && !inSet(p.peek().Kind) {
		p.advance()
	}
	p.panicMode = false
}

func (p *Parser) syncPredicate() func(lexer.TokenKind) bool {
	name := ""
	if c, err := p.contexts.Current(); err == nil {
		name = c.Name
	}
	switch name {
	case ctxWorkspace:
		return func(k lexer.TokenKind) bool {
			return k.IsSectionKeyword() || k == lexer.TokRBrace
		}
	case ctxModel:
		return func(k lexer.TokenKind) bool {
			return k.IsElementKeyword() || k == lexer.TokKwRelationship ||
				k == lexer.TokIdent || k == lexer.TokRBrace
		}
	case ctxElement:
		return func(k lexer.TokenKind) bool {
			switch k {
			case lexer.TokKwDescription, lexer.TokKwTechnology, lexer.TokKwTags,
				lexer.TokKwURL, lexer.TokKwProperties, lexer.TokKwPerspectives,
				lexer.TokKwLocation, lexer.TokArrow, lexer.TokRBrace:
				return true
			}
			return k.IsElementKeyword()
		}
	case ctxViews:
		return func(k lexer.TokenKind) bool {
			return k.IsViewKeyword() || k == lexer.TokKwStyles || k == lexer.TokRBrace
		}
	case ctxView:
		return func(k lexer.TokenKind) bool {
			return k.IsViewBodyKeyword() || k == lexer.TokRBrace
		}
	case ctxStyles:
		return func(k lexer.TokenKind) bool {
			return k == lexer.TokKwElement || k == lexer.TokKwRelationship ||
				k == lexer.TokRBrace
		}
	default:
		return func(k lexer.TokenKind) bool {
			return k == lexer.TokRBrace || k.IsSectionKeyword()
		}
	}
}

func (p *Parser) pushContext(name string) {
	p.contexts.Push(NewContext(name))
}

func (p *Parser) pushContextData(name, key, value string) {
	p.contexts.Push(NewContext(name).WithData(key, value))
}

func (p *Parser) popContext() {
	p.contexts.Pop()
}

// === Value parsing ===

// stringValue consumes a required string value. Bare identifiers and
// keywords are accepted with a missing-quotes warning; anything else
// reports an error and synchronizes.
func (p *Parser) stringValue(what string) (string, types.Span, bool) {
	tok := p.peek()
	switch {
	case tok.Kind == lexer.TokString:
		p.advance()
		p.panicMode = false
		return p.stringText(tok), tok.Span, true
	case tok.Kind.IsNameLike():
		p.advance()
		text := p.tokenText(tok)
		p.report(types.SeverityWarning, types.DiagMissingQuotes, tok.Span,
			fmt.Sprintf("%s should be a quoted string; accepting %q", what, text))
		p.panicMode = false
		return text, tok.Span, true
	default:
		msg := fmt.Sprintf("expected STRING for %s, found %s", what, p.describe(tok))
		if s := mismatchSuggestion(lexer.TokString, tok.Kind, p.tokenText(tok)); s != "" {
			msg += "; " + s
		}
		p.syntaxError(types.DiagParseError, tok.Span, msg)
		p.synchronize()
		return "", tok.Span, false
	}
}

// optionalString consumes a quoted string on the same line, if present.
// Bare identifiers are never taken: in optional positions they belong
// to the next construct.
func (p *Parser) optionalString() (string, types.Span, bool) {
	if !p.check(lexer.TokString) || !p.sameLine() {
		return "", types.Synthetic, false
	}
	tok := p.advance()
	return p.stringText(tok), tok.Span, true
}

// propertyValue consumes a scalar value: string, identifier, number,
// boolean, or a keyword used as a bare word.
func (p *Parser) propertyValue() (string, types.Span, bool) {
	tok := p.peek()
	switch {
	case tok.Kind == lexer.TokString:
		p.advance()
		return p.stringText(tok), tok.Span, true
	case tok.Kind == lexer.TokIdent, tok.Kind == lexer.TokInteger,
		tok.Kind == lexer.TokDouble, tok.Kind == lexer.TokBoolean,
		tok.Kind.IsKeyword():
		p.advance()
		return p.tokenText(tok), tok.Span, true
	default:
		p.syntaxError(types.DiagParseError, tok.Span,
			fmt.Sprintf("expected a value, found %s", p.describe(tok)))
		return "", tok.Span, false
	}
}

func (p *Parser) intFromString(val string, span types.Span) int {
	n, err := strconv.Atoi(val)
	if err != nil {
		p.report(types.SeverityError, types.DiagParseError, span,
			fmt.Sprintf("expected an integer value, found %q", val))
		return 0
	}
	return n
}

// === Workspace ===

func (p *Parser) parseWorkspace() *ast.WorkspaceNode {
	p.pushContext(ctxWorkspace)
	defer p.popContext()

	start := p.peek().Span
	p.consume(lexer.TokKwWorkspace, "workspace declaration")

	w := ast.NewWorkspaceNode("", "", start)
	p.ws = w

	if !p.check(lexer.TokLBrace) && p.peek().Kind.IsNameLike() {
		if name, _, ok := p.stringValue("workspace name"); ok {
			w.Name = name
		}
		if desc, _, ok := p.optionalString(); ok {
			w.Description = desc
		}
	}

	p.consume(lexer.TokLBrace, "workspace body")

	for !p.isEOF() && !p.check(lexer.TokRBrace) {
		before := p.pos
		p.parseWorkspaceSection(w)
		if p.pos == before {
			p.advance()
		}
	}
	p.consume(lexer.TokRBrace, "workspace closing brace")

	if !p.isEOF() {
		tok := p.peek()
		p.report(types.SeverityWarning, types.DiagStrayToken, tok.Span,
			fmt.Sprintf("ignoring content after workspace block, starting at %s", p.describe(tok)))
		for !p.isEOF() {
			p.advance()
		}
	}

	w.Span = types.NewSpan(start.Start, p.previous().Span.End)
	return w
}

func (p *Parser) parseWorkspaceSection(w *ast.WorkspaceNode) {
	tok := p.peek()
	switch tok.Kind {
	case lexer.TokKwModel:
		p.parseModel(w)
	case lexer.TokKwViews:
		p.parseViews(w)
	case lexer.TokKwStyles:
		// Styles normally live under views; a workspace-level block is
		// accepted and merged.
		p.parseStyles(w)
	case lexer.TokKwTheme, lexer.TokKwThemes:
		p.parseThemes(w)
	case lexer.TokKwBranding:
		p.parseBranding(w)
	case lexer.TokKwTerminology:
		p.parseTerminology(w)
	case lexer.TokKwConfiguration:
		p.parseConfiguration(w)
	case lexer.TokKwProperties:
		p.advance()
		w.Properties = p.parseKVBlock("workspace properties", w.Properties)
	case lexer.TokDirective:
		p.parseDirective()
	case lexer.TokError:
		// Already diagnosed by the lexer.
		p.advance()
	default:
		msg := fmt.Sprintf("unexpected %s in workspace", p.describe(tok))
		if tok.Kind == lexer.TokIdent {
			if s := suggestKeyword(p.tokenText(tok)); s != "" {
				msg += "; " + s
			}
		}
		p.report(types.SeverityError, types.DiagUnknownKeyword, tok.Span, msg)
		p.advance()
	}
}

// === Model ===

func (p *Parser) parseModel(w *ast.WorkspaceNode) {
	p.pushContext(ctxModel)
	defer p.popContext()

	kw := p.advance()
	m := w.Model
	if m == nil {
		m = &ast.ModelNode{Span: kw.Span}
		w.Model = m
	}

	if _, ok := p.consume(lexer.TokLBrace, "model body"); !ok {
		return
	}

	// Variable bindings live for exactly one model block.
	bindings := make(map[string]string)

	// A 'views' keyword inside the model body means the closing brace
	// is missing; stop so consume can insert it.
	for !p.isEOF() && !p.check(lexer.TokRBrace) && !p.check(lexer.TokKwViews) {
		before := p.pos
		p.parseModelItem(m, bindings)
		if p.pos == before {
			p.advance()
		}
	}
	p.consume(lexer.TokRBrace, "model closing brace")
	m.Span = types.NewSpan(kw.Span.Start, p.previous().Span.End)
}

func (p *Parser) parseModelItem(m *ast.ModelNode, bindings map[string]string) {
	tok := p.peek()
	switch tok.Kind {
	case lexer.TokKwEnterprise:
		p.parseEnterprise(m, bindings)
	case lexer.TokKwGroup:
		p.parseGroup(m, bindings)
	case lexer.TokKwPerson:
		m.People = append(m.People, p.parsePerson(bindings, ""))
	case lexer.TokKwSoftwareSystem:
		m.SoftwareSystems = append(m.SoftwareSystems, p.parseSoftwareSystem(bindings, ""))
	case lexer.TokKwRelationship:
		if rel := p.parseExplicitRelationship(bindings); rel != nil {
			m.Relationships = append(m.Relationships, rel)
		}
	case lexer.TokKwDeploymentEnvironment:
		p.parseDeploymentEnvironment(m, bindings)
	case lexer.TokDirective:
		p.parseDirective()
	case lexer.TokError:
		p.advance()
	case lexer.TokIdent:
		switch p.peekNth(1).Kind {
		case lexer.TokEquals:
			p.parseModelAssignment(m, bindings)
		case lexer.TokArrow:
			src := p.resolveRefToken(p.advance(), bindings)
			if rel := p.parseRelationshipTail(src, bindings); rel != nil {
				m.Relationships = append(m.Relationships, rel)
			}
		default:
			msg := fmt.Sprintf("unexpected %s in model", p.describe(tok))
			if s := suggestKeyword(p.tokenText(tok)); s != "" {
				msg += "; " + s
			}
			p.report(types.SeverityError, types.DiagUnknownKeyword, tok.Span, msg)
			p.advance()
		}
	case lexer.TokString:
		if p.peekNth(1).Kind == lexer.TokArrow {
			src := p.resolveRefToken(p.advance(), bindings)
			if rel := p.parseRelationshipTail(src, bindings); rel != nil {
				m.Relationships = append(m.Relationships, rel)
			}
			return
		}
		p.report(types.SeverityError, types.DiagParseError, tok.Span,
			fmt.Sprintf("unexpected %s in model", p.describe(tok)))
		p.advance()
	default:
		p.report(types.SeverityError, types.DiagStrayToken, tok.Span,
			fmt.Sprintf("unexpected %s in model", p.describe(tok)))
		p.advance()
	}
}

func (p *Parser) parseModelAssignment(m *ast.ModelNode, bindings map[string]string) {
	ident := p.advance()
	varName := p.tokenText(ident)
	p.advance() // '='

	tok := p.peek()
	switch tok.Kind {
	case lexer.TokKwPerson:
		node := p.parsePerson(bindings, varName)
		m.People = append(m.People, node)
		bindings[varName] = node.ID
	case lexer.TokKwSoftwareSystem:
		node := p.parseSoftwareSystem(bindings, varName)
		m.SoftwareSystems = append(m.SoftwareSystems, node)
		bindings[varName] = node.ID
	default:
		p.syntaxError(types.DiagParseError, tok.Span,
			fmt.Sprintf("expected an element declaration after %q =, found %s", varName, p.describe(tok)))
	}
}

// newElementBase assigns the element ID (variable name when bound,
// otherwise the display name with spaces stripped) and checks it for
// uniqueness across the whole parse.
func (p *Parser) newElementBase(varName, name string, span types.Span) ast.ElementBase {
	if name == "" {
		p.report(types.SeverityWarning, types.DiagEmptyName, span, "element has an empty name")
	}
	id := varName
	if id == "" {
		id = ast.DeriveID(name)
	}
	if id != "" {
		if prev, dup := p.seenIDs[id]; dup {
			line, col := report.Position(p.source, prev.Start)
			p.report(types.SeverityError, types.DiagDuplicateID, span,
				fmt.Sprintf("identifier %q already declared at line %d, column %d", id, line, col))
		} else {
			p.seenIDs[id] = span
		}
	}
	return ast.ElementBase{ID: id, Name: name, Span: span}
}

func (p *Parser) parsePerson(bindings map[string]string, varName string) *ast.PersonNode {
	kw := p.advance()
	name, _, _ := p.stringValue("person name")
	node := &ast.PersonNode{ElementBase: p.newElementBase(varName, name, kw.Span)}
	if v, _, ok := p.optionalString(); ok {
		node.Description = v
	}
	if v, _, ok := p.optionalString(); ok {
		node.Tags = append(node.Tags, splitTags(v)...)
	}
	if p.check(lexer.TokLBrace) {
		p.parseElementBody(&node.ElementBase, elementHost{location: &node.Location}, bindings)
	}
	return node
}

func (p *Parser) parseSoftwareSystem(bindings map[string]string, varName string) *ast.SoftwareSystemNode {
	kw := p.advance()
	name, _, _ := p.stringValue("software system name")
	node := &ast.SoftwareSystemNode{ElementBase: p.newElementBase(varName, name, kw.Span)}
	if v, _, ok := p.optionalString(); ok {
		node.Description = v
	}
	if v, _, ok := p.optionalString(); ok {
		node.Tags = append(node.Tags, splitTags(v)...)
	}
	if p.check(lexer.TokLBrace) {
		p.parseElementBody(&node.ElementBase, elementHost{
			location:   &node.Location,
			containers: &node.Containers,
		}, bindings)
	}
	return node
}

func (p *Parser) parseContainer(bindings map[string]string, varName string) *ast.ContainerNode {
	kw := p.advance()
	name, _, _ := p.stringValue("container name")
	node := &ast.ContainerNode{ElementBase: p.newElementBase(varName, name, kw.Span)}
	if v, _, ok := p.optionalString(); ok {
		node.Description = v
	}
	if v, _, ok := p.optionalString(); ok {
		node.Technology = v
	}
	if v, _, ok := p.optionalString(); ok {
		node.Tags = append(node.Tags, splitTags(v)...)
	}
	if p.check(lexer.TokLBrace) {
		p.parseElementBody(&node.ElementBase, elementHost{components: &node.Components}, bindings)
	}
	return node
}

func (p *Parser) parseComponent(bindings map[string]string, varName string) *ast.ComponentNode {
	kw := p.advance()
	name, _, _ := p.stringValue("component name")
	node := &ast.ComponentNode{ElementBase: p.newElementBase(varName, name, kw.Span)}
	if v, _, ok := p.optionalString(); ok {
		node.Description = v
	}
	if v, _, ok := p.optionalString(); ok {
		node.Technology = v
	}
	if v, _, ok := p.optionalString(); ok {
		node.Tags = append(node.Tags, splitTags(v)...)
	}
	if p.check(lexer.TokLBrace) {
		p.parseElementBody(&node.ElementBase, elementHost{}, bindings)
	}
	return node
}

// elementHost wires the nestable children an element body may declare.
// Nil slots mean that child kind is not valid here.
type elementHost struct {
	location   *ast.Location
	containers *[]*ast.ContainerNode
	components *[]*ast.ComponentNode
}

func (p *Parser) parseElementBody(base *ast.ElementBase, host elementHost, bindings map[string]string) {
	p.pushContextData(ctxElement, "name", base.Name)
	defer p.popContext()

	p.advance() // '{'
	for !p.isEOF() && !p.check(lexer.TokRBrace) && !p.check(lexer.TokKwViews) {
		before := p.pos
		p.parseElementItem(base, host, bindings)
		if p.pos == before {
			p.advance()
		}
	}
	what := "element closing brace"
	if base.Name != "" {
		what = fmt.Sprintf("closing brace for %q", base.Name)
	}
	p.consume(lexer.TokRBrace, what)
	base.Span = types.NewSpan(base.Span.Start, p.previous().Span.End)
}

func (p *Parser) parseElementItem(base *ast.ElementBase, host elementHost, bindings map[string]string) {
	tok := p.peek()
	if p.parseCommonProperty(base, host) {
		return
	}
	switch tok.Kind {
	case lexer.TokKwContainer:
		if host.containers == nil {
			p.report(types.SeverityError, types.DiagParseError, tok.Span,
				"container may only be declared inside a software system")
			p.skipDeclaration()
			return
		}
		*host.containers = append(*host.containers, p.parseContainer(bindings, ""))
	case lexer.TokKwComponent:
		if host.components == nil {
			p.report(types.SeverityError, types.DiagParseError, tok.Span,
				"component may only be declared inside a container")
			p.skipDeclaration()
			return
		}
		*host.components = append(*host.components, p.parseComponent(bindings, ""))
	case lexer.TokArrow:
		if rel := p.parseRelationshipTail(base.ID, bindings); rel != nil {
			base.Relationships = append(base.Relationships, rel)
		}
	case lexer.TokKwRelationship:
		if rel := p.parseExplicitRelationship(bindings); rel != nil {
			base.Relationships = append(base.Relationships, rel)
		}
	case lexer.TokDirective:
		p.parseDirective()
	case lexer.TokError:
		p.advance()
	case lexer.TokIdent:
		switch p.peekNth(1).Kind {
		case lexer.TokEquals:
			p.parseNestedAssignment(host, bindings)
		case lexer.TokArrow:
			src := p.resolveRefToken(p.advance(), bindings)
			if rel := p.parseRelationshipTail(src, bindings); rel != nil {
				base.Relationships = append(base.Relationships, rel)
			}
		default:
			msg := fmt.Sprintf("unexpected %s in element body", p.describe(tok))
			if s := suggestKeyword(p.tokenText(tok)); s != "" {
				msg += "; " + s
			}
			p.report(types.SeverityError, types.DiagUnknownKeyword, tok.Span, msg)
			p.advance()
		}
	default:
		p.report(types.SeverityError, types.DiagStrayToken, tok.Span,
			fmt.Sprintf("unexpected %s in element body", p.describe(tok)))
		p.advance()
	}
}

// parseCommonProperty handles the property keywords shared by every
// element kind. Returns true when a property was consumed.
func (p *Parser) parseCommonProperty(base *ast.ElementBase, host elementHost) bool {
	switch p.peek().Kind {
	case lexer.TokKwDescription:
		p.advance()
		if v, _, ok := p.stringValue("description"); ok {
			base.Description = v
		}
	case lexer.TokKwTechnology:
		p.advance()
		if v, _, ok := p.stringValue("technology"); ok {
			base.Technology = v
		}
	case lexer.TokKwTags:
		p.advance()
		base.Tags = append(base.Tags, p.parseTagList()...)
	case lexer.TokKwURL:
		p.advance()
		if v, _, ok := p.stringValue("url"); ok {
			base.URL = v
		}
	case lexer.TokKwProperties:
		p.advance()
		base.Properties = p.parseKVBlock("properties block", base.Properties)
	case lexer.TokKwPerspectives:
		p.advance()
		base.Perspectives = p.parseKVBlock("perspectives block", base.Perspectives)
	case lexer.TokKwLocation:
		p.parseLocation(host.location)
	default:
		return false
	}
	return true
}

func (p *Parser) parseNestedAssignment(host elementHost, bindings map[string]string) {
	ident := p.advance()
	varName := p.tokenText(ident)
	p.advance() // '='

	tok := p.peek()
	if tok.Kind == lexer.TokKwContainer && host.containers != nil {
		node := p.parseContainer(bindings, varName)
		*host.containers = append(*host.containers, node)
		bindings[varName] = node.ID
		return
	}
	if tok.Kind == lexer.TokKwComponent && host.components != nil {
		node := p.parseComponent(bindings, varName)
		*host.components = append(*host.components, node)
		bindings[varName] = node.ID
		return
	}
	p.syntaxError(types.DiagParseError, tok.Span,
		fmt.Sprintf("expected an element declaration after %q =, found %s", varName, p.describe(tok)))
}

func (p *Parser) parseLocation(loc *ast.Location) {
	p.advance() // 'location'
	tok := p.peek()
	if !tok.Kind.IsNameLike() {
		p.syntaxError(types.DiagParseError, tok.Span,
			fmt.Sprintf("location must be internal or external, found %s", p.describe(tok)))
		return
	}
	p.advance()
	value := strings.ToLower(p.refTokenText(tok))
	var parsed ast.Location
	switch value {
	case "internal":
		parsed = ast.LocationInternal
	case "external":
		parsed = ast.LocationExternal
	default:
		p.report(types.SeverityError, types.DiagParseError, tok.Span,
			fmt.Sprintf("location must be internal or external, found %q", value))
		return
	}
	if loc == nil {
		p.report(types.SeverityWarning, types.DiagParseError, tok.Span,
			"location applies only to people and software systems")
		return
	}
	*loc = parsed
}

// skipDeclaration skips a misplaced declaration: the keyword, its
// same-line arguments, and a brace-balanced body if one follows.
func (p *Parser) skipDeclaration() {
	p.advance() // the declaration keyword
	for !p.isEOF() && p.sameLine() && !p.check(lexer.TokLBrace) && !p.check(lexer.TokRBrace) {
		p.advance()
	}
	if !p.check(lexer.TokLBrace) {
		return
	}
	depth := 0
	for !p.isEOF() {
		switch p.advance().Kind {
		case lexer.TokLBrace:
			depth++
		case lexer.TokRBrace:
			depth--
			if depth == 0 {
				return
			}
		}
	}
}

func (p *Parser) parseEnterprise(m *ast.ModelNode, bindings map[string]string) {
	kw := p.advance()
	name, _, _ := p.stringValue("enterprise name")
	if m.Enterprise != nil {
		p.report(types.SeverityWarning, types.DiagParseError, kw.Span,
			"enterprise is already declared; the last declaration wins")
	}
	m.Enterprise = &ast.EnterpriseNode{Name: name, Span: kw.Span}

	if !p.check(lexer.TokLBrace) {
		return
	}
	p.advance()
	for !p.isEOF() && !p.check(lexer.TokRBrace) {
		before := p.pos
		peopleBefore := len(m.People)
		systemsBefore := len(m.SoftwareSystems)
		p.parseModelItem(m, bindings)
		// Elements declared inside the enterprise boundary default to
		// internal.
		for _, person := range m.People[peopleBefore:] {
			if person.Location == ast.LocationUnspecified {
				person.Location = ast.LocationInternal
			}
		}
		for _, system := range m.SoftwareSystems[systemsBefore:] {
			if system.Location == ast.LocationUnspecified {
				system.Location = ast.LocationInternal
			}
		}
		if p.pos == before {
			p.advance()
		}
	}
	p.consume(lexer.TokRBrace, "enterprise closing brace")
}

func (p *Parser) parseGroup(m *ast.ModelNode, bindings map[string]string) {
	p.advance()
	name, _, _ := p.stringValue("group name")
	if _, ok := p.consume(lexer.TokLBrace, "group body"); !ok {
		return
	}
	groupTag := "Group:" + name
	for !p.isEOF() && !p.check(lexer.TokRBrace) {
		before := p.pos
		peopleBefore := len(m.People)
		systemsBefore := len(m.SoftwareSystems)
		p.parseModelItem(m, bindings)
		for _, person := range m.People[peopleBefore:] {
			person.Tags = append(person.Tags, groupTag)
		}
		for _, system := range m.SoftwareSystems[systemsBefore:] {
			system.Tags = append(system.Tags, groupTag)
		}
		if p.pos == before {
			p.advance()
		}
	}
	p.consume(lexer.TokRBrace, "group closing brace")
}

// === Relationships ===

// parseRelationshipTail parses '-> destination [description]
// [technology] [body]' with the source already known.
func (p *Parser) parseRelationshipTail(sourceID string, bindings map[string]string) *ast.RelationshipNode {
	arrow := p.advance() // '->'
	dest := p.peek()
	if !dest.Kind.IsNameLike() {
		p.syntaxError(types.DiagParseError, dest.Span,
			fmt.Sprintf("expected a destination element after '->', found %s", p.describe(dest)))
		p.synchronize()
		return nil
	}
	p.advance()

	rel := &ast.RelationshipNode{
		SourceID:      sourceID,
		DestinationID: p.resolveRefToken(dest, bindings),
		Span:          arrow.Span,
	}
	if v, _, ok := p.optionalString(); ok {
		rel.Description = v
	}
	if v, _, ok := p.optionalString(); ok {
		rel.Technology = v
	}
	if p.check(lexer.TokLBrace) {
		p.parseRelationshipBody(rel)
	}
	rel.Span = types.NewSpan(arrow.Span.Start, p.previous().Span.End)
	return rel
}

func (p *Parser) parseExplicitRelationship(bindings map[string]string) *ast.RelationshipNode {
	p.advance() // 'relationship'
	src := p.peek()
	if !src.Kind.IsNameLike() {
		p.syntaxError(types.DiagParseError, src.Span,
			fmt.Sprintf("expected a source element after 'relationship', found %s", p.describe(src)))
		p.synchronize()
		return nil
	}
	p.advance()
	if !p.check(lexer.TokArrow) {
		tok := p.peek()
		p.syntaxError(types.DiagParseError, tok.Span,
			fmt.Sprintf("expected '->' after relationship source, found %s", p.describe(tok)))
		p.synchronize()
		return nil
	}
	return p.parseRelationshipTail(p.resolveRefToken(src, bindings), bindings)
}

func (p *Parser) parseRelationshipBody(rel *ast.RelationshipNode) {
	p.advance() // '{'
	for !p.isEOF() && !p.check(lexer.TokRBrace) {
		before := p.pos
		tok := p.peek()
		switch tok.Kind {
		case lexer.TokKwTags:
			p.advance()
			rel.Tags = append(rel.Tags, p.parseTagList()...)
		case lexer.TokKwProperties:
			p.advance()
			rel.Properties = p.parseKVBlock("relationship properties", rel.Properties)
		case lexer.TokError:
			p.advance()
		default:
			p.report(types.SeverityError, types.DiagStrayToken, tok.Span,
				fmt.Sprintf("unexpected %s in relationship body", p.describe(tok)))
			p.advance()
		}
		if p.pos == before {
			p.advance()
		}
	}
	p.consume(lexer.TokRBrace, "relationship closing brace")
}

// parseTagList collects tag values on the current line. Each value is
// split on commas, so 'tags "a,b"' and 'tags "a" "b"' are equivalent.
func (p *Parser) parseTagList() []string {
	var tags []string
	for p.sameLine() {
		tok := p.peek()
		if tok.Kind == lexer.TokComma {
			p.advance()
			continue
		}
		if tok.Kind != lexer.TokString && tok.Kind != lexer.TokIdent {
			break
		}
		p.advance()
		tags = append(tags, splitTags(p.refTokenText(tok))...)
	}
	return tags
}

func splitTags(text string) []string {
	var tags []string
	for _, t := range strings.Split(text, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

// === Deployment ===

func (p *Parser) parseDeploymentEnvironment(m *ast.ModelNode, bindings map[string]string) {
	kw := p.advance()
	name, _, _ := p.stringValue("deployment environment name")
	env := &ast.DeploymentEnvironmentNode{Name: name, Span: kw.Span}
	m.DeploymentEnvironments = append(m.DeploymentEnvironments, env)

	if !p.check(lexer.TokLBrace) {
		return
	}
	p.advance()
	for !p.isEOF() && !p.check(lexer.TokRBrace) {
		before := p.pos
		tok := p.peek()
		switch {
		case tok.Kind == lexer.TokKwDeploymentNode:
			env.Nodes = append(env.Nodes, p.parseDeploymentNode(bindings, ""))
		case tok.Kind == lexer.TokIdent && p.peekNth(1).Kind == lexer.TokEquals:
			varName := p.tokenText(p.advance())
			p.advance() // '='
			if p.check(lexer.TokKwDeploymentNode) {
				node := p.parseDeploymentNode(bindings, varName)
				env.Nodes = append(env.Nodes, node)
				bindings[varName] = node.ID
			} else {
				p.syntaxError(types.DiagParseError, p.peek().Span,
					fmt.Sprintf("expected 'deploymentNode' after %q =, found %s", varName, p.describe(p.peek())))
			}
		case tok.Kind == lexer.TokDirective:
			p.parseDirective()
		case tok.Kind == lexer.TokError:
			p.advance()
		default:
			p.report(types.SeverityError, types.DiagStrayToken, tok.Span,
				fmt.Sprintf("unexpected %s in deployment environment", p.describe(tok)))
			p.advance()
		}
		if p.pos == before {
			p.advance()
		}
	}
	p.consume(lexer.TokRBrace, "deployment environment closing brace")
	env.Span = types.NewSpan(kw.Span.Start, p.previous().Span.End)
}

func (p *Parser) parseDeploymentNode(bindings map[string]string, varName string) *ast.DeploymentNodeNode {
	kw := p.advance()
	name, _, _ := p.stringValue("deployment node name")
	node := &ast.DeploymentNodeNode{
		ElementBase: p.newElementBase(varName, name, kw.Span),
		Instances:   1,
	}
	if v, _, ok := p.optionalString(); ok {
		node.Description = v
	}
	if v, _, ok := p.optionalString(); ok {
		node.Technology = v
	}

	if !p.check(lexer.TokLBrace) {
		return node
	}
	p.pushContextData(ctxElement, "name", name)
	p.advance()
	for !p.isEOF() && !p.check(lexer.TokRBrace) {
		before := p.pos
		p.parseDeploymentNodeItem(node, bindings)
		if p.pos == before {
			p.advance()
		}
	}
	p.consume(lexer.TokRBrace, fmt.Sprintf("closing brace for %q", name))
	p.popContext()
	node.Span = types.NewSpan(kw.Span.Start, p.previous().Span.End)
	return node
}

func (p *Parser) parseDeploymentNodeItem(node *ast.DeploymentNodeNode, bindings map[string]string) {
	tok := p.peek()
	if p.parseCommonProperty(&node.ElementBase, elementHost{}) {
		return
	}
	switch tok.Kind {
	case lexer.TokKwDeploymentNode:
		node.Children = append(node.Children, p.parseDeploymentNode(bindings, ""))
	case lexer.TokKwInfrastructureNode:
		node.InfrastructureNodes = append(node.InfrastructureNodes, p.parseInfrastructureNode(bindings, ""))
	case lexer.TokKwContainerInstance:
		node.ContainerInstances = append(node.ContainerInstances, p.parseContainerInstance(bindings))
	case lexer.TokArrow:
		if rel := p.parseRelationshipTail(node.ID, bindings); rel != nil {
			node.Relationships = append(node.Relationships, rel)
		}
	case lexer.TokDirective:
		p.parseDirective()
	case lexer.TokError:
		p.advance()
	case lexer.TokIdent:
		// 'instances N' arrives as an identifier.
		if strings.EqualFold(p.tokenText(tok), "instances") && p.peekNth(1).Kind == lexer.TokInteger {
			p.advance()
			val := p.advance()
			node.Instances = p.intFromString(p.tokenText(val), val.Span)
			return
		}
		if p.peekNth(1).Kind == lexer.TokArrow {
			src := p.resolveRefToken(p.advance(), bindings)
			if rel := p.parseRelationshipTail(src, bindings); rel != nil {
				node.Relationships = append(node.Relationships, rel)
			}
			return
		}
		if p.peekNth(1).Kind == lexer.TokEquals {
			varName := p.tokenText(p.advance())
			p.advance() // '='
			switch p.peek().Kind {
			case lexer.TokKwDeploymentNode:
				child := p.parseDeploymentNode(bindings, varName)
				node.Children = append(node.Children, child)
				bindings[varName] = child.ID
			case lexer.TokKwInfrastructureNode:
				infra := p.parseInfrastructureNode(bindings, varName)
				node.InfrastructureNodes = append(node.InfrastructureNodes, infra)
				bindings[varName] = infra.ID
			default:
				p.syntaxError(types.DiagParseError, p.peek().Span,
					fmt.Sprintf("expected a deployment declaration after %q =, found %s", varName, p.describe(p.peek())))
			}
			return
		}
		msg := fmt.Sprintf("unexpected %s in deployment node", p.describe(tok))
		if s := suggestKeyword(p.tokenText(tok)); s != "" {
			msg += "; " + s
		}
		p.report(types.SeverityError, types.DiagUnknownKeyword, tok.Span, msg)
		p.advance()
	default:
		p.report(types.SeverityError, types.DiagStrayToken, tok.Span,
			fmt.Sprintf("unexpected %s in deployment node", p.describe(tok)))
		p.advance()
	}
}

func (p *Parser) parseInfrastructureNode(bindings map[string]string, varName string) *ast.InfrastructureNodeNode {
	kw := p.advance()
	name, _, _ := p.stringValue("infrastructure node name")
	node := &ast.InfrastructureNodeNode{ElementBase: p.newElementBase(varName, name, kw.Span)}
	if v, _, ok := p.optionalString(); ok {
		node.Description = v
	}
	if v, _, ok := p.optionalString(); ok {
		node.Technology = v
	}
	if !p.check(lexer.TokLBrace) {
		return node
	}
	p.advance()
	for !p.isEOF() && !p.check(lexer.TokRBrace) {
		before := p.pos
		if !p.parseCommonProperty(&node.ElementBase, elementHost{}) {
			tok := p.peek()
			switch {
			case tok.Kind == lexer.TokArrow:
				if rel := p.parseRelationshipTail(node.ID, bindings); rel != nil {
					node.Relationships = append(node.Relationships, rel)
				}
			case tok.Kind == lexer.TokIdent && p.peekNth(1).Kind == lexer.TokArrow:
				src := p.resolveRefToken(p.advance(), bindings)
				if rel := p.parseRelationshipTail(src, bindings); rel != nil {
					node.Relationships = append(node.Relationships, rel)
				}
			case tok.Kind == lexer.TokError:
				p.advance()
			default:
				p.report(types.SeverityError, types.DiagStrayToken, tok.Span,
					fmt.Sprintf("unexpected %s in infrastructure node", p.describe(tok)))
				p.advance()
			}
		}
		if p.pos == before {
			p.advance()
		}
	}
	p.consume(lexer.TokRBrace, fmt.Sprintf("closing brace for %q", name))
	return node
}

func (p *Parser) parseContainerInstance(bindings map[string]string) *ast.ContainerInstanceNode {
	kw := p.advance()
	node := &ast.ContainerInstanceNode{Span: kw.Span}
	ref := p.peek()
	if !ref.Kind.IsNameLike() {
		p.syntaxError(types.DiagParseError, ref.Span,
			fmt.Sprintf("expected a container reference after 'containerInstance', found %s", p.describe(ref)))
		return node
	}
	p.advance()
	node.ContainerID = p.resolveRefToken(ref, bindings)

	if !p.check(lexer.TokLBrace) {
		return node
	}
	p.advance()
	for !p.isEOF() && !p.check(lexer.TokRBrace) {
		before := p.pos
		tok := p.peek()
		switch tok.Kind {
		case lexer.TokKwTags:
			p.advance()
			node.Tags = append(node.Tags, p.parseTagList()...)
		case lexer.TokError:
			p.advance()
		default:
			p.report(types.SeverityError, types.DiagStrayToken, tok.Span,
				fmt.Sprintf("unexpected %s in container instance", p.describe(tok)))
			p.advance()
		}
		if p.pos == before {
			p.advance()
		}
	}
	p.consume(lexer.TokRBrace, "container instance closing brace")
	return node
}

// === Views ===

func (p *Parser) parseViews(w *ast.WorkspaceNode) {
	p.pushContext(ctxViews)
	defer p.popContext()

	kw := p.advance()
	v := w.Views
	if v == nil {
		v = &ast.ViewsNode{Span: kw.Span}
		w.Views = v
	}

	if _, ok := p.consume(lexer.TokLBrace, "views body"); !ok {
		return
	}

	for !p.isEOF() && !p.check(lexer.TokRBrace) {
		before := p.pos
		tok := p.peek()
		switch {
		case tok.Kind == lexer.TokKwStyles:
			p.parseStyles(w)
		case tok.Kind == lexer.TokKwTheme || tok.Kind == lexer.TokKwThemes:
			p.parseThemes(w)
		case tok.Kind == lexer.TokKwBranding:
			p.parseBranding(w)
		case tok.Kind == lexer.TokKwTerminology:
			p.parseTerminology(w)
		case tok.Kind == lexer.TokKwProperties:
			p.advance()
			w.Properties = p.parseKVBlock("views properties", w.Properties)
		case tok.Kind.IsViewKeyword():
			if view := p.parseView(); view != nil {
				v.Views = append(v.Views, view)
			}
		case tok.Kind == lexer.TokDirective:
			p.parseDirective()
		case tok.Kind == lexer.TokError:
			p.advance()
		default:
			msg := fmt.Sprintf("unexpected %s in views", p.describe(tok))
			if tok.Kind == lexer.TokIdent {
				if s := suggestKeyword(p.tokenText(tok)); s != "" {
					msg += "; " + s
				}
			}
			p.report(types.SeverityError, types.DiagUnknownKeyword, tok.Span, msg)
			p.advance()
		}
		if p.pos == before {
			p.advance()
		}
	}
	p.consume(lexer.TokRBrace, "views closing brace")
	v.Span = types.NewSpan(kw.Span.Start, p.previous().Span.End)
}

func viewKindForKeyword(kind lexer.TokenKind) ast.ViewKind {
	switch kind {
	case lexer.TokKwSystemLandscape:
		return ast.ViewKindSystemLandscape
	case lexer.TokKwSystemContext:
		return ast.ViewKindSystemContext
	case lexer.TokKwContainer:
		return ast.ViewKindContainer
	case lexer.TokKwComponent:
		return ast.ViewKindComponent
	case lexer.TokKwDynamic:
		return ast.ViewKindDynamic
	case lexer.TokKwDeployment:
		return ast.ViewKindDeployment
	default:
		return ast.ViewKindFiltered
	}
}

func (p *Parser) parseView() *ast.ViewNode {
	kw := p.advance()
	if kw.Kind == lexer.TokKwFiltered {
		return p.parseFilteredView(kw)
	}

	view := &ast.ViewNode{Kind: viewKindForKeyword(kw.Kind), Span: kw.Span}

	needsAnchor := view.Kind != ast.ViewKindSystemLandscape
	wildcardOK := view.Kind == ast.ViewKindDynamic || view.Kind == ast.ViewKindDeployment
	if needsAnchor {
		tok := p.peek()
		switch {
		case tok.Kind == lexer.TokStar && wildcardOK:
			p.advance()
			view.AnchorID = "*"
		case tok.Kind == lexer.TokIdent || tok.Kind == lexer.TokString:
			p.advance()
			view.AnchorID = p.refTokenText(tok)
		default:
			p.syntaxError(types.DiagMissingAnchor, tok.Span,
				fmt.Sprintf("%s view requires an element identifier, found %s", view.Kind, p.describe(tok)))
		}
	}
	if view.Kind == ast.ViewKindDeployment {
		if env, _, ok := p.stringValue("deployment environment"); ok {
			view.Environment = env
		}
	}

	if key, _, ok := p.optionalString(); ok {
		view.Key = key
		if desc, _, ok := p.optionalString(); ok {
			view.Description = desc
		}
	}

	if p.check(lexer.TokLBrace) {
		p.parseViewBody(view)
	}
	view.Span = types.NewSpan(kw.Span.Start, p.previous().Span.End)
	return view
}

// parseFilteredView parses 'filtered <baseKey> <include|exclude>
// <tags> [key] [description]'. The base view key is carried in
// AnchorID.
func (p *Parser) parseFilteredView(kw lexer.Token) *ast.ViewNode {
	view := &ast.ViewNode{Kind: ast.ViewKindFiltered, Span: kw.Span}

	base := p.peek()
	if base.Kind == lexer.TokIdent || base.Kind == lexer.TokString {
		p.advance()
		view.AnchorID = p.refTokenText(base)
	} else {
		p.syntaxError(types.DiagMissingAnchor, base.Span,
			fmt.Sprintf("filtered view requires a base view key, found %s", p.describe(base)))
	}

	mode := p.peek()
	if mode.Kind == lexer.TokKwInclude || mode.Kind == lexer.TokKwExclude {
		p.advance()
		view.FilterMode = p.tokenText(mode)
	} else {
		p.syntaxError(types.DiagParseError, mode.Span,
			fmt.Sprintf("filtered view requires 'include' or 'exclude', found %s", p.describe(mode)))
	}

	tags := p.peek()
	if tags.Kind == lexer.TokString || tags.Kind == lexer.TokIdent {
		p.advance()
		view.FilterTags = splitTags(p.refTokenText(tags))
	} else {
		p.syntaxError(types.DiagParseError, tags.Span,
			fmt.Sprintf("filtered view requires a tag list, found %s", p.describe(tags)))
	}

	if key, _, ok := p.optionalString(); ok {
		view.Key = key
		if desc, _, ok := p.optionalString(); ok {
			view.Description = desc
		}
	}
	if p.check(lexer.TokLBrace) {
		p.parseViewBody(view)
	}
	view.Span = types.NewSpan(kw.Span.Start, p.previous().Span.End)
	return view
}

func (p *Parser) parseViewBody(view *ast.ViewNode) {
	p.pushContextData(ctxView, "kind", view.Kind.String())
	defer p.popContext()

	p.advance() // '{'
	for !p.isEOF() && !p.check(lexer.TokRBrace) && !p.check(lexer.TokKwStyles) {
		before := p.pos
		tok := p.peek()
		switch tok.Kind {
		case lexer.TokKwInclude:
			p.advance()
			view.Includes = append(view.Includes, p.parseIncludeExprs("include")...)
		case lexer.TokKwExclude:
			p.advance()
			view.Excludes = append(view.Excludes, p.parseIncludeExprs("exclude")...)
		case lexer.TokKwAutoLayout:
			view.AutoLayout = p.parseAutoLayout()
		case lexer.TokKwAnimation:
			view.Animations = append(view.Animations, p.parseAnimation()...)
		case lexer.TokKwTitle:
			p.advance()
			if v, _, ok := p.stringValue("view title"); ok {
				view.Title = v
			}
		case lexer.TokKwDescription:
			p.advance()
			if v, _, ok := p.stringValue("view description"); ok {
				view.Description = v
			}
		case lexer.TokKwProperties:
			p.advance()
			view.Properties = p.parseKVBlock("view properties", view.Properties)
		case lexer.TokIdent, lexer.TokString:
			if view.Kind == ast.ViewKindDynamic && p.peekNth(1).Kind == lexer.TokArrow {
				p.parseDynamicStep(view)
				break
			}
			msg := fmt.Sprintf("unexpected %s in view body", p.describe(tok))
			if tok.Kind == lexer.TokIdent {
				if s := suggestKeyword(p.tokenText(tok)); s != "" {
					msg += "; " + s
				}
			}
			p.report(types.SeverityError, types.DiagUnknownKeyword, tok.Span, msg)
			p.advance()
		case lexer.TokError:
			p.advance()
		default:
			p.report(types.SeverityError, types.DiagStrayToken, tok.Span,
				fmt.Sprintf("unexpected %s in view body", p.describe(tok)))
			p.advance()
		}
		if p.pos == before {
			p.advance()
		}
	}
	p.consume(lexer.TokRBrace, "view closing brace")
}

func (p *Parser) parseIncludeExprs(what string) []ast.IncludeExpr {
	var exprs []ast.IncludeExpr
loop:
	for p.sameLine() {
		tok := p.peek()
		switch tok.Kind {
		case lexer.TokStar:
			p.advance()
			exprs = append(exprs, ast.IncludeExpr{Wildcard: true, Span: tok.Span})
		case lexer.TokIdent, lexer.TokString:
			p.advance()
			exprs = append(exprs, ast.IncludeExpr{Expr: p.refTokenText(tok), Span: tok.Span})
		case lexer.TokComma:
			p.advance()
		default:
			break loop
		}
	}
	if len(exprs) == 0 {
		p.report(types.SeverityError, types.DiagParseError, p.previous().Span,
			fmt.Sprintf("%s requires at least one element expression", what))
	}
	return exprs
}

func (p *Parser) parseAutoLayout() *ast.AutoLayoutNode {
	kw := p.advance()
	layout := &ast.AutoLayoutNode{Direction: "tb", Span: kw.Span}

	if p.sameLine() && p.check(lexer.TokIdent) {
		tok := p.advance()
		dir := strings.ToLower(p.tokenText(tok))
		switch dir {
		case "tb", "bt", "lr", "rl":
			layout.Direction = dir
		default:
			p.report(types.SeverityError, types.DiagParseError, tok.Span,
				fmt.Sprintf("autoLayout direction must be tb, bt, lr or rl, found %q", dir))
		}
	}
	if p.sameLine() && p.check(lexer.TokInteger) {
		tok := p.advance()
		layout.RankSep = p.intFromString(p.tokenText(tok), tok.Span)
		if p.sameLine() && p.check(lexer.TokInteger) {
			tok = p.advance()
			layout.NodeSep = p.intFromString(p.tokenText(tok), tok.Span)
		}
	}
	return layout
}

// parseAnimation parses an animation block. Each source line of
// references becomes one animation step.
func (p *Parser) parseAnimation() []ast.AnimationNode {
	p.advance() // 'animation'
	if _, ok := p.consume(lexer.TokLBrace, "animation block"); !ok {
		return nil
	}

	var steps []ast.AnimationNode
	for !p.isEOF() && !p.check(lexer.TokRBrace) {
		first := p.peek()
		if first.Kind != lexer.TokIdent && first.Kind != lexer.TokString {
			p.report(types.SeverityError, types.DiagStrayToken, first.Span,
				fmt.Sprintf("expected element references in animation step, found %s", p.describe(first)))
			p.advance()
			continue
		}
		var ids []string
		for {
			tok := p.peek()
			if tok.Kind == lexer.TokComma {
				p.advance()
				continue
			}
			if tok.Kind != lexer.TokIdent && tok.Kind != lexer.TokString {
				break
			}
			if len(ids) > 0 && !p.sameLine() {
				break
			}
			p.advance()
			ids = append(ids, p.refTokenText(tok))
		}
		steps = append(steps, ast.AnimationNode{ElementIDs: ids, Span: first.Span})
	}
	p.consume(lexer.TokRBrace, "animation closing brace")
	return steps
}

func (p *Parser) parseDynamicStep(view *ast.ViewNode) {
	src := p.advance()
	p.advance() // '->'
	dest := p.peek()
	if !dest.Kind.IsNameLike() {
		p.syntaxError(types.DiagParseError, dest.Span,
			fmt.Sprintf("expected a destination element after '->', found %s", p.describe(dest)))
		p.synchronize()
		return
	}
	p.advance()
	step := ast.DynamicStepNode{
		SourceID:      p.refTokenText(src),
		DestinationID: p.refTokenText(dest),
		Span:          src.Span,
	}
	if v, _, ok := p.optionalString(); ok {
		step.Description = v
	}
	view.Steps = append(view.Steps, step)
}

// === Styles ===

func (p *Parser) parseStyles(w *ast.WorkspaceNode) {
	p.pushContext(ctxStyles)
	defer p.popContext()

	kw := p.advance()
	s := w.Styles
	if s == nil {
		s = &ast.StylesNode{Span: kw.Span}
		w.Styles = s
	}

	if _, ok := p.consume(lexer.TokLBrace, "styles body"); !ok {
		return
	}

	for !p.isEOF() && !p.check(lexer.TokRBrace) {
		before := p.pos
		tok := p.peek()
		switch tok.Kind {
		case lexer.TokKwElement:
			s.Elements = append(s.Elements, p.parseElementStyle())
		case lexer.TokKwRelationship:
			s.Relationships = append(s.Relationships, p.parseRelationshipStyle())
		case lexer.TokError:
			p.advance()
		default:
			msg := fmt.Sprintf("unexpected %s in styles", p.describe(tok))
			if tok.Kind == lexer.TokIdent {
				if sg := suggestKeyword(p.tokenText(tok)); sg != "" {
					msg += "; " + sg
				}
			}
			p.report(types.SeverityError, types.DiagUnknownKeyword, tok.Span, msg)
			p.advance()
		}
		if p.pos == before {
			p.advance()
		}
	}
	p.consume(lexer.TokRBrace, "styles closing brace")
}

func (p *Parser) parseElementStyle() *ast.ElementStyleNode {
	kw := p.advance()
	tag, _, _ := p.stringValue("element style tag")
	style := &ast.ElementStyleNode{Tag: tag, Metadata: make(map[string]string), Span: kw.Span}

	if _, ok := p.consume(lexer.TokLBrace, "element style body"); !ok {
		return style
	}
	p.pushContextData(ctxStyle, "tag", tag)
	defer p.popContext()

	for !p.isEOF() && !p.check(lexer.TokRBrace) {
		before := p.pos
		key := p.peek()
		if !key.Kind.IsNameLike() {
			p.report(types.SeverityError, types.DiagParseError, key.Span,
				fmt.Sprintf("expected a style key, found %s", p.describe(key)))
			p.advance()
			continue
		}
		p.advance()
		keyText := p.refTokenText(key)
		val, valSpan, ok := p.propertyValue()
		if ok {
			p.applyElementStyleKey(style, key.Span, keyText, val, valSpan)
		}
		if p.pos == before {
			p.advance()
		}
	}
	p.consume(lexer.TokRBrace, "element style closing brace")
	style.Span = types.NewSpan(kw.Span.Start, p.previous().Span.End)
	return style
}

func (p *Parser) applyElementStyleKey(style *ast.ElementStyleNode, keySpan types.Span, key, val string, valSpan types.Span) {
	switch strings.ToLower(key) {
	case "shape":
		style.Shape = val
	case "icon":
		style.Icon = val
	case "width":
		style.Width = p.intFromString(val, valSpan)
	case "height":
		style.Height = p.intFromString(val, valSpan)
	case "background":
		style.Background = val
	case "stroke":
		style.Stroke = val
	case "color", "colour":
		style.Color = val
	case "fontsize":
		style.FontSize = p.intFromString(val, valSpan)
	case "border":
		style.Border = val
	case "opacity":
		style.Opacity = p.intFromString(val, valSpan)
	default:
		style.Metadata[key] = val
		p.report(types.SeverityInfo, types.DiagUnknownStyleKey, keySpan,
			fmt.Sprintf("unknown element style key %q kept as metadata", key))
	}
}

func (p *Parser) parseRelationshipStyle() *ast.RelationshipStyleNode {
	kw := p.advance()
	tag, _, _ := p.stringValue("relationship style tag")
	style := &ast.RelationshipStyleNode{Tag: tag, Metadata: make(map[string]string), Span: kw.Span}

	if _, ok := p.consume(lexer.TokLBrace, "relationship style body"); !ok {
		return style
	}
	p.pushContextData(ctxStyle, "tag", tag)
	defer p.popContext()

	for !p.isEOF() && !p.check(lexer.TokRBrace) {
		before := p.pos
		key := p.peek()
		if !key.Kind.IsNameLike() {
			p.report(types.SeverityError, types.DiagParseError, key.Span,
				fmt.Sprintf("expected a style key, found %s", p.describe(key)))
			p.advance()
			continue
		}
		p.advance()
		keyText := p.refTokenText(key)
		val, valSpan, ok := p.propertyValue()
		if ok {
			p.applyRelationshipStyleKey(style, key.Span, keyText, val, valSpan)
		}
		if p.pos == before {
			p.advance()
		}
	}
	p.consume(lexer.TokRBrace, "relationship style closing brace")
	style.Span = types.NewSpan(kw.Span.Start, p.previous().Span.End)
	return style
}

func (p *Parser) applyRelationshipStyleKey(style *ast.RelationshipStyleNode, keySpan types.Span, key, val string, valSpan types.Span) {
	switch strings.ToLower(key) {
	case "thickness":
		style.Thickness = p.intFromString(val, valSpan)
	case "color", "colour":
		style.Color = val
	case "style":
		style.Style = val
	case "routing":
		style.Routing = val
	case "fontsize":
		style.FontSize = p.intFromString(val, valSpan)
	case "width":
		style.Width = p.intFromString(val, valSpan)
	case "position":
		style.Position = p.intFromString(val, valSpan)
	case "opacity":
		style.Opacity = p.intFromString(val, valSpan)
	default:
		style.Metadata[key] = val
		p.report(types.SeverityInfo, types.DiagUnknownStyleKey, keySpan,
			fmt.Sprintf("unknown relationship style key %q kept as metadata", key))
	}
}

// === Other workspace sections ===

func (p *Parser) parseThemes(w *ast.WorkspaceNode) {
	kw := p.advance() // 'theme' or 'themes'
	count := 0
	for p.sameLine() {
		tok := p.peek()
		if tok.Kind != lexer.TokString && tok.Kind != lexer.TokIdent {
			break
		}
		p.advance()
		w.Themes = append(w.Themes, ast.ThemeNode{URL: p.refTokenText(tok), Span: tok.Span})
		count++
	}
	if count == 0 {
		p.report(types.SeverityError, types.DiagParseError, kw.Span,
			"theme requires at least one URL")
	}
}

func (p *Parser) parseBranding(w *ast.WorkspaceNode) {
	p.pushContext(ctxBranding)
	defer p.popContext()

	kw := p.advance()
	b := w.Branding
	if b == nil {
		b = &ast.BrandingNode{Span: kw.Span}
		w.Branding = b
	}

	if _, ok := p.consume(lexer.TokLBrace, "branding body"); !ok {
		return
	}
	for !p.isEOF() && !p.check(lexer.TokRBrace) {
		before := p.pos
		tok := p.peek()
		switch tok.Kind {
		case lexer.TokKwLogo:
			p.advance()
			if v, _, ok := p.stringValue("logo"); ok {
				b.Logo = v
			}
		case lexer.TokKwFont:
			p.advance()
			if v, _, ok := p.stringValue("font"); ok {
				b.Font = v
			}
		case lexer.TokError:
			p.advance()
		default:
			p.report(types.SeverityError, types.DiagUnknownKeyword, tok.Span,
				fmt.Sprintf("unexpected %s in branding", p.describe(tok)))
			p.advance()
		}
		if p.pos == before {
			p.advance()
		}
	}
	p.consume(lexer.TokRBrace, "branding closing brace")
}

func (p *Parser) parseTerminology(w *ast.WorkspaceNode) {
	p.pushContext(ctxTerminology)
	defer p.popContext()

	kw := p.advance()
	t := w.Terminology
	if t == nil {
		t = &ast.TerminologyNode{Overrides: make(map[string]string), Span: kw.Span}
		w.Terminology = t
	}
	t.Overrides = p.parseKVBlock("terminology block", t.Overrides)
}

func (p *Parser) parseConfiguration(w *ast.WorkspaceNode) {
	p.pushContext(ctxConfiguration)
	defer p.popContext()

	p.advance()
	w.Configuration = p.parseKVBlock("configuration block", w.Configuration)
}

// parseKVBlock parses a braced block of key/value pairs. '=' and ':'
// separators between key and value are tolerated.
func (p *Parser) parseKVBlock(what string, into map[string]string) map[string]string {
	if into == nil {
		into = make(map[string]string)
	}
	if _, ok := p.consume(lexer.TokLBrace, what); !ok {
		return into
	}
	for !p.isEOF() && !p.check(lexer.TokRBrace) {
		before := p.pos
		key := p.peek()
		if !key.Kind.IsNameLike() {
			p.report(types.SeverityError, types.DiagBadPropertyKey, key.Span,
				fmt.Sprintf("expected a key in %s, found %s", what, p.describe(key)))
			p.advance()
			continue
		}
		p.advance()
		keyText := p.refTokenText(key)
		if p.check(lexer.TokEquals) || p.check(lexer.TokColon) {
			p.advance()
		}
		if val, _, ok := p.propertyValue(); ok {
			into[keyText] = val
		}
		if p.pos == before {
			p.advance()
		}
	}
	p.consume(lexer.TokRBrace, what+" closing brace")
	return into
}

// === Directives ===

func (p *Parser) parseDirective() {
	tok := p.advance() // TokDirective
	name := strings.ToLower(strings.TrimPrefix(p.tokenText(tok), "!"))
	switch name {
	case "include":
		p.parseIncludeDirective(tok)
	case "identifiers", "impliedrelationships":
		if p.sameLine() {
			if val, _, ok := p.propertyValue(); ok && p.ws != nil {
				p.ws.Configuration[name] = val
			}
		}
	case "docs", "adrs", "constant":
		p.skipDirectiveArgs()
	default:
		p.report(types.SeverityWarning, types.DiagMalformedDirective, tok.Span,
			fmt.Sprintf("unknown directive %q ignored", "!"+name))
		p.skipDirectiveArgs()
	}
}

func (p *Parser) skipDirectiveArgs() {
	for !p.isEOF() && p.sameLine() && !p.check(lexer.TokLBrace) && !p.check(lexer.TokRBrace) {
		p.advance()
	}
}

// parseIncludeDirective records a file include. Unquoted paths are
// spliced from the raw source text of all same-line tokens, so paths
// with dots, dashes and slashes survive tokenization.
func (p *Parser) parseIncludeDirective(tok lexer.Token) {
	if p.ws == nil {
		p.skipDirectiveArgs()
		return
	}
	if !p.sameLine() || p.check(lexer.TokRBrace) || p.isEOF() {
		p.report(types.SeverityError, types.DiagMalformedDirective, tok.Span,
			"!include requires a file path")
		return
	}

	first := p.peek()
	if first.Kind == lexer.TokString {
		p.advance()
		path := p.stringText(first)
		if path == "" {
			p.report(types.SeverityError, types.DiagMalformedDirective, first.Span,
				"!include requires a non-empty file path")
			return
		}
		p.ws.Includes = append(p.ws.Includes, ast.IncludeFileNode{Path: path, Span: first.Span})
		return
	}

	end := first.Span
	for !p.isEOF() && p.sameLine() && !p.check(lexer.TokRBrace) {
		end = p.advance().Span
	}
	span := types.NewSpan(first.Span.Start, end.End)
	path := strings.TrimSpace(p.text(span))
	if path == "" {
		p.report(types.SeverityError, types.DiagMalformedDirective, tok.Span,
			"!include requires a file path")
		return
	}
	p.ws.Includes = append(p.ws.Includes, ast.IncludeFileNode{Path: path, Span: span})
}
