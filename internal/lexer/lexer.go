package lexer

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/structviz/godsl/internal/types"
)

// Lexer tokenizes Structurizr DSL source text. It never aborts on
// malformed input: lexical problems are recorded as diagnostics and
// scanning continues so the parser can still produce a partial AST.
type Lexer struct {
	source      []byte
	pos         int
	diagnostics []types.SpanDiagnostic

	// pathNext is set after an '!include' directive: the rest of the
	// line is scanned as a single path token, so unquoted paths with
	// slashes survive tokenization.
	pathNext bool

	types.Logger
}

// New returns a Lexer that tokenizes the given source bytes.
// Pass nil for logger to disable logging.
func New(source []byte, logger *slog.Logger) *Lexer {
	l := &Lexer{
		source: source,
		Logger: types.Logger{L: logger},
	}
	l.Log(slog.LevelDebug, "lexer initialized", slog.Int("bytes", len(source)))
	return l
}

// Diagnostics returns a copy of all collected diagnostics.
func (l *Lexer) Diagnostics() []types.SpanDiagnostic {
	return slices.Clone(l.diagnostics)
}

// Tokenize consumes all source text and returns the token stream along
// with any diagnostics generated during lexing. The stream always ends
// with a TokEOF sentinel so downstream lookahead never runs off the end.
func (l *Lexer) Tokenize() ([]Token, []types.SpanDiagnostic) {
	estimatedTokens := max(len(l.source)/6, 64)
	tokens := make([]Token, 0, estimatedTokens)
	for {
		tok := l.NextToken()
		tokens = append(tokens, tok)
		if tok.Kind == TokEOF {
			break
		}
	}
	l.Log(slog.LevelDebug, "tokenization complete",
		slog.Int("tokens", len(tokens)),
		slog.Int("diagnostics", len(l.diagnostics)))
	return tokens, l.diagnostics
}

// NextToken advances the lexer and returns the next token.
// Returns TokEOF when all input is consumed.
func (l *Lexer) NextToken() Token {
	for {
		tok, retry := l.nextToken()
		if retry {
			continue
		}
		l.traceToken(tok)
		return tok
	}
}

func (l *Lexer) traceToken(tok Token) {
	if l.TraceEnabled() {
		l.Trace("token",
			slog.String("kind", tok.Kind.Name()),
			slog.Int("start", int(tok.Span.Start)),
			slog.Int("end", int(tok.Span.End)))
	}
}

func (l *Lexer) peek() (byte, bool) {
	if l.pos >= len(l.source) {
		return 0, false
	}
	return l.source[l.pos], true
}

func (l *Lexer) peekAt(offset int) (byte, bool) {
	idx := l.pos + offset
	if idx >= len(l.source) {
		return 0, false
	}
	return l.source[idx], true
}

func (l *Lexer) advance() (byte, bool) {
	if l.pos >= len(l.source) {
		return 0, false
	}
	b := l.source[l.pos]
	l.pos++
	return b, true
}

func (l *Lexer) skipWhitespace() {
	for {
		b, ok := l.peek()
		if !ok {
			return
		}
		if b == ' ' || b == '\t' || b == '\r' || b == '\n' {
			l.advance()
		} else {
			return
		}
	}
}

func (l *Lexer) skipToEOL() {
	for {
		b, ok := l.peek()
		if !ok || b == '\n' {
			return
		}
		l.advance()
	}
}

func (l *Lexer) error(code string, span types.Span, message string) {
	l.diagnostics = append(l.diagnostics, types.SpanDiagnostic{
		Severity: types.SeverityError,
		Code:     code,
		Span:     span,
		Message:  message,
	})
}

func (l *Lexer) spanFrom(start int) types.Span {
	return types.NewSpan(types.ByteOffset(start), types.ByteOffset(l.pos))
}

func (l *Lexer) token(kind TokenKind, start int) Token {
	return Token{Kind: kind, Span: l.spanFrom(start)}
}

// nextToken scans the next token. Returns (token, retry) where
// retry=true means the caller should loop (e.g. after skipping a
// comment or junk input).
func (l *Lexer) nextToken() (Token, bool) {
	if l.pathNext {
		l.pathNext = false
		if tok, ok := l.scanIncludePath(); ok {
			return tok, false
		}
	}

	l.skipWhitespace()

	start := l.pos

	b, ok := l.peek()
	if !ok {
		return l.token(TokEOF, start), false
	}

	// Comments: '//' and '#' to end of line, '/* */' block.
	if b == '/' {
		if next, ok := l.peekAt(1); ok {
			if next == '/' {
				l.skipToEOL()
				return Token{}, true
			}
			if next == '*' {
				l.skipBlockComment(start)
				return Token{}, true
			}
		}
	}
	if b == '#' {
		l.skipToEOL()
		return Token{}, true
	}

	switch b {
	case '{':
		l.advance()
		return l.token(TokLBrace, start), false
	case '}':
		l.advance()
		return l.token(TokRBrace, start), false
	case '=':
		l.advance()
		return l.token(TokEquals, start), false
	case ',':
		l.advance()
		return l.token(TokComma, start), false
	case ':':
		l.advance()
		return l.token(TokColon, start), false
	case ';':
		l.advance()
		return l.token(TokSemicolon, start), false
	case '*':
		l.advance()
		return l.token(TokStar, start), false
	}

	if b == '-' {
		if next, ok := l.peekAt(1); ok {
			if next == '>' {
				l.advance()
				l.advance()
				return l.token(TokArrow, start), false
			}
			if isDigit(next) {
				return l.scanNumber(), false
			}
		}
	}

	if b == '!' {
		return l.scanDirective(), false
	}

	if isDigit(b) {
		return l.scanNumber(), false
	}

	if b == '"' {
		return l.scanQuotedString(), false
	}

	if isAlpha(b) || b == '_' {
		return l.scanIdentifierOrKeyword(), false
	}

	l.advance()
	span := l.spanFrom(start)
	l.error(types.DiagUnexpectedCharacter, span,
		fmt.Sprintf("unexpected character: %q", b))
	return Token{}, true
}

// skipBlockComment consumes '/* ... */'. An unterminated block comment
// runs to EOF and is reported.
func (l *Lexer) skipBlockComment(start int) {
	l.advance() // '/'
	l.advance() // '*'
	for {
		b, ok := l.peek()
		if !ok {
			l.error(types.DiagUnterminatedComment, l.spanFrom(start),
				"unterminated block comment")
			return
		}
		if b == '*' {
			if next, ok := l.peekAt(1); ok && next == '/' {
				l.advance()
				l.advance()
				return
			}
		}
		l.advance()
	}
}

// scanDirective scans '!' plus an identifier tail ('!include', '!docs').
// A bare '!' with no tail is reported as malformed.
func (l *Lexer) scanDirective() Token {
	start := l.pos
	l.advance() // '!'

	b, ok := l.peek()
	if !ok || !(isAlpha(b) || b == '_') {
		span := l.spanFrom(start)
		l.error(types.DiagMalformedDirective, span, "expected directive name after '!'")
		return l.token(TokError, start)
	}

	for {
		b, ok := l.peek()
		if !ok || !(isAlphanumeric(b) || b == '_') {
			break
		}
		l.advance()
	}

	if equalsFold(l.source[start:l.pos], "!include") {
		l.pathNext = true
	}

	return l.token(TokDirective, start)
}

// scanIncludePath scans the remainder of the current line as one path
// token. Quoted paths go through the normal string scanner; unquoted
// paths run to the next whitespace. Returns ok=false when the line ends
// with no path.
func (l *Lexer) scanIncludePath() (Token, bool) {
	for {
		b, ok := l.peek()
		if !ok || !(b == ' ' || b == '\t' || b == '\r') {
			break
		}
		l.advance()
	}

	b, ok := l.peek()
	if !ok || b == '\n' {
		return Token{}, false
	}
	if b == '"' {
		return l.scanQuotedString(), true
	}
	if b == '{' || b == '}' {
		return Token{}, false
	}

	start := l.pos
	for {
		b, ok := l.peek()
		if !ok || b == ' ' || b == '\t' || b == '\r' || b == '\n' {
			break
		}
		l.advance()
	}
	return l.token(TokIdent, start), true
}

func equalsFold(b []byte, s string) bool {
	if len(b) != len(s) {
		return false
	}
	for i := 0; i < len(b); i++ {
		c, d := b[i], s[i]
		if 'A' <= c && c <= 'Z' {
			c += 'a' - 'A'
		}
		if 'A' <= d && d <= 'Z' {
			d += 'a' - 'A'
		}
		if c != d {
			return false
		}
	}
	return true
}

// scanNumber scans an integer or double literal, with optional leading '-'.
func (l *Lexer) scanNumber() Token {
	start := l.pos

	if b, ok := l.peek(); ok && b == '-' {
		l.advance()
	}

	for {
		b, ok := l.peek()
		if !ok || !isDigit(b) {
			break
		}
		l.advance()
	}

	kind := TokInteger
	if b, ok := l.peek(); ok && b == '.' {
		if next, ok := l.peekAt(1); ok && isDigit(next) {
			kind = TokDouble
			l.advance() // '.'
			for {
				b, ok := l.peek()
				if !ok || !isDigit(b) {
					break
				}
				l.advance()
			}
		}
	}

	// Trailing identifier chars make this a malformed number ("12abc").
	if b, ok := l.peek(); ok && (isAlpha(b) || b == '_') {
		for {
			b, ok := l.peek()
			if !ok || !(isAlphanumeric(b) || b == '_') {
				break
			}
			l.advance()
		}
		span := l.spanFrom(start)
		l.error(types.DiagMalformedNumber, span,
			fmt.Sprintf("malformed number: %q", string(l.source[start:l.pos])))
		return l.token(TokError, start)
	}

	return l.token(kind, start)
}

// scanQuotedString scans a double-quoted string literal. No escape
// processing is performed; the literal content is taken as-is. A string
// terminated by end of line or EOF is reported but still produces a
// TokString so the parser can continue.
func (l *Lexer) scanQuotedString() Token {
	start := l.pos
	l.advance() // consume opening quote

	for {
		b, ok := l.peek()
		if !ok || b == '\n' {
			span := l.spanFrom(start)
			l.error(types.DiagUnterminatedString, span, "unterminated string literal")
			return l.token(TokString, start)
		}
		if b == '"' {
			l.advance()
			return l.token(TokString, start)
		}
		l.advance()
	}
}

// scanIdentifierOrKeyword scans an identifier, keyword, or boolean.
// Identifiers may contain dots (hierarchical references like a.b.c) and
// hyphens, except a hyphen that starts an arrow.
func (l *Lexer) scanIdentifierOrKeyword() Token {
	start := l.pos
	l.advance()

	for {
		b, ok := l.peek()
		if !ok {
			break
		}
		if isAlphanumeric(b) || b == '_' || b == '.' {
			l.advance()
		} else if b == '-' {
			if next, ok := l.peekAt(1); ok && next == '>' {
				break
			}
			l.advance()
		} else {
			break
		}
	}

	text := string(l.source[start:l.pos])

	if text == "true" || text == "false" {
		return l.token(TokBoolean, start)
	}

	if kind, ok := LookupKeyword(text); ok {
		return l.token(kind, start)
	}

	return l.token(TokIdent, start)
}

// HasNewlineBetween reports whether a line break separates two spans in
// the source. The include resolver uses this to delimit '!include' paths,
// which run to end of line.
func HasNewlineBetween(source []byte, a, b types.Span) bool {
	lo, hi := int(a.End), int(b.Start)
	if lo > hi || hi > len(source) {
		return false
	}
	for _, c := range source[lo:hi] {
		if c == '\n' {
			return true
		}
	}
	return false
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}

func isAlpha(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

func isAlphanumeric(b byte) bool {
	return isAlpha(b) || isDigit(b)
}
