package composels

import (
	"io"
	"strings"
	"sync"

	"github.com/alecthomas/participle/v2/lexer"
)

// Token type constants - negative values as per participle convention.
// Every byte of the input belongs to exactly one token, so whitespace,
// newlines and comments are tokens too.
const (
	TokenEOF          lexer.TokenType = lexer.EOF
	TokenSpace        lexer.TokenType = -(iota + 2) //nolint:mnd // participle convention
	TokenNewline                                    // \n or \r\n
	TokenComment                                    // # to end of line
	TokenPlain                                      // plain scalar
	TokenSingleQuoted                               // 'scalar'
	TokenDoubleQuoted                               // "scalar"
	TokenColon                                      // mapping value indicator
	TokenDash                                       // sequence entry indicator
	TokenQuestion                                   // explicit key indicator
	TokenComma                                      // , inside flow collections
	TokenFlowMapStart                               // {
	TokenFlowMapEnd                                 // }
	TokenFlowSeqStart                               // [
	TokenFlowSeqEnd                                 // ]
	TokenAnchor                                     // &name
	TokenAlias                                      // *name
	TokenTag                                        // !tag
	TokenBlockScalar                                // | or > header with indicators
	TokenBlockText                                  // block scalar body
	TokenDocStart                                   // ---
	TokenDocEnd                                     // ...
	TokenDirective                                  // %YAML ...
)

// yamlDefinition implements lexer.Definition for YAML concrete syntax.
type yamlDefinition struct {
	symbols map[string]lexer.TokenType

	namesOnce sync.Once
	names     map[lexer.TokenType]string
}

func newYAMLLexer() *yamlDefinition {
	return &yamlDefinition{
		symbols: map[string]lexer.TokenType{
			"EOF":          TokenEOF,
			"Space":        TokenSpace,
			"Newline":      TokenNewline,
			"Comment":      TokenComment,
			"Plain":        TokenPlain,
			"SingleQuoted": TokenSingleQuoted,
			"DoubleQuoted": TokenDoubleQuoted,
			"Colon":        TokenColon,
			"Dash":         TokenDash,
			"Question":     TokenQuestion,
			"Comma":        TokenComma,
			"{":            TokenFlowMapStart,
			"}":            TokenFlowMapEnd,
			"[":            TokenFlowSeqStart,
			"]":            TokenFlowSeqEnd,
			"Anchor":       TokenAnchor,
			"Alias":        TokenAlias,
			"Tag":          TokenTag,
			"BlockScalar":  TokenBlockScalar,
			"BlockText":    TokenBlockText,
			"DocStart":     TokenDocStart,
			"DocEnd":       TokenDocEnd,
			"Directive":    TokenDirective,
		},
	}
}

var yamlLexer = newYAMLLexer()

// LexerDefinition returns the participle lexer definition for YAML CST tokens.
func LexerDefinition() lexer.Definition {
	return yamlLexer
}

// Symbols returns the mapping of symbol names to token types.
func (d *yamlDefinition) Symbols() map[string]lexer.TokenType {
	return d.symbols
}

// Lex creates a new Lexer for the given reader.
//
//nolint:ireturn // Required by participle's lexer.Definition interface.
func (d *yamlDefinition) Lex(filename string, r io.Reader) (lexer.Lexer, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	return d.LexString(filename, string(data))
}

// LexString implements lexer.StringDefinition.
//
//nolint:ireturn // Required by participle's lexer.StringDefinition interface.
func (d *yamlDefinition) LexString(filename string, input string) (lexer.Lexer, error) {
	return &tokenStream{tokens: tokenize(filename, input)}, nil
}

// TokenName returns the symbolic name of a token type, e.g. "Colon".
func TokenName(t lexer.TokenType) string {
	yamlLexer.namesOnce.Do(func() {
		yamlLexer.names = lexer.SymbolsByRune(yamlLexer)
	})

	if name, ok := yamlLexer.names[t]; ok {
		return name
	}

	return "Unknown"
}

// Tokenize splits input into CST tokens. The result always ends with an EOF
// token and the token values concatenate back to the input.
func Tokenize(input string) []lexer.Token {
	return tokenize("", input)
}

// tokenStream replays a token slice through the lexer.Lexer interface.
type tokenStream struct {
	tokens []lexer.Token
	next   int
}

func (s *tokenStream) Next() (lexer.Token, error) {
	if s.next >= len(s.tokens) {
		return s.tokens[len(s.tokens)-1], nil
	}

	tok := s.tokens[s.next]
	s.next++

	return tok, nil
}

// lexerState holds the state for lexing.
type lexerState struct {
	input string
	pos   lexer.Position

	flowDepth   int
	flowIndent  int
	lineStart   bool
	lineIndent  int
	lastSig     lexer.TokenType
	pendingBody bool
	bodyIndent  int

	tokens []lexer.Token
}

func tokenize(filename, input string) []lexer.Token {
	l := &lexerState{
		input:      input,
		pos:        lexer.Position{Filename: filename, Line: 1, Column: 1},
		lineStart:  true,
		lineIndent: leadingSpaces(input),
		lastSig:    TokenEOF,
	}

	for l.pos.Offset < len(l.input) {
		l.lexToken()
	}

	l.tokens = append(l.tokens, lexer.EOFToken(l.pos))

	return l.tokens
}

func (l *lexerState) emit(typ lexer.TokenType, n int) {
	value := l.input[l.pos.Offset : l.pos.Offset+n]
	l.tokens = append(l.tokens, lexer.Token{Type: typ, Value: value, Pos: l.pos})
	l.pos.Advance(value)

	switch typ {
	case TokenSpace, TokenComment:
	case TokenNewline:
		l.lineStart = true
		l.lineIndent = leadingSpaces(l.input[l.pos.Offset:])
		l.closeAbandonedFlow()
	default:
		l.lineStart = false
		l.lastSig = typ
	}
}

func (l *lexerState) lexToken() {
	rest := l.input[l.pos.Offset:]
	c := rest[0]

	switch {
	case c == '\n':
		l.emit(TokenNewline, 1)
		l.lexBlockBody()
	case c == '\r' && len(rest) > 1 && rest[1] == '\n':
		l.emit(TokenNewline, 2) //nolint:mnd // \r\n
		l.lexBlockBody()
	case c == ' ' || c == '\t' || c == '\r':
		l.emit(TokenSpace, spanWhile(rest, isBlankByte))
	case c == '#':
		l.emit(TokenComment, lineLength(rest))
	case l.lineStart && l.pos.Column == 1 && isDocMarker(rest, "---"):
		l.emit(TokenDocStart, 3) //nolint:mnd // len("---")
	case l.lineStart && l.pos.Column == 1 && isDocMarker(rest, "..."):
		l.emit(TokenDocEnd, 3) //nolint:mnd // len("...")
	case c == '%' && l.lineStart && l.pos.Column == 1 && l.flowDepth == 0:
		l.emit(TokenDirective, lineLength(rest))
	case c == '-' && l.flowDepth == 0 && isIndicatorEnd(rest, 1, false):
		l.emit(TokenDash, 1)
	case c == '?' && isIndicatorEnd(rest, 1, l.flowDepth > 0):
		l.emit(TokenQuestion, 1)
	case c == ':' && l.isColon(rest):
		l.emit(TokenColon, 1)
	case c == '{' || c == '[':
		if l.flowDepth == 0 {
			l.flowIndent = l.lineIndent
		}

		l.flowDepth++
		if c == '{' {
			l.emit(TokenFlowMapStart, 1)
		} else {
			l.emit(TokenFlowSeqStart, 1)
		}
	case (c == '}' || c == ']') && l.flowDepth > 0:
		l.flowDepth--
		if c == '}' {
			l.emit(TokenFlowMapEnd, 1)
		} else {
			l.emit(TokenFlowSeqEnd, 1)
		}
	case c == ',' && l.flowDepth > 0:
		l.emit(TokenComma, 1)
	case c == '"':
		n, _ := scanDoubleQuoted(rest)
		l.emit(TokenDoubleQuoted, n)
	case c == '\'':
		n, _ := scanSingleQuoted(rest)
		l.emit(TokenSingleQuoted, n)
	case c == '&':
		l.emit(TokenAnchor, l.scanName(rest))
	case c == '*':
		l.emit(TokenAlias, l.scanName(rest))
	case c == '!':
		l.emit(TokenTag, l.scanName(rest))
	case (c == '|' || c == '>') && l.flowDepth == 0:
		n := 1
		for n < len(rest) && isBlockIndicator(rest[n]) {
			n++
		}

		l.emit(TokenBlockScalar, n)
		l.pendingBody = true
		l.bodyIndent = l.lineIndent
	default:
		l.emit(TokenPlain, l.scanPlain(rest))
	}
}

// lexBlockBody consumes the body of a block scalar once the header line ended.
// Body lines are blank or indented deeper than the header's line; the body
// token stops at the end of the last non-blank body line.
func (l *lexerState) lexBlockBody() {
	if !l.pendingBody {
		return
	}

	l.pendingBody = false

	rest := l.input[l.pos.Offset:]
	end := 0

	for i := 0; i < len(rest); {
		n := lineLength(rest[i:])
		line := rest[i : i+n]

		if strings.TrimLeft(line, " \t\r") != "" {
			if leadingSpaces(line) <= l.bodyIndent {
				break
			}

			end = i + len(strings.TrimRight(line, "\r"))
		}

		i += n
		if i < len(rest) {
			i++ // newline
		}
	}

	if end > 0 {
		l.emit(TokenBlockText, end)
	}
}

// closeAbandonedFlow leaves flow context when a new line starts at or left of
// the line that opened the outermost flow collection, so an unclosed bracket
// does not swallow the rest of the document.
func (l *lexerState) closeAbandonedFlow() {
	if l.flowDepth == 0 {
		return
	}

	line := l.input[l.pos.Offset:]
	line = line[:lineLength(line)]
	trimmed := strings.TrimLeft(line, " \t")

	if trimmed == "" || l.lineIndent > l.flowIndent {
		return
	}

	switch trimmed[0] {
	case '#', ']', '}', ',':
		return
	}

	l.flowDepth = 0
}

// isColon reports whether ':' at the start of rest is a mapping value indicator.
func (l *lexerState) isColon(rest string) bool {
	if isIndicatorEnd(rest, 1, l.flowDepth > 0) {
		return true
	}

	// JSON-like keys: "a":b and {a: b}:c
	switch l.lastSig {
	case TokenDoubleQuoted, TokenSingleQuoted, TokenFlowMapEnd, TokenFlowSeqEnd:
		return !l.lineStart
	}

	return false
}

func (l *lexerState) scanName(rest string) int {
	n := 1
	for n < len(rest) {
		c := rest[n]
		if isBlankByte(c) || c == '\n' || (l.flowDepth > 0 && isFlowIndicator(c)) {
			break
		}
		n++
	}

	return n
}

// scanPlain returns the length of the plain scalar at the start of rest,
// excluding trailing blanks.
func (l *lexerState) scanPlain(rest string) int {
	inFlow := l.flowDepth > 0
	n := 0

	for n < len(rest) {
		c := rest[n]
		if c == '\n' || (c == '\r' && n+1 < len(rest) && rest[n+1] == '\n') {
			break
		}

		if c == ':' && n > 0 && isIndicatorEnd(rest, n+1, inFlow) {
			break
		}

		if c == '#' && n > 0 && isBlankByte(rest[n-1]) {
			break
		}

		if inFlow && n > 0 && isFlowIndicator(c) {
			break
		}

		n++
	}

	for n > 1 && isBlankByte(rest[n-1]) {
		n--
	}

	return max(n, 1)
}

// scanDoubleQuoted returns the length of a double-quoted scalar and whether
// it is terminated. An unterminated scalar stops at the end of its line.
func scanDoubleQuoted(rest string) (int, bool) {
	for i := 1; i < len(rest); i++ {
		switch rest[i] {
		case '\\':
			if i+1 < len(rest) && rest[i+1] != '\n' {
				i++
			}
		case '"':
			return i + 1, true
		case '\n':
			return len(strings.TrimRight(rest[:i], "\r")), false
		}
	}

	return len(rest), false
}

// scanSingleQuoted returns the length of a single-quoted scalar and whether
// it is terminated. An unterminated scalar stops at the end of its line.
func scanSingleQuoted(rest string) (int, bool) {
	for i := 1; i < len(rest); i++ {
		switch rest[i] {
		case '\'':
			if i+1 < len(rest) && rest[i+1] == '\'' {
				i++
				continue
			}

			return i + 1, true
		case '\n':
			return len(strings.TrimRight(rest[:i], "\r")), false
		}
	}

	return len(rest), false
}

// quotedClosed reports whether a quoted scalar token is terminated.
func quotedClosed(value string) bool {
	var (
		n      int
		closed bool
	)

	if strings.HasPrefix(value, `"`) {
		n, closed = scanDoubleQuoted(value)
	} else {
		n, closed = scanSingleQuoted(value)
	}

	return closed && n == len(value)
}

// isIndicatorEnd reports whether the byte at rest[i] terminates an indicator:
// end of input, a blank, a line break, or (in flow context) a flow indicator.
func isIndicatorEnd(rest string, i int, inFlow bool) bool {
	if i >= len(rest) {
		return true
	}

	c := rest[i]

	return isBlankByte(c) || c == '\n' || c == '\r' || (inFlow && isFlowIndicator(c))
}

func isDocMarker(rest, marker string) bool {
	return strings.HasPrefix(rest, marker) && isIndicatorEnd(rest, len(marker), false)
}

func isBlankByte(c byte) bool {
	return c == ' ' || c == '\t'
}

func isFlowIndicator(c byte) bool {
	return c == ',' || c == '[' || c == ']' || c == '{' || c == '}'
}

func isBlockIndicator(c byte) bool {
	return c == '+' || c == '-' || (c >= '1' && c <= '9')
}

func spanWhile(s string, pred func(byte) bool) int {
	n := 0
	for n < len(s) && (pred(s[n]) || (s[n] == '\r' && (n+1 >= len(s) || s[n+1] != '\n'))) {
		n++
	}

	return n
}

// lineLength returns the length of the first line of s without its line break.
func lineLength(s string) int {
	n := strings.IndexByte(s, '\n')
	if n < 0 {
		return len(s)
	}

	if n > 0 && s[n-1] == '\r' {
		n--
	}

	return n
}

func leadingSpaces(s string) int {
	n := 0
	for n < len(s) && s[n] == ' ' {
		n++
	}

	return n
}
