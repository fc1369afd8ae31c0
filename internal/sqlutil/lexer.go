// Package sqlutil provides the SQL tokenizer and text-editing helpers shared by
// the validator and the dialect adapter.
package sqlutil

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// TokenKind classifies a lexical token.
type TokenKind int

const (
	Word TokenKind = iota
	QuotedIdent
	String
	Number
	Placeholder
	Operator
	LParen
	RParen
	Comma
	Dot
	Semicolon
	LineComment
	BlockComment
)

var kindNames = map[TokenKind]string{
	Word:         "word",
	QuotedIdent:  "quoted identifier",
	String:       "string",
	Number:       "number",
	Placeholder:  "placeholder",
	Operator:     "operator",
	LParen:       "(",
	RParen:       ")",
	Comma:        ",",
	Dot:          ".",
	Semicolon:    ";",
	LineComment:  "line comment",
	BlockComment: "block comment",
}

func (k TokenKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("TokenKind(%d)", int(k))
}

// Token is a lexical unit of SQL text. Whitespace is not emitted; Pos and End
// are byte offsets into the original input so callers can splice edits back in.
type Token struct {
	Kind TokenKind
	// Text is the raw source text of the token.
	Text string
	// Value is the upper-cased text for words, the unescaped content for
	// strings and quoted identifiers, and Text otherwise.
	Value string
	// Quote is the opening quote character of strings and quoted identifiers,
	// or 'q' for Oracle alternative-quoted literals.
	Quote rune
	// Depth is the parenthesis nesting level the token sits at.
	Depth int
	Pos   int
	End   int
}

// IsKeyword reports whether the token is the given bare word (case-insensitive).
func (t Token) IsKeyword(kw string) bool {
	return t.Kind == Word && t.Value == strings.ToUpper(kw)
}

// IsComment reports whether the token is a line or block comment.
func (t Token) IsComment() bool {
	return t.Kind == LineComment || t.Kind == BlockComment
}

// LexError reports input that cannot be tokenized.
type LexError struct {
	Pos    int
	Reason string
}

func (e *LexError) Error() string {
	return fmt.Sprintf("sql lex error at offset %d: %s", e.Pos, e.Reason)
}

const eof = -1

// Lexer tokenizes SQL input.
type Lexer struct {
	input   string
	pos     int  // offset of ch
	readPos int  // offset after ch
	ch      rune // current rune, eof at end
	depth   int
}

// NewLexer creates a new Lexer for the given input.
func NewLexer(input string) *Lexer {
	l := &Lexer{input: input}
	l.readChar()
	return l
}

// Tokenize splits sql into tokens. It fails on unterminated strings, quoted
// identifiers or comments, unbalanced parentheses, control characters and
// characters that have no meaning in SQL.
func Tokenize(sql string) ([]Token, error) {
	return NewLexer(sql).Tokenize()
}

// Tokenize consumes the whole input. On error the tokens read before the
// failure are returned with it.
func (l *Lexer) Tokenize() ([]Token, error) {
	var tokens []Token
	for {
		tok, ok, err := l.next()
		if err != nil {
			return tokens, err
		}
		if !ok {
			break
		}
		tokens = append(tokens, tok)
	}
	if l.depth != 0 {
		return tokens, &LexError{Pos: len(l.input), Reason: "unbalanced parenthesis"}
	}
	return tokens, nil
}

func (l *Lexer) readChar() {
	l.pos = l.readPos
	if l.readPos >= len(l.input) {
		l.ch = eof
		return
	}
	r, size := utf8.DecodeRuneInString(l.input[l.readPos:])
	l.ch = r
	l.readPos += size
}

func (l *Lexer) peekChar() rune {
	if l.readPos >= len(l.input) {
		return eof
	}
	r, _ := utf8.DecodeRuneInString(l.input[l.readPos:])
	return r
}

func (l *Lexer) token(kind TokenKind, start int, value string) Token {
	text := l.input[start:l.pos]
	if value == "" && kind != String && kind != QuotedIdent {
		value = text
	}
	return Token{Kind: kind, Text: text, Value: value, Depth: l.depth, Pos: start, End: l.pos}
}

func (l *Lexer) errorf(pos int, format string, args ...interface{}) error {
	return &LexError{Pos: pos, Reason: fmt.Sprintf(format, args...)}
}

func (l *Lexer) next() (Token, bool, error) {
	for l.ch != eof && unicode.IsSpace(l.ch) {
		l.readChar()
	}
	if l.ch == eof {
		return Token{}, false, nil
	}

	start := l.pos
	switch {
	case l.ch == utf8.RuneError:
		return Token{}, false, l.errorf(start, "invalid utf-8")
	case unicode.IsControl(l.ch):
		return Token{}, false, l.errorf(start, "control character %U", l.ch)
	case l.ch == '-' && l.peekChar() == '-', l.ch == '#':
		for l.ch != eof && l.ch != '\n' {
			l.readChar()
		}
		return l.token(LineComment, start, ""), true, nil
	case l.ch == '/' && l.peekChar() == '*':
		if err := l.readBlockComment(start); err != nil {
			return Token{}, false, err
		}
		return l.token(BlockComment, start, ""), true, nil
	case l.ch == '\'':
		value, err := l.readQuoted('\'', "string literal")
		if err != nil {
			return Token{}, false, err
		}
		tok := l.token(String, start, value)
		tok.Value, tok.Quote = value, '\''
		return tok, true, nil
	case l.ch == '"' || l.ch == '`':
		quote := l.ch
		value, err := l.readQuoted(quote, "quoted identifier")
		if err != nil {
			return Token{}, false, err
		}
		tok := l.token(QuotedIdent, start, value)
		tok.Value, tok.Quote = value, quote
		return tok, true, nil
	case l.ch == '$':
		return l.readDollar(start)
	case l.ch == '?':
		l.readChar()
		return l.token(Placeholder, start, ""), true, nil
	case l.ch == ':':
		return l.readColon(start)
	case isDigit(l.ch), l.ch == '.' && isDigit(l.peekChar()):
		l.readNumber()
		return l.token(Number, start, ""), true, nil
	case isIdentStart(l.ch):
		for isIdentPart(l.ch) {
			l.readChar()
		}
		word := strings.ToUpper(l.input[start:l.pos])
		if (word == "Q" || word == "NQ") && l.ch == '\'' {
			return l.readAltQuoted(start)
		}
		return l.token(Word, start, word), true, nil
	}

	switch l.ch {
	case '(':
		l.readChar()
		tok := l.token(LParen, start, "")
		l.depth++
		return tok, true, nil
	case ')':
		if l.depth == 0 {
			return Token{}, false, l.errorf(start, "unbalanced parenthesis")
		}
		l.depth--
		l.readChar()
		return l.token(RParen, start, ""), true, nil
	case ',':
		l.readChar()
		return l.token(Comma, start, ""), true, nil
	case '.':
		l.readChar()
		return l.token(Dot, start, ""), true, nil
	case ';':
		l.readChar()
		return l.token(Semicolon, start, ""), true, nil
	}

	if strings.ContainsRune(operatorChars, l.ch) {
		l.readOperator()
		return l.token(Operator, start, ""), true, nil
	}
	return Token{}, false, l.errorf(start, "unexpected character %q", l.ch)
}

const operatorChars = "+-*/%=<>!|&^~@[]{}"

// twoCharOperators are combined into a single token; anything else is one rune.
var twoCharOperators = map[string]bool{
	"<=": true, ">=": true, "<>": true, "!=": true, "||": true,
	"->": true, "=>": true, "<<": true, ">>": true, "&&": true, "@@": true,
}

func (l *Lexer) readOperator() {
	first := l.ch
	l.readChar()
	if l.ch == eof {
		return
	}
	if twoCharOperators[string([]rune{first, l.ch})] {
		second := l.ch
		l.readChar()
		// ->> is the Postgres/MySQL JSON text accessor.
		if first == '-' && second == '>' && l.ch == '>' {
			l.readChar()
		}
	}
}

func (l *Lexer) readBlockComment(start int) error {
	depth := 0
	for {
		switch {
		case l.ch == eof:
			return l.errorf(start, "unterminated block comment")
		case l.ch == '/' && l.peekChar() == '*':
			depth++
			l.readChar()
			l.readChar()
		case l.ch == '*' && l.peekChar() == '/':
			depth--
			l.readChar()
			l.readChar()
			if depth == 0 {
				return nil
			}
		default:
			l.readChar()
		}
	}
}

// readQuoted reads a quote-delimited run where a doubled quote escapes itself.
func (l *Lexer) readQuoted(quote rune, what string) (string, error) {
	start := l.pos
	l.readChar() // opening quote

	var b strings.Builder
	for {
		switch l.ch {
		case eof:
			return "", l.errorf(start, "unterminated %s", what)
		case quote:
			l.readChar()
			if l.ch != quote {
				return b.String(), nil
			}
			b.WriteRune(quote)
			l.readChar()
		default:
			b.WriteRune(l.ch)
			l.readChar()
		}
	}
}

// altQuoteClosers pairs the bracketing delimiters of Oracle q'...' literals.
// Any other delimiter closes itself.
var altQuoteClosers = map[rune]rune{'[': ']', '{': '}', '(': ')', '<': '>'}

// readAltQuoted reads an Oracle alternative-quoted literal, q'[...]' or
// nq'{...}'. The body ends at the closing delimiter followed by a quote and
// may contain bare quotes.
func (l *Lexer) readAltQuoted(start int) (Token, bool, error) {
	l.readChar() // opening quote
	open := l.ch
	if open == eof || open == '\'' || unicode.IsSpace(open) {
		return Token{}, false, l.errorf(start, "invalid alternative quote delimiter")
	}
	closer, ok := altQuoteClosers[open]
	if !ok {
		closer = open
	}
	l.readChar()

	bodyStart := l.pos
	for {
		if l.ch == eof {
			return Token{}, false, l.errorf(start, "unterminated quoted literal")
		}
		if l.ch == closer && l.peekChar() == '\'' {
			body := l.input[bodyStart:l.pos]
			l.readChar()
			l.readChar()
			tok := l.token(String, start, body)
			tok.Value, tok.Quote = body, 'q'
			return tok, true, nil
		}
		l.readChar()
	}
}

// readDollar handles $n placeholders and $tag$...$tag$ dollar-quoted strings.
func (l *Lexer) readDollar(start int) (Token, bool, error) {
	l.readChar() // $
	if isDigit(l.ch) {
		for isDigit(l.ch) {
			l.readChar()
		}
		return l.token(Placeholder, start, ""), true, nil
	}

	for l.ch != '$' {
		if !isIdentStart(l.ch) && !(l.pos > start+1 && isDigit(l.ch)) {
			return Token{}, false, l.errorf(start, "unexpected character '$'")
		}
		l.readChar()
	}
	l.readChar() // closing $ of the tag
	tag := l.input[start:l.pos]

	end := strings.Index(l.input[l.pos:], tag)
	if end < 0 {
		return Token{}, false, l.errorf(start, "unterminated dollar-quoted string")
	}
	body := l.input[l.pos : l.pos+end]
	l.readPos = l.pos + end + len(tag)
	l.readChar()

	tok := l.token(String, start, body)
	tok.Value, tok.Quote = body, '$'
	return tok, true, nil
}

// readColon separates the :: cast operator from :1 and :name placeholders.
func (l *Lexer) readColon(start int) (Token, bool, error) {
	l.readChar() // :
	switch {
	case l.ch == ':':
		l.readChar()
		return l.token(Operator, start, ""), true, nil
	case l.ch == '=':
		l.readChar()
		return l.token(Operator, start, ""), true, nil
	case isDigit(l.ch) || isIdentStart(l.ch):
		for isIdentPart(l.ch) {
			l.readChar()
		}
		return l.token(Placeholder, start, ""), true, nil
	default:
		return l.token(Operator, start, ""), true, nil
	}
}

func (l *Lexer) readNumber() {
	for isDigit(l.ch) {
		l.readChar()
	}
	if l.ch == '.' && isDigit(l.peekChar()) {
		l.readChar()
		for isDigit(l.ch) {
			l.readChar()
		}
	}
	if l.ch == 'e' || l.ch == 'E' {
		next := l.peekChar()
		if isDigit(next) || next == '+' || next == '-' {
			l.readChar()
			if l.ch == '+' || l.ch == '-' {
				l.readChar()
			}
			for isDigit(l.ch) {
				l.readChar()
			}
		}
	}
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

func isIdentStart(r rune) bool {
	return r == '_' || unicode.IsLetter(r)
}

func isIdentPart(r rune) bool {
	return r == '_' || r == '$' || unicode.IsLetter(r) || unicode.IsDigit(r)
}
