package koto

// Scanner produces tokens on demand. It never buffers more than the token it
// is currently building.
type Scanner struct {
	source   string
	start    int
	currIdx  int
	line     int
	col      int
	startCol int
}

func NewScanner(source string) *Scanner {
	return &Scanner{
		source: source,
		line:   1,
		col:    1,
	}
}

func (s *Scanner) hasChar() bool {
	return s.currIdx < len(s.source)
}

func (s *Scanner) advance() byte {
	c := s.source[s.currIdx]
	s.currIdx++
	if c == '\n' {
		s.line++
		s.col = 1
	} else {
		s.col++
	}
	return c
}

func (s *Scanner) peek(offset int) byte {
	idx := s.currIdx + offset
	if idx < len(s.source) {
		return s.source[idx]
	}
	return 0
}

func (s *Scanner) match(expected byte) bool {
	if !s.hasChar() || s.source[s.currIdx] != expected {
		return false
	}
	s.advance()
	return true
}

func (s *Scanner) makeToken(kind TokenType) Token {
	return Token{
		Type:   kind,
		Lexeme: s.source[s.start:s.currIdx],
		Line:   s.line,
		Column: s.startCol,
	}
}

func (s *Scanner) errorToken(msg string) Token {
	return Token{
		Type:   TokenError,
		Lexeme: msg,
		Line:   s.line,
		Column: s.startCol,
	}
}

func (s *Scanner) skipWhitespace() {
	for s.hasChar() {
		switch s.peek(0) {
		case ' ', '\r', '\t', '\n':
			s.advance()
		case '/':
			if s.peek(1) != '/' {
				return
			}
			for s.hasChar() && s.peek(0) != '\n' {
				s.advance()
			}
		default:
			return
		}
	}
}

// ScanToken returns the next token. Once the end of input is reached every
// further call returns a TokenEOF.
func (s *Scanner) ScanToken() Token {
	s.skipWhitespace()
	s.start = s.currIdx
	s.startCol = s.col

	if !s.hasChar() {
		return s.makeToken(TokenEOF)
	}

	c := s.advance()
	if isAlpha(c) {
		return s.identifier()
	}
	if isDigit(c) {
		return s.number()
	}

	switch c {
	case '(':
		return s.makeToken(TokenLeftParen)
	case ')':
		return s.makeToken(TokenRightParen)
	case '{':
		return s.makeToken(TokenLeftBrace)
	case '}':
		return s.makeToken(TokenRightBrace)
	case ';':
		return s.makeToken(TokenSemicolon)
	case ',':
		return s.makeToken(TokenComma)
	case '.':
		return s.makeToken(TokenDot)
	case '-':
		return s.makeToken(TokenMinus)
	case '+':
		return s.makeToken(TokenPlus)
	case '/':
		return s.makeToken(TokenSlash)
	case '*':
		return s.makeToken(TokenStar)
	case '!':
		if s.match('=') {
			return s.makeToken(TokenBangEqual)
		}
		return s.makeToken(TokenBang)
	case '=':
		if s.match('=') {
			return s.makeToken(TokenEqualEqual)
		}
		return s.makeToken(TokenEqual)
	case '<':
		if s.match('=') {
			return s.makeToken(TokenLessEqual)
		}
		return s.makeToken(TokenLess)
	case '>':
		if s.match('=') {
			return s.makeToken(TokenGreaterEqual)
		}
		return s.makeToken(TokenGreater)
	case '"':
		return s.string()
	}

	return s.errorToken("Unexpected character.")
}

func (s *Scanner) string() Token {
	startLine := s.line
	for s.hasChar() && s.peek(0) != '"' {
		s.advance()
	}
	if !s.hasChar() {
		// Report where the string opened, matching the column.
		tok := s.errorToken("Unterminated string.")
		tok.Line = startLine
		return tok
	}
	s.advance()

	// The lexeme keeps its quotes; the compiler trims them.
	tok := s.makeToken(TokenString)
	tok.Line = startLine
	return tok
}

func (s *Scanner) number() Token {
	for isDigit(s.peek(0)) {
		s.advance()
	}
	if s.peek(0) == '.' && isDigit(s.peek(1)) {
		s.advance()
		for isDigit(s.peek(0)) {
			s.advance()
		}
	}
	return s.makeToken(TokenNumber)
}

func (s *Scanner) identifier() Token {
	for isAlpha(s.peek(0)) || isDigit(s.peek(0)) {
		s.advance()
	}
	if kind, ok := keywords[s.source[s.start:s.currIdx]]; ok {
		return s.makeToken(kind)
	}
	return s.makeToken(TokenIdentifier)
}

func isAlpha(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c == '_'
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
