package koto

import "fmt"

type TokenType int

const (
	// Single-character tokens.
	TokenLeftParen TokenType = iota
	TokenRightParen
	TokenLeftBrace
	TokenRightBrace
	TokenComma
	TokenDot
	TokenMinus
	TokenPlus
	TokenSemicolon
	TokenSlash
	TokenStar

	// One or two character tokens.
	TokenBang
	TokenBangEqual
	TokenEqual
	TokenEqualEqual
	TokenGreater
	TokenGreaterEqual
	TokenLess
	TokenLessEqual

	// Literals.
	TokenIdentifier
	TokenString
	TokenNumber

	// Keywords.
	TokenAnd
	TokenClass
	TokenElse
	TokenFalse
	TokenFor
	TokenFun
	TokenIf
	TokenNil
	TokenOr
	TokenPrint
	TokenReturn
	TokenSuper
	TokenThis
	TokenTrue
	TokenVar
	TokenWhile

	TokenError
	TokenEOF

	tokenTypeCount
)

var tokenNames = [...]string{
	TokenLeftParen:    "TokenLeftParen",
	TokenRightParen:   "TokenRightParen",
	TokenLeftBrace:    "TokenLeftBrace",
	TokenRightBrace:   "TokenRightBrace",
	TokenComma:        "TokenComma",
	TokenDot:          "TokenDot",
	TokenMinus:        "TokenMinus",
	TokenPlus:         "TokenPlus",
	TokenSemicolon:    "TokenSemicolon",
	TokenSlash:        "TokenSlash",
	TokenStar:         "TokenStar",
	TokenBang:         "TokenBang",
	TokenBangEqual:    "TokenBangEqual",
	TokenEqual:        "TokenEqual",
	TokenEqualEqual:   "TokenEqualEqual",
	TokenGreater:      "TokenGreater",
	TokenGreaterEqual: "TokenGreaterEqual",
	TokenLess:         "TokenLess",
	TokenLessEqual:    "TokenLessEqual",
	TokenIdentifier:   "TokenIdentifier",
	TokenString:       "TokenString",
	TokenNumber:       "TokenNumber",
	TokenAnd:          "TokenAnd",
	TokenClass:        "TokenClass",
	TokenElse:         "TokenElse",
	TokenFalse:        "TokenFalse",
	TokenFor:          "TokenFor",
	TokenFun:          "TokenFun",
	TokenIf:           "TokenIf",
	TokenNil:          "TokenNil",
	TokenOr:           "TokenOr",
	TokenPrint:        "TokenPrint",
	TokenReturn:       "TokenReturn",
	TokenSuper:        "TokenSuper",
	TokenThis:         "TokenThis",
	TokenTrue:         "TokenTrue",
	TokenVar:          "TokenVar",
	TokenWhile:        "TokenWhile",
	TokenError:        "TokenError",
	TokenEOF:          "TokenEOF",
}

func (t TokenType) String() string {
	if t >= 0 && int(t) < len(tokenNames) {
		return tokenNames[t]
	}
	return fmt.Sprintf("TokenType(%d)", int(t))
}

var keywords = map[string]TokenType{
	"and":    TokenAnd,
	"class":  TokenClass,
	"else":   TokenElse,
	"false":  TokenFalse,
	"for":    TokenFor,
	"fun":    TokenFun,
	"if":     TokenIf,
	"nil":    TokenNil,
	"or":     TokenOr,
	"print":  TokenPrint,
	"return": TokenReturn,
	"super":  TokenSuper,
	"this":   TokenThis,
	"true":   TokenTrue,
	"var":    TokenVar,
	"while":  TokenWhile,
}

// Keywords returns the reserved words of the language in no particular order.
func Keywords() []string {
	words := make([]string, 0, len(keywords))
	for word := range keywords {
		words = append(words, word)
	}
	return words
}

// Token is one lexeme. For TokenError the Lexeme holds the error message.
type Token struct {
	Type   TokenType
	Lexeme string
	Line   int
	Column int
}

func (t Token) String() string {
	return fmt.Sprintf("%s %q", t.Type, t.Lexeme)
}
