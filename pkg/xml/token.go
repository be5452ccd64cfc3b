package xml

import (
	"unicode"
	"unicode/utf8"
)

// Token is the class of a single input character.
type Token uint8

const (
	Char Token = iota
	WhiteSpace
	NewLine
	LeftCroc
	RightCroc
	Equalsign
	Slash
	Tick
)

var tokenNames = [...]string{
	Char:       "Char",
	WhiteSpace: "WhiteSpace",
	NewLine:    "NewLine",
	LeftCroc:   "LeftCroc",
	RightCroc:  "RightCroc",
	Equalsign:  "Equalsign",
	Slash:      "Slash",
	Tick:       "Tick",
}

func (t Token) String() string {
	if int(t) < len(tokenNames) {
		return tokenNames[t]
	}
	return "Token(?)"
}

// Lookup table for the ASCII range, everything above goes through unicode.
var asciiTokens [utf8.RuneSelf]Token

func init() {
	for c := 0; c < utf8.RuneSelf; c++ {
		asciiTokens[c] = classifyRune(rune(c))
	}
}

func classify(r rune) Token {
	if r < utf8.RuneSelf {
		return asciiTokens[r]
	}
	return classifyRune(r)
}

func classifyRune(r rune) Token {
	switch r {
	case '<':
		return LeftCroc
	case '>':
		return RightCroc
	case '=':
		return Equalsign
	case '/':
		return Slash
	case '"':
		return Tick
	}

	// Control runes first: '\t', '\n' and '\r' are spaces too.
	if unicode.IsControl(r) {
		return NewLine
	}
	if unicode.IsSpace(r) {
		return WhiteSpace
	}
	return Char
}
