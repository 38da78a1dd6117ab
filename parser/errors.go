package parser

import (
	"fmt"

	"github.com/nedit-macro/nmc/lexer"
)

// SyntaxErrorKind refines SyntaxError with the same granularity spec.md's
// grounding source expressed as a hierarchy of exception subclasses.
type SyntaxErrorKind int

const (
	SyntaxErrGeneric SyntaxErrorKind = iota
	SyntaxErrFunctionDefinedWithinFunction
	SyntaxErrMissingIdentifier
	SyntaxErrMissingClosingBracket
	SyntaxErrMissingClosingBrace
	SyntaxErrMissingOpenBrace
	SyntaxErrMissingClosingParen
	SyntaxErrMissingOpenParen
	SyntaxErrMissingNewline
	SyntaxErrMissingSemicolon
	SyntaxErrUnexpectedBrace
	SyntaxErrUnexpectedBracket
	SyntaxErrUnexpectedKeyword
	SyntaxErrUnexpectedParen
	SyntaxErrUnexpectedStringConstant
	SyntaxErrUnexpectedNumericConstant
	SyntaxErrUnexpectedIdentifier
	SyntaxErrUnexpectedComma
	SyntaxErrInvalidDelete
)

var syntaxErrorNames = map[SyntaxErrorKind]string{
	SyntaxErrGeneric:                      "SyntaxError",
	SyntaxErrFunctionDefinedWithinFunction: "FunctionDefinedWithinFunction",
	SyntaxErrMissingIdentifier:             "MissingIdentifier",
	SyntaxErrMissingClosingBracket:         "MissingClosingBracket",
	SyntaxErrMissingClosingBrace:           "MissingClosingBrace",
	SyntaxErrMissingOpenBrace:              "MissingOpenBrace",
	SyntaxErrMissingClosingParen:           "MissingClosingParen",
	SyntaxErrMissingOpenParen:              "MissingOpenParen",
	SyntaxErrMissingNewline:                "MissingNewline",
	SyntaxErrMissingSemicolon:              "MissingSemicolon",
	SyntaxErrUnexpectedBrace:               "UnexpectedBrace",
	SyntaxErrUnexpectedBracket:             "UnexpectedBracket",
	SyntaxErrUnexpectedKeyword:             "UnexpectedKeyword",
	SyntaxErrUnexpectedParen:               "UnexpectedParen",
	SyntaxErrUnexpectedStringConstant:      "UnexpectedStringConstant",
	SyntaxErrUnexpectedNumericConstant:     "UnexpectedNumericConstant",
	SyntaxErrUnexpectedIdentifier:          "UnexpectedIdentifier",
	SyntaxErrUnexpectedComma:               "UnexpectedComma",
	SyntaxErrInvalidDelete:                 "InvalidDelete",
}

func (k SyntaxErrorKind) String() string {
	if name, ok := syntaxErrorNames[k]; ok {
		return name
	}
	return "SyntaxError"
}

// SyntaxError reports a parse failure at a specific token.
type SyntaxError struct {
	Kind  SyntaxErrorKind
	Token lexer.Token
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%s: token %s %q at byte %d", e.Kind, e.Token.Kind, e.Token.Lexeme, e.Token.Pos)
}
