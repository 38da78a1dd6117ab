package lexer_test

import (
	"testing"

	"github.com/nedit-macro/nmc/lexer"
)

func kinds(tokens []lexer.Token) []lexer.Kind {
	out := make([]lexer.Kind, len(tokens))
	for i, t := range tokens {
		out[i] = t.Kind
	}
	return out
}

func TestLexSimpleAssignment(t *testing.T) {
	toks, err := lexer.Lex("x = 1 + 2\n")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []lexer.Kind{lexer.Identifier, lexer.Assign, lexer.Integer, lexer.Add, lexer.Integer, lexer.Newline}
	got := kinds(toks)
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("token %d: got %v, want %v", i, got[i], want[i])
		}
	}
}

func TestMultiByteOperatorsBeforeSinglePrefix(t *testing.T) {
	toks, err := lexer.Lex("a++ b-- c<=d")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := kinds(toks)
	want := []lexer.Kind{lexer.Identifier, lexer.Increment, lexer.Identifier, lexer.Decrement, lexer.Identifier, lexer.LessEqual, lexer.Identifier}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("token %d: got %v, want %v", i, got[i], want[i])
		}
	}
}

func TestKeywordsReclassifyIdentifiers(t *testing.T) {
	toks, err := lexer.Lex("if while define for delete else switch break continue return in notakeyword")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []lexer.Kind{
		lexer.KwIf, lexer.KwWhile, lexer.KwDefine, lexer.KwFor, lexer.KwDelete,
		lexer.KwElse, lexer.KwSwitch, lexer.KwBreak, lexer.KwContinue, lexer.KwReturn,
		lexer.KwIn, lexer.Identifier,
	}
	got := kinds(toks)
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("token %d: got %v, want %v", i, got[i], want[i])
		}
	}
}

func TestCommentAndWhitespaceSkipped(t *testing.T) {
	toks, err := lexer.Lex("x # a comment\n = 1\n")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := kinds(toks)
	want := []lexer.Kind{lexer.Identifier, lexer.Newline, lexer.Assign, lexer.Integer, lexer.Newline}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestLineContinuationConsumesNoToken(t *testing.T) {
	toks, err := lexer.Lex("x = 1 + \\\n2\n")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := kinds(toks)
	want := []lexer.Kind{lexer.Identifier, lexer.Assign, lexer.Integer, lexer.Add, lexer.Integer, lexer.Newline}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestIntegerOverflowIsInvalidNumericConstant(t *testing.T) {
	_, err := lexer.Lex("9999999999\n")
	if err == nil {
		t.Fatalf("expected an error")
	}
	te, ok := err.(*lexer.TokenizeError)
	if !ok {
		t.Fatalf("expected *TokenizeError, got %T", err)
	}
	if te.Kind != lexer.TokenizeErrInvalidNumericConstant {
		t.Fatalf("got kind %v", te.Kind)
	}
}

func TestStringLiteralSimpleEscapes(t *testing.T) {
	toks, err := lexer.Lex(`"a\tb\n\"c\""` + "\n")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(toks) < 1 || toks[0].Kind != lexer.String {
		t.Fatalf("expected a string token, got %v", toks)
	}
	want := "a\tb\n\"c\""
	if toks[0].Lexeme != want {
		t.Fatalf("got %q, want %q", toks[0].Lexeme, want)
	}
}

// Scenario 5 from spec.md §8: "\x00Z" lexes as the NUL quirk dropping the
// backslash and re-lexing the digits literally, yielding "x00Z".
func TestNulQuirkDropsBackslashAndRelexesDigits(t *testing.T) {
	toks, err := lexer.Lex(`"\x00Z"` + "\n")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(toks) < 1 || toks[0].Kind != lexer.String {
		t.Fatalf("expected a string token, got %v", toks)
	}
	if toks[0].Lexeme != "x00Z" {
		t.Fatalf("got %q, want %q", toks[0].Lexeme, "x00Z")
	}
}

func TestOctalEscapeNulQuirk(t *testing.T) {
	toks, err := lexer.Lex(`"\000Z"` + "\n")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if toks[0].Lexeme != "000Z" {
		t.Fatalf("got %q, want %q", toks[0].Lexeme, "000Z")
	}
}

func TestInvalidEscapeSequence(t *testing.T) {
	_, err := lexer.Lex(`"\q"` + "\n")
	if err == nil {
		t.Fatalf("expected an error")
	}
	te, ok := err.(*lexer.TokenizeError)
	if !ok {
		t.Fatalf("expected *TokenizeError, got %T", err)
	}
	if te.Kind != lexer.TokenizeErrInvalidEscapeSequence {
		t.Fatalf("got kind %v", te.Kind)
	}
}

func TestUnrecognizedByteIsTokenizationError(t *testing.T) {
	_, err := lexer.Lex("x = @\n")
	if err == nil {
		t.Fatalf("expected an error")
	}
	if _, ok := err.(*lexer.TokenizeError); !ok {
		t.Fatalf("expected *TokenizeError, got %T", err)
	}
}

func TestLastTokenIsNewlineOnlyWhenSourceEndsInNewline(t *testing.T) {
	toks, err := lexer.Lex("x = 1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(toks) == 0 {
		t.Fatalf("expected at least one token")
	}
	if toks[len(toks)-1].Kind == lexer.Newline {
		t.Fatalf("source without trailing newline should not end in a Newline token")
	}
}

func TestLineColDerivation(t *testing.T) {
	source := "a\nbc\nd"
	line, col := lexer.LineCol(source, 4) // offset 4 is the newline right after 'c'
	if line != 2 || col != 2 {
		t.Fatalf("got line=%d col=%d", line, col)
	}
}
