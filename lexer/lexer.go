package lexer

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/nedit-macro/nmc/reader"
)

var (
	integerRe    = regexp.MustCompile(`^(0|[1-9][0-9]*)`)
	identifierRe = regexp.MustCompile(`^[_A-Za-z$][_A-Za-z0-9]*`)
)

const whitespace = " \f\r\t\b"

// twoByteOps must be tried before their single-byte prefixes; order within
// the slice does not matter since every entry is exactly two bytes.
var twoByteOps = []struct {
	text string
	kind Kind
}{
	{"++", Increment},
	{"--", Decrement},
	{"<=", LessEqual},
	{">=", GreaterEqual},
	{"==", Equal},
	{"!=", NotEqual},
	{"+=", AddAssign},
	{"-=", SubAssign},
	{"*=", MulAssign},
	{"/=", DivAssign},
	{"%=", ModAssign},
	{"&&", LogicalAnd},
	{"||", LogicalOr},
}

var oneByteOps = []struct {
	ch   byte
	kind Kind
}{
	{'{', LeftBrace},
	{'}', RightBrace},
	{')', RightParen},
	{'(', LeftParen},
	{']', RightBracket},
	{'[', LeftBracket},
	{';', Semicolon},
	{',', Comma},
	{'\n', Newline},
	{'<', LessThan},
	{'>', GreaterThan},
	{'&', BitAnd},
	{'|', BitOr},
	{'!', Not},
	{'=', Assign},
	{'+', Add},
	{'-', Sub},
	{'*', Mul},
	{'/', Div},
	{'%', Mod},
	{'^', Exponent},
}

// Lex tokenizes source in a single eager pass, returning the full token
// vector. The parser never drives the lexer incrementally.
func Lex(source string) ([]Token, error) {
	r := reader.New(source)
	var tokens []Token

	for !r.Eof() {
		skipWhitespaceAndComments(&r)
		if r.Eof() {
			break
		}

		if r.MatchString("\\\n") {
			continue
		}

		if tok, ok := matchMultiByteOp(&r); ok {
			tokens = append(tokens, tok)
			continue
		}

		ch := r.Peek()
		switch {
		case ch >= '0' && ch <= '9':
			tok, err := lexInteger(&r)
			if err != nil {
				return nil, err
			}
			tokens = append(tokens, tok)
		case isIdentStart(ch):
			tok, err := lexIdentifier(&r)
			if err != nil {
				return nil, err
			}
			tokens = append(tokens, tok)
		case ch == '"':
			tok, err := lexString(&r)
			if err != nil {
				return nil, err
			}
			tokens = append(tokens, tok)
		default:
			if tok, ok := matchOneByteOp(&r); ok {
				tokens = append(tokens, tok)
				continue
			}
			return nil, &TokenizeError{Kind: TokenizeErrGeneric, Pos: r.Index()}
		}
	}

	return tokens, nil
}

func skipWhitespaceAndComments(r *reader.Reader) {
	for {
		before := r.Index()
		r.Consume(whitespace)
		if r.Peek() == '#' {
			for !r.Eof() && r.Peek() != '\n' {
				r.Read()
			}
		}
		if r.Index() == before {
			return
		}
	}
}

func matchMultiByteOp(r *reader.Reader) (Token, bool) {
	for _, op := range twoByteOps {
		pos := r.Index()
		if r.MatchString(op.text) {
			return Token{Kind: op.kind, Lexeme: op.text, Pos: pos}, true
		}
	}
	return Token{}, false
}

func matchOneByteOp(r *reader.Reader) (Token, bool) {
	for _, op := range oneByteOps {
		pos := r.Index()
		if r.MatchByte(op.ch) {
			return Token{Kind: op.kind, Lexeme: string(op.ch), Pos: pos}, true
		}
	}
	return Token{}, false
}

func lexInteger(r *reader.Reader) (Token, error) {
	pos := r.Index()
	text, ok := r.MatchRegexp(integerRe)
	if !ok {
		return Token{}, &TokenizeError{Kind: TokenizeErrInvalidNumericConstant, Pos: pos}
	}
	if _, err := strconv.ParseInt(text, 10, 32); err != nil {
		return Token{}, &TokenizeError{Kind: TokenizeErrInvalidNumericConstant, Pos: pos}
	}
	return Token{Kind: Integer, Lexeme: text, Pos: pos}, nil
}

func lexIdentifier(r *reader.Reader) (Token, error) {
	pos := r.Index()
	text, ok := r.MatchRegexp(identifierRe)
	if !ok {
		return Token{}, &TokenizeError{Kind: TokenizeErrInvalidIdentifier, Pos: pos}
	}
	if kind, isKeyword := keywords[text]; isKeyword {
		return Token{Kind: kind, Lexeme: text, Pos: pos}, nil
	}
	return Token{Kind: Identifier, Lexeme: text, Pos: pos}, nil
}

func isIdentStart(ch byte) bool {
	return ch == '_' || ch == '$' || (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z')
}

func isHexDigit(ch byte) bool {
	return (ch >= '0' && ch <= '9') || (ch >= 'a' && ch <= 'f') || (ch >= 'A' && ch <= 'F')
}

func isOctalDigit(ch byte) bool {
	return ch >= '0' && ch <= '7'
}

// lexString consumes a double-quoted string literal, handling the escape
// table and the NUL quirk: a numeric escape that evaluates to zero drops
// the backslash and re-lexes the digits as literal characters, reproducing
// NEdit's refusal to embed NULs in macro strings.
func lexString(r *reader.Reader) (Token, error) {
	pos := r.Index()
	r.Read() // consume opening quote

	var b strings.Builder
	for {
		if r.Eof() {
			return Token{}, &TokenizeError{Kind: TokenizeErrGeneric, Pos: r.Index()}
		}
		ch := r.Read()
		if ch == '"' {
			break
		}
		if ch != '\\' {
			b.WriteByte(ch)
			continue
		}

		afterBackslash := *r

		if r.Peek() == '\n' {
			r.Read()
			continue
		}

		esc := r.Read()
		switch esc {
		case '\'', '"', '\\':
			b.WriteByte(esc)
		case 'a':
			b.WriteByte('\a')
		case 'b':
			b.WriteByte('\b')
		case 'f':
			b.WriteByte('\f')
		case 'n':
			b.WriteByte('\n')
		case 'r':
			b.WriteByte('\r')
		case 't':
			b.WriteByte('\t')
		case 'v':
			b.WriteByte('\v')
		case 'e':
			b.WriteByte(0x1b)
		case 'x', 'X':
			var hex strings.Builder
			for isHexDigit(r.Peek()) {
				hex.WriteByte(r.Read())
			}
			if hex.Len() == 0 {
				return Token{}, &TokenizeError{Kind: TokenizeErrInvalidEscapeSequence, Pos: r.Index()}
			}
			v, err := strconv.ParseUint(hex.String(), 16, 64)
			if err != nil {
				return Token{}, &TokenizeError{Kind: TokenizeErrInvalidEscapeSequence, Pos: r.Index()}
			}
			value := byte(v % 256)
			if value == 0 {
				*r = afterBackslash
				continue
			}
			b.WriteByte(value)
		case '0', '1', '2', '3', '4', '5', '6', '7':
			oct := strings.Builder{}
			oct.WriteByte(esc)
			for isOctalDigit(r.Peek()) {
				oct.WriteByte(r.Read())
			}
			v, err := strconv.ParseUint(oct.String(), 8, 64)
			if err != nil {
				return Token{}, &TokenizeError{Kind: TokenizeErrInvalidEscapeSequence, Pos: r.Index()}
			}
			value := byte(v % 256)
			if value == 0 {
				*r = afterBackslash
				continue
			}
			b.WriteByte(value)
		default:
			return Token{}, &TokenizeError{Kind: TokenizeErrInvalidEscapeSequence, Pos: r.Index()}
		}
	}

	return Token{Kind: String, Lexeme: b.String(), Pos: pos}, nil
}
