package lexer

import (
	"fmt"
	"strconv"
	"strings"
)

// DumpTokens renders a token stream one token per line as
// "<line>:<col>  <Kind>  <lexeme>", for tooling (the -tokens driver flag
// and the inspector) that wants to see the lexer's output directly.
func DumpTokens(source string, tokens []Token) string {
	var b strings.Builder
	for _, tok := range tokens {
		line, col := LineCol(source, tok.Pos)
		fmt.Fprintf(&b, "%4d:%-4d %-12s %s\n", line, col, tok.Kind, strconv.Quote(tok.Lexeme))
	}
	return b.String()
}
