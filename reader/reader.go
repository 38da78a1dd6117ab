// Package reader provides the primitive cursor the lexer drives: byte-level
// lookahead and consumption over a source string, with line/column
// bookkeeping and cheap snapshot/restore via plain value copies.
package reader

import "regexp"

// Reader is a byte cursor over source. It is deliberately a plain value
// type: assigning a Reader snapshots its position, which the lexer relies
// on to backtrack past a numeric escape that turns out to encode a NUL.
type Reader struct {
	source string
	index  int
	line   int
	column int
}

// New returns a Reader positioned at the start of source.
func New(source string) Reader {
	return Reader{source: source, line: 1, column: 0}
}

// Index returns the current byte offset.
func (r Reader) Index() int {
	return r.index
}

// Line returns the current 1-based line number.
func (r Reader) Line() int {
	return r.line
}

// Column returns the current 0-based column.
func (r Reader) Column() int {
	return r.column
}

// Eof reports whether the cursor is past the last byte of source.
func (r Reader) Eof() bool {
	return r.index >= len(r.source)
}

// Peek returns the current byte, or 0 at EOF.
func (r Reader) Peek() byte {
	if r.Eof() {
		return 0
	}
	return r.source[r.index]
}

// PeekAt returns the byte offset bytes ahead of the cursor, or 0 past EOF.
func (r Reader) PeekAt(offset int) byte {
	i := r.index + offset
	if i < 0 || i >= len(r.source) {
		return 0
	}
	return r.source[i]
}

// Read consumes and returns one byte, updating line/column. A newline resets
// the column to 0 and advances the line.
func (r *Reader) Read() byte {
	if r.Eof() {
		return 0
	}
	ch := r.source[r.index]
	r.index++
	if ch == '\n' {
		r.line++
		r.column = 0
	} else {
		r.column++
	}
	return ch
}

// Consume advances over any prefix run of bytes found in chars.
func (r *Reader) Consume(chars string) {
	for !r.Eof() {
		if indexByte(chars, r.Peek()) < 0 {
			break
		}
		r.Read()
	}
}

// MatchByte succeeds only if the current byte equals ch, advancing past it.
func (r *Reader) MatchByte(ch byte) bool {
	if r.Peek() != ch {
		return false
	}
	r.Read()
	return true
}

// MatchString succeeds only on an exact prefix match, advancing past it.
func (r *Reader) MatchString(s string) bool {
	if len(s) == 0 || r.index+len(s) > len(r.source) {
		return false
	}
	if r.source[r.index:r.index+len(s)] != s {
		return false
	}
	for i := 0; i < len(s); i++ {
		r.Read()
	}
	return true
}

// MatchRegexp anchors re at the current position; on success it returns the
// matched text and advances past it.
func (r *Reader) MatchRegexp(re *regexp.Regexp) (string, bool) {
	loc := re.FindStringIndex(r.source[r.index:])
	if loc == nil || loc[0] != 0 {
		return "", false
	}
	text := r.source[r.index : r.index+loc[1]]
	for i := 0; i < len(text); i++ {
		r.Read()
	}
	return text, true
}

func indexByte(s string, b byte) int {
	for i := 0; i < len(s); i++ {
		if s[i] == b {
			return i
		}
	}
	return -1
}
