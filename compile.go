// Package nmc wires the reader, lexer, parser, optimizer and IR emitter
// into a single Compile entry point for a NEdit macro source file.
package nmc

import (
	"fmt"
	"os"

	"github.com/nedit-macro/nmc/ast"
	"github.com/nedit-macro/nmc/ir"
	"github.com/nedit-macro/nmc/lexer"
	"github.com/nedit-macro/nmc/optimizer"
	"github.com/nedit-macro/nmc/parser"
)

// FileNotFoundError wraps a failure to open the input file. It carries the
// filename rather than just the underlying os error so the driver can
// report it uniformly alongside lexer.TokenizeError and parser.SyntaxError.
type FileNotFoundError struct {
	Filename string
	Err      error
}

func (e *FileNotFoundError) Error() string {
	return fmt.Sprintf("file not found: %s: %v", e.Filename, e.Err)
}

func (e *FileNotFoundError) Unwrap() error {
	return e.Err
}

// Compile reads filename and runs it through the full reader -> lexer ->
// parser -> optimizer -> IR emitter pipeline, in that order. It is the
// only place in the pipeline that touches the filesystem. The first error
// from any stage aborts compilation; there is no partial recovery and
// nothing is retried.
func Compile(filename string) (*ir.Program, error) {
	source, err := os.ReadFile(filename)
	if err != nil {
		return nil, &FileNotFoundError{Filename: filename, Err: err}
	}
	return CompileSource(string(source))
}

// CompileSource runs the same pipeline as Compile directly over source
// text, for callers (tests, the inspector) that already have the text and
// don't want to round-trip it through a temp file.
func CompileSource(source string) (*ir.Program, error) {
	tokens, err := lexer.Lex(source)
	if err != nil {
		return nil, err
	}

	statements, err := parser.Parse(tokens)
	if err != nil {
		return nil, err
	}

	statements = optimizer.PruneEmptyStatements(statements)
	optimizer.FoldConstants(statements)

	return ir.EmitProgram(statements)
}

// Parse runs only the reader -> lexer -> parser stages, for tooling (the
// inspector TUI) that wants the AST without paying for IR emission.
func Parse(source string) ([]ast.Stmt, error) {
	tokens, err := lexer.Lex(source)
	if err != nil {
		return nil, err
	}
	return parser.Parse(tokens)
}
