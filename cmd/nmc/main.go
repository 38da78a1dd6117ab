package main

import (
	"flag"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nedit-macro/nmc"
	"github.com/nedit-macro/nmc/ast"
	"github.com/nedit-macro/nmc/ir"
	"github.com/nedit-macro/nmc/lexer"
)

func usage() {
	fmt.Println("usage: nmc [-tokens | -ast | -inspect] <filename>")
}

func main() {
	tokensFlag := flag.Bool("tokens", false, "print the lexer's token stream instead of IR")
	astFlag := flag.Bool("ast", false, "print the parsed AST instead of IR")
	inspectFlag := flag.Bool("inspect", false, "open the interactive inspector TUI")
	flag.Parse()

	if flag.NArg() != 1 {
		usage()
		os.Exit(-1)
	}
	filename := flag.Arg(0)

	source, err := os.ReadFile(filename)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", (&nmc.FileNotFoundError{Filename: filename, Err: err}))
		os.Exit(-1)
	}

	if *inspectFlag {
		runInspector(filename, string(source))
		return
	}

	if *tokensFlag {
		tokens, err := lexer.Lex(string(source))
		if err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			os.Exit(-1)
		}
		fmt.Print(lexer.DumpTokens(string(source), tokens))
		return
	}

	if *astFlag {
		statements, err := nmc.Parse(string(source))
		if err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			os.Exit(-1)
		}
		fmt.Print(ast.Dump(statements))
		return
	}

	prog, err := nmc.CompileSource(string(source))
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(-1)
	}
	fmt.Print(ir.RenderProgram(prog))
}

func runInspector(filename, source string) {
	p := tea.NewProgram(newInspectorModel(filename, source), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "inspector: %v\n", err)
		os.Exit(1)
	}
}
