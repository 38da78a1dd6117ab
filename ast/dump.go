package ast

import (
	"fmt"
	"strconv"
	"strings"
)

// Dump renders a statement list as an indented tree, one line per node,
// for tooling (the -ast driver flag and the inspector) that wants a human
// look at the parse tree without a debugger attached.
func Dump(statements []Stmt) string {
	var b strings.Builder
	for _, s := range statements {
		dumpStmt(&b, s, 0)
	}
	return b.String()
}

func dumpStmt(b *strings.Builder, s Stmt, depth int) {
	indent := strings.Repeat("  ", depth)
	switch v := s.(type) {
	case *Block:
		fmt.Fprintf(b, "%sBlock\n", indent)
		for _, st := range v.Statements {
			dumpStmt(b, st, depth+1)
		}
	case *ExprStmt:
		fmt.Fprintf(b, "%sExprStmt\n", indent)
		if v.Expr != nil {
			dumpExpr(b, v.Expr, depth+1)
		}
	case *If:
		fmt.Fprintf(b, "%sIf\n", indent)
		dumpExpr(b, v.Cond, depth+1)
		dumpStmt(b, v.Then, depth+1)
		if v.Else != nil {
			fmt.Fprintf(b, "%sElse\n", indent)
			dumpStmt(b, v.Else, depth+1)
		}
	case *Loop:
		fmt.Fprintf(b, "%sLoop\n", indent)
		for _, e := range v.Init {
			dumpExpr(b, e, depth+1)
		}
		if v.Cond != nil {
			dumpExpr(b, v.Cond, depth+1)
		}
		for _, e := range v.Incr {
			dumpExpr(b, e, depth+1)
		}
		dumpStmt(b, v.Body, depth+1)
	case *ForEach:
		fmt.Fprintf(b, "%sForEach\n", indent)
		dumpExpr(b, v.Iterator, depth+1)
		dumpExpr(b, v.Container, depth+1)
		dumpStmt(b, v.Body, depth+1)
	case *Function:
		fmt.Fprintf(b, "%sFunction %s\n", indent, v.Name)
		for _, st := range v.Body {
			dumpStmt(b, st, depth+1)
		}
	case *Delete:
		fmt.Fprintf(b, "%sDelete\n", indent)
		dumpExpr(b, v.Target, depth+1)
		for _, e := range v.Indices {
			dumpExpr(b, e, depth+1)
		}
	case *Return:
		fmt.Fprintf(b, "%sReturn\n", indent)
		if v.Value != nil {
			dumpExpr(b, v.Value, depth+1)
		}
	case *Break:
		fmt.Fprintf(b, "%sBreak\n", indent)
	case *Continue:
		fmt.Fprintf(b, "%sContinue\n", indent)
	default:
		fmt.Fprintf(b, "%s%T\n", indent, s)
	}
}

func dumpExpr(b *strings.Builder, e Expr, depth int) {
	indent := strings.Repeat("  ", depth)
	switch v := e.(type) {
	case Atom:
		fmt.Fprintf(b, "%sAtom %s %s\n", indent, v.Kind, strconv.Quote(v.Value))
	case Unary:
		fmt.Fprintf(b, "%sUnary op=%d prefix=%v\n", indent, v.Op, v.Prefix)
		dumpExpr(b, v.Operand, depth+1)
	case Binary:
		fmt.Fprintf(b, "%sBinary op=%d\n", indent, v.Op)
		dumpExpr(b, v.Lhs, depth+1)
		dumpExpr(b, v.Rhs, depth+1)
	case Call:
		fmt.Fprintf(b, "%sCall\n", indent)
		dumpExpr(b, v.Callee, depth+1)
		for _, a := range v.Args {
			dumpExpr(b, a, depth+1)
		}
	case ArrayIndex:
		fmt.Fprintf(b, "%sArrayIndex\n", indent)
		dumpExpr(b, v.Array, depth+1)
		for _, idx := range v.Indices {
			dumpExpr(b, idx, depth+1)
		}
	default:
		fmt.Fprintf(b, "%s%T\n", indent, e)
	}
}
