// Package optimizer applies the two tree-level passes that run on the AST
// before IR emission: pruning placeholder statements and folding constant
// subexpressions.
package optimizer

import (
	"math"
	"strconv"

	"github.com/nedit-macro/nmc/ast"
)

// PruneEmptyStatements drops every top-level ExprStmt with a nil Expr — the
// placeholder a blank source line parses to. It operates on exactly the
// slice given to it; nested block/if/loop bodies are left untouched, same
// as its grounding only ever being invoked once on the top-level statement
// list.
func PruneEmptyStatements(statements []ast.Stmt) []ast.Stmt {
	out := statements[:0]
	for _, stmt := range statements {
		if es, ok := stmt.(*ast.ExprStmt); ok && es.Expr == nil {
			continue
		}
		out = append(out, stmt)
	}
	return out
}

// FoldConstants folds constant subexpressions in place. It descends into
// Block bodies and the expressions of ExprStmt/Return, but — matching the
// scope of the pass it's grounded on — never into the condition or body of
// an If, Loop, ForEach, or the body of a Function.
func FoldConstants(statements []ast.Stmt) {
	for _, stmt := range statements {
		switch s := stmt.(type) {
		case *ast.Block:
			FoldConstants(s.Statements)
		case *ast.ExprStmt:
			if s.Expr != nil {
				s.Expr = FoldExpr(s.Expr)
			}
		case *ast.Return:
			if s.Value != nil {
				s.Value = FoldExpr(s.Value)
			}
		}
	}
}

// FoldExpr folds the constant subexpressions of e, returning a possibly
// different expression. There is deliberately no case for ast.Unary: the
// pass this is grounded on never folds through a unary operator either.
func FoldExpr(e ast.Expr) ast.Expr {
	switch v := e.(type) {
	case ast.Binary:
		v.Lhs = FoldExpr(v.Lhs)
		v.Rhs = FoldExpr(v.Rhs)
		if folded, ok := foldBinaryAtoms(v); ok {
			return folded
		}
		return v
	case ast.Call:
		args := make([]ast.Expr, len(v.Args))
		for i, a := range v.Args {
			args[i] = FoldExpr(a)
		}
		v.Args = args
		return v
	case ast.ArrayIndex:
		indices := make([]ast.Expr, len(v.Indices))
		for i, idx := range v.Indices {
			indices[i] = FoldExpr(idx)
		}
		v.Indices = indices
		return v
	default:
		return e
	}
}

func foldBinaryAtoms(bin ast.Binary) (ast.Expr, bool) {
	left, ok := bin.Lhs.(ast.Atom)
	if !ok {
		return nil, false
	}
	right, ok := bin.Rhs.(ast.Atom)
	if !ok {
		return nil, false
	}

	switch {
	case left.Kind == ast.AtomInteger && right.Kind == ast.AtomInteger:
		return foldNumeric(left, right, bin.Op)
	case isStringOrInteger(left.Kind) && isStringOrInteger(right.Kind) && (left.Kind == ast.AtomString || right.Kind == ast.AtomString):
		return foldConcat(left, right, bin.Op)
	default:
		return nil, false
	}
}

func isStringOrInteger(k ast.AtomKind) bool {
	return k == ast.AtomString || k == ast.AtomInteger
}

func foldNumeric(left, right ast.Atom, op ast.BinaryOp) (ast.Expr, bool) {
	l, err := strconv.ParseInt(left.Value, 10, 32)
	if err != nil {
		return nil, false
	}
	r, err := strconv.ParseInt(right.Value, 10, 32)
	if err != nil {
		return nil, false
	}

	var v int64
	switch op {
	case ast.BinAdd:
		v = l + r
	case ast.BinSub:
		v = l - r
	case ast.BinMul:
		v = l * r
	case ast.BinDiv:
		// A zero divisor is deliberately left unfolded so the division
		// fails at runtime instead of at compile time.
		if r == 0 {
			return nil, false
		}
		v = l / r
	case ast.BinMod:
		if r == 0 {
			return nil, false
		}
		v = l % r
	case ast.BinExponent:
		v = int64(math.Pow(float64(l), float64(r)))
	default:
		return nil, false
	}

	return ast.Atom{Value: strconv.FormatInt(int64(int32(v)), 10), Kind: ast.AtomInteger}, true
}

func foldConcat(left, right ast.Atom, op ast.BinaryOp) (ast.Expr, bool) {
	if op != ast.BinConcatenate {
		return nil, false
	}
	return ast.Atom{Value: left.Value + right.Value, Kind: ast.AtomString}, true
}
