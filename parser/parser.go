// Package parser builds an AST from a lexer token stream via recursive
// descent with explicit precedence-climbing methods, one per level.
package parser

import (
	"github.com/nedit-macro/nmc/ast"
	"github.com/nedit-macro/nmc/lexer"
)

// Parser walks a fixed token slice; it never re-invokes the lexer.
type Parser struct {
	tokens     []lexer.Token
	index      int
	inFunction bool
}

// New returns a Parser over the given token stream.
func New(tokens []lexer.Token) *Parser {
	return &Parser{tokens: tokens}
}

// Parse consumes the whole token stream, returning every top-level
// statement in source order.
func Parse(tokens []lexer.Token) ([]ast.Stmt, error) {
	p := New(tokens)
	var statements []ast.Stmt
	for {
		stmt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		if stmt == nil {
			return statements, nil
		}
		statements = append(statements, stmt)
	}
}

func (p *Parser) peek() lexer.Token {
	if p.index < len(p.tokens) {
		return p.tokens[p.index]
	}
	return lexer.Token{Kind: lexer.Invalid}
}

func (p *Parser) read() lexer.Token {
	tok := p.peek()
	if tok.Kind != lexer.Invalid {
		p.index++
	}
	return tok
}

func (p *Parser) skipNewlines() {
	for p.peek().Kind == lexer.Newline {
		p.read()
	}
}

func (p *Parser) consumeRequired(kind lexer.Kind, errKind SyntaxErrorKind) (lexer.Token, error) {
	tok := p.read()
	if tok.Kind != kind {
		return tok, &SyntaxError{Kind: errKind, Token: tok}
	}
	return tok, nil
}

// parseStatement dispatches on the leading token. A nil, nil result means
// the token stream is exhausted.
func (p *Parser) parseStatement() (ast.Stmt, error) {
	tok := p.peek()

	switch tok.Kind {
	case lexer.Invalid:
		return nil, nil
	case lexer.KwDelete:
		return p.parseDeleteStatement()
	case lexer.KwReturn:
		return p.parseReturnStatement()
	case lexer.LeftBrace:
		block, err := p.parseBlockStatement()
		if err != nil {
			return nil, err
		}
		return block, nil
	case lexer.KwWhile:
		return p.parseWhileStatement()
	case lexer.KwFor:
		return p.parseForStatement()
	case lexer.KwIf:
		return p.parseIfStatement()
	case lexer.Identifier, lexer.Increment, lexer.Decrement:
		return p.parseExpressionStatement()
	case lexer.Newline:
		return p.parseEmptyStatement()
	case lexer.RightParen, lexer.LeftParen:
		return nil, &SyntaxError{Kind: SyntaxErrUnexpectedParen, Token: tok}
	case lexer.RightBrace:
		return nil, &SyntaxError{Kind: SyntaxErrUnexpectedBrace, Token: tok}
	case lexer.LeftBracket:
		return nil, &SyntaxError{Kind: SyntaxErrUnexpectedBracket, Token: tok}
	case lexer.String:
		// A string literal may open a statement only as the head of an
		// implicit concatenation chain; a lone string is rejected.
		if p.index+1 < len(p.tokens) && concatStarts(p.tokens[p.index+1].Kind) {
			return p.parseExpressionStatement()
		}
		return nil, &SyntaxError{Kind: SyntaxErrUnexpectedStringConstant, Token: tok}
	case lexer.KwBreak:
		return p.parseBreakStatement()
	case lexer.KwContinue:
		return p.parseContinueStatement()
	case lexer.KwDefine:
		return p.parseFunctionStatement()
	default:
		// Notably there is no case for KwSwitch: a switch/case statement is
		// never actually implemented by this engine, keyword or not.
		return nil, &SyntaxError{Kind: SyntaxErrUnexpectedKeyword, Token: tok}
	}
}

func (p *Parser) parseBlockStatement() (*ast.Block, error) {
	if _, err := p.consumeRequired(lexer.LeftBrace, SyntaxErrMissingOpenBrace); err != nil {
		return nil, err
	}

	block := &ast.Block{}
	for p.peek().Kind != lexer.RightBrace {
		stmt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		if stmt == nil {
			return nil, &SyntaxError{Kind: SyntaxErrMissingClosingBrace, Token: p.peek()}
		}
		block.Statements = append(block.Statements, stmt)
	}

	if _, err := p.consumeRequired(lexer.RightBrace, SyntaxErrMissingClosingBrace); err != nil {
		return nil, err
	}
	return block, nil
}

func (p *Parser) parseFunctionStatement() (ast.Stmt, error) {
	if _, err := p.consumeRequired(lexer.KwDefine, SyntaxErrGeneric); err != nil {
		return nil, err
	}
	if p.inFunction {
		return nil, &SyntaxError{Kind: SyntaxErrFunctionDefinedWithinFunction, Token: p.peek()}
	}
	p.inFunction = true
	defer func() { p.inFunction = false }()

	name := p.read()
	if name.Kind != lexer.Identifier {
		return nil, &SyntaxError{Kind: SyntaxErrMissingIdentifier, Token: name}
	}

	p.skipNewlines()

	body, err := p.parseBlockStatement()
	if err != nil {
		return nil, err
	}

	return &ast.Function{Name: name.Lexeme, Body: body.Statements}, nil
}

func (p *Parser) parseIfStatement() (ast.Stmt, error) {
	if _, err := p.consumeRequired(lexer.KwIf, SyntaxErrGeneric); err != nil {
		return nil, err
	}
	if _, err := p.consumeRequired(lexer.LeftParen, SyntaxErrMissingOpenParen); err != nil {
		return nil, err
	}

	cond, err := p.parseExpression()
	if err != nil {
		return nil, err
	}

	if _, err := p.consumeRequired(lexer.RightParen, SyntaxErrMissingClosingParen); err != nil {
		return nil, err
	}
	p.skipNewlines()

	then, err := p.parseStatement()
	if err != nil {
		return nil, err
	}

	ifStmt := &ast.If{Cond: cond, Then: then}

	p.skipNewlines()
	if p.peek().Kind == lexer.KwElse {
		p.read()
		p.skipNewlines()
		elseStmt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		ifStmt.Else = elseStmt
	}

	return ifStmt, nil
}

func (p *Parser) parseWhileStatement() (ast.Stmt, error) {
	if _, err := p.consumeRequired(lexer.KwWhile, SyntaxErrGeneric); err != nil {
		return nil, err
	}
	if _, err := p.consumeRequired(lexer.LeftParen, SyntaxErrMissingOpenParen); err != nil {
		return nil, err
	}

	cond, err := p.parseExpression()
	if err != nil {
		return nil, err
	}

	if _, err := p.consumeRequired(lexer.RightParen, SyntaxErrMissingClosingParen); err != nil {
		return nil, err
	}
	p.skipNewlines()

	body, err := p.parseStatement()
	if err != nil {
		return nil, err
	}

	return &ast.Loop{Cond: cond, Body: body}, nil
}

func (p *Parser) parseForStatement() (ast.Stmt, error) {
	if _, err := p.consumeRequired(lexer.KwFor, SyntaxErrGeneric); err != nil {
		return nil, err
	}
	if _, err := p.consumeRequired(lexer.LeftParen, SyntaxErrMissingOpenParen); err != nil {
		return nil, err
	}

	initExprs, err := p.parseExpressionList()
	if err != nil {
		return nil, err
	}

	if p.peek().Kind == lexer.Semicolon {
		p.read()

		cond, err := p.parseExpression()
		if err != nil {
			return nil, err
		}

		if _, err := p.consumeRequired(lexer.Semicolon, SyntaxErrMissingSemicolon); err != nil {
			return nil, err
		}

		incrExprs, err := p.parseExpressionList()
		if err != nil {
			return nil, err
		}

		if _, err := p.consumeRequired(lexer.RightParen, SyntaxErrMissingClosingParen); err != nil {
			return nil, err
		}
		p.skipNewlines()

		body, err := p.parseStatement()
		if err != nil {
			return nil, err
		}

		return &ast.Loop{Init: initExprs, Cond: cond, Incr: incrExprs, Body: body}, nil
	}

	if len(initExprs) == 1 {
		if in, ok := initExprs[0].(ast.Binary); ok && in.Op == ast.BinIn {
			if _, err := p.consumeRequired(lexer.RightParen, SyntaxErrMissingClosingParen); err != nil {
				return nil, err
			}
			p.skipNewlines()

			body, err := p.parseStatement()
			if err != nil {
				return nil, err
			}

			return &ast.ForEach{Iterator: in.Lhs, Container: in.Rhs, Body: body}, nil
		}
	}

	return nil, &SyntaxError{Kind: SyntaxErrMissingSemicolon, Token: p.peek()}
}

func (p *Parser) parseBreakStatement() (ast.Stmt, error) {
	if _, err := p.consumeRequired(lexer.KwBreak, SyntaxErrGeneric); err != nil {
		return nil, err
	}
	if _, err := p.consumeRequired(lexer.Newline, SyntaxErrMissingNewline); err != nil {
		return nil, err
	}
	return &ast.Break{}, nil
}

func (p *Parser) parseContinueStatement() (ast.Stmt, error) {
	if _, err := p.consumeRequired(lexer.KwContinue, SyntaxErrGeneric); err != nil {
		return nil, err
	}
	if _, err := p.consumeRequired(lexer.Newline, SyntaxErrMissingNewline); err != nil {
		return nil, err
	}
	return &ast.Continue{}, nil
}

func (p *Parser) parseDeleteStatement() (ast.Stmt, error) {
	if _, err := p.consumeRequired(lexer.KwDelete, SyntaxErrGeneric); err != nil {
		return nil, err
	}

	expr, err := p.parseExpression()
	if err != nil {
		return nil, err
	}

	if idx, ok := expr.(ast.ArrayIndex); ok {
		return &ast.Delete{Target: idx.Array, Indices: idx.Indices}, nil
	}

	return nil, &SyntaxError{Kind: SyntaxErrInvalidDelete, Token: p.peek()}
}

func (p *Parser) parseReturnStatement() (ast.Stmt, error) {
	if _, err := p.consumeRequired(lexer.KwReturn, SyntaxErrGeneric); err != nil {
		return nil, err
	}

	// Notably no newline is required here: the grammar lets a return
	// statement's trailing newline fall through to the next empty-statement
	// production, same as the engine this is grounded on.
	expr, err := p.parseExpression()
	if err != nil {
		return nil, err
	}

	return &ast.Return{Value: expr}, nil
}

func (p *Parser) parseExpressionStatement() (ast.Stmt, error) {
	expr, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if expr == nil {
		return nil, nil
	}

	if _, err := p.consumeRequired(lexer.Newline, SyntaxErrMissingNewline); err != nil {
		return nil, err
	}
	p.skipNewlines()

	return &ast.ExprStmt{Expr: expr}, nil
}

func (p *Parser) parseEmptyStatement() (ast.Stmt, error) {
	if _, err := p.consumeRequired(lexer.Newline, SyntaxErrMissingNewline); err != nil {
		return nil, err
	}
	p.skipNewlines()
	return &ast.ExprStmt{}, nil
}

// parseExpression parses a single full-precedence expression. A nil, nil
// result means no expression was present at the cursor (e.g. an empty
// for-loop clause), which is not itself an error.
func (p *Parser) parseExpression() (ast.Expr, error) {
	return p.parseAssignment()
}

func (p *Parser) parseExpressionList() ([]ast.Expr, error) {
	first, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if first == nil {
		return nil, nil
	}

	exprs := []ast.Expr{first}
	for p.peek().Kind == lexer.Comma {
		p.read()
		e, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		exprs = append(exprs, e)
	}
	return exprs, nil
}

var assignOps = map[lexer.Kind]ast.BinaryOp{
	lexer.Assign:    ast.BinAssign,
	lexer.AddAssign: ast.BinAddAssign,
	lexer.SubAssign: ast.BinSubAssign,
	lexer.MulAssign: ast.BinMulAssign,
	lexer.DivAssign: ast.BinDivAssign,
	lexer.ModAssign: ast.BinModAssign,
}

// parseAssignment is level 0: =, +=, -=, *=, /=, %=. Right-recursion into
// itself for the rhs makes chained assignment (a = b = c) associate to the
// right, which is the correct semantics for assignment regardless. Compound
// operators desugar to a plain assignment of a bare binary op here, so
// nothing downstream ever sees a compound-assign BinaryOp.
func (p *Parser) parseAssignment() (ast.Expr, error) {
	lhs, err := p.parseConcat()
	if err != nil {
		return nil, err
	}

	op, ok := assignOps[p.peek().Kind]
	if !ok {
		return lhs, nil
	}
	p.read()

	rhs, err := p.parseAssignment()
	if err != nil {
		return nil, err
	}

	if op.IsCompoundAssign() {
		return ast.Binary{Op: ast.BinAssign, Lhs: lhs, Rhs: ast.Binary{Op: op.BareOp(), Lhs: lhs, Rhs: rhs}}, nil
	}
	return ast.Binary{Op: ast.BinAssign, Lhs: lhs, Rhs: rhs}, nil
}

// parseConcat is level 1: implicit concatenation. There is no operator
// token; the mere presence of another atom-starting token continues the
// chain. Builds a right-nested spine like every other binary level here;
// the IR emitter flattens it back into left-to-right evaluation order.
func (p *Parser) parseConcat() (ast.Expr, error) {
	lhs, err := p.parseLogicalOr()
	if err != nil {
		return nil, err
	}

	for concatStarts(p.peek().Kind) {
		rhs, err := p.parseConcat()
		if err != nil {
			return nil, err
		}
		lhs = ast.Binary{Op: ast.BinConcatenate, Lhs: lhs, Rhs: rhs}
	}
	return lhs, nil
}

func concatStarts(k lexer.Kind) bool {
	return k == lexer.LeftParen || k == lexer.Identifier || k == lexer.Integer || k == lexer.String
}

func (p *Parser) parseLogicalOr() (ast.Expr, error) {
	lhs, err := p.parseLogicalAnd()
	if err != nil {
		return nil, err
	}
	if p.peek().Kind == lexer.LogicalOr {
		p.read()
		rhs, err := p.parseLogicalOr()
		if err != nil {
			return nil, err
		}
		return ast.Binary{Op: ast.BinLogicalOr, Lhs: lhs, Rhs: rhs}, nil
	}
	return lhs, nil
}

func (p *Parser) parseLogicalAnd() (ast.Expr, error) {
	lhs, err := p.parseBitOr()
	if err != nil {
		return nil, err
	}
	if p.peek().Kind == lexer.LogicalAnd {
		p.read()
		rhs, err := p.parseLogicalAnd()
		if err != nil {
			return nil, err
		}
		return ast.Binary{Op: ast.BinLogicalAnd, Lhs: lhs, Rhs: rhs}, nil
	}
	return lhs, nil
}

func (p *Parser) parseBitOr() (ast.Expr, error) {
	lhs, err := p.parseBitAnd()
	if err != nil {
		return nil, err
	}
	if p.peek().Kind == lexer.BitOr {
		p.read()
		rhs, err := p.parseBitOr()
		if err != nil {
			return nil, err
		}
		return ast.Binary{Op: ast.BinBitOr, Lhs: lhs, Rhs: rhs}, nil
	}
	return lhs, nil
}

func (p *Parser) parseBitAnd() (ast.Expr, error) {
	lhs, err := p.parseComparison()
	if err != nil {
		return nil, err
	}
	if p.peek().Kind == lexer.BitAnd {
		p.read()
		rhs, err := p.parseBitAnd()
		if err != nil {
			return nil, err
		}
		return ast.Binary{Op: ast.BinBitAnd, Lhs: lhs, Rhs: rhs}, nil
	}
	return lhs, nil
}

var comparisonOps = map[lexer.Kind]ast.BinaryOp{
	lexer.KwIn:         ast.BinIn,
	lexer.GreaterThan:  ast.BinGt,
	lexer.GreaterEqual: ast.BinGe,
	lexer.LessThan:     ast.BinLt,
	lexer.LessEqual:    ast.BinLe,
	lexer.Equal:        ast.BinEq,
	lexer.NotEqual:     ast.BinNe,
}

// parseComparison is level 6: >=, >, <, <=, ==, !=, and "in" sharing
// priority with the relational operators.
func (p *Parser) parseComparison() (ast.Expr, error) {
	lhs, err := p.parseAddSub()
	if err != nil {
		return nil, err
	}
	if op, ok := comparisonOps[p.peek().Kind]; ok {
		p.read()
		rhs, err := p.parseComparison()
		if err != nil {
			return nil, err
		}
		return ast.Binary{Op: op, Lhs: lhs, Rhs: rhs}, nil
	}
	return lhs, nil
}

func (p *Parser) parseAddSub() (ast.Expr, error) {
	lhs, err := p.parseMulDiv()
	if err != nil {
		return nil, err
	}
	switch p.peek().Kind {
	case lexer.Add, lexer.Sub:
		op := p.read()
		rhs, err := p.parseAddSub()
		if err != nil {
			return nil, err
		}
		binOp := ast.BinAdd
		if op.Kind == lexer.Sub {
			binOp = ast.BinSub
		}
		return ast.Binary{Op: binOp, Lhs: lhs, Rhs: rhs}, nil
	}
	return lhs, nil
}

func (p *Parser) parseMulDiv() (ast.Expr, error) {
	lhs, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	switch p.peek().Kind {
	case lexer.Mul, lexer.Div, lexer.Mod:
		op := p.read()
		rhs, err := p.parseMulDiv()
		if err != nil {
			return nil, err
		}
		var binOp ast.BinaryOp
		switch op.Kind {
		case lexer.Mul:
			binOp = ast.BinMul
		case lexer.Div:
			binOp = ast.BinDiv
		default:
			binOp = ast.BinMod
		}
		return ast.Binary{Op: binOp, Lhs: lhs, Rhs: rhs}, nil
	}
	return lhs, nil
}

func unaryOpFor(k lexer.Kind) ast.UnaryOp {
	switch k {
	case lexer.Increment:
		return ast.UnaryIncrement
	case lexer.Decrement:
		return ast.UnaryDecrement
	case lexer.Not:
		return ast.UnaryNot
	default:
		return ast.UnarySub
	}
}

// parseUnary is level 9: prefix -, !, ++, -- and postfix ++, --.
func (p *Parser) parseUnary() (ast.Expr, error) {
	switch p.peek().Kind {
	case lexer.Increment, lexer.Decrement, lexer.Sub, lexer.Not:
		op := p.read()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return ast.Unary{Op: unaryOpFor(op.Kind), Operand: operand, Prefix: true}, nil
	}

	exp, err := p.parseExponent()
	if err != nil {
		return nil, err
	}

	for p.peek().Kind == lexer.Increment || p.peek().Kind == lexer.Decrement {
		op := p.read()
		exp = ast.Unary{Op: unaryOpFor(op.Kind), Operand: exp, Prefix: false}
	}
	return exp, nil
}

// parseExponent is level 10: ^, right-associative, not a loop.
func (p *Parser) parseExponent() (ast.Expr, error) {
	lhs, err := p.parseGrouping()
	if err != nil {
		return nil, err
	}
	if p.peek().Kind == lexer.Exponent {
		p.read()
		rhs, err := p.parseExponent()
		if err != nil {
			return nil, err
		}
		return ast.Binary{Op: ast.BinExponent, Lhs: lhs, Rhs: rhs}, nil
	}
	return lhs, nil
}

// parseGrouping is level 11: parenthesized sub-expressions, falling through
// to array indexing and calls.
func (p *Parser) parseGrouping() (ast.Expr, error) {
	if p.peek().Kind == lexer.LeftParen {
		p.read()
		exp, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if _, err := p.consumeRequired(lexer.RightParen, SyntaxErrMissingClosingParen); err != nil {
			return nil, err
		}
		return exp, nil
	}
	return p.parseArrayIndex()
}

func (p *Parser) parseArrayIndex() (ast.Expr, error) {
	exp, err := p.parseAtom()
	if err != nil {
		return nil, err
	}

	for p.peek().Kind == lexer.LeftBracket {
		p.read()

		indices, err := p.parseExpressionList()
		if err != nil {
			return nil, err
		}
		if _, err := p.consumeRequired(lexer.RightBracket, SyntaxErrMissingClosingBracket); err != nil {
			return nil, err
		}
		exp = ast.ArrayIndex{Array: exp, Indices: indices}
	}

	return p.parseCall(exp)
}

func (p *Parser) parseAtom() (ast.Expr, error) {
	tok := p.peek()
	switch tok.Kind {
	case lexer.Integer:
		p.read()
		return ast.Atom{Value: tok.Lexeme, Kind: ast.AtomInteger}, nil
	case lexer.String:
		p.read()
		return ast.Atom{Value: tok.Lexeme, Kind: ast.AtomString}, nil
	case lexer.Identifier:
		p.read()
		return ast.Atom{Value: tok.Lexeme, Kind: ast.AtomIdentifier}, nil
	default:
		return nil, nil
	}
}

func (p *Parser) parseCall(callee ast.Expr) (ast.Expr, error) {
	if p.peek().Kind != lexer.LeftParen {
		return callee, nil
	}
	p.read()

	if p.peek().Kind == lexer.RightParen {
		p.read()
		return ast.Call{Callee: callee}, nil
	}

	args, err := p.parseExpressionList()
	if err != nil {
		return nil, err
	}
	if _, err := p.consumeRequired(lexer.RightParen, SyntaxErrMissingClosingParen); err != nil {
		return nil, err
	}
	return ast.Call{Callee: callee, Args: args}, nil
}
