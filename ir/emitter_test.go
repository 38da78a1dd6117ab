package ir_test

import (
	"testing"

	"github.com/nedit-macro/nmc/ast"
	"github.com/nedit-macro/nmc/ir"
	"github.com/nedit-macro/nmc/lexer"
	"github.com/nedit-macro/nmc/optimizer"
	"github.com/nedit-macro/nmc/parser"
)

func compile(t *testing.T, source string) []ast.Stmt {
	t.Helper()
	toks, err := lexer.Lex(source)
	if err != nil {
		t.Fatalf("lex error: %v", err)
	}
	stmts, err := parser.Parse(toks)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	stmts = optimizer.PruneEmptyStatements(stmts)
	optimizer.FoldConstants(stmts)
	return stmts
}

func emit(t *testing.T, stmts []ast.Stmt) []ir.Node {
	t.Helper()
	nodes, err := ir.Emit(stmts)
	if err != nil {
		t.Fatalf("emit error: %v", err)
	}
	return nodes
}

// Scenario 1: x = 1 + 2 folds to PUSH_SYM const 3; ASSIGN x; RETURN_NO_VAL.
func TestScenario1FoldedAssignmentEmitsThreeNodes(t *testing.T) {
	nodes := emit(t, compile(t, "x = 1 + 2\n"))
	if len(nodes) != 3 {
		t.Fatalf("expected 3 nodes, got %d: %s", len(nodes), ir.Render(nodes))
	}
	push, ok := nodes[0].(*ir.PushSymbol)
	if !ok || push.Instr != "PUSH_SYM const" || push.Symbol != "3" {
		t.Fatalf("got %#v", nodes[0])
	}
	assign, ok := nodes[1].(*ir.Assign)
	if !ok || assign.Symbol != "x" {
		t.Fatalf("got %#v", nodes[1])
	}
	if p, ok := nodes[2].(*ir.Plain); !ok || p.Instr != "RETURN_NO_VAL" {
		t.Fatalf("got %#v", nodes[2])
	}
}

// Scenario 2: "a" "b" "c" folds to a single PUSH_SYM string "abc".
func TestScenario2ConcatenationFoldsToSinglePushString(t *testing.T) {
	nodes := emit(t, compile(t, `"a" "b" "c"`+"\n"))
	if len(nodes) != 2 {
		t.Fatalf("expected 2 nodes, got %d: %s", len(nodes), ir.Render(nodes))
	}
	push, ok := nodes[0].(*ir.PushString)
	if !ok || push.Value != "abc" {
		t.Fatalf("got %#v", nodes[0])
	}
}

// Render must escape \n, \t, and " exactly once each in a PushString body,
// not re-escape them a second time by also running the already-escaped
// body through %q.
func TestRenderPushStringEscapesControlCharsExactlyOnce(t *testing.T) {
	nodes := []ir.Node{&ir.PushString{Addr: 0, Instr: "PUSH_SYM string", Value: "a\nb\tc\"d"}}
	rendered := ir.Render(nodes)
	want := `0                PUSH_SYM string <7> "a\nb\tc\"d"...` + "\n"
	if rendered != want {
		t.Fatalf("got %q, want %q", rendered, want)
	}
}

func TestConcatenationUnfoldedEmitsFlatCONCATSequence(t *testing.T) {
	// Use a non-constant operand so folding can't collapse it, to exercise
	// the spine-flattening emission path directly.
	nodes := emit(t, compile(t, `"a" "b" x`+"\n"))
	var mnemonics []string
	for _, n := range nodes {
		if p, ok := n.(*ir.Plain); ok {
			mnemonics = append(mnemonics, p.Instr)
		}
	}
	want := []string{"CONCAT", "CONCAT", "RETURN_NO_VAL"}
	if len(mnemonics) != len(want) {
		t.Fatalf("got %v, want %v (full: %s)", mnemonics, want, ir.Render(nodes))
	}
	for i := range want {
		if mnemonics[i] != want[i] {
			t.Fatalf("got %v, want %v", mnemonics, want)
		}
	}
}

// Scenario 3: if/else back-patches BRANCH_FALSE to land after the then
// branch's trailing BRANCH, and that BRANCH to land at the end.
func TestScenario3IfElseBackPatchOffsets(t *testing.T) {
	nodes := emit(t, compile(t, "if (a > 0) b = 1\nelse b = 2\n"))

	var condBr, thenBr *ir.Branch
	for _, n := range nodes {
		if b, ok := n.(*ir.Branch); ok {
			if b.Instr == "BRANCH_FALSE" {
				condBr = b
			} else if b.Instr == "BRANCH" {
				thenBr = b
			}
		}
	}
	if condBr == nil || thenBr == nil {
		t.Fatalf("expected both a BRANCH_FALSE and a BRANCH, got %s", ir.Render(nodes))
	}
	if target := condBr.Addr + condBr.Target; target != thenBr.Addr+1 {
		t.Fatalf("cond branch should land right after the then-branch's BRANCH, landed at %d (thenBr+1=%d)", target, thenBr.Addr+1)
	}
	lastAddr := nodes[len(nodes)-1].Address()
	if target := thenBr.Addr + thenBr.Target; target != lastAddr {
		t.Fatalf("then-branch should land at the final RETURN_NO_VAL (%d), landed at %d", lastAddr, target)
	}
}

// Scenario 4: a C-style for loop emits a non-empty init, a forward
// BRANCH_FALSE from the condition, the body, the increment, and a
// negative-offset backward BRANCH to the loop start.
func TestScenario4ForLoopBranchStructure(t *testing.T) {
	nodes := emit(t, compile(t, "for (i=0; i<3; i++) s = s i\n"))

	var condBr, backBr *ir.Branch
	for _, n := range nodes {
		b, ok := n.(*ir.Branch)
		if !ok {
			continue
		}
		switch b.Instr {
		case "BRANCH_FALSE":
			condBr = b
		case "BRANCH":
			backBr = b
		}
	}
	if condBr == nil {
		t.Fatalf("expected a BRANCH_FALSE from the loop condition: %s", ir.Render(nodes))
	}
	if backBr == nil || backBr.Target >= 0 {
		t.Fatalf("expected a negative-offset backward BRANCH, got %#v", backBr)
	}
	if condBr.Target <= 0 {
		t.Fatalf("expected a forward-offset cond branch, got %d", condBr.Target)
	}
	// init, cond, body, incr and the back-branch must all be present. The
	// init "i=0" comes first: PUSH_SYM const 0 at 0, then ASSIGN i at 1.
	if a, ok := nodes[1].(*ir.Assign); !ok || a.Symbol != "i" {
		t.Fatalf("expected the loop's init assignment to i right after its pushed value, got %#v", nodes[1])
	}
}

func TestBreakContinueBackPatchWithinLoop(t *testing.T) {
	nodes := emit(t, compile(t, "for (;;) {\nbreak\ncontinue\n}\n"))

	var breakBr, continueBr, backBr *ir.Branch
	var unconditionalBranches []*ir.Branch
	for _, n := range nodes {
		if b, ok := n.(*ir.Branch); ok && b.Instr == "BRANCH" {
			unconditionalBranches = append(unconditionalBranches, b)
		}
	}
	if len(unconditionalBranches) != 3 {
		t.Fatalf("expected break, continue, and the backward branch (3 BRANCHes), got %d: %s", len(unconditionalBranches), ir.Render(nodes))
	}
	breakBr, continueBr, backBr = unconditionalBranches[0], unconditionalBranches[1], unconditionalBranches[2]

	loopEnd := backBr.Addr
	if target := breakBr.Addr + breakBr.Target; target != loopEnd+1 {
		t.Fatalf("break should land at loop_end+1=%d, landed at %d", loopEnd+1, target)
	}
	// continue lands at loop_incr, which for an empty incr clause equals loopEnd.
	if target := continueBr.Addr + continueBr.Target; target != loopEnd {
		t.Fatalf("continue should land at loop_incr=%d, landed at %d", loopEnd, target)
	}
}

func TestForEachLoweringProducesGuardedBackwardLoop(t *testing.T) {
	nodes := emit(t, compile(t, "for (x in arr) y = x\n"))

	var nextKey *ir.Plain
	var condBr, backBr *ir.Branch
	for _, n := range nodes {
		switch v := n.(type) {
		case *ir.Plain:
			if v.Instr == "ARRAY_NEXT_KEY" {
				nextKey = v
			}
		case *ir.Branch:
			if v.Instr == "BRANCH_FALSE" {
				condBr = v
			} else if v.Instr == "BRANCH" {
				backBr = v
			}
		}
	}
	if nextKey == nil || condBr == nil || backBr == nil {
		t.Fatalf("expected ARRAY_NEXT_KEY, BRANCH_FALSE and a backward BRANCH: %s", ir.Render(nodes))
	}
	if backBr.Target >= 0 {
		t.Fatalf("expected a negative-offset backward BRANCH, got %d", backBr.Target)
	}
}

func TestArrayIncrementLoweringEmitsRefIncrAssign(t *testing.T) {
	nodes := emit(t, compile(t, "arr[1]++\n"))

	var sawRef, sawIncr, sawAssign bool
	var refIdx, incrIdx, assignIdx int
	for i, n := range nodes {
		switch v := n.(type) {
		case *ir.ArrayOp:
			if v.Instr == "ARRAY_REF" {
				sawRef, refIdx = true, i
			}
			if v.Instr == "ARRAY_ASSIGN" {
				sawAssign, assignIdx = true, i
			}
		case *ir.Plain:
			if v.Instr == "INCR" {
				sawIncr, incrIdx = true, i
			}
		}
	}
	if !sawRef || !sawIncr || !sawAssign {
		t.Fatalf("expected ARRAY_REF, INCR and ARRAY_ASSIGN: %s", ir.Render(nodes))
	}
	if !(refIdx < incrIdx && incrIdx < assignIdx) {
		t.Fatalf("expected ARRAY_REF < INCR < ARRAY_ASSIGN in order, got %d %d %d", refIdx, incrIdx, assignIdx)
	}
}

func TestFunctionIsPluckedIntoItsOwnProgram(t *testing.T) {
	stmts := compile(t, "define f {\nreturn 1\n}\nx = 1\n")
	prog, err := ir.EmitProgram(stmts)
	if err != nil {
		t.Fatalf("emit error: %v", err)
	}
	if _, ok := prog.Functions["f"]; !ok {
		t.Fatalf("expected function %q in Program.Functions, got %v", "f", prog.Functions)
	}
	// The function body must not leak into Main's address space: f's body
	// is PUSH_SYM const 1 and RETURN plus the trailing RETURN_NO_VAL, while
	// Main still has its own assignment plus trailing RETURN_NO_VAL.
	if len(prog.Main) == 0 {
		t.Fatalf("expected a non-empty Main")
	}
	if len(prog.Functions["f"]) != 3 {
		t.Fatalf("expected f's body to be exactly PUSH_SYM const 1 + RETURN + trailing RETURN_NO_VAL, got %s", ir.Render(prog.Functions["f"]))
	}
}

func TestCallFetchesReturnValueOnlyWhenNested(t *testing.T) {
	bare := emit(t, compile(t, "f()\n"))
	var bareFetch bool
	for _, n := range bare {
		if p, ok := n.(*ir.Plain); ok && p.Instr == "FETCH_RET_VAL" {
			bareFetch = true
		}
	}
	if bareFetch {
		t.Fatalf("a bare top-level call should not fetch its return value: %s", ir.Render(bare))
	}

	nested := emit(t, compile(t, "x = f() + 1\n"))
	var nestedFetch bool
	for _, n := range nested {
		if p, ok := n.(*ir.Plain); ok && p.Instr == "FETCH_RET_VAL" {
			nestedFetch = true
		}
	}
	if !nestedFetch {
		t.Fatalf("a call nested in a binary expression must fetch its return value: %s", ir.Render(nested))
	}
}

// Universal property: no BRANCH* node in finished IR carries the
// unpatched sentinel, and every patched target lands within [0, len(IR)].
func TestNoUnpatchedSentinelsAndTargetsInBounds(t *testing.T) {
	sources := []string{
		"if (a) b = 1\nelse b = 2\n",
		"for (i=0; i<3; i++) x = i\n",
		"for (;;) {\nbreak\ncontinue\n}\n",
		"for (x in arr) y = x\n",
		"a && b || c\n",
	}
	for _, src := range sources {
		nodes := emit(t, compile(t, src))
		for _, n := range nodes {
			b, ok := n.(*ir.Branch)
			if !ok {
				continue
			}
			if b.Target == ir.Unpatched {
				t.Fatalf("%q: unpatched branch at %d: %s", src, b.Addr, ir.Render(nodes))
			}
			target := b.Addr + b.Target
			if target < 0 || target > int64(len(nodes)) {
				t.Fatalf("%q: branch target %d out of bounds [0,%d]: %s", src, target, len(nodes), ir.Render(nodes))
			}
		}
	}
}

func TestShortCircuitAndEveryBranchPatched(t *testing.T) {
	nodes := emit(t, compile(t, "a && b && c\n"))
	count := 0
	for _, n := range nodes {
		if b, ok := n.(*ir.Branch); ok {
			count++
			if b.Target == ir.Unpatched {
				t.Fatalf("unpatched branch at %d", b.Addr)
			}
		}
	}
	if count != 2 {
		t.Fatalf("expected 2 BRANCH_FALSE nodes for a three-operand AND chain, got %d: %s", count, ir.Render(nodes))
	}
}

func TestUnaryNotCannotBeEmitted(t *testing.T) {
	_, err := ir.Emit(compile(t, "x = !a\n"))
	if err == nil {
		t.Fatalf("expected an error: the original never implements NOT emission either")
	}
}

func TestDeleteEmitsArrayDelete(t *testing.T) {
	nodes := emit(t, compile(t, "delete arr[1]\n"))
	var sawDelete bool
	for _, n := range nodes {
		if op, ok := n.(*ir.ArrayOp); ok && op.Instr == "ARRAY_DELETE" {
			sawDelete = true
		}
	}
	if !sawDelete {
		t.Fatalf("expected ARRAY_DELETE: %s", ir.Render(nodes))
	}
}
