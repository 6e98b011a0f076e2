package codegen

import (
	"testing"

	"github.com/NumSlower/ocl/internal/bytecode"
	"github.com/NumSlower/ocl/internal/diag"
	"github.com/NumSlower/ocl/internal/lexer"
	"github.com/NumSlower/ocl/internal/parser"
)

func generate(t *testing.T, src string) (*bytecode.Chunk, *diag.Collector) {
	t.Helper()
	collector := diag.New()
	toks := lexer.New(src, collector).Scan()
	stmts := parser.New(toks, collector).Parse()
	if collector.HasErrors() {
		t.Fatalf("unexpected parse diagnostics: %v", collector.Items())
	}
	chunk := New(collector).Generate(stmts)
	return chunk, collector
}

func opsOf(chunk *bytecode.Chunk) []bytecode.Op {
	ops := make([]bytecode.Op, len(chunk.Instructions))
	for i, instr := range chunk.Instructions {
		ops[i] = instr.Op
	}
	return ops
}

func containsOp(ops []bytecode.Op, want bytecode.Op) bool {
	for _, op := range ops {
		if op == want {
			return true
		}
	}
	return false
}

func TestGenerateGlobalVarStmtEmitsStoreGlobal(t *testing.T) {
	chunk, collector := generate(t, "Let x : int = 5;")
	if collector.HasErrors() {
		t.Fatalf("unexpected diagnostics: %v", collector.Items())
	}
	ops := opsOf(chunk)
	if !containsOp(ops, bytecode.OpPushConst) || !containsOp(ops, bytecode.OpStoreGlobal) {
		t.Errorf("got %v, want push-const and store-global", ops)
	}
	// The chunk always ends in halt.
	if ops[len(ops)-1] != bytecode.OpHalt {
		t.Errorf("last instruction is %v, want OpHalt", ops[len(ops)-1])
	}
}

func TestGenerateBinaryExpressionEmitsOperatorOpcode(t *testing.T) {
	chunk, collector := generate(t, "1 + 2;")
	if collector.HasErrors() {
		t.Fatalf("unexpected diagnostics: %v", collector.Items())
	}
	if !containsOp(opsOf(chunk), bytecode.OpAdd) {
		t.Errorf("expected an OpAdd in %v", opsOf(chunk))
	}
}

func TestGenerateIfStmtBackpatchesJumpIfFalsePastThenBranch(t *testing.T) {
	chunk, collector := generate(t, "if (true) { 1; } else { 2; }")
	if collector.HasErrors() {
		t.Fatalf("unexpected diagnostics: %v", collector.Items())
	}
	var falseJumpIdx = -1
	for i, instr := range chunk.Instructions {
		if instr.Op == bytecode.OpJumpIfFalse {
			falseJumpIdx = i
			break
		}
	}
	if falseJumpIdx < 0 {
		t.Fatalf("expected an OpJumpIfFalse in %v", opsOf(chunk))
	}
	target := chunk.Instructions[falseJumpIdx].A
	if int(target) <= falseJumpIdx || int(target) > len(chunk.Instructions) {
		t.Errorf("jump-if-false target %d out of expected range (must land after the then-branch)", target)
	}
}

func TestGenerateWhileLoopJumpsBackToConditionCheck(t *testing.T) {
	chunk, collector := generate(t, "while (true) { 1; }")
	if collector.HasErrors() {
		t.Fatalf("unexpected diagnostics: %v", collector.Items())
	}
	var backJump *bytecode.Instruction
	for i := range chunk.Instructions {
		if chunk.Instructions[i].Op == bytecode.OpJump {
			backJump = &chunk.Instructions[i]
		}
	}
	if backJump == nil {
		t.Fatalf("expected an unconditional back-jump in %v", opsOf(chunk))
	}
	if backJump.A != 0 {
		t.Errorf("got back-jump target %d, want 0 (condition re-check at loop start)", backJump.A)
	}
}

func TestGenerateBreakPatchesToLoopEnd(t *testing.T) {
	chunk, collector := generate(t, "while (true) { break; }")
	if collector.HasErrors() {
		t.Fatalf("unexpected diagnostics: %v", collector.Items())
	}
	// The break's jump target must be the index of the final halt
	// (instruction count minus one), since halt is the only instruction
	// emitted after the patched loop.
	var breakJump *bytecode.Instruction
	seenJumpIfFalse := false
	for i := range chunk.Instructions {
		switch chunk.Instructions[i].Op {
		case bytecode.OpJumpIfFalse:
			seenJumpIfFalse = true
		case bytecode.OpJump:
			if seenJumpIfFalse && breakJump == nil {
				breakJump = &chunk.Instructions[i]
			}
		}
	}
	if breakJump == nil {
		t.Fatalf("expected a break jump after the condition check in %v", opsOf(chunk))
	}
	if int(breakJump.A) != len(chunk.Instructions)-1 {
		t.Errorf("got break target %d, want %d (the halt instruction)", breakJump.A, len(chunk.Instructions)-1)
	}
}

func TestGenerateBreakOutsideLoopReportsDiagnostic(t *testing.T) {
	_, collector := generate(t, "break;")
	if !collector.HasErrors() {
		t.Fatal("expected a diagnostic for 'break' outside any loop")
	}
}

func TestGenerateFunctionRegistersOrdinalAndEmitsCall(t *testing.T) {
	chunk, collector := generate(t, "func int add(a: int, b: int) { return a + b; } func main() { add(1, 2); }")
	if collector.HasErrors() {
		t.Fatalf("unexpected diagnostics: %v", collector.Items())
	}
	if len(chunk.Functions) != 2 {
		t.Fatalf("got %d registered functions, want 2", len(chunk.Functions))
	}
	for _, fn := range chunk.Functions {
		if fn.StartIP == bytecode.SentinelIP {
			t.Errorf("function %q never had its start_ip resolved", fn.Name)
		}
	}
	if !containsOp(opsOf(chunk), bytecode.OpCall) {
		t.Errorf("expected at least one OpCall in %v", opsOf(chunk))
	}
}

func TestGenerateUndefinedFunctionCallReportsDiagnostic(t *testing.T) {
	_, collector := generate(t, "func main() { missing(1); }")
	if !collector.HasErrors() {
		t.Fatal("expected a diagnostic for an undefined function call")
	}
}

func TestGenerateAssignmentReloadsValueAfterStore(t *testing.T) {
	chunk, collector := generate(t, "Let x : int = 1; x = 2;")
	if collector.HasErrors() {
		t.Fatalf("unexpected diagnostics: %v", collector.Items())
	}
	// An assignment expression must be followed by a reload of the same
	// global slot, since its result is discarded by OpPop right after
	// (it's used here as an expression statement).
	found := false
	for i := 0; i+1 < len(chunk.Instructions); i++ {
		if chunk.Instructions[i].Op == bytecode.OpStoreGlobal && chunk.Instructions[i+1].Op == bytecode.OpLoadGlobal {
			if chunk.Instructions[i].A == chunk.Instructions[i+1].A {
				found = true
			}
		}
	}
	if !found {
		t.Errorf("expected a store-global immediately followed by a load-global of the same slot in %v", opsOf(chunk))
	}
}

func TestGenerateFunctionBodyWithoutExplicitReturnAppendsImplicitReturn(t *testing.T) {
	chunk, collector := generate(t, "func main() { 1; }")
	if collector.HasErrors() {
		t.Fatalf("unexpected diagnostics: %v", collector.Items())
	}
	ordinal, ok := chunk.FindFunction("main")
	if !ok {
		t.Fatal("expected 'main' to be registered")
	}
	start := chunk.Functions[ordinal].StartIP
	foundReturn := false
	for i := int(start); i < len(chunk.Instructions); i++ {
		if chunk.Instructions[i].Op == bytecode.OpReturn {
			foundReturn = true
			break
		}
	}
	if !foundReturn {
		t.Errorf("expected an implicit OpReturn appended to a function body lacking one")
	}
}
