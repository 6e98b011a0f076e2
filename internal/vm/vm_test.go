package vm

import (
	"bytes"
	"strings"
	"testing"

	"github.com/NumSlower/ocl/internal/codegen"
	"github.com/NumSlower/ocl/internal/diag"
	"github.com/NumSlower/ocl/internal/lexer"
	"github.com/NumSlower/ocl/internal/parser"
)

func runSource(t *testing.T, src string) (string, *diag.Collector, int) {
	t.Helper()
	collector := diag.New()
	toks := lexer.New(src, collector).Scan()
	stmts := parser.New(toks, collector).Parse()
	if collector.HasErrors() {
		t.Fatalf("unexpected parse diagnostics: %v", collector.Items())
	}
	chunk := codegen.New(collector).Generate(stmts)
	if collector.HasErrors() {
		t.Fatalf("unexpected codegen diagnostics: %v", collector.Items())
	}
	var out bytes.Buffer
	machine := New(chunk, collector, &out)
	if err := machine.Run(); err != nil {
		t.Fatalf("Run returned an error: %v", err)
	}
	return out.String(), collector, machine.ExitCode()
}

func TestEndToEndPrintLiteral(t *testing.T) {
	out, collector, _ := runSource(t, `print("hello");`)
	if collector.HasErrors() {
		t.Fatalf("unexpected runtime diagnostics: %v", collector.Items())
	}
	if strings.TrimSpace(out) != "hello" {
		t.Errorf("got output %q, want %q", out, "hello")
	}
}

func TestEndToEndArithmeticPrecedence(t *testing.T) {
	out, collector, _ := runSource(t, `print(1 + 2 * 3);`)
	if collector.HasErrors() {
		t.Fatalf("unexpected runtime diagnostics: %v", collector.Items())
	}
	if strings.TrimSpace(out) != "7" {
		t.Errorf("got output %q, want %q", out, "7")
	}
}

func TestEndToEndFunctionCallAndReturn(t *testing.T) {
	out, collector, _ := runSource(t, `
		func int add(a: int, b: int) { return a + b; }
		func main() { print(add(3, 4)); }
	`)
	if collector.HasErrors() {
		t.Fatalf("unexpected runtime diagnostics: %v", collector.Items())
	}
	if strings.TrimSpace(out) != "7" {
		t.Errorf("got output %q, want %q", out, "7")
	}
}

func TestEndToEndRecursiveFunction(t *testing.T) {
	out, collector, _ := runSource(t, `
		func int fact(n: int) {
			if (n <= 1) { return 1; }
			return n * fact(n - 1);
		}
		func main() { print(fact(5)); }
	`)
	if collector.HasErrors() {
		t.Fatalf("unexpected runtime diagnostics: %v", collector.Items())
	}
	if strings.TrimSpace(out) != "120" {
		t.Errorf("got output %q, want %q", out, "120")
	}
}

func TestEndToEndWhileLoopWithBreakAndContinue(t *testing.T) {
	out, collector, _ := runSource(t, `
		func main() {
			Let i : int = 0;
			Let sum : int = 0;
			while (true) {
				i = i + 1;
				if (i > 10) { break; }
				if (i % 2 == 0) { continue; }
				sum = sum + i;
			}
			print(sum);
		}
	`)
	if collector.HasErrors() {
		t.Fatalf("unexpected runtime diagnostics: %v", collector.Items())
	}
	// odd numbers 1..9: 1+3+5+7+9 = 25
	if strings.TrimSpace(out) != "25" {
		t.Errorf("got output %q, want %q", out, "25")
	}
}

func TestEndToEndForLoop(t *testing.T) {
	out, collector, _ := runSource(t, `
		func main() {
			Let sum : int = 0;
			for (Let i : int = 0; i < 5; i = i + 1) {
				sum = sum + i;
			}
			print(sum);
		}
	`)
	if collector.HasErrors() {
		t.Fatalf("unexpected runtime diagnostics: %v", collector.Items())
	}
	if strings.TrimSpace(out) != "10" {
		t.Errorf("got output %q, want %q", out, "10")
	}
}

func TestEndToEndDivisionByZeroIsRecoverableNotFatal(t *testing.T) {
	out, collector, exitCode := runSource(t, `
		func main() {
			print(1 / 0);
			print("still running");
		}
	`)
	if !collector.HasErrors() {
		t.Fatal("expected a recoverable division-by-zero diagnostic")
	}
	if !strings.Contains(out, "still running") {
		t.Errorf("expected execution to continue past division by zero, got %q", out)
	}
	if exitCode != 0 {
		t.Errorf("a recoverable runtime error must not set a nonzero exit code, got %d", exitCode)
	}
}

func TestEndToEndStringConcatenationViaPlus(t *testing.T) {
	out, collector, _ := runSource(t, `print("a" + "b");`)
	if collector.HasErrors() {
		t.Fatalf("unexpected runtime diagnostics: %v", collector.Items())
	}
	if strings.TrimSpace(out) != "ab" {
		t.Errorf("got output %q, want %q", out, "ab")
	}
}

func TestEndToEndFormattedPrintColonMode(t *testing.T) {
	out, collector, _ := runSource(t, `
		func main() {
			Let x : int = 3;
			Let y : int = 4;
			printf("x=%d y=%d" : x, y);
		}
	`)
	if collector.HasErrors() {
		t.Fatalf("unexpected runtime diagnostics: %v", collector.Items())
	}
	if strings.TrimSpace(out) != "x=3 y=4" {
		t.Errorf("got output %q, want %q", out, "x=3 y=4")
	}
}

func TestEndToEndExitSetsExitCode(t *testing.T) {
	_, collector, exitCode := runSource(t, `func main() { exit(3); print("unreachable"); }`)
	if collector.HasErrors() {
		t.Fatalf("unexpected diagnostics: %v", collector.Items())
	}
	if exitCode != 3 {
		t.Errorf("got exit code %d, want 3", exitCode)
	}
}

func TestEndToEndMainReturnValueBecomesExitCode(t *testing.T) {
	// Generate's pass 3c calls main() without popping its result, so an
	// int return value left on the stack at halt becomes the exit code.
	_, _, exitCode := runSource(t, `func int main() { return 5; }`)
	if exitCode != 5 {
		t.Errorf("got exit code %d, want 5 (main's return value at halt)", exitCode)
	}
}

func TestEndToEndTopLevelReturnHaltsWithItsValueAsExitCode(t *testing.T) {
	// A return outside any function has no call frame to pop; it must
	// halt like OpHalt rather than fault, taking the exit code from its
	// operand (spec §8: "a following `return x;` at top level exits with
	// code 7").
	out, collector, exitCode := runSource(t, `print("before"); return 7; print("unreachable");`)
	if collector.HasErrors() {
		t.Fatalf("a top-level return must not be a runtime fault: %v", collector.Items())
	}
	if exitCode != 7 {
		t.Errorf("got exit code %d, want 7", exitCode)
	}
	if !strings.Contains(out, "before") {
		t.Errorf("expected statements before the top-level return to still execute, got %q", out)
	}
	if strings.Contains(out, "unreachable") {
		t.Errorf("expected the top-level return to halt execution, got %q", out)
	}
}
