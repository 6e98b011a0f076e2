package treewalk

import (
	"bytes"
	"strings"
	"testing"

	"github.com/NumSlower/ocl/internal/diag"
	"github.com/NumSlower/ocl/internal/lexer"
	"github.com/NumSlower/ocl/internal/parser"
)

func runSource(t *testing.T, src string) (string, error) {
	t.Helper()
	out, err, _ := runSourceWithExitCode(t, src)
	return out, err
}

func runSourceWithExitCode(t *testing.T, src string) (string, error, int) {
	t.Helper()
	collector := diag.New()
	toks := lexer.New(src, collector).Scan()
	stmts := parser.New(toks, collector).Parse()
	if collector.HasErrors() {
		t.Fatalf("unexpected parse diagnostics: %v", collector.Items())
	}
	var out bytes.Buffer
	interp := New(&out)
	err := interp.Run(stmts)
	return out.String(), err, interp.ExitCode()
}

func TestTreewalkPrintLiteral(t *testing.T) {
	out, err := runSource(t, `print("hello");`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.TrimSpace(out) != "hello" {
		t.Errorf("got output %q, want %q", out, "hello")
	}
}

func TestTreewalkArithmeticPrecedence(t *testing.T) {
	out, err := runSource(t, `print(1 + 2 * 3);`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.TrimSpace(out) != "7" {
		t.Errorf("got output %q, want %q", out, "7")
	}
}

func TestTreewalkRecursiveFunction(t *testing.T) {
	out, err := runSource(t, `
		func int fact(n: int) {
			if (n <= 1) { return 1; }
			return n * fact(n - 1);
		}
		func main() { print(fact(5)); }
	`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.TrimSpace(out) != "120" {
		t.Errorf("got output %q, want %q", out, "120")
	}
}

func TestTreewalkWhileLoopWithBreakAndContinue(t *testing.T) {
	out, err := runSource(t, `
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
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.TrimSpace(out) != "25" {
		t.Errorf("got output %q, want %q", out, "25")
	}
}

func TestTreewalkForLoop(t *testing.T) {
	out, err := runSource(t, `
		func main() {
			Let sum : int = 0;
			for (Let i : int = 0; i < 5; i = i + 1) {
				sum = sum + i;
			}
			print(sum);
		}
	`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.TrimSpace(out) != "10" {
		t.Errorf("got output %q, want %q", out, "10")
	}
}

func TestTreewalkDivisionByZeroHaltsWithRuntimeError(t *testing.T) {
	// Unlike the compiled VM (which treats division by zero as a
	// non-halting recoverable error), the tree-walking evaluator panics a
	// RuntimeError the same way the teacher's interpreter panics on any
	// unrecoverable condition, so execution stops immediately.
	_, err := runSource(t, `
		func main() {
			print(1 / 0);
			print("unreachable");
		}
	`)
	if err == nil {
		t.Fatal("expected a RuntimeError for division by zero")
	}
	if _, ok := err.(RuntimeError); !ok {
		t.Errorf("got error of type %T, want RuntimeError", err)
	}
}

func TestTreewalkStringConcatenationViaPlus(t *testing.T) {
	out, err := runSource(t, `print("a" + "b");`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.TrimSpace(out) != "ab" {
		t.Errorf("got output %q, want %q", out, "ab")
	}
}

func TestTreewalkFormattedPrintColonMode(t *testing.T) {
	out, err := runSource(t, `
		func main() {
			Let x : int = 3;
			Let y : int = 4;
			printf("x=%d y=%d" : x, y);
		}
	`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.TrimSpace(out) != "x=3 y=4" {
		t.Errorf("got output %q, want %q", out, "x=3 y=4")
	}
}

func TestTreewalkExitPropagatesAsError(t *testing.T) {
	_, err, exitCode := runSourceWithExitCode(t, `func main() { exit(3); print("unreachable"); }`)
	if err == nil {
		t.Fatal("expected exit() to propagate as an error from Run")
	}
	if exitCode != 3 {
		t.Errorf("got exit code %d, want 3", exitCode)
	}
}

func TestTreewalkTopLevelReturnHaltsWithItsValueAsExitCode(t *testing.T) {
	// A `return` outside any function escapes every callUser recovery
	// and reaches Run's own recover, which must treat it as a normal
	// top-level halt rather than an error (spec §8).
	out, err, exitCode := runSourceWithExitCode(t, `print("before"); return 7; print("unreachable");`)
	if err != nil {
		t.Fatalf("a top-level return must not be reported as an error: %v", err)
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

func TestTreewalkUndefinedVariableIsRuntimeError(t *testing.T) {
	_, err := runSource(t, `print(doesNotExist);`)
	if err == nil {
		t.Fatal("expected a RuntimeError for an undefined variable")
	}
	if _, ok := err.(RuntimeError); !ok {
		t.Errorf("got error of type %T, want RuntimeError", err)
	}
}
