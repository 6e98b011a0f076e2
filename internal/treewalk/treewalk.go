// Package treewalk implements a direct tree-walking evaluator, grounded
// on the teacher's interpreter/interpreter.go (panic-based control flow
// recovered at the top of Interpret, block-scoped environments) but
// generalized to this language's full grammar: user functions, for
// loops, break/continue, and the built-in registry. It is not part of
// the bytecode CORE; cmd/ocl's REPL uses it as the fast default
// execution mode, switching to the compiled VM path with --compiled.
package treewalk

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/NumSlower/ocl/internal/ast"
	"github.com/NumSlower/ocl/internal/builtin"
	"github.com/NumSlower/ocl/internal/token"
	"github.com/NumSlower/ocl/internal/value"
)

// breakSignal and continueSignal are panicked to unwind out of nested
// statement execution to the enclosing loop; returnSignal unwinds to
// the enclosing function call.
type breakSignal struct{}
type continueSignal struct{}
type returnSignal struct{ value value.Value }

// Interpreter executes a syntax tree directly, without compiling to
// bytecode.
type Interpreter struct {
	globals     *Environment
	environment *Environment
	functions   map[string]ast.FuncDecl
	stdout      io.Writer
	exitCode    int
}

// New creates an Interpreter writing print/printf output to stdout.
func New(stdout io.Writer) *Interpreter {
	if stdout == nil {
		stdout = os.Stdout
	}
	env := NewEnvironment()
	return &Interpreter{globals: env, environment: env, functions: make(map[string]ast.FuncDecl), stdout: stdout}
}

// ExitCode returns the process exit code after Run returns: the operand
// of a top-level return or exit() call, or 0 otherwise.
func (in *Interpreter) ExitCode() int { return in.exitCode }

// Run registers every top-level function, then executes the remaining
// top-level statements in order, then calls main() if one was declared.
// Panics from RuntimeError or *builtin.ExitError escaping a malformed
// program are recovered and returned as an error, matching the teacher's
// Interpret panic-recovery shape. A returnSignal escaping to this level
// means a `return` appeared outside any function (spec §8): it is not an
// error, it halts the program with its value as the exit code, exactly
// like a top-level return in the compiled VM.
func (in *Interpreter) Run(stmts []ast.Stmt) (err error) {
	defer func() {
		if r := recover(); r != nil {
			if rt, ok := r.(RuntimeError); ok {
				err = rt
				return
			}
			if exit, ok := r.(*builtin.ExitError); ok {
				in.exitCode = exit.Code
				err = exit
				return
			}
			if ret, ok := r.(returnSignal); ok {
				in.exitCode = exitCodeFromValue(ret.value)
				return
			}
			err = fmt.Errorf("%v", r)
		}
	}()

	for _, s := range stmts {
		if f, ok := s.(ast.FuncDecl); ok {
			in.functions[f.Name.Lexeme] = f
		}
	}
	for _, s := range stmts {
		if _, ok := s.(ast.FuncDecl); ok {
			continue
		}
		in.exec(s)
	}
	if main, ok := in.functions["main"]; ok {
		in.callUser(main, nil, token.Token{})
	}
	return nil
}

// exitCodeFromValue converts a returned value to a process exit code,
// mirroring internal/vm's same-named helper: Int and Float truncate,
// Bool is 0/1, everything else is 0.
func exitCodeFromValue(v value.Value) int {
	switch v.Kind {
	case value.KindInt:
		return int(v.Int)
	case value.KindFloat:
		return int(v.Float)
	case value.KindBool:
		if v.Bool {
			return 1
		}
	}
	return 0
}

func (in *Interpreter) exec(s ast.Stmt) { s.Accept(in) }
func (in *Interpreter) eval(e ast.Expression) value.Value {
	return e.Accept(in).(value.Value)
}

func (in *Interpreter) VisitExpressionStmt(s ast.ExpressionStmt) any {
	in.eval(s.Expression)
	return nil
}

func (in *Interpreter) VisitVarStmt(s ast.VarStmt) any {
	v := value.Null()
	if s.Initializer != nil {
		v = in.eval(s.Initializer)
	}
	in.environment.Define(s.Name.Lexeme, value.OwnCopy(v))
	return nil
}

func (in *Interpreter) VisitBlockStmt(s ast.BlockStmt) any {
	previous := in.environment
	in.environment = NewNestedEnvironment(previous)
	defer func() { in.environment = previous }()
	for _, stmt := range s.Statements {
		in.exec(stmt)
	}
	return nil
}

func (in *Interpreter) VisitIfStmt(s ast.IfStmt) any {
	if value.Truthy(in.eval(s.Condition)) {
		in.exec(s.Then)
	} else if s.Else != nil {
		in.exec(s.Else)
	}
	return nil
}

func (in *Interpreter) VisitWhileStmt(s ast.WhileStmt) any {
	for value.Truthy(in.eval(s.Condition)) {
		if in.runLoopBody(s.Body) {
			break
		}
	}
	return nil
}

func (in *Interpreter) VisitForStmt(s ast.ForStmt) any {
	previous := in.environment
	in.environment = NewNestedEnvironment(previous)
	defer func() { in.environment = previous }()

	if s.Init != nil {
		in.exec(s.Init)
	}
	for s.Condition == nil || value.Truthy(in.eval(s.Condition)) {
		if in.runLoopBody(s.Body) {
			break
		}
		if s.Step != nil {
			in.exec(s.Step)
		}
	}
	return nil
}

// runLoopBody executes one loop iteration's body, catching break (which
// reports true so the caller stops looping) and continue (which simply
// ends the iteration).
func (in *Interpreter) runLoopBody(body ast.Stmt) (brk bool) {
	defer func() {
		if r := recover(); r != nil {
			switch r.(type) {
			case breakSignal:
				brk = true
			case continueSignal:
				brk = false
			default:
				panic(r)
			}
		}
	}()
	in.exec(body)
	return false
}

func (in *Interpreter) VisitReturnStmt(s ast.ReturnStmt) any {
	v := value.Null()
	if s.Value != nil {
		v = in.eval(s.Value)
	}
	panic(returnSignal{value: value.OwnCopy(v)})
}

func (in *Interpreter) VisitBreakStmt(s ast.BreakStmt) any    { panic(breakSignal{}) }
func (in *Interpreter) VisitContinueStmt(s ast.ContinueStmt) any { panic(continueSignal{}) }

func (in *Interpreter) VisitFuncDecl(f ast.FuncDecl) any {
	in.functions[f.Name.Lexeme] = f
	return nil
}

func (in *Interpreter) VisitImportStmt(s ast.ImportStmt) any { return nil }

func (in *Interpreter) VisitLiteral(l ast.Literal) any { return l.Value }

func (in *Interpreter) VisitGrouping(g ast.Grouping) any { return in.eval(g.Expression) }

func (in *Interpreter) VisitVariable(v ast.Variable) any {
	val, err := in.environment.Get(v.Name)
	if err != nil {
		panic(RuntimeError{Line: v.Name.Line, Column: v.Name.Column, Message: err.Error()})
	}
	return val
}

func (in *Interpreter) VisitAssign(a ast.Assign) any {
	v := in.eval(a.Value)
	switch target := a.Target.(type) {
	case ast.Variable:
		if err := in.environment.Assign(target.Name, value.OwnCopy(v)); err != nil {
			panic(RuntimeError{Line: target.Name.Line, Column: target.Name.Column, Message: err.Error()})
		}
	case ast.Index:
		in.eval(target.Array)
		in.eval(target.Idx)
		panic(RuntimeError{Line: target.Bracket.Line, Column: target.Bracket.Column, Message: "array operations are not implemented"})
	}
	return v
}

func (in *Interpreter) VisitLogical(l ast.Logical) any {
	left := in.eval(l.Left)
	right := in.eval(l.Right)
	if l.Operator.Type == token.AND_AND {
		return value.Bool(value.Truthy(left) && value.Truthy(right))
	}
	return value.Bool(value.Truthy(left) || value.Truthy(right))
}

func (in *Interpreter) VisitUnary(u ast.Unary) any {
	right := in.eval(u.Right)
	if u.Operator.Type == token.BANG {
		return value.Bool(!value.Truthy(right))
	}
	if right.Kind == value.KindInt {
		return value.Int(-right.Int)
	}
	return value.Float(-asFloat(right))
}

func asFloat(v value.Value) float64 {
	if v.Kind == value.KindInt {
		return float64(v.Int)
	}
	return v.Float
}

func (in *Interpreter) VisitBinary(b ast.Binary) any {
	left := in.eval(b.Left)
	right := in.eval(b.Right)
	pos := b.Operator

	switch b.Operator.Type {
	case token.PLUS:
		if left.Kind == value.KindString || right.Kind == value.KindString {
			return value.StringCopy([]byte(value.ToDisplay(left) + value.ToDisplay(right)))
		}
		if left.Kind == value.KindInt && right.Kind == value.KindInt {
			return value.Int(left.Int + right.Int)
		}
		return value.Float(asFloat(left) + asFloat(right))
	case token.MINUS:
		if left.Kind == value.KindInt && right.Kind == value.KindInt {
			return value.Int(left.Int - right.Int)
		}
		return value.Float(asFloat(left) - asFloat(right))
	case token.STAR:
		if left.Kind == value.KindInt && right.Kind == value.KindInt {
			return value.Int(left.Int * right.Int)
		}
		return value.Float(asFloat(left) * asFloat(right))
	case token.SLASH:
		if left.Kind == value.KindInt && right.Kind == value.KindInt {
			if right.Int == 0 {
				panic(RuntimeError{Line: pos.Line, Column: pos.Column, Message: "division by zero"})
			}
			return value.Int(left.Int / right.Int)
		}
		if asFloat(right) == 0 {
			panic(RuntimeError{Line: pos.Line, Column: pos.Column, Message: "division by zero"})
		}
		return value.Float(asFloat(left) / asFloat(right))
	case token.PERCENT:
		if left.Kind == value.KindInt && right.Kind == value.KindInt && right.Int != 0 {
			return value.Int(left.Int % right.Int)
		}
		return value.Null()
	case token.EQUAL_EQUAL:
		return value.Bool(value.Equal(left, right))
	case token.NOT_EQUAL:
		return value.Bool(!value.Equal(left, right))
	case token.LESS:
		return numericCompare(left, right, func(a, b int64) bool { return a < b }, func(a, b float64) bool { return a < b })
	case token.LESS_EQUAL:
		return numericCompare(left, right, func(a, b int64) bool { return a <= b }, func(a, b float64) bool { return a <= b })
	case token.GREATER:
		return numericCompare(left, right, func(a, b int64) bool { return a > b }, func(a, b float64) bool { return a > b })
	case token.GREATER_EQUAL:
		return numericCompare(left, right, func(a, b int64) bool { return a >= b }, func(a, b float64) bool { return a >= b })
	default:
		panic(RuntimeError{Line: pos.Line, Column: pos.Column, Message: fmt.Sprintf("operator '%s' not supported", b.Operator.Lexeme)})
	}
}

func numericCompare(a, b value.Value, intOp func(a, b int64) bool, floatOp func(a, b float64) bool) value.Value {
	if a.Kind == value.KindInt && b.Kind == value.KindInt {
		return value.Bool(intOp(a.Int, b.Int))
	}
	return value.Bool(floatOp(asFloat(a), asFloat(b)))
}

func (in *Interpreter) VisitIndex(i ast.Index) any {
	in.eval(i.Array)
	in.eval(i.Idx)
	panic(RuntimeError{Line: i.Bracket.Line, Column: i.Bracket.Column, Message: "array operations are not implemented"})
}

func (in *Interpreter) VisitCall(c ast.Call) any {
	args := make([]value.Value, len(c.Args))
	for idx, a := range c.Args {
		args[idx] = in.eval(a)
	}

	switch c.Callee.Lexeme {
	case builtin.PrintName:
		if len(args) > 0 {
			fmt.Fprintln(in.stdout, value.ToDisplay(args[0]))
		} else {
			fmt.Fprintln(in.stdout)
		}
		return value.Null()
	case builtin.FormattedPrintName:
		if len(args) == 0 {
			return value.Null()
		}
		fmt.Fprint(in.stdout, interpretFormat(value.ToDisplay(args[0]), args[1:]))
		return value.Null()
	}

	if entry, ok := builtin.Lookup(c.Callee.Lexeme); ok {
		if !entry.CheckArity(len(args)) {
			panic(RuntimeError{Line: c.Callee.Line, Column: c.Callee.Column,
				Message: fmt.Sprintf("'%s' expects %d argument(s), got %d", entry.Name, entry.Arity, len(args))})
		}
		result, err := entry.Handler(args)
		if err != nil {
			if exit, ok := err.(*builtin.ExitError); ok {
				panic(exit)
			}
			panic(RuntimeError{Line: c.Callee.Line, Column: c.Callee.Column, Message: err.Error()})
		}
		return result
	}

	if fn, ok := in.functions[c.Callee.Lexeme]; ok {
		return in.callUser(fn, args, c.Callee)
	}

	panic(RuntimeError{Line: c.Callee.Line, Column: c.Callee.Column, Message: fmt.Sprintf("undefined function '%s'", c.Callee.Lexeme)})
}

// callUser invokes a user-defined function in a fresh scope parented on
// globals only — the language has no closures (Non-goal), so a call
// never sees the caller's locals.
func (in *Interpreter) callUser(fn ast.FuncDecl, args []value.Value, callee token.Token) (result value.Value) {
	previous := in.environment
	in.environment = NewNestedEnvironment(in.globals)
	defer func() { in.environment = previous }()

	for idx, p := range fn.Params {
		v := value.Null()
		if idx < len(args) {
			v = args[idx]
		}
		in.environment.Define(p.Name.Lexeme, value.OwnCopy(v))
	}

	result = value.Null()
	func() {
		defer func() {
			if r := recover(); r != nil {
				if ret, ok := r.(returnSignal); ok {
					result = ret.value
					return
				}
				panic(r)
			}
		}()
		for _, s := range fn.Body {
			in.exec(s)
		}
	}()
	return result
}

// interpretFormat mirrors internal/vm's formatPrintf so both evaluators
// render printf identically: \n \t \r \\ escapes decoded, then %s %d %i
// %f %c %b %% specifiers consumed left to right against args.
func interpretFormat(format string, args []value.Value) string {
	format = strings.NewReplacer(`\n`, "\n", `\t`, "\t", `\r`, "\r", `\\`, `\`).Replace(format)

	var b strings.Builder
	argi := 0
	next := func() value.Value {
		if argi < len(args) {
			v := args[argi]
			argi++
			return v
		}
		return value.Null()
	}
	for i := 0; i < len(format); i++ {
		ch := format[i]
		if ch != '%' || i == len(format)-1 {
			b.WriteByte(ch)
			continue
		}
		spec := format[i+1]
		i++
		switch spec {
		case 's':
			b.WriteString(value.ToDisplay(next()))
		case 'd', 'i':
			b.WriteString(value.ToDisplay(toIntValue(next())))
		case 'f':
			b.WriteString(value.ToDisplay(toFloatValue(next())))
		case 'c':
			v := next()
			b.WriteByte(v.Char)
		case 'b':
			b.WriteString(value.ToDisplay(value.Bool(value.Truthy(next()))))
		case '%':
			b.WriteByte('%')
		default:
			b.WriteByte('%')
			b.WriteByte(spec)
		}
	}
	return b.String()
}

func toIntValue(v value.Value) value.Value {
	switch v.Kind {
	case value.KindInt:
		return v
	case value.KindFloat:
		return value.Int(int64(v.Float))
	case value.KindBool:
		if v.Bool {
			return value.Int(1)
		}
		return value.Int(0)
	case value.KindChar:
		return value.Int(int64(v.Char))
	default:
		return value.Int(0)
	}
}

func toFloatValue(v value.Value) value.Value {
	switch v.Kind {
	case value.KindInt:
		return value.Float(float64(v.Int))
	case value.KindFloat:
		return v
	default:
		return value.Float(0)
	}
}
