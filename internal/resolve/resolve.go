// Package resolve implements the type/symbol resolver (component G): an
// advisory tree walk that accumulates diagnostics without rewriting the
// tree, grounded on the teacher's visitor-based traversal shape
// (internal/ast's ExpressionVisitor/StmtVisitor) but checking this
// language's declaration and call semantics instead of Nilan's.
package resolve

import (
	"github.com/NumSlower/ocl/internal/ast"
	"github.com/NumSlower/ocl/internal/builtin"
	"github.com/NumSlower/ocl/internal/diag"
	"github.com/NumSlower/ocl/internal/token"
)

type symbol struct {
	name  string
	scope int
}

type function struct {
	name   string
	arity  int
}

// Resolver walks a syntax tree checking the required conditions of spec
// §4.5 (undefined identifier, redeclaration in the current scope,
// function arity mismatch). It performs no operator-type compatibility
// check: checkOperatorCompat records nothing. It never rewrites the
// tree; Check's caller
// decides whether to proceed to codegen regardless (the --strict flag
// in cmd/ocl).
type Resolver struct {
	collector *diag.Collector
	scope     int
	symbols   []symbol
	functions map[string]function
}

// New creates a Resolver recording diagnostics onto collector.
func New(collector *diag.Collector) *Resolver {
	return &Resolver{collector: collector, functions: make(map[string]function)}
}

// Check walks the full top-level statement list.
func (r *Resolver) Check(stmts []ast.Stmt) {
	for _, s := range stmts {
		if f, ok := s.(ast.FuncDecl); ok {
			r.functions[f.Name.Lexeme] = function{name: f.Name.Lexeme, arity: len(f.Params)}
		}
	}
	for _, s := range stmts {
		r.stmt(s)
	}
}

func pos(t token.Token) diag.Position { return diag.Position{Line: t.Line, Column: t.Column} }

func (r *Resolver) beginScope() { r.scope++ }
func (r *Resolver) endScope() {
	r.scope--
	i := len(r.symbols)
	for i > 0 && r.symbols[i-1].scope > r.scope {
		i--
	}
	r.symbols = r.symbols[:i]
}

func (r *Resolver) declare(name token.Token) {
	for i := len(r.symbols) - 1; i >= 0 && r.symbols[i].scope == r.scope; i-- {
		if r.symbols[i].name == name.Lexeme {
			r.collector.Errorf(diag.StageResolve, pos(name), "'%s' is already declared in this scope", name.Lexeme)
			return
		}
	}
	r.symbols = append(r.symbols, symbol{name: name.Lexeme, scope: r.scope})
}

func (r *Resolver) isDeclared(name string) bool {
	for i := len(r.symbols) - 1; i >= 0; i-- {
		if r.symbols[i].name == name {
			return true
		}
	}
	return false
}

func (r *Resolver) stmt(s ast.Stmt) { s.Accept(r) }
func (r *Resolver) expr(e ast.Expression) { e.Accept(r) }

func (r *Resolver) VisitExpressionStmt(s ast.ExpressionStmt) any { r.expr(s.Expression); return nil }

func (r *Resolver) VisitVarStmt(s ast.VarStmt) any {
	if s.Initializer != nil {
		r.expr(s.Initializer)
	}
	r.declare(s.Name)
	return nil
}

func (r *Resolver) VisitBlockStmt(s ast.BlockStmt) any {
	r.beginScope()
	for _, stmt := range s.Statements {
		r.stmt(stmt)
	}
	r.endScope()
	return nil
}

func (r *Resolver) VisitIfStmt(s ast.IfStmt) any {
	r.expr(s.Condition)
	r.stmt(s.Then)
	if s.Else != nil {
		r.stmt(s.Else)
	}
	return nil
}

func (r *Resolver) VisitWhileStmt(s ast.WhileStmt) any {
	r.expr(s.Condition)
	r.stmt(s.Body)
	return nil
}

func (r *Resolver) VisitForStmt(s ast.ForStmt) any {
	r.beginScope()
	if s.Init != nil {
		r.stmt(s.Init)
	}
	if s.Condition != nil {
		r.expr(s.Condition)
	}
	r.stmt(s.Body)
	if s.Step != nil {
		r.stmt(s.Step)
	}
	r.endScope()
	return nil
}

func (r *Resolver) VisitReturnStmt(s ast.ReturnStmt) any {
	if s.Value != nil {
		r.expr(s.Value)
	}
	return nil
}

func (r *Resolver) VisitBreakStmt(s ast.BreakStmt) any       { return nil }
func (r *Resolver) VisitContinueStmt(s ast.ContinueStmt) any { return nil }

func (r *Resolver) VisitFuncDecl(f ast.FuncDecl) any {
	r.beginScope()
	for _, p := range f.Params {
		r.declare(p.Name)
	}
	for _, s := range f.Body {
		r.stmt(s)
	}
	r.endScope()
	return nil
}

func (r *Resolver) VisitImportStmt(s ast.ImportStmt) any { return nil }

func (r *Resolver) VisitBinary(b ast.Binary) any {
	r.expr(b.Left)
	r.expr(b.Right)
	checkOperatorCompat(r.collector, b.Operator)
	return nil
}

// checkOperatorCompat is the recommended-but-not-required check of spec
// §4.5. Arithmetic and comparison operators are defined for Int/Float
// (and add additionally for String); this pass has no static types to
// compare, so the hook records no diagnostic for any operator.
func checkOperatorCompat(collector *diag.Collector, op token.Token) {}

func (r *Resolver) VisitUnary(u ast.Unary) any { r.expr(u.Right); return nil }
func (r *Resolver) VisitLiteral(l ast.Literal) any { return nil }
func (r *Resolver) VisitGrouping(g ast.Grouping) any { r.expr(g.Expression); return nil }

func (r *Resolver) VisitVariable(v ast.Variable) any {
	if !r.isDeclared(v.Name.Lexeme) {
		r.collector.Errorf(diag.StageResolve, pos(v.Name), "undefined identifier '%s'", v.Name.Lexeme)
	}
	return nil
}

func (r *Resolver) VisitAssign(a ast.Assign) any {
	r.expr(a.Value)
	if v, ok := a.Target.(ast.Variable); ok {
		if !r.isDeclared(v.Name.Lexeme) {
			r.collector.Errorf(diag.StageResolve, pos(v.Name), "undefined identifier '%s'", v.Name.Lexeme)
		}
	} else {
		r.expr(a.Target)
	}
	return nil
}

func (r *Resolver) VisitLogical(l ast.Logical) any {
	r.expr(l.Left)
	r.expr(l.Right)
	return nil
}

func (r *Resolver) VisitCall(c ast.Call) any {
	for _, arg := range c.Args {
		r.expr(arg)
	}
	if entry, ok := builtin.Lookup(c.Callee.Lexeme); ok {
		if entry.Arity >= 0 && entry.Arity != len(c.Args) {
			r.collector.Errorf(diag.StageResolve, pos(c.Callee), "'%s' expects %d argument(s), got %d", c.Callee.Lexeme, entry.Arity, len(c.Args))
		}
		return nil
	}
	fn, ok := r.functions[c.Callee.Lexeme]
	if !ok {
		r.collector.Errorf(diag.StageResolve, pos(c.Callee), "undefined function '%s'", c.Callee.Lexeme)
		return nil
	}
	if fn.arity != len(c.Args) {
		r.collector.Errorf(diag.StageResolve, pos(c.Callee), "'%s' expects %d argument(s), got %d", c.Callee.Lexeme, fn.arity, len(c.Args))
	}
	return nil
}

func (r *Resolver) VisitIndex(i ast.Index) any {
	r.expr(i.Array)
	r.expr(i.Idx)
	return nil
}
