package ast

import "github.com/NumSlower/ocl/internal/token"

// ExpressionStmt evaluates an expression and discards its value.
type ExpressionStmt struct {
	Expression Expression
}

func (e ExpressionStmt) Accept(v StmtVisitor) any { return v.VisitExpressionStmt(e) }

// VarStmt is a variable declaration, covering both surface forms:
// `Let name : Type = expr` and `Type name = expr`. DeclaredType is always
// populated (the language is statically typed); Initializer is nil for a
// bare declaration.
type VarStmt struct {
	Name         token.Token
	DeclaredType Type
	Initializer  Expression
}

func (s VarStmt) Accept(v StmtVisitor) any { return v.VisitVarStmt(s) }

// BlockStmt is a `{ ... }` sequence of statements, introducing a new
// lexical scope.
type BlockStmt struct {
	Statements []Stmt
}

func (b BlockStmt) Accept(v StmtVisitor) any { return v.VisitBlockStmt(b) }

// IfStmt is `if (cond) then (else else)?`.
type IfStmt struct {
	Condition Expression
	Then      Stmt
	Else      Stmt
}

func (s IfStmt) Accept(v StmtVisitor) any { return v.VisitIfStmt(s) }

// WhileStmt is `while (cond) body`.
type WhileStmt struct {
	Condition Expression
	Body      Stmt
}

func (s WhileStmt) Accept(v StmtVisitor) any { return v.VisitWhileStmt(s) }

// ForStmt is `for (init?; cond?; step?) body`. Init may be nil, a VarStmt,
// or an ExpressionStmt; Condition and Step may be nil.
type ForStmt struct {
	Init      Stmt
	Condition Expression
	Step      Stmt
	Body      Stmt
}

func (s ForStmt) Accept(v StmtVisitor) any { return v.VisitForStmt(s) }

// ReturnStmt is `return expr?;`. Value is nil for a bare return.
type ReturnStmt struct {
	Keyword token.Token
	Value   Expression
}

func (s ReturnStmt) Accept(v StmtVisitor) any { return v.VisitReturnStmt(s) }

// BreakStmt is a bare `break;`.
type BreakStmt struct {
	Keyword token.Token
}

func (s BreakStmt) Accept(v StmtVisitor) any { return v.VisitBreakStmt(s) }

// ContinueStmt is a bare `continue;`.
type ContinueStmt struct {
	Keyword token.Token
}

func (s ContinueStmt) Accept(v StmtVisitor) any { return v.VisitContinueStmt(s) }

// FuncDecl is `func ReturnType? name(params) { body }`. ReturnType is nil
// for a void function.
type FuncDecl struct {
	Name       token.Token
	ReturnType *Type
	Params     []Param
	Body       []Stmt
}

func (f FuncDecl) Accept(v StmtVisitor) any { return v.VisitFuncDecl(f) }

// ImportStmt is `Import <a.b>`. It is retained for a future resolver but
// has no runtime effect (spec §4.3).
type ImportStmt struct {
	Keyword token.Token
	Path    []token.Token
}

func (s ImportStmt) Accept(v StmtVisitor) any { return v.VisitImportStmt(s) }
