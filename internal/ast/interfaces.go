// Package ast defines the syntax tree (component D): tagged nodes for
// declarations, statements, and expressions, each dispatching through the
// visitor pattern so the resolver, code generator, and tree-walking
// evaluator can each traverse the tree without the node types knowing
// about any of them.
package ast

import "github.com/NumSlower/ocl/internal/token"

// ExpressionVisitor is implemented by anything that operates over every
// expression node kind.
type ExpressionVisitor interface {
	VisitBinary(Binary) any
	VisitUnary(Unary) any
	VisitLiteral(Literal) any
	VisitGrouping(Grouping) any
	VisitVariable(Variable) any
	VisitAssign(Assign) any
	VisitLogical(Logical) any
	VisitCall(Call) any
	VisitIndex(Index) any
}

// StmtVisitor is implemented by anything that operates over every
// statement node kind.
type StmtVisitor interface {
	VisitExpressionStmt(ExpressionStmt) any
	VisitVarStmt(VarStmt) any
	VisitBlockStmt(BlockStmt) any
	VisitIfStmt(IfStmt) any
	VisitWhileStmt(WhileStmt) any
	VisitForStmt(ForStmt) any
	VisitReturnStmt(ReturnStmt) any
	VisitBreakStmt(BreakStmt) any
	VisitContinueStmt(ContinueStmt) any
	VisitFuncDecl(FuncDecl) any
	VisitImportStmt(ImportStmt) any
}

// Expression is the base interface every expression node implements.
type Expression interface {
	Accept(v ExpressionVisitor) any
}

// Stmt is the base interface every statement node implements.
type Stmt interface {
	Accept(v StmtVisitor) any
}

// Type names a declared type: a base name, an optional 32/64 bit-width
// suffix, and an optional array marker. Array operations are reserved
// but unimplemented (spec §9); the node still parses so a future core
// can add them without a grammar change.
type Type struct {
	Name    string
	Width   int
	IsArray bool
}

// Param is a single `name : Type` function parameter.
type Param struct {
	Name token.Token
	Type Type
}
