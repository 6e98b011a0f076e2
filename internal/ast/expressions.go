package ast

import (
	"github.com/NumSlower/ocl/internal/token"
	"github.com/NumSlower/ocl/internal/value"
)

// Binary represents a binary operation expression, e.g. "a + b".
type Binary struct {
	Left     Expression
	Operator token.Token
	Right    Expression
}

func (b Binary) Accept(v ExpressionVisitor) any { return v.VisitBinary(b) }

// Unary represents a unary operation expression, e.g. "-a" or "!a".
type Unary struct {
	Operator token.Token
	Right    Expression
}

func (u Unary) Accept(v ExpressionVisitor) any { return v.VisitUnary(u) }

// Literal represents a literal value already decoded by the tokenizer.
type Literal struct {
	Value value.Value
	Pos   token.Token // carries source position; Type/Lexeme unused
}

func (l Literal) Accept(v ExpressionVisitor) any { return v.VisitLiteral(l) }

// Grouping represents a parenthesized expression.
type Grouping struct {
	Expression Expression
}

func (g Grouping) Accept(v ExpressionVisitor) any { return v.VisitGrouping(g) }

// Variable represents a read of a previously declared variable.
type Variable struct {
	Name token.Token
}

func (va Variable) Accept(v ExpressionVisitor) any { return v.VisitVariable(va) }

// Assign represents an assignment to either an identifier or an index
// expression (array-set). The parser only ever produces one of Target's
// two concrete types: Variable or Index.
type Assign struct {
	Target   Expression
	Operator token.Token
	Value    Expression
}

func (a Assign) Accept(v ExpressionVisitor) any { return v.VisitAssign(a) }

// Logical represents "&&" or "||". Kept distinct from Binary only to
// keep the operator set visible in its own visitor method; codegen
// compiles it the same way as Binary, emitting both operands
// unconditionally and the generic and/or opcode (spec §4.6 permits
// either the short-circuit or the fall-through strategy — the VM's
// and/or opcodes are specified as always evaluating both operands, so
// this core takes the simpler of the two).
type Logical struct {
	Left     Expression
	Operator token.Token
	Right    Expression
}

func (l Logical) Accept(v ExpressionVisitor) any { return v.VisitLogical(l) }

// Call represents `callee(args...)`. The callee is a bare identifier —
// the language has no first-class functions (Non-goal), so the callee is
// stored as a token rather than an arbitrary expression.
type Call struct {
	Callee token.Token
	Args   []Expression
	RParen token.Token
}

func (c Call) Accept(v ExpressionVisitor) any { return v.VisitCall(c) }

// Index represents `array[index]`.
type Index struct {
	Array  Expression
	Idx    Expression
	Bracket token.Token
}

func (i Index) Accept(v ExpressionVisitor) any { return v.VisitIndex(i) }
