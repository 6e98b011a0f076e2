// Package codegen implements the code generator (component H): three
// ordered passes over the top-level forms (global allocation, function
// registration, emission), lexical scoping via flat integer slot
// allocation, and backpatched control-flow jumps, grounded on the
// teacher's internal/compiler/ast_compiler.go shape (Local table, scope
// depth, emitPlaceholderJump/patchJump) generalized to this language's
// full statement and expression grammar.
package codegen

import (
	"github.com/NumSlower/ocl/internal/ast"
	"github.com/NumSlower/ocl/internal/builtin"
	"github.com/NumSlower/ocl/internal/bytecode"
	"github.com/NumSlower/ocl/internal/diag"
	"github.com/NumSlower/ocl/internal/token"
	"github.com/NumSlower/ocl/internal/value"
)

type variable struct {
	name     string
	slot     uint32
	scope    int
	isGlobal bool
}

// loopContext tracks the backpatch state for one enclosing loop: the
// continue target (known up front for while, patched after the step is
// emitted for for), and the pending break/continue jump lists.
type loopContext struct {
	continueTarget    int // -1 until known
	pendingContinue   []int
	breakJumps        []int
}

// Generator walks a syntax tree and emits a bytecode.Chunk. It
// implements both ast.ExpressionVisitor and ast.StmtVisitor.
type Generator struct {
	chunk     *bytecode.Chunk
	collector *diag.Collector

	locals     []variable
	scopeDepth int

	insideFunction bool
	localSlot      uint32
	globalSlot     uint32

	loops []*loopContext
}

// New creates a Generator that records diagnostics onto collector.
func New(collector *diag.Collector) *Generator {
	return &Generator{chunk: bytecode.New(), collector: collector}
}

func pos(t token.Token) diag.Position { return diag.Position{Line: t.Line, Column: t.Column} }

// Generate runs all three passes over the top-level statement list and
// returns the completed chunk.
func (g *Generator) Generate(stmts []ast.Stmt) *bytecode.Chunk {
	// Pass 1: global allocation.
	for _, s := range stmts {
		if v, ok := s.(ast.VarStmt); ok {
			g.declareGlobal(v.Name)
		}
	}

	// Pass 2: function registration with the sentinel start_ip.
	for _, s := range stmts {
		if f, ok := s.(ast.FuncDecl); ok {
			g.chunk.AddFunction(f.Name.Lexeme, bytecode.SentinelIP, len(f.Params))
		}
	}

	// Pass 3a: emit function bodies first, so top-level code sees a
	// complete function table. The VM starts at ip 0, so when any body is
	// emitted a leading jump skips over the bodies to the top-level code.
	skipBodies := -1
	if len(g.chunk.Functions) > 0 {
		skipBodies = g.chunk.Emit(bytecode.OpJump, 0, 0, diag.Position{})
	}
	for _, s := range stmts {
		if f, ok := s.(ast.FuncDecl); ok {
			g.generateFunction(f)
		}
	}
	if skipBodies >= 0 {
		g.chunk.Patch(skipBodies, uint32(len(g.chunk.Instructions)))
	}

	// Pass 3b: emit top-level statements other than function decls.
	for _, s := range stmts {
		if _, ok := s.(ast.FuncDecl); ok {
			continue
		}
		g.genStmt(s)
	}

	// Pass 3c: call main() if present.
	if ordinal, ok := g.chunk.FindFunction("main"); ok {
		g.chunk.Emit(bytecode.OpCall, ordinal, 0, diag.Position{})
	}

	g.chunk.Emit(bytecode.OpHalt, 0, 0, diag.Position{})
	return g.chunk
}

func (g *Generator) declareGlobal(name token.Token) uint32 {
	for i := len(g.locals) - 1; i >= 0; i-- {
		if g.locals[i].isGlobal && g.locals[i].name == name.Lexeme {
			return g.locals[i].slot
		}
	}
	slot := g.globalSlot
	g.globalSlot++
	g.locals = append(g.locals, variable{name: name.Lexeme, slot: slot, scope: 0, isGlobal: true})
	return slot
}

// declareLocal allocates a new slot for name in the current function
// scope, or a global slot if not inside a function (top-level code
// nested under a non-function block still has no frame, so it shares
// the globals namespace). A same-scope redeclaration is a diagnostic but
// still allocates a fresh slot so generation can proceed deterministically.
func (g *Generator) declareLocal(name token.Token) variable {
	if !g.insideFunction {
		if _, already := g.findGlobal(name.Lexeme); !already {
			g.declareGlobal(name)
		}
		slot, _ := g.findGlobal(name.Lexeme)
		return variable{name: name.Lexeme, slot: slot, scope: 0, isGlobal: true}
	}
	for i := len(g.locals) - 1; i >= 0; i-- {
		if g.locals[i].isGlobal {
			break
		}
		if g.locals[i].scope < g.scopeDepth {
			break
		}
		if g.locals[i].name == name.Lexeme && g.locals[i].scope == g.scopeDepth {
			g.collector.Errorf(diag.StageCodegen, pos(name), "redeclaration of '%s' in the same scope", name.Lexeme)
			break
		}
	}
	v := variable{name: name.Lexeme, slot: g.localSlot, scope: g.scopeDepth, isGlobal: false}
	g.localSlot++
	g.locals = append(g.locals, v)
	return v
}

func (g *Generator) findGlobal(name string) (uint32, bool) {
	for i := len(g.locals) - 1; i >= 0; i-- {
		if g.locals[i].isGlobal && g.locals[i].name == name {
			return g.locals[i].slot, true
		}
	}
	return 0, false
}

// resolve finds name's most recent (innermost-scope-first) binding.
func (g *Generator) resolve(name string) variable {
	for i := len(g.locals) - 1; i >= 0; i-- {
		if g.locals[i].name == name {
			return g.locals[i]
		}
	}
	// Undefined identifier: spec §4.5 assigns this check to the
	// resolver; codegen's fallback is to treat it as a not-yet-declared
	// global so generation can still proceed deterministically.
	slot := g.globalSlot
	g.globalSlot++
	v := variable{name: name, slot: slot, scope: 0, isGlobal: true}
	g.locals = append(g.locals, v)
	return v
}

func (g *Generator) beginScope() { g.scopeDepth++ }

// endScope removes shadow-table entries introduced in the scope being
// exited. Slots are never reclaimed (spec §4.6: "slots remain allocated
// — the generator does not compact").
func (g *Generator) endScope() {
	g.scopeDepth--
	i := len(g.locals)
	for i > 0 && !g.locals[i-1].isGlobal && g.locals[i-1].scope > g.scopeDepth {
		i--
	}
	g.locals = g.locals[:i]
}

func (g *Generator) generateFunction(f ast.FuncDecl) {
	ordinal, _ := g.chunk.FindFunction(f.Name.Lexeme)
	savedLocals, savedDepth := g.locals, g.scopeDepth

	g.locals = nil
	g.scopeDepth = 0
	g.insideFunction = true
	g.localSlot = 0

	for _, p := range f.Params {
		g.locals = append(g.locals, variable{name: p.Name.Lexeme, slot: g.localSlot, scope: 0, isGlobal: false})
		g.localSlot++
	}

	g.chunk.Functions[ordinal].StartIP = uint32(len(g.chunk.Instructions))

	g.beginScope()
	for _, s := range f.Body {
		g.genStmt(s)
	}
	g.endScope()

	if len(g.chunk.Instructions) == 0 || g.chunk.Instructions[len(g.chunk.Instructions)-1].Op != bytecode.OpReturn {
		idx := g.chunk.AddConstant(value.Null())
		g.chunk.Emit(bytecode.OpPushConst, idx, 0, pos(f.Name))
		g.chunk.Emit(bytecode.OpReturn, 0, 0, pos(f.Name))
	}

	g.chunk.SetLocalCount(ordinal, int(g.localSlot))

	g.locals, g.scopeDepth = savedLocals, savedDepth
	g.insideFunction = false
	g.localSlot = 0
}

// genStmt dispatches a statement node to its Visit method and discards
// the unused `any` return value; statements never produce one.
func (g *Generator) genStmt(s ast.Stmt) { s.Accept(g) }

func (g *Generator) genExpr(e ast.Expression) { e.Accept(g) }

// --- ast.StmtVisitor ---

func (g *Generator) VisitExpressionStmt(s ast.ExpressionStmt) any {
	g.genExpr(s.Expression)
	g.chunk.Emit(bytecode.OpPop, 0, 0, diag.Position{})
	return nil
}

func (g *Generator) VisitVarStmt(s ast.VarStmt) any {
	v := g.declareLocal(s.Name)
	if s.Initializer != nil {
		g.genExpr(s.Initializer)
	} else {
		idx := g.chunk.AddConstant(value.Null())
		g.chunk.Emit(bytecode.OpPushConst, idx, 0, pos(s.Name))
	}
	if v.isGlobal {
		g.chunk.Emit(bytecode.OpStoreGlobal, v.slot, 0, pos(s.Name))
	} else {
		g.chunk.Emit(bytecode.OpStoreLocal, v.slot, 0, pos(s.Name))
	}
	return nil
}

func (g *Generator) VisitBlockStmt(s ast.BlockStmt) any {
	g.beginScope()
	for _, stmt := range s.Statements {
		g.genStmt(stmt)
	}
	g.endScope()
	return nil
}

func (g *Generator) VisitIfStmt(s ast.IfStmt) any {
	g.genExpr(s.Condition)
	jumpFalse := g.chunk.Emit(bytecode.OpJumpIfFalse, 0, 0, diag.Position{})
	g.genStmt(s.Then)
	if s.Else != nil {
		jumpEnd := g.chunk.Emit(bytecode.OpJump, 0, 0, diag.Position{})
		g.chunk.Patch(jumpFalse, uint32(len(g.chunk.Instructions)))
		g.genStmt(s.Else)
		g.chunk.Patch(jumpEnd, uint32(len(g.chunk.Instructions)))
	} else {
		g.chunk.Patch(jumpFalse, uint32(len(g.chunk.Instructions)))
	}
	return nil
}

func (g *Generator) VisitWhileStmt(s ast.WhileStmt) any {
	loopStart := uint32(len(g.chunk.Instructions))
	g.genExpr(s.Condition)
	jumpFalse := g.chunk.Emit(bytecode.OpJumpIfFalse, 0, 0, diag.Position{})

	ctx := &loopContext{continueTarget: int(loopStart)}
	g.loops = append(g.loops, ctx)

	g.genStmt(s.Body)
	g.chunk.Emit(bytecode.OpJump, loopStart, 0, diag.Position{})

	g.chunk.Patch(jumpFalse, uint32(len(g.chunk.Instructions)))
	g.popLoop(ctx, uint32(len(g.chunk.Instructions)), loopStart)
	return nil
}

func (g *Generator) VisitForStmt(s ast.ForStmt) any {
	g.beginScope()
	if s.Init != nil {
		g.genStmt(s.Init)
	}

	loopStart := uint32(len(g.chunk.Instructions))
	var jumpFalse int
	hasCond := s.Condition != nil
	if hasCond {
		g.genExpr(s.Condition)
		jumpFalse = g.chunk.Emit(bytecode.OpJumpIfFalse, 0, 0, diag.Position{})
	}

	ctx := &loopContext{continueTarget: -1}
	g.loops = append(g.loops, ctx)

	g.genStmt(s.Body)

	stepIP := uint32(len(g.chunk.Instructions))
	if s.Step != nil {
		g.genStmt(s.Step)
	}
	g.chunk.Emit(bytecode.OpJump, loopStart, 0, diag.Position{})

	end := uint32(len(g.chunk.Instructions))
	if hasCond {
		g.chunk.Patch(jumpFalse, end)
	}
	g.popLoop(ctx, end, stepIP)
	g.endScope()
	return nil
}

// popLoop patches every pending break jump to end and every pending
// continue jump to continueTarget (the loop-start ip for while, the
// step ip for for), then pops the loop context.
func (g *Generator) popLoop(ctx *loopContext, end uint32, continueTarget uint32) {
	for _, idx := range ctx.breakJumps {
		g.chunk.Patch(idx, end)
	}
	for _, idx := range ctx.pendingContinue {
		g.chunk.Patch(idx, continueTarget)
	}
	g.loops = g.loops[:len(g.loops)-1]
}

func (g *Generator) VisitReturnStmt(s ast.ReturnStmt) any {
	if s.Value != nil {
		g.genExpr(s.Value)
	} else {
		idx := g.chunk.AddConstant(value.Null())
		g.chunk.Emit(bytecode.OpPushConst, idx, 0, pos(s.Keyword))
	}
	g.chunk.Emit(bytecode.OpReturn, 0, 0, pos(s.Keyword))
	return nil
}

func (g *Generator) VisitBreakStmt(s ast.BreakStmt) any {
	if len(g.loops) == 0 {
		g.collector.Errorf(diag.StageCodegen, pos(s.Keyword), "'break' outside any loop")
		return nil
	}
	idx := g.chunk.Emit(bytecode.OpJump, 0, 0, pos(s.Keyword))
	ctx := g.loops[len(g.loops)-1]
	ctx.breakJumps = append(ctx.breakJumps, idx)
	return nil
}

func (g *Generator) VisitContinueStmt(s ast.ContinueStmt) any {
	if len(g.loops) == 0 {
		g.collector.Errorf(diag.StageCodegen, pos(s.Keyword), "'continue' outside any loop")
		return nil
	}
	idx := g.chunk.Emit(bytecode.OpJump, 0, 0, pos(s.Keyword))
	ctx := g.loops[len(g.loops)-1]
	if ctx.continueTarget >= 0 {
		g.chunk.Patch(idx, uint32(ctx.continueTarget))
	} else {
		ctx.pendingContinue = append(ctx.pendingContinue, idx)
	}
	return nil
}

func (g *Generator) VisitFuncDecl(f ast.FuncDecl) any {
	// Top-level declarations are handled by Generate's pass 3a. The
	// parser also accepts a func declaration inside a block, which reaches
	// this method; no code is emitted for it and it is not registered in
	// the function table, so calls to it report an undefined function.
	return nil
}

func (g *Generator) VisitImportStmt(s ast.ImportStmt) any {
	// No runtime effect, per spec §4.3.
	return nil
}

// --- ast.ExpressionVisitor ---

func (g *Generator) VisitBinary(b ast.Binary) any {
	g.genExpr(b.Left)
	g.genExpr(b.Right)
	op, ok := binaryOp[b.Operator.Type]
	if !ok {
		g.collector.Errorf(diag.StageCodegen, pos(b.Operator), "unsupported operator '%s'", b.Operator.Lexeme)
		return nil
	}
	g.chunk.Emit(op, 0, 0, pos(b.Operator))
	return nil
}

var binaryOp = map[token.Type]bytecode.Op{
	token.PLUS:          bytecode.OpAdd,
	token.MINUS:         bytecode.OpSubtract,
	token.STAR:          bytecode.OpMultiply,
	token.SLASH:         bytecode.OpDivide,
	token.PERCENT:       bytecode.OpModulo,
	token.EQUAL_EQUAL:   bytecode.OpEqual,
	token.NOT_EQUAL:     bytecode.OpNotEqual,
	token.LESS:          bytecode.OpLess,
	token.LESS_EQUAL:    bytecode.OpLessEqual,
	token.GREATER:       bytecode.OpGreater,
	token.GREATER_EQUAL: bytecode.OpGreaterEqual,
}

func (g *Generator) VisitLogical(l ast.Logical) any {
	g.genExpr(l.Left)
	g.genExpr(l.Right)
	if l.Operator.Type == token.AND_AND {
		g.chunk.Emit(bytecode.OpAnd, 0, 0, pos(l.Operator))
	} else {
		g.chunk.Emit(bytecode.OpOr, 0, 0, pos(l.Operator))
	}
	return nil
}

func (g *Generator) VisitUnary(u ast.Unary) any {
	g.genExpr(u.Right)
	if u.Operator.Type == token.BANG {
		g.chunk.Emit(bytecode.OpNot, 0, 0, pos(u.Operator))
	} else {
		g.chunk.Emit(bytecode.OpNegate, 0, 0, pos(u.Operator))
	}
	return nil
}

func (g *Generator) VisitLiteral(l ast.Literal) any {
	idx := g.chunk.AddConstant(l.Value)
	g.chunk.Emit(bytecode.OpPushConst, idx, 0, pos(l.Pos))
	return nil
}

func (g *Generator) VisitGrouping(gr ast.Grouping) any {
	g.genExpr(gr.Expression)
	return nil
}

func (g *Generator) VisitVariable(va ast.Variable) any {
	v := g.resolve(va.Name.Lexeme)
	if v.isGlobal {
		g.chunk.Emit(bytecode.OpLoadGlobal, v.slot, 0, pos(va.Name))
	} else {
		g.chunk.Emit(bytecode.OpLoadLocal, v.slot, 0, pos(va.Name))
	}
	return nil
}

func (g *Generator) VisitAssign(a ast.Assign) any {
	switch target := a.Target.(type) {
	case ast.Variable:
		g.genExpr(a.Value)
		v := g.resolve(target.Name.Lexeme)
		// store-local/store-global consume the stack per spec §4.7; an
		// assignment used as an expression still needs a result value,
		// so reload the slot immediately after the store.
		if v.isGlobal {
			g.chunk.Emit(bytecode.OpStoreGlobal, v.slot, 0, pos(target.Name))
			g.chunk.Emit(bytecode.OpLoadGlobal, v.slot, 0, pos(target.Name))
		} else {
			g.chunk.Emit(bytecode.OpStoreLocal, v.slot, 0, pos(target.Name))
			g.chunk.Emit(bytecode.OpLoadLocal, v.slot, 0, pos(target.Name))
		}
	case ast.Index:
		g.genExpr(target.Array)
		g.genExpr(target.Idx)
		g.genExpr(a.Value)
		g.chunk.Emit(bytecode.OpArraySet, 0, 0, pos(target.Bracket))
	}
	return nil
}

func (g *Generator) VisitCall(c ast.Call) any {
	for _, arg := range c.Args {
		g.genExpr(arg)
	}
	if entry, ok := builtin.Lookup(c.Callee.Lexeme); ok {
		g.chunk.Emit(bytecode.OpCallBuiltin, uint32(entry.ID), uint32(len(c.Args)), pos(c.Callee))
		return nil
	}
	if ordinal, ok := g.chunk.FindFunction(c.Callee.Lexeme); ok {
		g.chunk.Emit(bytecode.OpCall, ordinal, uint32(len(c.Args)), pos(c.Callee))
		return nil
	}
	g.collector.Errorf(diag.StageCodegen, pos(c.Callee), "undefined function '%s'", c.Callee.Lexeme)
	// Deterministic fallback (spec §7): emit call with a sentinel
	// ordinal so the VM fails predictably instead of misreading operands.
	g.chunk.Emit(bytecode.OpCall, bytecode.SentinelIP, uint32(len(c.Args)), pos(c.Callee))
	return nil
}

func (g *Generator) VisitIndex(i ast.Index) any {
	g.genExpr(i.Array)
	g.genExpr(i.Idx)
	g.chunk.Emit(bytecode.OpArrayGet, 0, 0, pos(i.Bracket))
	return nil
}
