// Package parser implements the parser (component F): a recursive-descent
// parser with precedence climbing over expressions, following the
// grammar in spec §4.3. Newlines are never tokenized (the tokenizer
// treats them as whitespace), so "next non-newline token" lookaheads are
// just "next token".
package parser

import (
	"github.com/NumSlower/ocl/internal/ast"
	"github.com/NumSlower/ocl/internal/builtin"
	"github.com/NumSlower/ocl/internal/diag"
	"github.com/NumSlower/ocl/internal/token"
	"github.com/NumSlower/ocl/internal/value"
)

// Parser turns a token stream into a syntax tree. It never aborts: a
// malformed top-level declaration is recorded as a diagnostic and
// skipped, and parsing resumes at the next statement boundary (see
// synchronize) so later errors in the same source are still reported.
type Parser struct {
	tokens    []token.Token
	pos       int
	collector *diag.Collector
}

// New creates a Parser over tokens, recording diagnostics onto collector.
func New(tokens []token.Token, collector *diag.Collector) *Parser {
	return &Parser{tokens: tokens, collector: collector}
}

func (p *Parser) peek() token.Token      { return p.tokens[p.pos] }
func (p *Parser) previous() token.Token  { return p.tokens[p.pos-1] }
func (p *Parser) isAtEnd() bool          { return p.peek().Type == token.EOF }

func (p *Parser) peekAt(offset int) token.Token {
	idx := p.pos + offset
	if idx >= len(p.tokens) {
		return p.tokens[len(p.tokens)-1]
	}
	return p.tokens[idx]
}

func (p *Parser) advance() token.Token {
	if !p.isAtEnd() {
		p.pos++
	}
	return p.previous()
}

func (p *Parser) check(t token.Type) bool {
	if p.isAtEnd() {
		return t == token.EOF
	}
	return p.peek().Type == t
}

func (p *Parser) match(types ...token.Type) bool {
	for _, t := range types {
		if p.check(t) {
			p.advance()
			return true
		}
	}
	return false
}

func (p *Parser) consume(t token.Type, message string) (token.Token, error) {
	if p.check(t) {
		return p.advance(), nil
	}
	cur := p.peek()
	err := SyntaxError{Line: cur.Line, Column: cur.Column, Message: message}
	p.collector.Errorf(diag.StageParse, diag.Position{Line: cur.Line, Column: cur.Column}, "%s", message)
	return token.Token{Type: t}, err
}

// synchronize discards tokens until it reaches one that plausibly starts
// a new declaration, so a single malformed statement never derails the
// rest of the parse.
func (p *Parser) synchronize() {
	if !p.isAtEnd() {
		p.advance()
	}
	for !p.isAtEnd() {
		if p.previous().Type == token.SEMICOLON {
			return
		}
		switch p.peek().Type {
		case token.FUNC, token.LET, token.IF, token.WHILE, token.FOR,
			token.RETURN, token.IMPORT, token.RBRACE:
			return
		}
		p.advance()
	}
}

// Parse parses the entire token stream into top-level statements.
// Parsing never aborts: each failed top-level declaration is recorded as
// a diagnostic, then the parser synchronizes and continues.
func (p *Parser) Parse() []ast.Stmt {
	var statements []ast.Stmt
	for !p.isAtEnd() {
		stmt, err := p.declaration()
		if err != nil {
			p.synchronize()
			continue
		}
		statements = append(statements, stmt)
	}
	return statements
}

// isTypePrefixedDecl implements the declaration-form lookahead of spec
// §4.3: the current token's lexeme (stripped of an optional 32/64
// bit-width suffix) is in the fixed type-name set, and the next token is
// an identifier.
func (p *Parser) isTypePrefixedDecl() bool {
	cur := p.peek()
	if cur.Type != token.IDENTIFIER {
		return false
	}
	base, _ := token.BaseTypeName(cur.Lexeme)
	if !token.TypeNames[base] {
		return false
	}
	return p.peekAt(1).Type == token.IDENTIFIER
}

func (p *Parser) declaration() (ast.Stmt, error) {
	if p.match(token.FUNC) {
		return p.funcDeclaration()
	}
	if p.match(token.IMPORT) {
		return p.importDeclaration()
	}
	if p.match(token.LET) {
		return p.letDeclaration()
	}
	if p.isTypePrefixedDecl() {
		return p.typePrefixedDeclaration()
	}
	return p.statement()
}

func (p *Parser) parseType() (ast.Type, error) {
	tok, err := p.consume(token.IDENTIFIER, "expected a type name")
	if err != nil {
		return ast.Type{}, err
	}
	base, width := token.BaseTypeName(tok.Lexeme)
	if !token.TypeNames[base] {
		err := SyntaxError{Line: tok.Line, Column: tok.Column, Message: "unrecognized type name '" + tok.Lexeme + "'"}
		p.collector.Errorf(diag.StageParse, diag.Position{Line: tok.Line, Column: tok.Column}, "%s", err.Message)
		return ast.Type{Name: base, Width: width}, err
	}
	isArray := false
	if p.check(token.LBRACKET) && p.peekAt(1).Type == token.RBRACKET {
		p.advance()
		p.advance()
		isArray = true
	}
	return ast.Type{Name: base, Width: width, IsArray: isArray}, nil
}

// letDeclaration parses `Let name : Type = expr? ;` (the LET token has
// already been consumed).
func (p *Parser) letDeclaration() (ast.Stmt, error) {
	name, err := p.consume(token.IDENTIFIER, "expected variable name after 'Let'")
	if err != nil {
		return nil, err
	}
	if _, err := p.consume(token.COLON, "expected ':' after variable name"); err != nil {
		return nil, err
	}
	declType, err := p.parseType()
	if err != nil {
		return nil, err
	}
	var init ast.Expression
	if p.match(token.ASSIGN) {
		init, err = p.expression()
		if err != nil {
			return nil, err
		}
	}
	if _, err := p.consume(token.SEMICOLON, "expected ';' after variable declaration"); err != nil {
		return nil, err
	}
	return ast.VarStmt{Name: name, DeclaredType: declType, Initializer: init}, nil
}

// typePrefixedDeclaration parses `Type name = expr? ;`.
func (p *Parser) typePrefixedDeclaration() (ast.Stmt, error) {
	declType, err := p.parseType()
	if err != nil {
		return nil, err
	}
	name, err := p.consume(token.IDENTIFIER, "expected variable name")
	if err != nil {
		return nil, err
	}
	var init ast.Expression
	if p.match(token.ASSIGN) {
		init, err = p.expression()
		if err != nil {
			return nil, err
		}
	}
	if _, err := p.consume(token.SEMICOLON, "expected ';' after variable declaration"); err != nil {
		return nil, err
	}
	return ast.VarStmt{Name: name, DeclaredType: declType, Initializer: init}, nil
}

// funcDeclaration parses `func ReturnType? name ( params? ) block` (the
// FUNC token has already been consumed). A return type is present iff
// the next token's lexeme is in the type-name set; otherwise the
// function is void.
func (p *Parser) funcDeclaration() (ast.Stmt, error) {
	var returnType *ast.Type
	if cur := p.peek(); cur.Type == token.IDENTIFIER {
		if base, _ := token.BaseTypeName(cur.Lexeme); token.TypeNames[base] && p.peekAt(1).Type == token.IDENTIFIER {
			t, err := p.parseType()
			if err != nil {
				return nil, err
			}
			returnType = &t
		}
	}
	name, err := p.consume(token.IDENTIFIER, "expected function name")
	if err != nil {
		return nil, err
	}
	if _, err := p.consume(token.LPAREN, "expected '(' after function name"); err != nil {
		return nil, err
	}
	var params []ast.Param
	if !p.check(token.RPAREN) {
		for {
			pname, err := p.consume(token.IDENTIFIER, "expected parameter name")
			if err != nil {
				return nil, err
			}
			if _, err := p.consume(token.COLON, "expected ':' after parameter name"); err != nil {
				return nil, err
			}
			ptype, err := p.parseType()
			if err != nil {
				return nil, err
			}
			params = append(params, ast.Param{Name: pname, Type: ptype})
			if !p.match(token.COMMA) {
				break
			}
		}
	}
	if _, err := p.consume(token.RPAREN, "expected ')' after parameters"); err != nil {
		return nil, err
	}
	if _, err := p.consume(token.LBRACE, "expected '{' to begin function body"); err != nil {
		return nil, err
	}
	body, err := p.blockBody()
	if err != nil {
		return nil, err
	}
	return ast.FuncDecl{Name: name, ReturnType: returnType, Params: params, Body: body}, nil
}

// importDeclaration parses `Import < identifier (. identifier)? >` (the
// IMPORT token has already been consumed). It is retained as a node with
// no runtime effect.
func (p *Parser) importDeclaration() (ast.Stmt, error) {
	kw := p.previous()
	if _, err := p.consume(token.LESS, "expected '<' after 'Import'"); err != nil {
		return nil, err
	}
	first, err := p.consume(token.IDENTIFIER, "expected identifier in import path")
	if err != nil {
		return nil, err
	}
	path := []token.Token{first}
	if p.match(token.DOT) {
		second, err := p.consume(token.IDENTIFIER, "expected identifier after '.' in import path")
		if err != nil {
			return nil, err
		}
		path = append(path, second)
	}
	if _, err := p.consume(token.GREATER, "expected '>' to close import path"); err != nil {
		return nil, err
	}
	if _, err := p.consume(token.SEMICOLON, "expected ';' after import"); err != nil {
		return nil, err
	}
	return ast.ImportStmt{Keyword: kw, Path: path}, nil
}

func (p *Parser) statement() (ast.Stmt, error) {
	switch {
	case p.match(token.LBRACE):
		stmts, err := p.blockBody()
		if err != nil {
			return nil, err
		}
		return ast.BlockStmt{Statements: stmts}, nil
	case p.match(token.IF):
		return p.ifStatement()
	case p.match(token.WHILE):
		return p.whileStatement()
	case p.match(token.FOR):
		return p.forStatement()
	case p.match(token.RETURN):
		return p.returnStatement()
	case p.match(token.BREAK):
		kw := p.previous()
		_, err := p.consume(token.SEMICOLON, "expected ';' after 'break'")
		return ast.BreakStmt{Keyword: kw}, err
	case p.match(token.CONTINUE):
		kw := p.previous()
		_, err := p.consume(token.SEMICOLON, "expected ';' after 'continue'")
		return ast.ContinueStmt{Keyword: kw}, err
	default:
		return p.expressionStatement()
	}
}

func (p *Parser) blockBody() ([]ast.Stmt, error) {
	var statements []ast.Stmt
	for !p.check(token.RBRACE) && !p.isAtEnd() {
		stmt, err := p.declaration()
		if err != nil {
			return nil, err
		}
		statements = append(statements, stmt)
	}
	if _, err := p.consume(token.RBRACE, "expected '}' to close block"); err != nil {
		return nil, err
	}
	return statements, nil
}

func (p *Parser) expressionStatement() (ast.Stmt, error) {
	expr, err := p.expression()
	if err != nil {
		return nil, err
	}
	if _, err := p.consume(token.SEMICOLON, "expected ';' after expression"); err != nil {
		return nil, err
	}
	return ast.ExpressionStmt{Expression: expr}, nil
}

func (p *Parser) ifStatement() (ast.Stmt, error) {
	if _, err := p.consume(token.LPAREN, "expected '(' after 'if'"); err != nil {
		return nil, err
	}
	cond, err := p.expression()
	if err != nil {
		return nil, err
	}
	if _, err := p.consume(token.RPAREN, "expected ')' after if condition"); err != nil {
		return nil, err
	}
	then, err := p.statement()
	if err != nil {
		return nil, err
	}
	var elseStmt ast.Stmt
	if p.match(token.ELSE) {
		elseStmt, err = p.statement()
		if err != nil {
			return nil, err
		}
	}
	return ast.IfStmt{Condition: cond, Then: then, Else: elseStmt}, nil
}

func (p *Parser) whileStatement() (ast.Stmt, error) {
	if _, err := p.consume(token.LPAREN, "expected '(' after 'while'"); err != nil {
		return nil, err
	}
	cond, err := p.expression()
	if err != nil {
		return nil, err
	}
	if _, err := p.consume(token.RPAREN, "expected ')' after while condition"); err != nil {
		return nil, err
	}
	body, err := p.statement()
	if err != nil {
		return nil, err
	}
	return ast.WhileStmt{Condition: cond, Body: body}, nil
}

func (p *Parser) forStatement() (ast.Stmt, error) {
	if _, err := p.consume(token.LPAREN, "expected '(' after 'for'"); err != nil {
		return nil, err
	}

	var init ast.Stmt
	var err error
	if p.match(token.SEMICOLON) {
		init = nil
	} else if p.match(token.LET) {
		init, err = p.letDeclaration()
		if err != nil {
			return nil, err
		}
	} else if p.isTypePrefixedDecl() {
		init, err = p.typePrefixedDeclaration()
		if err != nil {
			return nil, err
		}
	} else {
		init, err = p.expressionStatement()
		if err != nil {
			return nil, err
		}
	}

	var cond ast.Expression
	if !p.check(token.SEMICOLON) {
		cond, err = p.expression()
		if err != nil {
			return nil, err
		}
	}
	if _, err := p.consume(token.SEMICOLON, "expected ';' after for condition"); err != nil {
		return nil, err
	}

	var step ast.Stmt
	if !p.check(token.RPAREN) {
		stepExpr, err := p.expression()
		if err != nil {
			return nil, err
		}
		step = ast.ExpressionStmt{Expression: stepExpr}
	}
	if _, err := p.consume(token.RPAREN, "expected ')' after for clauses"); err != nil {
		return nil, err
	}

	body, err := p.statement()
	if err != nil {
		return nil, err
	}
	return ast.ForStmt{Init: init, Condition: cond, Step: step, Body: body}, nil
}

func (p *Parser) returnStatement() (ast.Stmt, error) {
	kw := p.previous()
	var val ast.Expression
	if !p.check(token.SEMICOLON) {
		var err error
		val, err = p.expression()
		if err != nil {
			return nil, err
		}
	}
	if _, err := p.consume(token.SEMICOLON, "expected ';' after return value"); err != nil {
		return nil, err
	}
	return ast.ReturnStmt{Keyword: kw, Value: val}, nil
}

// expression is the entry point for expression parsing, starting at the
// lowest precedence level (assignment).
func (p *Parser) expression() (ast.Expression, error) {
	return p.assignment()
}

func (p *Parser) assignment() (ast.Expression, error) {
	expr, err := p.or()
	if err != nil {
		return nil, err
	}
	if p.match(token.ASSIGN) {
		eq := p.previous()
		value, err := p.assignment()
		if err != nil {
			return nil, err
		}
		switch expr.(type) {
		case ast.Variable, ast.Index:
			return ast.Assign{Target: expr, Operator: eq, Value: value}, nil
		default:
			msg := "invalid assignment target"
			p.collector.Errorf(diag.StageParse, diag.Position{Line: eq.Line, Column: eq.Column}, "%s", msg)
			return nil, SyntaxError{Line: eq.Line, Column: eq.Column, Message: msg}
		}
	}
	return expr, nil
}

func (p *Parser) or() (ast.Expression, error) {
	expr, err := p.and()
	if err != nil {
		return nil, err
	}
	for p.match(token.OR_OR) {
		op := p.previous()
		right, err := p.and()
		if err != nil {
			return nil, err
		}
		expr = ast.Logical{Left: expr, Operator: op, Right: right}
	}
	return expr, nil
}

func (p *Parser) and() (ast.Expression, error) {
	expr, err := p.equality()
	if err != nil {
		return nil, err
	}
	for p.match(token.AND_AND) {
		op := p.previous()
		right, err := p.equality()
		if err != nil {
			return nil, err
		}
		expr = ast.Logical{Left: expr, Operator: op, Right: right}
	}
	return expr, nil
}

func (p *Parser) equality() (ast.Expression, error) {
	expr, err := p.comparison()
	if err != nil {
		return nil, err
	}
	for p.match(token.EQUAL_EQUAL, token.NOT_EQUAL) {
		op := p.previous()
		right, err := p.comparison()
		if err != nil {
			return nil, err
		}
		expr = ast.Binary{Left: expr, Operator: op, Right: right}
	}
	return expr, nil
}

func (p *Parser) comparison() (ast.Expression, error) {
	expr, err := p.additive()
	if err != nil {
		return nil, err
	}
	for p.match(token.LESS, token.LESS_EQUAL, token.GREATER, token.GREATER_EQUAL) {
		op := p.previous()
		right, err := p.additive()
		if err != nil {
			return nil, err
		}
		expr = ast.Binary{Left: expr, Operator: op, Right: right}
	}
	return expr, nil
}

func (p *Parser) additive() (ast.Expression, error) {
	expr, err := p.multiplicative()
	if err != nil {
		return nil, err
	}
	for p.match(token.PLUS, token.MINUS) {
		op := p.previous()
		right, err := p.multiplicative()
		if err != nil {
			return nil, err
		}
		expr = ast.Binary{Left: expr, Operator: op, Right: right}
	}
	return expr, nil
}

func (p *Parser) multiplicative() (ast.Expression, error) {
	expr, err := p.unary()
	if err != nil {
		return nil, err
	}
	for p.match(token.STAR, token.SLASH, token.PERCENT) {
		op := p.previous()
		right, err := p.unary()
		if err != nil {
			return nil, err
		}
		expr = ast.Binary{Left: expr, Operator: op, Right: right}
	}
	return expr, nil
}

func (p *Parser) unary() (ast.Expression, error) {
	if p.match(token.MINUS, token.BANG) {
		op := p.previous()
		right, err := p.unary()
		if err != nil {
			return nil, err
		}
		return ast.Unary{Operator: op, Right: right}, nil
	}
	return p.postfix()
}

// postfix parses a primary expression followed by any number of
// index-access brackets, chaining left to right (spec §4.3).
func (p *Parser) postfix() (ast.Expression, error) {
	expr, err := p.primary()
	if err != nil {
		return expr, err
	}
	for p.check(token.LBRACKET) {
		bracket := p.advance()
		idx, err := p.expression()
		if err != nil {
			return nil, err
		}
		if _, err := p.consume(token.RBRACKET, "expected ']' after index expression"); err != nil {
			return nil, err
		}
		expr = ast.Index{Array: expr, Idx: idx, Bracket: bracket}
	}
	return expr, nil
}

func (p *Parser) primary() (ast.Expression, error) {
	tok := p.peek()
	switch {
	case p.match(token.FALSE):
		return ast.Literal{Value: value.Bool(false), Pos: tok}, nil
	case p.match(token.TRUE):
		return ast.Literal{Value: value.Bool(true), Pos: tok}, nil
	case p.match(token.INT):
		return ast.Literal{Value: value.Int(p.previous().Literal.(int64)), Pos: tok}, nil
	case p.match(token.FLOAT):
		return ast.Literal{Value: value.Float(p.previous().Literal.(float64)), Pos: tok}, nil
	case p.match(token.STRING):
		return ast.Literal{Value: value.StringOwned(p.previous().Literal.([]byte)), Pos: tok}, nil
	case p.match(token.CHAR):
		return ast.Literal{Value: value.Char(p.previous().Literal.(byte)), Pos: tok}, nil
	case p.match(token.IDENTIFIER):
		name := p.previous()
		if p.check(token.LPAREN) {
			return p.finishCall(name)
		}
		return ast.Variable{Name: name}, nil
	case p.match(token.LPAREN):
		expr, err := p.expression()
		if err != nil {
			return nil, err
		}
		if _, err := p.consume(token.RPAREN, "expected ')' after expression"); err != nil {
			return nil, err
		}
		return ast.Grouping{Expression: expr}, nil
	default:
		msg := "expected an expression"
		p.collector.Errorf(diag.StageParse, diag.Position{Line: tok.Line, Column: tok.Column}, "%s", msg)
		return ast.Literal{Value: value.Null(), Pos: tok}, SyntaxError{Line: tok.Line, Column: tok.Column, Message: msg}
	}
}

// finishCall parses `( args? )` after the callee identifier has already
// been consumed, implementing the formatted-print colon syntax of spec
// §4.3 and §6.
func (p *Parser) finishCall(callee token.Token) (ast.Expression, error) {
	if _, err := p.consume(token.LPAREN, "expected '('"); err != nil {
		return nil, err
	}
	var args []ast.Expression
	if !p.check(token.RPAREN) {
		first, err := p.expression()
		if err != nil {
			return nil, err
		}
		args = append(args, first)

		if callee.Lexeme == builtin.FormattedPrintName && p.check(token.COLON) {
			p.advance() // consume ':'
			if !p.check(token.RPAREN) {
				arg, err := p.expression()
				if err != nil {
					return nil, err
				}
				args = append(args, arg)
				for p.match(token.COMMA) {
					arg, err := p.expression()
					if err != nil {
						return nil, err
					}
					args = append(args, arg)
				}
			}
		} else {
			for p.match(token.COMMA) {
				arg, err := p.expression()
				if err != nil {
					return nil, err
				}
				args = append(args, arg)
			}
		}
	}
	rparen, err := p.consume(token.RPAREN, "expected ')' after arguments")
	if err != nil {
		return nil, err
	}
	return ast.Call{Callee: callee, Args: args, RParen: rparen}, nil
}
