// Package parser implements the Lox recursive-descent parser.
//
// Grammar:
//
//	program        → declaration* EOF ;
//	declaration    → classDecl | funDecl | varDecl | statement ;
//	classDecl      → "class" IDENTIFIER ( "<" IDENTIFIER )? "{" function* "}" ;
//	funDecl        → "fun" function ;
//	function       → IDENTIFIER "(" parameters? ")" block ;
//	varDecl        → "var" IDENTIFIER ( "=" expression )? ";" ;
//	statement      → exprStmt | forStmt | ifStmt | printStmt
//	               | returnStmt | whileStmt | block ;
//	expression     → assignment ;
//	assignment     → ( call "." )? IDENTIFIER "=" assignment | logic_or ;
//	logic_or       → logic_and ( "or" logic_and )* ;
//	logic_and      → equality ( "and" equality )* ;
//	equality       → comparison ( ( "!=" | "==" ) comparison )* ;
//	comparison     → term ( ( ">" | ">=" | "<" | "<=" ) term )* ;
//	term           → factor ( ( "-" | "+" ) factor )* ;
//	factor         → unary ( ( "/" | "*" ) unary )* ;
//	unary          → ( "!" | "-" ) unary | call ;
//	call           → primary ( "(" arguments? ")" | "." IDENTIFIER )* ;
//	primary        → "true" | "false" | "nil" | "this"
//	               | NUMBER | STRING | IDENTIFIER | "(" expression ")"
//	               | "super" "." IDENTIFIER ;
//
// A for statement is desugared into a while wrapped in blocks before the
// tree leaves this package, so the resolver and interpreter never see it.
package parser

import (
	"fmt"

	"lox/interpreter-go/pkg/ast"
	"lox/interpreter-go/pkg/diagnostics"
	"lox/interpreter-go/pkg/lexer"
)

const maxCallArguments = 255

type parser struct {
	tokens []lexer.Token
	pos    int
	diags  []diagnostics.Diagnostic
}

// parseError unwinds a single declaration; the top loop synchronizes and
// keeps going so one pass reports every statement-level defect.
type parseError struct {
	diag diagnostics.Diagnostic
}

func (e parseError) Error() string { return e.diag.Error() }

// Parse turns a token stream into a statement list. On errors the parser
// recovers at statement boundaries and accumulates diagnostics; the
// partial tree is only meaningful when no diagnostics come back.
func Parse(tokens []lexer.Token) ([]ast.Statement, []diagnostics.Diagnostic) {
	p := &parser{tokens: tokens}
	var statements []ast.Statement
	for !p.isAtEnd() {
		stmt, err := p.declaration()
		if err != nil {
			p.record(err)
			p.synchronize()
			continue
		}
		statements = append(statements, stmt)
	}
	return statements, p.diags
}

// ParseExpression parses the whole token stream as a single expression.
// The REPL uses it to decide whether a line is an expression to echo.
func ParseExpression(tokens []lexer.Token) (ast.Expression, error) {
	p := &parser{tokens: tokens}
	expr, err := p.expression()
	if err != nil {
		return nil, err
	}
	if !p.isAtEnd() {
		tok := p.current()
		return nil, parseError{diagnostics.Make(diagnostics.EParse, "Expect end of expression.", tok.Line, tok.Column)}
	}
	return expr, nil
}

//-----------------------------------------------------------------------------
// Declarations and statements
//-----------------------------------------------------------------------------

func (p *parser) declaration() (ast.Statement, error) {
	switch {
	case p.match(lexer.TokClass):
		return p.classDeclaration()
	case p.match(lexer.TokFun):
		return p.function("function")
	case p.match(lexer.TokVar):
		return p.varDeclaration()
	default:
		return p.statement()
	}
}

func (p *parser) classDeclaration() (ast.Statement, error) {
	name, err := p.consume(lexer.TokIdentifier, "Expect class name.")
	if err != nil {
		return nil, err
	}

	var superclass *ast.Variable
	if p.match(lexer.TokLess) {
		superName, err := p.consume(lexer.TokIdentifier, "Expect superclass name.")
		if err != nil {
			return nil, err
		}
		superclass = &ast.Variable{Name: superName}
	}

	if _, err := p.consume(lexer.TokLeftBrace, "Expect '{' before class body."); err != nil {
		return nil, err
	}

	var methods []*ast.FunctionStatement
	for !p.check(lexer.TokRightBrace) && !p.isAtEnd() {
		method, err := p.function("method")
		if err != nil {
			return nil, err
		}
		methods = append(methods, method.(*ast.FunctionStatement))
	}

	if _, err := p.consume(lexer.TokRightBrace, "Expect '}' after class body."); err != nil {
		return nil, err
	}
	return &ast.ClassStatement{Name: name, Superclass: superclass, Methods: methods}, nil
}

func (p *parser) function(kind string) (ast.Statement, error) {
	name, err := p.consume(lexer.TokIdentifier, fmt.Sprintf("Expect %s name.", kind))
	if err != nil {
		return nil, err
	}
	if _, err := p.consume(lexer.TokLeftParen, fmt.Sprintf("Expect '(' after %s name.", kind)); err != nil {
		return nil, err
	}

	var params []lexer.Token
	if !p.check(lexer.TokRightParen) {
		for {
			if len(params) >= maxCallArguments {
				p.record(p.errorAt(p.current(), "Can't have more than 255 parameters."))
			}
			param, err := p.consume(lexer.TokIdentifier, "Expect parameter name.")
			if err != nil {
				return nil, err
			}
			params = append(params, param)
			if !p.match(lexer.TokComma) {
				break
			}
		}
	}
	if _, err := p.consume(lexer.TokRightParen, "Expect ')' after parameters."); err != nil {
		return nil, err
	}

	if _, err := p.consume(lexer.TokLeftBrace, fmt.Sprintf("Expect '{' before %s body.", kind)); err != nil {
		return nil, err
	}
	body, err := p.block()
	if err != nil {
		return nil, err
	}
	return &ast.FunctionStatement{Name: name, Params: params, Body: body}, nil
}

func (p *parser) varDeclaration() (ast.Statement, error) {
	name, err := p.consume(lexer.TokIdentifier, "Expect variable name.")
	if err != nil {
		return nil, err
	}

	var initializer ast.Expression
	if p.match(lexer.TokEqual) {
		initializer, err = p.expression()
		if err != nil {
			return nil, err
		}
	}

	if _, err := p.consume(lexer.TokSemicolon, "Expect ';' after variable declaration."); err != nil {
		return nil, err
	}
	return &ast.VarStatement{Name: name, Initializer: initializer}, nil
}

func (p *parser) statement() (ast.Statement, error) {
	switch {
	case p.match(lexer.TokFor):
		return p.forStatement()
	case p.match(lexer.TokIf):
		return p.ifStatement()
	case p.match(lexer.TokPrint):
		return p.printStatement()
	case p.match(lexer.TokReturn):
		return p.returnStatement()
	case p.match(lexer.TokWhile):
		return p.whileStatement()
	case p.match(lexer.TokLeftBrace):
		statements, err := p.block()
		if err != nil {
			return nil, err
		}
		return &ast.BlockStatement{Statements: statements}, nil
	default:
		return p.expressionStatement()
	}
}

// forStatement desugars
//
//	for (init; cond; incr) body
//
// into
//
//	{ init; while (cond) { body; incr; } }
func (p *parser) forStatement() (ast.Statement, error) {
	if _, err := p.consume(lexer.TokLeftParen, "Expect '(' after 'for'."); err != nil {
		return nil, err
	}

	var initializer ast.Statement
	var err error
	switch {
	case p.match(lexer.TokSemicolon):
		initializer = nil
	case p.match(lexer.TokVar):
		initializer, err = p.varDeclaration()
	default:
		initializer, err = p.expressionStatement()
	}
	if err != nil {
		return nil, err
	}

	var condition ast.Expression
	if !p.check(lexer.TokSemicolon) {
		condition, err = p.expression()
		if err != nil {
			return nil, err
		}
	}
	if _, err := p.consume(lexer.TokSemicolon, "Expect ';' after loop condition."); err != nil {
		return nil, err
	}

	var increment ast.Expression
	if !p.check(lexer.TokRightParen) {
		increment, err = p.expression()
		if err != nil {
			return nil, err
		}
	}
	if _, err := p.consume(lexer.TokRightParen, "Expect ')' after for clauses."); err != nil {
		return nil, err
	}

	body, err := p.statement()
	if err != nil {
		return nil, err
	}

	if increment != nil {
		body = &ast.BlockStatement{Statements: []ast.Statement{
			body,
			&ast.ExpressionStatement{Expression: increment},
		}}
	}
	if condition == nil {
		condition = &ast.BooleanLiteral{Value: true}
	}
	var loop ast.Statement = &ast.WhileStatement{Condition: condition, Body: body}
	if initializer != nil {
		loop = &ast.BlockStatement{Statements: []ast.Statement{initializer, loop}}
	}
	return loop, nil
}

func (p *parser) ifStatement() (ast.Statement, error) {
	if _, err := p.consume(lexer.TokLeftParen, "Expect '(' after 'if'."); err != nil {
		return nil, err
	}
	condition, err := p.expression()
	if err != nil {
		return nil, err
	}
	if _, err := p.consume(lexer.TokRightParen, "Expect ')' after if condition."); err != nil {
		return nil, err
	}

	thenBranch, err := p.statement()
	if err != nil {
		return nil, err
	}
	var elseBranch ast.Statement
	if p.match(lexer.TokElse) {
		elseBranch, err = p.statement()
		if err != nil {
			return nil, err
		}
	}
	return &ast.IfStatement{Condition: condition, ThenBranch: thenBranch, ElseBranch: elseBranch}, nil
}

func (p *parser) printStatement() (ast.Statement, error) {
	value, err := p.expression()
	if err != nil {
		return nil, err
	}
	if _, err := p.consume(lexer.TokSemicolon, "Expect ';' after value."); err != nil {
		return nil, err
	}
	return &ast.PrintStatement{Expression: value}, nil
}

func (p *parser) returnStatement() (ast.Statement, error) {
	keyword := p.previous()
	var value ast.Expression
	if !p.check(lexer.TokSemicolon) {
		var err error
		value, err = p.expression()
		if err != nil {
			return nil, err
		}
	}
	if _, err := p.consume(lexer.TokSemicolon, "Expect ';' after return value."); err != nil {
		return nil, err
	}
	return &ast.ReturnStatement{Keyword: keyword, Value: value}, nil
}

func (p *parser) whileStatement() (ast.Statement, error) {
	if _, err := p.consume(lexer.TokLeftParen, "Expect '(' after 'while'."); err != nil {
		return nil, err
	}
	condition, err := p.expression()
	if err != nil {
		return nil, err
	}
	if _, err := p.consume(lexer.TokRightParen, "Expect ')' after condition."); err != nil {
		return nil, err
	}
	body, err := p.statement()
	if err != nil {
		return nil, err
	}
	return &ast.WhileStatement{Condition: condition, Body: body}, nil
}

func (p *parser) block() ([]ast.Statement, error) {
	var statements []ast.Statement
	for !p.check(lexer.TokRightBrace) && !p.isAtEnd() {
		stmt, err := p.declaration()
		if err != nil {
			return nil, err
		}
		statements = append(statements, stmt)
	}
	if _, err := p.consume(lexer.TokRightBrace, "Expect '}' after block."); err != nil {
		return nil, err
	}
	return statements, nil
}

func (p *parser) expressionStatement() (ast.Statement, error) {
	expr, err := p.expression()
	if err != nil {
		return nil, err
	}
	if _, err := p.consume(lexer.TokSemicolon, "Expect ';' after expression."); err != nil {
		return nil, err
	}
	return &ast.ExpressionStatement{Expression: expr}, nil
}

//-----------------------------------------------------------------------------
// Expressions
//-----------------------------------------------------------------------------

func (p *parser) expression() (ast.Expression, error) {
	return p.assignment()
}

func (p *parser) assignment() (ast.Expression, error) {
	expr, err := p.or()
	if err != nil {
		return nil, err
	}

	if p.match(lexer.TokEqual) {
		equals := p.previous()
		value, err := p.assignment()
		if err != nil {
			return nil, err
		}
		switch target := expr.(type) {
		case *ast.Variable:
			return &ast.Assignment{Name: target.Name, Value: value}, nil
		case *ast.Get:
			return &ast.Set{Object: target.Object, Name: target.Name, Value: value}, nil
		}
		// Report but keep parsing; the bad target doesn't poison the rest
		// of the statement.
		p.record(p.errorAt(equals, "Invalid assignment target."))
	}
	return expr, nil
}

func (p *parser) or() (ast.Expression, error) {
	expr, err := p.and()
	if err != nil {
		return nil, err
	}
	for p.match(lexer.TokOr) {
		op := p.previous()
		right, err := p.and()
		if err != nil {
			return nil, err
		}
		expr = &ast.Logical{Left: expr, Operator: op, Right: right}
	}
	return expr, nil
}

func (p *parser) and() (ast.Expression, error) {
	expr, err := p.equality()
	if err != nil {
		return nil, err
	}
	for p.match(lexer.TokAnd) {
		op := p.previous()
		right, err := p.equality()
		if err != nil {
			return nil, err
		}
		expr = &ast.Logical{Left: expr, Operator: op, Right: right}
	}
	return expr, nil
}

func (p *parser) equality() (ast.Expression, error) {
	return p.binaryLevel(p.comparison, lexer.TokBangEqual, lexer.TokEqualEqual)
}

func (p *parser) comparison() (ast.Expression, error) {
	return p.binaryLevel(p.term, lexer.TokGreater, lexer.TokGreaterEqual, lexer.TokLess, lexer.TokLessEqual)
}

func (p *parser) term() (ast.Expression, error) {
	return p.binaryLevel(p.factor, lexer.TokMinus, lexer.TokPlus)
}

func (p *parser) factor() (ast.Expression, error) {
	return p.binaryLevel(p.unary, lexer.TokSlash, lexer.TokStar)
}

func (p *parser) binaryLevel(operand func() (ast.Expression, error), operators ...lexer.TokenType) (ast.Expression, error) {
	expr, err := operand()
	if err != nil {
		return nil, err
	}
	for p.match(operators...) {
		op := p.previous()
		right, err := operand()
		if err != nil {
			return nil, err
		}
		expr = &ast.Binary{Left: expr, Operator: op, Right: right}
	}
	return expr, nil
}

func (p *parser) unary() (ast.Expression, error) {
	if p.match(lexer.TokBang, lexer.TokMinus) {
		op := p.previous()
		right, err := p.unary()
		if err != nil {
			return nil, err
		}
		return &ast.Unary{Operator: op, Right: right}, nil
	}
	return p.call()
}

func (p *parser) call() (ast.Expression, error) {
	expr, err := p.primary()
	if err != nil {
		return nil, err
	}
	for {
		switch {
		case p.match(lexer.TokLeftParen):
			expr, err = p.finishCall(expr)
			if err != nil {
				return nil, err
			}
		case p.match(lexer.TokDot):
			name, err := p.consume(lexer.TokIdentifier, "Expect property name after '.'.")
			if err != nil {
				return nil, err
			}
			expr = &ast.Get{Object: expr, Name: name}
		default:
			return expr, nil
		}
	}
}

func (p *parser) finishCall(callee ast.Expression) (ast.Expression, error) {
	var args []ast.Expression
	if !p.check(lexer.TokRightParen) {
		for {
			if len(args) >= maxCallArguments {
				p.record(p.errorAt(p.current(), "Can't have more than 255 arguments."))
			}
			arg, err := p.expression()
			if err != nil {
				return nil, err
			}
			args = append(args, arg)
			if !p.match(lexer.TokComma) {
				break
			}
		}
	}
	paren, err := p.consume(lexer.TokRightParen, "Expect ')' after arguments.")
	if err != nil {
		return nil, err
	}
	return &ast.Call{Callee: callee, Paren: paren, Arguments: args}, nil
}

func (p *parser) primary() (ast.Expression, error) {
	switch {
	case p.match(lexer.TokFalse):
		return &ast.BooleanLiteral{Value: false}, nil
	case p.match(lexer.TokTrue):
		return &ast.BooleanLiteral{Value: true}, nil
	case p.match(lexer.TokNil):
		return &ast.NilLiteral{}, nil
	case p.match(lexer.TokNumber):
		return &ast.NumberLiteral{Value: p.previous().Literal.(float64)}, nil
	case p.match(lexer.TokString):
		return &ast.StringLiteral{Value: p.previous().Literal.(string)}, nil
	case p.match(lexer.TokThis):
		return &ast.This{Keyword: p.previous()}, nil
	case p.match(lexer.TokSuper):
		keyword := p.previous()
		if _, err := p.consume(lexer.TokDot, "Expect '.' after 'super'."); err != nil {
			return nil, err
		}
		method, err := p.consume(lexer.TokIdentifier, "Expect superclass method name.")
		if err != nil {
			return nil, err
		}
		return &ast.Super{Keyword: keyword, Method: method}, nil
	case p.match(lexer.TokIdentifier):
		return &ast.Variable{Name: p.previous()}, nil
	case p.match(lexer.TokLeftParen):
		expr, err := p.expression()
		if err != nil {
			return nil, err
		}
		if _, err := p.consume(lexer.TokRightParen, "Expect ')' after expression."); err != nil {
			return nil, err
		}
		return &ast.Grouping{Expression: expr}, nil
	default:
		return nil, p.errorAt(p.current(), "Expect expression.")
	}
}

//-----------------------------------------------------------------------------
// Token plumbing
//-----------------------------------------------------------------------------

func (p *parser) current() lexer.Token {
	if p.pos >= len(p.tokens) {
		return p.tokens[len(p.tokens)-1] // EOF
	}
	return p.tokens[p.pos]
}

func (p *parser) previous() lexer.Token {
	return p.tokens[p.pos-1]
}

func (p *parser) advance() lexer.Token {
	tok := p.current()
	if !p.isAtEnd() {
		p.pos++
	}
	return tok
}

func (p *parser) check(typ lexer.TokenType) bool {
	return p.current().Type == typ
}

func (p *parser) match(types ...lexer.TokenType) bool {
	for _, typ := range types {
		if p.check(typ) {
			p.advance()
			return true
		}
	}
	return false
}

func (p *parser) consume(typ lexer.TokenType, message string) (lexer.Token, error) {
	if p.check(typ) {
		return p.advance(), nil
	}
	return lexer.Token{}, p.errorAt(p.current(), message)
}

func (p *parser) isAtEnd() bool {
	return p.current().Type == lexer.TokEOF
}

func (p *parser) errorAt(tok lexer.Token, message string) parseError {
	return parseError{diagnostics.Make(diagnostics.EParse, message, tok.Line, tok.Column)}
}

func (p *parser) record(err error) {
	if pe, ok := err.(parseError); ok {
		p.diags = append(p.diags, pe.diag)
		return
	}
	p.diags = append(p.diags, diagnostics.Make(diagnostics.EParse, err.Error(), 0, 0))
}

// synchronize discards tokens until a likely statement boundary so one
// bad statement doesn't cascade into spurious errors for the rest of the
// file.
func (p *parser) synchronize() {
	p.advance()
	for !p.isAtEnd() {
		if p.previous().Type == lexer.TokSemicolon {
			return
		}
		switch p.current().Type {
		case lexer.TokClass, lexer.TokFun, lexer.TokVar, lexer.TokFor,
			lexer.TokIf, lexer.TokWhile, lexer.TokPrint, lexer.TokReturn:
			return
		}
		p.advance()
	}
}
