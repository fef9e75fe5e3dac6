package ast

import "lox/interpreter-go/pkg/lexer"

// Constructor shorthands for building trees in tests. Tokens fabricated
// here carry line 1 and no useful column.

func Tok(typ lexer.TokenType, lexeme string) lexer.Token {
	return lexer.Token{Type: typ, Lexeme: lexeme, Line: 1, Column: 1}
}

func Name(name string) lexer.Token {
	return Tok(lexer.TokIdentifier, name)
}

// Expression helpers.

func Num(value float64) *NumberLiteral {
	return &NumberLiteral{Value: value}
}

func Str(value string) *StringLiteral {
	return &StringLiteral{Value: value}
}

func Bool(value bool) *BooleanLiteral {
	return &BooleanLiteral{Value: value}
}

func Nil() *NilLiteral {
	return &NilLiteral{}
}

func ID(name string) *Variable {
	return &Variable{Name: Name(name)}
}

func Assign(name string, value Expression) *Assignment {
	return &Assignment{Name: Name(name), Value: value}
}

func Bin(op string, typ lexer.TokenType, left, right Expression) *Binary {
	return &Binary{Left: left, Operator: Tok(typ, op), Right: right}
}

func Add(left, right Expression) *Binary {
	return Bin("+", lexer.TokPlus, left, right)
}

func Logic(op string, typ lexer.TokenType, left, right Expression) *Logical {
	return &Logical{Left: left, Operator: Tok(typ, op), Right: right}
}

func Un(op string, typ lexer.TokenType, right Expression) *Unary {
	return &Unary{Operator: Tok(typ, op), Right: right}
}

func Group(inner Expression) *Grouping {
	return &Grouping{Expression: inner}
}

func CallOf(callee Expression, args ...Expression) *Call {
	return &Call{Callee: callee, Paren: Tok(lexer.TokRightParen, ")"), Arguments: args}
}

func GetOf(object Expression, name string) *Get {
	return &Get{Object: object, Name: Name(name)}
}

func SetOf(object Expression, name string, value Expression) *Set {
	return &Set{Object: object, Name: Name(name), Value: value}
}

func ThisOf() *This {
	return &This{Keyword: Tok(lexer.TokThis, "this")}
}

func SuperOf(method string) *Super {
	return &Super{Keyword: Tok(lexer.TokSuper, "super"), Method: Name(method)}
}

// Statement helpers.

func Block(statements ...Statement) *BlockStatement {
	return &BlockStatement{Statements: statements}
}

func ExprStmt(expr Expression) *ExpressionStatement {
	return &ExpressionStatement{Expression: expr}
}

func Print(expr Expression) *PrintStatement {
	return &PrintStatement{Expression: expr}
}

func Var(name string, initializer Expression) *VarStatement {
	return &VarStatement{Name: Name(name), Initializer: initializer}
}

func Fun(name string, params []string, body ...Statement) *FunctionStatement {
	tokens := make([]lexer.Token, 0, len(params))
	for _, p := range params {
		tokens = append(tokens, Name(p))
	}
	return &FunctionStatement{Name: Name(name), Params: tokens, Body: body}
}

func Ret(value Expression) *ReturnStatement {
	return &ReturnStatement{Keyword: Tok(lexer.TokReturn, "return"), Value: value}
}

func If(cond Expression, then, els Statement) *IfStatement {
	return &IfStatement{Condition: cond, ThenBranch: then, ElseBranch: els}
}

func While(cond Expression, body Statement) *WhileStatement {
	return &WhileStatement{Condition: cond, Body: body}
}

func Class(name string, superclass *Variable, methods ...*FunctionStatement) *ClassStatement {
	return &ClassStatement{Name: Name(name), Superclass: superclass, Methods: methods}
}
