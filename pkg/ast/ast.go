// Package ast defines the Lox statement and expression tree consumed by
// the resolver and the interpreter.
//
// Every node is a distinct pointer; the resolver keys its distance table
// on node identity, so two syntactically identical occurrences of the
// same variable are separate resolution sites.
package ast

import "lox/interpreter-go/pkg/lexer"

type NodeType string

const (
	NodeNumberLiteral  NodeType = "NumberLiteral"
	NodeStringLiteral  NodeType = "StringLiteral"
	NodeBooleanLiteral NodeType = "BooleanLiteral"
	NodeNilLiteral     NodeType = "NilLiteral"
	NodeVariable       NodeType = "Variable"
	NodeAssignment     NodeType = "Assignment"
	NodeBinary         NodeType = "Binary"
	NodeLogical        NodeType = "Logical"
	NodeUnary          NodeType = "Unary"
	NodeGrouping       NodeType = "Grouping"
	NodeCall           NodeType = "Call"
	NodeGet            NodeType = "Get"
	NodeSet            NodeType = "Set"
	NodeThis           NodeType = "This"
	NodeSuper          NodeType = "Super"

	NodeBlockStatement      NodeType = "BlockStatement"
	NodeClassStatement      NodeType = "ClassStatement"
	NodeExpressionStatement NodeType = "ExpressionStatement"
	NodeFunctionStatement   NodeType = "FunctionStatement"
	NodeIfStatement         NodeType = "IfStatement"
	NodePrintStatement      NodeType = "PrintStatement"
	NodeReturnStatement     NodeType = "ReturnStatement"
	NodeVarStatement        NodeType = "VarStatement"
	NodeWhileStatement      NodeType = "WhileStatement"
)

type Node interface {
	NodeType() NodeType
}

// Marker interfaces.

type Expression interface {
	Node
	expressionNode()
}

type expressionMarker struct{}

func (expressionMarker) expressionNode() {}

type Statement interface {
	Node
	statementNode()
}

type statementMarker struct{}

func (statementMarker) statementNode() {}

//-----------------------------------------------------------------------------
// Expressions
//-----------------------------------------------------------------------------

type NumberLiteral struct {
	expressionMarker
	Value float64
}

func (*NumberLiteral) NodeType() NodeType { return NodeNumberLiteral }

type StringLiteral struct {
	expressionMarker
	Value string
}

func (*StringLiteral) NodeType() NodeType { return NodeStringLiteral }

type BooleanLiteral struct {
	expressionMarker
	Value bool
}

func (*BooleanLiteral) NodeType() NodeType { return NodeBooleanLiteral }

type NilLiteral struct {
	expressionMarker
}

func (*NilLiteral) NodeType() NodeType { return NodeNilLiteral }

type Variable struct {
	expressionMarker
	Name lexer.Token
}

func (*Variable) NodeType() NodeType { return NodeVariable }

type Assignment struct {
	expressionMarker
	Name  lexer.Token
	Value Expression
}

func (*Assignment) NodeType() NodeType { return NodeAssignment }

type Binary struct {
	expressionMarker
	Left     Expression
	Operator lexer.Token
	Right    Expression
}

func (*Binary) NodeType() NodeType { return NodeBinary }

type Logical struct {
	expressionMarker
	Left     Expression
	Operator lexer.Token
	Right    Expression
}

func (*Logical) NodeType() NodeType { return NodeLogical }

type Unary struct {
	expressionMarker
	Operator lexer.Token
	Right    Expression
}

func (*Unary) NodeType() NodeType { return NodeUnary }

type Grouping struct {
	expressionMarker
	Expression Expression
}

func (*Grouping) NodeType() NodeType { return NodeGrouping }

type Call struct {
	expressionMarker
	Callee Expression
	// Paren is the closing parenthesis, kept as the error location for
	// arity and callability failures.
	Paren     lexer.Token
	Arguments []Expression
}

func (*Call) NodeType() NodeType { return NodeCall }

type Get struct {
	expressionMarker
	Object Expression
	Name   lexer.Token
}

func (*Get) NodeType() NodeType { return NodeGet }

type Set struct {
	expressionMarker
	Object Expression
	Name   lexer.Token
	Value  Expression
}

func (*Set) NodeType() NodeType { return NodeSet }

type This struct {
	expressionMarker
	Keyword lexer.Token
}

func (*This) NodeType() NodeType { return NodeThis }

type Super struct {
	expressionMarker
	Keyword lexer.Token
	Method  lexer.Token
}

func (*Super) NodeType() NodeType { return NodeSuper }

//-----------------------------------------------------------------------------
// Statements
//-----------------------------------------------------------------------------

type BlockStatement struct {
	statementMarker
	Statements []Statement
}

func (*BlockStatement) NodeType() NodeType { return NodeBlockStatement }

type ClassStatement struct {
	statementMarker
	Name lexer.Token
	// Superclass is nil when the class does not inherit.
	Superclass *Variable
	Methods    []*FunctionStatement
}

func (*ClassStatement) NodeType() NodeType { return NodeClassStatement }

type ExpressionStatement struct {
	statementMarker
	Expression Expression
}

func (*ExpressionStatement) NodeType() NodeType { return NodeExpressionStatement }

type FunctionStatement struct {
	statementMarker
	Name   lexer.Token
	Params []lexer.Token
	Body   []Statement
}

func (*FunctionStatement) NodeType() NodeType { return NodeFunctionStatement }

type IfStatement struct {
	statementMarker
	Condition  Expression
	ThenBranch Statement
	// ElseBranch is nil when absent.
	ElseBranch Statement
}

func (*IfStatement) NodeType() NodeType { return NodeIfStatement }

type PrintStatement struct {
	statementMarker
	Expression Expression
}

func (*PrintStatement) NodeType() NodeType { return NodePrintStatement }

type ReturnStatement struct {
	statementMarker
	Keyword lexer.Token
	// Value is nil for a bare `return;`.
	Value Expression
}

func (*ReturnStatement) NodeType() NodeType { return NodeReturnStatement }

type VarStatement struct {
	statementMarker
	Name lexer.Token
	// Initializer is nil when the declaration has no `= expr` part.
	Initializer Expression
}

func (*VarStatement) NodeType() NodeType { return NodeVarStatement }

type WhileStatement struct {
	statementMarker
	Condition Expression
	Body      Statement
}

func (*WhileStatement) NodeType() NodeType { return NodeWhileStatement }
