// Package resolver implements the static binding pass that runs between
// parsing and interpretation. It annotates every variable, this, and
// super occurrence with its lexical distance and validates scope rules.
//
// The pass is pure: it consumes the AST and produces a distance table
// keyed by node identity plus a list of diagnostics. It never touches
// the interpreter, so both sides stay independently testable.
package resolver

import (
	"fmt"

	"lox/interpreter-go/pkg/ast"
	"lox/interpreter-go/pkg/diagnostics"
	"lox/interpreter-go/pkg/lexer"
)

type functionKind int

const (
	functionNone functionKind = iota
	functionFunction
	functionMethod
	functionInitializer
)

type classKind int

const (
	classNone classKind = iota
	classClass
	classSubclass
)

type resolver struct {
	// scopes maps names to "ready": false between declare and define,
	// true afterwards.
	scopes          []map[string]bool
	locals          map[ast.Expression]int
	diags           []diagnostics.Diagnostic
	currentFunction functionKind
	currentClass    classKind
}

// Resolve walks the full top-level statement sequence once and returns
// the site→distance table. Sites left out of the table are global
// references, looked up by name at runtime. Errors are accumulated so a
// single pass reports every static defect found; the caller must not
// execute the program if any came back.
func Resolve(statements []ast.Statement) (map[ast.Expression]int, []diagnostics.Diagnostic) {
	r := &resolver{locals: make(map[ast.Expression]int)}
	r.resolveStatements(statements)
	return r.locals, r.diags
}

func (r *resolver) resolveStatements(statements []ast.Statement) {
	for _, stmt := range statements {
		r.resolveStatement(stmt)
	}
}

func (r *resolver) resolveStatement(stmt ast.Statement) {
	switch s := stmt.(type) {
	case *ast.BlockStatement:
		r.beginScope()
		r.resolveStatements(s.Statements)
		r.endScope()
	case *ast.VarStatement:
		r.declare(s.Name)
		if s.Initializer != nil {
			r.resolveExpression(s.Initializer)
		}
		r.define(s.Name)
	case *ast.FunctionStatement:
		r.declare(s.Name)
		r.define(s.Name)
		r.resolveFunction(s, functionFunction)
	case *ast.ClassStatement:
		r.resolveClass(s)
	case *ast.ExpressionStatement:
		r.resolveExpression(s.Expression)
	case *ast.IfStatement:
		r.resolveExpression(s.Condition)
		r.resolveStatement(s.ThenBranch)
		if s.ElseBranch != nil {
			r.resolveStatement(s.ElseBranch)
		}
	case *ast.PrintStatement:
		r.resolveExpression(s.Expression)
	case *ast.ReturnStatement:
		if r.currentFunction == functionNone {
			r.addError(s.Keyword, "Can't return from top-level code.")
		}
		if s.Value != nil {
			if r.currentFunction == functionInitializer {
				if _, isNil := s.Value.(*ast.NilLiteral); !isNil {
					r.addError(s.Keyword, "Can't return a value from an initializer.")
				}
			}
			r.resolveExpression(s.Value)
		}
	case *ast.WhileStatement:
		r.resolveExpression(s.Condition)
		r.resolveStatement(s.Body)
	}
}

func (r *resolver) resolveClass(class *ast.ClassStatement) {
	enclosingClass := r.currentClass
	r.currentClass = classClass

	r.declare(class.Name)
	r.define(class.Name)

	if class.Superclass != nil {
		if class.Superclass.Name.Lexeme == class.Name.Lexeme {
			r.addError(class.Superclass.Name, "A class can't inherit from itself.")
		}
		r.currentClass = classSubclass
		r.resolveExpression(class.Superclass)

		r.beginScope()
		r.scopes[len(r.scopes)-1]["super"] = true
	}

	r.beginScope()
	r.scopes[len(r.scopes)-1]["this"] = true

	for _, method := range class.Methods {
		kind := functionMethod
		if method.Name.Lexeme == "init" {
			kind = functionInitializer
		}
		r.resolveFunction(method, kind)
	}

	r.endScope()
	if class.Superclass != nil {
		r.endScope()
	}

	r.currentClass = enclosingClass
}

func (r *resolver) resolveFunction(fn *ast.FunctionStatement, kind functionKind) {
	enclosingFunction := r.currentFunction
	r.currentFunction = kind

	r.beginScope()
	for _, param := range fn.Params {
		r.declare(param)
		r.define(param)
	}
	r.resolveStatements(fn.Body)
	r.endScope()

	r.currentFunction = enclosingFunction
}

func (r *resolver) resolveExpression(expr ast.Expression) {
	switch e := expr.(type) {
	case *ast.Variable:
		if len(r.scopes) > 0 {
			if ready, declared := r.scopes[len(r.scopes)-1][e.Name.Lexeme]; declared && !ready {
				r.addError(e.Name, "Can't read local variable in its own initializer.")
			}
		}
		r.resolveLocal(expr, e.Name)
	case *ast.Assignment:
		r.resolveExpression(e.Value)
		r.resolveLocal(expr, e.Name)
	case *ast.Binary:
		r.resolveExpression(e.Left)
		r.resolveExpression(e.Right)
	case *ast.Logical:
		r.resolveExpression(e.Left)
		r.resolveExpression(e.Right)
	case *ast.Unary:
		r.resolveExpression(e.Right)
	case *ast.Grouping:
		r.resolveExpression(e.Expression)
	case *ast.Call:
		r.resolveExpression(e.Callee)
		for _, arg := range e.Arguments {
			r.resolveExpression(arg)
		}
	case *ast.Get:
		r.resolveExpression(e.Object)
	case *ast.Set:
		r.resolveExpression(e.Object)
		r.resolveExpression(e.Value)
	case *ast.This:
		if r.currentClass == classNone {
			r.addError(e.Keyword, "Can't use 'this' outside of a class.")
			return
		}
		r.resolveLocal(expr, e.Keyword)
	case *ast.Super:
		switch r.currentClass {
		case classNone:
			r.addError(e.Keyword, "Can't use 'super' outside of a class.")
			return
		case classClass:
			r.addError(e.Keyword, "Can't use 'super' in a class with no superclass.")
			return
		}
		r.resolveLocal(expr, e.Keyword)
	case *ast.NumberLiteral, *ast.StringLiteral, *ast.BooleanLiteral, *ast.NilLiteral:
		// nothing to resolve
	}
}

// resolveLocal records the hop count from the use site to the innermost
// scope declaring the name. A miss across every scope means the site is
// a global reference and stays out of the table.
func (r *resolver) resolveLocal(expr ast.Expression, name lexer.Token) {
	for i := len(r.scopes) - 1; i >= 0; i-- {
		if _, ok := r.scopes[i][name.Lexeme]; ok {
			r.locals[expr] = len(r.scopes) - 1 - i
			return
		}
	}
}

func (r *resolver) beginScope() {
	r.scopes = append(r.scopes, make(map[string]bool))
}

func (r *resolver) endScope() {
	r.scopes = r.scopes[:len(r.scopes)-1]
}

func (r *resolver) declare(name lexer.Token) {
	if len(r.scopes) == 0 {
		return
	}
	scope := r.scopes[len(r.scopes)-1]
	if _, ok := scope[name.Lexeme]; ok {
		r.addError(name, fmt.Sprintf("Already a variable named '%s' in this scope.", name.Lexeme))
	}
	scope[name.Lexeme] = false
}

func (r *resolver) define(name lexer.Token) {
	if len(r.scopes) == 0 {
		return
	}
	r.scopes[len(r.scopes)-1][name.Lexeme] = true
}

func (r *resolver) addError(tok lexer.Token, message string) {
	r.diags = append(r.diags, diagnostics.Make(diagnostics.EResolve, message, tok.Line, tok.Column))
}
