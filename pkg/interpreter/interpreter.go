// Package interpreter executes resolved Lox statement trees against a
// chain of lexical environments.
package interpreter

import (
	"fmt"
	"io"
	"os"
	"time"

	"lox/interpreter-go/pkg/ast"
	"lox/interpreter-go/pkg/lexer"
	"lox/interpreter-go/pkg/runtime"
)

// Interpreter drives evaluation of Lox AST nodes. The globals scope
// lives for the whole run and hosts native bindings; locals is the
// resolver's site→distance table, keyed by node identity.
type Interpreter struct {
	globals *runtime.Environment
	locals  map[ast.Expression]int
	stdout  io.Writer
}

// New returns an interpreter with the native globals installed.
func New() *Interpreter {
	i := &Interpreter{
		globals: runtime.NewEnvironment(nil),
		locals:  make(map[ast.Expression]int),
		stdout:  os.Stdout,
	}
	i.globals.Define("clock", &runtime.NativeFunctionValue{
		Name:   "clock",
		NArity: 0,
		Impl: func(_ *runtime.NativeCallContext, _ []runtime.Value) (runtime.Value, error) {
			return runtime.NumberValue{Val: float64(time.Now().UnixNano()) / 1e9}, nil
		},
	})
	return i
}

// GlobalEnvironment returns the interpreter's global environment.
func (i *Interpreter) GlobalEnvironment() *runtime.Environment {
	return i.globals
}

// SetOutput redirects print output (stdout by default).
func (i *Interpreter) SetOutput(w io.Writer) {
	i.stdout = w
}

// BindLocals merges a resolver distance table into the interpreter.
// Merging (rather than replacing) keeps earlier REPL lines resolvable.
func (i *Interpreter) BindLocals(locals map[ast.Expression]int) {
	for site, distance := range locals {
		i.locals[site] = distance
	}
}

// Interpret executes top-level statements against the global environment,
// stopping at the first runtime error. Resolution must already have run.
func (i *Interpreter) Interpret(statements []ast.Statement) error {
	for _, stmt := range statements {
		comp, err := i.executeStatement(stmt, i.globals)
		if err != nil {
			return err
		}
		if comp.returned {
			return fmt.Errorf("return outside function")
		}
	}
	return nil
}

// Evaluate computes a single expression in the global scope. The REPL
// uses it to echo expression lines.
func (i *Interpreter) Evaluate(expr ast.Expression) (runtime.Value, error) {
	return i.evaluateExpression(expr, i.globals)
}

//-----------------------------------------------------------------------------
// Statement execution
//-----------------------------------------------------------------------------

// completion is the two-valued result of executing a statement: either
// it completed normally, or a return value is in flight and unwinds
// toward the nearest call boundary. Block and while execution check it
// after every nested statement and stop propagating upward on returned.
type completion struct {
	returned bool
	value    runtime.Value
}

var completed = completion{}

func returned(value runtime.Value) completion {
	return completion{returned: true, value: value}
}

func (i *Interpreter) executeStatement(stmt ast.Statement, env *runtime.Environment) (completion, error) {
	switch s := stmt.(type) {
	case *ast.BlockStatement:
		return i.executeBlock(s.Statements, runtime.NewEnvironment(env))
	case *ast.VarStatement:
		var value runtime.Value = runtime.NilValue{}
		if s.Initializer != nil {
			v, err := i.evaluateExpression(s.Initializer, env)
			if err != nil {
				return completed, err
			}
			value = v
		}
		env.Define(s.Name.Lexeme, value)
		return completed, nil
	case *ast.FunctionStatement:
		fn := &runtime.FunctionValue{Declaration: s, Closure: env}
		env.Define(s.Name.Lexeme, fn)
		return completed, nil
	case *ast.ClassStatement:
		return completed, i.executeClassStatement(s, env)
	case *ast.ExpressionStatement:
		_, err := i.evaluateExpression(s.Expression, env)
		return completed, err
	case *ast.IfStatement:
		cond, err := i.evaluateExpression(s.Condition, env)
		if err != nil {
			return completed, err
		}
		if isTruthy(cond) {
			return i.executeStatement(s.ThenBranch, env)
		}
		if s.ElseBranch != nil {
			return i.executeStatement(s.ElseBranch, env)
		}
		return completed, nil
	case *ast.PrintStatement:
		value, err := i.evaluateExpression(s.Expression, env)
		if err != nil {
			return completed, err
		}
		fmt.Fprintln(i.stdout, Stringify(value))
		return completed, nil
	case *ast.ReturnStatement:
		var value runtime.Value = runtime.NilValue{}
		if s.Value != nil {
			v, err := i.evaluateExpression(s.Value, env)
			if err != nil {
				return completed, err
			}
			value = v
		}
		return returned(value), nil
	case *ast.WhileStatement:
		for {
			cond, err := i.evaluateExpression(s.Condition, env)
			if err != nil {
				return completed, err
			}
			if !isTruthy(cond) {
				return completed, nil
			}
			comp, err := i.executeStatement(s.Body, env)
			if err != nil {
				return completed, err
			}
			if comp.returned {
				return comp, nil
			}
		}
	default:
		return completed, fmt.Errorf("unsupported statement type: %s", stmt.NodeType())
	}
}

// executeBlock runs statements in the given scope, stopping early on
// error or on a return value in flight. The caller's environment is
// untouched either way; scoping is by construction, not save/restore.
func (i *Interpreter) executeBlock(statements []ast.Statement, env *runtime.Environment) (completion, error) {
	for _, stmt := range statements {
		comp, err := i.executeStatement(stmt, env)
		if err != nil {
			return completed, err
		}
		if comp.returned {
			return comp, nil
		}
	}
	return completed, nil
}

func (i *Interpreter) executeClassStatement(class *ast.ClassStatement, env *runtime.Environment) error {
	var superclass *runtime.ClassValue
	if class.Superclass != nil {
		value, err := i.evaluateExpression(class.Superclass, env)
		if err != nil {
			return err
		}
		sc, ok := value.(*runtime.ClassValue)
		if !ok {
			return errorAt(class.Superclass.Name, "Superclass must be a class.")
		}
		superclass = sc
	}

	// Pre-define the name so method closures can capture a self-reference.
	env.Define(class.Name.Lexeme, runtime.NilValue{})

	methodEnv := env
	if superclass != nil {
		methodEnv = runtime.NewEnvironment(env)
		methodEnv.Define("super", superclass)
	}

	methods := make(map[string]*runtime.FunctionValue, len(class.Methods))
	for _, method := range class.Methods {
		methods[method.Name.Lexeme] = &runtime.FunctionValue{
			Declaration:   method,
			Closure:       methodEnv,
			IsInitializer: method.Name.Lexeme == "init",
		}
	}

	value := &runtime.ClassValue{
		Name:       class.Name.Lexeme,
		Superclass: superclass,
		Methods:    methods,
	}
	return env.Assign(class.Name.Lexeme, value)
}

//-----------------------------------------------------------------------------
// Calls
//-----------------------------------------------------------------------------

// callValue dispatches over the closed callable set.
func (i *Interpreter) callValue(callee runtime.Callable, args []runtime.Value, env *runtime.Environment) (runtime.Value, error) {
	switch fn := callee.(type) {
	case *runtime.NativeFunctionValue:
		return fn.Impl(&runtime.NativeCallContext{Env: env}, args)
	case *runtime.FunctionValue:
		return i.callFunction(fn, args)
	case *runtime.ClassValue:
		return i.instantiateClass(fn, args)
	default:
		return nil, fmt.Errorf("unsupported callable kind: %s", callee.Kind())
	}
}

// callFunction binds parameters in a scope nested in the captured
// closure and runs the body. The call boundary absorbs any return value
// in flight; an initializer always yields its receiver instead.
func (i *Interpreter) callFunction(fn *runtime.FunctionValue, args []runtime.Value) (runtime.Value, error) {
	env := runtime.NewEnvironment(fn.Closure)
	for idx, param := range fn.Declaration.Params {
		env.Define(param.Lexeme, args[idx])
	}
	comp, err := i.executeBlock(fn.Declaration.Body, env)
	if err != nil {
		return nil, err
	}
	if fn.IsInitializer {
		return fn.Closure.GetAt(0, "this")
	}
	if comp.returned {
		return comp.value, nil
	}
	return runtime.NilValue{}, nil
}

// instantiateClass allocates an instance and runs init when present,
// discarding its result; the constructor always yields the instance.
func (i *Interpreter) instantiateClass(class *runtime.ClassValue, args []runtime.Value) (runtime.Value, error) {
	instance := runtime.NewInstance(class)
	if init := class.FindMethod("init"); init != nil {
		if _, err := i.callFunction(init.Bind(instance), args); err != nil {
			return nil, err
		}
	}
	return instance, nil
}

//-----------------------------------------------------------------------------
// Errors
//-----------------------------------------------------------------------------

// RuntimeError is a positioned execution failure. Interpretation halts
// at the first one; there is no recovery.
type RuntimeError struct {
	Line    int
	Column  int
	Message string
}

func (e *RuntimeError) Error() string {
	return fmt.Sprintf("[line %d:%d] %s", e.Line, e.Column, e.Message)
}

func errorAt(tok lexer.Token, format string, args ...any) *RuntimeError {
	return &RuntimeError{
		Line:    tok.Line,
		Column:  tok.Column,
		Message: fmt.Sprintf(format, args...),
	}
}
