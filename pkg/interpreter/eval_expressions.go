package interpreter

import (
	"fmt"

	"lox/interpreter-go/pkg/ast"
	"lox/interpreter-go/pkg/lexer"
	"lox/interpreter-go/pkg/runtime"
)

func (i *Interpreter) evaluateExpression(expr ast.Expression, env *runtime.Environment) (runtime.Value, error) {
	switch e := expr.(type) {
	case *ast.NumberLiteral:
		return runtime.NumberValue{Val: e.Value}, nil
	case *ast.StringLiteral:
		return runtime.StringValue{Val: e.Value}, nil
	case *ast.BooleanLiteral:
		return runtime.BoolValue{Val: e.Value}, nil
	case *ast.NilLiteral:
		return runtime.NilValue{}, nil
	case *ast.Grouping:
		return i.evaluateExpression(e.Expression, env)
	case *ast.Variable:
		return i.lookUpVariable(e.Name, expr, env)
	case *ast.This:
		return i.lookUpVariable(e.Keyword, expr, env)
	case *ast.Assignment:
		return i.evaluateAssignment(e, env)
	case *ast.Unary:
		return i.evaluateUnary(e, env)
	case *ast.Binary:
		return i.evaluateBinary(e, env)
	case *ast.Logical:
		return i.evaluateLogical(e, env)
	case *ast.Call:
		return i.evaluateCall(e, env)
	case *ast.Get:
		return i.evaluateGet(e, env)
	case *ast.Set:
		return i.evaluateSet(e, env)
	case *ast.Super:
		return i.evaluateSuper(e, env)
	default:
		return nil, fmt.Errorf("unsupported expression type: %s", expr.NodeType())
	}
}

// lookUpVariable reads through the resolver's table: a resolved site is a
// direct hop to its declaring scope, an unresolved one is a global.
func (i *Interpreter) lookUpVariable(name lexer.Token, site ast.Expression, env *runtime.Environment) (runtime.Value, error) {
	if distance, ok := i.locals[site]; ok {
		value, err := env.GetAt(distance, name.Lexeme)
		if err != nil {
			return nil, errorAt(name, "%s", err.Error())
		}
		return value, nil
	}
	value, err := i.globals.Get(name.Lexeme)
	if err != nil {
		return nil, errorAt(name, "%s", err.Error())
	}
	return value, nil
}

func (i *Interpreter) evaluateAssignment(assign *ast.Assignment, env *runtime.Environment) (runtime.Value, error) {
	value, err := i.evaluateExpression(assign.Value, env)
	if err != nil {
		return nil, err
	}
	if distance, ok := i.locals[assign]; ok {
		if err := env.AssignAt(distance, assign.Name.Lexeme, value); err != nil {
			return nil, errorAt(assign.Name, "%s", err.Error())
		}
		return value, nil
	}
	if err := i.globals.Assign(assign.Name.Lexeme, value); err != nil {
		return nil, errorAt(assign.Name, "%s", err.Error())
	}
	return value, nil
}

func (i *Interpreter) evaluateUnary(unary *ast.Unary, env *runtime.Environment) (runtime.Value, error) {
	operand, err := i.evaluateExpression(unary.Right, env)
	if err != nil {
		return nil, err
	}
	switch unary.Operator.Type {
	case lexer.TokMinus:
		n, ok := operand.(runtime.NumberValue)
		if !ok {
			return nil, errorAt(unary.Operator, "Operand must be a number.")
		}
		return runtime.NumberValue{Val: -n.Val}, nil
	case lexer.TokBang:
		return runtime.BoolValue{Val: !isTruthy(operand)}, nil
	default:
		return nil, errorAt(unary.Operator, "Unsupported unary operator '%s'.", unary.Operator.Lexeme)
	}
}

func (i *Interpreter) evaluateBinary(binary *ast.Binary, env *runtime.Environment) (runtime.Value, error) {
	left, err := i.evaluateExpression(binary.Left, env)
	if err != nil {
		return nil, err
	}
	right, err := i.evaluateExpression(binary.Right, env)
	if err != nil {
		return nil, err
	}

	op := binary.Operator
	switch op.Type {
	case lexer.TokEqualEqual:
		return runtime.BoolValue{Val: valuesEqual(left, right)}, nil
	case lexer.TokBangEqual:
		return runtime.BoolValue{Val: !valuesEqual(left, right)}, nil
	case lexer.TokPlus:
		ln, lok := left.(runtime.NumberValue)
		rn, rok := right.(runtime.NumberValue)
		if lok && rok {
			return runtime.NumberValue{Val: ln.Val + rn.Val}, nil
		}
		// A string on either side concatenates with the other side's
		// display form.
		if left.Kind() == runtime.KindString || right.Kind() == runtime.KindString {
			return runtime.StringValue{Val: Stringify(left) + Stringify(right)}, nil
		}
		return nil, errorAt(op, "Operands must be two numbers or two strings.")
	}

	ln, lok := left.(runtime.NumberValue)
	rn, rok := right.(runtime.NumberValue)
	if !lok || !rok {
		return nil, errorAt(op, "Operands must be numbers.")
	}
	switch op.Type {
	case lexer.TokMinus:
		return runtime.NumberValue{Val: ln.Val - rn.Val}, nil
	case lexer.TokStar:
		return runtime.NumberValue{Val: ln.Val * rn.Val}, nil
	case lexer.TokSlash:
		return runtime.NumberValue{Val: ln.Val / rn.Val}, nil
	case lexer.TokGreater:
		return runtime.BoolValue{Val: ln.Val > rn.Val}, nil
	case lexer.TokGreaterEqual:
		return runtime.BoolValue{Val: ln.Val >= rn.Val}, nil
	case lexer.TokLess:
		return runtime.BoolValue{Val: ln.Val < rn.Val}, nil
	case lexer.TokLessEqual:
		return runtime.BoolValue{Val: ln.Val <= rn.Val}, nil
	default:
		return nil, errorAt(op, "Unsupported binary operator '%s'.", op.Lexeme)
	}
}

// evaluateLogical short-circuits: the left value is returned as-is when
// it already decides the outcome, without evaluating the right side.
func (i *Interpreter) evaluateLogical(logical *ast.Logical, env *runtime.Environment) (runtime.Value, error) {
	left, err := i.evaluateExpression(logical.Left, env)
	if err != nil {
		return nil, err
	}
	if logical.Operator.Type == lexer.TokOr {
		if isTruthy(left) {
			return left, nil
		}
	} else {
		if !isTruthy(left) {
			return left, nil
		}
	}
	return i.evaluateExpression(logical.Right, env)
}

func (i *Interpreter) evaluateCall(call *ast.Call, env *runtime.Environment) (runtime.Value, error) {
	callee, err := i.evaluateExpression(call.Callee, env)
	if err != nil {
		return nil, err
	}

	args := make([]runtime.Value, 0, len(call.Arguments))
	for _, argExpr := range call.Arguments {
		arg, err := i.evaluateExpression(argExpr, env)
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
	}

	callable, ok := callee.(runtime.Callable)
	if !ok {
		return nil, errorAt(call.Paren, "Can only call functions and classes.")
	}
	if len(args) != callable.Arity() {
		return nil, errorAt(call.Paren, "Expected %d arguments but got %d.", callable.Arity(), len(args))
	}
	return i.callValue(callable, args, env)
}

func (i *Interpreter) evaluateGet(get *ast.Get, env *runtime.Environment) (runtime.Value, error) {
	object, err := i.evaluateExpression(get.Object, env)
	if err != nil {
		return nil, err
	}
	instance, ok := object.(*runtime.InstanceValue)
	if !ok {
		return nil, errorAt(get.Name, "Only instances have properties.")
	}
	value, found := instance.Get(get.Name.Lexeme)
	if !found {
		return nil, errorAt(get.Name, "Undefined property '%s'.", get.Name.Lexeme)
	}
	return value, nil
}

func (i *Interpreter) evaluateSet(set *ast.Set, env *runtime.Environment) (runtime.Value, error) {
	object, err := i.evaluateExpression(set.Object, env)
	if err != nil {
		return nil, err
	}
	instance, ok := object.(*runtime.InstanceValue)
	if !ok {
		return nil, errorAt(set.Name, "Only instances have fields.")
	}
	value, err := i.evaluateExpression(set.Value, env)
	if err != nil {
		return nil, err
	}
	instance.Set(set.Name.Lexeme, value)
	return value, nil
}

// evaluateSuper reads `super` at the resolved distance and `this` one
// scope closer, then binds the superclass method to the current
// instance, so the receiver stays the original object.
func (i *Interpreter) evaluateSuper(super *ast.Super, env *runtime.Environment) (runtime.Value, error) {
	distance, ok := i.locals[super]
	if !ok {
		return nil, errorAt(super.Keyword, "Can't use 'super' outside of a class.")
	}
	superValue, err := env.GetAt(distance, "super")
	if err != nil {
		return nil, errorAt(super.Keyword, "%s", err.Error())
	}
	thisValue, err := env.GetAt(distance-1, "this")
	if err != nil {
		return nil, errorAt(super.Keyword, "%s", err.Error())
	}

	superclass, sok := superValue.(*runtime.ClassValue)
	instance, iok := thisValue.(*runtime.InstanceValue)
	if !sok || !iok {
		return nil, errorAt(super.Method, "Undefined property '%s'.", super.Method.Lexeme)
	}
	method := superclass.FindMethod(super.Method.Lexeme)
	if method == nil {
		return nil, errorAt(super.Method, "Undefined property '%s'.", super.Method.Lexeme)
	}
	return method.Bind(instance), nil
}
