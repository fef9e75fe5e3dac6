package interpreter

import (
	"strconv"

	"lox/interpreter-go/pkg/runtime"
)

// Stringify renders a value's display form: strings unquoted, integral
// numbers without a trailing fraction, nil as "nil".
func Stringify(value runtime.Value) string {
	switch v := value.(type) {
	case runtime.NilValue:
		return "nil"
	case runtime.BoolValue:
		if v.Val {
			return "true"
		}
		return "false"
	case runtime.NumberValue:
		return strconv.FormatFloat(v.Val, 'f', -1, 64)
	case runtime.StringValue:
		return v.Val
	case *runtime.FunctionValue:
		return v.String()
	case *runtime.NativeFunctionValue:
		return v.String()
	case *runtime.ClassValue:
		return v.String()
	case *runtime.InstanceValue:
		return v.String()
	default:
		return "[" + value.Kind().String() + "]"
	}
}

// isTruthy maps any value to a boolean: nil and false are falsy,
// everything else (including 0 and "") is truthy.
func isTruthy(value runtime.Value) bool {
	switch v := value.(type) {
	case runtime.NilValue:
		return false
	case runtime.BoolValue:
		return v.Val
	default:
		return true
	}
}

// valuesEqual compares scalars by value and callables/instances by
// identity; values of different kinds are never equal.
func valuesEqual(a, b runtime.Value) bool {
	switch av := a.(type) {
	case runtime.NilValue:
		_, ok := b.(runtime.NilValue)
		return ok
	case runtime.NumberValue:
		bv, ok := b.(runtime.NumberValue)
		return ok && av.Val == bv.Val
	case runtime.StringValue:
		bv, ok := b.(runtime.StringValue)
		return ok && av.Val == bv.Val
	case runtime.BoolValue:
		bv, ok := b.(runtime.BoolValue)
		return ok && av.Val == bv.Val
	case *runtime.FunctionValue:
		bv, ok := b.(*runtime.FunctionValue)
		return ok && av == bv
	case *runtime.NativeFunctionValue:
		bv, ok := b.(*runtime.NativeFunctionValue)
		return ok && av == bv
	case *runtime.ClassValue:
		bv, ok := b.(*runtime.ClassValue)
		return ok && av == bv
	case *runtime.InstanceValue:
		bv, ok := b.(*runtime.InstanceValue)
		return ok && av == bv
	default:
		return false
	}
}
