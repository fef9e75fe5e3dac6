// Package runtime holds the Lox value model: scalars, callables
// (native functions, user functions, classes), and class instances,
// together with the lexical Environment they close over.
package runtime

import (
	"fmt"

	"lox/interpreter-go/pkg/ast"
)

// Kind identifies the runtime value category.
type Kind int

const (
	KindNumber Kind = iota
	KindString
	KindBool
	KindNil
	KindFunction
	KindNativeFunction
	KindClass
	KindInstance
)

func (k Kind) String() string {
	switch k {
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindBool:
		return "bool"
	case KindNil:
		return "nil"
	case KindFunction:
		return "function"
	case KindNativeFunction:
		return "native_function"
	case KindClass:
		return "class"
	case KindInstance:
		return "instance"
	default:
		return fmt.Sprintf("unknown_kind_%d", int(k))
	}
}

// Value is the shared behaviour for all runtime values.
type Value interface {
	Kind() Kind
}

// Callable is the closed contract shared by natives, functions, and
// classes. The interpreter dispatches calls with an exhaustive switch
// over the three concrete types; nothing else implements this.
type Callable interface {
	Value
	Arity() int
}

//-----------------------------------------------------------------------------
// Scalars
//-----------------------------------------------------------------------------

type NumberValue struct {
	Val float64
}

func (NumberValue) Kind() Kind { return KindNumber }

type StringValue struct {
	Val string
}

func (StringValue) Kind() Kind { return KindString }

type BoolValue struct {
	Val bool
}

func (BoolValue) Kind() Kind { return KindBool }

type NilValue struct{}

func (NilValue) Kind() Kind { return KindNil }

//-----------------------------------------------------------------------------
// Functions & natives
//-----------------------------------------------------------------------------

// NativeCallContext provides hooks for native functions.
type NativeCallContext struct {
	Env *Environment
}

type NativeFunc func(*NativeCallContext, []Value) (Value, error)

type NativeFunctionValue struct {
	Name   string
	NArity int
	Impl   NativeFunc
}

func (*NativeFunctionValue) Kind() Kind { return KindNativeFunction }

func (n *NativeFunctionValue) Arity() int { return n.NArity }

func (n *NativeFunctionValue) String() string { return "<native fn " + n.Name + ">" }

// FunctionValue pairs a function declaration with the environment live at
// its definition site. Equality is identity.
type FunctionValue struct {
	Declaration *ast.FunctionStatement
	Closure     *Environment
	// IsInitializer marks methods named init; their calls always yield
	// the receiver instead of the body's return value.
	IsInitializer bool
}

func (*FunctionValue) Kind() Kind { return KindFunction }

func (f *FunctionValue) Arity() int { return len(f.Declaration.Params) }

func (f *FunctionValue) String() string { return "<fn " + f.Declaration.Name.Lexeme + ">" }

// Bind produces a new function sharing this one's declaration, whose
// closure is extended with a scope fixing `this` to the instance. Used
// for both ordinary method access and super-method lookup.
func (f *FunctionValue) Bind(instance *InstanceValue) *FunctionValue {
	env := NewEnvironment(f.Closure)
	env.Define("this", instance)
	return &FunctionValue{
		Declaration:   f.Declaration,
		Closure:       env,
		IsInitializer: f.IsInitializer,
	}
}

//-----------------------------------------------------------------------------
// Classes & instances
//-----------------------------------------------------------------------------

// ClassValue is immutable after construction.
type ClassValue struct {
	Name       string
	Superclass *ClassValue
	Methods    map[string]*FunctionValue
}

func (*ClassValue) Kind() Kind { return KindClass }

// Arity of a class is the arity of its init method, 0 when none exists.
func (c *ClassValue) Arity() int {
	if init := c.FindMethod("init"); init != nil {
		return init.Arity()
	}
	return 0
}

func (c *ClassValue) String() string { return "<class " + c.Name + ">" }

// FindMethod looks the name up locally, then walks the superclass chain.
func (c *ClassValue) FindMethod(name string) *FunctionValue {
	if m, ok := c.Methods[name]; ok {
		return m
	}
	if c.Superclass != nil {
		return c.Superclass.FindMethod(name)
	}
	return nil
}

// InstanceValue holds a non-owning reference to its class and a freely
// extensible field map.
type InstanceValue struct {
	Class  *ClassValue
	Fields map[string]Value
}

func NewInstance(class *ClassValue) *InstanceValue {
	return &InstanceValue{
		Class:  class,
		Fields: make(map[string]Value),
	}
}

func (*InstanceValue) Kind() Kind { return KindInstance }

func (i *InstanceValue) String() string { return i.Class.Name + " instance" }

// Get resolves a property: fields shadow methods, and a method hit comes
// back bound to this instance. The boolean reports whether anything was
// found.
func (i *InstanceValue) Get(name string) (Value, bool) {
	if v, ok := i.Fields[name]; ok {
		return v, true
	}
	if m := i.Class.FindMethod(name); m != nil {
		return m.Bind(i), true
	}
	return nil, false
}

// Set upserts a field unconditionally.
func (i *InstanceValue) Set(name string, value Value) {
	i.Fields[name] = value
}
