package runtime

import (
	"fmt"
	"sort"
)

// Environment provides lexical scoping for Lox runtime values.
//
// Environments are shared, not owned: any number of closures may hold a
// reference to the same scope, and mutations through one reference are
// visible through all of them. Parent links form a forest; a scope never
// outlives the chain above it while something still references it.
type Environment struct {
	values map[string]Value
	parent *Environment
}

// NewEnvironment creates a new environment, optionally nested under a parent.
func NewEnvironment(parent *Environment) *Environment {
	return &Environment{
		values: make(map[string]Value),
		parent: parent,
	}
}

// Parent exposes the lexical parent (nil when global).
func (e *Environment) Parent() *Environment {
	return e.parent
}

// Define inserts or shadows a binding in the current scope. Redeclaration
// is allowed and overwrites.
func (e *Environment) Define(name string, value Value) {
	e.values[name] = value
}

// Get retrieves a binding, searching outward through the scope chain.
func (e *Environment) Get(name string) (Value, error) {
	if v, ok := e.values[name]; ok {
		return v, nil
	}
	if e.parent != nil {
		return e.parent.Get(name)
	}
	return nil, fmt.Errorf("Undefined variable '%s'.", name)
}

// GetAt reads a binding from the scope exactly distance hops up the
// chain, without falling back to enclosing scopes. Distance 0 is the
// current scope. The resolver guarantees both the chain length and the
// presence of the name.
func (e *Environment) GetAt(distance int, name string) (Value, error) {
	scope := e.ancestor(distance)
	if v, ok := scope.values[name]; ok {
		return v, nil
	}
	return nil, fmt.Errorf("Undefined variable '%s'.", name)
}

// Assign updates an existing binding in the first scope where it appears.
func (e *Environment) Assign(name string, value Value) error {
	if _, ok := e.values[name]; ok {
		e.values[name] = value
		return nil
	}
	if e.parent != nil {
		return e.parent.Assign(name, value)
	}
	return fmt.Errorf("Undefined variable '%s'.", name)
}

// AssignAt overwrites the binding in the scope exactly distance hops up.
func (e *Environment) AssignAt(distance int, name string, value Value) error {
	scope := e.ancestor(distance)
	if _, ok := scope.values[name]; ok {
		scope.values[name] = value
		return nil
	}
	return fmt.Errorf("Undefined variable '%s'.", name)
}

func (e *Environment) ancestor(distance int) *Environment {
	scope := e
	for i := 0; i < distance; i++ {
		scope = scope.parent
	}
	return scope
}

// Keys returns the bindings in sorted order (useful for determinism in tests).
func (e *Environment) Keys() []string {
	keys := make([]string, 0, len(e.values))
	for k := range e.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
