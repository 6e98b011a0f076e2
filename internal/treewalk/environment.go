package treewalk

import (
	"fmt"

	"github.com/NumSlower/ocl/internal/token"
	"github.com/NumSlower/ocl/internal/value"
)

// Environment is a chain of variable scopes, grounded on the teacher's
// interpreter/environment.go but holding value.Value instead of `any` so
// the tree-walking path shares the same value representation as the VM.
type Environment struct {
	values    map[string]value.Value
	enclosing *Environment
}

// NewEnvironment creates a root environment with no parent.
func NewEnvironment() *Environment {
	return &Environment{values: make(map[string]value.Value)}
}

// NewNestedEnvironment creates a child scope of enclosing.
func NewNestedEnvironment(enclosing *Environment) *Environment {
	return &Environment{values: make(map[string]value.Value), enclosing: enclosing}
}

// Define binds name to v in this scope, shadowing any outer binding of
// the same name.
func (e *Environment) Define(name string, v value.Value) {
	e.values[name] = v
}

// Get looks up name, walking outward through enclosing scopes.
func (e *Environment) Get(name token.Token) (value.Value, error) {
	for env := e; env != nil; env = env.enclosing {
		if v, ok := env.values[name.Lexeme]; ok {
			return v, nil
		}
	}
	return value.Null(), fmt.Errorf("undefined identifier '%s'", name.Lexeme)
}

// Assign updates the nearest existing binding of name, walking outward.
// It returns an error rather than creating a new binding if none exists
// (matching the teacher's environment.assign contract).
func (e *Environment) Assign(name token.Token, v value.Value) error {
	for env := e; env != nil; env = env.enclosing {
		if _, ok := env.values[name.Lexeme]; ok {
			env.values[name.Lexeme] = v
			return nil
		}
	}
	return fmt.Errorf("undefined identifier '%s'", name.Lexeme)
}
