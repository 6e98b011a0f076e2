package treewalk

import "fmt"

// RuntimeError is the tree-walking evaluator's error type, grounded on
// the teacher's interpreter/error.go RuntimeError.
type RuntimeError struct {
	Line    int32
	Column  int
	Message string
}

func (e RuntimeError) Error() string {
	return fmt.Sprintf("💥 Runtime error: line %d, column %d - %s", e.Line, e.Column, e.Message)
}
