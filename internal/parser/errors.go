package parser

import "fmt"

// SyntaxError is the error type for all parse-stage failures. It mirrors
// the diagnostic recorded on the shared collector so callers that only
// want the parsed tree can still treat parsing as returning errors in
// the usual Go fashion.
type SyntaxError struct {
	Line    int32
	Column  int
	Message string
}

func (e SyntaxError) Error() string {
	return fmt.Sprintf("💥 Syntax error: line %d, column %d - %s", e.Line, e.Column, e.Message)
}
