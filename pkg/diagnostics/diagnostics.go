// Package diagnostics defines positioned diagnostics shared by the
// scanner, parser, and resolver.
package diagnostics

import (
	"fmt"
	"strings"
)

// Diagnostic code constants.
const (
	ELex     = "E_LEX"
	EParse   = "E_PARSE"
	EResolve = "E_RESOLVE"
)

// Diagnostic represents a single static error found in a Lox program.
type Diagnostic struct {
	Code    string
	Message string
	Line    int
	Column  int
}

// Make creates a new Diagnostic.
func Make(code, message string, line, column int) Diagnostic {
	return Diagnostic{
		Code:    code,
		Message: message,
		Line:    line,
		Column:  column,
	}
}

func (d Diagnostic) Error() string {
	return fmt.Sprintf("[line %d:%d] %s", d.Line, d.Column, d.Message)
}

// Format renders a list of diagnostics one per line.
func Format(diags []Diagnostic) string {
	lines := make([]string, 0, len(diags))
	for _, d := range diags {
		lines = append(lines, d.Error())
	}
	return strings.Join(lines, "\n")
}
