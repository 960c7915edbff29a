// Package diagnostics carries positional, coded errors between pipeline
// stages. Codes are grouped by stage: Lxxx lexer, Pxxx parser, Sxxx semantic
// (lowering/registration), Rxxx runtime-shaped.
package diagnostics

import (
	"fmt"

	"github.com/mirralang/mirra/internal/token"
)

type Error struct {
	Code    string
	Message string
	File    string
	Line    int
	Column  int
}

func NewError(code string, tok token.Token, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Line:    tok.Line,
		Column:  tok.Column,
	}
}

func NewErrorf(code string, tok token.Token, format string, args ...interface{}) *Error {
	return NewError(code, tok, fmt.Sprintf(format, args...))
}

func (e *Error) Error() string {
	file := e.File
	if file == "" {
		file = "<input>"
	}
	return fmt.Sprintf("%s:%d:%d [%s] %s", file, e.Line, e.Column, e.Code, e.Message)
}
