package asm

import (
	"fmt"
	"strings"

	"github.com/alecthomas/participle/v2/lexer"
)

type ErrorKind int

const (
	ErrorSyntax ErrorKind = iota
	ErrorAssemble
)

func (k ErrorKind) String() string {
	switch k {
	case ErrorSyntax:
		return "syntax error"
	case ErrorAssemble:
		return "assembly error"
	}
	return "unknown error"
}

// Error points at the offending spot of the source. Source is filled in by
// Assemble so the error can quote the surrounding lines.
type Error struct {
	Kind    ErrorKind
	Message string
	Pos     lexer.Position
	Source  string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename, e.Pos.Line, e.Pos.Column, e.Kind, e.Message)
}

// Format renders the error with the offending line and its neighbours,
// underlining the column it happened at.
func (e *Error) Format(colour bool) string {
	paint := func(code, s string) string {
		if !colour {
			return s
		}
		return "\x1b[" + code + "m" + s + "\x1b[0m"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s\n", paint("1;31", e.Kind.String()), e.Message)
	fmt.Fprintf(&b, "%s %s:%d:%d\n", paint("1;34", "-->"), e.Pos.Filename, e.Pos.Line, e.Pos.Column)

	lines := strings.Split(e.Source, "\n")
	if e.Pos.Line <= 0 || e.Pos.Line > len(lines) {
		return b.String()
	}
	n := e.Pos.Line
	if n > 1 {
		fmt.Fprintf(&b, "%4d | %s\n", n-1, lines[n-2])
	}
	fmt.Fprintf(&b, "%4d | %s\n", n, lines[n-1])
	column := e.Pos.Column
	if column < 1 {
		column = 1
	}
	fmt.Fprintf(&b, "     | %s%s\n", strings.Repeat(" ", column-1), paint("1;31", "^"))
	if n < len(lines) && lines[n] != "" {
		fmt.Fprintf(&b, "%4d | %s\n", n+1, lines[n])
	}
	return b.String()
}
