package asm

import (
	"errors"
	"fmt"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

var (
	asmLexer = lexer.MustSimple([]lexer.SimpleRule{
		{Name: "comment", Pattern: `(?:#|//)[^\n]*`},
		{Name: "whitespace", Pattern: `[ \t\r]+`},
		{Name: "EOL", Pattern: `\n`},
		{Name: "String", Pattern: `"(?:[^"\\]|\\.)*"`},
		{Name: "Char", Pattern: `'(?:[^'\\]|\\.)+'`},
		{Name: "Register", Pattern: `\b[rR][0-7]\b`},
		{Name: "Int", Pattern: `0[xX][0-9a-fA-F]+|\d+`},
		{Name: "Ident", Pattern: `[a-zA-Z_][a-zA-Z0-9_]*`},
		{Name: "Punct", Pattern: `[:,]`},
	})

	asmParser = participle.MustBuild[Source](
		participle.Lexer(asmLexer),
		participle.UseLookahead(2),
	)
)

// Source is a parsed assembly file.
type Source struct {
	Lines []*Line `@@*`
}

// Line holds an optional label and an optional statement. Blank and
// comment-only lines parse to a Line with neither.
type Line struct {
	Pos      lexer.Position
	Label    *string    `( @Ident ":" )?`
	Mnemonic *string    `( @Ident`
	Operands []*Operand `  ( @@ ( ","? @@ )* )? )? EOL`
}

type Operand struct {
	Pos      lexer.Position
	Register *string `  @Register`
	Number   *string `| @Int`
	Char     *string `| @Char`
	String   *string `| @String`
	Label    *string `| @Ident`
}

// Text returns the operand as written.
func (o *Operand) Text() string {
	switch {
	case o.Register != nil:
		return *o.Register
	case o.Number != nil:
		return *o.Number
	case o.Char != nil:
		return *o.Char
	case o.String != nil:
		return *o.String
	case o.Label != nil:
		return *o.Label
	}
	return "?"
}

// Parse parses assembly source. A final newline is added when missing.
func Parse(filename, source string) (*Source, error) {
	if !strings.HasSuffix(source, "\n") {
		source += "\n"
	}
	src, err := asmParser.ParseString(filename, source)
	if err != nil {
		var perr participle.Error
		if errors.As(err, &perr) {
			return nil, &Error{Kind: ErrorSyntax, Message: perr.Message(), Pos: perr.Position(), Source: source}
		}
		return nil, fmt.Errorf("parse error: %w", err)
	}
	return src, nil
}
