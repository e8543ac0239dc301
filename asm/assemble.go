// Package asm translates between a small textual assembly language and
// program images for the vm package.
//
// A line is an optional "label:" followed by an optional statement:
//
//	loop: add r0, r0, 1   # comments run to the end of the line
//	      jt r0, loop
//	msg:  data "hello", 10
//
// Operands are registers r0..r7, decimal or 0x numbers, character literals,
// or labels. The data pseudo-op emits numbers, characters and every byte of
// a string as one word each.
package asm

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"hadydotai/synvm/vm"

	"github.com/alecthomas/participle/v2/lexer"
)

// ParseNumber reads a 16-bit number written in decimal or with a 0x prefix
// in hex. Leading zeros are decimal.
func ParseNumber(s string) (uint16, error) {
	base := 10
	if len(s) > 2 && (s[:2] == "0x" || s[:2] == "0X") {
		s, base = s[2:], 16
	}
	v, err := strconv.ParseUint(s, base, 16)
	if err != nil {
		return 0, err
	}
	return uint16(v), nil
}

func errorAt(pos lexer.Position, format string, args ...any) error {
	return &Error{Kind: ErrorAssemble, Message: fmt.Sprintf(format, args...), Pos: pos}
}

// Assemble parses and encodes source into program words starting at
// address 0.
func Assemble(filename, source string) ([]uint16, error) {
	src, err := Parse(filename, source)
	if err != nil {
		return nil, err
	}
	words, err := Encode(src)
	var aerr *Error
	if errors.As(err, &aerr) {
		aerr.Source = source
	}
	return words, err
}

// Encode turns a parsed source into program words. Labels are resolved in a
// first pass so they may be used before they are defined.
func Encode(src *Source) ([]uint16, error) {
	labels := map[string]uint16{}
	var addr int
	for _, line := range src.Lines {
		if line.Label != nil {
			name := *line.Label
			if _, dup := labels[name]; dup {
				return nil, errorAt(line.Pos, "label %q defined twice", name)
			}
			labels[name] = uint16(addr)
		}
		n, err := lineSize(line)
		if err != nil {
			return nil, err
		}
		addr += n
		if addr > vm.HeapSize {
			return nil, errorAt(line.Pos, "program does not fit in %d words", vm.HeapSize)
		}
	}

	words := make([]uint16, 0, addr)
	for _, line := range src.Lines {
		if line.Mnemonic == nil {
			continue
		}
		encoded, err := encodeLine(line, labels)
		if err != nil {
			return nil, err
		}
		words = append(words, encoded...)
	}
	return words, nil
}

func lineSize(line *Line) (int, error) {
	if line.Mnemonic == nil {
		return 0, nil
	}
	if strings.EqualFold(*line.Mnemonic, "data") {
		n := 0
		for _, op := range line.Operands {
			if op.String != nil {
				s, err := strconv.Unquote(*op.String)
				if err != nil {
					return 0, errorAt(op.Pos, "bad string %s", *op.String)
				}
				n += len(s)
				continue
			}
			n++
		}
		return n, nil
	}
	op, ok := vm.LookupOpcode(*line.Mnemonic)
	if !ok {
		return 0, errorAt(line.Pos, "unknown mnemonic %q", *line.Mnemonic)
	}
	return 1 + op.Arity(), nil
}

func encodeLine(line *Line, labels map[string]uint16) ([]uint16, error) {
	if strings.EqualFold(*line.Mnemonic, "data") {
		var words []uint16
		for _, operand := range line.Operands {
			if operand.String != nil {
				s, _ := strconv.Unquote(*operand.String)
				for i := 0; i < len(s); i++ {
					words = append(words, uint16(s[i]))
				}
				continue
			}
			v, err := operandValue(operand, labels)
			if err != nil {
				return nil, err
			}
			words = append(words, v)
		}
		return words, nil
	}

	op, _ := vm.LookupOpcode(*line.Mnemonic)
	if len(line.Operands) != op.Arity() {
		return nil, errorAt(line.Pos,
			"%s takes %d operands, got %d", op, op.Arity(), len(line.Operands))
	}
	words := []uint16{uint16(op)}
	for _, operand := range line.Operands {
		if operand.String != nil {
			return nil, errorAt(operand.Pos, "string operand only allowed in data")
		}
		v, err := operandValue(operand, labels)
		if err != nil {
			return nil, err
		}
		words = append(words, v)
	}
	return words, nil
}

func operandValue(o *Operand, labels map[string]uint16) (uint16, error) {
	switch {
	case o.Register != nil:
		n := (*o.Register)[1] - '0'
		return vm.RegisterStart + uint16(n), nil

	case o.Number != nil:
		v, err := ParseNumber(*o.Number)
		if err != nil {
			return 0, errorAt(o.Pos, "number %s out of range", *o.Number)
		}
		return v, nil

	case o.Char != nil:
		s, err := strconv.Unquote(*o.Char)
		if err != nil || len(s) != 1 {
			return 0, errorAt(o.Pos, "bad character %s", *o.Char)
		}
		return uint16(s[0]), nil

	case o.Label != nil:
		v, ok := labels[*o.Label]
		if !ok {
			return 0, errorAt(o.Pos, "undefined label %q", *o.Label)
		}
		return v, nil
	}
	return 0, errorAt(o.Pos, "empty operand")
}
