package vm

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrAddressingViolation = errors.New("addressing violation")
	ErrRegisterCycle       = errors.New("register cycle")
	ErrStackUnderflow      = errors.New("stack underflow")
	ErrDivideByZero        = errors.New("divide by zero")

	// ErrInputClosed is returned when IN needs a byte and the input source
	// can never supply one again.
	ErrInputClosed = errors.New("input closed")
)

type DecodeReason int

const (
	DecodeEmpty DecodeReason = iota
	DecodeParameterMissing
	DecodeNotImplemented
	DecodeInvalid
)

func (r DecodeReason) String() string {
	switch r {
	case DecodeEmpty:
		return "empty"
	case DecodeParameterMissing:
		return "parameter missing"
	case DecodeNotImplemented:
		return "not implemented"
	case DecodeInvalid:
		return "invalid"
	}
	return "unknown"
}

// DecodeError is returned by Decode when the window at the program counter
// does not hold a well formed instruction.
type DecodeError struct {
	Reason DecodeReason
	Opcode uint16
}

func (e *DecodeError) Error() string {
	switch e.Reason {
	case DecodeNotImplemented, DecodeInvalid:
		return fmt.Sprintf("decode: %s opcode %d", e.Reason, e.Opcode)
	case DecodeParameterMissing:
		return fmt.Sprintf("decode: %s for opcode %d", e.Reason, e.Opcode)
	}
	return "decode: " + e.Reason.String()
}

// AccessError describes a failed memory or stack access.
type AccessError struct {
	Err   error
	Op    string
	Addr  uint16
	Value uint16
}

func (e *AccessError) Error() string {
	switch e.Op {
	case "write", "mem-write":
		return fmt.Sprintf("%s: %s %d at %d", e.Err, e.Op, e.Value, e.Addr)
	case "pop", "ret":
		return fmt.Sprintf("%s: %s on empty stack", e.Err, e.Op)
	}
	return fmt.Sprintf("%s: %s at %d", e.Err, e.Op, e.Addr)
}

func (e *AccessError) Unwrap() error { return e.Err }

// Trap is a fatal execution error. It records enough to reproduce the
// failure from a fresh load of the same image.
type Trap struct {
	PC          uint16
	Cycle       uint64
	Opcode      uint16
	Instruction Instruction
	// Decoded is false when the trap was raised by the decoder, in which case
	// Instruction is the zero value and Opcode is the raw word at PC.
	Decoded bool
	Err     error
}

func (t *Trap) Error() string {
	if t.Decoded {
		return fmt.Sprintf("trap at pc %d (cycle %d) executing %s: %v", t.PC, t.Cycle, t.Instruction, t.Err)
	}
	return fmt.Sprintf("trap at pc %d (cycle %d) opcode %d: %v", t.PC, t.Cycle, t.Opcode, t.Err)
}

func (t *Trap) Unwrap() error { return t.Err }

// FormatTrap renders a trap for a terminal. Colour escapes are left out when
// colour is false.
func FormatTrap(t *Trap, colour bool) string {
	paint := func(code, s string) string {
		if !colour {
			return s
		}
		return "\x1b[" + code + "m" + s + "\x1b[0m"
	}

	var b strings.Builder
	kind := "trap"
	var de *DecodeError
	if errors.As(t.Err, &de) {
		kind = "decode trap"
	}
	fmt.Fprintf(&b, "%s: %v\n", paint("1;31", kind), t.Err)
	fmt.Fprintf(&b, "%s pc %d, cycle %d\n", paint("1;34", "-->"), t.PC, t.Cycle)
	if t.Decoded {
		fmt.Fprintf(&b, "     | %s\n", t.Instruction)
		ops := t.Instruction.Operands()
		if len(ops) > 0 {
			raw := make([]string, len(ops))
			for i, op := range ops {
				raw[i] = fmt.Sprint(op)
			}
			fmt.Fprintf(&b, "     | opcode %d, operands [%s]\n", t.Opcode, strings.Join(raw, " "))
		} else {
			fmt.Fprintf(&b, "     | opcode %d\n", t.Opcode)
		}
	} else {
		fmt.Fprintf(&b, "     | opcode %d\n", t.Opcode)
	}
	return b.String()
}
