package vm

import (
	"fmt"
	"strings"
)

type Opcode uint16

const (
	OpHalt Opcode = iota
	OpSet
	OpPush
	OpPop
	OpEq
	OpGt
	OpJmp
	OpJt
	OpJf
	OpAdd
	OpMult
	OpMod
	OpAnd
	OpOr
	OpNot
	OpRmem
	OpWmem
	OpCall
	OpRet
	OpOut
	OpIn
	OpNoop

	opcodeCount
)

// MaxInstructionLen is the longest encoding in words, opcode included.
const MaxInstructionLen = 4

type opcodeInfo struct {
	name  string
	arity int
}

// opcodes is indexed by Opcode. An entry with an empty name is reserved and
// decodes as not implemented.
var opcodes = [opcodeCount]opcodeInfo{
	OpHalt: {"HALT", 0},
	OpSet:  {"SET", 2},
	OpPush: {"PUSH", 1},
	OpPop:  {"POP", 1},
	OpEq:   {"EQ", 3},
	OpGt:   {"GT", 3},
	OpJmp:  {"JMP", 1},
	OpJt:   {"JT", 2},
	OpJf:   {"JF", 2},
	OpAdd:  {"ADD", 3},
	OpMult: {"MULT", 3},
	OpMod:  {"MOD", 3},
	OpAnd:  {"AND", 3},
	OpOr:   {"OR", 3},
	OpNot:  {"NOT", 2},
	OpRmem: {"RMEM", 2},
	OpWmem: {"WMEM", 2},
	OpCall: {"CALL", 1},
	OpRet:  {"RET", 0},
	OpOut:  {"OUT", 1},
	OpIn:   {"IN", 1},
	OpNoop: {"NOOP", 0},
}

func (op Opcode) String() string {
	if op < opcodeCount && opcodes[op].name != "" {
		return opcodes[op].name
	}
	return fmt.Sprintf("OP(%d)", uint16(op))
}

// Arity is the number of operands op takes.
func (op Opcode) Arity() int {
	if op < opcodeCount {
		return opcodes[op].arity
	}
	return 0
}

// LookupOpcode finds an opcode by mnemonic, ignoring case.
func LookupOpcode(name string) (Opcode, bool) {
	for i, info := range opcodes {
		if info.name != "" && strings.EqualFold(info.name, name) {
			return Opcode(i), true
		}
	}
	return 0, false
}

// Instruction is one decoded operation. Only the first Op.Arity() entries
// of Args are meaningful.
type Instruction struct {
	Op   Opcode
	Args [MaxInstructionLen - 1]uint16
}

func NewInstruction(op Opcode, args ...uint16) Instruction {
	in := Instruction{Op: op}
	copy(in.Args[:op.Arity()], args)
	return in
}

// Len is the encoded length in words.
func (in Instruction) Len() uint16 {
	return uint16(1 + in.Op.Arity())
}

func (in Instruction) Operands() []uint16 {
	return in.Args[:in.Op.Arity()]
}

// Words re-encodes the instruction.
func (in Instruction) Words() []uint16 {
	return append([]uint16{uint16(in.Op)}, in.Operands()...)
}

func (in Instruction) String() string {
	var b strings.Builder
	b.WriteString(in.Op.String())
	for i, arg := range in.Operands() {
		if i == 0 {
			b.WriteByte(' ')
		} else {
			b.WriteString(", ")
		}
		b.WriteString(FormatOperand(arg))
	}
	return b.String()
}

// FormatOperand renders register addresses as r0..r7 and everything else as
// a decimal number.
func FormatOperand(v uint16) string {
	if IsRegister(v) {
		return fmt.Sprintf("r%d", v-RegisterStart)
	}
	return fmt.Sprint(v)
}
