package vm

// Decode builds the instruction starting at window[0]. The window is the
// lookahead at the program counter and may be shorter than
// MaxInstructionLen near the end of the heap. Decode has no side effects.
func Decode(window []uint16) (Instruction, error) {
	if len(window) == 0 {
		return Instruction{}, &DecodeError{Reason: DecodeEmpty}
	}

	raw := window[0]
	if raw >= uint16(opcodeCount) {
		return Instruction{}, &DecodeError{Reason: DecodeInvalid, Opcode: raw}
	}
	op := Opcode(raw)
	info := opcodes[op]
	if info.name == "" {
		return Instruction{}, &DecodeError{Reason: DecodeNotImplemented, Opcode: raw}
	}
	if len(window)-1 < info.arity {
		return Instruction{}, &DecodeError{Reason: DecodeParameterMissing, Opcode: raw}
	}

	in := Instruction{Op: op}
	copy(in.Args[:info.arity], window[1:1+info.arity])
	return in, nil
}

// Fetch returns the lookahead window at pc, clamped to the end of the heap.
func (m *Memory) Fetch(pc uint16) []uint16 {
	if int(pc) >= HeapSize {
		return nil
	}
	end := int(pc) + MaxInstructionLen
	if end > HeapSize {
		end = HeapSize
	}
	return m.Heap[pc:end]
}
