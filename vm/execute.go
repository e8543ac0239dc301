package vm

import (
	"errors"

	"hadydotai/synvm/logging"
)

// errRestored aborts an instruction whose wait for input ended with the
// whole machine state replaced by a snapshot.
var errRestored = errors.New("state restored while waiting for input")

// execute applies one instruction. The program counter is only moved once
// every other effect has succeeded.
func (vm *VM) execute(in Instruction) error {
	m := vm.Memory
	a, b, c := in.Args[0], in.Args[1], in.Args[2]
	next := vm.PC + in.Len()

	switch in.Op {
	case OpHalt:
		vm.Halted = true
		return nil

	case OpSet:
		if err := m.Write(a, b); err != nil {
			return err
		}

	case OpPush:
		v, err := m.Read(a)
		if err != nil {
			return err
		}
		m.Push(StackEntry{Value: v})

	case OpPop:
		if !IsRegister(a) {
			return &AccessError{Err: ErrAddressingViolation, Op: "write", Addr: a}
		}
		e, err := m.Pop("pop")
		if err != nil {
			return err
		}
		if err := m.Write(a, e.Value); err != nil {
			return err
		}

	case OpEq, OpGt:
		x, y, err := vm.readPair(b, c)
		if err != nil {
			return err
		}
		var result uint16
		if (in.Op == OpEq && x == y) || (in.Op == OpGt && x > y) {
			result = 1
		}
		if err := m.Write(a, result); err != nil {
			return err
		}

	case OpJmp:
		target, err := m.Read(a)
		if err != nil {
			return err
		}
		next = target

	case OpJt, OpJf:
		cond, target, err := vm.readPair(a, b)
		if err != nil {
			return err
		}
		if (in.Op == OpJt && cond != 0) || (in.Op == OpJf && cond == 0) {
			next = target
		}

	case OpAdd, OpMult, OpMod, OpAnd, OpOr:
		x, y, err := vm.readPair(b, c)
		if err != nil {
			return err
		}
		var result uint32
		switch in.Op {
		case OpAdd:
			result = (uint32(x) + uint32(y)) % HeapSize
		case OpMult:
			result = (uint32(x) * uint32(y)) % HeapSize
		case OpMod:
			if y == 0 {
				return &AccessError{Err: ErrDivideByZero, Op: "mod", Addr: c}
			}
			result = uint32(x % y)
		case OpAnd:
			result = uint32(x & y)
		case OpOr:
			result = uint32(x | y)
		}
		if err := m.Write(a, uint16(result)); err != nil {
			return err
		}

	case OpNot:
		v, err := m.Read(b)
		if err != nil {
			return err
		}
		if err := m.Write(a, ^v&MaxLiteral); err != nil {
			return err
		}

	case OpRmem:
		addr, err := m.Read(b)
		if err != nil {
			return err
		}
		v, err := m.MemRead(addr)
		if err != nil {
			return err
		}
		if err := m.Write(a, v); err != nil {
			return err
		}

	case OpWmem:
		addr, v, err := vm.readPair(a, b)
		if err != nil {
			return err
		}
		if err := m.MemWrite(addr, v); err != nil {
			return err
		}

	case OpCall:
		target, err := m.Read(a)
		if err != nil {
			return err
		}
		m.Push(StackEntry{Value: next, Target: target, Call: true})
		next = target

	case OpRet:
		e, err := m.Pop("ret")
		if err != nil {
			return err
		}
		next = e.Value

	case OpOut:
		v, err := m.Read(a)
		if err != nil {
			return err
		}
		vm.Output = append(vm.Output, byte(v))
		if vm.config.Output != nil && !vm.streamFailed {
			if _, err := vm.config.Output.Write([]byte{byte(v)}); err != nil {
				vm.streamFailed = true
				logging.LogErr(err, "Output stream failed, output is only buffered from now on", "pc", vm.PC)
			}
		}

	case OpIn:
		if !IsRegister(a) {
			return &AccessError{Err: ErrAddressingViolation, Op: "write", Addr: a}
		}
		ch, err := vm.readInput()
		if err != nil {
			return err
		}
		if err := m.Write(a, uint16(ch)); err != nil {
			return err
		}

	case OpNoop:

	default:
		return &DecodeError{Reason: DecodeInvalid, Opcode: uint16(in.Op)}
	}

	vm.PC = next
	return nil
}

func (vm *VM) readPair(x, y uint16) (uint16, uint16, error) {
	a, err := vm.Memory.Read(x)
	if err != nil {
		return 0, 0, err
	}
	b, err := vm.Memory.Read(y)
	if err != nil {
		return 0, 0, err
	}
	return a, b, nil
}
