package vm

const (
	HeapSize      = 1 << 15 // 15-bit address space
	MaxLiteral    = HeapSize - 1
	RegisterCount = 8

	RegisterStart = HeapSize
	RegisterEnd   = RegisterStart + RegisterCount - 1
)

// IsRegister reports whether v addresses one of the registers.
func IsRegister(v uint16) bool {
	return v >= RegisterStart && v <= RegisterEnd
}

// IsLiteral reports whether v stands for itself.
func IsLiteral(v uint16) bool {
	return v <= MaxLiteral
}

// StackEntry is one value on the machine stack. Target is set for return
// addresses pushed by CALL and only used for display.
type StackEntry struct {
	Value  uint16
	Target uint16
	Call   bool
}

type Memory struct {
	Heap      [HeapSize]uint16
	Registers [RegisterCount]uint16
	Stack     []StackEntry
}

func NewMemory() *Memory {
	return &Memory{}
}

// Read resolves an operand: literals stand for themselves and register
// addresses yield the register content, following register to register
// aliases for at most RegisterCount hops.
func (m *Memory) Read(v uint16) (uint16, error) {
	addr := v
	for hops := 0; ; hops++ {
		switch {
		case IsLiteral(v):
			return v, nil
		case IsRegister(v):
			if hops == RegisterCount {
				return 0, &AccessError{Err: ErrRegisterCycle, Op: "read", Addr: addr}
			}
			v = m.Registers[v-RegisterStart]
		default:
			return 0, &AccessError{Err: ErrAddressingViolation, Op: "read", Addr: v}
		}
	}
}

// Write stores the resolved value into the register at addr. Literals are
// read only, so addr must be a register address.
func (m *Memory) Write(addr, value uint16) error {
	if !IsRegister(addr) {
		return &AccessError{Err: ErrAddressingViolation, Op: "write", Addr: addr, Value: value}
	}
	if IsRegister(value) {
		resolved, err := m.Read(value)
		if err != nil {
			return err
		}
		value = resolved
	}
	m.Registers[addr-RegisterStart] = value
	return nil
}

// MemRead reads the cell at addr without operand resolution.
func (m *Memory) MemRead(addr uint16) (uint16, error) {
	switch {
	case IsLiteral(addr):
		return m.Heap[addr], nil
	case IsRegister(addr):
		return m.Registers[addr-RegisterStart], nil
	}
	return 0, &AccessError{Err: ErrAddressingViolation, Op: "mem-read", Addr: addr}
}

// MemWrite stores value verbatim into the cell at addr.
func (m *Memory) MemWrite(addr, value uint16) error {
	switch {
	case IsLiteral(addr):
		m.Heap[addr] = value
	case IsRegister(addr):
		m.Registers[addr-RegisterStart] = value
	default:
		return &AccessError{Err: ErrAddressingViolation, Op: "mem-write", Addr: addr, Value: value}
	}
	return nil
}

func (m *Memory) Push(e StackEntry) {
	m.Stack = append(m.Stack, e)
}

func (m *Memory) Pop(op string) (StackEntry, error) {
	if len(m.Stack) == 0 {
		return StackEntry{}, &AccessError{Err: ErrStackUnderflow, Op: op}
	}
	e := m.Stack[len(m.Stack)-1]
	m.Stack = m.Stack[:len(m.Stack)-1]
	return e, nil
}

// Load copies program into the heap starting at address 0. Words beyond the
// heap are ignored and the number of words loaded is returned.
func (m *Memory) Load(program []uint16) int {
	return copy(m.Heap[:], program)
}

func (m *Memory) Clone() *Memory {
	c := &Memory{
		Heap:      m.Heap,
		Registers: m.Registers,
		Stack:     make([]StackEntry, len(m.Stack)),
	}
	copy(c.Stack, m.Stack)
	return c
}
