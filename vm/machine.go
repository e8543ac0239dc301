package vm

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"hadydotai/synvm/logging"
)

// Config holds the runtime options of a VM.
type Config struct {
	// EchoInput mirrors every character supplied through a directive into
	// the output buffer, the way a terminal would echo it.
	EchoInput bool
	// PauseAt lists addresses at which a live VM pauses itself once the
	// program counter lands on them.
	PauseAt []uint16
	// History is where write-history directives persist the input history.
	// A nil History makes those directives fail.
	History HistoryStore
	// Output, when set, receives every byte written by OUT as it happens.
	// The output buffer is filled either way.
	Output io.Writer
}

// VM is the complete mutable state of one machine. It is owned by a single
// goroutine; observers only ever see copies taken with Capture.
type VM struct {
	Halted   bool
	Paused   bool
	StepOnce bool
	Cycle    uint64
	PC       uint16
	Memory   *Memory

	Output  []byte
	Input   []byte
	History []byte

	config  Config
	pauseAt map[uint16]bool
	saved   *Snapshot
	// restores counts Restore calls so an instruction blocked on input can
	// tell that the state it started from is gone.
	restores uint64

	// refill is called by IN when Input is empty. It must either queue more
	// input or return an error.
	refill func() error
	// streamFailed stops writes to Config.Output after the first error.
	streamFailed bool

	sub *Subscriber
}

func New(config Config) *VM {
	vm := &VM{
		Memory:  NewMemory(),
		config:  config,
		pauseAt: make(map[uint16]bool),
	}
	for _, addr := range config.PauseAt {
		vm.pauseAt[addr] = true
	}
	vm.refill = func() error { return ErrInputClosed }
	return vm
}

// Load copies a program image into the heap starting at address 0.
func (vm *VM) Load(program []uint16) {
	n := vm.Memory.Load(program)
	logging.Log(logging.LogLevelDebug, "Program loaded", "words", n)
}

// Preload queues previously persisted input so that it is consumed before
// any fresh input. The text is recorded in the history as well, so a later
// write keeps it.
func (vm *VM) Preload(text string) {
	vm.Input = append(vm.Input, text...)
	vm.History = append(vm.History, text...)
}

// SetInputReader makes IN read a line at a time from r when the input buffer
// runs dry. Lines read this way are recorded in the history.
func (vm *VM) SetInputReader(r io.Reader) {
	br := bufio.NewReader(r)
	vm.SetInputSource(func() (string, error) {
		line, err := br.ReadString('\n')
		if line != "" {
			return line, nil
		}
		return "", err
	})
}

// SetInputSource makes IN call next for more input when the input buffer
// runs dry. io.EOF from next means no input will ever come.
func (vm *VM) SetInputSource(next func() (string, error)) {
	vm.refill = func() error {
		text, err := next()
		if text != "" {
			vm.Input = append(vm.Input, text...)
			vm.History = append(vm.History, text...)
			return nil
		}
		if err == nil {
			return nil
		}
		if errors.Is(err, io.EOF) {
			return ErrInputClosed
		}
		return fmt.Errorf("reading input: %w", err)
	}
}

// enqueueInput is how directive supplied input reaches the machine.
func (vm *VM) enqueueInput(text string) {
	for i := 0; i < len(text); i++ {
		c := text[i]
		if vm.config.EchoInput {
			vm.Output = append(vm.Output, c)
		}
		vm.Input = append(vm.Input, c)
		vm.History = append(vm.History, c)
	}
}

func (vm *VM) readInput() (byte, error) {
	restores := vm.restores
	for len(vm.Input) == 0 {
		if err := vm.refill(); err != nil {
			return 0, err
		}
		if vm.restores != restores {
			return 0, errRestored
		}
	}
	c := vm.Input[0]
	vm.Input = vm.Input[1:]
	return c, nil
}

// Next decodes the instruction at the program counter without executing it.
func (vm *VM) Next() (Instruction, error) {
	return Decode(vm.Memory.Fetch(vm.PC))
}

// Step runs a single fetch, decode and execute cycle. Any error is a *Trap;
// the program counter still points at the failing instruction.
func (vm *VM) Step() error {
	pc := vm.PC
	window := vm.Memory.Fetch(pc)
	in, err := Decode(window)
	if err != nil {
		trap := &Trap{PC: pc, Cycle: vm.Cycle, Err: err}
		if len(window) > 0 {
			trap.Opcode = window[0]
		}
		return trap
	}
	if err := vm.execute(in); err != nil {
		if errors.Is(err, errRestored) {
			return nil
		}
		return &Trap{PC: pc, Cycle: vm.Cycle, Opcode: uint16(in.Op), Instruction: in, Decoded: true, Err: err}
	}
	vm.Cycle++
	return nil
}

// OutputString returns the accumulated output.
func (vm *VM) OutputString() string {
	return string(vm.Output)
}

// Registers formats the register file for display.
func (vm *VM) Registers() string {
	var b strings.Builder
	b.WriteByte('[')
	for i, r := range vm.Memory.Registers {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "r%d=%d", i, r)
	}
	b.WriteByte(']')
	return b.String()
}
