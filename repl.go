package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"hadydotai/synvm/asm"
	"hadydotai/synvm/vm"

	"github.com/alecthomas/repr"
	"github.com/chzyer/readline"
)

// lineReader is the part of *readline.Instance the debugger needs.
type lineReader interface {
	Readline() (string, error)
	SetPrompt(prompt string)
}

const (
	debugPrompt = "\033[32m⟩\033[0m "
	inputPrompt = "\033[33minput⟩\033[0m "
)

var errDetached = errors.New("debugger detached")

// Debugger is the interactive front end of a batch run. It stops the
// machine at breakpoints and after every step, and reads commands until
// told to carry on.
type Debugger struct {
	in          lineReader
	out         io.Writer
	breakpoints map[uint16]bool
	stepping    bool
	exit        func(code int)
}

func NewDebugger(in lineReader, out io.Writer, exit func(code int)) *Debugger {
	return &Debugger{
		in:          in,
		out:         out,
		breakpoints: make(map[uint16]bool),
		stepping:    true,
		exit:        exit,
	}
}

// completer implements readline.AutoCompleter
type completer struct{}

var debugCommands = []string{
	"step", "s",
	"run", "c",
	"break",
	"mem",
	"stack",
	"regs",
	"output",
	"state",
	"save",
	"load",
	"history",
	"quit", "exit", "q",
	"help", "h",
}

func (c completer) Do(line []rune, pos int) (newLine [][]rune, length int) {
	input := string(line[:pos])
	for _, cmd := range debugCommands {
		if strings.HasPrefix(cmd, input) {
			newLine = append(newLine, []rune(cmd[len(input):]))
		}
	}
	return newLine, len(input)
}

// InputSource reads program input through the debugger's prompt, so IN
// never fights the command prompt for the terminal.
func (d *Debugger) InputSource() func() (string, error) {
	return func() (string, error) {
		d.in.SetPrompt(inputPrompt)
		defer d.in.SetPrompt(debugPrompt)
		line, err := d.in.Readline()
		if err != nil {
			return "", io.EOF
		}
		return line + "\n", nil
	}
}

func (d *Debugger) ShouldBreak(m *vm.VM) bool {
	return d.stepping || d.breakpoints[m.PC]
}

func (d *Debugger) Interrupt(m *vm.VM) error {
	d.stepping = false
	d.printLocation(m)
	for {
		line, err := d.in.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			continue
		}
		if err != nil {
			return errDetached
		}
		if d.command(m, strings.Fields(line)) {
			return nil
		}
	}
}

// command runs one debugger command and reports whether the machine should
// resume.
func (d *Debugger) command(m *vm.VM, args []string) bool {
	if len(args) == 0 {
		args = []string{"step"}
	}

	switch args[0] {
	case "help", "h":
		d.printHelp()

	case "step", "s", "n":
		d.stepping = true
		return true

	case "run", "c", "continue":
		return true

	case "break", "b":
		if len(args) < 2 {
			fmt.Fprintln(d.out, "Usage: break <addr>")
			return false
		}
		addr, ok := d.address(args[1])
		if !ok {
			return false
		}
		d.breakpoints[addr] = !d.breakpoints[addr]
		if d.breakpoints[addr] {
			fmt.Fprintf(d.out, "Breakpoint set at %d\n", addr)
		} else {
			delete(d.breakpoints, addr)
			fmt.Fprintf(d.out, "Breakpoint cleared at %d\n", addr)
		}

	case "mem", "m":
		if len(args) < 3 {
			fmt.Fprintln(d.out, "Usage: mem <start> <end>")
			return false
		}
		start, ok := d.address(args[1])
		if !ok {
			return false
		}
		end, ok := d.address(args[2])
		if !ok {
			return false
		}
		d.printMemory(m, start, end)

	case "stack":
		d.printStack(m)

	case "regs", "r":
		fmt.Fprintln(d.out, m.Registers())

	case "output", "o":
		fmt.Fprint(d.out, m.OutputString())
		if len(m.Output) > 0 && m.Output[len(m.Output)-1] != '\n' {
			fmt.Fprintln(d.out)
		}

	case "state":
		fmt.Fprintln(d.out, repr.String(summarize(m), repr.Indent("  "), repr.OmitEmpty(false)))

	case "save":
		m.SaveState()
		fmt.Fprintf(d.out, "State saved at pc %d, cycle %d\n", m.PC, m.Cycle)

	case "load":
		if !m.LoadState() {
			fmt.Fprintln(d.out, "\033[31mNothing saved yet\033[0m")
			return false
		}
		fmt.Fprintf(d.out, "State loaded at pc %d, cycle %d\n", m.PC, m.Cycle)
		d.printLocation(m)

	case "history":
		var err error
		if len(args) > 1 {
			err = vm.FileHistory{Path: args[1]}.Save(string(m.History))
		} else {
			err = m.WriteHistory()
		}
		if err != nil {
			fmt.Fprintf(d.out, "\033[31m%v\033[0m\n", err)
			return false
		}
		fmt.Fprintf(d.out, "History written (%d bytes)\n", len(m.History))

	case "quit", "exit", "q":
		fmt.Fprintln(d.out, "\033[32mGoodbye!\033[0m")
		d.exit(0)
		return true

	default:
		fmt.Fprintf(d.out, "\033[31mUnknown command: %s\033[0m\n", args[0])
	}
	return false
}

func (d *Debugger) address(s string) (uint16, bool) {
	v, err := asm.ParseNumber(s)
	if err != nil {
		fmt.Fprintf(d.out, "\033[31mInvalid address: %s\033[0m\n", s)
		return 0, false
	}
	return v, true
}

func (d *Debugger) printLocation(m *vm.VM) {
	if m.Halted {
		fmt.Fprintf(d.out, "\033[31mProgram halted\033[0m at \033[1;35mPC: %d\033[0m after %d cycles\n", m.PC, m.Cycle)
		return
	}
	in, err := m.Next()
	if err != nil {
		fmt.Fprintf(d.out, "\033[1;35mPC: %d\033[0m (\033[31m%v\033[0m)\n", m.PC, err)
		return
	}
	fmt.Fprintf(d.out, "\033[1;35mPC: %d\033[0m (\033[1;33mInstruction: %s\033[0m)\n", m.PC, in)
	fmt.Fprintf(d.out, "\033[1;36mRegisters:\033[0m %s\n", m.Registers())
}

func (d *Debugger) printMemory(m *vm.VM, start, end uint16) {
	for addr := uint32(start); addr < uint32(end); addr++ {
		v, err := m.Memory.MemRead(uint16(addr))
		if err != nil {
			fmt.Fprintf(d.out, "\033[31m%v\033[0m\n", err)
			return
		}
		fmt.Fprintf(d.out, "%5d: %5d\n", addr, v)
	}
}

func (d *Debugger) printStack(m *vm.VM) {
	stack := m.Memory.Stack
	if len(stack) == 0 {
		fmt.Fprintln(d.out, "Stack: []")
		return
	}
	fmt.Fprintln(d.out, "Stack:")
	for i := len(stack) - 1; i >= 0; i-- {
		e := stack[i]
		if e.Call {
			fmt.Fprintf(d.out, "  %5d  (return from call to %d)\n", e.Value, e.Target)
		} else {
			fmt.Fprintf(d.out, "  %5d\n", e.Value)
		}
	}
}

// machineState is what the state command prints. The heap is left out.
type machineState struct {
	PC         uint16
	Cycle      uint64
	Halted     bool
	Registers  [vm.RegisterCount]uint16
	StackDepth int
	Input      string
	History    string
	Saved      bool
}

func summarize(m *vm.VM) machineState {
	return machineState{
		PC:         m.PC,
		Cycle:      m.Cycle,
		Halted:     m.Halted,
		Registers:  m.Memory.Registers,
		StackDepth: len(m.Memory.Stack),
		Input:      string(m.Input),
		History:    string(m.History),
		Saved:      m.Saved() != nil,
	}
}

func (d *Debugger) printHelp() {
	help := `
Available Commands:
  step, s, n       Execute next instruction (an empty line does the same)
  run, c           Run until the next breakpoint or halt
  break <addr>     Toggle a breakpoint at an address
  mem <from> <to>  Dump memory in [from, to)
  stack            Show the stack, top first
  regs, r          Show the registers
  output, o        Show everything the program printed
  state            Show a summary of the machine state
  save             Save the machine state
  load             Restore the saved machine state
  history [file]   Write the input history
  help, h          Show this help message
  quit, exit, q    Exit immediately

Tips:
  - Addresses accept decimal or 0x hex
  - Use Tab for command completion
  - Use Up/Down arrows for command history
`
	fmt.Fprintln(d.out, help)
}
