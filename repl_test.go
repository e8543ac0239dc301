package main

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"hadydotai/synvm/asm"
	"hadydotai/synvm/vm"

	"github.com/stretchr/testify/require"
)

type scriptReader struct {
	lines   []string
	prompt  string
	prompts []string
}

func (r *scriptReader) Readline() (string, error) {
	if len(r.lines) == 0 {
		return "", io.EOF
	}
	line := r.lines[0]
	r.lines = r.lines[1:]
	r.prompts = append(r.prompts, r.prompt)
	return line, nil
}

func (r *scriptReader) SetPrompt(prompt string) {
	r.prompt = prompt
}

type debugSession struct {
	machine *vm.VM
	reader  *scriptReader
	out     bytes.Buffer
	exited  []int
	dbg     *Debugger
}

func newDebugSession(t *testing.T, source string, config vm.Config, script ...string) *debugSession {
	t.Helper()
	program, err := asm.Assemble("t.s", source)
	require.NoError(t, err)

	s := &debugSession{machine: vm.New(config), reader: &scriptReader{prompt: debugPrompt, lines: script}}
	s.machine.Load(program)
	s.dbg = NewDebugger(s.reader, &s.out, func(code int) { s.exited = append(s.exited, code) })
	s.machine.SetInputSource(s.dbg.InputSource())
	return s
}

func (s *debugSession) run() error {
	return s.machine.Run(s.dbg)
}

func TestDebuggerBreakpointsAndStepping(t *testing.T) {
	s := newDebugSession(t, "noop\nnoop\nout 'a'\nhalt", vm.Config{},
		"break 2", "run",
		"output", "",
		"run",
	)
	require.ErrorIs(t, s.run(), errDetached)

	out := s.out.String()
	require.Contains(t, out, "Breakpoint set at 2")
	require.Contains(t, out, "PC: 2")
	require.Contains(t, out, "Instruction: OUT 97")
	require.Contains(t, out, "PC: 4")
	require.Contains(t, out, "Program halted")
	require.Equal(t, "a", s.machine.OutputString())
	require.True(t, s.machine.Halted)
}

func TestDebuggerBreakToggles(t *testing.T) {
	s := newDebugSession(t, "noop\nnoop\nhalt", vm.Config{}, "break 1", "break 1", "run", "run")
	require.NoError(t, s.run())
	require.Contains(t, s.out.String(), "Breakpoint cleared at 1")
	require.NotContains(t, s.out.String(), "PC: 1")
}

func TestDebuggerAddressesAreDecimalOrHex(t *testing.T) {
	s := newDebugSession(t, "halt", vm.Config{}, "break 010", "break 0x10", "run", "run")
	require.NoError(t, s.run())
	require.Contains(t, s.out.String(), "Breakpoint set at 10\n")
	require.Contains(t, s.out.String(), "Breakpoint set at 16\n")
	require.True(t, s.dbg.breakpoints[10])
	require.False(t, s.dbg.breakpoints[8])
}

func TestDebuggerRejectsMalformedNumbers(t *testing.T) {
	s := newDebugSession(t, "noop\nhalt", vm.Config{},
		"break xyz", "mem 1", "mem 0 abc", "frob", "quit", "run",
	)
	require.NoError(t, s.run())

	out := s.out.String()
	require.Contains(t, out, "Invalid address: xyz")
	require.Contains(t, out, "Usage: mem <start> <end>")
	require.Contains(t, out, "Invalid address: abc")
	require.Contains(t, out, "Unknown command: frob")
	require.Equal(t, []int{0}, s.exited)
	require.Empty(t, s.dbg.breakpoints)
}

func TestDebuggerStackMemoryAndTimeTravel(t *testing.T) {
	s := newDebugSession(t, "push 7\nnoop\nnoop\nhalt", vm.Config{},
		"s",
		"stack", "save", "s",
		"load", "mem 0 2", "regs", "run",
		"load",
	)
	require.ErrorIs(t, s.run(), errDetached)

	out := s.out.String()
	require.Contains(t, out, "Stack:\n      7\n")
	require.Contains(t, out, "State saved at pc 2, cycle 1")
	require.Contains(t, out, "State loaded at pc 2, cycle 1")
	require.Contains(t, out, "    0:     2\n    1:     7\n")
	require.Contains(t, out, "[r0=0, r1=0")
	require.False(t, s.machine.Halted, "load after halt rewinds the machine")
	require.EqualValues(t, 2, s.machine.PC)
}

func TestDebuggerLoadWithoutSave(t *testing.T) {
	s := newDebugSession(t, "halt", vm.Config{}, "load", "run", "run")
	require.NoError(t, s.run())
	require.Contains(t, s.out.String(), "Nothing saved yet")
}

func TestDebuggerReadsInputThroughPrompt(t *testing.T) {
	s := newDebugSession(t, "in r0\nout r0\nhalt", vm.Config{}, "run", "look")
	require.ErrorIs(t, s.run(), errDetached)
	require.Equal(t, "l", s.machine.OutputString())
	require.Equal(t, "look\n", string(s.machine.History))
	require.Equal(t, []string{debugPrompt, inputPrompt}, s.reader.prompts)
	require.Equal(t, debugPrompt, s.reader.prompt)
}

func TestDebuggerInputEndsWithReader(t *testing.T) {
	s := newDebugSession(t, "in r0\nhalt", vm.Config{}, "run")
	require.ErrorIs(t, s.run(), vm.ErrInputClosed)
}

func TestDebuggerWritesHistory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.txt")
	other := filepath.Join(t.TempDir(), "other.txt")
	s := newDebugSession(t, "in r0\nhalt", vm.Config{History: vm.FileHistory{Path: path}},
		"run", "north", "history", "history "+other, "history /nonexistent/dir/file", "run",
	)
	require.NoError(t, s.run())

	for _, p := range []string{path, other} {
		data, err := os.ReadFile(p)
		require.NoError(t, err)
		require.Equal(t, "north\n", string(data))
	}
	require.Contains(t, s.out.String(), "History written (6 bytes)")
	require.Contains(t, s.out.String(), "failed to write history")
}

func TestDebuggerState(t *testing.T) {
	s := newDebugSession(t, "set r3 9\nhalt", vm.Config{}, "s", "state", "run", "run")
	require.NoError(t, s.run())
	out := s.out.String()
	require.Contains(t, out, "PC: 3")
	require.Contains(t, out, "StackDepth: 0")
	require.Contains(t, out, "Cycle: 1")
}

func TestCompleter(t *testing.T) {
	candidates, length := completer{}.Do([]rune("hi"), 2)
	require.Equal(t, 2, length)
	require.Equal(t, [][]rune{[]rune("story")}, candidates)
}
