package main

import (
	"bytes"
	"errors"
	"testing"

	"hadydotai/synvm/vm"

	"github.com/stretchr/testify/require"
)

func TestParseControl(t *testing.T) {
	tests := []struct {
		line   string
		want   vm.Directive
		action controlAction
	}{
		{"take lamp", vm.Directive{Input: "take lamp\n"}, actionSend},
		{"", vm.Directive{Input: "\n"}, actionSend},
		{"!!bang", vm.Directive{Input: "!bang\n"}, actionSend},
		{"!pause", vm.Directive{TogglePause: true}, actionSend},
		{"!step", vm.Directive{StepOnce: true}, actionSend},
		{"!save", vm.Directive{SaveState: true}, actionSend},
		{"!load", vm.Directive{LoadState: true}, actionSend},
		{"!history", vm.Directive{WriteHistory: true}, actionSend},
		{"!setr 7 0x10", vm.Directive{SetRegister: &vm.RegisterValue{Index: 7, Value: 16}}, actionSend},
		{"!setr 0 010", vm.Directive{SetRegister: &vm.RegisterValue{Index: 0, Value: 10}}, actionSend},
		{"!state", vm.Directive{}, actionState},
		{"!", vm.Directive{}, actionHelp},
		{"!help", vm.Directive{}, actionHelp},
		{"!quit", vm.Directive{}, actionQuit},
	}
	for _, test := range tests {
		t.Run(test.line, func(t *testing.T) {
			d, action, err := parseControl(test.line)
			require.NoError(t, err)
			require.Equal(t, test.want, d)
			require.Equal(t, test.action, action)
		})
	}
}

func TestParseControlErrors(t *testing.T) {
	for _, line := range []string{"!setr 1", "!setr 8 1", "!setr x 1", "!setr 1 70000", "!frob"} {
		_, _, err := parseControl(line)
		require.Error(t, err, line)
	}
}

func update(output string, paused bool) *vm.Update {
	return &vm.Update{
		Instruction: vm.NewInstruction(vm.OpNoop),
		Snapshot: &vm.Snapshot{
			PC:     12,
			Paused: paused,
			Output: output,
			Memory: vm.NewMemory(),
		},
	}
}

func TestLiveViewPrintsOnlyNewOutput(t *testing.T) {
	var out bytes.Buffer
	view := &liveView{out: &out}

	view.show(update("Hello", false))
	view.show(update("Hello", false))
	view.show(update("Hello, world", false))
	require.Equal(t, "Hello, world", out.String())

	out.Reset()
	view.show(update("Hel", false))
	require.Contains(t, out.String(), "state restored")
	require.Contains(t, out.String(), "Hel")
}

func TestLiveViewReportsPauseAndErrors(t *testing.T) {
	var out bytes.Buffer
	view := &liveView{out: &out}

	view.show(update("", true))
	require.Contains(t, out.String(), "[paused at 12: NOOP]")

	out.Reset()
	u := update("", false)
	u.Err = errors.New("load state: nothing saved")
	view.show(u)
	require.Contains(t, out.String(), "[running]")
	require.Contains(t, out.String(), "load state: nothing saved")
}

func TestLiveViewState(t *testing.T) {
	view := &liveView{out: &bytes.Buffer{}}
	require.Equal(t, "no state yet", view.state())

	u := update("", false)
	u.Snapshot.Memory.Registers[2] = 42
	u.Snapshot.Cycle = 7
	view.show(u)
	require.Contains(t, view.state(), "Cycle: 7")
	require.Contains(t, view.state(), "42")
}
