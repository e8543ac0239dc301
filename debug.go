package main

import (
	"errors"
	"fmt"
	"os"

	"hadydotai/synvm/logging"
	"hadydotai/synvm/vm"

	"github.com/chzyer/readline"
)

type DebugCommand struct {
	History     string   `long:"history" description:"File the input history is written to and replayed from" default:"./history.txt"`
	Replay      bool     `short:"r" long:"replay" description:"Feed the stored input history to the program first"`
	Breakpoints []uint16 `short:"b" long:"break" description:"Set a breakpoint at an address (repeatable)"`
	Continue    bool     `short:"c" long:"continue" description:"Run to the first breakpoint instead of stopping at the first instruction"`
	Args        struct {
		Program string `positional-arg-name:"PROGRAM" required:"yes"`
	} `positional-args:"yes"`
}

var debugCommand DebugCommand

func (cmd *DebugCommand) Execute(args []string) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          debugPrompt,
		HistoryFile:     "/tmp/.synvm_debugger_history",
		HistoryLimit:    1000,
		AutoComplete:    completer{},
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return fmt.Errorf("failed to start the debugger prompt: %w", err)
	}
	defer rl.Close()

	machine, err := newMachine(cmd.Args.Program, vm.Config{
		History: vm.FileHistory{Path: cmd.History},
		Output:  rl.Stdout(),
	})
	if err != nil {
		return err
	}
	if cmd.Replay {
		if err := machine.ReplayHistory(); err != nil {
			return err
		}
	}

	debugger := NewDebugger(rl, rl.Stdout(), os.Exit)
	for _, addr := range cmd.Breakpoints {
		debugger.breakpoints[addr] = true
	}
	debugger.stepping = !cmd.Continue
	machine.SetInputSource(debugger.InputSource())

	fmt.Fprintln(rl.Stdout(), "\033[1;36mVM Debugger\033[0m")
	fmt.Fprintln(rl.Stdout(), "Type 'help' or 'h' for available commands")
	logging.Log(logging.LogLevelInfo, "Debugging program", "file", cmd.Args.Program)

	err = machine.Run(debugger)
	if errors.Is(err, errDetached) {
		return nil
	}
	return reportTrap(err)
}

func init() {
	flagsparser.AddCommand(
		"debug",
		"Run a program in the step debugger",
		"Runs a program under an interactive debugger with breakpoints, memory inspection and state save/load",
		&debugCommand,
	)
}
