package main

import (
	"errors"
	"fmt"
	"os"

	"hadydotai/synvm/logging"
	"hadydotai/synvm/vm"
)

type RunCommand struct {
	History string `long:"history" description:"File the input history is replayed from" default:"./history.txt"`
	Replay  bool   `short:"r" long:"replay" description:"Feed the stored input history to the program before reading stdin"`
	Save    bool   `short:"s" long:"save-history" description:"Write the input history once the program stops"`
	Args    struct {
		Program string `positional-arg-name:"PROGRAM" required:"yes"`
	} `positional-args:"yes"`
}

var runCommand RunCommand

var errTrapped = errors.New("program trapped")

func (cmd *RunCommand) Execute(args []string) error {
	machine, err := newMachine(cmd.Args.Program, vm.Config{
		History: vm.FileHistory{Path: cmd.History},
		Output:  os.Stdout,
	})
	if err != nil {
		return err
	}
	if cmd.Replay {
		if err := machine.ReplayHistory(); err != nil {
			return err
		}
	}
	machine.SetInputReader(os.Stdin)

	logging.Log(logging.LogLevelInfo, "Running program", "file", cmd.Args.Program)
	runErr := machine.Run(nil)
	if cmd.Save {
		if err := machine.WriteHistory(); err != nil {
			return err
		}
	}
	return reportTrap(runErr)
}

// reportTrap prints a trap in full on stderr. Input running out is a normal
// way for an interactive program to end.
func reportTrap(err error) error {
	if err == nil || errors.Is(err, vm.ErrInputClosed) {
		return nil
	}
	var trap *vm.Trap
	if errors.As(err, &trap) {
		fmt.Fprint(os.Stderr, vm.FormatTrap(trap, isTerminal(os.Stderr)))
		return errTrapped
	}
	return err
}

func init() {
	flagsparser.AddCommand(
		"run",
		"Run a program",
		"Runs a program image (or assembly source) to completion, reading input from stdin",
		&runCommand,
	)
}
