package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"hadydotai/synvm/asm"
	"hadydotai/synvm/logging"
	"hadydotai/synvm/vm"

	"github.com/alecthomas/repr"
	"github.com/chzyer/readline"
)

type LiveCommand struct {
	History string        `long:"history" description:"File the input history is written to and replayed from" default:"./history.txt"`
	Replay  bool          `short:"r" long:"replay" description:"Feed the stored input history to the program first"`
	PauseAt []uint16      `short:"p" long:"pause-at" description:"Pause when execution reaches an address (repeatable)"`
	Paused  bool          `long:"paused" description:"Start paused"`
	Frame   time.Duration `long:"frame" description:"How often the screen is refreshed" default:"50ms"`
	NoEcho  bool          `long:"no-echo" description:"Do not copy input into the program output"`
	Args    struct {
		Program string `positional-arg-name:"PROGRAM" required:"yes"`
	} `positional-args:"yes"`
}

var liveCommand LiveCommand

type controlAction int

const (
	actionSend controlAction = iota
	actionState
	actionHelp
	actionQuit
)

// parseControl turns a line typed at the live prompt into a directive.
// Lines starting with ! are commands, "!!" escapes a literal !, and
// everything else is program input.
func parseControl(line string) (vm.Directive, controlAction, error) {
	if !strings.HasPrefix(line, "!") {
		return vm.Directive{Input: line + "\n"}, actionSend, nil
	}
	if strings.HasPrefix(line, "!!") {
		return vm.Directive{Input: line[1:] + "\n"}, actionSend, nil
	}

	args := strings.Fields(line[1:])
	if len(args) == 0 {
		return vm.Directive{}, actionHelp, nil
	}
	switch args[0] {
	case "pause":
		return vm.Directive{TogglePause: true}, actionSend, nil
	case "step":
		return vm.Directive{StepOnce: true}, actionSend, nil
	case "save":
		return vm.Directive{SaveState: true}, actionSend, nil
	case "load":
		return vm.Directive{LoadState: true}, actionSend, nil
	case "history":
		return vm.Directive{WriteHistory: true}, actionSend, nil
	case "setr":
		if len(args) != 3 {
			return vm.Directive{}, actionSend, fmt.Errorf("usage: !setr <register> <value>")
		}
		idx, err := strconv.Atoi(args[1])
		if err != nil || idx < 0 || idx >= vm.RegisterCount {
			return vm.Directive{}, actionSend, fmt.Errorf("invalid register: %s", args[1])
		}
		v, err := asm.ParseNumber(args[2])
		if err != nil {
			return vm.Directive{}, actionSend, fmt.Errorf("invalid value: %s", args[2])
		}
		return vm.Directive{SetRegister: &vm.RegisterValue{Index: idx, Value: v}}, actionSend, nil
	case "state":
		return vm.Directive{}, actionState, nil
	case "help":
		return vm.Directive{}, actionHelp, nil
	case "quit", "exit":
		return vm.Directive{}, actionQuit, nil
	}
	return vm.Directive{}, actionSend, fmt.Errorf("unknown command: !%s", args[0])
}

// liveView prints what changed between updates.
type liveView struct {
	out    io.Writer
	shown  string
	paused bool
	latest atomic.Pointer[vm.Update]
}

const rewindTail = 2000

func (v *liveView) show(u *vm.Update) {
	v.latest.Store(u)
	s := u.Snapshot
	switch {
	case strings.HasPrefix(s.Output, v.shown):
		fmt.Fprint(v.out, s.Output[len(v.shown):])
	default:
		fmt.Fprint(v.out, "\n\033[1;36m--- state restored ---\033[0m\n")
		fmt.Fprint(v.out, s.OutputTail(rewindTail))
	}
	v.shown = s.Output

	if u.Err != nil {
		fmt.Fprintf(v.out, "\n\033[31m%v\033[0m\n", u.Err)
	}
	if s.Paused != v.paused && !s.Halted {
		v.paused = s.Paused
		if s.Paused {
			fmt.Fprintf(v.out, "\n\033[33m[paused at %d: %s]\033[0m\n", s.PC, describeNext(u))
		} else {
			fmt.Fprint(v.out, "\n\033[33m[running]\033[0m\n")
		}
	}
}

func describeNext(u *vm.Update) string {
	if u.DecodeErr != nil {
		return u.DecodeErr.Error()
	}
	return u.Instruction.String()
}

func (v *liveView) state() string {
	u := v.latest.Load()
	if u == nil {
		return "no state yet"
	}
	s := u.Snapshot
	return repr.String(machineState{
		PC:         s.PC,
		Cycle:      s.Cycle,
		Halted:     s.Halted,
		Registers:  s.Memory.Registers,
		StackDepth: len(s.Memory.Stack),
		Input:      string(s.Input),
		History:    s.History,
	}, repr.Indent("  "), repr.OmitEmpty(false))
}

func (cmd *LiveCommand) Execute(args []string) error {
	if cmd.Frame <= 0 {
		return fmt.Errorf("--frame must be positive, got %s", cmd.Frame)
	}
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "\033[32m⟩\033[0m ",
		HistoryFile:     "/tmp/.synvm_live_history",
		HistoryLimit:    1000,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return fmt.Errorf("failed to start the live prompt: %w", err)
	}
	defer rl.Close()

	machine, err := newMachine(cmd.Args.Program, vm.Config{
		EchoInput: !cmd.NoEcho,
		PauseAt:   cmd.PauseAt,
		History:   vm.FileHistory{Path: cmd.History},
	})
	if err != nil {
		return err
	}
	if cmd.Replay {
		if err := machine.ReplayHistory(); err != nil {
			return err
		}
	}
	machine.Paused = cmd.Paused

	subscriber, subscription := vm.NewSubscription()
	machine.Attach(subscriber)
	done := make(chan error, 1)
	go func() { done <- machine.RunLive() }()
	logging.Log(logging.LogLevelInfo, "Live run started", "file", cmd.Args.Program)

	view := &liveView{out: rl.Stdout(), paused: cmd.Paused}
	printed := make(chan struct{})
	go func() {
		defer close(printed)
		for u := range subscription.Updates() {
			view.show(u)
			if u.Final {
				// wake the prompt so the controller notices
				rl.Close()
			}
		}
	}()

	stop := make(chan struct{})
	var ticking sync.WaitGroup
	ticking.Add(1)
	go func() {
		defer ticking.Done()
		ticker := time.NewTicker(cmd.Frame)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				subscription.Send(vm.Directive{})
			case <-stop:
				return
			}
		}
	}()

	for {
		line, err := rl.Readline()
		if err != nil {
			break
		}
		d, action, err := parseControl(line)
		if err != nil {
			fmt.Fprintf(rl.Stdout(), "\033[31m%v\033[0m\n", err)
			continue
		}
		if action == actionQuit {
			break
		}
		switch action {
		case actionState:
			fmt.Fprintln(rl.Stdout(), view.state())
		case actionHelp:
			printLiveHelp(rl.Stdout())
		default:
			subscription.Send(d)
		}
	}

	close(stop)
	ticking.Wait()
	subscription.Close()

	// A running machine carries on without a controller, so only wait for
	// one that stops by itself.
	select {
	case <-printed:
		return reportTrap(<-done)
	case <-time.After(detachGrace):
		logging.Log(logging.LogLevelInfo, "Left the machine running")
		return nil
	}
}

const detachGrace = 200 * time.Millisecond

func printLiveHelp(w io.Writer) {
	help := `
Anything typed is sent to the program as a line of input. Commands:
  !pause           Pause or resume the machine
  !step            Execute one instruction while paused
  !save            Save the machine state
  !load            Restore the saved machine state
  !history         Write the input history
  !setr <r> <v>    Set register r to v
  !state           Show a summary of the machine state
  !quit            Leave
  !!text           Send "!text" as input
`
	fmt.Fprintln(w, help)
}

func init() {
	flagsparser.AddCommand(
		"live",
		"Run a program interactively",
		"Runs a program on its own goroutine while the prompt feeds it input and control commands",
		&liveCommand,
	)
}
