package vm

import (
	"errors"
	"runtime"

	"hadydotai/synvm/logging"
)

// Breaker gives a debugger synchronous control over a batch run.
type Breaker interface {
	// ShouldBreak is asked before every cycle.
	ShouldBreak(vm *VM) bool
	// Interrupt blocks the run until the debugger hands control back. A
	// non-nil error ends the run with that error.
	Interrupt(vm *VM) error
}

// Run drives the machine on the calling goroutine until it halts or traps.
// With a Breaker the run stops at its breakpoints, and once more after
// HALT. Run does not look at the pause flags or the control channel.
func (vm *VM) Run(b Breaker) error {
	logging.Log(logging.LogLevelDebug, "Batch run started", "pc", vm.PC)
	for {
		for !vm.Halted {
			if b != nil && b.ShouldBreak(vm) {
				if err := b.Interrupt(vm); err != nil {
					return err
				}
				if vm.Halted {
					break
				}
			}
			if err := vm.Step(); err != nil {
				logging.LogErr(err, "Run trapped")
				return err
			}
		}

		if b == nil {
			break
		}
		if err := b.Interrupt(vm); err != nil {
			return err
		}
		if vm.Halted {
			break
		}
	}
	logging.Log(logging.LogLevelDebug, "Batch run halted", "pc", vm.PC, "cycle", vm.Cycle)
	return nil
}

var errNotAttached = errors.New("no subscriber attached")

// RunLive drives an attached machine. Pending directives are serviced
// before every cycle; while paused or halted the machine sleeps on the
// directive queue instead. A controller closing its end does not stop a
// running machine; RunLive returns nil only once the machine would have to
// wait for a directive that can no longer come. Otherwise it returns the
// trap that ended the run.
// Either way a final update carrying the last state is published.
func (vm *VM) RunLive() (err error) {
	if vm.sub == nil {
		return errNotAttached
	}
	defer func() {
		vm.sub.finish(vm.update(err))
	}()

	logging.Log(logging.LogLevelDebug, "Live run started", "pc", vm.PC)
	for {
		for !vm.Halted && (!vm.Paused || vm.StepOnce) {
			vm.serviceDirective(false)

			if err := vm.Step(); err != nil {
				if errors.Is(err, ErrInputClosed) {
					logging.Log(logging.LogLevelDebug, "Controller detached while waiting for input", "pc", vm.PC)
					return nil
				}
				logging.LogErr(err, "Live run trapped")
				return err
			}
			vm.StepOnce = false
			if vm.pauseAt[vm.PC] {
				vm.Paused = true
				logging.Log(logging.LogLevelInfo, "Paused at address", "pc", vm.PC)
			}
			runtime.Gosched()
		}
		vm.StepOnce = false

		if !vm.serviceDirective(true) {
			logging.Log(logging.LogLevelDebug, "Live run ended with no controller", "pc", vm.PC, "halted", vm.Halted)
			return nil
		}
	}
}
