package vm

import (
	"fmt"

	"hadydotai/synvm/logging"
)

// RegisterValue asks for register Index to be set to Value.
type RegisterValue struct {
	Index int
	Value uint16
}

// Directive is a request from the controller. Every field is optional; the
// zero Directive only asks for a fresh Update.
type Directive struct {
	Input        string
	SaveState    bool
	LoadState    bool
	WriteHistory bool
	TogglePause  bool
	StepOnce     bool
	SetRegister  *RegisterValue
}

// Update is what the VM sends back after applying a directive.
type Update struct {
	// Instruction is the one that will execute next. DecodeErr is set
	// instead when the words at the program counter do not decode.
	Instruction Instruction
	DecodeErr   error
	Snapshot    *Snapshot
	// Err reports a directive that could not be honoured, or on the final
	// update the trap that ended the run.
	Err error
	// Final marks the last update. The update queue is closed after it.
	Final bool
}

// Subscriber is the VM end of the control channel.
type Subscriber struct {
	directives <-chan Directive
	updates    chan<- *Update
	// detached is set once the directive queue is seen closed.
	detached bool
}

// Subscription is the controller end of the control channel.
type Subscription struct {
	directives chan<- Directive
	updates    <-chan *Update
}

// NewSubscription connects one controller to one VM with two unbounded
// queues.
func NewSubscription() (*Subscriber, *Subscription) {
	dirIn, dirOut := pipe[Directive]()
	updIn, updOut := pipe[*Update]()
	return &Subscriber{directives: dirOut, updates: updIn},
		&Subscription{directives: dirIn, updates: updOut}
}

// Send queues a directive. It must not be called after Close.
func (s *Subscription) Send(d Directive) {
	s.directives <- d
}

// Updates yields updates in the order the VM produced them. It is closed
// after the final update.
func (s *Subscription) Updates() <-chan *Update {
	return s.updates
}

// Close tells the VM no more directives will come. A VM blocked waiting for
// one returns from RunLive.
func (s *Subscription) Close() {
	close(s.directives)
}

func (s *Subscriber) publish(u *Update) {
	s.updates <- u
}

func (s *Subscriber) finish(u *Update) {
	u.Final = true
	s.updates <- u
	close(s.updates)
}

// Attach connects the VM to the VM end of a subscription. IN then blocks on
// the directive queue when the input buffer is empty.
func (vm *VM) Attach(sub *Subscriber) {
	vm.sub = sub
	vm.refill = func() error {
		if !vm.serviceDirective(true) {
			return ErrInputClosed
		}
		return nil
	}
}

// serviceDirective applies at most one pending directive and publishes an
// update for it. With block set it waits for one. It reports false when the
// directive queue is closed.
func (vm *VM) serviceDirective(block bool) bool {
	if vm.sub.detached {
		return false
	}
	var (
		d  Directive
		ok bool
	)
	if block {
		d, ok = <-vm.sub.directives
	} else {
		select {
		case d, ok = <-vm.sub.directives:
		default:
			return true
		}
	}
	if !ok {
		vm.sub.detached = true
		logging.Log(logging.LogLevelDebug, "Controller detached", "pc", vm.PC, "cycle", vm.Cycle)
		return false
	}

	err := vm.Apply(d)
	if err != nil {
		logging.Warn("Directive not honoured", "error", err, "pc", vm.PC)
	}
	vm.sub.publish(vm.update(err))
	return true
}

// Apply carries out every field of d in a fixed order. The first failure is
// returned once all fields have been attempted.
func (vm *VM) Apply(d Directive) error {
	var firstErr error
	fail := func(err error) {
		if firstErr == nil {
			firstErr = err
		}
	}

	if d.Input != "" {
		vm.enqueueInput(d.Input)
	}
	if d.SaveState {
		vm.SaveState()
	}
	if d.LoadState && !vm.LoadState() {
		fail(fmt.Errorf("load state: nothing saved"))
	}
	if d.WriteHistory {
		if err := vm.WriteHistory(); err != nil {
			fail(err)
		}
	}
	if d.TogglePause {
		vm.Paused = !vm.Paused
	}
	if r := d.SetRegister; r != nil {
		if r.Index < 0 || r.Index >= RegisterCount {
			fail(fmt.Errorf("set register: no register %d", r.Index))
		} else {
			vm.Memory.Registers[r.Index] = r.Value
		}
	}
	if d.StepOnce {
		vm.StepOnce = true
	}
	return firstErr
}

func (vm *VM) update(err error) *Update {
	in, decodeErr := vm.Next()
	return &Update{
		Instruction: in,
		DecodeErr:   decodeErr,
		Snapshot:    vm.Capture(),
		Err:         err,
	}
}
