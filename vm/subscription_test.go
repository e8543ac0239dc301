package vm

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var errFull = errors.New("disk full")

type liveRun struct {
	t    *testing.T
	vm   *VM
	sub  *Subscription
	done chan error
}

func startLive(t *testing.T, vm *VM) *liveRun {
	t.Helper()
	subscriber, subscription := NewSubscription()
	vm.Attach(subscriber)
	r := &liveRun{t: t, vm: vm, sub: subscription, done: make(chan error, 1)}
	go func() { r.done <- vm.RunLive() }()
	return r
}

func (r *liveRun) next() *Update {
	r.t.Helper()
	select {
	case u, ok := <-r.sub.Updates():
		require.True(r.t, ok, "update queue closed")
		return u
	case <-time.After(5 * time.Second):
		r.t.Fatal("timed out waiting for an update")
	}
	return nil
}

// send issues a directive and returns the update it produced.
func (r *liveRun) send(d Directive) *Update {
	r.t.Helper()
	r.sub.Send(d)
	return r.next()
}

// until keeps sending empty directives until cond holds for an update.
func (r *liveRun) until(cond func(*Update) bool) *Update {
	r.t.Helper()
	for i := 0; i < 1000; i++ {
		if u := r.send(Directive{}); cond(u) {
			return u
		}
		time.Sleep(time.Millisecond)
	}
	r.t.Fatal("condition never held")
	return nil
}

func (r *liveRun) finish() (*Update, error) {
	r.t.Helper()
	r.sub.Close()
	var last *Update
	for u := range r.sub.Updates() {
		last = u
	}
	select {
	case err := <-r.done:
		return last, err
	case <-time.After(5 * time.Second):
		r.t.Fatal("RunLive did not return")
	}
	return nil, nil
}

func TestQueueIsUnboundedAndOrdered(t *testing.T) {
	in, out := pipe[int]()
	for i := 0; i < 10000; i++ {
		in <- i
	}
	close(in)
	i := 0
	for v := range out {
		require.Equal(t, i, v)
		i++
	}
	require.Equal(t, 10000, i)
}

func TestLiveInputBlocksUntilDirective(t *testing.T) {
	// in r0, out r0, halt
	vm := load(Config{EchoInput: true}, 20, 32768, 19, 32768, 0)
	r := startLive(t, vm)

	u := r.send(Directive{Input: "z"})
	require.NoError(t, u.Err)
	require.Equal(t, NewInstruction(OpIn, 32768), u.Instruction, "update carries the next instruction")
	require.Equal(t, "z", u.Snapshot.Output, "input is echoed")
	require.Equal(t, "z", u.Snapshot.History)

	u = r.until(func(u *Update) bool { return u.Snapshot.Halted })
	require.Equal(t, "zz", u.Snapshot.Output)
	require.Equal(t, NewInstruction(OpHalt), u.Instruction)
	require.EqualValues(t, 3, u.Snapshot.Cycle)

	last, err := r.finish()
	require.NoError(t, err)
	require.True(t, last.Final)
	require.NoError(t, last.Err)
}

func TestLivePauseAndStep(t *testing.T) {
	vm := load(Config{}, 21, 21, 21, 0)
	vm.Paused = true
	r := startLive(t, vm)

	u := r.send(Directive{StepOnce: true})
	require.EqualValues(t, 0, u.Snapshot.Cycle, "update reflects the directive, not the step")

	u = r.until(func(u *Update) bool { return u.Snapshot.Cycle == 1 })
	require.EqualValues(t, 1, u.Snapshot.PC)
	require.True(t, u.Snapshot.Paused)

	u = r.send(Directive{})
	require.EqualValues(t, 1, u.Snapshot.Cycle, "paused machine does no work")

	u = r.send(Directive{TogglePause: true})
	require.False(t, u.Snapshot.Paused)
	u = r.until(func(u *Update) bool { return u.Snapshot.Halted })
	require.EqualValues(t, 3, u.Snapshot.PC)

	_, err := r.finish()
	require.NoError(t, err)
}

func TestLiveSaveLoadAndSetRegister(t *testing.T) {
	vm := load(Config{}, 21, 0)
	vm.Paused = true
	r := startLive(t, vm)

	u := r.send(Directive{LoadState: true})
	require.Error(t, u.Err, "nothing saved yet")

	u = r.send(Directive{SaveState: true})
	require.NoError(t, u.Err)

	u = r.send(Directive{SetRegister: &RegisterValue{Index: 2, Value: 99}})
	require.EqualValues(t, 99, u.Snapshot.Register(2))

	u = r.send(Directive{SetRegister: &RegisterValue{Index: 8, Value: 1}})
	require.Error(t, u.Err)

	u = r.send(Directive{LoadState: true})
	require.NoError(t, u.Err)
	require.EqualValues(t, 0, u.Snapshot.Register(2))

	_, err := r.finish()
	require.NoError(t, err)
}

func TestLiveLoadStateWhileWaitingForInput(t *testing.T) {
	// in r0, out r0, halt
	vm := load(Config{EchoInput: true}, 20, 32768, 19, 32768, 0)
	r := startLive(t, vm)

	r.send(Directive{SaveState: true})
	u := r.send(Directive{Input: "a", LoadState: true})
	require.Empty(t, u.Snapshot.Output, "load wins over the input queued before it")
	require.Empty(t, u.Snapshot.Input)

	r.send(Directive{Input: "q"})
	u = r.until(func(u *Update) bool { return u.Snapshot.Halted })
	require.Equal(t, "qq", u.Snapshot.Output)
	require.EqualValues(t, 3, u.Snapshot.Cycle)

	_, err := r.finish()
	require.NoError(t, err)
}

func TestLiveWriteHistory(t *testing.T) {
	store := &memHistory{}
	vm := load(Config{History: store}, 20, 32768, 0)
	r := startLive(t, vm)

	r.send(Directive{Input: "look\n"})
	u := r.until(func(u *Update) bool { return u.Snapshot.Halted })
	require.Equal(t, "ook\n", string(u.Snapshot.Input))

	u = r.send(Directive{WriteHistory: true})
	require.NoError(t, u.Err)
	require.Equal(t, "look\n", store.saved)

	store.err = errFull
	u = r.send(Directive{WriteHistory: true})
	require.ErrorIs(t, u.Err, errFull)
	require.True(t, u.Snapshot.Halted, "machine state untouched")

	_, err := r.finish()
	require.NoError(t, err)
}

func TestLivePauseAt(t *testing.T) {
	vm := load(Config{PauseAt: []uint16{2}}, 21, 21, 21, 0)
	r := startLive(t, vm)

	u := r.until(func(u *Update) bool { return u.Snapshot.Paused })
	require.EqualValues(t, 2, u.Snapshot.PC)
	require.EqualValues(t, 2, u.Snapshot.Cycle)

	_, err := r.finish()
	require.NoError(t, err)
}

func TestLiveTrapEndsRun(t *testing.T) {
	// mod r0 1 0
	vm := load(Config{}, 11, 32768, 1, 0)
	r := startLive(t, vm)

	last, err := r.finish()
	require.ErrorIs(t, err, ErrDivideByZero)
	require.True(t, last.Final)
	require.ErrorIs(t, last.Err, ErrDivideByZero)
	require.EqualValues(t, 0, last.Snapshot.PC)
	require.Equal(t, OpMod, last.Instruction.Op)
}

func TestRunLiveNeedsSubscriber(t *testing.T) {
	require.Error(t, New(Config{}).RunLive())
}

func TestLiveKeepsRunningAfterDetach(t *testing.T) {
	// set r0 1000; loop: add r0 r0 -1; jt r0 loop; halt
	vm := load(Config{}, 1, 32768, 1000, 9, 32768, 32768, 32767, 7, 32768, 3, 0)
	r := startLive(t, vm)

	last, err := r.finish()
	require.NoError(t, err)
	require.True(t, last.Final)
	require.True(t, last.Snapshot.Halted, "runs to HALT without a controller")
	require.EqualValues(t, 0, last.Snapshot.Register(0))
}

func TestLiveTrapAfterDetach(t *testing.T) {
	// mod r0 1 0
	vm := load(Config{}, 11, 32768, 1, 0)
	subscriber, subscription := NewSubscription()
	vm.Attach(subscriber)
	subscription.Close()
	time.Sleep(10 * time.Millisecond)

	err := vm.RunLive()
	require.ErrorIs(t, err, ErrDivideByZero)

	var last *Update
	for u := range subscription.Updates() {
		last = u
	}
	require.True(t, last.Final)
	require.ErrorIs(t, last.Err, ErrDivideByZero)
	require.EqualValues(t, 0, last.Snapshot.Cycle)
}

func TestLiveDetachWhileWaitingForInput(t *testing.T) {
	// in r0, halt
	vm := load(Config{}, 20, 32768, 0)
	r := startLive(t, vm)

	last, err := r.finish()
	require.NoError(t, err)
	require.NoError(t, last.Err)
	require.EqualValues(t, 0, last.Snapshot.PC)
}
