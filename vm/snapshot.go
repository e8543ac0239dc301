package vm

import "hadydotai/synvm/logging"

// Snapshot is a self contained copy of every piece of mutable VM state. It
// shares nothing with the VM it was taken from.
type Snapshot struct {
	Paused  bool
	Halted  bool
	Cycle   uint64
	PC      uint16
	Memory  *Memory
	History string
	Input   []byte
	Output  string
}

// Capture deep copies the live state.
func (vm *VM) Capture() *Snapshot {
	input := make([]byte, len(vm.Input))
	copy(input, vm.Input)
	return &Snapshot{
		Paused:  vm.Paused,
		Halted:  vm.Halted,
		Cycle:   vm.Cycle,
		PC:      vm.PC,
		Memory:  vm.Memory.Clone(),
		History: string(vm.History),
		Input:   input,
		Output:  string(vm.Output),
	}
}

// Restore replaces the live state with s. Nothing of the current state
// survives, and s stays usable for further restores.
func (vm *VM) Restore(s *Snapshot) {
	vm.Paused = s.Paused
	vm.Halted = s.Halted
	vm.StepOnce = false
	vm.Cycle = s.Cycle
	vm.PC = s.PC
	vm.Memory = s.Memory.Clone()
	vm.History = []byte(s.History)
	vm.Input = append([]byte(nil), s.Input...)
	vm.Output = []byte(s.Output)
	vm.restores++
}

// SaveState captures the live state into the VM's single save slot,
// replacing whatever was there.
func (vm *VM) SaveState() {
	vm.saved = vm.Capture()
	logging.Log(logging.LogLevelDebug, "State saved", "pc", vm.PC, "cycle", vm.Cycle)
}

// LoadState restores the save slot. It reports false when nothing has been
// saved yet.
func (vm *VM) LoadState() bool {
	if vm.saved == nil {
		return false
	}
	vm.Restore(vm.saved)
	logging.Log(logging.LogLevelDebug, "State loaded", "pc", vm.PC, "cycle", vm.Cycle)
	return true
}

// Saved returns the save slot, or nil.
func (vm *VM) Saved() *Snapshot {
	return vm.saved
}

// Register returns the content of register i.
func (s *Snapshot) Register(i int) uint16 {
	return s.Memory.Registers[i]
}

// OutputTail returns at most the last n bytes of the output.
func (s *Snapshot) OutputTail(n int) string {
	if len(s.Output) <= n {
		return s.Output
	}
	return s.Output[len(s.Output)-n:]
}
