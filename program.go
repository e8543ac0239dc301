package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"hadydotai/synvm/asm"
	"hadydotai/synvm/logging"
	"hadydotai/synvm/vm"

	"golang.org/x/term"
)

// loadProgram reads a program image, or assembles it first when the file
// looks like assembly source.
func loadProgram(path string) ([]uint16, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".s", ".asm":
		source, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read source file %s: %w", path, err)
		}
		logging.Log(logging.LogLevelDebug, "Assembling program", "file", path)
		return asm.Assemble(path, string(source))
	}
	return vm.LoadImageFile(path)
}

// isTerminal reports whether colour escapes make sense on f.
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

func newMachine(path string, config vm.Config) (*vm.VM, error) {
	program, err := loadProgram(path)
	if err != nil {
		return nil, err
	}
	machine := vm.New(config)
	machine.Load(program)
	return machine, nil
}
