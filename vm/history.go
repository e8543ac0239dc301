package vm

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"hadydotai/synvm/logging"
)

const DefaultHistoryPath = "./history.txt"

// HistoryStore persists the input history between runs.
type HistoryStore interface {
	Save(history string) error
	Load() (string, error)
}

// FileHistory keeps the history as raw text in a single file. Every save
// overwrites the file.
type FileHistory struct {
	Path string
}

func (h FileHistory) Save(history string) error {
	if err := os.WriteFile(h.Path, []byte(history), 0644); err != nil {
		return fmt.Errorf("failed to write history to %s: %w", h.Path, err)
	}
	return nil
}

// Load returns the stored history. A missing file is an empty history.
func (h FileHistory) Load() (string, error) {
	data, err := os.ReadFile(h.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read history from %s: %w", h.Path, err)
	}
	return string(data), nil
}

var errNoHistoryStore = errors.New("no history store configured")

// WriteHistory persists the input history. Failures are returned to the
// caller and never touch the machine state.
func (vm *VM) WriteHistory() error {
	if vm.config.History == nil {
		return errNoHistoryStore
	}
	if err := vm.config.History.Save(string(vm.History)); err != nil {
		logging.LogErr(err, "History not written")
		return err
	}
	logging.Log(logging.LogLevelInfo, "History written", "bytes", len(vm.History))
	return nil
}

// ReplayHistory preloads whatever the store holds as pending input.
func (vm *VM) ReplayHistory() error {
	if vm.config.History == nil {
		return errNoHistoryStore
	}
	history, err := vm.config.History.Load()
	if err != nil {
		return err
	}
	vm.Preload(history)
	logging.Log(logging.LogLevelInfo, "History replayed", "bytes", len(history))
	return nil
}
