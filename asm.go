package main

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"hadydotai/synvm/asm"
	"hadydotai/synvm/logging"
	"hadydotai/synvm/vm"
)

type AsmCommand struct {
	Output string `short:"o" long:"output" description:"Output file and path of the program image" required:"yes"`
	Dump   bool   `short:"d" long:"dump" description:"Print a disassembly of the assembled program"`
	Args   struct {
		File string `positional-arg-name:"FILE" required:"yes"`
	} `positional-args:"yes"`
}

var asmCommand AsmCommand

var errAssembly = errors.New("assembly failed")

func (cmd *AsmCommand) Execute(args []string) error {
	logging.Log(logging.LogLevelInfo, "Assembling", "file-input", cmd.Args.File, "file-output", cmd.Output)
	source, err := os.ReadFile(cmd.Args.File)
	if err != nil {
		return fmt.Errorf("failed to read source file %s: %w", cmd.Args.File, err)
	}

	words, err := asm.Assemble(cmd.Args.File, string(source))
	var aerr *asm.Error
	if errors.As(err, &aerr) {
		fmt.Fprint(os.Stderr, aerr.Format(isTerminal(os.Stderr)))
		return errAssembly
	}
	if err != nil {
		return err
	}

	var image bytes.Buffer
	if err := vm.WriteImage(&image, words); err != nil {
		return fmt.Errorf("failed to encode program image: %w", err)
	}
	logging.Log(logging.LogLevelDebug, "Committing output to disk", "words", len(words))
	if err := os.WriteFile(cmd.Output, image.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write program image to disk: %w", err)
	}
	logging.Log(logging.LogLevelInfo, "Successfully assembled", "file-input", cmd.Args.File, "file-output", cmd.Output)

	if cmd.Dump {
		return asm.WriteListing(os.Stdout, asm.Disassemble(words, 0))
	}
	return nil
}

type DisCommand struct {
	Start uint16 `long:"from" description:"First address to disassemble"`
	End   uint16 `long:"to" description:"Address to stop at (default: end of image)"`
	Args  struct {
		Program string `positional-arg-name:"PROGRAM" required:"yes"`
	} `positional-args:"yes"`
}

var disCommand DisCommand

func (cmd *DisCommand) Execute(args []string) error {
	words, err := loadProgram(cmd.Args.Program)
	if err != nil {
		return err
	}
	end := len(words)
	if cmd.End != 0 && int(cmd.End) < end {
		end = int(cmd.End)
	}
	start := int(cmd.Start)
	if start > end {
		return fmt.Errorf("--from %d is past the end at %d", start, end)
	}
	return asm.WriteListing(os.Stdout, asm.Disassemble(words[start:end], cmd.Start))
}

func init() {
	flagsparser.AddCommand(
		"asm",
		"Assemble a program",
		"Assembles a source file into a program image of little endian 16-bit words",
		&asmCommand,
	)
	flagsparser.AddCommand(
		"dis",
		"Disassemble a program",
		"Prints a program image as assembly, one instruction or data word per line",
		&disCommand,
	)
}
