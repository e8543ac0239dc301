package asm

import (
	"fmt"
	"io"
	"strconv"

	"hadydotai/synvm/vm"
)

// Listing is one line of disassembly. Words that do not decode become
// single word data lines.
type Listing struct {
	Addr        uint16
	Words       []uint16
	Instruction vm.Instruction
	Data        bool
}

func (l Listing) String() string {
	if l.Data {
		v := l.Words[0]
		if v >= 0x20 && v < 0x7f {
			return fmt.Sprintf("data %d  # %s", v, strconv.QuoteRune(rune(v)))
		}
		return fmt.Sprintf("data %d", v)
	}
	in := l.Instruction
	if in.Op == vm.OpOut && !vm.IsRegister(in.Args[0]) && in.Args[0] >= 0x20 && in.Args[0] < 0x7f {
		return fmt.Sprintf("%s  # %s", in, strconv.QuoteRune(rune(in.Args[0])))
	}
	return in.String()
}

// Disassemble decodes words as if they were loaded at address start.
func Disassemble(words []uint16, start uint16) []Listing {
	var out []Listing
	for i := 0; i < len(words); {
		end := i + vm.MaxInstructionLen
		if end > len(words) {
			end = len(words)
		}
		addr := start + uint16(i)
		in, err := vm.Decode(words[i:end])
		if err != nil {
			out = append(out, Listing{Addr: addr, Words: words[i : i+1], Data: true})
			i++
			continue
		}
		n := int(in.Len())
		out = append(out, Listing{Addr: addr, Words: words[i : i+n], Instruction: in})
		i += n
	}
	return out
}

// WriteListing prints a listing with addresses, one line per entry.
func WriteListing(w io.Writer, listing []Listing) error {
	for _, l := range listing {
		if _, err := fmt.Fprintf(w, "%5d: %s\n", l.Addr, l); err != nil {
			return err
		}
	}
	return nil
}
