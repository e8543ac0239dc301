package vm

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
)

// ReadImage decodes a program image of little endian 16-bit words. A
// trailing odd byte is ignored.
func ReadImage(r io.Reader) ([]uint16, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read program image: %w", err)
	}
	if len(data)/2 > HeapSize {
		return nil, fmt.Errorf("program image has %d words, heap holds %d", len(data)/2, HeapSize)
	}
	words := make([]uint16, len(data)/2)
	for i := range words {
		words[i] = binary.LittleEndian.Uint16(data[2*i:])
	}
	return words, nil
}

func LoadImageFile(path string) ([]uint16, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open program image %s: %w", path, err)
	}
	defer f.Close()
	return ReadImage(f)
}

// WriteImage encodes words as a program image.
func WriteImage(w io.Writer, words []uint16) error {
	return binary.Write(w, binary.LittleEndian, words)
}
