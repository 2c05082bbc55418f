package linker

import (
	"bytes"
	"debug/elf"
	"fmt"

	"golang.org/x/arch/arm64/arm64asm"
)

// DisassembleText decodes the code section of a linked image, one line per
// 4-byte instruction word.
func DisassembleText(image []byte) ([]string, error) {
	file, err := elf.NewFile(bytes.NewReader(image))
	if err != nil {
		return nil, err
	}

	sec := file.Section(".text")
	if sec == nil {
		return nil, &SectionNotFoundError{Name: ".text"}
	}

	code, err := sec.Data()
	if err != nil {
		return nil, err
	}

	var lines []string
	for off := 0; off+4 <= len(code); off += 4 {
		text := ".inst"
		if inst, err := arm64asm.Decode(code[off : off+4]); err == nil {
			text = arm64asm.GNUSyntax(inst)
		}
		lines = append(lines, fmt.Sprintf("%8x:\t%08x\t%s",
			sec.Addr+uint64(off), le32(code[off:]), text))
	}
	return lines, nil
}

func le32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}
