package linker

import (
	"debug/elf"
	"encoding/binary"
)

type MachineType = int8

const (
	MachineTypeNone    MachineType = iota
	MachineTypeAArch64 MachineType = iota
)

func GetMachineTypeFromContents(contents []byte) MachineType {
	ft := GetFileType(contents)

	switch ft {
	case FileTypeObject:
		if len(contents) < 20 {
			return MachineTypeNone
		}
		machine := binary.LittleEndian.Uint16(contents[18:])
		if machine == uint16(elf.EM_AARCH64) &&
			contents[4] == byte(elf.ELFCLASS64) &&
			contents[5] == byte(elf.ELFDATA2LSB) {
			return MachineTypeAArch64
		}
	}

	return MachineTypeNone
}

type MachineTypeStringer struct {
	MachineType
}

func (mts MachineTypeStringer) String() string {
	if mts.MachineType == MachineTypeAArch64 {
		return "aarch64"
	}
	return "none"
}

func CheckFileCompatibility(ctx *Context, file *File) error {
	mt := GetMachineTypeFromContents(file.Contents)
	if mt != ctx.Arg.Emulation {
		return &ParseError{File: file.Name, Reason: "incompatible machine type"}
	}
	return nil
}
