package linker

import (
	"bytes"
	"debug/elf"
	"encoding/binary"
)

type FileType = int8

const (
	FileTypeUnknown FileType = iota
	FileTypeEmpty   FileType = iota
	FileTypeObject  FileType = iota
	FileTypeAr      FileType = iota
)

func GetFileType(contents []byte) FileType {
	if len(contents) == 0 {
		return FileTypeEmpty
	}

	if CheckMagic(contents) {
		if len(contents) < 18 {
			return FileTypeUnknown
		}
		et := elf.Type(binary.LittleEndian.Uint16(contents[16:]))
		if et == elf.ET_REL {
			return FileTypeObject
		}
		return FileTypeUnknown
	}

	if bytes.HasPrefix(contents, []byte("!<arch>\n")) {
		return FileTypeAr
	}

	return FileTypeUnknown
}
