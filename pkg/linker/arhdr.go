package linker

import (
	"bytes"
	"strconv"
	"strings"
)

type ArHdr struct {
	Name [16]byte
	Date [12]byte
	Uid  [6]byte
	Gid  [6]byte
	Mode [8]byte
	Size [10]byte
	Fmag [2]byte
}

func (a *ArHdr) StartsWith(s string) bool {
	return string(a.Name[:len(s)]) == s
}

func (a *ArHdr) IsStrtab() bool {
	return a.StartsWith("// ")
}

func (a *ArHdr) IsSymtab() bool {
	return a.StartsWith("/ ") || a.StartsWith("/SYM64/ ")
}

func (a *ArHdr) ReadName(strTab []byte) (string, error) {
	// SysV-style long filename
	if a.StartsWith("/") {
		start, err := strconv.Atoi(strings.TrimSpace(string(a.Name[1:])))
		if err != nil {
			return "", err
		}
		end := start + bytes.Index(strTab[start:], []byte("/\n"))
		return string(strTab[start:end]), nil
	}

	// Short filename
	if end := bytes.Index(a.Name[:], []byte("/")); end != -1 {
		return string(a.Name[:end]), nil
	}
	return strings.TrimRight(string(a.Name[:]), " "), nil
}

func (a *ArHdr) GetSize() (int, error) {
	return strconv.Atoi(strings.TrimSpace(string(a.Size[:])))
}
