package linker

import (
	"debug/elf"
	"fmt"

	"ald/pkg/utils"
)

// SectionKind is the tagged variant of a raw section header type. Only code
// and data sections reach a loadable segment; the rest exist so that every
// input section header converts to a known tag or fails parsing.
type SectionKind uint8

const (
	SectionKindNone SectionKind = iota
	SectionKindCode
	SectionKindData
	SectionKindStrtab
	SectionKindSymtab
	SectionKindUninit
)

func SectionKindOf(typ uint32, flags uint64) (SectionKind, error) {
	switch elf.SectionType(typ) {
	case elf.SHT_NULL, elf.SHT_NOTE, elf.SHT_REL, elf.SHT_RELA, elf.SHT_GROUP:
		return SectionKindNone, nil
	case elf.SHT_PROGBITS:
		if flags&uint64(elf.SHF_ALLOC) == 0 {
			return SectionKindNone, nil
		}
		if flags&uint64(elf.SHF_EXECINSTR) != 0 {
			return SectionKindCode, nil
		}
		if flags&uint64(elf.SHF_WRITE) != 0 {
			return SectionKindData, nil
		}
		return SectionKindNone, nil
	case elf.SHT_STRTAB:
		return SectionKindStrtab, nil
	case elf.SHT_SYMTAB:
		return SectionKindSymtab, nil
	case elf.SHT_NOBITS:
		return SectionKindUninit, nil
	}
	return SectionKindNone, fmt.Errorf("unrecognized section type: 0x%x", typ)
}

// InputSection is one section record of one object. Identity is the pair
// (object, section index); merge offsets are keyed by it.
type InputSection struct {
	File     *ObjectFile
	Contents []byte
	Name     string
	Kind     SectionKind
	Flags    uint64
	Shndx    uint32
	P2Align  uint8
}

func NewInputSection(file *ObjectFile, name string, shndx int64) (*InputSection, error) {
	s := &InputSection{
		File:  file,
		Name:  name,
		Shndx: uint32(shndx),
	}

	shdr := s.Shdr()
	kind, err := SectionKindOf(shdr.Type, shdr.Flags)
	if err != nil {
		return nil, &ParseError{
			File:   file.File.Name,
			Reason: fmt.Sprintf("section %s: %s", name, err),
		}
	}
	s.Kind = kind
	s.Flags = shdr.Flags

	contents, err := file.GetBytesFromShdr(shdr)
	if err != nil {
		return nil, err
	}
	s.Contents = contents

	toP2Align := func(alignment uint64) uint8 {
		if alignment == 0 {
			return 0
		}
		p := uint8(0)
		for alignment > 1 {
			alignment >>= 1
			p++
		}
		return p
	}
	s.P2Align = toP2Align(shdr.AddrAlign)

	return s, nil
}

func (s *InputSection) Shdr() *Shdr {
	utils.Assert(s.Shndx < uint32(len(s.File.ElfSections)))
	return &s.File.ElfSections[s.Shndx]
}

func (s *InputSection) Size() uint64 {
	return uint64(len(s.Contents))
}
