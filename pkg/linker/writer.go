package linker

import (
	"debug/elf"

	"ald/pkg/utils"
)

// WriteExecutable serializes the linked image: file header, one loadable
// program header per merged segment, every section payload at its assigned
// offset, and the section header table (with a leading null entry) behind
// the last payload. Writes are positioned, not appended; the header region
// precedes the first section in the file.
func WriteExecutable(entry string, layout *LayoutResult, symtab *SymbolTable) ([]byte, error) {
	esym := symtab.Get(entry)
	if esym == nil || !esym.Defined {
		return nil, &MissingEntryPointError{Name: entry}
	}

	shOff := uint64(0)
	for _, sec := range layout.Sections {
		if end := utils.AlignTo(sec.Shdr.Offset+sec.Shdr.Size, 8); end > shOff {
			shOff = end
		}
	}

	shNum := len(layout.Sections) + 1
	buf := make([]byte, shOff+uint64(shNum*ShdrSize))

	ehdr := Ehdr{}
	WriteMagic(ehdr.Ident[:])
	ehdr.Ident[elf.EI_CLASS] = uint8(elf.ELFCLASS64)
	ehdr.Ident[elf.EI_DATA] = uint8(elf.ELFDATA2LSB)
	ehdr.Ident[elf.EI_VERSION] = uint8(elf.EV_CURRENT)
	ehdr.Ident[elf.EI_OSABI] = 0
	ehdr.Ident[elf.EI_ABIVERSION] = 0
	ehdr.Type = uint16(elf.ET_EXEC)
	ehdr.Machine = uint16(elf.EM_AARCH64)
	ehdr.Version = uint32(elf.EV_CURRENT)
	ehdr.Entry = esym.Value
	ehdr.PhOff = uint64(EhdrSize)
	ehdr.ShOff = shOff
	ehdr.EhSize = uint16(EhdrSize)
	ehdr.PhEntSize = uint16(PhdrSize)
	ehdr.PhNum = 2
	ehdr.ShEntSize = uint16(ShdrSize)
	ehdr.ShNum = uint16(shNum)
	ehdr.ShStrndx = uint16(shNum - 1)
	utils.Write[Ehdr](buf, ehdr)

	phdrs := []Phdr{
		loadSegment(layout.Text, uint32(elf.PF_R|elf.PF_X)),
		loadSegment(layout.Data, uint32(elf.PF_R|elf.PF_W)),
	}
	for i, phdr := range phdrs {
		utils.Write[Phdr](buf[EhdrSize+i*PhdrSize:], phdr)
	}

	for _, sec := range layout.Sections {
		copy(buf[sec.Shdr.Offset:], sec.Contents)
	}

	strtabShndx := uint32(0)
	for i, sec := range layout.Sections {
		if sec.Name == ".strtab" {
			strtabShndx = uint32(i + 1)
		}
	}

	base := buf[shOff:]
	utils.Write[Shdr](base, Shdr{})
	for i, sec := range layout.Sections {
		shdr := sec.Shdr
		shdr.Name = layout.NameOffsets[sec.Name]
		if shdr.Type == uint32(elf.SHT_SYMTAB) {
			shdr.Link = strtabShndx
			shdr.Info = uint32(layout.NumLocals + 1)
		}
		utils.Write[Shdr](base[(i+1)*ShdrSize:], shdr)
	}

	return buf, nil
}

func loadSegment(sec *OutputSection, flags uint32) Phdr {
	return Phdr{
		Type:     uint32(elf.PT_LOAD),
		Flags:    flags,
		Offset:   sec.Shdr.Offset,
		VAddr:    sec.Shdr.Addr,
		PAddr:    sec.Shdr.Addr,
		FileSize: sec.Shdr.Size,
		MemSize:  sec.Shdr.Size,
		Align:    PageSize,
	}
}
