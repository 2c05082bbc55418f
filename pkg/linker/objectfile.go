package linker

import (
	"debug/elf"
	"fmt"

	"ald/pkg/utils"
)

// RelocationRecord is one patch request: Shndx names the section whose bytes
// get patched, Sym indexes the object's own symbol table.
type RelocationRecord struct {
	Offset uint64
	Type   uint32
	Sym    uint32
	Addend int64
	Shndx  uint32
}

// ObjectFile is the immutable in-memory form of one parsed relocatable
// input: section records, symbol records and relocation records, all in
// file order.
type ObjectFile struct {
	InputFile
	Sections []*InputSection
	Syms     []SymbolRecord
	Rels     []RelocationRecord
}

func NewObjectFile(file *File) (*ObjectFile, error) {
	f, err := NewInputFile(file)
	if err != nil {
		return nil, err
	}

	o := &ObjectFile{InputFile: *f}
	if err := o.parse(); err != nil {
		return nil, err
	}
	return o, nil
}

func (o *ObjectFile) parse() error {
	if symtabSec := o.FindSection(uint32(elf.SHT_SYMTAB)); symtabSec != nil {
		if err := o.FillUpElfSyms(symtabSec); err != nil {
			return err
		}

		strtab, err := o.GetBytesFromIdx(int64(symtabSec.Link))
		if err != nil {
			return err
		}
		o.SymbolStrtab = strtab
	}

	if err := o.initializeSections(); err != nil {
		return err
	}
	if err := o.initializeSymbols(); err != nil {
		return err
	}
	return o.initializeRelocations()
}

func (o *ObjectFile) initializeSections() error {
	o.Sections = make([]*InputSection, len(o.ElfSections))
	for i := 0; i < len(o.ElfSections); i++ {
		shdr := &o.ElfSections[i]

		switch elf.SectionType(shdr.Type) {
		case elf.SHT_NULL, elf.SHT_REL, elf.SHT_RELA, elf.SHT_GROUP:
			continue
		}

		name, err := o.SectionName(shdr)
		if err != nil {
			return err
		}
		isec, err := NewInputSection(o, name, int64(i))
		if err != nil {
			return err
		}
		o.Sections[i] = isec
	}
	return nil
}

func (o *ObjectFile) initializeSymbols() error {
	o.Syms = make([]SymbolRecord, len(o.ElfSyms))
	for i := 0; i < len(o.ElfSyms); i++ {
		esym := &o.ElfSyms[i]

		binding, err := BindingFromElf(esym.Bind())
		if err != nil {
			return &ParseError{File: o.File.Name, Reason: err.Error()}
		}
		typ, err := SymbolTypeFromElf(esym.Type())
		if err != nil {
			return &ParseError{File: o.File.Name, Reason: err.Error()}
		}

		name, err := getName(o.SymbolStrtab, esym.Name)
		if err != nil {
			return &ParseError{File: o.File.Name, Reason: err.Error()}
		}
		if name == "" && typ == SymbolTypeSection {
			if int(esym.Shndx) < len(o.Sections) && o.Sections[esym.Shndx] != nil {
				name = o.Sections[esym.Shndx].Name
			}
		}

		o.Syms[i] = SymbolRecord{
			Name:    name,
			Value:   esym.Val,
			Size:    esym.Size,
			Binding: binding,
			Type:    typ,
			Shndx:   esym.Shndx,
		}
	}
	return nil
}

func (o *ObjectFile) initializeRelocations() error {
	for i := 0; i < len(o.ElfSections); i++ {
		shdr := &o.ElfSections[i]
		if shdr.Type != uint32(elf.SHT_RELA) {
			continue
		}

		if shdr.Info >= uint32(len(o.Sections)) || o.Sections[shdr.Info] == nil {
			return &ParseError{File: o.File.Name, Reason: "invalid relocated section index"}
		}

		bs, err := o.GetBytesFromShdr(shdr)
		if err != nil {
			return err
		}
		if len(bs)%RelaSize != 0 {
			return &ParseError{
				File:   o.File.Name,
				Reason: "relocation section size is not a multiple of entry size",
			}
		}

		for len(bs) > 0 {
			rela := utils.Read[Rela](bs)
			bs = bs[RelaSize:]

			if rela.Sym >= uint32(len(o.ElfSyms)) {
				return &ParseError{
					File:   o.File.Name,
					Reason: fmt.Sprintf("relocation references symbol %d out of range", rela.Sym),
				}
			}

			o.Rels = append(o.Rels, RelocationRecord{
				Offset: rela.Offset,
				Type:   rela.Type,
				Sym:    rela.Sym,
				Addend: rela.Addend,
				Shndx:  shdr.Info,
			})
		}
	}
	return nil
}
