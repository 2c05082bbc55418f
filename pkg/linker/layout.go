package linker

import (
	"debug/elf"

	"ald/pkg/utils"
)

// MergeKey identifies one input section's contribution to a merged output
// section: (object index, section index within that object).
type MergeKey struct {
	ObjIdx int
	Shndx  uint32
}

type LayoutResult struct {
	// Sections is the final output order:
	// .text .data .symtab .strtab .shstrtab. The section header table adds
	// a leading null entry, so the shdr index of Sections[i] is i+1.
	Sections []*OutputSection

	Text *OutputSection
	Data *OutputSection

	CodeOffsets map[MergeKey]uint64
	DataOffsets map[MergeKey]uint64

	// NameOffsets maps every output section name to its .shstrtab offset.
	NameOffsets map[string]uint32

	NumLocals int
}

const (
	textShndx = 1
	dataShndx = 2
)

// Layout merges code and data across all objects, assigns file offsets and
// virtual addresses, rewrites resolved symbol values to final addresses,
// applies relocations, and appends the symbol/string tables. Relocation runs
// from here because patching needs every address to be final.
func Layout(ctx *Context, symtab *SymbolTable) (*LayoutResult, error) {
	res := &LayoutResult{}

	res.Text, res.CodeOffsets = mergeSections(ctx, ".text", SectionKindCode)
	res.Data, res.DataOffsets = mergeSections(ctx, ".data", SectionKindData)

	// The code section sits right behind the file and program headers,
	// aligned for instruction fetch, and loads at ImageBase plus its file
	// offset. The data section loads one full page further so the loader
	// can map read-execute and read-write regions independently; adding
	// exactly PageSize keeps vaddr and offset congruent modulo the page
	// size for both segments.
	if res.Text.Shdr.AddrAlign < 4 {
		res.Text.Shdr.AddrAlign = 4
	}
	if res.Data.Shdr.AddrAlign < 8 {
		res.Data.Shdr.AddrAlign = 8
	}

	codeOff := utils.AlignTo(uint64(EhdrSize+2*PhdrSize), res.Text.Shdr.AddrAlign)
	res.Text.Shdr.Offset = codeOff
	res.Text.Shdr.Addr = ImageBase + codeOff

	dataOff := utils.AlignTo(codeOff+res.Text.Shdr.Size, res.Data.Shdr.AddrAlign)
	res.Data.Shdr.Offset = dataOff
	res.Data.Shdr.Addr = ImageBase + PageSize + dataOff

	for _, name := range symtab.Names() {
		sym := symtab.Get(name)
		if !isAddressable(sym) {
			// Absolute values carry no section; they keep their value and
			// get marked as such in the output table.
			sym.OutShndx = uint16(elf.SHN_ABS)
			continue
		}

		key := MergeKey{ObjIdx: sym.ObjIdx, Shndx: uint32(sym.Shndx)}
		if off, ok := res.CodeOffsets[key]; ok {
			sym.Value = res.Text.Shdr.Addr + off + sym.Value
			sym.OutShndx = textShndx
		} else if off, ok := res.DataOffsets[key]; ok {
			sym.Value = res.Data.Shdr.Addr + off + sym.Value
			sym.OutShndx = dataShndx
		} else {
			sym.OutShndx = uint16(elf.SHN_ABS)
		}
	}

	if err := ApplyRelocations(ctx, res, symtab); err != nil {
		return nil, err
	}

	symtabSec, strtabSec, numLocals := buildSymbolSections(symtab)
	res.NumLocals = numLocals

	res.Sections = []*OutputSection{res.Text, res.Data, symtabSec, strtabSec}
	res.Sections = append(res.Sections, buildShstrtab(res))

	off := dataOff + res.Data.Shdr.Size
	for _, sec := range res.Sections[2:] {
		off = utils.AlignTo(off, sec.Shdr.AddrAlign)
		sec.Shdr.Offset = off
		off += sec.Shdr.Size
	}

	return res, nil
}

// mergeSections concatenates the payloads of every object's sections of one
// kind, in object order, recording where each contribution begins. No
// padding goes between contributions: the merged size is exactly the sum of
// the inputs, and a kind nobody provides yields a legal zero-length section.
func mergeSections(ctx *Context, name string, kind SectionKind) (*OutputSection, map[MergeKey]uint64) {
	flags := uint64(elf.SHF_ALLOC | elf.SHF_EXECINSTR)
	if kind == SectionKindData {
		flags = uint64(elf.SHF_ALLOC | elf.SHF_WRITE)
	}

	osec := NewOutputSection(name, uint32(elf.SHT_PROGBITS), flags)
	offsets := make(map[MergeKey]uint64)

	var buf []byte
	for objIdx, obj := range ctx.Objs {
		for _, isec := range obj.Sections {
			if isec == nil || isec.Kind != kind {
				continue
			}

			offsets[MergeKey{ObjIdx: objIdx, Shndx: isec.Shndx}] = uint64(len(buf))
			buf = append(buf, isec.Contents...)

			if align := uint64(1) << isec.P2Align; align > osec.Shdr.AddrAlign {
				osec.Shdr.AddrAlign = align
			}
		}
	}

	osec.Contents = buf
	osec.Shdr.Size = uint64(len(buf))
	return osec, offsets
}

// buildSymbolSections serializes the resolved set as .symtab and .strtab.
// Local symbols come first: the symtab header's info field must carry one
// plus the local count so other tools know where global visibility starts.
func buildSymbolSections(symtab *SymbolTable) (*OutputSection, *OutputSection, int) {
	var locals, globals []*ResolvedSymbol
	for _, name := range symtab.Names() {
		sym := symtab.Get(name)
		if sym.Binding == BindingLocal {
			locals = append(locals, sym)
		} else {
			globals = append(globals, sym)
		}
	}

	strtab := []byte{0}
	esyms := make([]Sym, 1, 1+symtab.Len())

	add := func(sym *ResolvedSymbol) {
		nameOff := uint32(len(strtab))
		strtab = append(strtab, sym.Name...)
		strtab = append(strtab, 0)

		esyms = append(esyms, Sym{
			Name:  nameOff,
			Info:  sym.Binding.Elf()<<4 | sym.Type.Elf()&0xf,
			Shndx: sym.OutShndx,
			Val:   sym.Value,
			Size:  sym.Size,
		})
	}

	for _, sym := range locals {
		add(sym)
	}
	for _, sym := range globals {
		add(sym)
	}

	symtabSec := NewOutputSection(".symtab", uint32(elf.SHT_SYMTAB), 0)
	symtabSec.Contents = make([]byte, len(esyms)*SymSize)
	for i, esym := range esyms {
		utils.Write[Sym](symtabSec.Contents[i*SymSize:], esym)
	}
	symtabSec.Shdr.Size = uint64(len(symtabSec.Contents))
	symtabSec.Shdr.AddrAlign = 8
	symtabSec.Shdr.EntSize = uint64(SymSize)

	strtabSec := NewOutputSection(".strtab", uint32(elf.SHT_STRTAB), 0)
	strtabSec.Contents = strtab
	strtabSec.Shdr.Size = uint64(len(strtab))

	return symtabSec, strtabSec, len(locals)
}

// buildShstrtab lists every output section name plus its own, and records
// each name's offset for header writing.
func buildShstrtab(res *LayoutResult) *OutputSection {
	osec := NewOutputSection(".shstrtab", uint32(elf.SHT_STRTAB), 0)

	res.NameOffsets = make(map[string]uint32)
	buf := []byte{0}
	for _, sec := range res.Sections {
		res.NameOffsets[sec.Name] = uint32(len(buf))
		buf = append(buf, sec.Name...)
		buf = append(buf, 0)
	}
	res.NameOffsets[osec.Name] = uint32(len(buf))
	buf = append(buf, osec.Name...)
	buf = append(buf, 0)

	osec.Contents = buf
	osec.Shdr.Size = uint64(len(buf))
	return osec
}
