package linker

import (
	"debug/elf"
	"fmt"

	"ald/pkg/utils"
)

// InputFile holds the raw ELF container view of one input: the section
// header table and the symbol table, still in file byte order. ObjectFile
// builds the linker's own records on top of it.
type InputFile struct {
	File         *File
	ElfSections  []Shdr
	ElfSyms      []Sym
	ShStrtab     []byte
	SymbolStrtab []byte
}

func NewInputFile(file *File) (*InputFile, error) {
	f := &InputFile{File: file}
	if len(file.Contents) < EhdrSize {
		return nil, &ParseError{File: file.Name, Reason: "file too small"}
	}
	if !CheckMagic(file.Contents) {
		return nil, &ParseError{File: file.Name, Reason: "not an ELF file"}
	}

	ehdr := utils.Read[Ehdr](file.Contents)

	// Compare by subtraction: ShOff is untrusted and the sum can wrap.
	shSize := uint64(ehdr.ShNum) * uint64(ShdrSize)
	if ehdr.ShOff > uint64(len(file.Contents)) ||
		shSize > uint64(len(file.Contents))-ehdr.ShOff {
		return nil, &ParseError{File: file.Name, Reason: "section header table is out of range"}
	}

	contents := file.Contents[ehdr.ShOff:]
	f.ElfSections = make([]Shdr, 0, ehdr.ShNum)
	for i := 0; i < int(ehdr.ShNum); i++ {
		f.ElfSections = append(f.ElfSections, utils.Read[Shdr](contents))
		contents = contents[ShdrSize:]
	}

	shstrtab, err := f.GetBytesFromIdx(int64(ehdr.ShStrndx))
	if err != nil {
		return nil, err
	}
	f.ShStrtab = shstrtab
	return f, nil
}

func (f *InputFile) GetBytesFromShdr(s *Shdr) ([]byte, error) {
	if elf.SectionType(s.Type) == elf.SHT_NOBITS {
		return nil, nil
	}

	if s.Offset > uint64(len(f.File.Contents)) ||
		s.Size > uint64(len(f.File.Contents))-s.Offset {
		return nil, &ParseError{
			File:   f.File.Name,
			Reason: fmt.Sprintf("section is out of range: offset 0x%x", s.Offset),
		}
	}

	return f.File.Contents[s.Offset : s.Offset+s.Size], nil
}

func (f *InputFile) GetBytesFromIdx(idx int64) ([]byte, error) {
	if idx < 0 || idx >= int64(len(f.ElfSections)) {
		return nil, &ParseError{File: f.File.Name, Reason: "section index is out of range"}
	}
	return f.GetBytesFromShdr(&f.ElfSections[idx])
}

func (f *InputFile) FillUpElfSyms(s *Shdr) error {
	bs, err := f.GetBytesFromShdr(s)
	if err != nil {
		return err
	}
	if len(bs)%SymSize != 0 {
		return &ParseError{File: f.File.Name, Reason: "symbol table size is not a multiple of entry size"}
	}

	nums := len(bs) / SymSize
	f.ElfSyms = make([]Sym, 0, nums)
	for nums > 0 {
		f.ElfSyms = append(f.ElfSyms, utils.Read[Sym](bs))
		bs = bs[SymSize:]
		nums--
	}
	return nil
}

func (f *InputFile) FindSection(ty uint32) *Shdr {
	for i := 0; i < len(f.ElfSections); i++ {
		sec := &f.ElfSections[i]
		if sec.Type == ty {
			return sec
		}
	}
	return nil
}

func (f *InputFile) SectionName(shdr *Shdr) (string, error) {
	name, err := getName(f.ShStrtab, shdr.Name)
	if err != nil {
		return "", &ParseError{File: f.File.Name, Reason: err.Error()}
	}
	return name, nil
}
