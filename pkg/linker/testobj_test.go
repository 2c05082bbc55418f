package linker

import (
	"debug/elf"
	"testing"

	"ald/pkg/utils"
)

// testSym describes one symbol table entry of a synthesized object.
// sec selects the home section: "", ".text", ".data" or "abs".
type testSym struct {
	name string
	bind elf.SymBind
	typ  elf.SymType
	sec  string
	val  uint64
	size uint64
}

// testObj synthesizes a minimal relocatable AArch64 object the parser
// accepts: null section, .text, .data, .symtab, .strtab, .shstrtab and a
// .rela.text table against the code section.
type testObj struct {
	name string
	text []byte
	data []byte
	syms []testSym
	rels []Rela
}

func (o testObj) build(t *testing.T) *File {
	t.Helper()

	secNames := []string{"", ".text", ".data", ".symtab", ".strtab", ".shstrtab", ".rela.text"}
	shstrtab := []byte{0}
	nameOffs := make(map[string]uint32)
	for _, n := range secNames[1:] {
		nameOffs[n] = uint32(len(shstrtab))
		shstrtab = append(shstrtab, n...)
		shstrtab = append(shstrtab, 0)
	}

	strtab := []byte{0}
	esyms := []Sym{{}}
	numLocal := uint32(1)
	for _, s := range o.syms {
		nameOff := uint32(len(strtab))
		strtab = append(strtab, s.name...)
		strtab = append(strtab, 0)

		var shndx uint16
		switch s.sec {
		case ".text":
			shndx = 1
		case ".data":
			shndx = 2
		case "abs":
			shndx = uint16(elf.SHN_ABS)
		}

		esyms = append(esyms, Sym{
			Name:  nameOff,
			Info:  uint8(s.bind)<<4 | uint8(s.typ)&0xf,
			Shndx: shndx,
			Val:   s.val,
			Size:  s.size,
		})
		if s.bind == elf.STB_LOCAL {
			numLocal++
		}
	}

	symtab := make([]byte, len(esyms)*SymSize)
	for i, e := range esyms {
		utils.Write[Sym](symtab[i*SymSize:], e)
	}

	rela := make([]byte, len(o.rels)*RelaSize)
	for i, r := range o.rels {
		utils.Write[Rela](rela[i*RelaSize:], r)
	}

	bodies := [][]byte{nil, o.text, o.data, symtab, strtab, shstrtab, rela}
	types := []uint32{
		uint32(elf.SHT_NULL),
		uint32(elf.SHT_PROGBITS), uint32(elf.SHT_PROGBITS),
		uint32(elf.SHT_SYMTAB), uint32(elf.SHT_STRTAB), uint32(elf.SHT_STRTAB),
		uint32(elf.SHT_RELA),
	}
	flags := []uint64{
		0,
		uint64(elf.SHF_ALLOC | elf.SHF_EXECINSTR),
		uint64(elf.SHF_ALLOC | elf.SHF_WRITE),
		0, 0, 0, 0,
	}
	aligns := []uint64{0, 4, 8, 8, 1, 1, 8}

	shdrs := make([]Shdr, len(secNames))
	off := uint64(EhdrSize)
	for i := 1; i < len(secNames); i++ {
		off = utils.AlignTo(off, 8)
		shdrs[i] = Shdr{
			Name:      nameOffs[secNames[i]],
			Type:      types[i],
			Flags:     flags[i],
			Offset:    off,
			Size:      uint64(len(bodies[i])),
			AddrAlign: aligns[i],
		}
		off += uint64(len(bodies[i]))
	}
	shdrs[3].Link = 4
	shdrs[3].Info = numLocal
	shdrs[3].EntSize = uint64(SymSize)
	shdrs[6].Link = 3
	shdrs[6].Info = 1
	shdrs[6].EntSize = uint64(RelaSize)

	shOff := utils.AlignTo(off, 8)
	buf := make([]byte, shOff+uint64(len(shdrs)*ShdrSize))

	ehdr := Ehdr{
		Type:      uint16(elf.ET_REL),
		Machine:   uint16(elf.EM_AARCH64),
		Version:   uint32(elf.EV_CURRENT),
		ShOff:     shOff,
		EhSize:    uint16(EhdrSize),
		ShEntSize: uint16(ShdrSize),
		ShNum:     uint16(len(shdrs)),
		ShStrndx:  5,
	}
	WriteMagic(ehdr.Ident[:])
	ehdr.Ident[elf.EI_CLASS] = uint8(elf.ELFCLASS64)
	ehdr.Ident[elf.EI_DATA] = uint8(elf.ELFDATA2LSB)
	ehdr.Ident[elf.EI_VERSION] = uint8(elf.EV_CURRENT)
	utils.Write[Ehdr](buf, ehdr)

	for i := 1; i < len(shdrs); i++ {
		copy(buf[shdrs[i].Offset:], bodies[i])
	}
	for i := range shdrs {
		utils.Write[Shdr](buf[shOff+uint64(i*ShdrSize):], shdrs[i])
	}

	name := o.name
	if name == "" {
		name = "test.o"
	}
	return &File{Name: name, Contents: buf}
}

func mustObj(t *testing.T, o testObj) *ObjectFile {
	t.Helper()
	obj, err := NewObjectFile(o.build(t))
	if err != nil {
		t.Fatal(err)
	}
	return obj
}

// AArch64 instruction words used across the linker tests.
const (
	insAdrX1  uint32 = 0x10000001 // adr x1, #0
	insLdrW0  uint32 = 0xb9400020 // ldr w0, [x1]
	insMovX8  uint32 = 0xd2800ba8 // mov x8, #93 (exit)
	insSvc0   uint32 = 0xd4000001 // svc #0
	insRet    uint32 = 0xd65f03c0 // ret
)

func words(ws ...uint32) []byte {
	buf := make([]byte, 4*len(ws))
	for i, w := range ws {
		utils.Write[uint32](buf[i*4:], w)
	}
	return buf
}

func decodeAdr(w uint32) (rd uint32, delta int64) {
	immlo := utils.Bits(w, 30, 29)
	immhi := utils.Bits(w, 23, 5)
	return utils.Bits(w, 4, 0), int64(utils.SignExtend(uint64(immhi<<2|immlo), 20))
}
