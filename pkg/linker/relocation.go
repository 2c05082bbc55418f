package linker

import (
	"debug/elf"

	"ald/pkg/utils"
)

// The one supported relocation is R_AARCH64_ADR_PREL_LO21: ADR computes a
// PC-relative address from a signed 21-bit immediate split across the
// instruction word. adrInsnMask keeps the opcode (bit 31, bits 28:24) and
// the destination register (bits 4:0); everything else is immediate.
const adrInsnMask uint32 = 0b1001_1111_0000_0000_0000_0000_0001_1111

func adrType(val uint32) uint32 {
	return utils.Bits(val, 1, 0)<<29 | utils.Bits(val, 20, 2)<<5
}

func writeAdrType(loc []byte, val uint32) {
	utils.Write[uint32](loc, utils.Read[uint32](loc)&adrInsnMask|adrType(val))
}

func fitsAdr(delta int64) bool {
	return utils.SignExtend(uint64(delta)&0x1f_ffff, 20) == uint64(delta)
}

// ApplyRelocations patches the merged code section in place. It must run
// after every symbol value is final; the layout stage owns that ordering.
// Unsupported relocation kinds are an error, never a skip.
func ApplyRelocations(ctx *Context, layout *LayoutResult, symtab *SymbolTable) error {
	text := layout.Text
	if text == nil {
		return &SectionNotFoundError{Name: ".text"}
	}

	for objIdx, obj := range ctx.Objs {
		for _, rel := range obj.Rels {
			fail := func(sym, reason string) error {
				return &RelocationError{
					File:   obj.File.Name,
					Sym:    sym,
					Offset: rel.Offset,
					Reason: reason,
				}
			}

			rec := &obj.Syms[rel.Sym]

			if elf.R_AARCH64(rel.Type) != elf.R_AARCH64_ADR_PREL_LO21 {
				return fail(rec.Name, "unsupported relocation type")
			}

			sym := symtab.Get(rec.Name)
			if sym == nil || !sym.Defined {
				return fail(rec.Name, "unknown symbol")
			}

			base, ok := layout.CodeOffsets[MergeKey{ObjIdx: objIdx, Shndx: rel.Shndx}]
			if !ok {
				return fail(rec.Name, "relocation against an unmerged section")
			}

			// Bounds are checked against the contributing input section, not
			// the merged buffer, so one object cannot patch another's bytes.
			// Subtract rather than add: rel.Offset is untrusted input and
			// rel.Offset+4 can wrap around.
			if size := obj.Sections[rel.Shndx].Size(); size < 4 || rel.Offset > size-4 {
				return fail(rec.Name, "relocation offset is out of range")
			}
			pos := base + rel.Offset

			// S + A - P
			p := text.Shdr.Addr + pos
			delta := int64(sym.Value) - int64(p) + rel.Addend
			if !fitsAdr(delta) {
				return fail(rec.Name, "relocation target is out of ADR range")
			}

			writeAdrType(text.Contents[pos:], uint32(delta))
		}
	}

	return nil
}
