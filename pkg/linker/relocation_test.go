package linker

import (
	"debug/elf"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/arch/arm64/arm64asm"

	"ald/pkg/utils"
)

func TestAdrImmediateEncoding(t *testing.T) {
	// adr at 0x400100 reaching a word at 0x410110: delta 0x10010,
	// immlo = 0b00, immhi = 0x4004.
	const delta = 0x410110 - 0x400100

	loc := words(insAdrX1)
	writeAdrType(loc, uint32(delta))

	patched := utils.Read[uint32](loc)
	assert.Equal(t, insAdrX1&adrInsnMask, patched&adrInsnMask,
		"opcode and destination register survive the patch")

	rd, got := decodeAdr(patched)
	assert.Equal(t, uint32(1), rd)
	assert.Equal(t, int64(delta), got)
}

func TestAdrImmediateEncodingNegative(t *testing.T) {
	delta := int32(-8)

	loc := words(insAdrX1)
	writeAdrType(loc, uint32(delta))

	_, got := decodeAdr(utils.Read[uint32](loc))
	assert.Equal(t, int64(-8), got)
}

func TestPatchedAdrDisassembles(t *testing.T) {
	loc := words(insAdrX1)
	writeAdrType(loc, 0x10010)

	inst, err := arm64asm.Decode(loc)
	require.NoError(t, err)
	assert.Equal(t, arm64asm.ADR, inst.Op)
	assert.Equal(t, "adr x1, .+0x10010", arm64asm.GNUSyntax(inst))
}

func TestFitsAdr(t *testing.T) {
	assert.True(t, fitsAdr(0))
	assert.True(t, fitsAdr(0x10010))
	assert.True(t, fitsAdr(0xfffff))  // largest positive
	assert.True(t, fitsAdr(-0x100000)) // most negative
	assert.False(t, fitsAdr(0x100000))
	assert.False(t, fitsAdr(-0x100001))
}

func TestRelocationPatchesMergedCode(t *testing.T) {
	ctx := layoutCtx(t,
		testObj{
			name: "a.o",
			text: words(insAdrX1, insLdrW0, insRet),
			syms: []testSym{{name: "val", bind: elf.STB_GLOBAL}},
			rels: []Rela{{Offset: 0, Type: uint32(elf.R_AARCH64_ADR_PREL_LO21), Sym: 1}},
		},
		testObj{
			name: "b.o",
			data: words(11),
			syms: []testSym{{name: "val", bind: elf.STB_GLOBAL, typ: elf.STT_OBJECT, sec: ".data", size: 4}},
		},
	)

	res, symtab := resolveAndLayout(t, ctx)

	val := symtab.Get("val")
	require.NotNil(t, val)

	_, delta := decodeAdr(utils.Read[uint32](res.Text.Contents))
	assert.Equal(t, int64(val.Value)-int64(res.Text.Shdr.Addr), delta)
}

func TestRelocationUsesAddend(t *testing.T) {
	ctx := layoutCtx(t,
		testObj{
			text: words(insAdrX1, insRet),
			data: words(0, 11),
			syms: []testSym{{name: "arr", bind: elf.STB_GLOBAL, typ: elf.STT_OBJECT, sec: ".data", size: 8}},
			rels: []Rela{{Offset: 0, Type: uint32(elf.R_AARCH64_ADR_PREL_LO21), Sym: 1, Addend: 4}},
		},
	)

	res, symtab := resolveAndLayout(t, ctx)

	_, delta := decodeAdr(utils.Read[uint32](res.Text.Contents))
	assert.Equal(t, int64(symtab.Get("arr").Value)+4-int64(res.Text.Shdr.Addr), delta)
}

func TestRelocationSecondObjectUsesMergedPosition(t *testing.T) {
	ctx := layoutCtx(t,
		testObj{name: "a.o", text: words(insRet, insRet)},
		testObj{
			name: "b.o",
			text: words(insAdrX1),
			syms: []testSym{{name: "val", bind: elf.STB_GLOBAL}},
			rels: []Rela{{Offset: 0, Type: uint32(elf.R_AARCH64_ADR_PREL_LO21), Sym: 1}},
		},
		testObj{
			name: "c.o",
			data: words(7),
			syms: []testSym{{name: "val", bind: elf.STB_GLOBAL, typ: elf.STT_OBJECT, sec: ".data", size: 4}},
		},
	)

	res, symtab := resolveAndLayout(t, ctx)

	// b.o's code starts 8 bytes into the merged section.
	patched := utils.Read[uint32](res.Text.Contents[8:])
	_, delta := decodeAdr(patched)
	assert.Equal(t, int64(symtab.Get("val").Value)-int64(res.Text.Shdr.Addr+8), delta)
}

func TestRelocationRejectsUnsupportedType(t *testing.T) {
	ctx := layoutCtx(t,
		testObj{
			text: words(insRet, insRet),
			data: words(0),
			syms: []testSym{{name: "val", bind: elf.STB_GLOBAL, typ: elf.STT_OBJECT, sec: ".data"}},
			rels: []Rela{{Offset: 0, Type: uint32(elf.R_AARCH64_ABS64), Sym: 1}},
		},
	)

	symtab, err := ResolveSymbols(ctx)
	require.NoError(t, err)

	_, err = Layout(ctx, symtab)
	var rerr *RelocationError
	require.ErrorAs(t, err, &rerr)
	assert.Contains(t, rerr.Reason, "unsupported relocation type")
}

func TestRelocationRejectsOutOfRangeOffset(t *testing.T) {
	ctx := layoutCtx(t,
		testObj{
			text: words(insAdrX1),
			data: words(0),
			syms: []testSym{{name: "val", bind: elf.STB_GLOBAL, typ: elf.STT_OBJECT, sec: ".data"}},
			rels: []Rela{{Offset: 64, Type: uint32(elf.R_AARCH64_ADR_PREL_LO21), Sym: 1}},
		},
	)

	symtab, err := ResolveSymbols(ctx)
	require.NoError(t, err)

	_, err = Layout(ctx, symtab)
	var rerr *RelocationError
	require.ErrorAs(t, err, &rerr)
	assert.Contains(t, rerr.Reason, "out of range")
	assert.Equal(t, uint64(64), rerr.Offset)
}

func TestRelocationRejectsWrappingOffset(t *testing.T) {
	ctx := layoutCtx(t,
		testObj{
			text: words(insAdrX1),
			data: words(0),
			syms: []testSym{{name: "val", bind: elf.STB_GLOBAL, typ: elf.STT_OBJECT, sec: ".data"}},
			rels: []Rela{{Offset: 0xffff_ffff_ffff_fffc, Type: uint32(elf.R_AARCH64_ADR_PREL_LO21), Sym: 1}},
		},
	)

	symtab, err := ResolveSymbols(ctx)
	require.NoError(t, err)

	_, err = Layout(ctx, symtab)
	var rerr *RelocationError
	require.ErrorAs(t, err, &rerr)
	assert.Contains(t, rerr.Reason, "out of range")
}

func TestRelocationRejectsSectionSymbolTarget(t *testing.T) {
	ctx := layoutCtx(t,
		testObj{
			text: words(insAdrX1),
			data: words(0),
			syms: []testSym{{name: "", bind: elf.STB_LOCAL, typ: elf.STT_SECTION, sec: ".data"}},
			rels: []Rela{{Offset: 0, Type: uint32(elf.R_AARCH64_ADR_PREL_LO21), Sym: 1}},
		},
	)

	symtab, err := ResolveSymbols(ctx)
	require.NoError(t, err)

	_, err = Layout(ctx, symtab)
	var rerr *RelocationError
	require.ErrorAs(t, err, &rerr)
	assert.Contains(t, rerr.Reason, "unknown symbol")
}

func TestRelocationRejectsTargetOutOfAdrRange(t *testing.T) {
	ctx := layoutCtx(t,
		testObj{
			text: words(insAdrX1),
			syms: []testSym{{name: "far", bind: elf.STB_GLOBAL, typ: elf.STT_OBJECT, sec: "abs", val: 0x1000_0000}},
			rels: []Rela{{Offset: 0, Type: uint32(elf.R_AARCH64_ADR_PREL_LO21), Sym: 1}},
		},
	)

	symtab, err := ResolveSymbols(ctx)
	require.NoError(t, err)

	_, err = Layout(ctx, symtab)
	var rerr *RelocationError
	require.ErrorAs(t, err, &rerr)
	assert.Contains(t, rerr.Reason, "out of ADR range")
	assert.Equal(t, "far", rerr.Sym)
}
