package linker

import (
	"debug/elf"
	"fmt"
)

type Binding uint8

const (
	BindingLocal Binding = iota
	BindingGlobal
	BindingWeak
)

func BindingFromElf(raw uint8) (Binding, error) {
	switch elf.SymBind(raw) {
	case elf.STB_LOCAL:
		return BindingLocal, nil
	case elf.STB_GLOBAL:
		return BindingGlobal, nil
	case elf.STB_WEAK:
		return BindingWeak, nil
	}
	return BindingLocal, fmt.Errorf("unrecognized symbol binding: %d", raw)
}

func (b Binding) Elf() uint8 {
	switch b {
	case BindingGlobal:
		return uint8(elf.STB_GLOBAL)
	case BindingWeak:
		return uint8(elf.STB_WEAK)
	}
	return uint8(elf.STB_LOCAL)
}

func (b Binding) String() string {
	switch b {
	case BindingLocal:
		return "local"
	case BindingGlobal:
		return "global"
	case BindingWeak:
		return "weak"
	}
	return "unknown"
}

type SymbolType uint8

const (
	SymbolTypeNone SymbolType = iota
	SymbolTypeObject
	SymbolTypeFunc
	SymbolTypeSection
	SymbolTypeFile
)

func SymbolTypeFromElf(raw uint8) (SymbolType, error) {
	switch elf.SymType(raw) {
	case elf.STT_NOTYPE:
		return SymbolTypeNone, nil
	case elf.STT_OBJECT:
		return SymbolTypeObject, nil
	case elf.STT_FUNC:
		return SymbolTypeFunc, nil
	case elf.STT_SECTION:
		return SymbolTypeSection, nil
	case elf.STT_FILE:
		return SymbolTypeFile, nil
	}
	return SymbolTypeNone, fmt.Errorf("unrecognized symbol type: %d", raw)
}

func (t SymbolType) Elf() uint8 {
	switch t {
	case SymbolTypeObject:
		return uint8(elf.STT_OBJECT)
	case SymbolTypeFunc:
		return uint8(elf.STT_FUNC)
	case SymbolTypeSection:
		return uint8(elf.STT_SECTION)
	case SymbolTypeFile:
		return uint8(elf.STT_FILE)
	}
	return uint8(elf.STT_NOTYPE)
}

// SymbolRecord is the parse-time view of one symbol table entry, value still
// relative to its home section. Never mutated after parse.
type SymbolRecord struct {
	Name    string
	Value   uint64
	Size    uint64
	Binding Binding
	Type    SymbolType
	Shndx   uint16
}

func (r *SymbolRecord) IsUndef() bool {
	return r.Shndx == uint16(elf.SHN_UNDEF)
}

// ResolvedSymbol is the winning definition for one name. Its value is
// rewritten once by resolution (candidate selection) and once by layout
// (section base + merge offset); after that it is read-only.
type ResolvedSymbol struct {
	Name    string
	Value   uint64
	Size    uint64
	Binding Binding
	Type    SymbolType
	ObjIdx  int
	Shndx   uint16
	Defined bool

	// OutShndx is the output section header index the symbol lands in,
	// assigned by layout alongside the value rewrite.
	OutShndx uint16
}

// SymbolTable preserves insertion order so that symbol emission, and
// therefore the output bytes, are deterministic for a given input order.
type SymbolTable struct {
	syms  map[string]*ResolvedSymbol
	names []string
}

func NewSymbolTable() *SymbolTable {
	return &SymbolTable{syms: make(map[string]*ResolvedSymbol)}
}

func (t *SymbolTable) Get(name string) *ResolvedSymbol {
	return t.syms[name]
}

func (t *SymbolTable) Put(sym *ResolvedSymbol) {
	if _, ok := t.syms[sym.Name]; !ok {
		t.names = append(t.names, sym.Name)
	}
	t.syms[sym.Name] = sym
}

func (t *SymbolTable) Names() []string {
	return t.names
}

func (t *SymbolTable) Len() int {
	return len(t.names)
}
