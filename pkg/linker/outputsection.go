package linker

// OutputSection is one merged section of the output image. Created by
// layout, byte-patched in place by relocation, then read-only for the
// writer.
type OutputSection struct {
	Name     string
	Shdr     Shdr
	Contents []byte
}

func NewOutputSection(name string, typ uint32, flags uint64) *OutputSection {
	o := &OutputSection{Name: name}
	o.Shdr.Type = typ
	o.Shdr.Flags = flags
	o.Shdr.AddrAlign = 1
	return o
}
