package linker

import "ald/pkg/utils"

type ContextArg struct {
	Output    string
	Entry     string
	Emulation MachineType

	LibraryPaths []string

	PrintText   bool
	DumpObjects bool
}

type Context struct {
	Arg ContextArg

	Visited utils.MapSet[string]

	Objs []*ObjectFile
}

func NewContext() *Context {
	return &Context{
		Arg: ContextArg{
			Emulation: MachineTypeNone,
			Output:    "a.out",
			Entry:     "_start",
		},
		Visited: utils.NewMapSet[string](),
	}
}
