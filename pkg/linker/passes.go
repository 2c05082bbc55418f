package linker

// Link runs the pipeline over the parsed inputs:
// resolve, then layout (which applies relocations once addresses are
// final), then write. The first failing stage aborts the whole link; no
// partial output ever escapes.
func Link(ctx *Context) ([]byte, error) {
	symtab, err := ResolveSymbols(ctx)
	if err != nil {
		return nil, err
	}

	layout, err := Layout(ctx, symtab)
	if err != nil {
		return nil, err
	}

	return WriteExecutable(ctx.Arg.Entry, layout, symtab)
}
