package linker

import "debug/elf"

// ResolveSymbols merges every object's symbol table into one map keyed by
// name. Objects are visited in input order, symbols in table order, so the
// result is deterministic. Values are still section-relative; layout
// rewrites them once addresses exist.
//
// Insertion rules per candidate:
//   - no existing entry: insert, even undefined (a placeholder that a later
//     definition must overwrite)
//   - existing undefined, candidate defined: overwrite
//   - existing defined, candidate undefined: keep
//   - both defined: stronger binding wins (local > global > weak); equal
//     strength is a duplicate-definition error, except weak vs weak where
//     the first definition stands
//   - both undefined: keep
//
// Duplicates are reported before unresolved names when both occur.
func ResolveSymbols(ctx *Context) (*SymbolTable, error) {
	symtab := NewSymbolTable()

	var duplicates []string
	seenDup := make(map[string]bool)

	for objIdx, obj := range ctx.Objs {
		for _, rec := range obj.Syms {
			if rec.Name == "" ||
				rec.Type == SymbolTypeSection || rec.Type == SymbolTypeFile {
				continue
			}

			cand := &ResolvedSymbol{
				Name:    rec.Name,
				Value:   rec.Value,
				Size:    rec.Size,
				Binding: rec.Binding,
				Type:    rec.Type,
				ObjIdx:  objIdx,
				Shndx:   rec.Shndx,
				Defined: !rec.IsUndef(),
			}

			existing := symtab.Get(rec.Name)
			switch {
			case existing == nil:
				symtab.Put(cand)
			case !existing.Defined && cand.Defined:
				*existing = *cand
			case !cand.Defined:
				// Keep existing, defined or not.
			default:
				er, cr := GetRank(existing.Binding), GetRank(cand.Binding)
				switch {
				case cr > er:
					*existing = *cand
				case cr < er:
					// Keep existing.
				case existing.Binding == BindingWeak:
					// First weak definition stands.
				default:
					if !seenDup[rec.Name] {
						seenDup[rec.Name] = true
						duplicates = append(duplicates, rec.Name)
					}
				}
			}
		}
	}

	if len(duplicates) > 0 {
		return nil, &DuplicateSymbolError{Names: duplicates}
	}

	var unresolved []string
	for _, name := range symtab.Names() {
		if !symtab.Get(name).Defined {
			unresolved = append(unresolved, name)
		}
	}
	if len(unresolved) > 0 {
		return nil, &UnresolvedSymbolsError{Names: unresolved}
	}

	return symtab, nil
}

// isAddressable reports whether a resolved symbol's value participates in
// the layout address rewrite. SHN_ABS values are already absolute.
func isAddressable(sym *ResolvedSymbol) bool {
	return sym.Defined && sym.Shndx != uint16(elf.SHN_ABS)
}
