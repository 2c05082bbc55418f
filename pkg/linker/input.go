package linker

import (
	"fmt"

	"ald/pkg/utils"
)

// ReadInputFiles parses every input in command-line order. Order matters:
// it fixes both resolution tie-breaking and section merge offsets.
func ReadInputFiles(ctx *Context, args []string) error {
	for _, arg := range args {
		var ok bool
		var err error
		if arg, ok = utils.RemovePrefix(arg, "-l"); ok {
			err = ReadFile(ctx, FindLibrary(ctx, arg))
		} else {
			err = ReadFile(ctx, MustNewFile(arg))
		}
		if err != nil {
			return err
		}
	}

	if len(ctx.Objs) == 0 {
		return fmt.Errorf("no input files")
	}
	return nil
}

func ReadFile(ctx *Context, file *File) error {
	if ctx.Visited.Contains(file.Name) {
		return nil
	}

	switch GetFileType(file.Contents) {
	case FileTypeObject:
		return appendObjectFile(ctx, file)
	case FileTypeAr:
		members, err := ReadArchiveMembers(file)
		if err != nil {
			return err
		}
		for _, child := range members {
			if GetFileType(child.Contents) != FileTypeObject {
				return &ParseError{File: child.Name, Reason: "unknown file type in archive"}
			}
			if err := appendObjectFile(ctx, child); err != nil {
				return err
			}
		}
		ctx.Visited.Add(file.Name)
		return nil
	default:
		return &ParseError{File: file.Name, Reason: "unknown file type"}
	}
}

func appendObjectFile(ctx *Context, file *File) error {
	if err := CheckFileCompatibility(ctx, file); err != nil {
		return err
	}

	obj, err := NewObjectFile(file)
	if err != nil {
		return err
	}
	ctx.Objs = append(ctx.Objs, obj)
	return nil
}
