package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/davecgh/go-spew/spew"

	"ald/pkg/linker"
	"ald/pkg/utils"
)

var version string

func main() {
	ctx := linker.NewContext()
	remaining := parseNonpositionalArgs(ctx)

	if ctx.Arg.Emulation == linker.MachineTypeNone {
		for _, filename := range remaining {
			if strings.HasPrefix(filename, "-") {
				continue
			}
			file := linker.MustNewFile(filename)
			ctx.Arg.Emulation = linker.GetMachineTypeFromContents(file.Contents)
			if ctx.Arg.Emulation != linker.MachineTypeNone {
				break
			}
		}
	}

	if ctx.Arg.Emulation != linker.MachineTypeAArch64 {
		utils.Fatal("unknown emulation type")
	}

	if err := linker.ReadInputFiles(ctx, remaining); err != nil {
		utils.Fatal(err)
	}

	if ctx.Arg.DumpObjects {
		spew.Fdump(os.Stderr, ctx.Objs)
	}

	out, err := linker.Link(ctx)
	if err != nil {
		utils.Fatal(err)
	}

	if ctx.Arg.PrintText {
		lines, err := linker.DisassembleText(out)
		utils.MustNo(err)
		fmt.Println(strings.Join(lines, "\n"))
	}

	if err = os.WriteFile(ctx.Arg.Output, out, 0777); err != nil {
		utils.Fatal(&linker.IoError{Path: ctx.Arg.Output, Err: err})
	}
}

func parseNonpositionalArgs(ctx *linker.Context) []string {
	dashes := func(name string) []string {
		if len(name) == 1 {
			return []string{"-" + name}
		}
		if name[0] == 'o' {
			return []string{"--" + name}
		}
		return []string{"-" + name, "--" + name}
	}

	args := os.Args[1:]
	remaining := make([]string, 0)
	var arg string

	readArg := func(name string) bool {
		for _, opt := range dashes(name) {
			if args[0] == opt {
				if len(args) == 1 {
					utils.Fatal(fmt.Sprintf("option -%s: argument missing", name))
					return false
				}
				arg = args[1]
				args = args[2:]
				return true
			}

			prefix := opt
			if len(name) > 1 {
				prefix += "="
			}

			if strings.HasPrefix(args[0], prefix) {
				arg = args[0][len(prefix):]
				args = args[1:]
				return true
			}
		}
		return false
	}

	readFlag := func(name string) bool {
		for _, opt := range dashes(name) {
			if args[0] == opt {
				args = args[1:]
				return true
			}
		}
		return false
	}

	for len(args) > 0 {
		if readFlag("help") {
			fmt.Printf("Usage: %s [options] file...\n", os.Args[0])
			os.Exit(0)
		}

		if readArg("o") || readArg("output") {
			ctx.Arg.Output = arg
		} else if readArg("e") || readArg("entry") {
			ctx.Arg.Entry = arg
		} else if readFlag("v") || readFlag("version") {
			fmt.Printf("ald %s\n", version)
			os.Exit(0)
		} else if readArg("m") {
			if arg == "aarch64elf" || arg == "aarch64linux" {
				ctx.Arg.Emulation = linker.MachineTypeAArch64
			} else {
				utils.Fatal(fmt.Sprintf("unknown -m argument: %s", arg))
			}
		} else if readArg("L") || readArg("library-path") {
			ctx.Arg.LibraryPaths = append(ctx.Arg.LibraryPaths, arg)
		} else if readArg("l") {
			remaining = append(remaining, "-l"+arg)
		} else if readFlag("print-text") {
			ctx.Arg.PrintText = true
		} else if readFlag("dump-objects") {
			ctx.Arg.DumpObjects = true
		} else if readFlag("static") {
			// Do nothing.
		} else if readArg("sysroot") ||
			readArg("plugin") ||
			readArg("plugin-opt") ||
			readFlag("as-needed") ||
			readFlag("start-group") ||
			readFlag("end-group") ||
			readArg("hash-style") ||
			readArg("build-id") ||
			readFlag("s") {
			// Ignored
		} else {
			if args[0][0] == '-' {
				utils.Fatal(fmt.Sprintf("unknown command line option: %s", args[0]))
			}
			remaining = append(remaining, args[0])
			args = args[1:]
		}
	}

	for i, path := range ctx.Arg.LibraryPaths {
		ctx.Arg.LibraryPaths[i] = filepath.Clean(path)
	}

	return remaining
}
