package linker

import (
	"fmt"
	"strings"
)

// Every pipeline stage fails fast: the first error aborts the link and no
// output bytes are produced. Errors carry the offending names and offsets so
// a failure is diagnosable from the message alone.

type ParseError struct {
	File   string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: malformed object: %s", e.File, e.Reason)
}

type DuplicateSymbolError struct {
	Names []string
}

func (e *DuplicateSymbolError) Error() string {
	return "duplicate symbol: " + strings.Join(e.Names, ", ")
}

type UnresolvedSymbolsError struct {
	Names []string
}

func (e *UnresolvedSymbolsError) Error() string {
	return "undefined symbol: " + strings.Join(e.Names, ", ")
}

type MissingEntryPointError struct {
	Name string
}

func (e *MissingEntryPointError) Error() string {
	return fmt.Sprintf("entry point symbol not found: %s", e.Name)
}

type RelocationError struct {
	File   string
	Sym    string
	Offset uint64
	Reason string
}

func (e *RelocationError) Error() string {
	msg := fmt.Sprintf("%s: relocation at offset 0x%x: %s", e.File, e.Offset, e.Reason)
	if e.Sym != "" {
		msg += fmt.Sprintf(" (symbol %q)", e.Sym)
	}
	return msg
}

type SectionNotFoundError struct {
	Name string
}

func (e *SectionNotFoundError) Error() string {
	return fmt.Sprintf("output section not found: %s", e.Name)
}

type IoError struct {
	Path string
	Err  error
}

func (e *IoError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

func (e *IoError) Unwrap() error {
	return e.Err
}
