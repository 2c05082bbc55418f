package linker

import (
	"unsafe"

	"ald/pkg/utils"
)

const arHdrSize = int(unsafe.Sizeof(ArHdr{}))

// ReadArchiveMembers extracts every object member of an ar archive, in
// archive order. Members link exactly like loose objects; there is no lazy
// extraction.
func ReadArchiveMembers(file *File) ([]*File, error) {
	badArchive := func(reason string) error {
		return &ParseError{File: file.Name, Reason: reason}
	}

	data := 8
	var strTab []byte
	var files []*File

	for len(file.Contents)-data >= 2 {
		if data%2 == 1 {
			data++
		}

		if data+arHdrSize > len(file.Contents) {
			return nil, badArchive("truncated archive member header")
		}
		hdr := utils.Read[ArHdr](file.Contents[data:])

		size, err := hdr.GetSize()
		if err != nil {
			return nil, badArchive("bad archive member size")
		}

		body := data + arHdrSize
		data = body + size
		if data > len(file.Contents) {
			return nil, badArchive("truncated archive member")
		}

		if hdr.IsStrtab() {
			strTab = file.Contents[body:data]
			continue
		}
		if hdr.IsSymtab() {
			continue
		}

		name, err := hdr.ReadName(strTab)
		if err != nil {
			return nil, badArchive("bad archive member name")
		}

		files = append(files, &File{
			Name:     name,
			Contents: file.Contents[body:data],
			Parent:   file,
		})
	}

	return files, nil
}
