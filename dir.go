package vfat

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"unicode"
	"unicode/utf16"

	"github.com/aligator/vfat/checkpoint"
)

// ErrReadDir is returned if the content of a directory cannot be read.
var ErrReadDir = errors.New("could not read the directory")

// Dir is a directory of a mounted volume.
type Dir struct {
	h *handle

	firstCluster Cluster
	name         string
	metadata     Metadata
}

func (d *Dir) Name() string {
	return d.name
}

func (d *Dir) Metadata() Metadata {
	return d.metadata
}

// Cluster returns the first cluster of the directory.
func (d *Dir) Cluster() Cluster {
	return d.firstCluster
}

// Entries reads the whole directory and returns an iterator over its entries.
// Deleted entries and the volume entry are skipped.
func (d *Dir) Entries() (*DirIterator, error) {
	var data []byte
	var root Cluster
	err := d.h.lock(func(e *engine) error {
		var err error
		data, err = e.readChain(d.firstCluster)
		root = e.rootCluster
		return err
	})
	if err != nil {
		return nil, checkpoint.Wrap(err, ErrReadDir)
	}

	return &DirIterator{
		h:    d.h,
		data: data,
		root: root,
	}, nil
}

// ReadDir returns all entries of the directory in on disk order.
func (d *Dir) ReadDir() ([]Entry, error) {
	it, err := d.Entries()
	if err != nil {
		return nil, err
	}

	var entries []Entry
	for entry, ok := it.Next(); ok; entry, ok = it.Next() {
		entries = append(entries, entry)
	}
	return entries, nil
}

// Find returns the first entry whose name matches name, ignoring the case of ASCII letters.
// Returns an error matching ErrNotFound and os.ErrNotExist if there is no such entry.
func (d *Dir) Find(name string) (Entry, error) {
	it, err := d.Entries()
	if err != nil {
		return Entry{}, err
	}

	for entry, ok := it.Next(); ok; entry, ok = it.Next() {
		if equalFoldASCII(entry.Name(), name) {
			return entry, nil
		}
	}

	return Entry{}, checkpoint.Wrap(os.ErrNotExist, fmt.Errorf("%w: %v in %v", ErrNotFound, name, d.name))
}

func equalFoldASCII(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := 0; i < len(a); i++ {
		if toLowerASCII(a[i]) != toLowerASCII(b[i]) {
			return false
		}
	}
	return true
}

func toLowerASCII(c byte) byte {
	if 'A' <= c && c <= 'Z' {
		return c + 'a' - 'A'
	}
	return c
}

// DirIterator walks the raw entries of a directory.
type DirIterator struct {
	h    *handle
	data []byte
	root Cluster

	// index of the next raw entry
	index int
}

// Next returns the next entry. ok is false once the end of the directory is reached.
//
// Long file name fragments are collected until the regular entry they belong
// to is found. Their order on disk does not matter.
func (it *DirIterator) Next() (entry Entry, ok bool) {
	var fragments []lfnDirEntry

	for ; it.index+dirEntrySize <= len(it.data); it.index += dirEntrySize {
		raw := it.data[it.index : it.index+dirEntrySize]

		kind := parseUnknownDirEntry(raw)
		switch {
		case kind.isEndOfDirectory():
			it.index = len(it.data)
			return Entry{}, false
		case kind.isDeleted():
			continue
		case kind.isLongFilename():
			fragments = append(fragments, parseLFNDirEntry(raw))
		case kind.isVolumeID():
			fragments = nil
		default:
			it.index += dirEntrySize
			return it.newEntry(parseRegularDirEntry(raw), fragments), true
		}
	}

	return Entry{}, false
}

func (it *DirIterator) newEntry(regular regularDirEntry, fragments []lfnDirEntry) Entry {
	name := regular.shortName()
	if len(fragments) > 0 {
		name = longFilename(fragments)
	}

	cluster := regular.cluster()
	if regular.attr.IsDir() {
		// ".." of a directory inside of the root points to cluster 0.
		if cluster == 0 {
			cluster = it.root
		}

		return Entry{dir: &Dir{
			h:            it.h,
			firstCluster: cluster,
			name:         name,
			metadata:     regular.metadata(),
		}}
	}

	return Entry{file: newFile(it.h, name, regular.metadata(), cluster)}
}

// longFilename joins the fragments ordered by their position.
func longFilename(fragments []lfnDirEntry) string {
	sorted := make([]lfnDirEntry, len(fragments))
	copy(sorted, fragments)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].position() < sorted[j].position()
	})

	chars := make([]uint16, 0, len(sorted)*lfnCharsPerSlot)
	for _, fragment := range sorted {
		chars = fragment.appendChars(chars)
	}

	// The name ends at the first 0x0000, the rest is padded with 0xFFFF.
	for i, c := range chars {
		if c == 0x0000 || c == 0xFFFF {
			chars = chars[:i]
			break
		}
	}

	return decodeUTF16(chars)
}

// decodeUTF16 works like utf16.Decode but replaces invalid code units by '?'.
func decodeUTF16(chars []uint16) string {
	var name strings.Builder
	for i := 0; i < len(chars); i++ {
		c := rune(chars[i])
		if !utf16.IsSurrogate(c) {
			name.WriteRune(c)
			continue
		}

		if i+1 < len(chars) {
			if r := utf16.DecodeRune(c, rune(chars[i+1])); r != unicode.ReplacementChar {
				name.WriteRune(r)
				i++
				continue
			}
		}
		name.WriteRune('?')
	}
	return name.String()
}

// volumeLabel returns the name of the volume entry in the directory data or "".
func volumeLabel(data []byte) string {
	for i := 0; i+dirEntrySize <= len(data); i += dirEntrySize {
		raw := data[i : i+dirEntrySize]

		kind := parseUnknownDirEntry(raw)
		switch {
		case kind.isEndOfDirectory():
			return ""
		case kind.isDeleted():
			continue
		case kind.isVolumeID():
			return strings.TrimRight(string(raw[:11]), " \x00")
		}
	}
	return ""
}
