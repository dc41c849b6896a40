package vfat

import (
	"os"
	"time"
)

// FileInfo returns the entry as os.FileInfo.
func (e Entry) FileInfo() os.FileInfo {
	return entryFileInfo{
		name:     e.Name(),
		metadata: e.Metadata(),
	}
}

type entryFileInfo struct {
	name     string
	metadata Metadata
}

func (e entryFileInfo) Name() string {
	return e.name
}

func (e entryFileInfo) Size() int64 {
	if e.IsDir() {
		return 0
	}
	return int64(e.metadata.Size)
}

func (e entryFileInfo) Mode() os.FileMode {
	if e.IsDir() {
		return os.ModeDir | 0555
	}
	return 0444
}

func (e entryFileInfo) ModTime() time.Time {
	return e.metadata.Modified.AsTime()
}

func (e entryFileInfo) IsDir() bool {
	return e.metadata.IsDir()
}

// Sys returns the Metadata of the entry.
func (e entryFileInfo) Sys() interface{} {
	return e.metadata
}
