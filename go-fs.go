package vfat

import (
	"io/fs"

	"github.com/aligator/vfat/blockdev"
)

type GoDirEntry struct {
	fs.FileInfo
}

func (g GoDirEntry) Type() fs.FileMode {
	return g.FileInfo.Mode().Type()
}

func (g GoDirEntry) Info() (fs.FileInfo, error) {
	return g.FileInfo, nil
}

// GoFile is the fs.File of GoFs.
// It only provides the methods of fs.File and fs.ReadDirFile, as seeking to
// the end of a file is not possible.
type GoFile struct {
	file *FsFile
	root bool
}

func (g GoFile) Stat() (fs.FileInfo, error) {
	info, err := g.file.Stat()
	if err != nil {
		return nil, err
	}
	if g.root {
		return rootFileInfo{info}, nil
	}
	return info, nil
}

func (g GoFile) Read(bytes []byte) (int, error) {
	return g.file.Read(bytes)
}

func (g GoFile) Close() error {
	return g.file.Close()
}

func (g GoFile) ReadDir(n int) ([]fs.DirEntry, error) {
	entries, err := g.file.Readdir(n)

	goEntries := make([]fs.DirEntry, len(entries))
	for i, e := range entries {
		goEntries[i] = GoDirEntry{e}
	}

	return goEntries, err
}

// rootFileInfo names the root ".".
type rootFileInfo struct {
	fs.FileInfo
}

func (rootFileInfo) Name() string {
	return "."
}

// GoFs just wraps the afero FAT implementation to be compatible with fs.FS.
type GoFs struct {
	*Fs
}

// NewGoFS mounts the FAT32 filesystem of the device as fs.FS compatible filesystem.
func NewGoFS(device blockdev.BlockDevice, opts ...Option) (*GoFs, error) {
	fs, err := New(device, opts...)
	if err != nil {
		return nil, err
	}

	return &GoFs{fs}, nil
}

// Open opens the named file. Only paths accepted by fs.ValidPath are allowed.
func (g GoFs) Open(name string) (fs.File, error) {
	if !fs.ValidPath(name) {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrInvalid}
	}

	file, err := g.Fs.Open(name)
	if err != nil {
		return nil, err
	}

	return GoFile{file: file.(*FsFile), root: name == "."}, nil
}

// Stat returns the fs.FileInfo of the named file.
func (g GoFs) Stat(name string) (fs.FileInfo, error) {
	file, err := g.Open(name)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return file.Stat()
}
