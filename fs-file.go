package vfat

import (
	"io"
	"os"
	"syscall"

	"github.com/aligator/vfat/checkpoint"
)

// FsFile is the afero.File of Fs. It is either a file or a directory.
type FsFile struct {
	entry Entry

	// entries is loaded by the first Readdir.
	entries []Entry
	// offset of the next directory entry returned by Readdir.
	offset int
}

func newFsFile(entry Entry) *FsFile {
	return &FsFile{entry: entry}
}

// Entry returns the opened entry.
func (f *FsFile) Entry() Entry {
	return f.entry
}

func (f *FsFile) Close() error {
	if file, ok := f.entry.AsFile(); ok {
		return file.Close()
	}
	f.entries = nil
	f.offset = 0
	return nil
}

func (f *FsFile) file() (*File, error) {
	file, ok := f.entry.AsFile()
	if !ok {
		return nil, checkpoint.From(syscall.EISDIR)
	}
	return file, nil
}

func (f *FsFile) Read(p []byte) (int, error) {
	file, err := f.file()
	if err != nil {
		return 0, err
	}
	return file.Read(p)
}

func (f *FsFile) ReadAt(p []byte, off int64) (int, error) {
	file, err := f.file()
	if err != nil {
		return 0, err
	}
	return file.ReadAt(p, off)
}

func (f *FsFile) Seek(offset int64, whence int) (int64, error) {
	file, err := f.file()
	if err != nil {
		return 0, err
	}
	return file.Seek(offset, whence)
}

func (f *FsFile) Write(p []byte) (int, error) {
	return 0, checkpoint.Wrap(syscall.EROFS, ErrUnsupported)
}

func (f *FsFile) WriteAt(p []byte, off int64) (int, error) {
	return 0, checkpoint.Wrap(syscall.EROFS, ErrUnsupported)
}

func (f *FsFile) Name() string {
	return f.entry.Name()
}

// readDir returns up to count entries without the dot entries.
// It behaves like os.File.ReadDir: for count > 0 io.EOF is only returned
// together with an empty result.
func (f *FsFile) readDir(count int) ([]Entry, error) {
	dir, ok := f.entry.AsDir()
	if !ok {
		return nil, checkpoint.Wrap(syscall.ENOTDIR, ErrReadDir)
	}

	if f.entries == nil {
		all, err := dir.ReadDir()
		if err != nil {
			return nil, err
		}

		f.entries = make([]Entry, 0, len(all))
		for _, entry := range all {
			if name := entry.Name(); name == "." || name == ".." {
				continue
			}
			f.entries = append(f.entries, entry)
		}
	}

	remaining := f.entries[f.offset:]
	if count <= 0 {
		f.offset = len(f.entries)
		return remaining, nil
	}

	if len(remaining) == 0 {
		return nil, io.EOF
	}
	if count > len(remaining) {
		count = len(remaining)
	}
	f.offset += count
	return remaining[:count], nil
}

// Readdir reads the contents of a directory.
// May return syscall.ENOTDIR if the current File is no directory.
func (f *FsFile) Readdir(count int) ([]os.FileInfo, error) {
	entries, err := f.readDir(count)

	result := make([]os.FileInfo, len(entries))
	for i := range entries {
		result[i] = entries[i].FileInfo()
	}

	return result, err
}

func (f *FsFile) Readdirnames(count int) ([]string, error) {
	entries, err := f.readDir(count)

	names := make([]string, len(entries))
	for i, entry := range entries {
		names[i] = entry.Name()
	}

	return names, err
}

func (f *FsFile) Stat() (os.FileInfo, error) {
	return f.entry.FileInfo(), nil
}

func (f *FsFile) Sync() error {
	return nil
}

func (f *FsFile) Truncate(size int64) error {
	return checkpoint.Wrap(syscall.EROFS, ErrUnsupported)
}

func (f *FsFile) WriteString(s string) (ret int, err error) {
	return f.Write([]byte(s))
}
