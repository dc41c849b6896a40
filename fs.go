package vfat

import (
	"os"
	"syscall"
	"time"

	"github.com/aligator/vfat/blockdev"
	"github.com/aligator/vfat/checkpoint"
	"github.com/spf13/afero"
)

// Fs provides a mounted volume as read only afero.Fs.
// All methods which would modify the filesystem fail with ErrUnsupported.
type Fs struct {
	vfat *VFat
}

// New mounts the FAT32 filesystem of the device and returns it as afero.Fs.
func New(device blockdev.BlockDevice, opts ...Option) (*Fs, error) {
	v, err := Mount(device, opts...)
	if err != nil {
		return nil, err
	}

	return NewFs(v), nil
}

// NewFs wraps an already mounted volume.
func NewFs(v *VFat) *Fs {
	return &Fs{vfat: v}
}

// VFat returns the underlying volume.
func (fs *Fs) VFat() *VFat {
	return fs.vfat
}

func (fs *Fs) Label() string {
	return fs.vfat.Label()
}

func unsupported(op, name string) error {
	return &os.PathError{Op: op, Path: name, Err: checkpoint.Wrap(syscall.EROFS, ErrUnsupported)}
}

func (fs *Fs) Create(name string) (afero.File, error) {
	return nil, unsupported("create", name)
}

func (fs *Fs) Mkdir(name string, perm os.FileMode) error {
	return unsupported("mkdir", name)
}

func (fs *Fs) MkdirAll(path string, perm os.FileMode) error {
	return unsupported("mkdir", path)
}

// Open opens the file or directory.
// The returned afero.File is always a *FsFile.
func (fs *Fs) Open(name string) (afero.File, error) {
	entry, err := fs.vfat.Open(name)
	if err != nil {
		return nil, &os.PathError{Op: "open", Path: name, Err: err}
	}

	return newFsFile(entry), nil
}

// OpenFile only supports os.O_RDONLY.
func (fs *Fs) OpenFile(name string, flag int, perm os.FileMode) (afero.File, error) {
	if flag&(os.O_WRONLY|os.O_RDWR|os.O_CREATE|os.O_TRUNC|os.O_APPEND) != 0 {
		return nil, unsupported("open", name)
	}
	return fs.Open(name)
}

func (fs *Fs) Remove(name string) error {
	return unsupported("remove", name)
}

func (fs *Fs) RemoveAll(path string) error {
	return unsupported("remove", path)
}

func (fs *Fs) Rename(oldname, newname string) error {
	return unsupported("rename", oldname)
}

func (fs *Fs) Stat(name string) (os.FileInfo, error) {
	entry, err := fs.vfat.Open(name)
	if err != nil {
		return nil, &os.PathError{Op: "stat", Path: name, Err: err}
	}

	return entry.FileInfo(), nil
}

func (fs *Fs) Name() string {
	return "FAT32"
}

func (fs *Fs) Chmod(name string, mode os.FileMode) error {
	return unsupported("chmod", name)
}

func (fs *Fs) Chown(name string, uid, gid int) error {
	return unsupported("chown", name)
}

func (fs *Fs) Chtimes(name string, atime time.Time, mtime time.Time) error {
	return unsupported("chtimes", name)
}
