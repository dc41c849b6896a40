package vfat

import (
	"errors"
	"fmt"
	"io"
	"os"
	"syscall"

	"github.com/aligator/vfat/checkpoint"
)

// ErrReadFile is returned if a file cannot be read completely.
var ErrReadFile = errors.New("could not read file completely")

// File is a regular file of a mounted volume.
// It keeps a cursor which is moved by Read and Seek.
//
// A File is not safe for concurrent use, but different Files of the same
// volume can be used concurrently.
type File struct {
	h *handle

	name     string
	metadata Metadata
	start    Cluster
	size     uint64

	// pointer is the cursor position in bytes.
	pointer uint64
	// currentCluster contains the byte currentClusterStart of the file.
	currentCluster      Cluster
	currentClusterStart uint64
}

func newFile(h *handle, name string, metadata Metadata, start Cluster) *File {
	return &File{
		h:              h,
		name:           name,
		metadata:       metadata,
		start:          start,
		size:           uint64(metadata.Size),
		currentCluster: start,
	}
}

func (f *File) Name() string {
	return f.name
}

func (f *File) Metadata() Metadata {
	return f.metadata
}

// Size returns the file size in bytes.
func (f *File) Size() int64 {
	return int64(f.size)
}

// Cluster returns the first cluster of the file.
func (f *File) Cluster() Cluster {
	return f.start
}

// Read reads up to len(p) bytes from the cursor position and moves the cursor.
// At the end of the file it returns 0, io.EOF.
func (f *File) Read(p []byte) (int, error) {
	if f.h == nil {
		return 0, checkpoint.From(os.ErrClosed)
	}
	if len(p) == 0 {
		return 0, nil
	}
	if f.pointer >= f.size {
		return 0, io.EOF
	}

	if remaining := f.size - f.pointer; uint64(len(p)) > remaining {
		p = p[:remaining]
	}

	n, cluster, clusterStart, err := f.readAt(p, f.pointer, f.currentCluster, f.currentClusterStart)
	f.pointer += uint64(n)
	f.currentCluster = cluster
	f.currentClusterStart = clusterStart
	if err != nil {
		return n, checkpoint.Wrap(err, ErrReadFile)
	}

	return n, nil
}

// ReadAt reads len(p) bytes beginning at off. It does not move the cursor.
// If less than len(p) bytes are available it returns io.EOF.
func (f *File) ReadAt(p []byte, off int64) (int, error) {
	if f.h == nil {
		return 0, checkpoint.From(os.ErrClosed)
	}
	if off < 0 {
		return 0, checkpoint.Wrap(syscall.EINVAL, fmt.Errorf("%w, offset: %v", ErrInvalidSeek, off))
	}
	if uint64(off) >= f.size {
		return 0, io.EOF
	}

	want := len(p)
	if remaining := f.size - uint64(off); uint64(want) > remaining {
		p = p[:remaining]
	}

	n, _, _, err := f.readAt(p, uint64(off), f.start, 0)
	if err != nil {
		return n, checkpoint.Wrap(err, ErrReadFile)
	}
	if n < want {
		return n, io.EOF
	}
	return n, nil
}

// readAt fills p with the data starting at pos.
// cluster has to be a cluster of the file which starts at clusterStart <= pos.
// It returns the cluster containing the position behind the read data.
func (f *File) readAt(p []byte, pos uint64, cluster Cluster, clusterStart uint64) (int, Cluster, uint64, error) {
	// After a seek the cursor may be some clusters ahead.
	err := f.h.lock(func(e *engine) error {
		next, offset, err := e.findCluster(cluster, pos-clusterStart)
		if err != nil {
			return err
		}
		cluster = next
		clusterStart += offset
		return nil
	})
	if err != nil {
		return 0, cluster, clusterStart, err
	}

	n := 0
	for n < len(p) {
		var read int
		err := f.h.lock(func(e *engine) error {
			var err error
			read, err = e.readCluster(cluster, pos-clusterStart, p[n:])
			return err
		})
		n += read
		pos += uint64(read)
		if err != nil {
			return n, cluster, clusterStart, err
		}
		if read == 0 {
			break
		}

		err = f.h.lock(func(e *engine) error {
			next, offset, err := e.findCluster(cluster, pos-clusterStart)
			if err != nil {
				return err
			}
			cluster = next
			clusterStart += offset
			return nil
		})
		if err != nil {
			return n, cluster, clusterStart, err
		}
	}

	return n, cluster, clusterStart, nil
}

// Seek moves the cursor. The new position has to be inside of the file,
// which means that it is not possible to seek to the end of it.
// Returns an error matching ErrInvalidSeek and syscall.EINVAL otherwise.
func (f *File) Seek(offset int64, whence int) (int64, error) {
	var target int64
	switch whence {
	case io.SeekStart:
		target = offset
	case io.SeekCurrent:
		target = int64(f.pointer) + offset
	case io.SeekEnd:
		target = int64(f.size) + offset
	default:
		return 0, checkpoint.Wrap(syscall.EINVAL, fmt.Errorf("%w, offset: %v, whence: %v", ErrInvalidSeek, offset, whence))
	}

	if target < 0 || uint64(target) >= f.size {
		return 0, checkpoint.Wrap(syscall.EINVAL, fmt.Errorf("%w, offset: %v, whence: %v, size: %v", ErrInvalidSeek, offset, whence, f.size))
	}

	f.pointer = uint64(target)

	// The chain can only be walked forward.
	if f.pointer < f.currentClusterStart {
		f.currentCluster = f.start
		f.currentClusterStart = 0
	}

	return target, nil
}

// Write is not supported.
func (f *File) Write(p []byte) (int, error) {
	return 0, checkpoint.Wrap(syscall.EROFS, ErrUnsupported)
}

// WriteAt is not supported.
func (f *File) WriteAt(p []byte, off int64) (int, error) {
	return 0, checkpoint.Wrap(syscall.EROFS, ErrUnsupported)
}

// Close releases the reference to the volume. Reading afterwards fails with os.ErrClosed.
func (f *File) Close() error {
	f.h = nil
	f.pointer = 0
	f.currentCluster = f.start
	f.currentClusterStart = 0
	return nil
}
