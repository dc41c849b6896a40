package blockdev

import (
	"errors"
	"fmt"
	"io"

	"github.com/aligator/vfat/checkpoint"
	"golang.org/x/sys/unix"
)

// Raw reads sectors directly from a block device node such as /dev/mmcblk0.
// Regular files are accepted as well.
type Raw struct {
	fd      int
	sectors uint64
}

// OpenRaw opens the device at path read only.
func OpenRaw(path string) (*Raw, error) {
	fd, err := unix.Open(path, unix.O_RDONLY|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, checkpoint.Wrap(err, fmt.Errorf("could not open %v", path))
	}

	size, err := deviceSize(fd)
	if err != nil {
		unix.Close(fd)
		return nil, checkpoint.Wrap(err, fmt.Errorf("could not get the size of %v", path))
	}

	return &Raw{
		fd:      fd,
		sectors: size / DefaultSectorSize,
	}, nil
}

// deviceSize seeks to the end of fd. Unlike stat this also reports the size of block devices.
func deviceSize(fd int) (uint64, error) {
	size, err := unix.Seek(fd, 0, io.SeekEnd)
	if err != nil {
		return 0, err
	}
	return uint64(size), nil
}

// SectorSize implements BlockDevice.
func (r *Raw) SectorSize() uint64 {
	return DefaultSectorSize
}

// Sectors returns the number of whole sectors of the device.
func (r *Raw) Sectors() uint64 {
	return r.sectors
}

// ReadSector implements BlockDevice.
func (r *Raw) ReadSector(n uint64, buf []byte) (int, error) {
	if len(buf) < DefaultSectorSize {
		return 0, checkpoint.Wrap(ErrInvalidInput, fmt.Errorf("buffer of %v bytes is smaller than a sector", len(buf)))
	}

	if n >= r.sectors {
		return 0, checkpoint.Wrap(ErrInvalidInput, fmt.Errorf("sector %v is beyond the last sector %v", n, r.sectors))
	}

	read, err := unix.Pread(r.fd, buf[:DefaultSectorSize], int64(n*DefaultSectorSize))
	if err != nil {
		if errors.Is(err, unix.ETIMEDOUT) {
			return 0, checkpoint.Wrap(err, ErrTimedOut)
		}
		return 0, checkpoint.From(err)
	}

	if read != DefaultSectorSize {
		return read, checkpoint.Wrap(unix.EIO, fmt.Errorf("short read of sector %v: %v bytes", n, read))
	}
	return read, nil
}

// WriteSector always fails as the device is opened read only.
func (r *Raw) WriteSector(n uint64, buf []byte) (int, error) {
	return 0, checkpoint.From(ErrReadOnly)
}

// Close releases the device.
func (r *Raw) Close() error {
	return unix.Close(r.fd)
}
