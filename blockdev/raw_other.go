//go:build !linux
// +build !linux

package blockdev

import (
	"fmt"
	"runtime"

	"github.com/aligator/vfat/checkpoint"
)

// Raw is only available on linux.
type Raw struct{}

// OpenRaw always fails on this platform. Use OpenImage instead.
func OpenRaw(path string) (*Raw, error) {
	return nil, checkpoint.Wrap(ErrInvalidInput, fmt.Errorf("raw devices are not supported on %v", runtime.GOOS))
}

func (r *Raw) SectorSize() uint64 { return DefaultSectorSize }

func (r *Raw) Sectors() uint64 { return 0 }

func (r *Raw) ReadSector(n uint64, buf []byte) (int, error) {
	return 0, checkpoint.From(ErrInvalidInput)
}

func (r *Raw) WriteSector(n uint64, buf []byte) (int, error) {
	return 0, checkpoint.From(ErrReadOnly)
}

func (r *Raw) Close() error { return nil }
