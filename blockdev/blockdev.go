// Package blockdev provides the sector level devices a FAT32 volume is read from.
//
// A BlockDevice only transfers bytes. It knows nothing about partitions or
// filesystems; the vfat package adds all semantics on top of it.
package blockdev

import (
	"errors"
)

// DefaultSectorSize is the sector size of SD cards and of nearly every disk image.
const DefaultSectorSize = 512

// These errors may be returned by a BlockDevice.
var (
	ErrInvalidInput = errors.New("invalid input")
	ErrTimedOut     = errors.New("device timed out")
	ErrReadOnly     = errors.New("device is read only")
)

// BlockDevice is a device which can be read sector by sector.
// Generated mock using mockgen:
//  mockgen -source=blockdev.go -destination=blockdev_mock.go -package blockdev
type BlockDevice interface {
	// SectorSize returns the size of one device sector in bytes.
	SectorSize() uint64

	// ReadSector reads sector n into buf and returns the number of bytes read.
	// buf must be at least SectorSize() bytes long.
	ReadSector(n uint64, buf []byte) (int, error)

	// WriteSector writes buf to sector n.
	WriteSector(n uint64, buf []byte) (int, error)
}
