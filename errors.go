package vfat

import (
	"errors"
)

// Format errors. They are fatal for Mount.
var (
	ErrBadSignature      = errors.New("bad boot sector signature")
	ErrNotFAT32          = errors.New("partition is not a FAT32 partition")
	ErrZeroSectorsPerFAT = errors.New("sectors per FAT is zero")
	ErrInvalidGeometry   = errors.New("invalid filesystem geometry")
)

// Chain integrity errors. They are fatal for the operation which walked the chain.
var (
	ErrInvalidData          = errors.New("invalid data")
	ErrInvalidFATEntry      = errors.New("invalid FAT entry")
	ErrInvalidCluster       = errors.New("invalid cluster")
	ErrUnexpectedEndOfChain = errors.New("unexpected end of cluster chain")
	ErrCorruptFilesystem    = errors.New("corrupt filesystem: cluster chain exceeds the maximum length")
)

// Usage errors. They are expected and can be handled by the caller.
var (
	ErrOutOfRange   = errors.New("logical sector out of range")
	ErrInvalidSeek  = errors.New("could not seek inside of the file")
	ErrNotFound     = errors.New("entry not found")
	ErrNotDirectory = errors.New("not a directory")
	ErrUnsupported  = errors.New("operation not supported on a read only filesystem")
)
