// Package mbr reads the master boot record (MBR) from sector 0 of a block device.
package mbr

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/aligator/vfat/blockdev"
	"github.com/aligator/vfat/checkpoint"
)

const (
	// Size is the size of the MBR in bytes.
	Size = 512
	// Signature is the magic value stored in the last two bytes of the MBR.
	Signature uint16 = 0xAA55

	diskIDOffset          = 436
	partitionTableOffset  = 446
	partitionEntrySize    = 16
	partitionEntriesCount = 4
	signatureOffset       = 510
)

// Boot indicators of a partition entry.
const (
	BootInactive uint8 = 0x00
	BootActive   uint8 = 0x80
)

// Partition types which identify a FAT32 partition.
const (
	TypeFAT32CHS uint8 = 0x0B
	TypeFAT32LBA uint8 = 0x0C
)

// These errors may occur while reading the MBR.
var (
	ErrBadSignature         = errors.New("bad MBR signature")
	ErrUnknownBootIndicator = errors.New("unknown boot indicator")
)

// UnknownBootIndicatorError names the partition entry with an invalid boot indicator.
type UnknownBootIndicatorError struct {
	// Index of the partition entry (0-3).
	Index     int
	Indicator uint8
}

func (e *UnknownBootIndicatorError) Error() string {
	return fmt.Sprintf("unknown boot indicator 0x%02X in partition %d", e.Indicator, e.Index)
}

func (e *UnknownBootIndicatorError) Is(target error) bool {
	return target == ErrUnknownBootIndicator
}

// CHS is a cylinder-head-sector address. It is only kept for completeness,
// the partition is always located by its LBA.
type CHS struct {
	Head     uint8
	Sector   uint8
	Cylinder uint8
}

// PartitionEntry is one of the four primary partition entries.
type PartitionEntry struct {
	Boot           uint8
	CHSStart       CHS
	Type           uint8
	CHSEnd         CHS
	RelativeSector uint32
	TotalSectors   uint32
}

// Bootable reports if the partition is marked as active.
func (p PartitionEntry) Bootable() bool {
	return p.Boot == BootActive
}

// IsFAT32 reports if the partition type is one of the FAT32 types.
func (p PartitionEntry) IsFAT32() bool {
	return p.Type == TypeFAT32CHS || p.Type == TypeFAT32LBA
}

func (p PartitionEntry) String() string {
	kind := "unknown"
	if p.IsFAT32() {
		kind = "FAT32"
	}
	return fmt.Sprintf("type=0x%02X (%s) boot=0x%02X start=%d sectors=%d", p.Type, kind, p.Boot, p.RelativeSector, p.TotalSectors)
}

// MasterBootRecord is the decoded sector 0 of a partitioned disk.
type MasterBootRecord struct {
	DiskID     [10]byte
	Partitions [partitionEntriesCount]PartitionEntry
	Signature  uint16
}

// Read reads and parses the MBR from sector 0 of device.
//
// Returns ErrBadSignature if the MBR contains an invalid magic signature and
// an *UnknownBootIndicatorError (matching ErrUnknownBootIndicator) if a partition
// contains an invalid boot indicator. I/O errors of the device are passed through.
func Read(device blockdev.BlockDevice) (*MasterBootRecord, error) {
	bufSize := device.SectorSize()
	if bufSize < Size {
		bufSize = Size
	}
	buf := make([]byte, bufSize)

	n, err := device.ReadSector(0, buf)
	if err != nil {
		return nil, checkpoint.Wrap(err, errors.New("could not read the MBR"))
	}
	if n < Size {
		return nil, checkpoint.Wrap(io.ErrUnexpectedEOF, fmt.Errorf("read only %d bytes of the MBR", n))
	}

	return Parse(buf[:Size])
}

// Parse decodes the MBR from the 512 bytes in b.
func Parse(b []byte) (*MasterBootRecord, error) {
	if len(b) < Size {
		return nil, checkpoint.Wrap(io.ErrUnexpectedEOF, fmt.Errorf("MBR has only %d bytes", len(b)))
	}

	record := &MasterBootRecord{
		Signature: binary.LittleEndian.Uint16(b[signatureOffset:]),
	}
	copy(record.DiskID[:], b[diskIDOffset:partitionTableOffset])

	if record.Signature != Signature {
		return nil, checkpoint.Wrap(ErrBadSignature, fmt.Errorf("found 0x%04X", record.Signature))
	}

	for i := range record.Partitions {
		start := partitionTableOffset + i*partitionEntrySize
		entry := parsePartitionEntry(b[start : start+partitionEntrySize])

		if entry.Boot != BootInactive && entry.Boot != BootActive {
			return nil, checkpoint.From(&UnknownBootIndicatorError{Index: i, Indicator: entry.Boot})
		}

		record.Partitions[i] = entry
	}

	return record, nil
}

func parsePartitionEntry(b []byte) PartitionEntry {
	return PartitionEntry{
		Boot:           b[0],
		CHSStart:       CHS{Head: b[1], Sector: b[2], Cylinder: b[3]},
		Type:           b[4],
		CHSEnd:         CHS{Head: b[5], Sector: b[6], Cylinder: b[7]},
		RelativeSector: binary.LittleEndian.Uint32(b[8:12]),
		TotalSectors:   binary.LittleEndian.Uint32(b[12:16]),
	}
}
