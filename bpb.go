package vfat

import (
	"errors"
	"fmt"
	"io"

	"github.com/aligator/vfat/blockdev"
	"github.com/aligator/vfat/checkpoint"
	"github.com/aligator/vfat/mbr"
)

// ReadBiosParameterBlock reads the FAT32 extended BIOS parameter block from
// the device sector.
//
// Returns ErrBadSignature if the boot sector signature is invalid and
// ErrZeroSectorsPerFAT if the FAT has no sectors.
func ReadBiosParameterBlock(device blockdev.BlockDevice, sector uint64) (*BiosParameterBlock, error) {
	bufSize := device.SectorSize()
	if bufSize < bootSectorSize {
		bufSize = bootSectorSize
	}
	buf := make([]byte, bufSize)

	n, err := device.ReadSector(sector, buf)
	if err != nil {
		return nil, checkpoint.Wrap(err, errors.New("could not read the boot sector"))
	}
	if n < bootSectorSize {
		return nil, checkpoint.Wrap(io.ErrUnexpectedEOF, fmt.Errorf("read only %d bytes of the boot sector", n))
	}

	bpb := parseBiosParameterBlock(buf[:bootSectorSize])
	if bpb.Signature != bootSignature {
		return nil, checkpoint.Wrap(ErrBadSignature, fmt.Errorf("found 0x%04X in sector %v", bpb.Signature, sector))
	}

	// A FAT32 volume cannot have a FAT without sectors.
	if bpb.SectorsPerFAT == 0 {
		return nil, checkpoint.From(ErrZeroSectorsPerFAT)
	}

	return &bpb, nil
}

// validate checks the values which are needed to compute the geometry.
func (bpb *BiosParameterBlock) validate() error {
	// FAT only supports 512, 1024, 2048 and 4096.
	switch bpb.BytesPerSector {
	case 512, 1024, 2048, 4096:
	default:
		return checkpoint.Wrap(ErrInvalidGeometry, fmt.Errorf("invalid sector size %v", bpb.BytesPerSector))
	}

	// Sectors per cluster has to be a power of two and greater than 0.
	if bpb.SectorsPerCluster == 0 || bpb.SectorsPerCluster&(bpb.SectorsPerCluster-1) != 0 {
		return checkpoint.Wrap(ErrInvalidGeometry, fmt.Errorf("invalid sectors per cluster %v", bpb.SectorsPerCluster))
	}

	if bpb.NumFATs == 0 {
		return checkpoint.Wrap(ErrInvalidGeometry, errors.New("no FAT"))
	}

	if Cluster(bpb.RootCluster) < firstDataCluster {
		return checkpoint.Wrap(ErrInvalidGeometry, fmt.Errorf("invalid root cluster %v", bpb.RootCluster))
	}

	return nil
}

// Geometry describes the layout of a mounted FAT32 partition.
// All sector numbers are logical sectors relative to the partition start.
type Geometry struct {
	BytesPerSector    uint16
	SectorsPerCluster uint8
	ReservedSectors   uint16
	NumFATs           uint8
	SectorsPerFAT     uint32
	RootCluster       Cluster

	FATStartSector  uint64
	DataStartSector uint64

	// PartitionStart is the first device sector of the partition.
	PartitionStart uint64
	// PartitionSectors is the number of logical sectors of the partition.
	PartitionSectors uint64
}

func newGeometry(bpb *BiosParameterBlock, partition mbr.PartitionEntry, deviceSectorSize uint64) Geometry {
	g := Geometry{
		BytesPerSector:    bpb.BytesPerSector,
		SectorsPerCluster: bpb.SectorsPerCluster,
		ReservedSectors:   bpb.ReservedSectors,
		NumFATs:           bpb.NumFATs,
		SectorsPerFAT:     bpb.SectorsPerFAT,
		RootCluster:       Cluster(bpb.RootCluster),
		PartitionStart:    uint64(partition.RelativeSector),
	}

	g.FATStartSector = uint64(bpb.ReservedSectors)
	g.DataStartSector = g.FATStartSector + uint64(bpb.SectorsPerFAT)*uint64(bpb.NumFATs)

	// The partition entry counts device sectors.
	g.PartitionSectors = uint64(partition.TotalSectors) * deviceSectorSize / uint64(bpb.BytesPerSector)
	if g.PartitionSectors == 0 {
		g.PartitionSectors = uint64(bpb.TotalSectors32)
		if g.PartitionSectors == 0 {
			g.PartitionSectors = uint64(bpb.TotalSectors16)
		}
	}

	return g
}

// ClusterSize returns the size of a cluster in bytes.
func (g Geometry) ClusterSize() uint64 {
	return uint64(g.BytesPerSector) * uint64(g.SectorsPerCluster)
}

// FATEntries returns the number of entries one FAT can hold.
// Cluster numbers are 28 bits wide, so bigger FATs are capped at fatEntryMask.
func (g Geometry) FATEntries() uint32 {
	entries := uint64(g.SectorsPerFAT) * uint64(g.BytesPerSector) / 4
	if entries > fatEntryMask {
		return fatEntryMask
	}
	return uint32(entries)
}
