package vfat

import (
	"fmt"
	"io"

	"github.com/aligator/vfat/blockdev"
	"github.com/aligator/vfat/checkpoint"
	lru "github.com/hashicorp/golang-lru"
	"github.com/sirupsen/logrus"
)

// Partition describes where a filesystem is located on a block device.
type Partition struct {
	// Start is the first device sector of the partition.
	Start uint64
	// NumSectors is the number of logical sectors of the partition.
	NumSectors uint64
	// SectorSize is the size of one logical sector in bytes.
	// It may differ from the sector size of the device.
	SectorSize uint64
}

// CacheStats counts the work of a CachedPartition.
type CacheStats struct {
	Hits     uint64
	Misses   uint64
	Resident int
}

// CachedPartition provides the logical sectors of a partition.
// It keeps the most recently used sectors in memory so that FAT and directory
// sectors which are needed again and again are only read once from the device.
//
// It is not safe for concurrent use. The VFat lock guards it.
type CachedPartition struct {
	device    blockdev.BlockDevice
	partition Partition
	sectors   *lru.Cache
	stats     CacheStats
	log       logrus.FieldLogger

	// buffer for one device sector
	buf []byte
}

// NewCachedPartition creates a cache of size sectors for partition on device.
func NewCachedPartition(device blockdev.BlockDevice, partition Partition, size int, log logrus.FieldLogger) (*CachedPartition, error) {
	deviceSectorSize := device.SectorSize()
	if deviceSectorSize == 0 || partition.SectorSize == 0 {
		return nil, checkpoint.Wrap(ErrInvalidGeometry, fmt.Errorf("sector size 0 (device %v, partition %v)", deviceSectorSize, partition.SectorSize))
	}

	sectors, err := lru.New(size)
	if err != nil {
		return nil, checkpoint.Wrap(err, fmt.Errorf("could not create a sector cache of size %v", size))
	}

	bufSize := deviceSectorSize
	if bufSize < blockdev.DefaultSectorSize {
		bufSize = blockdev.DefaultSectorSize
	}

	return &CachedPartition{
		device:    device,
		partition: partition,
		sectors:   sectors,
		log:       log,
		buf:       make([]byte, bufSize),
	}, nil
}

// Get returns the content of the logical sector.
// The returned slice is shared with the cache and must not be modified.
func (c *CachedPartition) Get(sector uint64) ([]byte, error) {
	if sector >= c.partition.NumSectors {
		return nil, checkpoint.Wrap(ErrOutOfRange, fmt.Errorf("sector %v, partition has %v sectors", sector, c.partition.NumSectors))
	}

	if data, ok := c.sectors.Get(sector); ok {
		c.stats.Hits++
		return data.([]byte), nil
	}

	c.stats.Misses++
	c.log.WithField("sector", sector).Debug("sector cache miss")

	data, err := c.load(sector)
	if err != nil {
		return nil, err
	}

	c.sectors.Add(sector, data)
	return data, nil
}

// load reads all device sectors which overlap the logical sector.
func (c *CachedPartition) load(sector uint64) ([]byte, error) {
	deviceSectorSize := c.device.SectorSize()
	data := make([]byte, c.partition.SectorSize)

	offset := c.partition.Start*deviceSectorSize + sector*c.partition.SectorSize
	deviceSector := offset / deviceSectorSize
	skip := offset % deviceSectorSize

	for copied := 0; copied < len(data); deviceSector++ {
		n, err := c.device.ReadSector(deviceSector, c.buf)
		if err != nil {
			return nil, checkpoint.From(err)
		}
		if uint64(n) < deviceSectorSize {
			return nil, checkpoint.Wrap(io.ErrUnexpectedEOF, fmt.Errorf("read only %v bytes of device sector %v", n, deviceSector))
		}

		copied += copy(data[copied:], c.buf[skip:deviceSectorSize])
		skip = 0
	}

	return data, nil
}

// Stats returns the current cache statistics.
func (c *CachedPartition) Stats() CacheStats {
	stats := c.stats
	stats.Resident = c.sectors.Len()
	return stats
}
