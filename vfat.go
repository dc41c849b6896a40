// Package vfat implements a read only FAT32 filesystem on top of a block device.
//
// The filesystem is found by the first partition of the MBR. All files and
// directories of a mounted volume share one handle to the sector cache which
// serializes the access to it.
package vfat

import (
	"encoding/binary"
	"fmt"
	"io"
	"path"
	"strings"
	"sync"
	"syscall"

	"github.com/aligator/vfat/blockdev"
	"github.com/aligator/vfat/checkpoint"
	"github.com/aligator/vfat/mbr"
	"github.com/sirupsen/logrus"
)

// VFat is a mounted FAT32 volume.
type VFat struct {
	h        *handle
	bpb      BiosParameterBlock
	geometry Geometry
}

// handle is shared by all files and directories of a volume.
type handle struct {
	mu     sync.Mutex
	engine *engine
}

// lock runs fn while holding the lock of the volume.
// Keep fn short: it should fetch at most one cluster.
// Reading a whole directory chain is the only exception.
func (h *handle) lock(fn func(e *engine) error) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return fn(h.engine)
}

// engine resolves clusters to sectors and walks the FAT.
type engine struct {
	device *CachedPartition

	bytesPerSector    uint64
	sectorsPerCluster uint64
	fatStartSector    uint64
	fatSize           uint64
	dataStartSector   uint64
	rootCluster       Cluster
	maxHops           uint32

	log logrus.FieldLogger
}

// Mount reads the MBR and the BIOS parameter block of the first partition
// and returns the mounted volume.
//
// The first partition has to be of type mbr.TypeFAT32CHS or mbr.TypeFAT32LBA.
func Mount(device blockdev.BlockDevice, opts ...Option) (*VFat, error) {
	o := newOptions(opts)

	record, err := mbr.Read(device)
	if err != nil {
		return nil, checkpoint.From(err)
	}

	partition := record.Partitions[0]
	o.logger.WithField("partition", partition).Debug("selected the first partition")
	if !partition.IsFAT32() {
		return nil, checkpoint.Wrap(ErrNotFAT32, fmt.Errorf("partition 0 has the type 0x%02X", partition.Type))
	}

	bpb, err := ReadBiosParameterBlock(device, uint64(partition.RelativeSector))
	if err != nil {
		return nil, checkpoint.From(err)
	}
	if err := bpb.validate(); err != nil {
		return nil, err
	}

	geometry := newGeometry(bpb, partition, device.SectorSize())

	cache, err := NewCachedPartition(device, Partition{
		Start:      geometry.PartitionStart,
		NumSectors: geometry.PartitionSectors,
		SectorSize: uint64(geometry.BytesPerSector),
	}, o.cacheSize, o.logger)
	if err != nil {
		return nil, checkpoint.From(err)
	}

	maxHops := o.maxChainHops
	if maxHops == 0 {
		maxHops = geometry.FATEntries()
	}

	o.logger.WithFields(logrus.Fields{
		"partitionStart":    geometry.PartitionStart,
		"bytesPerSector":    geometry.BytesPerSector,
		"sectorsPerCluster": geometry.SectorsPerCluster,
		"fatStart":          geometry.FATStartSector,
		"dataStart":         geometry.DataStartSector,
		"rootCluster":       geometry.RootCluster,
	}).Debug("mounted FAT32 partition")

	return &VFat{
		h: &handle{
			engine: &engine{
				device:            cache,
				bytesPerSector:    uint64(geometry.BytesPerSector),
				sectorsPerCluster: uint64(geometry.SectorsPerCluster),
				fatStartSector:    geometry.FATStartSector,
				fatSize:           uint64(geometry.SectorsPerFAT) * uint64(geometry.BytesPerSector),
				dataStartSector:   geometry.DataStartSector,
				rootCluster:       geometry.RootCluster,
				maxHops:           maxHops,
				log:               o.logger,
			},
		},
		bpb:      *bpb,
		geometry: geometry,
	}, nil
}

// Geometry returns the layout of the volume.
func (v *VFat) Geometry() Geometry {
	return v.geometry
}

// BiosParameterBlock returns the parsed boot sector of the volume.
func (v *VFat) BiosParameterBlock() BiosParameterBlock {
	return v.bpb
}

// CacheStats returns the statistics of the sector cache.
func (v *VFat) CacheStats() CacheStats {
	v.h.mu.Lock()
	defer v.h.mu.Unlock()
	return v.h.engine.device.Stats()
}

// Label returns the volume label.
// The volume entry of the root directory is preferred over the label of the boot sector.
func (v *VFat) Label() string {
	var label string
	err := v.h.lock(func(e *engine) error {
		data, err := e.readChain(e.rootCluster)
		if err != nil {
			return err
		}
		label = volumeLabel(data)
		return nil
	})
	if err != nil {
		v.h.engine.log.WithError(err).Debug("could not read the volume entry")
	}

	if label == "" {
		label = v.bpb.Label()
	}
	if label == "" {
		label = "NO NAME"
	}
	return label
}

// Root returns the root directory.
func (v *VFat) Root() *Dir {
	return &Dir{
		h:            v.h,
		firstCluster: v.geometry.RootCluster,
		name:         "/",
		metadata:     Metadata{Attributes: AttrDirectory},
	}
}

// Open resolves the path starting at the root directory.
// The components are separated by '/' or '\' and compared case insensitive.
// Returns an error matching ErrNotFound if a component does not exist and
// ErrNotDirectory if a component other than the last one is a file.
func (v *VFat) Open(name string) (Entry, error) {
	entry := Entry{dir: v.Root()}
	for _, component := range splitPath(name) {
		dir, ok := entry.AsDir()
		if !ok {
			return Entry{}, checkpoint.Wrap(syscall.ENOTDIR, fmt.Errorf("%w: %v", ErrNotDirectory, entry.Name()))
		}

		next, err := dir.Find(component)
		if err != nil {
			return Entry{}, err
		}
		entry = next
	}

	return entry, nil
}

// splitPath returns the components of the cleaned absolute path.
// ".." above the root stays at the root.
func splitPath(name string) []string {
	cleaned := path.Clean("/" + strings.ReplaceAll(name, "\\", "/"))
	if cleaned == "/" {
		return nil
	}
	return strings.Split(cleaned[1:], "/")
}

func (e *engine) clusterSize() uint64 {
	return e.bytesPerSector * e.sectorsPerCluster
}

// fatEntry reads the FAT entry of the cluster from the first FAT.
func (e *engine) fatEntry(cluster Cluster) (FatEntry, error) {
	offset := uint64(cluster) * 4
	if offset+4 > e.fatSize {
		return 0, checkpoint.Wrap(ErrInvalidCluster, fmt.Errorf("cluster %v is outside of the FAT", cluster))
	}

	data, err := e.device.Get(e.fatStartSector + offset/e.bytesPerSector)
	if err != nil {
		return 0, checkpoint.From(err)
	}

	index := offset % e.bytesPerSector
	return FatEntry(binary.LittleEndian.Uint32(data[index : index+4])), nil
}

// clusterSector returns the first logical sector of the cluster.
func (e *engine) clusterSector(cluster Cluster) (uint64, error) {
	if cluster == endOfChain {
		return 0, checkpoint.Wrap(io.ErrUnexpectedEOF, ErrUnexpectedEndOfChain)
	}
	if cluster < firstDataCluster {
		return 0, checkpoint.Wrap(ErrInvalidCluster, fmt.Errorf("cluster %v has no data", cluster))
	}
	return e.dataStartSector + uint64(cluster-firstDataCluster)*e.sectorsPerCluster, nil
}

// readCluster copies the data of the cluster beginning at offset into buf.
// It stops at the end of the cluster and returns the number of copied bytes.
func (e *engine) readCluster(cluster Cluster, offset uint64, buf []byte) (int, error) {
	first, err := e.clusterSector(cluster)
	if err != nil {
		return 0, err
	}

	read := 0
	for read < len(buf) {
		pos := offset + uint64(read)
		index := pos / e.bytesPerSector
		if index >= e.sectorsPerCluster {
			break
		}

		data, err := e.device.Get(first + index)
		if err != nil {
			return read, checkpoint.From(err)
		}
		read += copy(buf[read:], data[pos%e.bytesPerSector:])
	}

	return read, nil
}

// chainError describes a FAT entry which may not be part of a chain.
func (e *engine) chainError(cluster Cluster, entry FatEntry) error {
	e.log.WithFields(logrus.Fields{
		"cluster": cluster,
		"entry":   entry,
	}).Debug("invalid FAT entry in cluster chain")
	return checkpoint.Wrap(ErrInvalidData, fmt.Errorf("%w: cluster %v is %v", ErrInvalidFATEntry, cluster, entry.Status()))
}

// readChain reads all clusters of the chain starting at start.
func (e *engine) readChain(start Cluster) ([]byte, error) {
	size := e.clusterSize()

	var data []byte
	cluster := start
	for hops := uint32(1); ; hops++ {
		if hops > e.maxHops {
			return nil, checkpoint.Wrap(ErrCorruptFilesystem, fmt.Errorf("chain starting at %v is longer than %d clusters", start, e.maxHops))
		}

		entry, err := e.fatEntry(cluster)
		if err != nil {
			return nil, err
		}

		switch entry.Status() {
		case StatusData, StatusEOC:
			used := len(data)
			data = append(data, make([]byte, size)...)
			n, err := e.readCluster(cluster, 0, data[used:])
			if err != nil {
				return nil, err
			}
			data = data[:used+n]
		default:
			return nil, e.chainError(cluster, entry)
		}

		if entry.Status() == StatusEOC {
			e.log.WithFields(logrus.Fields{
				"start":    start,
				"clusters": hops,
			}).Debug("read cluster chain")
			return data, nil
		}
		cluster = entry.Next()
	}
}

// findCluster walks offset / clusterSize hops along the chain beginning at start.
// It returns the reached cluster and the distance in bytes to start.
//
// If the chain ends exactly at the last hop, endOfChain is returned, which
// is the position right behind the chain. Ending earlier fails with
// ErrUnexpectedEndOfChain.
func (e *engine) findCluster(start Cluster, offset uint64) (Cluster, uint64, error) {
	size := e.clusterSize()
	hops := offset / size

	cluster := start
	for i := uint64(0); i < hops; i++ {
		if i >= uint64(e.maxHops) {
			return 0, 0, checkpoint.Wrap(ErrCorruptFilesystem, fmt.Errorf("chain starting at %v is longer than %d clusters", start, e.maxHops))
		}

		entry, err := e.fatEntry(cluster)
		if err != nil {
			return 0, 0, err
		}

		switch entry.Status() {
		case StatusData:
			cluster = entry.Next()
		case StatusEOC:
			if i+1 != hops {
				return 0, 0, checkpoint.Wrap(io.ErrUnexpectedEOF, fmt.Errorf("%w: chain starting at %v ends after %d clusters", ErrUnexpectedEndOfChain, start, i+1))
			}
			cluster = endOfChain
		default:
			return 0, 0, e.chainError(cluster, entry)
		}
	}

	return cluster, hops * size, nil
}
