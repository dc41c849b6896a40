// File model contains the structures of the FAT32 filesystem as they are stored on disk.
// They are always decoded field by field from their little endian byte offsets.

package vfat

import (
	"encoding/binary"
	"strings"
)

const (
	bootSectorSize        = 512
	bootSignature  uint16 = 0xAA55

	dirEntrySize = 32

	// The first byte of a directory entry.
	entryEndOfDirectory = 0x00
	entryDeleted        = 0xE5
	// entryKanjiE5 is stored instead of a real leading 0xE5 of a short name.
	entryKanjiE5 = 0x05

	// NT flags in the reserved byte of a regular entry.
	ntLowerCaseBase      = 0x08
	ntLowerCaseExtension = 0x10

	lfnSequenceMask = 0x1F
	lfnCharsPerSlot = 13
)

// BiosParameterBlock is the FAT32 extended BIOS parameter block stored in the
// first sector of the partition.
type BiosParameterBlock struct {
	OEMName           [8]byte
	BytesPerSector    uint16
	SectorsPerCluster uint8
	ReservedSectors   uint16
	NumFATs           uint8
	RootEntryCount    uint16
	TotalSectors16    uint16
	Media             uint8
	SectorsPerFAT16   uint16
	SectorsPerTrack   uint16
	NumberOfHeads     uint16
	HiddenSectors     uint32
	TotalSectors32    uint32

	// FAT32 specific part.
	SectorsPerFAT    uint32
	ExtFlags         uint16
	FSVersion        uint16
	RootCluster      uint32
	FSInfoSector     uint16
	BackupBootSector uint16
	DriveNumber      uint8
	BootSignature    uint8
	VolumeID         uint32
	VolumeLabel      [11]byte
	FileSystemType   [8]byte

	Signature uint16
}

func parseBiosParameterBlock(b []byte) BiosParameterBlock {
	bpb := BiosParameterBlock{
		BytesPerSector:    binary.LittleEndian.Uint16(b[0x0B:]),
		SectorsPerCluster: b[0x0D],
		ReservedSectors:   binary.LittleEndian.Uint16(b[0x0E:]),
		NumFATs:           b[0x10],
		RootEntryCount:    binary.LittleEndian.Uint16(b[0x11:]),
		TotalSectors16:    binary.LittleEndian.Uint16(b[0x13:]),
		Media:             b[0x15],
		SectorsPerFAT16:   binary.LittleEndian.Uint16(b[0x16:]),
		SectorsPerTrack:   binary.LittleEndian.Uint16(b[0x18:]),
		NumberOfHeads:     binary.LittleEndian.Uint16(b[0x1A:]),
		HiddenSectors:     binary.LittleEndian.Uint32(b[0x1C:]),
		TotalSectors32:    binary.LittleEndian.Uint32(b[0x20:]),
		SectorsPerFAT:     binary.LittleEndian.Uint32(b[0x24:]),
		ExtFlags:          binary.LittleEndian.Uint16(b[0x28:]),
		FSVersion:         binary.LittleEndian.Uint16(b[0x2A:]),
		RootCluster:       binary.LittleEndian.Uint32(b[0x2C:]),
		FSInfoSector:      binary.LittleEndian.Uint16(b[0x30:]),
		BackupBootSector:  binary.LittleEndian.Uint16(b[0x32:]),
		DriveNumber:       b[0x40],
		BootSignature:     b[0x42],
		VolumeID:          binary.LittleEndian.Uint32(b[0x43:]),
		Signature:         binary.LittleEndian.Uint16(b[0x1FE:]),
	}
	copy(bpb.OEMName[:], b[0x03:0x0B])
	copy(bpb.VolumeLabel[:], b[0x47:0x52])
	copy(bpb.FileSystemType[:], b[0x52:0x5A])
	return bpb
}

// Label returns the trimmed volume label.
func (bpb BiosParameterBlock) Label() string {
	return strings.TrimRight(string(bpb.VolumeLabel[:]), " \x00")
}

// unknownDirEntry only holds the fields needed to find out the kind of a directory entry.
type unknownDirEntry struct {
	info uint8
	attr Attributes
}

func parseUnknownDirEntry(b []byte) unknownDirEntry {
	return unknownDirEntry{
		info: b[0],
		attr: Attributes(b[11]),
	}
}

func (e unknownDirEntry) isEndOfDirectory() bool {
	return e.info == entryEndOfDirectory
}

func (e unknownDirEntry) isDeleted() bool {
	return e.info == entryDeleted
}

func (e unknownDirEntry) isLongFilename() bool {
	return e.attr == AttrLongName
}

func (e unknownDirEntry) isVolumeID() bool {
	return e.attr&AttrVolumeID != 0 && !e.isLongFilename()
}

// regularDirEntry is a short (8.3) directory entry.
type regularDirEntry struct {
	name         [8]byte
	ext          [3]byte
	attr         Attributes
	ntFlags      uint8
	createTenths uint8
	createTime   Time
	createDate   Date
	accessDate   Date
	clusterHigh  uint16
	modTime      Time
	modDate      Date
	clusterLow   uint16
	fileSize     uint32
}

func parseRegularDirEntry(b []byte) regularDirEntry {
	e := regularDirEntry{
		attr:         Attributes(b[11]),
		ntFlags:      b[12],
		createTenths: b[13],
		createTime:   Time(binary.LittleEndian.Uint16(b[14:])),
		createDate:   Date(binary.LittleEndian.Uint16(b[16:])),
		accessDate:   Date(binary.LittleEndian.Uint16(b[18:])),
		clusterHigh:  binary.LittleEndian.Uint16(b[20:]),
		modTime:      Time(binary.LittleEndian.Uint16(b[22:])),
		modDate:      Date(binary.LittleEndian.Uint16(b[24:])),
		clusterLow:   binary.LittleEndian.Uint16(b[26:]),
		fileSize:     binary.LittleEndian.Uint32(b[28:]),
	}
	copy(e.name[:], b[0:8])
	copy(e.ext[:], b[8:11])
	return e
}

func (e regularDirEntry) cluster() Cluster {
	return Cluster(uint32(e.clusterHigh)<<16 | uint32(e.clusterLow))
}

// shortName builds the name out of the 8.3 name fields.
// Directories never get an extension.
func (e regularDirEntry) shortName() string {
	nameBytes := e.name
	if nameBytes[0] == entryKanjiE5 {
		nameBytes[0] = entryDeleted
	}

	name := strings.TrimRight(string(nameBytes[:]), " \x00")
	if e.ntFlags&ntLowerCaseBase != 0 {
		name = strings.ToLower(name)
	}

	if e.attr.IsDir() {
		return name
	}

	ext := strings.TrimRight(string(e.ext[:]), " \x00")
	if ext == "" {
		return name
	}
	if e.ntFlags&ntLowerCaseExtension != 0 {
		ext = strings.ToLower(ext)
	}

	return name + "." + ext
}

func (e regularDirEntry) metadata() Metadata {
	return Metadata{
		Attributes:    e.attr,
		Created:       Timestamp{Date: e.createDate, Time: e.createTime},
		CreatedTenths: e.createTenths,
		Accessed:      Timestamp{Date: e.accessDate},
		Modified:      Timestamp{Date: e.modDate, Time: e.modTime},
		Size:          e.fileSize,
	}
}

// lfnDirEntry is one fragment of a long file name.
type lfnDirEntry struct {
	sequence uint8
	name1    [5]uint16
	attr     Attributes
	kind     uint8
	checksum uint8
	name2    [6]uint16
	name3    [2]uint16
}

func parseLFNDirEntry(b []byte) lfnDirEntry {
	e := lfnDirEntry{
		sequence: b[0],
		attr:     Attributes(b[11]),
		kind:     b[12],
		checksum: b[13],
	}
	for i := range e.name1 {
		e.name1[i] = binary.LittleEndian.Uint16(b[1+i*2:])
	}
	for i := range e.name2 {
		e.name2[i] = binary.LittleEndian.Uint16(b[14+i*2:])
	}
	for i := range e.name3 {
		e.name3[i] = binary.LittleEndian.Uint16(b[28+i*2:])
	}
	return e
}

// position is the 1-based position of the fragment in the full name.
func (e lfnDirEntry) position() int {
	return int(e.sequence & lfnSequenceMask)
}

// appendChars appends the 13 UTF-16 code units of the fragment in field order.
func (e lfnDirEntry) appendChars(chars []uint16) []uint16 {
	chars = append(chars, e.name1[:]...)
	chars = append(chars, e.name2[:]...)
	return append(chars, e.name3[:]...)
}
