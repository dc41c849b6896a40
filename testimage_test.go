package vfat

import (
	"encoding/binary"
	"testing"
	"unicode/utf16"

	"github.com/aligator/vfat/blockdev"
	diskmbr "github.com/diskfs/go-diskfs/partition/mbr"
	"github.com/spf13/afero"
)

const (
	testPartitionStart = 64
	testReserved       = 32
	testNumFATs        = 2
	testSectorsPerFAT  = 8
	testSectors        = 4096
)

// testImage builds a small FAT32 disk image in memory.
// Clusters are handed out consecutively, so every chain is contiguous
// unless the FAT is modified afterwards.
type testImage struct {
	t *testing.T

	bytesPerSector    int
	sectorsPerCluster int
	partitionType     diskmbr.Type
	// diskHook may modify the disk after the MBR and the partition are written.
	diskHook func(file afero.File) error

	// partition contains the whole filesystem. The BPB is at partition[:512].
	partition   []byte
	nextCluster Cluster
}

func newTestImage(t *testing.T, bytesPerSector, sectorsPerCluster int) *testImage {
	t.Helper()

	img := &testImage{
		t:                 t,
		bytesPerSector:    bytesPerSector,
		sectorsPerCluster: sectorsPerCluster,
		partitionType:     diskmbr.Fat32LBA,
		partition:         make([]byte, testSectors*bytesPerSector),
		nextCluster:       firstDataCluster,
	}

	b := img.partition
	copy(b[0:], []byte{0xEB, 0x58, 0x90})
	copy(b[0x03:], "MSWIN4.1")
	binary.LittleEndian.PutUint16(b[0x0B:], uint16(bytesPerSector))
	b[0x0D] = uint8(sectorsPerCluster)
	binary.LittleEndian.PutUint16(b[0x0E:], testReserved)
	b[0x10] = testNumFATs
	b[0x15] = 0xF8
	binary.LittleEndian.PutUint32(b[0x20:], testSectors)
	binary.LittleEndian.PutUint32(b[0x24:], testSectorsPerFAT)
	binary.LittleEndian.PutUint32(b[0x2C:], uint32(firstDataCluster))
	b[0x42] = 0x29
	copy(b[0x47:], "BPB LABEL  ")
	copy(b[0x52:], "FAT32   ")
	binary.LittleEndian.PutUint16(b[0x1FE:], bootSignature)

	img.setFAT(0, 0x0FFFFFF8)
	img.setFAT(1, 0x0FFFFFFF)

	// The root directory.
	img.allocate(img.clusterSize())
	return img
}

func (img *testImage) clusterSize() int {
	return img.bytesPerSector * img.sectorsPerCluster
}

// setFAT writes the entry into all FATs.
func (img *testImage) setFAT(c Cluster, value uint32) {
	for i := 0; i < testNumFATs; i++ {
		offset := (testReserved+i*testSectorsPerFAT)*img.bytesPerSector + int(c)*4
		binary.LittleEndian.PutUint32(img.partition[offset:], value)
	}
}

func (img *testImage) clusterOffset(c Cluster) int {
	dataStart := testReserved + testNumFATs*testSectorsPerFAT
	return (dataStart + int(c-firstDataCluster)*img.sectorsPerCluster) * img.bytesPerSector
}

// allocate reserves a chain which can hold size bytes, at least one cluster.
func (img *testImage) allocate(size int) Cluster {
	clusters := (size + img.clusterSize() - 1) / img.clusterSize()
	if clusters == 0 {
		clusters = 1
	}

	start := img.nextCluster
	for i := 0; i < clusters; i++ {
		c := start + Cluster(i)
		if i == clusters-1 {
			img.setFAT(c, 0x0FFFFFFF)
		} else {
			img.setFAT(c, uint32(c+1))
		}
	}
	img.nextCluster += Cluster(clusters)
	return start
}

// write copies data to the contiguous chain starting at c.
func (img *testImage) write(c Cluster, data []byte) {
	copy(img.partition[img.clusterOffset(c):], data)
}

// addFile stores the content and returns the first cluster.
func (img *testImage) addFile(content []byte) Cluster {
	c := img.allocate(len(content))
	img.write(c, content)
	return c
}

// addDir creates a directory containing the dot entries and slots.
func (img *testImage) addDir(parent Cluster, slots ...[]byte) Cluster {
	size := (len(slots) + 3) * dirEntrySize
	c := img.allocate(size)

	if parent == firstDataCluster {
		parent = 0
	}
	all := [][]byte{
		shortEntry(".          ", AttrDirectory, 0, c, 0),
		shortEntry("..         ", AttrDirectory, 0, parent, 0),
	}
	img.write(c, joinSlots(append(all, slots...)...))
	return c
}

// setRoot writes the slots into the root directory.
func (img *testImage) setRoot(slots ...[]byte) {
	data := joinSlots(slots...)
	if len(data) >= img.clusterSize() {
		img.t.Fatal("root directory too large for the test image")
	}
	img.write(firstDataCluster, data)
}

// bpb returns the boot sector to modify it before calling device.
func (img *testImage) bpb() []byte {
	return img.partition[:bootSectorSize]
}

// device writes the MBR using go-diskfs and returns the disk as block device.
func (img *testImage) device() *blockdev.Image {
	img.t.Helper()

	partitionSize := len(img.partition)
	diskSize := int64(testPartitionStart*blockdev.DefaultSectorSize + partitionSize)

	fs := afero.NewMemMapFs()
	file, err := fs.Create("disk.img")
	if err != nil {
		img.t.Fatal(err)
	}
	if err := file.Truncate(diskSize); err != nil {
		img.t.Fatal(err)
	}

	table := &diskmbr.Table{
		LogicalSectorSize:  blockdev.DefaultSectorSize,
		PhysicalSectorSize: blockdev.DefaultSectorSize,
		Partitions: []*diskmbr.Partition{
			{
				Bootable: true,
				Type:     img.partitionType,
				Start:    testPartitionStart,
				Size:     uint32(partitionSize / blockdev.DefaultSectorSize),
			},
		},
	}
	if err := table.Write(file, diskSize); err != nil {
		img.t.Fatal(err)
	}

	if _, err := file.WriteAt(img.partition, testPartitionStart*blockdev.DefaultSectorSize); err != nil {
		img.t.Fatal(err)
	}
	if img.diskHook != nil {
		if err := img.diskHook(file); err != nil {
			img.t.Fatal(err)
		}
	}
	if err := file.Close(); err != nil {
		img.t.Fatal(err)
	}

	dev, err := blockdev.OpenImage(fs, "disk.img")
	if err != nil {
		img.t.Fatal(err)
	}
	return dev
}

// mount mounts the image and fails the test on errors.
func (img *testImage) mount(opts ...Option) *VFat {
	img.t.Helper()

	v, err := Mount(img.device(), opts...)
	if err != nil {
		img.t.Fatal(err)
	}
	return v
}

func joinSlots(slots ...[]byte) []byte {
	var data []byte
	for _, slot := range slots {
		data = append(data, slot...)
	}
	return data
}

// testModified is 2021-03-14 15:09:26.
const (
	testModDate = Date((2021-1980)<<9 | 3<<5 | 14)
	testModTime = Time(15<<11 | 9<<5 | 26/2)
)

// shortEntry builds a regular entry. name is the padded 8.3 name without the dot.
func shortEntry(name string, attr Attributes, ntFlags uint8, cluster Cluster, size uint32) []byte {
	b := make([]byte, dirEntrySize)
	copy(b[0:11], name)
	b[11] = uint8(attr)
	b[12] = ntFlags
	b[13] = 42
	binary.LittleEndian.PutUint16(b[14:], uint16(testModTime))
	binary.LittleEndian.PutUint16(b[16:], uint16(testModDate))
	binary.LittleEndian.PutUint16(b[18:], uint16(testModDate))
	binary.LittleEndian.PutUint16(b[20:], uint16(cluster>>16))
	binary.LittleEndian.PutUint16(b[22:], uint16(testModTime))
	binary.LittleEndian.PutUint16(b[24:], uint16(testModDate))
	binary.LittleEndian.PutUint16(b[26:], uint16(cluster))
	binary.LittleEndian.PutUint32(b[28:], size)
	return b
}

func lfnChecksum(shortName string) uint8 {
	var sum uint8
	for i := 0; i < 11; i++ {
		sum = (sum>>1 | sum<<7) + shortName[i]
	}
	return sum
}

// lfnEntries builds the fragments of the long name in on disk order,
// which starts with the last fragment.
func lfnEntries(name string, shortName string) [][]byte {
	chars := utf16.Encode([]rune(name))
	if len(chars)%lfnCharsPerSlot != 0 {
		chars = append(chars, 0x0000)
	}
	for len(chars)%lfnCharsPerSlot != 0 {
		chars = append(chars, 0xFFFF)
	}

	count := len(chars) / lfnCharsPerSlot
	checksum := lfnChecksum(shortName)

	slots := make([][]byte, count)
	for i := 0; i < count; i++ {
		b := make([]byte, dirEntrySize)
		b[0] = uint8(i + 1)
		if i == count-1 {
			b[0] |= 0x40
		}
		b[11] = uint8(AttrLongName)
		b[13] = checksum

		part := chars[i*lfnCharsPerSlot : (i+1)*lfnCharsPerSlot]
		for j, c := range part {
			var offset int
			switch {
			case j < 5:
				offset = 1 + j*2
			case j < 11:
				offset = 14 + (j-5)*2
			default:
				offset = 28 + (j-11)*2
			}
			binary.LittleEndian.PutUint16(b[offset:], c)
		}

		slots[count-1-i] = b
	}
	return slots
}

// longEntry builds the fragments followed by the regular entry.
func longEntry(name, shortName string, attr Attributes, cluster Cluster, size uint32) [][]byte {
	return append(lfnEntries(name, shortName), shortEntry(shortName, attr, 0, cluster, size))
}

func deletedEntry(name string) []byte {
	b := shortEntry(name, 0, 0, 0, 0)
	b[0] = entryDeleted
	return b
}

func volumeEntry(label string) []byte {
	return shortEntry(label, AttrVolumeID|AttrArchive, 0, 0, 0)
}

// pattern returns n bytes which do not repeat within a cluster.
func pattern(n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(i % 251)
	}
	return b
}

// testVolume is the content of the default test image.
type testVolume struct {
	img *testImage

	hello    []byte
	long     []byte
	exact    []byte
	nested   []byte
	longName string
}

// newTestVolume builds the following tree:
//  /HELLO.TXT
//  /A long file name.txt (spans 3 clusters and a bit)
//  /lower.txt (NT lower case flags)
//  /HIDDEN.TXT (hidden)
//  /EMPTY.TXT (size 0, no cluster)
//  /SUBDIR/
//  /SUBDIR/EXACT.BIN (exactly 2 clusters)
//  /SUBDIR/Nested ünïcode name.dat
func newTestVolume(t *testing.T, bytesPerSector, sectorsPerCluster int) *testVolume {
	img := newTestImage(t, bytesPerSector, sectorsPerCluster)

	v := &testVolume{
		img:      img,
		hello:    []byte("Hello, World!\n"),
		long:     pattern(3*img.clusterSize() + 100),
		exact:    pattern(2 * img.clusterSize()),
		nested:   []byte("nested content"),
		longName: "A long file name.txt",
	}

	helloCluster := img.addFile(v.hello)
	longCluster := img.addFile(v.long)
	lowerCluster := img.addFile([]byte("lower"))
	hiddenCluster := img.addFile([]byte("hidden"))

	var subSlots [][]byte
	subSlots = append(subSlots, shortEntry("EXACT   BIN", AttrArchive, 0, img.addFile(v.exact), uint32(len(v.exact))))
	subSlots = append(subSlots, longEntry("Nested ünïcode name.dat", "NESTED~1DAT", AttrArchive, img.addFile(v.nested), uint32(len(v.nested)))...)
	subCluster := img.addDir(firstDataCluster, subSlots...)

	var root [][]byte
	root = append(root, volumeEntry("TESTVOLUME "))
	root = append(root, shortEntry("HELLO   TXT", AttrArchive, 0, helloCluster, uint32(len(v.hello))))
	root = append(root, deletedEntry("GONE    TXT"))
	root = append(root, longEntry(v.longName, "ALONGF~1TXT", AttrArchive, longCluster, uint32(len(v.long)))...)
	root = append(root, shortEntry("LOWER   TXT", AttrArchive, ntLowerCaseBase|ntLowerCaseExtension, lowerCluster, 5))
	root = append(root, shortEntry("HIDDEN  TXT", AttrArchive|AttrHidden, 0, hiddenCluster, 6))
	root = append(root, shortEntry("EMPTY   TXT", AttrArchive, 0, 0, 0))
	root = append(root, shortEntry("SUBDIR     ", AttrDirectory, 0, subCluster, 0))
	img.setRoot(root...)

	return v
}
