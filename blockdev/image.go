package blockdev

import (
	"fmt"
	"io"

	"github.com/aligator/vfat/checkpoint"
	"github.com/spf13/afero"
)

// Image is a BlockDevice backed by a disk image.
type Image struct {
	reader     io.ReaderAt
	closer     io.Closer
	sectorSize uint64
	sectors    uint64
}

// NewImage creates an Image reading from r which has the given size in bytes.
// A trailing partial sector is not addressable.
func NewImage(r io.ReaderAt, size int64) *Image {
	img := &Image{
		reader:     r,
		sectorSize: DefaultSectorSize,
	}

	if size > 0 {
		img.sectors = uint64(size) / img.sectorSize
	}

	if c, ok := r.(io.Closer); ok {
		img.closer = c
	}

	return img
}

// OpenImage opens the image file name from fs.
func OpenImage(fs afero.Fs, name string) (*Image, error) {
	file, err := fs.Open(name)
	if err != nil {
		return nil, checkpoint.From(err)
	}

	stat, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, checkpoint.From(err)
	}

	if stat.IsDir() {
		file.Close()
		return nil, checkpoint.Wrap(ErrInvalidInput, fmt.Errorf("%v is a directory", name))
	}

	return NewImage(file, stat.Size()), nil
}

// SectorSize implements BlockDevice.
func (img *Image) SectorSize() uint64 {
	return img.sectorSize
}

// Sectors returns the number of addressable sectors.
func (img *Image) Sectors() uint64 {
	return img.sectors
}

// ReadSector implements BlockDevice.
func (img *Image) ReadSector(n uint64, buf []byte) (int, error) {
	if uint64(len(buf)) < img.sectorSize {
		return 0, checkpoint.Wrap(ErrInvalidInput, fmt.Errorf("buffer of %v bytes is smaller than a sector", len(buf)))
	}

	if n >= img.sectors {
		return 0, checkpoint.Wrap(ErrInvalidInput, fmt.Errorf("sector %v is beyond the last sector %v", n, img.sectors))
	}

	read, err := img.reader.ReadAt(buf[:img.sectorSize], int64(n*img.sectorSize))
	// A full read may still report io.EOF at the very end of the image.
	if uint64(read) == img.sectorSize {
		return read, nil
	}

	if err == nil || err == io.EOF {
		err = io.ErrUnexpectedEOF
	}
	return read, checkpoint.From(err)
}

// WriteSector always fails as images are opened read only.
func (img *Image) WriteSector(n uint64, buf []byte) (int, error) {
	return 0, checkpoint.From(ErrReadOnly)
}

// Close closes the underlying reader if it is closable.
func (img *Image) Close() error {
	if img.closer == nil {
		return nil
	}
	return img.closer.Close()
}
