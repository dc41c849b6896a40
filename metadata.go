package vfat

import (
	"fmt"
)

// Attributes are the attribute flags of a directory entry.
type Attributes uint8

const (
	AttrReadOnly  Attributes = 0x01
	AttrHidden    Attributes = 0x02
	AttrSystem    Attributes = 0x04
	AttrVolumeID  Attributes = 0x08
	AttrDirectory Attributes = 0x10
	AttrArchive   Attributes = 0x20

	// AttrLongName marks a long file name fragment. It has to match exactly.
	AttrLongName = AttrReadOnly | AttrHidden | AttrSystem | AttrVolumeID
)

func (a Attributes) ReadOnly() bool { return a&AttrReadOnly != 0 }
func (a Attributes) Hidden() bool { return a&AttrHidden != 0 }
func (a Attributes) System() bool { return a&AttrSystem != 0 }
func (a Attributes) IsDir() bool { return a&AttrDirectory != 0 }
func (a Attributes) Archive() bool { return a&AttrArchive != 0 }

// Metadata of a directory entry. It is a copy and never changes.
type Metadata struct {
	Attributes

	Created Timestamp
	// CreatedTenths refines Created by units of 10 ms (0-199).
	CreatedTenths uint8
	// Accessed only contains a date.
	Accessed Timestamp
	Modified Timestamp

	// Size is the file size in bytes. It is 0 for directories.
	Size uint32
}

func (m Metadata) String() string {
	return fmt.Sprintf("ro=%v created=%v accessed=%v modified=%v", m.ReadOnly(), m.Created, m.Accessed, m.Modified)
}
