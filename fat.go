package vfat

import (
	"fmt"
)

// Cluster is the index of a cluster in the data region.
// The clusters 0 and 1 are reserved, 2 is the first usable one.
type Cluster uint32

const (
	firstDataCluster Cluster = 2

	// endOfChain is the position right behind the last cluster of a chain.
	endOfChain Cluster = 0xFFFFFFFF
)

func (c Cluster) String() string {
	if c == endOfChain {
		return "EOC"
	}
	return fmt.Sprintf("#%d", uint32(c))
}

// Status of a FAT entry.
type Status int

const (
	// StatusFree marks an unused cluster.
	StatusFree Status = iota
	// StatusReserved marks a reserved cluster.
	StatusReserved
	// StatusData marks a used cluster which is followed by FatEntry.Next().
	StatusData
	// StatusBad marks a cluster with a disk failure.
	StatusBad
	// StatusEOC marks the last cluster of a chain.
	StatusEOC
)

func (s Status) String() string {
	switch s {
	case StatusFree:
		return "free"
	case StatusReserved:
		return "reserved"
	case StatusData:
		return "data"
	case StatusBad:
		return "bad"
	case StatusEOC:
		return "end of chain"
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// FatEntry is one 32 bit entry of the FAT. Only the low 28 bits are used.
type FatEntry uint32

const fatEntryMask = 0x0FFFFFFF

// Value returns the significant 28 bits.
func (e FatEntry) Value() uint32 {
	return uint32(e) & fatEntryMask
}

func (e FatEntry) Status() Status {
	switch v := e.Value(); {
	case v == 0x0000000:
		return StatusFree
	case v == 0x0000001:
		return StatusReserved
	case v <= 0xFFFFFEF:
		return StatusData
	case v <= 0xFFFFFF6:
		return StatusReserved
	case v == 0xFFFFFF7:
		return StatusBad
	default:
		return StatusEOC
	}
}

// Next is the following cluster of the chain. It is only valid for StatusData.
func (e FatEntry) Next() Cluster {
	return Cluster(e.Value())
}

func (e FatEntry) String() string {
	if e.Status() == StatusData {
		return fmt.Sprintf("data(%v)", e.Next())
	}
	return e.Status().String()
}
