package vfat

import (
	"fmt"
	"time"
)

// Date is a FAT date stamp as stored in directory entries.
type Date uint16

// Time is a FAT time stamp as stored in directory entries.
type Time uint16

// Timestamp is a date together with a time.
type Timestamp struct {
	Date Date
	Time Time
}

// ParseDate reads the given input as a date as defined by the FAT on-disk format:
//  A FAT directory entry date stamp is a 16- bit field that is basically a
//  date relative to the MS- DOS epoch of 01/01 / 19 80. Here is the format (bit 0 is the
//  LSB of the 16- bit word, bit 15 is the MSB of the 16- bit word):
//   Bits 0–4: Day of month, valid value range 1- 31 inclusive.
//   Bits 5–8: Month of year, 1 = January, valid value range 1–12 inclusive.
//   Bits 9–15: Count of years from 1980, valid value range 0–127 inclusive
//   (1980–2107).
// It returns a time.Time which has always a time of 00:00:00.000000000 UTC.
//
// As value 0 for day and month is invalid for FAT dates
// the value time.Time{} is used to be compatible with time.Time.IsZero() if any of that cases occurs.
//
// Note that monthOfYear may be bigger than 12 which is unspecified. In this case the year gets incremented by one.
func ParseDate(input uint16) time.Time {
	d := Date(input)
	if d.Day() == 0 || d.Month() == 0 {
		return time.Time{}
	}

	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
}

// ParseTime reads the given input as a time as defined by the FAT on-disk format:
//  A FAT directory entry time stamp is a 16- bit field that has a
//  granularity of 2 seconds. Here is the format (bit 0 is the LSB of the 16- bit word, bit
//  15 is the MSB of the 16- bit word).
//   Bits 0–4: 2- second count, valid value range 0–29 inclusive (0 – 58 seconds).
//   Bits 5–10: Minutes, valid value range 0–59 inclusive.
//   Bits 11–15: Hours, valid value range 0–23 inclusive.
//  The valid time range is from Midnight 00:00:00 to 23:59:58.
// It returns a time.Time which has always a date of January 1, year 1.
//
// Note that values out of the documented range are just added to the time. But this is limited to 23:59:59.
func ParseTime(input uint16) time.Time {
	t := Time(input)
	result := time.Date(1, 1, 1, t.Hour(), t.Minute(), t.Second(), 0, time.UTC)

	if result.Day() > 1 {
		return time.Date(1, 1, 1, 23, 59, 59, 0, time.UTC)
	}

	return result
}

func (d Date) Year() int {
	return 1980 + int(d>>9)
}

func (d Date) Month() time.Month {
	return time.Month(d >> 5 & 0x0F)
}

func (d Date) Day() int {
	return int(d & 0x1F)
}

func (t Time) Hour() int {
	return int(t >> 11)
}

func (t Time) Minute() int {
	return int(t >> 5 & 0x3F)
}

// Second is stored with a resolution of two seconds.
func (t Time) Second() int {
	return int(t&0x1F) * 2
}

func (ts Timestamp) Year() int { return ts.Date.Year() }
func (ts Timestamp) Month() time.Month { return ts.Date.Month() }
func (ts Timestamp) Day() int { return ts.Date.Day() }
func (ts Timestamp) Hour() int { return ts.Time.Hour() }
func (ts Timestamp) Minute() int { return ts.Time.Minute() }
func (ts Timestamp) Second() int { return ts.Time.Second() }
func (ts Timestamp) IsZero() bool { return ts.Date == 0 && ts.Time == 0 }

// AsTime converts the timestamp into a time.Time in UTC.
// An invalid date results in time.Time{}.
func (ts Timestamp) AsTime() time.Time {
	date := ParseDate(uint16(ts.Date))
	clock := ParseTime(uint16(ts.Time))

	// If the date IsZero() it contained any invalid value in which case we return time.Time{}.
	// For the clock we cannot do that because clock.IsZero() is perfectly valid.
	if date.IsZero() {
		return time.Time{}
	}

	return time.Date(date.Year(), date.Month(), date.Day(), clock.Hour(), clock.Minute(), clock.Second(), 0, time.UTC)
}

func (ts Timestamp) String() string {
	return fmt.Sprintf("%02d/%02d/%d %02d:%02d:%02d", ts.Month(), ts.Day(), ts.Year(), ts.Hour(), ts.Minute(), ts.Second())
}
