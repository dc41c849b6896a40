package vfat

import (
	"reflect"
	"testing"
	"time"
)

func TestParseDate(t *testing.T) {
	tests := []struct {
		name  string
		input uint16
		want  time.Time
	}{
		{name: "epoch", input: 1<<5 | 1, want: time.Date(1980, time.January, 1, 0, 0, 0, 0, time.UTC)},
		{name: "last day", input: 127<<9 | 12<<5 | 31, want: time.Date(2107, time.December, 31, 0, 0, 0, 0, time.UTC)},
		{name: "day 0 is invalid", input: 1 << 5, want: time.Time{}},
		{name: "month 0 is invalid", input: 1, want: time.Time{}},
		{name: "month 13 is in the next year", input: 13<<5 | 1, want: time.Date(1981, time.January, 1, 0, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseDate(tt.input); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ParseDate() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseTime(t *testing.T) {
	tests := []struct {
		name  string
		input uint16
		want  time.Time
	}{
		{name: "midnight", input: 0, want: time.Date(1, 1, 1, 0, 0, 0, 0, time.UTC)},
		{name: "last valid", input: 23<<11 | 59<<5 | 29, want: time.Date(1, 1, 1, 23, 59, 58, 0, time.UTC)},
		{name: "too many hours", input: 31<<11 | 59<<5 | 29, want: time.Date(1, 1, 1, 23, 59, 59, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseTime(tt.input); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ParseTime() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTimestamp(t *testing.T) {
	ts := Timestamp{Date: testModDate, Time: testModTime}

	if got := ts.String(); got != "03/14/2021 15:09:26" {
		t.Errorf("Timestamp.String() = %v", got)
	}
	if got := ts.AsTime(); !got.Equal(time.Date(2021, time.March, 14, 15, 9, 26, 0, time.UTC)) {
		t.Errorf("Timestamp.AsTime() = %v", got)
	}
	if ts.IsZero() || !(Timestamp{}).IsZero() {
		t.Error("Timestamp.IsZero() is wrong")
	}
}

func TestMetadata_String(t *testing.T) {
	m := Metadata{
		Attributes: AttrReadOnly,
		Created:    Timestamp{Date: testModDate, Time: testModTime},
		Accessed:   Timestamp{Date: testModDate},
		Modified:   Timestamp{Date: testModDate, Time: testModTime},
	}

	want := "ro=true created=03/14/2021 15:09:26 accessed=03/14/2021 00:00:00 modified=03/14/2021 15:09:26"
	if got := m.String(); got != want {
		t.Errorf("Metadata.String() = %v, want %v", got, want)
	}
}
