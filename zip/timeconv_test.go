package zip

import (
	"testing"
	"time"
)

func TestDosDateRoundTrip(t *testing.T) {
	dates := []uint32{
		// 1980-01-01 00:00:00, the epoch of the format.
		0x00210000,
		// 2024-05-01 12:30:08
		0x58a163c4,
		// 2107-12-31 23:58:58
		0xff9fbf5d,
	}
	for _, d := range dates {
		tm, err := DosDateToTm(d)
		if err != nil {
			t.Fatalf("DosDateToTm(%08x): %v", d, err)
		}
		if got := TmToDosDate(tm); got != d {
			t.Errorf("round trip %08x -> %08x", d, got)
		}
	}
}

func TestTmToDosDateYearRanges(t *testing.T) {
	base := TmDate{Sec: 0, Min: 0, Hour: 0, Day: 1, Month: 6}

	tests := []struct {
		year int
		want int // effective calendar year
	}{
		{24, 2024},   // [0,79] means 2000-2079
		{124, 2024},  // [80,207] means 1980-based double digits
		{2024, 2024}, // literal
	}
	var packed []uint32
	for _, tt := range tests {
		tm := base
		tm.Year = tt.year
		d := TmToDosDate(tm)
		if d == 0 {
			t.Fatalf("year %d packed to zero", tt.year)
		}
		packed = append(packed, d)
	}
	for i := 1; i < len(packed); i++ {
		if packed[i] != packed[0] {
			t.Errorf("year range %d packed %08x, range 0 packed %08x", i, packed[i], packed[0])
		}
	}
}

func TestTmToDosDateInvalid(t *testing.T) {
	tests := []TmDate{
		{Year: 2150, Month: 1, Day: 1},  // beyond 2107
		{Year: 2024, Month: 13, Day: 1}, // month out of range
		{Year: 2024, Month: 1, Day: 0},  // day out of range
		{Year: 2024, Month: 1, Day: 1, Hour: 24},
	}
	for _, tm := range tests {
		if d := TmToDosDate(tm); d != 0 {
			t.Errorf("TmToDosDate(%+v) = %08x, want 0", tm, d)
		}
	}
}

func TestDosDateToTmInvalid(t *testing.T) {
	// Month 15 cannot come from a real date.
	if _, err := DosDateToTm(0x01ef0000); err == nil {
		t.Error("invalid packed date parsed without error")
	}
}

func TestNtfsRoundTrip(t *testing.T) {
	times := []int64{
		0,
		time.Date(2001, 9, 9, 1, 46, 40, 0, time.UTC).Unix(),
		time.Date(2038, 1, 19, 3, 14, 8, 0, time.UTC).Unix(),
	}
	for _, unix := range times {
		if got := NtfsToUnixTime(UnixTimeToNtfs(unix)); got != unix {
			t.Errorf("ntfs round trip %d -> %d", unix, got)
		}
	}
}

func TestNtfsKnownValue(t *testing.T) {
	// The POSIX epoch is 116444736000000000 ticks after the NTFS epoch.
	if got := NtfsToUnixTime(116444736000000000); got != 0 {
		t.Errorf("ntfs epoch -> %d, want 0", got)
	}
}

func TestUnixDosRoundTrip(t *testing.T) {
	// Even seconds survive the 2-second DOS resolution.
	unix := time.Date(2023, 11, 5, 8, 20, 42, 0, time.Local).Unix()
	if got := DosDateToUnixTime(UnixTimeToDosDate(unix)); got != unix {
		t.Errorf("unix round trip %d -> %d", unix, got)
	}
}
