package zip

import "time"

// NTFS timestamps count 100-ns ticks since 1601-01-01 UTC.
const ntfsEpochOffset = 116444736000000000

// TmDate is a broken-down calendar time, the shape DOS date conversion works
// in. Year accepts three ranges: [0,79] meaning 2000-2079, [80,207] meaning
// 1980-based double-digit years, and [1980,2107] literal.
type TmDate struct {
	Sec, Min, Hour int
	Day, Month     int // month 1-12
	Year           int
}

func (t TmDate) valid() bool {
	return t.Year >= 0 && t.Year <= 127+80 &&
		t.Month >= 1 && t.Month <= 12 &&
		t.Day >= 1 && t.Day <= 31 &&
		t.Hour >= 0 && t.Hour <= 23 &&
		t.Min >= 0 && t.Min <= 59 &&
		t.Sec >= 0 && t.Sec <= 59
}

// DosDateToTm unpacks a 32-bit DOS date/time. The returned year is 1980-based
// plus 80 (the tm convention). Out-of-range components yield ErrFormat and a
// zero TmDate.
func DosDateToTm(dosDate uint32) (TmDate, error) {
	t := dosDateToRawTm(dosDate)
	if !t.valid() {
		return TmDate{}, ErrFormat
	}
	return t, nil
}

func dosDateToRawTm(dosDate uint32) TmDate {
	date := dosDate >> 16
	return TmDate{
		Day:   int(date & 0x1f),
		Month: int((date & 0x1e0) >> 5),
		Year:  int((date&0xfe00)>>9) + 80,
		Hour:  int((dosDate & 0xf800) >> 11),
		Min:   int((dosDate & 0x7e0) >> 5),
		Sec:   int(dosDate&0x1f) * 2,
	}
}

// TmToDosDate packs a broken-down time into the 32-bit DOS format after
// normalising the year. Invalid values pack to zero.
func TmToDosDate(t TmDate) uint32 {
	switch {
	case t.Year >= 1980:
		t.Year -= 1980
	case t.Year >= 80:
		t.Year -= 80
	default:
		t.Year += 20
	}
	// valid() wants the 1980-based year re-biased by 80.
	check := t
	check.Year += 80
	if !check.valid() {
		return 0
	}
	return uint32(t.Day+32*t.Month+512*t.Year)<<16 |
		uint32(t.Sec/2+32*t.Min+2048*t.Hour)
}

// DosDateToUnixTime converts a DOS date to POSIX seconds in local time,
// matching what archivers that call mktime produce.
func DosDateToUnixTime(dosDate uint32) int64 {
	t := dosDateToRawTm(dosDate)
	return time.Date(t.Year+1900, time.Month(t.Month), t.Day, t.Hour, t.Min, t.Sec, 0, time.Local).Unix()
}

// UnixTimeToDosDate converts POSIX seconds to the 32-bit DOS format.
func UnixTimeToDosDate(unixTime int64) uint32 {
	lt := time.Unix(unixTime, 0).Local()
	return TmToDosDate(TmDate{
		Sec:   lt.Second(),
		Min:   lt.Minute(),
		Hour:  lt.Hour(),
		Day:   lt.Day(),
		Month: int(lt.Month()),
		Year:  lt.Year(),
	})
}

// NtfsToUnixTime converts NTFS 100-ns ticks to POSIX seconds.
func NtfsToUnixTime(ntfsTime uint64) int64 {
	return (int64(ntfsTime) - ntfsEpochOffset) / 10000000
}

// UnixTimeToNtfs converts POSIX seconds to NTFS 100-ns ticks.
func UnixTimeToNtfs(unixTime int64) uint64 {
	return uint64(unixTime*10000000 + ntfsEpochOffset)
}
