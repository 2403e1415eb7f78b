package pcf85063

import (
	"time"

	"amoled-bsp/errcode"
)

// Field masks applied before packed-decimal conversion. The bits above each
// mask carry control flags (e.g. oscillator-stop in seconds) or are unused.
var fieldMask = [7]byte{
	0x7F, // seconds
	0x7F, // minutes
	0x3F, // hours (24h mode)
	0x3F, // day
	0x07, // weekday
	0x1F, // month
	0xFF, // year
}

// DateTime is the calendar value held by the clock. Year is 0..99 (2000-based).
type DateTime struct {
	Seconds uint8
	Minutes uint8
	Hours   uint8
	Day     uint8
	Weekday uint8 // 0 = Sunday
	Month   uint8
	Year    uint8
}

// Validate checks every field against its legal range.
func (dt DateTime) Validate() error {
	switch {
	case dt.Seconds > 59:
		return invalid("seconds out of range")
	case dt.Minutes > 59:
		return invalid("minutes out of range")
	case dt.Hours > 23:
		return invalid("hours out of range")
	case dt.Day < 1 || dt.Day > 31:
		return invalid("day out of range")
	case dt.Weekday > 6:
		return invalid("weekday out of range")
	case dt.Month < 1 || dt.Month > 12:
		return invalid("month out of range")
	case dt.Year > 99:
		return invalid("year out of range")
	}
	return nil
}

func invalid(msg string) error {
	return &errcode.E{C: errcode.InvalidArgument, Op: "pcf85063", Msg: msg}
}

// Time converts to a UTC time.Time in 2000..2099.
func (dt DateTime) Time() time.Time {
	return time.Date(2000+int(dt.Year), time.Month(dt.Month), int(dt.Day),
		int(dt.Hours), int(dt.Minutes), int(dt.Seconds), 0, time.UTC)
}

// FromTime builds a DateTime from t. Years outside 2000..2099 are rejected.
func FromTime(t time.Time) (DateTime, error) {
	y := t.Year()
	if y < 2000 || y > 2099 {
		return DateTime{}, invalid("year outside 2000..2099")
	}
	return DateTime{
		Seconds: uint8(t.Second()),
		Minutes: uint8(t.Minute()),
		Hours:   uint8(t.Hour()),
		Day:     uint8(t.Day()),
		Weekday: uint8(t.Weekday()),
		Month:   uint8(t.Month()),
		Year:    uint8(y - 2000),
	}, nil
}

func fromBCD(v byte) uint8 { return (v>>4)*10 + v&0x0F }
func toBCD(v uint8) byte   { return (v/10)<<4 | v%10 }

// Decode converts the 7 time registers (seconds first) to a DateTime.
func Decode(raw [7]byte) DateTime {
	var f [7]uint8
	for i, b := range raw {
		f[i] = fromBCD(b & fieldMask[i])
	}
	return DateTime{
		Seconds: f[0],
		Minutes: f[1],
		Hours:   f[2],
		Day:     f[3],
		Weekday: f[4],
		Month:   f[5],
		Year:    f[6],
	}
}

// Encode packs dt into the 7 time registers. Fields are not range-checked;
// call Validate first.
func Encode(dt DateTime) [7]byte {
	return [7]byte{
		toBCD(dt.Seconds),
		toBCD(dt.Minutes),
		toBCD(dt.Hours),
		toBCD(dt.Day),
		toBCD(dt.Weekday),
		toBCD(dt.Month),
		toBCD(dt.Year),
	}
}
