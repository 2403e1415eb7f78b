package pcf85063

import (
	"errors"
	"testing"
	"time"

	"amoled-bsp/errcode"
	"amoled-bsp/platform/sim"
)

func TestCodecRoundTripPerField(t *testing.T) {
	base := DateTime{Seconds: 0, Minutes: 0, Hours: 0, Day: 1, Weekday: 0, Month: 1, Year: 0}
	fields := []struct {
		name   string
		lo, hi uint8
		set    func(*DateTime, uint8)
	}{
		{"seconds", 0, 59, func(d *DateTime, v uint8) { d.Seconds = v }},
		{"minutes", 0, 59, func(d *DateTime, v uint8) { d.Minutes = v }},
		{"hours", 0, 23, func(d *DateTime, v uint8) { d.Hours = v }},
		{"day", 1, 31, func(d *DateTime, v uint8) { d.Day = v }},
		{"weekday", 0, 6, func(d *DateTime, v uint8) { d.Weekday = v }},
		{"month", 1, 12, func(d *DateTime, v uint8) { d.Month = v }},
		{"year", 0, 99, func(d *DateTime, v uint8) { d.Year = v }},
	}
	for _, f := range fields {
		t.Run(f.name, func(t *testing.T) {
			for v := int(f.lo); v <= int(f.hi); v++ {
				dt := base
				f.set(&dt, uint8(v))
				if err := dt.Validate(); err != nil {
					t.Fatalf("%d: %v", v, err)
				}
				if got := Decode(Encode(dt)); got != dt {
					t.Fatalf("%d: round trip %+v != %+v", v, got, dt)
				}
			}
		})
	}
}

func TestEncodeIsPackedDecimal(t *testing.T) {
	dt := DateTime{Seconds: 45, Minutes: 59, Hours: 23, Day: 31, Weekday: 6, Month: 12, Year: 99}
	want := [7]byte{0x45, 0x59, 0x23, 0x31, 0x06, 0x12, 0x99}
	if got := Encode(dt); got != want {
		t.Fatalf("got % x want % x", got, want)
	}
}

func TestDecodeMasksFlagBits(t *testing.T) {
	raw := [7]byte{0x80 | 0x12, 0x80 | 0x34, 0xC0 | 0x21, 0xC0 | 0x15, 0xF8 | 0x03, 0xE0 | 0x07, 0x26}
	want := DateTime{Seconds: 12, Minutes: 34, Hours: 21, Day: 15, Weekday: 3, Month: 7, Year: 26}
	if got := Decode(raw); got != want {
		t.Fatalf("got %+v want %+v", got, want)
	}
}

func TestValidate(t *testing.T) {
	ok := DateTime{Day: 1, Month: 1}
	bad := []DateTime{
		{Seconds: 60, Day: 1, Month: 1},
		{Minutes: 60, Day: 1, Month: 1},
		{Hours: 24, Day: 1, Month: 1},
		{Day: 0, Month: 1},
		{Day: 32, Month: 1},
		{Weekday: 7, Day: 1, Month: 1},
		{Day: 1, Month: 0},
		{Day: 1, Month: 13},
		{Day: 1, Month: 1, Year: 100},
	}
	if err := ok.Validate(); err != nil {
		t.Fatal(err)
	}
	for _, dt := range bad {
		if err := dt.Validate(); !errors.Is(err, errcode.InvalidArgument) {
			t.Errorf("%+v: got %v", dt, err)
		}
	}
}

func TestTimeConversion(t *testing.T) {
	in := time.Date(2026, time.October, 15, 9, 30, 5, 0, time.UTC)
	dt, err := FromTime(in)
	if err != nil {
		t.Fatal(err)
	}
	if dt.Weekday != uint8(time.Thursday) || dt.Year != 26 {
		t.Fatalf("unexpected %+v", dt)
	}
	if !dt.Time().Equal(in) {
		t.Fatalf("got %v", dt.Time())
	}
	if _, err := FromTime(time.Date(1999, 1, 1, 0, 0, 0, 0, time.UTC)); err == nil {
		t.Fatal("expected error for 1999")
	}
}

func TestDeviceReadWrite(t *testing.T) {
	regs := &sim.Regs{}
	d := New(sim.Direct(regs, Address))

	dt := DateTime{Seconds: 7, Minutes: 8, Hours: 9, Day: 10, Weekday: 4, Month: 11, Year: 26}
	if err := d.SetDateTime(dt); err != nil {
		t.Fatal(err)
	}
	want := []byte{0x07, 0x08, 0x09, 0x10, 0x04, 0x11, 0x26}
	for i, b := range want {
		if got := regs.Get(0x04 + byte(i)); got != b {
			t.Fatalf("reg %#x = %#x want %#x", 0x04+i, got, b)
		}
	}

	regs.Set(0x04, 0x80|0x07) // oscillator stop flag set by hardware
	stopped, err := d.OscillatorStopped()
	if err != nil || !stopped {
		t.Fatalf("stopped=%v err=%v", stopped, err)
	}
	got, err := d.DateTime()
	if err != nil {
		t.Fatal(err)
	}
	if got != dt {
		t.Fatalf("got %+v want %+v", got, dt)
	}

	if err := d.SetDateTime(DateTime{Day: 0, Month: 1}); !errors.Is(err, errcode.InvalidArgument) {
		t.Fatalf("got %v", err)
	}
	if regs.Writes() != 7 {
		t.Fatalf("invalid value reached the chip: writes=%d", regs.Writes())
	}
}

func TestDeviceBusError(t *testing.T) {
	d := New(sim.Direct(&sim.Regs{}, 0x52)) // wrong address => nack
	if _, err := d.DateTime(); !errors.Is(err, sim.ErrNack) {
		t.Fatalf("got %v", err)
	}
}
