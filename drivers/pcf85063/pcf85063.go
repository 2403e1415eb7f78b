// Package pcf85063 drives the PCF85063 real-time clock.
//
// The time lives in seven consecutive packed-decimal registers starting at
// 0x04: seconds, minutes, hours, day, weekday, month, year. Reads and writes
// cover the whole block in one transaction so the value is latched atomically.
package pcf85063

import (
	"fmt"

	"amoled-bsp/i2cbus"
)

// Address is the fixed 7-bit bus address.
const Address = 0x51

const (
	regSeconds = 0x04 // first of 7 time registers

	secondsOS = 0x80 // oscillator stopped; clock integrity not guaranteed
)

// Device talks to one PCF85063.
type Device struct {
	io  i2cbus.RegisterIO
	buf [7]byte
}

// New binds a driver to io. It does not touch the chip.
func New(io i2cbus.RegisterIO) *Device {
	return &Device{io: io}
}

// DateTime reads the current calendar time.
func (d *Device) DateTime() (DateTime, error) {
	if err := d.io.ReadRegister(Address, regSeconds, d.buf[:]); err != nil {
		return DateTime{}, fmt.Errorf("pcf85063: read time: %w", err)
	}
	return Decode(d.buf), nil
}

// SetDateTime validates dt and writes it. Writing the seconds register also
// clears the oscillator-stop flag.
func (d *Device) SetDateTime(dt DateTime) error {
	if err := dt.Validate(); err != nil {
		return err
	}
	d.buf = Encode(dt)
	if err := d.io.WriteRegister(Address, regSeconds, d.buf[:]); err != nil {
		return fmt.Errorf("pcf85063: write time: %w", err)
	}
	return nil
}

// OscillatorStopped reports whether the clock lost its oscillator since the
// time was last set.
func (d *Device) OscillatorStopped() (bool, error) {
	var b [1]byte
	if err := d.io.ReadRegister(Address, regSeconds, b[:]); err != nil {
		return false, fmt.Errorf("pcf85063: read seconds: %w", err)
	}
	return b[0]&secondsOS != 0, nil
}

// ReadRegister and WriteRegister give raw access to the chip's registers.
func (d *Device) ReadRegister(reg byte, buf []byte) error {
	return d.io.ReadRegister(Address, reg, buf)
}

func (d *Device) WriteRegister(reg byte, data []byte) error {
	return d.io.WriteRegister(Address, reg, data)
}
