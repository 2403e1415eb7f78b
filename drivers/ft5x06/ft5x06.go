// Package ft5x06 drives FT5x06-family capacitive touch controllers (FT5x06,
// FT6x36, FT3168) in polling mode, reporting the first touch point.
package ft5x06

import (
	"fmt"

	"amoled-bsp/i2cbus"
	"amoled-bsp/x/mathx"

	"tinygo.org/x/drivers/touch"
)

// Address is the fixed 7-bit bus address.
const Address = 0x38

const (
	regTDStatus = 0x02 // touch count, then P1 XH, XL, YH, YL, weight
	regThGroup  = 0x80
	regChipID   = 0xA3
	regGMode    = 0xA4

	gModePolling = 0x00
)

// Config describes the panel the controller sits on.
type Config struct {
	XMax, YMax       int // panel resolution; coordinates are clamped below these
	SwapXY           bool
	MirrorX, MirrorY bool
	Threshold        uint8 // touch threshold; 0 keeps the chip default
}

// Device reads one controller. It implements touch.Pointer.
type Device struct {
	io     i2cbus.RegisterIO
	cfg    Config
	chipID uint8
	buf    [6]byte
}

var _ touch.Pointer = (*Device)(nil)

func New(io i2cbus.RegisterIO, cfg Config) *Device {
	return &Device{io: io, cfg: cfg}
}

// Configure puts the controller in polling mode, sets the threshold and reads
// the chip ID. Any failed transaction fails the whole call.
func (d *Device) Configure() error {
	d.buf[0] = gModePolling
	if err := d.io.WriteRegister(Address, regGMode, d.buf[:1]); err != nil {
		return fmt.Errorf("ft5x06: set mode: %w", err)
	}
	if d.cfg.Threshold != 0 {
		d.buf[0] = d.cfg.Threshold
		if err := d.io.WriteRegister(Address, regThGroup, d.buf[:1]); err != nil {
			return fmt.Errorf("ft5x06: set threshold: %w", err)
		}
	}
	if err := d.io.ReadRegister(Address, regChipID, d.buf[:1]); err != nil {
		return fmt.Errorf("ft5x06: read chip id: %w", err)
	}
	d.chipID = d.buf[0]
	return nil
}

// ChipID returns the value read by Configure.
func (d *Device) ChipID() uint8 { return d.chipID }

// ReadTouch returns the current point in panel coordinates and whether a
// finger is down.
func (d *Device) ReadTouch() (touch.Point, bool, error) {
	b := d.buf[:]
	if err := d.io.ReadRegister(Address, regTDStatus, b); err != nil {
		return touch.Point{}, false, fmt.Errorf("ft5x06: read point: %w", err)
	}
	switch n := b[0] & 0x0F; {
	case n == 0, n > 5:
		return touch.Point{}, false, nil
	}
	x := int(b[1]&0x0F)<<8 | int(b[2])
	y := int(b[3]&0x0F)<<8 | int(b[4])
	x, y = d.transform(x, y)
	return touch.Point{X: x, Y: y, Z: int(b[5]) + 1}, true, nil
}

// ReadTouchPoint implements touch.Pointer. Z is zero when nothing touches
// the panel or the read fails.
func (d *Device) ReadTouchPoint() touch.Point {
	p, ok, err := d.ReadTouch()
	if err != nil || !ok {
		return touch.Point{}
	}
	return p
}

func (d *Device) transform(x, y int) (int, int) {
	if d.cfg.SwapXY {
		x, y = y, x
	}
	if d.cfg.XMax > 0 {
		x = mathx.Clamp(x, 0, d.cfg.XMax-1)
		if d.cfg.MirrorX {
			x = d.cfg.XMax - 1 - x
		}
	}
	if d.cfg.YMax > 0 {
		y = mathx.Clamp(y, 0, d.cfg.YMax-1)
		if d.cfg.MirrorY {
			y = d.cfg.YMax - 1 - y
		}
	}
	return x, y
}
