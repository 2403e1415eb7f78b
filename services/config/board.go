// Package config describes board profiles: bus pins and speeds, peripheral
// addresses, panel geometry, bring-up timing and the power profile.
package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"amoled-bsp/drivers/axp2101"
	"amoled-bsp/errcode"
	"amoled-bsp/i2cbus"

	"periph.io/x/conn/v3/physic"
)

// I2C is the shared peripheral bus.
type I2C struct {
	Bus          int  `json:"bus"`
	SDA          int  `json:"sda"`
	SCL          int  `json:"scl"`
	SpeedHz      int  `json:"speed_hz"`
	PullUp       bool `json:"pullup"`
	GlitchIgnore int  `json:"glitch_ignore"`
}

// Addresses lists the strap-selectable addresses. The RTC and PMU answer
// on fixed addresses and are not configurable.
type Addresses struct {
	IMU   uint16 `json:"imu"`
	Touch uint16 `json:"touch"`
}

// Display is the QSPI panel. Pins use -1 for not connected.
type Display struct {
	Port        string `json:"port,omitempty"` // spidev name on Linux hosts
	Reset       int    `json:"reset"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	BufferLines int    `json:"buffer_lines"`
	SpeedHz     int    `json:"speed_hz"`
	SwapBytes   bool   `json:"swap_bytes"`
	MADCTL      uint8  `json:"madctl"`
}

type Touch struct {
	SpeedHz   int   `json:"speed_hz"`
	Attempts  int   `json:"attempts"`
	BackoffMs int   `json:"backoff_ms"`
	SwapXY    bool  `json:"swap_xy"`
	MirrorX   bool  `json:"mirror_x"`
	MirrorY   bool  `json:"mirror_y"`
	Threshold uint8 `json:"threshold"`
}

type Rail struct {
	Name       string `json:"name"`
	MilliVolts uint16 `json:"mV"`
}

// Power is the PMU profile applied during bring-up.
type Power struct {
	Off             []string `json:"off"`
	On              []Rail   `json:"on"`
	IRQ             []string `json:"irq"`
	PrechargeMA     uint16   `json:"precharge_mA"`
	ChargeMA        uint16   `json:"charge_mA"`
	TerminationMA   uint16   `json:"termination_mA"`
	ChargeVoltageMV uint16   `json:"charge_voltage_mV"`
}

type Timing struct {
	PowerSettleMs int `json:"power_settle_ms"`
}

type Telemetry struct {
	IntervalMs int `json:"interval_ms"`
}

// Board is one complete profile.
type Board struct {
	Name      string    `json:"name"`
	I2C       I2C       `json:"i2c"`
	Addr      Addresses `json:"addr"`
	Display   Display   `json:"display"`
	Touch     Touch     `json:"touch"`
	Power     Power     `json:"power"`
	Timing    Timing    `json:"timing"`
	Telemetry Telemetry `json:"telemetry"`
}

// Parse decodes a JSON profile, rejecting unknown fields, and validates it.
func Parse(raw []byte) (Board, error) {
	var b Board
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&b); err != nil {
		return Board{}, errcode.Wrap(errcode.InvalidArgument, "config.parse", err)
	}
	if err := b.Validate(); err != nil {
		return Board{}, err
	}
	return b, nil
}

// Lookup returns the embedded profile called name.
func Lookup(name string) (Board, error) {
	raw, ok := embedded[name]
	if !ok {
		return Board{}, errcode.New(errcode.InvalidArgument, "config.lookup", "no profile "+name)
	}
	return Parse([]byte(raw))
}

// Names lists the embedded profiles.
func Names() []string {
	out := make([]string, 0, len(embedded))
	for n := range embedded {
		out = append(out, n)
	}
	return out
}

func bad(format string, args ...any) error {
	return errcode.New(errcode.InvalidArgument, "config.validate", fmt.Sprintf(format, args...))
}

func validAddr(a uint16) bool { return a > 0 && a <= 0x7F }

// Validate checks ranges and that the power profile only names known rails
// and interrupts.
func (b Board) Validate() error {
	switch {
	case b.I2C.Bus < 0:
		return bad("i2c bus %d", b.I2C.Bus)
	case b.I2C.SpeedHz <= 0:
		return bad("i2c speed must be positive")
	case !validAddr(b.Addr.IMU), !validAddr(b.Addr.Touch):
		return bad("peripheral address out of range: %+v", b.Addr)
	case b.Display.Width <= 0 || b.Display.Height <= 0:
		return bad("display %dx%d", b.Display.Width, b.Display.Height)
	case b.Display.BufferLines <= 0 || b.Display.BufferLines > b.Display.Height:
		return bad("buffer lines %d", b.Display.BufferLines)
	case b.Display.SpeedHz <= 0:
		return bad("display speed must be positive")
	case b.Touch.SpeedHz <= 0:
		return bad("touch speed must be positive")
	case b.Touch.Attempts < 1:
		return bad("touch attempts %d", b.Touch.Attempts)
	case b.Touch.BackoffMs < 0 || b.Timing.PowerSettleMs < 0:
		return bad("negative delay")
	case b.Telemetry.IntervalMs < 0:
		return bad("negative telemetry interval")
	}
	_, err := b.PowerProfile()
	return err
}

// BusConfig returns the registry settings for the peripheral bus.
func (b Board) BusConfig() i2cbus.BusConfig {
	return i2cbus.BusConfig{
		SDA:          b.I2C.SDA,
		SCL:          b.I2C.SCL,
		GlitchIgnore: b.I2C.GlitchIgnore,
		PullUp:       b.I2C.PullUp,
	}
}

func (b Board) BusID() i2cbus.BusID { return i2cbus.BusID(b.I2C.Bus) }

func (b Board) PeripheralSpeed() physic.Frequency {
	return physic.Frequency(b.I2C.SpeedHz) * physic.Hertz
}

func (b Board) TouchSpeed() physic.Frequency {
	return physic.Frequency(b.Touch.SpeedHz) * physic.Hertz
}

func (b Board) DisplaySpeed() physic.Frequency {
	return physic.Frequency(b.Display.SpeedHz) * physic.Hertz
}

func (b Board) PowerSettle() time.Duration {
	return time.Duration(b.Timing.PowerSettleMs) * time.Millisecond
}

func (b Board) TouchBackoff() time.Duration {
	return time.Duration(b.Touch.BackoffMs) * time.Millisecond
}

func (b Board) TelemetryInterval() time.Duration {
	return time.Duration(b.Telemetry.IntervalMs) * time.Millisecond
}

// MaxTransfer is the display bus transfer limit: one buffer of RGB565 lines.
func (b Board) MaxTransfer() int {
	return b.Display.Width * b.Display.BufferLines * 2
}

// PowerProfile converts the named profile into driver terms.
func (b Board) PowerProfile() (axp2101.Profile, error) {
	p := b.Power
	out := axp2101.Profile{
		PrechargeMA:   p.PrechargeMA,
		ChargeMA:      p.ChargeMA,
		TerminationMA: p.TerminationMA,
	}
	for _, n := range p.Off {
		r, ok := axp2101.ParseRail(n)
		if !ok {
			return axp2101.Profile{}, bad("unknown rail %q", n)
		}
		out.Off = append(out.Off, r)
	}
	for _, s := range p.On {
		r, ok := axp2101.ParseRail(s.Name)
		if !ok {
			return axp2101.Profile{}, bad("unknown rail %q", s.Name)
		}
		out.On = append(out.On, axp2101.RailSetting{Rail: r, MilliVolts: s.MilliVolts})
	}
	for _, n := range p.IRQ {
		m, ok := axp2101.ParseIRQ(n)
		if !ok {
			return axp2101.Profile{}, bad("unknown interrupt %q", n)
		}
		out.IRQ |= m
	}
	v, ok := axp2101.ChargeVoltageFromMV(p.ChargeVoltageMV)
	if !ok {
		return axp2101.Profile{}, bad("charge voltage %d mV", p.ChargeVoltageMV)
	}
	out.ChargeVoltage = v
	return out, nil
}
