// Package board holds the peripheral adapters for the clock, power and
// motion chips. A Board is the explicit context object: it owns one adapter
// per peripheral type and shares the bus registry between them.
package board

import (
	"time"

	"amoled-bsp/drivers/axp2101"
	"amoled-bsp/drivers/pcf85063"
	"amoled-bsp/drivers/qmi8658"
	"amoled-bsp/i2cbus"

	"periph.io/x/conn/v3/physic"
)

// Slot names used when binding on the shared bus.
const (
	SlotClock  = "clock"
	SlotPower  = "power"
	SlotMotion = "motion"
)

type Board struct {
	reg    *i2cbus.Registry
	clock  *Clock
	power  *Power
	motion *Motion
}

func New(reg *i2cbus.Registry) *Board {
	return &Board{
		reg:    reg,
		clock:  &Clock{p: peripheral[*pcf85063.Device]{reg: reg, slot: SlotClock}},
		power:  &Power{p: peripheral[*axp2101.Device]{reg: reg, slot: SlotPower}},
		motion: &Motion{p: peripheral[*qmi8658.Device]{reg: reg, slot: SlotMotion}},
	}
}

func (b *Board) Registry() *i2cbus.Registry { return b.reg }
func (b *Board) Clock() *Clock              { return b.clock }
func (b *Board) Power() *Power              { return b.power }
func (b *Board) Motion() *Motion            { return b.motion }

// Clock adapts the real-time clock.
type Clock struct {
	p peripheral[*pcf85063.Device]
}

func (c *Clock) Init(id i2cbus.BusID, pins i2cbus.BusConfig, speed physic.Frequency) error {
	return c.p.init("clock.init", id, pins, pcf85063.Address, speed,
		func(io i2cbus.RegisterIO) (*pcf85063.Device, error) {
			return pcf85063.New(io), nil
		})
}

func (c *Clock) Initialized() bool { return c.p.Initialized() }

func (c *Clock) DateTime() (pcf85063.DateTime, error) {
	d, err := c.p.driver("clock.get")
	if err != nil {
		return pcf85063.DateTime{}, err
	}
	return d.DateTime()
}

func (c *Clock) SetDateTime(dt pcf85063.DateTime) error {
	d, err := c.p.driver("clock.set")
	if err != nil {
		return err
	}
	return d.SetDateTime(dt)
}

// Now reads the clock as a UTC time.
func (c *Clock) Now() (time.Time, error) {
	dt, err := c.DateTime()
	if err != nil {
		return time.Time{}, err
	}
	return dt.Time(), nil
}

// OscillatorStopped reports the chip's clock-integrity flag.
func (c *Clock) OscillatorStopped() (bool, error) {
	d, err := c.p.driver("clock.osc")
	if err != nil {
		return false, err
	}
	return d.OscillatorStopped()
}

func (c *Clock) ReadRegister(reg byte, buf []byte) error {
	d, err := c.p.driver("clock.read")
	if err != nil {
		return err
	}
	return d.ReadRegister(reg, buf)
}

func (c *Clock) WriteRegister(reg byte, data []byte) error {
	d, err := c.p.driver("clock.write")
	if err != nil {
		return err
	}
	return d.WriteRegister(reg, data)
}

// Power adapts the power-management chip.
type Power struct {
	p peripheral[*axp2101.Device]
}

// Init binds the chip, checks its identity and enables the ADC channels.
func (pw *Power) Init(id i2cbus.BusID, pins i2cbus.BusConfig, speed physic.Frequency) error {
	return pw.p.init("power.init", id, pins, axp2101.Address, speed,
		func(io i2cbus.RegisterIO) (*axp2101.Device, error) {
			d := axp2101.New(io)
			return d, d.Begin()
		})
}

func (pw *Power) Initialized() bool { return pw.p.Initialized() }

// ApplyDefaults applies the board's built-in power profile.
func (pw *Power) ApplyDefaults() error { return pw.ApplyProfile(axp2101.DefaultProfile()) }

func (pw *Power) ApplyProfile(p axp2101.Profile) error {
	d, err := pw.p.driver("power.apply")
	if err != nil {
		return err
	}
	return d.Apply(p)
}

func (pw *Power) Status() (axp2101.Status, error) {
	d, err := pw.p.driver("power.status")
	if err != nil {
		return axp2101.Status{}, err
	}
	return d.Status()
}

// Motion adapts the inertial sensor.
type Motion struct {
	p peripheral[*qmi8658.Device]
}

// Init binds the sensor at addr, checks its identity and applies the default
// ranges and rates.
func (m *Motion) Init(id i2cbus.BusID, pins i2cbus.BusConfig, addr uint16, speed physic.Frequency) error {
	return m.p.init("motion.init", id, pins, addr, speed,
		func(io i2cbus.RegisterIO) (*qmi8658.Device, error) {
			d := qmi8658.New(io, uint8(addr))
			if err := d.Begin(); err != nil {
				return nil, err
			}
			return d, d.ConfigureDefault()
		})
}

func (m *Motion) Initialized() bool { return m.p.Initialized() }

// DataReady is false before init or when the status read fails.
func (m *Motion) DataReady() bool {
	d, err := m.p.driver("motion.ready")
	if err != nil {
		return false
	}
	ok, err := d.DataReady()
	return err == nil && ok
}

func (m *Motion) Sample() (qmi8658.Sample, error) {
	d, err := m.p.driver("motion.sample")
	if err != nil {
		return qmi8658.Sample{}, err
	}
	return d.ReadSample()
}
