package qmi8658

import (
	"encoding/binary"
	"errors"
	"fmt"

	"amoled-bsp/errcode"
	"amoled-bsp/i2cbus"
)

// ErrChipID is returned by Begin when WHO_AM_I does not match.
var ErrChipID = errors.New("qmi8658: unexpected chip id")

type AccelRange uint8

const (
	Accel2G AccelRange = iota
	Accel4G
	Accel8G
	Accel16G
)

// LSB per g for each AccelRange.
var accelSens = [...]int32{16384, 8192, 4096, 2048}

type AccelODR uint8

const (
	AccelODR8000Hz AccelODR = iota
	AccelODR4000Hz
	AccelODR2000Hz
	AccelODR1000Hz
	AccelODR500Hz
	AccelODR250Hz
	AccelODR125Hz
	AccelODR62_5Hz
	AccelODR31_25Hz
)

type GyroRange uint8

const (
	Gyro16DPS GyroRange = iota
	Gyro32DPS
	Gyro64DPS
	Gyro128DPS
	Gyro256DPS
	Gyro512DPS
	Gyro1024DPS
	Gyro2048DPS
)

// LSB per °/s for each GyroRange.
var gyroSens = [...]int32{2048, 1024, 512, 256, 128, 64, 32, 16}

type GyroODR uint8

const (
	GyroODR7174_4Hz GyroODR = iota
	GyroODR3587_2Hz
	GyroODR1793_6Hz
	GyroODR896_8Hz
	GyroODR448_4Hz
	GyroODR224_2Hz
	GyroODR112_1Hz
	GyroODR56_05Hz
	GyroODR28_025Hz
)

// LPFMode selects the low-pass filter bandwidth as a fraction of ODR.
type LPFMode uint8

const (
	LPFMode0 LPFMode = iota // 2.66% ODR
	LPFMode1                // 3.63%
	LPFMode2                // 5.39%
	LPFMode3                // 13.37%
)

// Sample is one reading in integer milli-units.
type Sample struct {
	AccelMilliG  [3]int32
	GyroMilliDPS [3]int32
	TempMilliC   int32
	Timestamp    uint32 // 24-bit sample counter
}

// Device talks to one QMI8658.
type Device struct {
	io   i2cbus.RegisterIO
	addr uint8

	accel AccelRange
	gyro  GyroRange

	buf [sampleLen]byte
}

// New binds a driver to io at addr. Ranges start at the chip's reset values.
func New(io i2cbus.RegisterIO, addr uint8) *Device {
	return &Device{io: io, addr: addr}
}

func (d *Device) Address() uint8 { return d.addr }

func (d *Device) read(reg byte, buf []byte) error {
	if err := d.io.ReadRegister(d.addr, reg, buf); err != nil {
		return fmt.Errorf("qmi8658: read %#02x: %w", reg, err)
	}
	return nil
}

func (d *Device) writeByte(reg, v byte) error {
	d.buf[0] = v
	if err := d.io.WriteRegister(d.addr, reg, d.buf[:1]); err != nil {
		return fmt.Errorf("qmi8658: write %#02x: %w", reg, err)
	}
	return nil
}

func (d *Device) update(reg, clr, set byte) error {
	if err := d.read(reg, d.buf[:1]); err != nil {
		return err
	}
	return d.writeByte(reg, d.buf[0]&^clr|set)
}

func invalid(msg string) error {
	return &errcode.E{C: errcode.InvalidArgument, Op: "qmi8658", Msg: msg}
}

// Begin checks WHO_AM_I and turns on register auto-increment so a sample
// block can be read in one transaction.
func (d *Device) Begin() error {
	if err := d.read(regWhoAmI, d.buf[:1]); err != nil {
		return err
	}
	if d.buf[0] != whoAmI {
		return fmt.Errorf("%w: %#02x", ErrChipID, d.buf[0])
	}
	return d.update(regCtrl1, 0, ctrl1AutoInc)
}

// ConfigAccelerometer sets full scale, output rate and filter.
func (d *Device) ConfigAccelerometer(r AccelRange, odr AccelODR, lpf LPFMode, lpfEnable bool) error {
	if r > Accel16G || odr > AccelODR31_25Hz || lpf > LPFMode3 {
		return invalid("accelerometer setting out of range")
	}
	if err := d.writeByte(regCtrl2, byte(r)<<4|byte(odr)); err != nil {
		return err
	}
	d.accel = r
	set := byte(lpf) << 1
	if lpfEnable {
		set |= ctrl5AccelLPFEn
	}
	return d.update(regCtrl5, 0x07, set)
}

// ConfigGyroscope sets full scale, output rate and filter.
func (d *Device) ConfigGyroscope(r GyroRange, odr GyroODR, lpf LPFMode, lpfEnable bool) error {
	if r > Gyro2048DPS || odr > GyroODR28_025Hz || lpf > LPFMode3 {
		return invalid("gyroscope setting out of range")
	}
	if err := d.writeByte(regCtrl3, byte(r)<<4|byte(odr)); err != nil {
		return err
	}
	d.gyro = r
	set := byte(lpf) << 5
	if lpfEnable {
		set |= ctrl5GyroLPFEn
	}
	return d.update(regCtrl5, 0x70, set)
}

// Enable switches the sensors on or off.
func (d *Device) Enable(accel, gyro bool) error {
	var set byte
	if accel {
		set |= ctrl7Accel
	}
	if gyro {
		set |= ctrl7Gyro
	}
	return d.update(regCtrl7, ctrl7Accel|ctrl7Gyro, set)
}

// ConfigureDefault applies the board's motion setup: ±4 g at 1 kHz and
// ±64 °/s at 896.8 Hz, both filtered and enabled.
func (d *Device) ConfigureDefault() error {
	if err := d.ConfigAccelerometer(Accel4G, AccelODR1000Hz, LPFMode0, true); err != nil {
		return err
	}
	if err := d.ConfigGyroscope(Gyro64DPS, GyroODR896_8Hz, LPFMode3, true); err != nil {
		return err
	}
	return d.Enable(true, true)
}

// DataReady reports whether a new accelerometer or gyroscope sample is
// available.
func (d *Device) DataReady() (bool, error) {
	if err := d.read(regStatus, d.buf[:1]); err != nil {
		return false, err
	}
	return d.buf[0]&(status0Accel|status0Gyro) != 0, nil
}

// ReadSample reads timestamp, temperature, accelerometer and gyroscope in a
// single burst and scales them with the configured ranges.
func (d *Device) ReadSample() (Sample, error) {
	var s Sample
	b := d.buf[:]
	if err := d.read(regTSLow, b); err != nil {
		return s, err
	}
	s.Timestamp = uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16
	s.TempMilliC = int32(int16(binary.LittleEndian.Uint16(b[3:]))) * 1000 / 256
	as, gs := accelSens[d.accel], gyroSens[d.gyro]
	for i := 0; i < 3; i++ {
		a := int32(int16(binary.LittleEndian.Uint16(b[5+2*i:])))
		g := int32(int16(binary.LittleEndian.Uint16(b[11+2*i:])))
		s.AccelMilliG[i] = a * 1000 / as
		s.GyroMilliDPS[i] = g * 1000 / gs
	}
	return s, nil
}
