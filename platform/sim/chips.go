package sim

import "encoding/binary"

// Bus addresses of the board's peripherals.
const (
	AddrRTC   = 0x51
	AddrPMU   = 0x34
	AddrIMU   = 0x6B
	AddrTouch = 0x38
)

// NewRTC models a PCF85063 holding 2026-01-01 00:00:00 (Thursday).
func NewRTC() *Regs {
	r := &Regs{}
	r.Set(0x04, 0x00, 0x00, 0x00, 0x01, 0x04, 0x01, 0x26)
	return r
}

// NewPMU models an AXP2101 with VBUS present and a battery charging.
// Interrupt status bytes (0x48..0x4A) are write-one-to-clear.
func NewPMU() *Regs {
	r := &Regs{
		OnWrite: func(mem *[256]byte, reg, v byte) {
			if reg >= 0x48 && reg <= 0x4A {
				mem[reg] &^= v
				return
			}
			mem[reg] = v
		},
	}
	r.Set(0x00, 1<<5|1<<3) // VBUS good, battery present
	r.Set(0x01, 1<<5)      // charging, VBUS present
	r.Set(0x03, 0x4A)
	r.Set(0x34, 0x0F, 0x3C) // VBAT 3900 mV
	r.Set(0x38, 0x13, 0x88) // VBUS 5000 mV
	r.Set(0x3A, 0x12, 0xC0) // VSYS 4800 mV
	r.Set(0x3C, 0x1C, 0x6A) // die temperature 22 °C
	r.Set(0xA4, 76)
	return r
}

// IMU models a QMI8658. STATUS0 reports data available for whichever
// sensors CTRL7 has enabled.
type IMU struct {
	Regs
}

func NewIMU() *IMU {
	m := &IMU{}
	m.Set(0x00, 0x05)
	m.OnRead = func(mem *[256]byte, reg byte) {
		if reg == 0x2E {
			mem[0x2E] = mem[0x08] & 0x03
		}
	}
	m.SetRaw([3]int16{0, 0, 8192}, [3]int16{512, 0, -512}, 25<<8|0x80, 0x000400)
	return m
}

// SetRaw loads the output registers: accel and gyro counts, temperature in
// 1/256 °C and the 24-bit sample counter.
func (m *IMU) SetRaw(acc, gyr [3]int16, temp int16, ts uint32) {
	var b [17]byte
	b[0], b[1], b[2] = byte(ts), byte(ts>>8), byte(ts>>16)
	binary.LittleEndian.PutUint16(b[3:], uint16(temp))
	for i := 0; i < 3; i++ {
		binary.LittleEndian.PutUint16(b[5+2*i:], uint16(acc[i]))
		binary.LittleEndian.PutUint16(b[11+2*i:], uint16(gyr[i]))
	}
	m.Set(0x30, b[:]...)
}

// Touch models an FT5x06-family controller reporting at most one point.
type Touch struct {
	Regs
}

func NewTouch() *Touch {
	t := &Touch{}
	t.Set(0xA3, 0x64)
	return t
}

// Press reports a finger at x, y.
func (t *Touch) Press(x, y uint16) {
	t.Set(0x02, 1, byte(x>>8)&0x0F, byte(x), byte(y>>8)&0x0F, byte(y))
}

// Lift reports no touch.
func (t *Touch) Lift() { t.Set(0x02, 0) }

// Board is a peripheral bus populated with every chip model.
type Board struct {
	Bus   *Bus
	RTC   *Regs
	PMU   *Regs
	IMU   *IMU
	Touch *Touch
}

// NewBoard attaches fresh chip models to a new bus.
func NewBoard() *Board {
	b := &Board{
		Bus:   NewBus(),
		RTC:   NewRTC(),
		PMU:   NewPMU(),
		IMU:   NewIMU(),
		Touch: NewTouch(),
	}
	b.Bus.Attach(AddrRTC, b.RTC)
	b.Bus.Attach(AddrPMU, b.PMU)
	b.Bus.Attach(AddrIMU, b.IMU)
	b.Bus.Attach(AddrTouch, b.Touch)
	return b
}
