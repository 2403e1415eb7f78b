package axp2101

// IRQ is a 24-bit interrupt mask spanning the three enable/status bytes.
type IRQ uint32

const (
	IRQPowerKeyLong    IRQ = 1 << 10
	IRQPowerKeyShort   IRQ = 1 << 11
	IRQBatteryRemove   IRQ = 1 << 12
	IRQBatteryInsert   IRQ = 1 << 13
	IRQVbusRemove      IRQ = 1 << 14
	IRQVbusInsert      IRQ = 1 << 15
	IRQBatteryOverVolt IRQ = 1 << 16
	IRQChargerTimer    IRQ = 1 << 17
	IRQDieOverTemp     IRQ = 1 << 18
	IRQChargeStart     IRQ = 1 << 19
	IRQChargeDone      IRQ = 1 << 20
	IRQBatfetOverCurr  IRQ = 1 << 21
	IRQLDOOverCurr     IRQ = 1 << 22
	IRQWatchdogExpire  IRQ = 1 << 23
	IRQAll             IRQ = 0xFFFFFF
)

func (m IRQ) bytes() [3]byte {
	return [3]byte{byte(m), byte(m >> 8), byte(m >> 16)}
}

func irqFrom(b [3]byte) IRQ {
	return IRQ(b[0]) | IRQ(b[1])<<8 | IRQ(b[2])<<16
}

// EnableIRQ unmasks the interrupts in m, leaving others as they are.
func (d *Device) EnableIRQ(m IRQ) error { return d.updateIRQ(m, true) }

// DisableIRQ masks the interrupts in m.
func (d *Device) DisableIRQ(m IRQ) error { return d.updateIRQ(m, false) }

func (d *Device) updateIRQ(m IRQ, on bool) error {
	var cur [3]byte
	if err := d.read(regIRQEnable, cur[:]); err != nil {
		return err
	}
	v := irqFrom(cur)
	if on {
		v |= m
	} else {
		v &^= m
	}
	b := (v & IRQAll).bytes()
	return d.write(regIRQEnable, b[:])
}

// IRQStatus reads the pending interrupt flags.
func (d *Device) IRQStatus() (IRQ, error) {
	var b [3]byte
	if err := d.read(regIRQStatus, b[:]); err != nil {
		return 0, err
	}
	return irqFrom(b), nil
}

// ClearIRQ acknowledges the flags in m (write-one-to-clear).
func (d *Device) ClearIRQ(m IRQ) error {
	b := (m & IRQAll).bytes()
	return d.write(regIRQStatus, b[:])
}

var irqNames = map[string]IRQ{
	"pkey_long":     IRQPowerKeyLong,
	"pkey_short":    IRQPowerKeyShort,
	"bat_remove":    IRQBatteryRemove,
	"bat_insert":    IRQBatteryInsert,
	"vbus_remove":   IRQVbusRemove,
	"vbus_insert":   IRQVbusInsert,
	"bat_over_volt": IRQBatteryOverVolt,
	"chg_timer":     IRQChargerTimer,
	"die_over_temp": IRQDieOverTemp,
	"chg_start":     IRQChargeStart,
	"chg_done":      IRQChargeDone,
	"batfet_oc":     IRQBatfetOverCurr,
	"ldo_oc":        IRQLDOOverCurr,
	"wdt_expire":    IRQWatchdogExpire,
}

// ParseIRQ maps a lower-case interrupt name (e.g. "vbus_insert") to its bit.
func ParseIRQ(name string) (IRQ, bool) {
	m, ok := irqNames[name]
	return m, ok
}
