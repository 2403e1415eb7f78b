package axp2101

import (
	"errors"
	"fmt"

	"amoled-bsp/errcode"
	"amoled-bsp/i2cbus"
	"amoled-bsp/x/mathx"
)

// ErrChipID is returned by Begin when the identity register does not match.
var ErrChipID = errors.New("axp2101: unexpected chip id")

// ChargeVoltage selects the charge target (register 0x64 code).
type ChargeVoltage uint8

const (
	Charge4V0  ChargeVoltage = 1
	Charge4V1  ChargeVoltage = 2
	Charge4V2  ChargeVoltage = 3
	Charge4V35 ChargeVoltage = 4
	Charge4V4  ChargeVoltage = 5
)

// ChargeVoltageFromMV maps 4000, 4100, 4200, 4350 or 4400 mV to its code.
func ChargeVoltageFromMV(mV uint16) (ChargeVoltage, bool) {
	switch mV {
	case 4000:
		return Charge4V0, true
	case 4100:
		return Charge4V1, true
	case 4200:
		return Charge4V2, true
	case 4350:
		return Charge4V35, true
	case 4400:
		return Charge4V4, true
	}
	return 0, false
}

// ChargeState is the battery current direction.
type ChargeState uint8

const (
	Standby ChargeState = iota
	Charging
	Discharging
)

func (s ChargeState) String() string {
	switch s {
	case Charging:
		return "charging"
	case Discharging:
		return "discharging"
	default:
		return "standby"
	}
}

// Status is one telemetry snapshot. Voltages in mV, temperature in m°C.
type Status struct {
	TempMilliC       int32
	BatteryMV        uint16
	VbusMV           uint16
	SystemMV         uint16
	BatteryPercent   uint8
	State            ChargeState
	VbusIn           bool
	VbusGood         bool
	BatteryConnected bool
}

// Charging, Discharge and Standby mirror the direction bits.
func (s Status) Charging() bool  { return s.State == Charging }
func (s Status) Discharge() bool { return s.State == Discharging }
func (s Status) Standby() bool   { return s.State == Standby }

// Device talks to one AXP2101.
type Device struct {
	io  i2cbus.RegisterIO
	buf [2]byte
}

// New binds a driver to io. Call Begin before anything else.
func New(io i2cbus.RegisterIO) *Device {
	return &Device{io: io}
}

func (d *Device) read(reg byte, buf []byte) error {
	if err := d.io.ReadRegister(Address, reg, buf); err != nil {
		return fmt.Errorf("axp2101: read %#02x: %w", reg, err)
	}
	return nil
}

func (d *Device) write(reg byte, data []byte) error {
	if err := d.io.WriteRegister(Address, reg, data); err != nil {
		return fmt.Errorf("axp2101: write %#02x: %w", reg, err)
	}
	return nil
}

func (d *Device) readByte(reg byte) (byte, error) {
	err := d.read(reg, d.buf[:1])
	return d.buf[0], err
}

func (d *Device) writeByte(reg, v byte) error {
	d.buf[0] = v
	return d.write(reg, d.buf[:1])
}

// update clears then sets bits in reg with one read and one write.
func (d *Device) update(reg, clr, set byte) error {
	v, err := d.readByte(reg)
	if err != nil {
		return err
	}
	return d.writeByte(reg, v&^clr|set)
}

func invalid(msg string) error {
	return &errcode.E{C: errcode.InvalidArgument, Op: "axp2101", Msg: msg}
}

// Begin checks the chip identity, clears pending interrupts and turns on the
// VBUS, battery, system and die-temperature ADC channels. The TS pin
// measurement is switched off; the board has no thermistor.
func (d *Device) Begin() error {
	id, err := d.readByte(regChipID)
	if err != nil {
		return err
	}
	if id != chipID {
		return fmt.Errorf("%w: %#02x", ErrChipID, id)
	}
	if err := d.ClearIRQ(IRQAll); err != nil {
		return err
	}
	return d.update(regADCEnable, adcTSPin,
		adcVbusVoltage|adcBattVoltage|adcSysVoltage|adcDieTemp)
}

// EnableRail switches r on.
func (d *Device) EnableRail(r Rail) error { return d.setRail(r, true) }

// DisableRail switches r off.
func (d *Device) DisableRail(r Rail) error { return d.setRail(r, false) }

func (d *Device) setRail(r Rail, on bool) error {
	if r >= numRails {
		return invalid("unknown rail")
	}
	s := rails[r]
	bit := byte(1) << s.enBit
	if on {
		return d.update(s.enReg, 0, bit)
	}
	return d.update(s.enReg, bit, 0)
}

// RailEnabled reports whether r is on.
func (d *Device) RailEnabled(r Rail) (bool, error) {
	if r >= numRails {
		return false, invalid("unknown rail")
	}
	s := rails[r]
	v, err := d.readByte(s.enReg)
	return v&(1<<s.enBit) != 0, err
}

// SetRailVoltage programs r's output. mV must lie on the rail's step grid.
func (d *Device) SetRailVoltage(r Rail, mV uint16) error {
	if r >= numRails {
		return invalid("unknown rail")
	}
	s := rails[r]
	code, ok := s.code(mV)
	if !ok {
		return invalid(fmt.Sprintf("%v: %d mV not supported", r, mV))
	}
	return d.update(s.vReg, s.vMask, code)
}

// RailVoltage reads r's programmed output in mV.
func (d *Device) RailVoltage(r Rail) (uint16, error) {
	if r >= numRails {
		return 0, invalid("unknown rail")
	}
	s := rails[r]
	v, err := d.readByte(s.vReg)
	if err != nil {
		return 0, err
	}
	mV, ok := s.millivolts(v)
	if !ok {
		return 0, fmt.Errorf("axp2101: %v: reserved voltage code %#02x", r, v)
	}
	return mV, nil
}

// SetPrechargeCurrent sets the precharge current, 0..200 mA in 25 mA steps.
func (d *Device) SetPrechargeCurrent(mA uint16) error {
	code, ok := mathx.StepIndex(mA, 0, 200, 25)
	if !ok {
		return invalid("precharge current not supported")
	}
	return d.update(regPrechargeCurr, 0x0F, byte(code))
}

// SetChargeCurrent sets the constant-charge current: 0..200 mA in 25 mA
// steps, then 300..1000 mA in 100 mA steps.
func (d *Device) SetChargeCurrent(mA uint16) error {
	var code byte
	if i, ok := mathx.StepIndex(mA, 0, 200, 25); ok {
		code = byte(i)
	} else if i, ok := mathx.StepIndex(mA, 300, 1000, 100); ok {
		code = byte(9 + i)
	} else {
		return invalid("charge current not supported")
	}
	return d.update(regChargeCurr, 0x1F, code)
}

// SetTerminationCurrent sets the end-of-charge current, 0..200 mA in 25 mA
// steps.
func (d *Device) SetTerminationCurrent(mA uint16) error {
	code, ok := mathx.StepIndex(mA, 0, 200, 25)
	if !ok {
		return invalid("termination current not supported")
	}
	return d.update(regTermCurr, 0x0F, byte(code))
}

// SetChargeTargetVoltage sets the float voltage.
func (d *Device) SetChargeTargetVoltage(v ChargeVoltage) error {
	if !mathx.Between(v, Charge4V0, Charge4V4) {
		return invalid("charge voltage not supported")
	}
	return d.update(regChargeVolt, 0x07, byte(v))
}

// adc reads a high/low register pair, masking the unused high bits.
func (d *Device) adc(reg byte, hiMask byte) (uint16, error) {
	if err := d.read(reg, d.buf[:2]); err != nil {
		return 0, err
	}
	return uint16(d.buf[0]&hiMask)<<8 | uint16(d.buf[1]), nil
}

// Status reads a full telemetry snapshot. Battery values are zero when no
// battery is connected and VBUS voltage is zero when VBUS is absent.
func (d *Device) Status() (Status, error) {
	var st Status
	var b [2]byte
	if err := d.read(regStatus1, b[:]); err != nil {
		return st, err
	}
	st.VbusGood = b[0]&status1VbusGood != 0
	st.BatteryConnected = b[0]&status1BattExists != 0
	st.VbusIn = b[1]&status2VbusAbsent == 0 && st.VbusGood
	switch (b[1] >> 5) & 0x03 {
	case 1:
		st.State = Charging
	case 2:
		st.State = Discharging
	}

	raw, err := d.adc(regTempH, 0x3F)
	if err != nil {
		return st, err
	}
	// 22 °C at raw 7274, -0.05 °C per LSB
	st.TempMilliC = 22000 + (7274-int32(raw))*50

	if st.SystemMV, err = d.adc(regVSysH, 0x3F); err != nil {
		return st, err
	}
	if st.VbusIn {
		if st.VbusMV, err = d.adc(regVBusH, 0x3F); err != nil {
			return st, err
		}
	}
	if st.BatteryConnected {
		if st.BatteryMV, err = d.adc(regVBatH, 0x1F); err != nil {
			return st, err
		}
		pct, err := d.readByte(regBattPct)
		if err != nil {
			return st, err
		}
		st.BatteryPercent = mathx.Clamp(pct, 0, 100)
	}
	return st, nil
}
