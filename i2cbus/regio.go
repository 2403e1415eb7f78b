package i2cbus

import "amoled-bsp/errcode"

// RegisterIO is the register-transaction capability handed to chip drivers.
// The shape follows the read/write callback pairs vendor libraries expect:
// the device address travels with every call.
type RegisterIO interface {
	ReadRegister(addr uint8, reg uint8, buf []byte) error
	WriteRegister(addr uint8, reg uint8, buf []byte) error
}

// IO returns a RegisterIO bound to d that refuses calls addressed to any
// other device.
func (d *Device) IO() RegisterIO { return deviceIO{d} }

type deviceIO struct{ d *Device }

func (io deviceIO) check(op string, addr uint8) error {
	if io.d == nil {
		return errcode.New(errcode.NotReady, op, "device not bound")
	}
	if uint16(addr) != io.d.addr {
		return errcode.New(errcode.InvalidArgument, op, "address does not match bound device")
	}
	return nil
}

func (io deviceIO) ReadRegister(addr uint8, reg uint8, buf []byte) error {
	if err := io.check("i2cbus.io.read", addr); err != nil {
		return err
	}
	return io.d.ReadRegister(reg, buf)
}

func (io deviceIO) WriteRegister(addr uint8, reg uint8, buf []byte) error {
	if err := io.check("i2cbus.io.write", addr); err != nil {
		return err
	}
	return io.d.WriteRegister(reg, buf)
}
