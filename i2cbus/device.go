package i2cbus

import (
	"sync/atomic"

	"amoled-bsp/errcode"

	"periph.io/x/conn/v3/physic"
)

// Device is a bound peripheral. Transactions on one Device must be serialised
// by the caller; the bus worker serialises the wire across devices.
type Device struct {
	bus      *Bus
	slot     string
	addr     uint16
	speed    physic.Frequency
	released atomic.Bool
}

func (d *Device) Addr() uint16            { return d.addr }
func (d *Device) Speed() physic.Frequency { return d.speed }
func (d *Device) Slot() string            { return d.slot }
func (d *Device) Bus() *Bus               { return d.bus }

func (d *Device) ready(op string) error {
	if d == nil || d.bus == nil || d.released.Load() {
		return errcode.New(errcode.NotReady, op, "device not bound")
	}
	return nil
}

// ReadRegister writes reg and reads len(buf) bytes in one transaction.
func (d *Device) ReadRegister(reg byte, buf []byte) error {
	const op = "i2cbus.read"
	if len(buf) == 0 {
		return errcode.New(errcode.InvalidArgument, op, "empty read buffer")
	}
	if err := d.ready(op); err != nil {
		return err
	}
	w := [1]byte{reg}
	return d.tx(op, w[:], buf)
}

// Read is ReadRegister with a freshly allocated buffer of n bytes.
func (d *Device) Read(reg byte, n int) ([]byte, error) {
	if n <= 0 {
		return nil, errcode.New(errcode.InvalidArgument, "i2cbus.read", "length must be positive")
	}
	buf := make([]byte, n)
	if err := d.ReadRegister(reg, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// WriteRegister sends reg immediately followed by data as a single framed
// transaction. Devices such as the RTC latch the address and payload together.
func (d *Device) WriteRegister(reg byte, data []byte) error {
	const op = "i2cbus.write"
	if len(data) == 0 {
		return errcode.New(errcode.InvalidArgument, op, "empty payload")
	}
	if err := d.ready(op); err != nil {
		return err
	}
	w := make([]byte, 1+len(data))
	w[0] = reg
	copy(w[1:], data)
	return d.tx(op, w, nil)
}

func (d *Device) tx(op string, w, r []byte) error {
	err := d.bus.own.tx(txReq{addr: d.addr, speed: d.speed, w: w, r: r}, d.bus.timeout)
	switch {
	case err == nil:
		return nil
	case err == errcode.Timeout:
		return &errcode.E{C: errcode.Timeout, Op: op, Msg: d.bus.id.String() + "/" + d.slot}
	case err == errBusClosed:
		return err
	default:
		return &errcode.E{C: errcode.ResourceError, Op: op, Msg: d.bus.id.String() + "/" + d.slot, Err: err}
	}
}
