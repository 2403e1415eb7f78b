// Package sim provides simulated peripherals for host builds: an I²C bus that
// routes transactions to register-file chip models, and an SPI port that
// records panel traffic. cmd/bsp-sim and the package tests run on it.
package sim

import (
	"errors"
	"sync"

	"amoled-bsp/i2cbus"

	"tinygo.org/x/drivers"
)

// ErrNack is returned for transactions nobody acknowledges.
var ErrNack = errors.New("sim: nack")

// Device answers transactions addressed to it.
type Device interface {
	Tx(w, r []byte) error
}

// Bus routes transactions by address. It implements drivers.I2C.
type Bus struct {
	mu       sync.Mutex
	devs     map[uint16]Device
	failNext map[uint16]int
	count    int
}

var _ drivers.I2C = (*Bus)(nil)

func NewBus() *Bus {
	return &Bus{
		devs:     make(map[uint16]Device),
		failNext: make(map[uint16]int),
	}
}

// Attach places d at addr, replacing any previous device.
func (b *Bus) Attach(addr uint16, d Device) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.devs[addr] = d
}

// Detach removes the device at addr; later transactions NACK.
func (b *Bus) Detach(addr uint16) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.devs, addr)
}

// FailNext makes the next n transactions to addr NACK.
func (b *Bus) FailNext(addr uint16, n int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failNext[addr] = n
}

// Count reports how many transactions reached the bus.
func (b *Bus) Count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.count
}

func (b *Bus) Tx(addr uint16, w, r []byte) error {
	b.mu.Lock()
	b.count++
	if n := b.failNext[addr]; n > 0 {
		b.failNext[addr] = n - 1
		b.mu.Unlock()
		return ErrNack
	}
	d := b.devs[addr]
	b.mu.Unlock()
	if d == nil {
		return ErrNack
	}
	return d.Tx(w, r)
}

// Opener hands out simulated buses by id; unknown ids fail.
type Opener struct {
	mu    sync.Mutex
	buses map[i2cbus.BusID]*Bus
}

func NewOpener() *Opener {
	return &Opener{buses: make(map[i2cbus.BusID]*Bus)}
}

// Add registers bus under id.
func (o *Opener) Add(id i2cbus.BusID, bus *Bus) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.buses[id] = bus
}

func (o *Opener) Open(id i2cbus.BusID, _ i2cbus.BusConfig) (drivers.I2C, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	b, ok := o.buses[id]
	if !ok {
		return nil, errors.New("sim: no bus " + id.String())
	}
	return b, nil
}

// Direct exposes d as a RegisterIO without a registry, for driver tests.
func Direct(d Device, addr uint8) i2cbus.RegisterIO { return direct{d: d, addr: addr} }

type direct struct {
	d    Device
	addr uint8
}

func (x direct) ReadRegister(addr uint8, reg uint8, buf []byte) error {
	if addr != x.addr {
		return ErrNack
	}
	return x.d.Tx([]byte{reg}, buf)
}

func (x direct) WriteRegister(addr uint8, reg uint8, buf []byte) error {
	if addr != x.addr {
		return ErrNack
	}
	return x.d.Tx(append([]byte{reg}, buf...), nil)
}
