package board

import (
	"sync"

	"amoled-bsp/errcode"
	"amoled-bsp/i2cbus"

	"periph.io/x/conn/v3/physic"
)

// peripheral is one adapter's context: whether init succeeded, the borrowed
// bus, the owned device binding and the chip driver built on it.
type peripheral[D any] struct {
	reg  *i2cbus.Registry
	slot string

	mu          sync.Mutex
	initialized bool
	busID       i2cbus.BusID
	bus         *i2cbus.Bus
	dev         *i2cbus.Device
	drv         D
}

// init binds the peripheral once. A repeat call on the same bus and address
// is a no-op; anything else while initialised is a conflict. setup runs the
// chip's own bring-up; if it fails the binding is released and the context
// stays uninitialised so a later call can retry.
func (p *peripheral[D]) init(op string, id i2cbus.BusID, pins i2cbus.BusConfig, addr uint16, speed physic.Frequency,
	setup func(i2cbus.RegisterIO) (D, error)) error {
	if speed <= 0 {
		return errcode.New(errcode.InvalidArgument, op, "speed must be positive")
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.initialized {
		if p.busID != id {
			return &errcode.E{C: errcode.ConfigConflict, Op: op,
				Msg: "initialised on " + p.busID.String() + ", requested " + id.String()}
		}
		if p.dev.Addr() != addr {
			return errcode.New(errcode.ConfigConflict, op, "already bound at a different address")
		}
		return nil
	}

	bus, err := p.reg.Acquire(id, pins)
	if err != nil {
		return err
	}
	dev, err := bus.Bind(p.slot, addr, speed)
	if err != nil {
		return err
	}
	drv, err := setup(dev.IO())
	if err != nil {
		bus.Release(dev)
		return errcode.Wrap(errcode.ResourceError, op, err)
	}
	p.initialized, p.busID, p.bus, p.dev, p.drv = true, id, bus, dev, drv
	return nil
}

// driver returns the chip driver or NotReady before a successful init.
func (p *peripheral[D]) driver(op string) (D, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.initialized {
		var zero D
		return zero, errcode.New(errcode.NotReady, op, p.slot+" not initialised")
	}
	return p.drv, nil
}

// Initialized reports whether init has succeeded.
func (p *peripheral[D]) Initialized() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.initialized
}

// Device returns the owned binding, nil before init.
func (p *peripheral[D]) Device() *i2cbus.Device {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.dev
}
