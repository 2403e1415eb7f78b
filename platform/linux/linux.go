//go:build linux

// Package linux opens the board's buses on a Linux host through periph.io's
// host drivers (/dev/i2c-N, /dev/spidevB.C).
package linux

import (
	"fmt"
	"strconv"
	"sync"

	"amoled-bsp/i2cbus"

	"go.uber.org/multierr"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"
	"tinygo.org/x/drivers"
)

var (
	initOnce sync.Once
	initErr  error
)

// Init loads periph.io's host drivers once per process.
func Init() error {
	initOnce.Do(func() {
		_, initErr = host.Init()
	})
	return initErr
}

// Opener maps bus id N to the kernel's i2c-N adapter. Pin and pull-up
// settings belong to the device tree and are ignored.
type Opener struct {
	mu     sync.Mutex
	opened []i2c.BusCloser
}

var _ i2cbus.Opener = (*Opener)(nil)

func (o *Opener) Open(id i2cbus.BusID, _ i2cbus.BusConfig) (drivers.I2C, error) {
	if err := Init(); err != nil {
		return nil, fmt.Errorf("linux: host init: %w", err)
	}
	b, err := i2creg.Open(strconv.Itoa(int(id)))
	if err != nil {
		return nil, fmt.Errorf("linux: open %v: %w", id, err)
	}
	o.mu.Lock()
	o.opened = append(o.opened, b)
	o.mu.Unlock()
	return b, nil
}

// Close closes every bus opened so far.
func (o *Opener) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	var err error
	for _, b := range o.opened {
		err = multierr.Append(err, b.Close())
	}
	o.opened = nil
	return err
}

// OpenSPI opens a spidev port by name ("" picks the first one).
func OpenSPI(name string) (spi.PortCloser, error) {
	if err := Init(); err != nil {
		return nil, fmt.Errorf("linux: host init: %w", err)
	}
	p, err := spireg.Open(name)
	if err != nil {
		return nil, fmt.Errorf("linux: open spi %q: %w", name, err)
	}
	return p, nil
}

// Pin returns GPIO n, or nil when n is negative or unknown to the host.
func Pin(n int) gpio.PinIO {
	if n < 0 || Init() != nil {
		return nil
	}
	return gpioreg.ByName(strconv.Itoa(n))
}
