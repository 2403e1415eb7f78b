package i2cbus

import (
	"strconv"
	"sync"
	"time"

	"amoled-bsp/errcode"

	"periph.io/x/conn/v3/physic"
	"tinygo.org/x/drivers"
)

// Bus is one shared bus. It is created by a Registry and lives until the
// Registry is closed.
type Bus struct {
	id      BusID
	cfg     BusConfig
	own     *owner
	timeout time.Duration

	mu     sync.Mutex
	slots  map[string]*Device // logical device -> binding
	byAddr map[uint16]*Device
}

func newBus(id BusID, cfg BusConfig, hw drivers.I2C, timeout time.Duration) *Bus {
	return &Bus{
		id:      id,
		cfg:     cfg,
		own:     newOwner(hw),
		timeout: timeout,
		slots:   make(map[string]*Device),
		byAddr:  make(map[uint16]*Device),
	}
}

func (b *Bus) ID() BusID         { return b.id }
func (b *Bus) Config() BusConfig { return b.cfg }

// Len reports how many devices are bound.
func (b *Bus) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.slots)
}

// Bind returns the device handle for slot at addr/speed.
//
// Binding the same slot again with identical parameters returns the existing
// handle. A slot may not move to another address or speed, and an address may
// only be held by one slot.
func (b *Bus) Bind(slot string, addr uint16, speed physic.Frequency) (*Device, error) {
	op := "i2cbus.bind " + b.id.String() + "/" + slot
	if slot == "" {
		return nil, errcode.New(errcode.InvalidArgument, op, "empty slot")
	}
	if addr == 0 || addr > 0x7F {
		return nil, errcode.New(errcode.InvalidArgument, op, "address out of 7-bit range")
	}
	if speed <= 0 {
		return nil, errcode.New(errcode.InvalidArgument, op, "speed must be positive")
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if d, ok := b.slots[slot]; ok {
		if d.addr == addr && d.speed == speed {
			return d, nil
		}
		return nil, errcode.New(errcode.ConfigConflict, op,
			"bound at 0x"+strconv.FormatUint(uint64(d.addr), 16)+" "+d.speed.String())
	}
	if other, ok := b.byAddr[addr]; ok {
		return nil, errcode.New(errcode.ResourceError, op,
			"address 0x"+strconv.FormatUint(uint64(addr), 16)+" held by "+other.slot)
	}

	d := &Device{bus: b, slot: slot, addr: addr, speed: speed}
	b.slots[slot] = d
	b.byAddr[addr] = d
	return d, nil
}

// Release drops a binding. The handle reports NotReady afterwards.
func (b *Bus) Release(d *Device) {
	if d == nil || d.bus != b {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if cur, ok := b.slots[d.slot]; ok && cur == d {
		delete(b.slots, d.slot)
		delete(b.byAddr, d.addr)
	}
	d.released.Store(true)
}
