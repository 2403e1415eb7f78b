// Package i2cbus shares I²C buses between independent peripheral drivers.
//
// A Registry owns at most one Bus per BusID and creates it lazily on the first
// Acquire. Drivers bind a Device (address + speed) on a Bus and issue register
// transactions through it. Every Bus serialises wire access behind a single
// worker goroutine; each transaction is bounded by a fixed timeout.
//
//	reg := i2cbus.NewRegistry(opener)
//	b, err := reg.Acquire(0, i2cbus.BusConfig{SDA: 15, SCL: 14, PullUp: true})
//	dev, err := b.Bind("clock", 0x51, 400*physic.KiloHertz)
//	err = dev.WriteRegister(0x04, payload)
package i2cbus

import (
	"strconv"
	"sync"
	"time"

	"amoled-bsp/errcode"

	"tinygo.org/x/drivers"
)

// DefaultTimeout bounds every transaction (enqueue + completion).
const DefaultTimeout = 1000 * time.Millisecond

// BusID identifies a logical bus, e.g. a controller port number.
type BusID int

func (id BusID) String() string { return "i2c" + strconv.Itoa(int(id)) }

// BusConfig carries the line and clock parameters used when a bus is created.
type BusConfig struct {
	SDA          int  `json:"sda"`
	SCL          int  `json:"scl"`
	GlitchIgnore int  `json:"glitch_ignore,omitempty"`
	PullUp       bool `json:"pull_up"`
}

// Opener creates the underlying bus for an id. It is called at most once per
// id for as long as the previous attempt succeeded.
type Opener interface {
	Open(id BusID, cfg BusConfig) (drivers.I2C, error)
}

// OpenerFunc adapts a function to Opener.
type OpenerFunc func(id BusID, cfg BusConfig) (drivers.I2C, error)

func (f OpenerFunc) Open(id BusID, cfg BusConfig) (drivers.I2C, error) { return f(id, cfg) }

// Option tunes a Registry.
type Option func(*Registry)

// WithTimeout overrides DefaultTimeout.
func WithTimeout(d time.Duration) Option {
	return func(r *Registry) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// WithStrictConfig rejects Acquire calls whose BusConfig differs from the one
// the bus was created with. Without it the later config is ignored.
func WithStrictConfig() Option {
	return func(r *Registry) { r.strict = true }
}

// Registry maps bus ids to lazily created, process-lifetime buses.
type Registry struct {
	opener  Opener
	timeout time.Duration
	strict  bool

	mu    sync.Mutex
	buses  map[BusID]*Bus
	opens  int
	closed bool
}

func NewRegistry(opener Opener, opts ...Option) *Registry {
	r := &Registry{
		opener:  opener,
		timeout: DefaultTimeout,
		buses:   make(map[BusID]*Bus),
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Acquire returns the bus for id, creating it with cfg if it does not exist.
// The existence check and the creation happen under one lock.
func (r *Registry) Acquire(id BusID, cfg BusConfig) (*Bus, error) {
	const op = "i2cbus.acquire"
	if id < 0 {
		return nil, errcode.New(errcode.InvalidArgument, op, "negative bus id")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, errcode.New(errcode.ResourceError, op, "registry closed")
	}
	if b, ok := r.buses[id]; ok {
		if r.strict && b.cfg != cfg {
			return nil, errcode.New(errcode.ConfigConflict, op, id.String()+" already created with different lines")
		}
		return b, nil
	}
	if r.opener == nil {
		return nil, errcode.New(errcode.ResourceError, op, "no opener")
	}

	hw, err := r.opener.Open(id, cfg)
	if err != nil {
		return nil, errcode.Wrap(errcode.ResourceError, op, err)
	}
	if hw == nil {
		return nil, errcode.New(errcode.ResourceError, op, "opener returned no bus")
	}
	r.opens++
	b := newBus(id, cfg, hw, r.timeout)
	r.buses[id] = b
	return b, nil
}

// Lookup returns an existing bus without creating one.
func (r *Registry) Lookup(id BusID) (*Bus, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.buses[id]
	return b, ok
}

// Len reports how many buses exist.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.buses)
}

// Opens reports how many times the opener succeeded.
func (r *Registry) Opens() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.opens
}

// Close stops every bus worker and forgets the buses. Later Acquire calls
// fail with ResourceError; Lookup finds nothing.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, b := range r.buses {
		b.own.stop()
	}
	clear(r.buses)
	r.closed = true
}
