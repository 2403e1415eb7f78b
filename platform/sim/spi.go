package sim

import (
	"errors"
	"sync"

	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
)

// Frame is one recorded SPI write.
type Frame []byte

// Op returns the QSPI opcode and command byte of a panel frame.
func (f Frame) Op() (op, cmd byte) {
	if len(f) < 4 {
		return 0, 0
	}
	return f[0], f[2]
}

// Payload returns the bytes after the 4-byte header.
func (f Frame) Payload() []byte {
	if len(f) < 4 {
		return nil
	}
	return f[4:]
}

// Port records everything written through connections made on it. It
// implements spi.PortCloser.
type Port struct {
	mu       sync.Mutex
	frames   []Frame
	speed    physic.Frequency
	connects int
	failTx   int
	closed   bool

	// ConnectErr, when set, fails Connect.
	ConnectErr error
}

var _ spi.PortCloser = (*Port)(nil)

// ErrSPI is returned by transfers failed with FailTx.
var ErrSPI = errors.New("sim: spi transfer failed")

func (p *Port) String() string { return "sim-spi" }

func (p *Port) Connect(f physic.Frequency, mode spi.Mode, bits int) (spi.Conn, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ConnectErr != nil {
		return nil, p.ConnectErr
	}
	p.connects++
	p.speed = f
	return &portConn{p: p}, nil
}

func (p *Port) LimitSpeed(f physic.Frequency) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.speed = f
	return nil
}

// FailTx makes the next n transfers fail.
func (p *Port) FailTx(n int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failTx = n
}

// Frames returns a copy of the recorded writes.
func (p *Port) Frames() []Frame {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Frame(nil), p.frames...)
}

// Reset forgets recorded writes.
func (p *Port) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.frames = nil
}

func (p *Port) Speed() physic.Frequency {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.speed
}

func (p *Port) Connects() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.connects
}

func (p *Port) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

func (p *Port) Closed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

func (p *Port) record(w []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failTx > 0 {
		p.failTx--
		return ErrSPI
	}
	p.frames = append(p.frames, append(Frame(nil), w...))
	return nil
}

type portConn struct{ p *Port }

func (c *portConn) String() string       { return "sim-spi-conn" }
func (c *portConn) Duplex() conn.Duplex  { return conn.Half }
func (c *portConn) Tx(w, r []byte) error { return c.p.record(w) }

func (c *portConn) TxPackets(pkts []spi.Packet) error {
	for _, pk := range pkts {
		if err := c.p.record(pk.W); err != nil {
			return err
		}
	}
	return nil
}
