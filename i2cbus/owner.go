package i2cbus

import (
	"sync"
	"time"

	"amoled-bsp/errcode"

	"periph.io/x/conn/v3/physic"
	"tinygo.org/x/drivers"
)

// speedSetter is implemented by periph.io i2c.Bus and by host buses that can
// retune SCL between transactions.
type speedSetter interface {
	SetSpeed(f physic.Frequency) error
}

type txReq struct {
	addr  uint16
	speed physic.Frequency
	w, r  []byte
	done  chan error // buffered(1); worker replies best-effort
	st    *txState
}

// txState settles the race between the worker completing a request and the
// caller giving up on it. Whichever side locks first wins: an abandoned
// request is never started and never writes into the caller's buffer.
type txState struct {
	mu        sync.Mutex
	abandoned bool
	done      bool
}

func (s *txState) isAbandoned() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.abandoned
}

// abandon reports false if the worker already delivered a result.
func (s *txState) abandon() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done {
		return false
	}
	s.abandoned = true
	return true
}

// owner hosts the single worker goroutine for one bus.
type owner struct {
	hw   drivers.I2C
	reqs chan txReq
	quit chan struct{}
	once sync.Once

	speed physic.Frequency // last applied; touched only by loop
	rbuf  []byte           // read scratch; touched only by loop
}

func newOwner(hw drivers.I2C) *owner {
	o := &owner{
		hw:   hw,
		reqs: make(chan txReq, 16),
		quit: make(chan struct{}),
	}
	go o.loop()
	return o
}

func (o *owner) loop() {
	for {
		select {
		case req := <-o.reqs:
			if req.st.isAbandoned() {
				continue
			}
			o.finish(req, o.apply(req))
		case <-o.quit:
			return
		}
	}
}

// apply reads into the worker's scratch, never into req.r directly.
func (o *owner) apply(req txReq) error {
	if ss, ok := o.hw.(speedSetter); ok && req.speed > 0 && req.speed != o.speed {
		if err := ss.SetSpeed(req.speed); err != nil {
			return err
		}
		o.speed = req.speed
	}
	var r []byte
	if len(req.r) > 0 {
		if cap(o.rbuf) < len(req.r) {
			o.rbuf = make([]byte, len(req.r))
		}
		r = o.rbuf[:len(req.r)]
	}
	return o.hw.Tx(req.addr, req.w, r)
}

// finish copies the read back and replies, unless the caller gave up.
func (o *owner) finish(req txReq, err error) {
	req.st.mu.Lock()
	if req.st.abandoned {
		req.st.mu.Unlock()
		return
	}
	if err == nil && len(req.r) > 0 {
		copy(req.r, o.rbuf[:len(req.r)])
	}
	req.st.done = true
	req.st.mu.Unlock()
	// buffered; never blocks the worker
	req.done <- err
}

func (o *owner) stop() { o.once.Do(func() { close(o.quit) }) }

var errBusClosed = errcode.New(errcode.ResourceError, "i2cbus.tx", "bus closed")

// tx posts a request and waits for completion. The deadline covers both the
// enqueue and the transaction itself. A request that times out is abandoned:
// if it has not started it never reaches the wire, and req.r is left as it
// was.
func (o *owner) tx(req txReq, timeout time.Duration) error {
	select {
	case <-o.quit:
		return errBusClosed
	default:
	}
	req.done = make(chan error, 1)
	req.st = &txState{}

	t := time.NewTimer(timeout)
	defer t.Stop()

	select {
	case o.reqs <- req:
	case <-o.quit:
		return errBusClosed
	case <-t.C:
		return errcode.Timeout
	}

	select {
	case err := <-req.done:
		return err
	case <-o.quit:
		if !req.st.abandon() {
			return <-req.done
		}
		return errBusClosed
	case <-t.C:
		if !req.st.abandon() {
			return <-req.done
		}
		return errcode.Timeout
	}
}
