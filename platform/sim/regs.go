package sim

import "sync"

// Regs is a 256-byte register file with an auto-incrementing pointer: the
// first written byte selects the register, further bytes are stored, reads
// continue from the pointer.
type Regs struct {
	mu  sync.Mutex
	mem [256]byte
	ptr byte

	// OnWrite, when set, decides what lands in mem for each written byte.
	OnWrite func(mem *[256]byte, reg, v byte)
	// OnRead, when set, runs before each read burst with the start register.
	OnRead func(mem *[256]byte, reg byte)

	writes int
}

func (r *Regs) Tx(w, rd []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(w) > 0 {
		r.ptr = w[0]
		for _, v := range w[1:] {
			if r.OnWrite != nil {
				r.OnWrite(&r.mem, r.ptr, v)
			} else {
				r.mem[r.ptr] = v
			}
			r.ptr++
			r.writes++
		}
	}
	if len(rd) > 0 && r.OnRead != nil {
		r.OnRead(&r.mem, r.ptr)
	}
	for i := range rd {
		rd[i] = r.mem[r.ptr]
		r.ptr++
	}
	return nil
}

// Get returns a register value.
func (r *Regs) Get(reg byte) byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.mem[reg]
}

// Set stores a register value without running hooks.
func (r *Regs) Set(reg byte, v ...byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, b := range v {
		r.mem[reg+byte(i)] = b
	}
}

// Writes reports how many data bytes were written through Tx.
func (r *Regs) Writes() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.writes
}
