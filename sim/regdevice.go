package sim

import (
	"sync"

	"drivercore-go/errcode"
)

// RegDevice models a byte-register peripheral with a sub-address pointer.
// Two increment disciplines exist on real parts and both are needed here:
// flag-gated (the LSM303DLHC accelerometer increments only when bit 7 of
// the sub-address is set) and unconditional (its magnetometer always
// increments).
type RegDevice struct {
	mu   sync.Mutex
	regs [256]byte

	// FlagGated selects the bit-7 auto-increment discipline.
	FlagGated bool

	ptr uint8
	inc bool
}

func NewRegDevice(flagGated bool) *RegDevice {
	return &RegDevice{FlagGated: flagGated, inc: !flagGated}
}

// Poke sets a register directly, bypassing the bus.
func (d *RegDevice) Poke(reg uint8, v byte) {
	d.mu.Lock()
	d.regs[reg] = v
	d.mu.Unlock()
}

// Peek reads a register directly, bypassing the bus.
func (d *RegDevice) Peek(reg uint8) byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.regs[reg]
}

// Tx applies the write phase (pointer byte plus payload), then fills r
// from the pointer. Without auto-increment, repeated reads return the same
// register, matching the silicon.
func (d *RegDevice) Tx(w, r []byte) errcode.Code {
	d.mu.Lock()
	defer d.mu.Unlock()

	if len(w) > 0 {
		p := w[0]
		if d.FlagGated {
			d.inc = p&0x80 != 0
			p &= 0x7F
		} else {
			d.inc = true
		}
		d.ptr = p
		for _, v := range w[1:] {
			d.regs[d.ptr] = v
			if d.inc {
				d.ptr++
			}
		}
	}
	for i := range r {
		r[i] = d.regs[d.ptr]
		if d.inc {
			d.ptr++
		}
	}
	return errcode.OK
}
