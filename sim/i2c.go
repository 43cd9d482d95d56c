// Package sim provides an in-memory transaction bus with register-file
// peripherals and scripted fault injection. It satisfies the same Tx shape
// as tinygo.org/x/drivers buses, so it plugs into hwbus unchanged and backs
// both the test suites and the demo binary.
package sim

import (
	"sync"

	"drivercore-go/errcode"
)

// Peripheral is one addressable register file on the simulated bus.
type Peripheral interface {
	Tx(w, r []byte) errcode.Code
}

// Bus routes transactions to attached peripherals. An address with no
// peripheral answers with an address NAK, like real silicon.
type Bus struct {
	mu     sync.Mutex
	devs   map[uint8]Peripheral
	faults []fault
}

type fault struct {
	addr uint8
	code errcode.Code
}

func NewBus() *Bus {
	return &Bus{devs: map[uint8]Peripheral{}}
}

func (b *Bus) Attach(addr uint8, p Peripheral) {
	b.mu.Lock()
	b.devs[addr] = p
	b.mu.Unlock()
}

// FailNext scripts a one-shot failure for the next transaction addressed
// to addr. Multiple scripted faults apply in FIFO order.
func (b *Bus) FailNext(addr uint8, code errcode.Code) {
	b.mu.Lock()
	b.faults = append(b.faults, fault{addr: addr, code: code})
	b.mu.Unlock()
}

// Tx implements the drivers.I2C transaction shape. Failures are returned
// as errcode values, which implement error, so hwbus passes them through
// without translation.
func (b *Bus) Tx(addr uint16, w, r []byte) error {
	b.mu.Lock()
	for i, f := range b.faults {
		if f.addr == uint8(addr) {
			b.faults = append(b.faults[:i], b.faults[i+1:]...)
			b.mu.Unlock()
			return f.code
		}
	}
	p, ok := b.devs[uint8(addr)]
	b.mu.Unlock()
	if !ok {
		return errcode.AddrNAK
	}
	if code := p.Tx(w, r); code != errcode.OK {
		return code
	}
	return nil
}
