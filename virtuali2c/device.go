package virtuali2c

import (
	"drivercore-go/errcode"
	"drivercore-go/hil"
)

// Device is a logical client view of the shared bus: a fixed target
// address plus a single pending-request slot. Completions for a device are
// delivered in the order its requests were accepted (trivially, because a
// device may only have one outstanding at a time).
type Device struct {
	mux  *Mux
	addr uint8

	client      hil.I2CClient
	pending     hil.I2CTxn
	outstanding bool
}

var _ hil.I2CDevice = (*Device)(nil)

// Addr returns the immutable target address.
func (d *Device) Addr() uint8 { return d.addr }

// SetClient registers the completion callback owner. A second call
// replaces the first (last-writer-wins). That is deliberate: components
// re-parent handles while wiring the object graph. After assembly
// completes, re-registration is not part of the contract and callers must
// not rely on it.
func (d *Device) SetClient(c hil.I2CClient) {
	d.mux.mu.Lock()
	d.client = c
	d.mux.mu.Unlock()
}

func (d *Device) Write(w []byte) errcode.Code {
	return d.submit(hil.I2CTxn{Addr: d.addr, W: w})
}

func (d *Device) Read(r []byte) errcode.Code {
	return d.submit(hil.I2CTxn{Addr: d.addr, R: r})
}

func (d *Device) WriteRead(w, r []byte) errcode.Code {
	return d.submit(hil.I2CTxn{Addr: d.addr, W: w, R: r})
}

func (d *Device) submit(txn hil.I2CTxn) errcode.Code {
	m := d.mux
	m.mu.Lock()
	if d.outstanding {
		m.mu.Unlock()
		return errcode.Busy
	}
	d.outstanding = true
	d.pending = txn
	m.enqueue(d)
	m.mu.Unlock()
	m.kick()
	return errcode.OK
}
