// Package virtuali2c multiplexes one physical I2C master across many
// logical device handles. The mux owns the master exclusively, keeps at
// most one physical transaction in flight, and dispatches each completion
// back to the handle that issued it before starting the next request.
//
// Queueing policy: FIFO across handles, in request-acceptance order. A
// handle that requests while another handle's transaction is in flight is
// queued, not rejected; Busy is only returned to a handle that already has
// its own request outstanding.
package virtuali2c

import (
	"sync"

	"drivercore-go/errcode"
	"drivercore-go/hil"
)

type Mux struct {
	master hil.I2CMaster

	mu       sync.Mutex
	inflight *Device
	queue    []*Device
}

// NewMux takes exclusive ownership of master and registers itself as the
// master's completion client. Nothing else may drive master afterwards.
func NewMux(master hil.I2CMaster) *Mux {
	m := &Mux{master: master}
	master.SetClient(m)
	return m
}

// NewDevice returns a handle bound to a fixed target address. The value is
// returned (not a pointer) so components can move it into a static cell.
func (m *Mux) NewDevice(addr uint8) Device {
	return Device{mux: m, addr: addr}
}

// enqueue accepts d's pending transaction into the FIFO. Caller must have
// set d.pending and d.outstanding under m.mu already (see Device.submit).
func (m *Mux) enqueue(d *Device) {
	m.queue = append(m.queue, d)
}

// kick starts the head of the queue when the bus is idle. Runs without the
// lock held across master.Begin so a synchronous master cannot deadlock.
func (m *Mux) kick() {
	for {
		m.mu.Lock()
		if m.inflight != nil || len(m.queue) == 0 {
			m.mu.Unlock()
			return
		}
		d := m.queue[0]
		m.queue = m.queue[1:]
		m.inflight = d
		txn := d.pending
		m.mu.Unlock()

		code := m.master.Begin(txn)
		if code == errcode.OK {
			return
		}
		// The master refused a transaction we were entitled to start.
		// Surface the fault to the issuing handle and try the next one.
		m.mu.Lock()
		m.inflight = nil
		d.outstanding = false
		c := d.client
		m.mu.Unlock()
		if c != nil {
			c.TxnComplete(txn, code)
		}
	}
}

// TxnComplete implements hil.I2CClient. It retires the in-flight handle,
// delivers its completion synchronously, then starts the next queued
// request. The callback runs with the mux unlocked, so the handle's owner
// may issue a follow-up transaction from inside it; that follow-up joins
// the back of the FIFO behind already-waiting handles.
func (m *Mux) TxnComplete(txn hil.I2CTxn, status errcode.Code) {
	m.mu.Lock()
	d := m.inflight
	m.inflight = nil
	var c hil.I2CClient
	if d != nil {
		d.outstanding = false
		c = d.client
	}
	m.mu.Unlock()

	if c != nil {
		c.TxnComplete(txn, status)
	}
	m.kick()
}
