// Package hwbus adapts a synchronous transaction bus in the
// tinygo.org/x/drivers shape (blocking Tx) to the asynchronous
// hil.I2CMaster contract. A single worker goroutine owns the hardware and
// serialises transactions, so the one-in-flight and completion-ordering
// guarantees hold by construction.
package hwbus

import (
	"context"
	"sync"

	"tinygo.org/x/drivers"

	"drivercore-go/errcode"
	"drivercore-go/hil"
)

const defaultQueueLen = 4

type Master struct {
	bus  drivers.I2C
	jobs chan hil.I2CTxn

	mu     sync.Mutex
	client hil.I2CClient
	closed bool
}

var _ hil.I2CMaster = (*Master)(nil)

// New wraps bus. The queue length bounds how many accepted-but-unstarted
// transactions Begin will hold; the virtuali2c mux only ever submits one.
func New(bus drivers.I2C, queueLen int) *Master {
	if queueLen <= 0 {
		queueLen = defaultQueueLen
	}
	return &Master{bus: bus, jobs: make(chan hil.I2CTxn, queueLen)}
}

func (m *Master) SetClient(c hil.I2CClient) {
	m.mu.Lock()
	m.client = c
	m.mu.Unlock()
}

// Begin enqueues one transaction; it never blocks. After the worker has
// shut down Begin refuses with Fault, so every OK is matched by exactly
// one completion.
func (m *Master) Begin(txn hil.I2CTxn) errcode.Code {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return errcode.Fault
	}
	select {
	case m.jobs <- txn:
		return errcode.OK
	default:
		return errcode.Busy
	}
}

// Start launches the bus worker. On cancellation the master marks itself
// closed before draining, so transactions still queued complete with
// Fault and later Begin calls are refused.
func (m *Master) Start(ctx context.Context) {
	go func() {
		for {
			select {
			case <-ctx.Done():
				m.mu.Lock()
				m.closed = true
				m.mu.Unlock()
				m.drain()
				return
			case txn := <-m.jobs:
				err := m.bus.Tx(uint16(txn.Addr), txn.W, txn.R)
				m.complete(txn, statusOf(err))
			}
		}
	}()
}

func (m *Master) drain() {
	for {
		select {
		case txn := <-m.jobs:
			m.complete(txn, errcode.Fault)
		default:
			return
		}
	}
}

func (m *Master) complete(txn hil.I2CTxn, status errcode.Code) {
	m.mu.Lock()
	c := m.client
	m.mu.Unlock()
	if c != nil {
		c.TxnComplete(txn, status)
	}
}

// statusOf maps driver errors onto bus codes. Simulated and errcode-aware
// buses pass codes through unchanged; anything else is a generic fault.
func statusOf(err error) errcode.Code {
	if err == nil {
		return errcode.OK
	}
	if c := errcode.Of(err); c != errcode.Error {
		return c
	}
	return errcode.Fault
}
