// Package hil declares the narrow hardware interfaces the composition layer
// consumes. Concrete bus masters (hardware peripherals, the hwbus adaptor,
// simulated buses) live elsewhere and are substituted at assembly time.
package hil

import "drivercore-go/errcode"

// I2CTxn is one address-targeted bus transaction. W is transmitted first,
// then R is filled; either may be nil for a pure read or pure write. The
// slices are lent to the bus layer for the lifetime of the transaction and
// handed back, exactly once, in the completion callback.
type I2CTxn struct {
	Addr uint8
	W    []byte
	R    []byte
}

// I2CClient receives the outcome of a transaction it issued. The callback
// fires exactly once per accepted transaction, after the physical bus has
// gone idle again, and returns ownership of the lent buffers to the caller.
type I2CClient interface {
	TxnComplete(txn I2CTxn, status errcode.Code)
}

// I2CMaster is an asynchronous transaction-capable bus controller.
//
// Begin never blocks: it returns OK when the transaction was accepted and
// Busy (or a fault code) otherwise. Outcomes arrive later through the
// registered client. A master executes at most one transaction at a time.
type I2CMaster interface {
	SetClient(c I2CClient)
	Begin(txn I2CTxn) errcode.Code
}

// I2CDevice is a logical, address-bound client view of a shared bus. The
// target address is fixed at construction. A device may have at most one
// transaction outstanding; a second request while one is pending is
// rejected with Busy.
type I2CDevice interface {
	SetClient(c I2CClient)
	Write(w []byte) errcode.Code
	Read(r []byte) errcode.Code
	WriteRead(w, r []byte) errcode.Code
}
