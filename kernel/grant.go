package kernel

import (
	"fmt"
	"sync"
)

// ProcessID identifies a process for per-process grant regions. Process
// management itself lives above this layer; here an ID is only a key.
type ProcessID uint32

// Kernel owns the grant registry: the table mapping a driver's registration
// number to its reserved per-process state. Entries are created during
// assembly, require a capability token, and are never deleted.
type Kernel struct {
	mu     sync.Mutex
	grants map[uint32]bool // driverNum -> taken
}

// New constructs a kernel and the single TrustedAssembly handle able to
// mint capability tokens for it.
func New() (*Kernel, TrustedAssembly) {
	k := &Kernel{grants: map[uint32]bool{}}
	return k, TrustedAssembly{k: k}
}

// Grant is a driver's handle to its reserved per-process region of type T.
// The privilege check happened once, at CreateGrant; holding the handle is
// all a driver needs afterwards.
type Grant[T any] struct {
	driverNum uint32

	mu    sync.Mutex
	procs map[ProcessID]*T
}

// CreateGrant reserves the per-process region for driverNum. It is the only
// privileged operation in this layer and demands a token minted by trusted
// assembly code.
//
// Requesting a grant for a driverNum that already has one is an assembly
// bug, not a runtime condition, and panics deterministically. The policy is
// explicit failure rather than idempotent lookup: two components silently
// sharing a region would be far harder to debug than a boot-time stop.
func CreateGrant[T any](k *Kernel, driverNum uint32, token MemoryAllocationCapability) *Grant[T] {
	if token == nil {
		panic("kernel: grant requested without capability")
	}
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.grants[driverNum] {
		panic(fmt.Sprintf("kernel: duplicate grant for driver %d", driverNum))
	}
	k.grants[driverNum] = true
	return &Grant[T]{driverNum: driverNum, procs: map[ProcessID]*T{}}
}

// DriverNum returns the registration number the grant was created under.
func (g *Grant[T]) DriverNum() uint32 { return g.driverNum }

// Enter runs f with exclusive access to the process's region, allocating a
// zeroed one on first entry. Regions live until system shutdown; there is
// no release path.
func (g *Grant[T]) Enter(p ProcessID, f func(*T)) {
	g.mu.Lock()
	defer g.mu.Unlock()
	r, ok := g.procs[p]
	if !ok {
		r = new(T)
		g.procs[p] = r
	}
	f(r)
}

// Each iterates every allocated region. Iteration order is unspecified.
func (g *Grant[T]) Each(f func(ProcessID, *T)) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for p, r := range g.procs {
		f(p, r)
	}
}
