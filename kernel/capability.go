package kernel

// MemoryAllocationCapability is the unforgeable proof required to reserve
// per-process driver state. The interface carries an unexported marker
// method, so no package outside kernel can implement it; the only concrete
// value is minted through a TrustedAssembly handle. Drivers therefore can
// only ever receive a token as a parameter, never conjure one.
type MemoryAllocationCapability interface {
	memoryAllocationCapability()
}

type memAllocCap struct{}

func (memAllocCap) memoryAllocationCapability() {}

// TrustedAssembly is handed out exactly once, by New, to the code that
// constructed the kernel. It is the sole mint for capability tokens and is
// meant to stay inside board/chip assembly code: passing it into a driver
// defeats the point.
type TrustedAssembly struct {
	k *Kernel
}

// MemoryAllocation mints a fresh token. Tokens are zero-sized and
// ephemeral; mint one per privileged call site and let it go out of scope.
func (a TrustedAssembly) MemoryAllocation() MemoryAllocationCapability {
	if a.k == nil {
		panic("kernel: zero TrustedAssembly")
	}
	return memAllocCap{}
}
