package components

import (
	"context"
	"fmt"
	"sync"

	"drivercore-go/eventbus"
	"drivercore-go/kernel"
	"drivercore-go/virtuali2c"
)

// BuildInput is what board assembly hands a registered builder: validated
// configuration plus the already-constructed shared resources.
type BuildInput struct {
	ID        string
	DriverNum uint32
	Params    map[string]any
	Mux       *virtuali2c.Mux
	Kernel    *kernel.Kernel
	Assembly  kernel.TrustedAssembly
	Bus       *eventbus.Bus
}

// Instance is a built device service.
type Instance interface {
	ID() string
	Run(ctx context.Context)
}

// Builder creates one device instance from a board-plan entry.
type Builder interface {
	Build(in BuildInput) (Instance, error)
}

var (
	regMu    sync.RWMutex
	builders = map[string]Builder{}
)

// RegisterBuilder installs a builder for a device type string. Duplicate
// registration is an assembly bug and panics.
func RegisterBuilder(deviceType string, b Builder) {
	regMu.Lock()
	defer regMu.Unlock()
	if _, exists := builders[deviceType]; exists {
		panic(fmt.Sprintf("components: duplicate builder for type %q", deviceType))
	}
	builders[deviceType] = b
}

// Lookup finds the builder for a device type.
func Lookup(deviceType string) (Builder, bool) {
	regMu.RLock()
	defer regMu.RUnlock()
	b, ok := builders[deviceType]
	return b, ok
}
