package telemetry

import (
	"drivercore-go/components"
	"drivercore-go/errcode"
)

func init() { components.RegisterBuilder("lsm303dlhc", builder{}) }

type builder struct{}

// Build reserves the storage cells, finalizes the sensor component, and
// wraps the driver in a telemetry service. Address params are optional;
// zero picks the part defaults.
func (builder) Build(in components.BuildInput) (components.Instance, error) {
	accelAddr, ok := addrParam(in.Params, "accel_addr")
	if !ok {
		return nil, errcode.InvalidParams
	}
	magAddr, ok := addrParam(in.Params, "mag_addr")
	if !ok {
		return nil, errcode.InvalidParams
	}

	comp := components.NewLSM303DLHC(in.Mux, accelAddr, magAddr, in.Kernel, in.Assembly, in.DriverNum)
	driver := comp.Finalize(components.LSM303DLHCStorageCells())

	return New(in.ID, in.Bus.NewConnection(in.ID), driver), nil
}

// addrParam reads an optional 7-bit address from the params map. Absent
// means zero (use the default); present but out of range is a config error.
func addrParam(params map[string]any, key string) (uint8, bool) {
	v, ok := params[key]
	if !ok {
		return 0, true
	}
	n, ok := v.(int)
	if !ok || n < 0 || n > 0x7F {
		return 0, false
	}
	return uint8(n), true
}
