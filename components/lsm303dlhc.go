// Package components holds the static builders that assemble driver object
// graphs from pre-reserved storage cells. A component is configuration
// only; Finalize consumes it together with its storage and returns the one
// long-lived driver instance, fully wired.
package components

import (
	"drivercore-go/drivers/lsm303dlhc"
	"drivercore-go/kernel"
	"drivercore-go/virtuali2c"
)

// LSM303DLHCStorage is the driver's exact static footprint: two device
// handles, the shared scratch buffer, and the driver itself. One cell per
// allocation; the shape is checked by the compiler, not at runtime.
type LSM303DLHCStorage struct {
	Accel  *kernel.Cell[virtuali2c.Device]
	Mag    *kernel.Cell[virtuali2c.Device]
	Buffer *kernel.Cell[[8]byte]
	Driver *kernel.Cell[lsm303dlhc.Driver]
}

// LSM303DLHCStorageCells reserves a fresh cell set. Call it once per
// component instance, at the Finalize call site.
func LSM303DLHCStorageCells() LSM303DLHCStorage {
	return LSM303DLHCStorage{
		Accel:  kernel.NewCell[virtuali2c.Device](),
		Mag:    kernel.NewCell[virtuali2c.Device](),
		Buffer: kernel.NewCell[[8]byte](),
		Driver: kernel.NewCell[lsm303dlhc.Driver](),
	}
}

// LSM303DLHC builds one sensor driver over a shared bus mux. Zero
// addresses select the part's documented defaults. The component needs the
// TrustedAssembly handle because finalizing allocates the driver's grant,
// which is a privileged operation.
type LSM303DLHC struct {
	mux       *virtuali2c.Mux
	accelAddr uint8
	magAddr   uint8
	kernel    *kernel.Kernel
	assembly  kernel.TrustedAssembly
	driverNum uint32
	process   kernel.ProcessID
}

var _ kernel.Component[LSM303DLHCStorage, *lsm303dlhc.Driver] = LSM303DLHC{}

func NewLSM303DLHC(
	mux *virtuali2c.Mux,
	accelAddr, magAddr uint8,
	k *kernel.Kernel,
	assembly kernel.TrustedAssembly,
	driverNum uint32,
) LSM303DLHC {
	if accelAddr == 0 {
		accelAddr = lsm303dlhc.AccelAddress
	}
	if magAddr == 0 {
		magAddr = lsm303dlhc.MagAddress
	}
	return LSM303DLHC{
		mux:       mux,
		accelAddr: accelAddr,
		magAddr:   magAddr,
		kernel:    k,
		assembly:  assembly,
		driverNum: driverNum,
	}
}

// Finalize performs the one-shot construction: grant first (consuming a
// freshly minted capability token), then the handles and driver out of
// their cells, then client wiring so completions route into the driver
// before anything can issue a transaction. It cannot fail at runtime;
// configuration was validated before this point.
func (c LSM303DLHC) Finalize(s LSM303DLHCStorage) *lsm303dlhc.Driver {
	grantCap := c.assembly.MemoryAllocation()
	apps := kernel.CreateGrant[lsm303dlhc.App](c.kernel, c.driverNum, grantCap)

	buffer := s.Buffer.Put([8]byte{})
	accel := s.Accel.Put(c.mux.NewDevice(c.accelAddr))
	mag := s.Mag.Put(c.mux.NewDevice(c.magAddr))

	driver := s.Driver.Put(lsm303dlhc.New(accel, mag, buffer, apps))
	driver.BindProcess(c.process)
	accel.SetClient(driver)
	mag.SetClient(driver)

	return driver
}
