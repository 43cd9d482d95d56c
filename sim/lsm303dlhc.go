package sim

// LSM303DLHC is a simulated e-compass: two register files on one bus, with
// the identification register pre-loaded so presence checks pass.
type LSM303DLHC struct {
	Bus   *Bus
	Accel *RegDevice
	Mag   *RegDevice
}

const (
	lsmAccelAddr uint8 = 0x19
	lsmMagAddr   uint8 = 0x1E

	lsmWhoAmI    uint8 = 0x0F
	lsmWhoAnswer byte  = 0x33
	lsmOutXLowA  uint8 = 0x28
	lsmOutXHighM uint8 = 0x03
)

// NewLSM303DLHC builds the device on a fresh bus at the default addresses.
func NewLSM303DLHC() *LSM303DLHC {
	b := NewBus()
	accel := NewRegDevice(true)
	accel.Poke(lsmWhoAmI, lsmWhoAnswer)
	mag := NewRegDevice(false)
	b.Attach(lsmAccelAddr, accel)
	b.Attach(lsmMagAddr, mag)
	return &LSM303DLHC{Bus: b, Accel: accel, Mag: mag}
}

// SetAccelRaw loads the accelerometer output registers (little endian).
func (l *LSM303DLHC) SetAccelRaw(x, y, z int16) {
	put := func(reg uint8, v int16) {
		l.Accel.Poke(reg, byte(uint16(v)))
		l.Accel.Poke(reg+1, byte(uint16(v)>>8))
	}
	put(lsmOutXLowA, x)
	put(lsmOutXLowA+2, y)
	put(lsmOutXLowA+4, z)
}

// SetMagRaw loads the magnetometer output registers. The part stores big
// endian words in X, Z, Y order.
func (l *LSM303DLHC) SetMagRaw(x, y, z int16) {
	put := func(reg uint8, v int16) {
		l.Mag.Poke(reg, byte(uint16(v)>>8))
		l.Mag.Poke(reg+1, byte(uint16(v)))
	}
	put(lsmOutXHighM, x)
	put(lsmOutXHighM+2, z)
	put(lsmOutXHighM+4, y)
}
