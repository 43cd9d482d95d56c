// Package lsm303dlhc drives the ST LSM303DLHC e-compass over two logical
// I2C device handles, one per register file (accelerometer and
// magnetometer). The driver is a pure callback state machine: every
// operation issues one bus transaction at a time and advances only from the
// completion path, never by polling. A single shared scratch buffer backs
// all transactions, so at most one can ever be in flight; ownership of the
// buffer moves to the bus on issue and returns on completion.
package lsm303dlhc

import (
	"sync"

	"drivercore-go/errcode"
	"drivercore-go/hil"
	"drivercore-go/kernel"
)

// Transient bus errors are reissued at most this many times per operation.
const maxRetries = 3

// Client is the upstream owner of the driver (typically a syscall-facing
// layer). Exactly one callback fires per started operation, carrying the
// final status; retries happen below this interface.
type Client interface {
	PresenceCheckDone(present bool, status errcode.Code)
	ConfigurationComplete(status errcode.Code)
	ConfigurationRead(rate AccelDataRate, scale Scale, status errcode.Code)
	AccelSample(x, y, z int32, status errcode.Code) // milli-g
	MagSample(x, y, z int32, status errcode.Code)   // milli-gauss
}

// Config is the full device configuration applied by Configure.
type Config struct {
	AccelRate AccelDataRate
	LowPower  bool
	Scale     Scale
	HighRes   bool
	MagRate   MagDataRate
	Range     MagRange
}

// App is the per-process grant region: bookkeeping a syscall layer reads
// back when reporting to userspace.
type App struct {
	Configurations uint32
	Samples        uint32
	LastStatus     errcode.Code
}

type state uint8

const (
	stateIdle state = iota
	stateCheckPresence
	stateConfigAccelRate
	stateConfigAccelScale
	stateConfigMagRate
	stateConfigMagRange
	stateConfigMagMode
	stateReadAccelConfig
	stateReadAccel
	stateReadMag
)

// Driver is one LSM303DLHC instance. Construct it through the component
// (components.LSM303DLHC); the zero value is not usable.
type Driver struct {
	accel hil.I2CDevice
	mag   hil.I2CDevice
	buf   *[8]byte
	apps  *kernel.Grant[App]

	mu      sync.Mutex
	st      state
	cfg     Config
	applied Config // last successfully applied configuration
	retries uint8
	client  Client
	owner   kernel.ProcessID
}

// New wires a driver over two device handles and a shared scratch buffer.
// The caller (a component) must also register the driver as the completion
// client of both handles before returning it.
func New(accel, mag hil.I2CDevice, buf *[8]byte, apps *kernel.Grant[App]) Driver {
	return Driver{
		accel: accel,
		mag:   mag,
		buf:   buf,
		apps:  apps,
		applied: Config{
			Scale: Scale2G,
			Range: Range1_3G,
		},
	}
}

// SetClient registers the upstream owner. Last writer wins, mirroring the
// device-handle policy: components re-parent during assembly, and nothing
// should re-register afterwards.
func (d *Driver) SetClient(c Client) {
	d.mu.Lock()
	d.client = c
	d.mu.Unlock()
}

// BindProcess records which process the grant bookkeeping is kept under.
func (d *Driver) BindProcess(p kernel.ProcessID) {
	d.mu.Lock()
	d.owner = p
	d.mu.Unlock()
}

// Grant exposes the per-process region handle to the syscall layer.
func (d *Driver) Grant() *kernel.Grant[App] { return d.apps }

// IsPresent probes the accelerometer identification register.
func (d *Driver) IsPresent() errcode.Code {
	return d.start(stateCheckPresence)
}

// Configure applies cfg to both register files as a sequence of single
// register writes. On the final completion the client receives exactly one
// ConfigurationComplete. If any write fails the sequence is abandoned at
// that register; registers already written keep their new values, the rest
// are untouched, and the failing status is reported.
func (d *Driver) Configure(cfg Config) errcode.Code {
	if cfg.Range == 0 {
		return errcode.InvalidParams
	}
	d.mu.Lock()
	if d.st != stateIdle {
		d.mu.Unlock()
		return errcode.Busy
	}
	d.cfg = cfg
	d.st = stateConfigAccelRate
	d.retries = 0
	d.mu.Unlock()

	if code := d.issue(stateConfigAccelRate); code != errcode.OK {
		d.mu.Lock()
		d.st = stateIdle
		d.mu.Unlock()
		return code
	}
	return errcode.OK
}

// ReadConfiguration reads CTRL_REG1_A..CTRL_REG4_A back from the device
// and reports the decoded data rate and scale.
func (d *Driver) ReadConfiguration() errcode.Code {
	return d.start(stateReadAccelConfig)
}

// ReadAcceleration samples the three accelerometer axes.
func (d *Driver) ReadAcceleration() errcode.Code {
	return d.start(stateReadAccel)
}

// ReadMagnetometer samples the three magnetometer axes.
func (d *Driver) ReadMagnetometer() errcode.Code {
	return d.start(stateReadMag)
}

func (d *Driver) start(s state) errcode.Code {
	d.mu.Lock()
	if d.st != stateIdle {
		d.mu.Unlock()
		return errcode.Busy
	}
	d.st = s
	d.retries = 0
	d.mu.Unlock()

	if code := d.issue(s); code != errcode.OK {
		d.mu.Lock()
		d.st = stateIdle
		d.mu.Unlock()
		return code
	}
	return errcode.OK
}

// issue builds and submits the one transaction belonging to state s. The
// scratch buffer is sliced so the write and read windows never overlap.
func (d *Driver) issue(s state) errcode.Code {
	b := d.buf
	switch s {
	case stateCheckPresence:
		b[0] = regWhoAmI
		return d.accel.WriteRead(b[0:1], b[1:2])
	case stateConfigAccelRate:
		b[0], b[1] = regCtrl1A, ctrl1A(d.cfg.AccelRate, d.cfg.LowPower)
		return d.accel.Write(b[0:2])
	case stateConfigAccelScale:
		b[0], b[1] = regCtrl4A, ctrl4A(d.cfg.Scale, d.cfg.HighRes)
		return d.accel.Write(b[0:2])
	case stateConfigMagRate:
		b[0], b[1] = regCRAM, craM(d.cfg.MagRate)
		return d.mag.Write(b[0:2])
	case stateConfigMagRange:
		b[0], b[1] = regCRBM, crbM(d.cfg.Range)
		return d.mag.Write(b[0:2])
	case stateConfigMagMode:
		b[0], b[1] = regMRM, 0x00 // continuous conversion
		return d.mag.Write(b[0:2])
	case stateReadAccelConfig:
		b[0] = regCtrl1A | autoIncr
		return d.accel.WriteRead(b[0:1], b[1:5])
	case stateReadAccel:
		b[0] = regOutXLowA | autoIncr
		return d.accel.WriteRead(b[0:1], b[1:7])
	case stateReadMag:
		b[0] = regOutXHiM
		return d.mag.WriteRead(b[0:1], b[1:7])
	}
	return errcode.Error
}

// TxnComplete implements hil.I2CClient for both device handles. The active
// state disambiguates which handle completed; the shared buffer guarantees
// only one transaction was in flight.
func (d *Driver) TxnComplete(txn hil.I2CTxn, status errcode.Code) {
	d.mu.Lock()
	s := d.st

	if status != errcode.OK {
		if errcode.Retryable(status) && d.retries < maxRetries {
			// Await-retry: the state stays put and the same transaction
			// is reissued; the retry counter bounds the loop.
			d.retries++
			d.mu.Unlock()
			if code := d.issue(s); code == errcode.OK {
				return
			}
			// Reissue refused; fall through to failure reporting.
			d.mu.Lock()
		}
		d.st = stateIdle
		c := d.client
		d.mu.Unlock()
		d.record(status)
		d.notifyFailure(c, s, status)
		return
	}

	switch s {
	case stateCheckPresence:
		present := d.buf[1] == whoAmIAnswer
		d.st = stateIdle
		c := d.client
		d.mu.Unlock()
		d.record(errcode.OK)
		if c != nil {
			c.PresenceCheckDone(present, errcode.OK)
		}

	case stateConfigAccelRate, stateConfigAccelScale,
		stateConfigMagRate, stateConfigMagRange:
		next := s + 1
		d.st = next
		d.retries = 0
		d.mu.Unlock()
		if code := d.issue(next); code != errcode.OK {
			d.mu.Lock()
			d.st = stateIdle
			c := d.client
			d.mu.Unlock()
			d.record(code)
			if c != nil {
				c.ConfigurationComplete(code)
			}
		}

	case stateConfigMagMode:
		d.applied = d.cfg
		d.st = stateIdle
		c := d.client
		d.mu.Unlock()
		d.apps.Enter(d.owner, func(a *App) {
			a.Configurations++
			a.LastStatus = errcode.OK
		})
		if c != nil {
			c.ConfigurationComplete(errcode.OK)
		}

	case stateReadAccelConfig:
		rate := accelRateOf(d.buf[1])
		scale := scaleOf(d.buf[4])
		d.st = stateIdle
		c := d.client
		d.mu.Unlock()
		d.record(errcode.OK)
		if c != nil {
			c.ConfigurationRead(rate, scale, errcode.OK)
		}

	case stateReadAccel:
		x, y, z := decodeAccel(d.buf[1:7], d.applied.Scale)
		d.st = stateIdle
		c := d.client
		d.mu.Unlock()
		d.sampled()
		if c != nil {
			c.AccelSample(x, y, z, errcode.OK)
		}

	case stateReadMag:
		x, y, z := decodeMag(d.buf[1:7], d.applied.Range)
		d.st = stateIdle
		c := d.client
		d.mu.Unlock()
		d.sampled()
		if c != nil {
			c.MagSample(x, y, z, errcode.OK)
		}

	default:
		// Completion with no operation in flight: a late or duplicate
		// callback from a misbehaving master. Drop it.
		d.mu.Unlock()
	}
}

func (d *Driver) notifyFailure(c Client, s state, status errcode.Code) {
	if c == nil {
		return
	}
	switch s {
	case stateCheckPresence:
		c.PresenceCheckDone(false, status)
	case stateConfigAccelRate, stateConfigAccelScale, stateConfigMagRate,
		stateConfigMagRange, stateConfigMagMode:
		c.ConfigurationComplete(status)
	case stateReadAccelConfig:
		c.ConfigurationRead(0, 0, status)
	case stateReadAccel:
		c.AccelSample(0, 0, 0, status)
	case stateReadMag:
		c.MagSample(0, 0, 0, status)
	}
}

func (d *Driver) record(status errcode.Code) {
	d.apps.Enter(d.owner, func(a *App) { a.LastStatus = status })
}

func (d *Driver) sampled() {
	d.apps.Enter(d.owner, func(a *App) {
		a.Samples++
		a.LastStatus = errcode.OK
	})
}
