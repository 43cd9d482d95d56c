// Package telemetry is the driver's upstream client: it receives the
// sensor's completion callbacks and publishes values and status onto the
// event bus, and it turns control-topic messages back into driver
// operations. One service owns exactly one driver.
package telemetry

import (
	"context"

	"drivercore-go/drivers/lsm303dlhc"
	"drivercore-go/errcode"
	"drivercore-go/eventbus"
	"drivercore-go/x/timex"
)

// AccelValue is published on sensor/<id>/accel (retained), in milli-g.
type AccelValue struct {
	X, Y, Z int32
	TSms    int64
}

// MagValue is published on sensor/<id>/mag (retained), in milli-gauss.
type MagValue struct {
	X, Y, Z int32
	TSms    int64
}

// ConfigValue is published on sensor/<id>/config (retained) after a
// read-back.
type ConfigValue struct {
	Rate  lsm303dlhc.AccelDataRate
	Scale lsm303dlhc.Scale
}

// Status is published on sensor/<id>/status (retained) after every
// completed operation.
type Status struct {
	Op      string
	Code    string
	Present bool
	TSms    int64
}

type Service struct {
	id     string
	conn   *eventbus.Connection
	driver *lsm303dlhc.Driver
}

// New wires a service over an already-finalized driver and registers
// itself as the driver's client.
func New(id string, conn *eventbus.Connection, driver *lsm303dlhc.Driver) *Service {
	s := &Service{id: id, conn: conn, driver: driver}
	driver.SetClient(s)
	return s
}

func (s *Service) ID() string { return s.id }

// Run consumes control messages until ctx is cancelled. Verbs: presence,
// configure (payload lsm303dlhc.Config, or nil for defaults), read_config,
// sample_accel, sample_mag. Dispatch never blocks; a busy driver is
// reported on the status topic.
func (s *Service) Run(ctx context.Context) {
	sub := s.conn.Subscribe(eventbus.T("sensor", s.id, "control", eventbus.Wildcard))
	defer s.conn.Unsubscribe(sub)
	s.pubStatus("run", errcode.OK, false) // retained: service is accepting controls
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-sub.Channel():
			verb := msg.Topic[len(msg.Topic)-1]
			if code := s.dispatch(verb, msg.Payload); code != errcode.OK {
				s.pubStatus(verb, code, false)
			}
		}
	}
}

// DefaultConfig is applied when a configure control carries no payload:
// 25 Hz / 2 g accelerometer, 3 Hz / 4.7 gauss magnetometer.
func DefaultConfig() lsm303dlhc.Config {
	return lsm303dlhc.Config{
		AccelRate: lsm303dlhc.AccelRate25Hz,
		Scale:     lsm303dlhc.Scale2G,
		MagRate:   lsm303dlhc.MagRate3_0Hz,
		Range:     lsm303dlhc.Range4_7G,
	}
}

func (s *Service) dispatch(verb string, payload any) errcode.Code {
	switch verb {
	case "presence":
		return s.driver.IsPresent()
	case "configure":
		cfg, ok := payload.(lsm303dlhc.Config)
		if !ok {
			cfg = DefaultConfig()
		}
		return s.driver.Configure(cfg)
	case "read_config":
		return s.driver.ReadConfiguration()
	case "sample_accel":
		return s.driver.ReadAcceleration()
	case "sample_mag":
		return s.driver.ReadMagnetometer()
	default:
		return errcode.Unsupported
	}
}

// ---- lsm303dlhc.Client ----

func (s *Service) PresenceCheckDone(present bool, status errcode.Code) {
	s.pubStatus("presence", status, present)
}

func (s *Service) ConfigurationComplete(status errcode.Code) {
	s.pubStatus("configure", status, false)
}

func (s *Service) ConfigurationRead(rate lsm303dlhc.AccelDataRate, scale lsm303dlhc.Scale, status errcode.Code) {
	if status == errcode.OK {
		s.conn.Publish(s.conn.NewMessage(
			eventbus.T("sensor", s.id, "config"),
			ConfigValue{Rate: rate, Scale: scale},
			true,
		))
	}
	s.pubStatus("read_config", status, false)
}

func (s *Service) AccelSample(x, y, z int32, status errcode.Code) {
	if status == errcode.OK {
		s.conn.Publish(s.conn.NewMessage(
			eventbus.T("sensor", s.id, "accel"),
			AccelValue{X: x, Y: y, Z: z, TSms: timex.NowMs()},
			true,
		))
	}
	s.pubStatus("sample_accel", status, false)
}

func (s *Service) MagSample(x, y, z int32, status errcode.Code) {
	if status == errcode.OK {
		s.conn.Publish(s.conn.NewMessage(
			eventbus.T("sensor", s.id, "mag"),
			MagValue{X: x, Y: y, Z: z, TSms: timex.NowMs()},
			true,
		))
	}
	s.pubStatus("sample_mag", status, false)
}

func (s *Service) pubStatus(op string, code errcode.Code, present bool) {
	s.conn.Publish(s.conn.NewMessage(
		eventbus.T("sensor", s.id, "status"),
		Status{Op: op, Code: string(code), Present: present, TSms: timex.NowMs()},
		true,
	))
}
