package telemetry

import (
	"context"
	"testing"
	"time"

	"drivercore-go/components"
	"drivercore-go/errcode"
	"drivercore-go/eventbus"
	"drivercore-go/hwbus"
	"drivercore-go/kernel"
	"drivercore-go/sim"
	"drivercore-go/virtuali2c"
)

// stack assembles the full path: simulated silicon, worker-backed
// master, mux, component finalize through the builder registry, and
// the telemetry service on the event bus. All subscriptions are opened
// before any control is sent so every assertion sees live traffic in
// publish order.
type stack struct {
	sim    *sim.LSM303DLHC
	conn   *eventbus.Connection
	status *eventbus.Subscription
	accel  *eventbus.Subscription
	mag    *eventbus.Subscription
	config *eventbus.Subscription
}

func newStack(t *testing.T) *stack {
	t.Helper()
	l := sim.NewLSM303DLHC()
	l.SetAccelRaw(16384, 0, -16384)
	l.SetMagRaw(1100, 0, 0)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	master := hwbus.New(l.Bus, 4)
	master.Start(ctx)
	mux := virtuali2c.NewMux(master)
	k, assembly := kernel.New()
	ebus := eventbus.New(16)

	b, ok := components.Lookup("lsm303dlhc")
	if !ok {
		t.Fatal("builder not registered")
	}
	inst, err := b.Build(components.BuildInput{
		ID:        "compass0",
		DriverNum: 0x60020,
		Mux:       mux,
		Kernel:    k,
		Assembly:  assembly,
		Bus:       ebus,
	})
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	conn := ebus.NewConnection("test")
	s := &stack{
		sim:    l,
		conn:   conn,
		status: conn.Subscribe(eventbus.T("sensor", "compass0", "status")),
		accel:  conn.Subscribe(eventbus.T("sensor", "compass0", "accel")),
		mag:    conn.Subscribe(eventbus.T("sensor", "compass0", "mag")),
		config: conn.Subscribe(eventbus.T("sensor", "compass0", "config")),
	}
	t.Cleanup(conn.Disconnect)

	go inst.Run(ctx)
	s.awaitStatus(t, "run", errcode.OK)
	return s
}

func (s *stack) control(verb string, payload any) {
	s.conn.Publish(s.conn.NewMessage(
		eventbus.T("sensor", "compass0", "control", verb), payload, false))
}

// awaitStatus blocks until a status for op arrives with the given code.
// Statuses for other ops are skipped.
func (s *stack) awaitStatus(t *testing.T, op string, code errcode.Code) Status {
	t.Helper()
	deadline := time.After(time.Second)
	for {
		select {
		case m := <-s.status.Channel():
			st := m.Payload.(Status)
			if st.Op != op {
				continue
			}
			if st.Code != string(code) {
				t.Fatalf("status %s = %q, want %q", op, st.Code, code)
			}
			return st
		case <-deadline:
			t.Fatalf("timeout waiting for %s status", op)
		}
	}
}

func recv(t *testing.T, sub *eventbus.Subscription) any {
	t.Helper()
	select {
	case m := <-sub.Channel():
		return m.Payload
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for published value")
		return nil
	}
}

func TestConfigureAndSample(t *testing.T) {
	s := newStack(t)

	s.control("configure", nil) // no payload: defaults apply
	s.awaitStatus(t, "configure", errcode.OK)

	s.control("sample_accel", nil)
	s.awaitStatus(t, "sample_accel", errcode.OK)
	v := recv(t, s.accel).(AccelValue)
	if v.X != 1000 || v.Y != 0 || v.Z != -1000 {
		t.Fatalf("accel = %+v, want X=1000 Z=-1000", v)
	}

	s.control("sample_mag", nil)
	s.awaitStatus(t, "sample_mag", errcode.OK)
	m := recv(t, s.mag).(MagValue)
	if m.X != 2750 {
		t.Fatalf("mag X = %d, want 2750 at 4.7 gauss gain", m.X)
	}
}

func TestConfigReadBack(t *testing.T) {
	s := newStack(t)
	s.control("configure", nil)
	s.awaitStatus(t, "configure", errcode.OK)

	s.control("read_config", nil)
	s.awaitStatus(t, "read_config", errcode.OK)
	cfg := recv(t, s.config).(ConfigValue)
	want := DefaultConfig()
	if cfg.Rate != want.AccelRate || cfg.Scale != want.Scale {
		t.Fatalf("read back %+v, configured %+v", cfg, want)
	}
}

func TestPresenceReported(t *testing.T) {
	s := newStack(t)
	s.control("presence", nil)
	st := s.awaitStatus(t, "presence", errcode.OK)
	if !st.Present {
		t.Fatal("simulated part not detected")
	}
}

func TestNAKSurfacesWithoutPartialState(t *testing.T) {
	s := newStack(t)
	s.control("configure", nil)
	s.awaitStatus(t, "configure", errcode.OK)
	before := s.sim.Accel.Peek(0x20)

	s.sim.Bus.FailNext(0x19, errcode.DataNAK)
	s.control("configure", nil)
	s.awaitStatus(t, "configure", errcode.DataNAK)

	if got := s.sim.Accel.Peek(0x20); got != before {
		t.Fatalf("data-rate register changed across failed configure: %#x -> %#x", before, got)
	}
}

func TestUnknownVerbRejected(t *testing.T) {
	s := newStack(t)
	s.control("explode", nil)
	s.awaitStatus(t, "explode", errcode.Unsupported)
}
