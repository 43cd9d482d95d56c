package virtuali2c

import (
	"testing"

	"drivercore-go/errcode"
	"drivercore-go/hil"
)

// fakeMaster records accepted transactions and lets the test drive
// completions explicitly, so in-flight windows are fully controlled.
type fakeMaster struct {
	client  hil.I2CClient
	started []hil.I2CTxn
	active  int // transactions begun and not yet completed
	maxtive int // high-water mark of active
}

func (f *fakeMaster) SetClient(c hil.I2CClient) { f.client = c }

func (f *fakeMaster) Begin(txn hil.I2CTxn) errcode.Code {
	f.started = append(f.started, txn)
	f.active++
	if f.active > f.maxtive {
		f.maxtive = f.active
	}
	return errcode.OK
}

// complete finishes the oldest uncompleted transaction with status.
func (f *fakeMaster) complete(status errcode.Code) {
	f.active--
	txn := f.started[len(f.started)-1-f.active]
	f.client.TxnComplete(txn, status)
}

type completion struct {
	txn    hil.I2CTxn
	status errcode.Code
}

type recClient struct {
	got []completion
}

func (r *recClient) TxnComplete(txn hil.I2CTxn, status errcode.Code) {
	r.got = append(r.got, completion{txn, status})
}

func TestBackToBackRequestsQueue(t *testing.T) {
	// Two logical devices on one mux; the second write_read issued while
	// the first is still in flight must queue (documented FIFO policy),
	// with never more than one physical transaction active.
	fm := &fakeMaster{}
	m := NewMux(fm)
	accel := m.NewDevice(0x19)
	mag := m.NewDevice(0x1E)
	ca, cm := &recClient{}, &recClient{}
	accel.SetClient(ca)
	mag.SetClient(cm)

	var ab, mb [4]byte
	if code := accel.WriteRead(ab[0:1], ab[1:3]); code != errcode.OK {
		t.Fatalf("accel request: %v", code)
	}
	if code := mag.WriteRead(mb[0:1], mb[1:3]); code != errcode.OK {
		t.Fatalf("mag request rejected, want queued: %v", code)
	}

	if len(fm.started) != 1 {
		t.Fatalf("started %d transactions before first completion", len(fm.started))
	}
	fm.complete(errcode.OK)
	fm.complete(errcode.OK)

	if fm.maxtive != 1 {
		t.Fatalf("observed %d overlapping physical transactions", fm.maxtive)
	}
	if len(ca.got) != 1 || len(cm.got) != 1 {
		t.Fatalf("completions: accel=%d mag=%d", len(ca.got), len(cm.got))
	}
	if ca.got[0].txn.Addr != 0x19 || cm.got[0].txn.Addr != 0x1E {
		t.Fatal("completion routed to wrong handle")
	}
}

func TestHandleBusyWhileOutstanding(t *testing.T) {
	fm := &fakeMaster{}
	m := NewMux(fm)
	d := m.NewDevice(0x19)
	d.SetClient(&recClient{})

	var buf [2]byte
	if code := d.Write(buf[:]); code != errcode.OK {
		t.Fatalf("first request: %v", code)
	}
	if code := d.Write(buf[:]); code != errcode.Busy {
		t.Fatalf("second request = %v, want busy", code)
	}
	fm.complete(errcode.OK)
	if code := d.Write(buf[:]); code != errcode.OK {
		t.Fatalf("request after completion: %v", code)
	}
}

func TestFIFOAcrossHandles(t *testing.T) {
	fm := &fakeMaster{}
	m := NewMux(fm)
	var devs []*Device
	for _, addr := range []uint8{0x10, 0x11, 0x12} {
		d := m.NewDevice(addr)
		d.SetClient(&recClient{})
		devs = append(devs, &d)
	}
	var buf [1]byte
	for i := range devs {
		devs[i].Read(buf[:])
	}
	for range devs {
		fm.complete(errcode.OK)
	}
	for i, addr := range []uint8{0x10, 0x11, 0x12} {
		if fm.started[i].Addr != addr {
			t.Fatalf("start order[%d] = %#x, want %#x", i, fm.started[i].Addr, addr)
		}
	}
}

func TestErrorSurfacedToIssuingHandle(t *testing.T) {
	fm := &fakeMaster{}
	m := NewMux(fm)
	d := m.NewDevice(0x19)
	c := &recClient{}
	d.SetClient(c)

	var buf [2]byte
	d.Write(buf[:])
	fm.complete(errcode.AddrNAK)
	if len(c.got) != 1 || c.got[0].status != errcode.AddrNAK {
		t.Fatalf("completions = %+v", c.got)
	}
}

func TestSetClientLastWriterWins(t *testing.T) {
	fm := &fakeMaster{}
	m := NewMux(fm)
	d := m.NewDevice(0x19)
	first, second := &recClient{}, &recClient{}
	d.SetClient(first)
	d.SetClient(second)

	var buf [1]byte
	d.Read(buf[:])
	fm.complete(errcode.OK)
	if len(first.got) != 0 {
		t.Fatal("replaced client still received a completion")
	}
	if len(second.got) != 1 {
		t.Fatal("registered client received no completion")
	}
}

// reissueClient issues a follow-up request from inside its completion
// callback, the way driver state machines advance.
type reissueClient struct {
	dev  *Device
	buf  [1]byte
	left int
	done int
}

func (r *reissueClient) TxnComplete(txn hil.I2CTxn, status errcode.Code) {
	r.done++
	if r.left > 0 {
		r.left--
		if code := r.dev.Read(r.buf[:]); code != errcode.OK {
			panic("reissue from completion rejected: " + string(code))
		}
	}
}

func TestReissueFromCallbackJoinsQueueTail(t *testing.T) {
	fm := &fakeMaster{}
	m := NewMux(fm)
	a := m.NewDevice(0x19)
	b := m.NewDevice(0x1E)
	ra := &reissueClient{dev: &a, left: 1}
	rb := &recClient{}
	a.SetClient(ra)
	b.SetClient(rb)

	var ab, bb [1]byte
	a.Read(ab[:])
	b.Read(bb[:])

	// Completing a's transaction triggers its reissue, which must land
	// behind b's already-queued request.
	fm.complete(errcode.OK)
	if fm.started[1].Addr != 0x1E {
		t.Fatalf("queued handle overtaken: second start addr %#x", fm.started[1].Addr)
	}
	fm.complete(errcode.OK)
	fm.complete(errcode.OK)
	if ra.done != 2 || len(rb.got) != 1 {
		t.Fatalf("completions: a=%d b=%d", ra.done, len(rb.got))
	}
	if fm.maxtive != 1 {
		t.Fatalf("observed %d overlapping transactions", fm.maxtive)
	}
}
