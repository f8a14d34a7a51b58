package router

import (
	"testing"

	"github.com/nocsim/nocsim/noc/clock"
	"github.com/nocsim/nocsim/noc/device"
	"github.com/nocsim/nocsim/noc/flit"
	"github.com/nocsim/nocsim/noc/power"
	"github.com/nocsim/nocsim/noc/routing"
	"github.com/nocsim/nocsim/noc/switching"
	"github.com/nocsim/nocsim/noc/trace"
)

// fakeScheduler is a minimal, synchronous clock.Scheduler for router unit
// tests: Schedule runs its callback immediately rather than queuing it.
type fakeScheduler struct {
	now clock.Time
}

func (s *fakeScheduler) Now() clock.Time { return s.now }
func (s *fakeScheduler) Schedule(delay clock.Time, cb func()) clock.EventID {
	s.now += delay
	cb()
	return 0
}
func (s *fakeScheduler) Cancel(clock.EventID) {}

func ejectRouter() *Router {
	sched := &fakeScheduler{}
	rt := routing.NewXY(true)
	sw := switching.NewWormhole()
	r := New("0", rt, sw, sched, trace.NullSink{}, power.NoopHook{})
	r.SetInjection(device.NewNetDevice(0, device.Local, -1, 0))
	r.SetEjection(device.NewNetDevice(1, device.Local, -1, 0))
	return r
}

func TestRouterEjectsArrivedHead(t *testing.T) {
	r := ejectRouter()
	header := flit.NewHeader(2) // all-zero offsets: already arrived
	head := flit.NewHead(32, header, 1, 0, -1)

	var ejected flit.Flit
	r.OnEject = func(f flit.Flit) { ejected = f }

	if err := r.Inject(head); err != nil {
		t.Fatal(err)
	}
	if err := r.Step(); err != nil {
		t.Fatal(err)
	}
	if ejected == nil {
		t.Fatal("expected the arrived head to be ejected")
	}
	if ejected.Meta().ReceiveTime < ejected.Meta().InjectionTime {
		t.Fatal("receive time must not precede injection time")
	}
}

func TestRouterRejectsBodyBeforeHead(t *testing.T) {
	r := ejectRouter()
	orphanBody := flit.NewBody(12345, 32, 0, -1)

	if err := r.Inject(orphanBody); err != nil {
		t.Fatal(err)
	}
	if err := r.Step(); err == nil {
		t.Fatal("expected an error routing a BODY with no cached HEAD route")
	}
}

func TestRouterInjectOnFaultyRouterFails(t *testing.T) {
	r := ejectRouter()
	r.SetFaulty(true)
	head := flit.NewHead(32, flit.NewHeader(2), 1, 0, -1)
	if err := r.Inject(head); err == nil {
		t.Fatal("expected ComponentFaulty error injecting into a faulty router")
	}
}
