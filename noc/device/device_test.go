package device

import (
	"testing"

	"github.com/nocsim/nocsim/noc/clock"
	"github.com/nocsim/nocsim/noc/flit"
	"github.com/nocsim/nocsim/noc/trace"
)

type recordingScheduler struct {
	now     clock.Time
	delay   clock.Time
	fired   []func()
	history []clock.Time
}

func (s *recordingScheduler) Now() clock.Time { return s.now }
func (s *recordingScheduler) Schedule(delay clock.Time, cb func()) clock.EventID {
	s.delay = delay
	s.fired = append(s.fired, cb)
	return clock.EventID(len(s.fired))
}
func (s *recordingScheduler) Cancel(clock.EventID) {}

func (s *recordingScheduler) fireAll() {
	pending := s.fired
	s.fired = nil
	for _, cb := range pending {
		cb()
	}
}

func newTestChannel(sched *recordingScheduler, bandwidthBPS float64, delay clock.Time, fullDuplex bool) (a, b *NetDevice, ch *Channel) {
	a = NewNetDevice(0, FORWARD, 0, 0)
	b = NewNetDevice(1, BACK, 0, 0)
	ch = NewChannel(a, b, bandwidthBPS, delay, 0, fullDuplex, sched, trace.NullSink{})
	return
}

func TestBeginTransmitThenSendDeliversAfterPropagationDelay(t *testing.T) {
	sched := &recordingScheduler{}
	a, b, ch := newTestChannel(sched, 0, 10, true)

	head := flit.NewHead(32, flit.NewHeader(2), 1, 0, -1)
	if err := ch.BeginTransmit(a, head); err != nil {
		t.Fatal(err)
	}
	if err := ch.Send(a, 256); err != nil {
		t.Fatal(err)
	}
	if sched.delay != 10 {
		t.Fatalf("expected a delay of the bare propagation delay (zero bandwidth means zero tx time), got %d", sched.delay)
	}
	if b.InputQ.Len() != 0 {
		t.Fatal("flit must not appear at the peer before the scheduled delivery fires")
	}
	sched.fireAll()
	if b.InputQ.Len() != 1 {
		t.Fatal("expected the flit delivered to the peer's input buffer")
	}
}

func TestBeginTransmitRejectsWhileBusy(t *testing.T) {
	sched := &recordingScheduler{}
	a, _, ch := newTestChannel(sched, 0, 1, true)
	f := flit.NewHead(32, flit.NewHeader(2), 1, 0, -1)
	if err := ch.BeginTransmit(a, f); err != nil {
		t.Fatal(err)
	}
	if err := ch.BeginTransmit(a, f); err == nil {
		t.Fatal("expected ChannelBusy on a second BeginTransmit before Send completes")
	}
}

func TestFullDuplexDirectionsAreIndependent(t *testing.T) {
	sched := &recordingScheduler{}
	a, b, ch := newTestChannel(sched, 0, 1, true)

	fwd := flit.NewHead(32, flit.NewHeader(2), 1, 0, -1)
	if err := ch.BeginTransmit(a, fwd); err != nil {
		t.Fatal(err)
	}
	// The A->B direction is busy, but full duplex means B->A must still be free.
	back := flit.NewHead(32, flit.NewHeader(2), 1, 0, -1)
	if err := ch.BeginTransmit(b, back); err != nil {
		t.Fatal("full-duplex channel must allow the reverse direction while forward is transmitting")
	}
}

func TestHalfDuplexSharesOneDirection(t *testing.T) {
	sched := &recordingScheduler{}
	a, b, ch := newTestChannel(sched, 0, 1, false)

	fwd := flit.NewHead(32, flit.NewHeader(2), 1, 0, -1)
	if err := ch.BeginTransmit(a, fwd); err != nil {
		t.Fatal(err)
	}
	back := flit.NewHead(32, flit.NewHeader(2), 1, 0, -1)
	if err := ch.BeginTransmit(b, back); err == nil {
		t.Fatal("half-duplex channel must reject the reverse direction while the shared state is busy")
	}
}

func TestFaultyPeerDropsDeliveredFlit(t *testing.T) {
	sched := &recordingScheduler{}
	a, b, ch := newTestChannel(sched, 0, 1, true)
	b.SetFaulty(true)

	f := flit.NewHead(32, flit.NewHeader(2), 1, 0, -1)
	if err := ch.BeginTransmit(a, f); err != nil {
		t.Fatal(err)
	}
	if err := ch.Send(a, 8); err != nil {
		t.Fatal(err)
	}
	sched.fireAll()
	if b.InputQ.Len() != 0 {
		t.Fatal("a faulty peer must not accept a delivered flit")
	}
}

func TestSendComputesTransmissionTimeFromBandwidth(t *testing.T) {
	sched := &recordingScheduler{}
	a, _, ch := newTestChannel(sched, 8, 0, true) // 8 bits/sec bandwidth, no propagation delay

	f := flit.NewHead(32, flit.NewHeader(2), 1, 0, -1)
	if err := ch.BeginTransmit(a, f); err != nil {
		t.Fatal(err)
	}
	if err := ch.Send(a, 16); err != nil { // 16 bits at 8 bits/sec = 2 time units
		t.Fatal(err)
	}
	if sched.delay != 2 {
		t.Fatalf("expected transmission delay of 2, got %d", sched.delay)
	}
}

func TestOnArrivalFiresOnlyOnChannelDelivery(t *testing.T) {
	sched := &recordingScheduler{}
	a, b, ch := newTestChannel(sched, 0, 1, true)

	var arrived int
	b.OnArrival = func(flit.Flit) { arrived++ }

	f := flit.NewHead(32, flit.NewHeader(2), 1, 0, -1)
	if err := ch.BeginTransmit(a, f); err != nil {
		t.Fatal(err)
	}
	if err := ch.Send(a, 8); err != nil {
		t.Fatal(err)
	}
	sched.fireAll()
	if arrived != 1 {
		t.Fatalf("expected OnArrival to fire exactly once, got %d", arrived)
	}
}
