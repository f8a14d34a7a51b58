// Package device implements the router-port and link layer: NetDevice
// (C4) and Channel (C3). The two types live in one package because they
// reference each other directly (a NetDevice's Channel back-reference and
// a Channel's two NetDevice endpoints) — Go has no ownership-cycle problem
// here (the garbage collector handles it), so the split the core spec's
// design notes describe ("non-owning back-references" in the source
// language) collapses to plain pointers in Go, per spec.md §9.
package device

import (
	"fmt"

	"github.com/nocsim/nocsim/noc/buffer"
	"github.com/nocsim/nocsim/noc/clock"
	"github.com/nocsim/nocsim/noc/flit"
	"github.com/nocsim/nocsim/noc/simerr"
	"github.com/nocsim/nocsim/noc/trace"
)

// Direction classifies a dimension's two ports.
type Direction int

const (
	// FORWARD is the "+" port of a dimension (sign bit 0 in a header byte).
	FORWARD Direction = iota
	// BACK is the "-" port of a dimension (sign bit 1).
	BACK
	// Local marks the injection/ejection virtual ports, which have no
	// channel peer and no dimension.
	Local
)

func (d Direction) String() string {
	switch d {
	case FORWARD:
		return "FORWARD"
	case BACK:
		return "BACK"
	default:
		return "LOCAL"
	}
}

// NetDevice is one router port: it owns an input buffer, participates in
// (at most) one Channel, and carries routing-direction metadata.
type NetDevice struct {
	Address   int
	Direction Direction
	Dimension int // -1 for injection/ejection virtual ports
	InputQ    *buffer.InputBuffer
	Channel   *Channel // nil for the injection port, which has no peer

	// OnArrival, if set, is invoked once per flit enqueued into InputQ by a
	// channel delivery (not by local injection). The owning router wires
	// this to its per-clock arrival counter for the power hook.
	OnArrival func(flit.Flit)

	faulty bool
}

// NewNetDevice constructs a NetDevice with a fresh input buffer of the
// given packet capacity (0 = unbounded).
func NewNetDevice(address int, dir Direction, dimension int, bufferPackets int) *NetDevice {
	return &NetDevice{
		Address:   address,
		Direction: dir,
		Dimension: dimension,
		InputQ:    buffer.New(bufferPackets),
	}
}

// SetFaulty implements the fault.Faulty interface structurally.
func (d *NetDevice) SetFaulty(v bool) { d.faulty = v }

// IsFaulty implements the fault.Faulty interface structurally.
func (d *NetDevice) IsFaulty() bool { return d.faulty }

// ChannelState is the three-state wire-protocol state machine a Channel
// direction moves through per transmission.
type ChannelState int

const (
	IDLE ChannelState = iota
	TRANSMITTING
	PROPAGATING
)

func (s ChannelState) String() string {
	switch s {
	case TRANSMITTING:
		return "TRANSMITTING"
	case PROPAGATING:
		return "PROPAGATING"
	default:
		return "IDLE"
	}
}

// halfDuplexState tracks begin_transmit/send for one direction of travel
// across a channel.
type halfDuplexState struct {
	state        ChannelState
	currentFlit  flit.Flit
	sourceDevice *NetDevice
}

// Channel connects exactly two NetDevices. In full-duplex mode (the
// default) the two directions of travel maintain independent state
// triples so the two halves never interfere; in half-duplex mode they
// share one.
type Channel struct {
	A, B                *NetDevice
	BandwidthBPS         float64
	PropagationDelay     clock.Time
	LengthUM             float64
	FullDuplex           bool
	faulty               bool

	aToB halfDuplexState
	bToA halfDuplexState // aliases aToB when !FullDuplex

	Sched clock.Scheduler
	Trace trace.Sink
}

// NewChannel wires a and b together. FullDuplex defaults to true per the
// data model.
func NewChannel(a, b *NetDevice, bandwidthBPS float64, propagationDelay clock.Time, lengthUM float64, fullDuplex bool, sched clock.Scheduler, tr trace.Sink) *Channel {
	c := &Channel{
		A: a, B: b,
		BandwidthBPS:     bandwidthBPS,
		PropagationDelay: propagationDelay,
		LengthUM:         lengthUM,
		FullDuplex:       fullDuplex,
		Sched:            sched,
		Trace:            tr,
	}
	a.Channel = c
	b.Channel = c
	return c
}

func (c *Channel) SetFaulty(v bool) { c.faulty = v }
func (c *Channel) IsFaulty() bool   { return c.faulty }

// directionState returns the half-duplex state triple governing traffic
// originating at `from`, and the peer device on the other end.
func (c *Channel) directionState(from *NetDevice) (*halfDuplexState, *NetDevice) {
	var st *halfDuplexState
	var peer *NetDevice
	if from == c.A {
		st, peer = &c.aToB, c.B
	} else {
		st, peer = &c.bToA, c.A
	}
	if !c.FullDuplex {
		// Half duplex: both directions share one state machine, rooted at aToB.
		st = &c.aToB
	}
	return st, peer
}

// BeginTransmit moves the channel (for the direction originating at
// `from`) from IDLE to TRANSMITTING and latches f. Returns ChannelBusy if
// the relevant direction isn't IDLE, ComponentFaulty if the channel is
// flagged faulty.
func (c *Channel) BeginTransmit(from *NetDevice, f flit.Flit) error {
	if c.faulty {
		return simerr.New(simerr.ComponentFaulty, "channel between devices %d/%d is faulty", c.A.Address, c.B.Address)
	}
	st, _ := c.directionState(from)
	if st.state != IDLE {
		return simerr.New(simerr.ChannelBusy, "channel busy (state=%s)", st.state)
	}
	st.state = TRANSMITTING
	st.currentFlit = f
	st.sourceDevice = from
	return nil
}

// Send computes the transmission time for the latched flit, transitions to
// PROPAGATING, and schedules delivery to the peer device at
// now + propagation_delay + tx; when that delay is <= 0 the flit is
// delivered before Send returns. flitBits is the size, in bits, of the
// flit currently latched by BeginTransmit.
func (c *Channel) Send(from *NetDevice, flitBits float64) error {
	if c.faulty {
		return simerr.New(simerr.ComponentFaulty, "channel between devices %d/%d is faulty", c.A.Address, c.B.Address)
	}
	st, peer := c.directionState(from)
	if st.state != TRANSMITTING {
		return simerr.New(simerr.InvariantViolation, "Send called while channel not TRANSMITTING (state=%s)", st.state)
	}
	st.state = PROPAGATING

	tx := clock.Time(0)
	if c.BandwidthBPS > 0 {
		tx = clock.Time(flitBits / c.BandwidthBPS)
	}
	delay := c.PropagationDelay + tx
	f := st.currentFlit
	if c.Trace != nil {
		c.Trace.Write(trace.TX, c.path(from), trace.Summarize(f))
	}
	if delay <= 0 {
		// A sped-up data flit with zero transmission time frees the channel
		// immediately rather than waiting for a scheduled callback, so the
		// same clock tick's router Step can retry this port for the next
		// queued flit of the same wormhole circuit.
		c.deliver(st, peer, f)
		return nil
	}
	c.Sched.Schedule(delay, func() {
		c.deliver(st, peer, f)
	})
	return nil
}

func (c *Channel) deliver(st *halfDuplexState, peer *NetDevice, f flit.Flit) {
	st.state = IDLE
	st.currentFlit = nil
	st.sourceDevice = nil
	if c.Trace != nil {
		c.Trace.Write(trace.RX, c.path(peer), trace.Summarize(f))
	}
	if peer.faulty {
		// Faulty neighbors refuse delivery: the flit is dropped (DROP trace)
		// and not enqueued, and this direction of the channel is already
		// back to IDLE.
		if c.Trace != nil {
			c.Trace.Write(trace.DROP, c.path(peer), trace.Summarize(f))
		}
		return
	}
	// A flit reaching delivery has already been admitted by the switching
	// layer's may_leave() gate (see switching.Protocol); the channel never
	// drops a flit that has been transmitted end-to-end (spec.md §4.2).
	peer.InputQ.Enqueue(f)
	if peer.OnArrival != nil {
		peer.OnArrival(f)
	}
	if c.Trace != nil {
		c.Trace.Write(trace.ENQUEUE, c.path(peer), trace.Summarize(f))
	}
}

func (c *Channel) path(d *NetDevice) string {
	return fmt.Sprintf("/DeviceList/%d", d.Address)
}
