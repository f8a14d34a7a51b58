// Package router implements the Router (C7): it integrates a routing
// protocol, a switching protocol, and the set of net devices/channels a
// topology builder wires to it, exposing inject/receive and tracking
// per-router state needed for the optional power hook.
//
// Grounded on the teacher's sim/simulator.go Step/makeRunningBatch shape:
// a deterministic per-tick pass over pending work (there: the wait queue
// and running batch; here: each port's input buffer), gated by a policy
// interface before anything leaves a buffer.
package router

import (
	"fmt"
	"sort"

	"github.com/nocsim/nocsim/noc/clock"
	"github.com/nocsim/nocsim/noc/device"
	"github.com/nocsim/nocsim/noc/flit"
	"github.com/nocsim/nocsim/noc/power"
	"github.com/nocsim/nocsim/noc/routing"
	"github.com/nocsim/nocsim/noc/simerr"
	"github.com/nocsim/nocsim/noc/switching"
	"github.com/nocsim/nocsim/noc/trace"
)

// portKey identifies a port by (dimension, direction) for O(1) lookup via
// Router.PortFor.
type portKey struct {
	dimension int
	direction device.Direction
}

// Stepper is implemented by both Router and Irvine, letting the topology
// builder and the simulator drive either router variant identically once
// construction has picked one.
type Stepper interface {
	RouterID() string
	Inject(f flit.Flit) error
	Step() error
	TickPowerHook()
	SetFaulty(bool)
	IsFaulty() bool
	OnEjectFunc() func(flit.Flit)
	SetOnEject(func(flit.Flit))
	SetDataFlitSpeedup(int)
	PortFor(dir device.Direction, dimension int) (*device.NetDevice, error)
}

// Router integrates C4 (net devices) + C5 (routing) + C6 (switching). One
// Router owns a fixed set of ordinary ports (two per topological
// dimension) plus an injection and ejection virtual port.
type Router struct {
	ID         string
	Routing    routing.Protocol
	Switching  switching.Protocol
	PowerHook  power.Hook
	Trace      trace.Sink
	Sched      clock.Scheduler

	Injection *device.NetDevice // no channel peer
	Ejection  *device.NetDevice // no channel peer

	ports    map[portKey]*device.NetDevice
	ordered  []*device.NetDevice // deterministic arbitration order, including injection

	routes map[uint32]routing.Decision // cached by head uid, purged on tail ejection

	arrivalsThisClock int
	lastTickClock     clock.Time

	faulty bool

	// DataFlitSpeedup lets Step retry a port's Manage call up to this many
	// times per clock tick, so BODY/TAIL flits of an open wormhole circuit
	// can depart faster than one per clock (spec.md §8). Zero behaves as 1.
	DataFlitSpeedup int

	// OnEject is invoked once per flit consumed at the ejection port; the
	// traffic source / metrics layer hooks in here to record receive time.
	OnEject func(f flit.Flit)
}

// New constructs a Router with the given routing/switching protocols and
// an empty port set; AddPort/SetInjection/SetEjection wire the rest.
func New(id string, rt routing.Protocol, sw switching.Protocol, sched clock.Scheduler, tr trace.Sink, ph power.Hook) *Router {
	if ph == nil {
		ph = power.NoopHook{}
	}
	if tr == nil {
		tr = trace.NullSink{}
	}
	return &Router{
		ID:        id,
		Routing:   rt,
		Switching: sw,
		PowerHook: ph,
		Trace:     tr,
		Sched:     sched,
		ports:     make(map[portKey]*device.NetDevice),
		routes:    make(map[uint32]routing.Decision),
	}
}

// AddPort registers a port at (dimension, dir) and adds it to the
// deterministic arbitration order. The topology builder calls this in a
// well-defined order so PortFor stays O(1) regardless of call order.
func (r *Router) AddPort(dev *device.NetDevice) {
	r.ports[portKey{dev.Dimension, dev.Direction}] = dev
	r.insertOrdered(dev)
}

// SetInjection wires the router's local injection virtual port.
func (r *Router) SetInjection(dev *device.NetDevice) {
	r.Injection = dev
	r.insertOrdered(dev)
}

// SetEjection wires the router's local ejection virtual port.
func (r *Router) SetEjection(dev *device.NetDevice) {
	r.Ejection = dev
}

// insertOrdered keeps r.ordered sorted by Address, giving same-tick
// arbitration across the router's input buffers a fixed, seed-independent,
// deterministic order — the spec's §5 requirement "deterministic given a
// fixed seed" for same-time arbitration across input buffers.
func (r *Router) insertOrdered(dev *device.NetDevice) {
	r.ordered = append(r.ordered, dev)
	sort.Slice(r.ordered, func(i, j int) bool { return r.ordered[i].Address < r.ordered[j].Address })
}

// PortFor returns the net device for (direction, dimension) in O(1).
func (r *Router) PortFor(dir device.Direction, dimension int) (*device.NetDevice, error) {
	dev, ok := r.ports[portKey{dimension, dir}]
	if !ok {
		return nil, simerr.New(simerr.InvariantViolation, "router %s has no port for dimension=%d direction=%s", r.ID, dimension, dir)
	}
	return dev, nil
}

// SetFaulty implements fault.Faulty.
func (r *Router) SetFaulty(v bool) { r.faulty = v }

// IsFaulty implements fault.Faulty.
func (r *Router) IsFaulty() bool { return r.faulty }

// RouterID implements Stepper.
func (r *Router) RouterID() string { return r.ID }

// OnEjectFunc implements Stepper.
func (r *Router) OnEjectFunc() func(flit.Flit) { return r.OnEject }

// SetOnEject implements Stepper.
func (r *Router) SetOnEject(cb func(flit.Flit)) { r.OnEject = cb }

// SetDataFlitSpeedup implements Stepper.
func (r *Router) SetDataFlitSpeedup(n int) { r.DataFlitSpeedup = n }

func (r *Router) speedup() int {
	if r.DataFlitSpeedup < 1 {
		return 1
	}
	return r.DataFlitSpeedup
}

// Inject enqueues f at the local injection port, for a traffic source
// calling node.Inject(flit).
func (r *Router) Inject(f flit.Flit) error {
	if r.faulty {
		return simerr.New(simerr.ComponentFaulty, "router %s is faulty", r.ID)
	}
	r.Injection.InputQ.Enqueue(f)
	return nil
}

// directionFor turns a routing.Decision's sign bit into a device.Direction.
func directionFor(back bool) device.Direction {
	if back {
		return device.BACK
	}
	return device.FORWARD
}

// room computes DownstreamRoom for a flit targeting outDev, from the input
// buffer of the device at the other end of outDev's channel. Because the
// core spec's input buffers are capacity-bounded "by packets" rather than
// by raw flit count, both the wormhole (one-flit) and VCT (one-packet)
// capacity checks reduce to the same per-packet admission test; the two
// switching disciplines differ in their blocking behavior, not in this
// capacity predicate.
func room(outDev *device.NetDevice, f flit.Flit) switching.DownstreamRoom {
	peer := outDev.Channel.A
	if peer == outDev {
		peer = outDev.Channel.B
	}
	ok := peer.InputQ.HasRoomForPacket(f.HeadUID())
	return switching.DownstreamRoom{OneFlit: ok, OnePacket: ok}
}

// Manage runs the router pipeline (spec.md §4.3) for the flit currently at
// the front of in's input buffer, if any:
//  1. HEAD: compute a RouteRecord via the routing protocol; cache by uid.
//  2. BODY/TAIL: look up the cached RouteRecord by head_uid.
//  3. Ask the switching protocol may_leave. False leaves the flit in
//     place for retry on the next clock tick reaching this port.
//  4. True: hand the (possibly rewritten) flit to the outbound channel, or
//     consume it locally if the decision is to eject.
func (r *Router) Manage(in *device.NetDevice) error {
	if r.faulty {
		return simerr.New(simerr.ComponentFaulty, "router %s is faulty", r.ID)
	}
	f := in.InputQ.Peek()
	if f == nil {
		return nil
	}

	decision, err := r.decisionFor(f)
	if err != nil {
		return err
	}

	var outDev *device.NetDevice
	if !decision.Eject {
		outDev, err = r.PortFor(directionFor(decision.Back), decision.Dimension)
		if err != nil {
			return err
		}
		if outDev.Channel == nil {
			return simerr.New(simerr.InvariantViolation, "router %s port dim=%d dir=%s has no channel", r.ID, decision.Dimension, directionFor(decision.Back))
		}
	}

	var rm switching.DownstreamRoom
	if decision.Eject {
		rm = switching.DownstreamRoom{OneFlit: true, OnePacket: true} // local consumption is never backpressured
	} else {
		rm = room(outDev, f)
	}

	if !r.Switching.MayLeave(f, in.InputQ, rm) {
		return nil
	}

	if !decision.Eject {
		if err := outDev.Channel.BeginTransmit(outDev, f); err != nil {
			if simerr.Is(err, simerr.ChannelBusy) {
				return nil // retry next clock; flit stays buffered
			}
			return err
		}
	}

	in.InputQ.Dequeue()
	r.Trace.Write(trace.DEQUEUE, r.path(in), trace.Summarize(f))

	if decision.Eject {
		f.Meta().ReceiveTime = r.Sched.Now()
		if f.Meta().ReceiveTime < f.Meta().InjectionTime {
			return simerr.New(simerr.InvariantViolation, "flit %d receive_time before inject_time", f.UID())
		}
		if tail, ok := f.(*flit.Tail); ok {
			delete(r.routes, tail.HeadUID())
		}
		if r.OnEject != nil {
			r.OnEject(f)
		}
		return nil
	}

	bits := float64(f.SizeBytes()) * 8
	if f.Type() != flit.HEAD {
		// BODY/TAIL flits of an already-routed wormhole circuit serialize
		// data_flit_speedup times faster than the HEAD that established the
		// path (spec.md §8); combined with Step's same-port retry, this is
		// what lets more than one flit depart a link within one clock tick.
		bits /= float64(r.speedup())
	}
	return outDev.Channel.Send(outDev, bits)
}

func (r *Router) decisionFor(f flit.Flit) (routing.Decision, error) {
	if head, ok := f.(*flit.Head); ok {
		if d, cached := r.routes[head.UID()]; cached {
			// Already routed at this router: a retry must not rewrite the
			// header a second time.
			return d, nil
		}
		d, err := r.Routing.Route(&head.Header)
		if err != nil {
			return routing.Decision{}, err
		}
		r.routes[head.UID()] = d
		return d, nil
	}
	d, ok := r.routes[f.HeadUID()]
	if !ok {
		return routing.Decision{}, simerr.New(simerr.InvariantViolation, "router %s: no cached route for head_uid %d (TAIL/BODY before HEAD?)", r.ID, f.HeadUID())
	}
	return d, nil
}

func (r *Router) path(d *device.NetDevice) string {
	return fmt.Sprintf("/NodeList/%s/DeviceList/%d", r.ID, d.Address)
}

// Step runs one arbitration pass: Manage is invoked for every port with a
// nonempty input buffer, in the router's fixed deterministic order
// (ascending port address; the topology builder gives the injection port
// the lowest address of its router, so it is served first). This is the
// seed-independent tie-break spec.md §5 requires for same-time contention
// across a router's input buffers.
//
// A port is retried up to DataFlitSpeedup times in the same tick: a
// zero-bandwidth-time BODY/TAIL departure (see Manage) frees its outbound
// channel synchronously, so a second and further Manage call on the same
// port can make progress before the next clock. Manage leaving the input
// buffer's length unchanged (blocked on backpressure, a busy channel still
// draining a HEAD, or an empty buffer) stops the retry immediately.
func (r *Router) Step() error {
	attempts := r.speedup()
	for _, dev := range r.ordered {
		for i := 0; i < attempts; i++ {
			if dev.InputQ.Len() == 0 {
				break
			}
			before := dev.InputQ.Len()
			if err := r.Manage(dev); err != nil {
				return err
			}
			if dev.InputQ.Len() == before {
				break
			}
		}
	}
	return nil
}

// TickPowerHook invokes the power hook with the previous tick's arrival
// count and resets the counter. Called once per router per clock tick by
// the simulator.
func (r *Router) TickPowerHook() {
	r.PowerHook.OnClockTick(r.ID, r.arrivalsThisClock)
	r.arrivalsThisClock = 0
}

// NotifyArrival increments the per-clock arrival counter; wired as the
// OnArrival callback on every ordinary (non-injection, non-ejection) port
// this router owns.
func (r *Router) NotifyArrival(flit.Flit) {
	r.arrivalsThisClock++
}
