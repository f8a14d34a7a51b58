package router

import (
	"github.com/nocsim/nocsim/noc/clock"
	"github.com/nocsim/nocsim/noc/device"
	"github.com/nocsim/nocsim/noc/flit"
	"github.com/nocsim/nocsim/noc/power"
	"github.com/nocsim/nocsim/noc/routing"
	"github.com/nocsim/nocsim/noc/simerr"
	"github.com/nocsim/nocsim/noc/switching"
	"github.com/nocsim/nocsim/noc/trace"
)

// half names the two sides of an Irvine planar router.
type half int

const (
	leftHalf half = iota
	rightHalf
)

// Irvine implements the planar two-half router variant (spec.md §4.3): the
// router splits into a left half and a right half, each with its own
// injection device, sharing one ejection device. A flit already routed
// through one half may never turn onto the other half's dimension-0 port
// once its X-offset has reached zero — the split rule forbids a W→E or
// E→W turn past that point, since crossing halves after X is resolved
// would re-enter the dimension the flit just finished routing through.
//
// Grounded on original_source/src/noc/router/irvine/irvine-router.cc's
// two internal input devices (m_internalLeftInputDevice /
// m_internalRightInputDevice) feeding one shared output device; reshaped
// here as two embedded *Router halves sharing routing/switching state and
// one ejection port, rather than ns-3's internal relay devices.
type Irvine struct {
	Left, Right *Router

	id       string
	ejection *device.NetDevice
	homeHalf map[uint32]half // head uid -> half that owns it, set on HEAD arrival
}

// NewIrvine constructs an Irvine router. Both halves share the same
// routing and switching protocol instances (the routing decision and
// backpressure state are per-router, not per-half) and the same
// injection-agnostic ejection device.
func NewIrvine(id string, rt routing.Protocol, sw switching.Protocol, sched clock.Scheduler, tr trace.Sink, ph power.Hook) *Irvine {
	left := New(id+"/left", rt, sw, sched, tr, ph)
	right := New(id+"/right", rt, sw, sched, tr, ph)
	eject := device.NewNetDevice(-1, device.Local, -1, 0)
	left.Ejection = eject
	right.Ejection = eject
	return &Irvine{
		Left:     left,
		Right:    right,
		id:       id,
		ejection: eject,
		homeHalf: make(map[uint32]half),
	}
}

// RouterID implements Stepper.
func (ir *Irvine) RouterID() string { return ir.id }

// OnEjectFunc implements Stepper.
func (ir *Irvine) OnEjectFunc() func(flit.Flit) { return ir.Left.OnEjectFunc() }

// SetOnEject implements Stepper. Both halves share one ejection device, so
// either may be the one to consume a given flit; the callback is wired to
// both.
func (ir *Irvine) SetOnEject(cb func(flit.Flit)) {
	ir.Left.SetOnEject(cb)
	ir.Right.SetOnEject(cb)
}

// SetDataFlitSpeedup implements Stepper, applying the same retry budget to
// both halves.
func (ir *Irvine) SetDataFlitSpeedup(n int) {
	ir.Left.SetDataFlitSpeedup(n)
	ir.Right.SetDataFlitSpeedup(n)
}

// PortFor returns the net device for (direction, dimension), delegating to
// whichever half owns it: BACK on dimension 0 is left-exclusive, FORWARD on
// dimension 0 is right-exclusive, and every other port is shared (added to
// both halves by the topology builder), so either half resolves it.
func (ir *Irvine) PortFor(dir device.Direction, dimension int) (*device.NetDevice, error) {
	if dimension == 0 && dir == device.BACK {
		return ir.Left.PortFor(dir, dimension)
	}
	return ir.Right.PortFor(dir, dimension)
}

// AddPort registers a port on the half named by side. AddWestPort,
// AddEastPort and AddSharedPort choose the side: dimension-0 BACK (west)
// goes to the left half, dimension-0 FORWARD (east) to the right half, and
// every higher-dimension Y/Z port to both halves, so the split only
// constrains the X dimension crossing.
func (ir *Irvine) AddPort(dev *device.NetDevice, side half) {
	if side == leftHalf {
		ir.Left.AddPort(dev)
	} else {
		ir.Right.AddPort(dev)
	}
}

// SetInjection wires one half's local injection device.
func (ir *Irvine) SetInjection(side half, dev *device.NetDevice) {
	if side == leftHalf {
		ir.Left.SetInjection(dev)
	} else {
		ir.Right.SetInjection(dev)
	}
}

// AddWestPort registers dev (dimension 0, BACK direction) on the left
// half, the west-facing exclusive port.
func (ir *Irvine) AddWestPort(dev *device.NetDevice) { ir.AddPort(dev, leftHalf) }

// AddEastPort registers dev (dimension 0, FORWARD direction) on the right
// half, the east-facing exclusive port.
func (ir *Irvine) AddEastPort(dev *device.NetDevice) { ir.AddPort(dev, rightHalf) }

// AddSharedPort registers dev (any dimension other than 0) on both halves:
// a Y/Z port either half may need to route through.
func (ir *Irvine) AddSharedPort(dev *device.NetDevice) {
	ir.AddPort(dev, leftHalf)
	ir.AddPort(dev, rightHalf)
}

// SetLeftInjection wires the left half's injection device directly,
// sidestepping the half-selection AddPort otherwise performs.
func (ir *Irvine) SetLeftInjection(dev *device.NetDevice)  { ir.Left.SetInjection(dev) }
func (ir *Irvine) SetRightInjection(dev *device.NetDevice) { ir.Right.SetInjection(dev) }

// SetFaulty marks both halves faulty together; the two halves of one
// physical router fail as a unit.
func (ir *Irvine) SetFaulty(v bool) {
	ir.Left.SetFaulty(v)
	ir.Right.SetFaulty(v)
}

func (ir *Irvine) IsFaulty() bool { return ir.Left.IsFaulty() || ir.Right.IsFaulty() }

// Inject routes to whichever half's injection device is appropriate for
// the flit's initial X direction, per irvine-router.cc's
// GetInjectionNetDevice: a HEAD with a west-bound (BACK) X offset injects
// via the left half, an east-bound or X-resolved HEAD via the right half;
// BODY/TAIL follow the half recorded for their head uid.
func (ir *Irvine) Inject(f flit.Flit) error {
	side := ir.sideFor(f)
	if side == leftHalf {
		return ir.Left.Inject(f)
	}
	return ir.Right.Inject(f)
}

func (ir *Irvine) sideFor(f flit.Flit) half {
	if head, ok := f.(*flit.Head); ok {
		off := flit.DecodeOffset(head.Header.DistOffset[0])
		side := rightHalf
		if off.Back && off.Magnitude > 0 {
			side = leftHalf
		}
		ir.homeHalf[head.UID()] = side
		return side
	}
	return ir.homeHalf[f.HeadUID()]
}

// Step runs one arbitration pass over both halves, left first. The turn
// restriction is enforced by checkedStep, which runs checkTurn on the flit
// at the front of each dimension-0 input port before calling Manage.
func (ir *Irvine) Step() error {
	if err := ir.checkedStep(ir.Left); err != nil {
		return err
	}
	return ir.checkedStep(ir.Right)
}

func (ir *Irvine) checkedStep(r *Router) error {
	attempts := r.speedup()
	for _, dev := range r.ordered {
		for i := 0; i < attempts; i++ {
			if dev.InputQ.Len() == 0 {
				break
			}
			// The turn restriction only governs the X dimension: Y/Z ports
			// are shared by both halves (see AddPort) and crossing them is
			// not a half-to-half turn.
			if dev.Dimension == 0 {
				if f := dev.InputQ.Peek(); f != nil {
					if err := ir.checkTurn(r, f); err != nil {
						return err
					}
				}
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

// checkTurn rejects a W→E or E→W crossing once the X-offset for f's
// packet has already reached zero: at that point the packet belongs to
// whichever half resolved its X hop and must not re-enter the other
// half's X port.
func (ir *Irvine) checkTurn(r *Router, f flit.Flit) error {
	home, tracked := ir.homeHalf[f.HeadUID()]
	if !tracked {
		return nil
	}
	currentSide := leftHalf
	if r == ir.Right {
		currentSide = rightHalf
	}
	if currentSide != home {
		return simerr.New(simerr.InvariantViolation, "irvine router: flit %d attempted to turn across halves after X resolution", f.HeadUID())
	}
	return nil
}

// NotifyArrival counts each arrival once, on the left half's counter, so
// the power hook sees the physical router's arrivals under the left
// half's ID and none under the right half's.
func (ir *Irvine) NotifyArrival(f flit.Flit) {
	ir.Left.NotifyArrival(f)
}

// TickPowerHook ticks both halves; OnClockTick is idempotent per router id
// since each half carries a distinct ID suffix.
func (ir *Irvine) TickPowerHook() {
	ir.Left.TickPowerHook()
	ir.Right.TickPowerHook()
}
