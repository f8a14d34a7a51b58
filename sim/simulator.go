package sim

import (
	"container/heap"

	"github.com/sirupsen/logrus"

	"github.com/nocsim/nocsim/noc/clock"
	"github.com/nocsim/nocsim/noc/flit"
	"github.com/nocsim/nocsim/noc/topology"
)

// tickable is driven once per global clock tick, before routers step.
type tickable interface {
	Tick(now clock.Time) error
}

// Simulator is the discrete-event engine: it implements noc/clock.Scheduler
// for every noc/* component, and additionally drives the per-clock-tick
// loop (traffic sources, then router arbitration, then power hooks) the
// core's cooperative single-threaded model requires (spec.md §5).
//
// Grounded on the teacher's sim/simulator.go EventQueue/Schedule/Run shape:
// same container/heap min-heap, same "pop next event, advance clock,
// execute" loop. The batch-formation/KV-cache machinery that loop used to
// drive is replaced here by the flit-level per-clock tick/step pass.
type Simulator struct {
	now      clock.Time
	queue    eventQueue
	nextSeq  uint64
	nextID   uint64
	canceled map[uint64]bool

	topo    *topology.Topology
	sources []tickable

	Metrics *Metrics

	WarmupCycles clock.Time
	StopTime     clock.Time
}

// NewSimulator constructs a Simulator with no topology bound yet. A
// Simulator must be usable as a clock.Scheduler before its topology
// exists, since topology.Build hands it to every channel as the scheduler —
// callers build the Simulator first, pass it to topology.Build as the
// scheduler, then call BindTopology with the result.
func NewSimulator(warmupCycles, stopTime clock.Time) *Simulator {
	return &Simulator{
		canceled:     make(map[uint64]bool),
		Metrics:      NewMetrics(),
		WarmupCycles: warmupCycles,
		StopTime:     stopTime,
	}
}

// BindTopology attaches topo to the simulator and wires every node's
// router ejection hook to record per-packet latency into Metrics,
// excluding flits ejected before WarmupCycles.
func (s *Simulator) BindTopology(topo *topology.Topology) {
	s.topo = topo
	// Packet latency runs from the HEAD's injection to the TAIL's ejection.
	headInjected := make(map[uint32]clock.Time)
	for _, n := range topo.Nodes {
		nodeID := n.ID
		n.Router.SetOnEject(func(f flit.Flit) {
			start := clock.Time(f.Meta().InjectionTime)
			switch f.Type() {
			case flit.HEAD:
				headInjected[f.UID()] = start
			case flit.TAIL:
				if t, ok := headInjected[f.HeadUID()]; ok {
					start = t
					delete(headInjected, f.HeadUID())
				}
			}
			s.recordArrival(nodeID, f, start)
		})
	}
}

func (s *Simulator) recordArrival(nodeID int, f flit.Flit, start clock.Time) {
	latency := clock.Time(f.Meta().ReceiveTime) - start
	if f.Meta().ReceiveTime < s.WarmupCycles {
		return
	}
	s.Metrics.RecordArrival(nodeID, f.Type(), latency, f.SizeBytes())
}

// AddSource registers a traffic source to be ticked once per clock,
// before any router steps.
func (s *Simulator) AddSource(t tickable) {
	s.sources = append(s.sources, t)
}

// Now implements noc/clock.Scheduler.
func (s *Simulator) Now() clock.Time { return s.now }

// Schedule implements noc/clock.Scheduler, pushing cb onto the min-heap
// keyed by (time, insertion sequence).
func (s *Simulator) Schedule(delay clock.Time, cb func()) clock.EventID {
	id := s.nextID
	s.nextID++
	ev := &scheduledEvent{
		time:     s.now + delay,
		sequence: s.nextSeq,
		id:       id,
		cb:       cb,
	}
	s.nextSeq++
	heap.Push(&s.queue, ev)
	return clock.EventID(id)
}

// Cancel implements noc/clock.Scheduler. Idempotent: canceling an unknown
// id, or one already fired, is a no-op.
func (s *Simulator) Cancel(id clock.EventID) {
	s.canceled[uint64(id)] = true
}

// Run drives the event loop from the current clock to StopTime, ticking
// traffic sources and stepping every router once per global clock tick.
// Draining flits still in buffers at stop is explicitly out of scope
// (spec.md §5) — the loop simply stops firing events past StopTime.
func (s *Simulator) Run() {
	s.Schedule(0, s.tick)
	for len(s.queue) > 0 {
		ev := heap.Pop(&s.queue).(*scheduledEvent)
		if s.canceled[ev.id] {
			delete(s.canceled, ev.id)
			continue
		}
		if ev.time > s.StopTime {
			break
		}
		s.now = ev.time
		ev.cb()
	}
	s.Metrics.SimEndedTime = int64(s.now)
	logrus.Infof("[tick %07d] simulation ended", s.now)
}

// tick runs one global clock tick: every traffic source fires, every
// router arbitrates its input buffers, every router's power hook observes
// the tick just finished, then the next tick is scheduled one clock later.
func (s *Simulator) tick() {
	for _, src := range s.sources {
		if err := src.Tick(s.now); err != nil {
			logrus.Fatalf("traffic source tick at clock %d: %v", s.now, err)
		}
	}
	for _, n := range s.topo.Nodes {
		if err := n.Router.Step(); err != nil {
			logrus.Fatalf("router %s step at clock %d: %v", n.Router.RouterID(), s.now, err)
		}
		n.Router.TickPowerHook()
	}
	if s.now < s.StopTime {
		s.Schedule(1, s.tick)
	}
}
