package traffic

import (
	"sort"

	"github.com/nocsim/nocsim/noc/clock"
	"github.com/nocsim/nocsim/noc/flit"
	"github.com/nocsim/nocsim/noc/simerr"
	"github.com/nocsim/nocsim/noc/topology"
)

// Task is one local unit of work in a node's task list: a fixed execution
// time, with no notion of what triggers it beyond its Dependencies (empty
// means independent).
type Task struct {
	ExecutionTime clock.Time
}

// Dependency is one edge of the communication task graph: a remote node
// id and a bit volume, used both as an inbound ("sender list") and an
// outbound ("destination list") edge depending on which list it's in.
type Dependency struct {
	NodeID int
	Bits   int64
}

// CTGConfig parameters the communication-task-graph driven generator
// (spec.md §4.7).
type CTGConfig struct {
	Iterations    int
	Period        clock.Time
	FlitSizeBytes int
	WarmupCycles  int64
	Tasks         []Task       // local tasks; their execution times sum before independent injection starts
	Senders       []Dependency // inbound: remote -> this node, by bit volume
	Destinations  []Dependency // outbound: this node -> remote, by bit volume
}

func (c CTGConfig) totalInboundBits() int64 {
	var sum int64
	for _, s := range c.Senders {
		sum += s.Bits
	}
	return sum
}

func (c CTGConfig) totalExecutionTime() clock.Time {
	var sum clock.Time
	for _, t := range c.Tasks {
		sum += t.ExecutionTime
	}
	return sum
}

// iterState tracks one iteration's progress for one node.
type iterState struct {
	receivedBits   int64
	started        bool
	injectionStart clock.Time
	destIdx        int // next Destinations entry to inject
	pending        []flit.Flit
}

// CTG is the communication-task-graph driven traffic source (C11). One
// instance serves exactly one Node; iterations run independently and
// concurrently per spec.md §4.7.1.
//
// Grounded on the teacher's sim/simulator.go per-request state-machine
// shape (Request moving through Waiting -> Running -> Done) generalized
// to per-iteration node state moving through Waiting -> Executing ->
// Injecting.
type CTG struct {
	node  *topology.Node
	topo  *topology.Topology
	cfg   CTGConfig
	iters []iterState

	// lastExecutionEnd enforces the monotonic single-core execution
	// constraint: next_execution_start = max(now, last_execution_end) + exec.
	lastExecutionEnd clock.Time

	// ReceivedBits exposes per-iteration inbound totals for metrics/testing.
	ReceivedBits []int64
}

// NewCTG constructs a CTG generator for node.
func NewCTG(node *topology.Node, topo *topology.Topology, cfg CTGConfig) (*CTG, error) {
	if cfg.Iterations <= 0 {
		return nil, simerr.New(simerr.ConfigurationError, "ctg iterations must be positive, got %d", cfg.Iterations)
	}
	if cfg.FlitSizeBytes < topo.HeaderSize() {
		return nil, simerr.New(simerr.ConfigurationError, "flit_size_bytes %d smaller than header size %d", cfg.FlitSizeBytes, topo.HeaderSize())
	}
	return &CTG{
		node:         node,
		topo:         topo,
		cfg:          cfg,
		iters:        make([]iterState, cfg.Iterations),
		ReceivedBits: make([]int64, cfg.Iterations),
	}, nil
}

// independent reports whether this node's tasks have no inbound
// dependency, i.e. it can start injecting on a schedule rather than
// waiting on received bits.
func (c *CTG) independent() bool {
	return len(c.cfg.Senders) == 0
}

// OnPacketReceived records inbound data for iteration it, called by the
// router's ejection hook with the bits of each CTG flit it consumes.
func (c *CTG) OnPacketReceived(it int, bits int64) error {
	if it < 0 || it >= c.cfg.Iterations {
		return simerr.New(simerr.InvariantViolation, "ctg iteration %d out of range [0,%d)", it, c.cfg.Iterations)
	}
	c.iters[it].receivedBits += bits
	c.ReceivedBits[it] = c.iters[it].receivedBits
	return nil
}

// Tick drives every iteration's state machine forward by one clock.
func (c *CTG) Tick(now clock.Time) error {
	for i := range c.iters {
		if err := c.tickIteration(now, i); err != nil {
			return err
		}
	}
	return nil
}

func (c *CTG) tickIteration(now clock.Time, i int) error {
	st := &c.iters[i]
	if st.started {
		return c.drainPending(now, st)
	}

	if c.independent() {
		readyAt := clock.Time(i)*c.cfg.Period + c.cfg.totalExecutionTime()
		if now < readyAt {
			return nil
		}
	} else {
		if st.receivedBits < c.cfg.totalInboundBits() {
			return nil
		}
		if st.injectionStart == 0 {
			// Fix this iteration's execution window once, when its inbound
			// data is complete.
			execStart := now
			if c.lastExecutionEnd > execStart {
				execStart = c.lastExecutionEnd
			}
			st.injectionStart = execStart + c.cfg.totalExecutionTime()
			c.lastExecutionEnd = st.injectionStart
		}
		if now < st.injectionStart {
			return nil
		}
	}

	st.started = true
	return c.beginInjection(now, i, st)
}

// beginInjection converts every Destinations entry into one packet's worth
// of flits and queues them for drainPending to emit one per tick.
func (c *CTG) beginInjection(now clock.Time, iteration int, st *iterState) error {
	dsts := append([]Dependency(nil), c.cfg.Destinations...)
	sort.Slice(dsts, func(a, b int) bool { return dsts[a].NodeID < dsts[b].NodeID })

	headerBits := c.topo.HeaderSize() * 8
	flitBits := c.cfg.FlitSizeBytes * 8

	for _, d := range dsts {
		dstNode := c.topo.NodeAt(d.NodeID)
		offsets := c.topo.RelativeOffsets(c.node, dstNode)
		header := flit.NewHeader(c.topo.Dims())
		for dim, off := range offsets {
			if err := header.SetOffset(dim, off.Back, off.Magnitude); err != nil {
				return err
			}
		}

		remaining := d.Bits - int64(flitBits-headerBits)
		flitCount := 1
		for remaining > 0 {
			flitCount++
			remaining -= int64(flitBits)
		}
		// Every packet carries a dedicated TAIL, even one whose payload fits
		// entirely in the HEAD: RecordArrival and the router's route-cache
		// purge both key off a TAIL actually being ejected, and metrics.go
		// documents this as the single-flit-packet contract.
		if flitCount < 2 {
			flitCount = 2
		}

		head := flit.NewHead(c.cfg.FlitSizeBytes, header, flitCount, now, iteration)
		st.pending = append(st.pending, head)
		for k := 1; k < flitCount-1; k++ {
			st.pending = append(st.pending, flit.NewBody(head.UID(), c.cfg.FlitSizeBytes, now, iteration))
		}
		st.pending = append(st.pending, flit.NewTail(head.UID(), c.cfg.FlitSizeBytes, now, iteration))
	}
	return c.drainPending(now, st)
}

// drainPending injects one queued flit per tick, matching the
// one-flit-per-clock pacing the synchronous generator also uses.
func (c *CTG) drainPending(now clock.Time, st *iterState) error {
	if len(st.pending) == 0 {
		return nil
	}
	f := st.pending[0]
	st.pending = st.pending[1:]
	return c.node.Inject(f)
}
