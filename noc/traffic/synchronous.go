package traffic

import (
	"math/rand"

	"github.com/nocsim/nocsim/noc/clock"
	"github.com/nocsim/nocsim/noc/flit"
	"github.com/nocsim/nocsim/noc/simerr"
	"github.com/nocsim/nocsim/noc/topology"
)

// SyncConfig parameters the synchronous generator (spec.md §4.7).
type SyncConfig struct {
	InjectionProbability float64
	FlitsPerPacket       int
	Pattern              Pattern
	FixedDestination     []int // only consulted when Pattern == DestinationSpecified
	WarmupCycles         int64
	MaxFlits             int // 0 = unbounded
	MaxBytes             int // 0 = unbounded
	FlitSizeBytes        int
	DataFlitSpeedup      int // up to this many BODY/TAIL flits inject per tick; values below 1 act as 1
}

// Synchronous is the per-clock Bernoulli injection traffic source (C10).
// One instance is attached to exactly one Node.
//
// Grounded on the teacher's sim/simulator.go tick-driven step shape
// (makeRunningBatch / admitFromQueue called once per clock): Tick here
// plays the same role, called once per global clock tick by the
// simulator's main loop.
type Synchronous struct {
	node *topology.Node
	topo *topology.Topology
	cfg  SyncConfig
	rng  *rand.Rand

	flitsSent int
	bytesSent int

	packetInFlight  bool
	headUID         uint32
	bodiesRemaining int
}

// NewSynchronous constructs a Synchronous generator for node within topo,
// drawing from rng for both the Bernoulli injection decision and
// UniformRandom destination selection.
func NewSynchronous(node *topology.Node, topo *topology.Topology, cfg SyncConfig, rng *rand.Rand) (*Synchronous, error) {
	if cfg.FlitsPerPacket < 2 {
		return nil, simerr.New(simerr.ConfigurationError, "flits_per_packet must be >= 2, got %d", cfg.FlitsPerPacket)
	}
	if cfg.InjectionProbability < 0 || cfg.InjectionProbability > 1 {
		return nil, simerr.New(simerr.ConfigurationError, "injection_probability must be in [0,1], got %f", cfg.InjectionProbability)
	}
	if cfg.FlitSizeBytes < topo.HeaderSize() {
		return nil, simerr.New(simerr.ConfigurationError, "flit_size_bytes %d smaller than header size %d", cfg.FlitSizeBytes, topo.HeaderSize())
	}
	if cfg.DataFlitSpeedup < 1 {
		cfg.DataFlitSpeedup = 1
	}
	return &Synchronous{node: node, topo: topo, cfg: cfg, rng: rng}, nil
}

// exhausted reports whether either the max_flits or the max_bytes budget
// has been reached (a zero budget is unbounded), so generation continues
// only while both are unmet.
func (s *Synchronous) exhausted() bool {
	flitsDone := s.cfg.MaxFlits > 0 && s.flitsSent >= s.cfg.MaxFlits
	bytesDone := s.cfg.MaxBytes > 0 && s.bytesSent >= s.cfg.MaxBytes
	return (s.cfg.MaxFlits > 0 && flitsDone) || (s.cfg.MaxBytes > 0 && bytesDone)
}

// Tick runs one clock's worth of work: continue an in-flight packet, or
// attempt to start a new one with probability InjectionProbability.
func (s *Synchronous) Tick(now clock.Time) error {
	if s.exhausted() {
		return nil
	}
	if s.packetInFlight {
		return s.continuePacket(now)
	}
	if s.rng.Float64() >= s.cfg.InjectionProbability {
		return nil
	}
	return s.startPacket(now)
}

func (s *Synchronous) destination() []int {
	sizes := s.topo.Sizes
	switch s.cfg.Pattern {
	case UniformRandom:
		dst := make([]int, len(sizes))
		for d, sz := range sizes {
			dst[d] = s.rng.Intn(sz)
		}
		return dst
	default:
		return Destination(s.cfg.Pattern, s.node.Coord, sizes, s.cfg.FixedDestination)
	}
}

func (s *Synchronous) startPacket(now clock.Time) error {
	dstCoord := s.destination()
	var dstNode *topology.Node
	for _, n := range s.topo.Nodes {
		if coordsEqual(n.Coord, dstCoord) {
			dstNode = n
			break
		}
	}
	if dstNode == nil || dstNode == s.node {
		return nil // destination == source: abort this tick's attempt
	}

	offsets := s.topo.RelativeOffsets(s.node, dstNode)
	header := flit.NewHeader(s.topo.Dims())
	for d, off := range offsets {
		if err := header.SetOffset(d, off.Back, off.Magnitude); err != nil {
			return err
		}
	}

	head := flit.NewHead(s.cfg.FlitSizeBytes, header, s.cfg.FlitsPerPacket, now, -1)
	if err := s.node.Inject(head); err != nil {
		return err
	}
	s.flitsSent++
	s.bytesSent += head.SizeBytes()
	s.headUID = head.UID()
	s.bodiesRemaining = s.cfg.FlitsPerPacket - 1
	s.packetInFlight = s.bodiesRemaining > 0
	return nil
}

// continuePacket injects up to DataFlitSpeedup body/tail flits in this one
// tick, so observed per-packet latency scales as
// (flits_per_packet + hop_count) / data_flit_speedup clocks (spec.md §8).
func (s *Synchronous) continuePacket(now clock.Time) error {
	for i := 0; i < s.cfg.DataFlitSpeedup && s.bodiesRemaining > 0; i++ {
		isLast := s.bodiesRemaining == 1
		var f flit.Flit
		if isLast {
			f = flit.NewTail(s.headUID, s.cfg.FlitSizeBytes, now, -1)
		} else {
			f = flit.NewBody(s.headUID, s.cfg.FlitSizeBytes, now, -1)
		}
		if err := s.node.Inject(f); err != nil {
			return err
		}
		s.flitsSent++
		s.bytesSent += f.SizeBytes()
		s.bodiesRemaining--
		if isLast {
			s.packetInFlight = false
		}
		if s.exhausted() {
			break
		}
	}
	return nil
}

func coordsEqual(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
