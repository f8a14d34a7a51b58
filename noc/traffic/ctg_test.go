package traffic

import (
	"testing"

	"github.com/nocsim/nocsim/noc/buffer"
	"github.com/nocsim/nocsim/noc/clock"
	"github.com/nocsim/nocsim/noc/power"
	"github.com/nocsim/nocsim/noc/router"
	"github.com/nocsim/nocsim/noc/topology"
	"github.com/nocsim/nocsim/noc/trace"
)

// injectionQueue reaches into a plain router.Router's injection buffer;
// every test in this package builds its topology with the default
// (non-Irvine) router kind.
func injectionQueue(n *topology.Node) *buffer.InputBuffer {
	return n.Router.(*router.Router).Injection.InputQ
}

type stepScheduler struct{ now clock.Time }

func (s *stepScheduler) Now() clock.Time { return s.now }
func (s *stepScheduler) Schedule(delay clock.Time, cb func()) clock.EventID {
	s.now += delay
	cb()
	return 0
}
func (s *stepScheduler) Cancel(clock.EventID) {}

func twoNodeTopology(t *testing.T, sched clock.Scheduler) *topology.Topology {
	t.Helper()
	topo, err := topology.Build(topology.Config{
		Kind:          topology.Mesh,
		Sizes:         []int{2, 1},
		BufferPackets: 4,
		Bandwidth:     0,
		RoutingName:   "xy",
		RouteXFirst:   true,
		SwitchingName: "wormhole",
	}, sched, trace.NullSink{}, power.NoopHook{})
	if err != nil {
		t.Fatal(err)
	}
	return topo
}

func TestCTGIndependentNodeInjectsAfterExecution(t *testing.T) {
	sched := &stepScheduler{}
	topo := twoNodeTopology(t, sched)

	cfg := CTGConfig{
		Iterations:    1,
		Period:        100,
		FlitSizeBytes: 32,
		Tasks:         []Task{{ExecutionTime: 5}},
		Destinations:  []Dependency{{NodeID: 1, Bits: 8}},
	}
	ctg, err := NewCTG(topo.Nodes[0], topo, cfg)
	if err != nil {
		t.Fatal(err)
	}
	if !ctg.independent() {
		t.Fatal("a node with no Senders should be independent")
	}

	for sched.now = 0; sched.now < 5; sched.now++ {
		if err := ctg.Tick(sched.now); err != nil {
			t.Fatal(err)
		}
	}
	if injectionQueue(topo.Nodes[0]).Len() != 0 {
		t.Fatal("nothing should be injected before the execution time has elapsed")
	}

	if err := ctg.Tick(5); err != nil {
		t.Fatal(err)
	}
	if injectionQueue(topo.Nodes[0]).Len() == 0 {
		t.Fatal("expected a HEAD injected once execution time elapses")
	}
}

func TestCTGDependentNodeWaitsForInboundBits(t *testing.T) {
	sched := &stepScheduler{}
	topo := twoNodeTopology(t, sched)

	cfg := CTGConfig{
		Iterations:    1,
		FlitSizeBytes: 32,
		Senders:       []Dependency{{NodeID: 0, Bits: 64}},
		Destinations:  []Dependency{{NodeID: 0, Bits: 8}},
	}
	ctg, err := NewCTG(topo.Nodes[1], topo, cfg)
	if err != nil {
		t.Fatal(err)
	}
	if ctg.independent() {
		t.Fatal("a node with Senders must not be independent")
	}

	if err := ctg.Tick(0); err != nil {
		t.Fatal(err)
	}
	if injectionQueue(topo.Nodes[1]).Len() != 0 {
		t.Fatal("dependent node must not inject before receiving its required bits")
	}

	if err := ctg.OnPacketReceived(0, 64); err != nil {
		t.Fatal(err)
	}
	if err := ctg.Tick(1); err != nil {
		t.Fatal(err)
	}
	if injectionQueue(topo.Nodes[1]).Len() == 0 {
		t.Fatal("expected injection once the inbound bit total is met")
	}
	if ctg.ReceivedBits[0] != 64 {
		t.Fatalf("ReceivedBits[0] = %d, want 64", ctg.ReceivedBits[0])
	}
}

func TestCTGOnPacketReceivedRejectsOutOfRangeIteration(t *testing.T) {
	sched := &stepScheduler{}
	topo := twoNodeTopology(t, sched)
	cfg := CTGConfig{Iterations: 1, FlitSizeBytes: 32}
	ctg, err := NewCTG(topo.Nodes[0], topo, cfg)
	if err != nil {
		t.Fatal(err)
	}
	if err := ctg.OnPacketReceived(5, 10); err == nil {
		t.Fatal("expected an error for an out-of-range iteration index")
	}
}
