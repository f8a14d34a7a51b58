package sim

import (
	"testing"

	"github.com/nocsim/nocsim/noc/clock"
	"github.com/nocsim/nocsim/noc/power"
	"github.com/nocsim/nocsim/noc/registry"
	"github.com/nocsim/nocsim/noc/trace"
)

// TestCTGSingleFlitPacketIsCounted covers an outbound volume small enough
// to fit in one data flit: the packet must still surface a TAIL at the
// destination so Metrics.RecordArrival counts it and the source router's
// route cache is purged, rather than silently dropping it uncounted.
func TestCTGSingleFlitPacketIsCounted(t *testing.T) {
	cfg := Default()
	cfg.Nodes = 2
	cfg.HSize = 2
	cfg.FlitsPerPacket = 9
	cfg.BufferSizeFlits = 9
	cfg.WarmupCycles = 0
	cfg.SimulationCycles = 200
	cfg.CTGIterations = 1
	cfg.CTGPeriod = 1000

	s := NewSimulator(clock.Time(cfg.WarmupCycles), clock.Time(cfg.SimulationCycles))
	_, topo, err := cfg.BuildTopology(s, trace.NullSink{}, power.NoopHook{})
	if err != nil {
		t.Fatalf("BuildTopology: %v", err)
	}
	s.BindTopology(topo)

	apcg := registry.Apcg{
		Tasks: []registry.CtgTask{
			{ID: "a", Outbound: map[string]int64{"b": 8}},
			{ID: "b"},
		},
	}
	mapping := registry.Mapping{"a": 0, "b": 1}

	if err := cfg.AttachCTGTraffic(s, topo, apcg, mapping); err != nil {
		t.Fatalf("AttachCTGTraffic: %v", err)
	}

	s.Run()

	if s.Metrics.PacketsReceived != 1 {
		t.Fatalf("expected exactly 1 packet received for a single-flit-volume CTG edge, got %d", s.Metrics.PacketsReceived)
	}
	if s.Metrics.FlitsReceived < 2 {
		t.Fatalf("expected at least a HEAD and TAIL to arrive, got %d flits", s.Metrics.FlitsReceived)
	}
}
