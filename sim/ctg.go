package sim

import (
	"math"

	"github.com/sirupsen/logrus"

	"github.com/nocsim/nocsim/noc/clock"
	"github.com/nocsim/nocsim/noc/flit"
	"github.com/nocsim/nocsim/noc/registry"
	"github.com/nocsim/nocsim/noc/simerr"
	"github.com/nocsim/nocsim/noc/topology"
	"github.com/nocsim/nocsim/noc/traffic"
)

// AttachCTGTraffic builds one communication-task-graph generator per
// mapped task in apcg and registers it with s, wiring each destination
// node's ejection hook to feed inbound bits back to the CTG instance
// waiting on them.
//
// Grounded on the teacher's sim/simulator.go pattern of registering a
// completion callback per in-flight request against a shared scheduler
// hook, generalized here from "one callback per request" to "one
// OnEject chain entry per node with CTG traffic".
func (c Config) AttachCTGTraffic(s *Simulator, topo *topology.Topology, apcg registry.Apcg, mapping registry.Mapping) error {
	senders := make(map[string][]traffic.Dependency, len(apcg.Tasks))
	for _, task := range apcg.Tasks {
		srcNodeID, ok := mapping[task.ID]
		if !ok {
			return simerr.New(simerr.ConfigurationError, "ctg task %q has no node mapping", task.ID)
		}
		for destID, bits := range task.Outbound {
			senders[destID] = append(senders[destID], traffic.Dependency{NodeID: srcNodeID, Bits: bits})
		}
	}

	ctgs := make(map[int]*traffic.CTG, len(apcg.Tasks))
	for _, task := range apcg.Tasks {
		nodeID, ok := mapping[task.ID]
		if !ok {
			return simerr.New(simerr.ConfigurationError, "ctg task %q has no node mapping", task.ID)
		}
		if nodeID < 0 || nodeID >= len(topo.Nodes) {
			return simerr.New(simerr.ConfigurationError, "ctg task %q mapped to out-of-range node %d", task.ID, nodeID)
		}

		destinations := make([]traffic.Dependency, 0, len(task.Outbound))
		for destID, bits := range task.Outbound {
			destNodeID, ok := mapping[destID]
			if !ok {
				return simerr.New(simerr.ConfigurationError, "ctg task %q depends on unmapped task %q", task.ID, destID)
			}
			destinations = append(destinations, traffic.Dependency{NodeID: destNodeID, Bits: bits})
		}

		cfg := traffic.CTGConfig{
			Iterations:    c.CTGIterations,
			Period:        c.CTGPeriod,
			FlitSizeBytes: c.Channel.FlitSizeBytes(),
			WarmupCycles:  c.WarmupCycles,
			Tasks:         []traffic.Task{{ExecutionTime: secondsToTicks(task.ExecutionTime, c.FrequencyHz)}},
			Senders:       senders[task.ID],
			Destinations:  destinations,
		}
		ctg, err := traffic.NewCTG(topo.Nodes[nodeID], topo, cfg)
		if err != nil {
			return simerr.Wrap(simerr.ConfigurationError, err, "building ctg generator for task %q", task.ID)
		}
		ctgs[nodeID] = ctg
		s.AddSource(ctg)
	}

	for nodeID, ctg := range ctgs {
		node := topo.Nodes[nodeID]
		previous := node.Router.OnEjectFunc()
		ctg := ctg
		node.Router.SetOnEject(func(f flit.Flit) {
			if previous != nil {
				previous(f)
			}
			if f.Meta().CTGIteration < 0 {
				return
			}
			if err := ctg.OnPacketReceived(f.Meta().CTGIteration, int64(f.SizeBytes())*8); err != nil {
				logrus.Fatalf("ctg bit accounting at node %d: %v", nodeID, err)
			}
		})
	}
	return nil
}

// secondsToTicks converts a wall-clock duration into a tick count at the
// configured clock frequency, rounding to the nearest tick.
func secondsToTicks(seconds float64, frequencyHz float64) clock.Time {
	return clock.Time(math.Round(seconds * frequencyHz))
}
