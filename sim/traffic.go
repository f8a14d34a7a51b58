package sim

import (
	"strconv"

	"github.com/nocsim/nocsim/noc/rng"
	"github.com/nocsim/nocsim/noc/simerr"
	"github.com/nocsim/nocsim/noc/topology"
	"github.com/nocsim/nocsim/noc/traffic"
)

// patternByName maps spec.md §4.7's traffic_pattern config string to the
// traffic.Pattern enum, returning a ConfigurationError on an unrecognized
// name.
func patternByName(name string) (traffic.Pattern, error) {
	switch name {
	case "", "UniformRandom":
		return traffic.UniformRandom, nil
	case "BitMatrixTranspose":
		return traffic.BitMatrixTranspose, nil
	case "BitComplement":
		return traffic.BitComplement, nil
	case "BitReverse":
		return traffic.BitReverse, nil
	case "DestinationSpecified":
		return traffic.DestinationSpecified, nil
	default:
		return 0, simerr.New(simerr.ConfigurationError, "unknown traffic_pattern %q", name)
	}
}

// AttachSynchronousTraffic builds one Synchronous generator per node and
// registers it with s, drawing each node's RNG stream from a partitioned
// generator keyed by node id so runs are reproducible given a seed.
func (c Config) AttachSynchronousTraffic(s *Simulator, topo *topology.Topology, seed rng.SimulationKey) error {
	pattern, err := patternByName(c.TrafficPattern)
	if err != nil {
		return err
	}
	partitioned := rng.New(seed)
	for _, n := range topo.Nodes {
		src, err := traffic.NewSynchronous(n, topo, traffic.SyncConfig{
			InjectionProbability: c.InjectionProbability,
			FlitsPerPacket:       c.FlitsPerPacket,
			Pattern:              pattern,
			WarmupCycles:         c.WarmupCycles,
			FlitSizeBytes:        c.Channel.FlitSizeBytes(),
			DataFlitSpeedup:      c.DataFlitSpeedup,
		}, partitioned.ForSubsystem(nodeSubsystem(n.ID)))
		if err != nil {
			return err
		}
		s.AddSource(src)
	}
	return nil
}

func nodeSubsystem(id int) string {
	return "traffic:" + strconv.Itoa(id)
}
