package sim

import (
	"math"

	"gopkg.in/yaml.v3"

	"github.com/nocsim/nocsim/noc/clock"
	"github.com/nocsim/nocsim/noc/flit"
	"github.com/nocsim/nocsim/noc/power"
	"github.com/nocsim/nocsim/noc/registry"
	"github.com/nocsim/nocsim/noc/simerr"
	"github.com/nocsim/nocsim/noc/topology"
	"github.com/nocsim/nocsim/noc/trace"
)

// Config groups the full simulation configuration surface spec.md §6
// defines, the same way the teacher groups KVCacheConfig/BatchConfig/
// PolicyConfig in its own config.go — one struct per concern, loaded from
// either CLI flags or a scenario file.
type Config struct {
	FrequencyHz float64 `yaml:"frequency_hz"`
	Nodes       int     `yaml:"nodes"`
	HSize       int     `yaml:"h_size"`
	Torus       bool    `yaml:"torus"`
	ThreeD      bool    `yaml:"three_dimensional"`

	Channel registry.ChannelConfig `yaml:"channel"`

	FlitsPerPacket  int    `yaml:"flits_per_packet"`
	DataFlitSpeedup int    `yaml:"data_flit_speedup"`
	BufferSizeFlits int    `yaml:"buffer_size"`
	RouteXFirst     bool   `yaml:"route_x_first"`
	Switching       string `yaml:"switching"`
	RouterKind      string `yaml:"router_kind"` // "plain" (default) or "irvine"

	Faults []FaultSpec `yaml:"faults"`

	WarmupCycles     int64 `yaml:"warmup_cycles"`
	SimulationCycles int64 `yaml:"simulation_cycles"`

	TrafficPattern       string     `yaml:"traffic_pattern"`
	InjectionProbability float64    `yaml:"injection_probability"`
	CTGIterations        int        `yaml:"ctg_iterations"`
	CTGPeriod            clock.Time `yaml:"ctg_period"`

	LogLevel string `yaml:"log"`
}

// Default returns the configuration surface's documented defaults
// (spec.md §6 table).
func Default() Config {
	return Config{
		FrequencyHz: 1e9,
		Nodes:       16,
		HSize:       4,
		Channel: registry.ChannelConfig{
			FlitSize:   32, // bytes
			Bandwidth:  0,  // 0 = computed as 1 flit/clock, see BuildTopology
			FullDuplex: true,
		},
		FlitsPerPacket:       9,
		DataFlitSpeedup:      1,
		BufferSizeFlits:      9,
		RouteXFirst:          true,
		Switching:            "wormhole",
		RouterKind:           "plain",
		WarmupCycles:         1000,
		SimulationCycles:     10000,
		TrafficPattern:       "UniformRandom",
		InjectionProbability: 1.0,
		CTGIterations:        1,
		CTGPeriod:            1000,
		LogLevel:             "info",
	}
}

// LoadScenario parses a YAML scenario file over Default(), then validates
// the result. A scenario file is an external collaborator, not a core
// feature — the core only exposes this function; cmd/root.go is a thin
// consumer of it.
func LoadScenario(data []byte) (Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, simerr.Wrap(simerr.ConfigurationError, err, "parsing scenario YAML")
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// dimensionSizes computes the per-dimension node counts from Nodes/HSize
// (2D) or Nodes's integer cube root (3D).
func (c Config) dimensionSizes() ([]int, error) {
	if !c.ThreeD {
		if c.HSize <= 0 || c.Nodes%c.HSize != 0 {
			return nil, simerr.New(simerr.ConfigurationError, "nodes (%d) must be divisible by h_size (%d)", c.Nodes, c.HSize)
		}
		return []int{c.HSize, c.Nodes / c.HSize}, nil
	}
	side := int(math.Round(math.Cbrt(float64(c.Nodes))))
	if side*side*side != c.Nodes {
		return nil, simerr.New(simerr.ConfigurationError, "nodes (%d) is not a perfect cube for a 3D topology", c.Nodes)
	}
	return []int{side, side, side}, nil
}

// Validate checks the startup invariants spec.md §6 names.
func (c Config) Validate() error {
	if _, err := c.dimensionSizes(); err != nil {
		return err
	}
	if c.SimulationCycles <= c.WarmupCycles {
		return simerr.New(simerr.ConfigurationError, "simulation_cycles (%d) must exceed warmup_cycles (%d)", c.SimulationCycles, c.WarmupCycles)
	}
	if c.InjectionProbability < 0 || c.InjectionProbability > 1 {
		return simerr.New(simerr.ConfigurationError, "injection_probability must be in [0,1], got %f", c.InjectionProbability)
	}
	if c.FlitsPerPacket < 2 {
		return simerr.New(simerr.ConfigurationError, "flits_per_packet must be >= 2, got %d", c.FlitsPerPacket)
	}
	dims, _ := c.dimensionSizes()
	if c.Channel.FlitSizeBytes() < flit.HeaderSize(len(dims)) {
		return simerr.New(simerr.ConfigurationError, "flit_size_bytes (%d) smaller than header size (%d)", c.Channel.FlitSizeBytes(), flit.HeaderSize(len(dims)))
	}
	if c.CTGIterations < 1 {
		return simerr.New(simerr.ConfigurationError, "ctg_iterations must be >= 1, got %d", c.CTGIterations)
	}
	if _, err := c.routerKind(); err != nil {
		return err
	}
	for i, fs := range c.Faults {
		if _, err := fs.kind(); err != nil {
			return simerr.Wrap(simerr.ConfigurationError, err, "faults[%d]", i)
		}
	}
	return nil
}

// routerKind parses RouterKind into the topology package's enum, defaulting
// an empty string to Plain the same way switching.NewProtocol defaults an
// empty Switching name to wormhole.
func (c Config) routerKind() (topology.RouterKind, error) {
	switch c.RouterKind {
	case "", "plain":
		return topology.Plain, nil
	case "irvine":
		return topology.IrvinePlanar, nil
	default:
		return 0, simerr.New(simerr.ConfigurationError, "router_kind must be \"plain\" or \"irvine\", got %q", c.RouterKind)
	}
}

// BuildTopology constructs the registry and topology for this
// configuration, bound to sched/tr/ph.
func (c Config) BuildTopology(sched clock.Scheduler, tr trace.Sink, ph power.Hook) (*registry.Registry, *topology.Topology, error) {
	dims, err := c.dimensionSizes()
	if err != nil {
		return nil, nil, err
	}

	clockPeriodPS := int64(1e12 / c.FrequencyHz)
	reg, err := registry.New(registry.SimConfig{
		GlobalClockPeriodPS: clockPeriodPS,
		DataFlitSpeedup:     c.DataFlitSpeedup,
		Dimensions:          len(dims),
		FlitSizeBytes:       c.Channel.FlitSizeBytes(),
		FlitsPerPacket:      c.FlitsPerPacket,
		BufferSizeFlits:     c.BufferSizeFlits,
	})
	if err != nil {
		return nil, nil, err
	}

	bandwidth := c.Channel.BandwidthBPS()
	if bandwidth <= 0 {
		// "computed as 1 flit / clock" (spec.md §6 default).
		bandwidth = float64(c.Channel.FlitSizeBytes()) * 8
	}

	kind := topology.Mesh
	if c.Torus {
		kind = topology.Torus
	}

	routingName := "xy"
	if len(dims) == 3 {
		routingName = "xyz"
	}

	routerKind, err := c.routerKind()
	if err != nil {
		return nil, nil, err
	}

	topo, err := topology.Build(topology.Config{
		Kind:             kind,
		Sizes:            dims,
		BufferPackets:    bufferPackets(c.BufferSizeFlits, c.FlitsPerPacket),
		Bandwidth:        bandwidth,
		PropagationDelay: c.Channel.PropagationDelay,
		ChannelLengthUM:  c.Channel.LengthUM,
		FullDuplex:       c.Channel.FullDuplex,
		RoutingName:      routingName,
		RouteXFirst:      c.RouteXFirst,
		SwitchingName:    c.Switching,
		RouterKind:       routerKind,
		DataFlitSpeedup:  c.DataFlitSpeedup,
	}, sched, tr, ph)
	if err != nil {
		return nil, nil, err
	}
	reg.Attach(topo)
	return reg, topo, nil
}

// bufferPackets converts a flit-count buffer size into a packet-count
// capacity, rounding down but never to zero.
func bufferPackets(bufferSizeFlits, flitsPerPacket int) int {
	if bufferSizeFlits <= 0 {
		return 0
	}
	n := bufferSizeFlits / flitsPerPacket
	if n < 1 {
		n = 1
	}
	return n
}
