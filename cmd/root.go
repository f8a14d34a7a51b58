// cmd/root.go
package cmd

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/c2h5oh/datasize"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/nocsim/nocsim/noc/clock"
	"github.com/nocsim/nocsim/noc/power"
	"github.com/nocsim/nocsim/noc/registry"
	"github.com/nocsim/nocsim/noc/rng"
	"github.com/nocsim/nocsim/noc/trace"
	sim "github.com/nocsim/nocsim/sim"
)

var (
	scenarioFile string
	ctgFile      string
	mappingFile  string

	frequencyHz          float64
	nodes                int
	hSize                int
	torus                bool
	threeD               bool
	flitSizeBytes        int
	channelBandwidthBPS  float64
	channelDelayPS       int64
	channelLengthUM      float64
	fullDuplex           bool
	flitsPerPacket       int
	dataFlitSpeedup      int
	bufferSizeFlits      int
	routeXFirst          bool
	switchingName        string
	routerKind           string
	faultSpecs           []string
	warmupCycles         int64
	simulationCycles     int64
	trafficPattern       string
	injectionProbability float64
	ctgIterations        int
	ctgPeriod            int64
	seed                 int64
	logLevel             string
	traceASCII           bool
)

var rootCmd = &cobra.Command{
	Use:   "nocsim",
	Short: "Discrete-event simulator for network-on-chip interconnects",
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a network-on-chip simulation",
	Run: func(cmd *cobra.Command, args []string) {
		level, err := logrus.ParseLevel(logLevel)
		if err != nil {
			logrus.Fatalf("Invalid log level: %s", logLevel)
		}
		logrus.SetLevel(level)

		cfg := buildConfig()
		if scenarioFile != "" {
			data, err := os.ReadFile(scenarioFile)
			if err != nil {
				logrus.Fatalf("reading scenario file: %v", err)
			}
			cfg, err = sim.LoadScenario(data)
			if err != nil {
				logrus.Fatalf("loading scenario file: %v", err)
			}
		} else if err := cfg.Validate(); err != nil {
			logrus.Fatalf("invalid configuration: %v", err)
		}

		logrus.Infof("Starting simulation: nodes=%d h_size=%d torus=%v flits_per_packet=%d pattern=%s",
			cfg.Nodes, cfg.HSize, cfg.Torus, cfg.FlitsPerPacket, cfg.TrafficPattern)

		s := sim.NewSimulator(clock.Time(cfg.WarmupCycles), clock.Time(cfg.SimulationCycles))

		var tr trace.Sink = trace.NullSink{}
		var asciiSink *trace.ASCIISink
		if traceASCII {
			asciiSink = trace.NewASCIISink(os.Stdout, func() int64 { return int64(s.Now()) })
			tr = asciiSink
		}
		ph := power.NoopHook{}

		_, topo, err := cfg.BuildTopology(s, tr, ph)
		if err != nil {
			logrus.Fatalf("building topology: %v", err)
		}
		s.BindTopology(topo)

		if err := cfg.AttachFaults(topo, s); err != nil {
			logrus.Fatalf("attaching faults: %v", err)
		}

		if ctgFile != "" {
			loader := registry.FileTaskLoader{Parse: registry.ParseApcgYAML}
			apcg, err := loader.LoadCTG(ctgFile)
			if err != nil {
				logrus.Fatalf("loading ctg file: %v", err)
			}
			mapping, err := loader.LoadMapping(mappingFile)
			if err != nil {
				logrus.Fatalf("loading mapping file: %v", err)
			}
			if err := cfg.AttachCTGTraffic(s, topo, apcg, mapping); err != nil {
				logrus.Fatalf("attaching ctg traffic: %v", err)
			}
		} else if err := cfg.AttachSynchronousTraffic(s, topo, rng.SimulationKey(seed)); err != nil {
			logrus.Fatalf("attaching traffic: %v", err)
		}

		s.Run()
		s.Metrics.Print()

		if asciiSink != nil {
			if err := asciiSink.Flush(); err != nil {
				logrus.Warnf("flushing trace: %v", err)
			}
		}

		logrus.Info("Simulation complete.")
	},
}

func buildConfig() sim.Config {
	cfg := sim.Default()
	cfg.FrequencyHz = frequencyHz
	cfg.Nodes = nodes
	cfg.HSize = hSize
	cfg.Torus = torus
	cfg.ThreeD = threeD
	cfg.Channel.FlitSize = datasize.ByteSize(flitSizeBytes)
	cfg.Channel.Bandwidth = datasize.ByteSize(channelBandwidthBPS / 8)
	cfg.Channel.PropagationDelay = clock.Time(channelDelayPS)
	cfg.Channel.LengthUM = channelLengthUM
	cfg.Channel.FullDuplex = fullDuplex
	cfg.FlitsPerPacket = flitsPerPacket
	cfg.DataFlitSpeedup = dataFlitSpeedup
	cfg.BufferSizeFlits = bufferSizeFlits
	cfg.RouteXFirst = routeXFirst
	cfg.Switching = switchingName
	cfg.RouterKind = routerKind
	faults, err := parseFaultSpecs(faultSpecs)
	if err != nil {
		logrus.Fatalf("invalid --fault flag: %v", err)
	}
	cfg.Faults = faults
	cfg.WarmupCycles = warmupCycles
	cfg.SimulationCycles = simulationCycles
	cfg.TrafficPattern = trafficPattern
	cfg.InjectionProbability = injectionProbability
	cfg.CTGIterations = ctgIterations
	cfg.CTGPeriod = clock.Time(ctgPeriod)
	cfg.LogLevel = logLevel
	return cfg
}

// parseFaultSpecs parses repeated --fault flags of the form
// "node:kind:at_time[:faulty]", e.g. "3:router:5000" or "3:node:5000:false"
// to re-heal a previously faulted node.
func parseFaultSpecs(raw []string) ([]sim.FaultSpec, error) {
	specs := make([]sim.FaultSpec, 0, len(raw))
	for _, r := range raw {
		parts := strings.Split(r, ":")
		if len(parts) < 3 || len(parts) > 4 {
			return nil, fmt.Errorf("expected node:kind:at_time[:faulty], got %q", r)
		}
		node, err := strconv.Atoi(parts[0])
		if err != nil {
			return nil, fmt.Errorf("parsing node in %q: %w", r, err)
		}
		atTime, err := strconv.ParseInt(parts[2], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parsing at_time in %q: %w", r, err)
		}
		faulty := true
		if len(parts) == 4 {
			faulty, err = strconv.ParseBool(parts[3])
			if err != nil {
				return nil, fmt.Errorf("parsing faulty in %q: %w", r, err)
			}
		}
		specs = append(specs, sim.FaultSpec{Node: node, Kind: parts[1], AtTime: atTime, Faulty: faulty})
	}
	return specs, nil
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	runCmd.Flags().StringVar(&scenarioFile, "scenario", "", "Path to a YAML scenario file; overrides all other flags")
	runCmd.Flags().StringVar(&ctgFile, "ctg_file", "", "Path to a YAML communication-task-graph file; replaces synchronous traffic when set")
	runCmd.Flags().StringVar(&mappingFile, "mapping_file", "", "Path to a YAML task-id -> node-id mapping file, required with --ctg_file")

	runCmd.Flags().Float64Var(&frequencyHz, "frequency_hz", 1e9, "Global clock frequency in Hz")
	runCmd.Flags().IntVar(&nodes, "nodes", 16, "Total number of nodes")
	runCmd.Flags().IntVar(&hSize, "h_size", 4, "Horizontal (X) dimension size for a 2D mesh/torus")
	runCmd.Flags().BoolVar(&torus, "torus", false, "Use wraparound (torus) links instead of a bounded mesh")
	runCmd.Flags().BoolVar(&threeD, "three_dimensional", false, "Build a 3D topology (nodes must be a perfect cube)")
	runCmd.Flags().IntVar(&flitSizeBytes, "flit_size_bytes", 32, "Flit size in bytes")
	runCmd.Flags().Float64Var(&channelBandwidthBPS, "channel_bandwidth_bps", 0, "Channel bandwidth in bits/sec (0 = 1 flit/clock)")
	runCmd.Flags().Int64Var(&channelDelayPS, "channel_delay_ps", 0, "Channel propagation delay in picoseconds")
	runCmd.Flags().Float64Var(&channelLengthUM, "channel_length_um", 0, "Channel length in micrometers, for power/area hooks")
	runCmd.Flags().BoolVar(&fullDuplex, "full_duplex", true, "Channels carry traffic in both directions simultaneously")
	runCmd.Flags().IntVar(&flitsPerPacket, "flits_per_packet", 9, "Flits per packet, including HEAD and TAIL")
	runCmd.Flags().IntVar(&dataFlitSpeedup, "data_flit_speedup", 1, "How many times faster BODY/TAIL flits cross a link than the HEAD")
	runCmd.Flags().IntVar(&bufferSizeFlits, "buffer_size", 9, "Input buffer capacity in flits")
	runCmd.Flags().BoolVar(&routeXFirst, "route_x_first", true, "Resolve the X dimension before Y (and Y before Z) in DOR")
	runCmd.Flags().StringVar(&switchingName, "switching", "wormhole", "Switching discipline: wormhole, saf (store-and-forward), vct (virtual-cut-through)")
	runCmd.Flags().StringVar(&routerKind, "router_kind", "plain", "Router variant: plain or irvine (split left/right-half planar router)")
	runCmd.Flags().StringArrayVar(&faultSpecs, "fault", nil, "Schedule a fault as node:kind:at_time[:faulty], e.g. 3:router:5000; repeatable")
	runCmd.Flags().Int64Var(&warmupCycles, "warmup_cycles", 1000, "Clock cycles excluded from latency statistics")
	runCmd.Flags().Int64Var(&simulationCycles, "simulation_cycles", 10000, "Total clock cycles to simulate")
	runCmd.Flags().StringVar(&trafficPattern, "traffic_pattern", "UniformRandom", "Synthetic traffic pattern")
	runCmd.Flags().Float64Var(&injectionProbability, "injection_probability", 1.0, "Per-node, per-clock packet injection probability")
	runCmd.Flags().IntVar(&ctgIterations, "ctg_iterations", 1, "Iterations to replay a loaded communication task graph")
	runCmd.Flags().Int64Var(&ctgPeriod, "ctg_period", 1000, "Clock cycles between independent-task iterations of a communication task graph")
	runCmd.Flags().Int64Var(&seed, "seed", 1, "RNG seed")
	runCmd.Flags().StringVar(&logLevel, "log", "info", "Log level (debug, info, warn, error)")
	runCmd.Flags().BoolVar(&traceASCII, "trace", false, "Emit an ASCII flit trace after the run")

	rootCmd.AddCommand(runCmd)
}
