package sim

import (
	"github.com/nocsim/nocsim/noc/clock"
	"github.com/nocsim/nocsim/noc/fault"
	"github.com/nocsim/nocsim/noc/simerr"
	"github.com/nocsim/nocsim/noc/topology"
)

// FaultSpec is one set_faulty(target, kind, at_time) call (spec.md §4.6),
// loadable from a scenario file or a --fault CLI flag.
type FaultSpec struct {
	Node   int    `yaml:"node"`
	Kind   string `yaml:"kind"` // "node" or "router"
	Faulty bool   `yaml:"faulty"`
	AtTime int64  `yaml:"at_time"`
}

func (fs FaultSpec) kind() (fault.Kind, error) {
	switch fs.Kind {
	case "", "node":
		return fault.Node, nil
	case "router":
		return fault.Router, nil
	default:
		return 0, simerr.New(simerr.ConfigurationError, "fault kind must be \"node\" or \"router\", got %q", fs.Kind)
	}
}

func (fs FaultSpec) target(topo *topology.Topology) (fault.Faulty, error) {
	if fs.Node < 0 || fs.Node >= len(topo.Nodes) {
		return nil, simerr.New(simerr.ConfigurationError, "fault targets out-of-range node %d", fs.Node)
	}
	node := topo.Nodes[fs.Node]
	k, err := fs.kind()
	if err != nil {
		return nil, err
	}
	if k == fault.Router {
		return node.Router, nil
	}
	return node, nil
}

// AttachFaults schedules every configured fault against topo via a
// fault.Injector bound to sched, the same "build once from Config, drive
// the rest of the run through callbacks" shape AttachCTGTraffic and
// AttachSynchronousTraffic use.
func (c Config) AttachFaults(topo *topology.Topology, sched clock.Scheduler) error {
	if len(c.Faults) == 0 {
		return nil
	}
	injector := fault.NewInjector(sched)
	for i, fs := range c.Faults {
		target, err := fs.target(topo)
		if err != nil {
			return simerr.Wrap(simerr.ConfigurationError, err, "faults[%d]", i)
		}
		k, err := fs.kind()
		if err != nil {
			return simerr.Wrap(simerr.ConfigurationError, err, "faults[%d]", i)
		}
		injector.ScheduleFault(target, k, fs.Faulty, clock.Time(fs.AtTime))
	}
	return nil
}
