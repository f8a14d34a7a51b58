// Package topology implements the Node (C8) and the topology builder (C9):
// it instantiates nodes, routers, net devices and channels for 2D/3D mesh
// or torus topologies and wires them together, computing the relative
// per-dimension offsets between nodes that flit headers encode.
package topology

import (
	"fmt"

	"github.com/nocsim/nocsim/noc/clock"
	"github.com/nocsim/nocsim/noc/device"
	"github.com/nocsim/nocsim/noc/flit"
	"github.com/nocsim/nocsim/noc/power"
	"github.com/nocsim/nocsim/noc/router"
	"github.com/nocsim/nocsim/noc/routing"
	"github.com/nocsim/nocsim/noc/simerr"
	"github.com/nocsim/nocsim/noc/switching"
	"github.com/nocsim/nocsim/noc/trace"
)

// Kind names the topology shape.
type Kind int

const (
	Mesh Kind = iota
	Torus
)

// RouterKind selects which router.Stepper implementation Build wires into
// each node.
type RouterKind int

const (
	// Plain is the teacher's one-piece router.Router (spec.md §4.3 default).
	Plain RouterKind = iota
	// IrvinePlanar is the split left/right-half planar router variant
	// (spec.md §4.3, supplemented from original_source's irvine-router.cc).
	IrvinePlanar
)

// Config groups topology-wide construction parameters, the same
// "grouped config struct per component" shape the teacher uses for
// KVCacheConfig/BatchConfig (sim/config.go).
type Config struct {
	Kind             Kind
	Sizes            []int // size per dimension; len(Sizes) is the dimension count (2 or 3)
	BufferPackets    int   // input-buffer capacity, 0 = unbounded
	Bandwidth        float64
	PropagationDelay clock.Time
	ChannelLengthUM  float64
	FullDuplex       bool
	RoutingName      string // "xy" (2D) or "xyz" (3D)
	RouteXFirst      bool
	DimensionOrder   []int // explicit 3D priority, optional
	SwitchingName    string
	RouterKind       RouterKind
	DataFlitSpeedup  int // clocks-per-BODY/TAIL-flit divisor; 0 behaves as 1
}

// Node is a container for one router plus the local traffic source
// (wired externally by noc/traffic; Node only exposes the injection
// surface and identity traffic sources need).
type Node struct {
	ID     int
	Coord  []int
	Router router.Stepper

	faulty bool
}

// SetFaulty implements fault.Faulty.
func (n *Node) SetFaulty(v bool) { n.faulty = v }

// IsFaulty implements fault.Faulty.
func (n *Node) IsFaulty() bool { return n.faulty }

// Inject hands f to the node's router injection port, encoding no
// header rewriting itself — callers (traffic sources) build the header via
// Topology.RelativeOffsets before calling this.
func (n *Node) Inject(f flit.Flit) error {
	if n.faulty {
		return simerr.New(simerr.ComponentFaulty, "node %d is faulty", n.ID)
	}
	return n.Router.Inject(f)
}

// Topology is the built mesh/torus: nodes plus the wiring between them.
type Topology struct {
	Kind       Kind
	Sizes      []int
	Dimensions int
	Nodes      []*Node

	nodeIndex map[string]*Node // coordinate key -> node, for neighbor lookup during build
}

// Dims returns the dimension count (2 for 2D, 3 for 3D).
func (t *Topology) Dims() int { return t.Dimensions }

// NodeAt returns the node at linear index i.
func (t *Topology) NodeAt(i int) *Node { return t.Nodes[i] }

// coordKey renders a coordinate vector as a map key.
func coordKey(coord []int) string {
	return fmt.Sprint(coord)
}

// linearToCoord converts a linear node index into a mixed-radix
// coordinate vector over Sizes (row-major: the last dimension varies
// fastest).
func linearToCoord(index int, sizes []int) []int {
	coord := make([]int, len(sizes))
	for d := len(sizes) - 1; d >= 0; d-- {
		coord[d] = index % sizes[d]
		index /= sizes[d]
	}
	return coord
}

// Build constructs a Topology from cfg, instantiating one router per node
// (each with its own routing/switching protocol instances — switching
// state like VCT's blocked set is per router, not shared) and wiring
// channels between neighbors along every dimension.
func Build(cfg Config, sched clock.Scheduler, tr trace.Sink, ph power.Hook) (*Topology, error) {
	dims := len(cfg.Sizes)
	if dims != 2 && dims != 3 {
		return nil, simerr.New(simerr.ConfigurationError, "topology requires 2 or 3 dimensions, got %d", dims)
	}
	for d, sz := range cfg.Sizes {
		if sz <= 0 {
			return nil, simerr.New(simerr.ConfigurationError, "dimension %d size must be positive, got %d", d, sz)
		}
	}
	total := 1
	for _, sz := range cfg.Sizes {
		total *= sz
	}

	routingName := cfg.RoutingName
	if routingName == "" {
		if dims == 2 {
			routingName = "xy"
		} else {
			routingName = "xyz"
		}
	}

	t := &Topology{
		Kind:       cfg.Kind,
		Sizes:      append([]int(nil), cfg.Sizes...),
		Dimensions: dims,
		nodeIndex:  make(map[string]*Node, total),
	}

	address := 0
	nextAddress := func() int { address++; return address - 1 }

	for i := 0; i < total; i++ {
		coord := linearToCoord(i, cfg.Sizes)
		rt := routing.NewProtocol(routingName, dims, cfg.RouteXFirst, cfg.DimensionOrder)
		sw := switching.NewProtocol(cfg.SwitchingName)

		var rtr router.Stepper
		switch cfg.RouterKind {
		case IrvinePlanar:
			rtr = buildIrvineNode(fmt.Sprintf("%d", i), rt, sw, sched, tr, ph, dims, cfg, nextAddress)
		default:
			rtr = buildPlainNode(fmt.Sprintf("%d", i), rt, sw, sched, tr, ph, dims, cfg, nextAddress)
		}
		rtr.SetDataFlitSpeedup(cfg.DataFlitSpeedup)

		node := &Node{ID: i, Coord: coord, Router: rtr}
		t.Nodes = append(t.Nodes, node)
		t.nodeIndex[coordKey(coord)] = node
	}

	isTorus := cfg.Kind == Torus
	wired := make(map[string]bool)
	for _, n := range t.Nodes {
		for d := 0; d < dims; d++ {
			neighborCoord := append([]int(nil), n.Coord...)
			neighborCoord[d]++
			if isTorus {
				neighborCoord[d] %= cfg.Sizes[d]
			} else if neighborCoord[d] >= cfg.Sizes[d] {
				continue // no neighbor past the mesh edge
			}
			neighbor, ok := t.nodeIndex[coordKey(neighborCoord)]
			if !ok {
				continue
			}
			key := fmt.Sprintf("%d-%d-%d", n.ID, neighbor.ID, d)
			revKey := fmt.Sprintf("%d-%d-%d", neighbor.ID, n.ID, d)
			if wired[key] || wired[revKey] {
				continue
			}
			wired[key] = true

			fwdDev, err := n.Router.PortFor(device.FORWARD, d)
			if err != nil {
				return nil, err
			}
			backDev, err := neighbor.Router.PortFor(device.BACK, d)
			if err != nil {
				return nil, err
			}
			device.NewChannel(fwdDev, backDev, cfg.Bandwidth, cfg.PropagationDelay, cfg.ChannelLengthUM, cfg.FullDuplex, sched, tr)
		}
	}

	return t, nil
}

// buildPlainNode wires one node's one-piece router.Router: an injection and
// ejection virtual port plus a FORWARD/BACK pair per dimension.
func buildPlainNode(id string, rt routing.Protocol, sw switching.Protocol, sched clock.Scheduler, tr trace.Sink, ph power.Hook, dims int, cfg Config, nextAddress func() int) *router.Router {
	rtr := router.New(id, rt, sw, sched, tr, ph)

	injection := device.NewNetDevice(nextAddress(), device.Local, -1, cfg.BufferPackets)
	ejection := device.NewNetDevice(nextAddress(), device.Local, -1, 0)
	rtr.SetInjection(injection)
	rtr.SetEjection(ejection)

	for d := 0; d < dims; d++ {
		fwd := device.NewNetDevice(nextAddress(), device.FORWARD, d, cfg.BufferPackets)
		back := device.NewNetDevice(nextAddress(), device.BACK, d, cfg.BufferPackets)
		fwd.OnArrival = rtr.NotifyArrival
		back.OnArrival = rtr.NotifyArrival
		rtr.AddPort(fwd)
		rtr.AddPort(back)
	}
	return rtr
}

// buildIrvineNode wires one node's planar Irvine router: two injection
// ports (one per half, per spec.md §4.3's west/east split), dimension 0's
// BACK port exclusive to the left half and FORWARD port exclusive to the
// right half, and every higher dimension's ports shared by both halves.
func buildIrvineNode(id string, rt routing.Protocol, sw switching.Protocol, sched clock.Scheduler, tr trace.Sink, ph power.Hook, dims int, cfg Config, nextAddress func() int) *router.Irvine {
	irv := router.NewIrvine(id, rt, sw, sched, tr, ph)

	leftInjection := device.NewNetDevice(nextAddress(), device.Local, -1, cfg.BufferPackets)
	rightInjection := device.NewNetDevice(nextAddress(), device.Local, -1, cfg.BufferPackets)
	irv.SetLeftInjection(leftInjection)
	irv.SetRightInjection(rightInjection)

	for d := 0; d < dims; d++ {
		fwd := device.NewNetDevice(nextAddress(), device.FORWARD, d, cfg.BufferPackets)
		back := device.NewNetDevice(nextAddress(), device.BACK, d, cfg.BufferPackets)
		fwd.OnArrival = irv.NotifyArrival
		back.OnArrival = irv.NotifyArrival
		if d == 0 {
			irv.AddEastPort(fwd)
			irv.AddWestPort(back)
			continue
		}
		irv.AddSharedPort(fwd)
		irv.AddSharedPort(back)
	}
	return irv
}

// RelativeOffsets builds the per-dimension (back, magnitude) pairs a HEAD
// travelling from src to dst must encode, honoring torus wrap-around
// minimization (see RelativeOffset).
func (t *Topology) RelativeOffsets(src, dst *Node) []struct {
	Back      bool
	Magnitude int
} {
	out := make([]struct {
		Back      bool
		Magnitude int
	}, t.Dimensions)
	for d := 0; d < t.Dimensions; d++ {
		back, mag := RelativeOffset(src.Coord[d], dst.Coord[d], t.Sizes[d], t.Kind == Torus)
		out[d] = struct {
			Back      bool
			Magnitude int
		}{back, mag}
	}
	return out
}

// HeaderSize returns this topology's HEADER_SIZE (2×dimensions).
func (t *Topology) HeaderSize() int {
	return flit.HeaderSize(t.Dimensions)
}
