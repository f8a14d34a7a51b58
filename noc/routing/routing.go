// Package routing implements routing protocols (C5): the only component
// that rewrites a HEAD flit's header, deciding the next outbound
// direction/dimension from it.
//
// Grounded on the teacher's sim/routing.go RoutingPolicy interface and its
// NewRoutingPolicy(name) factory — the same "small interface + name-keyed
// constructor that panics on an unknown name" shape, generalized from
// picking a cluster instance to picking a dimension-ordered hop.
package routing

import (
	"fmt"

	"github.com/nocsim/nocsim/noc/flit"
	"github.com/nocsim/nocsim/noc/simerr"
)

// Decision is the outcome of one hop's routing computation.
type Decision struct {
	Eject     bool // true once every dimension's offset has reached zero
	Dimension int  // dimension to forward along, valid iff !Eject
	Back      bool // direction within that dimension, valid iff !Eject
}

// Protocol decides next outbound direction based on a HEAD's header,
// rewriting the header in place. Header rewriting is the only side effect
// a routing protocol may have (spec.md §4.4): the rewritten HEAD is the
// flit that gets enqueued downstream.
type Protocol interface {
	Route(header *flit.Header) (Decision, error)
}

// DOR implements Dimension-Order Routing (XY for 2D, XYZ for 3D):
// deterministic, oblivious, rotate through dimensions in DimensionOrder
// priority, decrementing the first dimension with a nonzero offset.
type DOR struct {
	DimensionOrder []int
}

// NewXY builds 2D dimension-order routing. xFirst=true routes the X
// dimension (index 0) before Y (index 1); false reverses the priority.
func NewXY(xFirst bool) *DOR {
	if xFirst {
		return &DOR{DimensionOrder: []int{0, 1}}
	}
	return &DOR{DimensionOrder: []int{1, 0}}
}

// NewXYZ builds 3D dimension-order routing with an explicit dimension
// priority permutation (e.g. []int{0,1,2} for X, then Y, then Z).
func NewXYZ(order []int) *DOR {
	cp := make([]int, len(order))
	copy(cp, order)
	return &DOR{DimensionOrder: cp}
}

// Route implements Protocol for DOR.
//
//	pick the first dimension d in DimensionOrder whose offset_d != 0
//	  decrement offset_d by 1
//	  choose port (direction = forward_if_sign_d_is_0_else_back, dimension = d)
//	  write back (sign_d, offset_d) -- sign preserved even if offset becomes 0
//	if all offsets are zero: return the ejection port
func (r *DOR) Route(header *flit.Header) (Decision, error) {
	for _, d := range r.DimensionOrder {
		if d < 0 || d >= len(header.DistOffset) {
			return Decision{}, simerr.New(simerr.InvariantViolation, "DOR dimension order references out-of-range dimension %d", d)
		}
		off := flit.DecodeOffset(header.DistOffset[d])
		if off.Magnitude == 0 {
			continue
		}
		newMag := off.Magnitude - 1
		if newMag < 0 {
			return Decision{}, simerr.New(simerr.InvariantViolation, "offset for dimension %d went negative after decrement", d)
		}
		if err := header.SetOffset(d, off.Back, newMag); err != nil {
			return Decision{}, err
		}
		return Decision{Dimension: d, Back: off.Back}, nil
	}
	return Decision{Eject: true}, nil
}

// Record wraps the Decision made for one HEAD. The router caches
// Decision values by head uid directly and does not use Record; a
// Decision with Eject true means "route to the ejection port".
type Record struct {
	Decision Decision
}

// NewProtocol constructs a routing Protocol by name. Valid names: "xy"
// (or ""), "xyz"; Y-first 2D routing is "xy" with xFirst false. Panics on unrecognized names, matching the
// teacher's NewRoutingPolicy/NewSwitchingProtocol-style factories.
func NewProtocol(name string, dimensions int, xFirst bool, order []int) Protocol {
	switch name {
	case "", "xy":
		if dimensions != 2 {
			panic(fmt.Sprintf("xy routing requires 2 dimensions, got %d", dimensions))
		}
		return NewXY(xFirst)
	case "xyz":
		if dimensions != 3 {
			panic(fmt.Sprintf("xyz routing requires 3 dimensions, got %d", dimensions))
		}
		if len(order) == 0 {
			order = []int{0, 1, 2}
		}
		return NewXYZ(order)
	default:
		panic(fmt.Sprintf("unknown routing protocol %q", name))
	}
}
