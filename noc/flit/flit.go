// Package flit implements the atomic transfer unit of the NoC core: the
// flow-control unit (flit) and the small header a HEAD flit carries.
//
// Flit is modeled as a tagged variant (Head | Body | Tail) rather than a
// single struct with an optional header field, per the design note in the
// core spec: this makes "a BODY flit has no header" unrepresentable as a
// runtime bug instead of a convention callers must remember to honor.
package flit

import (
	"crypto/sha1"
	"encoding/binary"

	"github.com/google/uuid"
)

// Type is the framing role of a flit within its packet.
type Type int

const (
	UNKNOWN Type = iota
	HEAD
	BODY
	TAIL
)

func (t Type) String() string {
	switch t {
	case HEAD:
		return "HEAD"
	case BODY:
		return "BODY"
	case TAIL:
		return "TAIL"
	default:
		return "UNKNOWN"
	}
}

// Meta is carried by every flit regardless of framing role.
type Meta struct {
	InjectionTime int64 // tick the flit was injected at its source
	ReceiveTime   int64 // tick the flit was consumed at the ejection port; 0 until then
	Blocked       bool  // set by virtual-cut-through once a HEAD has blocked (see switching package)
	CTGIteration  int   // CTG iteration this flit belongs to; -1 for synchronous-generator traffic
}

// Flit is satisfied by *Head, *Body and *Tail. Callers type-switch on Type()
// (or a Go type switch on the concrete pointer) to reach role-specific
// fields — only *Head carries a Header.
type Flit interface {
	Type() Type
	UID() uint32
	HeadUID() uint32
	SizeBytes() int
	Meta() *Meta
}

// Head is the first flit of a packet; it is the only flit carrying a
// Header, and the only one that causes a routing decision to be computed.
type Head struct {
	uid        uint32
	sizeBytes  int
	Header     Header
	FlitCount  int // total flits in this packet, head included
	meta       Meta
}

func (h *Head) Type() Type      { return HEAD }
func (h *Head) UID() uint32     { return h.uid }
func (h *Head) HeadUID() uint32 { return h.uid }
func (h *Head) SizeBytes() int  { return h.sizeBytes }
func (h *Head) Meta() *Meta     { return &h.meta }

// Body is an interior flit; it carries no header and is routed using the
// RouteRecord cached from its packet's Head.
type Body struct {
	headUID   uint32
	sizeBytes int
	meta      Meta
}

func (b *Body) Type() Type      { return BODY }
func (b *Body) UID() uint32     { return b.headUID }
func (b *Body) HeadUID() uint32 { return b.headUID }
func (b *Body) SizeBytes() int  { return b.sizeBytes }
func (b *Body) Meta() *Meta     { return &b.meta }

// Tail is the last flit of a packet; on arrival at the destination its
// HeadUID must match a previously observed Head's UID.
type Tail struct {
	headUID   uint32
	sizeBytes int
	meta      Meta
}

func (t *Tail) Type() Type      { return TAIL }
func (t *Tail) UID() uint32     { return t.headUID }
func (t *Tail) HeadUID() uint32 { return t.headUID }
func (t *Tail) SizeBytes() int  { return t.sizeBytes }
func (t *Tail) Meta() *Meta     { return &t.meta }

// NewUID generates a globally unique 32-bit flit id. It is backed by
// google/uuid rather than a hand-rolled shared counter: uuid.New() draws
// from a process-wide CSPRNG-seeded generator with no mutable state this
// package needs to own, and the 32-bit id the data model mandates is
// derived by hashing the UUID down instead of truncating it (truncation
// would throw away entropy non-uniformly across the id space).
func NewUID() uint32 {
	id := uuid.New()
	sum := sha1.Sum(id[:])
	return binary.BigEndian.Uint32(sum[:4])
}

// NewHead constructs a Head flit. It does not check sizeBytes against the
// per-topology HEADER_SIZE (2×dimensions); the traffic generators and
// sim.Config.Validate reject flit sizes below it.
func NewHead(sizeBytes int, header Header, flitCount int, injectionTime int64, ctgIteration int) *Head {
	return &Head{
		uid:       NewUID(),
		sizeBytes: sizeBytes,
		Header:    header,
		FlitCount: flitCount,
		meta: Meta{
			InjectionTime: injectionTime,
			CTGIteration:  ctgIteration,
		},
	}
}

// NewBody constructs a Body flit linked to headUID.
func NewBody(headUID uint32, sizeBytes int, injectionTime int64, ctgIteration int) *Body {
	return &Body{
		headUID:   headUID,
		sizeBytes: sizeBytes,
		meta: Meta{
			InjectionTime: injectionTime,
			CTGIteration:  ctgIteration,
		},
	}
}

// NewTail constructs a Tail flit linked to headUID.
func NewTail(headUID uint32, sizeBytes int, injectionTime int64, ctgIteration int) *Tail {
	return &Tail{
		headUID:   headUID,
		sizeBytes: sizeBytes,
		meta: Meta{
			InjectionTime: injectionTime,
			CTGIteration:  ctgIteration,
		},
	}
}
