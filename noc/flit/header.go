package flit

import "github.com/nocsim/nocsim/noc/simerr"

// Offset is a decoded per-dimension header byte: a sign and a 7-bit
// magnitude. Back == true means the negative/backward direction.
type Offset struct {
	Back      bool
	Magnitude int
}

// Header encodes, per dimension, the packet's remaining relative distance
// to its destination (DistOffset) and the coordinates its source injected
// from (SourceCoord). Both fields are exactly HeaderSize(dimensions)/2
// bytes long (one byte per dimension).
//
// A zero DistOffset byte ("magnitude 0") means "arrived in this dimension";
// when every DistOffset byte is zero the flit is due for ejection.
type Header struct {
	DistOffset  []byte
	SourceCoord []byte
}

// HeaderSize returns HEADER_SIZE for a topology with the given dimension
// count: 4 bytes for 2D, 6 bytes for 3D, 2×dimensions in general.
func HeaderSize(dimensions int) int {
	return 2 * dimensions
}

// EncodeOffset packs a sign/magnitude pair into a single header byte. The
// high bit is the sign (1 = back/negative); the low 7 bits are the
// magnitude, which must fit in [0,127].
func EncodeOffset(back bool, magnitude int) (byte, error) {
	if magnitude < 0 || magnitude > 0x7f {
		return 0, simerr.New(simerr.InvariantViolation, "header offset magnitude %d out of range [0,127]", magnitude)
	}
	b := byte(magnitude)
	if back {
		b |= 0x80
	}
	return b, nil
}

// DecodeOffset unpacks a header byte into its sign/magnitude pair.
func DecodeOffset(b byte) Offset {
	return Offset{
		Back:      b&0x80 != 0,
		Magnitude: int(b & 0x7f),
	}
}

// Offsets decodes every DistOffset byte into the per-dimension Offset view
// routing protocols operate on.
func (h Header) Offsets() []Offset {
	out := make([]Offset, len(h.DistOffset))
	for i, b := range h.DistOffset {
		out[i] = DecodeOffset(b)
	}
	return out
}

// SetOffset rewrites dimension d's DistOffset byte. Routing protocols call
// this once per hop; it is the only side effect a routing decision has on
// the flit that gets forwarded downstream.
func (h *Header) SetOffset(d int, back bool, magnitude int) error {
	b, err := EncodeOffset(back, magnitude)
	if err != nil {
		return err
	}
	h.DistOffset[d] = b
	return nil
}

// Arrived reports whether every dimension's offset has reached zero,
// meaning the packet is due for ejection at the current router.
func (h Header) Arrived() bool {
	for _, b := range h.DistOffset {
		if b&0x7f != 0 {
			return false
		}
	}
	return true
}

// AbsSum returns the sum of the absolute-value offsets across all
// dimensions. The core's hop-invariant property (§8) requires this to
// strictly decrease by exactly one on every hop.
func (h Header) AbsSum() int {
	sum := 0
	for _, b := range h.DistOffset {
		sum += int(b & 0x7f)
	}
	return sum
}

// NewHeader allocates a Header with DistOffset/SourceCoord sized for the
// given dimension count, all bytes zeroed.
func NewHeader(dimensions int) Header {
	return Header{
		DistOffset:  make([]byte, dimensions),
		SourceCoord: make([]byte, dimensions),
	}
}
