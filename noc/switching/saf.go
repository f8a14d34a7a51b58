package switching

import "github.com/nocsim/nocsim/noc/flit"

// StoreAndForward holds a HEAD (and, by FIFO order, the rest of its
// packet) until every BODY+TAIL flit has arrived in the same input
// buffer; only then does the whole packet become eligible to leave,
// together, in FIFO order.
//
// State lives implicitly in the buffer's own contents (packetFlitCount /
// packetFlitsPresent), not in a separate per-head-uid counter: scanning
// the buffer for "how many flits of this head uid are present" is
// equivalent to the decrementing-counter described in the core spec,
// without this protocol needing to observe individual enqueue events.
type StoreAndForward struct{}

// NewStoreAndForward constructs a stateless SAF switching protocol.
func NewStoreAndForward() *StoreAndForward { return &StoreAndForward{} }

func (StoreAndForward) MayLeave(f flit.Flit, local Buffer, room DownstreamRoom) bool {
	if !room.OnePacket {
		return false
	}
	if f.Type() != flit.HEAD {
		if _, headHere := packetFlitCount(local, f.HeadUID()); !headHere {
			// The HEAD has already left with its whole packet buffered; the
			// rest of the packet follows it.
			return true
		}
	}
	return fullyBuffered(local, f.HeadUID())
}
