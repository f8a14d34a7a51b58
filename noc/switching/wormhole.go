package switching

import "github.com/nocsim/nocsim/noc/flit"

// Wormhole always allows a buffered flit to leave as soon as the
// downstream input buffer has room for at least one more flit.
// Backpressure is applied by the downstream router refusing to dequeue
// (which keeps the upstream buffer full) rather than by this policy
// gating on packet-level state — wormhole itself carries no per-packet
// bookkeeping.
type Wormhole struct{}

// NewWormhole constructs a stateless Wormhole switching protocol.
func NewWormhole() *Wormhole { return &Wormhole{} }

func (Wormhole) MayLeave(_ flit.Flit, _ Buffer, room DownstreamRoom) bool {
	return room.OneFlit
}
