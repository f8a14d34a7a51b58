package switching

import "github.com/nocsim/nocsim/noc/flit"

// VirtualCutThrough behaves like wormhole but with a pre-condition: a HEAD
// may only begin transmission into a downstream port if that port's input
// buffer has free capacity for one full packet. If not, the HEAD is
// marked blocked and the packet behaves like store-and-forward until the
// whole packet is locally buffered, at which point it is released as one
// unit and the block clears; subsequent flits resume ordinary cut-through.
//
// blocked is maintained per flit uid, scoped to one Router (one
// VirtualCutThrough instance per router, not per port) — exactly the
// "switching state... maintained in the switching module only" the data
// model describes.
type VirtualCutThrough struct {
	blocked map[uint32]bool
}

// NewVirtualCutThrough constructs a VCT switching protocol with empty
// blocked-set state.
func NewVirtualCutThrough() *VirtualCutThrough {
	return &VirtualCutThrough{blocked: make(map[uint32]bool)}
}

func (v *VirtualCutThrough) MayLeave(f flit.Flit, local Buffer, room DownstreamRoom) bool {
	headUID := f.HeadUID()

	if f.Type() == flit.HEAD && !v.blocked[headUID] {
		if room.OnePacket {
			return true
		}
		v.blocked[headUID] = true
		f.Meta().Blocked = true
	}

	if v.blocked[headUID] {
		if room.OnePacket && fullyBuffered(local, headUID) {
			v.blocked[headUID] = false
			return true
		}
		return false
	}

	// Not (or no longer) blocked: ordinary cut-through, flit by flit.
	return room.OneFlit
}
