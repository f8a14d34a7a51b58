// Package switching implements the three flow-control disciplines (C6):
// wormhole, store-and-forward (SAF) and virtual-cut-through (VCT). All
// three implement the same single-method contract, may_leave, matching the
// core spec's framing ("three policies on a single contract"); compare the
// teacher's admission.go AdmissionPolicy (Admit) / priority.go
// PriorityPolicy (Compute) for the same one-verb-interface shape.
package switching

import "github.com/nocsim/nocsim/noc/flit"

// DownstreamRoom summarizes the capacity a switching decision needs to
// know about the downstream input buffer, computed by the router from the
// target NetDevice before asking MayLeave.
type DownstreamRoom struct {
	OneFlit   bool // room for at least one more flit
	OnePacket bool // room for a full packet (MaxPackets not yet reached)
}

// Buffer is the read-only view switching protocols need of the local
// input buffer a flit is waiting in: enough to count how many flits of
// the same packet are already present.
type Buffer interface {
	Flits() []flit.Flit
}

// Protocol answers "may this flit leave an input buffer now?" — the only
// question every switching discipline exists to answer.
type Protocol interface {
	MayLeave(f flit.Flit, local Buffer, room DownstreamRoom) bool
}

// packetFlitCount returns the dimensional flit count of the packet headUID
// belongs to, found by locating its Head among the buffered flits; ok is
// false if the Head hasn't arrived in this buffer yet.
func packetFlitCount(local Buffer, headUID uint32) (count int, ok bool) {
	for _, f := range local.Flits() {
		if h, isHead := f.(*flit.Head); isHead && h.UID() == headUID {
			return h.FlitCount, true
		}
	}
	return 0, false
}

// packetFlitsPresent counts how many flits of packet headUID are currently
// buffered.
func packetFlitsPresent(local Buffer, headUID uint32) int {
	n := 0
	for _, f := range local.Flits() {
		if f.HeadUID() == headUID {
			n++
		}
	}
	return n
}

// fullyBuffered reports whether every flit of packet headUID (head, body,
// tail) has already arrived in local.
func fullyBuffered(local Buffer, headUID uint32) bool {
	count, ok := packetFlitCount(local, headUID)
	if !ok {
		return false
	}
	return packetFlitsPresent(local, headUID) >= count
}
