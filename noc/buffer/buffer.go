// Package buffer implements the bounded per-port FIFO that sits between a
// channel's delivery callback and a router's switching decision.
//
// Grounded on the teacher's sim/queue.go WaitQueue: same FIFO-by-append/
// slice-reslice shape, generalized from "requests waiting for a batch" to
// "flits waiting to leave a net device".
package buffer

import "github.com/nocsim/nocsim/noc/flit"

// InputBuffer is a bounded FIFO of flits per inbound link. Capacity is
// expressed "by packets": MaxPackets bounds how many packets' worth of
// flits may sit in the buffer at once, not a raw flit count, matching the
// core spec's §4.2 "mode of 'by packets'".
type InputBuffer struct {
	queue      []flit.Flit
	MaxPackets int // 0 means unbounded (infinite-buffer scenarios, e.g. §8 scenario 2)
}

// New creates an InputBuffer with the given packet capacity.
func New(maxPackets int) *InputBuffer {
	return &InputBuffer{MaxPackets: maxPackets}
}

// packetsPresent counts distinct head_uids currently buffered — one
// in-flight packet may straddle being partially buffered (SAF) so this
// counts occupancy by packet, not by flit.
func (b *InputBuffer) packetsPresent() int {
	seen := make(map[uint32]bool, len(b.queue))
	for _, f := range b.queue {
		seen[f.HeadUID()] = true
	}
	return len(seen)
}

// HasRoomForPacket reports whether one more full packet could be enqueued
// without exceeding MaxPackets. A HEAD already represented in the buffer
// does not count against the new-packet check.
func (b *InputBuffer) HasRoomForPacket(headUID uint32) bool {
	if b.MaxPackets <= 0 {
		return true
	}
	present := b.packetsPresent()
	for _, f := range b.queue {
		if f.HeadUID() == headUID {
			return true // packet already partially admitted
		}
	}
	return present < b.MaxPackets
}

// Enqueue appends a flit to the back of the buffer. Callers (the switching
// layer, via the channel delivery callback) are responsible for checking
// HasRoomForPacket first — Enqueue itself never rejects, matching the
// spec's requirement that a flit already transmitted end-to-end is never
// dropped.
func (b *InputBuffer) Enqueue(f flit.Flit) {
	b.queue = append(b.queue, f)
}

// Peek returns the front flit without removing it, or nil if empty.
func (b *InputBuffer) Peek() flit.Flit {
	if len(b.queue) == 0 {
		return nil
	}
	return b.queue[0]
}

// Dequeue removes and returns the front flit. Returns nil if empty.
func (b *InputBuffer) Dequeue() flit.Flit {
	if len(b.queue) == 0 {
		return nil
	}
	f := b.queue[0]
	b.queue = b.queue[1:]
	return f
}

// Len reports the number of flits currently buffered.
func (b *InputBuffer) Len() int {
	return len(b.queue)
}

// Flits exposes the buffered flits in FIFO order, for switching policies
// (e.g. store-and-forward) that must inspect the whole buffer without
// consuming it.
func (b *InputBuffer) Flits() []flit.Flit {
	return b.queue
}
