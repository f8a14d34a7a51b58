package buffer

import (
	"testing"

	"github.com/nocsim/nocsim/noc/flit"
)

func TestEnqueueDequeueFIFO(t *testing.T) {
	b := New(0)
	h := flit.NewHead(32, flit.NewHeader(2), 2, 0, -1)
	tl := flit.NewTail(h.UID(), 32, 0, -1)

	b.Enqueue(h)
	b.Enqueue(tl)

	if b.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", b.Len())
	}
	if got := b.Dequeue(); got != flit.Flit(h) {
		t.Fatal("Dequeue must return flits in FIFO order")
	}
	if got := b.Dequeue(); got != flit.Flit(tl) {
		t.Fatal("Dequeue must return flits in FIFO order")
	}
	if b.Dequeue() != nil {
		t.Fatal("Dequeue on an empty buffer must return nil")
	}
}

func TestHasRoomForPacketRespectsCapacity(t *testing.T) {
	b := New(1)
	h1 := flit.NewHead(32, flit.NewHeader(2), 2, 0, -1)
	h2 := flit.NewHead(32, flit.NewHeader(2), 2, 0, -1)

	if !b.HasRoomForPacket(h1.UID()) {
		t.Fatal("empty buffer with capacity 1 should have room for a new packet")
	}
	b.Enqueue(h1)
	if !b.HasRoomForPacket(h1.UID()) {
		t.Fatal("a packet already partially admitted should report room for itself")
	}
	if b.HasRoomForPacket(h2.UID()) {
		t.Fatal("a second distinct packet must not fit once capacity is reached")
	}
}

func TestUnboundedBufferAlwaysHasRoom(t *testing.T) {
	b := New(0)
	for i := 0; i < 50; i++ {
		h := flit.NewHead(32, flit.NewHeader(2), 2, 0, -1)
		if !b.HasRoomForPacket(h.UID()) {
			t.Fatalf("unbounded buffer denied room at packet %d", i)
		}
		b.Enqueue(h)
	}
}
