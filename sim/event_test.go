package sim

import (
	"container/heap"
	"testing"
)

func TestEventQueueOrdersByTimeThenSequence(t *testing.T) {
	eq := &eventQueue{}
	heap.Init(eq)

	heap.Push(eq, &scheduledEvent{time: 5, sequence: 0, id: 1})
	heap.Push(eq, &scheduledEvent{time: 1, sequence: 1, id: 2})
	heap.Push(eq, &scheduledEvent{time: 1, sequence: 2, id: 3})
	heap.Push(eq, &scheduledEvent{time: 3, sequence: 3, id: 4})

	var order []uint64
	for eq.Len() > 0 {
		ev := heap.Pop(eq).(*scheduledEvent)
		order = append(order, ev.id)
	}

	want := []uint64{2, 3, 4, 1}
	if len(order) != len(want) {
		t.Fatalf("got %d events, want %d", len(order), len(want))
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("pop order = %v, want %v", order, want)
		}
	}
}
