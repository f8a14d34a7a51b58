package sim

// scheduledEvent is one entry in the event queue: a callback latched to a
// target simulated time, with an insertion sequence number used to break
// ties deterministically (spec.md §5: "ties break by insertion order,
// FIFO-at-equal-time").
type scheduledEvent struct {
	time     int64
	sequence uint64
	id       uint64
	cb       func()
	canceled bool
}

// eventQueue implements container/heap.Interface, ordered by
// (time, sequence) — the same EventQueue-as-heap.Interface shape as the
// teacher's sim/simulator.go, generalized from a single Event interface
// with a Timestamp() method to a plain callback closure, since the NoC
// core schedules opaque closures (noc/clock.Scheduler.Schedule) rather
// than typed Arrival/Step event structs.
type eventQueue []*scheduledEvent

func (eq eventQueue) Len() int { return len(eq) }

func (eq eventQueue) Less(i, j int) bool {
	if eq[i].time != eq[j].time {
		return eq[i].time < eq[j].time
	}
	return eq[i].sequence < eq[j].sequence
}

func (eq eventQueue) Swap(i, j int) { eq[i], eq[j] = eq[j], eq[i] }

func (eq *eventQueue) Push(x any) {
	*eq = append(*eq, x.(*scheduledEvent))
}

func (eq *eventQueue) Pop() any {
	old := *eq
	n := len(old)
	item := old[n-1]
	*eq = old[0 : n-1]
	return item
}
