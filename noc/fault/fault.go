// Package fault implements the fault injector (C12). It knows nothing
// about routers, devices, channels or nodes beyond the two-method Faulty
// interface they each satisfy structurally — this keeps the dependency
// graph a one-way street (fault -> clock only) the same way the core
// spec's "non-owning back-reference" design note keeps router/device/
// channel acyclic.
package fault

import "github.com/nocsim/nocsim/noc/clock"

// Faulty is satisfied by any component the injector can target: node,
// router, net device (port), or channel.
type Faulty interface {
	SetFaulty(bool)
	IsFaulty() bool
}

// Kind names the component category a fault targets. ScheduleFault accepts
// it but does not use it: the mechanism (flip a bool via a zero-cost
// scheduled event) is identical across kinds.
type Kind int

const (
	Node Kind = iota
	Router
	Port
	Channel
)

func (k Kind) String() string {
	switch k {
	case Node:
		return "node"
	case Router:
		return "router"
	case Port:
		return "port"
	case Channel:
		return "channel"
	default:
		return "unknown"
	}
}

// Injector schedules faults at simulated times. A faulty component refuses
// all routing/forwarding operations with ComponentFaulty, leaves any flits
// already buffered strictly in place, and never propagates its faulty
// flag to neighbors — neighbors simply cannot send to it (enforced in
// noc/device.Channel.deliver and noc/router.Router.Manage).
type Injector struct {
	sched clock.Scheduler
}

// NewInjector binds an Injector to a scheduler.
func NewInjector(sched clock.Scheduler) *Injector {
	return &Injector{sched: sched}
}

// SetFaulty marks target faulty (or not) immediately.
func (inj *Injector) SetFaulty(target Faulty, faulty bool) {
	target.SetFaulty(faulty)
}

// ScheduleFault marks target faulty (or not) at atTime via a zero-cost
// scheduled event, relative to the scheduler's current clock.
func (inj *Injector) ScheduleFault(target Faulty, kind Kind, faulty bool, atTime clock.Time) {
	delay := atTime - inj.sched.Now()
	if delay < 0 {
		delay = 0
	}
	inj.sched.Schedule(delay, func() {
		target.SetFaulty(faulty)
	})
}
