// Package rng provides deterministic, per-subsystem random number
// generation so that two runs sharing a seed and configuration produce
// bit-for-bit identical traffic.
//
// Adapted from the teacher's sim/rng.go PartitionedRNG: the derivation
// formula (master seed XOR fnv1a64(subsystem name), cached per name) is
// unchanged; "subsystem" here names a traffic source ("traffic:3") or the
// fault injector ("fault") instead of a workload/router subsystem.
package rng

import (
	"hash/fnv"
	"math/rand"
)

// SimulationKey uniquely identifies a reproducible run.
type SimulationKey int64

// Partitioned hands out one *rand.Rand per named subsystem, deterministic
// given the same SimulationKey.
type Partitioned struct {
	key        SimulationKey
	subsystems map[string]*rand.Rand
}

// New creates a Partitioned generator rooted at key.
func New(key SimulationKey) *Partitioned {
	return &Partitioned{key: key, subsystems: make(map[string]*rand.Rand)}
}

// ForSubsystem returns a deterministically-seeded *rand.Rand for name,
// caching it so repeated calls return the same instance.
func (p *Partitioned) ForSubsystem(name string) *rand.Rand {
	if r, ok := p.subsystems[name]; ok {
		return r
	}
	seed := int64(p.key) ^ fnv1a64(name)
	r := rand.New(rand.NewSource(seed))
	p.subsystems[name] = r
	return r
}

// Key returns the SimulationKey this generator was constructed from.
func (p *Partitioned) Key() SimulationKey { return p.key }

func fnv1a64(s string) int64 {
	h := fnv.New64a()
	h.Write([]byte(s))
	return int64(h.Sum64())
}
