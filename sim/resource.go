package sim

import (
	"fmt"
	"sort"
)

// Priority tiers for resource requests. Lower value wins. The reman tier is
// used only at the station that prefers reman-sourced parts; everywhere else
// all requests share TierNormal and the pool degenerates to plain FIFO.
const (
	TierReman  = 0
	TierNormal = 1
)

// waiter is a pending resource request.
type waiter struct {
	tier  int
	seq   uint64 // global arrival order, FIFO within a tier
	units int
	grant func(now int64)
}

// ResourcePool models a finite-capacity shared resource: a station's machine
// slots or the shared worker pool. Grants are handed out in strict
// (tier, arrival-order) order — the two-tier key is evaluated uniformly here
// rather than scattered through station logic. No starvation guarantee is
// made beyond strict priority + FIFO within a tier: a station can see
// indefinite new-part wait under continuous reman pressure, which the KPIs
// surface rather than hide.
//
// A drained pool (station downtime) grants nothing until restored; held
// units stay held and requests queue up.
type ResourcePool struct {
	Name     string
	Capacity int

	inUse   int
	drained bool
	seq     uint64
	waiters []waiter // sorted by (tier, seq)
}

// NewResourcePool creates a pool with the given capacity.
func NewResourcePool(name string, capacity int) *ResourcePool {
	return &ResourcePool{Name: name, Capacity: capacity}
}

// InUse returns the number of units currently granted.
func (p *ResourcePool) InUse() int {
	return p.inUse
}

// Waiting returns the number of queued requests.
func (p *ResourcePool) Waiting() int {
	return len(p.waiters)
}

// Drained reports whether the pool is currently drained by downtime.
func (p *ResourcePool) Drained() bool {
	return p.drained
}

// Request asks for units of capacity. The grant callback runs synchronously,
// either immediately (free capacity, nothing queued ahead) or later when a
// release or restore makes room. Requests never time out; the bounded run
// horizon is the only cancellation mechanism.
func (p *ResourcePool) Request(now int64, units int, tier int, grant func(now int64)) {
	if units <= 0 || units > p.Capacity {
		panic(fmt.Sprintf("ResourcePool %s: request for %d units with capacity %d", p.Name, units, p.Capacity))
	}
	w := waiter{tier: tier, seq: p.seq, units: units, grant: grant}
	p.seq++
	// Insert after every waiter with tier <= w.tier: FIFO within a tier,
	// reman ahead of normal.
	idx := sort.Search(len(p.waiters), func(i int) bool {
		return p.waiters[i].tier > w.tier
	})
	p.waiters = append(p.waiters, waiter{})
	copy(p.waiters[idx+1:], p.waiters[idx:])
	p.waiters[idx] = w
	p.dispatch(now)
}

// Release frees units and immediately offers them to the best waiter.
// Releasing units that were never granted is an engine bug and panics.
func (p *ResourcePool) Release(now int64, units int) {
	if units > p.inUse {
		panic(fmt.Sprintf("ResourcePool %s: release of %d units with only %d in use", p.Name, units, p.inUse))
	}
	p.inUse -= units
	p.dispatch(now)
}

// Drain forces effective capacity to zero for a downtime interval. Units
// already granted remain accounted; the owning station suspends its jobs.
func (p *ResourcePool) Drain() {
	p.drained = true
}

// Restore ends a downtime interval and re-offers free capacity.
func (p *ResourcePool) Restore(now int64) {
	p.drained = false
	p.dispatch(now)
}

// dispatch grants from the head of the wait queue while capacity allows.
// Head-of-line blocking is intentional: a large request at the head is not
// bypassed by smaller later ones.
func (p *ResourcePool) dispatch(now int64) {
	for !p.drained && len(p.waiters) > 0 && p.waiters[0].units <= p.Capacity-p.inUse {
		w := p.waiters[0]
		p.waiters = p.waiters[1:]
		p.inUse += w.units
		w.grant(now)
	}
}
