// Defines the Part struct that models an individual unit moving through the
// factory. Tracks identity, kind (new vs reman), location, and cost-so-far.

package sim

import (
	"fmt"
)

// PartKind distinguishes newly sourced units from remanufactured ones.
type PartKind string

const (
	KindNew   PartKind = "new"
	KindReman PartKind = "reman"
)

// PartState represents the lifecycle state of a part.
type PartState string

const (
	PartQueued     PartState = "queued"     // waiting in a buffer
	PartGranted    PartState = "granted"    // holds a station slot, waiting for workers
	PartProcessing PartState = "processing" // processing duration elapsing
	PartSuspended  PartState = "suspended"  // processing interrupted by a station failure
	PartBlocked    PartState = "blocked"    // completed, waiting for downstream buffer space
	PartDelivered  PartState = "delivered"  // reached the customer sink
	PartScrapped   PartState = "scrapped"   // destroyed by a scrap draw or overflow rejection
)

// Part models a single unit's lifecycle in the simulation.
// A part is owned by exactly one buffer or one station at any instant;
// ownership transfers atomically inside event dispatch.
type Part struct {
	ID   string   // Unique identifier, e.g. "NEW-00042" or "RET-00007"
	Kind PartKind // new or reman

	State     PartState
	CreatedAt int64  // Tick when the part entered the system
	Location  string // Name of the buffer or station currently holding the part

	// SourceReturnID links a reman part back to the return arrival that
	// produced it. Empty for new parts.
	SourceReturnID string

	// CostSoFar accumulates the debits posted for this part (material,
	// energy, air, labor). Informational; the Ledger is authoritative.
	CostSoFar float64
}

// String returns a human-readable representation of a Part.
func (p Part) String() string {
	return fmt.Sprintf("Part(ID: %s, Kind: %s, State: %s, At: %s)", p.ID, p.Kind, p.State, p.Location)
}
