// Package trace provides the ordered event log of a simulation run.
// This package has no dependencies on sim/ — it stores pure data types.
// The log is the ground truth from which every KPI is derivable; the engine
// appends records and hands the log to the caller for persistence.
package trace

// Kind identifies what happened at a node.
type Kind string

const (
	KindArrival  Kind = "arrival"  // a part entered the system at a source
	KindEnqueue  Kind = "enqueue"  // a part was placed into a buffer
	KindGrant    Kind = "grant"    // a station slot was granted to a part
	KindStart    Kind = "start"    // processing began
	KindSuspend  Kind = "suspend"  // processing interrupted by a failure
	KindResume   Kind = "resume"   // processing resumed after repair
	KindComplete Kind = "complete" // processing finished
	KindScrap    Kind = "scrap"    // the part was destroyed by a scrap draw
	KindDeliver  Kind = "deliver"  // the part reached the customer sink
	KindReject   Kind = "reject"   // the part was turned away by a full buffer
	KindFailure  Kind = "failure"  // a station went down
	KindRepair   Kind = "repair"   // a station came back up
)

// Record captures a single state change.
// Failure/repair records carry empty part fields.
type Record struct {
	Time     int64  // logical clock ticks
	Node     string // station or buffer name
	Kind     Kind
	PartID   string
	PartKind string // "new" or "reman"; empty for station-only records
}
