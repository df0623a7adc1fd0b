package trace

// SimulationLog collects event records during a run, in dispatch order.
// Records at the same timestamp appear in the order they were produced,
// which is deterministic for a fixed seed.
type SimulationLog struct {
	Records []Record
}

// NewSimulationLog creates a SimulationLog ready for recording.
func NewSimulationLog() *SimulationLog {
	return &SimulationLog{Records: make([]Record, 0)}
}

// Append adds a record to the log.
func (sl *SimulationLog) Append(r Record) {
	sl.Records = append(sl.Records, r)
}

// Len returns the number of records collected so far.
func (sl *SimulationLog) Len() int {
	return len(sl.Records)
}
