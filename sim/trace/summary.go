package trace

// LogSummary aggregates counts from a SimulationLog.
type LogSummary struct {
	TotalRecords int
	ByKind       map[Kind]int
	ByNode       map[string]int // node name → record count
	Delivered    int
	Scrapped     int
	Rejected     int
	Failures     int
}

// Summarize computes aggregate statistics from a SimulationLog.
// Safe for nil or empty logs (returns zero-value fields).
func Summarize(sl *SimulationLog) *LogSummary {
	summary := &LogSummary{
		ByKind: make(map[Kind]int),
		ByNode: make(map[string]int),
	}
	if sl == nil {
		return summary
	}

	summary.TotalRecords = len(sl.Records)
	for _, r := range sl.Records {
		summary.ByKind[r.Kind]++
		summary.ByNode[r.Node]++
		switch r.Kind {
		case KindDeliver:
			summary.Delivered++
		case KindScrap:
			summary.Scrapped++
		case KindReject:
			summary.Rejected++
		case KindFailure:
			summary.Failures++
		}
	}

	return summary
}
