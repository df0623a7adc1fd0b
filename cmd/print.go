package cmd

import (
	"fmt"
	"io"
	"sort"
	"time"

	sim "github.com/factory-sim/factory-sim/sim"
)

// PrintRecords renders the KPI record set as plain-text tables, one section
// per record kind, in collection order.
func PrintRecords(w io.Writer, e *sim.Engine, records []sim.Record, startTime time.Time) {
	fmt.Fprintln(w, "=== Factory Simulation Results ===")
	fmt.Fprintf(w, "Run ID    : %s\n", e.RunID)
	fmt.Fprintf(w, "Seed      : %d\n", e.Config.Seed)
	fmt.Fprintf(w, "Wall time : %s\n", time.Since(startTime).Round(time.Millisecond))

	lastKind := ""
	for _, r := range records {
		if r.Kind != lastKind {
			fmt.Fprintf(w, "\n--- %s ---\n", r.Kind)
			lastKind = r.Kind
		}
		if r.Name != "" {
			fmt.Fprintf(w, "%s:\n", r.Name)
		}
		fields := make([]string, 0, len(r.Fields))
		for f := range r.Fields {
			fields = append(fields, f)
		}
		sort.Strings(fields)
		for _, f := range fields {
			fmt.Fprintf(w, "  %-26s : %.3f\n", f, r.Fields[f])
		}
	}
}
