package cmd

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	sim "github.com/factory-sim/factory-sim/sim"
)

// Export writes the run's KPI records, event log, and buffer occupancy
// series as CSV files under <dir>/run-<runID>, so repeated runs never
// overwrite each other. Returns the created directory.
func Export(dir string, e *sim.Engine, records []sim.Record) (string, error) {
	runDir := filepath.Join(dir, "run-"+e.RunID)
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return "", fmt.Errorf("creating output directory: %w", err)
	}
	if err := writeKPIs(filepath.Join(runDir, "kpis.csv"), records); err != nil {
		return "", err
	}
	if err := writeEvents(filepath.Join(runDir, "events.csv"), e); err != nil {
		return "", err
	}
	if err := writeOccupancy(filepath.Join(runDir, "buffer_occupancy.csv"), e); err != nil {
		return "", err
	}
	return runDir, nil
}

// writeKPIs flattens the records into (kind, name, field, value) rows.
// Fields within a record are sorted so the file is byte-stable per seed.
func writeKPIs(path string, records []sim.Record) error {
	return writeCSV(path, func(w *csv.Writer) error {
		if err := w.Write([]string{"kind", "name", "field", "value"}); err != nil {
			return err
		}
		for _, r := range records {
			fields := make([]string, 0, len(r.Fields))
			for f := range r.Fields {
				fields = append(fields, f)
			}
			sort.Strings(fields)
			for _, f := range fields {
				row := []string{r.Kind, r.Name, f, strconv.FormatFloat(r.Fields[f], 'f', -1, 64)}
				if err := w.Write(row); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

func writeEvents(path string, e *sim.Engine) error {
	return writeCSV(path, func(w *csv.Writer) error {
		if err := w.Write([]string{"time_min", "node", "kind", "part_id", "part_kind"}); err != nil {
			return err
		}
		for _, rec := range e.Log.Records {
			row := []string{
				strconv.FormatFloat(sim.ToMinutes(rec.Time), 'f', 3, 64),
				rec.Node,
				string(rec.Kind),
				rec.PartID,
				rec.PartKind,
			}
			if err := w.Write(row); err != nil {
				return err
			}
		}
		return nil
	})
}

func writeOccupancy(path string, e *sim.Engine) error {
	return writeCSV(path, func(w *csv.Writer) error {
		if err := w.Write([]string{"time_min", "buffer", "occupancy"}); err != nil {
			return err
		}
		for _, s := range e.TimeSeries {
			row := []string{
				strconv.FormatFloat(sim.ToMinutes(s.Time), 'f', 3, 64),
				s.Buffer,
				strconv.Itoa(s.Occupancy),
			}
			if err := w.Write(row); err != nil {
				return err
			}
		}
		return nil
	})
}

func writeCSV(path string, fill func(w *csv.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()
	w := csv.NewWriter(f)
	if err := fill(w); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
