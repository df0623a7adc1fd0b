package sim

// KPI records are derived, read-only snapshots: always recomputed from
// ledger/station/buffer state, never independently mutated, so they cannot
// drift from the event stream.
//
// Station time accounting is three-way: busy + idle + down = elapsed ×
// machine count, exactly. Two utilization views are exposed because the
// stricter definitions disagree on whether downtime belongs in the
// denominator: utilization_pct divides busy by total slot time,
// utilization_excl_down_pct divides by slot time with downtime excluded.

// Record kinds produced by Collect.
const (
	RecordGeneral    = "general"
	RecordStation    = "station"
	RecordWIPCurrent = "wip_current"
	RecordWIPPeak    = "wip_peak"
	RecordResources  = "resources"
	RecordLabor      = "labor"
	RecordCost       = "cost"
	RecordDowntime   = "downtime"
)

// Record is one flat KPI record: a kind, an optional subject name (station
// or buffer), and named numeric fields. Handed to an external exporter.
type Record struct {
	Kind   string
	Name   string
	Fields map[string]float64
}

// Collect computes the full KPI record set from the engine's end state, in
// deterministic order: general, stations (topology order), buffer WIP
// current then peak, resources, labor, cost breakdown, downtime per station.
func Collect(e *Engine) []Record {
	records := make([]Record, 0, 4+2*len(e.Buffers)+2*len(e.Stations))
	records = append(records, generalRecord(e))
	for _, st := range e.Stations {
		records = append(records, stationRecord(e, st))
	}
	for _, b := range e.Buffers {
		records = append(records, Record{
			Kind:   RecordWIPCurrent,
			Name:   b.Name,
			Fields: map[string]float64{"occupancy": float64(b.Len())},
		})
	}
	for _, b := range e.Buffers {
		records = append(records, Record{
			Kind:   RecordWIPPeak,
			Name:   b.Name,
			Fields: map[string]float64{"peak_occupancy": float64(b.Peak)},
		})
	}
	records = append(records, resourcesRecord(e), laborRecord(e), costRecord(e))
	for _, st := range e.Stations {
		records = append(records, Record{
			Kind: RecordDowntime,
			Name: st.Name,
			Fields: map[string]float64{
				"down_min": ToMinutes(st.DownTicks),
				"failures": float64(st.Failures),
			},
		})
	}
	return records
}

func generalRecord(e *Engine) Record {
	var bufferWIP, stationWIP int64
	for _, b := range e.Buffers {
		bufferWIP += int64(b.Len())
	}
	for _, st := range e.Stations {
		stationWIP += int64(st.InProcess())
	}

	var fromReman, fromNew int64
	for _, st := range e.Stations {
		fromReman += st.FromReman
		fromNew += st.FromNew
	}
	remanShare := 0.0
	if fromReman+fromNew > 0 {
		remanShare = 100 * float64(fromReman) / float64(fromReman+fromNew)
	}

	return Record{
		Kind: RecordGeneral,
		Fields: map[string]float64{
			"elapsed_min":          ToMinutes(e.Horizon),
			"new_orders_arrived":   float64(e.Stats.CreatedNew),
			"returns_arrived":      float64(e.Stats.CreatedReturns),
			"throughput":           float64(e.Stats.Delivered),
			"scrapped":             float64(e.Stats.Scrapped),
			"rejected":             float64(e.Stats.Rejected),
			"lost_new_arrivals":    float64(e.Stats.LostNewArrivals),
			"lost_return_arrivals": float64(e.Stats.LostReturnArrivals),
			"wip_in_buffers":       float64(bufferWIP),
			"wip_in_stations":      float64(stationWIP),
			"wip_total":            float64(e.InSystem()),
			"reman_feed_units":     float64(fromReman),
			"new_feed_units":       float64(fromNew),
			"reman_feed_share_pct": remanShare,
		},
	}
}

func stationRecord(e *Engine, st *Station) Record {
	slots := int64(st.Machines)
	totalSlotTicks := e.Horizon * slots
	downSlotTicks := st.DownTicks * slots
	idleSlotTicks := totalSlotTicks - st.BusyTicks - downSlotTicks

	util := 0.0
	if totalSlotTicks > 0 {
		util = 100 * float64(st.BusyTicks) / float64(totalSlotTicks)
	}
	utilExclDown := 0.0
	if totalSlotTicks-downSlotTicks > 0 {
		utilExclDown = 100 * float64(st.BusyTicks) / float64(totalSlotTicks-downSlotTicks)
	}

	return Record{
		Kind: RecordStation,
		Name: st.Name,
		Fields: map[string]float64{
			"busy_min":                  ToMinutes(st.BusyTicks),
			"idle_min":                  ToMinutes(idleSlotTicks),
			"down_min":                  ToMinutes(st.DownTicks),
			"utilization_pct":           util,
			"utilization_excl_down_pct": utilExclDown,
			"completed":                 float64(st.Completed),
			"scrapped":                  float64(st.ScrappedCount),
			"in_process_end":            float64(st.InProcess()),
			"in_process_peak":           float64(st.InProcessPeak),
			"failures":                  float64(st.Failures),
			"energy_kwh":                st.EnergyKWh,
			"air_m3":                    st.AirM3,
			"labor_min":                 st.LaborMin,
		},
	}
}

func resourcesRecord(e *Engine) Record {
	return Record{
		Kind: RecordResources,
		Fields: map[string]float64{
			"energy_total_kwh": e.Ledger.EnergyKWh,
			"air_total_m3":     e.Ledger.AirM3,
			"co2_total_kg":     e.Ledger.CO2Kg(e.Config.Factors),
		},
	}
}

func laborRecord(e *Engine) Record {
	return Record{
		Kind: RecordLabor,
		Fields: map[string]float64{
			"labor_minutes_total": e.Ledger.LaborMinutes,
			"labor_cost":          e.Ledger.LaborCost,
			"workers_total":       float64(e.Config.WorkersTotal),
		},
	}
}

func costRecord(e *Engine) Record {
	l := e.Ledger
	return Record{
		Kind: RecordCost,
		Fields: map[string]float64{
			"material_new":          l.MaterialNewCost,
			"material_reman":        l.MaterialRemanCost,
			"labor":                 l.LaborCost,
			"energy":                l.EnergyCost,
			"compressed_air":        l.AirCost,
			"scrap_disposal":        l.ScrapCost,
			"return_premium_credit": l.ReturnPremiumCredit,
			"net_total":             l.NetCost(),
		},
	}
}
