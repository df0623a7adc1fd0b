package scenario

import (
	"github.com/factory-sim/factory-sim/sim"
)

// ToEngineConfig resolves a scenario into the flat engine configuration:
// cycle-time shorthands become constant distributions, intensity defaults
// and reliability overrides fold into each station, and the two chains are
// concatenated forward-first so topology order is stable.
func (s *Scenario) ToEngineConfig() sim.Config {
	cfg := sim.Config{
		HorizonMin:     s.Meta.HorizonMin,
		WarmdownMin:    s.Meta.WarmdownMin,
		SampleEveryMin: s.Meta.SampleEveryMin,
		Seed:           s.Meta.Seed,
		WorkersTotal:   s.Resources.WorkersTotal,
		NewArrivals: sim.ArrivalConfig{
			RatePerMin:  s.Arrivals.NewOrders.RatePerMin,
			EntryBuffer: s.Arrivals.NewOrders.EntryBuffer,
		},
		ReturnArrivals: sim.ReturnConfig{
			InterarrivalMin: s.Arrivals.Returns.InterarrivalMin,
			BatchMean:       s.Arrivals.Returns.BatchMean,
			EntryBuffer:     s.Arrivals.Returns.EntryBuffer,
		},
		Costs: sim.CostRates{
			EnergyPerKWh:  s.Costs.EnergyPerKWh,
			AirPerM3:      s.Costs.AirPerM3,
			LaborPerMin:   s.Costs.LaborPerMin,
			MaterialNew:   s.Costs.MaterialNew,
			MaterialReman: s.Costs.MaterialReman,
			ScrapDisposal: s.Costs.ScrapDisposal,
			ReturnPremium: s.Costs.ReturnPremium,
		},
		Factors: sim.EmissionFactors{
			CO2PerKWh:   s.Factors.CO2PerKWh,
			KWhPerM3Air: s.Factors.KWhPerM3Air,
		},
	}

	cfg.Buffers = make([]sim.BufferConfig, 0, len(s.Buffers))
	for _, b := range s.Buffers {
		cfg.Buffers = append(cfg.Buffers, sim.BufferConfig{
			Name:     b.Name,
			Capacity: b.Capacity,
			Policy:   sim.OverflowPolicy(b.Policy),
		})
	}

	cfg.Stations = make([]sim.StationConfig, 0, len(s.ForwardFlow)+len(s.ReverseFlow))
	for _, st := range s.ForwardFlow {
		cfg.Stations = append(cfg.Stations, s.stationConfig(st, sim.CategoryForward))
	}
	for _, st := range s.ReverseFlow {
		cfg.Stations = append(cfg.Stations, s.stationConfig(st, sim.CategoryReverse))
	}
	return cfg
}

func (s *Scenario) stationConfig(st StationSpec, cat sim.Category) sim.StationConfig {
	out := sim.StationConfig{
		Name:            st.ID,
		Category:        cat,
		Machines:        st.Machines,
		WorkersRequired: st.WorkersRequired,
		Process:         st.processSpec(),
		Inputs:          st.Inputs,
		Output:          st.Output,
		RemanPriority:   st.RemanPriority,
		ScrapProb:       st.ScrapProb,
		KWhPerUnit:      s.Intensity.KWhPerUnit,
		AirM3PerUnit:    s.Intensity.AirM3PerUnit,
	}
	if st.KWhPerUnit != nil {
		out.KWhPerUnit = *st.KWhPerUnit
	}
	if st.AirM3PerUnit != nil {
		out.AirM3PerUnit = *st.AirM3PerUnit
	}
	if entry := s.reliabilityFor(st.ID); entry != nil && entry.MTBFMin > 0 && entry.MTTR != nil {
		out.MTBFMin = entry.MTBFMin
		out.Repair = *entry.MTTR
	}
	return out
}

// processSpec returns the station's processing-time distribution, expanding
// the cycle_time_s shorthand into a constant distribution in minutes.
func (st *StationSpec) processSpec() sim.DistSpec {
	if st.Process != nil {
		return *st.Process
	}
	return sim.DistSpec{
		Type:   "constant",
		Params: map[string]float64{"value": st.CycleTimeS / 60.0},
	}
}

// reliabilityFor returns the downtime parameters for a station: the
// per-station override when present, else the scenario default, else nil.
func (s *Scenario) reliabilityFor(station string) *ReliabilityEntry {
	if entry, ok := s.Reliability.Stations[station]; ok {
		return &entry
	}
	return s.Reliability.Default
}
