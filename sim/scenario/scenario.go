// Package scenario loads and validates scenario files for the factory
// simulation. It is the external collaborator that produces the
// fully-resolved sim.Config; the engine itself never touches files.
package scenario

import (
	"bytes"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/factory-sim/factory-sim/sim"
)

// Scenario is the top-level scenario configuration, loaded from YAML via
// Load(path). Strict parsing: unrecognized keys (typos) are rejected.
type Scenario struct {
	Meta        MetaSpec        `yaml:"meta" validate:"required"`
	Resources   ResourceSpec    `yaml:"resources"`
	Costs       CostSpec        `yaml:"costs"`
	Factors     FactorSpec      `yaml:"factors"`
	Intensity   IntensitySpec   `yaml:"intensity_defaults"`
	Reliability ReliabilitySpec `yaml:"reliability"`
	Arrivals    ArrivalsSpec    `yaml:"arrivals" validate:"required"`
	Buffers     []BufferSpec    `yaml:"buffers" validate:"required,min=1,dive"`
	ForwardFlow []StationSpec   `yaml:"forward_flow" validate:"required,min=1,dive"`
	ReverseFlow []StationSpec   `yaml:"reverse_flow" validate:"dive"`
}

// MetaSpec holds run-level knobs.
type MetaSpec struct {
	HorizonMin     float64 `yaml:"horizon_min" validate:"required,gt=0"`
	WarmdownMin    float64 `yaml:"warmdown_min" validate:"gte=0"`
	SampleEveryMin float64 `yaml:"sample_every_min" validate:"gte=0"`
	Seed           int64   `yaml:"seed"`
}

// ResourceSpec holds the shared labor pool size.
type ResourceSpec struct {
	WorkersTotal int `yaml:"workers_total" validate:"gte=0"`
}

// CostSpec holds monetary coefficients, EUR.
type CostSpec struct {
	EnergyPerKWh  float64 `yaml:"energy_eur_per_kwh" validate:"gte=0"`
	AirPerM3      float64 `yaml:"air_eur_per_m3" validate:"gte=0"`
	LaborPerMin   float64 `yaml:"labor_eur_per_min" validate:"gte=0"`
	MaterialNew   float64 `yaml:"material_new_eur_per_unit" validate:"gte=0"`
	MaterialReman float64 `yaml:"material_reman_eur_per_unit" validate:"gte=0"`
	ScrapDisposal float64 `yaml:"scrap_disposal_eur_per_unit" validate:"gte=0"`
	ReturnPremium float64 `yaml:"return_premium_eur_per_unit" validate:"gte=0"`
}

// FactorSpec holds emission conversion factors.
type FactorSpec struct {
	CO2PerKWh   float64 `yaml:"ef_co2_per_kwh" validate:"gte=0"`
	KWhPerM3Air float64 `yaml:"kwh_per_m3_air" validate:"gte=0"`
}

// IntensitySpec holds per-unit resource draws applied to stations that do
// not override them.
type IntensitySpec struct {
	KWhPerUnit   float64 `yaml:"kwh_per_unit" validate:"gte=0"`
	AirM3PerUnit float64 `yaml:"air_m3_per_unit" validate:"gte=0"`
}

// ReliabilitySpec holds the default downtime process plus per-station
// overrides, keyed by station name.
type ReliabilitySpec struct {
	Default  *ReliabilityEntry           `yaml:"default"`
	Stations map[string]ReliabilityEntry `yaml:"stations"`
}

// ReliabilityEntry is one MTBF/MTTR parameter set.
type ReliabilityEntry struct {
	MTBFMin float64       `yaml:"mtbf_min" validate:"gte=0"`
	MTTR    *sim.DistSpec `yaml:"mttr"`
}

// ArrivalsSpec holds both source processes.
type ArrivalsSpec struct {
	NewOrders NewOrdersSpec `yaml:"new_orders" validate:"required"`
	Returns   ReturnsSpec   `yaml:"returns"`
}

// NewOrdersSpec is the Poisson new-part source.
type NewOrdersSpec struct {
	RatePerMin  float64 `yaml:"rate_per_min" validate:"gte=0"`
	EntryBuffer string  `yaml:"entry_buffer" validate:"required"`
}

// ReturnsSpec is the batched return source.
type ReturnsSpec struct {
	InterarrivalMin float64 `yaml:"interarrival_min" validate:"gte=0"`
	BatchMean       float64 `yaml:"batch_mean" validate:"gte=0"`
	EntryBuffer     string  `yaml:"entry_buffer"`
}

// BufferSpec describes one buffer.
type BufferSpec struct {
	Name     string `yaml:"name" validate:"required"`
	Capacity int    `yaml:"capacity" validate:"gte=0"`
	Policy   string `yaml:"policy" validate:"omitempty,oneof=block reject"`
}

// StationSpec describes one station of either chain. Either cycle_time_s
// (a deterministic cycle, matching shop-floor data sheets) or a full
// process distribution must be given.
type StationSpec struct {
	ID              string        `yaml:"id" validate:"required"`
	Machines        int           `yaml:"machines"`
	WorkersRequired int           `yaml:"workers_required" validate:"gte=0"`
	CycleTimeS      float64       `yaml:"cycle_time_s" validate:"gte=0"`
	Process         *sim.DistSpec `yaml:"process"`
	Inputs          []string      `yaml:"inputs" validate:"required,min=1"`
	Output          string        `yaml:"output" validate:"required"`
	RemanPriority   bool          `yaml:"reman_priority"`
	ScrapProb       float64       `yaml:"scrap_prob" validate:"gte=0,lte=1"`
	KWhPerUnit      *float64      `yaml:"kwh_per_unit"`
	AirM3PerUnit    *float64      `yaml:"air_m3_per_unit"`
}

// Load reads and parses a YAML scenario file.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading scenario: %w", err)
	}
	return Parse(data)
}

// Parse decodes scenario YAML with strict field checking and validates it.
func Parse(data []byte) (*Scenario, error) {
	var sc Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&sc); err != nil {
		return nil, fmt.Errorf("parsing scenario: %w", err)
	}
	sc.applyDefaults()
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	return &sc, nil
}

// applyDefaults fills optional knobs the way the shop-floor sheets assume
// them: ten-minute sampling, seed 42, and a default overflow policy of
// block for bounded buffers.
func (s *Scenario) applyDefaults() {
	if s.Meta.SampleEveryMin == 0 {
		s.Meta.SampleEveryMin = 10
	}
	if s.Meta.Seed == 0 {
		s.Meta.Seed = 42
	}
	for i := range s.Buffers {
		if s.Buffers[i].Capacity > 0 && s.Buffers[i].Policy == "" {
			s.Buffers[i].Policy = string(sim.PolicyBlock)
		}
	}
	for i := range s.ForwardFlow {
		s.ForwardFlow[i].applyDefaults()
	}
	for i := range s.ReverseFlow {
		s.ReverseFlow[i].applyDefaults()
	}
}

func (st *StationSpec) applyDefaults() {
	if st.Machines == 0 {
		st.Machines = 1
	}
}

// Validate checks field-level constraints via struct tags, then the
// scenario-shape rules the tags cannot express.
func (s *Scenario) Validate() error {
	if err := validator.New().Struct(s); err != nil {
		return fmt.Errorf("invalid scenario: %w", err)
	}
	for _, st := range append(append([]StationSpec{}, s.ForwardFlow...), s.ReverseFlow...) {
		if st.CycleTimeS == 0 && st.Process == nil {
			return fmt.Errorf("invalid scenario: station %q needs cycle_time_s or a process distribution", st.ID)
		}
		if st.CycleTimeS > 0 && st.Process != nil {
			return fmt.Errorf("invalid scenario: station %q sets both cycle_time_s and a process distribution", st.ID)
		}
	}
	if s.Arrivals.Returns.InterarrivalMin > 0 && s.Arrivals.Returns.EntryBuffer == "" {
		return fmt.Errorf("invalid scenario: returns source needs an entry_buffer")
	}
	return nil
}
