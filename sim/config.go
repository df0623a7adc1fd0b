package sim

import (
	"fmt"
	"math"
)

// TicksPerMinute fixes the resolution of the logical clock. All durations in
// configuration are minutes; the engine runs on integer ticks so that event
// ordering is exact and runs are reproducible.
const TicksPerMinute int64 = 1000

// ToTicks converts a duration in minutes to clock ticks.
func ToTicks(minutes float64) int64 {
	return int64(math.Round(minutes * float64(TicksPerMinute)))
}

// ToMinutes converts clock ticks back to minutes.
func ToMinutes(ticks int64) float64 {
	return float64(ticks) / float64(TicksPerMinute)
}

// Category classifies a station as part of the forward (manufacturing) or
// reverse (remanufacturing) chain.
type Category string

const (
	CategoryForward Category = "forward"
	CategoryReverse Category = "reverse"
)

// OverflowPolicy decides what happens when a part is offered to a full
// bounded buffer.
type OverflowPolicy string

const (
	// PolicyBlock holds the part upstream until space frees (backpressure).
	PolicyBlock OverflowPolicy = "block"
	// PolicyReject destroys the arriving part and counts it as lost.
	PolicyReject OverflowPolicy = "reject"
)

// SinkCustomer is the reserved output name for the customer delivery sink.
// A station whose Output is SinkCustomer destroys completed parts and counts
// them as throughput.
const SinkCustomer = "customer"

// BufferConfig describes one buffer of the topology.
type BufferConfig struct {
	Name     string
	Capacity int // 0 = unbounded
	Policy   OverflowPolicy
}

// StationConfig describes one processing station.
type StationConfig struct {
	Name            string
	Category        Category
	Machines        int      // resource capacity (parallel slots)
	WorkersRequired int      // workers pulled from the shared pool per unit
	Process         DistSpec // processing-time distribution (minutes)
	Inputs          []string // buffers this station pulls from
	Output          string   // downstream buffer name, or SinkCustomer
	RemanPriority   bool     // reman-sourced parts outrank new parts here
	ScrapProb       float64  // scrap probability on completion (0 = never)
	KWhPerUnit      float64  // energy draw per completed unit
	AirM3PerUnit    float64  // compressed-air draw per completed unit
	MTBFMin         float64  // mean time between failures, minutes (0 = never fails)
	Repair          DistSpec // time-to-repair distribution (minutes)
}

// ArrivalConfig describes the Poisson new-part source.
type ArrivalConfig struct {
	RatePerMin  float64 // arrival rate (units per minute)
	EntryBuffer string
}

// ReturnConfig describes the batched return source: exponentially
// distributed inter-batch gaps, Gaussian batch sizes of at least one.
type ReturnConfig struct {
	InterarrivalMin float64 // mean gap between return batches (minutes)
	BatchMean       float64 // mean units per batch
	EntryBuffer     string
}

// CostRates holds the monetary coefficients applied by the Ledger.
type CostRates struct {
	EnergyPerKWh  float64
	AirPerM3      float64
	LaborPerMin   float64
	MaterialNew   float64 // per unit entering the line as a new part
	MaterialReman float64 // per unit entering the line as a reman part
	ScrapDisposal float64 // per scrapped unit
	ReturnPremium float64 // credit per accepted return
}

// EmissionFactors convert resource draws into CO2 equivalents.
type EmissionFactors struct {
	CO2PerKWh   float64 // kg CO2 per kWh
	KWhPerM3Air float64 // electrical energy per m3 of compressed air
}

// Config is the fully-resolved parameter set consumed by NewEngine. It is
// produced by an external loader (see sim/scenario); the engine itself never
// reads files.
type Config struct {
	HorizonMin     float64 // arrivals stop here
	WarmdownMin    float64 // extra drain time after the arrival cutoff
	SampleEveryMin float64 // buffer-occupancy sampling interval
	Seed           int64

	WorkersTotal int // shared worker pool size (0 = no worker constraint)

	Buffers  []BufferConfig
	Stations []StationConfig

	NewArrivals    ArrivalConfig
	ReturnArrivals ReturnConfig

	Costs   CostRates
	Factors EmissionFactors
}

// validCategories maps accepted station categories.
var validCategories = map[Category]bool{
	CategoryForward: true,
	CategoryReverse: true,
}

// validPolicies maps accepted overflow policies.
var validPolicies = map[OverflowPolicy]bool{
	PolicyBlock:  true,
	PolicyReject: true,
}

// Validate checks the configuration for completeness and referential
// integrity. All failures wrap ErrConfig and surface before any event runs.
func (c *Config) Validate() error {
	if c.HorizonMin <= 0 {
		return fmt.Errorf("%w: horizon must be positive, got %f", ErrConfig, c.HorizonMin)
	}
	if c.WarmdownMin < 0 {
		return fmt.Errorf("%w: warmdown must be >= 0, got %f", ErrConfig, c.WarmdownMin)
	}
	if c.SampleEveryMin <= 0 {
		return fmt.Errorf("%w: sample interval must be positive, got %f", ErrConfig, c.SampleEveryMin)
	}
	if c.WorkersTotal < 0 {
		return fmt.Errorf("%w: workers_total must be >= 0, got %d", ErrConfig, c.WorkersTotal)
	}

	if len(c.Buffers) == 0 {
		return fmt.Errorf("%w: at least one buffer required", ErrConfig)
	}
	bufferNames := make(map[string]bool, len(c.Buffers))
	for i, b := range c.Buffers {
		if b.Name == "" {
			return fmt.Errorf("%w: buffer[%d]: name required", ErrConfig, i)
		}
		if bufferNames[b.Name] {
			return fmt.Errorf("%w: duplicate buffer name %q", ErrConfig, b.Name)
		}
		bufferNames[b.Name] = true
		if b.Capacity < 0 {
			return fmt.Errorf("%w: buffer %q: capacity must be >= 0 (0 = unbounded), got %d", ErrConfig, b.Name, b.Capacity)
		}
		if b.Capacity > 0 && !validPolicies[b.Policy] {
			return fmt.Errorf("%w: buffer %q: bounded buffers need an explicit policy (block or reject), got %q", ErrConfig, b.Name, b.Policy)
		}
	}

	if len(c.Stations) == 0 {
		return fmt.Errorf("%w: at least one station required", ErrConfig)
	}
	stationNames := make(map[string]bool, len(c.Stations))
	remanPriorityCount := 0
	for i, s := range c.Stations {
		prefix := fmt.Sprintf("station[%d] %q", i, s.Name)
		if s.Name == "" {
			return fmt.Errorf("%w: station[%d]: name required", ErrConfig, i)
		}
		if stationNames[s.Name] {
			return fmt.Errorf("%w: duplicate station name %q", ErrConfig, s.Name)
		}
		stationNames[s.Name] = true
		if bufferNames[s.Name] {
			return fmt.Errorf("%w: %s: station and buffer share a name", ErrConfig, prefix)
		}
		if !validCategories[s.Category] {
			return fmt.Errorf("%w: %s: unknown category %q; valid: forward, reverse", ErrConfig, prefix, s.Category)
		}
		if s.Machines < 1 {
			return fmt.Errorf("%w: %s: machines must be >= 1, got %d", ErrConfig, prefix, s.Machines)
		}
		if s.WorkersRequired < 0 {
			return fmt.Errorf("%w: %s: workers_required must be >= 0, got %d", ErrConfig, prefix, s.WorkersRequired)
		}
		if c.WorkersTotal > 0 && s.WorkersRequired > c.WorkersTotal {
			return fmt.Errorf("%w: %s: workers_required %d exceeds workers_total %d", ErrConfig, prefix, s.WorkersRequired, c.WorkersTotal)
		}
		if _, err := NewSampler(s.Process); err != nil {
			return fmt.Errorf("%s: process: %w", prefix, err)
		}
		if len(s.Inputs) == 0 {
			return fmt.Errorf("%w: %s: at least one input buffer required", ErrConfig, prefix)
		}
		for _, in := range s.Inputs {
			if !bufferNames[in] {
				return fmt.Errorf("%w: %s: unknown input buffer %q", ErrConfig, prefix, in)
			}
		}
		if s.Output != SinkCustomer && !bufferNames[s.Output] {
			return fmt.Errorf("%w: %s: unknown output %q (buffer name or %q)", ErrConfig, prefix, s.Output, SinkCustomer)
		}
		if s.RemanPriority {
			remanPriorityCount++
		}
		if s.ScrapProb < 0 || s.ScrapProb > 1 {
			return fmt.Errorf("%w: %s: scrap probability must be in [0, 1], got %f", ErrConfig, prefix, s.ScrapProb)
		}
		if s.MTBFMin < 0 {
			return fmt.Errorf("%w: %s: mtbf must be >= 0, got %f", ErrConfig, prefix, s.MTBFMin)
		}
		if s.MTBFMin > 0 {
			if _, err := NewSampler(s.Repair); err != nil {
				return fmt.Errorf("%s: repair: %w", prefix, err)
			}
		}
	}
	if remanPriorityCount > 1 {
		return fmt.Errorf("%w: at most one station may set reman_priority, got %d", ErrConfig, remanPriorityCount)
	}

	if c.NewArrivals.RatePerMin < 0 {
		return fmt.Errorf("%w: new-arrival rate must be >= 0, got %f", ErrConfig, c.NewArrivals.RatePerMin)
	}
	if c.NewArrivals.RatePerMin > 0 && !bufferNames[c.NewArrivals.EntryBuffer] {
		return fmt.Errorf("%w: new arrivals: unknown entry buffer %q", ErrConfig, c.NewArrivals.EntryBuffer)
	}
	if c.ReturnArrivals.InterarrivalMin < 0 {
		return fmt.Errorf("%w: return interarrival must be >= 0, got %f", ErrConfig, c.ReturnArrivals.InterarrivalMin)
	}
	if c.ReturnArrivals.InterarrivalMin > 0 && !bufferNames[c.ReturnArrivals.EntryBuffer] {
		return fmt.Errorf("%w: returns: unknown entry buffer %q", ErrConfig, c.ReturnArrivals.EntryBuffer)
	}

	return nil
}
