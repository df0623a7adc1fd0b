package scenario

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/factory-sim/factory-sim/sim"
)

const minimalYAML = `
meta:
  horizon_min: 60
resources:
  workers_total: 2
intensity_defaults:
  kwh_per_unit: 0.05
  air_m3_per_unit: 0.01
reliability:
  stations:
    press_1:
      mtbf_min: 240
      mttr: { type: constant, params: { value: 5 } }
arrivals:
  new_orders:
    rate_per_min: 0.5
    entry_buffer: new_store
  returns:
    interarrival_min: 30
    batch_mean: 4
    entry_buffer: returns_in
buffers:
  - { name: new_store, capacity: 10 }
  - { name: returns_in }
  - { name: reman_inventory }
forward_flow:
  - id: press_1
    cycle_time_s: 90
    inputs: [reman_inventory, new_store]
    output: customer
    reman_priority: true
    kwh_per_unit: 0.08
reverse_flow:
  - id: recondition
    workers_required: 1
    process: { type: uniform, params: { min: 2, max: 5 } }
    inputs: [returns_in]
    output: reman_inventory
`

func TestParse_MinimalScenario_DefaultsApplied(t *testing.T) {
	// WHEN a scenario without optional knobs is parsed
	sc, err := Parse([]byte(minimalYAML))
	require.NoError(t, err)

	// THEN sampling, seed, machine-count, and overflow-policy defaults apply
	assert.Equal(t, 10.0, sc.Meta.SampleEveryMin)
	assert.Equal(t, int64(42), sc.Meta.Seed)
	assert.Equal(t, 1, sc.ForwardFlow[0].Machines)
	assert.Equal(t, string(sim.PolicyBlock), sc.Buffers[0].Policy)
	assert.Empty(t, sc.Buffers[1].Policy, "unbounded buffers need no policy")
}

func TestParse_UnknownField_Rejected(t *testing.T) {
	// GIVEN a scenario with a typoed key
	bad := `
meta:
  horizon_min: 60
  horizen_max: 10
arrivals:
  new_orders: { rate_per_min: 1, entry_buffer: b }
buffers:
  - { name: b }
forward_flow:
  - id: s
    cycle_time_s: 60
    inputs: [b]
    output: customer
`
	// WHEN parsed THEN strict decoding surfaces the typo
	_, err := Parse([]byte(bad))
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "horizen_max")
}

func TestParse_StationNeedsExactlyOneTimeSpec(t *testing.T) {
	base := `
meta:
  horizon_min: 60
arrivals:
  new_orders: { rate_per_min: 1, entry_buffer: b }
buffers:
  - { name: b }
forward_flow:
  - id: s
    inputs: [b]
    output: customer
`
	// Neither cycle_time_s nor process: rejected.
	_, err := Parse([]byte(base))
	assert.Error(t, err)

	// Both at once: also rejected.
	both := base + `    cycle_time_s: 60
    process: { type: constant, params: { value: 1 } }
`
	_, err = Parse([]byte(both))
	assert.Error(t, err)
}

func TestToEngineConfig_ResolvesShorthandsAndOverrides(t *testing.T) {
	// GIVEN the minimal scenario
	sc, err := Parse([]byte(minimalYAML))
	require.NoError(t, err)

	// WHEN converted to the engine configuration
	cfg := sc.ToEngineConfig()
	require.NoError(t, cfg.Validate())

	// THEN forward stations precede reverse stations, with categories set
	require.Len(t, cfg.Stations, 2)
	press := cfg.Stations[0]
	recon := cfg.Stations[1]
	assert.Equal(t, sim.CategoryForward, press.Category)
	assert.Equal(t, sim.CategoryReverse, recon.Category)

	// cycle_time_s 90 becomes a constant 1.5-minute distribution
	assert.Equal(t, "constant", press.Process.Type)
	assert.InDelta(t, 1.5, press.Process.Params["value"], 1e-9)

	// explicit process specs pass through untouched
	assert.Equal(t, "uniform", recon.Process.Type)

	// intensity defaults fill unset draws; station overrides win
	assert.InDelta(t, 0.08, press.KWhPerUnit, 1e-9)
	assert.InDelta(t, 0.01, press.AirM3PerUnit, 1e-9)
	assert.InDelta(t, 0.05, recon.KWhPerUnit, 1e-9)

	// reliability override lands on press_1 only
	assert.InDelta(t, 240.0, press.MTBFMin, 1e-9)
	assert.Equal(t, "constant", press.Repair.Type)
	assert.Zero(t, recon.MTBFMin)
}

func TestToEngineConfig_ReliabilityDefault_AppliesToAllStations(t *testing.T) {
	sc, err := Parse([]byte(minimalYAML))
	require.NoError(t, err)
	sc.Reliability.Default = &ReliabilityEntry{
		MTBFMin: 100,
		MTTR:    &sim.DistSpec{Type: "constant", Params: map[string]float64{"value": 2}},
	}

	cfg := sc.ToEngineConfig()

	// The station with an explicit override keeps it; the rest inherit.
	assert.InDelta(t, 240.0, cfg.Stations[0].MTBFMin, 1e-9)
	assert.InDelta(t, 100.0, cfg.Stations[1].MTBFMin, 1e-9)
}

func TestLoad_MissingFile_Errors(t *testing.T) {
	_, err := Load("does-not-exist.yaml")
	assert.Error(t, err)
}
