package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/factory-sim/factory-sim/sim/trace"
)

// singleStationConfig is a one-station line: parts queue in "in", process
// for a deterministic 2 minutes on a single machine, and deliver.
func singleStationConfig() *Config {
	return &Config{
		HorizonMin:     10,
		SampleEveryMin: 10,
		Seed:           1,
		Buffers:        []BufferConfig{{Name: "in"}},
		Stations: []StationConfig{{
			Name:     "assemble",
			Category: CategoryForward,
			Machines: 1,
			Process:  DistSpec{Type: "constant", Params: map[string]float64{"value": 2}},
			Inputs:   []string{"in"},
			Output:   SinkCustomer,
		}},
	}
}

func grantOrder(log *trace.SimulationLog) []string {
	var ids []string
	for _, r := range log.Records {
		if r.Kind == trace.KindGrant {
			ids = append(ids, r.PartID)
		}
	}
	return ids
}

func TestEngine_SingleStation_QueueingAndUtilization(t *testing.T) {
	// GIVEN a single machine with 2-minute deterministic processing and
	// arrivals at t=0 and t=1min over a 10-minute horizon
	e, err := NewEngine(singleStationConfig())
	require.NoError(t, err)
	_, err = e.InjectArrival(0, KindNew, "in")
	require.NoError(t, err)
	_, err = e.InjectArrival(ToTicks(1), KindNew, "in")
	require.NoError(t, err)

	// WHEN the run completes
	e.Run()

	// THEN part A holds the machine 0-2, part B queues and runs 2-4:
	// throughput 2, busy 4 of 10 minutes, utilization 40%
	st := e.Station("assemble")
	assert.Equal(t, int64(2), e.Stats.Delivered)
	assert.Equal(t, ToTicks(4), st.BusyTicks)
	assert.NoError(t, e.CheckConservation())

	rec := stationRecord(e, st)
	assert.InDelta(t, 40.0, rec.Fields["utilization_pct"], 1e-9)
	assert.InDelta(t, 4.0, rec.Fields["busy_min"], 1e-9)
	assert.InDelta(t, 6.0, rec.Fields["idle_min"], 1e-9)

	// Grant order matches arrival order, and the log shows both deliveries.
	assert.Equal(t, []string{"NEW-00001", "NEW-00002"}, grantOrder(e.Log))
	summary := trace.Summarize(e.Log)
	assert.Equal(t, 2, summary.Delivered)
}

func TestEngine_MergeStation_RemanOutranksQueuedNew(t *testing.T) {
	// GIVEN a merge station pulling from a reman inventory and a new store,
	// with deterministic 1-minute processing on one machine
	cfg := &Config{
		HorizonMin:     30,
		SampleEveryMin: 10,
		Seed:           1,
		Buffers:        []BufferConfig{{Name: "reman_inventory"}, {Name: "new_store"}},
		Stations: []StationConfig{{
			Name:          "press_1",
			Category:      CategoryForward,
			Machines:      1,
			Process:       DistSpec{Type: "constant", Params: map[string]float64{"value": 1}},
			Inputs:        []string{"reman_inventory", "new_store"},
			Output:        SinkCustomer,
			RemanPriority: true,
		}},
		Costs: CostRates{MaterialNew: 12.0, MaterialReman: 4.5},
	}
	e, err := NewEngine(cfg)
	require.NoError(t, err)

	// WHEN two new parts and one reman part all arrive at t=0, in that order
	_, err = e.InjectArrival(0, KindNew, "new_store")
	require.NoError(t, err)
	_, err = e.InjectArrival(0, KindNew, "new_store")
	require.NoError(t, err)
	_, err = e.InjectArrival(0, KindReman, "reman_inventory")
	require.NoError(t, err)
	e.Run()

	// THEN the first new part keeps its already-granted slot, but the reman
	// part overtakes the queued second new part
	assert.Equal(t, []string{"NEW-00001", "RET-00001", "NEW-00002"}, grantOrder(e.Log))

	st := e.Station("press_1")
	assert.Equal(t, int64(1), st.FromReman)
	assert.Equal(t, int64(2), st.FromNew)

	// Material cost splits by source kind at the merge.
	assert.Equal(t, int64(2), e.Ledger.MaterialNewUnits)
	assert.Equal(t, int64(1), e.Ledger.MaterialRemanUnits)
	assert.InDelta(t, 2*12.0+4.5, e.Ledger.MaterialNewCost+e.Ledger.MaterialRemanCost, 1e-9)
}

func TestEngine_Failure_SuspendsAndResumesWithRemainingTime(t *testing.T) {
	// GIVEN a 10-minute deterministic job started at t=0 on a 20-minute horizon
	cfg := singleStationConfig()
	cfg.HorizonMin = 20
	cfg.Stations[0].Process = DistSpec{Type: "constant", Params: map[string]float64{"value": 10}}
	e, err := NewEngine(cfg)
	require.NoError(t, err)
	st := e.Station("assemble")
	st.repairSampler = &ConstantSampler{Value: 3}

	_, err = e.InjectArrival(0, KindNew, "in")
	require.NoError(t, err)

	// WHEN the station fails at t=2min and repairs for 3 minutes
	e.Schedule(&FailureEvent{time: ToTicks(2), Station: st})
	e.Run()

	// THEN the job resumes with 8 minutes remaining and completes at t=13min,
	// the stale pre-failure completion being discarded
	assert.Equal(t, int64(1), e.Stats.Delivered)
	assert.Equal(t, ToTicks(10), st.BusyTicks)
	assert.Equal(t, ToTicks(3), st.DownTicks)
	assert.Equal(t, int64(1), st.Failures)

	var sawSuspend, sawResume bool
	var deliveredAt int64
	for _, r := range e.Log.Records {
		switch r.Kind {
		case trace.KindSuspend:
			sawSuspend = true
		case trace.KindResume:
			sawResume = true
		case trace.KindDeliver:
			deliveredAt = r.Time
		}
	}
	assert.True(t, sawSuspend, "expected a suspend record")
	assert.True(t, sawResume, "expected a resume record")
	assert.Equal(t, ToTicks(13), deliveredAt)

	// Three-way accounting: busy + idle + down covers the whole horizon.
	rec := stationRecord(e, st)
	assert.InDelta(t, 10.0, rec.Fields["busy_min"], 1e-9)
	assert.InDelta(t, 3.0, rec.Fields["down_min"], 1e-9)
	assert.InDelta(t, 7.0, rec.Fields["idle_min"], 1e-9)
	assert.InDelta(t, 50.0, rec.Fields["utilization_pct"], 1e-9)
	assert.InDelta(t, 100.0*10.0/17.0, rec.Fields["utilization_excl_down_pct"], 1e-9)
}

// twoStageConfig chains cut (1 min) into pack (5 min) through a one-slot
// intermediate buffer with the given overflow policy.
func twoStageConfig(policy OverflowPolicy) *Config {
	return &Config{
		HorizonMin:     20,
		SampleEveryMin: 10,
		Seed:           1,
		Buffers: []BufferConfig{
			{Name: "in"},
			{Name: "mid", Capacity: 1, Policy: policy},
		},
		Stations: []StationConfig{
			{
				Name:     "cut",
				Category: CategoryForward,
				Machines: 1,
				Process:  DistSpec{Type: "constant", Params: map[string]float64{"value": 1}},
				Inputs:   []string{"in"},
				Output:   "mid",
			},
			{
				Name:     "pack",
				Category: CategoryForward,
				Machines: 1,
				Process:  DistSpec{Type: "constant", Params: map[string]float64{"value": 5}},
				Inputs:   []string{"mid"},
				Output:   SinkCustomer,
			},
		},
	}
}

func TestEngine_RejectPolicy_DestroysOverflowAndConserves(t *testing.T) {
	// GIVEN a one-slot intermediate buffer that rejects overflow
	e, err := NewEngine(twoStageConfig(PolicyReject))
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		_, err = e.InjectArrival(0, KindNew, "in")
		require.NoError(t, err)
	}

	// WHEN the upstream station outruns the downstream one
	e.Run()

	// THEN the third part finds mid full and is destroyed, and the
	// conservation invariant still holds
	assert.Equal(t, int64(2), e.Stats.Delivered)
	assert.Equal(t, int64(1), e.Stats.Rejected)
	assert.NoError(t, e.CheckConservation())
}

func TestEngine_BlockPolicy_HoldsSlotUntilSpaceFrees(t *testing.T) {
	// GIVEN the same line with block backpressure instead of reject
	e, err := NewEngine(twoStageConfig(PolicyBlock))
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		_, err = e.InjectArrival(0, KindNew, "in")
		require.NoError(t, err)
	}

	// WHEN the run completes
	e.Run()

	// THEN nothing is destroyed: the blocked part waits on the cut machine
	// and moves on once pack frees the buffer
	assert.Equal(t, int64(3), e.Stats.Delivered)
	assert.Equal(t, int64(0), e.Stats.Rejected)
	assert.NoError(t, e.CheckConservation())

	// Blocked time is not busy time: cut worked 3 parts for 1 minute each.
	assert.Equal(t, ToTicks(3), e.Station("cut").BusyTicks)
}

// stochasticConfig exercises every random subsystem at once: Poisson
// arrivals, batched returns, sampled processing, scrap draws, and failures.
func stochasticConfig(seed int64) *Config {
	return &Config{
		HorizonMin:     240,
		WarmdownMin:    30,
		SampleEveryMin: 10,
		Seed:           seed,
		WorkersTotal:   2,
		Buffers: []BufferConfig{
			{Name: "new_store", Capacity: 20, Policy: PolicyReject},
			{Name: "returns_in"},
			{Name: "reman_inventory"},
			{Name: "mid"},
		},
		Stations: []StationConfig{
			{
				Name:          "press_1",
				Category:      CategoryForward,
				Machines:      1,
				Process:       DistSpec{Type: "gaussian", Params: map[string]float64{"mean": 1.5, "std_dev": 0.3}},
				Inputs:        []string{"reman_inventory", "new_store"},
				Output:        "mid",
				RemanPriority: true,
				MTBFMin:       5,
				Repair:        DistSpec{Type: "exponential", Params: map[string]float64{"mean": 1}},
			},
			{
				Name:            "inspect",
				Category:        CategoryForward,
				Machines:        2,
				WorkersRequired: 1,
				Process:         DistSpec{Type: "uniform", Params: map[string]float64{"min": 1, "max": 3}},
				Inputs:          []string{"mid"},
				Output:          SinkCustomer,
				ScrapProb:       0.1,
			},
			{
				Name:            "recondition",
				Category:        CategoryReverse,
				Machines:        1,
				WorkersRequired: 1,
				Process:         DistSpec{Type: "lognormal", Params: map[string]float64{"mu": 0.5, "sigma": 0.2}},
				Inputs:          []string{"returns_in"},
				Output:          "reman_inventory",
			},
		},
		NewArrivals:    ArrivalConfig{RatePerMin: 0.4, EntryBuffer: "new_store"},
		ReturnArrivals: ReturnConfig{InterarrivalMin: 20, BatchMean: 3, EntryBuffer: "returns_in"},
		Costs: CostRates{
			EnergyPerKWh: 0.25, AirPerM3: 0.02, LaborPerMin: 0.6,
			MaterialNew: 12, MaterialReman: 4.5, ScrapDisposal: 1.2, ReturnPremium: 2,
		},
		Factors: EmissionFactors{CO2PerKWh: 0.35, KWhPerM3Air: 0.12},
	}
}

func TestEngine_SameSeed_BitForBitReproducible(t *testing.T) {
	// GIVEN two engines built from identical configuration and seed
	run := func() *Engine {
		e, err := NewEngine(stochasticConfig(42))
		require.NoError(t, err)
		e.Run()
		return e
	}

	// WHEN both runs complete
	e1 := run()
	e2 := run()

	// THEN event logs, KPI records, downtime, and counters are identical
	assert.Equal(t, e1.Log.Records, e2.Log.Records)
	assert.Equal(t, Collect(e1), Collect(e2))
	assert.Equal(t, e1.Stats, e2.Stats)
	assert.Equal(t, e1.TimeSeries, e2.TimeSeries)
	for i := range e1.Stations {
		assert.Equal(t, e1.Stations[i].Failures, e2.Stations[i].Failures)
		assert.Equal(t, e1.Stations[i].DownTicks, e2.Stations[i].DownTicks)
	}
}

func TestEngine_DifferentSeeds_Diverge(t *testing.T) {
	e1, err := NewEngine(stochasticConfig(1))
	require.NoError(t, err)
	e2, err := NewEngine(stochasticConfig(2))
	require.NoError(t, err)
	e1.Run()
	e2.Run()

	assert.NotEqual(t, e1.Log.Records, e2.Log.Records)
}

func TestEngine_StochasticRun_InvariantsHold(t *testing.T) {
	// GIVEN a run exercising every subsystem
	e, err := NewEngine(stochasticConfig(7))
	require.NoError(t, err)
	e.Run()

	// THEN no part is lost or duplicated
	assert.NoError(t, e.CheckConservation())

	// AND per-station three-way time accounting closes exactly
	for _, st := range e.Stations {
		rec := stationRecord(e, st)
		total := rec.Fields["busy_min"] + rec.Fields["idle_min"] + rec.Fields["down_min"]*float64(st.Machines)
		assert.InDelta(t, ToMinutes(e.Horizon)*float64(st.Machines), total, 1e-6, st.Name)
		assert.GreaterOrEqual(t, rec.Fields["idle_min"], 0.0, st.Name)
	}

	// AND arrivals stop at the horizon even though the run drains longer
	for _, r := range e.Log.Records {
		if r.Kind == trace.KindArrival {
			assert.Less(t, r.Time, e.ArrivalCutoff)
		}
	}
}

func TestEngine_InjectArrival_UnknownBuffer_Errors(t *testing.T) {
	e, err := NewEngine(singleStationConfig())
	require.NoError(t, err)

	_, err = e.InjectArrival(0, KindNew, "nowhere")
	assert.ErrorIs(t, err, ErrConfig)
}

func TestEngine_SharedBuffer_TwoConsumers_Rejected(t *testing.T) {
	// GIVEN two stations both pulling from the same buffer
	cfg := singleStationConfig()
	cfg.Stations = append(cfg.Stations, StationConfig{
		Name:     "assemble_b",
		Category: CategoryForward,
		Machines: 1,
		Process:  DistSpec{Type: "constant", Params: map[string]float64{"value": 2}},
		Inputs:   []string{"in"},
		Output:   SinkCustomer,
	})

	// WHEN the engine is built THEN the topology is rejected
	_, err := NewEngine(cfg)
	assert.ErrorIs(t, err, ErrConfig)
}
