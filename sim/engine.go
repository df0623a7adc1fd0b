// sim/engine.go
package sim

import (
	"container/heap"
	"fmt"
	"math"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/factory-sim/factory-sim/sim/trace"
)

// scheduledEvent pairs an event with its insertion sequence so that events
// at the same timestamp dispatch in the order they were scheduled.
type scheduledEvent struct {
	ev  Event
	seq uint64
}

// eventQueue implements heap.Interface ordered by (timestamp, insertion
// sequence). See canonical Golang example: https://pkg.go.dev/container/heap
type eventQueue []scheduledEvent

func (eq eventQueue) Len() int { return len(eq) }
func (eq eventQueue) Less(i, j int) bool {
	if eq[i].ev.Timestamp() != eq[j].ev.Timestamp() {
		return eq[i].ev.Timestamp() < eq[j].ev.Timestamp()
	}
	return eq[i].seq < eq[j].seq
}
func (eq eventQueue) Swap(i, j int) { eq[i], eq[j] = eq[j], eq[i] }

func (eq *eventQueue) Push(x any) {
	*eq = append(*eq, x.(scheduledEvent))
}

func (eq *eventQueue) Pop() any {
	old := *eq
	n := len(old)
	item := old[n-1]
	*eq = old[0 : n-1]
	return item
}

// Stats holds the run-level part counters used by the conservation
// invariant and the general KPI record.
type Stats struct {
	CreatedNew     int64 // new parts emitted by the source
	CreatedReturns int64 // returned units emitted by the return source
	Delivered      int64 // units that reached the customer sink
	Scrapped       int64 // units destroyed by scrap draws
	Rejected       int64 // units destroyed by full buffers under reject policy
	EntryBlocked   int64 // arrivals parked waiting for entry-buffer space

	LostNewArrivals    int64 // rejected at the new-part entry buffer
	LostReturnArrivals int64 // rejected at the return entry buffer
}

// Engine is one simulation run: it exclusively owns all stations, buffers,
// pools, the ledger, and the event log for the duration of the run. There is
// no cross-run shared mutable state, so scenario sweeps can run engines in
// parallel without cross-talk.
type Engine struct {
	Clock         int64
	Horizon       int64 // ticks, including warmdown
	ArrivalCutoff int64 // ticks; no source emits at or after this time

	RunID string // stamped on exported artifacts; not part of sim state

	Config     *Config
	Stations   []*Station
	Buffers    []*Buffer
	WorkerPool *ResourcePool // nil when the scenario has no worker constraint
	Ledger     *Ledger
	Log        *trace.SimulationLog
	TimeSeries []BufferSample
	Stats      Stats

	stationIndex map[string]*Station
	bufferIndex  map[string]*Buffer

	eventQ      eventQueue
	seqCounter  uint64
	sampleEvery int64
	rng         *PartitionedRNG
	finished    bool

	newCount    int64
	returnCount int64
}

// BufferSample is one point of the buffer-occupancy time series.
type BufferSample struct {
	Time      int64
	Buffer    string
	Occupancy int
}

// NewEngine bootstraps a run from a fully-resolved configuration: builds
// buffers, stations, and pools, wires the topology, pre-schedules source
// arrivals and initial failures. Fails fast with a ConfigError before any
// event runs.
func NewEngine(cfg *Config) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	e := &Engine{
		Horizon:       ToTicks(cfg.HorizonMin + cfg.WarmdownMin),
		ArrivalCutoff: ToTicks(cfg.HorizonMin),
		RunID:         uuid.NewString(),
		Config:        cfg,
		Ledger:        NewLedger(cfg.Costs),
		Log:           trace.NewSimulationLog(),
		stationIndex:  make(map[string]*Station),
		bufferIndex:   make(map[string]*Buffer),
		eventQ:        make(eventQueue, 0),
		sampleEvery:   ToTicks(cfg.SampleEveryMin),
		rng:           NewPartitionedRNG(NewSimulationKey(cfg.Seed)),
	}

	for _, bc := range cfg.Buffers {
		b := NewBuffer(bc)
		e.Buffers = append(e.Buffers, b)
		e.bufferIndex[b.Name] = b
	}

	if cfg.WorkersTotal > 0 {
		e.WorkerPool = NewResourcePool("workers", cfg.WorkersTotal)
	}

	for _, sc := range cfg.Stations {
		st, err := newStation(sc)
		if err != nil {
			return nil, err
		}
		for _, in := range sc.Inputs {
			buf := e.bufferIndex[in]
			if buf.consumer != nil {
				return nil, fmt.Errorf("%w: buffer %q feeds both %q and %q; a buffer feeds at most one station",
					ErrConfig, in, buf.consumer.Name, st.Name)
			}
			buf.consumer = st
		}
		if sc.Output != SinkCustomer {
			st.output = e.bufferIndex[sc.Output]
		}
		e.Stations = append(e.Stations, st)
		e.stationIndex[st.Name] = st
	}

	e.Schedule(&SampleEvent{time: 0})
	e.generateNewArrivals()
	e.generateReturnArrivals()
	e.scheduleInitialFailures()

	return e, nil
}

// Station returns a station by name, or nil.
func (e *Engine) Station(name string) *Station {
	return e.stationIndex[name]
}

// Buffer returns a buffer by name, or nil.
func (e *Engine) Buffer(name string) *Buffer {
	return e.bufferIndex[name]
}

// Schedule enqueues an event. Scheduling into the past is a programming
// error, not a recoverable condition.
func (e *Engine) Schedule(ev Event) {
	if ev.Timestamp() < e.Clock {
		panic(fmt.Sprintf("SchedulingInvariantError: event %T at t=%d before clock t=%d", ev, ev.Timestamp(), e.Clock))
	}
	heap.Push(&e.eventQ, scheduledEvent{ev: ev, seq: e.seqCounter})
	e.seqCounter++
}

// Run drives the event loop: repeatedly pops the earliest event and
// dispatches it until no events remain or logical time would exceed the
// horizon. At the horizon, in-flight parts stay in their current
// station/buffer state and are reported as WIP.
func (e *Engine) Run() {
	for len(e.eventQ) > 0 {
		next := e.eventQ[0]
		if next.ev.Timestamp() > e.Horizon {
			break
		}
		heap.Pop(&e.eventQ)
		e.Clock = next.ev.Timestamp()
		logrus.Debugf("[tick %07d] Executing %T", e.Clock, next.ev)
		next.ev.Execute(e)
	}
	e.Clock = e.Horizon
	e.finish()
	logrus.Debugf("[tick %07d] Simulation ended", e.Clock)
}

// finish closes open accounting intervals at the horizon so that
// busy + idle + down equals elapsed time exactly.
func (e *Engine) finish() {
	if e.finished {
		return
	}
	e.finished = true
	for _, st := range e.Stations {
		if st.down {
			st.DownTicks += e.Horizon - st.downSince
			st.downSince = e.Horizon
		}
		for _, j := range st.jobs {
			if j.state == jobProcessing {
				st.BusyTicks += e.Horizon - j.startedAt
				j.remaining -= e.Horizon - j.startedAt
				j.startedAt = e.Horizon
			}
		}
	}
}

// InjectArrival schedules a single part arrival at the given tick, bypassing
// the configured sources. Intended for tests and programmatic scenarios.
func (e *Engine) InjectArrival(at int64, kind PartKind, buffer string) (*Part, error) {
	if _, ok := e.bufferIndex[buffer]; !ok {
		return nil, fmt.Errorf("%w: unknown entry buffer %q", ErrConfig, buffer)
	}
	part := e.newPart(kind, at)
	e.Schedule(&PartArrivalEvent{time: at, Part: part, Buffer: buffer})
	return part, nil
}

// newPart mints a part with a sequential ID.
func (e *Engine) newPart(kind PartKind, at int64) *Part {
	if kind == KindReman {
		e.returnCount++
		return &Part{
			ID:             fmt.Sprintf("RET-%05d", e.returnCount),
			Kind:           KindReman,
			CreatedAt:      at,
			SourceReturnID: fmt.Sprintf("return-%05d", e.returnCount),
		}
	}
	e.newCount++
	return &Part{ID: fmt.Sprintf("NEW-%05d", e.newCount), Kind: KindNew, CreatedAt: at}
}

// generateNewArrivals pre-schedules the Poisson new-part source up to the
// arrival cutoff.
func (e *Engine) generateNewArrivals() {
	rate := e.Config.NewArrivals.RatePerMin
	if rate <= 0 {
		return
	}
	rng := e.rng.ForSubsystem(SubsystemArrivals)
	t := int64(0)
	for {
		t += ToTicks(rng.ExpFloat64() / rate)
		if t >= e.ArrivalCutoff {
			break
		}
		part := e.newPart(KindNew, t)
		e.Schedule(&PartArrivalEvent{time: t, Part: part, Buffer: e.Config.NewArrivals.EntryBuffer})
	}
}

// generateReturnArrivals pre-schedules the batched return source: an
// exponential gap between batches, a Gaussian batch size of at least one.
func (e *Engine) generateReturnArrivals() {
	inter := e.Config.ReturnArrivals.InterarrivalMin
	if inter <= 0 {
		return
	}
	rng := e.rng.ForSubsystem(SubsystemReturns)
	t := int64(0)
	for {
		t += ToTicks(rng.ExpFloat64() * inter)
		if t >= e.ArrivalCutoff {
			break
		}
		batch := int(math.Round(rng.NormFloat64() + e.Config.ReturnArrivals.BatchMean))
		if batch < 1 {
			batch = 1
		}
		for i := 0; i < batch; i++ {
			part := e.newPart(KindReman, t)
			e.Schedule(&PartArrivalEvent{time: t, Part: part, Buffer: e.Config.ReturnArrivals.EntryBuffer})
		}
	}
}

// admitArrival runs a PartArrivalEvent: records the arrival, posts the
// return premium credit for accepted returns, and applies the entry
// buffer's overflow policy.
func (e *Engine) admitArrival(part *Part, bufferName string, now int64) {
	buf := e.bufferIndex[bufferName]
	e.Log.Append(trace.Record{Time: now, Node: bufferName, Kind: trace.KindArrival, PartID: part.ID, PartKind: string(part.Kind)})
	if part.Kind == KindReman {
		e.Stats.CreatedReturns++
		e.Ledger.PostReturnPremium()
	} else {
		e.Stats.CreatedNew++
	}

	if buf.Put(e, part, now) {
		return
	}
	if buf.Policy == PolicyReject {
		buf.Rejected++
		e.Stats.Rejected++
		if part.Kind == KindNew {
			e.Stats.LostNewArrivals++
		} else {
			e.Stats.LostReturnArrivals++
		}
		part.State = PartScrapped
		e.Log.Append(trace.Record{Time: now, Node: bufferName, Kind: trace.KindReject, PartID: part.ID, PartKind: string(part.Kind)})
		return
	}
	// Block policy: the arrival parks until entry space frees.
	e.Stats.EntryBlocked++
	buf.AwaitSpace(func(freedAt int64) {
		e.Stats.EntryBlocked--
		if !buf.Put(e, part, freedAt) {
			panic(fmt.Sprintf("entry waiter for %s ran with full buffer %s", part.ID, buf.Name))
		}
	})
}

// scheduleInitialFailures draws the first time-to-failure for every station
// with a configured reliability model.
func (e *Engine) scheduleInitialFailures() {
	for _, st := range e.Stations {
		if st.mtbfMin > 0 {
			e.scheduleNextFailure(st, 0)
		}
	}
}

// scheduleNextFailure draws an exponential time-to-failure, floored at one
// tick so a degenerate MTBF cannot livelock the clock.
func (e *Engine) scheduleNextFailure(st *Station, now int64) {
	if st.mtbfMin <= 0 {
		return
	}
	ttf := ToTicks(e.rng.ForSubsystem(SubsystemReliability(st.Name)).ExpFloat64() * st.mtbfMin)
	if ttf < 1 {
		ttf = 1
	}
	e.Schedule(&FailureEvent{time: now + ttf, Station: st})
}

// onStationFailure opens the downtime interval and schedules the repair.
func (e *Engine) onStationFailure(st *Station, now int64) {
	st.onFailure(e, now)
	repair := ToTicks(st.repairSampler.Sample(e.rng.ForSubsystem(SubsystemReliability(st.Name))))
	e.Schedule(&RepairEvent{time: now + repair, Station: st})
}

// onStationRepair closes the downtime interval and draws the next failure.
func (e *Engine) onStationRepair(st *Station, now int64) {
	st.onRepair(e, now)
	e.scheduleNextFailure(st, now)
}

// takeSample records one occupancy sample per buffer, in topology order.
func (e *Engine) takeSample(now int64) {
	for _, b := range e.Buffers {
		e.TimeSeries = append(e.TimeSeries, BufferSample{Time: now, Buffer: b.Name, Occupancy: b.Len()})
	}
}

// InSystem returns the number of parts currently held by buffers, stations,
// and parked entry arrivals.
func (e *Engine) InSystem() int64 {
	var n int64
	for _, b := range e.Buffers {
		n += int64(b.Len())
	}
	for _, st := range e.Stations {
		n += int64(st.InProcess())
	}
	return n + e.Stats.EntryBlocked
}

// CheckConservation verifies that no part has been duplicated or lost:
// created = delivered + scrapped + rejected + in-system. Returns nil when
// the invariant holds.
func (e *Engine) CheckConservation() error {
	created := e.Stats.CreatedNew + e.Stats.CreatedReturns
	accounted := e.Stats.Delivered + e.Stats.Scrapped + e.Stats.Rejected + e.InSystem()
	if created != accounted {
		return fmt.Errorf("part conservation violated: created %d, accounted %d", created, accounted)
	}
	return nil
}
