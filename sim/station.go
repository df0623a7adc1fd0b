package sim

import (
	"fmt"

	"github.com/factory-sim/factory-sim/sim/trace"
)

// jobState tracks one unit through the station state machine:
// queued (in buffer) → granted → processing → completed-or-scrapped → forwarded.
type jobState int

const (
	jobGranted    jobState = iota // slot held, waiting for workers
	jobProcessing                 // sampled duration elapsing
	jobSuspended                  // interrupted by downtime, remaining time preserved
	jobBlocked                    // completed, waiting for downstream buffer space
)

// job is one unit occupying a station slot. The epoch counter invalidates
// completion events that were scheduled before a suspension.
type job struct {
	part      *Part
	duration  int64 // full sampled processing time (ticks)
	remaining int64 // processing ticks left
	startedAt int64 // last (re)start of processing
	epoch     int
	state     jobState
	started   bool // processing has begun at least once (start vs resume)
}

// Station is one processing step: it consumes a slot from its machine pool,
// holds a part for a sampled duration, applies cost/energy/labor accrual,
// and hands the part to its output. Behavior variants — scrap draw at
// inspection steps, reman-preference at the merge station — are selected by
// configuration, not by subclassing.
type Station struct {
	Name            string
	Category        Category
	Machines        int
	WorkersRequired int
	RemanPriority   bool
	ScrapProb       float64
	KWhPerUnit      float64
	AirM3PerUnit    float64

	Pool          *ResourcePool
	procSampler   Sampler
	repairSampler Sampler
	mtbfMin       float64

	output *Buffer // nil = customer sink
	jobs   []*job

	down      bool
	downSince int64

	// Accounting. BusyTicks accrues per slot: with N machines the station
	// can accrue N ticks of busy time per clock tick.
	BusyTicks     int64
	DownTicks     int64
	Failures      int64
	Completed     int64
	ScrappedCount int64
	InProcessPeak int

	// Pull mix at the merge station.
	FromReman int64
	FromNew   int64

	// Per-station resource accrual, mirrored into the Ledger totals.
	EnergyKWh float64
	AirM3     float64
	LaborMin  float64
}

// newStation builds a station from its configuration. Samplers are
// validated by Config.Validate before this runs.
func newStation(cfg StationConfig) (*Station, error) {
	proc, err := NewSampler(cfg.Process)
	if err != nil {
		return nil, fmt.Errorf("station %q: process: %w", cfg.Name, err)
	}
	s := &Station{
		Name:            cfg.Name,
		Category:        cfg.Category,
		Machines:        cfg.Machines,
		WorkersRequired: cfg.WorkersRequired,
		RemanPriority:   cfg.RemanPriority,
		ScrapProb:       cfg.ScrapProb,
		KWhPerUnit:      cfg.KWhPerUnit,
		AirM3PerUnit:    cfg.AirM3PerUnit,
		Pool:            NewResourcePool(cfg.Name, cfg.Machines),
		procSampler:     proc,
		mtbfMin:         cfg.MTBFMin,
	}
	if cfg.MTBFMin > 0 {
		repair, err := NewSampler(cfg.Repair)
		if err != nil {
			return nil, fmt.Errorf("station %q: repair: %w", cfg.Name, err)
		}
		s.repairSampler = repair
	}
	return s, nil
}

// InProcess returns the number of units currently occupying the station.
func (s *Station) InProcess() int {
	return len(s.jobs)
}

// Down reports whether the station is in a downtime interval.
func (s *Station) Down() bool {
	return s.down
}

// requestSlot enqueues a resource request for a part sitting in one of the
// station's input buffers. The part stays in the buffer until granted; the
// pool's two-tier key decides who goes first.
func (s *Station) requestSlot(e *Engine, part *Part, from *Buffer, now int64) {
	tier := TierNormal
	if s.RemanPriority && part.Kind == KindReman {
		tier = TierReman
	}
	s.Pool.Request(now, 1, tier, func(grantedAt int64) {
		s.onSlotGranted(e, part, from, grantedAt)
	})
}

// onSlotGranted transfers the part out of its buffer, samples the processing
// duration, and acquires workers.
func (s *Station) onSlotGranted(e *Engine, part *Part, from *Buffer, now int64) {
	from.Remove(e, part, now)
	part.State = PartGranted
	part.Location = s.Name
	e.Log.Append(trace.Record{Time: now, Node: s.Name, Kind: trace.KindGrant, PartID: part.ID, PartKind: string(part.Kind)})

	if s.RemanPriority {
		// The merge station is where units enter the line proper: record
		// the feed mix and debit the material cost per kind.
		if part.Kind == KindReman {
			s.FromReman++
		} else {
			s.FromNew++
		}
		part.CostSoFar += e.Ledger.PostMaterial(part.Kind)
	}

	minutes := s.procSampler.Sample(e.rng.ForSubsystem(SubsystemProcess(s.Name)))
	j := &job{
		part:      part,
		duration:  ToTicks(minutes),
		remaining: ToTicks(minutes),
		state:     jobGranted,
	}
	s.jobs = append(s.jobs, j)

	if s.WorkersRequired > 0 && e.WorkerPool != nil {
		e.WorkerPool.Request(now, s.WorkersRequired, TierNormal, func(grantedAt int64) {
			s.onWorkersGranted(e, j, grantedAt)
		})
	} else {
		s.startProcessing(e, j, now)
	}
}

// onWorkersGranted starts processing, unless the station failed while the
// job was waiting for labor; then the job parks until repair.
func (s *Station) onWorkersGranted(e *Engine, j *job, now int64) {
	if s.down {
		j.state = jobSuspended
		j.part.State = PartSuspended
		return
	}
	s.startProcessing(e, j, now)
}

// startProcessing begins or resumes the sampled duration and schedules the
// completion.
func (s *Station) startProcessing(e *Engine, j *job, now int64) {
	j.state = jobProcessing
	j.startedAt = now
	j.part.State = PartProcessing

	kind := trace.KindStart
	if j.started {
		kind = trace.KindResume
	}
	j.started = true
	e.Log.Append(trace.Record{Time: now, Node: s.Name, Kind: kind, PartID: j.part.ID, PartKind: string(j.part.Kind)})

	processing := 0
	for _, other := range s.jobs {
		if other.state == jobProcessing {
			processing++
		}
	}
	if processing > s.InProcessPeak {
		s.InProcessPeak = processing
	}

	e.Schedule(&CompletionEvent{time: now + j.remaining, Station: s, Job: j, Epoch: j.epoch})
}

// onCompletion finishes a job: scrap draw where configured, accrual posting,
// then forwarding. Stale events from before a suspension are ignored.
func (s *Station) onCompletion(e *Engine, j *job, epoch int, now int64) {
	if epoch != j.epoch || j.state != jobProcessing {
		return // rescheduled after a suspension; a fresh event is in flight
	}

	s.BusyTicks += now - j.startedAt
	j.remaining = 0
	if s.WorkersRequired > 0 && e.WorkerPool != nil {
		e.WorkerPool.Release(now, s.WorkersRequired)
	}

	part := j.part
	if s.ScrapProb > 0 && e.rng.ForSubsystem(SubsystemScrap(s.Name)).Float64() < s.ScrapProb {
		part.State = PartScrapped
		e.Log.Append(trace.Record{Time: now, Node: s.Name, Kind: trace.KindScrap, PartID: part.ID, PartKind: string(part.Kind)})
		e.Ledger.PostScrap()
		e.Stats.Scrapped++
		s.ScrappedCount++
		s.finishJob(e, j, now)
		return
	}

	laborMin := float64(s.WorkersRequired) * ToMinutes(j.duration)
	part.CostSoFar += e.Ledger.PostProcessing(s.KWhPerUnit, s.AirM3PerUnit, laborMin)
	s.EnergyKWh += s.KWhPerUnit
	s.AirM3 += s.AirM3PerUnit
	s.LaborMin += laborMin
	s.Completed++
	e.Log.Append(trace.Record{Time: now, Node: s.Name, Kind: trace.KindComplete, PartID: part.ID, PartKind: string(part.Kind)})

	if s.output == nil {
		part.State = PartDelivered
		part.Location = SinkCustomer
		e.Stats.Delivered++
		e.Log.Append(trace.Record{Time: now, Node: SinkCustomer, Kind: trace.KindDeliver, PartID: part.ID, PartKind: string(part.Kind)})
		s.finishJob(e, j, now)
		return
	}
	s.tryForward(e, j, now)
}

// tryForward hands the completed part downstream, applying the output
// buffer's overflow policy when full.
func (s *Station) tryForward(e *Engine, j *job, now int64) {
	if s.output.Put(e, j.part, now) {
		s.finishJob(e, j, now)
		return
	}
	if s.output.Policy == PolicyReject {
		s.output.Rejected++
		e.Stats.Rejected++
		j.part.State = PartScrapped
		e.Log.Append(trace.Record{Time: now, Node: s.output.Name, Kind: trace.KindReject, PartID: j.part.ID, PartKind: string(j.part.Kind)})
		s.finishJob(e, j, now)
		return
	}
	// Block policy: hold the slot until downstream space frees.
	j.state = jobBlocked
	j.part.State = PartBlocked
	s.output.AwaitSpace(func(freedAt int64) {
		if !s.output.Put(e, j.part, freedAt) {
			panic(fmt.Sprintf("station %s: space waiter ran with full buffer %s", s.Name, s.output.Name))
		}
		s.finishJob(e, j, freedAt)
	})
}

// finishJob retires a job and releases its machine slot.
func (s *Station) finishJob(e *Engine, j *job, now int64) {
	for i, other := range s.jobs {
		if other == j {
			s.jobs = append(s.jobs[:i], s.jobs[i+1:]...)
			s.Pool.Release(now, 1)
			return
		}
	}
	panic(fmt.Sprintf("station %s: finishing unknown job for part %s", s.Name, j.part.ID))
}

// onFailure opens a downtime interval: the pool drains and in-flight jobs
// suspend with their remaining time preserved, so throughput accounting
// stays honest.
func (s *Station) onFailure(e *Engine, now int64) {
	s.down = true
	s.downSince = now
	s.Failures++
	s.Pool.Drain()
	e.Log.Append(trace.Record{Time: now, Node: s.Name, Kind: trace.KindFailure})

	for _, j := range s.jobs {
		if j.state != jobProcessing {
			continue
		}
		elapsed := now - j.startedAt
		s.BusyTicks += elapsed
		j.remaining -= elapsed
		if j.remaining < 0 {
			j.remaining = 0
		}
		j.epoch++
		j.state = jobSuspended
		j.part.State = PartSuspended
		e.Log.Append(trace.Record{Time: now, Node: s.Name, Kind: trace.KindSuspend, PartID: j.part.ID, PartKind: string(j.part.Kind)})
	}
}

// onRepair closes the downtime interval and resumes suspended jobs in
// arrival order.
func (s *Station) onRepair(e *Engine, now int64) {
	s.down = false
	s.DownTicks += now - s.downSince
	e.Log.Append(trace.Record{Time: now, Node: s.Name, Kind: trace.KindRepair})

	for _, j := range s.jobs {
		if j.state == jobSuspended {
			s.startProcessing(e, j, now)
		}
	}
	s.Pool.Restore(now)
}
