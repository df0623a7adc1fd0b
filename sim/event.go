package sim

import "github.com/sirupsen/logrus"

// Event defines the interface for all simulation events.
// Each event has a Timestamp (in ticks) and an Execute method that advances
// simulation state when invoked. All state mutation happens synchronously
// inside Execute; there is no true concurrency, only interleaved logical
// events.
type Event interface {
	Timestamp() int64
	Execute(*Engine)
}

// PartArrivalEvent represents a new part or a returned unit entering the
// system at a source.
type PartArrivalEvent struct {
	time   int64
	Part   *Part
	Buffer string // entry buffer name
}

// Timestamp returns the scheduled time of the PartArrivalEvent.
func (e *PartArrivalEvent) Timestamp() int64 {
	return e.time
}

// Execute admits the part into its entry buffer, applying the buffer's
// overflow policy when full.
func (e *PartArrivalEvent) Execute(eng *Engine) {
	logrus.Debugf("<< Arrival: %s at %d ticks", e.Part.ID, e.time)
	eng.admitArrival(e.Part, e.Buffer, e.time)
}

// CompletionEvent fires when a job's sampled processing duration has fully
// elapsed. A stale event (the job was suspended and rescheduled) is detected
// by the epoch counter and ignored.
type CompletionEvent struct {
	time    int64
	Station *Station
	Job     *job
	Epoch   int
}

// Timestamp returns the scheduled time of the CompletionEvent.
func (e *CompletionEvent) Timestamp() int64 {
	return e.time
}

// Execute finishes the job: scrap draw, cost accrual, and forwarding.
func (e *CompletionEvent) Execute(eng *Engine) {
	e.Station.onCompletion(eng, e.Job, e.Epoch, e.time)
}

// FailureEvent marks the start of an unplanned downtime interval at one
// station.
type FailureEvent struct {
	time    int64
	Station *Station
}

// Timestamp returns the scheduled time of the FailureEvent.
func (e *FailureEvent) Timestamp() int64 {
	return e.time
}

// Execute takes the station down, suspends in-flight jobs, and schedules the
// repair completion.
func (e *FailureEvent) Execute(eng *Engine) {
	logrus.Debugf("<< Failure: %s at %d ticks", e.Station.Name, e.time)
	eng.onStationFailure(e.Station, e.time)
}

// RepairEvent closes a downtime interval: capacity is restored and suspended
// jobs resume with their remaining processing time intact.
type RepairEvent struct {
	time    int64
	Station *Station
}

// Timestamp returns the scheduled time of the RepairEvent.
func (e *RepairEvent) Timestamp() int64 {
	return e.time
}

// Execute restores the station and schedules the next failure.
func (e *RepairEvent) Execute(eng *Engine) {
	logrus.Debugf("<< Repair: %s at %d ticks", e.Station.Name, e.time)
	eng.onStationRepair(e.Station, e.time)
}

// SampleEvent takes a periodic snapshot of buffer occupancies for the
// time-series output, independent of event density.
type SampleEvent struct {
	time int64
}

// Timestamp returns the scheduled time of the SampleEvent.
func (e *SampleEvent) Timestamp() int64 {
	return e.time
}

// Execute records one occupancy sample per buffer and reschedules itself.
func (e *SampleEvent) Execute(eng *Engine) {
	eng.takeSample(e.time)
	next := e.time + eng.sampleEvery
	if next <= eng.Horizon {
		eng.Schedule(&SampleEvent{time: next})
	}
}
