/*
NAME
  fall.go

DESCRIPTION
  fall.go implements fall detection over tracked objects: a per-track
  history of position, velocity, and height feeds a state machine
  (monitoring -> fall detected -> impact detected -> lying down ->
  recovered) driven by a weighted multi-factor confidence score. It
  consumes TrackedObject values, which package acquisition builds from
  package pointcloud's tracked points, rather than a frame's
  tracked-object TLV, which the wire protocol does not carry.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package fall detects falls from tracked-object trajectories: sudden
// downward velocity, a sustained height drop, and a subsequent period
// lying down, scored into a confidence and reported through a small
// state machine per track.
package fall

import (
	"math"
	"time"
)

// State is a fall detection state machine state.
type State string

// States, in the order a detected fall progresses through them.
const (
	Monitoring     State = "monitoring"
	FallDetected   State = "fall_detected"
	ImpactDetected State = "impact_detected"
	LyingDown      State = "lying_down"
	Recovered      State = "recovered"
)

// Defaults for Config.
const (
	DefaultStandingHeightMin   = 1.2  // Meters.
	DefaultFallHeightThreshold = 0.6  // Meters.
	DefaultLyingHeightMax      = 0.4  // Meters.
	DefaultFallVelocityThresh  = -1.5 // m/s, downward.
	DefaultImpactVelocityDelta = 2.0  // m/s. Carried for parity; unused by the algorithm below.
	DefaultFallDurationMax     = 2 * time.Second
	DefaultLyingTimeout        = 5 * time.Second
	DefaultRecoveryTimeout     = 30 * time.Second // Carried for parity; unused by the algorithm below.
	DefaultMinConfidence       = 0.7
	DefaultMinTrackHistory     = 5
	maxHistorySamples          = 50
	trackMaxAge                = 5 * time.Second
	heightStatsWindowShort     = 1 * time.Second
	heightStatsWindowLong      = 2 * time.Second
)

// Config holds the detector's tunable thresholds. ImpactVelocityDelta,
// FallDurationMax, and RecoveryTimeout are accepted for parity with the
// algorithm this package is ported from but are not read by any of its
// logic.
type Config struct {
	StandingHeightMin   float64
	FallHeightThreshold float64
	LyingHeightMax      float64

	FallVelocityThreshold float64
	ImpactVelocityDelta   float64

	FallDurationMax time.Duration
	LyingTimeout    time.Duration
	RecoveryTimeout time.Duration

	MinConfidence   float64
	MinTrackHistory int
}

// DefaultConfig returns a Config populated with documented defaults.
func DefaultConfig() Config {
	return Config{
		StandingHeightMin:     DefaultStandingHeightMin,
		FallHeightThreshold:   DefaultFallHeightThreshold,
		LyingHeightMax:        DefaultLyingHeightMax,
		FallVelocityThreshold: DefaultFallVelocityThresh,
		ImpactVelocityDelta:   DefaultImpactVelocityDelta,
		FallDurationMax:       DefaultFallDurationMax,
		LyingTimeout:          DefaultLyingTimeout,
		RecoveryTimeout:       DefaultRecoveryTimeout,
		MinConfidence:         DefaultMinConfidence,
		MinTrackHistory:       DefaultMinTrackHistory,
	}
}

// TrackedObject is one tracked physical target's position and velocity
// at a point in time, the direct-list input ProcessTrackedObjects
// consumes.
type TrackedObject struct {
	TrackID    int
	X, Y, Z    float64
	VX, VY, VZ float64
}

// Event describes a detected fall's progress through the state
// machine.
type Event struct {
	TrackID    int
	State      State
	Confidence float64
	Timestamp  time.Time
	StartTime  time.Time

	X, Y, Z float64

	FallHeight   float64 // Height the track fell from.
	ImpactHeight float64 // Lowest height seen since the fall started.

	Duration      time.Duration
	LyingDuration time.Duration
}

// Result is the outcome of one ProcessTrackedObjects call.
type Result struct {
	FallDetected bool
	Confidence   float64
	Event        *Event
	ActiveTracks int
	Timestamp    time.Time
}

type sample struct {
	x, y, z    float64
	vx, vy, vz float64
	t          time.Time
}

// trackHistory is the bounded sample history backing fall analysis for
// one track.
type trackHistory struct {
	trackID int
	samples []sample
}

func (h *trackHistory) addSample(s sample) {
	h.samples = append(h.samples, s)
	if len(h.samples) > maxHistorySamples {
		h.samples = h.samples[len(h.samples)-maxHistorySamples:]
	}
}

func (h *trackHistory) current() sample {
	if len(h.samples) == 0 {
		return sample{}
	}
	return h.samples[len(h.samples)-1]
}

func (h *trackHistory) verticalVelocity() float64 {
	return h.current().vz
}

func (h *trackHistory) velocityMagnitude() float64 {
	s := h.current()
	return math.Sqrt(s.vx*s.vx + s.vy*s.vy + s.vz*s.vz)
}

// heightStats returns the min, max, and average height over the
// trailing window ending at the most recent sample.
func (h *trackHistory) heightStats(window time.Duration) (min, max, avg float64) {
	if len(h.samples) == 0 {
		return 0, 0, 0
	}
	cutoff := h.samples[len(h.samples)-1].t.Add(-window)

	min, max = math.MaxFloat64, -math.MaxFloat64
	var sum float64
	var n int
	for _, s := range h.samples {
		if s.t.Before(cutoff) {
			continue
		}
		if s.z < min {
			min = s.z
		}
		if s.z > max {
			max = s.z
		}
		sum += s.z
		n++
	}
	if n == 0 {
		last := h.samples[len(h.samples)-1].z
		return last, last, last
	}
	return min, max, sum / float64(n)
}

// Detector tracks per-track history and active fall events across
// calls to ProcessTrackedObjects. It is single-writer, matching one
// Detector per streaming session.
type Detector struct {
	cfg Config

	histories map[int]*trackHistory
	active    map[int]*Event
	completed []Event
}

// NewDetector returns a Detector configured by cfg, with zero-value
// fields replaced by documented defaults.
func NewDetector(cfg Config) *Detector {
	if cfg.StandingHeightMin <= 0 {
		cfg.StandingHeightMin = DefaultStandingHeightMin
	}
	if cfg.FallHeightThreshold <= 0 {
		cfg.FallHeightThreshold = DefaultFallHeightThreshold
	}
	if cfg.LyingHeightMax <= 0 {
		cfg.LyingHeightMax = DefaultLyingHeightMax
	}
	if cfg.FallVelocityThreshold == 0 {
		cfg.FallVelocityThreshold = DefaultFallVelocityThresh
	}
	if cfg.LyingTimeout <= 0 {
		cfg.LyingTimeout = DefaultLyingTimeout
	}
	if cfg.MinConfidence <= 0 {
		cfg.MinConfidence = DefaultMinConfidence
	}
	if cfg.MinTrackHistory <= 0 {
		cfg.MinTrackHistory = DefaultMinTrackHistory
	}
	return &Detector{
		cfg:       cfg,
		histories: make(map[int]*trackHistory),
		active:    make(map[int]*Event),
	}
}

// ProcessTrackedObjects updates each track's history, analyzes it for
// fall indicators, and reports the most confident active fall, if any.
func (d *Detector) ProcessTrackedObjects(objects []TrackedObject, timestamp time.Time) Result {
	result := Result{ActiveTracks: len(objects), Timestamp: timestamp}

	for _, obj := range objects {
		d.updateHistory(obj, timestamp)
		event := d.analyzeTrack(obj.TrackID, timestamp)
		if event == nil || event.Confidence < d.cfg.MinConfidence {
			continue
		}
		switch event.State {
		case FallDetected, ImpactDetected, LyingDown:
			result.FallDetected = true
			if event.Confidence > result.Confidence {
				result.Confidence = event.Confidence
				result.Event = event
			}
		}
	}

	d.cleanupOldTracks(timestamp)
	return result
}

func (d *Detector) updateHistory(obj TrackedObject, timestamp time.Time) {
	h, ok := d.histories[obj.TrackID]
	if !ok {
		h = &trackHistory{trackID: obj.TrackID}
		d.histories[obj.TrackID] = h
	}
	h.addSample(sample{x: obj.X, y: obj.Y, z: obj.Z, vx: obj.VX, vy: obj.VY, vz: obj.VZ, t: timestamp})
}

func (d *Detector) analyzeTrack(trackID int, timestamp time.Time) *Event {
	h, ok := d.histories[trackID]
	if !ok || len(h.samples) < d.cfg.MinTrackHistory {
		return nil
	}

	if event, ok := d.active[trackID]; ok {
		return d.updateActiveEvent(event, h, timestamp)
	}
	return d.detectNewFall(trackID, h, timestamp)
}

func (d *Detector) detectNewFall(trackID int, h *trackHistory, timestamp time.Time) *Event {
	_, maxHeight, _ := h.heightStats(heightStatsWindowShort)
	currentHeight := h.current().z
	verticalVelocity := h.verticalVelocity()

	if verticalVelocity < d.cfg.FallVelocityThreshold {
		if confidence := d.fallConfidence(h, nil); confidence >= d.cfg.MinConfidence {
			event := d.newEvent(trackID, FallDetected, confidence, timestamp, h, maxHeight, currentHeight)
			d.active[trackID] = event
			return event
		}
		return nil
	}

	heightDrop := maxHeight - currentHeight
	if heightDrop > 0.5 && currentHeight < d.cfg.FallHeightThreshold {
		confidence := math.Min(1.0, heightDrop/1.0)
		if confidence >= d.cfg.MinConfidence {
			event := d.newEvent(trackID, ImpactDetected, confidence, timestamp, h, maxHeight, currentHeight)
			d.active[trackID] = event
			return event
		}
	}
	return nil
}

func (d *Detector) newEvent(trackID int, state State, confidence float64, timestamp time.Time, h *trackHistory, fallHeight, impactHeight float64) *Event {
	s := h.current()
	return &Event{
		TrackID:      trackID,
		State:        state,
		Confidence:   confidence,
		Timestamp:    timestamp,
		StartTime:    timestamp,
		X:            s.x,
		Y:            s.y,
		Z:            s.z,
		FallHeight:   fallHeight,
		ImpactHeight: impactHeight,
	}
}

func (d *Detector) updateActiveEvent(event *Event, h *trackHistory, timestamp time.Time) *Event {
	currentHeight := h.current().z
	velocityMag := h.velocityMagnitude()

	event.Duration = timestamp.Sub(event.StartTime)
	s := h.current()
	event.X, event.Y, event.Z = s.x, s.y, s.z
	if currentHeight < event.ImpactHeight {
		event.ImpactHeight = currentHeight
	}
	prev := event.Timestamp
	event.Timestamp = timestamp

	switch event.State {
	case FallDetected:
		switch {
		case velocityMag < 0.3 && currentHeight < d.cfg.FallHeightThreshold:
			event.State = ImpactDetected
			event.Confidence = math.Min(1.0, event.Confidence+0.1)
		case currentHeight > d.cfg.StandingHeightMin:
			event.State = Recovered
			d.completeEvent(event.TrackID)
		}

	case ImpactDetected:
		switch {
		case currentHeight < d.cfg.LyingHeightMax && velocityMag < 0.2:
			event.State = LyingDown
			event.LyingDuration = 0
		case currentHeight > d.cfg.StandingHeightMin:
			event.State = Recovered
			d.completeEvent(event.TrackID)
		}

	case LyingDown:
		event.LyingDuration += timestamp.Sub(prev)
		if currentHeight > d.cfg.StandingHeightMin {
			event.State = Recovered
			d.completeEvent(event.TrackID)
		} else if event.LyingDuration > d.cfg.LyingTimeout {
			event.Confidence = math.Min(1.0, event.Confidence+0.05)
		}
	}

	event.Confidence = d.fallConfidence(h, event)
	return event
}

// fallConfidence scores a track's fall likelihood across five weighted
// factors: vertical velocity, height drop, current height, post-fall
// stillness, and (once an event is active) time spent lying down.
func (d *Detector) fallConfidence(h *trackHistory, event *Event) float64 {
	var confidence float64

	if vz := h.verticalVelocity(); vz < d.cfg.FallVelocityThreshold {
		velocityFactor := math.Min(1.0, math.Abs(vz)/3.0)
		confidence += 0.3 * velocityFactor
	}

	minH, maxH, _ := h.heightStats(heightStatsWindowLong)
	if heightDrop := maxH - minH; heightDrop > 0.3 {
		dropFactor := math.Min(1.0, heightDrop/1.2)
		confidence += 0.3 * dropFactor
	}

	currentHeight := h.current().z
	if currentHeight < d.cfg.FallHeightThreshold {
		heightFactor := 1.0 - (currentHeight / d.cfg.FallHeightThreshold)
		confidence += 0.2 * heightFactor
	}

	if h.velocityMagnitude() < 0.3 {
		confidence += 0.1
	}

	if event != nil && event.LyingDuration > 0 {
		lyingFactor := math.Min(1.0, float64(event.LyingDuration)/float64(d.cfg.LyingTimeout))
		confidence += 0.1 * lyingFactor
	}

	return math.Min(1.0, confidence)
}

func (d *Detector) completeEvent(trackID int) {
	event, ok := d.active[trackID]
	if !ok {
		return
	}
	delete(d.active, trackID)
	d.completed = append(d.completed, *event)
}

func (d *Detector) cleanupOldTracks(timestamp time.Time) {
	var stale []int
	for trackID, h := range d.histories {
		if len(h.samples) == 0 {
			continue
		}
		if timestamp.Sub(h.samples[len(h.samples)-1].t) > trackMaxAge {
			stale = append(stale, trackID)
		}
	}
	for _, trackID := range stale {
		delete(d.histories, trackID)
		d.completeEvent(trackID)
	}
}

// GetActiveEvents returns all currently active fall events.
func (d *Detector) GetActiveEvents() []Event {
	out := make([]Event, 0, len(d.active))
	for _, e := range d.active {
		out = append(out, *e)
	}
	return out
}

// GetCompletedEvents returns all fall events that have reached Recovered
// or aged out.
func (d *Detector) GetCompletedEvents() []Event {
	return append([]Event(nil), d.completed...)
}

// ClearEvents discards active and completed events without resetting
// track history.
func (d *Detector) ClearEvents() {
	d.active = make(map[int]*Event)
	d.completed = nil
}

// Reset returns the detector to its just-constructed state.
func (d *Detector) Reset() {
	d.histories = make(map[int]*trackHistory)
	d.active = make(map[int]*Event)
	d.completed = nil
}
