/*
NAME
  extractor.go

DESCRIPTION
  extractor.go implements the phase-path vital-signs extractor: a sliding
  window of phase (or displacement-proxy) samples, motion rejection,
  zero-phase bandpass filtering into HR and RR bands, and band-limited
  FFT peak search with confidence scoring.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package vitals

import (
	"gonum.org/v1/gonum/stat"

	"github.com/vitalwave/radarcore/dsp"
)

// Defaults for Config.
const (
	DefaultSampleRate      = 20.0 // Hz
	DefaultWindowSeconds   = 10.0
	DefaultFilterOrder     = 4
	DefaultZeroPadFactor   = 4
	DefaultMotionThreshold = 0.6
	DefaultTau             = 0.5

	hrLowHz  = 0.8
	hrHighHz = 3.0
	rrLowHz  = 0.1
	rrHighHz = 0.6

	hrConfK        = 5.0
	rrConfK        = 3.0
	hrJumpDeltaBPM = 20.0
	rrJumpDeltaBPM = 10.0

	warmupFactor = 5 // Minimum samples required: warmupFactor * Fs.

	hrMinBPM = 30.0
	hrMaxBPM = 200.0
	rrMinBPM = 4.0
	rrMaxBPM = 40.0
)

// Config holds the extractor's tunable parameters.
type Config struct {
	SampleRate      float64
	WindowSeconds   float64
	FilterOrder     int
	ZeroPadFactor   int
	MotionThreshold float64
	Tau             float64 // Confidence threshold for the validity predicate.
}

// DefaultConfig returns a Config populated with the documented defaults.
func DefaultConfig() Config {
	return Config{
		SampleRate:      DefaultSampleRate,
		WindowSeconds:   DefaultWindowSeconds,
		FilterOrder:     DefaultFilterOrder,
		ZeroPadFactor:   DefaultZeroPadFactor,
		MotionThreshold: DefaultMotionThreshold,
		Tau:             DefaultTau,
	}
}

// Vitals is a single vital-signs estimate.
type Vitals struct {
	HasHR bool
	HR    float64 // BPM.

	HasRR bool
	RR    float64 // BPM.

	HRConfidence float64
	RRConfidence float64

	SignalQuality  float64
	MotionDetected bool
}

// Valid reports whether v satisfies the validity predicate: both rates
// present and within physiological range, with confidence at or above
// tau.
func (v Vitals) Valid(tau float64) bool {
	if !v.HasHR || !v.HasRR {
		return false
	}
	if v.HR < hrMinBPM || v.HR > hrMaxBPM {
		return false
	}
	if v.RR < rrMinBPM || v.RR > rrMaxBPM {
		return false
	}
	return v.HRConfidence >= tau && v.RRConfidence >= tau
}

// Extractor is the phase-path vital-signs extractor. It owns a ring
// buffer of phase samples and the two band estimators derived from it.
// Extractor is single-writer; it is intended to be owned by one
// acquisition task.
type Extractor struct {
	cfg Config

	window   []float64
	capacity int

	hrFilter *dsp.Bandpass
	rrFilter *dsp.Bandpass

	hr *bandEstimator
	rr *bandEstimator
}

// New returns an Extractor configured by cfg, with zero-value fields
// replaced by documented defaults.
func New(cfg Config) *Extractor {
	if cfg.SampleRate == 0 {
		cfg.SampleRate = DefaultSampleRate
	}
	if cfg.WindowSeconds == 0 {
		cfg.WindowSeconds = DefaultWindowSeconds
	}
	if cfg.FilterOrder == 0 {
		cfg.FilterOrder = DefaultFilterOrder
	}
	if cfg.ZeroPadFactor == 0 {
		cfg.ZeroPadFactor = DefaultZeroPadFactor
	}
	if cfg.MotionThreshold == 0 {
		cfg.MotionThreshold = DefaultMotionThreshold
	}
	if cfg.Tau == 0 {
		cfg.Tau = DefaultTau
	}

	capacity := int(cfg.SampleRate * cfg.WindowSeconds)

	hrFilter, _ := dsp.NewBandpass(hrLowHz, hrHighHz, cfg.SampleRate, cfg.FilterOrder)
	rrFilter, _ := dsp.NewBandpass(rrLowHz, rrHighHz, cfg.SampleRate, cfg.FilterOrder)

	return &Extractor{
		cfg:      cfg,
		capacity: capacity,
		hrFilter: hrFilter,
		rrFilter: rrFilter,
		hr:       newBandEstimator(band{lowHz: hrLowHz, highHz: hrHighHz, confK: hrConfK, jumpDeltaBPM: hrJumpDeltaBPM}),
		rr:       newBandEstimator(band{lowHz: rrLowHz, highHz: rrHighHz, confK: rrConfK, jumpDeltaBPM: rrJumpDeltaBPM}),
	}
}

// AddSample appends one phase (or displacement-proxy) sample to the
// sliding window and returns the current vital-signs estimate.
func (e *Extractor) AddSample(x float64) Vitals {
	e.window = append(e.window, x)
	if len(e.window) > e.capacity {
		e.window = e.window[len(e.window)-e.capacity:]
	}

	minSamples := int(warmupFactor * e.cfg.SampleRate)
	if len(e.window) < minSamples {
		return Vitals{}
	}

	if e.motionDetected() {
		return Vitals{MotionDetected: true}
	}

	hrFiltered := e.hrFilter.Apply(e.window)
	rrFiltered := e.rrFilter.Apply(e.window)

	hrRate, hrConf, hrOK := e.hr.estimate(hrFiltered, e.cfg.SampleRate, e.cfg.ZeroPadFactor)
	rrRate, rrConf, rrOK := e.rr.estimate(rrFiltered, e.cfg.SampleRate, e.cfg.ZeroPadFactor)

	v := Vitals{
		HasHR:        hrOK,
		HR:           hrRate,
		HasRR:        rrOK,
		RR:           rrRate,
		HRConfidence: hrConf,
		RRConfidence: rrConf,
	}
	v.SignalQuality = (hrConf + rrConf) / 2
	return v
}

// motionDetected implements the motion-rejection test: stddev of the
// first difference of the window exceeds the configured threshold.
func (e *Extractor) motionDetected() bool {
	if len(e.window) < 2 {
		return false
	}
	diffs := make([]float64, len(e.window)-1)
	for i := 1; i < len(e.window); i++ {
		diffs[i-1] = e.window[i] - e.window[i-1]
	}
	return stat.StdDev(diffs, nil) > e.cfg.MotionThreshold
}

// Reset clears the window, filter state, and estimator history.
func (e *Extractor) Reset() {
	e.window = nil
	e.hr.reset()
	e.rr.reset()
}
