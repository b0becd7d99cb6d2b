/*
NAME
  pipeline.go

DESCRIPTION
  pipeline.go orchestrates the per-frame processing chain: clutter
  removal over a frame's range profile, threshold-based target bin
  detection, phase (or displacement-proxy) extraction at the target bin,
  and pass-through of range-Doppler and detected-point TLVs.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package pipeline turns a decoded frame into a ProcessedFrame: a target
// bin, a phase or displacement sample at that bin, and pass-through
// detection data, ready for the vital-signs extractors in package vitals.
package pipeline

import (
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/stat"

	"github.com/vitalwave/radarcore/dsp"
	"github.com/vitalwave/radarcore/tlv"
)

// Defaults for Config.
const (
	DefaultRangeResolution = 0.044 // meters per bin
	DefaultRangeMin        = 0.3   // meters
	DefaultRangeMax        = 2.0   // meters
	DefaultThresholdSigma  = 3.0
	magnitudeHistoryLen    = 200
	magnitudeProxyScale    = 0.1
)

// Config holds the pipeline's tunable parameters.
type Config struct {
	// Clutter is the clutter-removal variant applied to range profiles.
	// If nil, NewNoneClutter is used.
	Clutter dsp.Clutter

	RangeResolution float32 // Meters per range bin.
	RangeMin        float32 // Meters.
	RangeMax        float32 // Meters.
	ThresholdSigma  float64
}

// DefaultConfig returns a Config populated with default thresholds and a
// pass-through clutter filter.
func DefaultConfig() Config {
	return Config{
		Clutter:         dsp.NewNoneClutter(),
		RangeResolution: DefaultRangeResolution,
		RangeMin:        DefaultRangeMin,
		RangeMax:        DefaultRangeMax,
		ThresholdSigma:  DefaultThresholdSigma,
	}
}

// ProcessedFrame is the pipeline's emitted output: per-frame detection and
// phase-path results, ready for a vitals extractor.
type ProcessedFrame struct {
	FrameNumber   uint32
	TimeCPUCycles uint32

	RangeProfile []float32 // Filtered range profile, if the frame carried one.
	RangeDoppler *tlv.RangeDoppler

	HasTarget   bool
	TargetBin   int
	TargetM     float32 // Target range, meters.
	PhaseSample float64 // Radians, or a displacement proxy.

	DetectedPoints []tlv.Point
}

// Pipeline is a single-writer, stateful processing chain: it owns the
// clutter filter and the target-bin magnitude history used for the
// displacement-proxy phase path.
type Pipeline struct {
	cfg Config

	magHistory    []float32 // Magnitude history at the current target bin.
	lastTargetBin int
	haveLastBin   bool
}

// New returns a Pipeline configured by cfg. A zero-value Config's Clutter
// field is replaced with a pass-through filter.
func New(cfg Config) *Pipeline {
	if cfg.Clutter == nil {
		cfg.Clutter = dsp.NewNoneClutter()
	}
	if cfg.RangeResolution == 0 {
		cfg.RangeResolution = DefaultRangeResolution
	}
	return &Pipeline{cfg: cfg}
}

// Process runs clutter removal, target detection, and phase extraction
// over a frame's decoded TLVs and returns the resulting ProcessedFrame.
func (p *Pipeline) Process(frameNumber, timeCPUCycles uint32, decoded tlv.Decoded) ProcessedFrame {
	out := ProcessedFrame{FrameNumber: frameNumber, TimeCPUCycles: timeCPUCycles}

	if rp, ok := decoded.RangeProfile(); ok {
		filtered := p.cfg.Clutter.Apply(rp.Bins)
		out.RangeProfile = filtered
		p.detectAndExtractPhase(filtered, &out)
	}

	if rd, ok := decoded.RangeDoppler(); ok {
		out.RangeDoppler = &rd
	}

	if pts, ok := decoded.Points(); ok {
		out.DetectedPoints = pts.Points
	}

	return out
}

// detectAndExtractPhase runs threshold detection, range gating, and
// target-bin phase/displacement extraction.
func (p *Pipeline) detectAndExtractPhase(filtered []float32, out *ProcessedFrame) {
	bin, rangeM, ok := p.detectTarget(filtered)
	if !ok {
		p.resetMagnitudeHistory()
		return
	}

	out.HasTarget = true
	out.TargetBin = bin
	out.TargetM = rangeM
	out.PhaseSample = p.extractPhase(filtered, bin)
}

// detectTarget applies a mean+3*stddev threshold over the absolute
// filtered profile, converts surviving bins to ranges, gates them to
// [RangeMin, RangeMax], and chooses the first survivor as the target.
func (p *Pipeline) detectTarget(filtered []float32) (bin int, rangeM float32, ok bool) {
	if len(filtered) == 0 {
		return 0, 0, false
	}

	abs := make([]float64, len(filtered))
	for i, v := range filtered {
		abs[i] = math.Abs(float64(v))
	}
	mean := stat.Mean(abs, nil)
	stddev := stat.StdDev(abs, nil)
	threshold := mean + p.cfg.ThresholdSigma*stddev

	for i, v := range abs {
		if v <= threshold {
			continue
		}
		r := float32(i) * p.cfg.RangeResolution
		if r < p.cfg.RangeMin || r > p.cfg.RangeMax {
			continue
		}
		return i, r, true
	}
	return 0, 0, false
}

// extractPhase derives a phase-or-displacement sample at bin. The
// pipeline only ever sees real-valued range profiles (TLV type 2 is
// always magnitude, never complex); the displacement-proxy path is
// therefore always taken here. ExtractComplexPhase is exposed separately
// for callers that decode a complex range-FFT TLV directly.
func (p *Pipeline) extractPhase(filtered []float32, bin int) float64 {
	if bin != p.lastTargetBin || !p.haveLastBin {
		p.resetMagnitudeHistory()
		p.lastTargetBin = bin
		p.haveLastBin = true
	}

	mag := filtered[bin]
	p.magHistory = append(p.magHistory, mag)
	if len(p.magHistory) > magnitudeHistoryLen {
		p.magHistory = p.magHistory[len(p.magHistory)-magnitudeHistoryLen:]
	}

	f64 := make([]float64, len(p.magHistory))
	for i, v := range p.magHistory {
		f64[i] = float64(v)
	}
	mean := stat.Mean(f64, nil)

	return (float64(mag) - mean) * magnitudeProxyScale
}

func (p *Pipeline) resetMagnitudeHistory() {
	p.magHistory = nil
	p.haveLastBin = false
}

// ExtractComplexPhase returns angle(profile[bin]) for a complex range-FFT
// sample.
func ExtractComplexPhase(re, im float64) float64 {
	return cmplx.Phase(complex(re, im))
}

// Reset clears all pipeline state (clutter filter and magnitude history).
func (p *Pipeline) Reset() {
	p.cfg.Clutter.Reset()
	p.resetMagnitudeHistory()
	p.lastTargetBin = 0
}
